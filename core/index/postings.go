package index

import (
	"sort"

	"github.com/kestrelsearch/kestrel/core/kerrors"
	"github.com/kestrelsearch/kestrel/core/store"
)

// postingDoc is one document's contribution to a term's postings list
// while a segment is being built in memory: strictly increasing
// docIDs, their term frequency, and (for analyzed fields) absolute
// term positions within the field.
type postingDoc struct {
	DocID     int
	Freq      int
	Positions []int // nil for unanalyzed (single-token) fields
}

// termPostings accumulates one term's full posting list during flush.
type termPostings struct {
	Term Term
	Docs []postingDoc
}

// InvertedIndexBuilder accumulates postings across an entire segment's
// worth of documents, in docID order, before they are written to the
// .tis/.frq/.prx files. It plays the role TermsHashPerField plays in
// the indexing chain, simplified to operate directly on pre-tokenized
// Fields rather than a streaming analyzer chain.
type InvertedIndexBuilder struct {
	byTerm map[Term]*termPostings
}

func NewInvertedIndexBuilder() *InvertedIndexBuilder {
	return &InvertedIndexBuilder{byTerm: make(map[Term]*termPostings)}
}

// AddDocument folds docID's indexed fields into the accumulator.
func (b *InvertedIndexBuilder) AddDocument(docID int, doc *Document) {
	type acc struct {
		positions []int
		analyzed  bool
	}
	perField := make(map[string]map[string]*acc)

	for _, f := range doc.Fields {
		if f.Index == NotIndexed {
			continue
		}
		fieldTerms := perField[f.Name]
		if fieldTerms == nil {
			fieldTerms = make(map[string]*acc)
			perField[f.Name] = fieldTerms
		}
		if f.Index == IndexedUnanalyzed {
			text := string(f.StoredValue)
			a := fieldTerms[text]
			if a == nil {
				a = &acc{}
				fieldTerms[text] = a
			}
			a.positions = append(a.positions, 0)
			continue
		}
		pos := -1
		for _, tok := range f.Tokens {
			pos += tok.PositionIncr
			if tok.PositionIncr == 0 && pos == -1 {
				pos = 0
			}
			a := fieldTerms[tok.Text]
			if a == nil {
				a = &acc{analyzed: true}
				fieldTerms[tok.Text] = a
			}
			a.analyzed = true
			a.positions = append(a.positions, pos)
		}
	}

	for fieldName, terms := range perField {
		for text, a := range terms {
			term := NewTerm(fieldName, text)
			tp := b.byTerm[term]
			if tp == nil {
				tp = &termPostings{Term: term}
				b.byTerm[term] = tp
			}
			pd := postingDoc{DocID: docID, Freq: len(a.positions)}
			if a.analyzed {
				pd.Positions = a.positions
			}
			tp.Docs = append(tp.Docs, pd)
		}
	}
}

// SortedTerms returns every accumulated term in (field, text) order.
func (b *InvertedIndexBuilder) SortedTerms() []*termPostings {
	out := make([]*termPostings, 0, len(b.byTerm))
	for _, tp := range b.byTerm {
		out = append(out, tp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Term.Less(out[j].Term) })
	return out
}

func tisFileName(segment string) string { return "_" + segment + ".tis" }
func frqFileName(segment string) string { return "_" + segment + ".frq" }
func prxFileName(segment string) string { return "_" + segment + ".prx" }

// writePostings persists the accumulated postings: .frq and .prx hold
// the doc/freq and position deltas respectively, and .tis holds the
// sorted term dictionary with each term's docFreq and byte offsets
// into .frq/.prx (a standalone in-memory-loaded dictionary; this
// implementation omits the .tii skip-index used to avoid loading the
// whole dictionary, since segment sizes in scope here do not require it).
func writePostings(dir store.Directory, segment string, terms []*termPostings) error {
	frq, err := dir.CreateOutput(frqFileName(segment))
	if err != nil {
		return err
	}
	defer frq.Close()
	prx, err := dir.CreateOutput(prxFileName(segment))
	if err != nil {
		return err
	}
	defer prx.Close()
	tis, err := dir.CreateOutput(tisFileName(segment))
	if err != nil {
		return err
	}
	defer tis.Close()

	if err := tis.WriteVInt(int32(len(terms))); err != nil {
		return err
	}
	for _, tp := range terms {
		if err := tis.WriteString(tp.Term.Field); err != nil {
			return err
		}
		if err := tis.WriteString(tp.Term.Text); err != nil {
			return err
		}
		if err := tis.WriteVInt(int32(len(tp.Docs))); err != nil {
			return err
		}
		frqOffset := frq.FilePointer()
		prxOffset := prx.FilePointer()
		hasPositions := len(tp.Docs) > 0 && tp.Docs[0].Positions != nil
		if err := tis.WriteLong(frqOffset); err != nil {
			return err
		}
		if hasPositions {
			if err := tis.WriteLong(prxOffset); err != nil {
				return err
			}
		} else {
			if err := tis.WriteLong(-1); err != nil {
				return err
			}
		}

		prevDoc := 0
		for _, pd := range tp.Docs {
			if err := frq.WriteVInt(int32(pd.DocID - prevDoc)); err != nil {
				return err
			}
			if err := frq.WriteVInt(int32(pd.Freq)); err != nil {
				return err
			}
			prevDoc = pd.DocID
			if hasPositions {
				prevPos := 0
				for _, p := range pd.Positions {
					if err := prx.WriteVInt(int32(p - prevPos)); err != nil {
						return err
					}
					prevPos = p
				}
			}
		}
	}
	return nil
}

// dictEntry is one term dictionary row, loaded eagerly on segment open.
type dictEntry struct {
	term      Term
	docFreq   int
	frqOffset int64
	prxOffset int64 // -1 if the field carries no positions
}

// TermDictionary is a segment's in-memory sorted term table.
type TermDictionary struct {
	entries []dictEntry
}

func readTermDictionary(dir store.Directory, segment string) (*TermDictionary, error) {
	in, err := dir.OpenInput(tisFileName(segment), 0)
	if err != nil {
		return nil, kerrors.NewCorruptIndexError(err, "open .tis")
	}
	defer in.Close()
	count, err := in.ReadVInt()
	if err != nil {
		return nil, kerrors.NewCorruptIndexError(err, "tis count")
	}
	td := &TermDictionary{entries: make([]dictEntry, 0, count)}
	for i := int32(0); i < count; i++ {
		field, err := in.ReadString()
		if err != nil {
			return nil, err
		}
		text, err := in.ReadString()
		if err != nil {
			return nil, err
		}
		docFreq, err := in.ReadVInt()
		if err != nil {
			return nil, err
		}
		frqOffset, err := in.ReadLong()
		if err != nil {
			return nil, err
		}
		prxOffset, err := in.ReadLong()
		if err != nil {
			return nil, err
		}
		td.entries = append(td.entries, dictEntry{
			term:      NewTerm(field, text),
			docFreq:   int(docFreq),
			frqOffset: frqOffset,
			prxOffset: prxOffset,
		})
	}
	return td, nil
}

// Lookup finds a term via binary search over the (field, text)-ordered dictionary.
func (td *TermDictionary) Lookup(t Term) (dictEntry, bool) {
	i := sort.Search(len(td.entries), func(i int) bool { return !td.entries[i].term.Less(t) })
	if i < len(td.entries) && td.entries[i].term == t {
		return td.entries[i], true
	}
	return dictEntry{}, false
}

// Entries returns the full dictionary in term order, for enumeration.
func (td *TermDictionary) Entries() []dictEntry { return td.entries }

// DocFreq returns the number of docs in this segment containing t, or 0 if absent.
func (td *TermDictionary) DocFreq(t Term) int {
	e, ok := td.Lookup(t)
	if !ok {
		return 0
	}
	return e.docFreq
}
