package index

import (
	"sync"

	"github.com/kestrelsearch/kestrel/core/kerrors"
	"github.com/kestrelsearch/kestrel/core/store"
	"github.com/kestrelsearch/kestrel/core/util"
)

// SegmentReader opens one segment for querying: term enumeration,
// term-doc/position iteration, stored-field retrieval, and norm
// arrays. Multiple SegmentReaders may share the same underlying
// Directory files; file lifetime is the max over every live reader.
type SegmentReader struct {
	Info *SegmentCommitInfo

	fieldInfos   *FieldInfos
	dict         *TermDictionary
	frq          store.IndexInput
	prx          store.IndexInput
	storedFields *StoredFieldsReader
	norms        map[string][]byte
	deleted      *util.BitVector // bit set = deleted; nil if none

	termCache *util.OrderedLRUCache[Term, dictEntry]
	mu        sync.Mutex
}

// OpenSegmentReader opens every file a segment needs for querying. If
// the segment was flushed as a compound file, sub-files are resolved
// through the compound file's table of contents transparently.
func OpenSegmentReader(sci *SegmentCommitInfo) (*SegmentReader, error) {
	dir := sci.Info.Dir
	segDir := dir
	var cfr *CompoundFileReader
	if sci.Info.IsCompoundFile {
		var err error
		cfr, err = OpenCompoundFileReader(dir, "_"+sci.Info.Name+".cfs")
		if err != nil {
			return nil, err
		}
		segDir = &compoundFileDirectory{Directory: dir, cfr: cfr}
	}

	fis, err := readFieldInfos(segDir, sci.Info.Name)
	if err != nil {
		return nil, err
	}
	dict, err := readTermDictionary(segDir, sci.Info.Name)
	if err != nil {
		return nil, err
	}
	frq, err := segDir.OpenInput(frqFileName(sci.Info.Name), 0)
	if err != nil {
		return nil, err
	}
	var prx store.IndexInput
	if segDir.FileExists(prxFileName(sci.Info.Name)) {
		prx, err = segDir.OpenInput(prxFileName(sci.Info.Name), 0)
		if err != nil {
			return nil, err
		}
	}
	sf, err := openStoredFieldsReader(segDir, sci.Info.Name)
	if err != nil {
		return nil, err
	}
	norms, err := readNorms(segDir, sci.Info.Name, fis, sci.Info.DocCount)
	if err != nil {
		return nil, err
	}
	deleted, err := readLiveDocsDeletions(sci, sci.DelGen())
	if err != nil {
		return nil, err
	}

	return &SegmentReader{
		Info:         sci,
		fieldInfos:   fis,
		dict:         dict,
		frq:          frq,
		prx:          prx,
		storedFields: sf,
		norms:        norms,
		deleted:      deleted,
		termCache:    util.NewOrderedLRUCache[Term, dictEntry](256),
	}, nil
}

// compoundFileDirectory adapts a CompoundFileReader to the Directory
// interface's read-only subset so segment-file opens are transparent
// to callers regardless of whether the segment is compound.
type compoundFileDirectory struct {
	store.Directory
	cfr *CompoundFileReader
}

func (c *compoundFileDirectory) FileExists(name string) bool {
	_, err := c.cfr.Length(name)
	return err == nil
}

func (c *compoundFileDirectory) OpenInput(name string, bufferSize int) (store.IndexInput, error) {
	return c.cfr.OpenSubInput(name)
}

// MaxDoc returns the segment's total document count, including deleted docs.
func (r *SegmentReader) MaxDoc() int { return r.Info.Info.DocCount }

// NumDocs returns the number of live (non-deleted) documents.
func (r *SegmentReader) NumDocs() int { return r.MaxDoc() - r.Info.DelCount() }

// IsDeleted reports whether local docID has been deleted.
func (r *SegmentReader) IsDeleted(docID int) bool {
	return r.deleted != nil && r.deleted.Get(docID)
}

// FieldInfos exposes the segment's field table.
func (r *SegmentReader) FieldInfos() *FieldInfos { return r.fieldInfos }

// Document retrieves local docID's stored fields.
func (r *SegmentReader) Document(docID int) (map[string][]byte, error) {
	return r.storedFields.Document(docID)
}

// Norms returns the raw norm bytes for field, or nil if the field has
// no norms (not indexed, or omit-norms).
func (r *SegmentReader) Norms(field string) []byte { return r.norms[field] }

// DocFreq returns how many docs in this segment contain t.
func (r *SegmentReader) DocFreq(t Term) int { return r.dict.DocFreq(t) }

// Postings opens a fresh posting iterator for t, or (nil, false) if
// the term does not occur in this segment.
func (r *SegmentReader) Postings(t Term) (*PostingsEnum, bool, error) {
	r.mu.Lock()
	entry, ok := r.termCache.Get(t)
	r.mu.Unlock()
	if !ok {
		e, found := r.dict.Lookup(t)
		if !found {
			return nil, false, nil
		}
		entry = e
		r.mu.Lock()
		r.termCache.Put(t, entry)
		r.mu.Unlock()
	}
	pe, err := OpenPostings(r.frq, r.prx, entry)
	if err != nil {
		return nil, false, err
	}
	return pe, true, nil
}

// Terms returns every term in this segment's dictionary, in order.
func (r *SegmentReader) Terms() []Term {
	entries := r.dict.Entries()
	out := make([]Term, len(entries))
	for i, e := range entries {
		out[i] = e.term
	}
	return out
}

func (r *SegmentReader) Close() error {
	var firstErr error
	record := func(err error) {
		if err != nil && firstErr == nil {
			firstErr = err
		}
	}
	record(r.frq.Close())
	if r.prx != nil {
		record(r.prx.Close())
	}
	record(r.storedFields.Close())
	if firstErr != nil {
		return kerrors.NewIOError(firstErr, "close segment reader")
	}
	return nil
}
