// Package index implements the segmented inverted-index writer,
// reader, and on-disk segment format: document buffering, flush,
// merge, commit/rollback, deletion policy, and snapshotting.
package index

import "fmt"

// IndexOption controls how a Field participates in indexing.
type IndexOption int

const (
	// NotIndexed means the field is stored (if at all) but not searchable.
	NotIndexed IndexOption = iota
	// IndexedUnanalyzed indexes the field's value as a single token,
	// skipping the analyzer chain.
	IndexedUnanalyzed
	// IndexedAnalyzed runs the field's value through the analyzer
	// chain (an external collaborator; see TokenStream below) before indexing.
	IndexedAnalyzed
)

// TermVectorOption controls whether and how richly a per-document
// term vector is stored for a field.
type TermVectorOption int

const (
	TermVectorNone TermVectorOption = iota
	TermVectorYes
	TermVectorWithPositions
	TermVectorWithOffsets
	TermVectorWithPositionsAndOffsets
)

// Term is an immutable (field, text) pair, the index's atomic lookup
// key. Terms order lexicographically by field, then by text.
type Term struct {
	Field string
	Text  string
}

// NewTerm constructs a Term.
func NewTerm(field, text string) Term { return Term{Field: field, Text: text} }

// Less implements the (field, text) lexicographic ordering terms use
// throughout the term dictionary.
func (t Term) Less(other Term) bool {
	if t.Field != other.Field {
		return t.Field < other.Field
	}
	return t.Text < other.Text
}

func (t Term) String() string { return fmt.Sprintf("%s:%s", t.Field, t.Text) }

// Field is one instance of a named value attached to a Document. A
// Document may carry several Fields sharing a name; all instances of
// a given name share one analyzer-produced token stream for indexing
// and one concatenated stored value.
type Field struct {
	Name         string
	StoredValue  []byte // nil if not stored
	Index        IndexOption
	TermVector   TermVectorOption
	OmitNorms    bool
	Boost        float32
	// Tokens holds the pre-analyzed token stream for this field
	// instance. Analysis itself (tokenizer/filter pipeline, Unicode
	// folding, stemming) is an external collaborator out of this
	// module's scope; callers supply already-analyzed tokens here.
	Tokens []Token
}

// Token is one attribute bundle produced by the (external) analyzer
// chain: term text, position increment, offsets, type, and optional
// payload/boost.
type Token struct {
	Text             string
	PositionIncr     int // >= 0; 0 means "same position as previous token"
	StartOffset      int
	EndOffset        int
	Type             string
	Payload          []byte
	Boost            float32
}

// NewTextField builds an indexed-analyzed field with a stored copy of
// value and tokens derived from a caller-supplied tokenization
// (whitespace-split, since tokenization proper is out of scope).
func NewTextField(name, value string, tokens []Token) Field {
	return Field{
		Name:        name,
		StoredValue: []byte(value),
		Index:       IndexedAnalyzed,
		TermVector:  TermVectorNone,
		Boost:       1.0,
		Tokens:      tokens,
	}
}

// NewStoredField builds a field that is stored but not indexed.
func NewStoredField(name, value string) Field {
	return Field{Name: name, StoredValue: []byte(value), Index: NotIndexed, Boost: 1.0}
}

// Document is an ordered sequence of Fields.
type Document struct {
	Fields []Field
}

// Add appends f to the document.
func (d *Document) Add(f Field) { d.Fields = append(d.Fields, f) }

// Get returns the first field with the given name, if any.
func (d *Document) Get(name string) (Field, bool) {
	for _, f := range d.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

// FieldInfo is the per-segment, per-field record persisted in the
// .fnm file: the stable ordinal a field resolves to, and the flags
// every other per-segment component (postings, norms, stored fields)
// consults instead of re-deriving behavior from a live Document.
type FieldInfo struct {
	Name        string
	Number      int
	Indexed     bool
	HasNorms    bool
	OmitNorms   bool
	TermVector  TermVectorOption
}

// FieldInfos is the ordered, name-indexed table of FieldInfo built up
// while a segment is being flushed.
type FieldInfos struct {
	byName   map[string]*FieldInfo
	ordered  []*FieldInfo
}

// NewFieldInfos creates an empty table.
func NewFieldInfos() *FieldInfos {
	return &FieldInfos{byName: make(map[string]*FieldInfo)}
}

// AddOrGet returns the FieldInfo for name, creating one with the next
// free ordinal if this is the first time name has been seen.
func (fis *FieldInfos) AddOrGet(name string, indexed bool, tv TermVectorOption, omitNorms bool) *FieldInfo {
	if fi, ok := fis.byName[name]; ok {
		if indexed {
			fi.Indexed = true
			fi.HasNorms = fi.HasNorms || !omitNorms
		}
		return fi
	}
	fi := &FieldInfo{
		Name:       name,
		Number:     len(fis.ordered),
		Indexed:    indexed,
		HasNorms:   indexed && !omitNorms,
		OmitNorms:  omitNorms,
		TermVector: tv,
	}
	fis.byName[name] = fi
	fis.ordered = append(fis.ordered, fi)
	return fi
}

// ByName looks up a FieldInfo by name.
func (fis *FieldInfos) ByName(name string) (*FieldInfo, bool) {
	fi, ok := fis.byName[name]
	return fi, ok
}

// ByNumber looks up a FieldInfo by its stable ordinal.
func (fis *FieldInfos) ByNumber(n int) (*FieldInfo, bool) {
	if n < 0 || n >= len(fis.ordered) {
		return nil, false
	}
	return fis.ordered[n], true
}

// List returns every FieldInfo in ordinal order.
func (fis *FieldInfos) List() []*FieldInfo { return fis.ordered }
