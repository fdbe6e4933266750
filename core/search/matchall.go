package search

import "github.com/kestrelsearch/kestrel/core/index"

// MatchAllDocsQuery matches every live document in the index,
// scoring each at its boost alone.
type MatchAllDocsQuery struct {
	BoostVal float32
}

func NewMatchAllDocsQuery() *MatchAllDocsQuery { return &MatchAllDocsQuery{BoostVal: 1.0} }

func (q *MatchAllDocsQuery) Boost() float32 { return q.BoostVal }
func (q *MatchAllDocsQuery) String() string { return "*:*" }

func (q *MatchAllDocsQuery) CreateWeight(s *Searcher) (Weight, error) {
	return &matchAllWeight{query: q}, nil
}

type matchAllWeight struct {
	query *MatchAllDocsQuery
	value float32
}

func (w *matchAllWeight) Query() Query                        { return w.query }
func (w *matchAllWeight) SumOfSquaredWeights() float32         { return w.query.BoostVal * w.query.BoostVal }
func (w *matchAllWeight) Normalize(queryNorm, topLevelBoost float32) {
	w.value = w.query.BoostVal * queryNorm * topLevelBoost
}

func (w *matchAllWeight) Scorer(reader *index.SegmentReader) (Scorer, error) {
	return &matchAllScorer{reader: reader, doc: -1, value: w.value}, nil
}

type matchAllScorer struct {
	reader *index.SegmentReader
	doc    int
	value  float32
}

func (s *matchAllScorer) DocID() int { return s.doc }

func (s *matchAllScorer) NextDoc() (int, error) {
	for s.doc++; s.doc < s.reader.MaxDoc(); s.doc++ {
		if !s.reader.IsDeleted(s.doc) {
			return s.doc, nil
		}
	}
	s.doc = NoMoreDocs
	return s.doc, nil
}

func (s *matchAllScorer) Advance(target int) (int, error) {
	if target <= s.doc {
		target = s.doc + 1
	}
	s.doc = target - 1
	return s.NextDoc()
}

func (s *matchAllScorer) Score() (float32, error) { return s.value, nil }
