package search

import "github.com/kestrelsearch/kestrel/core/index"

// ConstantScoreQuery wraps another query but scores every match at a
// fixed value (its boost) instead of that query's computed score,
// useful when a clause should affect matching but not ranking.
type ConstantScoreQuery struct {
	Inner    Query
	BoostVal float32
}

func NewConstantScoreQuery(inner Query) *ConstantScoreQuery {
	return &ConstantScoreQuery{Inner: inner, BoostVal: 1.0}
}

func (q *ConstantScoreQuery) Boost() float32 { return q.BoostVal }
func (q *ConstantScoreQuery) String() string { return "ConstantScore(" + q.Inner.String() + ")" }

func (q *ConstantScoreQuery) CreateWeight(s *Searcher) (Weight, error) {
	innerWeight, err := q.Inner.CreateWeight(s)
	if err != nil {
		return nil, err
	}
	return &constantScoreWeight{query: q, inner: innerWeight}, nil
}

type constantScoreWeight struct {
	query *ConstantScoreQuery
	inner Weight
	value float32
}

func (w *constantScoreWeight) Query() Query { return w.query }

func (w *constantScoreWeight) SumOfSquaredWeights() float32 {
	return w.query.BoostVal * w.query.BoostVal
}

func (w *constantScoreWeight) Normalize(queryNorm, topLevelBoost float32) {
	w.value = w.query.BoostVal * queryNorm * topLevelBoost
	// The inner weight still needs normalizing so its Scorer can
	// iterate docs; its score output is simply discarded below.
	w.inner.Normalize(queryNorm, topLevelBoost)
}

func (w *constantScoreWeight) Scorer(reader *index.SegmentReader) (Scorer, error) {
	inner, err := w.inner.Scorer(reader)
	if err != nil || inner == nil {
		return nil, err
	}
	return &constantScoreScorer{inner: inner, value: w.value}, nil
}

type constantScoreScorer struct {
	inner Scorer
	value float32
}

func (s *constantScoreScorer) DocID() int                     { return s.inner.DocID() }
func (s *constantScoreScorer) NextDoc() (int, error)          { return s.inner.NextDoc() }
func (s *constantScoreScorer) Advance(target int) (int, error) { return s.inner.Advance(target) }
func (s *constantScoreScorer) Score() (float32, error)        { return s.value, nil }
