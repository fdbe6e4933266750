package search

import "github.com/kestrelsearch/kestrel/core/util"

// Collector receives the scored doc stream a Searcher produces,
// one segment's worth of SetScorer followed by its matching Collect
// calls at a time.
type Collector interface {
	SetScorer(scorer Scorer) error
	Collect(doc int) error
}

// ScoreDoc is one ranked result: a global docID and its score.
type ScoreDoc struct {
	Doc   int
	Score float32
}

// TopDocs is a ranked result page plus the total number of matching
// documents seen (which may exceed len(ScoreDocs) when more matched
// than the requested top-N).
type TopDocs struct {
	TotalHits int
	ScoreDocs []ScoreDoc
}

// TopDocsCollector keeps the top N scored docs via a bounded
// min-heap, so memory stays O(N) regardless of how many documents match.
type TopDocsCollector struct {
	pq        *util.BoundedPriorityQueue[ScoreDoc]
	scorer    Scorer
	totalHits int
}

func NewTopDocsCollector(n int) *TopDocsCollector {
	return &TopDocsCollector{
		pq: util.NewBoundedPriorityQueue[ScoreDoc](n, func(a, b ScoreDoc) bool {
			if a.Score != b.Score {
				return a.Score < b.Score
			}
			return a.Doc > b.Doc // ties broken by lower docID ranking higher
		}),
	}
}

func (c *TopDocsCollector) SetScorer(scorer Scorer) error {
	c.scorer = scorer
	return nil
}

func (c *TopDocsCollector) Collect(doc int) error {
	c.totalHits++
	score, err := c.scorer.Score()
	if err != nil {
		return err
	}
	sd := ScoreDoc{Doc: doc, Score: score}
	if c.pq.Size() < c.pq.Capacity() {
		c.pq.Add(sd)
	} else {
		c.pq.AddOverflow(sd)
	}
	return nil
}

// TopDocs drains the heap into descending-score order.
func (c *TopDocsCollector) TopDocs() TopDocs {
	ascending := c.pq.Drain()
	out := make([]ScoreDoc, len(ascending))
	for i, sd := range ascending {
		out[len(ascending)-1-i] = sd
	}
	return TopDocs{TotalHits: c.totalHits, ScoreDocs: out}
}

// TotalHitCountCollector only counts matches, for callers that need a
// match count without materializing or ranking any of them.
type TotalHitCountCollector struct {
	Count int
}

func (c *TotalHitCountCollector) SetScorer(scorer Scorer) error { return nil }
func (c *TotalHitCountCollector) Collect(doc int) error         { c.Count++; return nil }

// MultiCollector fans one scored doc stream out to several
// collectors, e.g. ranking into a TopDocsCollector while also running
// a TotalHitCountCollector.
type MultiCollector struct {
	Collectors []Collector
}

func NewMultiCollector(collectors ...Collector) *MultiCollector {
	return &MultiCollector{Collectors: collectors}
}

func (m *MultiCollector) SetScorer(scorer Scorer) error {
	cached := &ScoreCachingWrappingScorer{inner: scorer}
	for _, c := range m.Collectors {
		if err := c.SetScorer(cached); err != nil {
			return err
		}
	}
	return nil
}

func (m *MultiCollector) Collect(doc int) error {
	for _, c := range m.Collectors {
		if err := c.Collect(doc); err != nil {
			return err
		}
	}
	return nil
}

// ScoreCachingWrappingScorer memoizes Score() for the current doc, so
// fanning one scorer out to several collectors (MultiCollector) never
// recomputes a score already paid for by an earlier collector.
type ScoreCachingWrappingScorer struct {
	inner    Scorer
	cachedOn int
	cached   float32
	has      bool
}

func (s *ScoreCachingWrappingScorer) DocID() int { return s.inner.DocID() }

func (s *ScoreCachingWrappingScorer) NextDoc() (int, error) {
	s.has = false
	return s.inner.NextDoc()
}

func (s *ScoreCachingWrappingScorer) Advance(target int) (int, error) {
	s.has = false
	return s.inner.Advance(target)
}

func (s *ScoreCachingWrappingScorer) Score() (float32, error) {
	doc := s.inner.DocID()
	if s.has && s.cachedOn == doc {
		return s.cached, nil
	}
	score, err := s.inner.Score()
	if err != nil {
		return 0, err
	}
	s.cachedOn = doc
	s.cached = score
	s.has = true
	return score, nil
}

// PositiveScoresOnlyCollector wraps another collector and skips any
// doc whose score is not strictly positive, for queries (e.g. under a
// ConstantScoreQuery with a zero boost clause) where a zero or
// negative score means "don't count this as a hit".
type PositiveScoresOnlyCollector struct {
	Inner  Collector
	scorer Scorer
}

func (c *PositiveScoresOnlyCollector) SetScorer(scorer Scorer) error {
	c.scorer = scorer
	return c.Inner.SetScorer(scorer)
}

func (c *PositiveScoresOnlyCollector) Collect(doc int) error {
	score, err := c.scorer.Score()
	if err != nil {
		return err
	}
	if score <= 0 {
		return nil
	}
	return c.Inner.Collect(doc)
}
