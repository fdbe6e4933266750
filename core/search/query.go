package search

import (
	"github.com/kestrelsearch/kestrel/core/index"
)

// NoMoreDocs is the DocIdSetIterator exhaustion sentinel, shared with
// the postings layer so Scorers can compare directly against
// PostingsEnum results without translation.
const NoMoreDocs = index.NoMoreDocs

// DocIdSetIterator is the minimal contract every Scorer and filter
// implements: monotonically increasing doc ids, ending in NoMoreDocs.
type DocIdSetIterator interface {
	DocID() int
	NextDoc() (int, error)
	Advance(target int) (int, error)
}

// Query is anything that can bind itself to a particular
// DirectoryReader via CreateWeight; the query tree itself carries no
// index-specific state.
type Query interface {
	CreateWeight(s *Searcher) (Weight, error)
	Boost() float32
	String() string
}

// Weight is a Query bound to one search (one Searcher/reader pair): it
// knows the query's contribution to query-norm before any document is
// visited, and can produce a per-segment Scorer.
type Weight interface {
	Query() Query
	// SumOfSquaredWeights returns this weight's contribution to the
	// query-wide normalization factor.
	SumOfSquaredWeights() float32
	// Normalize applies the query-wide norm and top-level boost.
	Normalize(queryNorm, topLevelBoost float32)
	// Scorer returns a Scorer over the given segment, or (nil, nil) if
	// the query cannot match anything in that segment.
	Scorer(reader *index.SegmentReader) (Scorer, error)
}

// Scorer is a DocIdSetIterator that also knows the current doc's score.
type Scorer interface {
	DocIdSetIterator
	Score() (float32, error)
}

// Searcher runs queries against one DirectoryReader snapshot: binding
// a Query to a Weight, normalizing it, and driving the per-segment
// Scorers into a Collector.
type Searcher struct {
	Reader *index.DirectoryReader
	Sim    Similarity
}

func NewSearcher(reader *index.DirectoryReader, sim Similarity) *Searcher {
	if sim == nil {
		sim = DefaultSimilarity{}
	}
	return &Searcher{Reader: reader, Sim: sim}
}

// Search executes q across every segment, feeding matches to collector
// in (per-segment) doc order. Scores account for query normalization
// (computed once from Weight.SumOfSquaredWeights) and the top-level
// query boost.
func (s *Searcher) Search(q Query, collector Collector) error {
	weight, err := q.CreateWeight(s)
	if err != nil {
		return err
	}
	sumSq := weight.SumOfSquaredWeights()
	queryNorm := s.Sim.QueryNorm(sumSq)
	weight.Normalize(queryNorm, q.Boost())

	for _, leaf := range s.Reader.Leaves() {
		scorer, err := weight.Scorer(leaf.Reader)
		if err != nil {
			return err
		}
		if scorer == nil {
			continue
		}
		if err := collector.SetScorer(scorer); err != nil {
			return err
		}
		for {
			doc, err := scorer.NextDoc()
			if err != nil {
				return err
			}
			if doc == NoMoreDocs {
				break
			}
			if leaf.Reader.IsDeleted(doc) {
				continue
			}
			if err := collector.Collect(leaf.Start + doc); err != nil {
				return err
			}
		}
	}
	return nil
}

// DocFreq exposes the reader-wide document frequency a Weight needs
// for idf, without every Weight implementation reaching into the
// DirectoryReader directly.
func (s *Searcher) DocFreq(t index.Term) int { return s.Reader.DocFreq(t) }

// NumDocs exposes the reader-wide live document count idf needs.
func (s *Searcher) NumDocs() int { return s.Reader.NumDocs() }
