package search

import (
	"github.com/kestrelsearch/kestrel/core/index"
)

// scoreCacheSize bounds TermScorer's precomputed tf(freq)*idf cache:
// within-document term frequencies at or beyond this are scored on the fly instead of
// through the cache, since the cache exists to save repeated sqrt/log
// calls for the overwhelmingly common small-freq case.
const scoreCacheSize = 32

// postingsReadAhead is how many doc/freq pairs TermScorer's posting
// reader is expected to stream through per burst before a caller loses
// interest (informational; the underlying PostingsEnum has no
// explicit read-ahead buffer of its own to size against this).
const postingsReadAhead = 128

// TermQuery matches every document containing a single term.
type TermQuery struct {
	Term      index.Term
	BoostVal  float32
}

func NewTermQuery(t index.Term) *TermQuery { return &TermQuery{Term: t, BoostVal: 1.0} }

func (q *TermQuery) Boost() float32  { return q.BoostVal }
func (q *TermQuery) String() string  { return q.Term.String() }

func (q *TermQuery) CreateWeight(s *Searcher) (Weight, error) {
	docFreq := s.DocFreq(q.Term)
	idf := s.Sim.Idf(docFreq, s.NumDocs())
	return &termWeight{query: q, searcher: s, idf: idf, queryWeight: idf * q.BoostVal}, nil
}

type termWeight struct {
	query       *TermQuery
	searcher    *Searcher
	idf         float32
	queryWeight float32
	value       float32
}

func (w *termWeight) Query() Query { return w.query }

func (w *termWeight) SumOfSquaredWeights() float32 {
	return w.queryWeight * w.queryWeight
}

func (w *termWeight) Normalize(queryNorm, topLevelBoost float32) {
	w.value = w.queryWeight * queryNorm * topLevelBoost
}

func (w *termWeight) Scorer(reader *index.SegmentReader) (Scorer, error) {
	pe, found, err := reader.Postings(w.query.Term)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, nil
	}
	return newTermScorer(pe, reader, w), nil
}

// TermScorer walks one term's posting list, scoring each doc as
// tf(freq) * idf * norm(doc) * weight.value (weight.value already
// carries idf * boost * queryNorm), with the tf*idf portion cached for freq < scoreCacheSize since that covers the
// overwhelming majority of postings in natural-language text.
type TermScorer struct {
	pe       *index.PostingsEnum
	norms    []byte
	weight   *termWeight
	simCache [scoreCacheSize]float32
}

func newTermScorer(pe *index.PostingsEnum, reader *index.SegmentReader, w *termWeight) *TermScorer {
	s := &TermScorer{pe: pe, weight: w}
	s.norms = reader.Norms(w.query.Term.Field)
	for i := range s.simCache {
		s.simCache[i] = w.searcher.Sim.Tf(float32(i)) * w.idf
	}
	return s
}

func (s *TermScorer) DocID() int { return s.pe.DocID() }

func (s *TermScorer) NextDoc() (int, error) { return s.pe.NextDoc() }

func (s *TermScorer) Advance(target int) (int, error) { return s.pe.Advance(target) }

func (s *TermScorer) Score() (float32, error) {
	freq := s.pe.Freq()
	var raw float32
	if freq < scoreCacheSize {
		raw = s.simCache[freq]
	} else {
		raw = s.weight.searcher.Sim.Tf(float32(freq)) * s.weight.idf
	}
	score := raw * s.weight.value
	if s.norms != nil {
		doc := s.pe.DocID()
		if doc >= 0 && doc < len(s.norms) {
			score *= s.weight.searcher.Sim.DecodeNormValue(s.norms[doc])
		}
	}
	return score, nil
}
