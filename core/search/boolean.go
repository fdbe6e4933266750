package search

import (
	"strings"

	"github.com/kestrelsearch/kestrel/core/index"
)

// Occur controls how a BooleanQuery clause participates in matching.
type Occur int

const (
	Should Occur = iota
	Must
	MustNot
)

// BooleanClause pairs a sub-query with how it must occur.
type BooleanClause struct {
	Query Query
	Occur Occur
}

// BooleanQuery combines clauses with MUST/SHOULD/MUST_NOT semantics:
// a doc matches if every MUST clause matches, no MUST_NOT clause
// matches, and (when there is no MUST clause) at least one SHOULD
// clause matches.
type BooleanQuery struct {
	Clauses  []BooleanClause
	BoostVal float32
}

func NewBooleanQuery() *BooleanQuery { return &BooleanQuery{BoostVal: 1.0} }

func (q *BooleanQuery) Add(sub Query, occur Occur) *BooleanQuery {
	q.Clauses = append(q.Clauses, BooleanClause{Query: sub, Occur: occur})
	return q
}

func (q *BooleanQuery) Boost() float32 { return q.BoostVal }

func (q *BooleanQuery) String() string {
	parts := make([]string, len(q.Clauses))
	for i, c := range q.Clauses {
		prefix := ""
		switch c.Occur {
		case Must:
			prefix = "+"
		case MustNot:
			prefix = "-"
		}
		parts[i] = prefix + c.Query.String()
	}
	return "(" + strings.Join(parts, " ") + ")"
}

func (q *BooleanQuery) CreateWeight(s *Searcher) (Weight, error) {
	bw := &booleanWeight{query: q, searcher: s}
	for _, c := range q.Clauses {
		w, err := c.Query.CreateWeight(s)
		if err != nil {
			return nil, err
		}
		bw.weights = append(bw.weights, w)
	}
	return bw, nil
}

type booleanWeight struct {
	query    *BooleanQuery
	searcher *Searcher
	weights  []Weight
	value    float32
}

func (w *booleanWeight) Query() Query { return w.query }

func (w *booleanWeight) SumOfSquaredWeights() float32 {
	var sum float32
	for i, sw := range w.weights {
		if w.query.Clauses[i].Occur == MustNot {
			continue
		}
		sum += sw.SumOfSquaredWeights()
	}
	return sum
}

func (w *booleanWeight) Normalize(queryNorm, topLevelBoost float32) {
	w.value = topLevelBoost
	for i, sw := range w.weights {
		if w.query.Clauses[i].Occur == MustNot {
			sw.Normalize(queryNorm, 1.0)
			continue
		}
		sw.Normalize(queryNorm, topLevelBoost)
	}
}

func (w *booleanWeight) Scorer(reader *index.SegmentReader) (Scorer, error) {
	var musts, shoulds, mustNots []Scorer
	maxOverlap := 0
	for i, sw := range w.weights {
		occur := w.query.Clauses[i].Occur
		if occur != MustNot {
			maxOverlap++
		}
		sc, err := sw.Scorer(reader)
		if err != nil {
			return nil, err
		}
		switch occur {
		case Must:
			if sc == nil {
				return nil, nil // a MUST clause with no matches means no document can match
			}
			musts = append(musts, sc)
		case MustNot:
			if sc != nil {
				mustNots = append(mustNots, sc)
			}
		default:
			if sc != nil {
				shoulds = append(shoulds, sc)
			}
		}
	}
	if len(musts) == 0 && len(shoulds) == 0 {
		return nil, nil
	}
	return &booleanScorer{
		musts: musts, shoulds: shoulds, mustNots: mustNots,
		sim: w.searcher.Sim, maxOverlap: maxOverlap, doc: -1,
	}, nil
}

// booleanScorer drives its sub-scorers by the classic conjunction/
// disjunction merge: advance the lowest current doc among MUST/SHOULD
// scorers, check whether every MUST clause and at least one SHOULD
// clause (when MUSTs are absent) agree on it, and that no MUST_NOT
// scorer does.
type booleanScorer struct {
	musts, shoulds, mustNots []Scorer
	sim                      Similarity
	maxOverlap               int
	doc                      int
	matchedShoulds           []Scorer
}

func (s *booleanScorer) DocID() int { return s.doc }

func (s *booleanScorer) NextDoc() (int, error) { return s.advance(s.doc + 1) }

func (s *booleanScorer) Advance(target int) (int, error) { return s.advance(target) }

func (s *booleanScorer) advance(target int) (int, error) {
	for {
		candidate, err := s.nextCandidate(target)
		if err != nil {
			return 0, err
		}
		if candidate == NoMoreDocs {
			s.doc = NoMoreDocs
			return s.doc, nil
		}
		ok, matched, err := s.matches(candidate)
		if err != nil {
			return 0, err
		}
		if ok {
			s.doc = candidate
			s.matchedShoulds = matched
			return s.doc, nil
		}
		target = candidate + 1
	}
}

// nextCandidate returns the next doc id worth checking: if there are
// MUST clauses, it's driven by the conjunction of those (the
// intersection can only contain docs every MUST scorer reaches);
// otherwise it's the minimum across SHOULD scorers.
func (s *booleanScorer) nextCandidate(target int) (int, error) {
	if len(s.musts) > 0 {
		cur := target
		for {
			maxSeen := cur
			agree := true
			for _, m := range s.musts {
				d := m.DocID()
				if d < cur {
					var err error
					d, err = m.Advance(cur)
					if err != nil {
						return 0, err
					}
				}
				if d == NoMoreDocs {
					return NoMoreDocs, nil
				}
				if d > maxSeen {
					maxSeen = d
					agree = false
				}
			}
			if agree {
				return cur, nil
			}
			cur = maxSeen
		}
	}
	best := NoMoreDocs
	for _, sc := range s.shoulds {
		d := sc.DocID()
		if d < target {
			var err error
			d, err = sc.Advance(target)
			if err != nil {
				return 0, err
			}
		}
		if d < best {
			best = d
		}
	}
	return best, nil
}

func (s *booleanScorer) matches(doc int) (bool, []Scorer, error) {
	for _, m := range s.mustNots {
		d := m.DocID()
		if d < doc {
			var err error
			d, err = m.Advance(doc)
			if err != nil {
				return false, nil, err
			}
		}
		if d == doc {
			return false, nil, nil
		}
	}
	var matched []Scorer
	for _, m := range s.musts {
		matched = append(matched, m)
	}
	for _, sc := range s.shoulds {
		d := sc.DocID()
		if d < doc {
			var err error
			d, err = sc.Advance(doc)
			if err != nil {
				return false, nil, err
			}
		}
		if d == doc {
			matched = append(matched, sc)
		}
	}
	if len(s.musts) == 0 && len(matched) == 0 {
		return false, nil, nil
	}
	return true, matched, nil
}

func (s *booleanScorer) Score() (float32, error) {
	var sum float32
	for _, m := range s.matchedShoulds {
		sc, err := m.Score()
		if err != nil {
			return 0, err
		}
		sum += sc
	}
	coord := s.sim.Coord(len(s.matchedShoulds), s.maxOverlap)
	return sum * coord, nil
}
