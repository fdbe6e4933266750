package search

import (
	"strings"

	"github.com/kestrelsearch/kestrel/core/index"
)

// PhraseQuery matches documents containing Terms in sequence (slop==0)
// or within Slop total position-edits of that order (slop>0), the
// same matching rule TermScorer's positions make possible once a
// document passes the per-term conjunction check.
type PhraseQuery struct {
	Terms    []index.Term
	Slop     int
	BoostVal float32
}

func NewPhraseQuery(terms ...index.Term) *PhraseQuery {
	return &PhraseQuery{Terms: terms, BoostVal: 1.0}
}

func (q *PhraseQuery) Boost() float32 { return q.BoostVal }

func (q *PhraseQuery) String() string {
	parts := make([]string, len(q.Terms))
	for i, t := range q.Terms {
		parts[i] = t.Text
	}
	return `"` + strings.Join(parts, " ") + `"`
}

func (q *PhraseQuery) CreateWeight(s *Searcher) (Weight, error) {
	idfs := make([]float32, len(q.Terms))
	var idfSum float32
	for i, t := range q.Terms {
		idfs[i] = s.Sim.Idf(s.DocFreq(t), s.NumDocs())
		idfSum += idfs[i]
	}
	return &phraseWeight{query: q, searcher: s, idfs: idfs, queryWeight: idfSum * q.BoostVal}, nil
}

type phraseWeight struct {
	query       *PhraseQuery
	searcher    *Searcher
	idfs        []float32
	queryWeight float32
	value       float32
}

func (w *phraseWeight) Query() Query { return w.query }

func (w *phraseWeight) SumOfSquaredWeights() float32 { return w.queryWeight * w.queryWeight }

func (w *phraseWeight) Normalize(queryNorm, topLevelBoost float32) {
	w.value = w.queryWeight * queryNorm * topLevelBoost
}

func (w *phraseWeight) Scorer(reader *index.SegmentReader) (Scorer, error) {
	if len(w.query.Terms) == 0 {
		return nil, nil
	}
	pps := make([]*phrasePositions, len(w.query.Terms))
	for i, t := range w.query.Terms {
		pe, found, err := reader.Postings(t)
		if err != nil {
			return nil, err
		}
		if !found {
			return nil, nil
		}
		pps[i] = &phrasePositions{pe: pe, offset: i}
	}
	norms := reader.Norms(w.query.Terms[0].Field)
	if w.query.Slop == 0 {
		return &exactPhraseScorer{pps: pps, weight: w, norms: norms, doc: -1}, nil
	}
	return &sloppyPhraseScorer{pps: pps, slop: w.query.Slop, weight: w, norms: norms, doc: -1}, nil
}

// phrasePositions tracks one query term's posting cursor plus its
// offset within the phrase (the position term i is expected at,
// relative to the phrase's start, is offset).
type phrasePositions struct {
	pe       *index.PostingsEnum
	offset   int
	posLeft  int
	pos      int
}

func (p *phrasePositions) firstPosition() (int, error) {
	p.posLeft = p.pe.Freq()
	return p.nextPosition()
}

func (p *phrasePositions) nextPosition() (int, error) {
	if p.posLeft == 0 {
		return -1, nil
	}
	pos, err := p.pe.NextPosition()
	if err != nil {
		return 0, err
	}
	p.posLeft--
	p.pos = pos
	return pos, nil
}

// exactPhraseScorer requires, at a candidate doc, a starting position
// p such that every term i sits at exactly p+offset_i.
type exactPhraseScorer struct {
	pps    []*phrasePositions
	weight *phraseWeight
	norms  []byte
	doc    int
	freq   int
}

func (s *exactPhraseScorer) DocID() int { return s.doc }

func (s *exactPhraseScorer) NextDoc() (int, error) { return s.advance(s.doc + 1) }

func (s *exactPhraseScorer) Advance(target int) (int, error) { return s.advance(target) }

func (s *exactPhraseScorer) advance(target int) (int, error) {
	for {
		candidate, err := s.nextCandidate(target)
		if err != nil {
			return 0, err
		}
		if candidate == NoMoreDocs {
			s.doc = NoMoreDocs
			return s.doc, nil
		}
		freq, err := s.phraseFreq(candidate)
		if err != nil {
			return 0, err
		}
		if freq > 0 {
			s.doc = candidate
			s.freq = freq
			return s.doc, nil
		}
		target = candidate + 1
	}
}

func (s *exactPhraseScorer) nextCandidate(target int) (int, error) {
	return phrasePositionsNextCandidate(s.pps, target)
}

// phrasePositionsNextCandidate finds the next doc every term's
// postings agree on, via the same conjunction merge booleanScorer
// uses for MUST clauses.
func phrasePositionsNextCandidate(pps []*phrasePositions, target int) (int, error) {
	cur := target
	for {
		maxSeen := cur
		agree := true
		for _, p := range pps {
			d := p.pe.DocID()
			if d < cur {
				var err error
				d, err = p.pe.Advance(cur)
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

// phraseFreq counts how many alignments of the phrase occur in doc,
// by walking the first term's positions and checking every other
// term lines up at offset_i - offset_0 further along.
func (s *exactPhraseScorer) phraseFreq(doc int) (int, error) {
	for _, p := range s.pps {
		if p.pe.DocID() != doc {
			if _, err := p.pe.Advance(doc); err != nil {
				return 0, err
			}
		}
	}
	base := s.pps[0]
	pos, err := base.firstPosition()
	if err != nil {
		return 0, err
	}
	rest := s.pps[1:]
	for _, p := range rest {
		if _, err := p.firstPosition(); err != nil {
			return 0, err
		}
	}

	matches := 0
	for pos >= 0 {
		want := pos - s.pps[0].offset
		allMatch := true
		for _, p := range rest {
			target := want + p.offset
			for p.pos < target && p.posLeft > 0 {
				if _, err := p.nextPosition(); err != nil {
					return 0, err
				}
			}
			if p.pos != target {
				allMatch = false
			}
		}
		if allMatch {
			matches++
		}
		pos, err = base.nextPosition()
		if err != nil {
			return 0, err
		}
	}
	return matches, nil
}

func (s *exactPhraseScorer) Score() (float32, error) {
	sim := s.weight.searcher.Sim
	score := sim.Tf(float32(s.freq)) * s.weight.value
	if s.norms != nil && s.doc < len(s.norms) {
		score *= sim.DecodeNormValue(s.norms[s.doc])
	}
	return score, nil
}

// sloppyPhraseScorer allows term order to vary up to slop total
// position edits. This implementation scores each candidate doc by
// the closest alignment found via a direct search over the first
// term's positions (adequate for the modest slop values and posting
// list sizes this implementation targets; Lucene's PhraseQueue-based
// algorithm additionally handles repeated query terms sharing one
// posting list, which this simplified version does not).
type sloppyPhraseScorer struct {
	pps    []*phrasePositions
	slop   int
	weight *phraseWeight
	norms  []byte
	doc    int
	freq   float32
}

func (s *sloppyPhraseScorer) DocID() int { return s.doc }

func (s *sloppyPhraseScorer) NextDoc() (int, error) { return s.advance(s.doc + 1) }

func (s *sloppyPhraseScorer) Advance(target int) (int, error) { return s.advance(target) }

func (s *sloppyPhraseScorer) advance(target int) (int, error) {
	for {
		candidate, err := phrasePositionsNextCandidate(s.pps, target)
		if err != nil {
			return 0, err
		}
		if candidate == NoMoreDocs {
			s.doc = NoMoreDocs
			return s.doc, nil
		}
		freq, err := s.sloppyFreq(candidate)
		if err != nil {
			return 0, err
		}
		if freq > 0 {
			s.doc = candidate
			s.freq = freq
			return s.doc, nil
		}
		target = candidate + 1
	}
}

func (s *sloppyPhraseScorer) sloppyFreq(doc int) (float32, error) {
	for _, p := range s.pps {
		if p.pe.DocID() != doc {
			if _, err := p.pe.Advance(doc); err != nil {
				return 0, err
			}
		}
	}
	positions := make([][]int, len(s.pps))
	for i, p := range s.pps {
		n := p.pe.Freq()
		positions[i] = make([]int, 0, n)
		pos, err := p.firstPosition()
		for pos >= 0 {
			positions[i] = append(positions[i], pos)
			pos, err = p.nextPosition()
			if err != nil {
				return 0, err
			}
		}
		if err != nil {
			return 0, err
		}
	}

	var total float32
	for _, p0 := range positions[0] {
		dist := 0
		ok := true
		for i := 1; i < len(positions); i++ {
			want := p0 - s.pps[0].offset + s.pps[i].offset
			best := -1
			bestDelta := -1
			for _, cand := range positions[i] {
				delta := cand - want
				if delta < 0 {
					delta = -delta
				}
				if bestDelta == -1 || delta < bestDelta {
					bestDelta = delta
					best = cand
				}
			}
			if best == -1 || bestDelta > s.slop {
				ok = false
				break
			}
			dist += bestDelta
		}
		if ok && dist <= s.slop {
			total += s.weight.searcher.Sim.SloppyFreq(dist)
		}
	}
	return total, nil
}

func (s *sloppyPhraseScorer) Score() (float32, error) {
	sim := s.weight.searcher.Sim
	score := sim.Tf(s.freq) * s.weight.value
	if s.norms != nil && s.doc < len(s.norms) {
		score *= sim.DecodeNormValue(s.norms[s.doc])
	}
	return score, nil
}
