package search

import "github.com/kestrelsearch/kestrel/core/index"

// Spans is a position-level iterator: each step yields one (doc,
// start, end) match, with start <= end. It is the primitive span
// queries compose from, parallel to how Scorer composes whole-document matches.
type Spans interface {
	Next() (bool, error)
	Advance(doc int) (bool, error)
	Doc() int
	Start() int
	End() int
}

// SpanQuery produces a Spans iterator per segment, the span-query
// analogue of Weight.Scorer.
type SpanQuery interface {
	Query
	GetSpans(reader *index.SegmentReader) (Spans, error)
}

// SpanTermQuery is the leaf span query: each posting position is one
// (doc, pos, pos) span.
type SpanTermQuery struct {
	Term     index.Term
	BoostVal float32
}

func NewSpanTermQuery(t index.Term) *SpanTermQuery { return &SpanTermQuery{Term: t, BoostVal: 1.0} }

func (q *SpanTermQuery) Boost() float32 { return q.BoostVal }
func (q *SpanTermQuery) String() string { return "span:" + q.Term.String() }

func (q *SpanTermQuery) CreateWeight(s *Searcher) (Weight, error) {
	tq := &TermQuery{Term: q.Term, BoostVal: q.BoostVal}
	return tq.CreateWeight(s)
}

func (q *SpanTermQuery) GetSpans(reader *index.SegmentReader) (Spans, error) {
	pe, found, err := reader.Postings(q.Term)
	if err != nil || !found {
		return nil, err
	}
	return &termSpans{pe: pe, doc: -1}, nil
}

type termSpans struct {
	pe       *index.PostingsEnum
	doc      int
	pos      int
	posLeft  int
	started  bool
}

func (s *termSpans) Next() (bool, error) {
	if s.posLeft > 0 {
		pos, err := s.pe.NextPosition()
		if err != nil {
			return false, err
		}
		s.pos = pos
		s.posLeft--
		return true, nil
	}
	doc, err := s.pe.NextDoc()
	if err != nil {
		return false, err
	}
	if doc == NoMoreDocs {
		s.doc = NoMoreDocs
		return false, nil
	}
	s.doc = doc
	s.posLeft = s.pe.Freq()
	return s.Next()
}

func (s *termSpans) Advance(target int) (bool, error) {
	doc, err := s.pe.Advance(target)
	if err != nil {
		return false, err
	}
	if doc == NoMoreDocs {
		s.doc = NoMoreDocs
		return false, nil
	}
	s.doc = doc
	s.posLeft = s.pe.Freq()
	return s.Next()
}

func (s *termSpans) Doc() int   { return s.doc }
func (s *termSpans) Start() int { return s.pos }
func (s *termSpans) End() int   { return s.pos + 1 }

// SpanOrQuery matches the union of its sub-spans, emitted in
// increasing (doc, start) order via a simple merge.
type SpanOrQuery struct {
	Clauses  []SpanQuery
	BoostVal float32
}

func NewSpanOrQuery(clauses ...SpanQuery) *SpanOrQuery {
	return &SpanOrQuery{Clauses: clauses, BoostVal: 1.0}
}

func (q *SpanOrQuery) Boost() float32 { return q.BoostVal }
func (q *SpanOrQuery) String() string { return "spanOr(...)" }

func (q *SpanOrQuery) CreateWeight(s *Searcher) (Weight, error) {
	bq := NewBooleanQuery()
	bq.BoostVal = q.BoostVal
	for _, c := range q.Clauses {
		bq.Add(c, Should)
	}
	return bq.CreateWeight(s)
}

func (q *SpanOrQuery) GetSpans(reader *index.SegmentReader) (Spans, error) {
	var active []Spans
	for _, c := range q.Clauses {
		sp, err := c.GetSpans(reader)
		if err != nil {
			return nil, err
		}
		if sp == nil {
			continue
		}
		if ok, err := sp.Next(); err != nil {
			return nil, err
		} else if ok {
			active = append(active, sp)
		}
	}
	return &orSpans{active: active, doc: -1}, nil
}

type orSpans struct {
	active []Spans
	doc    int
	start  int
	end    int
}

func (s *orSpans) Next() (bool, error) {
	if len(s.active) == 0 {
		s.doc = NoMoreDocs
		return false, nil
	}
	best := 0
	for i, sp := range s.active {
		if sp.Doc() < s.active[best].Doc() ||
			(sp.Doc() == s.active[best].Doc() && sp.Start() < s.active[best].Start()) {
			best = i
		}
	}
	chosen := s.active[best]
	s.doc, s.start, s.end = chosen.Doc(), chosen.Start(), chosen.End()
	if ok, err := chosen.Next(); err != nil {
		return false, err
	} else if !ok {
		s.active = append(s.active[:best], s.active[best+1:]...)
	}
	return true, nil
}

func (s *orSpans) Advance(target int) (bool, error) {
	kept := s.active[:0]
	for _, sp := range s.active {
		ok, err := sp.Advance(target)
		if err != nil {
			return false, err
		}
		if ok {
			kept = append(kept, sp)
		}
	}
	s.active = kept
	return s.Next()
}

func (s *orSpans) Doc() int   { return s.doc }
func (s *orSpans) Start() int { return s.start }
func (s *orSpans) End() int   { return s.end }

// SpanNearQuery matches when every clause's span occurs within Slop
// positions of the others, in order if Ordered is set.
type SpanNearQuery struct {
	Clauses  []SpanQuery
	Slop     int
	Ordered  bool
	BoostVal float32
}

func NewSpanNearQuery(slop int, ordered bool, clauses ...SpanQuery) *SpanNearQuery {
	return &SpanNearQuery{Clauses: clauses, Slop: slop, Ordered: ordered, BoostVal: 1.0}
}

func (q *SpanNearQuery) Boost() float32 { return q.BoostVal }
func (q *SpanNearQuery) String() string { return "spanNear(...)" }

func (q *SpanNearQuery) CreateWeight(s *Searcher) (Weight, error) {
	bq := NewBooleanQuery()
	bq.BoostVal = q.BoostVal
	for _, c := range q.Clauses {
		bq.Add(c, Must)
	}
	return bq.CreateWeight(s)
}

func (q *SpanNearQuery) GetSpans(reader *index.SegmentReader) (Spans, error) {
	subs := make([]Spans, len(q.Clauses))
	for i, c := range q.Clauses {
		sp, err := c.GetSpans(reader)
		if err != nil {
			return nil, err
		}
		if sp == nil {
			return &nearSpans{exhausted: true}, nil
		}
		subs[i] = sp
	}
	return &nearSpans{subs: subs, slop: q.Slop, ordered: q.Ordered, doc: -1}, nil
}

type nearSpans struct {
	subs      []Spans
	slop      int
	ordered   bool
	doc       int
	start     int
	end       int
	exhausted bool
	started   bool
}

func (s *nearSpans) Next() (bool, error) {
	if s.exhausted {
		return false, nil
	}
	if !s.started {
		s.started = true
		for _, sp := range s.subs {
			ok, err := sp.Next()
			if err != nil {
				return false, err
			}
			if !ok {
				s.exhausted = true
				return false, nil
			}
		}
	} else {
		// A prior call already reported a match at the current alignment;
		// advance past it before searching for the next one.
		ok, err := s.subs[0].Next()
		if err != nil || !ok {
			s.exhausted = true
			return false, err
		}
	}
	for {
		if ok, err := s.alignToDoc(); err != nil || !ok {
			return false, err
		}
		if ok, err := s.tryMatch(); err != nil {
			return false, err
		} else if ok {
			return true, nil
		}
		if ok, err := s.subs[0].Next(); err != nil || !ok {
			s.exhausted = true
			return false, err
		}
	}
}

// alignToDoc advances every sub-span onto the same doc id, the
// maximum currently seen, repeating until they agree or one is exhausted.
func (s *nearSpans) alignToDoc() (bool, error) {
	for {
		maxDoc := s.subs[0].Doc()
		for _, sp := range s.subs[1:] {
			if sp.Doc() > maxDoc {
				maxDoc = sp.Doc()
			}
		}
		agree := true
		for _, sp := range s.subs {
			if sp.Doc() < maxDoc {
				ok, err := sp.Advance(maxDoc)
				if err != nil {
					return false, err
				}
				if !ok {
					s.exhausted = true
					return false, nil
				}
				if sp.Doc() != maxDoc {
					agree = false
				}
			}
		}
		if agree {
			return true, nil
		}
	}
}

// tryMatch checks, at the current aligned doc, whether every clause's
// current span satisfies the slop/order constraint relative to the
// first clause's current span.
func (s *nearSpans) tryMatch() (bool, error) {
	doc := s.subs[0].Doc()
	minStart, maxEnd := s.subs[0].Start(), s.subs[0].End()
	lastEnd := s.subs[0].End()
	for _, sp := range s.subs[1:] {
		if sp.Doc() != doc {
			return false, nil
		}
		if s.ordered && sp.Start() < lastEnd {
			return false, nil
		}
		if sp.Start() < minStart {
			minStart = sp.Start()
		}
		if sp.End() > maxEnd {
			maxEnd = sp.End()
		}
		lastEnd = sp.End()
	}
	if maxEnd-minStart-len(s.subs) > s.slop {
		return false, nil
	}
	s.doc, s.start, s.end = doc, minStart, maxEnd
	return true, nil
}

func (s *nearSpans) Advance(target int) (bool, error) {
	for _, sp := range s.subs {
		ok, err := sp.Advance(target)
		if err != nil {
			return false, err
		}
		if !ok {
			s.exhausted = true
			return false, nil
		}
	}
	return s.Next()
}

func (s *nearSpans) Doc() int   { return s.doc }
func (s *nearSpans) Start() int { return s.start }
func (s *nearSpans) End() int   { return s.end }

// SpanFirstQuery matches only spans of Inner that start before End.
type SpanFirstQuery struct {
	Inner    SpanQuery
	End      int
	BoostVal float32
}

func NewSpanFirstQuery(inner SpanQuery, end int) *SpanFirstQuery {
	return &SpanFirstQuery{Inner: inner, End: end, BoostVal: 1.0}
}

func (q *SpanFirstQuery) Boost() float32 { return q.BoostVal }
func (q *SpanFirstQuery) String() string { return "spanFirst(...)" }

func (q *SpanFirstQuery) CreateWeight(s *Searcher) (Weight, error) { return q.Inner.CreateWeight(s) }

func (q *SpanFirstQuery) GetSpans(reader *index.SegmentReader) (Spans, error) {
	inner, err := q.Inner.GetSpans(reader)
	if err != nil || inner == nil {
		return nil, err
	}
	return &firstSpans{inner: inner, end: q.End}, nil
}

type firstSpans struct {
	inner Spans
	end   int
}

func (s *firstSpans) Next() (bool, error) {
	for {
		ok, err := s.inner.Next()
		if err != nil || !ok {
			return ok, err
		}
		if s.inner.Start() < s.end {
			return true, nil
		}
	}
}

func (s *firstSpans) Advance(target int) (bool, error) {
	ok, err := s.inner.Advance(target)
	if err != nil || !ok {
		return ok, err
	}
	if s.inner.Start() < s.end {
		return true, nil
	}
	return s.Next()
}

func (s *firstSpans) Doc() int   { return s.inner.Doc() }
func (s *firstSpans) Start() int { return s.inner.Start() }
func (s *firstSpans) End() int   { return s.inner.End() }

// SpanNotQuery matches Include spans that do not overlap any Exclude span.
type SpanNotQuery struct {
	Include  SpanQuery
	Exclude  SpanQuery
	BoostVal float32
}

func NewSpanNotQuery(include, exclude SpanQuery) *SpanNotQuery {
	return &SpanNotQuery{Include: include, Exclude: exclude, BoostVal: 1.0}
}

func (q *SpanNotQuery) Boost() float32 { return q.BoostVal }
func (q *SpanNotQuery) String() string { return "spanNot(...)" }

func (q *SpanNotQuery) CreateWeight(s *Searcher) (Weight, error) { return q.Include.CreateWeight(s) }

func (q *SpanNotQuery) GetSpans(reader *index.SegmentReader) (Spans, error) {
	include, err := q.Include.GetSpans(reader)
	if err != nil || include == nil {
		return nil, err
	}
	exclude, err := q.Exclude.GetSpans(reader)
	if err != nil {
		return nil, err
	}
	return &notSpans{include: include, exclude: exclude}, nil
}

type notSpans struct {
	include Spans
	exclude Spans
	haveExc bool
}

func (s *notSpans) Next() (bool, error) {
	for {
		ok, err := s.include.Next()
		if err != nil || !ok {
			return ok, err
		}
		overlap, err := s.excludeOverlaps()
		if err != nil {
			return false, err
		}
		if !overlap {
			return true, nil
		}
	}
}

func (s *notSpans) excludeOverlaps() (bool, error) {
	if s.exclude == nil {
		return false, nil
	}
	if !s.haveExc {
		ok, err := s.exclude.Next()
		if err != nil {
			return false, err
		}
		s.haveExc = ok
	}
	for s.haveExc && s.exclude.Doc() < s.include.Doc() {
		ok, err := s.exclude.Advance(s.include.Doc())
		if err != nil {
			return false, err
		}
		s.haveExc = ok
	}
	return s.haveExc && s.exclude.Doc() == s.include.Doc() &&
		s.exclude.Start() < s.include.End() && s.exclude.End() > s.include.Start(), nil
}

func (s *notSpans) Advance(target int) (bool, error) {
	ok, err := s.include.Advance(target)
	if err != nil || !ok {
		return ok, err
	}
	overlap, err := s.excludeOverlaps()
	if err != nil {
		return false, err
	}
	if overlap {
		return s.Next()
	}
	return true, nil
}

func (s *notSpans) Doc() int   { return s.include.Doc() }
func (s *notSpans) Start() int { return s.include.Start() }
func (s *notSpans) End() int   { return s.include.End() }
