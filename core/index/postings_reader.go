package index

import "github.com/kestrelsearch/kestrel/core/store"

// PostingsEnum iterates one term's posting list: docIDs strictly
// increasing, each with a frequency and (if the field carries them)
// term positions within that document.
type PostingsEnum struct {
	frq        store.IndexInput
	prx        store.IndexInput
	remaining  int
	doc        int
	freq       int
	hasPosns   bool
	posLeft    int
	lastPos    int
	started    bool
}

// OpenPostings opens a fresh iterator over entry's posting list,
// cloning the segment's shared .frq/.prx inputs so concurrent
// iterators over different terms don't interfere.
func OpenPostings(frq, prx store.IndexInput, entry dictEntry) (*PostingsEnum, error) {
	frqClone := frq.Clone()
	if err := frqClone.Seek(entry.frqOffset); err != nil {
		return nil, err
	}
	pe := &PostingsEnum{frq: frqClone, remaining: entry.docFreq, doc: -1, hasPosns: entry.prxOffset >= 0}
	if pe.hasPosns {
		prxClone := prx.Clone()
		if err := prxClone.Seek(entry.prxOffset); err != nil {
			return nil, err
		}
		pe.prx = prxClone
	}
	return pe, nil
}

// NoMoreDocs is the sentinel returned by NextDoc/Advance once the
// iterator is exhausted, matching the engine-wide DocIdSetIterator contract.
const NoMoreDocs = int(^uint(0) >> 1) // INT_MAX-equivalent sentinel

// DocID returns the current doc, or -1 before the first NextDoc call.
func (p *PostingsEnum) DocID() int { return p.doc }

// Freq returns the current doc's term frequency.
func (p *PostingsEnum) Freq() int { return p.freq }

// NextDoc advances to the next matching doc, skipping any unread
// positions of the current doc first.
func (p *PostingsEnum) NextDoc() (int, error) {
	if p.hasPosns && p.started {
		for p.posLeft > 0 {
			if _, err := p.NextPosition(); err != nil {
				return 0, err
			}
		}
	}
	p.started = true
	if p.remaining == 0 {
		p.doc = NoMoreDocs
		return p.doc, nil
	}
	p.remaining--
	delta, err := p.frq.ReadVInt()
	if err != nil {
		return 0, err
	}
	freq, err := p.frq.ReadVInt()
	if err != nil {
		return 0, err
	}
	if p.doc < 0 {
		p.doc = int(delta)
	} else {
		p.doc += int(delta)
	}
	p.freq = int(freq)
	p.posLeft = p.freq
	p.lastPos = 0
	return p.doc, nil
}

// Advance moves to the first doc >= target, scanning forward via
// repeated NextDoc (postings lists here carry no skip list; adequate
// for the segment sizes this implementation targets).
func (p *PostingsEnum) Advance(target int) (int, error) {
	for p.doc < target {
		d, err := p.NextDoc()
		if err != nil {
			return 0, err
		}
		if d == NoMoreDocs {
			return NoMoreDocs, nil
		}
	}
	return p.doc, nil
}

// NextPosition returns the current doc's next term position. Callers
// must call it exactly Freq() times per doc.
func (p *PostingsEnum) NextPosition() (int, error) {
	if !p.hasPosns || p.posLeft == 0 {
		return 0, nil
	}
	delta, err := p.prx.ReadVInt()
	if err != nil {
		return 0, err
	}
	p.lastPos += int(delta)
	p.posLeft--
	return p.lastPos, nil
}
