package index

import "math"

// OneMerge describes a single proposed merge: a contiguous run of
// segments to fold into one new segment.
type OneMerge struct {
	Segments       []*SegmentCommitInfo
	info           *SegmentCommitInfo // set once the merge writer picks a name
	isAborted      bool
	maxNumSegments int // 0 unless this merge is part of an explicit Optimize
}

// Info returns the merged segment's commit info, valid only after the
// merge has run.
func (m *OneMerge) Info() *SegmentCommitInfo { return m.info }

// Abort marks the merge as cancelled; MergeScheduler implementations
// check this between merge steps to support IndexWriter.Close/Rollback.
func (m *OneMerge) Abort() { m.isAborted = true }

func (m *OneMerge) IsAborted() bool { return m.isAborted }

func (m *OneMerge) SegmentCount() int { return len(m.Segments) }

// TotalDocCount sums the (pre-merge) doc counts of every segment this merge folds in.
func (m *OneMerge) TotalDocCount() int {
	total := 0
	for _, sci := range m.Segments {
		total += sci.Info.DocCount
	}
	return total
}

// MergeSpecification is a batch of independent merges a MergePolicy
// proposes in one call; a MergeScheduler may run its members concurrently.
type MergeSpecification struct {
	Merges []*OneMerge
}

func (s *MergeSpecification) Add(m *OneMerge) { s.Merges = append(s.Merges, m) }

// MergePolicy decides which segments should be combined and whether a
// newly merged (or flushed) segment should be stored as a compound file.
type MergePolicy interface {
	// FindMerges proposes merges given the current segment set. May
	// return nil if nothing is worth merging right now.
	FindMerges(infos *SegmentInfos) (*MergeSpecification, error)
	// FindMergesForOptimize proposes merges that collapse infos down
	// to at most maxNumSegments, honoring segmentsToOptimize if given.
	FindMergesForOptimize(infos *SegmentInfos, maxNumSegments int, segmentsToOptimize map[*SegmentCommitInfo]bool) (*MergeSpecification, error)
	// UseCompoundFile decides whether mergedInfo should be written as
	// a .cfs compound file once the merge completes.
	UseCompoundFile(infos *SegmentInfos, mergedInfo *SegmentCommitInfo) bool
}

// logMergePolicy is the shared tiered-merge algorithm both concrete
// policies below specialize: segments are grouped into geometrically
// sized tiers (each roughly MergeFactor times the size of the tier
// below it), and any tier with at least MergeFactor segments is merged
// down to one. "Size" itself is supplied by the embedding type (doc
// count vs. byte size), matching Lucene's LogMergePolicy split.
type logMergePolicy struct {
	MergeFactor  int
	MinMergeSize int64
	MaxMergeSize int64
	NoCFSRatio   float64
	sizeOf       func(*SegmentCommitInfo) (int64, error)
}

func (p *logMergePolicy) level(size int64) float64 {
	if size < 1 {
		size = 1
	}
	return math.Log(float64(size)) / math.Log(float64(p.MergeFactor))
}

func (p *logMergePolicy) FindMerges(infos *SegmentInfos) (*MergeSpecification, error) {
	if len(infos.Segments) < p.MergeFactor {
		return nil, nil
	}
	sizes := make([]int64, len(infos.Segments))
	for i, sci := range infos.Segments {
		sz, err := p.sizeOf(sci)
		if err != nil {
			return nil, err
		}
		sizes[i] = sz
	}

	spec := &MergeSpecification{}
	start := 0
	for start+p.MergeFactor <= len(infos.Segments) {
		levelBase := p.level(sizes[start])
		end := start + 1
		for end < len(infos.Segments) && p.level(sizes[end]) <= levelBase+1.0 {
			end++
		}
		if end-start >= p.MergeFactor {
			group := make([]*SegmentCommitInfo, end-start)
			copy(group, infos.Segments[start:end])
			spec.Add(&OneMerge{Segments: group})
			start = end
		} else {
			start++
		}
	}
	if len(spec.Merges) == 0 {
		return nil, nil
	}
	return spec, nil
}

func (p *logMergePolicy) FindMergesForOptimize(infos *SegmentInfos, maxNumSegments int, segmentsToOptimize map[*SegmentCommitInfo]bool) (*MergeSpecification, error) {
	eligible := infos.Segments
	if segmentsToOptimize != nil {
		filtered := make([]*SegmentCommitInfo, 0, len(infos.Segments))
		for _, sci := range infos.Segments {
			if segmentsToOptimize[sci] {
				filtered = append(filtered, sci)
			}
		}
		eligible = filtered
	}
	if maxNumSegments < 1 {
		maxNumSegments = 1
	}
	if len(eligible) <= maxNumSegments {
		return nil, nil
	}
	spec := &MergeSpecification{}
	// Optimize collapses everything eligible into maxNumSegments
	// roughly equal groups in one shot, rather than the tiered
	// stepwise approach FindMerges uses; acceptable since Optimize is
	// an explicit, infrequent, user-requested operation.
	groupSize := (len(eligible) + maxNumSegments - 1) / maxNumSegments
	for start := 0; start < len(eligible); start += groupSize {
		end := start + groupSize
		if end > len(eligible) {
			end = len(eligible)
		}
		if end-start < 2 {
			continue
		}
		group := make([]*SegmentCommitInfo, end-start)
		copy(group, eligible[start:end])
		spec.Add(&OneMerge{Segments: group, maxNumSegments: maxNumSegments})
	}
	if len(spec.Merges) == 0 {
		return nil, nil
	}
	return spec, nil
}

func (p *logMergePolicy) UseCompoundFile(infos *SegmentInfos, mergedInfo *SegmentCommitInfo) bool {
	if p.NoCFSRatio >= 1.0 {
		return true
	}
	if p.NoCFSRatio <= 0.0 {
		return false
	}
	size, err := p.sizeOf(mergedInfo)
	if err != nil {
		return true
	}
	var total int64
	for _, sci := range infos.Segments {
		sz, err := p.sizeOf(sci)
		if err != nil {
			continue
		}
		total += sz
	}
	if total == 0 {
		return true
	}
	return float64(size)/float64(total) <= p.NoCFSRatio
}

// LogDocMergePolicy sizes segments by document count, ignoring deletes.
type LogDocMergePolicy struct{ *logMergePolicy }

func NewLogDocMergePolicy() *LogDocMergePolicy {
	p := &logMergePolicy{MergeFactor: DefaultMergeFactor, NoCFSRatio: DefaultNoCFSRatio}
	p.sizeOf = func(sci *SegmentCommitInfo) (int64, error) { return int64(sci.Info.DocCount), nil }
	return &LogDocMergePolicy{logMergePolicy: p}
}

// LogByteSizeMergePolicy sizes segments by their on-disk byte size,
// Lucene's default since byte size tracks merge cost more faithfully
// than doc count when documents vary widely in size.
type LogByteSizeMergePolicy struct{ *logMergePolicy }

func NewLogByteSizeMergePolicy() *LogByteSizeMergePolicy {
	p := &logMergePolicy{MergeFactor: DefaultMergeFactor, NoCFSRatio: DefaultNoCFSRatio}
	p.sizeOf = func(sci *SegmentCommitInfo) (int64, error) { return sci.SizeInBytes() }
	return &LogByteSizeMergePolicy{logMergePolicy: p}
}
