package index

import (
	"strconv"
	"sync"

	"go.uber.org/zap"

	"github.com/kestrelsearch/kestrel/core/kerrors"
	"github.com/kestrelsearch/kestrel/core/store"
	"github.com/kestrelsearch/kestrel/core/util"
)

const writeLockName = "write.lock"

// IndexWriter is the single mutation point for a Directory: it
// buffers added/updated/deleted documents in RAM, flushes them to new
// segments, runs merges through its configured MergeScheduler, and
// commits new segments_N generations atomically. Exactly one
// IndexWriter may hold the write lock on a Directory at a time.
type IndexWriter struct {
	dir  store.Directory
	cfg  IndexWriterConfig
	lock store.Lock
	log  *zap.Logger

	mu       sync.Mutex
	closed   bool
	degraded error // set once an unrecoverable flush/merge error occurs

	segInfos    *SegmentInfos
	pending     []*Document
	pendingRAM  float64 // rough estimate in MB
	nextSegNum  int64
	lastCommit  *IndexCommit

	runningMerges map[*OneMerge]bool
	mergeQueue    []*OneMerge
}

// Open acquires dir's write lock and prepares an IndexWriter over its
// current (or absent) commit point.
func Open(dir store.Directory, cfg IndexWriterConfig) (*IndexWriter, error) {
	lock := dir.MakeLock(writeLockName)
	if err := lock.Obtain(); err != nil {
		return nil, kerrors.NewLockTimeoutError(writeLockName)
	}

	infos, err := ReadSegmentInfos(dir)
	if err != nil {
		lock.Release()
		return nil, err
	}

	commits, err := ListCommits(dir)
	if err != nil {
		lock.Release()
		return nil, err
	}
	if len(commits) > 0 {
		if err := cfg.DeletionPolicy.OnInit(commits); err != nil {
			lock.Release()
			return nil, err
		}
	}

	w := &IndexWriter{
		dir:           dir,
		cfg:           cfg,
		lock:          lock,
		log:           cfg.Logger,
		segInfos:      infos,
		nextSegNum:    highestSegmentOrdinal(infos) + 1,
		runningMerges: make(map[*OneMerge]bool),
	}
	if len(commits) > 0 {
		w.lastCommit = commits[len(commits)-1]
	}
	w.reclaimDeletedCommits(commits)
	w.log.Info("index writer opened", zap.Int("segments", len(infos.Segments)), zap.Int64("generation", infos.Generation))
	return w, nil
}

func highestSegmentOrdinal(infos *SegmentInfos) int64 {
	max := int64(-1)
	for _, sci := range infos.Segments {
		if v, err := strconv.ParseInt(sci.Info.Name, 36, 64); err == nil && v > max {
			max = v
		}
	}
	return max
}

func (w *IndexWriter) newSegmentName() string {
	name := strconv.FormatInt(w.nextSegNum, 36)
	w.nextSegNum++
	return name
}

// reclaimDeletedCommits physically removes the segments_N file and any
// files not referenced by a surviving commit, for every commit marked
// deleted by the deletion policy that just ran.
func (w *IndexWriter) reclaimDeletedCommits(commits []*IndexCommit) {
	live := make(map[string]bool)
	for _, c := range commits {
		if c.IsDeleted() {
			continue
		}
		for _, f := range c.Files() {
			live[f] = true
		}
	}
	for _, c := range commits {
		if !c.IsDeleted() {
			continue
		}
		for _, f := range c.Files() {
			if live[f] {
				continue
			}
			if err := w.dir.DeleteFile(f); err != nil {
				w.log.Warn("failed to reclaim commit file", zap.String("file", f), zap.Error(err))
			}
		}
	}
}

// AddDocument buffers doc for indexing. It becomes visible to new
// readers only after the next flush (implicit via buffer thresholds,
// or explicit via Commit/GetReader).
func (w *IndexWriter) AddDocument(doc *Document) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.checkOpen(); err != nil {
		return err
	}
	w.pending = append(w.pending, doc)
	w.pendingRAM += estimateDocRAMMB(doc)
	return w.maybeFlush()
}

// UpdateDocument is a delete-by-term followed by an add, composed as a
// single buffered operation: the delete applies to every already
// flushed/committed segment, and the new version is (re)buffered.
func (w *IndexWriter) UpdateDocument(t Term, doc *Document) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.checkOpen(); err != nil {
		return err
	}
	if err := w.deleteDocumentsLocked(t); err != nil {
		return err
	}
	w.pending = append(w.pending, doc)
	w.pendingRAM += estimateDocRAMMB(doc)
	return w.maybeFlush()
}

// DeleteDocuments marks every already-committed document matching t as
// deleted, writing a new generation of that segment's live-docs file.
// It has no effect on documents still buffered in RAM; UpdateDocument
// deletes before buffering the replacement so ordering stays correct.
func (w *IndexWriter) DeleteDocuments(t Term) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.checkOpen(); err != nil {
		return err
	}
	return w.deleteDocumentsLocked(t)
}

func (w *IndexWriter) deleteDocumentsLocked(t Term) error {
	for _, sci := range w.segInfos.Segments {
		sr, err := OpenSegmentReader(sci)
		if err != nil {
			return err
		}
		pe, found, err := sr.Postings(t)
		if err != nil {
			sr.Close()
			return err
		}
		if !found {
			sr.Close()
			continue
		}
		deleted, err := readLiveDocsDeletions(sci, sci.DelGen())
		if err != nil {
			sr.Close()
			return err
		}
		if deleted == nil {
			deleted = util.NewBitVector(sci.Info.DocCount)
		}
		changed := false
		for {
			d, err := pe.NextDoc()
			if err != nil {
				sr.Close()
				return err
			}
			if d == NoMoreDocs {
				break
			}
			if !deleted.Get(d) {
				deleted.Set(d)
				changed = true
			}
		}
		sr.Close()
		if !changed {
			continue
		}
		newGen := sci.DelGen()
		if newGen < 0 {
			newGen = 0
		}
		newGen++
		if err := writeLiveDocsDeletions(sci, deleted, newGen); err != nil {
			return err
		}
		sci.AdvanceDelGen(deleted.Count())
	}
	return nil
}

func estimateDocRAMMB(doc *Document) float64 {
	bytes := 0
	for _, f := range doc.Fields {
		bytes += len(f.StoredValue)
		for _, tok := range f.Tokens {
			bytes += len(tok.Text) + 32
		}
	}
	return float64(bytes) / (1024 * 1024)
}

func (w *IndexWriter) maybeFlush() error {
	trigger := false
	if w.cfg.MaxBufferedDocs > 0 && len(w.pending) >= w.cfg.MaxBufferedDocs {
		trigger = true
	}
	if w.cfg.RAMBufferSizeMB > 0 && w.pendingRAM >= w.cfg.RAMBufferSizeMB {
		trigger = true
	}
	if !trigger {
		return nil
	}
	if err := w.flushLocked(); err != nil {
		return err
	}
	return w.runMergesLocked()
}

// flushLocked writes every buffered document as one new segment. The
// caller must hold w.mu.
func (w *IndexWriter) flushLocked() error {
	if len(w.pending) == 0 {
		return nil
	}
	name := w.newSegmentName()

	builder := NewInvertedIndexBuilder()
	fis := NewFieldInfos()
	for docID, doc := range w.pending {
		builder.AddDocument(docID, doc)
		for _, f := range doc.Fields {
			fis.AddOrGet(f.Name, f.Index != NotIndexed, f.TermVector, f.OmitNorms)
		}
	}

	if err := writeStoredFields(w.dir, name, w.pending); err != nil {
		return w.degrade(err)
	}
	if err := writeFieldInfos(w.dir, name, fis); err != nil {
		return w.degrade(err)
	}
	norms := computeNorms(w.cfg.Similarity, fis, w.pending)
	if err := writeNorms(w.dir, name, fis, len(w.pending), norms); err != nil {
		return w.degrade(err)
	}
	if err := writePostings(w.dir, name, builder.SortedTerms()); err != nil {
		return w.degrade(err)
	}

	info := NewSegmentInfo(w.dir, name, len(w.pending))
	files := []string{
		fnmFileName(name), fdtFileName(name), fdxFileName(name),
		tisFileName(name), frqFileName(name), prxFileName(name),
	}
	if w.dir.FileExists(nrmFileName(name)) {
		files = append(files, nrmFileName(name))
	}
	info.SetFiles(files)
	sci := NewSegmentCommitInfo(info)
	w.segInfos.Segments = append(w.segInfos.Segments, sci)

	w.pending = nil
	w.pendingRAM = 0
	w.log.Info("flushed segment", zap.String("segment", name), zap.Int("docs", info.DocCount))
	return nil
}

func computeNorms(sim Similarity, fis *FieldInfos, docs []*Document) map[string][]byte {
	out := make(map[string][]byte)
	for _, fi := range fis.List() {
		if !fi.HasNorms {
			continue
		}
		out[fi.Name] = make([]byte, len(docs))
	}
	for docID, doc := range docs {
		counts := make(map[string]int)
		boosts := make(map[string]float32)
		for _, f := range doc.Fields {
			if f.Index == NotIndexed {
				continue
			}
			n := len(f.Tokens)
			if f.Index == IndexedUnanalyzed {
				n = 1
			}
			counts[f.Name] += n
			if boosts[f.Name] == 0 {
				boosts[f.Name] = f.Boost
			}
		}
		for field, arr := range out {
			arr[docID] = sim.ComputeNorm(counts[field], nonZeroBoost(boosts[field]))
		}
	}
	return out
}

func nonZeroBoost(b float32) float32 {
	if b == 0 {
		return 1.0
	}
	return b
}

func (w *IndexWriter) degrade(err error) error {
	wrapped := kerrors.NewIOError(err, "flush")
	w.degraded = wrapped
	w.log.Error("writer entered degraded state", zap.Error(err))
	return wrapped
}

func (w *IndexWriter) checkOpen() error {
	if w.closed {
		return kerrors.NewAlreadyClosedError("IndexWriter")
	}
	if w.degraded != nil {
		return w.degraded
	}
	return nil
}

// Commit flushes any buffered documents, runs the deletion policy over
// the new commit point, and atomically publishes a new segments_N
// generation naming every current segment.
func (w *IndexWriter) Commit(userData map[string]string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.checkOpen(); err != nil {
		return err
	}
	if err := w.flushLocked(); err != nil {
		return err
	}
	if userData != nil {
		w.segInfos.UserData = userData
	}
	if err := w.segInfos.Write(w.dir); err != nil {
		return w.degrade(err)
	}
	newCommit := &IndexCommit{Dir: w.dir, SegInfos: w.segInfos.Clone()}
	commits, err := ListCommits(w.dir)
	if err != nil {
		return err
	}
	if err := w.cfg.DeletionPolicy.OnCommit(commits); err != nil {
		return err
	}
	w.reclaimDeletedCommits(commits)
	w.lastCommit = newCommit
	w.log.Info("committed", zap.Int64("generation", w.segInfos.Generation))
	return w.runMergesLocked()
}

// Rollback discards every buffered document and any segment flushed
// since the last Commit, reverting the writer's view to the last
// successful commit point. Files already written by those discarded
// segments stay in the Directory, unreferenced by any commit.
func (w *IndexWriter) Rollback() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.checkOpen(); err != nil {
		return err
	}
	for m := range w.runningMerges {
		m.Abort()
	}
	w.pending = nil
	w.pendingRAM = 0
	infos, err := ReadSegmentInfos(w.dir)
	if err != nil {
		return err
	}
	w.segInfos = infos
	w.closed = true
	return w.lock.Release()
}

// Optimize merges the entire index down to at most maxNumSegments,
// an explicit, user-requested operation (unlike the continuous
// background merging FindMerges drives).
func (w *IndexWriter) Optimize(maxNumSegments int) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.checkOpen(); err != nil {
		return err
	}
	if err := w.flushLocked(); err != nil {
		return err
	}
	spec, err := w.cfg.MergePolicy.FindMergesForOptimize(w.segInfos, maxNumSegments, nil)
	if err != nil {
		return err
	}
	if spec == nil {
		return nil
	}
	w.mergeQueue = append(w.mergeQueue, spec.Merges...)
	w.mu.Unlock()
	err = w.cfg.MergeScheduler.Merge(w)
	w.mu.Lock()
	return err
}

// ExpungeDeletes merges any segment carrying deletions into a fresh,
// deletion-free copy, reclaiming the space those tombstones occupy.
func (w *IndexWriter) ExpungeDeletes() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.checkOpen(); err != nil {
		return err
	}
	toMerge := make(map[*SegmentCommitInfo]bool)
	for _, sci := range w.segInfos.Segments {
		if sci.HasDeletions() {
			toMerge[sci] = true
		}
	}
	if len(toMerge) == 0 {
		return nil
	}
	group := make([]*SegmentCommitInfo, 0, len(toMerge))
	for _, sci := range w.segInfos.Segments {
		if toMerge[sci] {
			group = append(group, sci)
		}
	}
	w.mergeQueue = append(w.mergeQueue, &OneMerge{Segments: group})
	w.mu.Unlock()
	err := w.cfg.MergeScheduler.Merge(w)
	w.mu.Lock()
	return err
}

// runMergesLocked proposes new merges from the current segment set and
// hands them to the configured MergeScheduler. Caller must hold w.mu;
// the scheduler itself may call back into NextMerge/DoMerge/MergeFinished.
func (w *IndexWriter) runMergesLocked() error {
	spec, err := w.cfg.MergePolicy.FindMerges(w.segInfos)
	if err != nil {
		return err
	}
	if spec == nil {
		return nil
	}
	w.mergeQueue = append(w.mergeQueue, spec.Merges...)
	w.mu.Unlock()
	err = w.cfg.MergeScheduler.Merge(w)
	w.mu.Lock()
	return err
}

// NextMerge implements MergeSource: pops the next queued merge for a scheduler to run.
func (w *IndexWriter) NextMerge() *OneMerge {
	w.mu.Lock()
	defer w.mu.Unlock()
	if len(w.mergeQueue) == 0 {
		return nil
	}
	m := w.mergeQueue[0]
	w.mergeQueue = w.mergeQueue[1:]
	w.runningMerges[m] = true
	return m
}

// DoMerge implements MergeSource: executes m against the current
// Directory, independent of w.mu so other merges can run concurrently.
func (w *IndexWriter) DoMerge(m *OneMerge) error {
	if m.IsAborted() {
		return kerrors.NewMergeAbortedError()
	}
	readers := make([]*SegmentReader, len(m.Segments))
	for i, sci := range m.Segments {
		sr, err := OpenSegmentReader(sci)
		if err != nil {
			for j := 0; j < i; j++ {
				readers[j].Close()
			}
			return err
		}
		readers[i] = sr
	}
	defer func() {
		for _, sr := range readers {
			sr.Close()
		}
	}()

	w.mu.Lock()
	name := w.newSegmentName()
	w.mu.Unlock()

	info, err := mergeSegments(w.dir, name, readers)
	if err != nil {
		return err
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if m.IsAborted() {
		w.deleteSegmentFiles(info)
		return kerrors.NewMergeAbortedError()
	}
	info.IsCompoundFile = w.cfg.MergePolicy.UseCompoundFile(w.segInfos, NewSegmentCommitInfo(info))
	if info.IsCompoundFile {
		if err := buildCompoundFile(w.dir, info); err != nil {
			return err
		}
	}
	m.info = NewSegmentCommitInfo(info)

	merging := make(map[*SegmentCommitInfo]bool, len(m.Segments))
	for _, sci := range m.Segments {
		merging[sci] = true
	}
	newSegs := make([]*SegmentCommitInfo, 0, len(w.segInfos.Segments)-len(m.Segments)+1)
	inserted := false
	for _, sci := range w.segInfos.Segments {
		if merging[sci] {
			if !inserted {
				newSegs = append(newSegs, m.info)
				inserted = true
			}
			continue
		}
		newSegs = append(newSegs, sci)
	}
	if !inserted {
		newSegs = append(newSegs, m.info)
	}
	w.segInfos.Segments = newSegs
	w.log.Info("merge completed", zap.String("segment", name), zap.Int("merged", len(m.Segments)))
	return nil
}

// deleteSegmentFiles removes every file belonging to info, leaving the
// directory as though the merge that produced it never ran. Used when
// a merge is discovered aborted after its segment is already on disk
// but before it is published into segInfos.
func (w *IndexWriter) deleteSegmentFiles(info *SegmentInfo) {
	for _, f := range info.Files() {
		if err := w.dir.DeleteFile(f); err != nil {
			w.log.Warn("failed to delete aborted merge file", zap.String("file", f), zap.Error(err))
		}
	}
}

// buildCompoundFile packages a freshly written segment's standalone
// files into a single .cfs, replacing info's file list with the
// compound file and its entry-table sidecar.
func buildCompoundFile(dir store.Directory, info *SegmentInfo) error {
	cfsName := "_" + info.Name + ".cfs"
	w := NewCompoundFileWriter(dir, cfsName)
	for _, f := range info.Files() {
		if err := w.AddFile(f); err != nil {
			return err
		}
	}
	if err := w.Close(); err != nil {
		return err
	}
	info.SetFiles([]string{cfsName})
	return nil
}

// MergeFinished implements MergeSource: releases merge bookkeeping
// regardless of outcome.
func (w *IndexWriter) MergeFinished(m *OneMerge) {
	w.mu.Lock()
	defer w.mu.Unlock()
	delete(w.runningMerges, m)
}

// GetReader returns a near-real-time DirectoryReader reflecting every
// buffered document as of this call, without requiring a Commit: it
// flushes the current buffer to a segment first (visible to this
// reader and any future Commit) but does not publish a new
// segments_N generation.
func (w *IndexWriter) GetReader() (*DirectoryReader, error) {
	w.mu.Lock()
	if err := w.checkOpen(); err != nil {
		w.mu.Unlock()
		return nil, err
	}
	if err := w.flushLocked(); err != nil {
		w.mu.Unlock()
		return nil, err
	}
	snapshot := w.segInfos.Clone()
	w.mu.Unlock()
	return openAt(w.dir, snapshot)
}

// Close flushes pending documents, commits, and releases the write
// lock. If waitForMerges is false, in-flight merges are aborted rather
// than awaited; if true, Close relies on the scheduler's own Close to
// have drained its goroutines (true for ConcurrentMergeScheduler,
// trivially true for the serial/no-op schedulers). Closing twice is a no-op.
func (w *IndexWriter) Close(waitForMerges bool) error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return nil
	}
	if err := w.checkOpen(); err != nil && w.degraded == nil {
		w.mu.Unlock()
		return err
	}
	if w.degraded == nil {
		if err := w.flushLocked(); err != nil {
			w.mu.Unlock()
			return err
		}
	}
	w.mu.Unlock()

	if !waitForMerges {
		w.mu.Lock()
		for m := range w.runningMerges {
			m.Abort()
		}
		w.mu.Unlock()
	}
	if err := w.cfg.MergeScheduler.Close(); err != nil {
		w.log.Warn("merge scheduler close failed", zap.Error(err))
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.degraded == nil {
		if err := w.segInfos.Write(w.dir); err != nil {
			w.degraded = w.degrade(err)
		}
	}
	w.closed = true
	if err := w.lock.Release(); err != nil {
		return kerrors.NewIOError(err, "release write lock")
	}
	w.log.Info("index writer closed")
	return w.degraded
}
