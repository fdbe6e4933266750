package index

import (
	"sync"

	"go.uber.org/zap"

	"github.com/kestrelsearch/kestrel/core/kerrors"
)

// MergeSource is the subset of IndexWriter a MergeScheduler drives: it
// pulls the next pending merge and asks the writer to actually run it
// (read N segments, write one), keeping merge mechanics out of the
// scheduler itself.
type MergeSource interface {
	NextMerge() *OneMerge
	DoMerge(m *OneMerge) error
	MergeFinished(m *OneMerge)
}

// MergeScheduler decides when and how many merges run concurrently
// against the merges an IndexWriter has registered.
type MergeScheduler interface {
	// Merge is called whenever the writer's pending-merge set changes;
	// implementations should drain MergeSource.NextMerge until empty.
	Merge(src MergeSource) error
	Close() error
}

// SerialMergeScheduler runs merges one at a time on the calling
// goroutine, the simplest possible scheduler and the easiest to reason
// about for tests.
type SerialMergeScheduler struct{}

func NewSerialMergeScheduler() *SerialMergeScheduler { return &SerialMergeScheduler{} }

func (s *SerialMergeScheduler) Merge(src MergeSource) error {
	for {
		m := src.NextMerge()
		if m == nil {
			return nil
		}
		err := src.DoMerge(m)
		src.MergeFinished(m)
		if err != nil {
			return err
		}
	}
}

func (s *SerialMergeScheduler) Close() error { return nil }

// noMergeScheduler never runs merges; IndexWriter still accepts
// document updates and explicit Commit/Optimize calls, but background
// merges never fire. Useful for tests and for write-once bulk loads.
type noMergeScheduler struct{}

// NoMergeScheduler is the shared singleton instance, mirroring
// Lucene's NoMergeScheduler.INSTANCE.
var NoMergeScheduler MergeScheduler = noMergeScheduler{}

func (noMergeScheduler) Merge(src MergeSource) error { return nil }
func (noMergeScheduler) Close() error                { return nil }

// ConcurrentMergeScheduler runs up to MaxThreadCount merges at once on
// background goroutines, applying backpressure (pausing the calling
// goroutine) once MaxMergeCount merges are in flight or queued, so a
// writer under sustained heavy indexing doesn't accumulate unbounded
// pending merges.
type ConcurrentMergeScheduler struct {
	MaxThreadCount int
	MaxMergeCount  int
	Logger         *zap.Logger

	mu      sync.Mutex
	cond    *sync.Cond
	running int
	closed  bool
}

func NewConcurrentMergeScheduler() *ConcurrentMergeScheduler {
	cms := &ConcurrentMergeScheduler{MaxThreadCount: 1, MaxMergeCount: 2, Logger: zap.NewNop()}
	cms.cond = sync.NewCond(&cms.mu)
	return cms
}

func (c *ConcurrentMergeScheduler) Merge(src MergeSource) error {
	c.mu.Lock()
	for !c.closed && c.running >= c.MaxMergeCount {
		c.cond.Wait()
	}
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.mu.Unlock()

	var wg sync.WaitGroup
	var firstErr error
	var errMu sync.Mutex

	for {
		m := src.NextMerge()
		if m == nil {
			break
		}
		c.mu.Lock()
		for !c.closed && c.running >= c.MaxThreadCount {
			c.cond.Wait()
		}
		if c.closed {
			c.mu.Unlock()
			m.Abort()
			src.MergeFinished(m)
			continue
		}
		c.running++
		c.mu.Unlock()

		wg.Add(1)
		go func(m *OneMerge) {
			defer wg.Done()
			err := src.DoMerge(m)
			src.MergeFinished(m)
			c.mu.Lock()
			c.running--
			c.cond.Broadcast()
			c.mu.Unlock()
			// A merge aborted by Close/Rollback is internal bookkeeping,
			// not a failure to report to whoever called Merge.
			if err != nil && !kerrors.IsMergeAborted(err) {
				errMu.Lock()
				if firstErr == nil {
					firstErr = err
				}
				errMu.Unlock()
			}
		}(m)
	}
	wg.Wait()
	return firstErr
}

func (c *ConcurrentMergeScheduler) Close() error {
	c.mu.Lock()
	c.closed = true
	c.cond.Broadcast()
	c.mu.Unlock()
	return nil
}
