package index

import "sync"

// DeletionPolicy decides which historical commit points an IndexWriter
// may delete once they are no longer needed for crash recovery.
// onInit receives every commit currently present (oldest first) the
// moment a writer opens; onCommit receives the same list after every
// new commit. Any IndexCommit not deleted by the end of the call
// survives until the next invocation.
type DeletionPolicy interface {
	OnInit(commits []*IndexCommit) error
	OnCommit(commits []*IndexCommit) error
}

// KeepOnlyLastCommitDeletionPolicy deletes every commit except the
// most recent, the default and simplest policy: once a new commit
// lands, every older one is immediately eligible for removal.
type KeepOnlyLastCommitDeletionPolicy struct{}

func (KeepOnlyLastCommitDeletionPolicy) OnInit(commits []*IndexCommit) error {
	return deleteAllButLast(commits)
}

func (KeepOnlyLastCommitDeletionPolicy) OnCommit(commits []*IndexCommit) error {
	return deleteAllButLast(commits)
}

func deleteAllButLast(commits []*IndexCommit) error {
	for i := 0; i < len(commits)-1; i++ {
		commits[i].DeleteCommit()
	}
	return nil
}

// SnapshotDeletionPolicy wraps another policy and additionally pins
// any commit with an active snapshot so it survives OnCommit even if
// the wrapped policy would otherwise delete it, the mechanism behind
// "hot backup while the writer keeps running".
type SnapshotDeletionPolicy struct {
	wrapped DeletionPolicy

	mu          sync.Mutex
	snapshots   map[string]int64 // snapshot id -> segments file generation
	refCounts   map[int64]int    // generation -> number of snapshots pinning it
}

func NewSnapshotDeletionPolicy(wrapped DeletionPolicy) *SnapshotDeletionPolicy {
	return &SnapshotDeletionPolicy{
		wrapped:   wrapped,
		snapshots: make(map[string]int64),
		refCounts: make(map[int64]int),
	}
}

func (p *SnapshotDeletionPolicy) OnInit(commits []*IndexCommit) error {
	p.mu.Lock()
	// Re-attach snapshots whose segments file generation still exists
	// among the commits being opened; an id whose generation was
	// already removed (e.g. the process crashed before the snapshot
	// was released cleanly) is dropped rather than resurrected.
	present := make(map[int64]bool, len(commits))
	for _, c := range commits {
		present[c.Generation()] = true
	}
	for id, gen := range p.snapshots {
		if !present[gen] {
			delete(p.snapshots, id)
		}
	}
	p.mu.Unlock()
	return p.wrapped.OnInit(p.filterPinned(commits))
}

func (p *SnapshotDeletionPolicy) OnCommit(commits []*IndexCommit) error {
	return p.wrapped.OnCommit(p.filterPinned(commits))
}

// filterPinned hands the wrapped policy only the commits not currently
// snapshotted, so KeepOnlyLastCommitDeletionPolicy (or any other
// wrapped policy) never sees — and so never deletes — a pinned commit.
func (p *SnapshotDeletionPolicy) filterPinned(commits []*IndexCommit) []*IndexCommit {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]*IndexCommit, 0, len(commits))
	for _, c := range commits {
		if p.refCounts[c.Generation()] > 0 {
			continue
		}
		out = append(out, c)
	}
	if len(out) == 0 && len(commits) > 0 {
		// Never let every commit be pinned out of the wrapped policy's
		// view; it needs at least the newest to track "last commit".
		out = append(out, commits[len(commits)-1])
	}
	return out
}

// Snapshot pins commit under the caller-chosen id so OnCommit will
// never let it be deleted until Release is called with that id.
func (p *SnapshotDeletionPolicy) Snapshot(id string, commit *IndexCommit) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.snapshots[id] = commit.Generation()
	p.refCounts[commit.Generation()]++
}

// Release unpins a previously snapshotted commit. A second Release of
// the same id is a no-op.
func (p *SnapshotDeletionPolicy) Release(id string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	gen, ok := p.snapshots[id]
	if !ok {
		return
	}
	delete(p.snapshots, id)
	p.refCounts[gen]--
	if p.refCounts[gen] <= 0 {
		delete(p.refCounts, gen)
	}
}
