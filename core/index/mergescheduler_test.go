package index

import (
	"sync"
	"testing"
)

type fakeMergeSource struct {
	mu     sync.Mutex
	queue  []*OneMerge
	done   []*OneMerge
	doMerge func(*OneMerge) error
}

func (f *fakeMergeSource) NextMerge() *OneMerge {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.queue) == 0 {
		return nil
	}
	m := f.queue[0]
	f.queue = f.queue[1:]
	return m
}

func (f *fakeMergeSource) DoMerge(m *OneMerge) error {
	if f.doMerge != nil {
		return f.doMerge(m)
	}
	return nil
}

func (f *fakeMergeSource) MergeFinished(m *OneMerge) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.done = append(f.done, m)
}

func TestSerialMergeSchedulerRunsEveryQueuedMerge(t *testing.T) {
	src := &fakeMergeSource{queue: []*OneMerge{{}, {}, {}}}
	s := NewSerialMergeScheduler()
	if err := s.Merge(src); err != nil {
		t.Fatalf("Merge: %v", err)
	}
	if len(src.done) != 3 {
		t.Fatalf("completed merges = %d, want 3", len(src.done))
	}
}

func TestSerialMergeSchedulerPropagatesError(t *testing.T) {
	boom := errBoom{}
	src := &fakeMergeSource{
		queue: []*OneMerge{{}},
		doMerge: func(m *OneMerge) error { return boom },
	}
	s := NewSerialMergeScheduler()
	if err := s.Merge(src); err != boom {
		t.Fatalf("Merge error = %v, want %v", err, boom)
	}
}

type errBoom struct{}

func (errBoom) Error() string { return "boom" }

func TestConcurrentMergeSchedulerRunsEveryQueuedMerge(t *testing.T) {
	src := &fakeMergeSource{queue: []*OneMerge{{}, {}, {}, {}}}
	s := NewConcurrentMergeScheduler()
	if err := s.Merge(src); err != nil {
		t.Fatalf("Merge: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	src.mu.Lock()
	defer src.mu.Unlock()
	if len(src.done) != 4 {
		t.Fatalf("completed merges = %d, want 4", len(src.done))
	}
}

func TestNoMergeSchedulerIsNoop(t *testing.T) {
	src := &fakeMergeSource{queue: []*OneMerge{{}}}
	if err := NoMergeScheduler.Merge(src); err != nil {
		t.Fatalf("Merge: %v", err)
	}
	if len(src.done) != 0 {
		t.Fatalf("NoMergeScheduler should never call NextMerge/DoMerge, got %d done", len(src.done))
	}
}
