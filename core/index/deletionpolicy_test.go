package index

import "testing"

func fakeCommit(gen int64) *IndexCommit {
	return &IndexCommit{SegInfos: &SegmentInfos{Generation: gen}}
}

func TestKeepOnlyLastCommitDeletesAllButNewest(t *testing.T) {
	commits := []*IndexCommit{fakeCommit(1), fakeCommit(2), fakeCommit(3)}
	if err := (KeepOnlyLastCommitDeletionPolicy{}).OnCommit(commits); err != nil {
		t.Fatalf("OnCommit: %v", err)
	}
	for i, c := range commits {
		want := i < len(commits)-1
		if c.IsDeleted() != want {
			t.Fatalf("commit %d IsDeleted = %v, want %v", i, c.IsDeleted(), want)
		}
	}
}

func TestSnapshotDeletionPolicyProtectsPinnedGeneration(t *testing.T) {
	wrapped := KeepOnlyLastCommitDeletionPolicy{}
	snap := NewSnapshotDeletionPolicy(wrapped)

	commits := []*IndexCommit{fakeCommit(1), fakeCommit(2), fakeCommit(3)}
	snap.Snapshot("backup", commits[0])

	if err := snap.OnCommit(commits); err != nil {
		t.Fatalf("OnCommit: %v", err)
	}
	if commits[0].IsDeleted() {
		t.Fatal("pinned commit (gen 1) should survive OnCommit")
	}
	if !commits[1].IsDeleted() {
		t.Fatal("unpinned, non-newest commit (gen 2) should be deleted")
	}
	if commits[2].IsDeleted() {
		t.Fatal("newest commit should survive")
	}

	snap.Release("backup")
	commits2 := []*IndexCommit{fakeCommit(3)}
	if err := snap.OnCommit(commits2); err != nil {
		t.Fatalf("OnCommit after release: %v", err)
	}
}

func TestSnapshotDeletionPolicyOnInitDropsOrphanedSnapshot(t *testing.T) {
	snap := NewSnapshotDeletionPolicy(KeepOnlyLastCommitDeletionPolicy{})
	snap.Snapshot("gone", fakeCommit(99))

	commits := []*IndexCommit{fakeCommit(1)}
	if err := snap.OnInit(commits); err != nil {
		t.Fatalf("OnInit: %v", err)
	}
	if _, ok := snap.snapshots["gone"]; ok {
		t.Fatal("snapshot pointing at a generation absent from OnInit's commits should be dropped")
	}
}
