package index

import (
	"testing"

	"github.com/kestrelsearch/kestrel/core/store"
)

func TestMergeUnderReaderLeavesOpenReaderUnaffected(t *testing.T) {
	dir := store.NewRAMDirectory()
	w := openTestWriter(t, dir, WithMergeScheduler(NewSerialMergeScheduler()))

	for i := 0; i < 3; i++ {
		if err := w.AddDocument(textDoc(t, [2]string{"body", "doc"})); err != nil {
			t.Fatalf("AddDocument: %v", err)
		}
		if err := w.Commit(nil); err != nil {
			t.Fatalf("Commit: %v", err)
		}
	}

	reader, err := OpenDirectoryReader(dir)
	if err != nil {
		t.Fatalf("OpenDirectoryReader: %v", err)
	}
	defer reader.Close()
	if got := len(reader.Leaves()); got != 3 {
		t.Fatalf("segment count before merge = %d, want 3", got)
	}

	if err := w.Optimize(1); err != nil {
		t.Fatalf("Optimize: %v", err)
	}
	if err := w.Commit(nil); err != nil {
		t.Fatalf("Commit: %v", err)
	}
	if err := w.Close(true); err != nil {
		t.Fatalf("Close: %v", err)
	}

	if got := len(reader.Leaves()); got != 3 {
		t.Fatalf("already-open reader's segment count changed after merge: got %d, want 3", got)
	}
	if got := reader.NumDocs(); got != 3 {
		t.Fatalf("already-open reader NumDocs = %d, want 3", got)
	}

	fresh, err := OpenDirectoryReader(dir)
	if err != nil {
		t.Fatalf("OpenDirectoryReader (post-merge): %v", err)
	}
	defer fresh.Close()
	if got := len(fresh.Leaves()); got != 1 {
		t.Fatalf("post-merge segment count = %d, want 1", got)
	}
	if got := fresh.NumDocs(); got != 3 {
		t.Fatalf("post-merge NumDocs = %d, want 3", got)
	}
}

func TestMergeDropsDeletedDocuments(t *testing.T) {
	dir := store.NewRAMDirectory()
	w := openTestWriter(t, dir, WithMergeScheduler(NewSerialMergeScheduler()))

	if err := w.AddDocument(textDoc(t, [2]string{"id", "1"})); err != nil {
		t.Fatalf("AddDocument: %v", err)
	}
	if err := w.Commit(nil); err != nil {
		t.Fatalf("Commit: %v", err)
	}
	if err := w.AddDocument(textDoc(t, [2]string{"id", "2"})); err != nil {
		t.Fatalf("AddDocument: %v", err)
	}
	if err := w.Commit(nil); err != nil {
		t.Fatalf("Commit: %v", err)
	}

	if err := w.DeleteDocuments(NewTerm("id", "1")); err != nil {
		t.Fatalf("DeleteDocuments: %v", err)
	}
	if err := w.Commit(nil); err != nil {
		t.Fatalf("Commit: %v", err)
	}

	if err := w.Optimize(1); err != nil {
		t.Fatalf("Optimize: %v", err)
	}
	if err := w.Commit(nil); err != nil {
		t.Fatalf("Commit: %v", err)
	}
	if err := w.Close(true); err != nil {
		t.Fatalf("Close: %v", err)
	}

	reader, err := OpenDirectoryReader(dir)
	if err != nil {
		t.Fatalf("OpenDirectoryReader: %v", err)
	}
	defer reader.Close()

	if got := len(reader.Leaves()); got != 1 {
		t.Fatalf("segment count = %d, want 1", got)
	}
	if got := reader.MaxDoc(); got != 1 {
		t.Fatalf("merged MaxDoc = %d, want 1 (deleted doc should not survive merge)", got)
	}
	if got := reader.NumDeletedDocs(); got != 0 {
		t.Fatalf("NumDeletedDocs = %d, want 0 after merge compacts away the tombstone", got)
	}
	fields, err := reader.Document(0)
	if err != nil {
		t.Fatalf("Document(0): %v", err)
	}
	if string(fields["id"]) != "2" {
		t.Fatalf("surviving doc id = %q, want 2", fields["id"])
	}
}
