package index

import (
	"testing"

	"github.com/kestrelsearch/kestrel/core/store"
)

func TestDirectoryReaderTranslatesGlobalDocIDsAcrossSegments(t *testing.T) {
	dir := store.NewRAMDirectory()
	w := openTestWriter(t, dir, WithMergeScheduler(NoMergeScheduler))

	if err := w.AddDocument(textDoc(t, [2]string{"id", "0"})); err != nil {
		t.Fatalf("AddDocument: %v", err)
	}
	if err := w.Commit(nil); err != nil {
		t.Fatalf("Commit: %v", err)
	}
	if err := w.AddDocument(textDoc(t, [2]string{"id", "1"})); err != nil {
		t.Fatalf("AddDocument: %v", err)
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

	if got := len(reader.Leaves()); got != 2 {
		t.Fatalf("segment count = %d, want 2 (NoMergeScheduler should leave them unmerged)", got)
	}
	if got := reader.MaxDoc(); got != 2 {
		t.Fatalf("MaxDoc = %d, want 2", got)
	}

	first, err := reader.Document(0)
	if err != nil {
		t.Fatalf("Document(0): %v", err)
	}
	second, err := reader.Document(1)
	if err != nil {
		t.Fatalf("Document(1): %v", err)
	}
	if string(first["id"]) != "0" {
		t.Fatalf("Document(0) id = %q, want 0", first["id"])
	}
	if string(second["id"]) != "1" {
		t.Fatalf("Document(1) id = %q, want 1", second["id"])
	}
}

func TestDirectoryReaderIsCurrentAfterExternalCommit(t *testing.T) {
	dir := store.NewRAMDirectory()
	w := openTestWriter(t, dir)
	if err := w.AddDocument(textDoc(t, [2]string{"body", "first"})); err != nil {
		t.Fatalf("AddDocument: %v", err)
	}
	if err := w.Commit(nil); err != nil {
		t.Fatalf("Commit: %v", err)
	}

	reader, err := OpenDirectoryReader(dir)
	if err != nil {
		t.Fatalf("OpenDirectoryReader: %v", err)
	}
	defer reader.Close()

	if current, err := reader.IsCurrent(); err != nil {
		t.Fatalf("IsCurrent: %v", err)
	} else if !current {
		t.Fatal("freshly opened reader should be current")
	}

	if err := w.AddDocument(textDoc(t, [2]string{"body", "second"})); err != nil {
		t.Fatalf("AddDocument: %v", err)
	}
	if err := w.Commit(nil); err != nil {
		t.Fatalf("Commit: %v", err)
	}
	if err := w.Close(true); err != nil {
		t.Fatalf("Close: %v", err)
	}

	if current, err := reader.IsCurrent(); err != nil {
		t.Fatalf("IsCurrent: %v", err)
	} else if current {
		t.Fatal("reader should be stale after a new commit")
	}

	reopened, err := reader.Reopen()
	if err != nil {
		t.Fatalf("Reopen: %v", err)
	}
	defer reopened.Close()
	if got := reopened.NumDocs(); got != 2 {
		t.Fatalf("NumDocs after reopen = %d, want 2", got)
	}
}
