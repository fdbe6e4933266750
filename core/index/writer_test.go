package index

import (
	"strings"
	"testing"

	"github.com/kestrelsearch/kestrel/core/store"
)

func textDoc(t *testing.T, fields ...[2]string) *Document {
	t.Helper()
	doc := &Document{}
	for _, kv := range fields {
		name, value := kv[0], kv[1]
		words := strings.Fields(value)
		tokens := make([]Token, len(words))
		pos := 0
		for i, w := range words {
			tokens[i] = Token{Text: w, PositionIncr: 1, StartOffset: pos, EndOffset: pos + len(w)}
			pos += len(w) + 1
		}
		doc.Add(NewTextField(name, value, tokens))
	}
	return doc
}

func openTestWriter(t *testing.T, dir store.Directory, opts ...Option) *IndexWriter {
	t.Helper()
	w, err := Open(dir, NewIndexWriterConfig(opts...))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	return w
}

func TestAddCommitRead(t *testing.T) {
	dir := store.NewRAMDirectory()
	w := openTestWriter(t, dir)

	if err := w.AddDocument(textDoc(t, [2]string{"title", "the quick fox"})); err != nil {
		t.Fatalf("AddDocument: %v", err)
	}
	if err := w.AddDocument(textDoc(t, [2]string{"title", "the slow turtle"})); err != nil {
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

	if got := reader.NumDocs(); got != 2 {
		t.Fatalf("NumDocs = %d, want 2", got)
	}
	if got := reader.DocFreq(NewTerm("title", "the")); got != 2 {
		t.Fatalf("DocFreq(the) = %d, want 2", got)
	}
	if got := reader.DocFreq(NewTerm("title", "fox")); got != 1 {
		t.Fatalf("DocFreq(fox) = %d, want 1", got)
	}
}

func TestUpdateDocumentReplacesOldVersion(t *testing.T) {
	dir := store.NewRAMDirectory()
	w := openTestWriter(t, dir)

	id := NewTerm("id", "1")
	if err := w.AddDocument(textDoc(t, [2]string{"id", "1"}, [2]string{"body", "red apple"})); err != nil {
		t.Fatalf("AddDocument: %v", err)
	}
	if err := w.Commit(nil); err != nil {
		t.Fatalf("Commit: %v", err)
	}

	if err := w.UpdateDocument(id, textDoc(t, [2]string{"id", "1"}, [2]string{"body", "green pear"})); err != nil {
		t.Fatalf("UpdateDocument: %v", err)
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

	if got := reader.NumDocs(); got != 1 {
		t.Fatalf("NumDocs = %d, want 1 (old version deleted)", got)
	}
	if got := reader.DocFreq(NewTerm("body", "red")); got != 0 {
		t.Fatalf("DocFreq(red) = %d, want 0", got)
	}
	if got := reader.DocFreq(NewTerm("body", "green")); got != 1 {
		t.Fatalf("DocFreq(green) = %d, want 1", got)
	}
}

func TestDeleteDocuments(t *testing.T) {
	dir := store.NewRAMDirectory()
	w := openTestWriter(t, dir)

	if err := w.AddDocument(textDoc(t, [2]string{"body", "alpha"})); err != nil {
		t.Fatalf("AddDocument: %v", err)
	}
	if err := w.AddDocument(textDoc(t, [2]string{"body", "beta"})); err != nil {
		t.Fatalf("AddDocument: %v", err)
	}
	if err := w.Commit(nil); err != nil {
		t.Fatalf("Commit: %v", err)
	}
	if err := w.DeleteDocuments(NewTerm("body", "alpha")); err != nil {
		t.Fatalf("DeleteDocuments: %v", err)
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

	if got := reader.NumDocs(); got != 1 {
		t.Fatalf("NumDocs = %d, want 1", got)
	}
	if got := reader.NumDeletedDocs(); got != 1 {
		t.Fatalf("NumDeletedDocs = %d, want 1", got)
	}
}

func TestRollbackDiscardsUncommittedWork(t *testing.T) {
	dir := store.NewRAMDirectory()
	w := openTestWriter(t, dir)

	if err := w.AddDocument(textDoc(t, [2]string{"body", "first"})); err != nil {
		t.Fatalf("AddDocument: %v", err)
	}
	if err := w.Commit(nil); err != nil {
		t.Fatalf("Commit: %v", err)
	}

	if err := w.AddDocument(textDoc(t, [2]string{"body", "second"})); err != nil {
		t.Fatalf("AddDocument: %v", err)
	}
	if err := w.Rollback(); err != nil {
		t.Fatalf("Rollback: %v", err)
	}

	reader, err := OpenDirectoryReader(dir)
	if err != nil {
		t.Fatalf("OpenDirectoryReader: %v", err)
	}
	defer reader.Close()

	if got := reader.NumDocs(); got != 1 {
		t.Fatalf("NumDocs = %d, want 1 (uncommitted doc discarded)", got)
	}
}

func TestGetReaderIsNearRealTime(t *testing.T) {
	dir := store.NewRAMDirectory()
	w := openTestWriter(t, dir)

	if err := w.AddDocument(textDoc(t, [2]string{"body", "visible without commit"})); err != nil {
		t.Fatalf("AddDocument: %v", err)
	}

	nrt, err := w.GetReader()
	if err != nil {
		t.Fatalf("GetReader: %v", err)
	}
	defer nrt.Close()

	if got := nrt.NumDocs(); got != 1 {
		t.Fatalf("NumDocs = %d, want 1 (near-real-time reader should see buffered doc)", got)
	}

	// No segments_N was published yet: a fresh reader from disk sees nothing.
	if _, err := OpenDirectoryReader(dir); err == nil {
		t.Fatal("expected OpenDirectoryReader to fail before any commit")
	}

	if err := w.Close(true); err != nil {
		t.Fatalf("Close: %v", err)
	}
}

func TestOptimizeMergesDownToOneSegment(t *testing.T) {
	dir := store.NewRAMDirectory()
	w := openTestWriter(t, dir, WithMergeScheduler(NewSerialMergeScheduler()))

	for i := 0; i < 4; i++ {
		if err := w.AddDocument(textDoc(t, [2]string{"body", "segment doc"})); err != nil {
			t.Fatalf("AddDocument: %v", err)
		}
		if err := w.Commit(nil); err != nil {
			t.Fatalf("Commit: %v", err)
		}
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
		t.Fatalf("segment count = %d, want 1 after Optimize(1)", got)
	}
	if got := reader.NumDocs(); got != 4 {
		t.Fatalf("NumDocs = %d, want 4", got)
	}
}

func TestSnapshotDeletionPolicySurvivesNewCommits(t *testing.T) {
	dir := store.NewRAMDirectory()
	snap := NewSnapshotDeletionPolicy(KeepOnlyLastCommitDeletionPolicy{})
	w := openTestWriter(t, dir, WithDeletionPolicy(snap))

	if err := w.AddDocument(textDoc(t, [2]string{"body", "first generation"})); err != nil {
		t.Fatalf("AddDocument: %v", err)
	}
	if err := w.Commit(nil); err != nil {
		t.Fatalf("Commit: %v", err)
	}

	pinned := w.lastCommit
	snap.Snapshot("backup", pinned)

	if err := w.AddDocument(textDoc(t, [2]string{"body", "second generation"})); err != nil {
		t.Fatalf("AddDocument: %v", err)
	}
	if err := w.Commit(nil); err != nil {
		t.Fatalf("Commit: %v", err)
	}
	if err := w.Close(true); err != nil {
		t.Fatalf("Close: %v", err)
	}

	reader, err := OpenDirectoryReaderAtCommit(pinned)
	if err != nil {
		t.Fatalf("pinned commit's files should still exist on disk: %v", err)
	}
	defer reader.Close()
	if got := reader.NumDocs(); got != 1 {
		t.Fatalf("pinned snapshot NumDocs = %d, want 1", got)
	}

	snap.Release("backup")
}
