package index

import (
	"testing"

	"github.com/kestrelsearch/kestrel/core/store"
)

func TestSegmentReaderPostingsAndDocument(t *testing.T) {
	dir := store.NewRAMDirectory()
	w := openTestWriter(t, dir)
	if err := w.AddDocument(textDoc(t, [2]string{"title", "red fox jumps"})); err != nil {
		t.Fatalf("AddDocument: %v", err)
	}
	if err := w.Commit(nil); err != nil {
		t.Fatalf("Commit: %v", err)
	}
	if err := w.Close(true); err != nil {
		t.Fatalf("Close: %v", err)
	}

	infos, err := ReadSegmentInfos(dir)
	if err != nil {
		t.Fatalf("ReadSegmentInfos: %v", err)
	}
	if len(infos.Segments) != 1 {
		t.Fatalf("segments = %d, want 1", len(infos.Segments))
	}

	sr, err := OpenSegmentReader(infos.Segments[0])
	if err != nil {
		t.Fatalf("OpenSegmentReader: %v", err)
	}
	defer sr.Close()

	if got := sr.MaxDoc(); got != 1 {
		t.Fatalf("MaxDoc = %d, want 1", got)
	}

	pe, found, err := sr.Postings(NewTerm("title", "fox"))
	if err != nil {
		t.Fatalf("Postings: %v", err)
	}
	if !found {
		t.Fatal("expected postings for 'fox'")
	}
	doc, err := pe.NextDoc()
	if err != nil {
		t.Fatalf("NextDoc: %v", err)
	}
	if doc != 0 {
		t.Fatalf("doc = %d, want 0", doc)
	}

	if _, found, err := sr.Postings(NewTerm("title", "nonexistent")); err != nil {
		t.Fatalf("Postings: %v", err)
	} else if found {
		t.Fatal("expected no postings for a term never indexed")
	}

	fields, err := sr.Document(0)
	if err != nil {
		t.Fatalf("Document: %v", err)
	}
	if string(fields["title"]) != "red fox jumps" {
		t.Fatalf("stored title = %q, want %q", fields["title"], "red fox jumps")
	}
}

func TestSegmentReaderPostingsCacheReturnsConsistentResults(t *testing.T) {
	dir := store.NewRAMDirectory()
	w := openTestWriter(t, dir)
	if err := w.AddDocument(textDoc(t, [2]string{"body", "alpha beta"})); err != nil {
		t.Fatalf("AddDocument: %v", err)
	}
	if err := w.Commit(nil); err != nil {
		t.Fatalf("Commit: %v", err)
	}
	if err := w.Close(true); err != nil {
		t.Fatalf("Close: %v", err)
	}

	infos, err := ReadSegmentInfos(dir)
	if err != nil {
		t.Fatalf("ReadSegmentInfos: %v", err)
	}
	sr, err := OpenSegmentReader(infos.Segments[0])
	if err != nil {
		t.Fatalf("OpenSegmentReader: %v", err)
	}
	defer sr.Close()

	for i := 0; i < 3; i++ {
		if df := sr.DocFreq(NewTerm("body", "alpha")); df != 1 {
			t.Fatalf("iteration %d: DocFreq = %d, want 1", i, df)
		}
		if _, found, err := sr.Postings(NewTerm("body", "alpha")); err != nil {
			t.Fatalf("Postings: %v", err)
		} else if !found {
			t.Fatalf("iteration %d: expected postings to be found", i)
		}
	}
}
