package search

import (
	"testing"

	"github.com/kestrelsearch/kestrel/core/index"
	"github.com/kestrelsearch/kestrel/core/store"
)

func drainSpans(t *testing.T, sp Spans) [][3]int {
	t.Helper()
	var out [][3]int
	for {
		ok, err := sp.Next()
		if err != nil {
			t.Fatalf("Next: %v", err)
		}
		if !ok {
			return out
		}
		out = append(out, [3]int{sp.Doc(), sp.Start(), sp.End()})
	}
}

func TestSpanTermQueryYieldsEveryPosition(t *testing.T) {
	reader := buildReader(t, [][2]string{{"body", "fox runs fox jumps"}})
	sr := reader.Leaves()[0].Reader

	sp, err := NewSpanTermQuery(index.NewTerm("body", "fox")).GetSpans(sr)
	if err != nil {
		t.Fatalf("GetSpans: %v", err)
	}
	got := drainSpans(t, sp)
	want := [][3]int{{0, 0, 1}, {0, 2, 3}}
	if len(got) != len(want) || got[0] != want[0] || got[1] != want[1] {
		t.Fatalf("spans = %v, want %v", got, want)
	}
}

func TestSpanNearQueryOrderedRequiresSequence(t *testing.T) {
	reader := buildReader(t,
		[][2]string{{"body", "quick brown fox"}},
		[][2]string{{"body", "brown quick fox"}},
	)
	sr0 := reader.Leaves()[0].Reader

	near := NewSpanNearQuery(0, true,
		NewSpanTermQuery(index.NewTerm("body", "quick")),
		NewSpanTermQuery(index.NewTerm("body", "brown")))

	sp, err := near.GetSpans(sr0)
	if err != nil {
		t.Fatalf("GetSpans: %v", err)
	}
	got := drainSpans(t, sp)
	if len(got) != 1 || got[0][0] != 0 {
		t.Fatalf("ordered spanNear over doc 0 ('quick brown fox') should match once, got %v", got)
	}
}

func TestSpanNearQueryUnorderedMatchesEitherOrder(t *testing.T) {
	reader := buildReader(t, [][2]string{{"body", "brown quick fox"}})
	sr := reader.Leaves()[0].Reader

	near := NewSpanNearQuery(0, false,
		NewSpanTermQuery(index.NewTerm("body", "quick")),
		NewSpanTermQuery(index.NewTerm("body", "brown")))

	sp, err := near.GetSpans(sr)
	if err != nil {
		t.Fatalf("GetSpans: %v", err)
	}
	got := drainSpans(t, sp)
	if len(got) != 1 {
		t.Fatalf("unordered spanNear should match 'brown quick' adjacency regardless of clause order, got %v", got)
	}
}

func TestSpanFirstQueryOnlyMatchesEarlyPositions(t *testing.T) {
	reader := buildReader(t, [][2]string{{"body", "fox runs far fox sleeps"}})
	sr := reader.Leaves()[0].Reader

	first := NewSpanFirstQuery(NewSpanTermQuery(index.NewTerm("body", "fox")), 2)
	sp, err := first.GetSpans(sr)
	if err != nil {
		t.Fatalf("GetSpans: %v", err)
	}
	got := drainSpans(t, sp)
	if len(got) != 1 || got[0][1] != 0 {
		t.Fatalf("spanFirst(end=2) should only match the 'fox' at position 0, got %v", got)
	}
}

func TestSpanTermQueryAdjacentPositionsDoNotOverlap(t *testing.T) {
	// "fox" at position 0 and "jumps" at position 1 are adjacent, not
	// overlapping, so SpanNot must not exclude doc 0's "fox" match.
	reader := buildReader(t, [][2]string{{"body", "fox jumps"}})
	sr := reader.Leaves()[0].Reader

	notQ := NewSpanNotQuery(
		NewSpanTermQuery(index.NewTerm("body", "fox")),
		NewSpanTermQuery(index.NewTerm("body", "jumps")),
	)
	sp, err := notQ.GetSpans(sr)
	if err != nil {
		t.Fatalf("GetSpans: %v", err)
	}
	got := drainSpans(t, sp)
	if len(got) != 1 {
		t.Fatalf("adjacent, non-overlapping spans must not be excluded, got %v", got)
	}
}

func TestSpanNotQueryExcludesOverlappingSpans(t *testing.T) {
	// doc 0 indexes "fox" and "vixen" as synonyms at the same position
	// (position increment 0), so their spans truly overlap. doc 1 has
	// "fox" with no "vixen" anywhere, so it must survive the exclusion.
	dir := store.NewRAMDirectory()
	cfg := index.NewIndexWriterConfig(index.WithMergeScheduler(index.NoMergeScheduler))
	w, err := index.Open(dir, cfg)
	if err != nil {
		t.Fatalf("index.Open: %v", err)
	}
	doc0 := &index.Document{}
	doc0.Add(index.NewTextField("body", "fox vixen jumps", []index.Token{
		{Text: "fox", PositionIncr: 1, StartOffset: 0, EndOffset: 3},
		{Text: "vixen", PositionIncr: 0, StartOffset: 0, EndOffset: 3},
		{Text: "jumps", PositionIncr: 1, StartOffset: 4, EndOffset: 9},
	}))
	if err := w.AddDocument(doc0); err != nil {
		t.Fatalf("AddDocument: %v", err)
	}
	doc1 := &index.Document{}
	doc1.Add(index.NewTextField("body", "fox runs", []index.Token{
		{Text: "fox", PositionIncr: 1, StartOffset: 0, EndOffset: 3},
		{Text: "runs", PositionIncr: 1, StartOffset: 4, EndOffset: 8},
	}))
	if err := w.AddDocument(doc1); err != nil {
		t.Fatalf("AddDocument: %v", err)
	}
	if err := w.Commit(nil); err != nil {
		t.Fatalf("Commit: %v", err)
	}
	if err := w.Close(true); err != nil {
		t.Fatalf("Close: %v", err)
	}
	reader, err := index.OpenDirectoryReader(dir)
	if err != nil {
		t.Fatalf("OpenDirectoryReader: %v", err)
	}
	defer reader.Close()
	sr := reader.Leaves()[0].Reader

	notQ := NewSpanNotQuery(
		NewSpanTermQuery(index.NewTerm("body", "fox")),
		NewSpanTermQuery(index.NewTerm("body", "vixen")),
	)
	sp, err := notQ.GetSpans(sr)
	if err != nil {
		t.Fatalf("GetSpans: %v", err)
	}
	got := drainSpans(t, sp)
	if len(got) != 1 || got[0][0] != 1 {
		t.Fatalf("expected only doc 1's 'fox' (no overlapping 'vixen') to survive, got %v", got)
	}
}
