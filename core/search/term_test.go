package search

import (
	"testing"

	"github.com/kestrelsearch/kestrel/core/index"
)

func TestTermQueryFindsMatchingDocsOnly(t *testing.T) {
	reader := buildReader(t,
		[][2]string{{"body", "the quick brown fox"}},
		[][2]string{{"body", "the lazy dog"}},
	)
	s := NewSearcher(reader, DefaultSimilarity{})

	hits := collectDocs(t, s, NewTermQuery(index.NewTerm("body", "fox")))
	if len(hits) != 1 {
		t.Fatalf("hits = %d, want 1", len(hits))
	}
	if hits[0].Doc != 0 {
		t.Fatalf("matched doc = %d, want 0", hits[0].Doc)
	}
	if hits[0].Score <= 0 {
		t.Fatalf("score = %f, want positive", hits[0].Score)
	}
}

func TestTermQueryNoMatchesReturnsEmpty(t *testing.T) {
	reader := buildReader(t, [][2]string{{"body", "alpha beta"}})
	s := NewSearcher(reader, DefaultSimilarity{})

	hits := collectDocs(t, s, NewTermQuery(index.NewTerm("body", "gamma")))
	if len(hits) != 0 {
		t.Fatalf("hits = %d, want 0", len(hits))
	}
}

func TestTermQueryScoresRankHigherTermFrequencyFirst(t *testing.T) {
	reader := buildReader(t,
		[][2]string{{"body", "fox fox fox"}},
		[][2]string{{"body", "fox dog cat"}},
	)
	s := NewSearcher(reader, DefaultSimilarity{})

	hits := collectDocs(t, s, NewTermQuery(index.NewTerm("body", "fox")))
	if len(hits) != 2 {
		t.Fatalf("hits = %d, want 2", len(hits))
	}
	if hits[0].Doc != 0 {
		t.Fatalf("highest-ranked doc = %d, want 0 (repeats the term 3x)", hits[0].Doc)
	}
	if hits[0].Score <= hits[1].Score {
		t.Fatalf("scores not ordered descending: %v", hits)
	}
}
