package search

import (
	"testing"

	"github.com/kestrelsearch/kestrel/core/index"
)

func TestExactPhraseQueryRequiresAdjacentOrder(t *testing.T) {
	reader := buildReader(t,
		[][2]string{{"body", "the quick brown fox"}},
		[][2]string{{"body", "the brown quick fox"}},
	)
	s := NewSearcher(reader, DefaultSimilarity{})

	pq := NewPhraseQuery(index.NewTerm("body", "quick"), index.NewTerm("body", "brown"))
	ids := docIDs(collectDocs(t, s, pq))
	if len(ids) != 1 || !ids[0] {
		t.Fatalf("expected only doc 0 ('quick brown' adjacent in order), got %v", ids)
	}
}

func TestSloppyPhraseQueryToleratesSlop(t *testing.T) {
	reader := buildReader(t,
		[][2]string{{"body", "quick brown fox"}},
		[][2]string{{"body", "quick lazy brown fox"}},
		[][2]string{{"body", "quick very very lazy brown fox"}},
	)
	s := NewSearcher(reader, DefaultSimilarity{})

	pq := NewPhraseQuery(index.NewTerm("body", "quick"), index.NewTerm("body", "brown"))
	pq.Slop = 1

	ids := docIDs(collectDocs(t, s, pq))
	if !ids[0] {
		t.Fatalf("expected exact match doc 0 to match at slop=1, got %v", ids)
	}
	if !ids[1] {
		t.Fatalf("expected doc 1 ('quick lazy brown', distance 1) to match at slop=1, got %v", ids)
	}
	if ids[2] {
		t.Fatalf("expected doc 2 (distance 2) to NOT match at slop=1, got %v", ids)
	}
}

func TestPhraseQueryNoMatchWhenTermsNeverIndexed(t *testing.T) {
	reader := buildReader(t, [][2]string{{"body", "alpha beta"}})
	s := NewSearcher(reader, DefaultSimilarity{})

	pq := NewPhraseQuery(index.NewTerm("body", "alpha"), index.NewTerm("body", "gamma"))
	hits := collectDocs(t, s, pq)
	if len(hits) != 0 {
		t.Fatalf("hits = %d, want 0 (second term never indexed)", len(hits))
	}
}
