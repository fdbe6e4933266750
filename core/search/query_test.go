package search

import (
	"testing"

	"github.com/kestrelsearch/kestrel/core/index"
)

func TestMatchAllDocsQueryMatchesEveryLiveDoc(t *testing.T) {
	reader := buildReader(t,
		[][2]string{{"body", "a"}},
		[][2]string{{"body", "b"}},
		[][2]string{{"body", "c"}},
	)
	s := NewSearcher(reader, DefaultSimilarity{})

	hits := collectDocs(t, s, NewMatchAllDocsQuery())
	if len(hits) != 3 {
		t.Fatalf("hits = %d, want 3", len(hits))
	}
}

func TestConstantScoreQueryIgnoresInnerScore(t *testing.T) {
	reader := buildReader(t,
		[][2]string{{"body", "fox"}},
		[][2]string{{"body", "fox fox fox"}},
	)
	s := NewSearcher(reader, DefaultSimilarity{})

	csq := NewConstantScoreQuery(NewTermQuery(index.NewTerm("body", "fox")))
	hits := collectDocs(t, s, csq)
	if len(hits) != 2 {
		t.Fatalf("hits = %d, want 2", len(hits))
	}
	if hits[0].Score != hits[1].Score {
		t.Fatalf("ConstantScoreQuery should score every match equally regardless of term frequency: %v", hits)
	}
}
