package search

import (
	"testing"

	"github.com/kestrelsearch/kestrel/core/index"
)

func TestTopDocsCollectorKeepsOnlyTopN(t *testing.T) {
	reader := buildReader(t,
		[][2]string{{"body", "x y y"}},
		[][2]string{{"body", "x x y"}},
		[][2]string{{"body", "x x x"}},
	)
	s := NewSearcher(reader, DefaultSimilarity{})

	c := NewTopDocsCollector(2)
	if err := s.Search(NewTermQuery(index.NewTerm("body", "x")), c); err != nil {
		t.Fatalf("Search: %v", err)
	}
	top := c.TopDocs()
	if top.TotalHits != 3 {
		t.Fatalf("TotalHits = %d, want 3", top.TotalHits)
	}
	if len(top.ScoreDocs) != 2 {
		t.Fatalf("ScoreDocs = %d, want 2 (bounded to top-N)", len(top.ScoreDocs))
	}
	if top.ScoreDocs[0].Doc != 2 {
		t.Fatalf("top hit = doc %d, want doc 2 (highest term frequency)", top.ScoreDocs[0].Doc)
	}
}

func TestTotalHitCountCollectorDoesNotRank(t *testing.T) {
	reader := buildReader(t,
		[][2]string{{"body", "x"}},
		[][2]string{{"body", "x"}},
	)
	s := NewSearcher(reader, DefaultSimilarity{})

	c := &TotalHitCountCollector{}
	if err := s.Search(NewTermQuery(index.NewTerm("body", "x")), c); err != nil {
		t.Fatalf("Search: %v", err)
	}
	if c.Count != 2 {
		t.Fatalf("Count = %d, want 2", c.Count)
	}
}

func TestMultiCollectorFansOutToEveryCollector(t *testing.T) {
	reader := buildReader(t, [][2]string{{"body", "x"}})
	s := NewSearcher(reader, DefaultSimilarity{})

	top := NewTopDocsCollector(10)
	count := &TotalHitCountCollector{}
	multi := NewMultiCollector(top, count)

	if err := s.Search(NewTermQuery(index.NewTerm("body", "x")), multi); err != nil {
		t.Fatalf("Search: %v", err)
	}
	if count.Count != 1 {
		t.Fatalf("Count = %d, want 1", count.Count)
	}
	if len(top.TopDocs().ScoreDocs) != 1 {
		t.Fatalf("expected TopDocsCollector to also see the hit")
	}
}

func TestPositiveScoresOnlyCollectorSkipsZeroScores(t *testing.T) {
	reader := buildReader(t, [][2]string{{"body", "x"}})
	s := NewSearcher(reader, DefaultSimilarity{})

	inner := &TotalHitCountCollector{}
	zeroBoost := NewConstantScoreQuery(NewTermQuery(index.NewTerm("body", "x")))
	zeroBoost.BoostVal = 0

	wrapped := &PositiveScoresOnlyCollector{Inner: inner}
	if err := s.Search(zeroBoost, wrapped); err != nil {
		t.Fatalf("Search: %v", err)
	}
	if inner.Count != 0 {
		t.Fatalf("Count = %d, want 0 (zero-score hit should be filtered)", inner.Count)
	}
}
