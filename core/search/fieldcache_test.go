package search

import "testing"

func TestFieldCacheRangeFilterAcceptsValuesWithinBounds(t *testing.T) {
	reader := buildReader(t,
		[][2]string{{"category", "apple"}},
		[][2]string{{"category", "banana"}},
		[][2]string{{"category", "cherry"}},
		[][2]string{{"category", "date"}},
	)
	sr := reader.Leaves()[0].Reader

	cache := NewFieldCache()
	filter := NewFieldCacheRangeFilter(cache, "category", "banana", "cherry", true, true)

	var accepted []int
	for doc := 0; doc < sr.MaxDoc(); doc++ {
		ok, err := filter.Accept(sr, doc)
		if err != nil {
			t.Fatalf("Accept: %v", err)
		}
		if ok {
			accepted = append(accepted, doc)
		}
	}
	if len(accepted) != 2 || accepted[0] != 1 || accepted[1] != 2 {
		t.Fatalf("accepted = %v, want [1 2] (banana, cherry)", accepted)
	}
}

func TestFieldCacheRangeFilterExclusiveBounds(t *testing.T) {
	reader := buildReader(t,
		[][2]string{{"category", "apple"}},
		[][2]string{{"category", "banana"}},
		[][2]string{{"category", "cherry"}},
	)
	sr := reader.Leaves()[0].Reader

	cache := NewFieldCache()
	filter := NewFieldCacheRangeFilter(cache, "category", "apple", "cherry", false, false)

	var accepted []int
	for doc := 0; doc < sr.MaxDoc(); doc++ {
		ok, err := filter.Accept(sr, doc)
		if err != nil {
			t.Fatalf("Accept: %v", err)
		}
		if ok {
			accepted = append(accepted, doc)
		}
	}
	if len(accepted) != 1 || accepted[0] != 1 {
		t.Fatalf("accepted = %v, want [1] (banana, with both bounds exclusive)", accepted)
	}
}
