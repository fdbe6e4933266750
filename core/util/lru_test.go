package util

import "testing"

func TestOrderedLRUCacheEvictsLeastRecentlyUsed(t *testing.T) {
	c := NewOrderedLRUCache[string, int](3)
	c.Put("a", 1)
	c.Put("b", 2)
	c.Put("c", 3)
	// Touch "a" so "b" becomes least-recently-used.
	if _, ok := c.Get("a"); !ok {
		t.Fatal("expected a to be present")
	}
	evicted, didEvict := c.Put("d", 4)
	if !didEvict || evicted != "b" {
		t.Fatalf("expected eviction of b, got evicted=%v didEvict=%v", evicted, didEvict)
	}
	if c.Len() != 3 {
		t.Fatalf("len = %d, want 3", c.Len())
	}
	if _, ok := c.Get("b"); ok {
		t.Fatal("b should have been evicted")
	}
}

func TestOrderedLRUCacheIterationOrder(t *testing.T) {
	c := NewOrderedLRUCache[int, int](5)
	for i := 0; i < 5; i++ {
		c.Put(i, i*i)
	}
	keys := c.Keys()
	want := []int{4, 3, 2, 1, 0}
	for i, k := range want {
		if keys[i] != k {
			t.Fatalf("keys = %v, want MRU-first %v", keys, want)
		}
	}
}
