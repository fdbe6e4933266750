package util

import "testing"

func TestBoundedPriorityQueueAddOverflow(t *testing.T) {
	q := NewBoundedPriorityQueue(3, func(a, b int) bool { return a < b })
	for _, v := range []int{5, 1, 9, 2, 8, 0, 7} {
		q.AddOverflow(v)
	}
	if q.Size() != 3 {
		t.Fatalf("size = %d, want 3", q.Size())
	}
	got := q.Drain()
	want := []int{7, 8, 9}
	for i, v := range want {
		if got[i] != v {
			t.Fatalf("got %v, want %v", got, want)
		}
	}
}

func TestBoundedPriorityQueueTopInvariant(t *testing.T) {
	lessThan := func(a, b int) bool { return a < b }
	q := NewBoundedPriorityQueue(4, lessThan)
	for _, v := range []int{3, 1, 4, 1, 5, 9, 2, 6} {
		q.AddOverflow(v)
	}
	for _, x := range q.Drain() {
		_ = x
	}
	// Re-run and check every retained element is >= top (lessThan(x, top) is false).
	q2 := NewBoundedPriorityQueue(4, lessThan)
	for _, v := range []int{3, 1, 4, 1, 5, 9, 2, 6} {
		q2.AddOverflow(v)
	}
	top := q2.Top()
	for _, x := range q2.heap {
		if lessThan(x, top) {
			t.Fatalf("element %d sorts before top %d", x, top)
		}
	}
}

func TestBoundedPriorityQueueAddPanicsWhenFull(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic calling Add on a full queue")
		}
	}()
	q := NewBoundedPriorityQueue(1, func(a, b int) bool { return a < b })
	q.Add(1)
	q.Add(2)
}
