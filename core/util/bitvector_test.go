package util

import (
	"testing"

	"github.com/kestrelsearch/kestrel/core/store"
)

func TestBitVectorSetClearCount(t *testing.T) {
	bv := NewBitVector(100)
	bv.Set(3)
	bv.Set(50)
	bv.Set(99)
	if bv.Count() != 3 {
		t.Fatalf("count = %d, want 3", bv.Count())
	}
	bv.Clear(50)
	if bv.Count() != 2 {
		t.Fatalf("count after clear = %d, want 2", bv.Count())
	}
	if !bv.Get(3) || bv.Get(50) || !bv.Get(99) {
		t.Fatalf("unexpected bit state")
	}
}

func TestBitVectorSubset(t *testing.T) {
	bv := NewBitVector(20)
	bv.Set(5)
	bv.Set(15)
	sub := bv.Subset(10, 20)
	if sub.Size() != 10 {
		t.Fatalf("subset size = %d, want 10", sub.Size())
	}
	if sub.Get(5) != true || sub.Count() != 1 {
		t.Fatalf("subset did not preserve bit 15 as local bit 5")
	}
}

func TestBitVectorDGapRoundTrip(t *testing.T) {
	bv := NewBitVector(1_000_000)
	bv.Set(100)
	bv.Set(200)
	bv.Set(999_999)

	dir := store.NewRAMDirectory()
	out, err := dir.CreateOutput("bits")
	if err != nil {
		t.Fatal(err)
	}
	if err := bv.WriteTo(out); err != nil {
		t.Fatal(err)
	}
	if err := out.Close(); err != nil {
		t.Fatal(err)
	}

	in, err := dir.OpenInput("bits", 0)
	if err != nil {
		t.Fatal(err)
	}
	defer in.Close()
	got, err := ReadBitVector(in)
	if err != nil {
		t.Fatal(err)
	}
	if got.Size() != 1_000_000 {
		t.Fatalf("size = %d, want 1000000", got.Size())
	}
	if got.Count() != 3 {
		t.Fatalf("count = %d, want 3", got.Count())
	}
	for _, i := range []int{100, 200, 999_999} {
		if !got.Get(i) {
			t.Errorf("bit %d not set after round-trip", i)
		}
	}
}

func TestBitVectorRawRoundTripDense(t *testing.T) {
	bv := NewBitVector(64)
	for i := 0; i < 64; i += 2 {
		bv.Set(i)
	}
	dir := store.NewRAMDirectory()
	out, _ := dir.CreateOutput("bits")
	if err := bv.WriteTo(out); err != nil {
		t.Fatal(err)
	}
	out.Close()

	in, _ := dir.OpenInput("bits", 0)
	defer in.Close()
	got, err := ReadBitVector(in)
	if err != nil {
		t.Fatal(err)
	}
	if got.Count() != 32 {
		t.Fatalf("count = %d, want 32", got.Count())
	}
}
