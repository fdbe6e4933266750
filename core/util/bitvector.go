package util

import (
	"math/bits"

	"github.com/kestrelsearch/kestrel/core/kerrors"
)

// BitVector is a fixed-size bit set with a cached population count.
// Bits are packed eight per byte, little-endian within the byte (bit i
// lives at byte i>>3, bit position i&7).
type BitVector struct {
	bits  []byte
	size  int
	count int // -1 means "needs recompute"
}

// NewBitVector allocates a cleared BitVector able to hold n bits.
func NewBitVector(n int) *BitVector {
	return &BitVector{
		bits:  make([]byte, (n+7)>>3),
		size:  n,
		count: 0,
	}
}

func (b *BitVector) checkRange(i int) {
	if i < 0 || i >= b.size {
		panic(kerrors.NewOutOfBoundsError(i, b.size))
	}
}

// Get reports whether bit i is set.
func (b *BitVector) Get(i int) bool {
	b.checkRange(i)
	return b.bits[i>>3]&(1<<uint(i&7)) != 0
}

// Set sets bit i, incrementing the cached count (when one is cached)
// if the bit changes state.
func (b *BitVector) Set(i int) {
	b.checkRange(i)
	mask := byte(1 << uint(i&7))
	if b.bits[i>>3]&mask == 0 {
		b.bits[i>>3] |= mask
		if b.count != -1 {
			b.count++
		}
	}
}

// Clear unsets bit i, decrementing the cached count (when one is
// cached) if the bit changes state.
func (b *BitVector) Clear(i int) {
	b.checkRange(i)
	mask := byte(1 << uint(i&7))
	if b.bits[i>>3]&mask != 0 {
		b.bits[i>>3] &^= mask
		if b.count != -1 {
			b.count--
		}
	}
}

// Flip toggles bit i.
func (b *BitVector) Flip(i int) {
	if b.Get(i) {
		b.Clear(i)
	} else {
		b.Set(i)
	}
}

// Size returns the number of bits this vector covers.
func (b *BitVector) Size() int { return b.size }

// Count returns the number of set bits, recomputing and caching it if
// no count is cached (as after ReadBitVector).
func (b *BitVector) Count() int {
	if b.count == -1 {
		c := 0
		for _, by := range b.bits {
			c += bits.OnesCount8(by)
		}
		b.count = c
	}
	return b.count
}

// Subset returns a new BitVector over the half-open range [start, end)
// of the receiver, preserving bit values.
func (b *BitVector) Subset(start, end int) *BitVector {
	if start < 0 || end > b.size || start > end {
		panic(kerrors.NewOutOfBoundsError(start, b.size))
	}
	out := NewBitVector(end - start)
	for i := start; i < end; i++ {
		if b.Get(i) {
			out.Set(i - start)
		}
	}
	return out
}

// Raw exposes the packed backing bytes for use by persistence code.
func (b *BitVector) Raw() []byte { return b.bits }
