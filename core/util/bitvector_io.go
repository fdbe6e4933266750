package util

import (
	"github.com/kestrelsearch/kestrel/core/kerrors"
	"github.com/kestrelsearch/kestrel/core/store"
)

// Two on-disk encodings for a BitVector, selected by a signed sentinel
// read first so the decoder knows which one follows.
const (
	bitVectorFormatRaw  int32 = -1
	bitVectorFormatDGap int32 = -2
)

// WriteTo persists the vector, choosing whichever of the raw or d-gap
// encodings produces the shorter file for the current population count.
func (b *BitVector) WriteTo(out store.IndexOutput) error {
	dgapBytes := b.dgapPayloadSize()
	rawBytes := int64(len(b.bits))
	if dgapBytes < rawBytes {
		return b.writeDGap(out)
	}
	return b.writeRaw(out)
}

func (b *BitVector) writeRaw(out store.IndexOutput) error {
	if err := out.WriteInt(bitVectorFormatRaw); err != nil {
		return err
	}
	if err := out.WriteInt(int32(b.size)); err != nil {
		return err
	}
	if err := out.WriteInt(int32(b.Count())); err != nil {
		return err
	}
	return out.WriteBytes(b.bits)
}

// dgapPayloadSize estimates the d-gap encoding's byte size without
// writing it, so WriteTo can pick the shorter format.
func (b *BitVector) dgapPayloadSize() int64 {
	size := int64(8) // sentinel + size, both as Int
	prev := -1
	for i, by := range b.bits {
		if by == 0 {
			continue
		}
		delta := i - prev
		size += int64(vIntLen(int32(delta))) + 1
		prev = i
	}
	return size
}

func (b *BitVector) writeDGap(out store.IndexOutput) error {
	if err := out.WriteInt(bitVectorFormatDGap); err != nil {
		return err
	}
	if err := out.WriteInt(int32(b.size)); err != nil {
		return err
	}
	prev := -1
	for i, by := range b.bits {
		if by == 0 {
			continue
		}
		delta := int32(i - prev)
		if err := out.WriteVInt(delta); err != nil {
			return err
		}
		if err := out.WriteByte(by); err != nil {
			return err
		}
		prev = i
	}
	return nil
}

// ReadBitVector reconstructs a BitVector previously written by WriteTo.
func ReadBitVector(in store.IndexInput) (*BitVector, error) {
	format, err := in.ReadInt()
	if err != nil {
		return nil, err
	}
	switch format {
	case bitVectorFormatRaw:
		size, err := in.ReadInt()
		if err != nil {
			return nil, err
		}
		if _, err := in.ReadInt(); err != nil { // cached count, recomputed below
			return nil, err
		}
		bv := NewBitVector(int(size))
		if err := in.ReadBytes(bv.bits, true); err != nil {
			return nil, err
		}
		bv.count = -1
		return bv, nil
	case bitVectorFormatDGap:
		size, err := in.ReadInt()
		if err != nil {
			return nil, err
		}
		bv := NewBitVector(int(size))
		byteIdx := -1
		// The d-gap section runs to the end of this input's bounded
		// view (a whole file, or a CSIndexInput's [offset,offset+length)
		// window inside a compound file), so entries are read until
		// the cursor reaches Length().
		for in.FilePointer() < in.Length() {
			delta, err := in.ReadVInt()
			if err != nil {
				return nil, err
			}
			byteIdx += int(delta)
			if byteIdx < 0 || byteIdx >= len(bv.bits) {
				return nil, kerrors.NewCorruptIndexError(nil, "d-gap byte index out of range")
			}
			by, err := in.ReadByte()
			if err != nil {
				return nil, err
			}
			bv.bits[byteIdx] = by
		}
		bv.count = -1
		return bv, nil
	default:
		return nil, kerrors.NewCorruptIndexError(nil, "unknown BitVector format sentinel")
	}
}

func vIntLen(v int32) int {
	n := 1
	u := uint32(v)
	for u&^0x7f != 0 {
		n++
		u >>= 7
	}
	return n
}
