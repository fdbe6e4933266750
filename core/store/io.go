package store

import (
	"encoding/binary"
	"strings"

	"github.com/kestrelsearch/kestrel/core/kerrors"
)

// IndexInput is a seekable, typed random-access reader over a named
// file. Every read encoding is big-endian unless documented otherwise;
// VInt/VLong use a 7-bit-per-byte continuation scheme.
type IndexInput interface {
	ReadByte() (byte, error)
	// ReadBytes fills buf[:len(buf)] from the current position,
	// optionally routing the read through the internal buffer.
	ReadBytes(buf []byte, useBuffer bool) error
	ReadInt() (int32, error)
	ReadLong() (int64, error)
	ReadVInt() (int32, error)
	ReadVLong() (int64, error)
	ReadString() (string, error)
	// Seek repositions the logical cursor.
	Seek(pos int64) error
	// FilePointer returns the current logical cursor position.
	FilePointer() int64
	// Length returns the total byte length of the underlying file.
	Length() int64
	// Clone returns an independent reader over the same backing file
	// with its own buffer and position.
	Clone() IndexInput
	// CopyBytes transfers n bytes from the current position to out,
	// flushing any buffered prefix first.
	CopyBytes(out IndexOutput, n int64) error
	Close() error
}

// IndexOutput is a sequential, typed writer over a named file, with
// encodings matching IndexInput's read side byte-for-byte.
type IndexOutput interface {
	WriteByte(b byte) error
	WriteBytes(buf []byte) error
	WriteInt(v int32) error
	WriteLong(v int64) error
	WriteVInt(v int32) error
	WriteVLong(v int64) error
	WriteString(s string) error
	// WriteChars writes raw UTF-8 bytes without a length prefix; used
	// only where the reader already knows the length out of band.
	WriteChars(s string) error
	// FilePointer returns the number of bytes written so far.
	FilePointer() int64
	Close() error
}

// DefaultBufferSize is the buffer size BufferedIndexInput/Output use
// when the caller passes 0.
const DefaultBufferSize = 1024

// rawReader is the minimal primitive a concrete backend (RAM, file)
// must supply; BufferedIndexInput layers buffering and typed decoding
// on top of it.
type rawReader interface {
	readAt(p []byte, off int64) (int, error)
	length() int64
	clone() rawReader
	close() error
}

// BufferedIndexInput implements IndexInput's typed reads and
// buffering policy over an arbitrary rawReader backend.
type BufferedIndexInput struct {
	backend    rawReader
	bufferSize int
	buf        []byte
	bufStart   int64 // file offset of buf[0]
	bufLen     int   // valid bytes in buf
	bufPos     int   // read cursor within buf
	pos        int64 // logical file position when buffer is empty/stale
}

func newBufferedIndexInput(backend rawReader, bufferSize int) *BufferedIndexInput {
	if bufferSize <= 0 {
		bufferSize = DefaultBufferSize
	}
	return &BufferedIndexInput{
		backend:    backend,
		bufferSize: bufferSize,
		buf:        make([]byte, bufferSize),
		bufStart:   0,
		bufLen:     0,
		bufPos:     0,
	}
}

func (b *BufferedIndexInput) currentPos() int64 {
	if b.bufLen > 0 {
		return b.bufStart + int64(b.bufPos)
	}
	return b.pos
}

func (b *BufferedIndexInput) FilePointer() int64 { return b.currentPos() }
func (b *BufferedIndexInput) Length() int64      { return b.backend.length() }

func (b *BufferedIndexInput) refill() error {
	pos := b.currentPos()
	toRead := b.bufferSize
	remaining := b.backend.length() - pos
	if int64(toRead) > remaining {
		toRead = int(remaining)
	}
	if toRead <= 0 {
		b.bufStart = pos
		b.bufLen = 0
		b.bufPos = 0
		b.pos = pos
		return kerrors.NewIOError(nil, "read past end of file")
	}
	n, err := b.backend.readAt(b.buf[:toRead], pos)
	if err != nil {
		return kerrors.NewIOError(err, "refill")
	}
	b.bufStart = pos
	b.bufLen = n
	b.bufPos = 0
	b.pos = pos
	return nil
}

func (b *BufferedIndexInput) ReadByte() (byte, error) {
	if b.bufPos >= b.bufLen {
		if err := b.refill(); err != nil {
			return 0, err
		}
	}
	c := b.buf[b.bufPos]
	b.bufPos++
	return c, nil
}

// ReadBytes fills buf per §4.5: a memcpy when the request fits in what
// is already buffered; a refill-then-memcpy when it is smaller than
// the buffer and useBuffer is set; otherwise a direct backend read
// that bypasses the buffer entirely.
func (b *BufferedIndexInput) ReadBytes(buf []byte, useBuffer bool) error {
	need := len(buf)
	avail := b.bufLen - b.bufPos
	if need <= avail {
		copy(buf, b.buf[b.bufPos:b.bufPos+need])
		b.bufPos += need
		return nil
	}
	if need < b.bufferSize && useBuffer {
		// Drain what's buffered, then refill and continue.
		copy(buf, b.buf[b.bufPos:b.bufLen])
		filled := avail
		b.pos = b.currentPos() + int64(avail)
		b.bufLen = 0
		b.bufPos = 0
		if err := b.refill(); err != nil {
			return err
		}
		rest := need - filled
		copy(buf[filled:], b.buf[b.bufPos:b.bufPos+rest])
		b.bufPos += rest
		return nil
	}
	// Bypass: direct backend read from the current logical position.
	pos := b.currentPos()
	n, err := b.backend.readAt(buf, pos)
	if err != nil {
		return kerrors.NewIOError(err, "ReadBytes bypass")
	}
	b.pos = pos + int64(n)
	b.bufLen = 0
	b.bufPos = 0
	if n < need {
		return kerrors.NewIOError(nil, "short read")
	}
	return nil
}

func (b *BufferedIndexInput) ReadInt() (int32, error) {
	var tmp [4]byte
	if err := b.ReadBytes(tmp[:], true); err != nil {
		return 0, err
	}
	return int32(binary.BigEndian.Uint32(tmp[:])), nil
}

func (b *BufferedIndexInput) ReadLong() (int64, error) {
	var tmp [8]byte
	if err := b.ReadBytes(tmp[:], true); err != nil {
		return 0, err
	}
	return int64(binary.BigEndian.Uint64(tmp[:])), nil
}

// ReadVInt decodes a 1-5 byte variable-length unsigned integer: each
// byte contributes its low 7 bits, ordered least-significant group
// first, with the high bit set iff another byte follows.
func (b *BufferedIndexInput) ReadVInt() (int32, error) {
	shift := uint(0)
	result := int32(0)
	for {
		c, err := b.ReadByte()
		if err != nil {
			return 0, err
		}
		result |= int32(c&0x7f) << shift
		if c&0x80 == 0 {
			return result, nil
		}
		shift += 7
	}
}

// ReadVLong is ReadVInt's 64-bit counterpart, up to 9 bytes.
func (b *BufferedIndexInput) ReadVLong() (int64, error) {
	shift := uint(0)
	result := int64(0)
	for {
		c, err := b.ReadByte()
		if err != nil {
			return 0, err
		}
		result |= int64(c&0x7f) << shift
		if c&0x80 == 0 {
			return result, nil
		}
		shift += 7
	}
}

// ReadString reads a VInt length in UTF-16 code units followed by that
// many modified-UTF-8-encoded code units. A high surrogate (0xD800-
// 0xDBFF) is paired with the low surrogate that follows it to
// reconstruct the original non-BMP rune, mirroring how WriteChars
// split it on the way out.
func (b *BufferedIndexInput) ReadString() (string, error) {
	n, err := b.ReadVInt()
	if err != nil {
		return "", err
	}
	var sb strings.Builder
	for i := int32(0); i < n; i++ {
		cu, err := b.readUTF8CodeUnit()
		if err != nil {
			return "", err
		}
		if cu >= 0xD800 && cu <= 0xDBFF && i+1 < n {
			lo, err := b.readUTF8CodeUnit()
			if err != nil {
				return "", err
			}
			i++
			sb.WriteRune(0x10000 + (cu-0xD800)<<10 + (lo - 0xDC00))
			continue
		}
		sb.WriteRune(cu)
	}
	return sb.String(), nil
}

func (b *BufferedIndexInput) readUTF8CodeUnit() (rune, error) {
	c0, err := b.ReadByte()
	if err != nil {
		return 0, err
	}
	switch {
	case c0 < 0x80:
		return rune(c0), nil
	case c0&0xE0 == 0xC0:
		c1, err := b.ReadByte()
		if err != nil {
			return 0, err
		}
		return rune(c0&0x1F)<<6 | rune(c1&0x3F), nil
	default:
		c1, err := b.ReadByte()
		if err != nil {
			return 0, err
		}
		c2, err := b.ReadByte()
		if err != nil {
			return 0, err
		}
		return rune(c0&0x0F)<<12 | rune(c1&0x3F)<<6 | rune(c2&0x3F), nil
	}
}

func (b *BufferedIndexInput) Seek(pos int64) error {
	if pos >= b.bufStart && pos < b.bufStart+int64(b.bufLen) {
		b.bufPos = int(pos - b.bufStart)
		return nil
	}
	b.bufLen = 0
	b.bufPos = 0
	b.pos = pos
	return nil
}

func (b *BufferedIndexInput) Clone() IndexInput {
	return &BufferedIndexInput{
		backend:    b.backend.clone(),
		bufferSize: b.bufferSize,
		buf:        make([]byte, b.bufferSize),
		pos:        b.currentPos(),
	}
}

// CopyBytes flushes any buffered prefix into out, then transfers the
// remainder directly from the backend in bufferSize-sized chunks.
func (b *BufferedIndexInput) CopyBytes(out IndexOutput, n int64) error {
	chunk := make([]byte, b.bufferSize)
	remaining := n
	for remaining > 0 {
		toRead := int64(len(chunk))
		if remaining < toRead {
			toRead = remaining
		}
		if err := b.ReadBytes(chunk[:toRead], false); err != nil {
			return err
		}
		if err := out.WriteBytes(chunk[:toRead]); err != nil {
			return err
		}
		remaining -= toRead
	}
	return nil
}

func (b *BufferedIndexInput) Close() error { return b.backend.close() }

// rawWriter is the minimal primitive a concrete backend must supply
// for sequential writing; BufferedIndexOutput layers buffering and
// typed encoding on top of it.
type rawWriter interface {
	append(p []byte) error
	close() error
}

// BufferedIndexOutput implements IndexOutput's typed writes and
// buffering policy over an arbitrary rawWriter backend.
type BufferedIndexOutput struct {
	backend    rawWriter
	bufferSize int
	buf        []byte
	bufLen     int
	written    int64
}

func newBufferedIndexOutput(backend rawWriter, bufferSize int) *BufferedIndexOutput {
	if bufferSize <= 0 {
		bufferSize = DefaultBufferSize
	}
	return &BufferedIndexOutput{
		backend:    backend,
		bufferSize: bufferSize,
		buf:        make([]byte, bufferSize),
	}
}

func (o *BufferedIndexOutput) flush() error {
	if o.bufLen == 0 {
		return nil
	}
	if err := o.backend.append(o.buf[:o.bufLen]); err != nil {
		return kerrors.NewIOError(err, "flush")
	}
	o.bufLen = 0
	return nil
}

func (o *BufferedIndexOutput) FilePointer() int64 { return o.written }

func (o *BufferedIndexOutput) WriteByte(b byte) error {
	if o.bufLen >= len(o.buf) {
		if err := o.flush(); err != nil {
			return err
		}
	}
	o.buf[o.bufLen] = b
	o.bufLen++
	o.written++
	return nil
}

func (o *BufferedIndexOutput) WriteBytes(buf []byte) error {
	if len(buf) >= len(o.buf) {
		if err := o.flush(); err != nil {
			return err
		}
		if err := o.backend.append(buf); err != nil {
			return kerrors.NewIOError(err, "WriteBytes bypass")
		}
		o.written += int64(len(buf))
		return nil
	}
	for _, c := range buf {
		if err := o.WriteByte(c); err != nil {
			return err
		}
	}
	return nil
}

func (o *BufferedIndexOutput) WriteInt(v int32) error {
	var tmp [4]byte
	binary.BigEndian.PutUint32(tmp[:], uint32(v))
	return o.WriteBytes(tmp[:])
}

func (o *BufferedIndexOutput) WriteLong(v int64) error {
	var tmp [8]byte
	binary.BigEndian.PutUint64(tmp[:], uint64(v))
	return o.WriteBytes(tmp[:])
}

func (o *BufferedIndexOutput) WriteVInt(v int32) error {
	u := uint32(v)
	for {
		if u&^0x7f == 0 {
			return o.WriteByte(byte(u))
		}
		if err := o.WriteByte(byte(u&0x7f | 0x80)); err != nil {
			return err
		}
		u >>= 7
	}
}

func (o *BufferedIndexOutput) WriteVLong(v int64) error {
	u := uint64(v)
	for {
		if u&^0x7f == 0 {
			return o.WriteByte(byte(u))
		}
		if err := o.WriteByte(byte(u&0x7f | 0x80)); err != nil {
			return err
		}
		u >>= 7
	}
}

// WriteString's length prefix counts UTF-16 code units, not Unicode
// code points: a non-BMP rune is written as a surrogate pair and so
// counts as 2, matching WriteChars's encoding below.
func (o *BufferedIndexOutput) WriteString(s string) error {
	n := 0
	for _, r := range s {
		if r >= 0x10000 {
			n += 2
		} else {
			n++
		}
	}
	if err := o.WriteVInt(int32(n)); err != nil {
		return err
	}
	return o.WriteChars(s)
}

func (o *BufferedIndexOutput) WriteChars(s string) error {
	for _, r := range s {
		switch {
		case r < 0x80:
			if err := o.WriteByte(byte(r)); err != nil {
				return err
			}
		case r < 0x800:
			if err := o.WriteByte(byte(0xC0 | r>>6)); err != nil {
				return err
			}
			if err := o.WriteByte(byte(0x80 | r&0x3F)); err != nil {
				return err
			}
		case r < 0x10000:
			if err := o.writeCodeUnit3(r); err != nil {
				return err
			}
		default:
			// Non-BMP: split into a UTF-16 surrogate pair and encode
			// each 16-bit half as its own 3-byte sequence.
			v := r - 0x10000
			hi := 0xD800 + (v >> 10)
			lo := 0xDC00 + (v & 0x3FF)
			if err := o.writeCodeUnit3(hi); err != nil {
				return err
			}
			if err := o.writeCodeUnit3(lo); err != nil {
				return err
			}
		}
	}
	return nil
}

// writeCodeUnit3 modified-UTF-8-encodes a single 16-bit code unit
// (0x800-0xFFFF), including lone surrogate halves, as 3 bytes.
func (o *BufferedIndexOutput) writeCodeUnit3(cu rune) error {
	if err := o.WriteByte(byte(0xE0 | cu>>12)); err != nil {
		return err
	}
	if err := o.WriteByte(byte(0x80 | (cu>>6)&0x3F)); err != nil {
		return err
	}
	return o.WriteByte(byte(0x80 | cu&0x3F))
}

func (o *BufferedIndexOutput) Close() error {
	if err := o.flush(); err != nil {
		return err
	}
	return o.backend.close()
}
