package index

import (
	"github.com/kestrelsearch/kestrel/core/kerrors"
	"github.com/kestrelsearch/kestrel/core/store"
)

// csIndexInput is the bounded [offset, offset+length) view of a
// compound file's sub-file, built over a cloned parent IndexInput.
// Reads past the bounded end fail rather than silently reading into
// the next sub-file.
type csIndexInput struct {
	parent store.IndexInput
	offset int64
	length int64
	pos    int64 // logical position within [0, length)
}

func newCSIndexInput(parent store.IndexInput, offset, length int64) *csIndexInput {
	return &csIndexInput{parent: parent, offset: offset, length: length}
}

func (c *csIndexInput) sync() error {
	if c.parent.FilePointer() != c.offset+c.pos {
		return c.parent.Seek(c.offset + c.pos)
	}
	return nil
}

func (c *csIndexInput) checkBound(n int64) error {
	if c.pos+n > c.length {
		return kerrors.NewOutOfBoundsError(int(c.pos+n), int(c.length))
	}
	return nil
}

func (c *csIndexInput) ReadByte() (byte, error) {
	if err := c.checkBound(1); err != nil {
		return 0, err
	}
	if err := c.sync(); err != nil {
		return 0, err
	}
	b, err := c.parent.ReadByte()
	if err != nil {
		return 0, err
	}
	c.pos++
	return b, nil
}

func (c *csIndexInput) ReadBytes(buf []byte, useBuffer bool) error {
	if err := c.checkBound(int64(len(buf))); err != nil {
		return err
	}
	if err := c.sync(); err != nil {
		return err
	}
	if err := c.parent.ReadBytes(buf, useBuffer); err != nil {
		return err
	}
	c.pos += int64(len(buf))
	return nil
}

func (c *csIndexInput) ReadInt() (int32, error) {
	var buf [4]byte
	if err := c.ReadBytes(buf[:], true); err != nil {
		return 0, err
	}
	return int32(buf[0])<<24 | int32(buf[1])<<16 | int32(buf[2])<<8 | int32(buf[3]), nil
}

func (c *csIndexInput) ReadLong() (int64, error) {
	hi, err := c.ReadInt()
	if err != nil {
		return 0, err
	}
	lo, err := c.ReadInt()
	if err != nil {
		return 0, err
	}
	return int64(uint32(hi))<<32 | int64(uint32(lo)), nil
}

func (c *csIndexInput) ReadVInt() (int32, error) {
	shift := uint(0)
	result := int32(0)
	for {
		b, err := c.ReadByte()
		if err != nil {
			return 0, err
		}
		result |= int32(b&0x7f) << shift
		if b&0x80 == 0 {
			return result, nil
		}
		shift += 7
	}
}

func (c *csIndexInput) ReadVLong() (int64, error) {
	shift := uint(0)
	result := int64(0)
	for {
		b, err := c.ReadByte()
		if err != nil {
			return 0, err
		}
		result |= int64(b&0x7f) << shift
		if b&0x80 == 0 {
			return result, nil
		}
		shift += 7
	}
}

func (c *csIndexInput) ReadString() (string, error) {
	n, err := c.ReadVInt()
	if err != nil {
		return "", err
	}
	runes := make([]rune, 0, n)
	for i := int32(0); i < n; i++ {
		b0, err := c.ReadByte()
		if err != nil {
			return "", err
		}
		switch {
		case b0 < 0x80:
			runes = append(runes, rune(b0))
		case b0&0xE0 == 0xC0:
			b1, err := c.ReadByte()
			if err != nil {
				return "", err
			}
			runes = append(runes, rune(b0&0x1F)<<6|rune(b1&0x3F))
		default:
			b1, err := c.ReadByte()
			if err != nil {
				return "", err
			}
			b2, err := c.ReadByte()
			if err != nil {
				return "", err
			}
			runes = append(runes, rune(b0&0x0F)<<12|rune(b1&0x3F)<<6|rune(b2&0x3F))
		}
	}
	return string(runes), nil
}

func (c *csIndexInput) Seek(pos int64) error {
	if pos < 0 || pos > c.length {
		return kerrors.NewOutOfBoundsError(int(pos), int(c.length))
	}
	c.pos = pos
	return nil
}

func (c *csIndexInput) FilePointer() int64 { return c.pos }
func (c *csIndexInput) Length() int64      { return c.length }

func (c *csIndexInput) Clone() store.IndexInput {
	return &csIndexInput{parent: c.parent.Clone(), offset: c.offset, length: c.length, pos: c.pos}
}

func (c *csIndexInput) CopyBytes(out store.IndexOutput, n int64) error {
	if err := c.checkBound(n); err != nil {
		return err
	}
	if err := c.sync(); err != nil {
		return err
	}
	if err := c.parent.CopyBytes(out, n); err != nil {
		return err
	}
	c.pos += n
	return nil
}

func (c *csIndexInput) Close() error { return c.parent.Close() }
