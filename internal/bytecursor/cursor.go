// Package bytecursor provides an endian-aware seekable byte stream over a
// TIFF source. It generalizes the teacher's BlobReader/HTTPRangeReader
// pattern (io.ReadSeeker + io.ReaderAt) into a single cursor type that reads
// and writes the fixed-width integers the TIFF container needs, honoring
// whichever byte order the file declares.
package bytecursor

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

// ErrOffsetOutOfRange is returned when a seek or read targets a position
// beyond the end of the underlying stream.
var ErrOffsetOutOfRange = errors.New("bytecursor: offset out of range")

// Source is the minimal capability a ByteCursor needs from its backing
// store. A local *os.File, the remoteio blob/HTTP readers, or an in-memory
// *bytes.Reader (wrapped to add ReaderAt) all satisfy it.
type Source interface {
	io.ReadSeeker
	io.ReaderAt
}

// WritableSource additionally allows writing, for destinations being built
// by the IFD writer.
type WritableSource interface {
	Source
	io.WriterAt
	Truncate(size int64) error
}

// Cursor is a seekable, endian-aware view over a Source.
type Cursor struct {
	src   Source
	order binary.ByteOrder
	pos   int64
	size  int64
}

// New wraps src, defaulting to little-endian until SetEndian is called (the
// TIFF header's byte-order marker is always the first thing read).
func New(src Source) (*Cursor, error) {
	size, err := src.Seek(0, io.SeekEnd)
	if err != nil {
		return nil, fmt.Errorf("bytecursor: determine size: %w", err)
	}
	if _, err := src.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("bytecursor: rewind: %w", err)
	}
	return &Cursor{src: src, order: binary.LittleEndian, size: size}, nil
}

// SetEndian changes the byte order used to decode subsequent fixed-width
// reads and writes.
func (c *Cursor) SetEndian(order binary.ByteOrder) { c.order = order }

// Order returns the cursor's current byte order.
func (c *Cursor) Order() binary.ByteOrder { return c.order }

// Size returns the total length of the underlying stream.
func (c *Cursor) Size() int64 { return c.size }

// Tell returns the current logical offset.
func (c *Cursor) Tell() int64 { return c.pos }

// Seek moves the cursor to offset, which must lie within [0, Size()].
func (c *Cursor) Seek(offset int64) error {
	if offset < 0 || offset > c.size {
		return ErrOffsetOutOfRange
	}
	c.pos = offset
	return nil
}

// ReadBytes reads exactly n bytes at the current position and advances it.
func (c *Cursor) ReadBytes(n int) ([]byte, error) {
	if n < 0 || c.pos+int64(n) > c.size {
		return nil, ErrOffsetOutOfRange
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(io.NewSectionReader(c.src, c.pos, int64(n)), buf); err != nil {
		return nil, fmt.Errorf("bytecursor: short read at %d: %w", c.pos, err)
	}
	c.pos += int64(n)
	return buf, nil
}

// ReadAt reads n bytes at an absolute offset without moving the cursor.
func (c *Cursor) ReadAt(offset int64, n int) ([]byte, error) {
	if offset < 0 || n < 0 || offset+int64(n) > c.size {
		return nil, ErrOffsetOutOfRange
	}
	buf := make([]byte, n)
	if _, err := c.src.ReadAt(buf, offset); err != nil && err != io.EOF {
		return nil, fmt.Errorf("bytecursor: read at %d: %w", offset, err)
	}
	return buf, nil
}

func (c *Cursor) ReadU8() (uint8, error) {
	b, err := c.ReadBytes(1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

func (c *Cursor) ReadU16() (uint16, error) {
	b, err := c.ReadBytes(2)
	if err != nil {
		return 0, err
	}
	return c.order.Uint16(b), nil
}

func (c *Cursor) ReadU32() (uint32, error) {
	b, err := c.ReadBytes(4)
	if err != nil {
		return 0, err
	}
	return c.order.Uint32(b), nil
}

func (c *Cursor) ReadU64() (uint64, error) {
	b, err := c.ReadBytes(8)
	if err != nil {
		return 0, err
	}
	return c.order.Uint64(b), nil
}

// WriteAt writes p at an absolute offset into a writable source, extending
// the tracked size if the write runs past the current end.
func (c *Cursor) WriteAt(w WritableSource, offset int64, p []byte) error {
	if _, err := w.WriteAt(p, offset); err != nil {
		return fmt.Errorf("bytecursor: write at %d: %w", offset, err)
	}
	if end := offset + int64(len(p)); end > c.size {
		c.size = end
	}
	return nil
}
