package bytecursor

import (
	"bytes"
	"encoding/binary"
	"testing"
)

func TestCursorReadFixedWidth(t *testing.T) {
	data := []byte{0x49, 0x49, 0x2a, 0x00, 0x08, 0x00, 0x00, 0x00}
	c, err := New(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	c.SetEndian(binary.LittleEndian)

	marker, err := c.ReadU16()
	if err != nil || marker != 0x4949 {
		t.Fatalf("ReadU16 marker = %#x, %v", marker, err)
	}
	version, err := c.ReadU16()
	if err != nil || version != 42 {
		t.Fatalf("ReadU16 version = %d, %v", version, err)
	}
	off, err := c.ReadU32()
	if err != nil || off != 8 {
		t.Fatalf("ReadU32 offset = %d, %v", off, err)
	}
	if got := c.Tell(); got != 8 {
		t.Fatalf("Tell() = %d, want 8", got)
	}
}

func TestCursorSeekOutOfRange(t *testing.T) {
	c, err := New(bytes.NewReader([]byte{1, 2, 3, 4}))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := c.Seek(5); err != ErrOffsetOutOfRange {
		t.Fatalf("Seek(5) = %v, want ErrOffsetOutOfRange", err)
	}
	if err := c.Seek(4); err != nil {
		t.Fatalf("Seek(4) (end-of-stream) should be valid: %v", err)
	}
}

func TestCursorReadAtDoesNotMoveCursor(t *testing.T) {
	c, err := New(bytes.NewReader([]byte{10, 20, 30, 40, 50}))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := c.Seek(2); err != nil {
		t.Fatalf("Seek: %v", err)
	}
	b, err := c.ReadAt(0, 2)
	if err != nil {
		t.Fatalf("ReadAt: %v", err)
	}
	if !bytes.Equal(b, []byte{10, 20}) {
		t.Fatalf("ReadAt = %v, want [10 20]", b)
	}
	if got := c.Tell(); got != 2 {
		t.Fatalf("Tell() after ReadAt = %d, want unchanged 2", got)
	}
}

// memFile is a minimal in-memory WritableSource for exercising WriteAt.
type memFile struct {
	data []byte
	pos  int64
}

func (m *memFile) Seek(offset int64, whence int) (int64, error) {
	switch whence {
	case 0:
		m.pos = offset
	case 1:
		m.pos += offset
	case 2:
		m.pos = int64(len(m.data)) + offset
	}
	return m.pos, nil
}

func (m *memFile) Read(p []byte) (int, error) {
	n := copy(p, m.data[m.pos:])
	m.pos += int64(n)
	if n == 0 {
		return 0, bytes.ErrTooLarge
	}
	return n, nil
}

func (m *memFile) ReadAt(p []byte, off int64) (int, error) {
	if off >= int64(len(m.data)) {
		return 0, nil
	}
	n := copy(p, m.data[off:])
	return n, nil
}

func (m *memFile) WriteAt(p []byte, off int64) (int, error) {
	end := off + int64(len(p))
	if end > int64(len(m.data)) {
		grown := make([]byte, end)
		copy(grown, m.data)
		m.data = grown
	}
	copy(m.data[off:end], p)
	return len(p), nil
}

func (m *memFile) Truncate(size int64) error {
	if size < int64(len(m.data)) {
		m.data = m.data[:size]
	}
	return nil
}

func TestCursorWriteAtGrowsTrackedSize(t *testing.T) {
	c, err := New(bytes.NewReader(nil))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	f := &memFile{}
	if err := c.WriteAt(f, 4, []byte{1, 2, 3}); err != nil {
		t.Fatalf("WriteAt: %v", err)
	}
	if got, want := c.Size(), int64(7); got != want {
		t.Fatalf("Size() = %d, want %d", got, want)
	}
	if !bytes.Equal(f.data[4:7], []byte{1, 2, 3}) {
		t.Fatalf("WriteAt wrote %v, want [1 2 3]", f.data[4:7])
	}
}
