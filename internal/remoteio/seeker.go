// Package remoteio adapts the teacher's BlobReader and HTTPRangeReader
// (geotiff/blob_reader.go, geotiff/http_reader.go) into sources any
// bytecursor.Cursor can open, factoring their identical offset/seek
// bookkeeping into one embeddable type instead of duplicating it per
// transport.
package remoteio

import (
	"errors"
	"io"
	"sync"
)

// offsetTracker implements the sequential half of io.ReadSeeker (Seek plus
// offset bookkeeping for Read) on top of a stateless ReadAt, shared by both
// BlobReader and HTTPRangeReader since they differ only in how readAt
// actually fetches bytes.
type offsetTracker struct {
	mu     sync.Mutex
	offset int64
	size   int64
	readAt func(p []byte, off int64) (int, error)
}

func (t *offsetTracker) Read(p []byte) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.offset >= t.size {
		return 0, io.EOF
	}
	n, err := t.readAt(p, t.offset)
	if n > 0 {
		t.offset += int64(n)
	}
	return n, err
}

func (t *offsetTracker) Seek(offset int64, whence int) (int64, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	var newOffset int64
	switch whence {
	case io.SeekStart:
		newOffset = offset
	case io.SeekCurrent:
		newOffset = t.offset + offset
	case io.SeekEnd:
		newOffset = t.size + offset
	default:
		return 0, errors.New("remoteio: invalid whence")
	}
	if newOffset < 0 {
		return 0, errors.New("remoteio: cannot seek to negative offset")
	}
	t.offset = newOffset
	return t.offset, nil
}
