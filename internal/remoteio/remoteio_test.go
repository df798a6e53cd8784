package remoteio

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"gocloud.dev/blob/memblob"
)

func TestOffsetTrackerReadAdvancesOffset(t *testing.T) {
	data := []byte("0123456789")
	tr := &offsetTracker{size: int64(len(data)), readAt: func(p []byte, off int64) (int, error) {
		if off >= int64(len(data)) {
			return 0, io.EOF
		}
		return copy(p, data[off:]), nil
	}}

	buf := make([]byte, 4)
	n, err := tr.Read(buf)
	if err != nil || n != 4 || string(buf) != "0123" {
		t.Fatalf("Read = (%d, %v) %q, want (4, nil) %q", n, err, buf, "0123")
	}
	n, err = tr.Read(buf)
	if err != nil || n != 4 || string(buf) != "4567" {
		t.Fatalf("second Read = (%d, %v) %q, want (4, nil) %q", n, err, buf, "4567")
	}
}

func TestOffsetTrackerSeekModes(t *testing.T) {
	tr := &offsetTracker{size: 100}
	if off, _ := tr.Seek(10, io.SeekStart); off != 10 {
		t.Fatalf("SeekStart(10) = %d, want 10", off)
	}
	if off, _ := tr.Seek(5, io.SeekCurrent); off != 15 {
		t.Fatalf("SeekCurrent(5) from 10 = %d, want 15", off)
	}
	if off, _ := tr.Seek(-10, io.SeekEnd); off != 90 {
		t.Fatalf("SeekEnd(-10) = %d, want 90", off)
	}
	if _, err := tr.Seek(-1, io.SeekStart); err == nil {
		t.Fatalf("Seek to negative offset should fail")
	}
}

func TestOffsetTrackerReadAtEOF(t *testing.T) {
	tr := &offsetTracker{size: 4, readAt: func(p []byte, off int64) (int, error) { return 0, io.EOF }}
	tr.offset = 4
	if _, err := tr.Read(make([]byte, 1)); err != io.EOF {
		t.Fatalf("Read at end-of-stream offset = %v, want io.EOF", err)
	}
}

func TestHTTPRangeReaderReadAt(t *testing.T) {
	const body = "the quick brown fox jumps over the lazy dog"
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodHead {
			w.Header().Set("Accept-Ranges", "bytes")
			w.Header().Set("Content-Length", "44")
			w.WriteHeader(http.StatusOK)
			return
		}
		rng := r.Header.Get("Range")
		if rng == "" {
			t.Errorf("GET request missing Range header")
		}
		w.Header().Set("Content-Range", "bytes 4-8/44")
		w.WriteHeader(http.StatusPartialContent)
		_, _ = w.Write([]byte(body[4:9]))
	}))
	defer srv.Close()

	r, err := OpenHTTPRange(srv.URL, srv.Client())
	if err != nil {
		t.Fatalf("OpenHTTPRange: %v", err)
	}
	buf := make([]byte, 5)
	n, err := r.ReadAt(buf, 4)
	if err != nil {
		t.Fatalf("ReadAt: %v", err)
	}
	if n != 5 || string(buf) != "quick" {
		t.Fatalf("ReadAt = (%d) %q, want (5) %q", n, buf, "quick")
	}
}

func TestHTTPRangeReaderRejectsServerWithoutRangeSupport(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Length", "10")
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	if _, err := OpenHTTPRange(srv.URL, srv.Client()); err == nil {
		t.Fatalf("OpenHTTPRange accepted a server advertising no Accept-Ranges")
	}
}

func TestHTTPRangeReaderSeekAndRead(t *testing.T) {
	const body = "abcdefghij"
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodHead {
			w.Header().Set("Accept-Ranges", "bytes")
			w.Header().Set("Content-Length", "10")
			w.WriteHeader(http.StatusOK)
			return
		}
		w.WriteHeader(http.StatusPartialContent)
		_, _ = w.Write([]byte(body[3:6]))
	}))
	defer srv.Close()

	r, err := OpenHTTPRange(srv.URL, srv.Client())
	if err != nil {
		t.Fatalf("OpenHTTPRange: %v", err)
	}
	if _, err := r.Seek(3, io.SeekStart); err != nil {
		t.Fatalf("Seek: %v", err)
	}
	buf := make([]byte, 3)
	if _, err := io.ReadFull(r, buf); err != nil {
		t.Fatalf("Read after Seek: %v", err)
	}
	if string(buf) != "def" {
		t.Fatalf("Read after Seek = %q, want %q", buf, "def")
	}
}

func TestBlobReaderReadAt(t *testing.T) {
	ctx := context.Background()
	bucket := memblob.OpenBucket(nil)
	defer bucket.Close()
	if err := bucket.WriteAll(ctx, "dem.tif", []byte("GeoTIFF payload bytes"), nil); err != nil {
		t.Fatalf("WriteAll: %v", err)
	}

	r, err := OpenBlob(ctx, bucket, "dem.tif")
	if err != nil {
		t.Fatalf("OpenBlob: %v", err)
	}
	buf := make([]byte, 7)
	n, err := r.ReadAt(buf, 8)
	if err != nil {
		t.Fatalf("ReadAt: %v", err)
	}
	if n != 7 || !bytes.Equal(buf, []byte("payload")) {
		t.Fatalf("ReadAt = (%d) %q, want (7) %q", n, buf, "payload")
	}
}

func TestBlobReaderReadAtPastEndReturnsEOF(t *testing.T) {
	ctx := context.Background()
	bucket := memblob.OpenBucket(nil)
	defer bucket.Close()
	if err := bucket.WriteAll(ctx, "small.tif", []byte("abc"), nil); err != nil {
		t.Fatalf("WriteAll: %v", err)
	}
	r, err := OpenBlob(ctx, bucket, "small.tif")
	if err != nil {
		t.Fatalf("OpenBlob: %v", err)
	}
	if _, err := r.ReadAt(make([]byte, 1), 10); err != io.EOF {
		t.Fatalf("ReadAt past end = %v, want io.EOF", err)
	}
}

func TestBlobReaderMissingKey(t *testing.T) {
	ctx := context.Background()
	bucket := memblob.OpenBucket(nil)
	defer bucket.Close()
	if _, err := OpenBlob(ctx, bucket, "missing.tif"); err == nil {
		t.Fatalf("OpenBlob accepted a key that does not exist")
	}
}
