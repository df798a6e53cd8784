package remoteio

import (
	"errors"
	"fmt"
	"io"
	"net/http"
)

// HTTPRangeReader is an io.ReadSeeker + io.ReaderAt over a remote file
// served with HTTP range support, adapted from the teacher's
// HTTPRangeReader.
type HTTPRangeReader struct {
	url    string
	client *http.Client
	*offsetTracker
}

// OpenHTTPRange issues a HEAD request to url, requiring Accept-Ranges:
// bytes and a known Content-Length, then returns a reader over it.
func OpenHTTPRange(url string, client *http.Client) (*HTTPRangeReader, error) {
	if client == nil {
		client = http.DefaultClient
	}
	req, err := http.NewRequest(http.MethodHead, url, nil)
	if err != nil {
		return nil, fmt.Errorf("remoteio: build head request: %w", err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("remoteio: head request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("remoteio: head request returned %s", resp.Status)
	}
	if resp.Header.Get("Accept-Ranges") != "bytes" {
		return nil, errors.New("remoteio: server does not support byte ranges")
	}
	if resp.ContentLength <= 0 {
		return nil, errors.New("remoteio: server did not report a usable content length")
	}

	r := &HTTPRangeReader{url: url, client: client}
	r.offsetTracker = &offsetTracker{size: resp.ContentLength, readAt: r.readAt}
	return r, nil
}

func (r *HTTPRangeReader) ReadAt(p []byte, off int64) (int, error) { return r.readAt(p, off) }

func (r *HTTPRangeReader) readAt(p []byte, off int64) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	if off < 0 {
		return 0, fmt.Errorf("remoteio: http read at negative offset %d", off)
	}
	if off >= r.size {
		return 0, io.EOF
	}
	n := int64(len(p))
	if off+n > r.size {
		n = r.size - off
	}

	req, err := http.NewRequest(http.MethodGet, r.url, nil)
	if err != nil {
		return 0, err
	}
	req.Header.Set("Range", fmt.Sprintf("bytes=%d-%d", off, off+n-1))

	resp, err := r.client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusPartialContent {
		return 0, fmt.Errorf("remoteio: expected 206 Partial Content, got %s", resp.Status)
	}
	return io.ReadFull(resp.Body, p[:n])
}
