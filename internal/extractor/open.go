package extractor

import (
	"io"
	"os"
	"strings"

	"github.com/mauricemojito/rasterkit/internal/bytecursor"
	"github.com/mauricemojito/rasterkit/internal/remoteio"
)

// OpenSource opens path as a bytecursor.Source: an http(s) URL is read via
// ranged GETs, anything else is treated as a local file path, directly
// generalizing the teacher's setupTIFFReader dispatch.
func OpenSource(path string) (bytecursor.Source, io.Closer, error) {
	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		r, err := remoteio.OpenHTTPRange(path, nil)
		if err != nil {
			return nil, nil, err
		}
		return r, noopCloser{}, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	return f, f, nil
}

type noopCloser struct{}

func (noopCloser) Close() error { return nil }
