package remoteio

import (
	"context"
	"fmt"
	"io"

	"gocloud.dev/blob"
)

// BlobReader is an io.ReadSeeker + io.ReaderAt over a gocloud.dev/blob
// object, so a raster stored in S3/GCS/Azure can be opened the same way a
// local file is, adapted from the teacher's BlobReader.
type BlobReader struct {
	ctx    context.Context
	bucket *blob.Bucket
	key    string
	*offsetTracker
}

// OpenBlob resolves key's size from bucket and returns a reader over it.
func OpenBlob(ctx context.Context, bucket *blob.Bucket, key string) (*BlobReader, error) {
	attrs, err := bucket.Attributes(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("remoteio: stat blob %q: %w", key, err)
	}
	r := &BlobReader{ctx: ctx, bucket: bucket, key: key}
	r.offsetTracker = &offsetTracker{size: attrs.Size, readAt: r.readAt}
	return r, nil
}

func (r *BlobReader) ReadAt(p []byte, off int64) (int, error) { return r.readAt(p, off) }

func (r *BlobReader) readAt(p []byte, off int64) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	if off < 0 {
		return 0, fmt.Errorf("remoteio: blob read at negative offset %d", off)
	}
	if off >= r.size {
		return 0, io.EOF
	}
	length := int64(len(p))
	if off+length > r.size {
		length = r.size - off
	}
	rdr, err := r.bucket.NewRangeReader(r.ctx, r.key, off, length, nil)
	if err != nil {
		return 0, fmt.Errorf("remoteio: open blob range reader: %w", err)
	}
	defer rdr.Close()
	return io.ReadFull(rdr, p[:length])
}
