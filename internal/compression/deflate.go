package compression

import (
	"bytes"
	"compress/zlib"
	"io"

	"github.com/mauricemojito/rasterkit/internal/tiff"
)

// DeflateCodec wraps compress/zlib, matching both the teacher's
// fetchAndDecompressTile DEFLATE branch and the original Rust
// AdobeDeflateHandler (flate2's zlib wrapper).
type DeflateCodec struct{}

func (DeflateCodec) Name() string { return "deflate" }

func (DeflateCodec) Decode(src []byte, decompressedSize int) ([]byte, error) {
	const op = "compression.Deflate.Decode"
	r, err := zlib.NewReader(bytes.NewReader(src))
	if err != nil {
		return nil, tiff.Wrap(tiff.KindCodec, op, err)
	}
	defer r.Close()
	dst := make([]byte, 0, decompressedSize)
	buf := bytes.NewBuffer(dst)
	if _, err := io.Copy(buf, r); err != nil {
		return nil, tiff.Wrap(tiff.KindCodec, op, err)
	}
	return buf.Bytes(), nil
}

func (DeflateCodec) Encode(src []byte) ([]byte, error) {
	const op = "compression.Deflate.Encode"
	var buf bytes.Buffer
	w := zlib.NewWriter(&buf)
	if _, err := w.Write(src); err != nil {
		return nil, tiff.Wrap(tiff.KindCodec, op, err)
	}
	if err := w.Close(); err != nil {
		return nil, tiff.Wrap(tiff.KindCodec, op, err)
	}
	return buf.Bytes(), nil
}
