package compression

import (
	"github.com/klauspost/compress/zstd"

	"github.com/mauricemojito/rasterkit/internal/tiff"
)

// ZstdCodec wraps klauspost/compress/zstd, the only zstd implementation
// this module's retrieval pack exercises (svanichkin-babe's codec.go pools
// zstd.NewWriter(nil)/zstd.NewReader(nil) the same way), matching the
// original Rust ZstdHandler's default compression level 3.
type ZstdCodec struct{}

func (ZstdCodec) Name() string { return "zstd" }

func (ZstdCodec) Decode(src []byte, decompressedSize int) ([]byte, error) {
	const op = "compression.Zstd.Decode"
	dec, err := zstd.NewReader(nil)
	if err != nil {
		return nil, tiff.Wrap(tiff.KindCodec, op, err)
	}
	defer dec.Close()
	dst, err := dec.DecodeAll(src, make([]byte, 0, decompressedSize))
	if err != nil {
		return nil, tiff.Wrap(tiff.KindCodec, op, err)
	}
	return dst, nil
}

func (ZstdCodec) Encode(src []byte) ([]byte, error) {
	const op = "compression.Zstd.Encode"
	enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return nil, tiff.Wrap(tiff.KindCodec, op, err)
	}
	defer enc.Close()
	return enc.EncodeAll(src, nil), nil
}
