package compression

import "github.com/mauricemojito/rasterkit/internal/tiff"

// NoneCodec passes strip/tile bytes through unchanged, matching the
// teacher's fetchAndDecompressTile "Uncompressed" branch.
type NoneCodec struct{}

func (NoneCodec) Name() string { return "none" }

func (NoneCodec) Decode(src []byte, decompressedSize int) ([]byte, error) {
	if len(src) != decompressedSize {
		return nil, tiff.Newf(tiff.KindCodec, "compression.None.Decode",
			"expected %d uncompressed bytes, got %d", decompressedSize, len(src))
	}
	return src, nil
}

func (NoneCodec) Encode(src []byte) ([]byte, error) {
	return src, nil
}
