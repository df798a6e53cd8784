// Package compression implements the strip/tile payload codecs a TIFF file
// can declare via its Compression tag, grounded on the teacher's
// fetchAndDecompressTile (Uncompressed/DEFLATE via compress/zlib) and
// generalized with the PackBits and LZW variants neither the teacher nor
// the Rust original implement, plus ZStd for the gedtm30-style COG pipeline.
package compression

import "github.com/mauricemojito/rasterkit/internal/tiff"

// Codec decodes and encodes one strip or tile's worth of compressed bytes.
// decompressedSize is the exact byte length the caller expects back
// (rows * bytesPerRow for the strip/tile), used by codecs like PackBits and
// LZW that don't self-delimit the way a zlib stream does.
type Codec interface {
	Name() string
	Decode(src []byte, decompressedSize int) ([]byte, error)
	Encode(src []byte) ([]byte, error)
}

// ForCompression resolves the Codec for a TIFF Compression tag value,
// mirroring the original Rust CompressionHandlerFactory::get_handler
// dispatch (code 1/8/14) widened with the PackBits and LZW codes it leaves
// unimplemented.
func ForCompression(code int) (Codec, error) {
	switch code {
	case tiff.CompressionNone:
		return NoneCodec{}, nil
	case tiff.CompressionPackBits:
		return PackBitsCodec{}, nil
	case tiff.CompressionLZW:
		return LZWCodec{}, nil
	case tiff.CompressionDeflate:
		return DeflateCodec{}, nil
	case tiff.CompressionZSTD:
		return ZstdCodec{}, nil
	default:
		return nil, tiff.Newf(tiff.KindUnsupported, "compression.ForCompression", "unsupported compression code %d", code)
	}
}
