package compression

import (
	"bufio"
	"bytes"
	"io"

	"github.com/mauricemojito/rasterkit/internal/tiff"
)

// PackBitsCodec implements the byte-oriented run-length scheme TIFF section
// 9 describes. Decode is grounded on mdouchement-tiff's unpackBits; Encode
// is its symmetric inverse, which that package (a pure reader) never
// needed to write.
type PackBitsCodec struct{}

func (PackBitsCodec) Name() string { return "packbits" }

func (PackBitsCodec) Decode(src []byte, decompressedSize int) ([]byte, error) {
	const op = "compression.PackBits.Decode"
	br := bufio.NewReader(bytes.NewReader(src))
	dst := make([]byte, 0, decompressedSize)
	buf := make([]byte, 128)

	for {
		b, err := br.ReadByte()
		if err != nil {
			if err == io.EOF {
				return dst, nil
			}
			return nil, tiff.Wrap(tiff.KindCodec, op, err)
		}
		code := int(int8(b))
		switch {
		case code >= 0:
			n, err := io.ReadFull(br, buf[:code+1])
			if err != nil {
				return nil, tiff.Wrap(tiff.KindCodec, op, err)
			}
			dst = append(dst, buf[:n]...)
		case code == -128:
			// No-op, per the TIFF spec.
		default:
			rep, err := br.ReadByte()
			if err != nil {
				return nil, tiff.Wrap(tiff.KindCodec, op, err)
			}
			for j := 0; j < 1-code; j++ {
				buf[j] = rep
			}
			dst = append(dst, buf[:1-code]...)
		}
	}
}

// Encode greedily picks literal runs vs repeat runs, never emitting a run
// longer than 128 bytes since PackBits encodes run length in a single
// signed byte.
func (PackBitsCodec) Encode(src []byte) ([]byte, error) {
	var dst bytes.Buffer
	i := 0
	for i < len(src) {
		runLen := 1
		for i+runLen < len(src) && runLen < 128 && src[i+runLen] == src[i] {
			runLen++
		}
		if runLen >= 2 {
			dst.WriteByte(byte(int8(1 - runLen)))
			dst.WriteByte(src[i])
			i += runLen
			continue
		}

		litStart := i
		litLen := 1
		i++
		for i < len(src) && litLen < 128 {
			// Stop the literal run as soon as a repeat of length >= 2 begins,
			// so that run gets its own PackBits repeat code next iteration.
			if i+1 < len(src) && src[i] == src[i+1] {
				break
			}
			litLen++
			i++
		}
		dst.WriteByte(byte(int8(litLen - 1)))
		dst.Write(src[litStart : litStart+litLen])
	}
	return dst.Bytes(), nil
}
