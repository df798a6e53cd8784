package raster

import (
	"encoding/binary"
	"math"

	"github.com/mauricemojito/rasterkit/internal/compression"
	"github.com/mauricemojito/rasterkit/internal/tiff"
)

// ChooseRowsPerStrip picks the writer's default strip height per spec.md
// §4.5: one row per strip when compression is none, or otherwise as many
// rows as fit in 8KiB uncompressed.
func ChooseRowsPerStrip(width, samplesPerPixel, bitsPerSample int, compressionCode int) int {
	if compressionCode == tiff.CompressionNone {
		return 1
	}
	rowBytes := width * samplesPerPixel * bitsPerSample / 8
	if rowBytes <= 0 {
		return 1
	}
	rows := 8192 / rowBytes
	if rows < 1 {
		rows = 1
	}
	return rows
}

// EncodeStrips partitions buf into horizontal bands of rowsPerStrip rows
// each, packs every band's samples into the wire byte layout bitsPerSample/
// sampleFormat/order describe, applies the forward predictor when
// requested, and compresses each band with codec — the inverse of
// Accessor.decodeUnit, generalizing the original Rust
// CompressionConverter::process_strips offset bookkeeping to an in-memory
// encode pass.
func EncodeStrips(buf *Buffer, rowsPerStrip, bitsPerSample, sampleFormat int, order binary.ByteOrder, predictor int, codec compression.Codec) ([][]byte, error) {
	const op = "raster.EncodeStrips"
	var strips [][]byte
	for y0 := 0; y0 < buf.Height; y0 += rowsPerStrip {
		y1 := y0 + rowsPerStrip
		if y1 > buf.Height {
			y1 = buf.Height
		}
		rows := y1 - y0
		raw := packRows(buf, y0, rows, bitsPerSample, sampleFormat, order)

		if predictor == tiff.PredictorHorizontal {
			if err := compression.ApplyHorizontalPredictor(raw, buf.Width, rows, buf.SamplesPerPixel, bitsPerSample, order); err != nil {
				return nil, err
			}
		}

		encoded, err := codec.Encode(raw)
		if err != nil {
			return nil, tiff.Wrap(tiff.KindCodec, op, err)
		}
		strips = append(strips, encoded)
	}
	return strips, nil
}

// packRows serializes rows [y0, y0+rows) of buf (float64, sample-major) to
// raw bytes in the wire layout bitsPerSample/sampleFormat/order describe,
// the write-side inverse of Accessor.typedSamples/valueAt.
func packRows(buf *Buffer, y0, rows, bitsPerSample, sampleFormat int, order binary.ByteOrder) []byte {
	n := buf.Width * rows * buf.SamplesPerPixel
	start := y0 * buf.Width * buf.SamplesPerPixel
	vals := buf.Values[start : start+n]

	switch {
	case sampleFormat == tiff.SampleFormatFloat && bitsPerSample == 32:
		out := make([]byte, n*4)
		for i, v := range vals {
			order.PutUint32(out[i*4:], math.Float32bits(float32(v)))
		}
		return out
	case sampleFormat == tiff.SampleFormatFloat && bitsPerSample == 64:
		out := make([]byte, n*8)
		for i, v := range vals {
			order.PutUint64(out[i*8:], math.Float64bits(v))
		}
		return out
	case sampleFormat == tiff.SampleFormatSigned && bitsPerSample == 32:
		out := make([]byte, n*4)
		for i, v := range vals {
			order.PutUint32(out[i*4:], uint32(int32(v)))
		}
		return out
	case sampleFormat == tiff.SampleFormatSigned && bitsPerSample == 16:
		out := make([]byte, n*2)
		for i, v := range vals {
			order.PutUint16(out[i*2:], uint16(int16(v)))
		}
		return out
	case bitsPerSample == 16:
		out := make([]byte, n*2)
		for i, v := range vals {
			order.PutUint16(out[i*2:], uint16(v))
		}
		return out
	case bitsPerSample == 32:
		out := make([]byte, n*4)
		for i, v := range vals {
			order.PutUint32(out[i*4:], uint32(v))
		}
		return out
	default:
		out := make([]byte, n)
		for i, v := range vals {
			out[i] = byte(uint8(v))
		}
		return out
	}
}
