package compression

import (
	"encoding/binary"
	"math"

	"github.com/mauricemojito/rasterkit/internal/tiff"
)

// UndoHorizontalPredictor reverses Predictor 2 (horizontal differencing) in
// place, generalizing the teacher's undoHorizontalPredictionForInt32 (which
// only handled int32 samples) to 8-, 16- and 32-bit samples (other bit
// depths are rejected as unsupported), and across multiple samples per
// pixel (each sample channel is differenced independently).
func UndoHorizontalPredictor(data []byte, width, height, samplesPerPixel, bitsPerSample int, order binary.ByteOrder) error {
	const op = "compression.UndoHorizontalPredictor"
	if width == 0 || height == 0 {
		return nil
	}
	switch bitsPerSample {
	case 8:
		undoPredictor8(data, width, height, samplesPerPixel)
	case 16:
		undoPredictor16(data, width, height, samplesPerPixel, order)
	case 32:
		undoPredictor32(data, width, height, samplesPerPixel, order)
	default:
		return tiff.Newf(tiff.KindUnsupported, op, "predictor 2 unsupported for %d-bit samples", bitsPerSample)
	}
	return nil
}

// ApplyHorizontalPredictor is the forward (encode-time) transform, the
// inverse of UndoHorizontalPredictor, needed by the writer path when
// producing Predictor-2 output the teacher's read-only pipeline never had
// to generate.
func ApplyHorizontalPredictor(data []byte, width, height, samplesPerPixel, bitsPerSample int, order binary.ByteOrder) error {
	const op = "compression.ApplyHorizontalPredictor"
	if width == 0 || height == 0 {
		return nil
	}
	switch bitsPerSample {
	case 8:
		applyPredictor8(data, width, height, samplesPerPixel)
	case 16:
		applyPredictor16(data, width, height, samplesPerPixel, order)
	case 32:
		applyPredictor32(data, width, height, samplesPerPixel, order)
	default:
		return tiff.Newf(tiff.KindUnsupported, op, "predictor 2 unsupported for %d-bit samples", bitsPerSample)
	}
	return nil
}

func undoPredictor8(data []byte, width, height, spp int) {
	rowBytes := width * spp
	for y := 0; y < height; y++ {
		row := data[y*rowBytes : (y+1)*rowBytes]
		for x := spp; x < len(row); x++ {
			row[x] += row[x-spp]
		}
	}
}

func applyPredictor8(data []byte, width, height, spp int) {
	rowBytes := width * spp
	for y := 0; y < height; y++ {
		row := data[y*rowBytes : (y+1)*rowBytes]
		for x := len(row) - 1; x >= spp; x-- {
			row[x] -= row[x-spp]
		}
	}
}

func undoPredictor16(data []byte, width, height, spp int, order binary.ByteOrder) {
	rowSamples := width * spp
	for y := 0; y < height; y++ {
		rowOff := y * rowSamples * 2
		for x := spp; x < rowSamples; x++ {
			cur := order.Uint16(data[rowOff+x*2:])
			prev := order.Uint16(data[rowOff+(x-spp)*2:])
			order.PutUint16(data[rowOff+x*2:], cur+prev)
		}
	}
}

func applyPredictor16(data []byte, width, height, spp int, order binary.ByteOrder) {
	rowSamples := width * spp
	for y := 0; y < height; y++ {
		rowOff := y * rowSamples * 2
		for x := rowSamples - 1; x >= spp; x-- {
			cur := order.Uint16(data[rowOff+x*2:])
			prev := order.Uint16(data[rowOff+(x-spp)*2:])
			order.PutUint16(data[rowOff+x*2:], cur-prev)
		}
	}
}

func undoPredictor32(data []byte, width, height, spp int, order binary.ByteOrder) {
	rowSamples := width * spp
	for y := 0; y < height; y++ {
		rowOff := y * rowSamples * 4
		for x := spp; x < rowSamples; x++ {
			cur := order.Uint32(data[rowOff+x*4:])
			prev := order.Uint32(data[rowOff+(x-spp)*4:])
			order.PutUint32(data[rowOff+x*4:], cur+prev)
		}
	}
}

func applyPredictor32(data []byte, width, height, spp int, order binary.ByteOrder) {
	rowSamples := width * spp
	for y := 0; y < height; y++ {
		rowOff := y * rowSamples * 4
		for x := rowSamples - 1; x >= spp; x-- {
			cur := order.Uint32(data[rowOff+x*4:])
			prev := order.Uint32(data[rowOff+(x-spp)*4:])
			order.PutUint32(data[rowOff+x*4:], cur-prev)
		}
	}
}

// Int32Slice reinterprets raw little/big-endian bytes as signed 32-bit
// samples, matching the int32 elevation samples the teacher's tile cache
// stores (GeDTM30 COGs carry SampleFormat=2, BitsPerSample=32).
func Int32Slice(data []byte, order binary.ByteOrder) []int32 {
	out := make([]int32, len(data)/4)
	for i := range out {
		out[i] = int32(order.Uint32(data[i*4:]))
	}
	return out
}

// Float32Slice reinterprets raw bytes as IEEE-754 float32 samples, used for
// SampleFormat=3 rasters.
func Float32Slice(data []byte, order binary.ByteOrder) []float32 {
	out := make([]float32, len(data)/4)
	for i := range out {
		out[i] = math.Float32frombits(order.Uint32(data[i*4:]))
	}
	return out
}
