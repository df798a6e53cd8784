// Package arrayexport implements the ArrayExporter: serializing a decoded
// PixelBuffer to CSV, JSON, or the NumPy binary tabular form, per spec.md
// §4.10. None of this module's retrieval pack writes any of these formats
// (the teacher's COG reader only ever returns a scalar elevation or a
// profile []float64 triple over JSON) so CSV/JSON/NPY are authored directly
// from spec.md's byte-exact description; both are justified stdlib use —
// no CSV/NPY-writing library appears anywhere in the retrieved corpus and
// encoding/csv and encoding/json are the idiomatic Go defaults for the job.
package arrayexport

import (
	"bufio"
	"encoding/binary"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"strconv"

	"github.com/mauricemojito/rasterkit/internal/raster"
	"github.com/mauricemojito/rasterkit/internal/tiff"
)

// Format names the three array export formats spec.md §6 recognizes.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatJSON Format = "json"
	FormatNPY  Format = "npy"
)

// Write dispatches to the format-specific encoder for buf.
func Write(w io.Writer, buf *raster.Buffer, format Format) error {
	const op = "arrayexport.Write"
	switch format {
	case FormatCSV:
		return WriteCSV(w, buf)
	case FormatJSON:
		return WriteJSON(w, buf)
	case FormatNPY:
		return WriteNPY(w, buf)
	default:
		return tiff.Newf(tiff.KindUnsupported, op, "unknown array format %q", format)
	}
}

// WriteCSV writes one row per image row, samples comma-separated
// (multi-sample pixels flatten sample-major within the row), LF line
// endings, per spec.md §4.10.
func WriteCSV(w io.Writer, buf *raster.Buffer) error {
	const op = "arrayexport.WriteCSV"
	cw := csv.NewWriter(w)
	cw.UseCRLF = false
	row := make([]string, buf.Width*buf.SamplesPerPixel)
	for y := 0; y < buf.Height; y++ {
		for x := 0; x < buf.Width; x++ {
			for s := 0; s < buf.SamplesPerPixel; s++ {
				row[x*buf.SamplesPerPixel+s] = formatNumber(buf.At(x, y, s))
			}
		}
		if err := cw.Write(row); err != nil {
			return tiff.Wrap(tiff.KindIO, op, err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return tiff.Wrap(tiff.KindIO, op, err)
	}
	return nil
}

// formatNumber renders a sample without a trailing ".0" for integral
// values, matching the concrete scenario in spec.md §8 ("1,2\n3,4\n").
func formatNumber(v float64) string {
	if v == float64(int64(v)) {
		return strconv.FormatInt(int64(v), 10)
	}
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// WriteJSON writes buf as a 2-D (samplesPerPixel==1) or 3-D (multi-sample)
// nested JSON array of numbers, with no trailing newline, per spec.md
// §4.10/§6.
func WriteJSON(w io.Writer, buf *raster.Buffer) error {
	const op = "arrayexport.WriteJSON"
	var data any
	if buf.SamplesPerPixel == 1 {
		rows := make([][]float64, buf.Height)
		for y := 0; y < buf.Height; y++ {
			row := make([]float64, buf.Width)
			for x := 0; x < buf.Width; x++ {
				row[x] = buf.At(x, y, 0)
			}
			rows[y] = row
		}
		data = rows
	} else {
		rows := make([][][]float64, buf.Height)
		for y := 0; y < buf.Height; y++ {
			row := make([][]float64, buf.Width)
			for x := 0; x < buf.Width; x++ {
				px := make([]float64, buf.SamplesPerPixel)
				for s := 0; s < buf.SamplesPerPixel; s++ {
					px[s] = buf.At(x, y, s)
				}
				row[x] = px
			}
			rows[y] = row
		}
		data = rows
	}
	enc, err := json.Marshal(data)
	if err != nil {
		return tiff.Wrap(tiff.KindFormat, op, err)
	}
	if _, err := w.Write(enc); err != nil {
		return tiff.Wrap(tiff.KindIO, op, err)
	}
	return nil
}

// npyDtype builds the NumPy typestr for a float64 buffer: little-endian
// float64, '<f8', the one dtype this exporter ever produces since
// raster.Buffer widens every TIFF sample kind to float64 already.
const npyDtype = "<f8"

// WriteNPY writes buf as a version-1.0 NPY file: magic "\x93NUMPY", a
// dictionary header declaring dtype/shape/fortran_order, padded so the
// data start is 64-byte aligned, followed by row-major raw float64
// samples, per spec.md §4.10.
func WriteNPY(w io.Writer, buf *raster.Buffer) error {
	const op = "arrayexport.WriteNPY"
	bw := bufio.NewWriter(w)

	var shape string
	if buf.SamplesPerPixel == 1 {
		shape = fmt.Sprintf("(%d, %d)", buf.Height, buf.Width)
	} else {
		shape = fmt.Sprintf("(%d, %d, %d)", buf.Height, buf.Width, buf.SamplesPerPixel)
	}
	header := fmt.Sprintf("{'descr': '%s', 'fortran_order': False, 'shape': %s, }", npyDtype, shape)

	const preludeLen = 10 // magic(6) + version(2) + headerLen(2)
	total := preludeLen + len(header) + 1 // +1 for the trailing newline
	pad := (64 - total%64) % 64
	header += spaces(pad) + "\n"

	if _, err := bw.WriteString("\x93NUMPY"); err != nil {
		return tiff.Wrap(tiff.KindIO, op, err)
	}
	if _, err := bw.Write([]byte{1, 0}); err != nil { // version 1.0
		return tiff.Wrap(tiff.KindIO, op, err)
	}
	var lenBuf [2]byte
	binary.LittleEndian.PutUint16(lenBuf[:], uint16(len(header)))
	if _, err := bw.Write(lenBuf[:]); err != nil {
		return tiff.Wrap(tiff.KindIO, op, err)
	}
	if _, err := bw.WriteString(header); err != nil {
		return tiff.Wrap(tiff.KindIO, op, err)
	}

	var sampleBuf [8]byte
	for _, v := range buf.Values {
		binary.LittleEndian.PutUint64(sampleBuf[:], math.Float64bits(v))
		if _, err := bw.Write(sampleBuf[:]); err != nil {
			return tiff.Wrap(tiff.KindIO, op, err)
		}
	}
	if err := bw.Flush(); err != nil {
		return tiff.Wrap(tiff.KindIO, op, err)
	}
	return nil
}

func spaces(n int) string {
	b := make([]byte, n)
	for i := range b {
		b[i] = ' '
	}
	return string(b)
}
