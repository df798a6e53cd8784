package raster

import (
	"bytes"
	"encoding/binary"
	"math"
	"testing"
	"time"

	"github.com/mauricemojito/rasterkit/internal/bytecursor"
	"github.com/mauricemojito/rasterkit/internal/compression"
	"github.com/mauricemojito/rasterkit/internal/metrics"
	"github.com/mauricemojito/rasterkit/internal/tilecache"
	"github.com/mauricemojito/rasterkit/internal/tiff"
	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

// memFile is a minimal in-memory WritableSource, standing in for the real
// file/blob/HTTP sources an Accessor normally reads strip and tile data
// from.
type memFile struct {
	data []byte
	pos  int64
}

func (m *memFile) Seek(offset int64, whence int) (int64, error) {
	switch whence {
	case 0:
		m.pos = offset
	case 1:
		m.pos += offset
	case 2:
		m.pos = int64(len(m.data)) + offset
	}
	return m.pos, nil
}

func (m *memFile) Read(p []byte) (int, error) {
	n := copy(p, m.data[m.pos:])
	m.pos += int64(n)
	return n, nil
}

func (m *memFile) ReadAt(p []byte, off int64) (int, error) {
	if off >= int64(len(m.data)) {
		return 0, nil
	}
	n := copy(p, m.data[off:])
	return n, nil
}

func (m *memFile) WriteAt(p []byte, off int64) (int, error) {
	end := off + int64(len(p))
	if end > int64(len(m.data)) {
		grown := make([]byte, end)
		copy(grown, m.data)
		m.data = grown
	}
	copy(m.data[off:end], p)
	return len(p), nil
}

func (m *memFile) Truncate(size int64) error {
	if size < int64(len(m.data)) {
		m.data = m.data[:size]
	}
	return nil
}

func intValue(n uint64) tiff.Value {
	if n <= 0xFFFF {
		return tiff.Value{Kind: tiff.FTShort, Shorts: []uint16{uint16(n)}}
	}
	return tiff.Value{Kind: tiff.FTLong, Longs: []uint32{uint32(n)}}
}

func intsValue(vals []uint64) tiff.Value {
	longs := make([]uint32, len(vals))
	for i, v := range vals {
		longs[i] = uint32(v)
	}
	return tiff.Value{Kind: tiff.FTLong, Longs: longs}
}

// writeStripImage builds a single-band, 32-bit float, uncompressed strip
// image from buf and returns the memFile plus an IFD an Accessor can open
// against it, exercising the writer's packRows/EncodeStrips path against
// the reader's decodeUnit/typedSamples path.
func writeStripImage(t *testing.T, buf *Buffer, rowsPerStrip int) (*memFile, *tiff.IFD) {
	t.Helper()
	strips, err := EncodeStrips(buf, rowsPerStrip, 32, tiff.SampleFormatFloat, binary.LittleEndian, tiff.PredictorNone, compression.NoneCodec{})
	if err != nil {
		t.Fatalf("EncodeStrips: %v", err)
	}
	f := &memFile{}
	const dataStart = 8 // arbitrary, mimics strip data landing after a small header
	offsets := make([]uint64, len(strips))
	counts := make([]uint64, len(strips))
	pos := uint64(dataStart)
	for i, s := range strips {
		if _, err := f.WriteAt(s, int64(pos)); err != nil {
			t.Fatalf("WriteAt: %v", err)
		}
		offsets[i] = pos
		counts[i] = uint64(len(s))
		pos += uint64(len(s))
	}

	ifd := &tiff.IFD{}
	ifd.Set(tiff.ImageWidth, tiff.FTShort, intValue(uint64(buf.Width)))
	ifd.Set(tiff.ImageLength, tiff.FTShort, intValue(uint64(buf.Height)))
	ifd.Set(tiff.BitsPerSample, tiff.FTShort, intValue(32))
	ifd.Set(tiff.SamplesPerPixel, tiff.FTShort, intValue(uint64(buf.SamplesPerPixel)))
	ifd.Set(tiff.SampleFormat, tiff.FTShort, intValue(tiff.SampleFormatFloat))
	ifd.Set(tiff.Compression, tiff.FTShort, intValue(tiff.CompressionNone))
	ifd.Set(tiff.Predictor, tiff.FTShort, intValue(tiff.PredictorNone))
	ifd.Set(tiff.PlanarConfiguration, tiff.FTShort, intValue(tiff.PlanarChunky))
	ifd.Set(tiff.RowsPerStrip, tiff.FTShort, intValue(uint64(rowsPerStrip)))
	ifd.Set(tiff.StripOffsets, tiff.FTLong, intsValue(offsets))
	ifd.Set(tiff.StripByteCounts, tiff.FTLong, intsValue(counts))
	return f, ifd
}

func openAccessor(t *testing.T, f *memFile, ifd *tiff.IFD) *Accessor {
	t.Helper()
	cur, err := bytecursor.New(f)
	if err != nil {
		t.Fatalf("bytecursor.New: %v", err)
	}
	a, err := Open(cur, ifd, tilecache.New(100, 10, time.Minute))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	return a
}

func TestAccessorRoundTripSingleBand(t *testing.T) {
	width, height := 4, 3
	buf := &Buffer{Width: width, Height: height, SamplesPerPixel: 1, Values: make([]float64, width*height)}
	for i := range buf.Values {
		buf.Values[i] = float64(i) * 1.5
	}
	f, ifd := writeStripImage(t, buf, 2)
	a := openAccessor(t, f, ifd)

	gotW, gotH := a.Dimensions()
	if gotW != width || gotH != height {
		t.Fatalf("Dimensions() = (%d,%d), want (%d,%d)", gotW, gotH, width, height)
	}
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			want := buf.At(x, y, 0)
			got, err := a.At(x, y)
			if err != nil {
				t.Fatalf("At(%d,%d): %v", x, y, err)
			}
			if math.Abs(got-want) > 1e-9 {
				t.Fatalf("At(%d,%d) = %g, want %g", x, y, got, want)
			}
		}
	}
}

func TestAccessorReadRegionBufferRoundTrip(t *testing.T) {
	width, height, spp := 5, 4, 2
	buf := &Buffer{Width: width, Height: height, SamplesPerPixel: spp, Values: make([]float64, width*height*spp)}
	for i := range buf.Values {
		buf.Values[i] = float64(i)
	}
	f, ifd := writeStripImage(t, buf, 3)
	a := openAccessor(t, f, ifd)

	got, err := a.ReadRegionBuffer(1, 1, 4, 3)
	if err != nil {
		t.Fatalf("ReadRegionBuffer: %v", err)
	}
	for y := 1; y < 3; y++ {
		for x := 1; x < 4; x++ {
			for s := 0; s < spp; s++ {
				want := buf.At(x, y, s)
				gotVal := got.At(x-1, y-1, s)
				if gotVal != want {
					t.Fatalf("region value at (%d,%d,%d) = %g, want %g", x, y, s, gotVal, want)
				}
			}
		}
	}
}

func TestAccessorAtSampleOutOfRangeIsRequestError(t *testing.T) {
	buf := &Buffer{Width: 2, Height: 2, SamplesPerPixel: 1, Values: make([]float64, 4)}
	f, ifd := writeStripImage(t, buf, 2)
	a := openAccessor(t, f, ifd)
	if _, err := a.At(5, 5); err == nil {
		t.Fatalf("At accepted an out-of-bounds pixel")
	} else if tiff.KindOf(err) != tiff.KindRequest {
		t.Fatalf("KindOf(err) = %v, want KindRequest", tiff.KindOf(err))
	}
}

func TestAccessorWithHorizontalPredictor(t *testing.T) {
	width, height := 6, 2
	buf := &Buffer{Width: width, Height: height, SamplesPerPixel: 1, Values: make([]float64, width*height)}
	for i := range buf.Values {
		buf.Values[i] = float64((i%width)*10 + i)
	}
	strips, err := EncodeStrips(buf, height, 32, tiff.SampleFormatFloat, binary.LittleEndian, tiff.PredictorHorizontal, compression.DeflateCodec{})
	if err != nil {
		t.Fatalf("EncodeStrips: %v", err)
	}
	f := &memFile{}
	if _, err := f.WriteAt(strips[0], 8); err != nil {
		t.Fatalf("WriteAt: %v", err)
	}
	ifd := &tiff.IFD{}
	ifd.Set(tiff.ImageWidth, tiff.FTShort, intValue(uint64(width)))
	ifd.Set(tiff.ImageLength, tiff.FTShort, intValue(uint64(height)))
	ifd.Set(tiff.BitsPerSample, tiff.FTShort, intValue(32))
	ifd.Set(tiff.SamplesPerPixel, tiff.FTShort, intValue(1))
	ifd.Set(tiff.SampleFormat, tiff.FTShort, intValue(tiff.SampleFormatFloat))
	ifd.Set(tiff.Compression, tiff.FTShort, intValue(tiff.CompressionDeflate))
	ifd.Set(tiff.Predictor, tiff.FTShort, intValue(tiff.PredictorHorizontal))
	ifd.Set(tiff.PlanarConfiguration, tiff.FTShort, intValue(tiff.PlanarChunky))
	ifd.Set(tiff.RowsPerStrip, tiff.FTShort, intValue(uint64(height)))
	ifd.Set(tiff.StripOffsets, tiff.FTLong, intsValue([]uint64{8}))
	ifd.Set(tiff.StripByteCounts, tiff.FTLong, intsValue([]uint64{uint64(len(strips[0]))}))
	a := openAccessor(t, f, ifd)

	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			want := buf.At(x, y, 0)
			got, err := a.At(x, y)
			if err != nil {
				t.Fatalf("At(%d,%d): %v", x, y, err)
			}
			if math.Abs(got-want) > 1e-6 {
				t.Fatalf("At(%d,%d) = %g, want %g (predictor+deflate round trip)", x, y, got, want)
			}
		}
	}
}

func TestAccessorAtRecordsDecodeDurationByCodec(t *testing.T) {
	metrics.DecodeDuration.Reset()
	buf := &Buffer{Width: 2, Height: 2, SamplesPerPixel: 1, Values: []float64{1, 2, 3, 4}}
	f, ifd := writeStripImage(t, buf, 2)
	a := openAccessor(t, f, ifd)

	if _, err := a.At(0, 0); err != nil {
		t.Fatalf("At: %v", err)
	}

	m := &dto.Metric{}
	if err := metrics.DecodeDuration.WithLabelValues("none").(prometheus.Histogram).Write(m); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if got := m.GetHistogram().GetSampleCount(); got != 1 {
		t.Fatalf("decode duration sample count = %d, want 1", got)
	}
}

func TestAccessorAtCountsCacheHitsAndMisses(t *testing.T) {
	metrics.CacheHits.Reset()
	buf := &Buffer{Width: 2, Height: 2, SamplesPerPixel: 1, Values: []float64{1, 2, 3, 4}}
	f, ifd := writeStripImage(t, buf, 2)
	a := openAccessor(t, f, ifd)

	if _, err := a.At(0, 0); err != nil {
		t.Fatalf("At: %v", err)
	}
	if _, err := a.At(1, 0); err != nil {
		t.Fatalf("At: %v", err)
	}

	miss := &dto.Metric{}
	_ = metrics.CacheHits.WithLabelValues("miss").(prometheus.Counter).Write(miss)
	if got := miss.GetCounter().GetValue(); got != 1 {
		t.Fatalf("miss count = %g, want 1 (one unit fetched, both pixels fall in it)", got)
	}

	hit := &dto.Metric{}
	_ = metrics.CacheHits.WithLabelValues("hit").(prometheus.Counter).Write(hit)
	if got := hit.GetCounter().GetValue(); got != 1 {
		t.Fatalf("hit count = %g, want 1 (second At() call reuses the cached unit)", got)
	}
}

func TestChooseRowsPerStripUncompressedIsOneRow(t *testing.T) {
	if got := ChooseRowsPerStrip(1000, 1, 32, tiff.CompressionNone); got != 1 {
		t.Fatalf("ChooseRowsPerStrip(uncompressed) = %d, want 1", got)
	}
}

func TestChooseRowsPerStripFitsUnderEightKiB(t *testing.T) {
	rows := ChooseRowsPerStrip(512, 1, 32, tiff.CompressionDeflate)
	rowBytes := 512 * 4
	if rows*rowBytes > 8192 {
		t.Fatalf("ChooseRowsPerStrip chose %d rows, exceeding 8KiB per strip (%d bytes)", rows, rows*rowBytes)
	}
	if rows < 1 {
		t.Fatalf("ChooseRowsPerStrip returned %d, want >= 1", rows)
	}
}

func TestPackRowsRoundTripsThroughAccessorTypes(t *testing.T) {
	// Exercise the uint16 branch of packRows/typedSamples specifically.
	buf := &Buffer{Width: 3, Height: 2, SamplesPerPixel: 1, Values: []float64{10, 20, 30, 40, 50, 60}}
	raw := packRows(buf, 0, 2, 16, tiff.SampleFormatUnsigned, binary.LittleEndian)
	if len(raw) != 3*2*2 {
		t.Fatalf("packRows produced %d bytes, want %d", len(raw), 3*2*2)
	}
	if !bytes.Equal(raw[:2], []byte{10, 0}) {
		t.Fatalf("first uint16 sample = %v, want [10 0] (little-endian 10)", raw[:2])
	}
}
