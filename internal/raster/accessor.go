// Package raster is the StripTileAccessor: it generalizes the teacher's
// tile-only loc/getTileData/fetchAndDecompressTile/prefetchNeighbors
// (geotiff/geotiff.go) to both strip- and tile-organized images, chunky and
// planar sample storage, and any of the compression codecs in
// internal/compression rather than just Uncompressed/DEFLATE.
package raster

import (
	"encoding/binary"
	"math"
	"sync"
	"time"

	"github.com/mauricemojito/rasterkit/internal/bytecursor"
	"github.com/mauricemojito/rasterkit/internal/compression"
	"github.com/mauricemojito/rasterkit/internal/metrics"
	"github.com/mauricemojito/rasterkit/internal/tilecache"
	"github.com/mauricemojito/rasterkit/internal/tiff"
)

// layout describes whether the image is organized into strips or tiles;
// both are addressed the same way once reduced to a unit width/height and
// a flat offsets/byteCounts table.
type layout int

const (
	layoutStrip layout = iota
	layoutTile
)

// Accessor provides cached, predictor-aware, typed access to one IFD's
// pixel data.
type Accessor struct {
	cur *bytecursor.Cursor

	width, height int
	unitWidth, unitHeight int
	unitsAcross, unitsDown int
	layout                 layout

	samplesPerPixel int
	bitsPerSample   int
	sampleFormat    int
	compressionCode int
	predictor       int
	planar          int

	offsets    []uint64
	byteCounts []uint64

	codec compression.Codec
	cache *tilecache.Cache
}

// Open builds an Accessor from ifd's tags, resolving the compression codec
// once up front the way the teacher resolves g.compression in Open().
func Open(cur *bytecursor.Cursor, ifd *tiff.IFD, cache *tilecache.Cache) (*Accessor, error) {
	const op = "raster.Open"
	a := &Accessor{cur: cur, cache: cache}

	width, height, err := dimensions(ifd)
	if err != nil {
		return nil, err
	}
	a.width, a.height = width, height

	a.samplesPerPixel = intTag(ifd, tiff.SamplesPerPixel, 1)
	a.bitsPerSample = intTag(ifd, tiff.BitsPerSample, 8)
	a.sampleFormat = intTag(ifd, tiff.SampleFormat, tiff.SampleFormatUnsigned)
	a.compressionCode = intTag(ifd, tiff.Compression, tiff.CompressionNone)
	a.predictor = intTag(ifd, tiff.Predictor, tiff.PredictorNone)
	a.planar = intTag(ifd, tiff.PlanarConfiguration, tiff.PlanarChunky)

	if ifd.Has(tiff.TileWidth) {
		a.layout = layoutTile
		a.unitWidth = intTag(ifd, tiff.TileWidth, 0)
		a.unitHeight = intTag(ifd, tiff.TileLength, 0)
		a.offsets = uint64sTag(ifd, tiff.TileOffsets)
		a.byteCounts = uint64sTag(ifd, tiff.TileByteCounts)
	} else {
		a.layout = layoutStrip
		a.unitWidth = width
		a.unitHeight = intTag(ifd, tiff.RowsPerStrip, height)
		a.offsets = uint64sTag(ifd, tiff.StripOffsets)
		a.byteCounts = uint64sTag(ifd, tiff.StripByteCounts)
	}
	if a.unitWidth == 0 || a.unitHeight == 0 {
		return nil, tiff.Newf(tiff.KindFormat, op, "zero-sized strip/tile dimensions")
	}
	a.unitsAcross = (a.width + a.unitWidth - 1) / a.unitWidth
	a.unitsDown = (a.height + a.unitHeight - 1) / a.unitHeight

	codec, err := compression.ForCompression(a.compressionCode)
	if err != nil {
		return nil, err
	}
	a.codec = codec
	return a, nil
}

func dimensions(ifd *tiff.IFD) (int, int, error) {
	const op = "raster.dimensions"
	w, ok := ifd.Get(tiff.ImageWidth)
	if !ok {
		return 0, 0, tiff.Newf(tiff.KindFormat, op, "missing ImageWidth")
	}
	h, ok := ifd.Get(tiff.ImageLength)
	if !ok {
		return 0, 0, tiff.Newf(tiff.KindFormat, op, "missing ImageLength")
	}
	wv, _ := w.AsUint64()
	hv, _ := h.AsUint64()
	return int(wv), int(hv), nil
}

func intTag(ifd *tiff.IFD, tag tiff.Tag, def int) int {
	v, ok := ifd.Get(tag)
	if !ok {
		return def
	}
	n, ok := v.AsUint64()
	if !ok {
		return def
	}
	return int(n)
}

func uint64sTag(ifd *tiff.IFD, tag tiff.Tag) []uint64 {
	v, ok := ifd.Get(tag)
	if !ok {
		return nil
	}
	s, _ := v.AsUint64Slice()
	return s
}

// Dimensions returns the full image width and height in pixels.
func (a *Accessor) Dimensions() (int, int) { return a.width, a.height }

// unitIndex returns the flat strip/tile index containing pixel (x, y).
func (a *Accessor) unitIndex(x, y int) int {
	ux := x / a.unitWidth
	uy := y / a.unitHeight
	return uy*a.unitsAcross + ux
}

// byteOrder reports the byte order to use when reinterpreting decoded
// sample bytes, taken from the cursor that opened this IFD.
func (a *Accessor) byteOrder() binary.ByteOrder { return a.cur.Order() }

// fetchUnit reads, decompresses, and predictor-reverses strip/tile index
// unit, caching the processed result the way the teacher's getTileData
// caches a fully processed []float32/[]int32 slice rather than raw bytes.
func (a *Accessor) fetchUnit(unit int) (any, error) {
	v, hit, err := a.cache.GetOrLoad(unit, func() (any, error) {
		return a.decodeUnit(unit)
	})
	outcome := "miss"
	if hit {
		outcome = "hit"
	}
	metrics.CacheHits.WithLabelValues(outcome).Inc()
	return v, err
}

// planeSampleCount is the number of interleaved samples one strip/tile unit
// actually carries: all of them for chunky storage, exactly one for
// PlanarConfiguration=separate (each plane has its own strip/tile set).
func (a *Accessor) planeSampleCount() int {
	if a.planar == tiff.PlanarSeparate {
		return 1
	}
	return a.samplesPerPixel
}

func (a *Accessor) decodeUnit(unit int) (any, error) {
	const op = "raster.decodeUnit"
	start := time.Now()
	defer func() {
		metrics.DecodeDuration.WithLabelValues(a.codec.Name()).Observe(time.Since(start).Seconds())
	}()
	if unit < 0 || unit >= len(a.offsets) {
		return nil, tiff.Newf(tiff.KindFormat, op, "strip/tile index %d out of range", unit)
	}
	offset := a.offsets[unit]
	count := a.byteCounts[unit]
	raw, err := a.cur.ReadAt(int64(offset), int(count))
	if err != nil {
		return nil, tiff.Wrap(tiff.KindIO, op, err)
	}

	unitsPerPlane := a.unitsAcross * a.unitsDown
	localUnit := unit
	if unitsPerPlane > 0 {
		localUnit = unit % unitsPerPlane
	}

	rows := a.unitHeight
	if a.layout == layoutStrip {
		rowsLeft := a.height - localUnit*a.unitHeight
		if rowsLeft < rows {
			rows = rowsLeft
		}
	}
	spp := a.planeSampleCount()
	bytesPerSample := a.bitsPerSample / 8
	decompressedSize := a.unitWidth * rows * spp * bytesPerSample

	decoded, err := a.codec.Decode(raw, decompressedSize)
	if err != nil {
		return nil, tiff.Wrap(tiff.KindCodec, op, err)
	}

	if a.predictor == tiff.PredictorHorizontal {
		if err := compression.UndoHorizontalPredictor(decoded, a.unitWidth, rows, spp, a.bitsPerSample, a.byteOrder()); err != nil {
			return nil, err
		}
	}

	return a.typedSamples(decoded), nil
}

// typedSamples reinterprets decoded bytes as the numeric kind SampleFormat
// and BitsPerSample declare, mirroring the teacher's getTileData switch on
// g.sampleFormat (widened beyond its float32/int32-only cases).
func (a *Accessor) typedSamples(decoded []byte) any {
	order := a.byteOrder()
	switch {
	case a.sampleFormat == tiff.SampleFormatFloat && a.bitsPerSample == 32:
		return compression.Float32Slice(decoded, order)
	case a.sampleFormat == tiff.SampleFormatFloat && a.bitsPerSample == 64:
		out := make([]float64, len(decoded)/8)
		for i := range out {
			out[i] = math.Float64frombits(order.Uint64(decoded[i*8:]))
		}
		return out
	case a.sampleFormat == tiff.SampleFormatSigned && a.bitsPerSample == 32:
		return compression.Int32Slice(decoded, order)
	case a.sampleFormat == tiff.SampleFormatSigned && a.bitsPerSample == 16:
		out := make([]int16, len(decoded)/2)
		for i := range out {
			out[i] = int16(order.Uint16(decoded[i*2:]))
		}
		return out
	case a.bitsPerSample == 16:
		out := make([]uint16, len(decoded)/2)
		for i := range out {
			out[i] = order.Uint16(decoded[i*2:])
		}
		return out
	case a.bitsPerSample == 32:
		out := make([]uint32, len(decoded)/4)
		for i := range out {
			out[i] = order.Uint32(decoded[i*4:])
		}
		return out
	default:
		return decoded // 8-bit unsigned, or UNDEFINED-ish passthrough
	}
}

// SamplesPerPixel returns the number of interleaved channels per pixel.
func (a *Accessor) SamplesPerPixel() int { return a.samplesPerPixel }

// At returns sample 0 at pixel (x, y); a convenience for single-band
// rasters (elevation, classification, palette index), widened to float64
// without rescaling.
func (a *Accessor) At(x, y int) (float64, error) { return a.AtSample(x, y, 0) }

// AtSample returns the value of channel `sample` at pixel (x, y), widened
// to float64 without rescaling — callers that need a domain-specific unit
// conversion (the teacher's loc() scaled its int32 GeDTM30 elevation tiles
// by 0.1) apply it themselves on top of this generic accessor. For
// PlanarConfiguration=separate, each sample lives in its own strip/tile set
// per spec.md §4.5; for chunky storage samples are interleaved within one
// unit.
func (a *Accessor) AtSample(x, y, sample int) (float64, error) {
	const op = "raster.Accessor.AtSample"
	if x < 0 || x >= a.width || y < 0 || y >= a.height {
		return 0, tiff.Newf(tiff.KindRequest, op, "point (%d,%d) lies outside image", x, y)
	}
	if sample < 0 || sample >= a.samplesPerPixel {
		return 0, tiff.Newf(tiff.KindRequest, op, "sample %d out of range [0,%d)", sample, a.samplesPerPixel)
	}
	base := a.unitIndex(x, y)
	unit := base
	if a.planar == tiff.PlanarSeparate {
		unit = sample*a.unitsAcross*a.unitsDown + base
	}
	data, err := a.fetchUnit(unit)
	if err != nil {
		return 0, tiff.Wrap(tiff.KindIO, op, err)
	}

	a.prefetchNeighbors(unit)

	local := (y%a.unitHeight)*a.unitWidth + (x % a.unitWidth)
	idx := local
	if a.planar != tiff.PlanarSeparate {
		idx = local*a.samplesPerPixel + sample
	}
	return valueAt(data, idx, op)
}

// valueAt widens the sample at idx in a decoded unit's typed slice to
// float64, shared by At/AtSample across every numeric kind typedSamples can
// produce.
func valueAt(data any, idx int, op string) (float64, error) {
	switch d := data.(type) {
	case []float32:
		if idx >= len(d) {
			return 0, tiff.Newf(tiff.KindFormat, op, "pixel index %d out of unit bounds", idx)
		}
		return float64(d[idx]), nil
	case []float64:
		if idx >= len(d) {
			return 0, tiff.Newf(tiff.KindFormat, op, "pixel index %d out of unit bounds", idx)
		}
		return d[idx], nil
	case []int32:
		if idx >= len(d) {
			return 0, tiff.Newf(tiff.KindFormat, op, "pixel index %d out of unit bounds", idx)
		}
		return float64(d[idx]), nil
	case []int16:
		if idx >= len(d) {
			return 0, tiff.Newf(tiff.KindFormat, op, "pixel index %d out of unit bounds", idx)
		}
		return float64(d[idx]), nil
	case []uint16:
		if idx >= len(d) {
			return 0, tiff.Newf(tiff.KindFormat, op, "pixel index %d out of unit bounds", idx)
		}
		return float64(d[idx]), nil
	case []uint32:
		if idx >= len(d) {
			return 0, tiff.Newf(tiff.KindFormat, op, "pixel index %d out of unit bounds", idx)
		}
		return float64(d[idx]), nil
	case []byte:
		if idx >= len(d) {
			return 0, tiff.Newf(tiff.KindFormat, op, "pixel index %d out of unit bounds", idx)
		}
		return float64(d[idx]), nil
	default:
		return 0, tiff.Newf(tiff.KindFormat, op, "unexpected sample slice type %T", data)
	}
}

// prefetchNeighbors fires off background loads for the 3x3 neighborhood of
// unit (within the same sample plane), matching the teacher's
// prefetchNeighbors fan-out+wait shape but routed through
// tilecache.Cache.Prefetch's own dedup/forget window instead of a bespoke
// singleflight.Group.
func (a *Accessor) prefetchNeighbors(unit int) {
	if a.unitsAcross == 0 {
		return
	}
	unitsPerPlane := a.unitsAcross * a.unitsDown
	plane, local := 0, unit
	if unitsPerPlane > 0 {
		plane, local = unit/unitsPerPlane, unit%unitsPerPlane
	}
	a.cache.Prefetch(unit, time.Minute, func() (any, error) {
		uy := local / a.unitsAcross
		ux := local % a.unitsAcross

		var wg sync.WaitGroup
		for dy := -1; dy <= 1; dy++ {
			for dx := -1; dx <= 1; dx++ {
				if dx == 0 && dy == 0 {
					continue
				}
				nx, ny := ux+dx, uy+dy
				if nx < 0 || nx >= a.unitsAcross || ny < 0 || ny >= a.unitsDown {
					continue
				}
				neighbor := plane*unitsPerPlane + ny*a.unitsAcross + nx
				wg.Add(1)
				go func(u int) {
					defer wg.Done()
					_, _ = a.fetchUnit(u)
				}(neighbor)
			}
		}
		wg.Wait()
		return nil, nil
	})
}
