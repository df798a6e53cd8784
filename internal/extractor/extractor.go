// Package extractor implements the Extractor: the orchestration layer that
// opens a TIFF/GeoTIFF source, builds its GeoModel, resolves a caller's
// region request, decodes pixels, applies an optional mask/colormap, and
// writes the result as a TIFF, an array file, or a single-point/profile
// query result — generalizing the teacher's main.go handler functions
// (getElevationHandler, getProfileHandler, both of which drive one backing
// *geotiff.GeoTIFF through AtCoord/Profile) into a full pipeline covering
// every output sink spec.md §4.9 names.
package extractor

import (
	"time"

	"github.com/mauricemojito/rasterkit/internal/bytecursor"
	"github.com/mauricemojito/rasterkit/internal/geomodel"
	"github.com/mauricemojito/rasterkit/internal/raster"
	"github.com/mauricemojito/rasterkit/internal/tiff"
	"github.com/mauricemojito/rasterkit/internal/tilecache"
)

// Image is an opened TIFF/BigTIFF source: its header and every IFD in the
// chain, generalizing the teacher's geotiff.Open (which stopped at the
// first IFD) to spec.md §4.2's full multi-image chain.
type Image struct {
	Cur  *bytecursor.Cursor
	Head tiff.Head
	IFDs []*tiff.IFD
}

// Open parses src's header and IFD chain, matching spec.md §4.9 step 1.
func Open(src bytecursor.Source) (*Image, error) {
	cur, err := bytecursor.New(src)
	if err != nil {
		return nil, tiff.Wrap(tiff.KindIO, "extractor.Open", err)
	}
	head, err := tiff.ReadHeader(cur)
	if err != nil {
		return nil, err
	}
	chain, err := tiff.ReadIFDChain(cur, head)
	if err != nil {
		return nil, err
	}
	return &Image{Cur: cur, Head: head, IFDs: chain}, nil
}

// IFD returns the IFD at index, defaulting to the first image IFD (index
// 0) when index is negative, per spec.md §4.9 step 1 ("unless the caller
// names another").
func (img *Image) IFD(index int) (*tiff.IFD, error) {
	const op = "extractor.Image.IFD"
	if index < 0 {
		index = 0
	}
	if index >= len(img.IFDs) {
		return nil, tiff.Newf(tiff.KindRequest, op, "IFD index %d out of range (chain has %d)", index, len(img.IFDs))
	}
	return img.IFDs[index], nil
}

// Accessor builds a StripTileAccessor for ifd, backed by a fresh decode
// cache. Each call returns an independent cache, keeping per-operation
// pipelines isolated per spec.md §5 ("no component shares mutable state
// with another").
func (img *Image) Accessor(ifd *tiff.IFD) (*raster.Accessor, error) {
	cache := tilecache.New(1024, 100, time.Minute)
	return raster.Open(img.Cur, ifd, cache)
}

// Summary is the analyze operation's report: the header/IFD/GeoModel facts
// spec.md's concrete scenario 1 enumerates.
type Summary struct {
	BigTIFF                   bool
	BigEndian                 bool
	Width, Height             int
	BitsPerSample             int
	SamplesPerPixel           int
	Compression               int
	PhotometricInterpretation int
	Predictor                 int
	PlanarConfiguration       int
	HasColorMap               bool
	Georeferenced             bool
	Bounds                    *geomodel.Bounds
}

// Analyze reports ifd's image geometry and, when present, its GeoTIFF
// bounds, per spec.md §4.9 / concrete scenario 1.
func Analyze(img *Image, ifd *tiff.IFD) (Summary, error) {
	s := Summary{BigTIFF: img.Head.BigTIFF, BigEndian: img.Head.BigEndian}

	w, _ := tagUint(ifd, tiff.ImageWidth)
	h, _ := tagUint(ifd, tiff.ImageLength)
	s.Width, s.Height = int(w), int(h)

	s.BitsPerSample = int(tagUintDefault(ifd, tiff.BitsPerSample, 8))
	s.SamplesPerPixel = int(tagUintDefault(ifd, tiff.SamplesPerPixel, 1))
	s.Compression = int(tagUintDefault(ifd, tiff.Compression, tiff.CompressionNone))
	s.PhotometricInterpretation = int(tagUintDefault(ifd, tiff.PhotometricInterpretation, tiff.PhotometricBlackIsZero))
	s.Predictor = int(tagUintDefault(ifd, tiff.Predictor, tiff.PredictorNone))
	s.PlanarConfiguration = int(tagUintDefault(ifd, tiff.PlanarConfiguration, tiff.PlanarChunky))
	s.HasColorMap = ifd.Has(tiff.ColorMap)

	model, err := geomodel.FromIFD(ifd)
	if err == nil {
		s.Georeferenced = true
		bounds := geomodel.ImageBounds(model, s.Width, s.Height)
		s.Bounds = &bounds
	}
	return s, nil
}

func tagUint(ifd *tiff.IFD, tag tiff.Tag) (uint64, bool) {
	v, ok := ifd.Get(tag)
	if !ok {
		return 0, false
	}
	return v.AsUint64()
}

func tagUintDefault(ifd *tiff.IFD, tag tiff.Tag, def uint64) uint64 {
	v, ok := tagUint(ifd, tag)
	if !ok {
		return def
	}
	return v
}
