package extractor

import (
	"github.com/mauricemojito/rasterkit/internal/geomodel"
	"github.com/mauricemojito/rasterkit/internal/projector"
	"github.com/mauricemojito/rasterkit/internal/raster"
	"github.com/mauricemojito/rasterkit/internal/region"
	"github.com/mauricemojito/rasterkit/internal/tiff"
)

// RegionRequest is exactly one of a pixel rectangle, a geographic bounding
// box, or a point+radius+shape selection, per spec.md §4.7/§6.
type RegionRequest struct {
	PixelRect *region.PixelRect

	BBox    *region.BBox
	BBoxCRS int // EPSG code the bbox/point coordinates are expressed in

	Point  *projector.Point
	Radius float64
	Shape  region.Shape

	FilterLo, FilterHi *float64 // inclusive value-range keep filter, per spec.md §6 --filter
	FilterTransparency bool     // per spec.md §6 --filter-transparency
}

// ImageCRS is the EPSG code a GeoModel's world coordinates are expressed
// in; the core has no independent way to recover this from GeoTIFF tags
// beyond what GeoKeyDirectory interpretation would add, so callers (the CLI
// layer) supply it explicitly via --crs/the source's known CRS.
type ImageCRS int

// ImageEPSG recovers ifd's native CRS from its GeoKeyDirectoryTag, when
// present, mirroring the original source's GeoKeyParser::extract_geo_info
// epsg_code field. It returns 0 when ifd carries no directory or no CRS
// key, the same "unknown" sentinel ImageCRS already uses.
func ImageEPSG(ifd *tiff.IFD) int {
	v, ok := ifd.Get(tiff.GeoKeyDirectoryTag)
	if !ok || len(v.Shorts) < 4 {
		return 0
	}
	dir := v.Shorts
	numKeys := int(dir[3])
	for i := 0; i < numKeys; i++ {
		base := 4 + i*4
		if base+3 >= len(dir) {
			break
		}
		keyID := tiff.GeoKeyID(dir[base])
		location := dir[base+1]
		if location != 0 {
			continue
		}
		if keyID == tiff.GeoKeyProjectedCRS || keyID == tiff.GeoKeyGeodeticCRS {
			return int(dir[base+3])
		}
	}
	return 0
}

// ResolveRegion turns req into a concrete pixel rectangle (clipped to the
// image) plus an optional per-pixel mask, per spec.md §4.7. When req's CRS
// differs from imageCRS, proj reprojects the request geometry into the
// image's CRS before pixel mapping, per spec.md §4.7/§9.
func ResolveRegion(model *geomodel.Model, imgWidth, imgHeight int, imageCRS ImageCRS, req RegionRequest, proj projector.Projector) (region.PixelRect, func(localX, localY int) bool, error) {
	const op = "extractor.ResolveRegion"
	if proj == nil {
		proj = projector.Default{}
	}

	switch {
	case req.PixelRect != nil:
		rect, err := clip(*req.PixelRect, imgWidth, imgHeight)
		if err != nil {
			return region.PixelRect{}, nil, err
		}
		return rect, alwaysTrue, nil

	case req.BBox != nil:
		bbox, err := reprojectBBox(*req.BBox, req.BBoxCRS, imageCRS, proj)
		if err != nil {
			return region.PixelRect{}, nil, err
		}
		rect, err := bbox.ToPixelRect(model, imgWidth, imgHeight)
		if err != nil {
			return region.PixelRect{}, nil, err
		}
		return rect, alwaysTrue, nil

	case req.Point != nil:
		if req.Radius <= 0 {
			return region.PixelRect{}, nil, tiff.Newf(tiff.KindRequest, op, "radius must be positive, got %g", req.Radius)
		}
		pt, err := reprojectPoint(*req.Point, req.BBoxCRS, imageCRS, proj)
		if err != nil {
			return region.PixelRect{}, nil, err
		}
		sel, err := region.SelectPoint(model, imgWidth, imgHeight, pt.X, pt.Y, req.Radius, req.Shape)
		if err != nil {
			return region.PixelRect{}, nil, err
		}
		return sel.Rect, sel.Mask, nil

	default:
		return region.PixelRect{}, nil, tiff.Newf(tiff.KindRequest, op, "exactly one of pixel rect, bbox, or point+radius must be set")
	}
}

func alwaysTrue(int, int) bool { return true }

func clip(r region.PixelRect, imgWidth, imgHeight int) (region.PixelRect, error) {
	const op = "extractor.clip"
	x0, y0 := maxInt(r.X, 0), maxInt(r.Y, 0)
	x1, y1 := minInt(r.EndX(), imgWidth), minInt(r.EndY(), imgHeight)
	if x1 <= x0 || y1 <= y0 {
		return region.PixelRect{}, tiff.Newf(tiff.KindRequest, op, "pixel rectangle does not intersect the image")
	}
	return region.PixelRect{X: x0, Y: y0, Width: x1 - x0, Height: y1 - y0}, nil
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func reprojectBBox(b region.BBox, fromCRS int, toCRS ImageCRS, proj projector.Projector) (region.BBox, error) {
	if fromCRS == 0 || fromCRS == int(toCRS) {
		return b, nil
	}
	pts, err := proj.Project([]projector.Point{{X: b.MinX, Y: b.MinY}, {X: b.MaxX, Y: b.MaxY}}, fromCRS, int(toCRS))
	if err != nil {
		return region.BBox{}, err
	}
	return region.BBox{MinX: pts[0].X, MinY: pts[0].Y, MaxX: pts[1].X, MaxY: pts[1].Y}, nil
}

func reprojectPoint(p projector.Point, fromCRS int, toCRS ImageCRS, proj projector.Projector) (projector.Point, error) {
	if fromCRS == 0 || fromCRS == int(toCRS) {
		return p, nil
	}
	pts, err := proj.Project([]projector.Point{p}, fromCRS, int(toCRS))
	if err != nil {
		return projector.Point{}, err
	}
	return pts[0], nil
}

// CombinedMask ANDs shapeMask with a value-range keep filter evaluated on
// band 0 of buf, per spec.md §4.7 ("Value-range filters add to the mask:
// pixel kept iff v ∈ [lo, hi]").
func CombinedMask(buf *raster.Buffer, shapeMask func(int, int) bool, lo, hi *float64) func(int, int) bool {
	if lo == nil && hi == nil {
		return shapeMask
	}
	return func(x, y int) bool {
		if !shapeMask(x, y) {
			return false
		}
		v := buf.At(x, y, 0)
		if lo != nil && v < *lo {
			return false
		}
		if hi != nil && v > *hi {
			return false
		}
		return true
	}
}
