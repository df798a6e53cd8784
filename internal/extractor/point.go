package extractor

import (
	"fmt"
	"math"

	"github.com/mauricemojito/rasterkit/internal/geomodel"
	"github.com/mauricemojito/rasterkit/internal/raster"
	"github.com/mauricemojito/rasterkit/internal/tiff"
)

// PointQuery pairs an Accessor with the GeoModel it needs to resolve world
// coordinates, the generalization of the teacher's single always-resident
// *geotiff.GeoTIFF to the multi-image chain Image now exposes.
type PointQuery struct {
	Accessor *raster.Accessor
	Model    *geomodel.Model
	Width    int
	Height   int
}

// NewPointQuery resolves ifd's GeoModel and opens an Accessor over it,
// matching spec.md §4.9's single-point/profile query path.
func NewPointQuery(img *Image, ifd *tiff.IFD) (*PointQuery, error) {
	model, err := geomodel.FromIFD(ifd)
	if err != nil {
		return nil, err
	}
	acc, err := img.Accessor(ifd)
	if err != nil {
		return nil, err
	}
	w, _ := tagUint(ifd, tiff.ImageWidth)
	h, _ := tagUint(ifd, tiff.ImageLength)
	return &PointQuery{Accessor: acc, Model: model, Width: int(w), Height: int(h)}, nil
}

// Elevation samples band 0 at world coordinate (x, y), generalizing the
// teacher's GeoTIFF.AtCoord (which combined coordToPixel+loc into one
// call).
func (q *PointQuery) Elevation(x, y float64) (float64, error) {
	const op = "extractor.PointQuery.Elevation"
	col, row, err := q.Model.WorldToPixel(x, y)
	if err != nil {
		return 0, err
	}
	px, py := int(math.Round(col)), int(math.Round(row))
	if px < 0 || py < 0 || px >= q.Width || py >= q.Height {
		return 0, tiff.Newf(tiff.KindRequest, op, "point (%g, %g) lies outside the image", x, y)
	}
	return q.Accessor.At(px, py)
}

// ProfilePoint is one sample of an elevation profile: a world coordinate
// plus the band-0 value there, matching spec.md §4.9's profile result
// shape (generalizing the teacher's [lat, lon, elevation] triples).
type ProfilePoint struct {
	X, Y, Value float64
}

// Profile samples band 0 along each segment of a path of world
// coordinates at the raster's native pixel resolution, deduplicating
// repeated pixels, directly generalizing the teacher's Profile (which
// hardcoded lat/lon ordering and a string-keyed visited-pixel set).
func Profile(q *PointQuery, path []geomodel.Point) ([]ProfilePoint, error) {
	const op = "extractor.Profile"
	if len(path) < 2 {
		return nil, tiff.Newf(tiff.KindRequest, op, "at least two coordinates are required to build a profile")
	}

	var out []ProfilePoint
	visited := make(map[[2]int]struct{})

	for i := 0; i < len(path)-1; i++ {
		x1, y1, err := q.Model.WorldToPixel(path[i].X, path[i].Y)
		if err != nil {
			return nil, err
		}
		x2, y2, err := q.Model.WorldToPixel(path[i+1].X, path[i+1].Y)
		if err != nil {
			return nil, err
		}

		dx, dy := x2-x1, y2-y1
		steps := math.Max(math.Abs(dx), math.Abs(dy))
		numSteps := int(math.Ceil(steps))
		if numSteps == 0 {
			numSteps = 1
		}
		xInc, yInc := dx/float64(numSteps), dy/float64(numSteps)

		for j := 0; j <= numSteps; j++ {
			px := int(x1 + float64(j)*xInc)
			py := int(y1 + float64(j)*yInc)
			key := [2]int{px, py}
			if _, seen := visited[key]; seen {
				continue
			}
			visited[key] = struct{}{}
			if px < 0 || py < 0 || px >= q.Width || py >= q.Height {
				continue
			}
			v, err := q.Accessor.At(px, py)
			if err != nil {
				return nil, fmt.Errorf("extractor.Profile: pixel (%d,%d): %w", px, py, err)
			}
			wx, wy := q.Model.PixelToWorld(px, py)
			out = append(out, ProfilePoint{X: wx, Y: wy, Value: v})
		}
	}
	return out, nil
}
