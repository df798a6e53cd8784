// Package projector is the pluggable Projector collaborator region
// selection uses to reproject a requested geometry between coordinate
// reference systems. It generalizes the original Rust
// CoordinateSystem/CoordinateSystemFactory (src/coordinate/crs.rs) — which
// only classified EPSG codes — into something that actually reprojects
// points, since the teacher's COG reader never needs to leave WGS84.
package projector

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/mauricemojito/rasterkit/internal/tiff"
)

// System identifies a coordinate reference system the way the original
// CoordinateSystem enum does.
type System struct {
	EPSG int
}

const (
	EPSGWGS84       = 4326
	EPSGWebMercator = 3857
)

// FromString parses "EPSG:4326" or a bare "4326" into a System, mirroring
// CoordinateSystemFactory::from_string.
func FromString(s string) (System, error) {
	const op = "projector.FromString"
	s = strings.ToUpper(strings.TrimSpace(s))
	s = strings.TrimPrefix(s, "EPSG:")
	code, err := strconv.Atoi(s)
	if err != nil {
		return System{}, tiff.Newf(tiff.KindRequest, op, "unsupported CRS string %q", s)
	}
	return System{EPSG: code}, nil
}

// IsUTM reports whether epsg names a UTM zone, per CoordinateSystemFactory
// ::from_epsg's 32601-32660 / 32701-32760 ranges.
func IsUTM(epsg int) (zone int, northern bool, ok bool) {
	switch {
	case epsg >= 32601 && epsg <= 32660:
		return epsg - 32600, true, true
	case epsg >= 32701 && epsg <= 32760:
		return epsg - 32700, false, true
	default:
		return 0, false, false
	}
}

// Point is a 2D coordinate pair in some CRS, ordered (x, y) — (lon, lat)
// for geographic systems, (easting, northing) for projected ones.
type Point struct{ X, Y float64 }

// Projector reprojects a batch of points from one EPSG code to another.
type Projector interface {
	Project(points []Point, fromEPSG, toEPSG int) ([]Point, error)
}

// Default is the Projector every package in this module uses unless a
// caller substitutes one (e.g. a future PROJ-backed implementation);
// it implements the identity transform plus the WGS84<->Web Mercator
// closed-form conversion, the only reprojection pair both the original
// source and the teacher's consumers (tile-serving basemaps) ever need.
type Default struct{}

func (Default) Project(points []Point, fromEPSG, toEPSG int) ([]Point, error) {
	const op = "projector.Default.Project"
	if fromEPSG == toEPSG {
		out := append([]Point(nil), points...)
		return out, nil
	}
	out := make([]Point, len(points))
	switch {
	case fromEPSG == EPSGWGS84 && toEPSG == EPSGWebMercator:
		for i, p := range points {
			out[i] = lonLatToWebMercator(p)
		}
	case fromEPSG == EPSGWebMercator && toEPSG == EPSGWGS84:
		for i, p := range points {
			out[i] = webMercatorToLonLat(p)
		}
	default:
		return nil, tiff.Newf(tiff.KindUnsupported, op, "no projection available for EPSG:%d -> EPSG:%d", fromEPSG, toEPSG)
	}
	return out, nil
}

const earthRadiusMeters = 6378137.0

func lonLatToWebMercator(p Point) Point {
	x := p.X * math.Pi / 180 * earthRadiusMeters
	y := math.Log(math.Tan(math.Pi/4+(p.Y*math.Pi/180)/2)) * earthRadiusMeters
	return Point{X: x, Y: y}
}

func webMercatorToLonLat(p Point) Point {
	lon := (p.X / earthRadiusMeters) * 180 / math.Pi
	lat := (2*math.Atan(math.Exp(p.Y/earthRadiusMeters)) - math.Pi/2) * 180 / math.Pi
	return Point{X: lon, Y: lat}
}

func (s System) String() string { return fmt.Sprintf("EPSG:%d", s.EPSG) }
