// Package geomodel builds the affine pixel↔world mapping a GeoTIFF carries
// in its ModelPixelScaleTag/ModelTiepointTag pair or its
// ModelTransformationTag, generalizing the teacher's hardcoded
// PixelScaleX/PixelScaleY fields and coordToPixel/pixelToCoord math
// (geotiff/geotiff.go, geotiff/profile.go) into a standalone component that
// also accepts the 4x4 transformation-matrix form the teacher never reads.
package geomodel

import (
	"math"

	"github.com/mauricemojito/rasterkit/internal/tiff"
)

// Model is the georeferencing transform for one IFD: pixel (col, row) maps
// to world (x, y) via a general 2D affine transform, represented as a
// 2x3 matrix [a b c; d e f] so both the tiepoint+scale and the
// ModelTransformationTag forms reduce to the same representation.
type Model struct {
	A, B, C float64 // x = A*col + B*row + C
	D, E, F float64 // y = D*col + E*row + F
}

// FromIFD resolves ifd's georeferencing tags into a Model. Per this
// module's resolution of the original spec's open question on precedence,
// ModelTransformationTag wins whenever both it and a tiepoint/scale pair
// are present, since a full matrix can express rotation/shear a scale pair
// cannot.
func FromIFD(ifd *tiff.IFD) (*Model, error) {
	const op = "geomodel.FromIFD"
	if v, ok := ifd.Get(tiff.ModelTransformationTag); ok {
		m, ok := v.AsDoubleSlice()
		if !ok || len(m) < 16 {
			return nil, tiff.Newf(tiff.KindGeo, op, "ModelTransformationTag has %d values, want 16", len(m))
		}
		// Row-major 4x4: [x y z 1]^T = M * [col row 0 1]^T.
		return &Model{A: m[0], B: m[1], C: m[3], D: m[4], E: m[5], F: m[7]}, nil
	}

	scale, hasScale := ifd.Get(tiff.ModelPixelScaleTag)
	tie, hasTie := ifd.Get(tiff.ModelTiepointTag)
	if !hasScale || !hasTie {
		return nil, tiff.Newf(tiff.KindGeo, op, "neither ModelTransformationTag nor a complete tiepoint/scale pair is present")
	}
	s, ok := scale.AsDoubleSlice()
	if !ok || len(s) < 2 {
		return nil, tiff.Newf(tiff.KindGeo, op, "ModelPixelScaleTag malformed")
	}
	t, ok := tie.AsDoubleSlice()
	if !ok || len(t) < 6 {
		return nil, tiff.Newf(tiff.KindGeo, op, "ModelTiepointTag malformed")
	}

	scaleX := s[0]
	scaleY := -math.Abs(s[1]) // Y scale is always forced negative: raster rows increase downward, world Y increases upward.

	rasterI, rasterJ := t[0], t[1]
	worldX, worldY := t[3], t[4]

	originX := worldX - rasterI*scaleX
	originY := worldY - rasterJ*scaleY
	return &Model{A: scaleX, B: 0, C: originX, D: 0, E: scaleY, F: originY}, nil
}

// PixelToWorld maps a pixel's center — (col+0.5, row+0.5), per this
// module's pixel-center convention — to world coordinates.
func (m *Model) PixelToWorld(col, row int) (x, y float64) {
	cc, rc := float64(col)+0.5, float64(row)+0.5
	return m.A*cc + m.B*rc + m.C, m.D*cc + m.E*rc + m.F
}

// WorldToPixel is the analytic inverse of PixelToWorld, returning the
// fractional pixel-center coordinates that map to (x, y); callers floor or
// round these to an integer pixel index as appropriate.
func (m *Model) WorldToPixel(x, y float64) (col, row float64, err error) {
	const op = "geomodel.Model.WorldToPixel"
	det := m.A*m.E - m.B*m.D
	if det == 0 {
		return 0, 0, tiff.Newf(tiff.KindGeo, op, "georeferencing transform is singular")
	}
	dx, dy := x-m.C, y-m.F
	cc := (m.E*dx - m.B*dy) / det
	rc := (m.A*dy - m.D*dx) / det
	return cc - 0.5, rc - 0.5, nil
}

// Bounds returns the world-space corners of an image width x height pixels
// across, matching the teacher's CornerCoordinates (computed there from
// PixelScaleX/Y and the tiepoint directly; here derived generically from
// the resolved Model so it also covers the ModelTransformationTag case).
type Bounds struct {
	UpperLeft, UpperRight, LowerLeft, LowerRight Point
}

// Point is a world-space coordinate pair.
type Point struct{ X, Y float64 }

// Contains reports whether p lies within the axis-aligned envelope of b,
// mirroring the teacher's CornerCoordinates.Contains.
func (b Bounds) Contains(p Point) bool {
	minX, maxX := minmax(b.UpperLeft.X, b.LowerRight.X)
	minY, maxY := minmax(b.LowerLeft.Y, b.UpperRight.Y)
	return p.X >= minX && p.X <= maxX && p.Y >= minY && p.Y <= maxY
}

func minmax(a, b float64) (float64, float64) {
	if a > b {
		return b, a
	}
	return a, b
}

// ImageBounds computes the four corners of a width x height image under m.
func ImageBounds(m *Model, width, height int) Bounds {
	ulX, ulY := m.A*0+m.B*0+m.C, m.D*0+m.E*0+m.F
	urX, urY := m.A*float64(width)+m.B*0+m.C, m.D*float64(width)+m.E*0+m.F
	llX, llY := m.A*0+m.B*float64(height)+m.C, m.D*0+m.E*float64(height)+m.F
	lrX, lrY := m.A*float64(width)+m.B*float64(height)+m.C, m.D*float64(width)+m.E*float64(height)+m.F
	return Bounds{
		UpperLeft:  Point{ulX, ulY},
		UpperRight: Point{urX, urY},
		LowerLeft:  Point{llX, llY},
		LowerRight: Point{lrX, lrY},
	}
}
