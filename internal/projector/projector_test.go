package projector

import (
	"math"
	"testing"

	"github.com/mauricemojito/rasterkit/internal/tiff"
)

func TestFromString(t *testing.T) {
	cases := map[string]int{
		"EPSG:4326": 4326,
		"epsg:3857": 3857,
		"32601":     32601,
		" 4326 ":    4326,
	}
	for in, want := range cases {
		sys, err := FromString(in)
		if err != nil {
			t.Fatalf("FromString(%q): %v", in, err)
		}
		if sys.EPSG != want {
			t.Errorf("FromString(%q).EPSG = %d, want %d", in, sys.EPSG, want)
		}
	}
}

func TestFromStringRejectsGarbage(t *testing.T) {
	if _, err := FromString("not-a-crs"); err == nil {
		t.Fatalf("FromString accepted a non-numeric CRS string")
	} else if tiff.KindOf(err) != tiff.KindRequest {
		t.Fatalf("KindOf(err) = %v, want KindRequest", tiff.KindOf(err))
	}
}

func TestIsUTM(t *testing.T) {
	cases := []struct {
		epsg      int
		zone      int
		northern  bool
		isUTMZone bool
	}{
		{32601, 1, true, true},
		{32660, 60, true, true},
		{32701, 1, false, true},
		{32760, 60, false, true},
		{4326, 0, false, false},
		{3857, 0, false, false},
	}
	for _, c := range cases {
		zone, north, ok := IsUTM(c.epsg)
		if ok != c.isUTMZone {
			t.Errorf("IsUTM(%d) matched = %v, want %v", c.epsg, ok, c.isUTMZone)
			continue
		}
		if ok && (zone != c.zone || north != c.northern) {
			t.Errorf("IsUTM(%d) = (%d, %v), want (%d, %v)", c.epsg, zone, north, c.zone, c.northern)
		}
	}
}

func TestDefaultProjectIdentity(t *testing.T) {
	pts := []Point{{X: 1, Y: 2}, {X: 3, Y: 4}}
	out, err := Default{}.Project(pts, EPSGWGS84, EPSGWGS84)
	if err != nil {
		t.Fatalf("Project: %v", err)
	}
	for i := range pts {
		if out[i] != pts[i] {
			t.Fatalf("identity projection altered point %d: %v -> %v", i, pts[i], out[i])
		}
	}
}

func TestDefaultProjectWGS84ToWebMercatorRoundTrip(t *testing.T) {
	pts := []Point{{X: 2.3522, Y: 48.8566}, {X: -122.4194, Y: 37.7749}, {X: 0, Y: 0}}
	merc, err := Default{}.Project(pts, EPSGWGS84, EPSGWebMercator)
	if err != nil {
		t.Fatalf("Project to web mercator: %v", err)
	}
	back, err := Default{}.Project(merc, EPSGWebMercator, EPSGWGS84)
	if err != nil {
		t.Fatalf("Project back to WGS84: %v", err)
	}
	for i, p := range pts {
		if math.Abs(back[i].X-p.X) > 1e-6 || math.Abs(back[i].Y-p.Y) > 1e-6 {
			t.Fatalf("round trip mismatch at %d: got %v, want %v", i, back[i], p)
		}
	}
}

func TestDefaultProjectOriginIsOrigin(t *testing.T) {
	out, err := Default{}.Project([]Point{{X: 0, Y: 0}}, EPSGWGS84, EPSGWebMercator)
	if err != nil {
		t.Fatalf("Project: %v", err)
	}
	if math.Abs(out[0].X) > 1e-9 || math.Abs(out[0].Y) > 1e-9 {
		t.Fatalf("Project(0,0) = %v, want (0,0)", out[0])
	}
}

func TestDefaultProjectUnsupportedPair(t *testing.T) {
	_, err := Default{}.Project([]Point{{X: 0, Y: 0}}, EPSGWGS84, 32601)
	if err == nil {
		t.Fatalf("Project accepted an unsupported EPSG pair")
	} else if tiff.KindOf(err) != tiff.KindUnsupported {
		t.Fatalf("KindOf(err) = %v, want KindUnsupported", tiff.KindOf(err))
	}
}

func TestSystemString(t *testing.T) {
	s := System{EPSG: 4326}
	if s.String() != "EPSG:4326" {
		t.Fatalf("String() = %q, want EPSG:4326", s.String())
	}
}
