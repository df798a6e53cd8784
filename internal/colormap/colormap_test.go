package colormap

import (
	"bytes"
	"testing"

	"github.com/mauricemojito/rasterkit/internal/tiff"
)

func TestFromEmbeddedTag(t *testing.T) {
	// 2-bit samples: 4 palette entries, planes of R,G,B each 4 shorts.
	shorts := []uint16{
		0, 65535, 0, 65535, // R plane
		0, 0, 65535, 65535, // G plane
		65535, 0, 0, 65535, // B plane
	}
	m, err := FromEmbeddedTag(tiff.Value{Shorts: shorts}, 2)
	if err != nil {
		t.Fatalf("FromEmbeddedTag: %v", err)
	}
	if len(m.Entries) != 4 {
		t.Fatalf("got %d entries, want 4", len(m.Entries))
	}
	want := []RGBA{
		{R: 0, G: 0, B: 255, A: 255},
		{R: 255, G: 0, B: 0, A: 255},
		{R: 0, G: 255, B: 0, A: 255},
		{R: 255, G: 255, B: 255, A: 255},
	}
	for i, e := range m.Entries {
		if e.Value != float64(i) || e.Color != want[i] {
			t.Errorf("entry %d = %+v, want value=%d color=%+v", i, e, i, want[i])
		}
	}
}

func TestFromEmbeddedTagWrongLength(t *testing.T) {
	if _, err := FromEmbeddedTag(tiff.Value{Shorts: []uint16{1, 2, 3}}, 8); err == nil {
		t.Fatalf("FromEmbeddedTag accepted a mismatched entry count")
	} else if tiff.KindOf(err) != tiff.KindFormat {
		t.Fatalf("KindOf(err) = %v, want KindFormat", tiff.KindOf(err))
	}
}

func TestParseSLDRamp(t *testing.T) {
	doc := []byte(`<ColorMap type="ramp">
		<ColorMapEntry color="#0000FF" quantity="0" label="low"/>
		<ColorMapEntry color="#FF0000" quantity="100" label="high"/>
	</ColorMap>`)
	m, err := ParseSLD(doc)
	if err != nil {
		t.Fatalf("ParseSLD: %v", err)
	}
	if !m.Ramp {
		t.Fatalf("ParseSLD did not detect type=\"ramp\"")
	}
	if len(m.Entries) != 2 {
		t.Fatalf("got %d entries, want 2", len(m.Entries))
	}
	mid := m.Lookup(50, false)
	if mid.R != 127 && mid.R != 128 {
		t.Errorf("interpolated R at midpoint = %d, want ~127", mid.R)
	}
	if mid.B != 127 && mid.B != 128 {
		t.Errorf("interpolated B at midpoint = %d, want ~127", mid.B)
	}
}

func TestParseSLDSortsUnorderedEntries(t *testing.T) {
	doc := []byte(`<ColorMap type="intervals">
		<ColorMapEntry color="#FFFFFF" quantity="100"/>
		<ColorMapEntry color="#000000" quantity="0"/>
	</ColorMap>`)
	m, err := ParseSLD(doc)
	if err != nil {
		t.Fatalf("ParseSLD: %v", err)
	}
	if m.Entries[0].Value != 0 || m.Entries[1].Value != 100 {
		t.Fatalf("ParseSLD did not sort entries ascending: %+v", m.Entries)
	}
}

func TestParseSLDOpacityAttribute(t *testing.T) {
	doc := []byte(`<ColorMap type="intervals">
		<ColorMapEntry color="#112233" quantity="0" opacity="0.5"/>
	</ColorMap>`)
	m, err := ParseSLD(doc)
	if err != nil {
		t.Fatalf("ParseSLD: %v", err)
	}
	if m.Entries[0].Color.A != 127 {
		t.Fatalf("opacity 0.5 -> alpha %d, want 127", m.Entries[0].Color.A)
	}
}

func TestParseSLDRejectsBadColor(t *testing.T) {
	doc := []byte(`<ColorMap><ColorMapEntry color="notacolor" quantity="0"/></ColorMap>`)
	if _, err := ParseSLD(doc); err == nil {
		t.Fatalf("ParseSLD accepted a malformed color")
	}
}

func TestLookupNearestIsDiscrete(t *testing.T) {
	m := &Map{Entries: []Entry{
		{Value: 0, Color: RGBA{R: 1}},
		{Value: 10, Color: RGBA{R: 2}},
		{Value: 20, Color: RGBA{R: 3}},
	}}
	if got := m.Lookup(15, false); got.R != 2 {
		t.Fatalf("nearest Lookup(15) = R=%d, want R=2 (snaps down to the 10 entry)", got.R)
	}
}

// TestLookupNearestPicksClosestNotFloor guards against nearest() degrading
// into a floor lookup: at value=19 the entry at 20 (distance 1) is strictly
// closer than the entry at 10 (distance 9), so a floor implementation that
// always snaps down to the highest entry <= value would wrongly pick 10.
func TestLookupNearestPicksClosestNotFloor(t *testing.T) {
	m := &Map{Entries: []Entry{
		{Value: 0, Color: RGBA{R: 1}},
		{Value: 10, Color: RGBA{R: 2}},
		{Value: 20, Color: RGBA{R: 3}},
	}}
	if got := m.Lookup(19, false); got.R != 3 {
		t.Fatalf("nearest Lookup(19) = R=%d, want R=3 (20 is closer than 10)", got.R)
	}
}

func TestLookupOutOfRangeUsesDefaultOrTransparent(t *testing.T) {
	def := RGBA{R: 9, G: 9, B: 9, A: 255}
	m := &Map{Entries: []Entry{{Value: 0, Color: RGBA{R: 1}}, {Value: 10, Color: RGBA{R: 2}}}, Default: &def}
	if got := m.Lookup(100, false); got != def {
		t.Fatalf("Lookup(100) = %+v, want default %+v", got, def)
	}
	if got := m.Lookup(100, true); got != (RGBA{}) {
		t.Fatalf("Lookup(100, transparent) = %+v, want zero RGBA", got)
	}
}

func TestApplyProducesRGBABuffer(t *testing.T) {
	m := &Map{Ramp: true, Entries: []Entry{
		{Value: 0, Color: RGBA{R: 0, A: 255}},
		{Value: 10, Color: RGBA{R: 255, A: 255}},
	}}
	out := Apply(m, []float64{0, 10}, false)
	if len(out) != 8 {
		t.Fatalf("Apply output length = %d, want 8", len(out))
	}
	if !bytes.Equal(out[:4], []byte{0, 0, 0, 255}) {
		t.Errorf("first pixel = %v, want [0 0 0 255]", out[:4])
	}
	if !bytes.Equal(out[4:], []byte{255, 0, 0, 255}) {
		t.Errorf("second pixel = %v, want [255 0 0 255]", out[4:])
	}
}
