// Package colormap implements the ColormapApplier: it parses a colormap
// description (either the TIFF ColorMap tag or an external SLD-like XML
// file) and maps single-channel pixel values to RGBA, grounded on the
// original Rust source's src/tiff/colormap.rs (RgbColor/ColorMapEntry
// model) and src/utils/colormap_utils.rs (find_color_for_value/
// interpolate_color ramp logic), neither of which the teacher carries since
// its COG reader only ever returns raw elevation floats.
package colormap

import (
	"encoding/xml"
	"fmt"
	"sort"

	"github.com/mauricemojito/rasterkit/internal/tiff"
)

// RGBA is an 8-bit-per-channel color, matching the original's RgbColor
// widened with an alpha channel for the apply step's transparency option.
type RGBA struct {
	R, G, B, A uint8
}

// Entry is one colormap entry: a pixel value and the color it maps to,
// mirroring the original's ColorMapEntry.
type Entry struct {
	Value float64
	Color RGBA
}

// Map is an ordered list of entries plus an optional default color for
// values outside every entry's range, matching spec.md §3's Colormap.
// Ramp interpolates linearly between neighboring entries; Nearest snaps to
// whichever entry is closest by distance (used for embedded TIFF ColorMap
// tags, which are a discrete per-index palette).
type Map struct {
	Entries []Entry
	Default *RGBA
	Ramp    bool
}

// FromEmbeddedTag decodes a TIFF ColorMap tag value: 3·2^bitsPerSample
// 16-bit entries (R plane, then G, then B), each scaled 0..65535, per TIFF
// 6.0 §Color Map. Index i maps to RGB(entries[i], entries[2^n+i],
// entries[2*2^n+i]).
func FromEmbeddedTag(v tiff.Value, bitsPerSample int) (*Map, error) {
	const op = "colormap.FromEmbeddedTag"
	shorts := v.Shorts
	n := 1 << uint(bitsPerSample)
	if len(shorts) != 3*n {
		return nil, tiff.Newf(tiff.KindFormat, op, "ColorMap tag has %d entries, want %d for %d-bit samples", len(shorts), 3*n, bitsPerSample)
	}
	m := &Map{Entries: make([]Entry, n)}
	for i := 0; i < n; i++ {
		m.Entries[i] = Entry{
			Value: float64(i),
			Color: RGBA{
				R: scale16to8(shorts[i]),
				G: scale16to8(shorts[n+i]),
				B: scale16to8(shorts[2*n+i]),
				A: 255,
			},
		}
	}
	return m, nil
}

func scale16to8(v uint16) uint8 { return uint8(uint32(v) * 255 / 65535) }

// sldDocument is the XML shape of an external colormap file:
//   <ColorMap type="ramp"><ColorMapEntry color="#RRGGBB" quantity="v" opacity="o"/>...</ColorMap>
// grounded on the original's parse_sld_entry_attributes, reimplemented with
// encoding/xml since no XML-parsing library appears anywhere in the
// retrieved corpus and this is the idiomatic Go default for the job.
type sldDocument struct {
	XMLName xml.Name    `xml:"ColorMap"`
	Type    string      `xml:"type,attr"`
	Entries []sldEntry  `xml:"ColorMapEntry"`
}

type sldEntry struct {
	Color    string `xml:"color,attr"`
	Quantity string `xml:"quantity,attr"`
	Opacity  string `xml:"opacity,attr"`
	Label    string `xml:"label,attr"`
}

// ParseSLD parses an SLD-like colormap description from raw, returning
// entries in ascending quantity order (sldEntry order in the file is
// assumed ascending per spec.md §6, but this function re-sorts
// defensively). Unknown elements and attributes are ignored, matching
// spec.md §6's "Parser ignores unknown elements."
func ParseSLD(raw []byte) (*Map, error) {
	const op = "colormap.ParseSLD"
	var doc sldDocument
	if err := xml.Unmarshal(raw, &doc); err != nil {
		return nil, tiff.Wrap(tiff.KindFormat, op, err)
	}
	m := &Map{Ramp: doc.Type == "ramp"}
	for _, e := range doc.Entries {
		entry, err := parseEntry(e)
		if err != nil {
			return nil, tiff.Wrap(tiff.KindFormat, op, err)
		}
		m.Entries = append(m.Entries, entry)
	}
	sort.Slice(m.Entries, func(i, j int) bool { return m.Entries[i].Value < m.Entries[j].Value })
	return m, nil
}

func parseEntry(e sldEntry) (Entry, error) {
	var quantity float64
	if _, err := fmt.Sscanf(e.Quantity, "%g", &quantity); err != nil {
		return Entry{}, fmt.Errorf("colormap: bad quantity %q: %w", e.Quantity, err)
	}
	color, err := parseHexColor(e.Color)
	if err != nil {
		return Entry{}, err
	}
	opacity := 1.0
	if e.Opacity != "" {
		if _, err := fmt.Sscanf(e.Opacity, "%g", &opacity); err != nil {
			return Entry{}, fmt.Errorf("colormap: bad opacity %q: %w", e.Opacity, err)
		}
	}
	color.A = uint8(opacity * 255)
	return Entry{Value: quantity, Color: color}, nil
}

func parseHexColor(s string) (RGBA, error) {
	if len(s) > 0 && s[0] == '#' {
		s = s[1:]
	}
	if len(s) != 6 {
		return RGBA{}, fmt.Errorf("colormap: invalid hex color %q", s)
	}
	var r, g, b uint8
	if _, err := fmt.Sscanf(s, "%02x%02x%02x", &r, &g, &b); err != nil {
		return RGBA{}, fmt.Errorf("colormap: invalid hex color %q: %w", s, err)
	}
	return RGBA{R: r, G: g, B: b, A: 255}, nil
}

// Lookup resolves value to a color, matching the original's
// find_color_for_value: a ramp colormap interpolates linearly between the
// two bracketing entries (interpolate_color); a discrete colormap (or an
// embedded palette) snaps to whichever entry is closest by distance
// (find_nearest_color), and anything outside the entry range falls back to
// m.Default when set, else transparent black. transparentOutOfRange
// implements spec.md §6's "--filter-transparency": out-of-range values get
// alpha=0 instead of the configured default.
func (m *Map) Lookup(value float64, transparentOutOfRange bool) RGBA {
	if len(m.Entries) == 0 {
		return m.fallback(transparentOutOfRange)
	}
	if value < m.Entries[0].Value || value > m.Entries[len(m.Entries)-1].Value {
		return m.fallback(transparentOutOfRange)
	}
	if m.Ramp {
		return m.interpolate(value)
	}
	return m.nearest(value)
}

func (m *Map) fallback(transparentOutOfRange bool) RGBA {
	if transparentOutOfRange {
		return RGBA{}
	}
	if m.Default != nil {
		return *m.Default
	}
	return RGBA{}
}

// interpolate linearly blends the two entries bracketing value, the
// original's interpolate_color.
func (m *Map) interpolate(value float64) RGBA {
	lo, hi := m.bracket(value)
	if lo.Value == hi.Value {
		return lo.Color
	}
	t := (value - lo.Value) / (hi.Value - lo.Value)
	lerp := func(a, b uint8) uint8 { return uint8(float64(a) + t*(float64(b)-float64(a))) }
	return RGBA{
		R: lerp(lo.Color.R, hi.Color.R),
		G: lerp(lo.Color.G, hi.Color.G),
		B: lerp(lo.Color.B, hi.Color.B),
		A: lerp(lo.Color.A, hi.Color.A),
	}
}

// nearest returns the color of whichever entry is closest to value by
// absolute distance, the original's find_nearest_color. Since m.Entries is
// sorted, the closest entry is always one of the two bracket() straddles —
// no need to scan the whole slice.
func (m *Map) nearest(value float64) RGBA {
	lo, hi := m.bracket(value)
	if hi.Value == lo.Value {
		return lo.Color
	}
	if hi.Value-value < value-lo.Value {
		return hi.Color
	}
	return lo.Color
}

// bracket returns the pair of entries (lo, hi) that straddle value, per the
// original's find_bracketing_entries; if value lands exactly on or past the
// last entry, lo == hi == that entry.
func (m *Map) bracket(value float64) (lo, hi Entry) {
	idx := sort.Search(len(m.Entries), func(i int) bool { return m.Entries[i].Value > value })
	if idx == 0 {
		return m.Entries[0], m.Entries[0]
	}
	if idx >= len(m.Entries) {
		last := m.Entries[len(m.Entries)-1]
		return last, last
	}
	return m.Entries[idx-1], m.Entries[idx]
}

// Apply maps every sample in values (length width*height, single-channel)
// to an RGBA buffer of length width*height*4, per spec.md §4.8: "input must
// be single-sample; output is 4-sample RGBA 8-bit."
func Apply(m *Map, values []float64, transparentOutOfRange bool) []byte {
	out := make([]byte, len(values)*4)
	for i, v := range values {
		c := m.Lookup(v, transparentOutOfRange)
		out[i*4] = c.R
		out[i*4+1] = c.G
		out[i*4+2] = c.B
		out[i*4+3] = c.A
	}
	return out
}
