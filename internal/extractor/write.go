package extractor

import (
	"encoding/binary"

	"github.com/mauricemojito/rasterkit/internal/bytecursor"
	"github.com/mauricemojito/rasterkit/internal/compression"
	"github.com/mauricemojito/rasterkit/internal/projector"
	"github.com/mauricemojito/rasterkit/internal/raster"
	"github.com/mauricemojito/rasterkit/internal/tiff"
)

// MemSink is an in-memory bytecursor.WritableSource. WriteTIFF needs
// random-access writes — it patches the header's IFD-offset field and
// rewrites the directory once strip offsets are known — which an
// http.ResponseWriter cannot provide; handlers that must stream a TIFF back
// over HTTP write into a MemSink first and copy out its Bytes().
type MemSink struct {
	data []byte
	pos  int64
}

func (m *MemSink) Seek(offset int64, whence int) (int64, error) {
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

func (m *MemSink) Read(p []byte) (int, error) {
	n := copy(p, m.data[m.pos:])
	m.pos += int64(n)
	return n, nil
}

func (m *MemSink) ReadAt(p []byte, off int64) (int, error) {
	if off >= int64(len(m.data)) {
		return 0, nil
	}
	return copy(p, m.data[off:]), nil
}

func (m *MemSink) WriteAt(p []byte, off int64) (int, error) {
	end := off + int64(len(p))
	if end > int64(len(m.data)) {
		grown := make([]byte, end)
		copy(grown, m.data)
		m.data = grown
	}
	copy(m.data[off:end], p)
	return len(p), nil
}

func (m *MemSink) Truncate(size int64) error {
	if size < int64(len(m.data)) {
		m.data = m.data[:size]
	}
	return nil
}

// Bytes returns the sink's full written content.
func (m *MemSink) Bytes() []byte { return m.data }

// writeIFDOffsetField patches the header's first-IFD pointer (left
// unwritten by tiff.WriteHeader) with offset, 4 bytes wide for classic
// TIFF or 8 for BigTIFF.
func writeIFDOffsetField(cur *bytecursor.Cursor, dst bytecursor.WritableSource, field int64, offset uint64, bigTIFF bool) error {
	const op = "extractor.writeIFDOffsetField"
	if bigTIFF {
		b := make([]byte, 8)
		binary.LittleEndian.PutUint64(b, offset)
		return tiff.Wrap(tiff.KindIO, op, cur.WriteAt(dst, field, b))
	}
	b := make([]byte, 4)
	binary.LittleEndian.PutUint32(b, uint32(offset))
	return tiff.Wrap(tiff.KindIO, op, cur.WriteAt(dst, field, b))
}

// WriteOptions controls how WriteTIFF serializes an extracted region.
// Zero values mean "inherit from the source IFD", per spec.md §6's
// --compression/--predictor overrides.
type WriteOptions struct {
	Compression int // 0 means inherit
	Predictor   int // 0 means inherit
	BigTIFF     bool
	Reproject   *ReprojectSpec // nil means keep the source CRS
}

// ReprojectSpec requests that the output's georeferencing tags be expressed
// in ToEPSG rather than the source image's CRS, per spec.md §6 --proj. It
// retags the extracted region in place; it does not resample pixels, since
// none of this module's consumers need anything beyond a relabelled,
// axis-aligned grid (the same scope the original source's own
// update_projection_code placeholder stopped at).
type ReprojectSpec struct {
	FromEPSG, ToEPSG int
	Proj             projector.Projector // nil means projector.Default{}
}

// WriteTIFF serializes buf (an extracted rectangular region, already
// cropped and masked) as a standalone single-image TIFF, copying from src
// only the tags listed in carryOverTags (other source tags are not carried
// over) and rebuilding the layout and geo-origin tags, per spec.md §4.9 steps
// 6-8. originX/originY are buf's top-left corner in src's pixel space,
// used to rewrite ModelTiepointTag so the output keeps correct
// georeferencing for its new, smaller extent.
func WriteTIFF(dst bytecursor.WritableSource, src *tiff.IFD, buf *raster.Buffer, originX, originY int, opts WriteOptions) error {
	const op = "extractor.WriteTIFF"

	bitsPerSample := int(tagUintDefault(src, tiff.BitsPerSample, 8))
	sampleFormat := int(tagUintDefault(src, tiff.SampleFormat, tiff.SampleFormatUnsigned))
	photometric := int(tagUintDefault(src, tiff.PhotometricInterpretation, tiff.PhotometricBlackIsZero))

	compressionCode := opts.Compression
	if compressionCode == 0 {
		compressionCode = int(tagUintDefault(src, tiff.Compression, tiff.CompressionNone))
	}
	predictor := opts.Predictor
	if predictor == 0 {
		predictor = int(tagUintDefault(src, tiff.Predictor, tiff.PredictorNone))
	}
	codec, err := compression.ForCompression(compressionCode)
	if err != nil {
		return err
	}

	rowsPerStrip := raster.ChooseRowsPerStrip(buf.Width, buf.SamplesPerPixel, bitsPerSample, compressionCode)
	strips, err := raster.EncodeStrips(buf, rowsPerStrip, bitsPerSample, sampleFormat, binary.LittleEndian, predictor, codec)
	if err != nil {
		return err
	}

	out := newOutputIFD(src, buf, originX, originY, bitsPerSample, sampleFormat, photometric, compressionCode, predictor, rowsPerStrip)
	if opts.Reproject != nil {
		if err := reprojectGeoTags(out, opts.Reproject); err != nil {
			return err
		}
	}

	cur, err := bytecursor.New(dst)
	if err != nil {
		return tiff.Wrap(tiff.KindIO, op, err)
	}
	ifdOffsetField, err := tiff.WriteHeader(cur, dst, opts.BigTIFF)
	if err != nil {
		return err
	}

	head := tiff.Head{BigEndian: false, BigTIFF: opts.BigTIFF}
	headerLen := int64(8)
	if opts.BigTIFF {
		headerLen = 16
	}

	// The header reserves ifdOffsetField for the first IFD's location but
	// never fills it in; the IFD always lands immediately after the header
	// in this writer, so patch it in now rather than leaving it zero (which
	// would make ReadHeader/ReadIFDChain see an empty chain on reopen).
	if err := writeIFDOffsetField(cur, dst, ifdOffsetField, uint64(headerLen), opts.BigTIFF); err != nil {
		return err
	}

	// Seed placeholder Strip* entries at their final width before the
	// provisional write, so it already reserves the pointer-area space the
	// real values will need below; see setStripTags.
	setStripTags(out, make([]uint64, len(strips)), make([]uint64, len(strips)))

	// Provisional IFD write establishes the pointer-area layout and tells
	// us how much space the directory plus its out-of-line tag values
	// occupy, so strip data can be placed immediately after.
	stripDataStart, err := tiff.WriteIFD(cur, dst, head, out, headerLen, 0)
	if err != nil {
		return err
	}

	offsets := make([]uint64, len(strips))
	byteCounts := make([]uint64, len(strips))
	pos := uint64(stripDataStart)
	for i, s := range strips {
		offsets[i] = pos
		byteCounts[i] = uint64(len(s))
		pos += uint64(len(s))
	}
	setStripTags(out, offsets, byteCounts)

	// Re-write now that StripOffsets/StripByteCounts carry real values;
	// setStripTags keeps their field type/count identical to the
	// placeholder write above, so the pointer area does not move and
	// stripDataStart (and the strip writes below) stay valid.
	if _, err := tiff.WriteIFD(cur, dst, head, out, headerLen, 0); err != nil {
		return err
	}

	for i, s := range strips {
		if err := cur.WriteAt(dst, int64(offsets[i]), s); err != nil {
			return tiff.Wrap(tiff.KindIO, op, err)
		}
	}
	return nil
}

// newOutputIFD builds the output image's directory: every tag from src
// that still applies, plus the region's own geometry/geo tags.
func newOutputIFD(src *tiff.IFD, buf *raster.Buffer, originX, originY, bitsPerSample, sampleFormat, photometric, compressionCode, predictor, rowsPerStrip int) *tiff.IFD {
	out := &tiff.IFD{}
	for _, tag := range carryOverTags {
		if e := findEntry(src, tag); e != nil {
			out.Set(tag, e.FieldType, e.Value)
		}
	}

	setIntTag(out, tiff.ImageWidth, []uint64{uint64(buf.Width)})
	setIntTag(out, tiff.ImageLength, []uint64{uint64(buf.Height)})
	setIntTag(out, tiff.BitsPerSample, []uint64{uint64(bitsPerSample)})
	setIntTag(out, tiff.SamplesPerPixel, []uint64{uint64(buf.SamplesPerPixel)})
	setIntTag(out, tiff.PhotometricInterpretation, []uint64{uint64(photometric)})
	setIntTag(out, tiff.Compression, []uint64{uint64(compressionCode)})
	setIntTag(out, tiff.Predictor, []uint64{uint64(predictor)})
	setIntTag(out, tiff.SampleFormat, []uint64{uint64(sampleFormat)})
	setIntTag(out, tiff.PlanarConfiguration, []uint64{uint64(tiff.PlanarChunky)})
	setIntTag(out, tiff.RowsPerStrip, []uint64{uint64(rowsPerStrip)})

	rewriteTiepoint(out, src, originX, originY)
	return out
}

// setStripTags writes numStrips-long StripOffsets/StripByteCounts arrays as
// fixed-width FTLong, never the magnitude-dependent FTShort/FTLong choice
// setIntTag makes elsewhere. WriteTIFF calls this twice: once with
// placeholder zeros before the provisional tiff.WriteIFD, once with the real
// values before the final one. Both calls must produce byte-for-byte the
// same entry shape — same field type, same count — so the out-of-line
// pointer-area layout the provisional write already committed to (and
// stripDataStart derived from it) stays valid; using setIntTag here would
// let a placeholder 0 encode as an inline SHORT while the real offset later
// needs an out-of-line LONG, growing the directory's pointer area between
// passes and corrupting whatever tag's out-of-line bytes used to occupy
// that space.
func setStripTags(out *tiff.IFD, offsets, byteCounts []uint64) {
	toLongs := func(vals []uint64) []uint32 {
		longs := make([]uint32, len(vals))
		for i, v := range vals {
			longs[i] = uint32(v)
		}
		return longs
	}
	out.Set(tiff.StripOffsets, tiff.FTLong, tiff.Value{Kind: tiff.FTLong, Longs: toLongs(offsets)})
	out.Set(tiff.StripByteCounts, tiff.FTLong, tiff.Value{Kind: tiff.FTLong, Longs: toLongs(byteCounts)})
}

// carryOverTags lists the descriptive tags an extracted region keeps
// unchanged from its source image, per spec.md §4.9 step 6. Geometry,
// strip layout, and tiepoint tags are excluded since they are rebuilt for
// the new extent.
var carryOverTags = []tiff.Tag{
	tiff.ColorMap,
	tiff.ModelPixelScaleTag,
	tiff.GeoKeyDirectoryTag,
	tiff.GeoDoubleParamsTag,
	tiff.GeoAsciiParamsTag,
}

// rewriteTiepoint shifts src's ModelTiepointTag so the output's pixel
// (0,0) maps to the same world point the source's pixel (originX,
// originY) did, per spec.md §4.9 step 7 ("the extracted TIFF's own origin
// must describe its cropped extent, not the source's").
func rewriteTiepoint(out, src *tiff.IFD, originX, originY int) {
	tie, ok := src.Get(tiff.ModelTiepointTag)
	if !ok {
		return
	}
	d, ok := tie.AsDoubleSlice()
	if !ok || len(d) < 6 {
		return
	}
	scale, hasScale := src.Get(tiff.ModelPixelScaleTag)
	sx, sy := 1.0, 1.0
	if hasScale {
		if s, ok := scale.AsDoubleSlice(); ok && len(s) >= 2 {
			sx, sy = s[0], s[1]
		}
	}
	// tiepoint[3:6] is the world coordinate at raster pixel
	// (tiepoint[0], tiepoint[1]); shift it by the crop offset expressed
	// in world units.
	newX := d[3] + float64(originX)*sx
	newY := d[4] - float64(originY)*sy
	out.Set(tiff.ModelTiepointTag, tiff.FTDouble, tiff.Value{Kind: tiff.FTDouble, Doubles: []float64{d[0], d[1], d[2], newX, newY, d[5]}})
}

// reprojectGeoTags rewrites out's ModelTiepointTag/ModelPixelScaleTag and,
// when present, its GeoKeyDirectoryTag's CRS key to express the region in
// spec.ToEPSG instead of spec.FromEPSG, per spec.md §6 --proj. Reprojecting
// the tiepoint anchor and one pixel-scale step (rather than resampling every
// pixel) keeps the grid axis-aligned, the same simplification this module's
// projector.Default already makes for region selection in ResolveRegion.
func reprojectGeoTags(out *tiff.IFD, spec *ReprojectSpec) error {
	const op = "extractor.reprojectGeoTags"
	if spec.FromEPSG == 0 || spec.ToEPSG == 0 || spec.FromEPSG == spec.ToEPSG {
		return nil
	}
	tie, ok := out.Get(tiff.ModelTiepointTag)
	if !ok {
		return nil
	}
	t, ok := tie.AsDoubleSlice()
	if !ok || len(t) < 6 {
		return nil
	}
	sx, sy := 1.0, 1.0
	if scale, ok := out.Get(tiff.ModelPixelScaleTag); ok {
		if s, ok := scale.AsDoubleSlice(); ok && len(s) >= 2 {
			sx, sy = s[0], s[1]
		}
	}

	proj := spec.Proj
	if proj == nil {
		proj = projector.Default{}
	}
	anchor := projector.Point{X: t[3], Y: t[4]}
	step := projector.Point{X: t[3] + sx, Y: t[4] - sy}
	reprojected, err := proj.Project([]projector.Point{anchor, step}, spec.FromEPSG, spec.ToEPSG)
	if err != nil {
		return tiff.Wrap(tiff.KindGeo, op, err)
	}
	newSX := reprojected[1].X - reprojected[0].X
	newSY := reprojected[0].Y - reprojected[1].Y

	out.Set(tiff.ModelTiepointTag, tiff.FTDouble, tiff.Value{Kind: tiff.FTDouble, Doubles: []float64{t[0], t[1], t[2], reprojected[0].X, reprojected[0].Y, t[5]}})
	out.Set(tiff.ModelPixelScaleTag, tiff.FTDouble, tiff.Value{Kind: tiff.FTDouble, Doubles: []float64{abs(newSX), abs(newSY), 0}})
	rewriteGeoKeyEPSG(out, spec.ToEPSG)
	return nil
}

func abs(f float64) float64 {
	if f < 0 {
		return -f
	}
	return f
}

// rewriteGeoKeyEPSG patches the GeodeticCRS/ProjectedCRS key inside out's
// GeoKeyDirectoryTag (SHORT-packed per spec.md §9: version/revision/minor,
// key count, then KeyID/Location/Count/Value quadruplets) to epsg, leaving
// every other key untouched. A tag with no matching key, or no
// GeoKeyDirectoryTag at all, is left alone — there is nothing to retag.
func rewriteGeoKeyEPSG(out *tiff.IFD, epsg int) {
	v, ok := out.Get(tiff.GeoKeyDirectoryTag)
	if !ok || len(v.Shorts) < 4 {
		return
	}
	dir := append([]uint16(nil), v.Shorts...)
	numKeys := int(dir[3])
	for i := 0; i < numKeys; i++ {
		base := 4 + i*4
		if base+3 >= len(dir) {
			break
		}
		keyID := tiff.GeoKeyID(dir[base])
		location := dir[base+1]
		if location != 0 {
			continue // value lives out-of-line (GeoDoubleParamsTag/GeoAsciiParamsTag); not a CRS code
		}
		if keyID == tiff.GeoKeyProjectedCRS || keyID == tiff.GeoKeyGeodeticCRS {
			dir[base+3] = uint16(epsg)
		}
	}
	out.Set(tiff.GeoKeyDirectoryTag, tiff.FTShort, tiff.Value{Kind: tiff.FTShort, Shorts: dir})
}

// findEntry scans src's entries for tag, used to carry a field's on-disk
// type forward unchanged (Get widens everything to Value, losing whether
// e.g. a SHORT or LONG originally held a dimension).
func findEntry(src *tiff.IFD, tag tiff.Tag) *tiff.Entry {
	for i := range src.Entries {
		if src.Entries[i].Tag == tag {
			return &src.Entries[i]
		}
	}
	return nil
}

func setIntTag(ifd *tiff.IFD, tag tiff.Tag, vals []uint64) {
	longs := make([]uint32, len(vals))
	fitsShort := true
	for i, v := range vals {
		longs[i] = uint32(v)
		if v > 0xFFFF {
			fitsShort = false
		}
	}
	if fitsShort {
		shorts := make([]uint16, len(vals))
		for i, v := range vals {
			shorts[i] = uint16(v)
		}
		ifd.Set(tag, tiff.FTShort, tiff.Value{Kind: tiff.FTShort, Shorts: shorts})
		return
	}
	ifd.Set(tag, tiff.FTLong, tiff.Value{Kind: tiff.FTLong, Longs: longs})
}
