package tiff

import (
	"encoding/binary"
	"math"
	"sort"

	"github.com/mauricemojito/rasterkit/internal/bytecursor"
)

// WriteHeader writes the 8-byte classic or 16-byte BigTIFF header at the
// start of dst and returns the offset of the header's first-IFD pointer
// field, which it leaves zero for the caller to fill once the first IFD's
// location is known. It always writes little-endian, matching the
// golang.org/x/image/tiff encoder's leHeader convention.
func WriteHeader(cur *bytecursor.Cursor, dst bytecursor.WritableSource, bigTIFF bool) (firstIFDOffsetField int64, err error) {
	const op = "tiff.WriteHeader"
	cur.SetEndian(binary.LittleEndian)

	if !bigTIFF {
		buf := make([]byte, 8)
		binary.LittleEndian.PutUint16(buf[0:2], littleEndianMarker)
		binary.LittleEndian.PutUint16(buf[2:4], classicIdentifier)
		if err := cur.WriteAt(dst, 0, buf); err != nil {
			return 0, Wrap(KindIO, op, err)
		}
		return 4, nil
	}
	buf := make([]byte, 16)
	binary.LittleEndian.PutUint16(buf[0:2], littleEndianMarker)
	binary.LittleEndian.PutUint16(buf[2:4], bigTiffIdentifier)
	binary.LittleEndian.PutUint16(buf[4:6], bigTiffOffsetSize)
	binary.LittleEndian.PutUint16(buf[6:8], 0) // reserved
	if err := cur.WriteAt(dst, 0, buf); err != nil {
		return 0, Wrap(KindIO, op, err)
	}
	return 8, nil
}

// WriteIFD serializes ifd at byteOffset using the classic 4-byte or BigTIFF
// 8-byte offset width per h, writing out-of-line values into a growing
// pointer area directly after the directory, generalizing the two-pass
// entries+parea layout from the x/image/tiff encoder (sorted tags, a
// pointer area sized as entries are emitted) to arbitrary tag sets and both
// TIFF variants.
//
// It returns the offset immediately past everything written, which the
// caller uses as the placement offset for the next IFD or for strip/tile
// data.
func WriteIFD(cur *bytecursor.Cursor, dst bytecursor.WritableSource, h Head, ifd *IFD, byteOffset int64, nextIFDOffset uint64) (int64, error) {
	const op = "tiff.WriteIFD"

	entries := append([]Entry(nil), ifd.Entries...)
	sort.Slice(entries, func(i, j int) bool { return entries[i].Tag < entries[j].Tag })

	entrySize := h.EntrySize()
	countWidth := h.EntryCountWidth()
	offsetWidth := h.OffsetWidth()

	dirStart := byteOffset
	dirHeaderLen := int64(countWidth)
	dirBodyLen := int64(entrySize) * int64(len(entries))
	nextPtrLen := int64(offsetWidth)
	pareaStart := dirStart + dirHeaderLen + dirBodyLen + nextPtrLen
	if pareaStart%2 != 0 {
		// Out-of-line values must start on a word boundary; the directory
		// header/body/next-pointer sizes are all even for both TIFF
		// variants, so this only triggers when byteOffset itself is odd.
		pareaStart++
	}

	if countWidth == 8 {
		b := make([]byte, 8)
		binary.LittleEndian.PutUint64(b, uint64(len(entries)))
		if err := cur.WriteAt(dst, dirStart, b); err != nil {
			return 0, Wrap(KindIO, op, err)
		}
	} else {
		b := make([]byte, 2)
		binary.LittleEndian.PutUint16(b, uint16(len(entries)))
		if err := cur.WriteAt(dst, dirStart, b); err != nil {
			return 0, Wrap(KindIO, op, err)
		}
	}

	parea := make([]byte, 0, 1024)
	entryPos := dirStart + dirHeaderLen

	for _, e := range entries {
		raw, err := encodeValue(e.FieldType, e.Value)
		if err != nil {
			return 0, Wrap(KindCodec, op, err)
		}
		entryBuf := make([]byte, entrySize)
		binary.LittleEndian.PutUint16(entryBuf[0:2], uint16(e.Tag))
		binary.LittleEndian.PutUint16(entryBuf[2:4], uint16(e.FieldType))

		count := e.Count
		if count == 0 {
			count = uint64(e.Value.Count())
		}
		if e.FieldType == FTASCII {
			count = uint64(len(raw)) // ASCII counts include the NUL encodeValue appends
		}
		if countWidth == 8 {
			binary.LittleEndian.PutUint64(entryBuf[4:12], count)
		} else {
			binary.LittleEndian.PutUint32(entryBuf[4:8], uint32(count))
		}

		valueField := entryBuf[4+offsetWidth:]
		if len(raw) <= offsetWidth {
			copy(valueField, raw)
		} else {
			placement := pareaStart + int64(len(parea))
			parea = append(parea, raw...)
			if len(parea)%2 != 0 {
				// Keep every subsequent out-of-line placement word-aligned.
				parea = append(parea, 0)
			}
			if offsetWidth == 8 {
				binary.LittleEndian.PutUint64(valueField, uint64(placement))
			} else {
				binary.LittleEndian.PutUint32(valueField, uint32(placement))
			}
		}

		if err := cur.WriteAt(dst, entryPos, entryBuf); err != nil {
			return 0, Wrap(KindIO, op, err)
		}
		entryPos += int64(entrySize)
	}

	nextBuf := make([]byte, offsetWidth)
	if offsetWidth == 8 {
		binary.LittleEndian.PutUint64(nextBuf, nextIFDOffset)
	} else {
		binary.LittleEndian.PutUint32(nextBuf, uint32(nextIFDOffset))
	}
	if err := cur.WriteAt(dst, entryPos, nextBuf); err != nil {
		return 0, Wrap(KindIO, op, err)
	}

	if len(parea) > 0 {
		if err := cur.WriteAt(dst, pareaStart, parea); err != nil {
			return 0, Wrap(KindIO, op, err)
		}
	}

	return pareaStart + int64(len(parea)), nil
}

// encodeValue renders v back to its on-disk byte representation, the
// inverse of decodeValue in reader.go.
func encodeValue(ft FieldType, v Value) ([]byte, error) {
	switch ft {
	case FTByte, FTUndefined:
		return v.Bytes, nil
	case FTASCII:
		return append([]byte(v.ASCII), 0), nil
	case FTShort:
		b := make([]byte, 2*len(v.Shorts))
		for i, s := range v.Shorts {
			binary.LittleEndian.PutUint16(b[i*2:], s)
		}
		return b, nil
	case FTLong:
		b := make([]byte, 4*len(v.Longs))
		for i, l := range v.Longs {
			binary.LittleEndian.PutUint32(b[i*4:], l)
		}
		return b, nil
	case FTSByte:
		b := make([]byte, len(v.SBytes))
		for i, s := range v.SBytes {
			b[i] = byte(s)
		}
		return b, nil
	case FTSShort:
		b := make([]byte, 2*len(v.SShorts))
		for i, s := range v.SShorts {
			binary.LittleEndian.PutUint16(b[i*2:], uint16(s))
		}
		return b, nil
	case FTSLong:
		b := make([]byte, 4*len(v.SLongs))
		for i, s := range v.SLongs {
			binary.LittleEndian.PutUint32(b[i*4:], uint32(s))
		}
		return b, nil
	case FTFloat:
		b := make([]byte, 4*len(v.Floats))
		for i, f := range v.Floats {
			binary.LittleEndian.PutUint32(b[i*4:], math.Float32bits(f))
		}
		return b, nil
	case FTDouble:
		b := make([]byte, 8*len(v.Doubles))
		for i, f := range v.Doubles {
			binary.LittleEndian.PutUint64(b[i*8:], math.Float64bits(f))
		}
		return b, nil
	case FTLong8, FTIFD8:
		b := make([]byte, 8*len(v.Long8s))
		for i, l := range v.Long8s {
			binary.LittleEndian.PutUint64(b[i*8:], l)
		}
		return b, nil
	case FTSLong8:
		b := make([]byte, 8*len(v.SLong8s))
		for i, l := range v.SLong8s {
			binary.LittleEndian.PutUint64(b[i*8:], uint64(l))
		}
		return b, nil
	case FTRational, FTSRational:
		b := make([]byte, 8*len(v.Rationals))
		for i, r := range v.Rationals {
			binary.LittleEndian.PutUint32(b[i*8:], uint32(int32(r.Num)))
			binary.LittleEndian.PutUint32(b[i*8+4:], uint32(int32(r.Den)))
		}
		return b, nil
	default:
		return nil, Newf(KindUnsupported, "tiff.encodeValue", "cannot encode field type %s", ft)
	}
}
