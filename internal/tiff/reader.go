package tiff

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/mauricemojito/rasterkit/internal/bytecursor"
)

// ReadHeader parses the 8-byte classic TIFF header or 16-byte BigTIFF header
// at the start of c, generalizing the teacher's readHeader (which only
// handled the classic "II"/42 case) to also accept BigTIFF's "43" magic and
// its extra offset-size/reserved fields.
func ReadHeader(c *bytecursor.Cursor) (Head, error) {
	const op = "tiff.ReadHeader"
	if err := c.Seek(0); err != nil {
		return Head{}, Wrap(KindIO, op, err)
	}
	marker, err := c.ReadU16()
	if err != nil {
		return Head{}, Wrap(KindIO, op, err)
	}
	var order binary.ByteOrder
	var bigEndian bool
	switch marker {
	case littleEndianMarker:
		order = binary.LittleEndian
	case bigEndianMarker:
		order = binary.BigEndian
		bigEndian = true
	default:
		return Head{}, Newf(KindFormat, op, "bad byte-order marker 0x%04x", marker)
	}
	c.SetEndian(order)

	version, err := c.ReadU16()
	if err != nil {
		return Head{}, Wrap(KindIO, op, err)
	}

	h := Head{BigEndian: bigEndian}
	switch version {
	case classicIdentifier:
		off, err := c.ReadU32()
		if err != nil {
			return Head{}, Wrap(KindIO, op, err)
		}
		h.IFDOffset = uint64(off)
	case bigTiffIdentifier:
		offsetSize, err := c.ReadU16()
		if err != nil {
			return Head{}, Wrap(KindIO, op, err)
		}
		if offsetSize != bigTiffOffsetSize {
			return Head{}, Newf(KindFormat, op, "unsupported BigTIFF offset size %d", offsetSize)
		}
		if _, err := c.ReadU16(); err != nil { // reserved, always 0
			return Head{}, Wrap(KindIO, op, err)
		}
		off, err := c.ReadU64()
		if err != nil {
			return Head{}, Wrap(KindIO, op, err)
		}
		h.BigTIFF = true
		h.IFDOffset = off
	default:
		return Head{}, Newf(KindUnsupported, op, "unsupported version magic %d", version)
	}
	return h, nil
}

// ReadIFDChain walks every IFD starting at h.IFDOffset, following the Next
// pointer until it reaches 0, generalizing the teacher's readTags (which
// decoded only the first IFD, since a single-image COG never needed more).
func ReadIFDChain(c *bytecursor.Cursor, h Head) ([]*IFD, error) {
	const op = "tiff.ReadIFDChain"
	var chain []*IFD
	offset := h.IFDOffset
	seen := map[uint64]bool{}
	for offset != 0 {
		if seen[offset] {
			return nil, Newf(KindFormat, op, "IFD chain loops back to offset %d", offset)
		}
		seen[offset] = true
		ifd, err := readOneIFD(c, h, offset)
		if err != nil {
			return nil, err
		}
		chain = append(chain, ifd)
		offset = ifd.Next
	}
	if len(chain) == 0 {
		return nil, Newf(KindFormat, op, "no image file directories present")
	}
	return chain, nil
}

func readOneIFD(c *bytecursor.Cursor, h Head, offset uint64) (*IFD, error) {
	const op = "tiff.readOneIFD"
	if err := c.Seek(int64(offset)); err != nil {
		return nil, Wrap(KindFormat, op, err)
	}

	var count uint64
	if h.BigTIFF {
		n, err := c.ReadU64()
		if err != nil {
			return nil, Wrap(KindIO, op, err)
		}
		count = n
	} else {
		n, err := c.ReadU16()
		if err != nil {
			return nil, Wrap(KindIO, op, err)
		}
		count = uint64(n)
	}

	ifd := &IFD{Entries: make([]Entry, 0, count)}
	for i := uint64(0); i < count; i++ {
		entry, err := readOneEntry(c, h)
		if err != nil {
			return nil, err
		}
		if entry == nil {
			continue // unknown value kind: warned-and-skipped, not fatal
		}
		ifd.Entries = append(ifd.Entries, *entry)
	}
	ifd.Index()

	if h.BigTIFF {
		next, err := c.ReadU64()
		if err != nil {
			return nil, Wrap(KindIO, op, err)
		}
		ifd.Next = next
	} else {
		next, err := c.ReadU32()
		if err != nil {
			return nil, Wrap(KindIO, op, err)
		}
		ifd.Next = uint64(next)
	}
	return ifd, nil
}

// readOneEntry decodes a single directory entry, resolving its value either
// inline (when count*size fits in the offset field) or via a follow-up read
// at ValueOffset, and returns (nil, nil) for a value kind this reader does
// not recognize so the caller can skip it rather than abort the whole file.
func readOneEntry(c *bytecursor.Cursor, h Head) (*Entry, error) {
	const op = "tiff.readOneEntry"
	tagID, err := c.ReadU16()
	if err != nil {
		return nil, Wrap(KindIO, op, err)
	}
	ftRaw, err := c.ReadU16()
	if err != nil {
		return nil, Wrap(KindIO, op, err)
	}
	ft := FieldType(ftRaw)

	var count uint64
	if h.BigTIFF {
		count, err = c.ReadU64()
	} else {
		var n32 uint32
		n32, err = c.ReadU32()
		count = uint64(n32)
	}
	if err != nil {
		return nil, Wrap(KindIO, op, err)
	}

	valueFieldWidth := h.OffsetWidth()
	valueFieldBytes, err := c.ReadBytes(valueFieldWidth)
	if err != nil {
		return nil, Wrap(KindIO, op, err)
	}

	size := ft.Size()
	if size == 0 {
		// Unknown field kind: the teacher's geotiff.go silently ignored tags
		// it didn't model; we do the same rather than fail the whole IFD.
		return nil, nil
	}
	totalBytes := size * uint32(count)

	var raw []byte
	var valueOffset uint64
	if uint64(totalBytes) <= uint64(valueFieldWidth) {
		raw = valueFieldBytes[:totalBytes]
	} else {
		if h.BigTIFF {
			valueOffset = c.Order().Uint64(valueFieldBytes)
		} else {
			valueOffset = uint64(c.Order().Uint32(valueFieldBytes))
		}
		raw, err = c.ReadAt(int64(valueOffset), int(totalBytes))
		if err != nil {
			return nil, Wrap(KindFormat, op, fmt.Errorf("tag %s: %w", Tag(tagID), err))
		}
	}

	val, err := decodeValue(c.Order(), ft, count, raw)
	if err != nil {
		return nil, Wrap(KindFormat, op, fmt.Errorf("tag %s: %w", Tag(tagID), err))
	}

	return &Entry{
		Tag:         Tag(tagID),
		FieldType:   ft,
		Count:       count,
		ValueOffset: valueOffset,
		Value:       val,
	}, nil
}

func decodeValue(order binary.ByteOrder, ft FieldType, count uint64, raw []byte) (Value, error) {
	v := Value{Kind: ft}
	n := int(count)
	switch ft {
	case FTByte:
		v.Bytes = append([]byte(nil), raw...)
	case FTUndefined:
		v.Bytes = append([]byte(nil), raw...)
	case FTASCII:
		s := string(raw)
		for len(s) > 0 && s[len(s)-1] == 0 {
			s = s[:len(s)-1]
		}
		v.ASCII = s
	case FTShort:
		v.Shorts = make([]uint16, n)
		for i := 0; i < n; i++ {
			v.Shorts[i] = order.Uint16(raw[i*2:])
		}
	case FTLong:
		v.Longs = make([]uint32, n)
		for i := 0; i < n; i++ {
			v.Longs[i] = order.Uint32(raw[i*4:])
		}
	case FTSByte:
		v.SBytes = make([]int8, n)
		for i := 0; i < n; i++ {
			v.SBytes[i] = int8(raw[i])
		}
	case FTSShort:
		v.SShorts = make([]int16, n)
		for i := 0; i < n; i++ {
			v.SShorts[i] = int16(order.Uint16(raw[i*2:]))
		}
	case FTSLong:
		v.SLongs = make([]int32, n)
		for i := 0; i < n; i++ {
			v.SLongs[i] = int32(order.Uint32(raw[i*4:]))
		}
	case FTFloat:
		v.Floats = make([]float32, n)
		for i := 0; i < n; i++ {
			v.Floats[i] = math.Float32frombits(order.Uint32(raw[i*4:]))
		}
	case FTDouble:
		v.Doubles = make([]float64, n)
		for i := 0; i < n; i++ {
			v.Doubles[i] = math.Float64frombits(order.Uint64(raw[i*8:]))
		}
	case FTLong8, FTIFD8:
		v.Long8s = make([]uint64, n)
		for i := 0; i < n; i++ {
			v.Long8s[i] = order.Uint64(raw[i*8:])
		}
	case FTSLong8:
		v.SLong8s = make([]int64, n)
		for i := 0; i < n; i++ {
			v.SLong8s[i] = int64(order.Uint64(raw[i*8:]))
		}
	case FTRational:
		v.Rationals = make([]Rational, n)
		for i := 0; i < n; i++ {
			num := order.Uint32(raw[i*8:])
			den := order.Uint32(raw[i*8+4:])
			v.Rationals[i] = Rational{Num: int64(num), Den: int64(den)}
		}
	case FTSRational:
		v.Rationals = make([]Rational, n)
		for i := 0; i < n; i++ {
			num := int32(order.Uint32(raw[i*8:]))
			den := int32(order.Uint32(raw[i*8+4:]))
			v.Rationals[i] = Rational{Num: int64(num), Den: int64(den)}
		}
	default:
		return Value{}, fmt.Errorf("unknown field type %d", ft)
	}
	return v, nil
}
