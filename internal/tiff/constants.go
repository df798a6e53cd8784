package tiff

import "fmt"

// Tag identifies a TIFF or GeoTIFF directory entry by its numeric id.
type Tag uint16

// Basic image structure tags, grounded on the teacher's geotiff.go Tag
// usage and widened to the full set the original Rust constants.rs
// declares.
const (
	NewSubfileType            Tag = 254
	SubfileType               Tag = 255
	ImageWidth                Tag = 256
	ImageLength               Tag = 257
	BitsPerSample             Tag = 258
	Compression               Tag = 259
	PhotometricInterpretation Tag = 262
	FillOrder                 Tag = 266
	StripOffsets              Tag = 273
	Orientation               Tag = 274
	SamplesPerPixel           Tag = 277
	RowsPerStrip              Tag = 278
	StripByteCounts           Tag = 279
	MinSampleValue            Tag = 280
	MaxSampleValue            Tag = 281
	XResolution               Tag = 282
	YResolution               Tag = 283
	PlanarConfiguration       Tag = 284
	ResolutionUnit            Tag = 296
	TransferFunction          Tag = 301
	Software                  Tag = 305
	DateTime                  Tag = 306
	Artist                    Tag = 315
	HostComputer              Tag = 316
	Predictor                 Tag = 317
	ColorMap                  Tag = 320
	TileWidth                 Tag = 322
	TileLength                Tag = 323
	TileOffsets               Tag = 324
	TileByteCounts            Tag = 325
	ExtraSamples              Tag = 338
	SampleFormat              Tag = 339
	Copyright                 Tag = 33432

	// GeoTIFF overlay tags.
	ModelPixelScaleTag      Tag = 33550
	ModelTiepointTag        Tag = 33922
	ModelTransformationTag  Tag = 34264
	GeoKeyDirectoryTag      Tag = 34735
	GeoDoubleParamsTag      Tag = 34736
	GeoAsciiParamsTag       Tag = 34737

	// GDAL extensions, present in the teacher's original_source reference
	// but outside the teacher's own COG-reader code.
	GDALMetadata Tag = 42112
	GDALNoData   Tag = 42113
)

var tagNames = map[Tag]string{
	NewSubfileType:            "NewSubfileType",
	SubfileType:               "SubfileType",
	ImageWidth:                "ImageWidth",
	ImageLength:               "ImageLength",
	BitsPerSample:             "BitsPerSample",
	Compression:               "Compression",
	PhotometricInterpretation: "PhotometricInterpretation",
	FillOrder:                 "FillOrder",
	StripOffsets:              "StripOffsets",
	Orientation:               "Orientation",
	SamplesPerPixel:           "SamplesPerPixel",
	RowsPerStrip:              "RowsPerStrip",
	StripByteCounts:           "StripByteCounts",
	MinSampleValue:            "MinSampleValue",
	MaxSampleValue:            "MaxSampleValue",
	XResolution:               "XResolution",
	YResolution:               "YResolution",
	PlanarConfiguration:       "PlanarConfiguration",
	ResolutionUnit:            "ResolutionUnit",
	TransferFunction:          "TransferFunction",
	Software:                  "Software",
	DateTime:                  "DateTime",
	Artist:                    "Artist",
	HostComputer:              "HostComputer",
	Predictor:                 "Predictor",
	ColorMap:                  "ColorMap",
	TileWidth:                 "TileWidth",
	TileLength:                "TileLength",
	TileOffsets:               "TileOffsets",
	TileByteCounts:            "TileByteCounts",
	ExtraSamples:              "ExtraSamples",
	SampleFormat:              "SampleFormat",
	Copyright:                 "Copyright",
	ModelPixelScaleTag:        "ModelPixelScaleTag",
	ModelTiepointTag:          "ModelTiepointTag",
	ModelTransformationTag:    "ModelTransformationTag",
	GeoKeyDirectoryTag:        "GeoKeyDirectoryTag",
	GeoDoubleParamsTag:        "GeoDoubleParamsTag",
	GeoAsciiParamsTag:         "GeoAsciiParamsTag",
	GDALMetadata:              "GDALMetadata",
	GDALNoData:                "GDALNoData",
}

// String renders a tag's symbolic name when known, else its numeric value.
func (t Tag) String() string {
	if name, ok := tagNames[t]; ok {
		return name
	}
	return fmt.Sprintf("Tag(%d)", uint16(t))
}

// FieldType is the wire type of a tag's value, per the TIFF 6.0 / BigTIFF
// spec.
type FieldType uint16

const (
	FTByte      FieldType = 1
	FTASCII     FieldType = 2
	FTShort     FieldType = 3
	FTLong      FieldType = 4
	FTRational  FieldType = 5
	FTSByte     FieldType = 6
	FTUndefined FieldType = 7
	FTSShort    FieldType = 8
	FTSLong     FieldType = 9
	FTSRational FieldType = 10
	FTFloat     FieldType = 11
	FTDouble    FieldType = 12
	FTLong8     FieldType = 16
	FTSLong8    FieldType = 17
	FTIFD8      FieldType = 18
)

// fieldTypeSize is the on-disk width in bytes of one value of each kind,
// mirroring the teacher's fieldTypeLen table.
var fieldTypeSize = map[FieldType]uint32{
	FTByte:      1,
	FTASCII:     1,
	FTShort:     2,
	FTLong:      4,
	FTRational:  8,
	FTSByte:     1,
	FTUndefined: 1,
	FTSShort:    2,
	FTSLong:     4,
	FTSRational: 8,
	FTFloat:     4,
	FTDouble:    8,
	FTLong8:     8,
	FTSLong8:    8,
	FTIFD8:      8,
}

// Size returns the byte width of one value of this kind, or 0 if unknown.
func (f FieldType) Size() uint32 { return fieldTypeSize[f] }

func (f FieldType) String() string {
	switch f {
	case FTByte:
		return "BYTE"
	case FTASCII:
		return "ASCII"
	case FTShort:
		return "SHORT"
	case FTLong:
		return "LONG"
	case FTRational:
		return "RATIONAL"
	case FTSByte:
		return "SBYTE"
	case FTUndefined:
		return "UNDEFINED"
	case FTSShort:
		return "SSHORT"
	case FTSLong:
		return "SLONG"
	case FTSRational:
		return "SRATIONAL"
	case FTFloat:
		return "FLOAT"
	case FTDouble:
		return "DOUBLE"
	case FTLong8:
		return "LONG8"
	case FTSLong8:
		return "SLONG8"
	case FTIFD8:
		return "IFD8"
	default:
		return fmt.Sprintf("FieldType(%d)", uint16(f))
	}
}

// Compression scheme identifiers (Compression tag values).
const (
	CompressionNone     = 1
	CompressionCCITTRLE = 2
	CompressionCCITTFax3 = 3
	CompressionCCITTFax4 = 4
	CompressionLZW      = 5
	CompressionJPEGOld  = 6
	CompressionJPEG     = 7
	CompressionDeflate  = 8
	CompressionZSTD     = 14
	CompressionPackBits = 32773
)

// Photometric interpretation values.
const (
	PhotometricWhiteIsZero = 0
	PhotometricBlackIsZero = 1
	PhotometricRGB         = 2
	PhotometricPalette     = 3
	PhotometricMask        = 4
	PhotometricCMYK        = 5
	PhotometricYCbCr       = 6
	PhotometricCIELab      = 8
)

// Planar configuration values.
const (
	PlanarChunky = 1
	PlanarSeparate = 2
)

// Sample format values (SampleFormat tag).
const (
	SampleFormatUnsigned = 1
	SampleFormatSigned   = 2
	SampleFormatFloat    = 3
	SampleFormatVoid     = 4
)

// Predictor values.
const (
	PredictorNone               = 1
	PredictorHorizontal         = 2
	PredictorFloatingPoint      = 3
)

// GeoTIFF header constants for the key directory.
const (
	GeoKeyDirectoryVersion = 1
	GeoKeyRevision         = 1
)

// GeoKeyID identifies an entry inside the GeoKeyDirectory, grounded on the
// twpayne-go-elevation GeoKey table.
type GeoKeyID uint16

const (
	GeoKeyGTModelType  GeoKeyID = 1024
	GeoKeyGTRasterType GeoKeyID = 1025
	GeoKeyGTCitation   GeoKeyID = 1026

	GeoKeyGeodeticCRS  GeoKeyID = 2048
	GeoKeyGeogCitation GeoKeyID = 2049
	GeoKeyAngularUnits GeoKeyID = 2054
	GeoKeyLinearUnits  GeoKeyID = 2052

	GeoKeyProjectedCRS GeoKeyID = 3072
	GeoKeyPCSCitation  GeoKeyID = 3073
	GeoKeyProjection   GeoKeyID = 3074
	GeoKeyProjLinearUnits GeoKeyID = 3076

	GeoKeyVertical      GeoKeyID = 4096
	GeoKeyVerticalUnits GeoKeyID = 4099
)

// Header magic and marker constants.
const (
	littleEndianMarker uint16 = 0x4949 // "II"
	bigEndianMarker    uint16 = 0x4d4d // "MM"
	classicIdentifier  uint16 = 42
	bigTiffIdentifier  uint16 = 43
	bigTiffOffsetSize  uint16 = 8
)
