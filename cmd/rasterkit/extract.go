package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mauricemojito/rasterkit/internal/arrayexport"
	"github.com/mauricemojito/rasterkit/internal/colormap"
	"github.com/mauricemojito/rasterkit/internal/extractor"
	"github.com/mauricemojito/rasterkit/internal/geomodel"
	"github.com/mauricemojito/rasterkit/internal/projector"
	"github.com/mauricemojito/rasterkit/internal/raster"
	"github.com/mauricemojito/rasterkit/internal/region"
	"github.com/mauricemojito/rasterkit/internal/tiff"
)

var extractCmd = &cobra.Command{
	Use:   "extract <src> <dst>",
	Short: "Extract a region of a TIFF/GeoTIFF source to a new file",
	Args:  cobra.ExactArgs(2),
	RunE:  runExtract,
}

func init() {
	extractCmd.Flags().StringVar(&regionFlag, "region", "", "pixel rectangle x,y,w,h")
	extractCmd.Flags().StringVar(&bboxFlag, "bbox", "", "geographic bounding box minX,minY,maxX,maxY")
	extractCmd.Flags().StringVar(&coordinateFlag, "coordinate", "", "point x,y")
	extractCmd.Flags().Float64Var(&radiusFlag, "radius", 0, "selection radius around --coordinate")
	extractCmd.Flags().StringVar(&shapeFlag, "shape", "square", "square|circle, for --coordinate")
	extractCmd.Flags().StringVar(&crsFlag, "crs", "", "EPSG code the --bbox/--coordinate values are expressed in")
	extractCmd.Flags().StringVar(&projFlag, "proj", "", "EPSG code to reproject the output into")
	extractCmd.Flags().StringVar(&compressionFlag, "compression", "", "none|packbits|lzw|deflate|zstd (default: inherit from source)")
	extractCmd.Flags().StringVar(&colormapFlag, "colormap", "", "SLD-style colormap XML file to apply to band 0")
	extractCmd.Flags().StringVar(&formatFlag, "format", "", "csv|json|npy array output instead of TIFF")
	extractCmd.Flags().StringVar(&filterFlag, "filter", "", "lo,hi inclusive value-range keep filter")
	extractCmd.Flags().BoolVar(&filterTransFlag, "filter-transparency", false, "out-of-range pixels get alpha=0 instead of being dropped")
	RootCmd.AddCommand(extractCmd)
}

func runExtract(cmd *cobra.Command, args []string) error {
	src, dst := args[0], args[1]

	req, err := buildRegionRequest()
	if err != nil {
		return err
	}

	source, closer, err := extractor.OpenSource(src)
	if err != nil {
		return tiff.Wrap(tiff.KindIO, "rasterkit.extract", err)
	}
	defer closer.Close()

	img, err := extractor.Open(source)
	if err != nil {
		return err
	}
	ifd, err := img.IFD(0)
	if err != nil {
		return err
	}

	w, _ := ifd.Get(tiff.ImageWidth)
	h, _ := ifd.Get(tiff.ImageLength)
	width64, _ := w.AsUint64()
	height64, _ := h.AsUint64()
	width, height := int(width64), int(height64)

	model, modelErr := geomodel.FromIFD(ifd)
	if modelErr != nil && (req.BBox != nil || req.Point != nil) {
		return modelErr
	}

	var proj projector.Projector = projector.Default{}
	rect, shapeMask, err := extractor.ResolveRegion(model, width, height, 0, req, proj)
	if err != nil {
		return err
	}

	acc, err := img.Accessor(ifd)
	if err != nil {
		return err
	}
	buf, err := acc.ReadRegionBuffer(rect.X, rect.Y, rect.EndX(), rect.EndY())
	if err != nil {
		return err
	}

	lo, hi, err := parseFilter(filterFlag)
	if err != nil {
		return err
	}
	mask := extractor.CombinedMask(buf, shapeMask, lo, hi)
	applyMask(buf, mask, filterTransFlag)

	if colormapFlag != "" {
		buf, err = applyColormap(buf, colormapFlag, filterTransFlag)
		if err != nil {
			return err
		}
	}

	if formatFlag != "" {
		return writeArrayOutput(dst, buf, formatFlag)
	}

	out, err := os.Create(dst)
	if err != nil {
		return tiff.Wrap(tiff.KindIO, "rasterkit.extract", err)
	}
	defer out.Close()

	opts := extractor.WriteOptions{}
	if compressionFlag != "" {
		code, err := compressionCodeFor(compressionFlag)
		if err != nil {
			return err
		}
		opts.Compression = code
	}
	if projFlag != "" {
		spec, err := reprojectSpecFor(ifd, proj)
		if err != nil {
			return err
		}
		opts.Reproject = spec
	}
	return extractor.WriteTIFF(out, ifd, buf, rect.X, rect.Y, opts)
}

// reprojectSpecFor resolves --proj's target CRS and the source image's CRS
// (--crs when given, otherwise ifd's own GeoKeyDirectoryTag) into a
// ReprojectSpec for WriteTIFF.
func reprojectSpecFor(ifd *tiff.IFD, proj projector.Projector) (*extractor.ReprojectSpec, error) {
	toSys, err := projector.FromString(projFlag)
	if err != nil {
		return nil, newUsageError(fmt.Sprintf("--proj: %v", err))
	}
	fromEPSG := crsEPSG()
	if fromEPSG == 0 {
		fromEPSG = extractor.ImageEPSG(ifd)
	}
	if fromEPSG == 0 {
		return nil, newUsageError("--proj requires the source CRS to be known; pass --crs or use a georeferenced source")
	}
	return &extractor.ReprojectSpec{FromEPSG: fromEPSG, ToEPSG: toSys.EPSG, Proj: proj}, nil
}

func buildRegionRequest() (extractor.RegionRequest, error) {
	var req extractor.RegionRequest
	set := 0
	if regionFlag != "" {
		set++
		parts, err := parseFloats(regionFlag, 4)
		if err != nil {
			return req, newUsageError(fmt.Sprintf("--region: %v", err))
		}
		req.PixelRect = &region.PixelRect{X: int(parts[0]), Y: int(parts[1]), Width: int(parts[2]), Height: int(parts[3])}
	}
	if bboxFlag != "" {
		set++
		parts, err := parseFloats(bboxFlag, 4)
		if err != nil {
			return req, newUsageError(fmt.Sprintf("--bbox: %v", err))
		}
		req.BBox = &region.BBox{MinX: parts[0], MinY: parts[1], MaxX: parts[2], MaxY: parts[3]}
		req.BBoxCRS = crsEPSG()
	}
	if coordinateFlag != "" {
		set++
		parts, err := parseFloats(coordinateFlag, 2)
		if err != nil {
			return req, newUsageError(fmt.Sprintf("--coordinate: %v", err))
		}
		req.Point = &projector.Point{X: parts[0], Y: parts[1]}
		req.Radius = radiusFlag
		req.BBoxCRS = crsEPSG()
		if strings.EqualFold(shapeFlag, "circle") {
			req.Shape = region.ShapeCircle
		} else {
			req.Shape = region.ShapeSquare
		}
	}
	if set != 1 {
		return req, newUsageError("exactly one of --region, --bbox, or --coordinate must be given")
	}
	return req, nil
}

func crsEPSG() int {
	if crsFlag == "" {
		return 0
	}
	sys, err := projector.FromString(crsFlag)
	if err != nil {
		return 0
	}
	return sys.EPSG
}

func parseFloats(s string, n int) ([]float64, error) {
	parts := strings.Split(s, ",")
	if len(parts) != n {
		return nil, fmt.Errorf("expected %d comma-separated values, got %d", n, len(parts))
	}
	out := make([]float64, n)
	for i, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return nil, fmt.Errorf("%q is not a number", p)
		}
		out[i] = v
	}
	return out, nil
}

func parseFilter(s string) (lo, hi *float64, err error) {
	if s == "" {
		return nil, nil, nil
	}
	parts, err := parseFloats(s, 2)
	if err != nil {
		return nil, nil, newUsageError(fmt.Sprintf("--filter: %v", err))
	}
	return &parts[0], &parts[1], nil
}

func applyMask(buf *raster.Buffer, mask func(int, int) bool, transparent bool) {
	if mask == nil {
		return
	}
	for y := 0; y < buf.Height; y++ {
		for x := 0; x < buf.Width; x++ {
			if mask(x, y) {
				continue
			}
			for s := 0; s < buf.SamplesPerPixel; s++ {
				if !transparent {
					buf.Values[(y*buf.Width+x)*buf.SamplesPerPixel+s] = 0
				}
			}
		}
	}
}

func applyColormap(buf *raster.Buffer, path string, transparentOutOfRange bool) (*raster.Buffer, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, tiff.Wrap(tiff.KindIO, "rasterkit.extract.colormap", err)
	}
	m, err := colormap.ParseSLD(raw)
	if err != nil {
		return nil, err
	}
	band0 := make([]float64, buf.Width*buf.Height)
	for i := range band0 {
		band0[i] = buf.Values[i*buf.SamplesPerPixel]
	}
	rgba := colormap.Apply(m, band0, transparentOutOfRange)
	out := &raster.Buffer{Width: buf.Width, Height: buf.Height, SamplesPerPixel: 4, Values: make([]float64, len(rgba))}
	for i, b := range rgba {
		out.Values[i] = float64(b)
	}
	return out, nil
}

func writeArrayOutput(dst string, buf *raster.Buffer, format string) error {
	f, err := os.Create(dst)
	if err != nil {
		return tiff.Wrap(tiff.KindIO, "rasterkit.extract", err)
	}
	defer f.Close()
	return arrayexport.Write(f, buf, arrayexport.Format(format))
}

func compressionCodeFor(name string) (int, error) {
	switch strings.ToLower(name) {
	case "none":
		return tiff.CompressionNone, nil
	case "packbits":
		return tiff.CompressionPackBits, nil
	case "lzw":
		return tiff.CompressionLZW, nil
	case "deflate":
		return tiff.CompressionDeflate, nil
	case "zstd":
		return tiff.CompressionZSTD, nil
	default:
		return 0, tiff.Newf(tiff.KindUnsupported, "rasterkit.compressionCodeFor", "unknown compression %q", name)
	}
}
