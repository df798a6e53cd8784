package main

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/mauricemojito/rasterkit/internal/arrayexport"
	"github.com/mauricemojito/rasterkit/internal/colormap"
	"github.com/mauricemojito/rasterkit/internal/config"
	"github.com/mauricemojito/rasterkit/internal/extractor"
	"github.com/mauricemojito/rasterkit/internal/geomodel"
	"github.com/mauricemojito/rasterkit/internal/metrics"
	"github.com/mauricemojito/rasterkit/internal/projector"
	"github.com/mauricemojito/rasterkit/internal/raster"
	"github.com/mauricemojito/rasterkit/internal/region"
	"github.com/mauricemojito/rasterkit/internal/tiff"
)

// apiService holds the single raster source rasterkitd serves, the
// generalization of the teacher's Server (which held one *geotiff.GeoTIFF
// dialed up at startup from cfg.CogSource) to rasterkit's broader query
// surface.
type apiService struct {
	logger      *slog.Logger
	img         *extractor.Image
	ifd         *tiff.IFD
	model       *geomodel.Model
	query       *extractor.PointQuery
	width       int
	height      int
	colormapDir string
}

func newAPIService(cfg config.Config, logger *slog.Logger) *apiService {
	svc := &apiService{logger: logger, colormapDir: cfg.ColormapDir}
	if cfg.RasterSource == "" {
		logger.Warn("RASTER_SOURCE not set; /analyze, /extract, /elevation, /profile will return 503 until configured")
		return svc
	}
	if err := svc.load(cfg.RasterSource); err != nil {
		logger.Error("failed to open RASTER_SOURCE, endpoints will return 503", "error", err, "source", cfg.RasterSource)
	}
	return svc
}

func (s *apiService) load(src string) error {
	source, _, err := extractor.OpenSource(src)
	if err != nil {
		return err
	}
	img, err := extractor.Open(source)
	if err != nil {
		return err
	}
	ifd, err := img.IFD(0)
	if err != nil {
		return err
	}
	model, err := geomodel.FromIFD(ifd)
	if err != nil {
		return err
	}
	query, err := extractor.NewPointQuery(img, ifd)
	if err != nil {
		return err
	}
	w, _ := ifd.Get(tiff.ImageWidth)
	h, _ := ifd.Get(tiff.ImageLength)
	width64, _ := w.AsUint64()
	height64, _ := h.AsUint64()

	s.img, s.ifd, s.model, s.query = img, ifd, model, query
	s.width, s.height = int(width64), int(height64)
	return nil
}

func (s *apiService) ready() bool { return s.img != nil }

func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch tiff.KindOf(err) {
	case tiff.KindRequest:
		status = http.StatusBadRequest
	case tiff.KindUnsupported:
		status = http.StatusNotImplemented
	case tiff.KindGeo:
		status = http.StatusUnprocessableEntity
	}
	http.Error(w, err.Error(), status)
}

func (s *apiService) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	if !s.ready() {
		http.Error(w, "no raster source configured", http.StatusServiceUnavailable)
		return
	}
	summary, err := extractor.Analyze(s.img, s.ifd)
	if err != nil {
		writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(summary)
}

// handleElevation mirrors the teacher's getElevationHandler, generalized
// from a path-segment lat/lng pair to query parameters.
func (s *apiService) handleElevation(w http.ResponseWriter, r *http.Request) {
	if !s.ready() {
		http.Error(w, "no raster source configured", http.StatusServiceUnavailable)
		return
	}
	x, err := strconv.ParseFloat(r.URL.Query().Get("x"), 64)
	if err != nil {
		http.Error(w, "invalid or missing x", http.StatusBadRequest)
		return
	}
	y, err := strconv.ParseFloat(r.URL.Query().Get("y"), 64)
	if err != nil {
		http.Error(w, "invalid or missing y", http.StatusBadRequest)
		return
	}
	value, err := s.query.Elevation(x, y)
	if err != nil {
		writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]float64{"x": x, "y": y, "value": value})
}

// handleProfile mirrors the teacher's getProfileHandler: a JSON array of
// [x, y] pairs in the request body, a sampled profile in the response.
func (s *apiService) handleProfile(w http.ResponseWriter, r *http.Request) {
	if !s.ready() {
		http.Error(w, "no raster source configured", http.StatusServiceUnavailable)
		return
	}
	var pairs [][]float64
	if err := json.NewDecoder(r.Body).Decode(&pairs); err != nil {
		http.Error(w, "invalid JSON body", http.StatusBadRequest)
		return
	}
	path := make([]geomodel.Point, len(pairs))
	for i, p := range pairs {
		if len(p) != 2 {
			http.Error(w, fmt.Sprintf("pair %d: expected [x, y]", i), http.StatusBadRequest)
			return
		}
		path[i] = geomodel.Point{X: p[0], Y: p[1]}
	}
	profile, err := extractor.Profile(s.query, path)
	if err != nil {
		writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(profile)
}

// handleExtract resolves a region request from query parameters, applies
// the same mask/colormap/reprojection pipeline as the CLI's `extract`
// subcommand, and streams the result back as a tabular array or a
// standalone TIFF, the HTTP/JSON stand-in spec.md's service binding uses in
// place of the teacher's unreproducible protobuf ElevationService (see
// SPEC_FULL.md §6).
func (s *apiService) handleExtract(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	if !s.ready() {
		http.Error(w, "no raster source configured", http.StatusServiceUnavailable)
		return
	}
	q := r.URL.Query()
	format := q.Get("format")
	if format == "" {
		format = "json"
	}

	req, err := regionRequestFromQuery(q)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	rect, shapeMask, err := extractor.ResolveRegion(s.model, s.width, s.height, 0, req, projector.Default{})
	if err != nil {
		writeError(w, err)
		return
	}
	acc, err := s.img.Accessor(s.ifd)
	if err != nil {
		writeError(w, err)
		return
	}
	buf, err := acc.ReadRegionBuffer(rect.X, rect.Y, rect.EndX(), rect.EndY())
	if err != nil {
		writeError(w, err)
		return
	}

	lo, hi, err := splitFilter(q.Get("filter"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	filterTransparency := q.Get("filter-transparency") == "true"
	mask := extractor.CombinedMask(buf, shapeMask, lo, hi)
	applyServiceMask(buf, mask, filterTransparency)

	if cm := q.Get("colormap"); cm != "" {
		buf, err = s.applyServiceColormap(buf, cm, filterTransparency)
		if err != nil {
			writeError(w, err)
			return
		}
	}

	if format == "tiff" {
		s.writeExtractTIFF(w, buf, rect, q.Get("proj"), q.Get("crs"))
		metrics.ExtractDuration.WithLabelValues(format).Observe(time.Since(start).Seconds())
		return
	}

	w.Header().Set("Content-Type", contentTypeFor(format))
	if err := arrayexport.Write(w, buf, arrayexport.Format(format)); err != nil {
		s.logger.Error("extract write failed", "error", err)
	}
	metrics.ExtractDuration.WithLabelValues(format).Observe(time.Since(start).Seconds())
}

// writeExtractTIFF serializes buf as a standalone TIFF into an in-memory
// sink (WriteTIFF needs random-access writes an http.ResponseWriter can't
// provide) and copies the result to w, optionally retagging its
// georeferencing into projEPSG per spec.md §6 --proj.
func (s *apiService) writeExtractTIFF(w http.ResponseWriter, buf *raster.Buffer, rect region.PixelRect, projEPSG, crsEPSG string) {
	opts := extractor.WriteOptions{}
	if projEPSG != "" {
		toSys, err := projector.FromString(projEPSG)
		if err != nil {
			http.Error(w, fmt.Sprintf("proj: %v", err), http.StatusBadRequest)
			return
		}
		fromEPSG := 0
		if crsEPSG != "" {
			if fromSys, err := projector.FromString(crsEPSG); err == nil {
				fromEPSG = fromSys.EPSG
			}
		}
		if fromEPSG == 0 {
			fromEPSG = extractor.ImageEPSG(s.ifd)
		}
		if fromEPSG == 0 {
			http.Error(w, "proj requires the source CRS to be known; pass crs or use a georeferenced source", http.StatusBadRequest)
			return
		}
		opts.Reproject = &extractor.ReprojectSpec{FromEPSG: fromEPSG, ToEPSG: toSys.EPSG}
	}

	sink := &extractor.MemSink{}
	if err := extractor.WriteTIFF(sink, s.ifd, buf, rect.X, rect.Y, opts); err != nil {
		writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "image/tiff")
	if _, err := w.Write(sink.Bytes()); err != nil {
		s.logger.Error("extract write failed", "error", err)
	}
}

// applyServiceColormap resolves name against s.colormapDir (by base name
// only, so a request can't escape it) and maps buf's band 0 through the
// colormap, mirroring the CLI's --colormap.
func (s *apiService) applyServiceColormap(buf *raster.Buffer, name string, transparentOutOfRange bool) (*raster.Buffer, error) {
	const op = "rasterkitd.applyServiceColormap"
	if s.colormapDir == "" {
		return nil, tiff.Newf(tiff.KindRequest, op, "colormap support requires COLORMAP_DIR to be configured")
	}
	path := filepath.Join(s.colormapDir, filepath.Base(name))
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, tiff.Wrap(tiff.KindIO, op, err)
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

func regionRequestFromQuery(q map[string][]string) (extractor.RegionRequest, error) {
	get := func(k string) string {
		if v, ok := q[k]; ok && len(v) > 0 {
			return v[0]
		}
		return ""
	}
	crs := 0
	if v := get("crs"); v != "" {
		sys, err := projector.FromString(v)
		if err != nil {
			return extractor.RegionRequest{}, fmt.Errorf("crs: %w", err)
		}
		crs = sys.EPSG
	}
	var req extractor.RegionRequest
	if v := get("region"); v != "" {
		vals, err := splitFloats(v, 4)
		if err != nil {
			return req, err
		}
		req.PixelRect = &region.PixelRect{X: int(vals[0]), Y: int(vals[1]), Width: int(vals[2]), Height: int(vals[3])}
		return req, nil
	}
	if v := get("bbox"); v != "" {
		vals, err := splitFloats(v, 4)
		if err != nil {
			return req, err
		}
		req.BBox = &region.BBox{MinX: vals[0], MinY: vals[1], MaxX: vals[2], MaxY: vals[3]}
		req.BBoxCRS = crs
		return req, nil
	}
	if v := get("coordinate"); v != "" {
		vals, err := splitFloats(v, 2)
		if err != nil {
			return req, err
		}
		radius, _ := strconv.ParseFloat(get("radius"), 64)
		req.Point = &projector.Point{X: vals[0], Y: vals[1]}
		req.Radius = radius
		req.BBoxCRS = crs
		if get("shape") == "circle" {
			req.Shape = region.ShapeCircle
		}
		return req, nil
	}
	return req, fmt.Errorf("one of region, bbox, or coordinate query parameters is required")
}

// splitFilter parses the "lo,hi" form of the filter query parameter, per
// spec.md §6 --filter.
func splitFilter(s string) (lo, hi *float64, err error) {
	if s == "" {
		return nil, nil, nil
	}
	vals, err := splitFloats(s, 2)
	if err != nil {
		return nil, nil, fmt.Errorf("filter: %w", err)
	}
	return &vals[0], &vals[1], nil
}

func splitFloats(s string, n int) ([]float64, error) {
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

func contentTypeFor(format string) string {
	switch format {
	case "csv":
		return "text/csv"
	case "npy":
		return "application/octet-stream"
	case "tiff":
		return "image/tiff"
	default:
		return "application/json"
	}
}

// applyServiceMask zeroes every masked-out pixel, unless transparent is set
// (per spec.md §6 --filter-transparency), in which case masked pixels are
// left as-is so a following colormap step can apply its own alpha=0.
func applyServiceMask(buf *raster.Buffer, mask func(int, int) bool, transparent bool) {
	if mask == nil || transparent {
		return
	}
	for y := 0; y < buf.Height; y++ {
		for x := 0; x < buf.Width; x++ {
			if mask(x, y) {
				continue
			}
			for s := 0; s < buf.SamplesPerPixel; s++ {
				buf.Values[(y*buf.Width+x)*buf.SamplesPerPixel+s] = 0
			}
		}
	}
}
