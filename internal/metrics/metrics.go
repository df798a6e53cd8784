// Package metrics defines the Prometheus collectors rasterkitd exposes,
// generalizing the teacher's package-level grpcMetrics (the only collector
// main.go registered) into a set that also instruments the domain
// operations the teacher never measured: decode and extract calls.
package metrics

import (
	"net/http"

	grpcprom "github.com/grpc-ecosystem/go-grpc-middleware/providers/prometheus"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// GRPC mirrors the teacher's grpcMetrics: per-RPC handling-time histogram
// with the same bucket boundaries, registered with every gRPC server this
// module runs.
var GRPC = grpcprom.NewServerMetrics(grpcprom.WithServerHandlingTimeHistogram(
	grpcprom.WithHistogramBuckets([]float64{0.01, 0.1, 0.3, 0.6, 1, 3, 6, 9}),
))

// DecodeDuration times one strip/tile decode (post-cache), labeled by
// compression codec, so a slow codec shows up distinctly from a cache
// miss.
var DecodeDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
	Name:    "rasterkit_decode_seconds",
	Help:    "Duration of a single strip/tile decode, by compression codec.",
	Buckets: prometheus.DefBuckets,
}, []string{"codec"})

// ExtractDuration times one full extract operation (region resolution
// through output write), labeled by output kind.
var ExtractDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
	Name:    "rasterkit_extract_seconds",
	Help:    "Duration of a full extract operation, by output kind (tiff/csv/json/npy).",
	Buckets: prometheus.DefBuckets,
}, []string{"output"})

// CacheHits counts tile-cache hits vs misses, generalizing the teacher's
// unmeasured GeoTIFF.tileCache into an observable counter.
var CacheHits = prometheus.NewCounterVec(prometheus.CounterOpts{
	Name: "rasterkit_tile_cache_total",
	Help: "Tile decode cache lookups, by outcome (hit/miss).",
}, []string{"outcome"})

// Register adds every collector in this package to the default registry,
// matching the teacher's inline prometheus.MustRegister(grpcMetrics) call.
func Register() {
	prometheus.MustRegister(GRPC, DecodeDuration, ExtractDuration, CacheHits)
}

// Handler serves the default registry's current values, matching the
// teacher's promhttp.Handler() mount at "/metrics".
func Handler() http.Handler {
	return promhttp.Handler()
}
