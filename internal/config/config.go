// Package config loads rasterkitd's environment-driven configuration,
// generalizing the teacher's main.go Config struct (one COG source, one
// cache size) to the multi-source, multi-port shape rasterkitd needs while
// keeping the same caarlos0/env loading convention.
package config

import "github.com/caarlos0/env/v11"

// Config holds rasterkitd's runtime configuration, loaded from environment
// variables exactly as the teacher's Config does.
type Config struct {
	LogLevel        string `env:"LOG_LEVEL" envDefault:"INFO"`
	HTTPPort        int    `env:"HTTP_PORT" envDefault:"8080"`
	HealthPort      int    `env:"HEALTH_PORT" envDefault:"6666"`
	HTTPMetricsPort int    `env:"METRICS_PORT" envDefault:"8888"`

	// RasterSource is the default TIFF/GeoTIFF source the service opens at
	// startup for its /analyze, /extract, /elevation, /profile endpoints;
	// a local path or an http(s) URL served with Range requests.
	RasterSource string `env:"RASTER_SOURCE" envDefault:""`

	CacheMaxSize      int64  `env:"CACHE_MAX_SIZE" envDefault:"1024"`
	CacheItemsToPrune uint32 `env:"CACHE_ITEMS_TO_PRUNE" envDefault:"100"`

	// ColormapDir, when set, is the directory /extract's colormap query
	// parameter is resolved against (by base name only, so a request can't
	// walk outside it); colormap support is disabled when empty.
	ColormapDir string `env:"COLORMAP_DIR" envDefault:""`
}

// Load reads Config from the process environment.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
