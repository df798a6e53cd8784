package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Package-level flag vars bound to viper keys, matching the teacher
// pack's PaulMatencio-s3c/sc/cmd/root.go convention of one var block per
// command tree rather than per-command closures.
var (
	regionFlag      string
	bboxFlag        string
	coordinateFlag  string
	radiusFlag      float64
	shapeFlag       string
	crsFlag         string
	projFlag        string
	compressionFlag string
	predictorFlag   string
	colormapFlag    string
	formatFlag      string
	filterFlag      string
	filterTransFlag bool
	verboseFlag     bool

	RootCmd = &cobra.Command{
		Use:   "rasterkit",
		Short: "Read, transform, and write TIFF/GeoTIFF raster files",
		Long:  ``,
	}
)

// Execute adds all child commands to RootCmd and runs it, exiting with
// spec-mandated codes: 1 usage error, 2 I/O/parse error, 3 unsupported
// feature.
func Execute() {
	if err := RootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(exitCodeFor(err))
	}
}

func init() {
	RootCmd.PersistentFlags().BoolVarP(&verboseFlag, "verbose", "v", false, "verbose output")
	viper.BindPFlag("verbose", RootCmd.PersistentFlags().Lookup("verbose"))
	cobra.OnInitialize(initConfig)
}

func initConfig() {
	viper.SetEnvPrefix("RASTERKIT")
	viper.AutomaticEnv()
}
