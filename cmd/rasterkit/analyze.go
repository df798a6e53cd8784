package main

import (
	"encoding/json"
	"os"

	"github.com/spf13/cobra"

	"github.com/mauricemojito/rasterkit/internal/extractor"
	"github.com/mauricemojito/rasterkit/internal/tiff"
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze <src>",
	Short: "Report header/IFD/GeoModel summary for a TIFF/GeoTIFF source",
	Args:  cobra.ExactArgs(1),
	RunE:  runAnalyze,
}

func init() {
	RootCmd.AddCommand(analyzeCmd)
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	src := args[0]
	source, closer, err := extractor.OpenSource(src)
	if err != nil {
		return tiff.Wrap(tiff.KindIO, "rasterkit.analyze", err)
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
	summary, err := extractor.Analyze(img, ifd)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(summary)
}
