package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/mauricemojito/rasterkit/internal/extractor"
	"github.com/mauricemojito/rasterkit/internal/tiff"
)

var convertCmd = &cobra.Command{
	Use:   "convert <src> <dst>",
	Short: "Re-encode a TIFF/GeoTIFF source under a different compression",
	Args:  cobra.ExactArgs(2),
	RunE:  runConvert,
}

func init() {
	convertCmd.Flags().StringVar(&compressionFlag, "compression", "", "none|packbits|lzw|deflate|zstd")
	convertCmd.Flags().StringVar(&predictorFlag, "predictor", "", "none|horizontal")
	RootCmd.AddCommand(convertCmd)
}

func runConvert(cmd *cobra.Command, args []string) error {
	src, dst := args[0], args[1]
	if compressionFlag == "" {
		return newUsageError("--compression is required")
	}
	code, err := compressionCodeFor(compressionFlag)
	if err != nil {
		return err
	}

	source, closer, err := extractor.OpenSource(src)
	if err != nil {
		return tiff.Wrap(tiff.KindIO, "rasterkit.convert", err)
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

	acc, err := img.Accessor(ifd)
	if err != nil {
		return err
	}
	buf, err := acc.ReadRegionBuffer(0, 0, int(width64), int(height64))
	if err != nil {
		return err
	}

	opts := extractor.WriteOptions{Compression: code}
	if predictorFlag != "" {
		switch predictorFlag {
		case "none":
			opts.Predictor = tiff.PredictorNone
		case "horizontal":
			opts.Predictor = tiff.PredictorHorizontal
		default:
			return newUsageError("--predictor must be none or horizontal")
		}
	}

	out, err := os.Create(dst)
	if err != nil {
		return tiff.Wrap(tiff.KindIO, "rasterkit.convert", err)
	}
	defer out.Close()
	return extractor.WriteTIFF(out, ifd, buf, 0, 0, opts)
}
