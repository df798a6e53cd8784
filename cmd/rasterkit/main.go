// Command rasterkit is the CLI front door for reading, transforming, and
// writing TIFF/GeoTIFF raster files, generalizing the cobra+viper command
// tree shape from PaulMatencio-s3c's sc CLI into analyze/extract/convert
// subcommands over internal/extractor.
package main

func main() {
	Execute()
}
