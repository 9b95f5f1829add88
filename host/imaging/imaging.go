// Package imaging loads picture files as greyscale matrix images.
package imaging

import (
	"fmt"
	"image"
	"image/draw"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/srwiley/oksvg"
	"github.com/srwiley/rasterx"

	"greymatrix/greyscale"
)

// Load reads a PNG, JPEG, GIF or SVG file and scales it to width x height
// levels. The format is chosen by file extension.
func Load(path string, width, height int) (*greyscale.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	if strings.EqualFold(filepath.Ext(path), ".svg") {
		img, err := DecodeSVG(f, width, height)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		return img, nil
	}
	img, err := Decode(f, width, height)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return img, nil
}

// Decode reads a raster image and scales it to width x height levels
func Decode(r io.Reader, width, height int) (*greyscale.Image, error) {
	src, _, err := image.Decode(r)
	if err != nil {
		return nil, err
	}
	return greyscale.FromImage(flatten(src), width, height), nil
}

// DecodeSVG rasterizes an SVG icon straight at the target size, so thin
// strokes stay visible, then converts it to levels.
func DecodeSVG(r io.Reader, width, height int) (*greyscale.Image, error) {
	icon, err := oksvg.ReadIconStream(r)
	if err != nil {
		return nil, err
	}
	icon.SetTarget(0, 0, float64(width), float64(height))

	rgba := image.NewRGBA(image.Rect(0, 0, width, height))
	scanner := rasterx.NewScannerGV(width, height, rgba, rgba.Bounds())
	icon.Draw(rasterx.NewDasher(width, height, scanner), 1.0)

	return greyscale.FromImage(flatten(rgba), width, height), nil
}

// flatten composites src over black so transparent areas are dark
func flatten(src image.Image) image.Image {
	b := src.Bounds()
	dst := image.NewRGBA(b)
	draw.Draw(dst, b, image.Black, image.Point{}, draw.Src)
	draw.Draw(dst, b, src, b.Min, draw.Over)
	return dst
}
