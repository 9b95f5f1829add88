// Package greyscale provides a fixed-size image of brightness levels that can
// be drawn on with tinygo drivers and shown on a matrix display.
package greyscale

import (
	"errors"
	"image"
	"image/color"

	"greymatrix/core"
	"tinygo.org/x/drivers"
)

var (
	ErrRowOutOfRange = errors.New("image row out of range")
	ErrRowLength     = errors.New("image row has the wrong length")
	ErrEmptyImage    = errors.New("image has no pixels")
)

// Image is a width x height grid of brightness levels 0..core.MaxBrightness.
//
// It satisfies core.Render, so it can be compiled into a core.Frame, and
// drivers.Displayer, so tinyfont and tinydraw can draw into it.
type Image struct {
	width  int
	height int
	pix    []uint8

	show func(core.Render) error
}

var (
	_ core.Render       = (*Image)(nil)
	_ drivers.Displayer = (*Image)(nil)
	_ image.Image       = (*Image)(nil)
)

// New returns a dark image of the given size.
func New(width, height int) *Image {
	return &Image{
		width:  width,
		height: height,
		pix:    make([]uint8, width*height),
	}
}

// FromRows builds an image from rows of levels. Every row must have the same
// length. Levels above core.MaxBrightness are clamped.
func FromRows(rows [][]uint8) (*Image, error) {
	if len(rows) == 0 || len(rows[0]) == 0 {
		return nil, ErrEmptyImage
	}
	im := New(len(rows[0]), len(rows))
	for y, row := range rows {
		if err := im.SetRow(y, row); err != nil {
			return nil, err
		}
	}
	return im, nil
}

// Width returns the image width in pixels.
func (im *Image) Width() int { return im.width }

// Height returns the image height in pixels.
func (im *Image) Height() int { return im.height }

// BrightnessAt returns the level at (x, y), or 0 outside the image.
func (im *Image) BrightnessAt(x, y int) uint8 {
	if x < 0 || y < 0 || x >= im.width || y >= im.height {
		return 0
	}
	return im.pix[y*im.width+x]
}

// SetBrightness sets the level at (x, y). Levels above core.MaxBrightness are
// clamped and coordinates outside the image are ignored.
func (im *Image) SetBrightness(x, y int, level uint8) {
	if x < 0 || y < 0 || x >= im.width || y >= im.height {
		return
	}
	if level > core.MaxBrightness {
		level = core.MaxBrightness
	}
	im.pix[y*im.width+x] = level
}

// SetRow copies one row of levels into the image.
func (im *Image) SetRow(y int, levels []uint8) error {
	if y < 0 || y >= im.height {
		return ErrRowOutOfRange
	}
	if len(levels) != im.width {
		return ErrRowLength
	}
	for x, level := range levels {
		im.SetBrightness(x, y, level)
	}
	return nil
}

// Row returns row y. The slice aliases the image.
func (im *Image) Row(y int) []uint8 {
	return im.pix[y*im.width : (y+1)*im.width]
}

// Fill sets every pixel to level.
func (im *Image) Fill(level uint8) {
	if level > core.MaxBrightness {
		level = core.MaxBrightness
	}
	for i := range im.pix {
		im.pix[i] = level
	}
}

// Clear darkens every pixel.
func (im *Image) Clear() {
	im.Fill(0)
}

// CopyFrom copies src into im. Both must be the same size.
func (im *Image) CopyFrom(src *Image) {
	copy(im.pix, src.pix)
}

// Equal reports whether two images have the same size and levels.
func (im *Image) Equal(other *Image) bool {
	if im.width != other.width || im.height != other.height {
		return false
	}
	for i := range im.pix {
		if im.pix[i] != other.pix[i] {
			return false
		}
	}
	return true
}

// OnDisplay sets the function Display hands the image to.
func (im *Image) OnDisplay(show func(core.Render) error) {
	im.show = show
}

// Size implements drivers.Displayer.
func (im *Image) Size() (x, y int16) {
	return int16(im.width), int16(im.height)
}

// SetPixel implements drivers.Displayer: the colour is reduced to its
// brightness level.
func (im *Image) SetPixel(x, y int16, c color.RGBA) {
	im.SetBrightness(int(x), int(y), LevelOf(c))
}

// Display implements drivers.Displayer by passing the image to the function
// set with OnDisplay.
func (im *Image) Display() error {
	if im.show == nil {
		return nil
	}
	return im.show(im)
}

// ColorModel implements image.Image.
func (im *Image) ColorModel() color.Model {
	return color.GrayModel
}

// Bounds implements image.Image.
func (im *Image) Bounds() image.Rectangle {
	return image.Rect(0, 0, im.width, im.height)
}

// At implements image.Image, spreading the levels over the grey range.
func (im *Image) At(x, y int) color.Color {
	return GrayOf(im.BrightnessAt(x, y))
}
