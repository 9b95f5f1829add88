package greyscale

import (
	"image"
	"image/color"

	"greymatrix/core"
)

// LevelOf reduces a colour to the nearest brightness level by its luminance.
// Transparent pixels are dark.
func LevelOf(c color.Color) uint8 {
	g := color.GrayModel.Convert(c).(color.Gray)
	return uint8((uint(g.Y)*uint(core.MaxBrightness) + 127) / 255)
}

// GrayOf returns the grey a level is drawn as.
func GrayOf(level uint8) color.Gray {
	if level > core.MaxBrightness {
		level = core.MaxBrightness
	}
	return color.Gray{Y: uint8(uint(level) * 255 / uint(core.MaxBrightness))}
}

// FromImage scales src to width x height with nearest-neighbour sampling and
// reduces each sample to a brightness level.
func FromImage(src image.Image, width, height int) *Image {
	im := New(width, height)
	b := src.Bounds()
	if b.Empty() {
		return im
	}
	for y := 0; y < height; y++ {
		sy := b.Min.Y + (2*y+1)*b.Dy()/(2*height)
		for x := 0; x < width; x++ {
			sx := b.Min.X + (2*x+1)*b.Dx()/(2*width)
			im.pix[y*width+x] = LevelOf(src.At(sx, sy))
		}
	}
	return im
}

// Scale multiplies every level by num/den, rounding down, for dimming a
// whole image.
func (im *Image) Scale(num, den uint8) {
	if den == 0 {
		return
	}
	for i, level := range im.pix {
		v := uint(level) * uint(num) / uint(den)
		if v > uint(core.MaxBrightness) {
			v = uint(core.MaxBrightness)
		}
		im.pix[i] = uint8(v)
	}
}
