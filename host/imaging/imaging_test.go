package imaging

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"greymatrix/core"
)

func TestDecodePNG(t *testing.T) {
	src := image.NewGray(image.Rect(0, 0, 10, 10))
	// Rows 0 and 4 of a 5x5 result sample source rows 1 and 9
	for x := 0; x < 10; x++ {
		src.SetGray(x, 1, color.Gray{Y: 255})
		src.SetGray(x, 9, color.Gray{Y: 128})
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, src))

	img, err := Decode(&buf, 5, 5)
	require.NoError(t, err)
	assert.Equal(t, []uint8{9, 9, 9, 9, 9}, img.Row(0))
	assert.Equal(t, []uint8{0, 0, 0, 0, 0}, img.Row(2))
	assert.Equal(t, []uint8{5, 5, 5, 5, 5}, img.Row(4))
}

func TestTransparentIsDark(t *testing.T) {
	src := image.NewNRGBA(image.Rect(0, 0, 2, 1))
	src.SetNRGBA(0, 0, color.NRGBA{R: 255, G: 255, B: 255, A: 0})
	src.SetNRGBA(1, 0, color.NRGBA{R: 255, G: 255, B: 255, A: 255})
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, src))

	img, err := Decode(&buf, 2, 1)
	require.NoError(t, err)
	assert.Equal(t, []uint8{0, core.MaxBrightness}, img.Row(0))
}

const squareSVG = `<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 10 10">
  <rect x="0" y="0" width="5" height="10" fill="#ffffff"/>
</svg>`

func TestDecodeSVG(t *testing.T) {
	img, err := DecodeSVG(strings.NewReader(squareSVG), 4, 2)
	require.NoError(t, err)
	assert.Equal(t, []uint8{9, 9, 0, 0}, img.Row(0))
	assert.Equal(t, []uint8{9, 9, 0, 0}, img.Row(1))
}

func TestLoadByExtension(t *testing.T) {
	dir := t.TempDir()
	svgPath := filepath.Join(dir, "half.SVG")
	require.NoError(t, os.WriteFile(svgPath, []byte(squareSVG), 0644))

	img, err := Load(svgPath, 2, 2)
	require.NoError(t, err)
	assert.Equal(t, []uint8{9, 0}, img.Row(0))

	bad := filepath.Join(dir, "bad.png")
	require.NoError(t, os.WriteFile(bad, []byte("not a png"), 0644))
	_, err = Load(bad, 2, 2)
	require.Error(t, err)
	assert.Contains(t, err.Error(), bad)

	_, err = Load(filepath.Join(dir, "missing.png"), 2, 2)
	assert.ErrorIs(t, err, os.ErrNotExist)
}
