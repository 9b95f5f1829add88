package core

// Render is the brightness source for a frame: anything image-like that can
// report a 0..MaxBrightness level for a visible coordinate.
//
// Coordinates range over 0..ImageColumns()-1 and 0..ImageRows()-1 of the
// Matrix in use, with (0, 0) at the top left. Values above MaxBrightness are
// the source's fault; the frame compiler clamps them rather than fail.
type Render interface {
	BrightnessAt(x, y int) uint8
}

// RenderFunc adapts a plain function to the Render interface.
type RenderFunc func(x, y int) uint8

// BrightnessAt calls f(x, y).
func (f RenderFunc) BrightnessAt(x, y int) uint8 {
	return f(x, y)
}

// Matrix describes how a display is wired.
//
// Matrix rows and columns describe the wiring, which need not match the
// visible arrangement; ImageToMatrix maps a visible coordinate to the LED
// that shows it. It must be a pure function and every visible coordinate must
// map inside the matrix.
type Matrix interface {
	// MatrixRows returns the number of wired rows
	MatrixRows() int

	// MatrixColumns returns the number of wired columns (at most 16)
	MatrixColumns() int

	// ImageRows returns the visible height
	ImageRows() int

	// ImageColumns returns the visible width
	ImageColumns() int

	// ImageToMatrix maps visible (x, y) to wired (row, column)
	ImageToMatrix(x, y int) (row, col int)
}

// GridMatrix is a Matrix whose wiring matches its visible layout: image row y
// is matrix row y and image column x is matrix column x.
type GridMatrix struct {
	Rows    int
	Columns int
}

func (g GridMatrix) MatrixRows() int    { return g.Rows }
func (g GridMatrix) MatrixColumns() int { return g.Columns }
func (g GridMatrix) ImageRows() int     { return g.Rows }
func (g GridMatrix) ImageColumns() int  { return g.Columns }

// ImageToMatrix returns (y, x).
func (g GridMatrix) ImageToMatrix(x, y int) (row, col int) {
	return y, x
}
