// Package boards describes the LED matrices of supported boards.
package boards

// Microbit is the micro:bit v1 display: a 5x5 grid of LEDs wired as a
// 3x9 matrix. Two matrix positions in row 1 have no LED.
type Microbit struct{}

type point struct{ x, y int8 }

const noLED = -1

// microbitLEDs gives the image position wired to each matrix column and row
var microbitLEDs = [9][3]point{
	{{0, 0}, {4, 2}, {2, 4}},
	{{2, 0}, {0, 2}, {4, 4}},
	{{4, 0}, {2, 2}, {0, 4}},
	{{4, 3}, {1, 0}, {0, 1}},
	{{3, 3}, {3, 0}, {1, 1}},
	{{2, 3}, {3, 4}, {2, 1}},
	{{1, 3}, {1, 4}, {3, 1}},
	{{0, 3}, {noLED, noLED}, {4, 1}},
	{{1, 2}, {noLED, noLED}, {3, 2}},
}

type position struct{ row, col uint8 }

var microbitImage = invertMicrobit()

func invertMicrobit() (m [5][5]position) {
	for col, rows := range microbitLEDs {
		for row, p := range rows {
			if p.x == noLED {
				continue
			}
			m[p.y][p.x] = position{uint8(row), uint8(col)}
		}
	}
	return m
}

func (Microbit) MatrixRows() int    { return 3 }
func (Microbit) MatrixColumns() int { return 9 }
func (Microbit) ImageRows() int     { return 5 }
func (Microbit) ImageColumns() int  { return 5 }

// ImageToMatrix returns the matrix row and column wired to image pixel (x, y).
func (Microbit) ImageToMatrix(x, y int) (row, col int) {
	p := microbitImage[y][x]
	return int(p.row), int(p.col)
}
