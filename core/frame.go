package core

import "errors"

// MaxColumns is the widest matrix a RowPlan can describe.
const MaxColumns = 16

var (
	ErrTooManyColumns = errors.New("matrix has more than 16 columns")
	ErrNoRows         = errors.New("matrix has no rows")
)

// RowPlan is the compiled form of one matrix row.
//
// Levels[L] holds the columns whose pixel is at exactly level L (Levels[0] is
// always zero). The level masks are pairwise disjoint and Lit is their union.
type RowPlan struct {
	Levels [Brightnesses]uint16
	Lit    uint16
}

// NextLevel returns the lowest level above after that has at least one
// column in this row, or 0 if there is none.
func (p *RowPlan) NextLevel(after uint8) uint8 {
	for l := after + 1; l <= MaxBrightness; l++ {
		if p.Levels[l] != 0 {
			return l
		}
	}
	return 0
}

// LowestLevel returns the dimmest level present in the row, or 0 for an
// unlit row.
func (p *RowPlan) LowestLevel() uint8 {
	return p.NextLevel(0)
}

// Frame is a compiled greyscale image in the shape the display needs: one
// RowPlan per matrix row.
//
// The row storage is allocated once by NewFrame; Set rebuilds it in place, so
// a Frame can be reused for every image shown.
type Frame struct {
	matrix Matrix
	rows   []RowPlan
}

// NewFrame returns an empty frame (every LED off) for the given matrix.
func NewFrame(m Matrix) (*Frame, error) {
	if m.MatrixColumns() > MaxColumns {
		return nil, ErrTooManyColumns
	}
	if m.MatrixRows() <= 0 {
		return nil, ErrNoRows
	}
	return &Frame{
		matrix: m,
		rows:   make([]RowPlan, m.MatrixRows()),
	}, nil
}

// Matrix returns the geometry the frame was built for.
func (f *Frame) Matrix() Matrix {
	return f.matrix
}

// Rows returns the number of matrix rows.
func (f *Frame) Rows() int {
	return len(f.rows)
}

// Row returns the compiled plan for matrix row i.
func (f *Frame) Row(i int) RowPlan {
	return f.rows[i]
}

// Set compiles an image into the frame, replacing whatever it held before.
//
// Every visible pixel is mapped through the matrix geometry and its column is
// recorded under its exact brightness level. Out-of-range levels are clamped
// to MaxBrightness. Set does not allocate.
func (f *Frame) Set(r Render) {
	for i := range f.rows {
		f.rows[i] = RowPlan{}
	}

	width := f.matrix.ImageColumns()
	height := f.matrix.ImageRows()
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			level := r.BrightnessAt(x, y)
			if level == 0 {
				continue
			}
			if level > MaxBrightness {
				level = MaxBrightness
			}

			row, col := f.matrix.ImageToMatrix(x, y)
			bit := uint16(1) << uint(col)
			plan := &f.rows[row]

			// Two visible pixels on one LED: the later one wins, keeping
			// the level masks disjoint.
			if plan.Lit&bit != 0 {
				for l := range plan.Levels {
					plan.Levels[l] &^= bit
				}
			}
			plan.Levels[level] |= bit
			plan.Lit |= bit
		}
	}
}

// Clear switches every LED in the frame off.
func (f *Frame) Clear() {
	for i := range f.rows {
		f.rows[i] = RowPlan{}
	}
}

// CopyFrom overwrites f with the contents of src without allocating.
// Both frames must have been built for the same matrix.
func (f *Frame) CopyFrom(src *Frame) {
	copy(f.rows, src.rows)
}

// Equal reports whether two frames hold identical compiled state.
func (f *Frame) Equal(other *Frame) bool {
	if len(f.rows) != len(other.rows) {
		return false
	}
	for i := range f.rows {
		if f.rows[i] != other.rows[i] {
			return false
		}
	}
	return true
}
