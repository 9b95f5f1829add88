package core

import "testing"

// levelGrid is a Render backed by rows of levels
type levelGrid [][]uint8

func (g levelGrid) BrightnessAt(x, y int) uint8 {
	return g[y][x]
}

// foldedMatrix shows a 2x4 image on a 4x2 matrix, the way boards with
// fewer row drivers than visible rows are wired.
type foldedMatrix struct{}

func (foldedMatrix) MatrixRows() int    { return 2 }
func (foldedMatrix) MatrixColumns() int { return 4 }
func (foldedMatrix) ImageRows() int     { return 4 }
func (foldedMatrix) ImageColumns() int  { return 2 }

func (foldedMatrix) ImageToMatrix(x, y int) (row, col int) {
	return x, y
}

func mustFrame(t *testing.T, m Matrix) *Frame {
	t.Helper()
	f, err := NewFrame(m)
	if err != nil {
		t.Fatalf("NewFrame failed: %v", err)
	}
	return f
}

func TestNewFrameRejectsGeometry(t *testing.T) {
	tests := []struct {
		name string
		m    Matrix
		want error
	}{
		{"too wide", GridMatrix{Rows: 1, Columns: 17}, ErrTooManyColumns},
		{"no rows", GridMatrix{Rows: 0, Columns: 5}, ErrNoRows},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewFrame(tt.m)
			if err != tt.want {
				t.Errorf("NewFrame error = %v, want %v", err, tt.want)
			}
		})
	}

	if _, err := NewFrame(GridMatrix{Rows: 1, Columns: 16}); err != nil {
		t.Errorf("16 columns should be accepted: %v", err)
	}
}

func TestFrameEmpty(t *testing.T) {
	f := mustFrame(t, GridMatrix{Rows: 5, Columns: 5})
	f.Set(RenderFunc(func(x, y int) uint8 { return 0 }))

	for r := 0; r < f.Rows(); r++ {
		if plan := f.Row(r); plan != (RowPlan{}) {
			t.Errorf("row %d = %+v, want empty", r, plan)
		}
	}
}

func TestFrameRoundTrip(t *testing.T) {
	img := levelGrid{
		{0, 1, 2, 3, 4},
		{5, 6, 7, 8, 9},
		{9, 0, 9, 0, 9},
		{3, 3, 3, 3, 3},
		{0, 0, 0, 0, 1},
	}
	m := GridMatrix{Rows: 5, Columns: 5}
	f := mustFrame(t, m)
	f.Set(img)

	for y := range img {
		for x, level := range img[y] {
			row, col := m.ImageToMatrix(x, y)
			plan := f.Row(row)
			bit := uint16(1) << col
			for l := uint8(0); l <= MaxBrightness; l++ {
				set := plan.Levels[l]&bit != 0
				if set != (l == level && level != 0) {
					t.Errorf("pixel (%d,%d) level %d: bit in Levels[%d] = %v", x, y, level, l, set)
				}
			}
			if (plan.Lit&bit != 0) != (level != 0) {
				t.Errorf("pixel (%d,%d) level %d: Lit bit wrong", x, y, level)
			}
		}
	}
}

func TestFrameMasksDisjoint(t *testing.T) {
	f := mustFrame(t, GridMatrix{Rows: 3, Columns: 16})
	f.Set(RenderFunc(func(x, y int) uint8 { return uint8((x + y) % 10) }))

	for r := 0; r < f.Rows(); r++ {
		plan := f.Row(r)
		var union uint16
		for l, mask := range plan.Levels {
			if union&mask != 0 {
				t.Errorf("row %d: Levels[%d] overlaps lower levels", r, l)
			}
			union |= mask
		}
		if union != plan.Lit {
			t.Errorf("row %d: union %#x != Lit %#x", r, union, plan.Lit)
		}
		if plan.Levels[0] != 0 {
			t.Errorf("row %d: Levels[0] = %#x, want 0", r, plan.Levels[0])
		}
	}
}

func TestFrameSetIdempotent(t *testing.T) {
	m := GridMatrix{Rows: 4, Columns: 4}
	img := levelGrid{
		{1, 0, 0, 9},
		{0, 2, 8, 0},
		{0, 7, 3, 0},
		{6, 0, 0, 4},
	}

	a := mustFrame(t, m)
	b := mustFrame(t, m)
	a.Set(img)
	b.Set(img)
	b.Set(img)
	if !a.Equal(b) {
		t.Error("setting the same image twice changed the frame")
	}

	// A previous image leaves nothing behind
	b.Set(RenderFunc(func(x, y int) uint8 { return 9 }))
	b.Set(img)
	if !a.Equal(b) {
		t.Error("Set did not fully overwrite the previous image")
	}
}

func TestFrameClampsBrightness(t *testing.T) {
	f := mustFrame(t, GridMatrix{Rows: 1, Columns: 3})
	f.Set(levelGrid{{12, 200, 9}})

	plan := f.Row(0)
	if plan.Levels[MaxBrightness] != 0b111 {
		t.Errorf("Levels[9] = %#b, want 0b111", plan.Levels[MaxBrightness])
	}
}

func TestFrameUsesGeometry(t *testing.T) {
	f := mustFrame(t, foldedMatrix{})
	// Image column 1 becomes matrix row 1
	f.Set(levelGrid{
		{0, 5},
		{0, 0},
		{2, 0},
		{0, 0},
	})

	if got := f.Row(0).Levels[2]; got != 1<<2 {
		t.Errorf("row 0 Levels[2] = %#b, want %#b", got, 1<<2)
	}
	if got := f.Row(1).Levels[5]; got != 1<<0 {
		t.Errorf("row 1 Levels[5] = %#b, want %#b", got, 1)
	}
}

// collidingMatrix maps every visible pixel onto the same LED
type collidingMatrix struct{}

func (collidingMatrix) MatrixRows() int                       { return 1 }
func (collidingMatrix) MatrixColumns() int                    { return 1 }
func (collidingMatrix) ImageRows() int                        { return 1 }
func (collidingMatrix) ImageColumns() int                     { return 2 }
func (collidingMatrix) ImageToMatrix(x, y int) (row, col int) { return 0, 0 }

func TestFrameCollisionLaterWins(t *testing.T) {
	f := mustFrame(t, collidingMatrix{})
	f.Set(levelGrid{{3, 6}})

	plan := f.Row(0)
	if plan.Levels[3] != 0 || plan.Levels[6] != 1 {
		t.Errorf("Levels[3] = %#b, Levels[6] = %#b, want 0 and 1", plan.Levels[3], plan.Levels[6])
	}
}

func TestRowPlanNextLevel(t *testing.T) {
	var plan RowPlan
	if plan.LowestLevel() != 0 {
		t.Errorf("empty plan LowestLevel = %d, want 0", plan.LowestLevel())
	}

	plan.Levels[2] = 1
	plan.Levels[7] = 2
	plan.Levels[9] = 4

	steps := []struct{ after, want uint8 }{
		{0, 2},
		{2, 7},
		{7, 9},
		{9, 0},
	}
	for _, s := range steps {
		if got := plan.NextLevel(s.after); got != s.want {
			t.Errorf("NextLevel(%d) = %d, want %d", s.after, got, s.want)
		}
	}
}

func TestFrameSetDoesNotAllocate(t *testing.T) {
	f := mustFrame(t, GridMatrix{Rows: 5, Columns: 5})
	img := RenderFunc(func(x, y int) uint8 { return uint8(x + y) })

	allocs := testing.AllocsPerRun(100, func() {
		f.Set(img)
	})
	if allocs != 0 {
		t.Errorf("Set allocated %.1f times per run", allocs)
	}
}

func TestFrameCopyAndClear(t *testing.T) {
	m := GridMatrix{Rows: 2, Columns: 2}
	src := mustFrame(t, m)
	dst := mustFrame(t, m)
	src.Set(levelGrid{{1, 2}, {3, 4}})

	dst.CopyFrom(src)
	if !dst.Equal(src) {
		t.Fatal("CopyFrom did not copy")
	}

	src.Clear()
	if dst.Equal(src) {
		t.Error("copy shares storage with its source")
	}
	if src.Row(0).Lit != 0 || src.Row(1).Lit != 0 {
		t.Error("Clear left LEDs lit")
	}
}
