package hosted

import (
	"errors"
	"sync"
)

var (
	ErrNoPins       = errors.New("hosted: control needs at least one row and one column pin")
	ErrTooManyPins  = errors.New("hosted: more than 16 column pins")
	ErrRowOutOfPins = errors.New("hosted: row has no pin")
)

// lineState tracks what a control last drove so a column-only change does
// not touch the row lines. Values are logical: 1 is lit.
type lineState struct {
	rows []int
	cols []int
	row  int // Row currently enabled, -1 for none

	mu       sync.Mutex
	failures uint32
	lastErr  error
}

func newLineState(rows, cols int) (*lineState, error) {
	if rows == 0 || cols == 0 {
		return nil, ErrNoPins
	}
	if cols > 16 {
		return nil, ErrTooManyPins
	}
	return &lineState{
		rows: make([]int, rows),
		cols: make([]int, cols),
		row:  -1,
	}, nil
}

// plan updates the wanted values for lighting cols in row and reports
// whether the row lines must change. A row with no lit columns is switched
// off entirely.
func (s *lineState) plan(row int, cols uint16) (rowChanged bool) {
	want := row
	if cols == 0 {
		want = -1
	} else if row < 0 || row >= len(s.rows) {
		s.fail(ErrRowOutOfPins)
		want = -1
	}
	if want < 0 {
		cols = 0
	}
	for i := range s.cols {
		s.cols[i] = int(cols>>uint(i)) & 1
	}
	if want == s.row {
		return false
	}
	for i := range s.rows {
		s.rows[i] = 0
		if i == want {
			s.rows[i] = 1
		}
	}
	s.row = want
	return true
}

func (s *lineState) fail(err error) {
	if err == nil {
		return
	}
	s.mu.Lock()
	s.failures++
	s.lastErr = err
	s.mu.Unlock()
}

// Err returns the most recent write error.
func (s *lineState) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastErr
}

// Failures returns how many writes have failed.
func (s *lineState) Failures() uint32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.failures
}
