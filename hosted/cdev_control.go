//go:build linux

package hosted

import (
	"fmt"

	"github.com/warthog618/go-gpiocdev"
)

// CdevConfig selects the GPIO lines of a matrix wired to a Linux GPIO chip.
type CdevConfig struct {
	Chip            string // e.g. "gpiochip0"
	Rows            []int  // Line offsets, one per matrix row
	Columns         []int  // Line offsets, one per matrix column, bit 0 first
	RowActiveLow    bool
	ColumnActiveLow bool
}

// CdevControl implements core.DisplayControl through the GPIO character
// device. Active-low wiring is handled by the kernel, so the values written
// are always 1 for lit.
type CdevControl struct {
	*lineState
	rows *gpiocdev.Lines
	cols *gpiocdev.Lines
	dark []int
}

// NewCdevControl requests the row and column lines as outputs, all off.
func NewCdevControl(cfg CdevConfig) (*CdevControl, error) {
	state, err := newLineState(len(cfg.Rows), len(cfg.Columns))
	if err != nil {
		return nil, err
	}
	c := &CdevControl{
		lineState: state,
		dark:      make([]int, len(cfg.Columns)),
	}

	c.rows, err = gpiocdev.RequestLines(cfg.Chip, cfg.Rows, lineOptions(len(cfg.Rows), cfg.RowActiveLow)...)
	if err != nil {
		return nil, fmt.Errorf("request row lines on %s: %w", cfg.Chip, err)
	}
	c.cols, err = gpiocdev.RequestLines(cfg.Chip, cfg.Columns, lineOptions(len(cfg.Columns), cfg.ColumnActiveLow)...)
	if err != nil {
		c.rows.Close()
		return nil, fmt.Errorf("request column lines on %s: %w", cfg.Chip, err)
	}
	return c, nil
}

func lineOptions(n int, activeLow bool) []gpiocdev.LineReqOption {
	opts := []gpiocdev.LineReqOption{
		gpiocdev.WithConsumer("greymatrix"),
		gpiocdev.AsOutput(make([]int, n)...),
	}
	if activeLow {
		opts = append(opts, gpiocdev.AsActiveLow)
	}
	return opts
}

// DisplayRowColumns lights cols in row. The columns are dark while the row
// lines change. Write errors are counted, see Err and Failures.
func (c *CdevControl) DisplayRowColumns(row int, cols uint16) {
	if c.plan(row, cols) {
		c.fail(c.cols.SetValues(c.dark))
		c.fail(c.rows.SetValues(c.lineState.rows))
	}
	c.fail(c.cols.SetValues(c.lineState.cols))
}

// Close switches the matrix off and releases the lines.
func (c *CdevControl) Close() error {
	c.DisplayRowColumns(0, 0)
	err := c.cols.Close()
	if rerr := c.rows.Close(); err == nil {
		err = rerr
	}
	return err
}
