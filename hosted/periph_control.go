package hosted

import (
	"fmt"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/host/v3"
)

// PeriphConfig names the pins of a matrix as periph.io knows them
// (e.g. "GPIO17").
type PeriphConfig struct {
	Rows            []string
	Columns         []string
	RowActiveLow    bool
	ColumnActiveLow bool
}

// PeriphControl implements core.DisplayControl with periph.io GPIO pins.
type PeriphControl struct {
	*lineState
	rows         []gpio.PinOut
	cols         []gpio.PinOut
	rowActiveLow bool
	colActiveLow bool
}

// NewPeriphControl initialises the periph host drivers and looks the pins up
// by name.
func NewPeriphControl(cfg PeriphConfig) (*PeriphControl, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("periph host init: %w", err)
	}
	rows, err := lookupPins(cfg.Rows)
	if err != nil {
		return nil, err
	}
	cols, err := lookupPins(cfg.Columns)
	if err != nil {
		return nil, err
	}
	return NewPeriphControlPins(rows, cols, cfg.RowActiveLow, cfg.ColumnActiveLow)
}

func lookupPins(names []string) ([]gpio.PinOut, error) {
	pins := make([]gpio.PinOut, len(names))
	for i, name := range names {
		p := gpioreg.ByName(name)
		if p == nil {
			return nil, fmt.Errorf("gpio pin %q not found", name)
		}
		pins[i] = p
	}
	return pins, nil
}

// NewPeriphControlPins drives already opened pins and switches them all off.
func NewPeriphControlPins(rows, cols []gpio.PinOut, rowActiveLow, colActiveLow bool) (*PeriphControl, error) {
	state, err := newLineState(len(rows), len(cols))
	if err != nil {
		return nil, err
	}
	c := &PeriphControl{
		lineState:    state,
		rows:         rows,
		cols:         cols,
		rowActiveLow: rowActiveLow,
		colActiveLow: colActiveLow,
	}
	for _, p := range rows {
		if err := p.Out(level(0, rowActiveLow)); err != nil {
			return nil, fmt.Errorf("gpio %s: %w", p, err)
		}
	}
	for _, p := range cols {
		if err := p.Out(level(0, colActiveLow)); err != nil {
			return nil, fmt.Errorf("gpio %s: %w", p, err)
		}
	}
	return c, nil
}

func level(v int, activeLow bool) gpio.Level {
	return gpio.Level((v == 1) != activeLow)
}

// DisplayRowColumns lights cols in row. The columns are dark while the row
// pins change. Write errors are counted, see Err and Failures.
func (c *PeriphControl) DisplayRowColumns(row int, cols uint16) {
	if c.plan(row, cols) {
		for _, p := range c.cols {
			c.fail(p.Out(level(0, c.colActiveLow)))
		}
		for i, p := range c.rows {
			c.fail(p.Out(level(c.lineState.rows[i], c.rowActiveLow)))
		}
	}
	for i, p := range c.cols {
		c.fail(p.Out(level(c.lineState.cols[i], c.colActiveLow)))
	}
}

// Close switches the matrix off.
func (c *PeriphControl) Close() error {
	c.DisplayRowColumns(0, 0)
	return c.Err()
}
