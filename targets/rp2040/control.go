//go:build rp2040

package main

import (
	"machine"

	"greymatrix/targets/pio"
)

// matrixControl lights one row through GPIO and its columns through PIO
type matrixControl struct {
	columns *pio.ColumnDriver
	rows    [matrixRows]machine.Pin
	current int
}

func newMatrixControl() (*matrixControl, error) {
	cols, err := pio.NewColumnDriver(columnBase, matrixColumns, columnActiveLow)
	if err != nil {
		return nil, err
	}
	c := &matrixControl{columns: cols, rows: rowPins, current: -1}
	for _, p := range c.rows {
		p.Configure(machine.PinConfig{Mode: machine.PinOutput})
		p.Set(rowActiveLow)
	}
	return c, nil
}

// DisplayRowColumns darkens the columns before switching rows so no LED in
// the old row flashes with the new row's pattern.
func (c *matrixControl) DisplayRowColumns(row int, cols uint16) {
	c.columns.Set(0)
	if c.current >= 0 {
		c.rows[c.current].Set(rowActiveLow)
		c.current = -1
	}
	if cols == 0 || row < 0 || row >= len(c.rows) {
		return
	}
	c.rows[row].Set(!rowActiveLow)
	c.current = row
	c.columns.Set(cols)
}
