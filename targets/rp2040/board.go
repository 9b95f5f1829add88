//go:build rp2040

package main

import (
	"machine"
	"time"

	"greymatrix/core"
)

// Matrix wiring: 16 column lines on GP0-GP15 driven by PIO, 8 row lines
// switched through high-side P-channel drivers (active low).
const (
	matrixRows      = 8
	matrixColumns   = 16
	columnBase      = machine.GPIO0
	columnActiveLow = false
	rowActiveLow    = true

	// 8 rows x 375 ticks x 4µs = 12ms, about 83 refreshes per second
	displayTick = 4 * time.Microsecond
)

var rowPins = [matrixRows]machine.Pin{
	machine.GPIO16, machine.GPIO17, machine.GPIO18, machine.GPIO19,
	machine.GPIO20, machine.GPIO21, machine.GPIO22, machine.GPIO26,
}

var boardMatrix = core.GridMatrix{Rows: matrixRows, Columns: matrixColumns}

// Debug output on UART0, clear of the matrix pins
var (
	debugTX = machine.GPIO28
	debugRX = machine.GPIO29
)
