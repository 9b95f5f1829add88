//go:build microbit

package main

import (
	"device/nrf"
	"machine"
)

// micro:bit v1 matrix: rows on P0.13-P0.15 (active high), columns on
// P0.04-P0.12 (active low).
const (
	firstRowPin = 13
	firstColPin = 4
	rowMask     = 0b111 << firstRowPin
	colMask     = 0x1ff << firstColPin
)

type gpioControl struct{}

func newGPIOControl() gpioControl {
	for pin := firstColPin; pin < firstRowPin+3; pin++ {
		machine.Pin(pin).Configure(machine.PinConfig{Mode: machine.PinOutput})
	}
	nrf.GPIO.OUTCLR.Set(rowMask)
	nrf.GPIO.OUTSET.Set(colMask)
	return gpioControl{}
}

// DisplayRowColumns darkens the columns before moving the row so no LED in
// the old row flashes with the new row's pattern.
func (gpioControl) DisplayRowColumns(row int, cols uint16) {
	nrf.GPIO.OUTSET.Set(colMask)
	nrf.GPIO.OUTCLR.Set(rowMask)
	if cols == 0 || row < 0 || row > 2 {
		return
	}
	nrf.GPIO.OUTSET.Set(1 << (firstRowPin + uint32(row)))
	nrf.GPIO.OUTCLR.Set((uint32(cols) << firstColPin) & colMask)
}
