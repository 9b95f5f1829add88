//go:build rp2040 || rp2350

package pio

// PIO column driver using tinygo-org/pio. Each word pushed to the TX FIFO is
// a column mask; the state machine copies it onto consecutive pins, so a row
// changes in one bus write and the CPU never toggles pins one by one.

import (
	"errors"
	"machine"

	rp2pio "github.com/tinygo-org/pio/rp2-pio"
)

var ErrNoStateMachine = errors.New("no free PIO state machine")

// buildColumnProgram creates the column program using AssemblerV0
func buildColumnProgram() []uint16 {
	asm := rp2pio.AssemblerV0{SidesetBits: 0}
	return []uint16{
		// .wrap_target
		asm.Pull(false, true).Encode(),           // 0: pull block
		asm.Out(rp2pio.OutDestPins, 16).Encode(), // 1: out pins, 16
		// .wrap
	}
}

const columnPIOOrigin = 0

// ColumnDriver drives up to 16 column pins from one state machine
type ColumnDriver struct {
	pio    *rp2pio.PIO
	sm     rp2pio.StateMachine
	base   machine.Pin
	width  uint8
	invert uint16
}

// NewColumnDriver claims a state machine and configures width consecutive
// pins starting at base as outputs, all dark.
func NewColumnDriver(base machine.Pin, width uint8, activeLow bool) (*ColumnDriver, error) {
	pioNum, smNum, ok := allocatePIO()
	if !ok {
		return nil, ErrNoStateMachine
	}
	pioHW := rp2pio.PIO0
	if pioNum == 1 {
		pioHW = rp2pio.PIO1
	}

	d := &ColumnDriver{
		pio:   pioHW,
		sm:    pioHW.StateMachine(smNum),
		base:  base,
		width: width,
	}
	if activeLow {
		d.invert = uint16(1<<width - 1)
	}

	d.sm.TryClaim()

	program := buildColumnProgram()
	offset, err := d.pio.AddProgram(program, columnPIOOrigin)
	if err != nil {
		return nil, err
	}

	for i := uint8(0); i < width; i++ {
		(base + machine.Pin(i)).Configure(machine.PinConfig{Mode: d.pio.PinMode()})
	}

	cfg := rp2pio.DefaultStateMachineConfig()
	cfg.SetOutPins(base, width)
	// Shift right so bit 0 lands on base; explicit PULL, no autopull
	cfg.SetOutShift(true, false, 32)
	cfg.SetWrap(offset+uint8(len(program))-1, offset)
	cfg.SetClkDivIntFrac(1, 0)

	// Init first, then pin directions
	d.sm.Init(offset, cfg)
	d.sm.SetPindirsConsecutive(base, width, true)
	d.sm.SetPinsConsecutive(base, width, activeLow)
	d.sm.SetEnabled(true)
	return d, nil
}

// Set lights the columns in mask. Safe from interrupt context: the state
// machine drains the FIFO within a few cycles, so it is never full here.
func (d *ColumnDriver) Set(mask uint16) {
	d.sm.TxPut(uint32(mask ^ d.invert))
}
