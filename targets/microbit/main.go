//go:build microbit

// Command microbit drives the BBC micro:bit v1 LED matrix in greyscale and
// takes images over the USB serial bridge.
package main

import (
	"device/arm"
	"machine"
	"time"

	"greymatrix/boards"
	"greymatrix/core"
	"greymatrix/firmware"
	"greymatrix/protocol"
)

func main() {
	uart := machine.Serial
	uart.Configure(machine.UARTConfig{BaudRate: 115200})

	core.InitialiseControl(newGPIOControl())
	core.InitialiseTimer(nrfTimer{})
	display, err := core.InitialiseDisplay(boards.Microbit{})
	if err != nil {
		halt()
	}
	enableDisplayInterrupt()

	ctrl, err := firmware.New(display, firmware.Config{MCU: "nrf51822", Tick: core.MicrobitTick})
	if err != nil {
		halt()
	}
	ctrl.SetResetHandler(func() {
		display.Blank()
		arm.SystemReset()
	})

	// The serial link doubles as the console, so there is no debug writer
	input := protocol.NewFifoBuffer(protocol.MessageMax * 2)
	for {
		for uart.Buffered() > 0 && input.Free() > 0 {
			b, err := uart.ReadByte()
			if err != nil {
				break
			}
			input.Write([]byte{b})
		}
		if input.Available() > 0 {
			ctrl.Receive(input)
		}
		ctrl.Flush(uart)
		ctrl.CheckPendingReset()

		time.Sleep(100 * time.Microsecond)
	}
}

func halt() {
	for {
		time.Sleep(time.Second)
	}
}
