//go:build rp2040

// Command rp2040 drives a 16x8 greyscale LED matrix from a Raspberry Pi
// Pico: rows on GPIO, columns through PIO, images over USB CDC.
package main

import (
	"errors"
	"machine"
	"time"

	"greymatrix/core"
	"greymatrix/firmware"
	"greymatrix/protocol"
)

var errUSBStalled = errors.New("usb write made no progress")

var (
	inputBuffer *protocol.FifoBuffer
	usb         usbWriter
	ctrl        *firmware.Controller

	// Set when writes stop going through; the next byte from the host
	// starts a fresh session.
	usbWasDisconnected bool
	readErrors         uint32
)

func main() {
	// Clear any watchdog state left over from the last reset
	if err := machine.Watchdog.Configure(machine.WatchdogConfig{TimeoutMillis: 0}); err != nil {
		return
	}

	InitUSB()
	initDebugUART()

	control, err := newMatrixControl()
	if err != nil {
		core.DebugPrintln("[MAIN] column driver: " + err.Error())
		halt()
	}
	core.InitialiseControl(control)
	core.InitialiseTimer(newAlarmTimer(uint32(displayTick.Nanoseconds())))

	display, err := core.InitialiseDisplay(boardMatrix)
	if err != nil {
		core.DebugPrintln("[MAIN] display: " + err.Error())
		halt()
	}
	enableDisplayInterrupts()

	ctrl, err = firmware.New(display, firmware.Config{MCU: "rp2040", Tick: displayTick})
	if err != nil {
		core.DebugPrintln("[MAIN] controller: " + err.Error())
		halt()
	}
	// Watchdog reset re-enumerates USB more reliably than SYSRESETREQ
	ctrl.SetResetHandler(func() {
		display.Blank()
		machine.Watchdog.Configure(machine.WatchdogConfig{TimeoutMillis: 1})
		machine.Watchdog.Start()
		for {
			time.Sleep(time.Millisecond)
		}
	})

	inputBuffer = protocol.NewFifoBuffer(protocol.MessageMax * 4)
	go usbReaderLoop()

	for {
		func() {
			defer func() {
				if r := recover(); r != nil {
					readErrors++
					inputBuffer.Reset()
					ctrl.Reset()
				}
			}()

			if inputBuffer.Available() > 0 {
				ctrl.Receive(inputBuffer)
			}
			if err := ctrl.Flush(&usb); err != nil && usb.disconnected() {
				usbWasDisconnected = true
				inputBuffer.Reset()
			}
			// After Flush so the ack is out before the reset
			ctrl.CheckPendingReset()
		}()

		time.Sleep(10 * time.Microsecond)
	}
}

// usbReaderLoop moves bytes from USB into inputBuffer
func usbReaderLoop() {
	defer func() {
		if r := recover(); r != nil {
			readErrors++
			time.Sleep(100 * time.Millisecond)
			go usbReaderLoop()
		}
	}()

	for {
		if USBAvailable() > 0 {
			b, err := USBRead()
			if err != nil {
				readErrors++
				time.Sleep(time.Millisecond)
				continue
			}
			if usbWasDisconnected {
				usbWasDisconnected = false
				inputBuffer.Reset()
				ctrl.Reset()
			}
			if inputBuffer.Write([]byte{b}) == 0 {
				readErrors++
				time.Sleep(10 * time.Millisecond)
			}
			continue
		}
		time.Sleep(100 * time.Microsecond)
	}
}

// halt leaves the matrix dark and parks the core
func halt() {
	for {
		time.Sleep(time.Second)
	}
}
