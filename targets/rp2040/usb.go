//go:build rp2040

package main

import (
	"machine"
)

// InitUSB configures machine.Serial, which is USB CDC on the RP2040. The
// descriptors come from the TinyGo runtime.
func InitUSB() {
	machine.Serial.Configure(machine.UARTConfig{})
}

// USBAvailable returns the number of bytes waiting to be read
func USBAvailable() int {
	return machine.Serial.Buffered()
}

// USBRead reads a single byte
func USBRead() (byte, error) {
	return machine.Serial.ReadByte()
}

// usbWriter adapts machine.Serial for Controller.Flush, tracking stalls so
// the main loop can tell the host has gone away.
type usbWriter struct {
	failures uint32
}

func (w *usbWriter) Write(data []byte) (int, error) {
	written := 0
	for written < len(data) {
		n, err := machine.Serial.Write(data[written:])
		if err != nil || n == 0 {
			w.failures++
			if err == nil {
				err = errUSBStalled
			}
			return written, err
		}
		written += n
	}
	w.failures = 0
	return written, nil
}

// disconnected reports whether writes have failed often enough to treat the
// host as gone.
func (w *usbWriter) disconnected() bool {
	return w.failures > 10
}
