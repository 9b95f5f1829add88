// Package serial opens the command link to a matrix controller.
package serial

import (
	"errors"
	"io"
	"time"
)

var ErrNoDevice = errors.New("serial: no device given")

// Port is a byte link to the controller. Read returns (0, nil) when the read
// timeout passes without data.
type Port interface {
	io.ReadWriteCloser

	// Flush discards data not yet read or written
	Flush() error
}

// Config holds serial port configuration
type Config struct {
	// Device path (e.g., "/dev/ttyACM0", "COM3")
	Device string `yaml:"device"`

	// Baud rate. USB CDC links ignore it.
	Baud int `yaml:"baud"`

	// Read timeout (0 = blocking)
	ReadTimeout time.Duration `yaml:"read_timeout"`
}

// DefaultConfig returns the link settings the bundled targets use
func DefaultConfig(device string) Config {
	return Config{
		Device:      device,
		Baud:        115200,
		ReadTimeout: 100 * time.Millisecond,
	}
}
