// Package config holds the matrixctl settings file.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"

	"greymatrix/core"
	"greymatrix/host/serial"
)

// Local drivers
const (
	DriverGPIOCdev = "gpiocdev"
	DriverPeriph   = "periph"
)

const defaultRefreshHz = 100

var ErrNoPins = errors.New("local matrix has no row or column pins")

// Local describes a matrix wired straight to this machine's GPIO
type Local struct {
	Driver string `yaml:"driver"` // "gpiocdev" | "periph"

	// gpiocdev: chip name and line offsets
	Chip    string `yaml:"chip,omitempty"` // e.g. gpiochip0
	Rows    []int  `yaml:"rows,omitempty"`
	Columns []int  `yaml:"columns,omitempty"`

	// periph: pin names, e.g. GPIO17
	RowPins    []string `yaml:"row_pins,omitempty"`
	ColumnPins []string `yaml:"column_pins,omitempty"`

	RowActiveLow    bool `yaml:"row_active_low"`
	ColumnActiveLow bool `yaml:"column_active_low"`

	// Tick wins over RefreshHz when both are set
	Tick      time.Duration `yaml:"tick,omitempty"`
	RefreshHz uint32        `yaml:"refresh_hz,omitempty"`
}

// Config is the whole settings file
type Config struct {
	LogLevel string        `yaml:"log_level"`
	Serial   serial.Config `yaml:"serial"`
	Local    Local         `yaml:"local"`
}

// Default returns the settings used when there is no file
func Default() *Config {
	c := &Config{}
	c.applyDefaults()
	return c
}

func (c *Config) applyDefaults() {
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	def := serial.DefaultConfig("/dev/ttyACM0")
	if c.Serial.Device == "" {
		c.Serial.Device = def.Device
	}
	if c.Serial.Baud == 0 {
		c.Serial.Baud = def.Baud
	}
	if c.Serial.ReadTimeout == 0 {
		c.Serial.ReadTimeout = def.ReadTimeout
	}
	if c.Local.Driver == "" {
		c.Local.Driver = DriverGPIOCdev
	}
	if c.Local.Chip == "" {
		c.Local.Chip = "gpiochip0"
	}
	if c.Local.Tick == 0 && c.Local.RefreshHz == 0 {
		c.Local.RefreshHz = defaultRefreshHz
	}
}

// Load reads path and fills in defaults for anything left out
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	c.applyDefaults()
	return &c, nil
}

// Save writes c to path
func Save(path string, c *Config) error {
	b, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(path, b, 0644)
}

// Validate checks the settings the program will act on
func (c *Config) Validate() error {
	if _, err := zerolog.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("log_level: %w", err)
	}
	if c.Serial.Baud < 0 {
		return fmt.Errorf("serial.baud %d is negative", c.Serial.Baud)
	}
	return c.Local.Validate()
}

// Validate checks the local matrix wiring
func (l *Local) Validate() error {
	switch l.Driver {
	case DriverGPIOCdev, DriverPeriph:
	default:
		return fmt.Errorf("local.driver %q: want %s or %s", l.Driver, DriverGPIOCdev, DriverPeriph)
	}
	rows, cols := l.MatrixRows(), l.MatrixColumns()
	if rows == 0 || cols == 0 {
		return ErrNoPins
	}
	if cols > core.MaxColumns {
		return fmt.Errorf("local matrix has %d columns: %w", cols, core.ErrTooManyColumns)
	}
	if l.TickPeriod() <= 0 {
		return fmt.Errorf("local refresh_hz %d is too high for %d rows", l.RefreshHz, rows)
	}
	return nil
}

// MatrixRows returns the number of row pins for the configured driver
func (l *Local) MatrixRows() int {
	if l.Driver == DriverPeriph {
		return len(l.RowPins)
	}
	return len(l.Rows)
}

// MatrixColumns returns the number of column pins for the configured driver
func (l *Local) MatrixColumns() int {
	if l.Driver == DriverPeriph {
		return len(l.ColumnPins)
	}
	return len(l.Columns)
}

// Matrix returns the local matrix geometry: one image pixel per LED
func (l *Local) Matrix() core.GridMatrix {
	return core.GridMatrix{Rows: l.MatrixRows(), Columns: l.MatrixColumns()}
}

// TickPeriod returns the display tick for the local matrix
func (l *Local) TickPeriod() time.Duration {
	if l.Tick > 0 {
		return l.Tick
	}
	return core.TickPeriod(l.MatrixRows(), l.RefreshHz)
}
