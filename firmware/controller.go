package firmware

import (
	"errors"
	"io"
	"strconv"
	"sync/atomic"
	"time"

	"greymatrix/core"
	"greymatrix/greyscale"
	"greymatrix/protocol"
)

var ErrNoDisplay = errors.New("controller needs a display")

// Config describes the board a controller runs on
type Config struct {
	MCU  string        // Reported as the MCU constant
	Tick time.Duration // Display timer tick, reported as TICK_NS
}

// Controller connects the serial link to a display. Images arrive row by row
// into a staging image and are compiled and published by show_frame.
//
// Receive and Flush run in the foreground main loop, never from the display
// interrupt.
type Controller struct {
	registry  *CommandRegistry
	dict      *Dictionary
	transport *protocol.Transport
	output    *protocol.ScratchOutput

	display *core.Display
	staging *greyscale.Image
	frame   *core.Frame
	rowBuf  []uint8

	idIdentifyResponse uint16
	idConfig           uint16
	idStats            uint16

	commandErrors atomic.Uint32
	resetPending  atomic.Bool
	resetHandler  func()
}

// New builds a controller for display and registers its command set.
// Everything the controller needs is allocated here.
func New(display *core.Display, cfg Config) (*Controller, error) {
	if display == nil {
		return nil, ErrNoDisplay
	}
	m := display.Matrix()
	frame, err := core.NewFrame(m)
	if err != nil {
		return nil, err
	}

	c := &Controller{
		registry: NewCommandRegistry(),
		output:   protocol.NewScratchOutput(),
		display:  display,
		staging:  greyscale.New(m.ImageColumns(), m.ImageRows()),
		frame:    frame,
		rowBuf:   make([]uint8, m.ImageColumns()),
	}
	c.dict = NewDictionary(c.registry)
	c.transport = protocol.NewTransport(c.output, c.registry.Dispatch)
	c.transport.SetErrorHandler(c.commandFailed)
	c.staging.OnDisplay(c.publish)

	c.registerCommands()

	c.dict.AddConstant("MCU", cfg.MCU)
	c.dict.AddConstant("MATRIX_ROWS", m.MatrixRows())
	c.dict.AddConstant("MATRIX_COLS", m.MatrixColumns())
	c.dict.AddConstant("IMAGE_ROWS", m.ImageRows())
	c.dict.AddConstant("IMAGE_COLS", m.ImageColumns())
	c.dict.AddConstant("BRIGHTNESSES", core.Brightnesses)
	c.dict.AddConstant("CYCLE_TICKS", core.CycleTicks)
	c.dict.AddConstant("TICK_NS", int64(cfg.Tick))
	c.dict.Build()

	return c, nil
}

// registerCommands installs the command set. The first two messages keep
// fixed ids so a host can bootstrap before it has the dictionary.
func (c *Controller) registerCommands() {
	r := c.registry
	c.idIdentifyResponse = r.RegisterResponse("identify_response", "offset=%u data=%*s") // ID 0
	r.Register("identify", "offset=%u count=%c", c.handleIdentify)                       // ID 1

	r.Register("get_config", "", c.handleGetConfig)
	r.Register("set_row", "y=%c data=%*s", c.handleSetRow)
	r.Register("set_pixel", "x=%c y=%c level=%c", c.handleSetPixel)
	r.Register("show_frame", "", c.handleShowFrame)
	r.Register("clear", "", c.handleClear)
	r.Register("get_stats", "", c.handleGetStats)
	r.Register("dump_trace", "", c.handleDumpTrace)
	r.Register("reset", "", c.handleReset)

	c.idConfig = r.RegisterResponse("config", "rows=%c cols=%c image_rows=%c image_cols=%c cycle_ticks=%hu")
	c.idStats = r.RegisterResponse("stats", "primary=%u secondary=%u frames=%u errors=%u")
}

// Registry returns the command registry
func (c *Controller) Registry() *CommandRegistry {
	return c.registry
}

// Dictionary returns the data dictionary
func (c *Controller) Dictionary() *Dictionary {
	return c.dict
}

// Staging returns the image the next show_frame will publish
func (c *Controller) Staging() *greyscale.Image {
	return c.staging
}

// Receive processes received bytes, running every complete command
func (c *Controller) Receive(input protocol.InputBuffer) {
	c.transport.Receive(input)
}

// Pending returns the acks and responses waiting to be written
func (c *Controller) Pending() []byte {
	return c.output.Result()
}

// Flush writes pending output to w
func (c *Controller) Flush(w io.Writer) error {
	data := c.output.Result()
	if len(data) == 0 {
		return nil
	}
	_, err := w.Write(data)
	c.output.Reset()
	return err
}

// Reset drops link state after the host reconnects
func (c *Controller) Reset() {
	c.transport.Reset()
	c.output.Reset()
}

// Show compiles r and publishes it on the display
func (c *Controller) Show(r core.Render) {
	c.frame.Set(r)
	c.display.SetFrame(c.frame)
}

func (c *Controller) publish(r core.Render) error {
	c.Show(r)
	return nil
}

func (c *Controller) commandFailed(cmdID uint16, err error) {
	c.commandErrors.Add(1)
	core.DebugPrintln("[CMD] command " + strconv.Itoa(int(cmdID)) + " failed: " + err.Error())
}

func (c *Controller) send(id uint16, args func(output protocol.OutputBuffer)) {
	c.transport.SendCommand(id, args)
}

// handleIdentify returns one chunk of the data dictionary
func (c *Controller) handleIdentify(data *[]byte) error {
	offset, err := protocol.DecodeVLQUint(data)
	if err != nil {
		return err
	}
	count, err := protocol.DecodeVLQRange(data, 256)
	if err != nil {
		return err
	}

	chunk := c.dict.GetChunk(offset, uint8(count))
	c.send(c.idIdentifyResponse, func(output protocol.OutputBuffer) {
		protocol.EncodeVLQUint(output, offset)
		protocol.EncodeVLQBytes(output, chunk)
	})
	return nil
}

// handleGetConfig reports the display geometry
func (c *Controller) handleGetConfig(data *[]byte) error {
	m := c.display.Matrix()
	c.send(c.idConfig, func(output protocol.OutputBuffer) {
		protocol.EncodeVLQUint(output, uint32(m.MatrixRows()))
		protocol.EncodeVLQUint(output, uint32(m.MatrixColumns()))
		protocol.EncodeVLQUint(output, uint32(m.ImageRows()))
		protocol.EncodeVLQUint(output, uint32(m.ImageColumns()))
		protocol.EncodeVLQUint(output, uint32(core.CycleTicks))
	})
	return nil
}

// handleSetRow loads one nibble-packed image row into the staging image
func (c *Controller) handleSetRow(data *[]byte) error {
	y, err := protocol.DecodeVLQRange(data, uint32(c.staging.Height()))
	if err != nil {
		return err
	}
	packed, err := protocol.DecodeVLQBytes(data)
	if err != nil {
		return err
	}
	protocol.UnpackLevels(c.rowBuf, packed)
	return c.staging.SetRow(int(y), c.rowBuf)
}

// handleSetPixel sets one staging pixel
func (c *Controller) handleSetPixel(data *[]byte) error {
	x, err := protocol.DecodeVLQRange(data, uint32(c.staging.Width()))
	if err != nil {
		return err
	}
	y, err := protocol.DecodeVLQRange(data, uint32(c.staging.Height()))
	if err != nil {
		return err
	}
	level, err := protocol.DecodeVLQRange(data, 256)
	if err != nil {
		return err
	}
	c.staging.SetBrightness(int(x), int(y), uint8(level))
	return nil
}

// handleShowFrame publishes the staging image
func (c *Controller) handleShowFrame(data *[]byte) error {
	return c.staging.Display()
}

// handleClear darkens the staging image and the display
func (c *Controller) handleClear(data *[]byte) error {
	c.staging.Clear()
	c.frame.Clear()
	c.display.SetFrame(c.frame)
	return nil
}

// handleGetStats reports the display event counters
func (c *Controller) handleGetStats(data *[]byte) error {
	s := c.display.Stats()
	errs := c.commandErrors.Load()
	c.send(c.idStats, func(output protocol.OutputBuffer) {
		protocol.EncodeVLQUint(output, s.Primary)
		protocol.EncodeVLQUint(output, s.Secondary)
		protocol.EncodeVLQUint(output, s.Frames)
		protocol.EncodeVLQUint(output, errs)
	})
	return nil
}

// handleDumpTrace writes the scheduler trace through the debug writer
func (c *Controller) handleDumpTrace(data *[]byte) error {
	core.DumpTrace()
	return nil
}

// handleReset requests a reset once the ack has gone out
func (c *Controller) handleReset(data *[]byte) error {
	c.resetPending.Store(true)
	return nil
}

// SetResetHandler sets the platform reset function
func (c *Controller) SetResetHandler(handler func()) {
	c.resetHandler = handler
}

// CheckPendingReset runs the reset handler if the host asked for a reset.
// Call it from the main loop after Flush.
func (c *Controller) CheckPendingReset() {
	if c.resetPending.Load() && c.resetHandler != nil {
		c.resetHandler()
	}
}
