package link

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"greymatrix/core"
	"greymatrix/firmware"
	"greymatrix/protocol"
)

type idleTimer struct{}

func (idleTimer) InitialiseCycle(ticks uint16)  {}
func (idleTimer) EnableSecondary()              {}
func (idleTimer) DisableSecondary()             {}
func (idleTimer) ProgramSecondary(ticks uint16) {}
func (idleTimer) CheckPrimary() bool            { return false }
func (idleTimer) CheckSecondary() bool          { return false }

type nullControl struct{}

func (nullControl) DisplayRowColumns(row int, cols uint16) {}

// serveController runs a firmware controller on the far end of a pipe, the
// way a target's main loop does.
func serveController(t *testing.T, conn net.Conn, c *firmware.Controller) {
	t.Helper()
	go func() {
		in := protocol.NewFifoBuffer(protocol.MessageMax)
		buf := make([]byte, 64)
		for {
			n, err := conn.Read(buf)
			if err != nil {
				return
			}
			in.Write(buf[:n])
			c.Receive(in)
			if err := c.Flush(conn); err != nil {
				return
			}
		}
	}()
}

func newTestLink(t *testing.T, m core.Matrix) (*Link, *core.Display) {
	t.Helper()
	d, err := core.NewDisplay(m, idleTimer{}, nullControl{})
	require.NoError(t, err)
	c, err := firmware.New(d, firmware.Config{MCU: "pipe", Tick: core.MicrobitTick})
	require.NoError(t, err)

	host, mcu := net.Pipe()
	serveController(t, mcu, c)

	l := New(host, zerolog.Nop())
	t.Cleanup(func() {
		l.Close()
		mcu.Close()
	})
	return l, d
}

func testContext(t *testing.T) context.Context {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)
	return ctx
}

func TestConnectReadsDictionary(t *testing.T) {
	l, _ := newTestLink(t, core.GridMatrix{Rows: 3, Columns: 9})
	ctx := testContext(t)

	assert.ErrorIs(t, l.Clear(ctx), ErrNoDictionary)
	require.NoError(t, l.Connect(ctx))

	dict := l.Dictionary()
	require.NotNil(t, dict)
	assert.Equal(t, protocol.Version, dict.Version)

	mcu, ok := dict.Constant("MCU")
	assert.True(t, ok)
	assert.Equal(t, "pipe", mcu)

	cols, err := dict.ConstantInt("IMAGE_COLS")
	require.NoError(t, err)
	assert.Equal(t, 9, cols)

	id, err := dict.CommandID("identify")
	require.NoError(t, err)
	assert.Equal(t, uint16(1), id)

	format, ok := dict.Format("set_row")
	assert.True(t, ok)
	assert.Equal(t, "y=%c data=%*s", format)

	_, err = dict.CommandID("no_such_command")
	assert.Error(t, err)

	msgs := dict.Messages()
	require.NotEmpty(t, msgs)
	assert.Equal(t, "identify_response offset=%u data=%*s", msgs[0].Signature)
	assert.True(t, msgs[0].Response)
	assert.NotEmpty(t, l.RawDictionary())
}

func TestConfigAndStats(t *testing.T) {
	l, _ := newTestLink(t, core.GridMatrix{Rows: 3, Columns: 9})
	ctx := testContext(t)
	require.NoError(t, l.Connect(ctx))

	geo, err := l.Config(ctx)
	require.NoError(t, err)
	assert.Equal(t, Geometry{Rows: 3, Columns: 9, ImageRows: 3, ImageColumns: 9, CycleTicks: core.CycleTicks}, geo)

	stats, err := l.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, Stats{}, stats)
}

func TestSendImage(t *testing.T) {
	l, d := newTestLink(t, core.GridMatrix{Rows: 2, Columns: 5})
	ctx := testContext(t)
	require.NoError(t, l.Connect(ctx))

	rows := [][]uint8{
		{9, 0, 4, 0, 1},
		{0, 7, 7, 0, 9},
	}
	require.NoError(t, l.SendImage(ctx, rows))

	f := d.Frame()
	assert.Equal(t, uint16(0b00001), f.Row(0).Levels[9])
	assert.Equal(t, uint16(0b00100), f.Row(0).Levels[4])
	assert.Equal(t, uint16(0b10000), f.Row(0).Levels[1])
	assert.Equal(t, uint16(0b00110), f.Row(1).Levels[7])

	stats, err := l.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint32(1), stats.Frames)

	require.NoError(t, l.SetPixel(ctx, 3, 0, 2))
	require.NoError(t, l.ShowFrame(ctx))
	assert.Equal(t, uint16(0b01000), d.Frame().Row(0).Levels[2])

	require.NoError(t, l.Clear(ctx))
	assert.Equal(t, uint16(0), d.Frame().Row(1).Lit)
}

func TestSendImageChecksSize(t *testing.T) {
	l, _ := newTestLink(t, core.GridMatrix{Rows: 2, Columns: 2})
	ctx := testContext(t)
	require.NoError(t, l.Connect(ctx))

	assert.Error(t, l.SendImage(ctx, [][]uint8{{1, 2}}))
	assert.Error(t, l.SendImage(ctx, [][]uint8{{1, 2}, {3}}))
}

func TestResetRestartsSequence(t *testing.T) {
	l, _ := newTestLink(t, core.GridMatrix{Rows: 1, Columns: 1})
	ctx := testContext(t)
	require.NoError(t, l.Connect(ctx))

	require.NoError(t, l.Reset(ctx))
	assert.Nil(t, l.Dictionary())

	// The controller follows the host back to the first sequence
	require.NoError(t, l.Connect(ctx))
	_, err := l.Config(ctx)
	assert.NoError(t, err)
}
