package firmware

import (
	"bytes"
	"testing"
	"time"

	"greymatrix/core"
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

// link drives a controller the way the host does
type link struct {
	t   *testing.T
	c   *Controller
	seq uint8
}

func newLink(t *testing.T, m core.Matrix) *link {
	t.Helper()
	d, err := core.NewDisplay(m, idleTimer{}, nullControl{})
	if err != nil {
		t.Fatalf("NewDisplay failed: %v", err)
	}
	c, err := New(d, Config{MCU: "test", Tick: 16 * time.Microsecond})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	return &link{t: t, c: c, seq: protocol.MessageDest}
}

func (l *link) id(name string) uint16 {
	cmd, ok := l.c.Registry().GetCommandByName(name)
	if !ok {
		l.t.Fatalf("%s not registered", name)
	}
	return cmd.ID
}

// call sends one command and returns the payloads of any responses
func (l *link) call(name string, args func(output protocol.OutputBuffer)) [][]byte {
	l.t.Helper()
	scratch := protocol.NewScratchOutput()
	protocol.EncodeVLQUint(scratch, uint32(l.id(name)))
	if args != nil {
		args(scratch)
	}
	blk, err := protocol.AppendBlock(nil, l.seq, scratch.Result())
	if err != nil {
		l.t.Fatalf("AppendBlock failed: %v", err)
	}
	l.seq = protocol.NextSequence(l.seq)

	l.c.Receive(protocol.NewSliceInputBuffer(blk))

	var out bytes.Buffer
	if err := l.c.Flush(&out); err != nil {
		l.t.Fatalf("Flush failed: %v", err)
	}

	var responses [][]byte
	data := out.Bytes()
	acked := false
	for len(data) > 0 {
		b, n, err := protocol.ParseBlock(data)
		if err != nil {
			l.t.Fatalf("controller wrote an invalid block: %v", err)
		}
		if b.IsAck() {
			acked = b.Sequence == l.seq
		} else {
			responses = append(responses, b.Payload)
		}
		data = data[n:]
	}
	if !acked {
		l.t.Fatalf("%s was not acked with 0x%02x", name, l.seq)
	}
	return responses
}

func decodeAll(t *testing.T, payload []byte) []uint32 {
	t.Helper()
	var vals []uint32
	for len(payload) > 0 {
		v, err := protocol.DecodeVLQUint(&payload)
		if err != nil {
			t.Fatalf("bad response payload: %v", err)
		}
		vals = append(vals, v)
	}
	return vals
}

func TestControllerBootstrapIDs(t *testing.T) {
	l := newLink(t, core.GridMatrix{Rows: 5, Columns: 5})
	if l.id("identify_response") != 0 || l.id("identify") != 1 {
		t.Errorf("identify_response/identify have ids %d/%d, want 0/1", l.id("identify_response"), l.id("identify"))
	}
}

func TestControllerIdentify(t *testing.T) {
	l := newLink(t, core.GridMatrix{Rows: 5, Columns: 5})

	var dict []byte
	for {
		offset := uint32(len(dict))
		resp := l.call("identify", func(output protocol.OutputBuffer) {
			protocol.EncodeVLQUint(output, offset)
			protocol.EncodeVLQUint(output, 40)
		})
		if len(resp) != 1 {
			t.Fatalf("got %d responses, want 1", len(resp))
		}
		payload := resp[0]
		id, _ := protocol.DecodeVLQUint(&payload)
		gotOffset, _ := protocol.DecodeVLQUint(&payload)
		chunk, err := protocol.DecodeVLQBytes(&payload)
		if err != nil || id != 0 || gotOffset != offset {
			t.Fatalf("bad identify_response: id=%d offset=%d err=%v", id, gotOffset, err)
		}
		if len(chunk) == 0 {
			break
		}
		dict = append(dict, chunk...)
	}

	if !bytes.Equal(dict, l.c.Dictionary().Build()) {
		t.Errorf("reassembled dictionary differs:\n%s", dict)
	}
	if !bytes.Contains(dict, []byte(`"IMAGE_COLS":"5"`)) {
		t.Errorf("dictionary lacks IMAGE_COLS:\n%s", dict)
	}
}

func TestControllerGetConfig(t *testing.T) {
	l := newLink(t, core.GridMatrix{Rows: 3, Columns: 9})

	resp := l.call("get_config", nil)
	if len(resp) != 1 {
		t.Fatalf("got %d responses, want 1", len(resp))
	}
	vals := decodeAll(t, resp[0])
	want := []uint32{uint32(l.id("config")), 3, 9, 3, 9, uint32(core.CycleTicks)}
	if len(vals) != len(want) {
		t.Fatalf("config = %v, want %v", vals, want)
	}
	for i := range want {
		if vals[i] != want[i] {
			t.Errorf("config[%d] = %d, want %d", i, vals[i], want[i])
		}
	}
}

func TestControllerShowFrame(t *testing.T) {
	m := core.GridMatrix{Rows: 5, Columns: 5}
	l := newLink(t, m)

	rows := [][]uint8{
		{9, 0, 9, 0, 9},
		{0, 3, 0, 0, 0},
		{2, 0, 0, 7, 0},
		{0, 0, 0, 0, 0},
		{1, 1, 1, 1, 1},
	}
	for y, row := range rows {
		packed := protocol.PackLevels(nil, row)
		l.call("set_row", func(output protocol.OutputBuffer) {
			protocol.EncodeVLQUint(output, uint32(y))
			protocol.EncodeVLQBytes(output, packed)
		})
	}

	// Nothing is shown until show_frame
	if l.c.display.Frame().Row(0).Lit != 0 {
		t.Fatal("set_row changed the display")
	}
	l.call("show_frame", nil)

	f := l.c.display.Frame()
	if f.Row(0).Levels[9] != 0b10101 {
		t.Errorf("row 0 Levels[9] = %#b", f.Row(0).Levels[9])
	}
	if f.Row(2).Levels[2] != 0b00001 || f.Row(2).Levels[7] != 0b01000 {
		t.Errorf("row 2 = %+v", f.Row(2))
	}
	if f.Row(4).Levels[1] != 0b11111 {
		t.Errorf("row 4 Levels[1] = %#b", f.Row(4).Levels[1])
	}

	l.call("clear", nil)
	for r := 0; r < m.Rows; r++ {
		if l.c.display.Frame().Row(r).Lit != 0 {
			t.Errorf("row %d still lit after clear", r)
		}
	}
	if l.c.Staging().BrightnessAt(0, 0) != 0 {
		t.Error("clear left the staging image")
	}
}

func TestControllerSetPixel(t *testing.T) {
	l := newLink(t, core.GridMatrix{Rows: 2, Columns: 2})

	l.call("set_pixel", func(output protocol.OutputBuffer) {
		protocol.EncodeVLQUint(output, 1)
		protocol.EncodeVLQUint(output, 0)
		protocol.EncodeVLQUint(output, 6)
	})
	l.call("show_frame", nil)

	if got := l.c.display.Frame().Row(0).Levels[6]; got != 0b10 {
		t.Errorf("row 0 Levels[6] = %#b, want 0b10", got)
	}
}

func TestControllerRejectsBadRow(t *testing.T) {
	l := newLink(t, core.GridMatrix{Rows: 2, Columns: 2})

	l.call("set_row", func(output protocol.OutputBuffer) {
		protocol.EncodeVLQUint(output, 7)
		protocol.EncodeVLQBytes(output, []byte{0x99})
	})

	resp := l.call("get_stats", nil)
	if len(resp) != 1 {
		t.Fatalf("got %d responses, want 1", len(resp))
	}
	vals := decodeAll(t, resp[0])
	if len(vals) != 5 || vals[0] != uint32(l.id("stats")) {
		t.Fatalf("stats = %v", vals)
	}
	if vals[4] != 1 {
		t.Errorf("errors = %d, want 1", vals[4])
	}
}

func TestControllerReset(t *testing.T) {
	l := newLink(t, core.GridMatrix{Rows: 1, Columns: 1})

	var resets int
	l.c.SetResetHandler(func() { resets++ })
	l.c.CheckPendingReset()
	if resets != 0 {
		t.Fatal("reset ran without a request")
	}

	l.call("reset", nil)
	l.c.CheckPendingReset()
	if resets != 1 {
		t.Errorf("reset handler ran %d times, want 1", resets)
	}
}

func TestNewRequiresDisplay(t *testing.T) {
	if _, err := New(nil, Config{}); err != ErrNoDisplay {
		t.Errorf("New(nil) error = %v, want ErrNoDisplay", err)
	}
}
