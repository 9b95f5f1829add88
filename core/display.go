package core

import "sync/atomic"

// Event reports which timer conditions a HandleEvent call consumed.
type Event uint8

const (
	EventPrimary   Event = 1 << iota // A new row period started
	EventSecondary                   // A greyscale level was switched off
)

// Stats holds the display's event counters.
type Stats struct {
	Primary   uint32 // Primary-cycle events handled
	Secondary uint32 // Secondary-alarm events handled
	Frames    uint32 // Frames published with SetFrame
}

// Display drives a multiplexed LED matrix, one row at a time, with greyscale
// produced by switching levels off inside each row period.
//
// HandleEvent runs in the timer interrupt. Everything else runs in the
// foreground and must not be called while HandleEvent executes: on a
// single-core MCU this means never from inside the handler itself.
type Display struct {
	matrix  Matrix
	timer   DisplayTimer
	control DisplayControl

	// Frame handoff. SetFrame writes into whichever buffer is not
	// published, then publishes it with one atomic store.
	bufs      [2]*Frame
	published atomic.Pointer[Frame]

	// Scheduler state, owned by HandleEvent
	row   int
	plan  RowPlan
	lit   uint16
	level uint8 // Level the secondary alarm is waiting for (0 when disarmed)
	armed bool

	primaryCount   atomic.Uint32
	secondaryCount atomic.Uint32
	frameCount     atomic.Uint32
}

// NewDisplay creates a display showing an empty frame and starts the
// timer's primary cycle. Every allocation the display needs happens here.
func NewDisplay(m Matrix, timer DisplayTimer, control DisplayControl) (*Display, error) {
	d := &Display{
		matrix:  m,
		timer:   timer,
		control: control,
		// The first primary event advances to row 0
		row: m.MatrixRows() - 1,
	}
	for i := range d.bufs {
		f, err := NewFrame(m)
		if err != nil {
			return nil, err
		}
		d.bufs[i] = f
	}
	d.published.Store(d.bufs[0])

	timer.InitialiseCycle(CycleTicks)
	return d, nil
}

// Matrix returns the geometry the display was built for.
func (d *Display) Matrix() Matrix {
	return d.matrix
}

// SetFrame makes f the image shown from the next row period on.
//
// The frame is copied, so the caller may reuse f straight away. f must have
// been built for the same matrix as the display.
func (d *Display) SetFrame(f *Frame) {
	next := d.bufs[0]
	if d.published.Load() == next {
		next = d.bufs[1]
	}
	next.CopyFrom(f)
	d.published.Store(next)
	d.frameCount.Add(1)
}

// Frame returns the currently published frame. It must be treated as
// read-only.
func (d *Display) Frame() *Frame {
	return d.published.Load()
}

// HandleEvent services the display timer. Call it from the timer interrupt.
//
// Both timer flags are read on every call. If a row period ended, the finished
// row is switched off and the next row is lit; a secondary alarm reported in
// the same call belonged to the finished row and is discarded. Otherwise a
// secondary alarm switches off the level it was armed for and arms the next
// one. A call with neither flag set does nothing and returns 0.
func (d *Display) HandleEvent() Event {
	primary := d.timer.CheckPrimary()
	secondary := d.timer.CheckSecondary()

	if primary {
		d.startRow()
		d.primaryCount.Add(1)
		return EventPrimary
	}
	if secondary {
		if d.armed {
			d.levelOff()
		}
		d.secondaryCount.Add(1)
		return EventSecondary
	}
	return 0
}

// startRow moves to the next matrix row and lights every used column in it.
func (d *Display) startRow() {
	d.control.DisplayRowColumns(d.row, 0)

	d.row++
	if d.row >= len(d.bufs[0].rows) {
		d.row = 0
	}

	d.plan = d.published.Load().rows[d.row]
	d.lit = d.plan.Lit
	d.control.DisplayRowColumns(d.row, d.lit)
	RecordTrace(TracePrimary, uint8(d.row), d.lit, 0)

	d.arm(d.plan.LowestLevel())
}

// levelOff switches off the columns whose on-time has run out and arms the
// alarm for the next level present in the row.
func (d *Display) levelOff() {
	tick := Threshold(d.level)
	last := d.level
	for l := d.level; l < MaxBrightness && Threshold(l) <= tick; l++ {
		d.lit &^= d.plan.Levels[l]
		last = l
	}
	d.control.DisplayRowColumns(d.row, d.lit)
	RecordTrace(TraceSecondary, uint8(d.row), d.lit, tick)

	d.arm(d.plan.NextLevel(last))
}

// arm programs the secondary alarm for the given level, or disables it when
// no mid-period switch-off is needed.
func (d *Display) arm(level uint8) {
	if level == 0 || level == MaxBrightness {
		d.timer.DisableSecondary()
		d.level = 0
		d.armed = false
		return
	}
	d.timer.ProgramSecondary(Threshold(level))
	d.timer.EnableSecondary()
	d.level = level
	d.armed = true
}

// Row returns the matrix row currently lit.
func (d *Display) Row() int {
	return d.row
}

// SecondaryArmed reports whether a greyscale switch-off is pending in the
// current row period.
func (d *Display) SecondaryArmed() bool {
	return d.armed
}

// Lit returns the columns currently lit in the current row.
func (d *Display) Lit() uint16 {
	return d.lit
}

// Stats returns a snapshot of the event counters.
func (d *Display) Stats() Stats {
	return Stats{
		Primary:   d.primaryCount.Load(),
		Secondary: d.secondaryCount.Load(),
		Frames:    d.frameCount.Load(),
	}
}

// Blank switches the current row off. The next primary event lights the
// following row as usual, so Blank is only useful once events have stopped.
func (d *Display) Blank() {
	d.timer.DisableSecondary()
	d.armed = false
	d.level = 0
	d.lit = 0
	d.control.DisplayRowColumns(d.row, 0)
}
