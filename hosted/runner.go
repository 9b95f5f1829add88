package hosted

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"greymatrix/core"
)

var ErrNoControl = errors.New("hosted: runner needs a display control")

// poolSize covers one frame in the mailbox, one being consumed by the
// scheduler and one being filled by Show.
const poolSize = 3

// Stats extends the display counters with the software timer's overruns.
type Stats struct {
	core.Stats
	Overruns uint32
}

// Option configures a Runner.
type Option func(*Runner)

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(r *Runner) { r.now = now }
}

// WithLogger sets the logger used for start and stop messages.
func WithLogger(log zerolog.Logger) Option {
	return func(r *Runner) { r.log = log }
}

// Runner drives a display from a scheduler goroutine.
//
// Frames reach the display through a one-slot mailbox: Show fills a pooled
// frame and swaps it in, replacing any frame the scheduler has not picked up
// yet. Only the scheduler calls Display.SetFrame, so a frame is never
// modified while the display reads it.
type Runner struct {
	display *core.Display
	timer   *SoftTimer

	showMu  sync.Mutex
	free    chan *core.Frame
	mailbox atomic.Pointer[core.Frame]

	now func() time.Time
	log zerolog.Logger
}

// NewRunner builds a display for m driven through control, with a software
// timer ticking every tick.
func NewRunner(m core.Matrix, tick time.Duration, control core.DisplayControl, opts ...Option) (*Runner, error) {
	if control == nil {
		return nil, ErrNoControl
	}
	r := &Runner{
		free: make(chan *core.Frame, poolSize),
		now:  time.Now,
		log:  zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(r)
	}

	for i := 0; i < poolSize; i++ {
		f, err := core.NewFrame(m)
		if err != nil {
			return nil, err
		}
		r.free <- f
	}

	r.timer = NewSoftTimer(tick, r.now)
	d, err := core.NewDisplay(m, r.timer, control)
	if err != nil {
		return nil, err
	}
	r.display = d
	return r, nil
}

// Display returns the display the runner drives.
func (r *Runner) Display() *core.Display {
	return r.display
}

// Timer returns the runner's software timer.
func (r *Runner) Timer() *SoftTimer {
	return r.timer
}

// Show queues f to be displayed from the next row period. f is copied and
// may be reused straight away. Show never waits for the scheduler; a frame
// queued earlier and not yet picked up is replaced.
func (r *Runner) Show(f *core.Frame) {
	r.showMu.Lock()
	defer r.showMu.Unlock()

	next := <-r.free
	next.CopyFrom(f)
	r.post(next)
}

// ShowImage compiles img and queues it like Show.
func (r *Runner) ShowImage(img core.Render) {
	r.showMu.Lock()
	defer r.showMu.Unlock()

	next := <-r.free
	next.Set(img)
	r.post(next)
}

func (r *Runner) post(f *core.Frame) {
	if old := r.mailbox.Swap(f); old != nil {
		r.free <- old
	}
}

// collect hands a queued frame to the display.
func (r *Runner) collect() {
	f := r.mailbox.Swap(nil)
	if f == nil {
		return
	}
	r.display.SetFrame(f)
	r.free <- f
}

// Step does one pass of the scheduler at time now: it picks up a queued
// frame, advances the timer and services at most one timer event.
func (r *Runner) Step(now time.Time) core.Event {
	r.collect()
	if !r.timer.Advance(now) {
		return 0
	}
	return r.display.HandleEvent()
}

// Run drives the display until ctx is done, then switches the matrix off.
// It returns ctx.Err().
func (r *Runner) Run(ctx context.Context) error {
	rowPeriod := core.RowPeriod(r.timer.Tick())
	r.log.Info().
		Dur("tick", r.timer.Tick()).
		Dur("row_period", rowPeriod).
		Uint32("refresh_hz", core.RefreshRate(r.display.Matrix().MatrixRows(), r.timer.Tick())).
		Msg("display scheduler started")

	wake := time.NewTimer(0)
	defer wake.Stop()

	for {
		select {
		case <-ctx.Done():
			r.display.Blank()
			s := r.Stats()
			r.log.Info().
				Uint32("primary", s.Primary).
				Uint32("secondary", s.Secondary).
				Uint32("frames", s.Frames).
				Uint32("overruns", s.Overruns).
				Msg("display scheduler stopped")
			return ctx.Err()
		case <-wake.C:
		}

		r.Step(r.now())
		wake.Reset(r.timer.NextDeadline().Sub(r.now()))
	}
}

// Stats returns the display counters and timer overruns.
func (r *Runner) Stats() Stats {
	return Stats{
		Stats:    r.display.Stats(),
		Overruns: r.timer.Overruns(),
	}
}
