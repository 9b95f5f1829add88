// Package hosted runs a core.Display on machines without a usable timer
// interrupt, such as Linux single-board computers. A scheduler goroutine
// stands in for the interrupt and drives the display from a software timer.
package hosted

import (
	"sync/atomic"
	"time"
)

// SoftTimer implements core.DisplayTimer on a monotonic clock. Nothing fires
// on its own: the owner calls Advance with the current time and then lets the
// display read the latched flags.
//
// A SoftTimer belongs to one goroutine, except Overruns which may be read
// from anywhere.
type SoftTimer struct {
	tick time.Duration

	cycle uint16
	start time.Time

	secondaryEnabled bool
	secondaryAt      uint16
	secondaryFired   bool

	primary   bool
	secondary bool

	overruns atomic.Uint32
	now      func() time.Time
}

// NewSoftTimer creates a timer with the given tick length, reading time from
// now (time.Now when nil).
func NewSoftTimer(tick time.Duration, now func() time.Time) *SoftTimer {
	if now == nil {
		now = time.Now
	}
	return &SoftTimer{tick: tick, now: now}
}

// Tick returns the tick length.
func (t *SoftTimer) Tick() time.Duration {
	return t.tick
}

// InitialiseCycle starts a repeating primary cycle of ticks ticks from now.
func (t *SoftTimer) InitialiseCycle(ticks uint16) {
	t.cycle = ticks
	t.start = t.now()
	t.primary = false
	t.secondary = false
	t.secondaryFired = false
}

// EnableSecondary lets the secondary alarm fire.
func (t *SoftTimer) EnableSecondary() {
	t.secondaryEnabled = true
}

// DisableSecondary stops the secondary alarm and drops a pending flag.
func (t *SoftTimer) DisableSecondary() {
	t.secondaryEnabled = false
	t.secondary = false
}

// ProgramSecondary sets the alarm to ticks after the start of the current
// cycle. An alarm programmed for a tick already passed fires on the next
// Advance.
func (t *SoftTimer) ProgramSecondary(ticks uint16) {
	t.secondaryAt = ticks
	t.secondaryFired = false
}

// CheckPrimary reports and clears the primary flag.
func (t *SoftTimer) CheckPrimary() bool {
	p := t.primary
	t.primary = false
	return p
}

// CheckSecondary reports and clears the secondary flag.
func (t *SoftTimer) CheckSecondary() bool {
	s := t.secondary
	t.secondary = false
	return s
}

// Advance brings the timer up to now and latches whatever became due. It
// reports whether a flag is pending.
//
// At most one condition is latched per call. When the cycle has ended the
// primary flag wins and the next cycle starts; an alarm left over from the
// finished cycle never fires. Whole cycles that passed unseen are counted as
// overruns.
func (t *SoftTimer) Advance(now time.Time) bool {
	if t.cycle == 0 {
		return false
	}
	elapsed := t.elapsed(now)
	if elapsed >= uint64(t.cycle) {
		periods := elapsed / uint64(t.cycle)
		if periods > 1 {
			t.overruns.Add(uint32(periods - 1))
		}
		t.start = t.start.Add(time.Duration(periods*uint64(t.cycle)) * t.tick)
		t.primary = true
		t.secondaryFired = false
		return true
	}
	if t.secondaryEnabled && !t.secondaryFired && elapsed >= uint64(t.secondaryAt) {
		t.secondary = true
		t.secondaryFired = true
	}
	return t.primary || t.secondary
}

// NextDeadline returns the time at which the next flag becomes due.
func (t *SoftTimer) NextDeadline() time.Time {
	deadline := t.start.Add(time.Duration(t.cycle) * t.tick)
	if t.secondaryEnabled && !t.secondaryFired {
		alarm := t.start.Add(time.Duration(t.secondaryAt) * t.tick)
		if alarm.Before(deadline) {
			deadline = alarm
		}
	}
	return deadline
}

// Elapsed returns the ticks since the current cycle started.
func (t *SoftTimer) Elapsed(now time.Time) uint16 {
	e := t.elapsed(now)
	if e > uint64(t.cycle) {
		return t.cycle
	}
	return uint16(e)
}

// Overruns returns the number of whole cycles skipped because Advance was
// called too late.
func (t *SoftTimer) Overruns() uint32 {
	return t.overruns.Load()
}

func (t *SoftTimer) elapsed(now time.Time) uint64 {
	d := now.Sub(t.start)
	if d <= 0 || t.tick <= 0 {
		return 0
	}
	return uint64(d / t.tick)
}
