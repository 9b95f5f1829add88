package core

import "time"

// Tick lengths used by the bundled targets
const (
	MicrobitTick = 16 * time.Microsecond // nRF51 TIMER1 at 62.5kHz
	DefaultTick  = 8 * time.Microsecond
)

// TickPeriod returns the tick length that refreshes a matrix with the given
// number of rows refreshHz times per second. The refresh rate is tuned only
// through the tick length; the row period is always CycleTicks ticks.
func TickPeriod(rows int, refreshHz uint32) time.Duration {
	if rows <= 0 || refreshHz == 0 {
		return 0
	}
	perSecond := uint64(refreshHz) * uint64(rows) * uint64(CycleTicks)
	return time.Duration(uint64(time.Second) / perSecond)
}

// RefreshRate returns the whole-frame refresh rate in Hz for the given tick
// length and row count.
func RefreshRate(rows int, tick time.Duration) uint32 {
	if rows <= 0 || tick <= 0 {
		return 0
	}
	frame := uint64(tick) * uint64(rows) * uint64(CycleTicks)
	return uint32(uint64(time.Second) / frame)
}

// RowPeriod returns the length of one primary cycle for the given tick.
func RowPeriod(tick time.Duration) time.Duration {
	return tick * time.Duration(CycleTicks)
}
