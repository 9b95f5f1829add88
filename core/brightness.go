package core

// Greyscale levels
const (
	Brightnesses  = 10                      // Number of brightness levels (0..9)
	MaxBrightness = uint8(Brightnesses - 1) // Brightest level; lit for the whole row period
)

// CycleTicks is the length of one row period (the primary cycle) in timer ticks.
// Refresh rate is tuned by the tick length only, never by this value.
const CycleTicks uint16 = 375

// greyscaleThresholds holds, for each level, the tick at which LEDs of that
// level are switched off. Each slice is roughly 1.9x the previous one.
//
//	level  off-tick  slice
//	  1        2       2
//	  2        4       2
//	  3        8       4
//	  4       16       8
//	  5       35      19
//	  6       69      34
//	  7      137      68
//	  8      267     130
//	  9      375     (whole period)
var greyscaleThresholds = [Brightnesses]uint16{
	0, // level 0 is never scheduled
	2,
	4,
	8,
	16,
	35,
	69,
	137,
	267,
	CycleTicks,
}

// Threshold returns the tick within the row period at which LEDs of the
// given level are switched off. Level 0 returns 0; levels above
// MaxBrightness are treated as MaxBrightness.
func Threshold(level uint8) uint16 {
	if level > MaxBrightness {
		level = MaxBrightness
	}
	return greyscaleThresholds[level]
}

// IsLitAt reports whether an LED of the given level is lit at tick t of its
// row period.
func IsLitAt(level uint8, t uint16) bool {
	if level == 0 {
		return false
	}
	return t < Threshold(level)
}

// Duration returns how many ticks of each row period an LED of the given
// level spends lit. Every lit LED switches on at tick 0, so this equals the
// level's threshold.
func Duration(level uint8) uint16 {
	return Threshold(level)
}
