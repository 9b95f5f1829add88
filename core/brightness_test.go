package core

import (
	"testing"
	"time"
)

func TestThresholdsIncrease(t *testing.T) {
	if Threshold(0) != 0 {
		t.Errorf("Threshold(0) = %d, want 0", Threshold(0))
	}
	if Threshold(MaxBrightness) != CycleTicks {
		t.Errorf("Threshold(%d) = %d, want %d", MaxBrightness, Threshold(MaxBrightness), CycleTicks)
	}

	for l := uint8(2); l <= MaxBrightness; l++ {
		prev, cur := Threshold(l-1), Threshold(l)
		if cur <= prev {
			t.Errorf("Threshold(%d) = %d not above Threshold(%d) = %d", l, cur, l-1, prev)
		}
		if cur > CycleTicks {
			t.Errorf("Threshold(%d) = %d beyond the row period", l, cur)
		}
	}
}

func TestThresholdClamps(t *testing.T) {
	for _, level := range []uint8{10, 15, 255} {
		if got := Threshold(level); got != CycleTicks {
			t.Errorf("Threshold(%d) = %d, want %d", level, got, CycleTicks)
		}
	}
}

func TestIsLitAt(t *testing.T) {
	tests := []struct {
		level uint8
		tick  uint16
		want  bool
	}{
		{0, 0, false},
		{0, 100, false},
		{1, 0, true},
		{1, 1, true},
		{1, 2, false},
		{3, 7, true},
		{3, 8, false},
		{8, 266, true},
		{8, 267, false},
		{9, 0, true},
		{9, 374, true},
	}

	for _, tt := range tests {
		if got := IsLitAt(tt.level, tt.tick); got != tt.want {
			t.Errorf("IsLitAt(%d, %d) = %v, want %v", tt.level, tt.tick, got, tt.want)
		}
	}
}

func TestDurationMatchesThreshold(t *testing.T) {
	for l := uint8(0); l <= MaxBrightness; l++ {
		if Duration(l) != Threshold(l) {
			t.Errorf("Duration(%d) = %d, Threshold = %d", l, Duration(l), Threshold(l))
		}
	}
}

func TestTickPeriod(t *testing.T) {
	tests := []struct {
		name string
		rows int
		hz   uint32
		want time.Duration
	}{
		{"microbit 55Hz", 3, 55, 16161 * time.Nanosecond},
		{"5 rows 100Hz", 5, 100, 5333 * time.Nanosecond},
		{"no rows", 0, 60, 0},
		{"zero rate", 5, 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := TickPeriod(tt.rows, tt.hz); got != tt.want {
				t.Errorf("TickPeriod(%d, %d) = %v, want %v", tt.rows, tt.hz, got, tt.want)
			}
		})
	}
}

func TestRefreshRate(t *testing.T) {
	if got := RefreshRate(3, MicrobitTick); got != 55 {
		t.Errorf("RefreshRate(3, %v) = %d, want 55", MicrobitTick, got)
	}
	if got := RowPeriod(MicrobitTick); got != 6*time.Millisecond {
		t.Errorf("RowPeriod(%v) = %v, want 6ms", MicrobitTick, got)
	}
}
