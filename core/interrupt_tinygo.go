//go:build tinygo

package core

import "runtime/interrupt"

// critical runs fn with interrupts masked so the display interrupt cannot
// write the trace ring underneath it.
func critical(fn func()) {
	state := interrupt.Disable()
	fn()
	interrupt.Restore(state)
}
