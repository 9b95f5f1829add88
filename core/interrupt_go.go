//go:build !tinygo

package core

// critical runs fn directly. Hosted builds have no display interrupt; the
// runner goroutine is the only writer of the trace ring.
func critical(fn func()) {
	fn()
}
