package core

import "strconv"

// DebugWriter is a function type for writing debug messages
type DebugWriter func(string)

// TraceEvent captures one scheduler step for post-mortem analysis
type TraceEvent struct {
	Kind uint8  // Event kind code
	Row  uint8  // Matrix row
	Lit  uint16 // Columns left lit after the step
	Tick uint16 // Tick within the row period (0 at row start)
	Seq  uint32 // Running event number
}

// Trace event kinds
const (
	TracePrimary   = 1 // Row lit at the start of its period
	TraceSecondary = 2 // Level switched off
)

const (
	TraceRingSize = 32 // Keep last 32 events for post-mortem
)

var (
	// debugPrintln is the global debug print function (can be set by platform code)
	debugPrintln DebugWriter = func(s string) {} // No-op by default

	// debugEnabled controls whether debug output is active
	debugEnabled bool = false

	// Trace ring buffer, written from the timer interrupt
	traceRing     [TraceRingSize]TraceEvent
	traceRingHead uint8
	traceSeq      uint32
	traceEnabled  bool = true

	// Async debug output channel
	debugChan chan string
)

// SetDebugWriter sets the platform-specific debug output function
// This allows platforms to redirect debug output to UART, USB, etc.
func SetDebugWriter(writer DebugWriter) {
	debugPrintln = writer
}

// SetDebugEnabled enables or disables debug output
func SetDebugEnabled(enabled bool) {
	debugEnabled = enabled
}

// IsDebugEnabled returns whether debug output is enabled
func IsDebugEnabled() bool {
	return debugEnabled
}

// SetTraceEnabled turns scheduler tracing on or off
func SetTraceEnabled(enabled bool) {
	traceEnabled = enabled
}

// InitAsyncDebug starts the async debug output goroutine
// Call this from main() after SetDebugWriter
func InitAsyncDebug() {
	debugChan = make(chan string, 16)
	go debugOutputWorker()
}

func debugOutputWorker() {
	for msg := range debugChan {
		if debugPrintln != nil {
			debugPrintln(msg)
		}
	}
}

// DebugPrintln writes a debug message using the platform-specific writer
// Blocks if debug is enabled (use DebugAsync for non-blocking)
func DebugPrintln(msg string) {
	if debugEnabled && debugPrintln != nil {
		debugPrintln(msg)
	}
}

// DebugAsync queues a debug message for async output (non-blocking)
// Returns immediately even if channel is full (drops message)
func DebugAsync(msg string) {
	if debugChan != nil {
		select {
		case debugChan <- msg:
		default:
		}
	}
}

// RecordTrace captures a scheduler step in the ring buffer.
// Safe to call from the timer interrupt: no allocation, no blocking.
func RecordTrace(kind, row uint8, lit, tick uint16) {
	if !traceEnabled {
		return
	}
	traceSeq++
	idx := traceRingHead
	traceRing[idx] = TraceEvent{
		Kind: kind,
		Row:  row,
		Lit:  lit,
		Tick: tick,
		Seq:  traceSeq,
	}
	traceRingHead = (idx + 1) % TraceRingSize
}

// SnapshotTrace copies the ring into dst, oldest event first, and returns the
// number of events copied. Interrupts are held off while copying.
func SnapshotTrace(dst *[TraceRingSize]TraceEvent) int {
	n := 0
	critical(func() {
		start := traceRingHead
		for i := uint8(0); i < TraceRingSize; i++ {
			evt := traceRing[(start+i)%TraceRingSize]
			if evt.Kind == 0 {
				continue
			}
			dst[n] = evt
			n++
		}
	})
	return n
}

// DumpTrace writes the trace ring through the debug writer
func DumpTrace() {
	if debugPrintln == nil {
		return
	}

	var events [TraceRingSize]TraceEvent
	n := SnapshotTrace(&events)

	debugPrintln("[TRACE] === Trace Dump ===")
	for _, evt := range events[:n] {
		var name string
		switch evt.Kind {
		case TracePrimary:
			name = "ROW_ON"
		case TraceSecondary:
			name = "LEVEL_OFF"
		default:
			name = "UNKNOWN"
		}

		debugPrintln("[TRACE] " + strconv.FormatUint(uint64(evt.Seq), 10) + " " + name +
			" row=" + strconv.Itoa(int(evt.Row)) +
			" lit=" + hex16(evt.Lit) +
			" tick=" + strconv.Itoa(int(evt.Tick)))
	}
	debugPrintln("[TRACE] === End Dump ===")
}

// ClearTrace clears the trace buffer
func ClearTrace() {
	critical(func() {
		traceRing = [TraceRingSize]TraceEvent{}
		traceRingHead = 0
		traceSeq = 0
	})
}

const hexDigits = "0123456789abcdef"

// hex16 formats a column mask as 0x followed by four hex digits
func hex16(v uint16) string {
	buf := [6]byte{'0', 'x'}
	for i := 5; i >= 2; i-- {
		buf[i] = hexDigits[v&0xf]
		v >>= 4
	}
	return string(buf[:])
}
