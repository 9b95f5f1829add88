package core

// DisplayTimer is the abstract timer interface the display uses.
// Platform-specific implementations handle actual hardware control.
//
// The timer counts ticks of a fixed length. It restarts after the number of
// ticks passed to InitialiseCycle (the primary cycle) and signals an
// interrupt. It also provides a secondary alarm that can be programmed to
// signal an interrupt at a point inside the primary cycle.
//
// A no-op secondary alarm is allowed: the display then treats every lit
// pixel as fully on for the whole row period.
type DisplayTimer interface {
	// InitialiseCycle sets the primary cycle length in ticks.
	// Leaves the secondary alarm disabled.
	InitialiseCycle(ticks uint16)

	// EnableSecondary starts secondary alarm interrupts
	EnableSecondary()

	// DisableSecondary stops secondary alarm interrupts until re-enabled
	DisableSecondary()

	// ProgramSecondary sets the secondary alarm tick, measured from the start
	// of the current primary cycle (not from now)
	ProgramSecondary(ticks uint16)

	// CheckPrimary reports whether a new primary cycle began since the last
	// call, clearing the flag
	CheckPrimary() bool

	// CheckSecondary reports whether the secondary alarm fired since the last
	// call, clearing the flag
	CheckSecondary() bool
}

// DisplayControl lights LEDs. Implementations must be safe to call from
// interrupt context: no allocation, no blocking.
type DisplayControl interface {
	// DisplayRowColumns lights exactly the columns set in cols for the given
	// matrix row and switches every other LED in that row off.
	// A zero mask switches the whole row off.
	DisplayRowColumns(row int, cols uint16)
}

// Global handles for interrupt vectors that cannot carry a receiver.
// Each is registered exactly once during startup, before the timer
// interrupt is enabled.
var (
	displayTimer   DisplayTimer
	displayControl DisplayControl
	globalDisplay  *Display
)

// InitialiseTimer registers the display timer and starts its primary cycle.
func InitialiseTimer(t DisplayTimer) {
	displayTimer = t
	t.InitialiseCycle(CycleTicks)
}

// InitialiseControl registers the LED control device.
func InitialiseControl(c DisplayControl) {
	displayControl = c
}

// MustTimer returns the registered timer or panics if missing.
func MustTimer() DisplayTimer {
	if displayTimer == nil {
		panic("display timer not initialised")
	}
	return displayTimer
}

// MustControl returns the registered control device or panics if missing.
func MustControl() DisplayControl {
	if displayControl == nil {
		panic("display control not initialised")
	}
	return displayControl
}

// InitialiseDisplay builds the process-wide Display from the registered
// timer and control device.
func InitialiseDisplay(m Matrix) (*Display, error) {
	d, err := NewDisplay(m, MustTimer(), MustControl())
	if err != nil {
		return nil, err
	}
	globalDisplay = d
	return d, nil
}

// GlobalDisplay returns the display built by InitialiseDisplay, or nil.
func GlobalDisplay() *Display {
	return globalDisplay
}

// HandleGlobalEvent is the body of a timer interrupt trampoline.
// InitialiseDisplay must have been called first.
func HandleGlobalEvent() Event {
	return globalDisplay.HandleEvent()
}
