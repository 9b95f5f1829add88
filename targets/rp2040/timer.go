//go:build rp2040

package main

import (
	"device/rp"
	"runtime/interrupt"
	"runtime/volatile"
	"unsafe"

	"greymatrix/core"
)

// RP2040 Timer peripheral memory map. The runtime owns alarm 0; the display
// uses alarm 2 for the primary cycle and alarm 3 for the secondary alarm.
const (
	timerBase     = 0x40054000
	timerALARM2   = timerBase + 0x18
	timerALARM3   = timerBase + 0x1C
	timerARMED    = timerBase + 0x20
	timerTIMERAWL = timerBase + 0x28
	timerINTR     = timerBase + 0x34
	timerINTE     = timerBase + 0x38
	timerINTS     = timerBase + 0x40

	alarmPrimary   = 1 << 2
	alarmSecondary = 1 << 3
)

var (
	timerAlarm2 = (*volatile.Register32)(unsafe.Pointer(uintptr(timerALARM2)))
	timerAlarm3 = (*volatile.Register32)(unsafe.Pointer(uintptr(timerALARM3)))
	timerArmed  = (*volatile.Register32)(unsafe.Pointer(uintptr(timerARMED)))
	timerRAWL   = (*volatile.Register32)(unsafe.Pointer(uintptr(timerTIMERAWL)))
	timerIntr   = (*volatile.Register32)(unsafe.Pointer(uintptr(timerINTR)))
	timerInte   = (*volatile.Register32)(unsafe.Pointer(uintptr(timerINTE)))
	timerInts   = (*volatile.Register32)(unsafe.Pointer(uintptr(timerINTS)))
)

// alarmTimer implements core.DisplayTimer on the 1MHz system timer. Alarms
// match the low 32 bits of the microsecond counter.
type alarmTimer struct {
	tickNs  uint32
	cycleUs uint32
	start   uint32 // Microsecond the current cycle began
	next    uint32 // Microsecond the next cycle begins
}

func newAlarmTimer(tickNs uint32) *alarmTimer {
	return &alarmTimer{tickNs: tickNs}
}

func (t *alarmTimer) ticksToUs(ticks uint16) uint32 {
	return uint32(ticks) * t.tickNs / 1000
}

// armAt programs an alarm, nudging a time already passed to just ahead of
// now so the alarm cannot wait for the counter to wrap.
func armAt(alarm *volatile.Register32, at uint32) {
	if now := timerRAWL.Get(); int32(at-now) < 2 {
		at = now + 2
	}
	alarm.Set(at)
}

func (t *alarmTimer) InitialiseCycle(ticks uint16) {
	t.cycleUs = t.ticksToUs(ticks)
	t.start = timerRAWL.Get()
	t.next = t.start + t.cycleUs

	t.DisableSecondary()
	timerIntr.Set(alarmPrimary)
	armAt(timerAlarm2, t.next)
	timerInte.SetBits(alarmPrimary)
}

func (t *alarmTimer) EnableSecondary() {
	timerInte.SetBits(alarmSecondary)
}

func (t *alarmTimer) DisableSecondary() {
	timerInte.ClearBits(alarmSecondary)
	timerArmed.Set(alarmSecondary)
	timerIntr.Set(alarmSecondary)
}

func (t *alarmTimer) ProgramSecondary(ticks uint16) {
	timerIntr.Set(alarmSecondary)
	armAt(timerAlarm3, t.start+t.ticksToUs(ticks))
}

// CheckPrimary also re-arms the primary alarm for the following cycle
func (t *alarmTimer) CheckPrimary() bool {
	if timerInts.Get()&alarmPrimary == 0 {
		return false
	}
	timerIntr.Set(alarmPrimary)
	t.start = t.next
	t.next += t.cycleUs
	armAt(timerAlarm2, t.next)
	return true
}

func (t *alarmTimer) CheckSecondary() bool {
	if timerInts.Get()&alarmSecondary == 0 {
		return false
	}
	timerIntr.Set(alarmSecondary)
	return true
}

// enableDisplayInterrupts routes both alarms to the display. They share a
// priority, so one handler never preempts the other.
func enableDisplayInterrupts() {
	primary := interrupt.New(rp.IRQ_TIMER_IRQ_2, displayISR)
	primary.SetPriority(0x40)
	primary.Enable()

	secondary := interrupt.New(rp.IRQ_TIMER_IRQ_3, displayISR)
	secondary.SetPriority(0x40)
	secondary.Enable()
}

func displayISR(interrupt.Interrupt) {
	core.HandleGlobalEvent()
}
