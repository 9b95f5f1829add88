//go:build microbit

package main

import (
	"device/nrf"
	"runtime/interrupt"

	"greymatrix/core"
)

// TIMER1 at 16MHz/2^8 = 62.5kHz gives the 16µs display tick. Compare 0 ends
// the cycle and clears the counter in hardware; compare 1 is the secondary
// alarm. Compare 2 captures the counter.
const timerPrescaler = 8

type nrfTimer struct{}

func (nrfTimer) InitialiseCycle(ticks uint16) {
	t := nrf.TIMER1
	t.TASKS_STOP.Set(1)
	t.MODE.Set(nrf.TIMER_MODE_MODE_Timer)
	t.BITMODE.Set(nrf.TIMER_BITMODE_BITMODE_16Bit)
	t.PRESCALER.Set(timerPrescaler)
	t.CC[0].Set(uint32(ticks))
	t.SHORTS.Set(nrf.TIMER_SHORTS_COMPARE0_CLEAR_Msk)
	t.INTENCLR.Set(nrf.TIMER_INTENCLR_COMPARE1_Msk)
	t.EVENTS_COMPARE[0].Set(0)
	t.EVENTS_COMPARE[1].Set(0)
	t.INTENSET.Set(nrf.TIMER_INTENSET_COMPARE0_Msk)
	t.TASKS_CLEAR.Set(1)
	t.TASKS_START.Set(1)
}

func (nrfTimer) EnableSecondary() {
	nrf.TIMER1.INTENSET.Set(nrf.TIMER_INTENSET_COMPARE1_Msk)
}

func (nrfTimer) DisableSecondary() {
	nrf.TIMER1.INTENCLR.Set(nrf.TIMER_INTENCLR_COMPARE1_Msk)
	nrf.TIMER1.EVENTS_COMPARE[1].Set(0)
}

// ProgramSecondary sets compare 1. A tick the counter has already passed is
// moved just ahead of it, otherwise the alarm would wait a whole cycle.
func (nrfTimer) ProgramSecondary(ticks uint16) {
	t := nrf.TIMER1
	t.EVENTS_COMPARE[1].Set(0)
	t.TASKS_CAPTURE[2].Set(1)
	if now := t.CC[2].Get(); uint32(ticks) <= now+1 {
		ticks = uint16(now + 2)
	}
	t.CC[1].Set(uint32(ticks))
}

func (nrfTimer) CheckPrimary() bool {
	return checkEvent(0)
}

func (nrfTimer) CheckSecondary() bool {
	return checkEvent(1)
}

func checkEvent(n int) bool {
	ev := &nrf.TIMER1.EVENTS_COMPARE[n]
	if ev.Get() == 0 {
		return false
	}
	ev.Set(0)
	return true
}

func enableDisplayInterrupt() {
	irq := interrupt.New(nrf.IRQ_TIMER1, func(interrupt.Interrupt) {
		core.HandleGlobalEvent()
	})
	irq.SetPriority(0x40)
	irq.Enable()
}
