// Package ramp steps an integer output towards a target over time.
package ramp

import (
	"time"

	"fanmonitor-go/x/mathx"
)

// Step sets the new logical level in [0..top].
type Step func(level uint16)

// Tick waits for d and reports whether to continue (false => cancelled).
type Tick func(d time.Duration) bool

// Sleep returns a Tick that sleeps for d unless cancel is closed first.
func Sleep(cancel <-chan struct{}) Tick {
	return func(d time.Duration) bool {
		t := time.NewTimer(d)
		defer t.Stop()
		select {
		case <-cancel:
			return false
		case <-t.C:
			return true
		}
	}
}

// Linear moves from cur to 'to' in the given number of steps spread over
// durationMs, calling set for every change of level. It is synchronous:
// run it on its own goroutine. steps==0 or durationMs==0 snaps to 'to'.
// It reports false when tick cancelled the ramp early.
func Linear(cur, to, top uint16, durationMs uint32, steps uint16, tick Tick, set Step) bool {
	to = mathx.Min(to, top)
	if steps == 0 || durationMs == 0 || cur == to {
		set(to)
		return true
	}
	d := int32(to) - int32(cur)
	st := int32(steps)
	acc := int32(0)
	cur32 := int32(cur)
	stepDurMs := durationMs / uint32(steps)
	if stepDurMs == 0 {
		stepDurMs = 1
	}
	stepDur := time.Duration(stepDurMs) * time.Millisecond

	for i := uint16(1); i < steps; i++ {
		if !tick(stepDur) {
			return false
		}
		acc += d
		inc := acc / st
		if inc != 0 {
			acc -= inc * st
			cur32 = mathx.Clamp(cur32+inc, 0, int32(top))
			set(uint16(cur32))
		}
	}
	if !tick(stepDur) {
		return false
	}
	set(to)
	return true
}
