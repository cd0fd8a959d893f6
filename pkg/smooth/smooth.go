// SPDX-License-Identifier: MIT
//
// Package smooth ramps a control value towards a target over a fixed number of
// samples, so that abrupt parameter changes do not produce audible clicks.
//
// A Value is owned by exactly one goroutine (normally the audio callback) and
// performs no allocation, locking or system calls after construction.
package smooth

import "math"

// EasingFunc maps step t of d steps onto a curve starting at b and changing
// by c. Every EasingFunc must return b for t == 0 and b+c for t == d.
type EasingFunc func(t, b, c, d float32) float32

// Value is a per-sample ramp generator between two scalar values.
type Value struct {
	numSteps int
	counter  int
	begin    float32
	change   float32
	current  float32
	target   float32
	ease     EasingFunc
}

// New returns a Value resting at initial. A nil ease selects Linear.
func New(initial float32, ease EasingFunc) *Value {
	if ease == nil {
		ease = Linear
	}
	return &Value{
		begin:   initial,
		current: initial,
		target:  initial,
		ease:    ease,
	}
}

// Prepare sets the ramp length to round(sampleRate/1000 * rampMs) steps.
func (v *Value) Prepare(sampleRate, rampMs int) {
	steps := math.Round(float64(sampleRate) / 1000 * float64(rampMs))
	v.SetNumSteps(int(steps))
}

// SetNumSteps sets the ramp length directly. A ramp in progress that is
// already past the new length completes immediately.
func (v *Value) SetNumSteps(numSteps int) {
	v.numSteps = max(numSteps, 0)
	if v.counter > v.numSteps {
		v.counter = v.numSteps + 1
		v.current = v.target
	}
}

// NumSteps returns the configured ramp length.
func (v *Value) NumSteps() int { return v.numSteps }

// SetTargetValue starts a new ramp from the current position to target.
func (v *Value) SetTargetValue(target float32) {
	v.target = target
	v.begin = v.current
	v.change = target - v.current
	v.counter = 0
}

// SetCurrentAndTargetValue jumps to value without ramping.
func (v *Value) SetCurrentAndTargetValue(value float32) {
	v.target = value
	v.current = value
	v.begin = value
	v.change = 0
	v.counter = v.numSteps + 1
}

// NextValue advances the ramp by one sample and returns the new value. It must
// be called exactly once per output sample. Once the ramp is complete the
// target is returned unchanged.
func (v *Value) NextValue() float32 {
	if v.counter > v.numSteps {
		return v.target
	}
	v.counter++
	if v.counter > v.numSteps {
		v.current = v.target
		return v.current
	}
	v.current = v.ease(float32(v.counter-1), v.begin, v.change, float32(v.numSteps))
	return v.current
}

// Skip advances the ramp by n samples as if NextValue had been called n times
// and returns the last of those values.
func (v *Value) Skip(n int) float32 {
	if n <= 0 {
		return v.current
	}
	if v.counter > v.numSteps {
		return v.target
	}
	v.counter += n
	if v.counter > v.numSteps {
		v.counter = v.numSteps + 1
		v.current = v.target
		return v.current
	}
	v.current = v.ease(float32(v.counter-1), v.begin, v.change, float32(v.numSteps))
	return v.current
}

// Current returns the most recently produced value.
func (v *Value) Current() float32 { return v.current }

// Target returns the value the ramp is heading to.
func (v *Value) Target() float32 { return v.target }

// IsSmoothing reports whether the ramp has not yet reached its target.
func (v *Value) IsSmoothing() bool { return v.counter <= v.numSteps }
