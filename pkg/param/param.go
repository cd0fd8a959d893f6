// SPDX-License-Identifier: MIT
/*
Package param provides lock-free parameters for continuously varying controls.

Each parameter is an immutable description (name, default, range or choice
list) plus one atomic cell. Any number of goroutines may read and write a
parameter concurrently, including the audio callback: every access is a single
atomic load or store and never allocates.

Parameters are independent scalars. There is no ordering between two
parameters, nor between a parameter and the engine message queue. Values that
must change together belong in one message.

Constructors panic when the default lies outside the declared range or choice
list. That is a programming mistake, detectable before any stream starts.
*/
package param

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"sync/atomic"
)

var (
	ErrUnknownChoice    = errors.New("unknown choice")
	ErrUnknownParameter = errors.New("unknown parameter")
)

// Parameter is the control-path view shared by every parameter kind.
type Parameter interface {
	Name() string
	String() string
	SetString(s string) error
	Reset()
}

// Range is an inclusive [Min, Max] interval.
type Range[T int32 | float32] struct {
	Min T
	Max T
}

// Contains reports whether v lies within the range.
func (r Range[T]) Contains(v T) bool {
	return v >= r.Min && v <= r.Max
}

// Clamp limits v to the range.
func (r Range[T]) Clamp(v T) T {
	return min(max(v, r.Min), r.Max)
}

// Float is a float32 parameter stored as its IEEE-754 bit pattern.
type Float struct {
	value atomic.Uint32
	name  string
	def   float32
	rng   Range[float32]
}

// NewFloat creates a float parameter. It panics if def is outside rng.
func NewFloat(name string, def float32, rng Range[float32]) *Float {
	if !(rng.Min <= rng.Max) {
		panic(fmt.Sprintf("param: %q has invalid range [%v, %v]", name, rng.Min, rng.Max))
	}
	if !rng.Contains(def) {
		panic(fmt.Sprintf("param: %q default %v outside range [%v, %v]", name, def, rng.Min, rng.Max))
	}
	p := &Float{name: name, def: def, rng: rng}
	p.value.Store(math.Float32bits(def))
	return p
}

// Value returns the current value.
func (p *Float) Value() float32 {
	return math.Float32frombits(p.value.Load())
}

// SetValue clamps v to the range and stores it. NaN is ignored.
func (p *Float) SetValue(v float32) {
	if math.IsNaN(float64(v)) {
		return
	}
	p.value.Store(math.Float32bits(p.rng.Clamp(v)))
}

func (p *Float) Name() string          { return p.name }
func (p *Float) Default() float32      { return p.def }
func (p *Float) Range() Range[float32] { return p.rng }
func (p *Float) Reset()                { p.SetValue(p.def) }

func (p *Float) String() string {
	return strconv.FormatFloat(float64(p.Value()), 'g', -1, 32)
}

// SetString parses s as a float and stores it clamped.
func (p *Float) SetString(s string) error {
	v, err := strconv.ParseFloat(s, 32)
	if err != nil {
		return fmt.Errorf("param %q: %w", p.name, err)
	}
	p.SetValue(float32(v))
	return nil
}

// Int is a signed integer parameter.
type Int struct {
	value atomic.Int32
	name  string
	def   int32
	rng   Range[int32]
}

// NewInt creates an integer parameter. It panics if def is outside rng.
func NewInt(name string, def int32, rng Range[int32]) *Int {
	if rng.Min > rng.Max {
		panic(fmt.Sprintf("param: %q has invalid range [%d, %d]", name, rng.Min, rng.Max))
	}
	if !rng.Contains(def) {
		panic(fmt.Sprintf("param: %q default %d outside range [%d, %d]", name, def, rng.Min, rng.Max))
	}
	p := &Int{name: name, def: def, rng: rng}
	p.value.Store(def)
	return p
}

// Value returns the current value.
func (p *Int) Value() int32 { return p.value.Load() }

// SetValue clamps v to the range and stores it.
func (p *Int) SetValue(v int32) { p.value.Store(p.rng.Clamp(v)) }

func (p *Int) Name() string        { return p.name }
func (p *Int) Default() int32      { return p.def }
func (p *Int) Range() Range[int32] { return p.rng }
func (p *Int) Reset()              { p.SetValue(p.def) }
func (p *Int) String() string      { return strconv.FormatInt(int64(p.Value()), 10) }

// SetString parses s as an integer and stores it clamped. Values beyond the
// int32 range are clamped as well.
func (p *Int) SetString(s string) error {
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil && !errors.Is(err, strconv.ErrRange) {
		return fmt.Errorf("param %q: %w", p.name, err)
	}
	v = min(max(v, math.MinInt32), math.MaxInt32)
	p.SetValue(int32(v))
	return nil
}

// Bool is an unconstrained flag.
type Bool struct {
	value atomic.Bool
	name  string
	def   bool
}

// NewBool creates a flag parameter.
func NewBool(name string, def bool) *Bool {
	p := &Bool{name: name, def: def}
	p.value.Store(def)
	return p
}

func (p *Bool) Value() bool     { return p.value.Load() }
func (p *Bool) SetValue(v bool) { p.value.Store(v) }
func (p *Bool) Name() string    { return p.name }
func (p *Bool) Default() bool   { return p.def }
func (p *Bool) Reset()          { p.SetValue(p.def) }
func (p *Bool) String() string  { return strconv.FormatBool(p.Value()) }

// Toggle inverts the flag and returns the new value.
func (p *Bool) Toggle() bool {
	for {
		old := p.value.Load()
		if p.value.CompareAndSwap(old, !old) {
			return !old
		}
	}
}

// SetString parses s with strconv.ParseBool.
func (p *Bool) SetString(s string) error {
	v, err := strconv.ParseBool(s)
	if err != nil {
		return fmt.Errorf("param %q: %w", p.name, err)
	}
	p.SetValue(v)
	return nil
}

// Choice selects one label out of an immutable ordered list.
type Choice struct {
	value   atomic.Uint32
	name    string
	def     int
	choices []string
}

// NewChoice creates a choice parameter. It panics if choices is empty or
// defIndex is not a valid index into it.
func NewChoice(name string, defIndex int, choices []string) *Choice {
	if len(choices) == 0 {
		panic(fmt.Sprintf("param: %q has no choices", name))
	}
	if defIndex < 0 || defIndex >= len(choices) {
		panic(fmt.Sprintf("param: %q default index %d outside [0, %d]", name, defIndex, len(choices)-1))
	}
	p := &Choice{
		name:    name,
		def:     defIndex,
		choices: append([]string(nil), choices...),
	}
	p.value.Store(uint32(defIndex))
	return p
}

// Index returns the selected index.
func (p *Choice) Index() int { return int(p.value.Load()) }

// SetIndex clamps i to [0, len(choices)-1] and stores it.
func (p *Choice) SetIndex(i int) {
	i = min(max(i, 0), len(p.choices)-1)
	p.value.Store(uint32(i))
}

// Choice returns the selected label.
func (p *Choice) Choice() string { return p.choices[p.Index()] }

// SetChoice selects the label equal to name. The value is left unchanged and
// ErrUnknownChoice is returned if no such label exists.
func (p *Choice) SetChoice(name string) error {
	for i, c := range p.choices {
		if c == name {
			p.SetIndex(i)
			return nil
		}
	}
	return fmt.Errorf("param %q: %w: %q", p.name, ErrUnknownChoice, name)
}

// Choices returns the labels. Callers must not modify the slice.
func (p *Choice) Choices() []string { return p.choices }

func (p *Choice) Name() string          { return p.name }
func (p *Choice) DefaultIndex() int     { return p.def }
func (p *Choice) DefaultChoice() string { return p.choices[p.def] }
func (p *Choice) Reset()                { p.SetIndex(p.def) }
func (p *Choice) String() string        { return p.Choice() }

// SetString selects a label by name, falling back to a numeric index.
func (p *Choice) SetString(s string) error {
	err := p.SetChoice(s)
	if err == nil {
		return nil
	}
	if i, convErr := strconv.Atoi(s); convErr == nil {
		p.SetIndex(i)
		return nil
	}
	return err
}

// Compile-time checks for interface implementations.
var (
	_ Parameter = (*Float)(nil)
	_ Parameter = (*Int)(nil)
	_ Parameter = (*Bool)(nil)
	_ Parameter = (*Choice)(nil)
)
