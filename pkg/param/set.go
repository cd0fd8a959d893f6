// SPDX-License-Identifier: MIT
package param

import (
	"fmt"
	"sync"
)

// Set is an ordered, name-indexed collection of parameters. It lets the
// control path address parameters by name, e.g. from CLI flags or remote
// commands. The audio callback should hold direct references instead.
type Set struct {
	mu     sync.RWMutex
	order  []Parameter
	byName map[string]Parameter
}

// NewSet creates a set holding params, in order.
func NewSet(params ...Parameter) *Set {
	s := &Set{byName: make(map[string]Parameter, len(params))}
	for _, p := range params {
		s.Add(p)
	}
	return s
}

// Add registers p. It panics if a parameter with the same name exists.
func (s *Set) Add(p Parameter) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.byName[p.Name()]; ok {
		panic(fmt.Sprintf("param: duplicate parameter %q", p.Name()))
	}
	s.byName[p.Name()] = p
	s.order = append(s.order, p)
}

// Get returns the parameter registered under name.
func (s *Set) Get(name string) (Parameter, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.byName[name]
	return p, ok
}

// SetString parses value into the parameter registered under name.
func (s *Set) SetString(name, value string) error {
	p, ok := s.Get(name)
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownParameter, name)
	}
	return p.SetString(value)
}

// All returns the parameters in registration order.
func (s *Set) All() []Parameter {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]Parameter(nil), s.order...)
}

// Snapshot returns the current value of every parameter, formatted.
func (s *Set) Snapshot() map[string]string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string]string, len(s.order))
	for _, p := range s.order {
		out[p.Name()] = p.String()
	}
	return out
}

// ResetAll restores every parameter to its default.
func (s *Set) ResetAll() {
	for _, p := range s.All() {
		p.Reset()
	}
}
