// SPDX-License-Identifier: MIT
package engine

import (
	"errors"
	"fmt"

	"rtaudio/pkg/interleaved"
)

var (
	ErrNotRunning    = errors.New("audio is not running")
	ErrCallbackFault = errors.New("audio callback fault")
)

// Callback is invoked by a backend once per hardware buffer, on the backend's
// real-time thread. It must return promptly.
type Callback func(out interleaved.Output, in interleaved.Input)

// Backend owns the audio device and the real-time thread that drives the
// callback. The engine never creates that thread itself.
type Backend interface {
	// Config returns the configuration streams will be opened with.
	Config() DeviceConfig
	// StartStream opens the device and begins invoking cb.
	StartStream(cb Callback) error
	// StopStream halts the callback. No invocation is in flight once it
	// returns.
	StopStream() error
	// StreamError returns an asynchronous fault observed while streaming,
	// if any.
	StreamError() error
}

// Configurator is implemented by backends whose configuration can be
// negotiated before a stream starts.
type Configurator interface {
	// SetConfig requests cfg and returns the configuration actually chosen.
	// It fails with ErrStreamRunning while a stream is open.
	SetConfig(cfg DeviceConfig) (DeviceConfig, error)
	APIs() []string
	InputDevices() []string
	OutputDevices() []string
	SampleRates() []int
	FrameSizes() []int
}

// BackendError wraps a failure reported by the platform audio layer.
type BackendError struct {
	Op  string
	Err error
}

func (e *BackendError) Error() string {
	return fmt.Sprintf("backend %s: %v", e.Op, e.Err)
}

func (e *BackendError) Unwrap() error { return e.Err }
