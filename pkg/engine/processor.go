// SPDX-License-Identifier: MIT
package engine

import "rtaudio/pkg/interleaved"

// Processor is the application's audio code. M is the message type carried
// from the control goroutine to the callback.
//
// Prepare runs on the control goroutine before the stream opens and is the
// only method allowed to allocate, resize buffers or perform system calls.
//
// MessageProcess and Process run on the backend's real-time thread, once per
// hardware buffer, messages first. They must not allocate, block or perform
// I/O.
type Processor[M any] interface {
	Prepare(cfg DeviceConfig)
	MessageProcess(msg M)
	Process(out interleaved.Output, in interleaved.Input)
}

// StopHandler is implemented by processors that reset state after a stream
// halts, such as a play-head. Stopped runs once per stop on the control
// goroutine.
type StopHandler interface {
	Stopped()
}

// State is the lifecycle position of the engine's processor.
type State uint32

const (
	StateUninitialized State = iota
	StatePrepared
	StateRunning
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StatePrepared:
		return "prepared"
	case StateRunning:
		return "running"
	case StateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}
