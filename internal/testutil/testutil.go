// SPDX-License-Identifier: MIT
// Package testutil holds signal generators and fakes shared by tests.
package testutil

import (
	"errors"
	"math"
	"sync"

	"rtaudio/pkg/engine"
	"rtaudio/pkg/interleaved"
)

// Sine returns frames of a sine wave at amplitude amp, copied to every
// channel of an interleaved buffer.
func Sine(frames, channels int, sampleRate, frequency float64, amp float32) []float32 {
	buf := make([]float32, frames*channels)
	for i := range frames {
		t := float64(i) / sampleRate
		s := amp * float32(math.Sin(2*math.Pi*frequency*t))
		for ch := range channels {
			buf[i*channels+ch] = s
		}
	}
	return buf
}

// Complex returns a 440 Hz tone with two harmonics, peaking below 0.9.
func Complex(frames int, sampleRate float64) []float32 {
	buf := make([]float32, frames)
	for i := range buf {
		tm := float64(i) / sampleRate
		signal := math.Sin(2*math.Pi*440*tm)*0.5 +
			math.Sin(2*math.Pi*880*tm)*0.3 +
			math.Sin(2*math.Pi*1320*tm)*0.2
		buf[i] = float32(signal * 0.9)
	}
	return buf
}

// Constant returns n samples of value v.
func Constant(n int, v float32) []float32 {
	buf := make([]float32, n)
	for i := range buf {
		buf[i] = v
	}
	return buf
}

// Peak returns max(|s|) over buf.
func Peak(buf []float32) float32 {
	var peak float32
	for _, s := range buf {
		peak = max(peak, float32(math.Abs(float64(s))))
	}
	return peak
}

// MockTransport records everything sent through it.
type MockTransport struct {
	mu     sync.Mutex
	Sent   []any
	Closed bool
}

func (m *MockTransport) Send(data any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Closed {
		return errors.New("transport closed")
	}
	m.Sent = append(m.Sent, data)
	return nil
}

func (m *MockTransport) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Closed = true
	return nil
}

// Messages returns a copy of the recorded payloads.
func (m *MockTransport) Messages() []any {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]any(nil), m.Sent...)
}

// Backend is an engine.Backend whose callback is driven by the test through
// Tick. Buffers are allocated once, when the stream starts.
type Backend struct {
	Cfg engine.DeviceConfig

	// StartErr, StopErr and StreamErr are returned by the matching methods.
	StartErr  error
	StopErr   error
	StreamErr error

	mu      sync.Mutex
	cb      engine.Callback
	in      []float32
	out     []float32
	starts  int
	stops   int
	running bool
}

// NewBackend returns a fake backend with the given configuration.
func NewBackend(cfg engine.DeviceConfig) *Backend {
	return &Backend{Cfg: cfg}
}

func (b *Backend) Config() engine.DeviceConfig { return b.Cfg }

func (b *Backend) StartStream(cb engine.Callback) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.starts++
	if b.StartErr != nil {
		return b.StartErr
	}
	b.cb = cb
	b.in = make([]float32, b.Cfg.NumFrames*b.Cfg.NumInputChannels)
	b.out = make([]float32, b.Cfg.NumFrames*b.Cfg.NumOutputChannels)
	b.running = true
	return nil
}

func (b *Backend) StopStream() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.stops++
	b.running = false
	b.cb = nil
	return b.StopErr
}

func (b *Backend) StreamError() error { return b.StreamErr }

// Tick runs one callback with input copied from in (zero-padded) and returns
// the rendered output. It returns nil when no stream is running. The
// returned slice is reused by the next Tick.
func (b *Backend) Tick(in []float32) []float32 {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.running {
		return nil
	}
	n := copy(b.in, in)
	clear(b.in[n:])
	b.cb(
		interleaved.NewOutput(b.out, b.Cfg.NumOutputChannels),
		interleaved.NewInput(b.in, b.Cfg.NumInputChannels),
	)
	return b.out
}

// Running reports whether a stream is open.
func (b *Backend) Running() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.running
}

// Starts and Stops count StartStream and StopStream calls.
func (b *Backend) Starts() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.starts
}

func (b *Backend) Stops() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.stops
}

var _ engine.Backend = (*Backend)(nil)
