// SPDX-License-Identifier: MIT
/*
Package offline is a virtual audio backend. It drives the engine callback from
its own goroutine instead of a sound card, which makes it suitable for
rendering files and for tests.

Each block the driver reads input from an optional Source, invokes the
callback and hands the output to an optional Sink. With Realtime set, blocks
are paced by a ticker at the configured buffer duration. Otherwise the driver
runs as fast as the callback allows.

The driver stops by itself when the Source is exhausted or after Blocks
blocks, closing the channel returned by Done. Source and Sink failures end the
run and are reported by StreamError.
*/
package offline

import (
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"rtaudio/internal/log"
	"rtaudio/pkg/engine"
	"rtaudio/pkg/interleaved"
)

const apiName = "offline"

// Source supplies interleaved input samples. Read fills dst and returns the
// number of samples written. io.EOF marks the end of the input.
type Source interface {
	Read(dst []float32) (int, error)
}

// Sink receives every rendered output block.
type Sink interface {
	Write(block []float32) error
}

// Options configures a Backend.
type Options struct {
	Config   engine.DeviceConfig
	Realtime bool
	// Blocks bounds the run. Zero runs until the source ends or the stream
	// is stopped.
	Blocks int
	Source Source
	Sink   Sink
}

// Backend is an engine.Backend without hardware.
type Backend struct {
	log *log.Logger

	mu       sync.Mutex
	opts     Options
	running  bool
	stop     chan struct{}
	done     chan struct{}
	err      error
	rendered int
}

// New returns a backend with opts. Zero config fields take engine defaults.
func New(opts Options) *Backend {
	def := engine.DefaultDeviceConfig()
	cfg := &opts.Config
	if cfg.SampleRate == 0 {
		cfg.SampleRate = def.SampleRate
	}
	if cfg.NumFrames == 0 {
		cfg.NumFrames = def.NumFrames
	}
	if cfg.NumInputChannels == 0 && cfg.NumOutputChannels == 0 {
		cfg.NumInputChannels = def.NumInputChannels
		cfg.NumOutputChannels = def.NumOutputChannels
	}
	if cfg.NumInputChannels > 0 && cfg.InputDevice == engine.NoDevice {
		cfg.InputDevice = apiName
	}
	if cfg.NumOutputChannels > 0 && cfg.OutputDevice == engine.NoDevice {
		cfg.OutputDevice = apiName
	}
	cfg.API = apiName

	done := make(chan struct{})
	close(done)
	return &Backend{
		log:  log.New("backend").With(apiName),
		opts: opts,
		done: done,
	}
}

func (b *Backend) Config() engine.DeviceConfig {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.opts.Config
}

// SetSource replaces the input source. It fails while running.
func (b *Backend) SetSource(src Source) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.running {
		return engine.ErrStreamRunning
	}
	b.opts.Source = src
	return nil
}

// SetSink replaces the output sink. It fails while running.
func (b *Backend) SetSink(sink Sink) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.running {
		return engine.ErrStreamRunning
	}
	b.opts.Sink = sink
	return nil
}

// StartStream allocates the block buffers and starts the driver goroutine.
func (b *Backend) StartStream(cb engine.Callback) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.running {
		return engine.ErrStreamRunning
	}
	if err := b.opts.Config.Validate(); err != nil {
		return err
	}

	b.running = true
	b.err = nil
	b.rendered = 0
	b.stop = make(chan struct{})
	b.done = make(chan struct{})

	go b.drive(cb, b.opts, b.stop, b.done)
	return nil
}

// StopStream signals the driver and waits for the block in flight.
func (b *Backend) StopStream() error {
	b.mu.Lock()
	if !b.running {
		b.mu.Unlock()
		return nil
	}
	b.running = false
	close(b.stop)
	done := b.done
	b.mu.Unlock()

	<-done
	return nil
}

func (b *Backend) StreamError() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.err
}

// Done is closed when the driver goroutine exits.
func (b *Backend) Done() <-chan struct{} {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.done
}

// Rendered returns the number of blocks produced by the last run.
func (b *Backend) Rendered() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.rendered
}

func (b *Backend) drive(cb engine.Callback, opts Options, stop, done chan struct{}) {
	defer close(done)

	cfg := opts.Config
	in := make([]float32, cfg.NumFrames*cfg.NumInputChannels)
	out := make([]float32, cfg.NumFrames*cfg.NumOutputChannels)
	inView := interleaved.NewInput(in, cfg.NumInputChannels)
	outView := interleaved.NewOutput(out, cfg.NumOutputChannels)

	var tick <-chan time.Time
	if opts.Realtime {
		ticker := time.NewTicker(cfg.BufferDuration())
		defer ticker.Stop()
		tick = ticker.C
	}

	b.log.Debugf("driver started: %s realtime=%t", cfg, opts.Realtime)

	blocks := 0
	for opts.Blocks == 0 || blocks < opts.Blocks {
		select {
		case <-stop:
			b.finish(blocks, nil)
			return
		default:
		}
		if tick != nil {
			select {
			case <-stop:
				b.finish(blocks, nil)
				return
			case <-tick:
			}
		}

		eof := false
		if opts.Source != nil && len(in) > 0 {
			n, err := opts.Source.Read(in)
			clear(in[n:])
			switch {
			case errors.Is(err, io.EOF):
				eof = true
				if n == 0 {
					b.finish(blocks, nil)
					return
				}
			case err != nil:
				b.finish(blocks, fmt.Errorf("read source: %w", err))
				return
			}
		}

		cb(outView, inView)
		blocks++

		if opts.Sink != nil {
			if err := opts.Sink.Write(out); err != nil {
				b.finish(blocks, fmt.Errorf("write sink: %w", err))
				return
			}
		}
		if eof {
			break
		}
	}
	b.finish(blocks, nil)
}

func (b *Backend) finish(blocks int, err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.rendered = blocks
	if err != nil && b.err == nil {
		b.err = err
		b.log.Errorf("driver stopped: %v", err)
		return
	}
	b.log.Debugf("driver finished after %d blocks", blocks)
}

// SetConfig replaces the configuration when stopped. Rates and frame sizes
// outside the common lists are accepted, the virtual device has no limits.
func (b *Backend) SetConfig(cfg engine.DeviceConfig) (engine.DeviceConfig, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.running {
		return b.opts.Config, engine.ErrStreamRunning
	}
	cfg.API = apiName
	if cfg.InputDevice != engine.NoDevice && cfg.InputDevice != apiName && cfg.InputDevice != engine.DefaultDevice {
		return b.opts.Config, &engine.ConfigError{Field: "input device", Value: cfg.InputDevice, Err: engine.ErrDeviceNotFound}
	}
	if cfg.OutputDevice != engine.NoDevice && cfg.OutputDevice != apiName && cfg.OutputDevice != engine.DefaultDevice {
		return b.opts.Config, &engine.ConfigError{Field: "output device", Value: cfg.OutputDevice, Err: engine.ErrDeviceNotFound}
	}
	if err := cfg.Validate(); err != nil {
		return b.opts.Config, err
	}
	b.opts.Config = cfg
	return cfg, nil
}

func (b *Backend) APIs() []string          { return []string{apiName} }
func (b *Backend) InputDevices() []string  { return []string{apiName} }
func (b *Backend) OutputDevices() []string { return []string{apiName} }
func (b *Backend) SampleRates() []int      { return engine.CommonSampleRates }
func (b *Backend) FrameSizes() []int       { return engine.CommonFrameSizes }

var (
	_ engine.Backend      = (*Backend)(nil)
	_ engine.Configurator = (*Backend)(nil)
)
