// SPDX-License-Identifier: MIT
/*
Package portaudio is the hardware backend, built on PortAudio.

PortAudio owns the real-time thread and calls into Go once per buffer with
interleaved float32 samples. The backend wraps those slices in interleaved
views and forwards them to the engine callback without copying. Duplex,
output-only and input-only streams are supported; the unused direction is
presented to the callback as an empty view.

Initialize must be called before New and Terminate after the last stream is
closed.
*/
package portaudio

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	pa "github.com/gordonklaus/portaudio"

	"rtaudio/internal/log"
	"rtaudio/pkg/engine"
	"rtaudio/pkg/interleaved"
)

// ErrBufferSize is reported when PortAudio delivers buffers of a size other
// than the negotiated one.
var ErrBufferSize = errors.New("unexpected buffer size")

// Options tune stream latency.
type Options struct {
	// LowLatency selects the devices' low latency defaults.
	LowLatency bool
}

// Backend implements engine.Backend and engine.Configurator.
type Backend struct {
	log  *log.Logger
	opts Options

	mu     sync.Mutex
	cfg    engine.DeviceConfig
	api    *pa.HostApiInfo
	input  *pa.DeviceInfo
	output *pa.DeviceInfo
	stream *pa.Stream

	badBuffers atomic.Uint64
}

// New negotiates cfg against the available devices and returns a backend
// ready to stream.
func New(cfg engine.DeviceConfig, opts Options) (*Backend, error) {
	b := &Backend{
		log:  log.New("backend").With("portaudio"),
		opts: opts,
	}
	if _, err := b.SetConfig(cfg); err != nil {
		return nil, err
	}
	return b, nil
}

func (b *Backend) Config() engine.DeviceConfig {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.cfg
}

// SetConfig resolves the API and devices named in cfg, checks that the
// format is supported and stores the result.
func (b *Backend) SetConfig(cfg engine.DeviceConfig) (engine.DeviceConfig, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.stream != nil {
		return b.cfg, engine.ErrStreamRunning
	}
	if err := cfg.Validate(); err != nil {
		return b.cfg, err
	}

	apis, err := pa.HostApis()
	if err != nil {
		return b.cfg, &engine.BackendError{Op: "host apis", Err: err}
	}
	def, _ := pa.DefaultHostApi()
	api, err := findAPI(apis, def, cfg.API)
	if err != nil {
		return b.cfg, err
	}

	if cfg.NumInputChannels == 0 {
		cfg.InputDevice = engine.NoDevice
	}
	if cfg.NumOutputChannels == 0 {
		cfg.OutputDevice = engine.NoDevice
	}
	in, err := findDevice(api, cfg.InputDevice, true)
	if err != nil {
		return b.cfg, err
	}
	out, err := findDevice(api, cfg.OutputDevice, false)
	if err != nil {
		return b.cfg, err
	}
	if in == nil && out == nil {
		return b.cfg, &engine.ConfigError{Field: "output device", Value: cfg.OutputDevice, Err: engine.ErrDeviceNotFound}
	}
	if in == nil {
		cfg.NumInputChannels = 0
	} else if cfg.NumInputChannels > in.MaxInputChannels {
		return b.cfg, &engine.ConfigError{Field: "input channels", Value: cfg.NumInputChannels, Err: engine.ErrInputChannels}
	}
	if out == nil {
		cfg.NumOutputChannels = 0
	} else if cfg.NumOutputChannels > out.MaxOutputChannels {
		return b.cfg, &engine.ConfigError{Field: "output channels", Value: cfg.NumOutputChannels, Err: engine.ErrOutputChannels}
	}

	params := b.streamParameters(in, out, cfg)
	if err := pa.IsFormatSupported(params, b.formatArgs(in, out)...); err != nil {
		return b.cfg, &engine.ConfigError{Field: "sample rate", Value: cfg.SampleRate, Err: fmt.Errorf("%w: %v", engine.ErrSampleRate, err)}
	}

	cfg.API = api.Name
	cfg.InputDevice = deviceName(in)
	cfg.OutputDevice = deviceName(out)

	b.api, b.input, b.output, b.cfg = api, in, out, cfg
	b.log.Debugf("configured: %s", cfg)
	return cfg, nil
}

func deviceName(d *pa.DeviceInfo) engine.Device {
	if d == nil {
		return engine.NoDevice
	}
	return engine.Device(d.Name)
}

func (b *Backend) streamParameters(in, out *pa.DeviceInfo, cfg engine.DeviceConfig) pa.StreamParameters {
	var params pa.StreamParameters
	if in != nil {
		latency := in.DefaultHighInputLatency
		if b.opts.LowLatency {
			latency = in.DefaultLowInputLatency
		}
		params.Input = pa.StreamDeviceParameters{Device: in, Channels: cfg.NumInputChannels, Latency: latency}
	}
	if out != nil {
		latency := out.DefaultHighOutputLatency
		if b.opts.LowLatency {
			latency = out.DefaultLowOutputLatency
		}
		params.Output = pa.StreamDeviceParameters{Device: out, Channels: cfg.NumOutputChannels, Latency: latency}
	}
	params.SampleRate = float64(cfg.SampleRate)
	params.FramesPerBuffer = cfg.NumFrames
	return params
}

// formatArgs returns sample buffers describing float32 samples in the
// directions in use, as IsFormatSupported expects.
func (b *Backend) formatArgs(in, out *pa.DeviceInfo) []any {
	var args []any
	if in != nil {
		args = append(args, []float32(nil))
	}
	if out != nil {
		args = append(args, []float32(nil))
	}
	return args
}

// StartStream opens and starts a stream in the negotiated configuration.
func (b *Backend) StartStream(cb engine.Callback) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.stream != nil {
		return engine.ErrStreamRunning
	}
	if b.input == nil && b.output == nil {
		return &engine.ConfigError{Field: "output device", Value: engine.NoDevice, Err: engine.ErrDeviceNotFound}
	}

	cfg := b.cfg
	params := b.streamParameters(b.input, b.output, cfg)
	b.badBuffers.Store(0)

	inLen := cfg.NumFrames * cfg.NumInputChannels
	outLen := cfg.NumFrames * cfg.NumOutputChannels

	var fn any
	switch {
	case b.input != nil && b.output != nil:
		fn = func(in, out []float32) {
			if len(in) != inLen || len(out) != outLen {
				b.badBuffers.Add(1)
			}
			cb(interleaved.NewOutput(out, cfg.NumOutputChannels), interleaved.NewInput(in, cfg.NumInputChannels))
		}
	case b.output != nil:
		fn = func(out []float32) {
			if len(out) != outLen {
				b.badBuffers.Add(1)
			}
			cb(interleaved.NewOutput(out, cfg.NumOutputChannels), interleaved.Input{})
		}
	default:
		fn = func(in []float32) {
			if len(in) != inLen {
				b.badBuffers.Add(1)
			}
			cb(interleaved.Output{}, interleaved.NewInput(in, cfg.NumInputChannels))
		}
	}

	stream, err := pa.OpenStream(params, fn)
	if err != nil {
		return fmt.Errorf("open stream: %w", err)
	}
	if err := stream.Start(); err != nil {
		stream.Close()
		return fmt.Errorf("start stream: %w", err)
	}
	b.stream = stream

	if info := stream.Info(); info != nil {
		b.log.Infof("stream open: in %v, out %v, %.0f Hz",
			info.InputLatency.Round(time.Microsecond), info.OutputLatency.Round(time.Microsecond), info.SampleRate)
	}
	return nil
}

// StopStream stops and closes the stream. PortAudio guarantees no callback
// is in flight once Stop returns.
func (b *Backend) StopStream() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.stream == nil {
		return nil
	}
	stopErr := b.stream.Stop()
	closeErr := b.stream.Close()
	b.stream = nil
	return errors.Join(stopErr, closeErr)
}

// StreamError reports callbacks that received unexpected buffer sizes.
func (b *Backend) StreamError() error {
	if n := b.badBuffers.Load(); n > 0 {
		return fmt.Errorf("%w in %d callbacks", ErrBufferSize, n)
	}
	return nil
}

func (b *Backend) APIs() []string {
	apis, err := pa.HostApis()
	if err != nil {
		return nil
	}
	names := make([]string, len(apis))
	for i, api := range apis {
		names[i] = api.Name
	}
	return names
}

func (b *Backend) InputDevices() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return deviceNames(b.api, true)
}

func (b *Backend) OutputDevices() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return deviceNames(b.api, false)
}

// SampleRates returns the common rates the current devices accept.
func (b *Backend) SampleRates() []int {
	b.mu.Lock()
	defer b.mu.Unlock()

	var rates []int
	for _, rate := range engine.CommonSampleRates {
		cfg := b.cfg
		cfg.SampleRate = rate
		params := b.streamParameters(b.input, b.output, cfg)
		if pa.IsFormatSupported(params, b.formatArgs(b.input, b.output)...) == nil {
			rates = append(rates, rate)
		}
	}
	return rates
}

// FrameSizes returns the common buffer sizes. PortAudio adapts any size to
// the host buffer, so all are offered.
func (b *Backend) FrameSizes() []int {
	return engine.CommonFrameSizes
}

var (
	_ engine.Backend      = (*Backend)(nil)
	_ engine.Configurator = (*Backend)(nil)
)
