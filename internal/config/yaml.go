// SPDX-License-Identifier: MIT
package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"rtaudio/internal/analysis"
	"rtaudio/internal/log"
	"rtaudio/pkg/bitint"
	"rtaudio/pkg/engine"
)

// Config represents the main application configuration structure, loaded from YAML.
type Config struct {
	Debug      bool             `yaml:"debug"`      // Forces the debug log level.
	LogLevel   string           `yaml:"log_level"`  // "debug", "info", "warn" or "error".
	Audio      AudioConfig      `yaml:"audio"`      // Device and stream settings.
	Processing ProcessingConfig `yaml:"processing"` // Feedback chain defaults.
	Recording  RecordingConfig  `yaml:"recording"`  // Offline render output.
	Transport  TransportConfig  `yaml:"transport"`  // Level publishing.
}

// AudioConfig holds settings related to audio input/output.
type AudioConfig struct {
	API             string `yaml:"api"`               // Host API name, empty for the default.
	InputDevice     string `yaml:"input_device"`      // Device name or substring, "default" or "none".
	OutputDevice    string `yaml:"output_device"`     // Device name or substring, "default" or "none".
	SampleRate      int    `yaml:"sample_rate"`       // Sample rate in Hz (e.g., 44100, 48000).
	FramesPerBuffer int    `yaml:"frames_per_buffer"` // Frames per callback.
	LowLatency      bool   `yaml:"low_latency"`       // Request the devices' low latency defaults.
	InputChannels   int    `yaml:"input_channels"`    // Captured channels, 0 disables input.
	OutputChannels  int    `yaml:"output_channels"`   // Rendered channels, 0 disables output.
	QueueCapacity   int    `yaml:"queue_capacity"`    // Engine message queue size.
}

// ProcessingConfig holds the initial values of the feedback parameters.
type ProcessingConfig struct {
	Gain          float32 `yaml:"gain"`            // Linear gain, 0..10.
	Gate          bool    `yaml:"gate"`            // Enable the noise gate.
	GateThreshold float32 `yaml:"gate_threshold"`  // Gate threshold, 0..1 linear peak.
	MeterWindowMs int     `yaml:"meter_window_ms"` // Level meter window.
	MeterChannel  int     `yaml:"meter_channel"`   // Metered input channel.
	Spectrum      bool    `yaml:"spectrum"`        // Publish band levels of the metered channel.
	FFTSize       int     `yaml:"fft_size"`        // Spectrum points, a power of two.
	Window        string  `yaml:"window"`          // Spectrum window function, e.g. "hann".
}

// RecordingConfig holds settings for rendered files.
type RecordingConfig struct {
	BitDepth int `yaml:"bit_depth"` // 16, 24 or 32.
}

// TransportConfig holds settings related to publishing levels over the network.
type TransportConfig struct {
	WSEnabled        bool          `yaml:"ws_enabled"`         // Serve levels and parameters over WebSocket.
	WSAddress        string        `yaml:"ws_address"`         // Listen address, e.g. ":8080".
	UDPEnabled       bool          `yaml:"udp_enabled"`        // Send level packets over UDP.
	UDPTargetAddress string        `yaml:"udp_target_address"` // Target address and port for UDP packets (e.g., "127.0.0.1:9090").
	UDPSendInterval  time.Duration `yaml:"udp_send_interval"`  // Interval between sending UDP packets.
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		LogLevel: "info",
		Audio: AudioConfig{
			API:             DefaultAPI,
			InputDevice:     DefaultDevice,
			OutputDevice:    DefaultDevice,
			SampleRate:      DefaultSampleRate,
			FramesPerBuffer: DefaultFrames,
			InputChannels:   DefaultInputChannels,
			OutputChannels:  DefaultOutputChannels,
			QueueCapacity:   DefaultQueueCapacity,
		},
		Processing: ProcessingConfig{
			Gain:          DefaultGain,
			GateThreshold: DefaultGateThreshold,
			MeterWindowMs: DefaultMeterWindowMs,
			FFTSize:       analysis.DefaultFFTSize,
			Window:        DefaultWindow,
		},
		Recording: RecordingConfig{
			BitDepth: DefaultBitDepth,
		},
		Transport: TransportConfig{
			WSAddress:        DefaultWSAddress,
			UDPTargetAddress: DefaultUDPTarget,
			UDPSendInterval:  DefaultUDPSendInterval,
		},
	}
}

// LoadConfig loads configuration from a YAML file specified by path. If path is empty,
// it searches default locations ("rtaudio.yaml", "config.yaml"). If no file is found,
// it uses built-in defaults. After loading defaults or from file, it applies environment
// variable overrides and validates the final configuration.
func LoadConfig(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		for _, candidate := range []string{"rtaudio.yaml", "config.yaml"} {
			if _, err := os.Stat(candidate); err == nil {
				path = candidate
				break
			}
		}
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	// Environment variables win over the file.
	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// Validate checks every value against the package bounds. Errors are
// *engine.ConfigError values, joined when several fields are wrong.
func (c *Config) Validate() error {
	var errs []error
	bad := func(field string, value any, err error) {
		errs = append(errs, &engine.ConfigError{Field: field, Value: value, Err: err})
	}

	if _, ok := log.ParseLevel(c.LogLevel); !ok {
		bad("log_level", c.LogLevel, errors.New("unknown level"))
	}

	a := c.Audio
	if a.SampleRate < MinSampleRate || a.SampleRate > MaxSampleRate {
		bad("audio.sample_rate", a.SampleRate, engine.ErrSampleRate)
	}
	if a.FramesPerBuffer < MinBufferFrames || a.FramesPerBuffer > MaxBufferFrames {
		bad("audio.frames_per_buffer", a.FramesPerBuffer, engine.ErrNumFrames)
	}
	if a.InputChannels < 0 || a.InputChannels > MaxChannels {
		bad("audio.input_channels", a.InputChannels, engine.ErrInputChannels)
	}
	if a.OutputChannels < 0 || a.OutputChannels > MaxChannels {
		bad("audio.output_channels", a.OutputChannels, engine.ErrOutputChannels)
	}
	if a.InputChannels == 0 && a.OutputChannels == 0 {
		bad("audio.output_channels", 0, engine.ErrOutputChannels)
	}
	if a.QueueCapacity < 0 {
		bad("audio.queue_capacity", a.QueueCapacity, errors.New("must not be negative"))
	}

	p := c.Processing
	if p.Gain < 0 || p.Gain > MaxGain {
		bad("processing.gain", p.Gain, fmt.Errorf("outside [0, %v]", MaxGain))
	}
	if p.GateThreshold < 0 || p.GateThreshold > 1 {
		bad("processing.gate_threshold", p.GateThreshold, errors.New("outside [0, 1]"))
	}
	if p.MeterWindowMs <= 0 || p.MeterWindowMs > MaxMeterWindowMs {
		bad("processing.meter_window_ms", p.MeterWindowMs, fmt.Errorf("outside [1, %d]", MaxMeterWindowMs))
	}
	if p.MeterChannel < 0 || (a.InputChannels > 0 && p.MeterChannel >= a.InputChannels) {
		bad("processing.meter_channel", p.MeterChannel, engine.ErrInputChannels)
	}
	if p.Spectrum {
		if p.FFTSize < 64 || p.FFTSize > MaxFFTSize || !bitint.IsPowerOfTwo(p.FFTSize) {
			bad("processing.fft_size", p.FFTSize, analysis.ErrFFTSize)
		}
		if _, err := analysis.ParseWindowFunc(p.Window); err != nil {
			bad("processing.window", p.Window, err)
		}
	}

	switch c.Recording.BitDepth {
	case 16, 24, 32:
	default:
		bad("recording.bit_depth", c.Recording.BitDepth, errors.New("must be 16, 24 or 32"))
	}

	t := c.Transport
	if t.WSEnabled {
		if _, _, err := net.SplitHostPort(t.WSAddress); err != nil {
			bad("transport.ws_address", t.WSAddress, err)
		}
	}
	if t.UDPEnabled {
		if _, _, err := net.SplitHostPort(t.UDPTargetAddress); err != nil {
			bad("transport.udp_target_address", t.UDPTargetAddress, err)
		}
		if t.UDPSendInterval <= 0 {
			bad("transport.udp_send_interval", t.UDPSendInterval, errors.New("must be positive"))
		}
	}

	return errors.Join(errs...)
}

// applyEnvOverrides replaces file values with RTAUDIO_* environment variables.
// Unparseable values are logged and ignored.
func (c *Config) applyEnvOverrides() {
	logger := log.New("config")

	str := func(key string, dst *string) {
		if val, ok := os.LookupEnv(key); ok {
			*dst = val
			logger.Debugf("overriding from %s: %q", key, val)
		}
	}
	boolean := func(key string, dst *bool) {
		if val, ok := os.LookupEnv(key); ok {
			b, err := strconv.ParseBool(val)
			if err != nil {
				logger.Warnf("ignoring %s=%q: %v", key, val, err)
				return
			}
			*dst = b
			logger.Debugf("overriding from %s: %v", key, b)
		}
	}
	integer := func(key string, dst *int) {
		if val, ok := os.LookupEnv(key); ok {
			n, err := strconv.Atoi(val)
			if err != nil {
				logger.Warnf("ignoring %s=%q: %v", key, val, err)
				return
			}
			*dst = n
			logger.Debugf("overriding from %s: %d", key, n)
		}
	}

	str(EnvLogLevel, &c.LogLevel)
	boolean(EnvDebug, &c.Debug)
	str(EnvAPI, &c.Audio.API)
	str(EnvInputDevice, &c.Audio.InputDevice)
	str(EnvOutputDevice, &c.Audio.OutputDevice)
	integer(EnvSampleRate, &c.Audio.SampleRate)
	integer(EnvFrames, &c.Audio.FramesPerBuffer)
	boolean(EnvSpectrum, &c.Processing.Spectrum)
	boolean(EnvWSEnabled, &c.Transport.WSEnabled)
	str(EnvWSAddress, &c.Transport.WSAddress)
	boolean(EnvUDPEnabled, &c.Transport.UDPEnabled)
	str(EnvUDPTarget, &c.Transport.UDPTargetAddress)

	if val, ok := os.LookupEnv(EnvUDPSendInterval); ok {
		dur, err := time.ParseDuration(val)
		if err != nil {
			logger.Warnf("ignoring %s=%q: %v", EnvUDPSendInterval, val, err)
			return
		}
		c.Transport.UDPSendInterval = dur
		logger.Debugf("overriding from %s: %s", EnvUDPSendInterval, dur)
	}
}
