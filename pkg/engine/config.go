// SPDX-License-Identifier: MIT
package engine

import (
	"errors"
	"fmt"
	"slices"
	"time"
)

const (
	DefaultSampleRate = 48000
	DefaultNumFrames  = 512
)

var (
	CommonSampleRates = []int{44100, 48000, 88200, 96000, 192000}
	CommonFrameSizes  = []int{16, 32, 64, 128, 256, 512, 1024, 2048}
)

var (
	ErrSampleRate     = errors.New("unsupported sample rate")
	ErrNumFrames      = errors.New("unsupported frame count")
	ErrInputChannels  = errors.New("unsupported input channel count")
	ErrOutputChannels = errors.New("unsupported output channel count")
	ErrDeviceNotFound = errors.New("device not found")
	ErrAPINotFound    = errors.New("host API not found")
	ErrStreamRunning  = errors.New("stream is running")
)

// Device names an input or output device. NoDevice disables the direction,
// DefaultDevice selects the host default.
type Device string

const (
	NoDevice      Device = ""
	DefaultDevice Device = "default"
)

// DeviceConfig is the negotiated stream configuration reported by a backend.
type DeviceConfig struct {
	API               string
	InputDevice       Device
	OutputDevice      Device
	NumInputChannels  int
	NumOutputChannels int
	SampleRate        int
	NumFrames         int
}

// DefaultDeviceConfig is stereo in and out on the default devices.
func DefaultDeviceConfig() DeviceConfig {
	return DeviceConfig{
		InputDevice:       DefaultDevice,
		OutputDevice:      DefaultDevice,
		NumInputChannels:  2,
		NumOutputChannels: 2,
		SampleRate:        DefaultSampleRate,
		NumFrames:         DefaultNumFrames,
	}
}

// Validate checks the fields that every backend relies on.
func (c DeviceConfig) Validate() error {
	switch {
	case c.SampleRate <= 0:
		return &ConfigError{Field: "sample rate", Value: c.SampleRate, Err: ErrSampleRate}
	case c.NumFrames <= 0:
		return &ConfigError{Field: "frames", Value: c.NumFrames, Err: ErrNumFrames}
	case c.NumInputChannels < 0:
		return &ConfigError{Field: "input channels", Value: c.NumInputChannels, Err: ErrInputChannels}
	case c.NumOutputChannels < 0:
		return &ConfigError{Field: "output channels", Value: c.NumOutputChannels, Err: ErrOutputChannels}
	case c.NumInputChannels == 0 && c.NumOutputChannels == 0:
		return &ConfigError{Field: "output channels", Value: 0, Err: ErrOutputChannels}
	}
	return nil
}

// HasInput reports whether the configuration captures audio.
func (c DeviceConfig) HasInput() bool {
	return c.InputDevice != NoDevice && c.NumInputChannels > 0
}

// HasOutput reports whether the configuration renders audio.
func (c DeviceConfig) HasOutput() bool {
	return c.OutputDevice != NoDevice && c.NumOutputChannels > 0
}

// BufferDuration is the wall-clock length of one callback buffer.
func (c DeviceConfig) BufferDuration() time.Duration {
	if c.SampleRate <= 0 {
		return 0
	}
	return time.Duration(c.NumFrames) * time.Second / time.Duration(c.SampleRate)
}

func (c DeviceConfig) String() string {
	return fmt.Sprintf("api=%q in=%q(%d) out=%q(%d) %d Hz %d frames",
		c.API, c.InputDevice, c.NumInputChannels, c.OutputDevice, c.NumOutputChannels,
		c.SampleRate, c.NumFrames)
}

// ConfigError reports a configuration value a backend cannot honour. It is
// returned before a stream starts and is never raised mid-stream.
type ConfigError struct {
	Field string
	Value any
	Err   error
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid %s %v: %v", e.Field, e.Value, e.Err)
}

func (e *ConfigError) Unwrap() error { return e.Err }

// Supported reports whether v appears in the list of supported values.
func Supported[T comparable](supported []T, v T) bool {
	return slices.Contains(supported, v)
}
