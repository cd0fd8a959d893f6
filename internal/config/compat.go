// SPDX-License-Identifier: MIT
package config

import (
	"rtaudio/internal/log"
	"rtaudio/pkg/engine"
)

// DeviceConfig converts the audio section into the configuration requested
// from a backend.
func (c *Config) DeviceConfig() engine.DeviceConfig {
	return engine.DeviceConfig{
		API:               c.Audio.API,
		InputDevice:       device(c.Audio.InputDevice, c.Audio.InputChannels),
		OutputDevice:      device(c.Audio.OutputDevice, c.Audio.OutputChannels),
		NumInputChannels:  c.Audio.InputChannels,
		NumOutputChannels: c.Audio.OutputChannels,
		SampleRate:        c.Audio.SampleRate,
		NumFrames:         c.Audio.FramesPerBuffer,
	}
}

func device(name string, channels int) engine.Device {
	switch {
	case channels == 0 || name == NoDevice:
		return engine.NoDevice
	case name == "" || name == DefaultDevice:
		return engine.DefaultDevice
	default:
		return engine.Device(name)
	}
}

// Level returns the effective log level. Debug forces LevelDebug.
func (c *Config) Level() log.LogLevel {
	if c.Debug {
		return log.LevelDebug
	}
	level, _ := log.ParseLevel(c.LogLevel)
	return level
}
