// SPDX-License-Identifier: MIT
package config

import "time"

// Boundaries and defaults for the audio configuration.
const (
	DefaultAPI            = ""        // Host default API
	DefaultDevice         = "default" // Host default device
	NoDevice              = "none"    // Disables a direction
	DefaultSampleRate     = 48000
	DefaultFrames         = 512
	DefaultInputChannels  = 2
	DefaultOutputChannels = 2
	DefaultQueueCapacity  = 1024

	MinSampleRate   = 8000   // Minimum usable sample rate (Hz)
	MaxSampleRate   = 192000 // Maximum supported sample rate (Hz)
	MinBufferFrames = 16     // Smallest buffer a host reliably delivers
	MaxBufferFrames = 8192   // Maximum frames per buffer (power of 2)
	MaxChannels     = 64

	DefaultGain          = 1.0
	MaxGain              = 10.0
	DefaultGateThreshold = 0.001
	DefaultMeterWindowMs = 50
	MaxMeterWindowMs     = 5000
	DefaultWindow        = "hann"
	MaxFFTSize           = 16384

	DefaultBitDepth = 16

	DefaultWSAddress       = ":8080"
	DefaultUDPTarget       = "127.0.0.1:9090"
	DefaultUDPSendInterval = 33 * time.Millisecond // ~30Hz
)

// Environment variables that override file values.
const (
	EnvLogLevel        = "RTAUDIO_LOG_LEVEL"
	EnvDebug           = "RTAUDIO_DEBUG"
	EnvAPI             = "RTAUDIO_API"
	EnvInputDevice     = "RTAUDIO_INPUT_DEVICE"
	EnvOutputDevice    = "RTAUDIO_OUTPUT_DEVICE"
	EnvSampleRate      = "RTAUDIO_SAMPLE_RATE"
	EnvFrames          = "RTAUDIO_FRAMES"
	EnvSpectrum        = "RTAUDIO_SPECTRUM"
	EnvWSEnabled       = "RTAUDIO_WS_ENABLED"
	EnvWSAddress       = "RTAUDIO_WS_ADDRESS"
	EnvUDPEnabled      = "RTAUDIO_UDP_ENABLED"
	EnvUDPTarget       = "RTAUDIO_UDP_TARGET_ADDRESS"
	EnvUDPSendInterval = "RTAUDIO_UDP_SEND_INTERVAL"
)
