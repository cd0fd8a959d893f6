// SPDX-License-Identifier: MIT
package portaudio

import (
	"fmt"
	"io"
	"strings"
	"time"

	pa "github.com/gordonklaus/portaudio"

	"rtaudio/pkg/engine"
)

// Initialize sets up the PortAudio subsystem.
// This must be called before any audio operations and paired with a Terminate() call.
func Initialize() error {
	if err := pa.Initialize(); err != nil {
		return fmt.Errorf("failed to initialize PortAudio: %w", err)
	}
	return nil
}

// Terminate cleanly shuts down the PortAudio subsystem.
// This should be deferred immediately after Initialize().
func Terminate() error {
	if err := pa.Terminate(); err != nil {
		return fmt.Errorf("failed to terminate PortAudio: %w", err)
	}
	return nil
}

// Device describes one PortAudio device.
type Device struct {
	ID                int
	Name              string
	API               string
	MaxInputChannels  int
	MaxOutputChannels int
	DefaultSampleRate float64
	LowInputLatency   time.Duration
	HighInputLatency  time.Duration
	LowOutputLatency  time.Duration
	HighOutputLatency time.Duration
}

// Kind returns "Input", "Output" or "Input/Output".
func (d Device) Kind() string {
	switch {
	case d.MaxInputChannels > 0 && d.MaxOutputChannels > 0:
		return "Input/Output"
	case d.MaxInputChannels > 0:
		return "Input"
	case d.MaxOutputChannels > 0:
		return "Output"
	default:
		return "None"
	}
}

// paDevicesFunc lists the raw devices. Tests replace it.
var paDevicesFunc = pa.Devices

// HostDevices returns every device PortAudio knows about, across host APIs.
func HostDevices() ([]Device, error) {
	infos, err := paDevicesFunc()
	if err != nil {
		return nil, fmt.Errorf("list devices: %w", err)
	}
	devices := make([]Device, len(infos))
	for i, info := range infos {
		devices[i] = toDevice(i, info)
	}
	return devices, nil
}

func toDevice(id int, info *pa.DeviceInfo) Device {
	d := Device{
		ID:                id,
		Name:              info.Name,
		MaxInputChannels:  info.MaxInputChannels,
		MaxOutputChannels: info.MaxOutputChannels,
		DefaultSampleRate: info.DefaultSampleRate,
		LowInputLatency:   info.DefaultLowInputLatency,
		HighInputLatency:  info.DefaultHighInputLatency,
		LowOutputLatency:  info.DefaultLowOutputLatency,
		HighOutputLatency: info.DefaultHighOutputLatency,
	}
	if info.HostApi != nil {
		d.API = info.HostApi.Name
	}
	return d
}

// ListDevices writes a human readable device table to w.
func ListDevices(w io.Writer) error {
	devices, err := HostDevices()
	if err != nil {
		return err
	}

	fmt.Fprintf(w, "\nAvailable Audio Devices\n\n")
	for _, d := range devices {
		fmt.Fprintf(w, "[%d] %s (%s) via %s\n", d.ID, d.Name, d.Kind(), d.API)
		fmt.Fprintf(w, "    Input channels: %d, Output channels: %d\n", d.MaxInputChannels, d.MaxOutputChannels)
		fmt.Fprintf(w, "    Default sample rate: %.0f Hz\n", d.DefaultSampleRate)
		if d.MaxInputChannels > 0 {
			fmt.Fprintf(w, "    Input latency: Low=%.2fms, High=%.2fms\n",
				ms(d.LowInputLatency), ms(d.HighInputLatency))
		}
		if d.MaxOutputChannels > 0 {
			fmt.Fprintf(w, "    Output latency: Low=%.2fms, High=%.2fms\n",
				ms(d.LowOutputLatency), ms(d.HighOutputLatency))
		}
		fmt.Fprintln(w)
	}
	return nil
}

func ms(d time.Duration) float64 { return d.Seconds() * 1000 }

// findAPI returns the host API called name, case-insensitively. An empty
// name selects the default host API.
func findAPI(apis []*pa.HostApiInfo, def *pa.HostApiInfo, name string) (*pa.HostApiInfo, error) {
	if name == "" {
		if def == nil {
			return nil, &engine.ConfigError{Field: "api", Value: "default", Err: engine.ErrAPINotFound}
		}
		return def, nil
	}
	for _, api := range apis {
		if strings.EqualFold(api.Name, name) {
			return api, nil
		}
	}
	return nil, &engine.ConfigError{Field: "api", Value: name, Err: engine.ErrAPINotFound}
}

// findDevice resolves a device name within api. NoDevice yields nil,
// DefaultDevice yields the API default for the direction, anything else
// matches an exact name first and then a case-insensitive substring.
func findDevice(api *pa.HostApiInfo, name engine.Device, input bool) (*pa.DeviceInfo, error) {
	if name == engine.NoDevice {
		return nil, nil
	}

	field := "output device"
	channels := func(d *pa.DeviceInfo) int { return d.MaxOutputChannels }
	def := api.DefaultOutputDevice
	if input {
		field = "input device"
		channels = func(d *pa.DeviceInfo) int { return d.MaxInputChannels }
		def = api.DefaultInputDevice
	}

	if name == engine.DefaultDevice {
		if def == nil || channels(def) == 0 {
			return nil, &engine.ConfigError{Field: field, Value: name, Err: engine.ErrDeviceNotFound}
		}
		return def, nil
	}

	want := strings.ToLower(string(name))
	var partial *pa.DeviceInfo
	for _, d := range api.Devices {
		if channels(d) == 0 {
			continue
		}
		if d.Name == string(name) {
			return d, nil
		}
		if partial == nil && strings.Contains(strings.ToLower(d.Name), want) {
			partial = d
		}
	}
	if partial != nil {
		return partial, nil
	}
	return nil, &engine.ConfigError{Field: field, Value: name, Err: engine.ErrDeviceNotFound}
}

func deviceNames(api *pa.HostApiInfo, input bool) []string {
	if api == nil {
		return nil
	}
	var names []string
	for _, d := range api.Devices {
		if (input && d.MaxInputChannels > 0) || (!input && d.MaxOutputChannels > 0) {
			names = append(names, d.Name)
		}
	}
	return names
}
