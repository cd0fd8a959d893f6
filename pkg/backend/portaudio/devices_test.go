// SPDX-License-Identifier: MIT
package portaudio

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	pa "github.com/gordonklaus/portaudio"

	"rtaudio/pkg/engine"
)

func fakeHost() (*pa.HostApiInfo, []*pa.DeviceInfo) {
	api := &pa.HostApiInfo{Name: "Core Audio"}
	mic := &pa.DeviceInfo{
		Index: 0, Name: "MacBook Pro Microphone", HostApi: api,
		MaxInputChannels: 1, DefaultSampleRate: 48000,
		DefaultLowInputLatency: 3 * time.Millisecond, DefaultHighInputLatency: 12 * time.Millisecond,
	}
	speakers := &pa.DeviceInfo{
		Index: 1, Name: "MacBook Pro Speakers", HostApi: api,
		MaxOutputChannels: 2, DefaultSampleRate: 48000,
		DefaultLowOutputLatency: 5 * time.Millisecond, DefaultHighOutputLatency: 15 * time.Millisecond,
	}
	iface := &pa.DeviceInfo{
		Index: 2, Name: "Scarlett 2i2 USB", HostApi: api,
		MaxInputChannels: 2, MaxOutputChannels: 2, DefaultSampleRate: 44100,
	}
	api.Devices = []*pa.DeviceInfo{mic, speakers, iface}
	api.DefaultInputDevice = mic
	api.DefaultOutputDevice = speakers
	return api, api.Devices
}

func TestHostDevices(t *testing.T) {
	_, infos := fakeHost()
	orig := paDevicesFunc
	defer func() { paDevicesFunc = orig }()
	paDevicesFunc = func() ([]*pa.DeviceInfo, error) { return infos, nil }

	devices, err := HostDevices()
	if err != nil {
		t.Fatalf("HostDevices error: %v", err)
	}
	if len(devices) != 3 {
		t.Fatalf("got %d devices, want 3", len(devices))
	}
	for i, d := range devices {
		if d.ID != i {
			t.Errorf("Device ID mismatch: got %d, want %d", d.ID, i)
		}
		if d.API != "Core Audio" {
			t.Errorf("Device %d API = %q", i, d.API)
		}
	}
	if devices[0].Kind() != "Input" || devices[1].Kind() != "Output" || devices[2].Kind() != "Input/Output" {
		t.Errorf("unexpected kinds: %s %s %s", devices[0].Kind(), devices[1].Kind(), devices[2].Kind())
	}

	var buf bytes.Buffer
	if err := ListDevices(&buf); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	for _, want := range []string{"[0] MacBook Pro Microphone (Input)", "Input latency: Low=3.00ms", "Output latency: Low=5.00ms"} {
		if !strings.Contains(out, want) {
			t.Errorf("ListDevices output missing %q:\n%s", want, out)
		}
	}
}

func TestHostDevices_paDevicesError(t *testing.T) {
	orig := paDevicesFunc
	defer func() { paDevicesFunc = orig }()
	paDevicesFunc = func() ([]*pa.DeviceInfo, error) {
		return nil, fmt.Errorf("mock error")
	}

	_, err := HostDevices()
	if err == nil || !strings.Contains(err.Error(), "mock error") {
		t.Errorf("expected mock error, got %v", err)
	}
}

func TestFindAPI(t *testing.T) {
	core, _ := fakeHost()
	jack := &pa.HostApiInfo{Name: "JACK Audio Connection Kit"}
	apis := []*pa.HostApiInfo{core, jack}

	if got, err := findAPI(apis, core, ""); err != nil || got != core {
		t.Errorf("findAPI(\"\") = %v, %v", got, err)
	}
	if got, err := findAPI(apis, core, "jack audio connection kit"); err != nil || got != jack {
		t.Errorf("findAPI(jack) = %v, %v", got, err)
	}
	if _, err := findAPI(apis, core, "ASIO"); !errors.Is(err, engine.ErrAPINotFound) {
		t.Errorf("findAPI(ASIO) error = %v, want ErrAPINotFound", err)
	}
	if _, err := findAPI(nil, nil, ""); !errors.Is(err, engine.ErrAPINotFound) {
		t.Errorf("findAPI without default error = %v, want ErrAPINotFound", err)
	}
}

func TestFindDevice(t *testing.T) {
	api, devs := fakeHost()

	tests := []struct {
		name    string
		device  engine.Device
		input   bool
		want    *pa.DeviceInfo
		wantErr bool
	}{
		{"none", engine.NoDevice, true, nil, false},
		{"default input", engine.DefaultDevice, true, devs[0], false},
		{"default output", engine.DefaultDevice, false, devs[1], false},
		{"exact", "Scarlett 2i2 USB", true, devs[2], false},
		{"substring", "scarlett", false, devs[2], false},
		{"substring skips wrong direction", "macbook", false, devs[1], false},
		{"missing", "Focusrite", true, nil, true},
		{"output-only device as input", "Speakers", true, nil, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := findDevice(api, tt.device, tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("findDevice(%q) error = %v, wantErr %v", tt.device, err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, engine.ErrDeviceNotFound) {
				t.Errorf("error %v does not wrap ErrDeviceNotFound", err)
			}
			if got != tt.want {
				t.Errorf("findDevice(%q) = %v, want %v", tt.device, got, tt.want)
			}
		})
	}
}

func TestDeviceNames(t *testing.T) {
	api, _ := fakeHost()
	in := deviceNames(api, true)
	out := deviceNames(api, false)
	if len(in) != 2 || in[0] != "MacBook Pro Microphone" {
		t.Errorf("input names = %v", in)
	}
	if len(out) != 2 || out[1] != "Scarlett 2i2 USB" {
		t.Errorf("output names = %v", out)
	}
	if deviceNames(nil, true) != nil {
		t.Error("nil API should have no devices")
	}
}
