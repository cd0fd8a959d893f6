// SPDX-License-Identifier: MIT
package tui

import (
	"errors"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"rtaudio/pkg/backend/portaudio"
)

func TestDeviceList(t *testing.T) {
	devices := []portaudio.Device{
		{ID: 0, Name: "Built-in Mic", API: "Core Audio", MaxInputChannels: 2, DefaultSampleRate: 48000},
		{ID: 1, Name: "Speakers", API: "Core Audio", MaxOutputChannels: 2, DefaultSampleRate: 44100},
	}
	m := NewDeviceListModel(func() ([]portaudio.Device, error) { return devices, nil })

	var model tea.Model = m
	model, _ = model.Update(tea.WindowSizeMsg{Width: 80, Height: 40})
	model, _ = model.Update(m.Init()())
	model, _ = model.Update(tea.KeyMsg{Type: tea.KeyDown})

	dl := model.(DeviceListModel)
	sel, ok := dl.Selected()
	if !ok || sel.Name != "Speakers" {
		t.Errorf("Selected() = %+v, %t", sel, ok)
	}
	view := dl.View()
	for _, want := range []string{"Audio Devices", "Built-in Mic", "Speakers (Output)"} {
		if !strings.Contains(view, want) {
			t.Errorf("view missing %q", want)
		}
	}

	// Down at the end stays put.
	model, _ = model.Update(tea.KeyMsg{Type: tea.KeyDown})
	if sel, _ := model.(DeviceListModel).Selected(); sel.ID != 1 {
		t.Errorf("selection moved past the end to %d", sel.ID)
	}
}

func TestDeviceListError(t *testing.T) {
	m := NewDeviceListModel(func() ([]portaudio.Device, error) { return nil, errors.New("no host") })
	model, _ := m.Update(m.Init()())
	if !strings.Contains(model.View(), "no host") {
		t.Errorf("view = %q", model.View())
	}
}
