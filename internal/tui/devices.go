// SPDX-License-Identifier: MIT
package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"rtaudio/pkg/backend/portaudio"
)

// DeviceListModel represents the Bubble Tea model for browsing audio devices.
type DeviceListModel struct {
	fetch         func() ([]portaudio.Device, error)
	devices       []portaudio.Device
	selectedIndex int
	viewport      viewport.Model
	ready         bool
	err           error
}

type devicesMsg struct {
	devices []portaudio.Device
}

type errMsg struct {
	err error
}

var (
	upKey   = key.NewBinding(key.WithKeys("up", "k"))
	downKey = key.NewBinding(key.WithKeys("down", "j"))
	quitKey = key.NewBinding(key.WithKeys("q", "ctrl+c", "esc"))
)

// NewDeviceListModel creates a device list fed by fetch, normally
// portaudio.HostDevices.
func NewDeviceListModel(fetch func() ([]portaudio.Device, error)) DeviceListModel {
	return DeviceListModel{fetch: fetch}
}

// Init fetches the device list.
func (m DeviceListModel) Init() tea.Cmd {
	fetch := m.fetch
	return func() tea.Msg {
		devices, err := fetch()
		if err != nil {
			return errMsg{err}
		}
		return devicesMsg{devices}
	}
}

// Update handles input and updates the model
func (m DeviceListModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		if !m.ready {
			m.viewport = viewport.New(msg.Width, msg.Height-4)
			m.ready = true
		} else {
			m.viewport.Width = msg.Width
			m.viewport.Height = msg.Height - 4
		}
		m.viewport.SetContent(m.renderDevices())

	case devicesMsg:
		m.devices = msg.devices
		m.viewport.SetContent(m.renderDevices())

	case errMsg:
		m.err = msg.err

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, quitKey):
			return m, tea.Quit
		case key.Matches(msg, upKey):
			if m.selectedIndex > 0 {
				m.selectedIndex--
				m.viewport.SetContent(m.renderDevices())
			}
			return m, nil
		case key.Matches(msg, downKey):
			if m.selectedIndex < len(m.devices)-1 {
				m.selectedIndex++
				m.viewport.SetContent(m.renderDevices())
			}
			return m, nil
		}
	}

	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

// Selected returns the highlighted device.
func (m DeviceListModel) Selected() (portaudio.Device, bool) {
	if m.selectedIndex >= len(m.devices) {
		return portaudio.Device{}, false
	}
	return m.devices[m.selectedIndex], true
}

// View renders the UI
func (m DeviceListModel) View() string {
	if m.err != nil {
		return errorStyle.Render(fmt.Sprintf("Error: %v", m.err)) + "\n\nPress q to exit."
	}
	if !m.ready {
		return "Initializing..."
	}

	title := titleStyle.Render("Audio Devices")
	help := infoStyle.Render("↑/↓: Navigate • q: Quit")
	return fmt.Sprintf("%s\n\n%s\n\n%s", title, m.viewport.View(), help)
}

// renderDevices formats the device list
func (m DeviceListModel) renderDevices() string {
	if len(m.devices) == 0 {
		return "No audio devices found."
	}

	var sb strings.Builder
	for i, d := range m.devices {
		info := fmt.Sprintf("[%d] %s (%s) via %s\n", d.ID, d.Name, d.Kind(), d.API)
		info += fmt.Sprintf("    Input channels: %d, Output channels: %d\n",
			d.MaxInputChannels, d.MaxOutputChannels)
		info += fmt.Sprintf("    Default sample rate: %.0f Hz\n", d.DefaultSampleRate)
		if i == m.selectedIndex {
			info += fmt.Sprintf("    Latency (low/high): in %.1f/%.1f ms, out %.1f/%.1f ms\n",
				ms(d.LowInputLatency), ms(d.HighInputLatency),
				ms(d.LowOutputLatency), ms(d.HighOutputLatency))
			info = highlightStyle.Render(info)
		}
		sb.WriteString(info)
		sb.WriteString("\n")
	}
	return sb.String()
}

func ms(d time.Duration) float64 { return d.Seconds() * 1000 }

// StartDeviceListUI launches the device browser.
func StartDeviceListUI() error {
	p := tea.NewProgram(
		NewDeviceListModel(portaudio.HostDevices),
		tea.WithAltScreen(),
	)
	_, err := p.Run()
	return err
}
