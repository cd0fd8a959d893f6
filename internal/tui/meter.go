// SPDX-License-Identifier: MIT
package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"rtaudio/pkg/meter"
	"rtaudio/pkg/smooth"
)

const (
	// RefreshRate is the number of frames drawn per second.
	RefreshRate = 60
	// FloorDB is the level shown as an empty bar.
	FloorDB = -60
	// GainStep is the gain change per key press.
	GainStep = 0.1

	defaultBarWidth = 50
	smoothingMs     = 100
	maxGain         = 10
)

type meterKeyMap struct {
	Toggle   key.Binding
	GainUp   key.Binding
	GainDown key.Binding
	Mute     key.Binding
	Quit     key.Binding
}

func (k meterKeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Toggle, k.GainUp, k.GainDown, k.Mute, k.Quit}
}

func (k meterKeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{k.ShortHelp()}
}

var meterKeys = meterKeyMap{
	Toggle:   key.NewBinding(key.WithKeys(" "), key.WithHelp("space", "start/stop")),
	GainUp:   key.NewBinding(key.WithKeys("up", "k", "+"), key.WithHelp("↑/+", "gain up")),
	GainDown: key.NewBinding(key.WithKeys("down", "j", "-"), key.WithHelp("↓/-", "gain down")),
	Mute:     key.NewBinding(key.WithKeys("m"), key.WithHelp("m", "mute")),
	Quit:     key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
}

type frameMsg time.Time

// MeterModel is the Bubble Tea model of the level meter screen. The displayed
// levels are smoothed at the refresh rate so the bar does not flicker.
type MeterModel struct {
	title  string
	ctrl   Controller
	levels *meter.Latest
	peak   *smooth.Value
	rms    *smooth.Value
	keys   meterKeyMap
	help   help.Model

	gain  float32
	muted bool
	width int
	err   error
}

// NewMeterModel creates the meter screen. gain is the gain the processor
// currently applies.
func NewMeterModel(title string, ctrl Controller, levels *meter.Latest, gain float32) MeterModel {
	peak := smooth.New(FloorDB, smooth.Linear)
	peak.Prepare(RefreshRate, smoothingMs)
	rms := smooth.New(FloorDB, smooth.Linear)
	rms.Prepare(RefreshRate, smoothingMs)

	return MeterModel{
		title:  title,
		ctrl:   ctrl,
		levels: levels,
		peak:   peak,
		rms:    rms,
		keys:   meterKeys,
		help:   help.New(),
		gain:   gain,
		width:  defaultBarWidth,
	}
}

func frame() tea.Cmd {
	return tea.Tick(time.Second/RefreshRate, func(t time.Time) tea.Msg { return frameMsg(t) })
}

// Init starts the refresh ticker.
func (m MeterModel) Init() tea.Cmd {
	return frame()
}

// Update handles refresh ticks and key presses.
func (m MeterModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = max(msg.Width-20, 10)
		m.help.Width = msg.Width

	case frameMsg:
		m.advance()
		return m, frame()

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Quit):
			return m, tea.Quit
		case key.Matches(msg, m.keys.Toggle):
			_, m.err = m.ctrl.Toggle()
		case key.Matches(msg, m.keys.GainUp):
			m.setGain(m.gain + GainStep)
		case key.Matches(msg, m.keys.GainDown):
			m.setGain(m.gain - GainStep)
		case key.Matches(msg, m.keys.Mute):
			m.muted = !m.muted
			m.err = m.ctrl.Mute(m.muted)
		}
	}
	return m, nil
}

// advance moves the displayed levels one frame towards the latest reading.
// A stopped stream decays to the floor.
func (m *MeterModel) advance() {
	level := meter.Level{PeakDB: FloorDB, RMSDB: FloorDB}
	if m.ctrl.Running() {
		level = m.levels.Load()
	}
	if target := max(level.PeakDB, FloorDB); target != m.peak.Target() {
		m.peak.SetTargetValue(target)
	}
	if target := max(level.RMSDB, FloorDB); target != m.rms.Target() {
		m.rms.SetTargetValue(target)
	}
	m.peak.NextValue()
	m.rms.NextValue()
}

func (m *MeterModel) setGain(g float32) {
	g = min(max(g, 0), maxGain)
	// Round away float drift from repeated steps.
	g = float32(int(g/GainStep+0.5)) * GainStep
	m.gain = g
	m.err = m.ctrl.SetGain(g)
}

// Gain returns the gain last requested.
func (m MeterModel) Gain() float32 { return m.gain }

// Levels returns the displayed, smoothed peak and RMS levels in dB.
func (m MeterModel) Levels() (peakDB, rmsDB float32) {
	return m.peak.Current(), m.rms.Current()
}

// View renders the UI
func (m MeterModel) View() string {
	var sb strings.Builder

	sb.WriteString(titleStyle.Render(m.title))
	sb.WriteString("\n\n")

	status := dimStyle.Render("stopped")
	if m.ctrl.Running() {
		status = highlightStyle.Render("running")
	}
	fmt.Fprintf(&sb, "%s  gain %.1f", status, m.gain)
	if m.muted {
		sb.WriteString("  " + errorStyle.Render("MUTED"))
	}
	sb.WriteString("\n\n")

	peak, rms := m.Levels()
	fmt.Fprintf(&sb, "peak %s %6.1f dB\n", bar(peak, m.width), peak)
	fmt.Fprintf(&sb, "rms  %s %6.1f dB\n", bar(rms, m.width), rms)

	if m.err != nil {
		sb.WriteString("\n" + errorStyle.Render("Error: "+m.err.Error()) + "\n")
	}

	sb.WriteString("\n" + infoStyle.Render(m.help.View(m.keys)))
	return sb.String()
}

// bar draws db on a FloorDB..0 scale. The last sixth of the scale is
// highlighted.
func bar(db float32, width int) string {
	frac := (db - FloorDB) / -FloorDB
	frac = min(max(frac, 0), 1)
	filled := int(frac*float32(width) + 0.5)
	hot := width * 5 / 6

	cool := min(filled, hot)
	var sb strings.Builder
	sb.WriteString(barStyle.Render(strings.Repeat("█", cool)))
	if filled > hot {
		sb.WriteString(hotBarStyle.Render(strings.Repeat("█", filled-hot)))
	}
	sb.WriteString(dimStyle.Render(strings.Repeat("░", width-filled)))
	return sb.String()
}

// RunMeter launches the meter screen and blocks until the user quits.
func RunMeter(m MeterModel) error {
	_, err := tea.NewProgram(m, tea.WithAltScreen()).Run()
	return err
}
