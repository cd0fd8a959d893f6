// SPDX-License-Identifier: MIT
/*
Package meter measures trailing-window loudness on the audio thread.

A Meter collects samples into a ring sized during Prepare. Each time a full
window has accumulated, the window is consumed, its peak and RMS levels are
converted to decibels and handed to a report function. The report function
runs on the audio thread and must not block: ChanReporter and Latest provide
the two common non-blocking shapes (try-send and atomic store).

A signal of all zeros reports MinusInfDB rather than negative infinity.
*/
package meter

import (
	"math"

	"rtaudio/pkg/bitint"
	"rtaudio/pkg/interleaved"
)

// MinusInfDB is the floor used for silence.
const MinusInfDB float32 = -100

// DefaultWindowMs is the window length used when Prepare is given zero.
const DefaultWindowMs = 50

// Level is one window's measurement.
type Level struct {
	PeakDB float32 `json:"peak_db"`
	RMSDB  float32 `json:"rms_db"`
}

// ToDB converts a linear amplitude to decibels, floored at MinusInfDB.
func ToDB(linear float32) float32 {
	if linear <= 0 {
		return MinusInfDB
	}
	db := float32(20 * math.Log10(float64(linear)))
	return max(db, MinusInfDB)
}

// Meter is owned by the audio callback. Prepare must be called from the
// control path before the first Process.
type Meter struct {
	report func(Level)

	ring   []float32
	mask   int
	head   int
	length int
	window int
}

// New creates a meter that delivers levels to report. A nil report discards
// them.
func New(report func(Level)) *Meter {
	if report == nil {
		report = func(Level) {}
	}
	return &Meter{report: report}
}

// Prepare sizes the window to round(sampleRate*windowMs/1000) samples, at
// least one, and reserves the ring. It may allocate.
func (m *Meter) Prepare(sampleRate, maxFrames, windowMs int) {
	if windowMs <= 0 {
		windowMs = DefaultWindowMs
	}
	window := int(math.Round(float64(sampleRate) * float64(windowMs) / 1000))
	m.window = max(window, 1)

	size := bitint.NextPowerOfTwo(m.window + max(maxFrames, 0))
	if cap(m.ring) < size {
		m.ring = make([]float32, size)
	} else {
		m.ring = m.ring[:size]
	}
	m.mask = bitint.Mask(size)
	m.Reset()
}

// Reset drops pending samples. Call it between streams.
func (m *Meter) Reset() {
	m.head = 0
	m.length = 0
}

// Window returns the window length in samples.
func (m *Meter) Window() int { return m.window }

// Pending returns the number of samples waiting for a complete window.
func (m *Meter) Pending() int { return m.length }

// Capacity returns the reserved ring size.
func (m *Meter) Capacity() int { return len(m.ring) }

// Process appends samples, reporting once per completed window.
func (m *Meter) Process(samples []float32) {
	if m.window == 0 {
		return
	}
	for _, s := range samples {
		m.push(s)
	}
}

// ProcessChannel appends the samples of one channel of an interleaved view.
func (m *Meter) ProcessChannel(in interleaved.Input, ch int) {
	if m.window == 0 || ch < 0 || ch >= in.NumChannels() {
		return
	}
	data := in.Data()
	stride := in.NumChannels()
	for i := ch; i < in.NumFrames()*stride; i += stride {
		m.push(data[i])
	}
}

func (m *Meter) push(s float32) {
	m.ring[(m.head+m.length)&m.mask] = s
	m.length++
	if m.length >= m.window {
		m.flush()
	}
}

// flush pops exactly one window and reports it.
func (m *Meter) flush() {
	var peak float32
	var sum float64
	for i := range m.window {
		s := m.ring[(m.head+i)&m.mask]
		if s < 0 {
			s = -s
		}
		peak = max(peak, s)
		sum += float64(s) * float64(s)
	}
	m.head = (m.head + m.window) & m.mask
	m.length -= m.window

	rms := float32(math.Sqrt(sum / float64(m.window)))
	m.report(Level{PeakDB: ToDB(peak), RMSDB: ToDB(rms)})
}
