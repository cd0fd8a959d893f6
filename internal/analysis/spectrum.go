// SPDX-License-Identifier: MIT
/*
Package analysis measures the level of fixed frequency bands on the audio
thread.

An Analyzer collects FFTSize samples of one channel, windows them, runs a real
FFT and reports the peak amplitude of each band in dBFS. Blocks do not
overlap, so reports arrive every FFTSize samples. All buffers are allocated by
New; Process performs no allocation.
*/
package analysis

import (
	"errors"
	"fmt"
	"math"
	"math/cmplx"

	"gonum.org/v1/gonum/dsp/fourier"

	"rtaudio/pkg/bitint"
	"rtaudio/pkg/interleaved"
	"rtaudio/pkg/meter"
)

// DefaultFFTSize gives ~23 Hz resolution at 48 kHz.
const DefaultFFTSize = 2048

// ErrFFTSize is returned for sizes that are not a power of two >= 64.
var ErrFFTSize = errors.New("fft size must be a power of two >= 64")

// Band is a named frequency range [LowHz, HighHz).
type Band struct {
	Name   string
	LowHz  float64
	HighHz float64
}

// NumBands is the number of analysed bands.
const NumBands = 6

// StandardBands are the analysed ranges. The last band extends to Nyquist.
var StandardBands = [NumBands]Band{
	{"sub", 20, 60},
	{"bass", 60, 250},
	{"low_mid", 250, 500},
	{"mid", 500, 2000},
	{"high_mid", 2000, 4000},
	{"treble", 4000, math.Inf(1)},
}

// Bands holds one level per StandardBands entry, in dBFS.
type Bands [NumBands]float32

// Map returns the levels keyed by band name.
func (b Bands) Map() map[string]float32 {
	m := make(map[string]float32, NumBands)
	for i, band := range StandardBands {
		m[band.Name] = b[i]
	}
	return m
}

// Analyzer computes band levels.
type Analyzer struct {
	fft    *fourier.FFT
	size   int
	report func(Bands)

	window []float64
	gain   float64 // 2 / sum(window): bin magnitude to sine amplitude
	input  []float64
	coeffs []complex128
	fill   int

	// bins[i] is the [lo, hi) bin range of band i.
	bins [NumBands][2]int
}

// New returns an analyzer with fftSize points. report runs on the audio
// thread and must not block; nil discards reports.
func New(fftSize int, w WindowFunc, report func(Bands)) (*Analyzer, error) {
	if fftSize < 64 || !bitint.IsPowerOfTwo(fftSize) {
		return nil, fmt.Errorf("%w, got %d", ErrFFTSize, fftSize)
	}
	if report == nil {
		report = func(Bands) {}
	}

	coeffs := windowCoefficients(fftSize, w)
	var sum float64
	for _, c := range coeffs {
		sum += c
	}

	return &Analyzer{
		fft:    fourier.NewFFT(fftSize),
		size:   fftSize,
		report: report,
		window: coeffs,
		gain:   2 / sum,
		input:  make([]float64, fftSize),
		coeffs: make([]complex128, fftSize/2+1),
	}, nil
}

// Prepare maps the bands onto FFT bins for sampleRate and clears any
// partial block.
func (a *Analyzer) Prepare(sampleRate int) {
	nyquistBin := a.size / 2
	binOf := func(hz float64) int {
		if math.IsInf(hz, 1) {
			return nyquistBin + 1
		}
		bin := int(math.Ceil(hz * float64(a.size) / float64(sampleRate)))
		return min(max(bin, 0), nyquistBin+1)
	}
	for i, band := range StandardBands {
		a.bins[i] = [2]int{binOf(band.LowHz), binOf(band.HighHz)}
	}
	a.Reset()
}

// Reset discards the partial block.
func (a *Analyzer) Reset() {
	a.fill = 0
}

// FFTSize returns the number of points per analysis.
func (a *Analyzer) FFTSize() int { return a.size }

// FrequencyForBin returns the centre frequency of bin i.
func (a *Analyzer) FrequencyForBin(i int, sampleRate int) float64 {
	if i < 0 || i >= len(a.coeffs) {
		return 0
	}
	return a.fft.Freq(i) * float64(sampleRate)
}

// Process feeds mono samples.
func (a *Analyzer) Process(samples []float32) {
	for _, s := range samples {
		a.push(s)
	}
}

// ProcessChannel feeds channel ch of an interleaved buffer.
func (a *Analyzer) ProcessChannel(in interleaved.Input, ch int) {
	step := in.NumChannels()
	if ch < 0 || ch >= step {
		return
	}
	data := in.Data()
	for i := ch; i < in.NumFrames()*step; i += step {
		a.push(data[i])
	}
}

func (a *Analyzer) push(s float32) {
	a.input[a.fill] = float64(s) * a.window[a.fill]
	a.fill++
	if a.fill == a.size {
		a.analyze()
		a.fill = 0
	}
}

func (a *Analyzer) analyze() {
	a.fft.Coefficients(a.coeffs, a.input)

	var bands Bands
	for i, r := range a.bins {
		var peak float64
		for bin := r[0]; bin < r[1]; bin++ {
			peak = max(peak, cmplx.Abs(a.coeffs[bin]))
		}
		bands[i] = meter.ToDB(float32(peak * a.gain))
	}
	a.report(bands)
}

// ChanReporter returns a report function that try-sends to ch. Readings are
// dropped while ch is full.
func ChanReporter(ch chan<- Bands) func(Bands) {
	return func(b Bands) {
		select {
		case ch <- b:
		default:
		}
	}
}
