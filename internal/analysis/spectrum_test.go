// SPDX-License-Identifier: MIT
package analysis

import (
	"errors"
	"testing"

	"rtaudio/internal/testutil"
	"rtaudio/pkg/interleaved"
)

func newAnalyzer(t *testing.T, report func(Bands)) *Analyzer {
	t.Helper()
	a, err := New(DefaultFFTSize, Hann, report)
	if err != nil {
		t.Fatal(err)
	}
	a.Prepare(48000)
	return a
}

func TestSineLandsInItsBand(t *testing.T) {
	var got []Bands
	a := newAnalyzer(t, func(b Bands) { got = append(got, b) })

	a.Process(testutil.Sine(DefaultFFTSize, 1, 48000, 1000, 0.5))
	if len(got) != 1 {
		t.Fatalf("got %d reports, want 1", len(got))
	}

	levels := got[0].Map()
	// 0.5 is -6 dB; the tone falls between bins so allow for scalloping.
	if mid := levels["mid"]; mid < -8 || mid > -5.5 {
		t.Errorf("mid = %.2f dB, want about -6", mid)
	}
	for _, name := range []string{"sub", "bass", "low_mid"} {
		if levels[name] > -40 {
			t.Errorf("%s = %.2f dB, want below -40", name, levels[name])
		}
	}
}

func TestPartialBlockDoesNotReport(t *testing.T) {
	reports := 0
	a := newAnalyzer(t, func(Bands) { reports++ })

	a.Process(make([]float32, DefaultFFTSize-1))
	if reports != 0 {
		t.Fatalf("reported after %d samples", DefaultFFTSize-1)
	}

	a.Reset()
	a.Process(make([]float32, 1))
	if reports != 0 {
		t.Error("Reset did not drop the partial block")
	}
	a.Process(make([]float32, DefaultFFTSize-1))
	if reports != 1 {
		t.Errorf("reports = %d, want 1", reports)
	}
}

func TestProcessChannel(t *testing.T) {
	var last Bands
	a := newAnalyzer(t, func(b Bands) { last = b })

	// Channel 1 carries the tone, channel 0 is silent.
	mono := testutil.Sine(DefaultFFTSize, 1, 48000, 1000, 0.5)
	stereo := make([]float32, 2*len(mono))
	for i, s := range mono {
		stereo[2*i+1] = s
	}
	in := interleaved.NewInput(stereo, 2)

	a.ProcessChannel(in, 0)
	if last.Map()["mid"] > -90 {
		t.Errorf("silent channel mid = %.2f dB", last.Map()["mid"])
	}
	a.ProcessChannel(in, 1)
	if last.Map()["mid"] < -8 {
		t.Errorf("tone channel mid = %.2f dB", last.Map()["mid"])
	}

	before := last
	a.ProcessChannel(in, 5)
	a.ProcessChannel(in, -1)
	if last != before {
		t.Error("out of range channel was analysed")
	}
}

func TestProcessChannelIgnoresPartialFrame(t *testing.T) {
	reports := 0
	a := newAnalyzer(t, func(Bands) { reports++ })

	// 2048 stereo frames plus one dangling sample.
	in := interleaved.NewInput(make([]float32, 2*DefaultFFTSize+1), 2)
	a.ProcessChannel(in, 0)
	if reports != 1 {
		t.Fatalf("reports = %d, want 1", reports)
	}

	// A full block is still needed for the next report.
	a.Process(make([]float32, DefaultFFTSize-1))
	if reports != 1 {
		t.Errorf("partial frame was analysed: reports = %d, want 1", reports)
	}
}

func TestNewRejectsBadSizes(t *testing.T) {
	for _, size := range []int{0, 32, 1000, 3000} {
		if _, err := New(size, Hann, nil); !errors.Is(err, ErrFFTSize) {
			t.Errorf("New(%d) error = %v, want ErrFFTSize", size, err)
		}
	}
	a, err := New(64, Blackman, nil)
	if err != nil {
		t.Fatal(err)
	}
	if a.FFTSize() != 64 {
		t.Errorf("FFTSize() = %d", a.FFTSize())
	}
	if hz := a.FrequencyForBin(1, 48000); hz != 750 {
		t.Errorf("FrequencyForBin(1) = %v, want 750", hz)
	}
	if hz := a.FrequencyForBin(33, 48000); hz != 0 {
		t.Errorf("FrequencyForBin past Nyquist = %v, want 0", hz)
	}
}

func TestParseWindowFunc(t *testing.T) {
	tests := []struct {
		name    string
		want    WindowFunc
		wantErr bool
	}{
		{"hann", Hann, false},
		{"Hanning", Hann, false},
		{" Blackman ", Blackman, false},
		{"blackmannuttall", BlackmanNuttall, false},
		{"HAMMING", Hamming, false},
		{"nuttall", Nuttall, false},
		{"square", Hann, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseWindowFunc(tt.name)
			if (err != nil) != tt.wantErr {
				t.Fatalf("error = %v, wantErr %t", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
	if s := WindowFunc(42).String(); s != "WindowFunc(42)" {
		t.Errorf("String() = %q", s)
	}
}

func TestChanReporterDrops(t *testing.T) {
	ch := make(chan Bands, 1)
	report := ChanReporter(ch)
	report(Bands{1})
	report(Bands{2})

	if got := <-ch; got[0] != 1 {
		t.Errorf("received %v, want the first reading", got)
	}
	select {
	case b := <-ch:
		t.Errorf("second reading should have been dropped, got %v", b)
	default:
	}
}

func TestProcessHotPath(t *testing.T) {
	a := newAnalyzer(t, ChanReporter(make(chan Bands, 1)))
	block := testutil.Sine(512, 2, 48000, 440, 0.5)
	in := interleaved.NewInput(block, 2)

	allocs := testing.AllocsPerRun(100, func() {
		a.ProcessChannel(in, 0)
	})
	if allocs > 0 {
		t.Errorf("Expected zero allocations in analyzer hot path, got %.1f", allocs)
	}
}

func BenchmarkProcess(b *testing.B) {
	a, err := New(DefaultFFTSize, Hann, nil)
	if err != nil {
		b.Fatal(err)
	}
	a.Prepare(48000)
	block := testutil.Sine(512, 1, 48000, 440, 0.5)

	for b.Loop() {
		a.Process(block)
	}
}
