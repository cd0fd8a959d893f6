// SPDX-License-Identifier: MIT
package meter

import (
	"math"
	"testing"

	"rtaudio/pkg/interleaved"
)

func collect() (*[]Level, func(Level)) {
	var got []Level
	return &got, func(l Level) { got = append(got, l) }
}

func near(a, b float32) bool {
	return math.Abs(float64(a-b)) < 1e-4
}

func TestSilenceReportsFloor(t *testing.T) {
	got, report := collect()
	m := New(report)
	m.Prepare(1000, 64, 10) // 10 sample window

	m.Process(make([]float32, 35))
	if len(*got) != 3 {
		t.Fatalf("reports = %d, want 3", len(*got))
	}
	for i, l := range *got {
		if l.PeakDB != MinusInfDB || l.RMSDB != MinusInfDB {
			t.Errorf("report %d = %+v, want both %v", i, l, MinusInfDB)
		}
	}
	if m.Pending() != 5 {
		t.Errorf("Pending() = %d, want 5", m.Pending())
	}
}

func TestConstantAmplitude(t *testing.T) {
	for _, a := range []float32{1, 0.5, 0.1, 0.001} {
		got, report := collect()
		m := New(report)
		m.Prepare(48000, 512, 1)

		buf := make([]float32, m.Window())
		for i := range buf {
			// Alternate sign, the level depends on magnitude only.
			if i%2 == 0 {
				buf[i] = a
			} else {
				buf[i] = -a
			}
		}
		m.Process(buf)

		if len(*got) != 1 {
			t.Fatalf("A=%v: reports = %d, want 1", a, len(*got))
		}
		want := float32(20 * math.Log10(float64(a)))
		l := (*got)[0]
		if !near(l.PeakDB, want) || !near(l.RMSDB, want) {
			t.Errorf("A=%v: got %+v, want %v for both", a, l, want)
		}
	}
}

func TestWindowCadenceAcrossCallbacks(t *testing.T) {
	got, report := collect()
	m := New(report)
	m.Prepare(44100, 128, 10) // round(441) samples

	if m.Window() != 441 {
		t.Fatalf("Window() = %d, want 441", m.Window())
	}
	if m.Capacity() < m.Window()+128 {
		t.Errorf("Capacity() = %d, want at least %d", m.Capacity(), m.Window()+128)
	}

	block := make([]float32, 128)
	for range 100 {
		m.Process(block)
	}
	if want := 100 * 128 / 441; len(*got) != want {
		t.Errorf("reports = %d, want %d", len(*got), want)
	}
	if m.Pending() != 100*128%441 {
		t.Errorf("Pending() = %d, want %d", m.Pending(), 100*128%441)
	}
}

func TestWindowAtLeastOneSample(t *testing.T) {
	got, report := collect()
	m := New(report)
	m.Prepare(100, 4, 1) // 0.1 samples rounds to zero
	if m.Window() != 1 {
		t.Fatalf("Window() = %d, want 1", m.Window())
	}
	m.Process([]float32{0.5, 0, 1})
	if len(*got) != 3 {
		t.Errorf("reports = %d, want 3", len(*got))
	}
}

func TestPeakAndRMSDiffer(t *testing.T) {
	got, report := collect()
	m := New(report)
	m.Prepare(1000, 0, 4)

	m.Process([]float32{1, 0, 0, 0})
	l := (*got)[0]
	if !near(l.PeakDB, 0) {
		t.Errorf("PeakDB = %v, want 0", l.PeakDB)
	}
	// rms = sqrt(1/4) = 0.5
	if !near(l.RMSDB, ToDB(0.5)) {
		t.Errorf("RMSDB = %v, want %v", l.RMSDB, ToDB(0.5))
	}
}

func TestProcessChannel(t *testing.T) {
	got, report := collect()
	m := New(report)
	m.Prepare(1000, 8, 4)

	// Channel 0 carries 0.5, channel 1 carries silence.
	data := []float32{0.5, 0, 0.5, 0, 0.5, 0, 0.5, 0}
	in := interleaved.NewInput(data, 2)
	m.ProcessChannel(in, 0)
	m.ProcessChannel(in, 5)

	if len(*got) != 1 || !near((*got)[0].PeakDB, ToDB(0.5)) {
		t.Errorf("ProcessChannel reports = %+v", *got)
	}
}

func TestResetDropsPending(t *testing.T) {
	got, report := collect()
	m := New(report)
	m.Prepare(1000, 8, 10)
	m.Process(make([]float32, 9))
	m.Reset()
	m.Process(make([]float32, 9))
	if len(*got) != 0 {
		t.Errorf("Reset should drop pending samples, got %d reports", len(*got))
	}
}

func TestUnpreparedMeterIgnoresInput(t *testing.T) {
	m := New(nil)
	m.Process([]float32{1, 2, 3})
	if m.Pending() != 0 {
		t.Errorf("Pending() = %d, want 0", m.Pending())
	}
}

func TestToDB(t *testing.T) {
	tests := []struct {
		in   float32
		want float32
	}{
		{0, MinusInfDB},
		{-1, MinusInfDB},
		{1, 0},
		{10, 20},
		{1e-9, MinusInfDB},
	}
	for _, tt := range tests {
		if got := ToDB(tt.in); !near(got, tt.want) {
			t.Errorf("ToDB(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestChanReporterDropsWhenFull(t *testing.T) {
	ch := make(chan Level, 1)
	report := ChanReporter(ch)
	report(Level{PeakDB: -1})
	report(Level{PeakDB: -2})

	if l := <-ch; l.PeakDB != -1 {
		t.Errorf("received %+v, want the first level", l)
	}
	select {
	case l := <-ch:
		t.Errorf("second level should have been dropped, got %+v", l)
	default:
	}
}

func TestLatest(t *testing.T) {
	l := NewLatest()
	if got := l.Load(); got.PeakDB != MinusInfDB || got.RMSDB != MinusInfDB {
		t.Errorf("initial Load() = %+v", got)
	}
	l.Report(Level{PeakDB: -3.5, RMSDB: -12.25})
	if got := l.Load(); got.PeakDB != -3.5 || got.RMSDB != -12.25 {
		t.Errorf("Load() = %+v", got)
	}
	if l.Count() != 1 {
		t.Errorf("Count() = %d, want 1", l.Count())
	}
}

func TestMeterHotPath(t *testing.T) {
	latest := NewLatest()
	ch := make(chan Level, 4)
	m := New(Tee(latest.Report, ChanReporter(ch)))
	m.Prepare(48000, 512, 5)

	data := make([]float32, 1024)
	for i := range data {
		data[i] = float32(math.Sin(float64(i) / 10))
	}
	in := interleaved.NewInput(data, 2)

	allocs := testing.AllocsPerRun(100, func() {
		m.Process(data[:512])
		m.ProcessChannel(in, 1)
	})

	if allocs > 0 {
		t.Errorf("Expected zero allocations in metering hot path, got %.1f", allocs)
	}
}

func BenchmarkProcess(b *testing.B) {
	m := New(NewLatest().Report)
	m.Prepare(48000, 512, 50)
	block := make([]float32, 512)
	b.ReportAllocs()
	for b.Loop() {
		m.Process(block)
	}
}
