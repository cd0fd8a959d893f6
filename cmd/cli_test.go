// SPDX-License-Identifier: MIT
package cmd

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"rtaudio/internal/config"
	"rtaudio/internal/processors/feedback"
	"rtaudio/internal/processors/player"
	"rtaudio/internal/testutil"
	"rtaudio/internal/transport"
	"rtaudio/pkg/backend/offline"
	"rtaudio/pkg/engine"
)

// emptyConfig keeps tests independent of any config file in the working
// directory.
func emptyConfig(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "empty.yaml")
	if err := os.WriteFile(path, []byte("{}\n"), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := NewRootCommand()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func TestVersionCommand(t *testing.T) {
	out, err := execute(t, "version")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(out, "rtaudio ") {
		t.Errorf("version output = %q", out)
	}
}

func TestCommandTree(t *testing.T) {
	root := NewRootCommand()
	for _, name := range []string{"list", "feedback", "play", "render", "version"} {
		if c, _, err := root.Find([]string{name}); err != nil || c.Name() != name {
			t.Errorf("command %q not registered", name)
		}
	}
	for _, flag := range []string{"config", "api", "input", "output", "sample-rate", "frames", "gain", "log-level", "tui", "ws", "udp"} {
		if root.PersistentFlags().Lookup(flag) == nil {
			t.Errorf("flag --%s missing", flag)
		}
	}
}

func writeInput(t *testing.T, frames int, amp float32) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "in.wav")
	sink, err := offline.CreateWAV(path, 48000, 2, 16)
	if err != nil {
		t.Fatal(err)
	}
	if err := sink.Write(testutil.Sine(frames, 2, 48000, 440, amp)); err != nil {
		t.Fatal(err)
	}
	if err := sink.Close(); err != nil {
		t.Fatal(err)
	}
	return path
}

func readAll(t *testing.T, path string) []float32 {
	t.Helper()
	src, err := offline.OpenWAV(path, 0)
	if err != nil {
		t.Fatal(err)
	}
	defer src.Close()

	var all []float32
	buf := make([]float32, 1024)
	for {
		n, err := src.Read(buf)
		all = append(all, buf[:n]...)
		if err != nil {
			break
		}
	}
	return all
}

func TestRenderCommand(t *testing.T) {
	in := writeInput(t, 4800, 0.8)
	out := filepath.Join(t.TempDir(), "out.wav")

	_, err := execute(t, "render", in, out,
		"--config", emptyConfig(t), "--gain", "0.5", "--frames", "256", "--bit-depth", "24", "--spectrum", "hann")
	if err != nil {
		t.Fatal(err)
	}

	rendered := readAll(t, out)
	if len(rendered) < 4800*2 {
		t.Fatalf("rendered %d samples, want at least %d", len(rendered), 4800*2)
	}
	peak := testutil.Peak(rendered)
	if peak < 0.38 || peak > 0.42 {
		t.Errorf("rendered peak = %v, want ~0.4", peak)
	}
}

func TestRenderCommandErrors(t *testing.T) {
	cfg := emptyConfig(t)
	out := filepath.Join(t.TempDir(), "out.wav")

	if _, err := execute(t, "render", "missing.wav", out, "--config", cfg); err == nil {
		t.Error("render of a missing file should fail")
	}

	in := writeInput(t, 100, 0.5)
	_, err := execute(t, "render", in, out, "--config", cfg, "--sample-rate", "1")
	if !errors.Is(err, engine.ErrSampleRate) {
		t.Errorf("invalid sample rate error = %v", err)
	}

	if _, err := execute(t, "render", in, out, "--config", cfg, "--spectrum", "square"); err == nil {
		t.Error("render with an unknown spectrum window should fail")
	}

	if _, err := execute(t, "render", in); err == nil {
		t.Error("render with one argument should fail")
	}
}

type blockSink struct {
	mu      sync.Mutex
	samples []float32
}

func (s *blockSink) Write(block []float32) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.samples = append(s.samples, block...)
	return nil
}

func TestRunPlayer(t *testing.T) {
	ch := make([]float32, 20)
	for i := range ch {
		ch[i] = 0.5
	}
	clip, err := player.NewClip([][]float32{ch}, 1000)
	if err != nil {
		t.Fatal(err)
	}

	sink := &blockSink{}
	be := offline.New(offline.Options{
		Config: engine.DeviceConfig{
			OutputDevice:      engine.DefaultDevice,
			NumOutputChannels: 2,
			SampleRate:        1000,
			NumFrames:         8,
		},
		Realtime: true,
		Sink:     sink,
	})

	if err := runPlayer(context.Background(), be, clip, 0.5, false); err != nil {
		t.Fatal(err)
	}

	sink.mu.Lock()
	defer sink.mu.Unlock()

	// Blocks rendered before the Play message arrived are silent.
	start := 0
	for start < len(sink.samples) && sink.samples[start] == 0 {
		start++
	}
	played := sink.samples[start:]
	if len(played) < 40 {
		t.Fatalf("rendered %d samples of the clip", len(played))
	}
	for i, s := range played[:40] {
		if s != 0.25 {
			t.Fatalf("sample %d = %v, want 0.25", i, s)
		}
	}
	for i, s := range played[40:] {
		if s != 0 {
			t.Fatalf("sample %d after the clip = %v, want silence", 40+i, s)
		}
	}
}

func TestFeedbackMessages(t *testing.T) {
	be := testutil.NewBackend(engine.DefaultDeviceConfig())
	eng := engine.New[feedback.Message](be)
	if _, err := eng.StartAudio(feedback.New(nil, nil)); err != nil {
		t.Fatal(err)
	}
	defer eng.StopAudio()

	h := feedbackMessages(eng)
	for _, cmd := range []transport.Command{
		{Type: transport.TypeMessage, Name: "gain", Value: "0.5"},
		{Type: transport.TypeMessage, Name: "mute", Value: "true"},
	} {
		if _, err := h(cmd); err != nil {
			t.Errorf("%+v: %v", cmd, err)
		}
	}
	be.Tick(nil)
	if eng.Messages() != 2 {
		t.Errorf("engine drained %d messages, want 2", eng.Messages())
	}

	bad := []transport.Command{
		{Type: transport.TypeMessage, Name: "gain", Value: "loud"},
		{Type: transport.TypeMessage, Name: "gain", Value: "NaN"},
		{Type: transport.TypeMessage, Name: "gain", Value: "+Inf"},
		{Type: transport.TypeMessage, Name: "mute", Value: "maybe"},
		{Type: transport.TypeMessage, Name: "explode"},
		{Type: transport.TypeSet, Name: "gain", Value: "1"},
	}
	for _, cmd := range bad {
		if _, err := h(cmd); err == nil {
			t.Errorf("%+v: expected an error", cmd)
		}
	}
}

func TestFeedbackChainSpectrum(t *testing.T) {
	cfg := config.Default()
	cfg.Processing.Gain = 2
	c, err := newFeedbackChain(&cfg)
	if err != nil {
		t.Fatal(err)
	}
	if c.bands != nil {
		t.Error("spectrum disabled but a bands channel was created")
	}
	if c.params.Gain.Value() != 2 {
		t.Errorf("gain = %v, want 2", c.params.Gain.Value())
	}

	cfg.Processing.Spectrum = true
	cfg.Processing.FFTSize = 64
	c, err = newFeedbackChain(&cfg)
	if err != nil {
		t.Fatal(err)
	}
	dc := cfg.DeviceConfig()
	dc.NumFrames = 64
	be := testutil.NewBackend(dc)
	eng := engine.New[feedback.Message](be)
	if _, err := eng.StartAudio(c.proc); err != nil {
		t.Fatal(err)
	}
	be.Tick(testutil.Sine(64, 2, float64(dc.SampleRate), 1000, 0.5))
	if err := eng.StopAudio(); err != nil {
		t.Fatal(err)
	}
	select {
	case <-c.bands:
	default:
		t.Error("no band reading after a full block")
	}

	cfg.Processing.Window = "square"
	if _, err := newFeedbackChain(&cfg); err == nil {
		t.Error("unknown window should fail")
	}
}
