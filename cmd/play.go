// SPDX-License-Identifier: MIT
package cmd

import (
	"context"
	"errors"
	"time"

	"github.com/spf13/cobra"

	"rtaudio/internal/log"
	"rtaudio/internal/processors/player"
	"rtaudio/pkg/backend/portaudio"
	"rtaudio/pkg/engine"
)

// normalizePeakDB is the peak level of normalised clips.
const normalizePeakDB = -1

func newPlayCommand(opts *options) *cobra.Command {
	var loop, normalize bool

	cmd := &cobra.Command{
		Use:   "play <file.wav>",
		Short: "Play a WAV file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.load(cmd)
			if err != nil {
				return err
			}

			clip, err := player.LoadWAV(args[0], player.LoadOptions{Normalize: normalize, PeakDB: normalizePeakDB})
			if err != nil {
				return err
			}

			dc := cfg.DeviceConfig()
			dc.InputDevice = engine.NoDevice
			dc.NumInputChannels = 0
			if !cmd.Flags().Changed("sample-rate") {
				dc.SampleRate = clip.SampleRate()
			}

			if err := portaudio.Initialize(); err != nil {
				return err
			}
			defer portaudio.Terminate()

			be, err := portaudio.New(dc, portaudio.Options{LowLatency: cfg.Audio.LowLatency})
			if err != nil {
				return err
			}
			return runPlayer(cmd.Context(), be, clip, cfg.Processing.Gain, loop)
		},
	}

	cmd.Flags().BoolVar(&loop, "loop", false, "Loop until interrupted")
	cmd.Flags().BoolVar(&normalize, "normalize", false, "Normalise the clip peak before playing")
	return cmd
}

// runPlayer plays clip on be until it ends, or until ctx is done when
// looping.
func runPlayer(ctx context.Context, be engine.Backend, clip *player.Clip, gain float32, loop bool) error {
	logger := log.New("play")
	progress := make(chan float32, 1)
	p := player.New(clip, progress)
	eng := engine.New[player.Message](be)

	if _, err := eng.StartAudio(p); err != nil {
		return err
	}

	start := player.Play()
	if loop {
		start = player.PlayLoop()
	}
	for _, msg := range []player.Message{player.Gain(gain), start} {
		if err := eng.SendMessage(msg); err != nil {
			return errors.Join(err, eng.StopAudio())
		}
	}
	logger.Infof("playing %d channels, %s", clip.NumChannels(), clip.Duration())

	// The final progress update can be dropped when the reader lags, so a
	// single play also ends once the clip has had time to finish.
	var timeout <-chan time.Time
	if !loop {
		rate := max(eng.Config().SampleRate, 1)
		length := time.Duration(clip.NumFrames()) * time.Second / time.Duration(rate)
		timer := time.NewTimer(length + time.Second)
		defer timer.Stop()
		timeout = timer.C
	}

	reported := -1
	for done := false; !done; {
		select {
		case <-ctx.Done():
			done = true
		case <-timeout:
			done = true
		case pos := <-progress:
			// Progress is only sent while playing, so 0 means the end.
			if pos == 0 && !loop {
				done = true
			} else if tenth := int(pos * 10); tenth != reported {
				reported = tenth
				logger.Debugf("%3d%%", tenth*10)
			}
		}
	}
	return eng.StopAudio()
}
