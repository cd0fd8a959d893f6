// SPDX-License-Identifier: MIT
package cmd

import (
	"context"
	"errors"

	"github.com/spf13/cobra"

	"rtaudio/internal/config"
	"rtaudio/internal/log"
	"rtaudio/internal/processors/feedback"
	"rtaudio/internal/transport"
	"rtaudio/pkg/backend/offline"
	"rtaudio/pkg/engine"
)

func newRenderCommand(opts *options) *cobra.Command {
	var (
		bitDepth int
		realtime bool
	)

	cmd := &cobra.Command{
		Use:   "render <in.wav> <out.wav>",
		Short: "Process a WAV file through the feedback chain without a sound card",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.load(cmd)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("bit-depth") {
				cfg.Recording.BitDepth = bitDepth
			}
			return runRender(cmd.Context(), cfg, args[0], args[1], realtime)
		},
	}

	cmd.Flags().IntVar(&bitDepth, "bit-depth", config.DefaultBitDepth, "Output bit depth: 16, 24 or 32")
	cmd.Flags().BoolVar(&realtime, "realtime", false, "Pace blocks at the buffer duration")
	return cmd
}

func runRender(ctx context.Context, cfg *config.Config, inPath, outPath string, realtime bool) (err error) {
	logger := log.New("render")

	// Input channels follow the file.
	src, err := offline.OpenWAV(inPath, 0)
	if err != nil {
		return err
	}
	defer func() { err = errors.Join(err, src.Close()) }()

	dc := cfg.DeviceConfig()
	if dc.SampleRate != src.SampleRate() {
		logger.Debugf("rendering at the file rate %d Hz", src.SampleRate())
	}
	dc.SampleRate = src.SampleRate()
	dc.InputDevice = engine.DefaultDevice
	dc.NumInputChannels = src.Channels()
	if dc.NumOutputChannels == 0 {
		dc.NumOutputChannels = src.Channels()
	}
	dc.OutputDevice = engine.DefaultDevice

	sink, err := offline.CreateWAV(outPath, dc.SampleRate, dc.NumOutputChannels, cfg.Recording.BitDepth)
	if err != nil {
		return err
	}
	defer func() { err = errors.Join(err, sink.Close()) }()

	be := offline.New(offline.Options{Config: dc, Realtime: realtime, Source: src, Sink: sink})
	c, err := newFeedbackChain(cfg)
	if err != nil {
		return err
	}
	eng := engine.New[feedback.Message](be, engine.WithQueueCapacity(cfg.Audio.QueueCapacity))

	stopTransports, err := startTransports(ctx, cfg, c,
		transport.ParamHandler(c.params.Set(), feedbackMessages(eng)))
	if err != nil {
		return err
	}
	defer stopTransports()

	if _, err := eng.StartAudio(c.proc); err != nil {
		return err
	}

	select {
	case <-be.Done():
	case <-ctx.Done():
		logger.Warnf("interrupted")
	}
	if err := eng.StopAudio(); err != nil {
		return err
	}

	last := c.levels.Load()
	logger.Infof("rendered %d frames to %s (last peak %.1f dB, rms %.1f dB)",
		sink.Frames(), outPath, last.PeakDB, last.RMSDB)
	return nil
}
