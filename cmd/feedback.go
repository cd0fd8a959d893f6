// SPDX-License-Identifier: MIT
package cmd

import (
	"context"
	"errors"
	"time"

	"github.com/spf13/cobra"

	"rtaudio/internal/config"
	"rtaudio/internal/log"
	"rtaudio/internal/processors/feedback"
	"rtaudio/internal/transport"
	"rtaudio/internal/tui"
	"rtaudio/pkg/backend/portaudio"
	"rtaudio/pkg/engine"
)

// consoleInterval is how often levels are logged without the TUI.
const consoleInterval = time.Second

func newFeedbackCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "feedback",
		Short: "Route input to output through gain, noise gate and level meter",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.load(cmd)
			if err != nil {
				return err
			}
			return runFeedback(cmd.Context(), cfg, opts.tui)
		},
	}
}

func runFeedback(ctx context.Context, cfg *config.Config, interactive bool) error {
	logger := log.New("feedback")

	if err := portaudio.Initialize(); err != nil {
		return err
	}
	defer portaudio.Terminate()

	be, err := portaudio.New(cfg.DeviceConfig(), portaudio.Options{LowLatency: cfg.Audio.LowLatency})
	if err != nil {
		return err
	}

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

	if interactive {
		ctrl := &tui.FeedbackController{Engine: eng, Processor: c.proc}
		if _, err := ctrl.Toggle(); err != nil {
			return err
		}
		uiErr := tui.RunMeter(tui.NewMeterModel("feedback", ctrl, c.levels, 1))
		if eng.Running() {
			return errors.Join(uiErr, eng.StopAudio())
		}
		return uiErr
	}

	if _, err := eng.StartAudio(c.proc); err != nil {
		return err
	}
	logger.Infof("running, press Ctrl+C to stop")

	err = transport.Pump(ctx, c.levels, consoleInterval, transport.NewLoggingTransport())
	if errors.Is(err, context.Canceled) {
		err = nil
	}
	logger.Infof("%d callbacks, %d messages", eng.Callbacks(), eng.Messages())
	return errors.Join(err, eng.StopAudio())
}
