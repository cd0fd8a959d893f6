// SPDX-License-Identifier: MIT
package cmd

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"time"

	"rtaudio/internal/analysis"
	"rtaudio/internal/config"
	"rtaudio/internal/log"
	"rtaudio/internal/processors/feedback"
	"rtaudio/internal/transport"
	"rtaudio/internal/transport/udp"
	"rtaudio/pkg/engine"
	"rtaudio/pkg/meter"
)

// wsInterval is how often levels are pushed to WebSocket clients.
const wsInterval = 50 * time.Millisecond

// startTransports starts the transports enabled in cfg. The returned function
// stops them all.
func startTransports(ctx context.Context, cfg *config.Config, c *chain, onCommand transport.CommandHandler) (func(), error) {
	logger := log.New("transport")
	ctx, cancel := context.WithCancel(ctx)
	var closers []func() error

	stop := func() {
		cancel()
		for i := len(closers) - 1; i >= 0; i-- {
			if err := closers[i](); err != nil {
				logger.Warnf("close: %v", err)
			}
		}
	}

	var (
		bandsTo       transport.Transport
		bandsInterval time.Duration
	)

	if cfg.Transport.WSEnabled {
		ws := transport.NewWebSocketTransport(cfg.Transport.WSAddress, onCommand)
		if err := ws.Start(); err != nil {
			ws.Close()
			stop()
			return nil, err
		}
		closers = append(closers, ws.Close)
		go func() {
			if err := transport.Pump(ctx, c.levels, wsInterval, ws); err != nil && !errors.Is(err, context.Canceled) {
				logger.Debugf("websocket pump: %v", err)
			}
		}()
		bandsTo, bandsInterval = ws, wsInterval
	}

	if c.bands != nil {
		// Without WebSocket clients band levels go to the log.
		if bandsTo == nil {
			bandsTo, bandsInterval = transport.NewLoggingTransport(), consoleInterval
		}
		go func() {
			err := transport.Relay(ctx, c.bands, bandsInterval, transport.NewBandsMessage, bandsTo)
			if err != nil && !errors.Is(err, context.Canceled) {
				logger.Debugf("bands relay: %v", err)
			}
		}()
	}

	if cfg.Transport.UDPEnabled {
		sender, err := udp.NewUDPSender(cfg.Transport.UDPTargetAddress)
		if err != nil {
			stop()
			return nil, err
		}
		closers = append(closers, sender.Close)

		pub, err := udp.NewUDPPublisher(cfg.Transport.UDPSendInterval, sender, c.levels)
		if err != nil {
			stop()
			return nil, err
		}
		pub.Start()
		closers = append(closers, pub.Close)
	}

	return stop, nil
}

var errNotFinite = errors.New("value is not a finite number")

// feedbackMessages routes {"type":"message"} commands into the engine queue.
func feedbackMessages(eng *engine.Engine[feedback.Message]) transport.CommandHandler {
	return func(cmd transport.Command) (any, error) {
		if cmd.Type != transport.TypeMessage {
			return nil, fmt.Errorf("%w: %q", transport.ErrUnknownCommand, cmd.Type)
		}

		var msg feedback.Message
		switch cmd.Name {
		case "gain":
			g, err := strconv.ParseFloat(cmd.Value, 32)
			if err != nil {
				return nil, fmt.Errorf("gain: %w", err)
			}
			if math.IsNaN(g) || math.IsInf(g, 0) {
				return nil, fmt.Errorf("gain: %w: %q", errNotFinite, cmd.Value)
			}
			msg = feedback.SetGain(float32(g))
		case "mute":
			on, err := strconv.ParseBool(cmd.Value)
			if err != nil {
				return nil, fmt.Errorf("mute: %w", err)
			}
			msg = feedback.Mute(on)
		default:
			return nil, fmt.Errorf("%w: message %q", transport.ErrUnknownCommand, cmd.Name)
		}
		return nil, eng.SendMessage(msg)
	}
}

// chain is the feedback processor and the readings it publishes.
type chain struct {
	params *feedback.Params
	proc   *feedback.Processor
	levels *meter.Latest
	bands  chan analysis.Bands // nil unless the spectrum is enabled
}

// newFeedbackChain builds the feedback processor with the configured
// parameter values.
func newFeedbackChain(cfg *config.Config) (*chain, error) {
	p := cfg.Processing
	c := &chain{params: feedback.NewParams(), levels: meter.NewLatest()}
	c.params.Gain.SetValue(p.Gain)
	c.params.Gate.SetValue(p.Gate)
	c.params.GateThreshold.SetValue(p.GateThreshold)
	c.params.MeterChannel.SetValue(int32(p.MeterChannel))

	opts := []feedback.Option{feedback.WithMeterWindow(p.MeterWindowMs)}
	if p.Spectrum {
		w, err := analysis.ParseWindowFunc(p.Window)
		if err != nil {
			return nil, err
		}
		c.bands = make(chan analysis.Bands, 1)
		a, err := analysis.New(p.FFTSize, w, analysis.ChanReporter(c.bands))
		if err != nil {
			return nil, err
		}
		opts = append(opts, feedback.WithAnalyzer(a))
	}

	c.proc = feedback.New(c.params, c.levels.Report, opts...)
	return c, nil
}
