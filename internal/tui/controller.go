// SPDX-License-Identifier: MIT
package tui

import (
	"rtaudio/internal/processors/feedback"
	"rtaudio/pkg/engine"
)

// Controller is what the meter view drives.
type Controller interface {
	// Toggle starts a stopped stream or stops a running one and reports
	// whether the stream runs afterwards.
	Toggle() (running bool, err error)
	Running() bool
	SetGain(gain float32) error
	Mute(on bool) error
}

// FeedbackController drives a feedback processor through an engine.
type FeedbackController struct {
	Engine    *engine.Engine[feedback.Message]
	Processor *feedback.Processor
}

func (c *FeedbackController) Toggle() (bool, error) {
	if c.Engine.Running() {
		return false, c.Engine.StopAudio()
	}
	if _, err := c.Engine.StartAudio(c.Processor); err != nil {
		return false, err
	}
	return true, nil
}

func (c *FeedbackController) Running() bool { return c.Engine.Running() }

func (c *FeedbackController) SetGain(gain float32) error {
	return c.Engine.SendMessage(feedback.SetGain(gain))
}

func (c *FeedbackController) Mute(on bool) error {
	return c.Engine.SendMessage(feedback.Mute(on))
}

var _ Controller = (*FeedbackController)(nil)
