// SPDX-License-Identifier: MIT
package player

import (
	"errors"
	"fmt"
	"math"
	"os"
	"time"

	"github.com/go-audio/wav"
	"gonum.org/v1/gonum/floats"
)

var ErrEmptyClip = errors.New("clip has no audio")

// Clip is decoded audio held in memory, one slice per channel.
type Clip struct {
	channels   [][]float32
	sampleRate int
}

// NewClip wraps planar channel data. All channels must have equal length.
func NewClip(channels [][]float32, sampleRate int) (*Clip, error) {
	if len(channels) == 0 || len(channels[0]) == 0 {
		return nil, ErrEmptyClip
	}
	for i, ch := range channels {
		if len(ch) != len(channels[0]) {
			return nil, fmt.Errorf("channel %d has %d frames, want %d", i, len(ch), len(channels[0]))
		}
	}
	return &Clip{channels: channels, sampleRate: sampleRate}, nil
}

func (c *Clip) NumChannels() int { return len(c.channels) }
func (c *Clip) NumFrames() int   { return len(c.channels[0]) }
func (c *Clip) SampleRate() int  { return c.sampleRate }

// Channel returns the samples of channel ch.
func (c *Clip) Channel(ch int) []float32 { return c.channels[ch] }

// Duration is the playing time at the clip's own sample rate.
func (c *Clip) Duration() time.Duration {
	if c.sampleRate <= 0 {
		return 0
	}
	return time.Duration(c.NumFrames()) * time.Second / time.Duration(c.sampleRate)
}

// LoadOptions control decoding.
type LoadOptions struct {
	// Normalize scales the clip so that its peak is at PeakDB.
	Normalize bool
	PeakDB    float64
}

// LoadWAV decodes a PCM WAV file. It reads the whole file and must not be
// called from the audio thread.
func LoadWAV(path string, opts LoadOptions) (*Clip, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	dec := wav.NewDecoder(f)
	if !dec.IsValidFile() {
		return nil, fmt.Errorf("%s: not a valid WAV file", path)
	}
	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if buf.Format == nil || buf.Format.NumChannels == 0 || len(buf.Data) == 0 {
		return nil, fmt.Errorf("%s: %w", path, ErrEmptyClip)
	}

	numChannels := buf.Format.NumChannels
	data := buf.AsFloatBuffer().Data
	floats.Scale(1/math.Exp2(float64(dec.BitDepth-1)), data)

	if opts.Normalize {
		normalize(data, math.Pow(10, opts.PeakDB/20))
	}

	return NewClip(deinterleave(data, numChannels), buf.Format.SampleRate)
}

// normalize scales data so that its absolute peak equals target. Silence is
// left untouched.
func normalize(data []float64, target float64) {
	peak := math.Max(floats.Max(data), -floats.Min(data))
	if peak == 0 {
		return
	}
	floats.Scale(target/peak, data)
}

func deinterleave(data []float64, numChannels int) [][]float32 {
	frames := len(data) / numChannels
	channels := make([][]float32, numChannels)
	for ch := range channels {
		channels[ch] = make([]float32, frames)
		for i := range frames {
			channels[ch][i] = float32(data[i*numChannels+ch])
		}
	}
	return channels
}
