// SPDX-License-Identifier: MIT
/*
Package interleaved provides zero-copy views over interleaved sample buffers.

An interleaved buffer stores all channels of frame 0, then all channels of
frame 1, and so on. The views never own, copy or grow the underlying slice,
they only describe how to walk it. A view is valid for the lifetime of one
audio callback.

Two variants exist:
  - Input: read-only view, used for the captured signal.
  - Output: exclusive, writable view, used for the rendered signal.

Input and Output handed to a callback never alias the same memory, so no
synchronisation is needed between them.
*/
package interleaved

import "iter"

// Input is a read-only view over an interleaved buffer.
type Input struct {
	data        []float32
	numChannels int
	numFrames   int
}

// NewInput wraps data as a view with the given channel count. If len(data)
// is not a multiple of channels the trailing partial frame is ignored.
func NewInput(data []float32, channels int) Input {
	return Input{
		data:        data,
		numChannels: channels,
		numFrames:   frameCount(len(data), channels),
	}
}

// NumChannels returns the number of interleaved channels.
func (b Input) NumChannels() int { return b.numChannels }

// NumFrames returns the number of complete frames in the view.
func (b Input) NumFrames() int { return b.numFrames }

// Data returns the underlying samples. Callers must not modify them.
func (b Input) Data() []float32 { return b.data }

// Frame returns the samples of frame i, one per channel.
func (b Input) Frame(i int) []float32 {
	start := i * b.numChannels
	return b.data[start : start+b.numChannels : start+b.numChannels]
}

// Sample returns the sample of channel ch in frame i.
func (b Input) Sample(i, ch int) float32 {
	return b.data[i*b.numChannels+ch]
}

// Frames iterates over all frames. Each yielded slice aliases the buffer.
func (b Input) Frames() iter.Seq2[int, []float32] {
	return func(yield func(int, []float32) bool) {
		for i := range b.numFrames {
			if !yield(i, b.Frame(i)) {
				return
			}
		}
	}
}

// Channel iterates over the samples of a single channel. An out of range
// channel yields nothing.
func (b Input) Channel(ch int) iter.Seq[float32] {
	return func(yield func(float32) bool) {
		if ch < 0 || ch >= b.numChannels {
			return
		}
		for i := ch; i < b.numFrames*b.numChannels; i += b.numChannels {
			if !yield(b.data[i]) {
				return
			}
		}
	}
}

// CopyToChannel copies channel ch into dst and returns the number of samples
// written, which is min(len(dst), NumFrames()).
func (b Input) CopyToChannel(dst []float32, ch int) int {
	return copyStrided(dst, b.data, ch, b.numChannels, b.numFrames)
}

// Output is an exclusive, writable view over an interleaved buffer.
type Output struct {
	data        []float32
	numChannels int
	numFrames   int
}

// NewOutput wraps data as a writable view with the given channel count.
func NewOutput(data []float32, channels int) Output {
	return Output{
		data:        data,
		numChannels: channels,
		numFrames:   frameCount(len(data), channels),
	}
}

// NumChannels returns the number of interleaved channels.
func (b Output) NumChannels() int { return b.numChannels }

// NumFrames returns the number of complete frames in the view.
func (b Output) NumFrames() int { return b.numFrames }

// Data returns the underlying samples for direct writes.
func (b Output) Data() []float32 { return b.data }

// Input returns a read-only view over the same memory.
func (b Output) Input() Input {
	return Input(b)
}

// Frame returns the writable samples of frame i, one per channel.
func (b Output) Frame(i int) []float32 {
	start := i * b.numChannels
	return b.data[start : start+b.numChannels : start+b.numChannels]
}

// Sample returns the sample of channel ch in frame i.
func (b Output) Sample(i, ch int) float32 {
	return b.data[i*b.numChannels+ch]
}

// SetSample stores v as the sample of channel ch in frame i.
func (b Output) SetSample(i, ch int, v float32) {
	b.data[i*b.numChannels+ch] = v
}

// Frames iterates over all frames. The yielded slices are writable.
func (b Output) Frames() iter.Seq2[int, []float32] {
	return func(yield func(int, []float32) bool) {
		for i := range b.numFrames {
			if !yield(i, b.Frame(i)) {
				return
			}
		}
	}
}

// Channel iterates over the samples of a single channel.
func (b Output) Channel(ch int) iter.Seq[float32] {
	return b.Input().Channel(ch)
}

// MapChannel replaces every sample s of channel ch with fn(s).
func (b Output) MapChannel(ch int, fn func(float32) float32) {
	if ch < 0 || ch >= b.numChannels {
		return
	}
	for i := ch; i < b.numFrames*b.numChannels; i += b.numChannels {
		b.data[i] = fn(b.data[i])
	}
}

// Fill sets every sample of the view to v.
func (b Output) Fill(v float32) {
	for i := range b.data {
		b.data[i] = v
	}
}

// CopyToChannel copies channel ch into dst and returns the number of samples
// written.
func (b Output) CopyToChannel(dst []float32, ch int) int {
	return copyStrided(dst, b.data, ch, b.numChannels, b.numFrames)
}

// CopyFromChannel writes src into channel ch and returns the number of
// samples written, which is min(len(src), NumFrames()).
func (b Output) CopyFromChannel(src []float32, ch int) int {
	if ch < 0 || ch >= b.numChannels {
		return 0
	}
	n := min(len(src), b.numFrames)
	for i := range n {
		b.data[i*b.numChannels+ch] = src[i]
	}
	return n
}

func frameCount(length, channels int) int {
	if channels <= 0 {
		return 0
	}
	return length / channels
}

func copyStrided(dst, src []float32, ch, channels, frames int) int {
	if ch < 0 || ch >= channels {
		return 0
	}
	n := min(len(dst), frames)
	for i := range n {
		dst[i] = src[i*channels+ch]
	}
	return n
}
