// SPDX-License-Identifier: MIT
package offline

import (
	"errors"
	"fmt"
	"io"
	"math"
	"os"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

var (
	ErrNotWAV         = errors.New("not a WAV file")
	ErrUnsupportedWAV = errors.New("unsupported WAV format")
)

// wavFormatPCM is the WAVE_FORMAT_PCM audio format tag.
const wavFormatPCM = 1

// WAVSink writes output blocks to a PCM WAV file.
type WAVSink struct {
	file     *os.File
	enc      *wav.Encoder
	buf      *audio.IntBuffer
	scale    float64
	channels int
	frames   int
}

// CreateWAV creates path and returns a sink for channels at sampleRate with
// the given bit depth (16, 24 or 32).
func CreateWAV(path string, sampleRate, channels, bitDepth int) (*WAVSink, error) {
	switch bitDepth {
	case 16, 24, 32:
	default:
		return nil, fmt.Errorf("%w: %d-bit", ErrUnsupportedWAV, bitDepth)
	}
	if channels <= 0 {
		return nil, fmt.Errorf("%w: %d channels", ErrUnsupportedWAV, channels)
	}

	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	return &WAVSink{
		file: f,
		enc:  wav.NewEncoder(f, sampleRate, bitDepth, channels, wavFormatPCM),
		buf: &audio.IntBuffer{
			Format:         &audio.Format{NumChannels: channels, SampleRate: sampleRate},
			SourceBitDepth: bitDepth,
		},
		scale:    math.Exp2(float64(bitDepth-1)) - 1,
		channels: channels,
	}, nil
}

// Write converts block to integers, clipping to [-1, 1], and encodes it.
func (s *WAVSink) Write(block []float32) error {
	if cap(s.buf.Data) < len(block) {
		s.buf.Data = make([]int, len(block))
	}
	s.buf.Data = s.buf.Data[:len(block)]
	for i, v := range block {
		v = min(max(v, -1), 1)
		s.buf.Data[i] = int(math.Round(float64(v) * s.scale))
	}
	if err := s.enc.Write(s.buf); err != nil {
		return err
	}
	s.frames += len(block) / s.channels
	return nil
}

// Frames returns the number of frames written so far.
func (s *WAVSink) Frames() int { return s.frames }

// Close finalises the WAV header and closes the file.
func (s *WAVSink) Close() error {
	encErr := s.enc.Close()
	fileErr := s.file.Close()
	return errors.Join(encErr, fileErr)
}

// WAVSource reads a PCM WAV file as interleaved float32 samples, mapping the
// file's channels onto a fixed channel count.
type WAVSource struct {
	file       *os.File
	dec        *wav.Decoder
	buf        *audio.IntBuffer
	scale      float32
	channels   int
	fileChans  int
	sampleRate int
}

// OpenWAV opens path for reading into buffers of channels channels. File
// channels are repeated or dropped to match.
func OpenWAV(path string, channels int) (*WAVSource, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}

	dec := wav.NewDecoder(f)
	if !dec.IsValidFile() {
		f.Close()
		return nil, fmt.Errorf("%s: %w", path, ErrNotWAV)
	}
	dec.ReadInfo()
	if err := dec.Err(); err != nil {
		f.Close()
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	format := dec.Format()
	if format == nil || format.NumChannels == 0 || dec.BitDepth == 0 || dec.WavAudioFormat != wavFormatPCM {
		f.Close()
		return nil, fmt.Errorf("%s: %w", path, ErrUnsupportedWAV)
	}
	if channels <= 0 {
		channels = format.NumChannels
	}

	return &WAVSource{
		file:       f,
		dec:        dec,
		buf:        &audio.IntBuffer{Format: format},
		scale:      float32(math.Exp2(float64(dec.BitDepth - 1))),
		channels:   channels,
		fileChans:  format.NumChannels,
		sampleRate: format.SampleRate,
	}, nil
}

// SampleRate returns the file's sample rate.
func (s *WAVSource) SampleRate() int { return s.sampleRate }

// Channels returns the channel count of the buffers Read fills.
func (s *WAVSource) Channels() int { return s.channels }

// FileChannels returns the channel count stored in the file.
func (s *WAVSource) FileChannels() int { return s.fileChans }

// Read fills dst with whole frames and returns the number of samples
// written. It returns io.EOF together with the final partial block.
func (s *WAVSource) Read(dst []float32) (int, error) {
	frames := len(dst) / s.channels
	if frames == 0 {
		return 0, nil
	}

	want := frames * s.fileChans
	if cap(s.buf.Data) < want {
		s.buf.Data = make([]int, want)
	}
	s.buf.Data = s.buf.Data[:want]

	n, err := s.dec.PCMBuffer(s.buf)
	if n == 0 {
		if err != nil && !errors.Is(err, io.EOF) {
			return 0, err
		}
		return 0, io.EOF
	}

	got := n / s.fileChans
	for i := range got {
		for ch := range s.channels {
			src := s.buf.Data[i*s.fileChans+ch%s.fileChans]
			dst[i*s.channels+ch] = float32(src) / s.scale
		}
	}

	written := got * s.channels
	if n < want || errors.Is(err, io.EOF) {
		return written, io.EOF
	}
	return written, err
}

// Close closes the underlying file.
func (s *WAVSource) Close() error {
	return s.file.Close()
}

var (
	_ Source = (*WAVSource)(nil)
	_ Sink   = (*WAVSink)(nil)
)
