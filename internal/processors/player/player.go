// SPDX-License-Identifier: MIT
/*
Package player plays a pre-loaded Clip through the engine.

Transport commands are engine messages: Play, PlayLoop, Pause, Stop and Gain.
Play runs the clip once; at the end the play-head rewinds and playback stops.
PlayLoop wraps around without a gap. Pause keeps the play-head, Stop rewinds.

Clip channels map onto output channels one to one. A mono clip is copied to
every output, extra clip channels are dropped and extra outputs are silent.
*/
package player

import (
	"math"

	"rtaudio/internal/log"
	"rtaudio/pkg/engine"
	"rtaudio/pkg/interleaved"
)

// Op selects what a Message does.
type Op uint8

const (
	OpPlay Op = iota
	OpPlayLoop
	OpPause
	OpStop
	OpGain
)

// Message is a transport command.
type Message struct {
	Op   Op
	Gain float32
}

func Play() Message     { return Message{Op: OpPlay} }
func PlayLoop() Message { return Message{Op: OpPlayLoop} }
func Pause() Message    { return Message{Op: OpPause} }
func Stop() Message     { return Message{Op: OpStop} }

// Gain sets the linear playback gain.
func Gain(g float32) Message { return Message{Op: OpGain, Gain: g} }

// Processor implements engine.Processor[Message].
type Processor struct {
	clip     *Clip
	progress chan<- float32
	log      *log.Logger

	head    int
	playing bool
	looped  bool
	gain    float32
}

// New returns a stopped player for clip. Progress, if non-nil, receives the
// play position in [0, 1] after every callback that advanced it. Updates are
// dropped when the channel is full.
func New(clip *Clip, progress chan<- float32) *Processor {
	return &Processor{
		clip:     clip,
		progress: progress,
		log:      log.New("player"),
		gain:     1,
	}
}

func (p *Processor) Prepare(cfg engine.DeviceConfig) {
	if p.clip.SampleRate() != cfg.SampleRate {
		p.log.Warnf("clip is %d Hz, device runs at %d Hz: playback speed will differ",
			p.clip.SampleRate(), cfg.SampleRate)
	}
	if cfg.NumOutputChannels == 0 {
		p.log.Warnf("device has no outputs")
	}
}

func (p *Processor) MessageProcess(msg Message) {
	switch msg.Op {
	case OpPlay:
		p.playing = true
		p.looped = false
	case OpPlayLoop:
		p.playing = true
		p.looped = true
	case OpPause:
		p.playing = false
	case OpStop:
		p.playing = false
		p.head = 0
	case OpGain:
		if math.IsNaN(float64(msg.Gain)) {
			return
		}
		p.gain = max(msg.Gain, 0)
	}
}

func (p *Processor) Process(out interleaved.Output, _ interleaved.Input) {
	if !p.playing {
		out.Fill(0)
		return
	}

	outChannels := out.NumChannels()
	clipChannels := p.clip.NumChannels()
	length := p.clip.NumFrames()
	dst := out.Data()

	i := 0
	for ; i < out.NumFrames() && p.playing; i++ {
		for ch := range outChannels {
			var s float32
			switch {
			case clipChannels == 1:
				s = p.clip.channels[0][p.head]
			case ch < clipChannels:
				s = p.clip.channels[ch][p.head]
			}
			dst[i*outChannels+ch] = s * p.gain
		}
		p.head++
		if p.head >= length {
			p.head = 0
			p.playing = p.looped
		}
	}
	clear(dst[i*outChannels:])

	if p.progress != nil {
		select {
		case p.progress <- p.Position():
		default:
		}
	}
}

// Stopped rewinds and halts playback.
func (p *Processor) Stopped() {
	p.head = 0
	p.playing = false
	p.looped = false
}

// Position returns the play-head as a fraction of the clip.
func (p *Processor) Position() float32 {
	return float32(p.head) / float32(p.clip.NumFrames())
}

// Playing reports whether the player is producing audio.
func (p *Processor) Playing() bool { return p.playing }

// Clip returns the loaded clip.
func (p *Processor) Clip() *Clip { return p.clip }

var (
	_ engine.Processor[Message] = (*Processor)(nil)
	_ engine.StopHandler        = (*Processor)(nil)
)
