// SPDX-License-Identifier: MIT
/*
Package feedback routes the captured input straight to the output through a
smoothed gain stage and an optional noise gate, metering the input on the way.

Gain can be changed two ways. A SetGain message is applied at the start of
the next callback, in order with any other message. The "gain" parameter is
read on every callback and multiplies the message gain. Both paths ramp over
RampMs so that changes do not click.
*/
package feedback

import (
	"math"

	"rtaudio/internal/analysis"
	"rtaudio/internal/log"
	"rtaudio/pkg/engine"
	"rtaudio/pkg/interleaved"
	"rtaudio/pkg/meter"
	"rtaudio/pkg/param"
	"rtaudio/pkg/smooth"
)

const (
	// RampMs is the gain smoothing time.
	RampMs = 50
	// MaxGain bounds both the message gain and the gain parameter.
	MaxGain = 10
)

// Op selects what a Message does.
type Op uint8

const (
	OpSetGain Op = iota
	OpMute
)

// Message is sent to the processor through the engine queue. It is a plain
// value so that sending never allocates.
type Message struct {
	Op    Op
	Value float32
}

// SetGain sets the linear message gain: 0 is silence, 1 is unity, 2 is about
// +6 dB.
func SetGain(gain float32) Message { return Message{Op: OpSetGain, Value: gain} }

// Mute silences (true) or restores (false) the output.
func Mute(on bool) Message {
	if on {
		return Message{Op: OpMute, Value: 1}
	}
	return Message{Op: OpMute}
}

// Params are the lock-free controls of the processor.
type Params struct {
	Gain          *param.Float
	Gate          *param.Bool
	GateThreshold *param.Float
	MeterChannel  *param.Int
}

// NewParams returns the parameters with their defaults.
func NewParams() *Params {
	return &Params{
		Gain:          param.NewFloat("gain", 1, param.Range[float32]{Min: 0, Max: MaxGain}),
		Gate:          param.NewBool("gate", false),
		GateThreshold: param.NewFloat("gate_threshold", 0.001, param.Range[float32]{Min: 0, Max: 1}),
		MeterChannel:  param.NewInt("meter_channel", 0, param.Range[int32]{Min: 0, Max: 63}),
	}
}

// Set returns the parameters as a name-indexed set.
func (p *Params) Set() *param.Set {
	return param.NewSet(p.Gain, p.Gate, p.GateThreshold, p.MeterChannel)
}

// Processor implements engine.Processor[Message].
type Processor struct {
	params   *Params
	meter    *meter.Meter
	analyzer *analysis.Analyzer
	gain     *smooth.Value
	log      *log.Logger

	windowMs int
	msgGain  float32
	muted    bool
	gated    bool
}

// Option configures a Processor.
type Option func(*Processor)

// WithMeterWindow sets the metering window length.
func WithMeterWindow(ms int) Option {
	return func(p *Processor) { p.windowMs = ms }
}

// WithAnalyzer feeds the metered channel to a, which is prepared and reset
// with the processor.
func WithAnalyzer(a *analysis.Analyzer) Option {
	return func(p *Processor) { p.analyzer = a }
}

// New returns a processor controlled by params whose input levels are
// delivered to report. report runs on the audio thread and must not block.
func New(params *Params, report func(meter.Level), opts ...Option) *Processor {
	if params == nil {
		params = NewParams()
	}
	p := &Processor{
		params:   params,
		meter:    meter.New(report),
		gain:     smooth.New(params.Gain.Value(), smooth.Linear),
		log:      log.New("feedback"),
		windowMs: meter.DefaultWindowMs,
		msgGain:  1,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Params returns the processor's parameters.
func (p *Processor) Params() *Params { return p.params }

func (p *Processor) Prepare(cfg engine.DeviceConfig) {
	p.gain.Prepare(cfg.SampleRate, RampMs)
	p.gain.SetCurrentAndTargetValue(p.target())
	p.meter.Prepare(cfg.SampleRate, cfg.NumFrames, p.windowMs)
	if p.analyzer != nil {
		p.analyzer.Prepare(cfg.SampleRate)
	}
	p.log.Debugf("prepared: %s, ramp %d steps, meter window %d samples",
		cfg, p.gain.NumSteps(), p.meter.Window())
}

func (p *Processor) MessageProcess(msg Message) {
	switch msg.Op {
	case OpSetGain:
		if math.IsNaN(float64(msg.Value)) {
			return
		}
		p.msgGain = min(max(msg.Value, 0), MaxGain)
	case OpMute:
		p.muted = msg.Value != 0
	}
}

func (p *Processor) Process(out interleaved.Output, in interleaved.Input) {
	inChannels := in.NumChannels()

	if inChannels > 0 {
		ch := min(int(p.params.MeterChannel.Value()), inChannels-1)
		p.meter.ProcessChannel(in, ch)
		if p.analyzer != nil {
			p.analyzer.ProcessChannel(in, ch)
		}
	}

	p.gated = false
	if p.params.Gate.Value() {
		p.gated = peak(in.Data()) < p.params.GateThreshold.Value()
	}

	if target := p.target(); target != p.gain.Target() {
		p.gain.SetTargetValue(target)
	}

	outChannels := out.NumChannels()
	frames := min(out.NumFrames(), in.NumFrames())
	dst, src := out.Data(), in.Data()
	for i := range frames {
		g := p.gain.NextValue()
		for ch := range outChannels {
			// Fewer inputs than outputs: repeat the input channels.
			dst[i*outChannels+ch] = src[i*inChannels+ch%inChannels] * g
		}
	}
	clear(dst[frames*outChannels:])
	if rest := out.NumFrames() - frames; rest > 0 {
		p.gain.Skip(rest)
	}
}

// Gated reports whether the gate closed during the last callback. It must be
// read from the audio thread or after the stream stopped.
func (p *Processor) Gated() bool { return p.gated }

// Stopped drops pending meter samples and settles the gain ramp.
func (p *Processor) Stopped() {
	p.meter.Reset()
	if p.analyzer != nil {
		p.analyzer.Reset()
	}
	p.gated = false
	p.gain.SetCurrentAndTargetValue(p.target())
}

func (p *Processor) target() float32 {
	if p.muted || p.gated {
		return 0
	}
	return p.msgGain * p.params.Gain.Value()
}

func peak(samples []float32) float32 {
	var m float32
	for _, s := range samples {
		if s < 0 {
			s = -s
		}
		m = max(m, s)
	}
	return m
}

var (
	_ engine.Processor[Message] = (*Processor)(nil)
	_ engine.StopHandler        = (*Processor)(nil)
)
