// SPDX-License-Identifier: MIT
package meter

import (
	"math"
	"sync/atomic"
)

// ChanReporter returns a report function that try-sends to ch. A level is
// dropped when ch is full.
func ChanReporter(ch chan<- Level) func(Level) {
	return func(l Level) {
		select {
		case ch <- l:
		default:
		}
	}
}

// Latest holds the most recently reported level. Report is safe to use as a
// Meter's report function while other goroutines call Load.
type Latest struct {
	bits  atomic.Uint64
	count atomic.Uint64
}

// NewLatest returns a Latest initialised to silence.
func NewLatest() *Latest {
	l := &Latest{}
	l.Store(Level{PeakDB: MinusInfDB, RMSDB: MinusInfDB})
	return l
}

// Store replaces the level. Both fields are written in one atomic store.
func (l *Latest) Store(v Level) {
	packed := uint64(math.Float32bits(v.PeakDB))<<32 | uint64(math.Float32bits(v.RMSDB))
	l.bits.Store(packed)
}

// Report stores v and counts it.
func (l *Latest) Report(v Level) {
	l.Store(v)
	l.count.Add(1)
}

// Load returns the last stored level.
func (l *Latest) Load() Level {
	packed := l.bits.Load()
	return Level{
		PeakDB: math.Float32frombits(uint32(packed >> 32)),
		RMSDB:  math.Float32frombits(uint32(packed)),
	}
}

// Count returns how many levels have been reported.
func (l *Latest) Count() uint64 { return l.count.Load() }

// Tee fans one report out to several report functions.
func Tee(fns ...func(Level)) func(Level) {
	return func(l Level) {
		for _, fn := range fns {
			fn(l)
		}
	}
}
