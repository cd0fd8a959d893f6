// SPDX-License-Identifier: MIT
/*
Package engine wires an application Processor to an audio Backend.

StartAudio prepares the processor, opens the backend stream and returns the
sending side of a bounded message queue. On every hardware buffer the
backend invokes the engine's callback, which:
  - drains the messages that were queued when the callback began, in order
  - calls Process with the output and input buffers

The callback holds no locks and performs no allocation. A panic raised by the
processor is recovered inside the callback; from then on the stream renders
silence and the fault is returned by StopAudio.

StopAudio stops the stream, collects backend and callback errors, discards
undelivered messages and calls the processor's Stopped hook.
*/
package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"rtaudio/internal/log"
	"rtaudio/pkg/interleaved"
	"rtaudio/pkg/queue"
)

// Engine orchestrates one Backend and, while running, one Processor.
// Its methods are meant for the control goroutine.
type Engine[M any] struct {
	backend  Backend
	log      *log.Logger
	capacity int

	mu        sync.Mutex
	processor Processor[M]
	sender    *queue.Sender[M]
	receiver  *queue.Receiver[M]
	config    DeviceConfig

	state     atomic.Uint32
	fault     atomic.Pointer[error]
	callbacks atomic.Uint64
	messages  atomic.Uint64
}

// Option configures an Engine.
type Option func(*options)

type options struct {
	capacity int
	logger   *log.Logger
}

// WithQueueCapacity sets the message queue size. Non-positive values select
// queue.DefaultCapacity.
func WithQueueCapacity(n int) Option {
	return func(o *options) { o.capacity = n }
}

// WithLogger replaces the default "engine" logger.
func WithLogger(l *log.Logger) Option {
	return func(o *options) { o.logger = l }
}

// New returns an engine bound to backend.
func New[M any](backend Backend, opts ...Option) *Engine[M] {
	o := options{capacity: queue.DefaultCapacity}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = log.New("engine")
	}
	return &Engine[M]{
		backend:  backend,
		log:      o.logger,
		capacity: o.capacity,
	}
}

// StartAudio prepares p and starts the backend stream. The returned sender
// is valid until StopAudio; messages it still holds at that point are
// discarded.
func (e *Engine[M]) StartAudio(p Processor[M]) (*queue.Sender[M], error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.State() == StateRunning {
		return nil, ErrStreamRunning
	}

	tx, rx := queue.New[M](e.capacity)
	cfg := e.backend.Config()

	p.Prepare(cfg)
	e.state.Store(uint32(StatePrepared))
	e.fault.Store(nil)
	e.callbacks.Store(0)
	e.messages.Store(0)

	if err := e.backend.StartStream(e.callback(p, rx)); err != nil {
		rx.Close()
		e.state.Store(uint32(StateStopped))
		e.log.Errorf("start failed: %v", err)
		return nil, &BackendError{Op: "start stream", Err: err}
	}

	e.processor = p
	e.sender = tx
	e.receiver = rx
	e.config = cfg
	e.state.Store(uint32(StateRunning))

	e.log.Infof("started: %s", cfg)
	return tx, nil
}

// StopAudio halts the stream and runs the processor's stop hook. The returned
// error joins any stop failure, asynchronous stream error and recovered
// callback fault.
func (e *Engine[M]) StopAudio() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.State() != StateRunning {
		return ErrNotRunning
	}

	var errs []error
	if err := e.backend.StopStream(); err != nil {
		errs = append(errs, &BackendError{Op: "stop stream", Err: err})
	}
	if err := e.backend.StreamError(); err != nil {
		errs = append(errs, &BackendError{Op: "stream", Err: err})
	}
	if f := e.fault.Load(); f != nil {
		errs = append(errs, *f)
	}

	dropped := e.receiver.Len()
	e.receiver.Close()
	if dropped > 0 {
		e.log.Debugf("discarded %d queued messages", dropped)
	}

	if h, ok := e.processor.(StopHandler); ok {
		h.Stopped()
	}

	e.processor = nil
	e.sender = nil
	e.receiver = nil
	e.state.Store(uint32(StateStopped))

	err := errors.Join(errs...)
	if err != nil {
		e.log.Warnf("stopped with errors: %v", err)
	} else {
		e.log.Infof("stopped after %d callbacks", e.callbacks.Load())
	}
	return err
}

// SendMessage enqueues m without blocking. It fails with ErrNotRunning when
// no stream is running and with queue.ErrFull when the queue is full.
func (e *Engine[M]) SendMessage(m M) error {
	tx := e.Sender()
	if tx == nil {
		return ErrNotRunning
	}
	if err := tx.TrySend(m); err != nil {
		if errors.Is(err, queue.ErrClosed) {
			return ErrNotRunning
		}
		return err
	}
	return nil
}

// SendMessageContext enqueues m, waiting for space until ctx is done.
func (e *Engine[M]) SendMessageContext(ctx context.Context, m M) error {
	tx := e.Sender()
	if tx == nil {
		return ErrNotRunning
	}
	if err := tx.Send(ctx, m); err != nil {
		if errors.Is(err, queue.ErrClosed) {
			return ErrNotRunning
		}
		return err
	}
	return nil
}

// Sender returns the current message sender, or nil when stopped.
func (e *Engine[M]) Sender() *queue.Sender[M] {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.sender
}

// State returns the lifecycle state.
func (e *Engine[M]) State() State { return State(e.state.Load()) }

// Running reports whether a stream is running.
func (e *Engine[M]) Running() bool { return e.State() == StateRunning }

// Backend returns the backend the engine drives.
func (e *Engine[M]) Backend() Backend { return e.backend }

// Config returns the configuration of the running stream, or the backend's
// current configuration when stopped.
func (e *Engine[M]) Config() DeviceConfig {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.State() == StateRunning {
		return e.config
	}
	return e.backend.Config()
}

// Callbacks returns the number of callbacks since the last start.
func (e *Engine[M]) Callbacks() uint64 { return e.callbacks.Load() }

// Messages returns the number of messages applied since the last start.
func (e *Engine[M]) Messages() uint64 { return e.messages.Load() }

// Fault returns the recovered callback fault, if any.
func (e *Engine[M]) Fault() error {
	if f := e.fault.Load(); f != nil {
		return *f
	}
	return nil
}

func (e *Engine[M]) callback(p Processor[M], rx *queue.Receiver[M]) Callback {
	apply := p.MessageProcess
	return func(out interleaved.Output, in interleaved.Input) {
		e.callbacks.Add(1)
		if e.fault.Load() != nil {
			out.Fill(0)
			return
		}
		defer e.recoverFault(out)

		if n := rx.Drain(apply); n > 0 {
			e.messages.Add(uint64(n))
		}
		p.Process(out, in)
	}
}

// recoverFault must be deferred directly by the callback.
func (e *Engine[M]) recoverFault(out interleaved.Output) {
	r := recover()
	if r == nil {
		return
	}
	err := fmt.Errorf("%w: %v", ErrCallbackFault, r)
	e.fault.CompareAndSwap(nil, &err)
	out.Fill(0)
}
