// SPDX-License-Identifier: MIT
/*
Package queue is the bounded FIFO that carries messages from the control
goroutine to the audio callback.

The sending side may block (Send) or fail fast (TrySend). A full queue is
always reported to the sender as ErrFull, never dropped silently.

The receiving side never blocks. Drain snapshots the number of queued
messages when it starts and applies at most that many, so a producer that
keeps sending during the drain cannot keep the callback busy.

Close discards whatever is still queued. A closed queue is never reopened;
a restarted engine builds a fresh one.
*/
package queue

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
)

// DefaultCapacity is used when New is given a non-positive capacity.
const DefaultCapacity = 1024

var (
	ErrFull   = errors.New("message queue full")
	ErrClosed = errors.New("message queue closed")
)

type queue[M any] struct {
	ch     chan M
	closed atomic.Bool
	done   chan struct{}
	once   sync.Once
}

// Sender is the control-side handle. It is safe for concurrent use.
type Sender[M any] struct {
	q *queue[M]
}

// Receiver is the callback-side handle. It must be used by one goroutine.
type Receiver[M any] struct {
	q *queue[M]
}

// New creates a queue holding at most capacity messages.
func New[M any](capacity int) (*Sender[M], *Receiver[M]) {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	q := &queue[M]{
		ch:   make(chan M, capacity),
		done: make(chan struct{}),
	}
	return &Sender[M]{q: q}, &Receiver[M]{q: q}
}

// TrySend enqueues m without blocking.
func (s *Sender[M]) TrySend(m M) error {
	if s.q.closed.Load() {
		return ErrClosed
	}
	select {
	case s.q.ch <- m:
		return nil
	default:
		return ErrFull
	}
}

// Send enqueues m, waiting for space until ctx is done or the queue closes.
func (s *Sender[M]) Send(ctx context.Context, m M) error {
	if s.q.closed.Load() {
		return ErrClosed
	}
	select {
	case s.q.ch <- m:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-s.q.done:
		return ErrClosed
	}
}

// Len returns the number of queued messages.
func (s *Sender[M]) Len() int { return len(s.q.ch) }

// Cap returns the queue capacity.
func (s *Sender[M]) Cap() int { return cap(s.q.ch) }

// Closed reports whether the receiving side has closed the queue.
func (s *Sender[M]) Closed() bool { return s.q.closed.Load() }

// Drain applies, in FIFO order, the messages queued at the moment of the
// call and returns how many were applied. It never blocks.
func (r *Receiver[M]) Drain(apply func(M)) int {
	if r.q.closed.Load() {
		return 0
	}
	n := len(r.q.ch)
	for i := range n {
		select {
		case m := <-r.q.ch:
			apply(m)
		default:
			return i
		}
	}
	return n
}

// Len returns the number of queued messages.
func (r *Receiver[M]) Len() int { return len(r.q.ch) }

// Close marks the queue closed and discards any queued messages. Pending
// and future sends fail with ErrClosed. Close is idempotent.
func (r *Receiver[M]) Close() {
	r.q.once.Do(func() {
		r.q.closed.Store(true)
		close(r.q.done)
	})
	for {
		select {
		case <-r.q.ch:
		default:
			return
		}
	}
}
