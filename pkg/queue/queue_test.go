// SPDX-License-Identifier: MIT
package queue

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

func TestFIFOOrder(t *testing.T) {
	tx, rx := New[int](8)
	for i := range 5 {
		if err := tx.TrySend(i); err != nil {
			t.Fatalf("TrySend(%d) error = %v", i, err)
		}
	}

	var got []int
	n := rx.Drain(func(m int) { got = append(got, m) })
	if n != 5 {
		t.Fatalf("Drain() = %d, want 5", n)
	}
	for i, m := range got {
		if m != i {
			t.Errorf("got[%d] = %d, want %d", i, m, i)
		}
	}
	if rx.Drain(func(int) { t.Error("empty queue applied a message") }) != 0 {
		t.Error("Drain() on empty queue should return 0")
	}
}

func TestDrainIsBoundedBySnapshot(t *testing.T) {
	tx, rx := New[int](16)
	for i := range 3 {
		tx.TrySend(i)
	}

	var got []int
	rx.Drain(func(m int) {
		got = append(got, m)
		// A producer racing the drain must wait for the next callback.
		tx.TrySend(100 + m)
	})

	if len(got) != 3 {
		t.Fatalf("applied %d messages, want 3", len(got))
	}
	if tx.Len() != 3 {
		t.Errorf("Len() = %d, want 3 left for the next drain", tx.Len())
	}

	got = got[:0]
	rx.Drain(func(m int) { got = append(got, m) })
	want := []int{100, 101, 102}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("second drain got %v, want %v", got, want)
			break
		}
	}
}

func TestTrySendFull(t *testing.T) {
	tx, _ := New[string](2)
	tx.TrySend("a")
	tx.TrySend("b")

	done := make(chan error, 1)
	go func() { done <- tx.TrySend("c") }()

	select {
	case err := <-done:
		if !errors.Is(err, ErrFull) {
			t.Errorf("TrySend on full queue error = %v, want ErrFull", err)
		}
	case <-time.After(time.Second):
		t.Fatal("TrySend blocked on a full queue")
	}
	if tx.Cap() != 2 {
		t.Errorf("Cap() = %d, want 2", tx.Cap())
	}
}

func TestDefaultCapacity(t *testing.T) {
	tx, _ := New[int](0)
	if tx.Cap() != DefaultCapacity {
		t.Errorf("Cap() = %d, want %d", tx.Cap(), DefaultCapacity)
	}
}

func TestSendWaitsForSpace(t *testing.T) {
	tx, rx := New[int](1)
	tx.TrySend(1)

	errc := make(chan error, 1)
	go func() { errc <- tx.Send(context.Background(), 2) }()

	time.Sleep(10 * time.Millisecond)
	var got []int
	rx.Drain(func(m int) { got = append(got, m) })

	if err := <-errc; err != nil {
		t.Fatalf("Send() error = %v", err)
	}
	rx.Drain(func(m int) { got = append(got, m) })
	if len(got) != 2 || got[0] != 1 || got[1] != 2 {
		t.Errorf("received %v, want [1 2]", got)
	}
}

func TestSendHonoursContext(t *testing.T) {
	tx, _ := New[int](1)
	tx.TrySend(1)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	if err := tx.Send(ctx, 2); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Send() error = %v, want DeadlineExceeded", err)
	}
}

func TestCloseDiscardsAndRejects(t *testing.T) {
	tx, rx := New[int](4)
	tx.TrySend(1)
	tx.TrySend(2)

	rx.Close()
	rx.Close()

	if rx.Len() != 0 {
		t.Errorf("Len() after Close = %d, want 0", rx.Len())
	}
	if !tx.Closed() {
		t.Error("Closed() = false after Close")
	}
	if err := tx.TrySend(3); !errors.Is(err, ErrClosed) {
		t.Errorf("TrySend after Close error = %v, want ErrClosed", err)
	}
	if err := tx.Send(context.Background(), 3); !errors.Is(err, ErrClosed) {
		t.Errorf("Send after Close error = %v, want ErrClosed", err)
	}
	if rx.Drain(func(int) { t.Error("closed queue applied a message") }) != 0 {
		t.Error("Drain() after Close should return 0")
	}
}

func TestCloseReleasesBlockedSender(t *testing.T) {
	tx, rx := New[int](1)
	tx.TrySend(1)

	errc := make(chan error, 1)
	go func() { errc <- tx.Send(context.Background(), 2) }()
	time.Sleep(10 * time.Millisecond)
	rx.Close()

	select {
	case err := <-errc:
		if err != nil && !errors.Is(err, ErrClosed) {
			t.Errorf("blocked Send error = %v, want ErrClosed or nil", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Send still blocked after Close")
	}
}

func TestConcurrentProducersKeepPerProducerOrder(t *testing.T) {
	type msg struct{ producer, seq int }
	tx, rx := New[msg](64)

	const producers, perProducer = 4, 200
	var wg sync.WaitGroup
	for p := range producers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range perProducer {
				if err := tx.Send(context.Background(), msg{p, i}); err != nil {
					t.Errorf("Send error = %v", err)
					return
				}
			}
		}()
	}

	next := make([]int, producers)
	received := 0
	done := make(chan struct{})
	go func() { wg.Wait(); close(done) }()

	check := func(m msg) {
		if m.seq != next[m.producer] {
			t.Errorf("producer %d: got seq %d, want %d", m.producer, m.seq, next[m.producer])
		}
		next[m.producer] = m.seq + 1
		received++
	}
	for received < producers*perProducer {
		if rx.Drain(check) == 0 {
			select {
			case <-done:
				rx.Drain(check)
				if received < producers*perProducer {
					t.Fatalf("received %d, want %d", received, producers*perProducer)
				}
			default:
				time.Sleep(time.Millisecond)
			}
		}
	}
}

func TestDrainHotPath(t *testing.T) {
	tx, rx := New[float32](64)
	var sum float32
	apply := func(m float32) { sum += m }

	allocs := testing.AllocsPerRun(100, func() {
		for range 8 {
			tx.TrySend(1)
		}
		rx.Drain(apply)
	})

	if allocs > 0 {
		t.Errorf("Expected zero allocations in drain hot path, got %.1f", allocs)
	}
}

func BenchmarkDrain(b *testing.B) {
	tx, rx := New[int](256)
	apply := func(int) {}
	b.ReportAllocs()
	for b.Loop() {
		for i := range 16 {
			tx.TrySend(i)
		}
		rx.Drain(apply)
	}
}
