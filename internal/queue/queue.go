// Package queue provides the FIFO transport primitive shared by the
// controller and its worker pool. A Queue is multi-producer,
// multi-consumer and preserves per-producer submission order; items
// from concurrent producers may interleave.
package queue

import (
	"context"
	"errors"
	"sync/atomic"
)

var (
	// ErrClosed is returned by Enqueue after Close, and by Dequeue once
	// the queue is closed and fully drained.
	ErrClosed = errors.New("queue is closed")

	// ErrStopped is returned by Dequeue when the caller's stop channel
	// fires before an item becomes available.
	ErrStopped = errors.New("dequeue stopped")
)

const defaultCapacity = 1024

// Queue is a bounded FIFO channel with explicit close semantics.
// Close prevents further enqueues but items already buffered remain
// dequeueable until the queue is drained.
//
// Type parameters:
//   - T: the element type carried by the queue
type Queue[T any] struct {
	ch     chan T
	done   chan struct{}
	closed atomic.Bool
}

// New creates a queue with the given buffer capacity.
// A capacity <= 0 falls back to a generous default.
func New[T any](capacity int) *Queue[T] {
	if capacity <= 0 {
		capacity = defaultCapacity
	}
	return &Queue[T]{
		ch:   make(chan T, capacity),
		done: make(chan struct{}),
	}
}

// Enqueue appends an item, blocking while the buffer is full.
// It returns ErrClosed if the queue was closed, or the context error if
// ctx is cancelled while waiting for space.
func (q *Queue[T]) Enqueue(ctx context.Context, v T) error {
	if q.closed.Load() {
		return ErrClosed
	}

	select {
	case q.ch <- v:
		return nil
	default:
	}

	select {
	case q.ch <- v:
		return nil
	case <-q.done:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Dequeue removes the oldest item, blocking until one is available.
// After Close it keeps returning buffered items until the queue is
// empty, then returns ErrClosed. The stop channel aborts the wait with
// ErrStopped; a nil stop channel never fires.
func (q *Queue[T]) Dequeue(ctx context.Context, stop <-chan struct{}) (T, error) {
	var zero T

	for {
		select {
		case v := <-q.ch:
			return v, nil
		default:
		}

		if q.closed.Load() {
			// Race between the fast path above and Close: one more
			// non-blocking receive settles whether items remain.
			select {
			case v := <-q.ch:
				return v, nil
			default:
				return zero, ErrClosed
			}
		}

		select {
		case v := <-q.ch:
			return v, nil
		case <-stop:
			return zero, ErrStopped
		case <-ctx.Done():
			return zero, ctx.Err()
		case <-q.done:
			// Closed while waiting; loop to drain leftovers.
		}
	}
}

// TryDequeue removes the oldest item without blocking.
func (q *Queue[T]) TryDequeue() (T, bool) {
	select {
	case v := <-q.ch:
		return v, true
	default:
		var zero T
		return zero, false
	}
}

// Out exposes the receive side of the underlying channel so callers can
// participate in their own select loops. Items taken from Out bypass
// the close-drain bookkeeping of Dequeue, which is fine: the channel is
// never closed, only the done signal is.
func (q *Queue[T]) Out() <-chan T {
	return q.ch
}

// Close marks the queue closed. Idempotent.
func (q *Queue[T]) Close() {
	if q.closed.CompareAndSwap(false, true) {
		close(q.done)
	}
}

// IsClosed reports whether Close has been called.
func (q *Queue[T]) IsClosed() bool {
	return q.closed.Load()
}

// Len returns the number of buffered items.
func (q *Queue[T]) Len() int {
	return len(q.ch)
}

// Cap returns the buffer capacity.
func (q *Queue[T]) Cap() int {
	return cap(q.ch)
}
