package transport

import (
	"context"
	"sync/atomic"
	"time"
)

// Channel is a bounded in-process queue for one logical kernel channel.
// Receives are always bounded: the channel listener polls with a short
// deadline so its stop flag is observed promptly, and the request
// correlator polls against its overall reply deadline.
type Channel[T any] struct {
	channel chan T
	context context.Context
	closed  atomic.Int32
}

// NewChannel creates a Channel bound to ctx; cancelling ctx unblocks all
// pending sends and receives with ErrClosed.
func NewChannel[T any](ctx context.Context, bufferSize int) *Channel[T] {
	return &Channel[T]{
		channel: make(chan T, bufferSize),
		context: ctx,
	}
}

// Send enqueues a message, blocking until buffer space is available or
// either context ends.
func (c *Channel[T]) Send(ctx context.Context, message T) error {
	if c.closed.Load() == 1 {
		return ErrClosed
	}
	select {
	case c.channel <- message:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-c.context.Done():
		return ErrClosed
	}
}

// Receive dequeues the next message, waiting at most timeout. Expiry
// returns ErrTimeout; a closed or cancelled channel returns ErrClosed.
func (c *Channel[T]) Receive(ctx context.Context, timeout time.Duration) (T, error) {
	var zero T

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case message, ok := <-c.channel:
		if !ok {
			return zero, ErrClosed
		}
		return message, nil
	case <-timer.C:
		return zero, ErrTimeout
	case <-ctx.Done():
		return zero, ctx.Err()
	case <-c.context.Done():
		// Drain anything already buffered before reporting closure.
		select {
		case message, ok := <-c.channel:
			if !ok {
				return zero, ErrClosed
			}
			return message, nil
		default:
			return zero, ErrClosed
		}
	}
}

// TryReceive dequeues without waiting.
func (c *Channel[T]) TryReceive() (T, bool) {
	select {
	case message, ok := <-c.channel:
		if !ok {
			var zero T
			return zero, false
		}
		return message, true
	default:
		var zero T
		return zero, false
	}
}

// Close marks the channel closed. Idempotent.
func (c *Channel[T]) Close() {
	if c.closed.CompareAndSwap(0, 1) {
		close(c.channel)
	}
}

// IsClosed reports whether Close has been called.
func (c *Channel[T]) IsClosed() bool {
	return c.closed.Load() == 1
}
