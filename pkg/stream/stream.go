// Package stream implements the bounded, back-pressured byte-chunk queue
// described in spec.md §4.3 that bridges a handler's producer goroutine
// with the worker's synchronous write loop.
package stream

import (
	"errors"
	"time"
)

// DefaultCapacity is the default number of in-flight chunk slots, per
// spec.md §4.3 and the sizing guidance in §9 (8-32 slots so slow clients
// promptly stall producers).
const DefaultCapacity = 16

// ErrClosed is returned by Send when the consumer side has already closed
// the channel — the handler's signal that the client disconnected and it
// must stop producing.
var ErrClosed = errors.New("stream: send on a channel closed by the consumer")

// Channel is a bounded FIFO of byte chunks with one producer and one
// consumer. Each Send call is delivered as exactly one chunk — the
// channel never coalesces or splits chunk boundaries, per spec.md §4.3's
// chunk-boundary-preservation guarantee.
type Channel struct {
	chunks      chan []byte
	producerEOF chan struct{} // closed by the producer to signal end-of-stream
	consumerEOF chan struct{} // closed by the consumer to signal cancellation
}

// NewChannel returns a Channel with the given slot capacity. A
// non-positive capacity falls back to DefaultCapacity.
func NewChannel(capacity int) *Channel {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Channel{
		chunks:      make(chan []byte, capacity),
		producerEOF: make(chan struct{}),
		consumerEOF: make(chan struct{}),
	}
}

// Send delivers one chunk to the consumer, blocking the producer if the
// channel is full. It returns ErrClosed if the consumer has already closed
// its end — the handler must treat this as client-cancelled and return.
func (c *Channel) Send(chunk []byte) error {
	select {
	case <-c.consumerEOF:
		return ErrClosed
	default:
	}
	select {
	case c.chunks <- chunk:
		return nil
	case <-c.consumerEOF:
		return ErrClosed
	}
}

// CloseProducer signals end-of-stream. It must be called exactly once by
// the producer when it has no more chunks to send.
func (c *Channel) CloseProducer() {
	close(c.producerEOF)
}

// TryRecv returns the next available chunk without blocking. ok is false
// if no chunk is currently queued; done is true once the producer has
// closed and the queue has drained.
func (c *Channel) TryRecv() (chunk []byte, ok bool, done bool) {
	select {
	case chunk, open := <-c.chunks:
		if open {
			return chunk, true, false
		}
		return nil, false, true
	default:
	}
	select {
	case <-c.producerEOF:
		// Drain any chunk that raced in just as the producer closed.
		select {
		case chunk, open := <-c.chunks:
			if open {
				return chunk, true, false
			}
		default:
		}
		return nil, false, true
	default:
		return nil, false, false
	}
}

// RecvWithTimeout blocks until a chunk is available, the producer closes,
// or timeout elapses (timed out is reported via ok=false, done=false).
func (c *Channel) RecvWithTimeout(timeout time.Duration) (chunk []byte, ok bool, done bool) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case chunk, open := <-c.chunks:
		if open {
			return chunk, true, false
		}
		return nil, false, true
	case <-c.producerEOF:
		select {
		case chunk, open := <-c.chunks:
			if open {
				return chunk, true, false
			}
		default:
		}
		return nil, false, true
	case <-timer.C:
		return nil, false, false
	}
}

// CloseConsumer signals cancellation: the next Send on this channel fails
// with ErrClosed. The worker calls this when the client write fails or the
// connection is torn down mid-stream.
func (c *Channel) CloseConsumer() {
	select {
	case <-c.consumerEOF:
		// already closed
	default:
		close(c.consumerEOF)
	}
}

// Sender is the producer-facing handle passed into a streaming handler
// callback, narrowing Channel to the one method a handler needs.
type Sender struct {
	ch *Channel
}

// Send delivers chunk to the consumer; see Channel.Send.
func (s Sender) Send(chunk []byte) error {
	return s.ch.Send(chunk)
}

// NewSender wraps ch as a Sender for handing to a producer callback.
func NewSender(ch *Channel) Sender {
	return Sender{ch: ch}
}
