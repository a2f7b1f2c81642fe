// Package streamtest provides an in-memory stream.Conn for tests.
package streamtest

import (
	"context"
	"iter"
	"sync"

	"github.com/eapache/queue"

	"github.com/AIAleph/offchain_harness/internal/stream"
)

// Double replays a fixed queue of inbound messages, or fails every read with
// an injected error. It is consumed destructively and cannot be rewound; use a
// fresh Double per scenario.
type Double struct {
	mu      sync.Mutex
	queue   *queue.Queue
	failure error
}

// Option customizes a Double.
type Option func(*Double)

// WithFailure makes every Next return err, regardless of queued messages.
func WithFailure(err error) Option {
	return func(d *Double) { d.failure = err }
}

// NewDouble queues messages in order.
func NewDouble(messages [][]byte, opts ...Option) *Double {
	d := &Double{queue: queue.New()}
	for _, m := range messages {
		d.queue.Add(m)
	}
	for _, o := range opts {
		o(d)
	}
	return d
}

// Next pops the head message. It returns the injected failure on every call
// when one is set, and stream.ErrStreamEnded once the queue is empty.
func (d *Double) Next(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.failure != nil {
		return nil, d.failure
	}
	if d.queue.Length() == 0 {
		return nil, stream.ErrStreamEnded
	}
	return d.queue.Remove().([]byte), nil
}

// Send accepts data and does nothing with it.
func (d *Double) Send(context.Context, []byte) error { return nil }

// Close is accepted and changes nothing.
func (d *Double) Close(context.Context) error { return nil }

// Closed is always false; the double never transitions on Close.
func (d *Double) Closed() bool { return false }

// Pending reports how many messages are still queued.
func (d *Double) Pending() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.queue.Length()
}

// Messages returns the remaining messages as a lazy sequence.
func (d *Double) Messages(ctx context.Context) iter.Seq2[[]byte, error] {
	return stream.Messages(ctx, d)
}

var _ stream.Conn = (*Double)(nil)
