// Package stream consumes duplex message streams such as WebSocket
// subscriptions.
package stream

import (
	"context"
	"errors"
	"iter"

	"go.uber.org/zap"

	"github.com/AIAleph/offchain_harness/internal/logging"
)

// ErrStreamEnded is returned by Conn.Next once the stream is exhausted. It is
// terminal: every later call returns it again.
var ErrStreamEnded = errors.New("stream: ended")

// Conn is a duplex stream of binary messages.
type Conn interface {
	// Next returns the next inbound message, ErrStreamEnded when the stream
	// is exhausted, or the error that broke the stream.
	Next(ctx context.Context) ([]byte, error)
	Send(ctx context.Context, data []byte) error
	Close(ctx context.Context) error
	Closed() bool
}

// Messages adapts c to a range-over-func sequence. The sequence stops at
// end-of-stream; an error is yielded once as the final element.
func Messages(ctx context.Context, c Conn) iter.Seq2[[]byte, error] {
	return func(yield func([]byte, error) bool) {
		for {
			msg, err := c.Next(ctx)
			if errors.Is(err, ErrStreamEnded) {
				return
			}
			if err != nil {
				yield(nil, err)
				return
			}
			if !yield(msg, nil) {
				return
			}
		}
	}
}

// Listen hands every inbound message to handle until the stream ends (nil),
// the stream fails, or handle fails.
func Listen(ctx context.Context, c Conn, handle func([]byte) error) (err error) {
	n := 0
	defer func() {
		fields := []zap.Field{zap.String("component", "stream"), zap.Int("messages", n)}
		if err != nil {
			logging.Logger().Debug("stream_listen_failed", append(fields, zap.Error(err))...)
			return
		}
		logging.Logger().Debug("stream_listen_done", fields...)
	}()
	for msg, nextErr := range Messages(ctx, c) {
		if nextErr != nil {
			return nextErr
		}
		n++
		if err := handle(msg); err != nil {
			return err
		}
	}
	return nil
}
