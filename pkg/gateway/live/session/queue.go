package session

import (
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/tutorkit/relay/pkg/agent"
)

// RequestQueue is the closeable sink in front of the agent stream. Many
// producers may send; close authority is shared between the downstream pump
// and the connection handler, so Close is idempotent and sends after close
// are dropped without error.
type RequestQueue struct {
	stream agent.Stream
	logger *slog.Logger

	closed    atomic.Bool
	closeOnce sync.Once
}

func NewRequestQueue(stream agent.Stream, logger *slog.Logger) *RequestQueue {
	if logger == nil {
		logger = slog.Default()
	}
	return &RequestQueue{stream: stream, logger: logger}
}

// SendRealtime forwards a binary media blob (audio or image) to the agent's
// realtime input channel.
func (q *RequestQueue) SendRealtime(blob agent.Blob) error {
	if q.closed.Load() {
		return nil
	}
	if err := q.stream.SendRealtime(blob); err != nil {
		// A close racing the send surfaces here; that is a drop, not a failure.
		if q.closed.Load() {
			return nil
		}
		return err
	}
	return nil
}

// SendContent forwards a textual message as a structured content turn.
func (q *RequestQueue) SendContent(text string) error {
	if q.closed.Load() {
		return nil
	}
	if err := q.stream.SendContent(text); err != nil {
		if q.closed.Load() {
			return nil
		}
		return err
	}
	return nil
}

// Close shuts the underlying agent stream exactly once. Later calls are
// no-ops.
func (q *RequestQueue) Close() {
	q.closeOnce.Do(func() {
		q.closed.Store(true)
		if err := q.stream.Close(); err != nil {
			q.logger.Warn("closing agent stream", "error", err)
		}
	})
}

func (q *RequestQueue) Closed() bool {
	return q.closed.Load()
}
