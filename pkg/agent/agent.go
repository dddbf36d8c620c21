// Package agent defines the boundary to the conversational tutoring engine.
// The relay never inspects the engine's reasoning, only the event surface it
// produces and the two input channels it accepts (realtime media and content
// turns).
package agent

import "context"

// SessionParams scope one stream to one tutoring session.
type SessionParams struct {
	UserID    string
	SessionID string
	Topic     string
	Title     string
}

// Stream is a live bidirectional exchange with the agent for a single
// session. Events() yields agent output in production order and is closed
// when the agent finishes or fails; Err reports the failure afterwards.
// Close is safe to call more than once and unblocks a pending receive.
type Stream interface {
	SendRealtime(blob Blob) error
	SendContent(text string) error
	Events() <-chan Event
	Err() error
	Close() error
}

// Engine opens agent streams. Implementations own the transport and the
// model configuration.
type Engine interface {
	NewStream(ctx context.Context, params SessionParams) (Stream, error)
}
