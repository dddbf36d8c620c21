// Package session implements the streaming phase of a tutoring connection:
// the configuration handshake, the two concurrent data pumps between client
// and agent, and the coordinated shutdown of both.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"golang.org/x/sync/errgroup"

	"github.com/tutorkit/relay/pkg/agent"
	"github.com/tutorkit/relay/pkg/gateway/live/protocol"
)

// State is the post-handshake state machine of one session. A Session is
// constructed only after negotiation succeeds, so it starts Active;
// transitions are monotonic: Active -> Ending -> Ended.
type State int32

const (
	StateActive State = iota
	StateEnding
	StateEnded
)

func (s State) String() string {
	switch s {
	case StateActive:
		return "active"
	case StateEnding:
		return "ending"
	case StateEnded:
		return "ended"
	default:
		return "unknown"
	}
}

type Config struct {
	MaxAudioFrameBytes int
	PingInterval       time.Duration
}

type Dependencies struct {
	Conn   FrameReader
	Writer *Writer
	Queue  *RequestQueue
	Stream agent.Stream
	Logger *slog.Logger

	UserID    string
	SessionID string

	Config Config
}

// Session coordinates the upstream pump (client frames -> request queue) and
// the downstream pump (agent events -> client) over one connection. The two
// pumps share exactly two things: the ended flag, written only by the
// downstream pump, and the request queue, whose close is idempotent.
type Session struct {
	conn   FrameReader
	writer *Writer
	queue  *RequestQueue
	stream agent.Stream
	logger *slog.Logger
	cfg    Config

	ctx    context.Context
	cancel context.CancelFunc

	ended atomic.Bool
	state atomic.Int32
}

type inboundFrame struct {
	messageType int
	data        []byte
	err         error
}

func New(deps Dependencies) (*Session, error) {
	if deps.Conn == nil {
		return nil, fmt.Errorf("connection is required")
	}
	if deps.Writer == nil {
		return nil, fmt.Errorf("writer is required")
	}
	if deps.Queue == nil {
		return nil, fmt.Errorf("request queue is required")
	}
	if deps.Stream == nil {
		return nil, fmt.Errorf("agent stream is required")
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.Config.PingInterval <= 0 {
		deps.Config.PingInterval = 20 * time.Second
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &Session{
		conn:   deps.Conn,
		writer: deps.Writer,
		queue:  deps.Queue,
		stream: deps.Stream,
		logger: deps.Logger.With("user_id", deps.UserID, "session_id", deps.SessionID),
		cfg:    deps.Config,
		ctx:    ctx,
		cancel: cancel,
	}
	s.state.Store(int32(StateActive))
	return s, nil
}

func (s *Session) State() State { return State(s.state.Load()) }

func (s *Session) Ended() bool { return s.ended.Load() }

// Cancel stops both pumps. Used by the session tracker during shutdown.
func (s *Session) Cancel() { s.cancel() }

// SendError pushes an error frame to the client; used for drain warnings.
func (s *Session) SendError(message string) error {
	return s.writer.WriteJSON(protocol.ErrorFrame(message))
}

// Run blocks until the session reaches Ended. On every exit path the
// request queue is closed before Run returns.
func (s *Session) Run() error {
	defer s.state.Store(int32(StateEnded))
	defer s.queue.Close()
	defer s.cancel()

	readCh := make(chan inboundFrame, 64)
	go s.readLoop(readCh)

	g, ctx := errgroup.WithContext(s.ctx)
	g.Go(func() error { return s.upstream(ctx, readCh) })
	g.Go(func() error { return s.downstream(ctx) })
	g.Go(func() error { return s.keepalive(ctx) })

	err := g.Wait()
	if errors.Is(err, ErrDisconnected) {
		s.logger.Info("client disconnected")
		return nil
	}
	if err == nil && s.ended.Load() {
		_ = s.writer.CloseNormal()
	}
	return err
}

func (s *Session) readLoop(out chan<- inboundFrame) {
	defer close(out)
	for {
		messageType, data, err := s.conn.ReadMessage()
		if err != nil {
			select {
			case out <- inboundFrame{err: err}:
			case <-s.ctx.Done():
			}
			return
		}
		select {
		case out <- inboundFrame{messageType: messageType, data: data}:
		case <-s.ctx.Done():
			return
		}
	}
}

// upstream forwards client frames to the request queue until the session is
// cancelled or the client goes away. Reads are consumed through a select, so
// cancellation is observed without a poll interval even when no frame
// arrives.
func (s *Session) upstream(ctx context.Context, readCh <-chan inboundFrame) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case frame, ok := <-readCh:
			if !ok {
				return nil
			}
			if frame.err != nil {
				s.logger.Debug("read loop ended", "error", frame.err)
				return ErrDisconnected
			}
			if s.ended.Load() {
				continue
			}
			if err := s.forward(frame); err != nil {
				return err
			}
		}
	}
}

func (s *Session) forward(frame inboundFrame) error {
	switch frame.messageType {
	case websocket.BinaryMessage:
		if s.cfg.MaxAudioFrameBytes > 0 && len(frame.data) > s.cfg.MaxAudioFrameBytes {
			return fmt.Errorf("binary audio frame exceeds %d bytes", s.cfg.MaxAudioFrameBytes)
		}
		return s.queue.SendRealtime(agent.Blob{MIMEType: protocol.AudioMIME, Data: frame.data})
	case websocket.TextMessage:
		msg, decErr := protocol.DecodeClientFrame(frame.data)
		if decErr != nil {
			s.logger.Warn("unparseable frame during active session", "error", decErr)
			return decErr
		}
		switch m := msg.(type) {
		case protocol.ClientText:
			return s.queue.SendContent(m.Text)
		case protocol.ClientImage:
			return s.queue.SendRealtime(agent.Blob{MIMEType: m.MIMEType, Data: m.Data})
		case protocol.ClientConfig:
			// Configuration is accepted exactly once, at handshake.
			s.logger.Warn("ignoring config frame after handshake")
		case protocol.ClientUnknown:
			s.logger.Debug("ignoring frame", "frame_type", m.Type)
		}
	}
	return nil
}

// downstream relays agent events to the client in arrival order. On a
// terminal event the ending sequence is strictly ordered: the event itself,
// then the synthetic end signal, then the ended flag, then queue close, then
// the pump stops.
func (s *Session) downstream(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-s.stream.Events():
			if !ok {
				if err := s.stream.Err(); err != nil {
					s.logger.Error("agent stream failed", "error", err)
					return fmt.Errorf("agent stream: %w", err)
				}
				s.cancel()
				return nil
			}

			data, err := protocol.EncodeEvent(ev)
			if err != nil {
				return fmt.Errorf("encode event: %w", err)
			}
			terminal := eventIsTerminal(ev)
			if err := s.writer.WriteText(data); err != nil {
				return ErrDisconnected
			}
			if !terminal {
				continue
			}

			s.state.Store(int32(StateEnding))
			if err := s.writer.WriteJSON(protocol.ConversationEnd()); err != nil {
				return ErrDisconnected
			}
			s.ended.Store(true)
			s.queue.Close()
			s.logger.Info("lesson complete, ending session")
			s.cancel()
			return nil
		}
	}
}

func (s *Session) keepalive(ctx context.Context) error {
	ticker := time.NewTicker(s.cfg.PingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := s.writer.Ping(); err != nil {
				return ErrDisconnected
			}
		}
	}
}
