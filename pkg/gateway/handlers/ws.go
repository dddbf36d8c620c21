package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/tutorkit/relay/pkg/agent"
	"github.com/tutorkit/relay/pkg/gateway/config"
	"github.com/tutorkit/relay/pkg/gateway/lifecycle"
	"github.com/tutorkit/relay/pkg/gateway/live/protocol"
	"github.com/tutorkit/relay/pkg/gateway/live/session"
	"github.com/tutorkit/relay/pkg/gateway/live/sessions"
	"github.com/tutorkit/relay/pkg/gateway/mw"
)

const drainWarningMessage = "The server is shutting down. Your session will end shortly."

// DrainWarningMessage is the error-frame text broadcast before shutdown.
func DrainWarningMessage() string { return drainWarningMessage }

// ConnectHandler handles /ws/{user_id}/{session_id}: it upgrades the
// connection, runs the configuration handshake, opens the agent stream, and
// hands both ends to the session coordinator.
type ConnectHandler struct {
	Config       config.Config
	Engine       agent.Engine
	Logger       *slog.Logger
	Lifecycle    *lifecycle.Lifecycle
	LiveSessions *sessions.Tracker
}

func (h ConnectHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if h.Lifecycle != nil && h.Lifecycle.IsDraining() {
		http.Error(w, "server is draining", http.StatusServiceUnavailable)
		return
	}
	if !h.originAllowed(r) {
		http.Error(w, "origin is not allowed", http.StatusForbidden)
		return
	}

	userID := strings.TrimSpace(r.PathValue("user_id"))
	sessionID := strings.TrimSpace(r.PathValue("session_id"))
	if userID == "" || sessionID == "" {
		http.Error(w, "user_id and session_id are required", http.StatusBadRequest)
		return
	}

	reqID, _ := mw.RequestIDFrom(r.Context())
	logger := h.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("request_id", reqID, "user_id", userID, "session_id", sessionID)

	upgrader := websocket.Upgrader{
		CheckOrigin: func(*http.Request) bool { return true },
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	if h.Config.MaxJSONMessageBytes > 0 {
		conn.SetReadLimit(h.Config.MaxJSONMessageBytes)
	}
	if h.Config.WSReadTimeout > 0 {
		readTimeout := h.Config.WSReadTimeout
		_ = conn.SetReadDeadline(time.Now().Add(readTimeout))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(readTimeout))
		})
	}

	writer := session.NewWriter(conn, h.Config.WSWriteTimeout)

	handshakeTimeout := h.Config.HandshakeTimeout
	if handshakeTimeout <= 0 {
		handshakeTimeout = 10 * time.Second
	}
	_ = conn.SetReadDeadline(time.Now().Add(handshakeTimeout))
	clientCfg, err := session.Negotiate(conn, writer)
	if err != nil {
		var decErr *protocol.DecodeError
		if errors.As(err, &decErr) {
			logger.Warn("handshake failed", "error", err)
		} else {
			logger.Info("handshake failed", "error", err)
		}
		return
	}
	if h.Config.WSReadTimeout > 0 {
		_ = conn.SetReadDeadline(time.Now().Add(h.Config.WSReadTimeout))
	} else {
		_ = conn.SetReadDeadline(time.Time{})
	}

	stream, err := h.Engine.NewStream(r.Context(), agent.SessionParams{
		UserID:    userID,
		SessionID: sessionID,
		Topic:     clientCfg.Topic,
		Title:     clientCfg.Title,
	})
	if err != nil {
		logger.Error("failed to open agent stream", "error", err)
		_ = writer.WriteJSON(protocol.ErrorFrame("failed to start tutoring session"))
		return
	}

	queue := session.NewRequestQueue(stream, logger)
	s, err := session.New(session.Dependencies{
		Conn:      conn,
		Writer:    writer,
		Queue:     queue,
		Stream:    stream,
		Logger:    logger,
		UserID:    userID,
		SessionID: sessionID,
		Config: session.Config{
			MaxAudioFrameBytes: h.Config.MaxAudioFrameBytes,
			PingInterval:       h.Config.WSPingInterval,
		},
	})
	if err != nil {
		queue.Close()
		logger.Error("failed to initialize session", "error", err)
		return
	}

	unregister := func() {}
	if h.LiveSessions != nil {
		unregister = h.LiveSessions.Register(sessions.Key{UserID: userID, SessionID: sessionID}, sessions.Handle{
			Cancel: s.Cancel,
			Warn:   s.SendError,
		})
	}
	defer unregister()

	logger.Info("session started", "topic", clientCfg.Topic, "title", clientCfg.Title)
	if err := s.Run(); err != nil {
		logger.Warn("session ended with error", "error", err)
		return
	}
	logger.Info("session ended", "completed", s.Ended())
}

func (h ConnectHandler) originAllowed(r *http.Request) bool {
	origin := strings.TrimSpace(r.Header.Get("Origin"))
	if origin == "" {
		return true
	}
	if len(h.Config.AllowedOrigins) == 0 {
		return true
	}
	_, ok := h.Config.AllowedOrigins[origin]
	return ok
}
