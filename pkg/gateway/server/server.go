// Package server assembles the HTTP surface of the relay: health endpoints,
// the tutoring WebSocket route, and the middleware chain around them.
package server

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/tutorkit/relay/pkg/agent"
	"github.com/tutorkit/relay/pkg/gateway/config"
	"github.com/tutorkit/relay/pkg/gateway/handlers"
	"github.com/tutorkit/relay/pkg/gateway/lifecycle"
	"github.com/tutorkit/relay/pkg/gateway/live/sessions"
	"github.com/tutorkit/relay/pkg/gateway/mw"
)

type Server struct {
	cfg    config.Config
	logger *slog.Logger
	mux    *http.ServeMux

	engine       agent.Engine
	lifecycle    *lifecycle.Lifecycle
	liveSessions *sessions.Tracker
}

func New(cfg config.Config, engine agent.Engine, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{
		cfg:          cfg,
		logger:       logger,
		mux:          http.NewServeMux(),
		engine:       engine,
		lifecycle:    lifecycle.New(),
		liveSessions: sessions.NewTracker(),
	}

	s.routes()
	return s
}

func (s *Server) routes() {
	s.mux.Handle("GET /healthz", handlers.HealthHandler{})
	s.mux.Handle("GET /readyz", handlers.ReadyHandler{
		Config:    s.cfg,
		Lifecycle: s.lifecycle,
		Sessions:  s.liveSessions,
	})
	s.mux.Handle("GET /ws/{user_id}/{session_id}", handlers.ConnectHandler{
		Config:       s.cfg,
		Engine:       s.engine,
		Logger:       s.logger,
		Lifecycle:    s.lifecycle,
		LiveSessions: s.liveSessions,
	})
}

func (s *Server) Handler() http.Handler {
	var h http.Handler = s.mux
	h = mw.Recover(s.logger, h)
	h = mw.AccessLog(s.logger, h)
	h = mw.RequestID(h)
	return h
}

// SetDraining flips readiness off and makes the WebSocket route refuse new
// sessions. Existing sessions keep running.
func (s *Server) SetDraining() {
	s.lifecycle.SetDraining(true)
}

// WarnLiveSessionsDraining tells every live session the server is going away.
func (s *Server) WarnLiveSessionsDraining() {
	n := s.liveSessions.WarnAll(handlers.DrainWarningMessage())
	if n > 0 {
		s.logger.Info("warned live sessions about shutdown", "sessions", n)
	}
}

// WaitLiveSessions blocks until all live sessions finish or ctx ends.
func (s *Server) WaitLiveSessions(ctx context.Context) bool {
	return s.liveSessions.Wait(ctx)
}

// CancelLiveSessions force-stops whatever sessions remain.
func (s *Server) CancelLiveSessions() {
	n := s.liveSessions.CancelAll()
	if n > 0 {
		s.logger.Warn("cancelled live sessions during shutdown", "sessions", n)
	}
}
