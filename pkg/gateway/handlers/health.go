package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/tutorkit/relay/pkg/gateway/config"
	"github.com/tutorkit/relay/pkg/gateway/lifecycle"
	"github.com/tutorkit/relay/pkg/gateway/live/sessions"
)

type HealthHandler struct{}

func (h HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok\n"))
}

// ReadyHandler reports whether the relay can accept new tutoring sessions.
// A draining server is alive but not ready.
type ReadyHandler struct {
	Config    config.Config
	Lifecycle *lifecycle.Lifecycle
	Sessions  *sessions.Tracker
}

func (h ReadyHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	type readyResp struct {
		OK            bool     `json:"ok"`
		LiveSessions  int      `json:"live_sessions"`
		UptimeSeconds int64    `json:"uptime_seconds"`
		Issues        []string `json:"issues,omitempty"`
	}

	issues := make([]string, 0, 4)

	if h.Lifecycle.IsDraining() {
		issues = append(issues, "server is draining")
	}
	if h.Config.GeminiAPIKey == "" {
		issues = append(issues, "agent api key is not configured")
	}
	if h.Config.MaxAudioFrameBytes <= 0 {
		issues = append(issues, "max_audio_frame_bytes must be > 0")
	}
	if h.Config.MaxJSONMessageBytes <= 0 {
		issues = append(issues, "max_json_message_bytes must be > 0")
	}
	if h.Config.HandshakeTimeout <= 0 || h.Config.WSPingInterval <= 0 || h.Config.WSWriteTimeout <= 0 {
		issues = append(issues, "websocket timeouts must be > 0")
	}

	ok := len(issues) == 0
	status := http.StatusOK
	if !ok {
		status = http.StatusServiceUnavailable
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(readyResp{
		OK:            ok,
		LiveSessions:  h.Sessions.Count(),
		UptimeSeconds: int64(h.Lifecycle.Uptime().Seconds()),
		Issues:        issues,
	})
}
