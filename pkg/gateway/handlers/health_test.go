package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/tutorkit/relay/pkg/gateway/config"
	"github.com/tutorkit/relay/pkg/gateway/lifecycle"
	"github.com/tutorkit/relay/pkg/gateway/live/sessions"
)

func readyConfig() config.Config {
	return config.Config{
		GeminiAPIKey:        "test-key",
		HandshakeTimeout:    10 * time.Second,
		WSPingInterval:      20 * time.Second,
		WSWriteTimeout:      5 * time.Second,
		MaxJSONMessageBytes: 1 << 20,
		MaxAudioFrameBytes:  64 * 1024,
	}
}

func TestHealthHandler_OK(t *testing.T) {
	rr := httptest.NewRecorder()
	HealthHandler{}.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("status=%d", rr.Code)
	}
	if rr.Body.String() != "ok\n" {
		t.Fatalf("body=%q", rr.Body.String())
	}
}

func TestReadyHandler_Ready(t *testing.T) {
	h := ReadyHandler{Config: readyConfig(), Lifecycle: lifecycle.New(), Sessions: sessions.NewTracker()}

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/readyz", nil))

	if rr.Code != http.StatusOK {
		t.Fatalf("status=%d body=%q", rr.Code, rr.Body.String())
	}
	var resp map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if ok, _ := resp["ok"].(bool); !ok {
		t.Fatalf("expected ok=true, body=%q", rr.Body.String())
	}
}

func TestReadyHandler_DrainingNotReady(t *testing.T) {
	lc := lifecycle.New()
	lc.SetDraining(true)
	h := ReadyHandler{Config: readyConfig(), Lifecycle: lc, Sessions: sessions.NewTracker()}

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/readyz", nil))

	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("status=%d, want 503", rr.Code)
	}
}

func TestReadyHandler_MissingAPIKeyNotReady(t *testing.T) {
	cfg := readyConfig()
	cfg.GeminiAPIKey = ""
	h := ReadyHandler{Config: cfg, Lifecycle: lifecycle.New(), Sessions: sessions.NewTracker()}

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/readyz", nil))

	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("status=%d, want 503", rr.Code)
	}
}
