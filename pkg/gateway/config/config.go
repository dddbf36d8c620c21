// Package config loads relay configuration from the environment and
// validates it before the server starts.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Addr string

	// Hosted agent backend.
	GeminiAPIKey string
	Model        string

	// Live WebSocket behavior.
	HandshakeTimeout    time.Duration
	WSPingInterval      time.Duration
	WSWriteTimeout      time.Duration
	WSReadTimeout       time.Duration
	MaxJSONMessageBytes int64
	MaxAudioFrameBytes  int

	// Optional allowlist of WebSocket origins (empty => any origin).
	AllowedOrigins map[string]struct{}

	// Operational defaults.
	ReadHeaderTimeout   time.Duration
	ShutdownGracePeriod time.Duration
	DrainWarningPeriod  time.Duration

	// Logging.
	LogLevel  string
	LogFormat string
}

func LoadFromEnv() (Config, error) {
	cfg := Config{
		Addr:                envOr("TUTOR_RELAY_ADDR", ":8080"),
		GeminiAPIKey:        strings.TrimSpace(os.Getenv("GOOGLE_API_KEY")),
		Model:               envOr("TUTOR_RELAY_MODEL", ""),
		HandshakeTimeout:    envDurationOr("TUTOR_RELAY_HANDSHAKE_TIMEOUT", 10*time.Second),
		WSPingInterval:      envDurationOr("TUTOR_RELAY_WS_PING_INTERVAL", 20*time.Second),
		WSWriteTimeout:      envDurationOr("TUTOR_RELAY_WS_WRITE_TIMEOUT", 5*time.Second),
		WSReadTimeout:       envDurationOr("TUTOR_RELAY_WS_READ_TIMEOUT", 0),
		MaxJSONMessageBytes: envInt64Or("TUTOR_RELAY_MAX_JSON_MESSAGE_BYTES", 1<<20), // 1 MiB
		MaxAudioFrameBytes:  envIntOr("TUTOR_RELAY_MAX_AUDIO_FRAME_BYTES", 64*1024),
		AllowedOrigins:      make(map[string]struct{}),
		ReadHeaderTimeout:   envDurationOr("TUTOR_RELAY_READ_HEADER_TIMEOUT", 10*time.Second),
		ShutdownGracePeriod: envDurationOr("TUTOR_RELAY_SHUTDOWN_GRACE_PERIOD", 20*time.Second),
		DrainWarningPeriod:  envDurationOr("TUTOR_RELAY_DRAIN_WARNING_PERIOD", 3*time.Second),
		LogLevel:            envOr("TUTOR_RELAY_LOG_LEVEL", "info"),
		LogFormat:           envOr("TUTOR_RELAY_LOG_FORMAT", "json"),
	}

	for _, origin := range splitCSV(os.Getenv("TUTOR_RELAY_ALLOWED_ORIGINS")) {
		cfg.AllowedOrigins[origin] = struct{}{}
	}

	if cfg.GeminiAPIKey == "" {
		return Config{}, fmt.Errorf("GOOGLE_API_KEY must be set")
	}
	if cfg.HandshakeTimeout <= 0 {
		return Config{}, fmt.Errorf("TUTOR_RELAY_HANDSHAKE_TIMEOUT must be > 0")
	}
	if cfg.WSPingInterval <= 0 {
		return Config{}, fmt.Errorf("TUTOR_RELAY_WS_PING_INTERVAL must be > 0")
	}
	if cfg.WSWriteTimeout <= 0 {
		return Config{}, fmt.Errorf("TUTOR_RELAY_WS_WRITE_TIMEOUT must be > 0")
	}
	if cfg.WSReadTimeout < 0 {
		return Config{}, fmt.Errorf("TUTOR_RELAY_WS_READ_TIMEOUT must be >= 0")
	}
	if cfg.MaxJSONMessageBytes <= 0 {
		return Config{}, fmt.Errorf("TUTOR_RELAY_MAX_JSON_MESSAGE_BYTES must be > 0")
	}
	if cfg.MaxAudioFrameBytes <= 0 {
		return Config{}, fmt.Errorf("TUTOR_RELAY_MAX_AUDIO_FRAME_BYTES must be > 0")
	}
	if cfg.ReadHeaderTimeout <= 0 {
		return Config{}, fmt.Errorf("TUTOR_RELAY_READ_HEADER_TIMEOUT must be > 0")
	}
	if cfg.ShutdownGracePeriod <= 0 {
		return Config{}, fmt.Errorf("TUTOR_RELAY_SHUTDOWN_GRACE_PERIOD must be > 0")
	}
	if cfg.DrainWarningPeriod < 0 {
		return Config{}, fmt.Errorf("TUTOR_RELAY_DRAIN_WARNING_PERIOD must be >= 0")
	}
	if cfg.DrainWarningPeriod >= cfg.ShutdownGracePeriod {
		return Config{}, fmt.Errorf("TUTOR_RELAY_DRAIN_WARNING_PERIOD must be < TUTOR_RELAY_SHUTDOWN_GRACE_PERIOD")
	}
	switch strings.ToLower(cfg.LogLevel) {
	case "debug", "info", "warn", "error":
	default:
		return Config{}, fmt.Errorf("TUTOR_RELAY_LOG_LEVEL must be one of debug|info|warn|error")
	}
	switch strings.ToLower(cfg.LogFormat) {
	case "json", "text":
	default:
		return Config{}, fmt.Errorf("TUTOR_RELAY_LOG_FORMAT must be one of json|text")
	}

	return cfg, nil
}

func envOr(key, def string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	return v
}

func envInt64Or(key string, def int64) int64 {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return def
	}
	return n
}

func envIntOr(key string, def int) int {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return n
}

func envDurationOr(key string, def time.Duration) time.Duration {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return def
	}
	return d
}

func splitCSV(raw string) []string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		out = append(out, p)
	}
	return out
}
