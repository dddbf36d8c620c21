// Package gemini backs the agent boundary with a Gemini Live session.
package gemini

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/google/uuid"
	"google.golang.org/genai"

	"github.com/tutorkit/relay/pkg/agent"
)

const (
	// DefaultModel matches the tutoring deployment default; override with
	// config when a half-cascade model is preferred.
	DefaultModel = "gemini-2.5-flash-native-audio-preview-09-2025"

	eventAuthor = "tutor"
)

type Config struct {
	APIKey string
	Model  string
	Logger *slog.Logger
}

type Engine struct {
	client *genai.Client
	model  string
	logger *slog.Logger
}

func New(ctx context.Context, cfg Config) (*Engine, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, fmt.Errorf("gemini api key is required")
	}
	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = DefaultModel
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}
	return &Engine{client: client, model: model, logger: cfg.Logger}, nil
}

func (e *Engine) Model() string { return e.model }

// NewStream opens one live connection scoped to the session's topic and
// title. Native audio models only support the AUDIO response modality and
// get transcription enabled on both directions; half-cascade models run in
// TEXT mode for lower latency.
func (e *Engine) NewStream(ctx context.Context, params agent.SessionParams) (agent.Stream, error) {
	connectCfg := &genai.LiveConnectConfig{
		SystemInstruction: &genai.Content{
			Parts: []*genai.Part{{Text: systemInstruction(params.Topic, params.Title)}},
		},
		Tools:             []*genai.Tool{{GoogleSearch: &genai.GoogleSearch{}}},
		SessionResumption: &genai.SessionResumptionConfig{},
	}
	if IsNativeAudioModel(e.model) {
		connectCfg.ResponseModalities = []genai.Modality{genai.ModalityAudio}
		connectCfg.InputAudioTranscription = &genai.AudioTranscriptionConfig{}
		connectCfg.OutputAudioTranscription = &genai.AudioTranscriptionConfig{}
	} else {
		connectCfg.ResponseModalities = []genai.Modality{genai.ModalityText}
	}

	session, err := e.client.Live.Connect(ctx, e.model, connectCfg)
	if err != nil {
		return nil, fmt.Errorf("connect live session: %w", err)
	}

	s := &stream{
		session: session,
		logger: e.logger.With(
			"user_id", params.UserID,
			"session_id", params.SessionID,
		),
		events: make(chan agent.Event, 16),
		done:   make(chan struct{}),
	}
	go s.receiveLoop()
	return s, nil
}

// IsNativeAudioModel reports whether the model only supports the AUDIO
// response modality.
func IsNativeAudioModel(model string) bool {
	return strings.Contains(strings.ToLower(model), "native-audio")
}

type stream struct {
	session *genai.Session
	logger  *slog.Logger

	events chan agent.Event
	done   chan struct{}

	closeOnce sync.Once
	closeErr  error

	errMu sync.Mutex
	err   error
}

func (s *stream) SendRealtime(blob agent.Blob) error {
	return s.session.SendRealtimeInput(genai.LiveRealtimeInput{
		Media: &genai.Blob{MIMEType: blob.MIMEType, Data: blob.Data},
	})
}

func (s *stream) SendContent(text string) error {
	return s.session.SendClientContent(contentInput(text))
}

// contentInput wraps one user text message as a complete turn.
func contentInput(text string) genai.LiveClientContentInput {
	return genai.LiveClientContentInput{
		Turns: []*genai.Content{{
			Role:  genai.RoleUser,
			Parts: []*genai.Part{{Text: text}},
		}},
		TurnComplete: genai.Ptr(true),
	}
}

func (s *stream) Events() <-chan agent.Event { return s.events }

func (s *stream) Err() error {
	s.errMu.Lock()
	defer s.errMu.Unlock()
	return s.err
}

func (s *stream) Close() error {
	s.closeOnce.Do(func() {
		close(s.done)
		s.closeErr = s.session.Close()
	})
	return s.closeErr
}

func (s *stream) receiveLoop() {
	defer close(s.events)
	for {
		msg, err := s.session.Receive()
		if err != nil {
			select {
			case <-s.done:
				// Closed locally; the receive error is expected.
			default:
				s.setErr(err)
			}
			return
		}
		ev, ok := eventFromMessage(msg)
		if !ok {
			continue
		}
		select {
		case s.events <- ev:
		case <-s.done:
			return
		}
	}
}

func (s *stream) setErr(err error) {
	s.errMu.Lock()
	if s.err == nil {
		s.err = err
	}
	s.errMu.Unlock()
}

func eventFromMessage(msg *genai.LiveServerMessage) (agent.Event, bool) {
	if msg == nil || msg.ServerContent == nil {
		return agent.Event{}, false
	}
	sc := msg.ServerContent

	ev := agent.Event{
		ID:           "e_" + uuid.NewString(),
		Author:       eventAuthor,
		TurnComplete: sc.TurnComplete,
		Interrupted:  sc.Interrupted,
		Partial:      !sc.TurnComplete,
	}
	if sc.ModelTurn != nil {
		content := &agent.Content{Role: sc.ModelTurn.Role}
		for _, p := range sc.ModelTurn.Parts {
			if p == nil {
				continue
			}
			part := &agent.Part{Text: p.Text}
			if p.InlineData != nil {
				part.InlineData = &agent.Blob{
					MIMEType: p.InlineData.MIMEType,
					Data:     p.InlineData.Data,
				}
			}
			content.Parts = append(content.Parts, part)
		}
		ev.Content = content
	}
	if sc.InputTranscription != nil {
		ev.InputTranscription = sc.InputTranscription.Text
	}
	if sc.OutputTranscription != nil {
		ev.OutputTranscription = sc.OutputTranscription.Text
	}

	if ev.Content == nil && ev.InputTranscription == "" && ev.OutputTranscription == "" &&
		!ev.TurnComplete && !ev.Interrupted {
		return agent.Event{}, false
	}
	return ev, true
}
