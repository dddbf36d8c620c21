package protocol

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/tutorkit/relay/pkg/agent"
)

func TestDecodeClientFrame_Config(t *testing.T) {
	raw := []byte(`{"type":"config","topic":"Python","title":"Loops"}`)

	msg, err := DecodeClientFrame(raw)
	if err != nil {
		t.Fatalf("DecodeClientFrame() error = %v", err)
	}
	cfg, ok := msg.(ClientConfig)
	if !ok {
		t.Fatalf("decoded type = %T, want ClientConfig", msg)
	}
	if cfg.Topic != "Python" || cfg.Title != "Loops" {
		t.Fatalf("topic=%q title=%q", cfg.Topic, cfg.Title)
	}
}

func TestDecodeClientFrame_ConfigDefaults(t *testing.T) {
	msg, err := DecodeClientFrame([]byte(`{"type":"config"}`))
	if err != nil {
		t.Fatalf("DecodeClientFrame() error = %v", err)
	}
	cfg := msg.(ClientConfig)
	if cfg.Topic != DefaultTopic {
		t.Fatalf("topic=%q, want %q", cfg.Topic, DefaultTopic)
	}
	if cfg.Title != DefaultTitle {
		t.Fatalf("title=%q, want %q", cfg.Title, DefaultTitle)
	}
}

func TestDecodeClientFrame_Text(t *testing.T) {
	msg, err := DecodeClientFrame([]byte(`{"type":"text","text":"hello"}`))
	if err != nil {
		t.Fatalf("DecodeClientFrame() error = %v", err)
	}
	txt, ok := msg.(ClientText)
	if !ok {
		t.Fatalf("decoded type = %T, want ClientText", msg)
	}
	if txt.Text != "hello" {
		t.Fatalf("text=%q", txt.Text)
	}
}

func TestDecodeClientFrame_ImageDefaultsMIME(t *testing.T) {
	msg, err := DecodeClientFrame([]byte(`{"type":"image","data":"aGVsbG8="}`))
	if err != nil {
		t.Fatalf("DecodeClientFrame() error = %v", err)
	}
	img, ok := msg.(ClientImage)
	if !ok {
		t.Fatalf("decoded type = %T, want ClientImage", msg)
	}
	if string(img.Data) != "hello" {
		t.Fatalf("data=%q", img.Data)
	}
	if img.MIMEType != DefaultImageMIME {
		t.Fatalf("mime=%q, want %q", img.MIMEType, DefaultImageMIME)
	}
}

func TestDecodeClientFrame_ImageBadBase64(t *testing.T) {
	_, err := DecodeClientFrame([]byte(`{"type":"image","data":"%%%"}`))
	if err == nil {
		t.Fatal("expected error")
	}
	decErr, ok := err.(*DecodeError)
	if !ok {
		t.Fatalf("err type = %T", err)
	}
	if decErr.Code != "bad_request" || decErr.Param != "data" {
		t.Fatalf("code=%q param=%q", decErr.Code, decErr.Param)
	}
}

func TestDecodeClientFrame_UnknownTypeIsBenign(t *testing.T) {
	msg, err := DecodeClientFrame([]byte(`{"type":"ping"}`))
	if err != nil {
		t.Fatalf("DecodeClientFrame() error = %v", err)
	}
	unknown, ok := msg.(ClientUnknown)
	if !ok {
		t.Fatalf("decoded type = %T, want ClientUnknown", msg)
	}
	if unknown.Type != "ping" {
		t.Fatalf("type=%q", unknown.Type)
	}
}

func TestDecodeClientFrame_InvalidJSON(t *testing.T) {
	_, err := DecodeClientFrame([]byte(`{broken`))
	if err == nil {
		t.Fatal("expected error")
	}
	if _, ok := err.(*DecodeError); !ok {
		t.Fatalf("err type = %T", err)
	}
}

func TestDecodeClientFrame_MissingType(t *testing.T) {
	_, err := DecodeClientFrame([]byte(`{"text":"hi"}`))
	if err == nil {
		t.Fatal("expected error")
	}
	decErr := err.(*DecodeError)
	if decErr.Param != "type" {
		t.Fatalf("param=%q", decErr.Param)
	}
}

func TestConfigAck_Message(t *testing.T) {
	ack := ConfigAck("Python", "Loops")
	if ack.Status != "ready" {
		t.Fatalf("status=%q", ack.Status)
	}
	if ack.Message != "Ready to start conversation about Python: Loops" {
		t.Fatalf("message=%q", ack.Message)
	}
}

func TestConversationEnd_Frame(t *testing.T) {
	end := ConversationEnd()
	data, err := json.Marshal(end)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	want := `{"type":"conversation_end","reason":"lesson_complete","message":"The lesson is complete. Great job!"}`
	if string(data) != want {
		t.Fatalf("frame=%s", data)
	}
}

func TestEncodeEvent_OmitsAbsentFields(t *testing.T) {
	data, err := EncodeEvent(agent.Event{
		ID:     "e_1",
		Author: "tutor",
		Content: &agent.Content{
			Role:  "model",
			Parts: []*agent.Part{{Text: "hi"}},
		},
	})
	if err != nil {
		t.Fatalf("EncodeEvent() error = %v", err)
	}
	s := string(data)
	if strings.Contains(s, "inlineData") || strings.Contains(s, "null") {
		t.Fatalf("absent fields leaked: %s", s)
	}
	if !strings.Contains(s, `"text":"hi"`) {
		t.Fatalf("missing text part: %s", s)
	}
}
