// Package protocol is the wire codec for the tutoring relay's WebSocket
// endpoint: typed inbound frames, outbound control frames, and pass-through
// encoding of agent events.
package protocol

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/tutorkit/relay/pkg/agent"
)

const (
	DefaultTopic = "General"
	DefaultTitle = "Introduction"

	// DefaultImageMIME applies when an image frame omits mimeType.
	DefaultImageMIME = "image/jpeg"

	// AudioMIME is the fixed format of raw binary frames: 16 kHz mono
	// linear PCM.
	AudioMIME = "audio/pcm;rate=16000"
)

type DecodeError struct {
	Code    string
	Message string
	Param   string
}

func (e *DecodeError) Error() string {
	if e == nil {
		return ""
	}
	if strings.TrimSpace(e.Param) == "" {
		return e.Message
	}
	return fmt.Sprintf("%s (%s)", e.Message, e.Param)
}

func badRequest(message, param string) *DecodeError {
	return &DecodeError{Code: "bad_request", Message: message, Param: param}
}

// ClientConfig is the one-time handshake frame. It must be the first frame
// of a session.
type ClientConfig struct {
	Type  string `json:"type"`
	Topic string `json:"topic,omitempty"`
	Title string `json:"title,omitempty"`
}

type ClientText struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// ClientImage carries decoded image bytes; the codec resolves the base64
// payload and the default MIME type.
type ClientImage struct {
	Type     string
	Data     []byte
	MIMEType string
}

// ClientUnknown is a frame with an unrecognized type. Outside negotiation it
// is ignored rather than treated as an error.
type ClientUnknown struct {
	Type string
}

// DecodeClientFrame parses a text frame into one of the Client* variants.
// Unparseable JSON and missing type fields are decode errors; unknown type
// values are not.
func DecodeClientFrame(data []byte) (any, error) {
	var envelope struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &envelope); err != nil {
		return nil, badRequest("invalid json frame", "")
	}
	typ := strings.TrimSpace(envelope.Type)
	if typ == "" {
		return nil, badRequest("missing type", "type")
	}

	switch typ {
	case "config":
		var msg ClientConfig
		if err := json.Unmarshal(data, &msg); err != nil {
			return nil, badRequest("invalid config frame", "")
		}
		if strings.TrimSpace(msg.Topic) == "" {
			msg.Topic = DefaultTopic
		}
		if strings.TrimSpace(msg.Title) == "" {
			msg.Title = DefaultTitle
		}
		return msg, nil
	case "text":
		var msg ClientText
		if err := json.Unmarshal(data, &msg); err != nil {
			return nil, badRequest("invalid text frame", "")
		}
		return msg, nil
	case "image":
		var raw struct {
			Type     string `json:"type"`
			Data     string `json:"data"`
			MIMEType string `json:"mimeType"`
		}
		if err := json.Unmarshal(data, &raw); err != nil {
			return nil, badRequest("invalid image frame", "")
		}
		if strings.TrimSpace(raw.Data) == "" {
			return nil, badRequest("image.data is required", "data")
		}
		decoded, err := base64.StdEncoding.DecodeString(raw.Data)
		if err != nil {
			return nil, badRequest("image.data is not valid base64", "data")
		}
		mime := strings.TrimSpace(raw.MIMEType)
		if mime == "" {
			mime = DefaultImageMIME
		}
		return ClientImage{Type: raw.Type, Data: decoded, MIMEType: mime}, nil
	default:
		return ClientUnknown{Type: typ}, nil
	}
}

type ServerConfigAck struct {
	Type    string `json:"type"`
	Status  string `json:"status"`
	Message string `json:"message"`
	Topic   string `json:"topic"`
	Title   string `json:"title"`
}

// ConfigAck builds the acknowledgment sent once the handshake completes.
func ConfigAck(topic, title string) ServerConfigAck {
	return ServerConfigAck{
		Type:    "config_ack",
		Status:  "ready",
		Message: fmt.Sprintf("Ready to start conversation about %s: %s", topic, title),
		Topic:   topic,
		Title:   title,
	}
}

type ServerError struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

func ErrorFrame(message string) ServerError {
	return ServerError{Type: "error", Message: message}
}

type ServerConversationEnd struct {
	Type    string `json:"type"`
	Reason  string `json:"reason"`
	Message string `json:"message"`
}

// ConversationEnd is the synthetic end signal sent after a terminal agent
// event.
func ConversationEnd() ServerConversationEnd {
	return ServerConversationEnd{
		Type:    "conversation_end",
		Reason:  "lesson_complete",
		Message: "The lesson is complete. Great job!",
	}
}

// EncodeEvent serializes an agent event for the client. Absent fields are
// omitted via the event's wire tags.
func EncodeEvent(ev agent.Event) ([]byte, error) {
	return json.Marshal(ev)
}
