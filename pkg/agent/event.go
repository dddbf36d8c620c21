package agent

import "strings"

// Blob is a chunk of binary media tagged with a MIME type.
type Blob struct {
	MIMEType string `json:"mimeType,omitempty"`
	Data     []byte `json:"data,omitempty"`
}

// Part is one piece of event content: text, or inline binary media such as
// synthesized audio.
type Part struct {
	Text       string `json:"text,omitempty"`
	InlineData *Blob  `json:"inlineData,omitempty"`
}

type Content struct {
	Role  string  `json:"role,omitempty"`
	Parts []*Part `json:"parts,omitempty"`
}

// Event is one message produced by the agent. It is relayed to the client
// as-is; absent fields are omitted from the wire form.
type Event struct {
	ID                  string   `json:"id,omitempty"`
	Author              string   `json:"author,omitempty"`
	Content             *Content `json:"content,omitempty"`
	Partial             bool     `json:"partial,omitempty"`
	TurnComplete        bool     `json:"turnComplete,omitempty"`
	Interrupted         bool     `json:"interrupted,omitempty"`
	InputTranscription  string   `json:"inputTranscription,omitempty"`
	OutputTranscription string   `json:"outputTranscription,omitempty"`
}

// TextParts returns the non-empty textual parts of the event, including
// audio transcription text when present.
func (e Event) TextParts() []string {
	var out []string
	if e.Content != nil {
		for _, p := range e.Content.Parts {
			if p == nil {
				continue
			}
			if t := strings.TrimSpace(p.Text); t != "" {
				out = append(out, p.Text)
			}
		}
	}
	if t := strings.TrimSpace(e.OutputTranscription); t != "" {
		out = append(out, e.OutputTranscription)
	}
	return out
}
