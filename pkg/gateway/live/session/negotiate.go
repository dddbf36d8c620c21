package session

import (
	"errors"

	"github.com/gorilla/websocket"

	"github.com/tutorkit/relay/pkg/gateway/live/protocol"
)

// ErrDisconnected marks a client that went away. It is an expected outcome,
// not an operational failure.
var ErrDisconnected = errors.New("client disconnected")

const configFirstMessage = "Please send configuration first"

// FrameReader is the read half of a WebSocket connection.
type FrameReader interface {
	ReadMessage() (messageType int, data []byte, err error)
}

// Negotiate drives the one-time configuration handshake. It reads frames
// until a config frame arrives, answering every other frame with an error
// response and continuing to wait. On success the config_ack has already
// been sent and streaming may begin.
//
// Returns ErrDisconnected if the client closes first, or the codec's
// *protocol.DecodeError for an unparseable frame; in both cases the caller
// must not start streaming.
func Negotiate(conn FrameReader, w *Writer) (protocol.ClientConfig, error) {
	for {
		messageType, data, err := conn.ReadMessage()
		if err != nil {
			return protocol.ClientConfig{}, ErrDisconnected
		}
		if messageType != websocket.TextMessage {
			// Binary audio before configuration is premature too.
			if err := w.WriteJSON(protocol.ErrorFrame(configFirstMessage)); err != nil {
				return protocol.ClientConfig{}, ErrDisconnected
			}
			continue
		}

		msg, decErr := protocol.DecodeClientFrame(data)
		if decErr != nil {
			return protocol.ClientConfig{}, decErr
		}
		cfg, ok := msg.(protocol.ClientConfig)
		if !ok {
			if err := w.WriteJSON(protocol.ErrorFrame(configFirstMessage)); err != nil {
				return protocol.ClientConfig{}, ErrDisconnected
			}
			continue
		}

		if err := w.WriteJSON(protocol.ConfigAck(cfg.Topic, cfg.Title)); err != nil {
			return protocol.ClientConfig{}, ErrDisconnected
		}
		return cfg, nil
	}
}
