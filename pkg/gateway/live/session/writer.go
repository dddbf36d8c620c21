package session

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

type wsWriter interface {
	SetWriteDeadline(t time.Time) error
	WriteMessage(messageType int, data []byte) error
	WriteControl(messageType int, data []byte, deadline time.Time) error
}

// Writer serializes frame writes to one connection under a write deadline.
// Both the negotiator and the downstream pump write through it, so outbound
// ordering is the order of Write calls.
type Writer struct {
	mu      sync.Mutex
	ws      wsWriter
	timeout time.Duration
}

func NewWriter(ws wsWriter, timeout time.Duration) *Writer {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Writer{ws: ws, timeout: timeout}
}

func (w *Writer) WriteText(data []byte) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.ws.SetWriteDeadline(time.Now().Add(w.timeout)); err != nil {
		return err
	}
	return w.ws.WriteMessage(websocket.TextMessage, data)
}

func (w *Writer) WriteJSON(v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return w.WriteText(data)
}

// Ping uses WriteControl, which gorilla allows concurrently with message
// writes.
func (w *Writer) Ping() error {
	return w.ws.WriteControl(websocket.PingMessage, []byte("ping"), time.Now().Add(w.timeout))
}

// CloseNormal announces a clean close to the client.
func (w *Writer) CloseNormal() error {
	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
	return w.ws.WriteControl(websocket.CloseMessage, msg, time.Now().Add(w.timeout))
}
