package session

import (
	"errors"
	"sync"
	"testing"

	"github.com/tutorkit/relay/pkg/agent"
)

type fakeStream struct {
	mu       sync.Mutex
	realtime []agent.Blob
	content  []string
	closes   int
	sendErr  error
	closeErr error
	events   chan agent.Event
	err      error
}

func newFakeStream() *fakeStream {
	return &fakeStream{events: make(chan agent.Event, 16)}
}

func (f *fakeStream) SendRealtime(blob agent.Blob) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sendErr != nil {
		return f.sendErr
	}
	f.realtime = append(f.realtime, blob)
	return nil
}

func (f *fakeStream) SendContent(text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sendErr != nil {
		return f.sendErr
	}
	f.content = append(f.content, text)
	return nil
}

func (f *fakeStream) Events() <-chan agent.Event { return f.events }

func (f *fakeStream) Err() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.err
}

func (f *fakeStream) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closes++
	if f.closes == 1 {
		close(f.events)
	}
	return f.closeErr
}

func (f *fakeStream) closeCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closes
}

func (f *fakeStream) realtimeCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.realtime)
}

func TestRequestQueue_ForwardsWhileOpen(t *testing.T) {
	stream := newFakeStream()
	q := NewRequestQueue(stream, nil)

	if err := q.SendRealtime(agent.Blob{MIMEType: "audio/pcm;rate=16000", Data: []byte{1, 2}}); err != nil {
		t.Fatalf("SendRealtime() error = %v", err)
	}
	if err := q.SendContent("hello"); err != nil {
		t.Fatalf("SendContent() error = %v", err)
	}
	if stream.realtimeCount() != 1 || len(stream.content) != 1 {
		t.Fatalf("realtime=%d content=%d", stream.realtimeCount(), len(stream.content))
	}
}

func TestRequestQueue_CloseIsIdempotent(t *testing.T) {
	stream := newFakeStream()
	q := NewRequestQueue(stream, nil)

	q.Close()
	q.Close()
	q.Close()

	if stream.closeCount() != 1 {
		t.Fatalf("stream closed %d times, want 1", stream.closeCount())
	}
	if !q.Closed() {
		t.Fatal("queue should report closed")
	}
}

func TestRequestQueue_SendsAfterCloseAreDropped(t *testing.T) {
	stream := newFakeStream()
	q := NewRequestQueue(stream, nil)
	q.Close()

	if err := q.SendRealtime(agent.Blob{Data: []byte{1}}); err != nil {
		t.Fatalf("SendRealtime() after close error = %v", err)
	}
	if err := q.SendContent("dropped"); err != nil {
		t.Fatalf("SendContent() after close error = %v", err)
	}
	if stream.realtimeCount() != 0 || len(stream.content) != 0 {
		t.Fatal("sends after close must not reach the stream")
	}
}

func TestRequestQueue_SendErrorPropagatesWhileOpen(t *testing.T) {
	stream := newFakeStream()
	stream.sendErr = errors.New("boom")
	q := NewRequestQueue(stream, nil)

	if err := q.SendContent("hi"); err == nil {
		t.Fatal("expected error")
	}
}

func TestRequestQueue_ConcurrentCloseIsSafe(t *testing.T) {
	stream := newFakeStream()
	q := NewRequestQueue(stream, nil)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			q.Close()
		}()
	}
	wg.Wait()

	if stream.closeCount() != 1 {
		t.Fatalf("stream closed %d times, want 1", stream.closeCount())
	}
}
