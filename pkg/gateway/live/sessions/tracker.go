// Package sessions tracks live tutoring sessions so the server can warn,
// wait for, and cancel them during shutdown.
package sessions

import (
	"context"
	"sync"
)

// Key identifies one tutoring session. A user may hold sessions with
// different session IDs concurrently, but registering the same key twice
// cancels the older session.
type Key struct {
	UserID    string
	SessionID string
}

// Handle is the tracker's view of a running session.
type Handle struct {
	Cancel func()
	Warn   func(message string) error
}

type Tracker struct {
	mu       sync.Mutex
	sessions map[Key]*trackedSession
	wg       sync.WaitGroup
}

type trackedSession struct {
	handle Handle
	once   sync.Once
}

func NewTracker() *Tracker {
	return &Tracker{
		sessions: make(map[Key]*trackedSession),
	}
}

// Register adds a session under key and returns its unregister function.
// If another session already holds the key it is cancelled and removed
// first, so a reconnecting client never races its own stale session.
func (t *Tracker) Register(key Key, h Handle) (unregister func()) {
	if t == nil {
		return func() {}
	}

	entry := &trackedSession{handle: h}

	t.mu.Lock()
	if t.sessions == nil {
		t.sessions = make(map[Key]*trackedSession)
	}
	old := t.sessions[key]
	t.sessions[key] = entry
	t.wg.Add(1)
	t.mu.Unlock()

	if old != nil {
		if old.handle.Cancel != nil {
			old.handle.Cancel()
		}
		t.unregister(key, old)
	}

	return func() { t.unregister(key, entry) }
}

func (t *Tracker) unregister(key Key, entry *trackedSession) {
	if t == nil || entry == nil {
		return
	}
	entry.once.Do(func() {
		t.mu.Lock()
		if t.sessions != nil && t.sessions[key] == entry {
			delete(t.sessions, key)
		}
		t.mu.Unlock()
		t.wg.Done()
	})
}

func (t *Tracker) Count() int {
	if t == nil {
		return 0
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.sessions)
}

// WarnAll sends message to every live session. Send failures are ignored;
// a session that cannot be reached is about to be cancelled anyway.
func (t *Tracker) WarnAll(message string) (sent int) {
	if t == nil {
		return 0
	}

	var warns []func(message string) error
	t.mu.Lock()
	for _, entry := range t.sessions {
		if entry == nil || entry.handle.Warn == nil {
			continue
		}
		warns = append(warns, entry.handle.Warn)
	}
	t.mu.Unlock()

	for _, warn := range warns {
		_ = warn(message)
		sent++
	}
	return sent
}

func (t *Tracker) CancelAll() (canceled int) {
	if t == nil {
		return 0
	}

	var cancels []func()
	t.mu.Lock()
	for _, entry := range t.sessions {
		if entry == nil || entry.handle.Cancel == nil {
			continue
		}
		cancels = append(cancels, entry.handle.Cancel)
	}
	t.mu.Unlock()

	for _, cancel := range cancels {
		cancel()
		canceled++
	}
	return canceled
}

// Wait blocks until every registered session has unregistered or ctx ends.
// It reports whether all sessions finished.
func (t *Tracker) Wait(ctx context.Context) bool {
	if t == nil {
		return true
	}
	if ctx == nil {
		t.wg.Wait()
		return true
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		t.wg.Wait()
	}()

	select {
	case <-done:
		return true
	case <-ctx.Done():
		return false
	}
}
