// Package lifecycle holds the small amount of process state shared across
// handlers: whether the server is draining and when it started.
package lifecycle

import (
	"sync/atomic"
	"time"
)

// Lifecycle is used for readiness draining during graceful shutdown. A
// draining server refuses new tutoring sessions while existing ones finish.
type Lifecycle struct {
	draining  atomic.Bool
	startedAt atomic.Int64
}

func New() *Lifecycle {
	l := &Lifecycle{}
	l.startedAt.Store(time.Now().UnixNano())
	return l
}

func (l *Lifecycle) SetDraining(draining bool) {
	if l == nil {
		return
	}
	l.draining.Store(draining)
}

func (l *Lifecycle) IsDraining() bool {
	if l == nil {
		return false
	}
	return l.draining.Load()
}

func (l *Lifecycle) Uptime() time.Duration {
	if l == nil {
		return 0
	}
	started := l.startedAt.Load()
	if started == 0 {
		return 0
	}
	return time.Since(time.Unix(0, started))
}
