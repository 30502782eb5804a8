// Package notify delivers fire-and-forget user notifications. Messages are
// never acknowledged; a failed or dropped notification does not affect the
// operation that emitted it.
package notify

import (
	"log/slog"
	"sync"
	"time"
)

// Notifier delivers a message to the user. The duration is a display hint;
// zero means the sink's default.
type Notifier interface {
	Notify(msg string, d time.Duration)
}

// Log writes notifications through a slog logger.
type Log struct {
	logger *slog.Logger
}

// NewLog returns a Notifier backed by the given logger.
func NewLog(logger *slog.Logger) *Log {
	if logger == nil {
		logger = slog.Default()
	}
	return &Log{logger: logger}
}

// Notify implements Notifier.
func (l *Log) Notify(msg string, d time.Duration) {
	if d > 0 {
		l.logger.Info(msg, "display", d)
		return
	}
	l.logger.Info(msg)
}

// Multi fans a notification out to several sinks.
type Multi []Notifier

// Notify implements Notifier.
func (m Multi) Notify(msg string, d time.Duration) {
	for _, n := range m {
		n.Notify(msg, d)
	}
}

// Recorder captures notifications for assertions in tests.
type Recorder struct {
	mu       sync.Mutex
	messages []string
}

// Notify implements Notifier.
func (r *Recorder) Notify(msg string, d time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.messages = append(r.messages, msg)
}

// Messages returns a copy of the captured messages in arrival order.
func (r *Recorder) Messages() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.messages))
	copy(out, r.messages)
	return out
}

var (
	_ Notifier = (*Log)(nil)
	_ Notifier = (Multi)(nil)
	_ Notifier = (*Recorder)(nil)
)
