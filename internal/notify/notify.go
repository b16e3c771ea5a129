// Package notify delivers user-facing messages about the outcome of
// operations.
package notify

import (
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"quicksale/backend/internal/domain"
)

type Sink interface {
	Notify(message string, severity domain.Severity)
}

// LogSink writes notifications to the process log.
type LogSink struct {
	Logger logrus.FieldLogger
}

func (s LogSink) Notify(message string, severity domain.Severity) {
	entry := s.Logger.WithFields(logrus.Fields{"module": "notify", "severity": severity})
	switch severity {
	case domain.SeverityError:
		entry.Error(message)
	case domain.SeverityWarning:
		entry.Warn(message)
	default:
		entry.Info(message)
	}
}

// Recorder keeps the most recent notifications in memory, oldest first.
type Recorder struct {
	mu    sync.Mutex
	limit int
	now   func() time.Time
	items []domain.Notification
}

func NewRecorder(limit int) *Recorder {
	if limit <= 0 {
		limit = 100
	}
	return &Recorder{limit: limit, now: time.Now}
}

func (r *Recorder) Notify(message string, severity domain.Severity) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items = append(r.items, domain.Notification{Message: message, Severity: severity, At: r.now().UTC()})
	if over := len(r.items) - r.limit; over > 0 {
		r.items = append(r.items[:0:0], r.items[over:]...)
	}
}

func (r *Recorder) List() []domain.Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]domain.Notification{}, r.items...)
}

// Last returns the newest notification.
func (r *Recorder) Last() (domain.Notification, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.items) == 0 {
		return domain.Notification{}, false
	}
	return r.items[len(r.items)-1], true
}

type multi []Sink

// Multi fans a notification out to every non-nil sink.
func Multi(sinks ...Sink) Sink {
	out := make(multi, 0, len(sinks))
	for _, s := range sinks {
		if s != nil {
			out = append(out, s)
		}
	}
	return out
}

func (m multi) Notify(message string, severity domain.Severity) {
	for _, s := range m {
		s.Notify(message, severity)
	}
}
