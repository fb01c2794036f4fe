package email

import (
	"context"
	"log/slog"
	"strconv"
	"sync"
)

// LogSender writes messages to the log instead of sending them. It keeps
// every message so tests can inspect what would have gone out.
type LogSender struct {
	mu   sync.Mutex
	sent []Message
}

// Send logs m and returns a local id.
func (s *LogSender) Send(_ context.Context, m Message) (string, error) {
	if len(m.To) == 0 {
		return "", ErrNoRecipient
	}
	s.mu.Lock()
	s.sent = append(s.sent, m)
	id := "log-" + strconv.Itoa(len(s.sent))
	s.mu.Unlock()

	slog.Info("email_event", "event", "logged_only", "message_id", id, "to", m.To, "subject", m.Subject, "category", m.Category)
	return id, nil
}

// Sent returns a copy of every message seen so far.
func (s *LogSender) Sent() []Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Message(nil), s.sent...)
}
