package email

import (
	"cmp"
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/resend/resend-go/v2"
)

// ResendSender sends through the Resend API.
type ResendSender struct {
	client *resend.Client
	from   string
}

// NewResendSender creates a sender using apiKey, with from as the default sender address.
func NewResendSender(apiKey, from string) *ResendSender {
	return &ResendSender{client: resend.NewClient(apiKey), from: from}
}

// request maps m onto the Resend API.
func (s *ResendSender) request(m Message) *resend.SendEmailRequest {
	req := &resend.SendEmailRequest{
		From:    cmp.Or(m.From, s.from),
		To:      m.To,
		Subject: m.Subject,
		Html:    m.HTML,
		ReplyTo: m.ReplyTo,
	}
	if m.Category != "" {
		req.Tags = []resend.Tag{{Name: "category", Value: tagValue(m.Category)}}
	}
	return req
}

// Send delivers m and returns Resend's message id.
func (s *ResendSender) Send(ctx context.Context, m Message) (string, error) {
	if len(m.To) == 0 {
		return "", ErrNoRecipient
	}
	sent, err := s.client.Emails.SendWithContext(ctx, s.request(m))
	if err != nil {
		slog.Warn("email_event", "event", "resend_failed", "to", m.To, "subject", m.Subject, "error", err)
		return "", fmt.Errorf("resend: %w", err)
	}
	slog.Info("email_event", "event", "sent", "message_id", sent.Id, "to", m.To, "category", m.Category)
	return sent.Id, nil
}

// tagValue keeps the ASCII letters, digits, underscores and dashes Resend accepts in tags.
func tagValue(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_', r == '-':
			return r
		case r == ' ':
			return '_'
		}
		return -1
	}, s)
}
