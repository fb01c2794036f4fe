// Package email delivers notification e-mails. Resend is used when an API key
// is configured; otherwise messages are only logged.
package email

import (
	"context"
	"errors"
)

// Message is one outgoing e-mail.
type Message struct {
	To       []string
	From     string // empty uses the sender's default address
	ReplyTo  string
	Subject  string
	HTML     string
	Category string // notification type, attached as a provider tag for filtering
}

// ErrNoRecipient is returned for a message without addresses.
var ErrNoRecipient = errors.New("email: no recipient")

// Sender delivers a message and returns the provider's message id.
type Sender interface {
	Send(ctx context.Context, m Message) (string, error)
}

// New returns a Resend sender when apiKey is set, else a LogSender.
func New(apiKey, from string) Sender {
	if apiKey == "" {
		return &LogSender{}
	}
	return NewResendSender(apiKey, from)
}
