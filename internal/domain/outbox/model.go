// Package outbox models side effects that are queued in the same transaction as
// the change causing them and delivered afterwards by a worker. Today the only
// side effect is the e-mail copy of an in-app notification.
package outbox

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Entry statuses. Pending and retrying entries are still owed a delivery.
const (
	StatusPending   = "pending"
	StatusRetrying  = "retrying"
	StatusDone      = "done"
	StatusFailed    = "failed"
	StatusAbandoned = "abandoned"
)

// ActionTypeNotificationEmail delivers a copy of an in-app notification by e-mail.
const ActionTypeNotificationEmail = "notification_email"

// DefaultMaxAttempts applies when an entry is saved without a limit.
const DefaultMaxAttempts = 5

var (
	ErrEmptyActionType = errors.New("action type is required")
	ErrEmptyPayload    = errors.New("payload is required")
	ErrMissingCreated  = errors.New("created_at must be set")
	ErrNoRecipient     = errors.New("e-mail has no recipient")
	ErrTerminal        = errors.New("entry is in a terminal state")
)

// Entry is one queued side effect.
type Entry struct {
	ID              string
	ActionType      string
	Payload         string // JSON, shape depends on ActionType
	Status          string
	Attempts        int
	MaxAttempts     int
	LastAttemptedAt time.Time
	NextAttemptAt   time.Time // zero once the entry is terminal
	CreatedAt       time.Time
	ExternalID      string // provider message id once delivered
	ErrorMessage    string
}

// NewEntry creates a pending entry that is due immediately.
func NewEntry(id, actionType, payload string, now time.Time) Entry {
	return Entry{
		ID:            id,
		ActionType:    actionType,
		Payload:       payload,
		Status:        StatusPending,
		MaxAttempts:   DefaultMaxAttempts,
		NextAttemptAt: now,
		CreatedAt:     now,
	}
}

// Email is the payload of a notification_email entry.
type Email struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	HTML    string `json:"html"`
	Kind    string `json:"kind,omitempty"` // notification type
}

// NewEmailEntry queues m for delivery.
func NewEmailEntry(id string, m Email, now time.Time) (Entry, error) {
	if strings.TrimSpace(m.To) == "" {
		return Entry{}, ErrNoRecipient
	}
	b, err := json.Marshal(m)
	if err != nil {
		return Entry{}, err
	}
	return NewEntry(id, ActionTypeNotificationEmail, string(b), now), nil
}

// DecodeEmail reads a notification_email payload.
func DecodeEmail(payload string) (Email, error) {
	var m Email
	if err := json.Unmarshal([]byte(payload), &m); err != nil {
		return Email{}, fmt.Errorf("decode e-mail payload: %w", err)
	}
	if strings.TrimSpace(m.To) == "" {
		return Email{}, ErrNoRecipient
	}
	return m, nil
}

// Validate checks required fields and defaults MaxAttempts.
func (e *Entry) Validate() error {
	switch {
	case e.ActionType == "":
		return ErrEmptyActionType
	case e.Payload == "":
		return ErrEmptyPayload
	case e.CreatedAt.IsZero():
		return ErrMissingCreated
	}
	if e.MaxAttempts <= 0 {
		e.MaxAttempts = DefaultMaxAttempts
	}
	return nil
}

// Exhausted reports whether no attempts remain.
func (e Entry) Exhausted() bool { return e.Attempts >= e.MaxAttempts }

// IsTerminal reports whether the worker is done with the entry.
func (e Entry) IsTerminal() bool {
	switch e.Status {
	case StatusDone, StatusAbandoned:
		return true
	case StatusFailed:
		return e.Exhausted()
	}
	return false
}

// Backoff spaces retries exponentially: the wait after the nth failed attempt
// is Base * 2^n, never more than Max.
type Backoff struct {
	Base time.Duration
	Max  time.Duration
}

// Delay returns the wait after attempts failures.
func (b Backoff) Delay(attempts int) time.Duration {
	if attempts >= 32 {
		return b.Max
	}
	d := b.Base << attempts
	if d <= 0 || d > b.Max {
		return b.Max
	}
	return d
}

// Begin records an attempt starting at now.
func (e *Entry) Begin(now time.Time) {
	e.Attempts++
	e.LastAttemptedAt = now
	e.Status = StatusRetrying
}

// Succeed marks the entry delivered.
func (e *Entry) Succeed(externalID string) {
	e.Status = StatusDone
	e.ExternalID = externalID
	e.ErrorMessage = ""
	e.NextAttemptAt = time.Time{}
}

// Fail records err. The entry is rescheduled per b, or fails for good once
// its attempts are used up.
func (e *Entry) Fail(err error, b Backoff) {
	e.ErrorMessage = err.Error()
	if e.Exhausted() {
		e.Status = StatusFailed
		e.NextAttemptAt = time.Time{}
		return
	}
	e.NextAttemptAt = e.LastAttemptedAt.Add(b.Delay(e.Attempts))
}

// GiveUp fails the entry immediately, for errors no retry can fix.
func (e *Entry) GiveUp(err error) {
	e.Attempts = max(e.Attempts, e.MaxAttempts)
	e.Fail(err, Backoff{})
}

// Abandon stops further attempts. A delivered entry cannot be abandoned.
func (e *Entry) Abandon() error {
	if e.Status == StatusDone || e.Status == StatusAbandoned {
		return fmt.Errorf("entry %s is %s: %w", e.ID, e.Status, ErrTerminal)
	}
	e.Status = StatusAbandoned
	e.NextAttemptAt = time.Time{}
	return nil
}
