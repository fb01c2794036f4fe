package orchestrators

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"frsm/internal/adapters/email"
	domain "frsm/internal/domain/outbox"
)

// OutboxStoreForProcessor is the outbox surface the delivery worker needs.
type OutboxStoreForProcessor interface {
	GetByID(ctx context.Context, id string) (domain.Entry, error)
	Save(ctx context.Context, e domain.Entry) error
	ListDue(ctx context.Context, now time.Time, limit int) ([]domain.Entry, error)
}

// ActionExecutor performs the side effect of one entry and returns the
// provider's id for it. Wrap errors that a retry cannot fix with Permanent.
type ActionExecutor interface {
	Execute(ctx context.Context, e domain.Entry) (string, error)
}

type permanentError struct{ err error }

func (p permanentError) Error() string { return p.err.Error() }
func (p permanentError) Unwrap() error { return p.err }

// Permanent marks err as not worth retrying.
func Permanent(err error) error { return permanentError{err} }

// DefaultOutboxBackoff waits 30s after the first failure, doubling up to an hour.
var DefaultOutboxBackoff = domain.Backoff{Base: 15 * time.Second, Max: time.Hour}

// OutboxProcessor delivers due outbox entries. Runs are serialised so the
// background worker and a manual retry never attempt the same entry twice.
type OutboxProcessor struct {
	mu        sync.Mutex
	store     OutboxStoreForProcessor
	executors map[string]ActionExecutor
	now       func() time.Time
	backoff   domain.Backoff
	batchSize int
}

// OutboxStats counts the outcomes of one ProcessPending run.
type OutboxStats struct {
	Sent   int
	Failed int
}

// NewOutboxProcessor creates a processor dispatching by ActionType to executors.
func NewOutboxProcessor(store OutboxStoreForProcessor, executors map[string]ActionExecutor, now func() time.Time) *OutboxProcessor {
	return &OutboxProcessor{
		store:     store,
		executors: executors,
		now:       now,
		backoff:   DefaultOutboxBackoff,
		batchSize: 25,
	}
}

// ProcessPending attempts one batch of due entries.
// POST: every listed entry has one more attempt recorded; failures are rescheduled or failed
func (p *OutboxProcessor) ProcessPending(ctx context.Context) (OutboxStats, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	var stats OutboxStats
	now := p.now()
	due, err := p.store.ListDue(ctx, now, p.batchSize)
	if err != nil {
		return stats, fmt.Errorf("list due outbox entries: %w", err)
	}
	for _, e := range due {
		if ctx.Err() != nil {
			return stats, ctx.Err()
		}
		ok, err := p.attempt(ctx, e, now)
		if err != nil {
			return stats, err
		}
		if ok {
			stats.Sent++
		} else {
			stats.Failed++
		}
	}
	return stats, nil
}

// attempt runs e once and saves the outcome. The error is non-nil only when
// saving fails.
func (p *OutboxProcessor) attempt(ctx context.Context, e domain.Entry, now time.Time) (bool, error) {
	e.Begin(now)

	var execErr error
	var externalID string
	if ex, ok := p.executors[e.ActionType]; ok {
		externalID, execErr = ex.Execute(ctx, e)
	} else {
		execErr = Permanent(fmt.Errorf("no executor for action type %q", e.ActionType))
	}

	var perm permanentError
	switch {
	case execErr == nil:
		e.Succeed(externalID)
		slog.Info("outbox_event", "event", "delivered", "entry_id", e.ID, "external_id", externalID)
	case errors.As(execErr, &perm):
		e.GiveUp(execErr)
		slog.Error("outbox_event", "event", "gave_up", "entry_id", e.ID, "error", execErr)
	default:
		e.Fail(execErr, p.backoff)
		slog.Warn("outbox_event", "event", "attempt_failed", "entry_id", e.ID, "attempt", e.Attempts,
			"status", e.Status, "next_attempt_at", e.NextAttemptAt, "error", execErr)
	}
	if err := p.store.Save(ctx, e); err != nil {
		return false, fmt.Errorf("save outbox entry %s: %w", e.ID, err)
	}
	return execErr == nil, nil
}

// ProcessSingle attempts one entry now, ignoring its schedule.
// POST: error wraps outbox.ErrTerminal for delivered, abandoned or exhausted entries
func (p *OutboxProcessor) ProcessSingle(ctx context.Context, id string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	e, err := p.store.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if e.IsTerminal() {
		return fmt.Errorf("entry %s is %s: %w", id, e.Status, domain.ErrTerminal)
	}
	ok, err := p.attempt(ctx, e, p.now())
	if err != nil {
		return err
	}
	if !ok {
		saved, _ := p.store.GetByID(ctx, id)
		return fmt.Errorf("delivery failed: %s", saved.ErrorMessage)
	}
	return nil
}

// AbandonEntry stops all further attempts for an entry.
func (p *OutboxProcessor) AbandonEntry(ctx context.Context, id string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	e, err := p.store.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if err := e.Abandon(); err != nil {
		return err
	}
	return p.store.Save(ctx, e)
}

// EmailExecutor delivers notification_email entries.
type EmailExecutor struct {
	Sender  email.Sender
	From    string
	ReplyTo string
}

// Execute sends the e-mail in e's payload. Malformed payloads are permanent failures.
func (x *EmailExecutor) Execute(ctx context.Context, e domain.Entry) (string, error) {
	m, err := domain.DecodeEmail(e.Payload)
	if err != nil {
		return "", Permanent(err)
	}
	return x.Sender.Send(ctx, email.Message{
		To:       []string{m.To},
		From:     x.From,
		ReplyTo:  x.ReplyTo,
		Subject:  m.Subject,
		HTML:     m.HTML,
		Category: m.Kind,
	})
}
