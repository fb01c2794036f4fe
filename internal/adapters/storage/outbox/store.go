// Package outbox persists queued side effects.
package outbox

import (
	"context"
	"time"

	domain "frsm/internal/domain/outbox"
)

// Store is the outbox table as seen by the delivery worker and the admin outbox page.
type Store interface {
	GetByID(ctx context.Context, id string) (domain.Entry, error)
	Save(ctx context.Context, e domain.Entry) error

	// ListDue returns pending and retrying entries whose next attempt is at or
	// before now, oldest first.
	ListDue(ctx context.Context, now time.Time, limit int) ([]domain.Entry, error)
	// ListPending returns every pending and retrying entry, oldest first.
	ListPending(ctx context.Context, limit int) ([]domain.Entry, error)
	// ListFailed returns entries that ran out of attempts, most recent failure first.
	ListFailed(ctx context.Context, limit int) ([]domain.Entry, error)

	CountByStatus(ctx context.Context) (map[string]int, error)
	// PurgeDone deletes delivered entries created before cutoff and returns how many went.
	PurgeDone(ctx context.Context, cutoff time.Time) (int64, error)
}
