package orchestrators

import (
	"context"
	"log/slog"
	"time"
)

// OutboxPurger removes delivered outbox entries.
type OutboxPurger interface {
	PurgeDone(ctx context.Context, cutoff time.Time) (int64, error)
}

// HousekeepingDeps wires the periodic maintenance jobs.
type HousekeepingDeps struct {
	Refresh      RefreshTrainingStatusesDeps
	Outbox       *OutboxProcessor
	Purger       OutboxPurger
	RetainDone   time.Duration // delivered entries older than this are purged; 0 keeps them
	Sync         *SyncTrainingsDeps
	SyncInterval time.Duration
	Now          func() time.Time
}

// Housekeeper runs maintenance jobs on a ticker.
type Housekeeper struct {
	deps     HousekeepingDeps
	lastSync time.Time
}

// NewHousekeeper creates a housekeeper. Sync runs only when deps.Sync is set.
func NewHousekeeper(deps HousekeepingDeps) *Housekeeper {
	return &Housekeeper{deps: deps}
}

// RunOnce refreshes training statuses, drains the outbox, purges old entries
// and syncs the catalogue when its interval has elapsed. Job errors are logged
// and do not stop later jobs.
func (h *Housekeeper) RunOnce(ctx context.Context) {
	if _, err := ExecuteRefreshTrainingStatuses(ctx, h.deps.Refresh); err != nil {
		slog.Error("housekeeping_event", "event", "refresh_failed", "error", err)
	}

	if h.deps.Outbox != nil {
		stats, err := h.deps.Outbox.ProcessPending(ctx)
		if err != nil {
			slog.Error("housekeeping_event", "event", "outbox_failed", "error", err)
		} else if stats.Sent+stats.Failed > 0 {
			slog.Info("housekeeping_event", "event", "outbox_processed", "sent", stats.Sent, "failed", stats.Failed)
		}
	}

	now := h.deps.Now()
	if h.deps.Purger != nil && h.deps.RetainDone > 0 {
		if n, err := h.deps.Purger.PurgeDone(ctx, now.Add(-h.deps.RetainDone)); err != nil {
			slog.Error("housekeeping_event", "event", "outbox_purge_failed", "error", err)
		} else if n > 0 {
			slog.Info("housekeeping_event", "event", "outbox_purged", "removed", n)
		}
	}

	if h.deps.Sync != nil && now.Sub(h.lastSync) >= h.deps.SyncInterval {
		h.lastSync = now
		if _, err := ExecuteSyncTrainings(ctx, *h.deps.Sync); err != nil {
			slog.Error("housekeeping_event", "event", "sync_failed", "error", err)
		}
	}
}

// StartBackgroundWorker runs RunOnce every interval until stopCh is closed.
// PRE: stopCh is provided to signal shutdown
// POST: Worker runs until stopCh is closed
func (h *Housekeeper) StartBackgroundWorker(interval time.Duration, stopCh <-chan struct{}) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
				h.RunOnce(ctx)
				cancel()
			case <-stopCh:
				slog.Info("housekeeping_event", "event", "worker_stopped")
				return
			}
		}
	}()
}
