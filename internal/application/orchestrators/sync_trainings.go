package orchestrators

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"frsm/internal/adapters/trainingsync"
	"frsm/internal/domain/training"
)

// MsgSyncFailed is shown when the catalogue could not be fetched.
const MsgSyncFailed = "Failed to sync trainings from API. Using cached data."

// TrainingSource supplies the external training catalogue.
type TrainingSource interface {
	Fetch(ctx context.Context) ([]trainingsync.Item, error)
}

// SyncTrainingsDeps holds dependencies for SyncTrainings.
type SyncTrainingsDeps struct {
	Source     TrainingSource
	RunInTx    TxRunner
	GenerateID func() string
	Now        func() time.Time
	SyncLog    *slog.Logger // optional; receives one line per run
}

// SyncTrainingsResult counts what a sync run did.
type SyncTrainingsResult struct {
	Created int `json:"created"`
	Updated int `json:"updated"`
	Skipped int `json:"skipped"`
	Total   int `json:"total"`
}

// Message is the flash message after a successful sync.
func (r SyncTrainingsResult) Message() string {
	msg := fmt.Sprintf("Trainings synced successfully from API! Created: %d, Updated: %d", r.Created, r.Updated)
	if r.Skipped > 0 {
		msg += fmt.Sprintf(", Skipped: %d", r.Skipped)
	}
	return msg
}

// ExecuteSyncTrainings upserts the external catalogue into local trainings.
// Items match on external_id, else on title plus training date. Invalid items are skipped.
// PRE: Source reachable
// POST: One transaction; Total = Created + Updated + Skipped; last_sync_at stamped on every upserted row
func ExecuteSyncTrainings(ctx context.Context, deps SyncTrainingsDeps) (SyncTrainingsResult, error) {
	var res SyncTrainingsResult
	items, err := deps.Source.Fetch(ctx)
	if err != nil {
		logSync(deps.SyncLog, res, err)
		return res, err
	}
	now := deps.Now()

	err = deps.RunInTx(ctx, func(s TxStores) error {
		res = SyncTrainingsResult{Total: len(items)}
		for i, it := range items {
			t, err := itemToTraining(it)
			if err != nil {
				res.Skipped++
				slog.Warn("sync_event", "event", "item_skipped", "index", i, "external_id", string(it.ID), "error", err)
				continue
			}

			existing, found, err := findSynced(ctx, s.Trainings, t)
			if err != nil {
				return err
			}
			if found {
				applySynced(&existing, t)
				existing.LastSyncAt = now
				existing.UpdatedAt = now
				if err := s.Trainings.Save(ctx, existing); err != nil {
					return err
				}
				res.Updated++
				continue
			}

			t.ID = deps.GenerateID()
			t.LastSyncAt = now
			t.CreatedAt = now
			t.UpdatedAt = now
			if err := s.Trainings.Save(ctx, t); err != nil {
				return err
			}
			res.Created++
		}
		return nil
	})
	logSync(deps.SyncLog, res, err)
	if err != nil {
		return SyncTrainingsResult{}, err
	}

	slog.Info("sync_event", "event", "trainings_synced", "created", res.Created, "updated", res.Updated,
		"skipped", res.Skipped, "total", res.Total)
	return res, nil
}

func itemToTraining(it trainingsync.Item) (training.Training, error) {
	if err := it.Validate(); err != nil {
		return training.Training{}, err
	}
	date, err := training.ParseDate(it.TrainingDate)
	if err != nil {
		return training.Training{}, err
	}
	end, err := training.ParseDate(it.TrainingEndDate)
	if err != nil {
		return training.Training{}, err
	}
	t := training.Training{
		ExternalID:          strings.TrimSpace(string(it.ID)),
		Title:               strings.TrimSpace(it.Title),
		Description:         it.Description,
		Date:                date,
		EndDate:             end,
		DurationHours:       float64(it.DurationHours),
		Instructor:          it.Instructor,
		Location:            it.Location,
		MaxParticipants:     int(it.MaxParticipants),
		CurrentParticipants: int(it.CurrentParticipants),
		Status:              it.Status,
	}
	if t.Status == "" {
		t.Status = training.StatusScheduled
	}
	return t, t.Validate()
}

// findSynced locates the local copy of an external training.
func findSynced(ctx context.Context, store TrainingStoreForOrchestrator, t training.Training) (training.Training, bool, error) {
	if t.ExternalID != "" {
		existing, err := store.GetByExternalID(ctx, t.ExternalID)
		if err == nil {
			return existing, true, nil
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return training.Training{}, false, err
		}
	}
	existing, err := store.GetByTitleAndDate(ctx, t.Title, t.Date)
	if errors.Is(err, sql.ErrNoRows) {
		return training.Training{}, false, nil
	}
	if err != nil {
		return training.Training{}, false, err
	}
	return existing, true, nil
}

// applySynced copies the catalogue fields onto an existing training.
// The participant count stays local: it is maintained by registrations and
// drives the capacity check.
func applySynced(dst *training.Training, src training.Training) {
	if dst.ExternalID == "" {
		dst.ExternalID = src.ExternalID
	}
	dst.Title = src.Title
	dst.Description = src.Description
	dst.Date = src.Date
	dst.EndDate = src.EndDate
	dst.DurationHours = src.DurationHours
	dst.Instructor = src.Instructor
	dst.Location = src.Location
	dst.MaxParticipants = src.MaxParticipants
	dst.Status = syncedStatus(dst.Status, src.Status)
}

var statusProgress = map[string]int{
	training.StatusScheduled: 0,
	training.StatusOngoing:   1,
	training.StatusCompleted: 2,
}

// syncedStatus never moves a training backwards along scheduled, ongoing, completed.
// A completed training stays completed even when the catalogue cancels it.
func syncedStatus(local, remote string) string {
	if local == training.StatusCompleted {
		return local
	}
	l, lok := statusProgress[local]
	r, rok := statusProgress[remote]
	if lok && rok && r < l {
		return local
	}
	return remote
}

func logSync(l *slog.Logger, res SyncTrainingsResult, err error) {
	if l == nil {
		return
	}
	if err != nil {
		l.Error("FAILED", "error", err.Error())
		return
	}
	l.Info("SUCCESS", "created", res.Created, "updated", res.Updated, "skipped", res.Skipped, "total", res.Total)
}
