package orchestrators

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	registrationStore "frsm/internal/adapters/storage/registration"
	trainingStore "frsm/internal/adapters/storage/training"
	"frsm/internal/domain/registration"
	"frsm/internal/domain/training"
)

// RefreshTrainingStatusesDeps holds dependencies for RefreshTrainingStatuses.
type RefreshTrainingStatusesDeps struct {
	RunInTx TxRunner
	Now     func() time.Time
}

// RefreshTrainingStatusesResult counts what changed.
type RefreshTrainingStatusesResult struct {
	TrainingsStarted       int
	TrainingsCompleted     int
	RegistrationsStarted   int
	RegistrationsCompleted int
}

// Changed reports whether the run modified anything.
func (r RefreshTrainingStatusesResult) Changed() bool {
	return r.TrainingsStarted+r.TrainingsCompleted+r.RegistrationsStarted+r.RegistrationsCompleted > 0
}

// ExecuteRefreshTrainingStatuses advances trainings and their registrations by date.
// Scheduled trainings become ongoing on their first day and completed after their
// last; registrations follow: not_started becomes in_progress while the training
// runs, and unfinished registrations of completed trainings become completed.
// PRE: deps are set
// POST: Training and registration statuses match today's date; one transaction
func ExecuteRefreshTrainingStatuses(ctx context.Context, deps RefreshTrainingStatusesDeps) (RefreshTrainingStatusesResult, error) {
	now := deps.Now()
	var res RefreshTrainingStatusesResult

	err := deps.RunInTx(ctx, func(s TxStores) error {
		res = RefreshTrainingStatusesResult{}
		open, err := s.Trainings.List(ctx, trainingStore.ListFilter{
			Statuses: []string{training.StatusScheduled, training.StatusOngoing},
		})
		if err != nil {
			return fmt.Errorf("list open trainings: %w", err)
		}

		var ongoing []string
		for _, t := range open {
			next := t.NextStatus(now)
			if next != t.Status {
				t.Status = next
				t.UpdatedAt = now
				if err := s.Trainings.Save(ctx, t); err != nil {
					return fmt.Errorf("save training %s: %w", t.ID, err)
				}
				if next == training.StatusOngoing {
					res.TrainingsStarted++
				} else {
					res.TrainingsCompleted++
				}
			}
			if t.Status == training.StatusOngoing {
				ongoing = append(ongoing, t.ID)
			}
		}

		if len(ongoing) > 0 {
			regs, err := s.Registrations.List(ctx, registrationStore.ListFilter{
				TrainingIDs:      ongoing,
				Stage:            registrationStore.StageActive,
				CompletionStatus: registration.CompletionNotStarted,
			})
			if err != nil {
				return fmt.Errorf("list registrations of ongoing trainings: %w", err)
			}
			for _, r := range regs {
				if !r.StartProgress() {
					continue
				}
				if err := s.Registrations.Save(ctx, r); err != nil {
					return err
				}
				res.RegistrationsStarted++
			}
		}

		completed, err := s.Trainings.List(ctx, trainingStore.ListFilter{Statuses: []string{training.StatusCompleted}})
		if err != nil {
			return fmt.Errorf("list completed trainings: %w", err)
		}
		if len(completed) == 0 {
			return nil
		}
		ids := make([]string, len(completed))
		for i, t := range completed {
			ids[i] = t.ID
		}
		for _, status := range []string{registration.CompletionNotStarted, registration.CompletionInProgress} {
			regs, err := s.Registrations.List(ctx, registrationStore.ListFilter{
				TrainingIDs:      ids,
				Stage:            registrationStore.StageActive,
				CompletionStatus: status,
			})
			if err != nil {
				return fmt.Errorf("list registrations of completed trainings: %w", err)
			}
			for _, r := range regs {
				if !r.AutoComplete(training.DateOf(now)) {
					continue
				}
				if err := s.Registrations.Save(ctx, r); err != nil {
					return err
				}
				res.RegistrationsCompleted++
			}
		}
		return nil
	})
	if err != nil {
		return RefreshTrainingStatusesResult{}, err
	}

	if res.Changed() {
		slog.Info("training_event", "event", "statuses_refreshed",
			"started", res.TrainingsStarted, "completed", res.TrainingsCompleted,
			"registrations_started", res.RegistrationsStarted, "registrations_completed", res.RegistrationsCompleted)
	}
	return res, nil
}
