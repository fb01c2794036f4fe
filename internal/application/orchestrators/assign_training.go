package orchestrators

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"frsm/internal/domain/account"
	"frsm/internal/domain/notification"
	"frsm/internal/domain/registration"
	"frsm/internal/domain/volunteer"
)

// Assignment validation errors. Messages are shown to admins verbatim.
var (
	ErrNoVolunteersSelected = errors.New("Please select at least one volunteer.")
	ErrNoTrainingSelected   = errors.New("Please select a training.")
	ErrTrainingNotFound     = errors.New("Training not found.")
)

// ErrNotEnoughSlots reports a selection larger than the remaining capacity.
type ErrNotEnoughSlots struct {
	Available int
	Selected  int
}

func (e ErrNotEnoughSlots) Error() string {
	return fmt.Sprintf("Only %d slots available for this training. You selected %d volunteers.", e.Available, e.Selected)
}

// AssignTrainingInput carries input for the assign training orchestrator.
type AssignTrainingInput struct {
	AdminID      string
	TrainingID   string
	VolunteerIDs []string
}

// AssignTrainingResult reports how many volunteers were assigned or skipped.
type AssignTrainingResult struct {
	Assigned        int
	AlreadyAssigned int
}

// Message is the flash message shown after a successful assignment.
func (r AssignTrainingResult) Message() string {
	msg := fmt.Sprintf("Successfully assigned %d volunteer(s) to training.", r.Assigned)
	if r.AlreadyAssigned > 0 {
		msg += fmt.Sprintf(" %d volunteer(s) were already registered.", r.AlreadyAssigned)
	}
	return msg
}

// AssignTrainingDeps holds dependencies for AssignTraining.
type AssignTrainingDeps struct {
	RunInTx    TxRunner
	GenerateID func() string
	Now        func() time.Time
}

// ExecuteAssignTraining registers several volunteers for a training on an admin's behalf.
// Volunteers holding an active registration are skipped and counted.
// PRE: AdminID is an admin; at least one volunteer and a training selected
// POST: New registrations are registered and admin-approved, participant count raised,
// each volunteer's account notified; all in one transaction
func ExecuteAssignTraining(ctx context.Context, input AssignTrainingInput, deps AssignTrainingDeps) (AssignTrainingResult, error) {
	if len(input.VolunteerIDs) == 0 {
		return AssignTrainingResult{}, ErrNoVolunteersSelected
	}
	if input.TrainingID == "" {
		return AssignTrainingResult{}, ErrNoTrainingSelected
	}
	if input.AdminID == "" {
		return AssignTrainingResult{}, registration.ErrMissingActor
	}

	now := deps.Now()
	var res AssignTrainingResult

	err := deps.RunInTx(ctx, func(s TxStores) error {
		res = AssignTrainingResult{}
		t, err := s.Trainings.GetByID(ctx, input.TrainingID)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrTrainingNotFound
		}
		if err != nil {
			return err
		}
		if slots := t.AvailableSlots(); slots >= 0 && len(input.VolunteerIDs) > slots {
			return ErrNotEnoughSlots{Available: slots, Selected: len(input.VolunteerIDs)}
		}

		nt := notifier{stores: s, generateID: deps.GenerateID, now: deps.Now}
		for _, volunteerID := range input.VolunteerIDs {
			reg, err := s.Registrations.GetByTrainingAndVolunteer(ctx, t.ID, volunteerID)
			switch {
			case err == nil && reg.IsActive():
				res.AlreadyAssigned++
				continue
			case err == nil:
				if err := reg.Reactivate(now); err != nil {
					return err
				}
			case errors.Is(err, sql.ErrNoRows):
				reg = registration.New(deps.GenerateID(), t.ID, volunteerID, now)
			default:
				return err
			}

			vol, err := s.Volunteers.GetByID(ctx, volunteerID)
			if err != nil {
				return fmt.Errorf("volunteer %s: %w", volunteerID, err)
			}

			reg.ApproveAssignment(input.AdminID, now)
			if err := s.Registrations.Save(ctx, reg); err != nil {
				return fmt.Errorf("save registration: %w", err)
			}
			t.CurrentParticipants++
			res.Assigned++

			user, ok, err := volunteerAccount(ctx, s, vol)
			if err != nil {
				return err
			}
			if ok {
				if err := nt.send(ctx, notification.Assigned(user.ID, t.Title, t.Date), user.Email); err != nil {
					return err
				}
			}
		}

		if res.Assigned == 0 {
			return nil
		}
		t.UpdatedAt = now
		return s.Trainings.Save(ctx, t)
	})
	if err != nil {
		return AssignTrainingResult{}, err
	}

	slog.Info("training_event", "event", "training_assigned", "training_id", input.TrainingID,
		"assigned", res.Assigned, "already_assigned", res.AlreadyAssigned, "admin_id", input.AdminID)
	return res, nil
}

// volunteerAccount finds the login account of a volunteer: by user_id, else by e-mail.
func volunteerAccount(ctx context.Context, s TxStores, v volunteer.Volunteer) (account.Account, bool, error) {
	if v.UserID != "" {
		a, err := s.Accounts.GetByID(ctx, v.UserID)
		if err == nil {
			return a, true, nil
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return account.Account{}, false, err
		}
	}
	if v.Email == "" {
		return account.Account{}, false, nil
	}
	a, err := s.Accounts.GetByEmail(ctx, v.Email)
	if errors.Is(err, sql.ErrNoRows) {
		return account.Account{}, false, nil
	}
	if err != nil {
		return account.Account{}, false, err
	}
	return a, true, nil
}
