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
	"frsm/internal/domain/training"
	"frsm/internal/domain/volunteer"
)

// Success messages shown after volunteer actions.
const (
	MsgRegistered        = "Successfully registered for training!"
	MsgCancelled         = "Training registration cancelled successfully."
	MsgMarkedCompleted   = "Training marked as completed! An employee will verify your completion."
	MsgNoVolunteerRecord = "Volunteer profile not found."
)

// ErrNoVolunteerProfile is returned when the logged-in user has no volunteer record.
var ErrNoVolunteerProfile = errors.New(MsgNoVolunteerRecord)

// VolunteerTrainingDeps holds dependencies for the volunteer training commands.
type VolunteerTrainingDeps struct {
	RunInTx    TxRunner
	GenerateID func() string
	Now        func() time.Time
}

// VolunteerTrainingInput identifies the acting volunteer and the target.
// TrainingID is used by register; RegistrationID by cancel and complete.
type VolunteerTrainingInput struct {
	UserID         string
	TrainingID     string
	RegistrationID string
}

// ExecuteRegisterForTraining registers the logged-in volunteer for an open training.
// A cancelled registration for the same training is reactivated instead of duplicated.
// PRE: UserID belongs to a volunteer
// POST: Registration active, participant count incremented, employees and admins notified
func ExecuteRegisterForTraining(ctx context.Context, input VolunteerTrainingInput, deps VolunteerTrainingDeps) (registration.Registration, error) {
	now := deps.Now()
	var reg registration.Registration

	err := deps.RunInTx(ctx, func(s TxStores) error {
		vol, err := lookupVolunteer(ctx, s, input.UserID)
		if err != nil {
			return err
		}

		t, err := s.Trainings.GetByID(ctx, input.TrainingID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return training.ErrNotOpen
			}
			return err
		}
		if !t.IsOpen() {
			return training.ErrNotOpen
		}

		existing, err := s.Registrations.GetByTrainingAndVolunteer(ctx, t.ID, vol.ID)
		switch {
		case err == nil && existing.IsActive():
			return registration.ErrAlreadyRegistered
		case err == nil:
			reg = existing
			if err := reg.Reactivate(now); err != nil {
				return err
			}
		case errors.Is(err, sql.ErrNoRows):
			reg = registration.New(deps.GenerateID(), t.ID, vol.ID, now)
		default:
			return err
		}

		if err := t.Reserve(1); err != nil {
			return err
		}
		t.UpdatedAt = now
		if err := s.Trainings.Save(ctx, t); err != nil {
			return fmt.Errorf("save training: %w", err)
		}
		if err := s.Registrations.Save(ctx, reg); err != nil {
			return fmt.Errorf("save registration: %w", err)
		}

		nt := notifier{stores: s, generateID: deps.GenerateID, now: deps.Now}
		staff, err := nt.staff(ctx, account.RoleEmployee, account.RoleAdmin)
		if err != nil {
			return err
		}
		for _, a := range staff {
			if err := nt.send(ctx, notification.Registered(a.ID, vol.FullName(), t.Title), a.Email); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return registration.Registration{}, err
	}

	slog.Info("training_event", "event", "registration_created", "registration_id", reg.ID, "training_id", reg.TrainingID, "volunteer_id", reg.VolunteerID)
	return reg, nil
}

// ExecuteCancelRegistration cancels the volunteer's own registration before the training starts.
// PRE: RegistrationID belongs to the volunteer of UserID
// POST: Registration cancelled, participant count decremented (never below zero)
func ExecuteCancelRegistration(ctx context.Context, input VolunteerTrainingInput, deps VolunteerTrainingDeps) error {
	now := deps.Now()

	err := deps.RunInTx(ctx, func(s TxStores) error {
		reg, t, err := ownRegistration(ctx, s, input)
		if err != nil {
			return err
		}
		if err := reg.Cancel(t, now); err != nil {
			return err
		}
		t.Release()
		t.UpdatedAt = now
		if err := s.Registrations.Save(ctx, reg); err != nil {
			return err
		}
		return s.Trainings.Save(ctx, t)
	})
	if err != nil {
		return err
	}

	slog.Info("training_event", "event", "registration_cancelled", "registration_id", input.RegistrationID, "user_id", input.UserID)
	return nil
}

// ExecuteMarkTrainingCompleted records the volunteer's completion of a finished training.
// PRE: RegistrationID belongs to the volunteer of UserID; the training has ended
// POST: Completion completed with today's timestamp; one employee notified
func ExecuteMarkTrainingCompleted(ctx context.Context, input VolunteerTrainingInput, deps VolunteerTrainingDeps) error {
	now := deps.Now()

	err := deps.RunInTx(ctx, func(s TxStores) error {
		reg, t, err := ownRegistration(ctx, s, input)
		if err != nil {
			return err
		}
		if err := reg.MarkCompleted(t, now); err != nil {
			return err
		}
		if err := s.Registrations.Save(ctx, reg); err != nil {
			return err
		}

		vol, err := s.Volunteers.GetByID(ctx, reg.VolunteerID)
		if err != nil {
			return err
		}
		nt := notifier{stores: s, generateID: deps.GenerateID, now: deps.Now}
		emp, ok, err := nt.firstStaff(ctx, account.RoleEmployee)
		if err != nil || !ok {
			return err
		}
		return nt.send(ctx, notification.Completed(emp.ID, vol.FullName(), t.Title), emp.Email)
	})
	if err != nil {
		return err
	}

	slog.Info("training_event", "event", "completion_marked", "registration_id", input.RegistrationID, "user_id", input.UserID)
	return nil
}

// lookupVolunteer resolves the volunteer record of a login account.
func lookupVolunteer(ctx context.Context, s TxStores, userID string) (volunteer.Volunteer, error) {
	if userID == "" {
		return volunteer.Volunteer{}, ErrNoVolunteerProfile
	}
	v, err := s.Volunteers.GetByUserID(ctx, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return volunteer.Volunteer{}, ErrNoVolunteerProfile
	}
	return v, err
}

// ownRegistration loads a registration and its training, checking it belongs to the caller.
func ownRegistration(ctx context.Context, s TxStores, input VolunteerTrainingInput) (registration.Registration, training.Training, error) {
	vol, err := lookupVolunteer(ctx, s, input.UserID)
	if err != nil {
		return registration.Registration{}, training.Training{}, err
	}
	reg, err := s.Registrations.GetByID(ctx, input.RegistrationID)
	if errors.Is(err, sql.ErrNoRows) || (err == nil && reg.VolunteerID != vol.ID) {
		return registration.Registration{}, training.Training{}, registration.ErrNotOwner
	}
	if err != nil {
		return registration.Registration{}, training.Training{}, err
	}
	t, err := s.Trainings.GetByID(ctx, reg.TrainingID)
	if err != nil {
		return registration.Registration{}, training.Training{}, err
	}
	return reg, t, nil
}
