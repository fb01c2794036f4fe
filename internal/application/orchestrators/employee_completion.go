package orchestrators

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	registrationStore "frsm/internal/adapters/storage/registration"
	"frsm/internal/domain/account"
	"frsm/internal/domain/notification"
	"frsm/internal/domain/registration"
)

// Messages shown after employee actions.
const MsgVerified = "Training completion verified successfully!"

// ErrNothingToSubmit is returned when a training has no verified, unsubmitted completions.
var ErrNothingToSubmit = errors.New("No verified training completions to submit.")

// VerifyCompletionInput carries input for the verify completion orchestrator.
type VerifyCompletionInput struct {
	EmployeeID     string
	RegistrationID string
	ProofPath      string // stored proof file, may be empty
	Notes          string
}

// VerifyCompletionDeps holds dependencies for VerifyCompletion.
type VerifyCompletionDeps struct {
	RunInTx TxRunner
	Now     func() time.Time
}

// ExecuteVerifyCompletion records an employee's verification of a volunteer's completion.
// PRE: Registration completion is completed
// POST: completion_verified set with employee and time; proof and notes stored
func ExecuteVerifyCompletion(ctx context.Context, input VerifyCompletionInput, deps VerifyCompletionDeps) error {
	err := deps.RunInTx(ctx, func(s TxStores) error {
		reg, err := s.Registrations.GetByID(ctx, input.RegistrationID)
		if errors.Is(err, sql.ErrNoRows) {
			return registration.ErrNotOwner
		}
		if err != nil {
			return err
		}
		if err := reg.Verify(input.EmployeeID, input.ProofPath, input.Notes, deps.Now()); err != nil {
			return err
		}
		return s.Registrations.Save(ctx, reg)
	})
	if err != nil {
		return err
	}

	slog.Info("training_event", "event", "completion_verified", "registration_id", input.RegistrationID,
		"employee_id", input.EmployeeID, "has_proof", input.ProofPath != "")
	return nil
}

// SubmitCompletionsInput carries input for the submit-to-admin orchestrator.
type SubmitCompletionsInput struct {
	EmployeeID string
	TrainingID string
}

// SubmitCompletionsDeps holds dependencies for SubmitCompletionsToAdmin.
type SubmitCompletionsDeps struct {
	RunInTx    TxRunner
	GenerateID func() string
	Now        func() time.Time
}

// SubmittedMessage is the flash message after submitting n completions.
func SubmittedMessage(n int) string {
	return fmt.Sprintf("Successfully submitted %d verified training completion(s) to admin for certificate approval!", n)
}

// ExecuteSubmitCompletionsToAdmin forwards every verified, unsubmitted completion of a training to admin.
// PRE: EmployeeID is staff; TrainingID exists
// POST: Returns the number submitted; each is employee_submitted; one admin notified; one transaction
func ExecuteSubmitCompletionsToAdmin(ctx context.Context, input SubmitCompletionsInput, deps SubmitCompletionsDeps) (int, error) {
	if input.EmployeeID == "" {
		return 0, registration.ErrMissingActor
	}
	now := deps.Now()
	var count int

	err := deps.RunInTx(ctx, func(s TxStores) error {
		count = 0
		t, err := s.Trainings.GetByID(ctx, input.TrainingID)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrTrainingNotFound
		}
		if err != nil {
			return err
		}

		regs, err := s.Registrations.List(ctx, registrationStore.ListFilter{
			TrainingID: t.ID,
			Stage:      registrationStore.StageSubmittable,
		})
		if err != nil {
			return err
		}
		if len(regs) == 0 {
			return ErrNothingToSubmit
		}

		for _, r := range regs {
			if err := r.Submit(input.EmployeeID, now); err != nil {
				return err
			}
			if err := s.Registrations.Save(ctx, r); err != nil {
				return err
			}
			count++
		}

		nt := notifier{stores: s, generateID: deps.GenerateID, now: deps.Now}
		admin, ok, err := nt.firstStaff(ctx, account.RoleAdmin)
		if err != nil || !ok {
			return err
		}
		return nt.send(ctx, notification.Submitted(admin.ID, count, t.Title), admin.Email)
	})
	if err != nil {
		return 0, err
	}

	slog.Info("training_event", "event", "completions_submitted", "training_id", input.TrainingID,
		"count", count, "employee_id", input.EmployeeID)
	return count, nil
}
