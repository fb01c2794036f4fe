package orchestrators

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"frsm/internal/domain/account"
	"frsm/internal/domain/volunteer"
)

var ErrEmailAlreadyExists = errors.New("an account with this email already exists")

// CreateAccountInput is a new login.
type CreateAccountInput struct {
	FirstName string
	LastName  string
	Email     string
	Password  string
	Role      string
}

// CreateAccountDeps holds dependencies for ExecuteCreateAccount and the seeders.
type CreateAccountDeps struct {
	RunInTx    TxRunner
	GenerateID func() string
	Now        func() time.Time
}

// ExecuteCreateAccount creates a login. A user account is linked to the
// volunteer profile with the same e-mail when one exists without a login,
// and otherwise gets a new approved profile.
// PRE: password of at least account.MinPassword characters; a known role
// POST: Account and profile are written in one transaction; returns the account id
func ExecuteCreateAccount(ctx context.Context, input CreateAccountInput, deps CreateAccountDeps) (string, error) {
	now := deps.Now()
	acct := account.Account{
		ID:        deps.GenerateID(),
		FirstName: input.FirstName,
		LastName:  input.LastName,
		Email:     account.NormalizeEmail(input.Email),
		Role:      input.Role,
		CreatedAt: now,
	}
	if err := acct.Validate(); err != nil {
		return "", err
	}
	if err := acct.SetPassword(input.Password); err != nil {
		return "", err
	}

	linked := false
	err := deps.RunInTx(ctx, func(s TxStores) error {
		if _, err := s.Accounts.GetByEmail(ctx, acct.Email); err == nil {
			return ErrEmailAlreadyExists
		} else if !errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("check email: %w", err)
		}
		if acct.Role != account.RoleUser {
			return s.Accounts.Save(ctx, acct)
		}

		profile, err := s.Volunteers.GetByEmail(ctx, acct.Email)
		switch {
		case err == nil && profile.UserID != "":
			return ErrEmailAlreadyExists
		case err == nil:
			linked = true
			profile.UserID = acct.ID
		case errors.Is(err, sql.ErrNoRows):
			profile = volunteer.Volunteer{
				ID:                       deps.GenerateID(),
				UserID:                   acct.ID,
				FirstName:                input.FirstName,
				LastName:                 input.LastName,
				Email:                    acct.Email,
				ApplicationStatus:        volunteer.ApplicationApproved,
				Status:                   volunteer.StatusNew,
				TrainingCompletionStatus: volunteer.TrainingNone,
				CreatedAt:                now,
			}
		default:
			return fmt.Errorf("look up volunteer profile: %w", err)
		}
		if err := profile.Validate(); err != nil {
			return err
		}
		if err := s.Accounts.Save(ctx, acct); err != nil {
			return err
		}
		return s.Volunteers.Save(ctx, profile)
	})
	if err != nil {
		return "", err
	}

	slog.Info("auth_event", "event", "account_created", "account_id", acct.ID, "role", acct.Role, "linked_profile", linked)
	return acct.ID, nil
}

// ExecuteSeedAdmin creates an admin login when the database has no accounts.
func ExecuteSeedAdmin(ctx context.Context, deps CreateAccountDeps, email, password string) error {
	var count int
	if err := deps.RunInTx(ctx, func(s TxStores) (err error) {
		count, err = s.Accounts.Count(ctx)
		return err
	}); err != nil {
		return err
	}
	if count > 0 {
		return nil
	}
	if _, err := ExecuteCreateAccount(ctx, CreateAccountInput{
		FirstName: "System",
		LastName:  "Administrator",
		Email:     email,
		Password:  password,
		Role:      account.RoleAdmin,
	}, deps); err != nil {
		return err
	}
	slog.Info("auth_event", "event", "admin_seeded", "email", email)
	return nil
}
