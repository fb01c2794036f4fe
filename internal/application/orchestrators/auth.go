package orchestrators

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"frsm/internal/domain/account"
)

var (
	ErrInvalidCredentials   = errors.New("invalid email or password")
	ErrAccountLocked        = errors.New("account is locked due to too many failed attempts")
	ErrCurrentPasswordWrong = errors.New("current password is incorrect")
	ErrNewPasswordSame      = errors.New("new password must be different from current password")
)

// LockedError is returned while an account sits out its lockout period.
// It matches ErrAccountLocked under errors.Is.
type LockedError struct {
	Until time.Time
}

func (e LockedError) Error() string {
	return fmt.Sprintf("%s; try again after %s", ErrAccountLocked, e.Until.Format("15:04"))
}

func (e LockedError) Is(target error) bool {
	return target == ErrAccountLocked
}

// AccountStoreForAuth is the account access used by login and password change.
type AccountStoreForAuth interface {
	GetByID(ctx context.Context, id string) (account.Account, error)
	GetByEmail(ctx context.Context, email string) (account.Account, error)
	Save(ctx context.Context, a account.Account) error
}

// LoginInput carries the submitted credentials.
type LoginInput struct {
	Email    string
	Password string
}

// LoginResult is what the session needs to know about the signed-in account.
type LoginResult struct {
	AccountID   string
	Email       string
	Role        string
	DisplayName string
}

// LoginDeps holds dependencies for Login.
type LoginDeps struct {
	AccountStore AccountStoreForAuth
	Now          func() time.Time
}

// ExecuteLogin checks credentials. Unknown e-mails and wrong passwords both
// yield ErrInvalidCredentials; the fifth consecutive failure locks the account.
// PRE: none
// POST: Failure counter persisted on a wrong password; reset on success
func ExecuteLogin(ctx context.Context, input LoginInput, deps LoginDeps) (LoginResult, error) {
	email := account.NormalizeEmail(input.Email)
	reject := func(reason string, err error) (LoginResult, error) {
		slog.Info("auth_event", "event", "login_failed", "email", email, "reason", reason)
		return LoginResult{}, err
	}
	if email == "" || input.Password == "" {
		return reject("missing_fields", ErrInvalidCredentials)
	}

	acct, err := deps.AccountStore.GetByEmail(ctx, email)
	if err != nil {
		return reject("not_found", ErrInvalidCredentials)
	}

	now := deps.Now()
	if acct.IsLocked(now) {
		return reject("locked", LockedError{Until: acct.LockedUntil})
	}

	if acct.CheckPassword(input.Password) != nil {
		acct.RecordFailedLogin(now)
		if err := deps.AccountStore.Save(ctx, acct); err != nil {
			slog.Error("auth_event", "event", "failed_login_not_recorded", "email", email, "error", err)
		}
		if acct.IsLocked(now) {
			slog.Warn("auth_event", "event", "account_locked", "account_id", acct.ID, "until", acct.LockedUntil)
		}
		return reject("wrong_password", ErrInvalidCredentials)
	}

	if acct.FailedLogins > 0 || !acct.LockedUntil.IsZero() {
		acct.ResetFailedLogins()
		if err := deps.AccountStore.Save(ctx, acct); err != nil {
			return LoginResult{}, err
		}
	}

	slog.Info("auth_event", "event", "login_success", "account_id", acct.ID, "role", acct.Role)
	return LoginResult{
		AccountID:   acct.ID,
		Email:       acct.Email,
		Role:        acct.Role,
		DisplayName: acct.DisplayName(),
	}, nil
}

// ChangePasswordInput carries the signed-in account and both passwords.
type ChangePasswordInput struct {
	AccountID       string
	CurrentPassword string
	NewPassword     string
}

// ChangePasswordDeps holds dependencies for ChangePassword.
type ChangePasswordDeps struct {
	AccountStore AccountStoreForAuth
}

// ExecuteChangePassword replaces the password after re-checking the current one.
// PRE: AccountID names the signed-in account
// POST: PasswordHash replaced and any lockout cleared
func ExecuteChangePassword(ctx context.Context, input ChangePasswordInput, deps ChangePasswordDeps) error {
	acct, err := deps.AccountStore.GetByID(ctx, input.AccountID)
	if err != nil {
		return fmt.Errorf("load account %s: %w", input.AccountID, err)
	}
	if acct.CheckPassword(input.CurrentPassword) != nil {
		return ErrCurrentPasswordWrong
	}
	if input.NewPassword == input.CurrentPassword {
		return ErrNewPasswordSame
	}
	if err := acct.SetPassword(input.NewPassword); err != nil {
		return err
	}
	acct.ResetFailedLogins()
	if err := deps.AccountStore.Save(ctx, acct); err != nil {
		return err
	}
	slog.Info("auth_event", "event", "password_changed", "account_id", acct.ID)
	return nil
}
