// Package account holds logins: staff (admin, employee) and volunteers (user).
package account

import (
	"errors"
	"slices"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"
)

const (
	MaxEmailLength = 254
	MinPassword    = 12

	bcryptCost    = 12
	maxFailures   = 5
	lockoutPeriod = 15 * time.Minute
)

const (
	RoleAdmin    = "admin"
	RoleEmployee = "employee"
	RoleUser     = "user" // a volunteer
)

// ValidRoles lists roles in order of decreasing privilege.
var ValidRoles = []string{RoleAdmin, RoleEmployee, RoleUser}

var (
	ErrInvalidEmail     = errors.New("email must contain '@'")
	ErrEmptyEmail       = errors.New("email cannot be empty")
	ErrEmailTooLong     = errors.New("email cannot exceed 254 characters")
	ErrInvalidRole      = errors.New("role must be one of: admin, employee, user")
	ErrEmptyPassword    = errors.New("password cannot be empty")
	ErrPasswordTooShort = errors.New("password must be at least 12 characters")
	ErrWrongPassword    = errors.New("incorrect password")
)

// Account is one login.
type Account struct {
	ID           string
	FirstName    string
	LastName     string
	Email        string // stored normalised, see NormalizeEmail
	PasswordHash string
	Role         string
	CreatedAt    time.Time

	// Lockout state; see RecordFailedLogin.
	FailedLogins int
	LockedUntil  time.Time
}

// NormalizeEmail trims and lower-cases an address so lookups ignore case.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Validate checks the e-mail address and role.
func (a *Account) Validate() error {
	email := strings.TrimSpace(a.Email)
	switch {
	case email == "":
		return ErrEmptyEmail
	case len(email) > MaxEmailLength:
		return ErrEmailTooLong
	}
	if local, domain, ok := strings.Cut(email, "@"); !ok || local == "" || domain == "" {
		return ErrInvalidEmail
	}
	if !IsValidRole(a.Role) {
		return ErrInvalidRole
	}
	return nil
}

// DisplayName is "First Last", falling back to the e-mail address.
func (a *Account) DisplayName() string {
	if name := strings.Join(strings.Fields(a.FirstName+" "+a.LastName), " "); name != "" {
		return name
	}
	return a.Email
}

// SetPassword stores a bcrypt hash of plaintext.
// PRE: len(plaintext) >= MinPassword
func (a *Account) SetPassword(plaintext string) error {
	switch {
	case plaintext == "":
		return ErrEmptyPassword
	case len(plaintext) < MinPassword:
		return ErrPasswordTooShort
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(plaintext), bcryptCost)
	if err != nil {
		return err
	}
	a.PasswordHash = string(hash)
	return nil
}

// CheckPassword returns ErrWrongPassword unless plaintext matches the stored hash.
func (a *Account) CheckPassword(plaintext string) error {
	if a.PasswordHash == "" || bcrypt.CompareHashAndPassword([]byte(a.PasswordHash), []byte(plaintext)) != nil {
		return ErrWrongPassword
	}
	return nil
}

// IsLocked reports whether now falls inside the lockout window.
func (a *Account) IsLocked(now time.Time) bool {
	return now.Before(a.LockedUntil)
}

// RecordFailedLogin counts a wrong password. The fifth consecutive failure
// locks the account for fifteen minutes.
func (a *Account) RecordFailedLogin(now time.Time) {
	a.FailedLogins++
	if a.FailedLogins >= maxFailures {
		a.LockedUntil = now.Add(lockoutPeriod)
	}
}

// ResetFailedLogins clears the failure counter and any lock.
func (a *Account) ResetFailedLogins() {
	a.FailedLogins, a.LockedUntil = 0, time.Time{}
}

func (a *Account) IsAdmin() bool { return a.Role == RoleAdmin }

// IsStaff is true for employees and admins.
func (a *Account) IsStaff() bool { return a.Role == RoleAdmin || a.Role == RoleEmployee }

// IsValidRole reports whether role is one of ValidRoles.
func IsValidRole(role string) bool {
	return slices.Contains(ValidRoles, role)
}
