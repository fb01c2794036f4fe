package volunteer

import (
	"errors"
	"strings"
	"time"
)

// Application status constants
const (
	ApplicationPending  = "pending"
	ApplicationApproved = "approved"
	ApplicationRejected = "rejected"
)

// Volunteer status constants
const (
	StatusNew      = "New Volunteer"
	StatusActive   = "Active"
	StatusInactive = "Inactive"
)

// Training completion status constants
const (
	TrainingNone       = "none"
	TrainingInProgress = "in_progress"
	TrainingCertified  = "certified"
)

// Domain errors
var (
	ErrEmptyFirstName     = errors.New("first name cannot be empty")
	ErrEmptyLastName      = errors.New("last name cannot be empty")
	ErrInvalidEmail       = errors.New("email must contain '@'")
	ErrInvalidStatus      = errors.New("invalid volunteer status")
	ErrInvalidApplication = errors.New("invalid application status")
	ErrNotApproved        = errors.New("volunteer application is not approved")
)

// Volunteer is an approved (or applying) member of the volunteer corps.
type Volunteer struct {
	ID                       string
	UserID                   string
	FirstName                string
	MiddleName               string
	LastName                 string
	Email                    string
	ContactNumber            string
	ApplicationStatus        string
	Status                   string
	TrainingCompletionStatus string
	FirstTrainingCompletedAt time.Time
	ActiveSince              time.Time
	CreatedAt                time.Time
}

// Validate checks if the Volunteer has valid data.
// PRE: Volunteer struct is populated
// POST: Returns nil if valid, error otherwise
func (v *Volunteer) Validate() error {
	if strings.TrimSpace(v.FirstName) == "" {
		return ErrEmptyFirstName
	}
	if strings.TrimSpace(v.LastName) == "" {
		return ErrEmptyLastName
	}
	if !strings.Contains(v.Email, "@") {
		return ErrInvalidEmail
	}
	switch v.Status {
	case StatusNew, StatusActive, StatusInactive:
	default:
		return ErrInvalidStatus
	}
	switch v.ApplicationStatus {
	case ApplicationPending, ApplicationApproved, ApplicationRejected:
	default:
		return ErrInvalidApplication
	}
	return nil
}

// FullName joins first, middle and last name.
func (v *Volunteer) FullName() string {
	parts := []string{v.FirstName}
	if m := strings.TrimSpace(v.MiddleName); m != "" {
		parts = append(parts, m)
	}
	parts = append(parts, v.LastName)
	return strings.Join(parts, " ")
}

// IsApproved reports whether the volunteer's application was approved.
func (v *Volunteer) IsApproved() bool {
	return v.ApplicationStatus == ApplicationApproved
}

// StatusWarning returns the notice shown to volunteers whose status limits them, or "".
func (v *Volunteer) StatusWarning() string {
	switch v.Status {
	case StatusNew:
		return "You need to complete your first training and get it approved to become an Active Volunteer."
	case StatusInactive:
		return "Your volunteer account is inactive. Please contact the administrator."
	}
	return ""
}

// Certify records a certified training completion. A New Volunteer becomes Active.
// Returns true when the volunteer was promoted.
// POST: TrainingCompletionStatus is certified
func (v *Volunteer) Certify(now time.Time) bool {
	v.TrainingCompletionStatus = TrainingCertified
	if v.Status != StatusNew {
		return false
	}
	v.Status = StatusActive
	y, m, d := now.Date()
	v.ActiveSince = time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	if v.FirstTrainingCompletedAt.IsZero() {
		v.FirstTrainingCompletedAt = now
	}
	return true
}
