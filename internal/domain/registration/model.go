package registration

import (
	"errors"
	"strings"
	"time"

	"frsm/internal/domain/training"
)

// Registration status constants
const (
	StatusRegistered = "registered"
	StatusCompleted  = "completed"
	StatusCancelled  = "cancelled"
)

// Completion status constants
const (
	CompletionNotStarted = "not_started"
	CompletionInProgress = "in_progress"
	CompletionCompleted  = "completed"
	CompletionFailed     = "failed"
)

// Participant labels shown on participant lists.
const (
	LabelCertified         = "certified"
	LabelPendingApproval   = "pending_approval"
	LabelNeedsVerification = "needs_verification"
	LabelInProgress        = "in_progress"
	LabelRegistered        = "registered"
)

// Domain errors. Messages are shown to users verbatim.
var (
	ErrAlreadyRegistered   = errors.New("You are already registered for this training.")
	ErrCannotCancel        = errors.New("Cannot cancel registration for training that has already started or is ongoing.")
	ErrAlreadyCancelled    = errors.New("Registration is already cancelled.")
	ErrNotFinished         = errors.New("Cannot mark as completed. Training is not finished yet.")
	ErrAlreadyCompleted    = errors.New("Training already marked as completed.")
	ErrNotCompleted        = errors.New("Only completed trainings can be verified.")
	ErrNotVerified         = errors.New("Completion has not been verified by an employee.")
	ErrAlreadySubmitted    = errors.New("Completion has already been submitted to admin.")
	ErrAlreadyCertified    = errors.New("A certificate has already been issued for this registration.")
	ErrNotOwner            = errors.New("Registration not found.")
	ErrMissingActor        = errors.New("acting user is required")
	ErrMissingTrainingID   = errors.New("training id is required")
	ErrMissingVolunteerID  = errors.New("volunteer id is required")
	ErrInvalidCompletion   = errors.New("invalid completion status")
	ErrInvalidRegistration = errors.New("invalid registration status")
)

// Registration tracks one volunteer's enrollment and completion state for a training.
// The boolean flags advance in order: verified, submitted, approved, certificate issued.
type Registration struct {
	ID               string
	TrainingID       string
	VolunteerID      string
	RegistrationDate time.Time
	Status           string
	CompletionStatus string
	CompletionDate   time.Time
	CompletionNotes  string
	CompletionProof  string

	CompletionVerified   bool
	CompletionVerifiedBy string
	CompletionVerifiedAt time.Time

	EmployeeSubmitted   bool
	EmployeeSubmittedBy string
	EmployeeSubmittedAt time.Time

	AdminApproved   bool
	AdminApprovedBy string
	AdminApprovedAt time.Time

	CertificateIssued   bool
	CertificateIssuedAt time.Time
}

// New creates a fresh registration in the registered / not_started state.
// PRE: ids are non-empty
// POST: Returned registration passes Validate
func New(id, trainingID, volunteerID string, now time.Time) Registration {
	return Registration{
		ID:               id,
		TrainingID:       trainingID,
		VolunteerID:      volunteerID,
		RegistrationDate: now,
		Status:           StatusRegistered,
		CompletionStatus: CompletionNotStarted,
	}
}

// Validate checks if the Registration has valid data.
// PRE: Registration struct is populated
// POST: Returns nil if valid, error otherwise
func (r *Registration) Validate() error {
	if r.TrainingID == "" {
		return ErrMissingTrainingID
	}
	if r.VolunteerID == "" {
		return ErrMissingVolunteerID
	}
	switch r.Status {
	case StatusRegistered, StatusCompleted, StatusCancelled:
	default:
		return ErrInvalidRegistration
	}
	switch r.CompletionStatus {
	case CompletionNotStarted, CompletionInProgress, CompletionCompleted, CompletionFailed:
	default:
		return ErrInvalidCompletion
	}
	return nil
}

// IsActive reports whether the registration still holds a place.
func (r *Registration) IsActive() bool {
	return r.Status != StatusCancelled
}

// Reactivate turns a cancelled registration back into a fresh one.
// PRE: Status is cancelled
// POST: Status registered, completion not_started, workflow flags cleared
func (r *Registration) Reactivate(now time.Time) error {
	if r.IsActive() {
		return ErrAlreadyRegistered
	}
	*r = New(r.ID, r.TrainingID, r.VolunteerID, now)
	return nil
}

// ApproveAssignment marks an admin-made assignment as approved at creation.
// POST: AdminApproved set with actor and time
func (r *Registration) ApproveAssignment(adminID string, now time.Time) {
	r.AdminApproved = true
	r.AdminApprovedBy = adminID
	r.AdminApprovedAt = now
}

// Cancel withdraws the registration before the training starts.
// PRE: Registration is active
// POST: Status cancelled, completion reset to not_started
func (r *Registration) Cancel(t training.Training, today time.Time) error {
	if !r.IsActive() {
		return ErrAlreadyCancelled
	}
	if t.HasStarted(today) || t.Status == training.StatusOngoing || t.Status == training.StatusCompleted {
		return ErrCannotCancel
	}
	r.Status = StatusCancelled
	r.CompletionStatus = CompletionNotStarted
	return nil
}

// MarkCompleted records the volunteer's claim that they finished the training.
// PRE: Training has ended or is completed
// POST: CompletionStatus completed, CompletionDate set to now
func (r *Registration) MarkCompleted(t training.Training, now time.Time) error {
	if !r.IsActive() {
		return ErrAlreadyCancelled
	}
	if r.CompletionStatus == CompletionCompleted {
		return ErrAlreadyCompleted
	}
	if t.Status != training.StatusCompleted && !t.HasEnded(now) {
		return ErrNotFinished
	}
	r.CompletionStatus = CompletionCompleted
	r.CompletionDate = now
	return nil
}

// StartProgress moves a not-started registration to in_progress.
// Returns true when the registration changed.
func (r *Registration) StartProgress() bool {
	if !r.IsActive() || r.CompletionStatus != CompletionNotStarted {
		return false
	}
	r.CompletionStatus = CompletionInProgress
	return true
}

// AutoComplete completes a registration whose training has finished.
// Returns true when the registration changed.
func (r *Registration) AutoComplete(now time.Time) bool {
	if !r.IsActive() {
		return false
	}
	if r.CompletionStatus != CompletionNotStarted && r.CompletionStatus != CompletionInProgress {
		return false
	}
	r.CompletionStatus = CompletionCompleted
	r.CompletionDate = now
	return true
}

// Verify records an employee's verification of the completion.
// PRE: CompletionStatus is completed
// POST: CompletionVerified set; proof stored when given; notes appended when given
func (r *Registration) Verify(employeeID, proof, notes string, now time.Time) error {
	if employeeID == "" {
		return ErrMissingActor
	}
	if r.CompletionStatus != CompletionCompleted {
		return ErrNotCompleted
	}
	r.CompletionVerified = true
	r.CompletionVerifiedBy = employeeID
	r.CompletionVerifiedAt = now
	if proof != "" {
		r.CompletionProof = proof
	}
	if notes = strings.TrimSpace(notes); notes != "" {
		r.CompletionNotes += "\nEmployee Verification: " + notes
	}
	return nil
}

// IsSubmittable reports whether the registration is completed, verified and not yet submitted.
func (r *Registration) IsSubmittable() bool {
	return r.IsActive() && r.CompletionStatus == CompletionCompleted && r.CompletionVerified && !r.EmployeeSubmitted
}

// Submit forwards a verified completion to admin.
// PRE: IsSubmittable
// POST: EmployeeSubmitted set with actor and time
func (r *Registration) Submit(employeeID string, now time.Time) error {
	if employeeID == "" {
		return ErrMissingActor
	}
	if r.EmployeeSubmitted {
		return ErrAlreadySubmitted
	}
	if r.CompletionStatus != CompletionCompleted {
		return ErrNotCompleted
	}
	if !r.CompletionVerified {
		return ErrNotVerified
	}
	r.EmployeeSubmitted = true
	r.EmployeeSubmittedBy = employeeID
	r.EmployeeSubmittedAt = now
	return nil
}

// IsAwaitingCertificate reports whether admin may approve this completion.
func (r *Registration) IsAwaitingCertificate() bool {
	return r.CompletionStatus == CompletionCompleted && r.CompletionVerified && !r.CertificateIssued
}

// Approve marks the completion approved and the certificate issued.
// PRE: IsAwaitingCertificate
// POST: AdminApproved and CertificateIssued set, Status completed
func (r *Registration) Approve(adminID string, now time.Time) error {
	if adminID == "" {
		return ErrMissingActor
	}
	if r.CertificateIssued {
		return ErrAlreadyCertified
	}
	if r.CompletionStatus != CompletionCompleted {
		return ErrNotCompleted
	}
	if !r.CompletionVerified {
		return ErrNotVerified
	}
	r.AdminApproved = true
	r.AdminApprovedBy = adminID
	r.AdminApprovedAt = now
	r.CertificateIssued = true
	r.CertificateIssuedAt = now
	r.Status = StatusCompleted
	return nil
}

// Reject sends a completion back: verification is cleared and the completion fails.
// PRE: Certificate not issued
// POST: CompletionVerified false, CompletionStatus failed, rejection noted
func (r *Registration) Reject(now time.Time) error {
	if r.CertificateIssued {
		return ErrAlreadyCertified
	}
	r.CompletionVerified = false
	r.CompletionVerifiedBy = ""
	r.CompletionVerifiedAt = time.Time{}
	r.CompletionStatus = CompletionFailed
	r.CompletionNotes += "\nRejected by admin: " + now.Format("2006-01-02 15:04:05")
	return nil
}

// IsPendingVerification reports whether the completion was submitted but no certificate issued yet.
func (r *Registration) IsPendingVerification() bool {
	return r.EmployeeSubmitted && !r.CertificateIssued
}

// ParticipantLabel returns the most advanced workflow stage reached.
func (r *Registration) ParticipantLabel() string {
	switch {
	case r.CertificateIssued:
		return LabelCertified
	case r.CompletionStatus == CompletionCompleted && r.EmployeeSubmitted:
		return LabelPendingApproval
	case r.CompletionStatus == CompletionCompleted:
		return LabelNeedsVerification
	case r.CompletionStatus == CompletionInProgress:
		return LabelInProgress
	default:
		return LabelRegistered
	}
}
