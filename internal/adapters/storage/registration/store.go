package registration

import (
	"context"
	"time"

	domain "frsm/internal/domain/registration"
)

// Store persists Registration state.
type Store interface {
	GetByID(ctx context.Context, id string) (domain.Registration, error)
	GetByTrainingAndVolunteer(ctx context.Context, trainingID, volunteerID string) (domain.Registration, error)
	Save(ctx context.Context, value domain.Registration) error
	List(ctx context.Context, filter ListFilter) ([]domain.Registration, error)
	ListRecords(ctx context.Context, filter ListFilter) ([]Record, error)
	GetRecord(ctx context.Context, id string) (Record, error)
	Count(ctx context.Context, filter ListFilter) (int, error)
}

// Stage filters select registrations by workflow stage.
const (
	StageCertified           = "certified"
	StageCompleted           = "completed" // completed, no certificate yet
	StageInProgress          = "in_progress"
	StageRegistered          = "registered"
	StageCancelled           = "cancelled"
	StageAwaitingCertificate = "awaiting_certificate" // completed, verified, no certificate
	StageSubmittable         = "submittable"          // completed, verified, not submitted
	StageCompletedAny        = "completed_any"        // completion completed, any certificate state
	StageActive              = "active"               // not cancelled
	StageAssigned            = "assigned"             // admin-made assignments
)

// Ordering options for ListRecords.
const (
	OrderRegistrationDesc = "registration_desc"
	OrderVerifiedDesc     = "verified_desc"
	OrderApprovedDesc     = "approved_desc"
	OrderVolunteerName    = "volunteer_name"
)

// ListFilter carries filtering parameters for List operations.
type ListFilter struct {
	TrainingID       string
	TrainingIDs      []string
	VolunteerID      string
	Stage            string
	CompletionStatus string
	Search           string // volunteer name/email, training title
	OrderBy          string
	Limit            int
	Offset           int
}

// Record is a registration joined with its training, volunteer and certificate.
type Record struct {
	Registration domain.Registration

	TrainingTitle      string
	TrainingStatus     string
	TrainingDate       time.Time
	TrainingEndDate    time.Time
	TrainingInstructor string
	TrainingLocation   string
	DurationHours      float64

	VolunteerFirstName  string
	VolunteerMiddleName string
	VolunteerLastName   string
	VolunteerEmail      string
	VolunteerContact    string
	VolunteerStatus     string
	VolunteerUserID     string

	VerifiedByName  string
	SubmittedByName string
	ApprovedByName  string

	CertificateID     string
	CertificateNumber string
	CertificateExpiry time.Time
}

// VolunteerName joins the volunteer's names.
func (r Record) VolunteerName() string {
	name := r.VolunteerFirstName
	if r.VolunteerMiddleName != "" {
		name += " " + r.VolunteerMiddleName
	}
	return name + " " + r.VolunteerLastName
}
