package certificate

import (
	"context"
	"time"

	domain "frsm/internal/domain/certificate"
)

// Store persists Certificate state.
type Store interface {
	GetByID(ctx context.Context, id string) (domain.Certificate, error)
	GetByRegistrationID(ctx context.Context, registrationID string) (domain.Certificate, error)
	NumberExists(ctx context.Context, number string) (bool, error)
	Save(ctx context.Context, value domain.Certificate) error
	ListRecords(ctx context.Context, filter ListFilter) ([]Record, error)
	GetRecord(ctx context.Context, id string) (Record, error)
	Count(ctx context.Context, filter ListFilter) (int, error)
}

// Ordering options for ListRecords.
const (
	OrderExpiryAsc  = "expiry_asc"
	OrderExpiryDesc = "expiry_desc"
	OrderIssuedDesc = "issued_desc"
)

// ListFilter carries filtering parameters for List operations.
// ExpiryFrom and ExpiryTo are inclusive; a zero value leaves that side open.
type ListFilter struct {
	VolunteerID string
	TrainingID  string
	ExpiryFrom  time.Time
	ExpiryTo    time.Time
	// NoExpiryOrAfter keeps certificates without an expiry date together with those expiring on or after the date.
	NoExpiryOrAfter time.Time
	Search          string // volunteer name/email, training title, certificate number
	OrderBy         string
	Limit           int
	Offset          int
}

// Record is a certificate joined with its volunteer, training and issuer.
type Record struct {
	Certificate domain.Certificate

	VolunteerFirstName  string
	VolunteerMiddleName string
	VolunteerLastName   string
	VolunteerEmail      string
	VolunteerContact    string
	VolunteerStatus     string
	VolunteerUserID     string

	TrainingTitle      string
	TrainingDate       time.Time
	TrainingEndDate    time.Time
	TrainingInstructor string
	DurationHours      float64

	IssuedByName string
}

// VolunteerName joins the volunteer's names.
func (r Record) VolunteerName() string {
	name := r.VolunteerFirstName
	if r.VolunteerMiddleName != "" {
		name += " " + r.VolunteerMiddleName
	}
	return name + " " + r.VolunteerLastName
}
