package certificate

import (
	"errors"
	"fmt"
	"time"
)

// Expiry bucket constants
const (
	ExpiryExpired    = "expired"
	ExpiryWithin30   = "expiring_30"
	ExpiryWithin60   = "expiring_60"
	ExpiryWithin90   = "expiring_90"
	ExpiryValid      = "valid"
	ExpiryNoExpiry   = "no_expiry"
	NumberPrefix     = "CERT-"
	ValidityYears    = 1
	maxNumberSuffix  = 9999
	numberDateLayout = "20060102"
)

// Domain errors
var (
	ErrMissingRegistration = errors.New("certificate requires a registration")
	ErrMissingNumber       = errors.New("certificate number is required")
	ErrExpiryBeforeIssue   = errors.New("certificate expiry cannot be before issue date")
	ErrInvalidFilter       = errors.New("unknown expiry filter")
)

// Certificate evidences a verified training completion.
type Certificate struct {
	ID             string
	RegistrationID string
	VolunteerID    string
	TrainingID     string
	Number         string
	IssueDate      time.Time
	ExpiryDate     time.Time // zero when the certificate never expires
	File           string
	IssuedBy       string
	IssuedAt       time.Time
	Verified       bool
}

// Issue builds a verified certificate valid for ValidityYears from the issue day.
// PRE: ids are non-empty; seq is in 1..9999
// POST: Returned certificate passes Validate
func Issue(id, registrationID, volunteerID, trainingID, issuedBy string, now time.Time, seq int) Certificate {
	issue := dateOf(now)
	return Certificate{
		ID:             id,
		RegistrationID: registrationID,
		VolunteerID:    volunteerID,
		TrainingID:     trainingID,
		Number:         Number(now, seq),
		IssueDate:      issue,
		ExpiryDate:     issue.AddDate(ValidityYears, 0, 0),
		IssuedBy:       issuedBy,
		IssuedAt:       now,
		Verified:       true,
	}
}

// Number formats a certificate number as CERT-YYYYMMDD-NNNN.
// seq is wrapped into 1..9999.
func Number(now time.Time, seq int) string {
	if seq < 1 || seq > maxNumberSuffix {
		seq = (abs(seq) % maxNumberSuffix) + 1
	}
	return fmt.Sprintf("%s%s-%04d", NumberPrefix, now.Format(numberDateLayout), seq)
}

// Validate checks if the Certificate has valid data.
// PRE: Certificate struct is populated
// POST: Returns nil if valid, error otherwise
func (c *Certificate) Validate() error {
	if c.RegistrationID == "" {
		return ErrMissingRegistration
	}
	if c.Number == "" {
		return ErrMissingNumber
	}
	if !c.ExpiryDate.IsZero() && c.ExpiryDate.Before(c.IssueDate) {
		return ErrExpiryBeforeIssue
	}
	return nil
}

// DaysUntilExpiry returns whole days from today to the expiry date.
// Negative values mean the certificate has expired. ok is false when there is no expiry.
// INVARIANT: Certificate fields are not mutated
func (c *Certificate) DaysUntilExpiry(today time.Time) (days int, ok bool) {
	if c.ExpiryDate.IsZero() {
		return 0, false
	}
	return int(dateOf(c.ExpiryDate).Sub(dateOf(today)).Hours() / 24), true
}

// ExpiryStatus classifies the certificate relative to today.
// INVARIANT: Certificate fields are not mutated
func (c *Certificate) ExpiryStatus(today time.Time) string {
	days, ok := c.DaysUntilExpiry(today)
	if !ok {
		return ExpiryNoExpiry
	}
	return Bucket(days)
}

// IsExpired reports whether the expiry date lies before today.
func (c *Certificate) IsExpired(today time.Time) bool {
	days, ok := c.DaysUntilExpiry(today)
	return ok && days < 0
}

// Bucket maps days-until-expiry onto an expiry status.
func Bucket(days int) string {
	switch {
	case days < 0:
		return ExpiryExpired
	case days <= 30:
		return ExpiryWithin30
	case days <= 60:
		return ExpiryWithin60
	case days <= 90:
		return ExpiryWithin90
	default:
		return ExpiryValid
	}
}

// FilterRange returns the inclusive expiry-date window for an expiry filter.
// A zero from or to means the window is open on that side.
func FilterRange(filter string, today time.Time) (from, to time.Time, err error) {
	d := dateOf(today)
	switch filter {
	case ExpiryExpired:
		return time.Time{}, d.AddDate(0, 0, -1), nil
	case ExpiryWithin30:
		return d, d.AddDate(0, 0, 30), nil
	case ExpiryWithin60:
		return d.AddDate(0, 0, 31), d.AddDate(0, 0, 60), nil
	case ExpiryWithin90:
		return d.AddDate(0, 0, 61), d.AddDate(0, 0, 90), nil
	case ExpiryValid:
		return d.AddDate(0, 0, 91), time.Time{}, nil
	}
	return time.Time{}, time.Time{}, ErrInvalidFilter
}

func dateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
