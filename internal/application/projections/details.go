package projections

import (
	"context"
	"errors"
	"time"

	"frsm/internal/domain/account"
	"frsm/internal/domain/notification"
)

// ErrForbidden is returned when the viewer may not see a record.
var ErrForbidden = errors.New("forbidden")

const detailDate = "2006-01-02"

func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(detailDate)
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format("2006-01-02 15:04:05")
}

// RegistrationDetail is the JSON shape of a registration record.
type RegistrationDetail struct {
	ID                string  `json:"id"`
	VolunteerName     string  `json:"volunteer_name"`
	VolunteerEmail    string  `json:"volunteer_email"`
	VolunteerContact  string  `json:"volunteer_contact"`
	TrainingTitle     string  `json:"training_title"`
	TrainingDate      string  `json:"training_date"`
	TrainingEndDate   string  `json:"training_end_date,omitempty"`
	Instructor        string  `json:"instructor"`
	Location          string  `json:"location"`
	DurationHours     float64 `json:"duration_hours"`
	RegistrationDate  string  `json:"registration_date"`
	Status            string  `json:"status"`
	CompletionStatus  string  `json:"completion_status"`
	CompletionDate    string  `json:"completion_date,omitempty"`
	CompletionNotes   string  `json:"completion_notes,omitempty"`
	CompletionProof   string  `json:"completion_proof,omitempty"`
	Label             string  `json:"label"`
	VerifiedBy        string  `json:"verified_by,omitempty"`
	VerifiedAt        string  `json:"verified_at,omitempty"`
	SubmittedBy       string  `json:"submitted_by,omitempty"`
	SubmittedAt       string  `json:"submitted_at,omitempty"`
	ApprovedBy        string  `json:"approved_by,omitempty"`
	ApprovedAt        string  `json:"approved_at,omitempty"`
	CertificateID     string  `json:"certificate_id,omitempty"`
	CertificateNumber string  `json:"certificate_number,omitempty"`
	CertificateExpiry string  `json:"certificate_expiry,omitempty"`
}

// QueryRegistrationDetail loads one registration for the details dialog.
func QueryRegistrationDetail(ctx context.Context, id string, regs RegistrationReader) (RegistrationDetail, error) {
	rec, err := regs.GetRecord(ctx, id)
	if err != nil {
		return RegistrationDetail{}, err
	}
	r := rec.Registration
	return RegistrationDetail{
		ID:                r.ID,
		VolunteerName:     rec.VolunteerName(),
		VolunteerEmail:    rec.VolunteerEmail,
		VolunteerContact:  rec.VolunteerContact,
		TrainingTitle:     rec.TrainingTitle,
		TrainingDate:      formatDate(rec.TrainingDate),
		TrainingEndDate:   formatDate(rec.TrainingEndDate),
		Instructor:        rec.TrainingInstructor,
		Location:          rec.TrainingLocation,
		DurationHours:     rec.DurationHours,
		RegistrationDate:  formatTime(r.RegistrationDate),
		Status:            r.Status,
		CompletionStatus:  r.CompletionStatus,
		CompletionDate:    formatDate(r.CompletionDate),
		CompletionNotes:   r.CompletionNotes,
		CompletionProof:   r.CompletionProof,
		Label:             r.ParticipantLabel(),
		VerifiedBy:        rec.VerifiedByName,
		VerifiedAt:        formatTime(r.CompletionVerifiedAt),
		SubmittedBy:       rec.SubmittedByName,
		SubmittedAt:       formatTime(r.EmployeeSubmittedAt),
		ApprovedBy:        rec.ApprovedByName,
		ApprovedAt:        formatTime(r.AdminApprovedAt),
		CertificateID:     rec.CertificateID,
		CertificateNumber: rec.CertificateNumber,
		CertificateExpiry: formatDate(rec.CertificateExpiry),
	}, nil
}

// CertificateDetail is the JSON shape of a certificate record.
type CertificateDetail struct {
	ID              string  `json:"id"`
	Number          string  `json:"certificate_number"`
	VolunteerName   string  `json:"volunteer_name"`
	VolunteerEmail  string  `json:"volunteer_email"`
	VolunteerStatus string  `json:"volunteer_status"`
	TrainingTitle   string  `json:"training_title"`
	TrainingDate    string  `json:"training_date"`
	Instructor      string  `json:"instructor"`
	DurationHours   float64 `json:"duration_hours"`
	IssueDate       string  `json:"issue_date"`
	ExpiryDate      string  `json:"expiry_date,omitempty"`
	IssuedBy        string  `json:"issued_by"`
	Verified        bool    `json:"verified"`
	DaysUntilExpiry *int    `json:"days_until_expiry,omitempty"`
	ExpiryStatus    string  `json:"expiry_status"`
	HasFile         bool    `json:"has_file"`
}

// Viewer identifies who asks for a record.
type Viewer struct {
	AccountID string
	Role      string
}

// QueryCertificateDetail loads one certificate. Admins see every certificate;
// volunteers only their own.
// POST: Returns ErrForbidden for anyone else
func QueryCertificateDetail(ctx context.Context, id string, viewer Viewer, today time.Time, certs CertificateReader) (CertificateDetail, error) {
	rec, err := certs.GetRecord(ctx, id)
	if err != nil {
		return CertificateDetail{}, err
	}
	if !CanViewCertificate(viewer, rec.VolunteerUserID) {
		return CertificateDetail{}, ErrForbidden
	}
	c := rec.Certificate
	d := CertificateDetail{
		ID:              c.ID,
		Number:          c.Number,
		VolunteerName:   rec.VolunteerName(),
		VolunteerEmail:  rec.VolunteerEmail,
		VolunteerStatus: rec.VolunteerStatus,
		TrainingTitle:   rec.TrainingTitle,
		TrainingDate:    formatDate(rec.TrainingDate),
		Instructor:      rec.TrainingInstructor,
		DurationHours:   rec.DurationHours,
		IssueDate:       formatDate(c.IssueDate),
		ExpiryDate:      formatDate(c.ExpiryDate),
		IssuedBy:        rec.IssuedByName,
		Verified:        c.Verified,
		ExpiryStatus:    c.ExpiryStatus(today),
		HasFile:         c.File != "",
	}
	if days, ok := c.DaysUntilExpiry(today); ok {
		d.DaysUntilExpiry = &days
	}
	return d, nil
}

// CanViewCertificate reports whether viewer may see a certificate held by ownerUserID.
func CanViewCertificate(viewer Viewer, ownerUserID string) bool {
	switch viewer.Role {
	case account.RoleAdmin:
		return true
	case account.RoleUser:
		return ownerUserID != "" && ownerUserID == viewer.AccountID
	}
	return false
}

// notificationPageSize bounds the notification list.
const notificationPageSize = 50

// Notifications is the current user's notification list.
type Notifications struct {
	Items  []notification.Notification
	Unread int
}

// QueryNotifications lists the newest notifications of a user with the unread count.
func QueryNotifications(ctx context.Context, userID string, store NotificationReader) (Notifications, error) {
	var res Notifications
	var err error
	if res.Items, err = store.ListByUser(ctx, userID, notificationPageSize); err != nil {
		return res, err
	}
	res.Unread, err = store.CountUnread(ctx, userID)
	return res, err
}
