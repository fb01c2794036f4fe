package orchestrators

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"frsm/internal/adapters/certpdf"
	"frsm/internal/domain/certificate"
	"frsm/internal/domain/notification"
	"frsm/internal/domain/registration"
)

// Messages shown after admin approval actions.
const (
	MsgApproved = "Training completion approved and certificate generated successfully."
	MsgRejected = "Training completion has been rejected."
)

// maxNumberAttempts bounds the search for an unused certificate number.
const maxNumberAttempts = 25

var (
	ErrRegistrationNotFound = errors.New("Registration not found")
	ErrNoFreeNumber         = errors.New("could not allocate a unique certificate number")
)

// CertificateWriter renders and stores a certificate file.
type CertificateWriter interface {
	WriteFile(doc certpdf.Document, registrationID string, now time.Time) (string, error)
	Remove(relPath string) error
}

// CompletionDecisionInput identifies the admin and the registration being decided.
type CompletionDecisionInput struct {
	AdminID        string
	RegistrationID string
}

// ApproveCompletionDeps holds dependencies for ApproveCompletion.
type ApproveCompletionDeps struct {
	RunInTx    TxRunner
	Writer     CertificateWriter
	GenerateID func() string
	Sequence   func() int // candidate number suffix in 1..9999
	Now        func() time.Time
}

// ExecuteApproveCompletion approves a verified completion and issues its certificate.
// PRE: Registration is completed, verified and not yet certified
// POST: Registration certified; certificate row and PDF written; volunteer certified
// (New Volunteer promoted to Active); volunteer's account notified; one transaction.
// On failure the PDF is removed again
func ExecuteApproveCompletion(ctx context.Context, input CompletionDecisionInput, deps ApproveCompletionDeps) (certificate.Certificate, error) {
	if input.AdminID == "" {
		return certificate.Certificate{}, registration.ErrMissingActor
	}
	now := deps.Now()
	var cert certificate.Certificate
	var promoted bool

	err := deps.RunInTx(ctx, func(s TxStores) error {
		reg, err := s.Registrations.GetByID(ctx, input.RegistrationID)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrRegistrationNotFound
		}
		if err != nil {
			return err
		}
		if err := reg.Approve(input.AdminID, now); err != nil {
			return err
		}

		t, err := s.Trainings.GetByID(ctx, reg.TrainingID)
		if err != nil {
			return fmt.Errorf("training %s: %w", reg.TrainingID, err)
		}
		vol, err := s.Volunteers.GetByID(ctx, reg.VolunteerID)
		if err != nil {
			return fmt.Errorf("volunteer %s: %w", reg.VolunteerID, err)
		}
		admin, err := s.Accounts.GetByID(ctx, input.AdminID)
		if err != nil {
			return fmt.Errorf("admin %s: %w", input.AdminID, err)
		}

		seq, err := freeSequence(ctx, s, deps.Sequence, now)
		if err != nil {
			return err
		}
		cert = certificate.Issue(deps.GenerateID(), reg.ID, vol.ID, t.ID, input.AdminID, now, seq)

		cert.File, err = deps.Writer.WriteFile(certpdf.Document{
			VolunteerName: vol.FullName(),
			TrainingTitle: t.Title,
			TrainingDate:  t.Date,
			DurationHours: t.DurationHours,
			Instructor:    t.Instructor,
			Number:        cert.Number,
			IssueDate:     cert.IssueDate,
			ExpiryDate:    cert.ExpiryDate,
			AdminName:     admin.DisplayName(),
		}, reg.ID, now)
		if err != nil {
			return fmt.Errorf("write certificate pdf: %w", err)
		}

		if err := cert.Validate(); err != nil {
			return err
		}
		if err := s.Certificates.Save(ctx, cert); err != nil {
			return err
		}
		if err := s.Registrations.Save(ctx, reg); err != nil {
			return err
		}
		promoted = vol.Certify(now)
		if err := s.Volunteers.Save(ctx, vol); err != nil {
			return err
		}

		user, ok, err := volunteerAccount(ctx, s, vol)
		if err != nil || !ok {
			return err
		}
		nt := notifier{stores: s, generateID: deps.GenerateID, now: deps.Now}
		return nt.send(ctx, notification.CertificateIssued(user.ID, t.Title, cert.Number), user.Email)
	})
	if err != nil {
		// The rolled-back certificate row no longer points at the PDF.
		if cert.File != "" {
			if rmErr := deps.Writer.Remove(cert.File); rmErr != nil {
				slog.Warn("certificate_event", "event", "orphan_pdf", "file", cert.File, "error", rmErr)
			}
		}
		return certificate.Certificate{}, err
	}

	slog.Info("certificate_event", "event", "certificate_issued", "registration_id", input.RegistrationID,
		"certificate_number", cert.Number, "admin_id", input.AdminID, "volunteer_promoted", promoted)
	return cert, nil
}

// freeSequence draws number suffixes until one is unused for today's date.
func freeSequence(ctx context.Context, s TxStores, next func() int, now time.Time) (int, error) {
	for range maxNumberAttempts {
		seq := next()
		taken, err := s.Certificates.NumberExists(ctx, certificate.Number(now, seq))
		if err != nil {
			return 0, err
		}
		if !taken {
			return seq, nil
		}
	}
	return 0, ErrNoFreeNumber
}

// RejectCompletionDeps holds dependencies for RejectCompletion.
type RejectCompletionDeps struct {
	RunInTx    TxRunner
	GenerateID func() string
	Now        func() time.Time
}

// ExecuteRejectCompletion sends a completion back to the volunteer as failed.
// PRE: Certificate not issued
// POST: Verification cleared, completion failed, rejection noted; volunteer notified
func ExecuteRejectCompletion(ctx context.Context, input CompletionDecisionInput, deps RejectCompletionDeps) error {
	if input.AdminID == "" {
		return registration.ErrMissingActor
	}
	now := deps.Now()

	err := deps.RunInTx(ctx, func(s TxStores) error {
		reg, err := s.Registrations.GetByID(ctx, input.RegistrationID)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrRegistrationNotFound
		}
		if err != nil {
			return err
		}
		if err := reg.Reject(now); err != nil {
			return err
		}
		if err := s.Registrations.Save(ctx, reg); err != nil {
			return err
		}

		t, err := s.Trainings.GetByID(ctx, reg.TrainingID)
		if err != nil {
			return err
		}
		vol, err := s.Volunteers.GetByID(ctx, reg.VolunteerID)
		if err != nil {
			return err
		}
		user, ok, err := volunteerAccount(ctx, s, vol)
		if err != nil || !ok {
			return err
		}
		nt := notifier{stores: s, generateID: deps.GenerateID, now: deps.Now}
		return nt.send(ctx, notification.Rejected(user.ID, t.Title), user.Email)
	})
	if err != nil {
		return err
	}

	slog.Info("certificate_event", "event", "completion_rejected", "registration_id", input.RegistrationID, "admin_id", input.AdminID)
	return nil
}
