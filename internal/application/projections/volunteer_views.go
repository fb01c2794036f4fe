package projections

import (
	"context"
	"time"

	certificateStore "frsm/internal/adapters/storage/certificate"
	registrationStore "frsm/internal/adapters/storage/registration"
	trainingStore "frsm/internal/adapters/storage/training"
	"frsm/internal/domain/certificate"
	"frsm/internal/domain/registration"
	"frsm/internal/domain/training"
	"frsm/internal/domain/volunteer"
)

// VolunteerViewDeps holds dependencies for the volunteer-facing queries.
type VolunteerViewDeps struct {
	Volunteers    VolunteerReader
	Trainings     TrainingReader
	Registrations RegistrationReader
	Certificates  CertificateReader
}

// OwnRegistration is one of the volunteer's registrations with the actions open to them.
type OwnRegistration struct {
	registrationStore.Record
	Label       string
	CanCancel   bool
	CanComplete bool
}

// VolunteerTrainingsQuery carries the volunteer dashboard filters.
type VolunteerTrainingsQuery struct {
	UserID     string
	Completion string // completion status filter, may be empty
	Today      time.Time
}

// VolunteerTrainings is the volunteer training dashboard.
type VolunteerTrainings struct {
	Volunteer     volunteer.Volunteer
	StatusWarning string
	Available     []training.Training
	Registrations []OwnRegistration
}

// QueryVolunteerTrainings loads the trainings a volunteer can join and their own registrations.
// PRE: UserID has a volunteer profile; otherwise the error wraps sql.ErrNoRows
// POST: Available excludes trainings the volunteer holds an active registration for; ongoing first
func QueryVolunteerTrainings(ctx context.Context, q VolunteerTrainingsQuery, deps VolunteerViewDeps) (VolunteerTrainings, error) {
	var res VolunteerTrainings
	vol, err := deps.Volunteers.GetByUserID(ctx, q.UserID)
	if err != nil {
		return res, err
	}
	res.Volunteer = vol
	res.StatusWarning = vol.StatusWarning()

	res.Available, err = deps.Trainings.List(ctx, trainingStore.ListFilter{
		Statuses:        []string{training.StatusScheduled, training.StatusOngoing},
		NotRegisteredBy: vol.ID,
		OngoingFirst:    true,
	})
	if err != nil {
		return res, err
	}

	records, err := deps.Registrations.ListRecords(ctx, registrationStore.ListFilter{
		VolunteerID:      vol.ID,
		Stage:            registrationStore.StageActive,
		CompletionStatus: q.Completion,
		OrderBy:          registrationStore.OrderRegistrationDesc,
	})
	if err != nil {
		return res, err
	}
	for _, rec := range records {
		res.Registrations = append(res.Registrations, ownRegistration(rec, q.Today))
	}
	return res, nil
}

func ownRegistration(rec registrationStore.Record, today time.Time) OwnRegistration {
	t := training.Training{
		ID: rec.Registration.TrainingID, Status: rec.TrainingStatus,
		Date: rec.TrainingDate, EndDate: rec.TrainingEndDate,
	}
	// Cancel and MarkCompleted run on copies; only their verdict is kept.
	cancelProbe, completeProbe := rec.Registration, rec.Registration
	return OwnRegistration{
		Record:      rec,
		Label:       rec.Registration.ParticipantLabel(),
		CanCancel:   cancelProbe.Cancel(t, today) == nil,
		CanComplete: completeProbe.MarkCompleted(t, today) == nil,
	}
}

// CertificationStatusQuery identifies the volunteer.
type CertificationStatusQuery struct {
	UserID string
	Today  time.Time
}

// CertificationStats summarises a volunteer's certificates.
type CertificationStats struct {
	Total        int
	Valid        int // not expired
	Expired      int
	ExpiringSoon int // within 30 days
}

// CertificationStatus is the volunteer certificate page.
type CertificationStatus struct {
	Volunteer    volunteer.Volunteer
	Certificates []ExpiryRow
	Pending      []registrationStore.Record
	Stats        CertificationStats
}

// QueryCertificationStatus loads a volunteer's certificates and uncertified completions.
// PRE: UserID has a volunteer profile
// POST: Certificates ordered by expiry, soonest first
func QueryCertificationStatus(ctx context.Context, q CertificationStatusQuery, deps VolunteerViewDeps) (CertificationStatus, error) {
	var res CertificationStatus
	vol, err := deps.Volunteers.GetByUserID(ctx, q.UserID)
	if err != nil {
		return res, err
	}
	res.Volunteer = vol

	certs, err := deps.Certificates.ListRecords(ctx, certificateStore.ListFilter{
		VolunteerID: vol.ID,
		OrderBy:     certificateStore.OrderExpiryAsc,
	})
	if err != nil {
		return res, err
	}
	res.Certificates = expiryRows(certs, q.Today)
	for _, row := range res.Certificates {
		res.Stats.Total++
		switch row.Bucket {
		case certificate.ExpiryExpired:
			res.Stats.Expired++
		case certificate.ExpiryWithin30:
			res.Stats.ExpiringSoon++
			res.Stats.Valid++
		default:
			res.Stats.Valid++
		}
	}

	res.Pending, err = deps.Registrations.ListRecords(ctx, registrationStore.ListFilter{
		VolunteerID: vol.ID,
		Stage:       registrationStore.StageCompleted,
		OrderBy:     registrationStore.OrderRegistrationDesc,
	})
	return res, err
}

// VolunteerRecordStats counts a volunteer's registrations by stage.
type VolunteerRecordStats struct {
	Completed           int
	Certified           int
	InProgress          int
	PendingVerification int // submitted to admin, no certificate yet
}

// VolunteerRecords is the volunteer's own training history.
type VolunteerRecords struct {
	Volunteer volunteer.Volunteer
	Records   []OwnRegistration
	Stats     VolunteerRecordStats
}

// QueryVolunteerRecords loads every registration of a volunteer with stage counts.
func QueryVolunteerRecords(ctx context.Context, userID string, today time.Time, deps VolunteerViewDeps) (VolunteerRecords, error) {
	var res VolunteerRecords
	vol, err := deps.Volunteers.GetByUserID(ctx, userID)
	if err != nil {
		return res, err
	}
	res.Volunteer = vol

	records, err := deps.Registrations.ListRecords(ctx, registrationStore.ListFilter{
		VolunteerID: vol.ID,
		Stage:       registrationStore.StageActive,
		OrderBy:     registrationStore.OrderRegistrationDesc,
	})
	if err != nil {
		return res, err
	}
	for _, rec := range records {
		res.Records = append(res.Records, ownRegistration(rec, today))
		r := rec.Registration
		if r.CertificateIssued {
			res.Stats.Certified++
		}
		if r.IsPendingVerification() {
			res.Stats.PendingVerification++
		}
		if !r.IsActive() {
			continue
		}
		switch r.CompletionStatus {
		case registration.CompletionCompleted:
			res.Stats.Completed++
		case registration.CompletionInProgress:
			res.Stats.InProgress++
		}
	}
	return res, nil
}
