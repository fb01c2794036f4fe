package orchestrators

import (
	"context"
	"database/sql"
	"fmt"
	"slices"
	"strings"
	"time"

	accountStore "frsm/internal/adapters/storage/account"
	registrationStore "frsm/internal/adapters/storage/registration"
	trainingStore "frsm/internal/adapters/storage/training"
	"frsm/internal/domain/account"
	"frsm/internal/domain/certificate"
	"frsm/internal/domain/notification"
	"frsm/internal/domain/outbox"
	"frsm/internal/domain/registration"
	"frsm/internal/domain/training"
	"frsm/internal/domain/volunteer"
)

var testNow = time.Date(2026, 4, 10, 9, 30, 0, 0, time.UTC)

func nowFn() time.Time { return testNow }

// seqIDs returns a generator of id-1, id-2, ...
func seqIDs() func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("id-%d", n)
	}
}

func notFound(kind, id string) error {
	return fmt.Errorf("%s %s: %w", kind, id, sql.ErrNoRows)
}

// --- in-memory stores ---

type mockTrainings struct{ m map[string]training.Training }

func (s *mockTrainings) GetByID(_ context.Context, id string) (training.Training, error) {
	t, ok := s.m[id]
	if !ok {
		return training.Training{}, notFound("training", id)
	}
	return t, nil
}

func (s *mockTrainings) GetByExternalID(_ context.Context, externalID string) (training.Training, error) {
	for _, t := range s.m {
		if externalID != "" && t.ExternalID == externalID {
			return t, nil
		}
	}
	return training.Training{}, notFound("training", externalID)
}

func (s *mockTrainings) GetByTitleAndDate(_ context.Context, title string, date time.Time) (training.Training, error) {
	for _, t := range s.m {
		if t.Title == title && t.Date.Equal(date) {
			return t, nil
		}
	}
	return training.Training{}, notFound("training", title)
}

func (s *mockTrainings) Save(_ context.Context, t training.Training) error {
	s.m[t.ID] = t
	return nil
}

func (s *mockTrainings) List(_ context.Context, f trainingStore.ListFilter) ([]training.Training, error) {
	var out []training.Training
	for _, t := range s.m {
		if len(f.Statuses) > 0 && !slices.Contains(f.Statuses, t.Status) {
			continue
		}
		out = append(out, t)
	}
	slices.SortFunc(out, func(a, b training.Training) int { return a.Date.Compare(b.Date) })
	return out, nil
}

type mockRegistrations struct {
	m map[string]registration.Registration
}

func (s *mockRegistrations) GetByID(_ context.Context, id string) (registration.Registration, error) {
	r, ok := s.m[id]
	if !ok {
		return registration.Registration{}, notFound("registration", id)
	}
	return r, nil
}

func (s *mockRegistrations) GetByTrainingAndVolunteer(_ context.Context, trainingID, volunteerID string) (registration.Registration, error) {
	for _, r := range s.m {
		if r.TrainingID == trainingID && r.VolunteerID == volunteerID {
			return r, nil
		}
	}
	return registration.Registration{}, notFound("registration", trainingID+"/"+volunteerID)
}

func (s *mockRegistrations) Save(_ context.Context, r registration.Registration) error {
	s.m[r.ID] = r
	return nil
}

func (s *mockRegistrations) List(_ context.Context, f registrationStore.ListFilter) ([]registration.Registration, error) {
	var out []registration.Registration
	for _, r := range s.m {
		if f.TrainingID != "" && r.TrainingID != f.TrainingID {
			continue
		}
		if len(f.TrainingIDs) > 0 && !slices.Contains(f.TrainingIDs, r.TrainingID) {
			continue
		}
		if f.CompletionStatus != "" && r.CompletionStatus != f.CompletionStatus {
			continue
		}
		switch f.Stage {
		case registrationStore.StageActive:
			if !r.IsActive() {
				continue
			}
		case registrationStore.StageSubmittable:
			if !r.IsSubmittable() {
				continue
			}
		}
		out = append(out, r)
	}
	slices.SortFunc(out, func(a, b registration.Registration) int { return compareStrings(a.ID, b.ID) })
	return out, nil
}

func compareStrings(a, b string) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

type mockCertificates struct {
	m       map[string]certificate.Certificate
	taken   map[string]bool
	saveErr error
}

func (s *mockCertificates) NumberExists(_ context.Context, number string) (bool, error) {
	if s.taken[number] {
		return true, nil
	}
	for _, c := range s.m {
		if c.Number == number {
			return true, nil
		}
	}
	return false, nil
}

func (s *mockCertificates) Save(_ context.Context, c certificate.Certificate) error {
	if s.saveErr != nil {
		return s.saveErr
	}
	s.m[c.ID] = c
	return nil
}

type mockVolunteers struct {
	m map[string]volunteer.Volunteer
}

func (s *mockVolunteers) GetByID(_ context.Context, id string) (volunteer.Volunteer, error) {
	v, ok := s.m[id]
	if !ok {
		return volunteer.Volunteer{}, notFound("volunteer", id)
	}
	return v, nil
}

func (s *mockVolunteers) GetByUserID(_ context.Context, userID string) (volunteer.Volunteer, error) {
	for _, v := range s.m {
		if v.UserID == userID {
			return v, nil
		}
	}
	return volunteer.Volunteer{}, notFound("volunteer", userID)
}

func (s *mockVolunteers) GetByEmail(_ context.Context, email string) (volunteer.Volunteer, error) {
	for _, v := range s.m {
		if strings.EqualFold(v.Email, email) {
			return v, nil
		}
	}
	return volunteer.Volunteer{}, notFound("volunteer", email)
}

func (s *mockVolunteers) Save(_ context.Context, v volunteer.Volunteer) error {
	s.m[v.ID] = v
	return nil
}

// mockAccounts keeps insertion order so "first" staff lookups are deterministic.
type mockAccounts struct{ list []account.Account }

func (s *mockAccounts) GetByID(_ context.Context, id string) (account.Account, error) {
	for _, a := range s.list {
		if a.ID == id {
			return a, nil
		}
	}
	return account.Account{}, notFound("account", id)
}

func (s *mockAccounts) GetByEmail(_ context.Context, email string) (account.Account, error) {
	for _, a := range s.list {
		if a.Email == email {
			return a, nil
		}
	}
	return account.Account{}, notFound("account", email)
}

func (s *mockAccounts) List(_ context.Context, f accountStore.ListFilter) ([]account.Account, error) {
	var out []account.Account
	for _, a := range s.list {
		if len(f.Roles) > 0 && !slices.Contains(f.Roles, a.Role) {
			continue
		}
		out = append(out, a)
		if f.Limit > 0 && len(out) == f.Limit {
			break
		}
	}
	return out, nil
}

func (s *mockAccounts) Save(_ context.Context, a account.Account) error {
	for i := range s.list {
		if s.list[i].ID == a.ID {
			s.list[i] = a
			return nil
		}
	}
	s.list = append(s.list, a)
	return nil
}

func (s *mockAccounts) Count(context.Context) (int, error) { return len(s.list), nil }

type mockNotifications struct{ list []notification.Notification }

func (s *mockNotifications) Save(_ context.Context, n notification.Notification) error {
	s.list = append(s.list, n)
	return nil
}

func (s *mockNotifications) forUser(userID string) []notification.Notification {
	var out []notification.Notification
	for _, n := range s.list {
		if n.UserID == userID {
			out = append(out, n)
		}
	}
	return out
}

type mockOutbox struct{ m map[string]outbox.Entry }

func (s *mockOutbox) GetByID(_ context.Context, id string) (outbox.Entry, error) {
	e, ok := s.m[id]
	if !ok {
		return outbox.Entry{}, notFound("outbox", id)
	}
	return e, nil
}

func (s *mockOutbox) Save(_ context.Context, e outbox.Entry) error {
	s.m[e.ID] = e
	return nil
}

func (s *mockOutbox) ListDue(_ context.Context, now time.Time, limit int) ([]outbox.Entry, error) {
	var out []outbox.Entry
	for _, e := range s.m {
		open := e.Status == outbox.StatusPending || e.Status == outbox.StatusRetrying
		if open && !e.NextAttemptAt.IsZero() && !e.NextAttemptAt.After(now) {
			out = append(out, e)
		}
	}
	slices.SortFunc(out, func(a, b outbox.Entry) int { return compareStrings(a.ID, b.ID) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// world bundles every mock store and exposes them as TxStores.
type world struct {
	trainings     *mockTrainings
	registrations *mockRegistrations
	certificates  *mockCertificates
	volunteers    *mockVolunteers
	accounts      *mockAccounts
	notifications *mockNotifications
	outbox        *mockOutbox
}

func newWorld() *world {
	return &world{
		trainings:     &mockTrainings{m: map[string]training.Training{}},
		registrations: &mockRegistrations{m: map[string]registration.Registration{}},
		certificates:  &mockCertificates{m: map[string]certificate.Certificate{}, taken: map[string]bool{}},
		volunteers:    &mockVolunteers{m: map[string]volunteer.Volunteer{}},
		accounts:      &mockAccounts{},
		notifications: &mockNotifications{},
		outbox:        &mockOutbox{m: map[string]outbox.Entry{}},
	}
}

func (w *world) stores() TxStores {
	return TxStores{
		Trainings:     w.trainings,
		Registrations: w.registrations,
		Certificates:  w.certificates,
		Volunteers:    w.volunteers,
		Accounts:      w.accounts,
		Notifications: w.notifications,
		Outbox:        w.outbox,
	}
}

func (w *world) runner() TxRunner {
	return func(_ context.Context, fn func(s TxStores) error) error {
		return fn(w.stores())
	}
}

// seedStandard adds one admin, one employee and a volunteer with a login.
func (w *world) seedStandard() {
	w.accounts.list = append(w.accounts.list,
		account.Account{ID: "adm", FirstName: "Ada", LastName: "Lim", Email: "ada@frsm.local", Role: account.RoleAdmin},
		account.Account{ID: "emp", FirstName: "Ellen", LastName: "Ramos", Email: "ellen@frsm.local", Role: account.RoleEmployee},
		account.Account{ID: "usr", FirstName: "Ana", LastName: "Reyes", Email: "ana@example.com", Role: account.RoleUser},
	)
	w.volunteers.m["v1"] = volunteer.Volunteer{
		ID: "v1", UserID: "usr", FirstName: "Ana", LastName: "Reyes", Email: "ana@example.com",
		ApplicationStatus: volunteer.ApplicationApproved, Status: volunteer.StatusNew,
		TrainingCompletionStatus: volunteer.TrainingNone,
	}
}

func day(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}
