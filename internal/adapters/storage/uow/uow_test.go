package uow

import (
	"context"
	"database/sql"
	"errors"
	"strconv"
	"testing"
	"time"

	_ "modernc.org/sqlite"

	"frsm/internal/adapters/certpdf"
	"frsm/internal/adapters/storage"
	registrationStore "frsm/internal/adapters/storage/registration"
	volunteerStore "frsm/internal/adapters/storage/volunteer"
	"frsm/internal/application/orchestrators"
)

var fixedNow = time.Date(2026, 4, 10, 9, 30, 0, 0, time.UTC)

func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("failed to open db: %v", err)
	}
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })
	if err := storage.MigrateDB(db, ""); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}
	seed := []string{
		`INSERT INTO account (id, first_name, last_name, email, role, created_at) VALUES
			('adm','Ada','Lim','ada@frsm.local','admin','2026-01-01'),
			('usr','Ana','Reyes','ana@example.com','user','2026-01-01')`,
		`INSERT INTO trainings (id, title, training_date, duration_hours, instructor, status, created_at, updated_at)
			VALUES ('t1','Rope Rescue','2026-03-01',8,'Capt. Santos','completed','2026-01-01','2026-01-01')`,
		`INSERT INTO volunteers (id, user_id, first_name, last_name, email, application_status, created_at)
			VALUES ('v1','usr','Ana','Reyes','ana@example.com','approved','2026-01-01')`,
		`INSERT INTO training_registrations (id, training_id, volunteer_id, registration_date, completion_status,
			completion_date, completion_verified, completion_verified_by, completion_verified_at, employee_submitted)
			VALUES ('r1','t1','v1','2026-02-01','completed','2026-03-02',1,'adm','2026-03-03 10:00:00',1)`,
	}
	for _, q := range seed {
		if _, err := db.Exec(q); err != nil {
			t.Fatalf("seed failed: %v", err)
		}
	}
	return db
}

type stubWriter struct {
	err  error
	docs []certpdf.Document
}

func (w *stubWriter) WriteFile(doc certpdf.Document, registrationID string, now time.Time) (string, error) {
	if w.err != nil {
		return "", w.err
	}
	w.docs = append(w.docs, doc)
	return "certificates/certificate_" + registrationID + ".pdf", nil
}

func (w *stubWriter) Remove(string) error { return nil }

func approveDeps(db *sql.DB, w orchestrators.CertificateWriter) orchestrators.ApproveCompletionDeps {
	n := 0
	return orchestrators.ApproveCompletionDeps{
		RunInTx: Runner(db),
		Writer:  w,
		GenerateID: func() string {
			n++
			return "id-" + strconv.Itoa(n)
		},
		Sequence: func() int { return 42 },
		Now:      func() time.Time { return fixedNow },
	}
}

func count(t *testing.T, db *sql.DB, query string) int {
	t.Helper()
	var n int
	if err := db.QueryRow(query).Scan(&n); err != nil {
		t.Fatalf("%s: %v", query, err)
	}
	return n
}

// TestRunner_ApproveCommitsEverything tests that approval writes every row in one transaction.
func TestRunner_ApproveCommitsEverything(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	w := &stubWriter{}

	cert, err := orchestrators.ExecuteApproveCompletion(ctx,
		orchestrators.CompletionDecisionInput{AdminID: "adm", RegistrationID: "r1"}, approveDeps(db, w))
	if err != nil {
		t.Fatalf("ExecuteApproveCompletion() error: %v", err)
	}
	if cert.Number != "CERT-20260410-0042" {
		t.Errorf("Number = %q", cert.Number)
	}
	if len(w.docs) != 1 || w.docs[0].AdminName != "Ada Lim" || w.docs[0].VolunteerName != "Ana Reyes" {
		t.Errorf("rendered docs = %+v", w.docs)
	}

	reg, err := registrationStore.NewSQLiteStore(db).GetByID(ctx, "r1")
	if err != nil {
		t.Fatal(err)
	}
	if !reg.CertificateIssued || !reg.AdminApproved || reg.AdminApprovedBy != "adm" {
		t.Errorf("registration not certified: %+v", reg)
	}

	vol, err := volunteerStore.NewSQLiteStore(db).GetByID(ctx, "v1")
	if err != nil {
		t.Fatal(err)
	}
	if vol.Status != "Active" || vol.TrainingCompletionStatus != "certified" {
		t.Errorf("volunteer not promoted: %+v", vol)
	}

	if n := count(t, db, `SELECT COUNT(*) FROM training_certificates WHERE certificate_file = 'certificates/certificate_r1.pdf'`); n != 1 {
		t.Errorf("certificates = %d, want 1", n)
	}
	if n := count(t, db, `SELECT COUNT(*) FROM notifications WHERE user_id = 'usr' AND type = 'certificate_issued'`); n != 1 {
		t.Errorf("notifications = %d, want 1", n)
	}
	if n := count(t, db, `SELECT COUNT(*) FROM outbox WHERE action_type = 'notification_email'`); n != 1 {
		t.Errorf("outbox entries = %d, want 1", n)
	}
}

// TestRunner_RollbackOnWriterFailure tests that nothing persists when the PDF cannot be written.
func TestRunner_RollbackOnWriterFailure(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	w := &stubWriter{err: errors.New("disk full")}

	_, err := orchestrators.ExecuteApproveCompletion(ctx,
		orchestrators.CompletionDecisionInput{AdminID: "adm", RegistrationID: "r1"}, approveDeps(db, w))
	if err == nil {
		t.Fatal("expected error")
	}

	reg, err := registrationStore.NewSQLiteStore(db).GetByID(ctx, "r1")
	if err != nil {
		t.Fatal(err)
	}
	if reg.CertificateIssued {
		t.Error("registration should not be certified after rollback")
	}
	if n := count(t, db, `SELECT COUNT(*) FROM training_certificates`); n != 0 {
		t.Errorf("certificates = %d, want 0", n)
	}
	if n := count(t, db, `SELECT COUNT(*) FROM notifications`); n != 0 {
		t.Errorf("notifications = %d, want 0", n)
	}
}
