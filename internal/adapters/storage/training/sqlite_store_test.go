package training

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	_ "modernc.org/sqlite"

	"frsm/internal/adapters/storage"
	domain "frsm/internal/domain/training"
)

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
	return db
}

func date(s string) time.Time {
	d, _ := time.Parse("2006-01-02", s)
	return d
}

func newTraining(id, title, start, status string) domain.Training {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	return domain.Training{
		ID: id, Title: title, Date: date(start), Status: status,
		DurationHours: 8, Instructor: "Capt. Dela Cruz", Location: "Station 3",
		CreatedAt: now, UpdatedAt: now,
	}
}

// TestSQLiteStore_SaveAndGet tests round-tripping a training.
func TestSQLiteStore_SaveAndGet(t *testing.T) {
	db := setupTestDB(t)
	store := NewSQLiteStore(db)
	ctx := context.Background()

	tr := newTraining("t1", "Rope Rescue", "2026-03-01", domain.StatusScheduled)
	tr.EndDate = date("2026-03-02")
	tr.ExternalID = "ext-7"
	tr.MaxParticipants = 20
	if err := store.Save(ctx, tr); err != nil {
		t.Fatalf("Save() error: %v", err)
	}

	got, err := store.GetByID(ctx, "t1")
	if err != nil {
		t.Fatalf("GetByID() error: %v", err)
	}
	if got.Title != "Rope Rescue" || !got.Date.Equal(tr.Date) || !got.EndDate.Equal(tr.EndDate) || got.MaxParticipants != 20 {
		t.Errorf("GetByID() = %+v", got)
	}

	if _, err := store.GetByExternalID(ctx, "ext-7"); err != nil {
		t.Errorf("GetByExternalID() error: %v", err)
	}
	if _, err := store.GetByTitleAndDate(ctx, "Rope Rescue", date("2026-03-01")); err != nil {
		t.Errorf("GetByTitleAndDate() error: %v", err)
	}
	if _, err := store.GetByID(ctx, "missing"); !errors.Is(err, sql.ErrNoRows) {
		t.Errorf("GetByID(missing) = %v, want sql.ErrNoRows", err)
	}

	tr.CurrentParticipants = 5
	tr.Status = domain.StatusOngoing
	if err := store.Save(ctx, tr); err != nil {
		t.Fatalf("Save() update error: %v", err)
	}
	got, _ = store.GetByID(ctx, "t1")
	if got.CurrentParticipants != 5 || got.Status != domain.StatusOngoing {
		t.Errorf("update not persisted: %+v", got)
	}
}

// TestSQLiteStore_List tests status, date and search filters.
func TestSQLiteStore_List(t *testing.T) {
	db := setupTestDB(t)
	store := NewSQLiteStore(db)
	ctx := context.Background()

	for _, tr := range []domain.Training{
		newTraining("t1", "Rope Rescue", "2026-03-10", domain.StatusScheduled),
		newTraining("t2", "First Aid", "2026-03-01", domain.StatusOngoing),
		newTraining("t3", "Hazmat Awareness", "2026-01-15", domain.StatusCompleted),
	} {
		if err := store.Save(ctx, tr); err != nil {
			t.Fatal(err)
		}
	}

	open, err := store.List(ctx, ListFilter{Statuses: []string{domain.StatusScheduled, domain.StatusOngoing}, OngoingFirst: true})
	if err != nil {
		t.Fatal(err)
	}
	if len(open) != 2 || open[0].ID != "t2" || open[1].ID != "t1" {
		t.Errorf("open trainings = %+v", open)
	}

	upcoming, _ := store.List(ctx, ListFilter{EndsOnOrAfter: date("2026-03-05")})
	if len(upcoming) != 1 || upcoming[0].ID != "t1" {
		t.Errorf("upcoming trainings = %+v", upcoming)
	}

	found, _ := store.List(ctx, ListFilter{Search: "hazmat"})
	if len(found) != 1 || found[0].ID != "t3" {
		t.Errorf("search results = %+v", found)
	}

	counts, err := store.CountByStatus(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if counts[domain.StatusScheduled] != 1 || counts[domain.StatusCompleted] != 1 || counts[domain.StatusCancelled] != 0 {
		t.Errorf("CountByStatus() = %v", counts)
	}
}

// TestSQLiteStore_ListSummaries tests registration counts and the not-registered filter.
func TestSQLiteStore_ListSummaries(t *testing.T) {
	db := setupTestDB(t)
	store := NewSQLiteStore(db)
	ctx := context.Background()

	if err := store.Save(ctx, newTraining("t1", "Rope Rescue", "2026-03-10", domain.StatusCompleted)); err != nil {
		t.Fatal(err)
	}
	if err := store.Save(ctx, newTraining("t2", "First Aid", "2026-03-12", domain.StatusScheduled)); err != nil {
		t.Fatal(err)
	}
	mustExec(t, db, `INSERT INTO volunteers (id, first_name, last_name, email, created_at) VALUES
		('v1','Ana','Reyes','ana@example.com','2026-01-01'), ('v2','Ben','Cruz','ben@example.com','2026-01-01')`)
	mustExec(t, db, `INSERT INTO training_registrations (id, training_id, volunteer_id, registration_date, status, completion_status, employee_submitted) VALUES
		('r1','t1','v1','2026-02-01','registered','completed',0),
		('r2','t1','v2','2026-02-01','registered','completed',1),
		('r3','t2','v1','2026-02-01','cancelled','not_started',0)`)

	sums, err := store.ListSummaries(ctx, ListFilter{WithCompletionsToSubmit: true})
	if err != nil {
		t.Fatal(err)
	}
	if len(sums) != 1 || sums[0].Training.ID != "t1" {
		t.Fatalf("summaries = %+v", sums)
	}
	if sums[0].RegisteredCount != 2 || sums[0].CompletedCount != 2 || sums[0].PendingSubmit != 1 {
		t.Errorf("counts = %+v", sums[0])
	}

	avail, _ := store.List(ctx, ListFilter{NotRegisteredBy: "v1"})
	if len(avail) != 1 || avail[0].ID != "t2" {
		t.Errorf("a cancelled registration should not hide t2: %+v", avail)
	}
}

func mustExec(t *testing.T, db *sql.DB, query string) {
	t.Helper()
	if _, err := db.Exec(query); err != nil {
		t.Fatalf("exec failed: %v", err)
	}
}
