package projections

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	_ "modernc.org/sqlite"

	"frsm/internal/adapters/storage"
	certificateStore "frsm/internal/adapters/storage/certificate"
	registrationStore "frsm/internal/adapters/storage/registration"
	trainingStore "frsm/internal/adapters/storage/training"
	volunteerStore "frsm/internal/adapters/storage/volunteer"
	"frsm/internal/application/listutil"
	"frsm/internal/domain/account"
	"frsm/internal/domain/certificate"
	"frsm/internal/domain/registration"
)

var today = time.Date(2026, 4, 10, 0, 0, 0, 0, time.UTC)

// setupTrainingDB seeds two volunteers, five trainings and a spread of registrations:
//
//	r-open   v1 t-future   registered
//	r-run    v2 t-running  in_progress
//	r-done   v1 t-done     completed, verified, submitted, certified (c-done)
//	r-wait   v2 t-done     completed, verified, awaiting certificate
//	r-old    v1 t-old      completed, certified (c-old, expired)
//	r-gone   v2 t-future   cancelled
func setupTrainingDB(t *testing.T) *sql.DB {
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
			('emp','Ellen','Ramos','ellen@frsm.local','employee','2026-01-01'),
			('usr1','Ana','Reyes','ana@example.com','user','2026-01-01'),
			('usr2','Ben','Cruz','ben@example.com','user','2026-01-01')`,
		`INSERT INTO volunteers (id, user_id, first_name, last_name, email, application_status, volunteer_status, created_at) VALUES
			('v1','usr1','Ana','Reyes','ana@example.com','approved','Active','2026-01-01'),
			('v2','usr2','Ben','Cruz','ben@example.com','approved','New Volunteer','2026-01-01'),
			('v3',NULL,'Cy','Dela','cy@example.com','pending','New Volunteer','2026-01-01')`,
		`INSERT INTO trainings (id, title, training_date, training_end_date, max_participants, current_participants, status, created_at, updated_at) VALUES
			('t-future','Water Rescue','2026-05-01',NULL,10,1,'scheduled','2026-01-01','2026-01-01'),
			('t-open','Incident Command','2026-06-01',NULL,0,0,'scheduled','2026-01-01','2026-01-01'),
			('t-running','Hazmat Awareness','2026-04-09','2026-04-12',5,1,'ongoing','2026-01-01','2026-01-01'),
			('t-done','Rope Rescue','2026-03-01',NULL,0,2,'completed','2026-01-01','2026-01-01'),
			('t-old','Basic Life Support','2025-03-01',NULL,0,1,'completed','2025-01-01','2025-01-01')`,
		`INSERT INTO training_registrations (id, training_id, volunteer_id, registration_date, status, completion_status,
				completion_verified, completion_verified_at, employee_submitted, admin_approved, admin_approved_at, certificate_issued) VALUES
			('r-open','t-future','v1','2026-04-01','registered','not_started',0,NULL,0,1,'2026-04-01 08:00:00',0),
			('r-run','t-running','v2','2026-04-02','registered','in_progress',0,NULL,0,0,NULL,0),
			('r-done','t-done','v1','2026-02-01','completed','completed',1,'2026-03-03 10:00:00',1,1,'2026-03-05 10:00:00',1),
			('r-wait','t-done','v2','2026-02-02','registered','completed',1,'2026-03-04 10:00:00',1,0,NULL,0),
			('r-old','t-old','v1','2025-02-01','completed','completed',1,'2025-03-03 10:00:00',1,1,'2025-03-05 10:00:00',1),
			('r-gone','t-future','v2','2026-04-03','cancelled','not_started',0,NULL,0,0,NULL,0)`,
		`INSERT INTO training_certificates (id, registration_id, volunteer_id, training_id, certificate_number, issue_date, expiry_date, issued_by, issued_at, verified) VALUES
			('c-done','r-done','v1','t-done','CERT-20260305-0001','2026-03-05','2027-03-05','adm','2026-03-05 10:00:00',1),
			('c-old','r-old','v1','t-old','CERT-20250305-0001','2025-03-05','2026-03-05','adm','2025-03-05 10:00:00',1)`,
	}
	for _, q := range seed {
		if _, err := db.Exec(q); err != nil {
			t.Fatalf("seed failed: %v", err)
		}
	}
	return db
}

func viewDeps(db *sql.DB) VolunteerViewDeps {
	return VolunteerViewDeps{
		Volunteers:    volunteerStore.NewSQLiteStore(db),
		Trainings:     trainingStore.NewSQLiteStore(db),
		Registrations: registrationStore.NewSQLiteStore(db),
		Certificates:  certificateStore.NewSQLiteStore(db),
	}
}

func TestQueryVolunteerTrainings(t *testing.T) {
	db := setupTrainingDB(t)
	res, err := QueryVolunteerTrainings(context.Background(), VolunteerTrainingsQuery{UserID: "usr1", Today: today}, viewDeps(db))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var available []string
	for _, tr := range res.Available {
		available = append(available, tr.ID)
	}
	want := []string{"t-running", "t-open"}
	if len(available) != len(want) || available[0] != want[0] || available[1] != want[1] {
		t.Errorf("available = %v, want %v", available, want)
	}
	if res.StatusWarning != "" {
		t.Errorf("active volunteer should have no warning, got %q", res.StatusWarning)
	}

	actions := map[string][2]bool{}
	for _, r := range res.Registrations {
		actions[r.Registration.ID] = [2]bool{r.CanCancel, r.CanComplete}
	}
	if got := actions["r-open"]; got != [2]bool{true, false} {
		t.Errorf("r-open cancel/complete = %v", got)
	}
	if got := actions["r-done"]; got != [2]bool{false, false} {
		t.Errorf("r-done cancel/complete = %v", got)
	}
	if len(res.Registrations) != 3 {
		t.Errorf("registrations = %d, want 3", len(res.Registrations))
	}

	newcomer, err := QueryVolunteerTrainings(context.Background(), VolunteerTrainingsQuery{UserID: "usr2", Today: today}, viewDeps(db))
	if err != nil {
		t.Fatal(err)
	}
	if newcomer.StatusWarning == "" {
		t.Error("new volunteer should see a status warning")
	}
	for _, tr := range newcomer.Available {
		if tr.ID == "t-running" {
			t.Error("t-running is already registered by v2")
		}
	}
	// r-gone was cancelled and must not show up as "Registered".
	for _, r := range newcomer.Registrations {
		if r.Registration.ID == "r-gone" {
			t.Errorf("cancelled registration listed with label %q", r.Label)
		}
	}
	if len(newcomer.Registrations) != 2 {
		t.Errorf("usr2 registrations = %d, want 2", len(newcomer.Registrations))
	}

	_, err = QueryVolunteerTrainings(context.Background(), VolunteerTrainingsQuery{UserID: "adm", Today: today}, viewDeps(db))
	if !errors.Is(err, sql.ErrNoRows) {
		t.Errorf("account without profile: err = %v", err)
	}
}

func TestQueryCertificationStatusAndRecords(t *testing.T) {
	db := setupTrainingDB(t)
	ctx := context.Background()

	status, err := QueryCertificationStatus(ctx, CertificationStatusQuery{UserID: "usr1", Today: today}, viewDeps(db))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if status.Stats != (CertificationStats{Total: 2, Valid: 1, Expired: 1}) {
		t.Errorf("stats = %+v", status.Stats)
	}
	if status.Certificates[0].Certificate.ID != "c-old" || status.Certificates[0].Bucket != certificate.ExpiryExpired {
		t.Errorf("first certificate = %+v", status.Certificates[0])
	}

	records, err := QueryVolunteerRecords(ctx, "usr2", today, viewDeps(db))
	if err != nil {
		t.Fatal(err)
	}
	want := VolunteerRecordStats{Completed: 1, InProgress: 1, PendingVerification: 1}
	if records.Stats != want {
		t.Errorf("usr2 stats = %+v, want %+v", records.Stats, want)
	}
	for _, r := range records.Records {
		if !r.Registration.IsActive() {
			t.Errorf("records include cancelled registration %s", r.Registration.ID)
		}
	}
	pending, err := QueryCertificationStatus(ctx, CertificationStatusQuery{UserID: "usr2", Today: today}, viewDeps(db))
	if err != nil {
		t.Fatal(err)
	}
	if len(pending.Pending) != 1 || pending.Pending[0].Registration.ID != "r-wait" {
		t.Errorf("pending completions = %+v", pending.Pending)
	}
}

func TestQueryExpiryTracking(t *testing.T) {
	db := setupTrainingDB(t)
	deps := ExpiryTrackingDeps{Certificates: certificateStore.NewSQLiteStore(db)}
	ctx := context.Background()

	all, err := QueryExpiryTracking(ctx, ExpiryTrackingQuery{Today: today}, deps)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(all.Rows) != 2 || all.Rows[0].Days != -36 {
		t.Errorf("rows = %+v", all.Rows)
	}
	if all.Stats != (ExpiryStats{Total: 2, Expired: 1, ValidOver: 1}) {
		t.Errorf("stats = %+v", all.Stats)
	}
	if len(all.RecentlyExpired) != 1 || len(all.Upcoming) != 0 {
		t.Errorf("panels: expired %d, upcoming %d", len(all.RecentlyExpired), len(all.Upcoming))
	}

	valid, err := QueryExpiryTracking(ctx, ExpiryTrackingQuery{Filter: certificate.ExpiryValid, Today: today}, deps)
	if err != nil {
		t.Fatal(err)
	}
	if len(valid.Rows) != 1 || valid.Rows[0].Certificate.ID != "c-done" || valid.Rows[0].Bucket != certificate.ExpiryValid {
		t.Errorf("valid rows = %+v", valid.Rows)
	}

	if _, err := QueryExpiryTracking(ctx, ExpiryTrackingQuery{Filter: "soon", Today: today}, deps); !errors.Is(err, certificate.ErrInvalidFilter) {
		t.Errorf("bad filter: err = %v", err)
	}
}

func TestQueryTrainingRecords(t *testing.T) {
	db := setupTrainingDB(t)
	deps := TrainingRecordsDeps{Registrations: registrationStore.NewSQLiteStore(db)}

	res, err := QueryTrainingRecords(context.Background(), TrainingRecordsQuery{Page: listutil.PageParams{Page: 1, PerPage: 10}}, deps)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := RecordStats{Total: 6, Certified: 2, Completed: 1, InProgress: 1, Registered: 1, Cancelled: 1}
	if res.Stats != want {
		t.Errorf("stats = %+v, want %+v", res.Stats, want)
	}
	if len(res.Records) != 6 || res.Records[0].Registration.ID != "r-gone" {
		t.Errorf("records should be newest first, got %d starting %s", len(res.Records), res.Records[0].Registration.ID)
	}

	cancelled, err := QueryTrainingRecords(context.Background(), TrainingRecordsQuery{Status: registrationStore.StageCancelled}, deps)
	if err != nil {
		t.Fatal(err)
	}
	if len(cancelled.Records) != 1 || cancelled.Page.Total != 1 {
		t.Errorf("cancelled = %+v", cancelled.Records)
	}
}

func TestQueryAssignAndApprovals(t *testing.T) {
	db := setupTrainingDB(t)
	ctx := context.Background()
	deps := viewDeps(db)

	page, err := QueryAssignPage(ctx, today, AssignPageDeps{Trainings: deps.Trainings, Registrations: deps.Registrations, Volunteers: deps.Volunteers})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if page.Stats != (AssignPageStats{Volunteers: 2, AvailableTrainings: 3, Assignments: 1}) {
		t.Errorf("stats = %+v", page.Stats)
	}
	for _, tr := range page.Trainings {
		if tr.Training.ID == "t-running" && tr.AvailableSlots != 4 {
			t.Errorf("t-running slots = %d, want 4", tr.AvailableSlots)
		}
		if tr.Training.ID == "t-open" && tr.AvailableSlots != -1 {
			t.Errorf("t-open slots = %d, want unlimited", tr.AvailableSlots)
		}
	}

	approvals, err := QueryPendingApprovals(ctx, PendingApprovalsQuery{}, PendingApprovalsDeps{Trainings: deps.Trainings, Registrations: deps.Registrations})
	if err != nil {
		t.Fatal(err)
	}
	if len(approvals.Pending) != 1 || approvals.Pending[0].Registration.ID != "r-wait" {
		t.Errorf("pending = %+v", approvals.Pending)
	}
	if approvals.Counts != (ApprovalCounts{Completed: 3, Verified: 1, Certified: 2}) {
		t.Errorf("counts = %+v", approvals.Counts)
	}

	filtered, _ := QueryPendingApprovals(ctx, PendingApprovalsQuery{Search: "nobody"}, PendingApprovalsDeps{Trainings: deps.Trainings, Registrations: deps.Registrations})
	if len(filtered.Pending) != 0 {
		t.Errorf("search should filter out everything, got %d", len(filtered.Pending))
	}
}

func TestQueryTrainingParticipants(t *testing.T) {
	db := setupTrainingDB(t)
	regs := registrationStore.NewSQLiteStore(db)

	parts, err := QueryTrainingParticipants(context.Background(), "t-done", regs)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	labels := map[string]string{}
	for _, p := range parts {
		labels[p.Registration.ID] = p.Label
	}
	if labels["r-done"] != registration.LabelCertified || labels["r-wait"] != registration.LabelPendingApproval {
		t.Errorf("labels = %v", labels)
	}

	future, _ := QueryTrainingParticipants(context.Background(), "t-future", regs)
	if len(future) != 1 {
		t.Errorf("cancelled registrations must not be listed: %d", len(future))
	}

	completed, _ := QueryTrainingVolunteers(context.Background(), "t-done", regs)
	if len(completed) != 2 {
		t.Errorf("completed volunteers = %d, want 2", len(completed))
	}
}

func TestQueryCertificateDetail_Access(t *testing.T) {
	db := setupTrainingDB(t)
	certs := certificateStore.NewSQLiteStore(db)
	ctx := context.Background()

	tests := []struct {
		name    string
		viewer  Viewer
		wantErr error
	}{
		{"admin", Viewer{AccountID: "adm", Role: account.RoleAdmin}, nil},
		{"owner", Viewer{AccountID: "usr1", Role: account.RoleUser}, nil},
		{"other volunteer", Viewer{AccountID: "usr2", Role: account.RoleUser}, ErrForbidden},
		{"employee", Viewer{AccountID: "emp", Role: account.RoleEmployee}, ErrForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, err := QueryCertificateDetail(ctx, "c-done", tt.viewer, today, certs)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("err = %v, want %v", err, tt.wantErr)
			}
			if err == nil && (d.Number != "CERT-20260305-0001" || d.IssuedBy != "Ada Lim" || d.DaysUntilExpiry == nil || *d.DaysUntilExpiry != 329) {
				t.Errorf("detail = %+v", d)
			}
		})
	}

	detail, err := QueryRegistrationDetail(ctx, "r-done", registrationStore.NewSQLiteStore(db))
	if err != nil {
		t.Fatal(err)
	}
	if detail.CertificateNumber != "CERT-20260305-0001" || detail.Label != registration.LabelCertified || detail.VolunteerName != "Ana Reyes" {
		t.Errorf("registration detail = %+v", detail)
	}
}
