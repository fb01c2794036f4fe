package registration

import (
	"context"
	"database/sql"
	"fmt"

	"frsm/internal/adapters/storage"
	domain "frsm/internal/domain/registration"
)

const registrationColumns = `r.id, r.training_id, r.volunteer_id, r.registration_date, r.status,
	r.completion_status, r.completion_date, r.completion_notes, r.completion_proof,
	r.completion_verified, r.completion_verified_by, r.completion_verified_at,
	r.employee_submitted, r.employee_submitted_by, r.employee_submitted_at,
	r.admin_approved, r.admin_approved_by, r.admin_approved_at,
	r.certificate_issued, r.certificate_issued_at`

const recordColumns = registrationColumns + `,
	t.title, t.status, t.training_date, t.training_end_date, t.instructor, t.location, t.duration_hours,
	v.first_name, v.middle_name, v.last_name, v.email, v.contact_number, v.volunteer_status, v.user_id,
	TRIM(COALESCE(uv.first_name, '') || ' ' || COALESCE(uv.last_name, '')),
	TRIM(COALESCE(us.first_name, '') || ' ' || COALESCE(us.last_name, '')),
	TRIM(COALESCE(ua.first_name, '') || ' ' || COALESCE(ua.last_name, '')),
	c.id, c.certificate_number, c.expiry_date`

const recordJoins = ` FROM training_registrations r
	JOIN trainings t ON t.id = r.training_id
	JOIN volunteers v ON v.id = r.volunteer_id
	LEFT JOIN account uv ON uv.id = r.completion_verified_by
	LEFT JOIN account us ON us.id = r.employee_submitted_by
	LEFT JOIN account ua ON ua.id = r.admin_approved_by
	LEFT JOIN training_certificates c ON c.registration_id = r.id`

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db storage.Querier
}

// NewSQLiteStore creates a new registration store.
func NewSQLiteStore(db storage.Querier) *SQLiteStore {
	return &SQLiteStore{db: db}
}

// GetByID retrieves a Registration by its ID.
// PRE: id is non-empty
// POST: Returns the entity or an error wrapping sql.ErrNoRows
func (s *SQLiteStore) GetByID(ctx context.Context, id string) (domain.Registration, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+registrationColumns+" FROM training_registrations r WHERE r.id = ?", id)
	entity, err := scanRegistration(row.Scan)
	if err == sql.ErrNoRows {
		return domain.Registration{}, fmt.Errorf("registration not found: %w", err)
	}
	return entity, err
}

// GetByTrainingAndVolunteer retrieves the registration (active or cancelled) of a volunteer for a training.
// PRE: both ids are non-empty
// POST: Returns the entity or an error wrapping sql.ErrNoRows
func (s *SQLiteStore) GetByTrainingAndVolunteer(ctx context.Context, trainingID, volunteerID string) (domain.Registration, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+registrationColumns+
		" FROM training_registrations r WHERE r.training_id = ? AND r.volunteer_id = ?", trainingID, volunteerID)
	entity, err := scanRegistration(row.Scan)
	if err == sql.ErrNoRows {
		return domain.Registration{}, fmt.Errorf("registration not found: %w", err)
	}
	return entity, err
}

// Save persists a Registration (insert or update).
// PRE: entity has been validated
// POST: Entity is persisted
func (s *SQLiteStore) Save(ctx context.Context, r domain.Registration) error {
	_, err := s.db.ExecContext(ctx, `INSERT INTO training_registrations (
			id, training_id, volunteer_id, registration_date, status, completion_status, completion_date,
			completion_notes, completion_proof,
			completion_verified, completion_verified_by, completion_verified_at,
			employee_submitted, employee_submitted_by, employee_submitted_at,
			admin_approved, admin_approved_by, admin_approved_at,
			certificate_issued, certificate_issued_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			registration_date=excluded.registration_date, status=excluded.status,
			completion_status=excluded.completion_status, completion_date=excluded.completion_date,
			completion_notes=excluded.completion_notes, completion_proof=excluded.completion_proof,
			completion_verified=excluded.completion_verified, completion_verified_by=excluded.completion_verified_by,
			completion_verified_at=excluded.completion_verified_at,
			employee_submitted=excluded.employee_submitted, employee_submitted_by=excluded.employee_submitted_by,
			employee_submitted_at=excluded.employee_submitted_at,
			admin_approved=excluded.admin_approved, admin_approved_by=excluded.admin_approved_by,
			admin_approved_at=excluded.admin_approved_at,
			certificate_issued=excluded.certificate_issued, certificate_issued_at=excluded.certificate_issued_at`,
		r.ID, r.TrainingID, r.VolunteerID, storage.FormatTime(r.RegistrationDate), r.Status,
		r.CompletionStatus, storage.NullableTime(r.CompletionDate), r.CompletionNotes, r.CompletionProof,
		storage.BoolToInt(r.CompletionVerified), storage.NullableString(r.CompletionVerifiedBy), storage.NullableTime(r.CompletionVerifiedAt),
		storage.BoolToInt(r.EmployeeSubmitted), storage.NullableString(r.EmployeeSubmittedBy), storage.NullableTime(r.EmployeeSubmittedAt),
		storage.BoolToInt(r.AdminApproved), storage.NullableString(r.AdminApprovedBy), storage.NullableTime(r.AdminApprovedAt),
		storage.BoolToInt(r.CertificateIssued), storage.NullableTime(r.CertificateIssuedAt),
	)
	if err != nil {
		return fmt.Errorf("save registration %s: %w", r.ID, err)
	}
	return nil
}

// List retrieves Registrations based on the filter.
// PRE: filter has valid parameters
// POST: Returns matching entities
func (s *SQLiteStore) List(ctx context.Context, filter ListFilter) ([]domain.Registration, error) {
	where := buildWhere(filter, false)
	query := "SELECT " + registrationColumns + " FROM training_registrations r" + where.SQL() +
		" ORDER BY r.registration_date ASC" + limitClause(filter)

	rows, err := s.db.QueryContext(ctx, query, where.Args()...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []domain.Registration
	for rows.Next() {
		entity, err := scanRegistration(rows.Scan)
		if err != nil {
			return nil, err
		}
		results = append(results, entity)
	}
	return results, rows.Err()
}

// ListRecords retrieves joined registration records.
// PRE: filter has valid parameters
// POST: Returns matching records in the requested order
func (s *SQLiteStore) ListRecords(ctx context.Context, filter ListFilter) ([]Record, error) {
	where := buildWhere(filter, true)
	query := "SELECT " + recordColumns + recordJoins + where.SQL() + recordOrder(filter.OrderBy) + limitClause(filter)

	rows, err := s.db.QueryContext(ctx, query, where.Args()...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []Record
	for rows.Next() {
		rec, err := scanRecord(rows.Scan)
		if err != nil {
			return nil, err
		}
		results = append(results, rec)
	}
	return results, rows.Err()
}

// GetRecord retrieves one joined record by registration ID.
// PRE: id is non-empty
// POST: Returns the record or an error wrapping sql.ErrNoRows
func (s *SQLiteStore) GetRecord(ctx context.Context, id string) (Record, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+recordColumns+recordJoins+" WHERE r.id = ?", id)
	rec, err := scanRecord(row.Scan)
	if err == sql.ErrNoRows {
		return Record{}, fmt.Errorf("registration not found: %w", err)
	}
	return rec, err
}

// Count returns the number of registrations matching the filter.
// PRE: filter has valid parameters
// POST: Returns count >= 0
func (s *SQLiteStore) Count(ctx context.Context, filter ListFilter) (int, error) {
	where := buildWhere(filter, true)
	var n int
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*)"+recordJoins+where.SQL(), where.Args()...).Scan(&n)
	return n, err
}

func buildWhere(filter ListFilter, joined bool) *storage.Where {
	where := &storage.Where{}
	if filter.TrainingID != "" {
		where.Add("r.training_id = ?", filter.TrainingID)
	}
	where.AddIn("r.training_id", filter.TrainingIDs)
	if filter.VolunteerID != "" {
		where.Add("r.volunteer_id = ?", filter.VolunteerID)
	}
	if filter.CompletionStatus != "" {
		where.Add("r.completion_status = ?", filter.CompletionStatus)
	}
	if cond := stageCondition(filter.Stage); cond != "" {
		where.Add(cond)
	}
	if joined {
		where.AddSearch(filter.Search,
			"v.first_name", "v.last_name", "v.first_name || ' ' || v.last_name", "v.email", "t.title")
	}
	return where
}

func stageCondition(stage string) string {
	switch stage {
	case StageCertified:
		return "r.certificate_issued = 1"
	case StageCompleted:
		return "r.status != 'cancelled' AND r.completion_status = 'completed' AND r.certificate_issued = 0"
	case StageInProgress:
		return "r.status != 'cancelled' AND r.completion_status = 'in_progress'"
	case StageRegistered:
		return "r.status = 'registered' AND r.completion_status = 'not_started'"
	case StageCancelled:
		return "r.status = 'cancelled'"
	case StageAwaitingCertificate:
		return "r.status != 'cancelled' AND r.completion_status = 'completed' AND r.completion_verified = 1 AND r.certificate_issued = 0"
	case StageSubmittable:
		return "r.status != 'cancelled' AND r.completion_status = 'completed' AND r.completion_verified = 1 AND r.employee_submitted = 0"
	case StageCompletedAny:
		return "r.status != 'cancelled' AND r.completion_status = 'completed'"
	case StageActive:
		return "r.status != 'cancelled'"
	case StageAssigned:
		return "r.admin_approved = 1 AND r.admin_approved_at IS NOT NULL AND r.certificate_issued = 0 AND r.status != 'cancelled'"
	}
	return ""
}

func recordOrder(order string) string {
	switch order {
	case OrderVerifiedDesc:
		return " ORDER BY r.completion_verified_at DESC, r.id"
	case OrderApprovedDesc:
		return " ORDER BY r.admin_approved_at DESC, r.id"
	case OrderVolunteerName:
		return " ORDER BY v.last_name, v.first_name, r.id"
	}
	return " ORDER BY r.registration_date DESC, r.id"
}

func limitClause(filter ListFilter) string {
	if filter.Limit <= 0 {
		return ""
	}
	return fmt.Sprintf(" LIMIT %d OFFSET %d", filter.Limit, filter.Offset)
}

// scanRegistration extracts a Registration from a row scanner function.
func scanRegistration(scan func(dest ...any) error) (domain.Registration, error) {
	var r domain.Registration
	dest, finish := registrationDest(&r)
	if err := scan(dest...); err != nil {
		return domain.Registration{}, err
	}
	finish()
	return r, nil
}

// registrationDest returns scan targets for registrationColumns and a func that
// copies nullable columns into r once the scan succeeded.
func registrationDest(r *domain.Registration) ([]any, func()) {
	var regDate, complDate, verifiedAt, submittedAt, approvedAt, issuedAt sql.NullString
	var verifiedBy, submittedBy, approvedBy sql.NullString
	var verified, submitted, approved, issued int

	dest := []any{
		&r.ID, &r.TrainingID, &r.VolunteerID, &regDate, &r.Status,
		&r.CompletionStatus, &complDate, &r.CompletionNotes, &r.CompletionProof,
		&verified, &verifiedBy, &verifiedAt,
		&submitted, &submittedBy, &submittedAt,
		&approved, &approvedBy, &approvedAt,
		&issued, &issuedAt,
	}
	finish := func() {
		r.RegistrationDate = storage.ParseTime("registration_date", regDate)
		r.CompletionDate = storage.ParseTime("completion_date", complDate)
		r.CompletionVerified = verified == 1
		r.CompletionVerifiedBy = verifiedBy.String
		r.CompletionVerifiedAt = storage.ParseTime("completion_verified_at", verifiedAt)
		r.EmployeeSubmitted = submitted == 1
		r.EmployeeSubmittedBy = submittedBy.String
		r.EmployeeSubmittedAt = storage.ParseTime("employee_submitted_at", submittedAt)
		r.AdminApproved = approved == 1
		r.AdminApprovedBy = approvedBy.String
		r.AdminApprovedAt = storage.ParseTime("admin_approved_at", approvedAt)
		r.CertificateIssued = issued == 1
		r.CertificateIssuedAt = storage.ParseTime("certificate_issued_at", issuedAt)
	}
	return dest, finish
}

// scanRecord extracts a joined Record from a row scanner function.
func scanRecord(scan func(dest ...any) error) (Record, error) {
	var rec Record
	dest, finish := registrationDest(&rec.Registration)

	var tDate, tEnd, userID, certID, certNumber, certExpiry sql.NullString
	dest = append(dest,
		&rec.TrainingTitle, &rec.TrainingStatus, &tDate, &tEnd, &rec.TrainingInstructor, &rec.TrainingLocation, &rec.DurationHours,
		&rec.VolunteerFirstName, &rec.VolunteerMiddleName, &rec.VolunteerLastName, &rec.VolunteerEmail,
		&rec.VolunteerContact, &rec.VolunteerStatus, &userID,
		&rec.VerifiedByName, &rec.SubmittedByName, &rec.ApprovedByName,
		&certID, &certNumber, &certExpiry,
	)
	if err := scan(dest...); err != nil {
		return Record{}, err
	}
	finish()
	rec.TrainingDate = storage.ParseDate("training_date", tDate)
	rec.TrainingEndDate = storage.ParseDate("training_end_date", tEnd)
	rec.VolunteerUserID = userID.String
	rec.CertificateID = certID.String
	rec.CertificateNumber = certNumber.String
	rec.CertificateExpiry = storage.ParseDate("expiry_date", certExpiry)
	return rec, nil
}
