package certificate

import (
	"context"
	"database/sql"
	"fmt"

	"frsm/internal/adapters/storage"
	domain "frsm/internal/domain/certificate"
)

const certificateColumns = `c.id, c.registration_id, c.volunteer_id, c.training_id, c.certificate_number,
	c.issue_date, c.expiry_date, c.certificate_file, c.issued_by, c.issued_at, c.verified`

const recordColumns = certificateColumns + `,
	v.first_name, v.middle_name, v.last_name, v.email, v.contact_number, v.volunteer_status, v.user_id,
	t.title, t.training_date, t.training_end_date, t.instructor, t.duration_hours,
	TRIM(COALESCE(u.first_name, '') || ' ' || COALESCE(u.last_name, ''))`

const recordJoins = ` FROM training_certificates c
	JOIN volunteers v ON v.id = c.volunteer_id
	JOIN trainings t ON t.id = c.training_id
	LEFT JOIN account u ON u.id = c.issued_by`

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db storage.Querier
}

// NewSQLiteStore creates a new certificate store.
func NewSQLiteStore(db storage.Querier) *SQLiteStore {
	return &SQLiteStore{db: db}
}

// GetByID retrieves a Certificate by its ID.
// PRE: id is non-empty
// POST: Returns the entity or an error wrapping sql.ErrNoRows
func (s *SQLiteStore) GetByID(ctx context.Context, id string) (domain.Certificate, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+certificateColumns+" FROM training_certificates c WHERE c.id = ?", id)
	entity, err := scanCertificate(row.Scan)
	if err == sql.ErrNoRows {
		return domain.Certificate{}, fmt.Errorf("certificate not found: %w", err)
	}
	return entity, err
}

// GetByRegistrationID retrieves the Certificate issued for a registration.
// PRE: registrationID is non-empty
// POST: Returns the entity or an error wrapping sql.ErrNoRows
func (s *SQLiteStore) GetByRegistrationID(ctx context.Context, registrationID string) (domain.Certificate, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+certificateColumns+" FROM training_certificates c WHERE c.registration_id = ?", registrationID)
	entity, err := scanCertificate(row.Scan)
	if err == sql.ErrNoRows {
		return domain.Certificate{}, fmt.Errorf("certificate not found: %w", err)
	}
	return entity, err
}

// NumberExists reports whether a certificate number is already taken.
func (s *SQLiteStore) NumberExists(ctx context.Context, number string) (bool, error) {
	var n int
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM training_certificates WHERE certificate_number = ?", number).Scan(&n)
	return n > 0, err
}

// Save persists a Certificate (insert or update).
// PRE: entity has been validated
// POST: Entity is persisted
func (s *SQLiteStore) Save(ctx context.Context, c domain.Certificate) error {
	_, err := s.db.ExecContext(ctx, `INSERT INTO training_certificates (
			id, registration_id, volunteer_id, training_id, certificate_number, issue_date, expiry_date,
			certificate_file, issued_by, issued_at, verified)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			certificate_number=excluded.certificate_number, issue_date=excluded.issue_date,
			expiry_date=excluded.expiry_date, certificate_file=excluded.certificate_file,
			issued_by=excluded.issued_by, issued_at=excluded.issued_at, verified=excluded.verified`,
		c.ID, c.RegistrationID, c.VolunteerID, c.TrainingID, c.Number,
		c.IssueDate.Format(storage.DateLayout), storage.NullableDate(c.ExpiryDate),
		c.File, storage.NullableString(c.IssuedBy), storage.FormatTime(c.IssuedAt), storage.BoolToInt(c.Verified),
	)
	if err != nil {
		return fmt.Errorf("save certificate %s: %w", c.ID, err)
	}
	return nil
}

// ListRecords retrieves joined certificate records.
// PRE: filter has valid parameters
// POST: Returns matching records in the requested order
func (s *SQLiteStore) ListRecords(ctx context.Context, filter ListFilter) ([]Record, error) {
	where := buildWhere(filter)
	query := "SELECT " + recordColumns + recordJoins + where.SQL() + order(filter.OrderBy)
	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d OFFSET %d", filter.Limit, filter.Offset)
	}

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

// GetRecord retrieves one joined certificate record.
// PRE: id is non-empty
// POST: Returns the record or an error wrapping sql.ErrNoRows
func (s *SQLiteStore) GetRecord(ctx context.Context, id string) (Record, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+recordColumns+recordJoins+" WHERE c.id = ?", id)
	rec, err := scanRecord(row.Scan)
	if err == sql.ErrNoRows {
		return Record{}, fmt.Errorf("certificate not found: %w", err)
	}
	return rec, err
}

// Count returns the number of certificates matching the filter.
// PRE: filter has valid parameters
// POST: Returns count >= 0
func (s *SQLiteStore) Count(ctx context.Context, filter ListFilter) (int, error) {
	where := buildWhere(filter)
	var n int
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*)"+recordJoins+where.SQL(), where.Args()...).Scan(&n)
	return n, err
}

func buildWhere(filter ListFilter) *storage.Where {
	where := &storage.Where{}
	if filter.VolunteerID != "" {
		where.Add("c.volunteer_id = ?", filter.VolunteerID)
	}
	if filter.TrainingID != "" {
		where.Add("c.training_id = ?", filter.TrainingID)
	}
	if !filter.ExpiryFrom.IsZero() {
		where.Add("c.expiry_date >= ?", filter.ExpiryFrom.Format(storage.DateLayout))
	}
	if !filter.ExpiryTo.IsZero() {
		where.Add("c.expiry_date <= ?", filter.ExpiryTo.Format(storage.DateLayout))
	}
	if !filter.NoExpiryOrAfter.IsZero() {
		where.Add("(c.expiry_date IS NULL OR c.expiry_date >= ?)", filter.NoExpiryOrAfter.Format(storage.DateLayout))
	}
	where.AddSearch(filter.Search,
		"v.first_name", "v.last_name", "v.first_name || ' ' || v.last_name", "v.email", "t.title", "c.certificate_number")
	return where
}

func order(o string) string {
	switch o {
	case OrderExpiryAsc:
		return " ORDER BY c.expiry_date IS NULL, c.expiry_date ASC, c.id"
	case OrderExpiryDesc:
		return " ORDER BY c.expiry_date DESC, c.id"
	}
	return " ORDER BY c.issued_at DESC, c.id"
}

// scanCertificate extracts a Certificate from a row scanner function.
func scanCertificate(scan func(dest ...any) error) (domain.Certificate, error) {
	var c domain.Certificate
	dest, finish := certificateDest(&c)
	if err := scan(dest...); err != nil {
		return domain.Certificate{}, err
	}
	finish()
	return c, nil
}

func certificateDest(c *domain.Certificate) ([]any, func()) {
	var issueDate, expiryDate, issuedBy, issuedAt sql.NullString
	var verified int
	dest := []any{
		&c.ID, &c.RegistrationID, &c.VolunteerID, &c.TrainingID, &c.Number,
		&issueDate, &expiryDate, &c.File, &issuedBy, &issuedAt, &verified,
	}
	return dest, func() {
		c.IssueDate = storage.ParseDate("issue_date", issueDate)
		c.ExpiryDate = storage.ParseDate("expiry_date", expiryDate)
		c.IssuedBy = issuedBy.String
		c.IssuedAt = storage.ParseTime("issued_at", issuedAt)
		c.Verified = verified == 1
	}
}

// scanRecord extracts a joined Record from a row scanner function.
func scanRecord(scan func(dest ...any) error) (Record, error) {
	var rec Record
	dest, finish := certificateDest(&rec.Certificate)
	var userID, tDate, tEnd sql.NullString
	dest = append(dest,
		&rec.VolunteerFirstName, &rec.VolunteerMiddleName, &rec.VolunteerLastName, &rec.VolunteerEmail,
		&rec.VolunteerContact, &rec.VolunteerStatus, &userID,
		&rec.TrainingTitle, &tDate, &tEnd, &rec.TrainingInstructor, &rec.DurationHours,
		&rec.IssuedByName,
	)
	if err := scan(dest...); err != nil {
		return Record{}, err
	}
	finish()
	rec.VolunteerUserID = userID.String
	rec.TrainingDate = storage.ParseDate("training_date", tDate)
	rec.TrainingEndDate = storage.ParseDate("training_end_date", tEnd)
	return rec, nil
}
