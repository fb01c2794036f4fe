package volunteer

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"frsm/internal/adapters/storage"
	domain "frsm/internal/domain/volunteer"
)

const volunteerColumns = `id, user_id, first_name, middle_name, last_name, email, contact_number,
	application_status, volunteer_status, training_completion_status, first_training_completed_at,
	active_since, created_at`

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db storage.Querier
}

// NewSQLiteStore creates a new volunteer store.
func NewSQLiteStore(db storage.Querier) *SQLiteStore {
	return &SQLiteStore{db: db}
}

// GetByID retrieves a Volunteer by its ID.
// PRE: id is non-empty
// POST: Returns the entity or an error wrapping sql.ErrNoRows
func (s *SQLiteStore) GetByID(ctx context.Context, id string) (domain.Volunteer, error) {
	return s.getOne(ctx, "id = ?", id)
}

// GetByUserID retrieves the Volunteer linked to a login account.
// PRE: userID is non-empty
// POST: Returns the entity or an error wrapping sql.ErrNoRows
func (s *SQLiteStore) GetByUserID(ctx context.Context, userID string) (domain.Volunteer, error) {
	return s.getOne(ctx, "user_id = ?", userID)
}

// GetByEmail retrieves a Volunteer by email, ignoring case.
func (s *SQLiteStore) GetByEmail(ctx context.Context, email string) (domain.Volunteer, error) {
	return s.getOne(ctx, "LOWER(email) = ?", strings.ToLower(strings.TrimSpace(email)))
}

func (s *SQLiteStore) getOne(ctx context.Context, cond string, arg any) (domain.Volunteer, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+volunteerColumns+" FROM volunteers WHERE "+cond+" LIMIT 1", arg)
	v, err := scanVolunteer(row.Scan)
	if err == sql.ErrNoRows {
		return domain.Volunteer{}, fmt.Errorf("volunteer not found: %w", err)
	}
	return v, err
}

// Save persists a Volunteer (insert or update).
// PRE: entity has been validated
// POST: Entity is persisted
func (s *SQLiteStore) Save(ctx context.Context, v domain.Volunteer) error {
	_, err := s.db.ExecContext(ctx, `INSERT INTO volunteers (`+volunteerColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			user_id=excluded.user_id, first_name=excluded.first_name, middle_name=excluded.middle_name,
			last_name=excluded.last_name, email=excluded.email, contact_number=excluded.contact_number,
			application_status=excluded.application_status, volunteer_status=excluded.volunteer_status,
			training_completion_status=excluded.training_completion_status,
			first_training_completed_at=excluded.first_training_completed_at,
			active_since=excluded.active_since`,
		v.ID, storage.NullableString(v.UserID), v.FirstName, v.MiddleName, v.LastName, v.Email, v.ContactNumber,
		v.ApplicationStatus, v.Status, v.TrainingCompletionStatus, storage.NullableTime(v.FirstTrainingCompletedAt),
		storage.NullableDate(v.ActiveSince), storage.FormatTime(v.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("save volunteer %s: %w", v.ID, err)
	}
	return nil
}

// List retrieves Volunteers ordered by last then first name.
// PRE: filter has valid parameters
// POST: Returns matching entities
func (s *SQLiteStore) List(ctx context.Context, filter ListFilter) ([]domain.Volunteer, error) {
	where := &storage.Where{}
	if filter.ApplicationStatus != "" {
		where.Add("application_status = ?", filter.ApplicationStatus)
	}
	if filter.Status != "" {
		where.Add("volunteer_status = ?", filter.Status)
	}
	where.AddIn("id", filter.IDs)
	where.AddSearch(filter.Search, "first_name", "last_name", "first_name || ' ' || last_name", "email")

	query := "SELECT " + volunteerColumns + " FROM volunteers" + where.SQL() + " ORDER BY last_name, first_name, id"
	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d OFFSET %d", filter.Limit, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, where.Args()...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []domain.Volunteer
	for rows.Next() {
		v, err := scanVolunteer(rows.Scan)
		if err != nil {
			return nil, err
		}
		results = append(results, v)
	}
	return results, rows.Err()
}

// TrainingCounts summarises a volunteer's active registrations and issued certificates.
// PRE: volunteerID is non-empty
func (s *SQLiteStore) TrainingCounts(ctx context.Context, volunteerID string) (TrainingCounts, error) {
	var c TrainingCounts
	err := s.db.QueryRowContext(ctx, `SELECT
			COALESCE(SUM(CASE WHEN r.status != 'cancelled' THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN r.status != 'cancelled' AND r.completion_status = 'in_progress' THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN r.status != 'cancelled' AND r.completion_status = 'completed' THEN 1 ELSE 0 END), 0),
			(SELECT COUNT(*) FROM training_certificates c WHERE c.volunteer_id = ?)
		FROM training_registrations r WHERE r.volunteer_id = ?`, volunteerID, volunteerID,
	).Scan(&c.Registered, &c.InProgress, &c.Completed, &c.Certificates)
	return c, err
}

// scanVolunteer extracts a Volunteer from a row scanner function.
func scanVolunteer(scan func(dest ...any) error) (domain.Volunteer, error) {
	var v domain.Volunteer
	var userID, firstDone, activeSince, createdAt sql.NullString
	err := scan(
		&v.ID, &userID, &v.FirstName, &v.MiddleName, &v.LastName, &v.Email, &v.ContactNumber,
		&v.ApplicationStatus, &v.Status, &v.TrainingCompletionStatus, &firstDone,
		&activeSince, &createdAt,
	)
	if err != nil {
		return domain.Volunteer{}, err
	}
	v.UserID = userID.String
	v.FirstTrainingCompletedAt = storage.ParseTime("first_training_completed_at", firstDone)
	v.ActiveSince = storage.ParseDate("active_since", activeSince)
	v.CreatedAt = storage.ParseTime("created_at", createdAt)
	return v, nil
}
