package training

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"frsm/internal/adapters/storage"
	domain "frsm/internal/domain/training"
)

const trainingColumns = `t.id, t.external_id, t.title, t.description, t.training_date, t.training_end_date,
	t.duration_hours, t.instructor, t.location, t.max_participants, t.current_participants,
	t.status, t.last_sync_at, t.created_at, t.updated_at`

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db storage.Querier
}

// NewSQLiteStore creates a new training store.
func NewSQLiteStore(db storage.Querier) *SQLiteStore {
	return &SQLiteStore{db: db}
}

// GetByID retrieves a Training by its ID.
// PRE: id is non-empty
// POST: Returns the entity or an error wrapping sql.ErrNoRows
func (s *SQLiteStore) GetByID(ctx context.Context, id string) (domain.Training, error) {
	return s.getOne(ctx, "t.id = ?", id)
}

// GetByExternalID retrieves a Training by the id the sync API assigned to it.
// PRE: externalID is non-empty
// POST: Returns the entity or an error wrapping sql.ErrNoRows
func (s *SQLiteStore) GetByExternalID(ctx context.Context, externalID string) (domain.Training, error) {
	return s.getOne(ctx, "t.external_id = ?", externalID)
}

// GetByTitleAndDate retrieves a Training by its title and start date.
// PRE: title is non-empty
// POST: Returns the entity or an error wrapping sql.ErrNoRows
func (s *SQLiteStore) GetByTitleAndDate(ctx context.Context, title string, date time.Time) (domain.Training, error) {
	return s.getOne(ctx, "t.title = ? AND t.training_date = ?", title, date.Format(storage.DateLayout))
}

func (s *SQLiteStore) getOne(ctx context.Context, cond string, args ...any) (domain.Training, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+trainingColumns+" FROM trainings t WHERE "+cond+" LIMIT 1", args...)
	entity, err := scanTraining(row.Scan)
	if err == sql.ErrNoRows {
		return domain.Training{}, fmt.Errorf("training not found: %w", err)
	}
	return entity, err
}

// Save persists a Training (insert or update).
// PRE: entity has been validated
// POST: Entity is persisted
func (s *SQLiteStore) Save(ctx context.Context, t domain.Training) error {
	_, err := s.db.ExecContext(ctx, `INSERT INTO trainings (
			id, external_id, title, description, training_date, training_end_date, duration_hours,
			instructor, location, max_participants, current_participants, status, last_sync_at,
			created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			external_id=excluded.external_id, title=excluded.title, description=excluded.description,
			training_date=excluded.training_date, training_end_date=excluded.training_end_date,
			duration_hours=excluded.duration_hours, instructor=excluded.instructor,
			location=excluded.location, max_participants=excluded.max_participants,
			current_participants=excluded.current_participants, status=excluded.status,
			last_sync_at=excluded.last_sync_at, updated_at=excluded.updated_at`,
		t.ID,
		storage.NullableString(t.ExternalID),
		t.Title,
		t.Description,
		t.Date.Format(storage.DateLayout),
		storage.NullableDate(t.EndDate),
		t.DurationHours,
		t.Instructor,
		t.Location,
		t.MaxParticipants,
		t.CurrentParticipants,
		t.Status,
		storage.NullableTime(t.LastSyncAt),
		storage.FormatTime(t.CreatedAt),
		storage.FormatTime(t.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("save training %s: %w", t.ID, err)
	}
	return nil
}

// List retrieves Trainings based on the filter.
// PRE: filter has valid parameters
// POST: Returns matching entities ordered by start date
func (s *SQLiteStore) List(ctx context.Context, filter ListFilter) ([]domain.Training, error) {
	where := buildWhere(filter)
	query := "SELECT " + trainingColumns + " FROM trainings t" + where.SQL() + orderBy(filter) + limitClause(filter)

	rows, err := s.db.QueryContext(ctx, query, where.Args()...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []domain.Training
	for rows.Next() {
		entity, err := scanTraining(rows.Scan)
		if err != nil {
			return nil, err
		}
		results = append(results, entity)
	}
	return results, rows.Err()
}

// ListSummaries retrieves Trainings with registration counts.
// PRE: filter has valid parameters
// POST: Returns matching summaries ordered by start date
func (s *SQLiteStore) ListSummaries(ctx context.Context, filter ListFilter) ([]Summary, error) {
	where := buildWhere(filter)
	query := "SELECT " + trainingColumns + `,
		(SELECT COUNT(*) FROM training_registrations r WHERE r.training_id = t.id AND r.status != 'cancelled'),
		(SELECT COUNT(*) FROM training_registrations r WHERE r.training_id = t.id AND r.status != 'cancelled' AND r.completion_status = 'completed'),
		(SELECT COUNT(*) FROM training_registrations r WHERE r.training_id = t.id AND r.status != 'cancelled' AND r.completion_status = 'completed' AND r.employee_submitted = 0)
		FROM trainings t` + where.SQL() + orderBy(filter) + limitClause(filter)

	rows, err := s.db.QueryContext(ctx, query, where.Args()...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []Summary
	for rows.Next() {
		var sum Summary
		var err error
		sum.Training, err = scanTraining(func(dest ...any) error {
			return rows.Scan(append(dest, &sum.RegisteredCount, &sum.CompletedCount, &sum.PendingSubmit)...)
		})
		if err != nil {
			return nil, err
		}
		results = append(results, sum)
	}
	return results, rows.Err()
}

// CountByStatus returns the number of trainings per status.
// POST: Every known status is present in the map
func (s *SQLiteStore) CountByStatus(ctx context.Context) (map[string]int, error) {
	counts := make(map[string]int, len(domain.ValidStatuses))
	for _, st := range domain.ValidStatuses {
		counts[st] = 0
	}
	rows, err := s.db.QueryContext(ctx, "SELECT status, COUNT(*) FROM trainings GROUP BY status")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, err
		}
		counts[status] = n
	}
	return counts, rows.Err()
}

func buildWhere(filter ListFilter) *storage.Where {
	where := &storage.Where{}
	where.AddIn("t.status", filter.Statuses)
	if !filter.EndsOnOrAfter.IsZero() {
		d := filter.EndsOnOrAfter.Format(storage.DateLayout)
		where.Add("(t.training_date >= ? OR (t.training_end_date IS NOT NULL AND t.training_end_date >= ?))", d, d)
	}
	if filter.NotRegisteredBy != "" {
		where.Add(`NOT EXISTS (SELECT 1 FROM training_registrations r
			WHERE r.training_id = t.id AND r.volunteer_id = ? AND r.status != 'cancelled')`, filter.NotRegisteredBy)
	}
	if filter.WithCompletionsToSubmit {
		where.Add(`EXISTS (SELECT 1 FROM training_registrations r
			WHERE r.training_id = t.id AND r.status != 'cancelled'
			AND r.completion_status = 'completed' AND r.employee_submitted = 0)`)
	}
	where.AddSearch(filter.Search, "t.title", "t.description", "t.instructor", "t.location")
	return where
}

func orderBy(filter ListFilter) string {
	if filter.OngoingFirst {
		return " ORDER BY CASE t.status WHEN 'ongoing' THEN 0 WHEN 'scheduled' THEN 1 ELSE 2 END, t.training_date ASC, t.title ASC"
	}
	return " ORDER BY t.training_date ASC, t.title ASC"
}

func limitClause(filter ListFilter) string {
	if filter.Limit <= 0 {
		return ""
	}
	return fmt.Sprintf(" LIMIT %d OFFSET %d", filter.Limit, filter.Offset)
}

// scanTraining extracts a Training from a row scanner function.
func scanTraining(scan func(dest ...any) error) (domain.Training, error) {
	var t domain.Training
	var externalID sql.NullString
	var date, endDate, lastSync, createdAt, updatedAt sql.NullString
	err := scan(
		&t.ID, &externalID, &t.Title, &t.Description, &date, &endDate,
		&t.DurationHours, &t.Instructor, &t.Location, &t.MaxParticipants, &t.CurrentParticipants,
		&t.Status, &lastSync, &createdAt, &updatedAt,
	)
	if err != nil {
		return domain.Training{}, err
	}
	t.ExternalID = externalID.String
	t.Date = storage.ParseDate("training_date", date)
	t.EndDate = storage.ParseDate("training_end_date", endDate)
	t.LastSyncAt = storage.ParseTime("last_sync_at", lastSync)
	t.CreatedAt = storage.ParseTime("created_at", createdAt)
	t.UpdatedAt = storage.ParseTime("updated_at", updatedAt)
	return t, nil
}
