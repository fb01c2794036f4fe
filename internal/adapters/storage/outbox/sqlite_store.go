package outbox

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"frsm/internal/adapters/storage"
	domain "frsm/internal/domain/outbox"
)

const entryColumns = `id, action_type, payload, status, attempts, max_attempts,
	last_attempted_at, next_attempt_at, created_at, external_id, error_message`

// dueLayout is fixed width so next_attempt_at compares correctly as text.
const dueLayout = "2006-01-02T15:04:05.000000000Z"

// open statuses still owe a delivery.
var openStatuses = []string{domain.StatusPending, domain.StatusRetrying}

// SQLiteStore implements Store on the outbox table.
type SQLiteStore struct {
	db storage.Querier
}

// NewSQLiteStore creates an outbox store.
func NewSQLiteStore(db storage.Querier) *SQLiteStore {
	return &SQLiteStore{db: db}
}

// GetByID loads one entry.
// POST: Returns the entry or an error wrapping sql.ErrNoRows
func (s *SQLiteStore) GetByID(ctx context.Context, id string) (domain.Entry, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+entryColumns+` FROM outbox WHERE id = ?`, id)
	e, err := scanEntry(row.Scan)
	if err == sql.ErrNoRows {
		return domain.Entry{}, fmt.Errorf("outbox entry %s not found: %w", id, err)
	}
	return e, err
}

// Save inserts or updates e. Only delivery state changes after insert.
func (s *SQLiteStore) Save(ctx context.Context, e domain.Entry) error {
	_, err := s.db.ExecContext(ctx, `INSERT INTO outbox (`+entryColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			status=excluded.status, attempts=excluded.attempts, max_attempts=excluded.max_attempts,
			last_attempted_at=excluded.last_attempted_at, next_attempt_at=excluded.next_attempt_at,
			external_id=excluded.external_id, error_message=excluded.error_message`,
		e.ID, e.ActionType, e.Payload, e.Status, e.Attempts, e.MaxAttempts,
		optionalTime(e.LastAttemptedAt), dueAt(e.NextAttemptAt), storage.FormatTime(e.CreatedAt),
		e.ExternalID, e.ErrorMessage,
	)
	if err != nil {
		return fmt.Errorf("save outbox entry %s: %w", e.ID, err)
	}
	return nil
}

// ListDue returns open entries whose next attempt is at or before now.
func (s *SQLiteStore) ListDue(ctx context.Context, now time.Time, limit int) ([]domain.Entry, error) {
	where := &storage.Where{}
	where.AddIn("status", openStatuses)
	where.Add("next_attempt_at != ''")
	where.Add("next_attempt_at <= ?", dueAt(now))
	return s.list(ctx, where, "next_attempt_at, created_at", limit)
}

// ListPending returns open entries regardless of schedule.
func (s *SQLiteStore) ListPending(ctx context.Context, limit int) ([]domain.Entry, error) {
	where := &storage.Where{}
	where.AddIn("status", openStatuses)
	return s.list(ctx, where, "created_at", limit)
}

// ListFailed returns entries that used up their attempts.
func (s *SQLiteStore) ListFailed(ctx context.Context, limit int) ([]domain.Entry, error) {
	where := &storage.Where{}
	where.Add("status = ?", domain.StatusFailed)
	where.Add("attempts >= max_attempts")
	return s.list(ctx, where, "last_attempted_at DESC", limit)
}

// CountByStatus returns the number of entries per status; absent statuses are omitted.
func (s *SQLiteStore) CountByStatus(ctx context.Context) (map[string]int, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT status, COUNT(*) FROM outbox GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("count outbox: %w", err)
	}
	defer rows.Close()

	counts := map[string]int{}
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

// PurgeDone deletes delivered entries created before cutoff.
func (s *SQLiteStore) PurgeDone(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM outbox WHERE status = ? AND created_at < ?`,
		domain.StatusDone, storage.FormatTime(cutoff))
	if err != nil {
		return 0, fmt.Errorf("purge outbox: %w", err)
	}
	return res.RowsAffected()
}

func (s *SQLiteStore) list(ctx context.Context, where *storage.Where, orderBy string, limit int) ([]domain.Entry, error) {
	query := `SELECT ` + entryColumns + ` FROM outbox` + where.SQL() + ` ORDER BY ` + orderBy + ` LIMIT ?`
	rows, err := s.db.QueryContext(ctx, query, append(where.Args(), limit)...)
	if err != nil {
		return nil, fmt.Errorf("list outbox: %w", err)
	}
	defer rows.Close()

	var out []domain.Entry
	for rows.Next() {
		e, err := scanEntry(rows.Scan)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// optionalTime stores the zero time as an empty string; the outbox time columns are NOT NULL.
func optionalTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return storage.FormatTime(t)
}

func dueAt(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(dueLayout)
}

func scanEntry(scan func(dest ...any) error) (domain.Entry, error) {
	var e domain.Entry
	var lastAttempted, nextAttempt, created sql.NullString
	if err := scan(&e.ID, &e.ActionType, &e.Payload, &e.Status, &e.Attempts, &e.MaxAttempts,
		&lastAttempted, &nextAttempt, &created, &e.ExternalID, &e.ErrorMessage); err != nil {
		return domain.Entry{}, err
	}
	e.LastAttemptedAt = storage.ParseTime("last_attempted_at", lastAttempted)
	e.NextAttemptAt = storage.ParseTime("next_attempt_at", nextAttempt)
	e.CreatedAt = storage.ParseTime("created_at", created)
	return e, nil
}
