package notification

import (
	"context"
	"database/sql"
	"fmt"

	"frsm/internal/adapters/storage"
	domain "frsm/internal/domain/notification"
)

// ErrNotFound is returned when a notification does not exist for the user.
var ErrNotFound = fmt.Errorf("notification not found: %w", sql.ErrNoRows)

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db storage.Querier
}

// NewSQLiteStore creates a new notification store.
func NewSQLiteStore(db storage.Querier) *SQLiteStore {
	return &SQLiteStore{db: db}
}

// Save persists a notification (insert or update).
// PRE: n has been validated
// POST: Entity is persisted
func (s *SQLiteStore) Save(ctx context.Context, n domain.Notification) error {
	_, err := s.db.ExecContext(ctx, `INSERT INTO notifications (id, user_id, type, title, message, is_read, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET is_read=excluded.is_read`,
		n.ID, n.UserID, n.Type, n.Title, n.Message, storage.BoolToInt(n.IsRead), storage.FormatTime(n.CreatedAt))
	return err
}

// ListByUser returns a user's notifications, newest first.
// PRE: userID is non-empty; limit > 0
func (s *SQLiteStore) ListByUser(ctx context.Context, userID string, limit int) ([]domain.Notification, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, user_id, type, title, message, is_read, created_at
		FROM notifications WHERE user_id = ? ORDER BY created_at DESC, id DESC LIMIT ?`, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []domain.Notification
	for rows.Next() {
		var n domain.Notification
		var isRead int
		var createdAt sql.NullString
		if err := rows.Scan(&n.ID, &n.UserID, &n.Type, &n.Title, &n.Message, &isRead, &createdAt); err != nil {
			return nil, err
		}
		n.IsRead = isRead == 1
		n.CreatedAt = storage.ParseTime("created_at", createdAt)
		results = append(results, n)
	}
	return results, rows.Err()
}

// CountUnread returns the number of unread notifications for a user.
func (s *SQLiteStore) CountUnread(ctx context.Context, userID string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM notifications WHERE user_id = ? AND is_read = 0`, userID).Scan(&n)
	return n, err
}

// MarkRead flags one of the user's notifications as read.
// POST: Returns ErrNotFound when the notification does not belong to the user
func (s *SQLiteStore) MarkRead(ctx context.Context, userID, id string) error {
	res, err := s.db.ExecContext(ctx, `UPDATE notifications SET is_read = 1 WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

// MarkAllRead flags every notification of the user as read.
func (s *SQLiteStore) MarkAllRead(ctx context.Context, userID string) error {
	_, err := s.db.ExecContext(ctx, `UPDATE notifications SET is_read = 1 WHERE user_id = ? AND is_read = 0`, userID)
	return err
}
