package notification

import (
	"context"

	domain "frsm/internal/domain/notification"
)

// Store persists in-app notifications.
type Store interface {
	Save(ctx context.Context, n domain.Notification) error
	ListByUser(ctx context.Context, userID string, limit int) ([]domain.Notification, error)
	CountUnread(ctx context.Context, userID string) (int, error)
	MarkRead(ctx context.Context, userID, id string) error
	MarkAllRead(ctx context.Context, userID string) error
}
