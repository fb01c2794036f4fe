package training

import (
	"context"
	"time"

	domain "frsm/internal/domain/training"
)

// Store persists Training state.
type Store interface {
	GetByID(ctx context.Context, id string) (domain.Training, error)
	GetByExternalID(ctx context.Context, externalID string) (domain.Training, error)
	GetByTitleAndDate(ctx context.Context, title string, date time.Time) (domain.Training, error)
	Save(ctx context.Context, value domain.Training) error
	List(ctx context.Context, filter ListFilter) ([]domain.Training, error)
	ListSummaries(ctx context.Context, filter ListFilter) ([]Summary, error)
	CountByStatus(ctx context.Context) (map[string]int, error)
}

// ListFilter carries filtering parameters for List operations.
type ListFilter struct {
	Statuses []string
	// EndsOnOrAfter keeps trainings whose start or end date is on or after this day.
	EndsOnOrAfter time.Time
	// NotRegisteredBy excludes trainings the volunteer holds an active registration for.
	NotRegisteredBy string
	// WithCompletionsToSubmit keeps trainings with completed registrations not yet submitted.
	WithCompletionsToSubmit bool
	Search                  string
	OngoingFirst            bool
	Limit                   int
	Offset                  int
}

// Summary is a training with its registration counts.
type Summary struct {
	Training        domain.Training
	RegisteredCount int
	CompletedCount  int
	PendingSubmit   int
}
