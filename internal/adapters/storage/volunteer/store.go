package volunteer

import (
	"context"

	domain "frsm/internal/domain/volunteer"
)

// Store persists Volunteer state.
type Store interface {
	GetByID(ctx context.Context, id string) (domain.Volunteer, error)
	GetByUserID(ctx context.Context, userID string) (domain.Volunteer, error)
	GetByEmail(ctx context.Context, email string) (domain.Volunteer, error)
	Save(ctx context.Context, value domain.Volunteer) error
	List(ctx context.Context, filter ListFilter) ([]domain.Volunteer, error)
	TrainingCounts(ctx context.Context, volunteerID string) (TrainingCounts, error)
}

// ListFilter carries filtering parameters for List operations.
type ListFilter struct {
	ApplicationStatus string
	Status            string
	IDs               []string
	Search            string
	Limit             int
	Offset            int
}

// TrainingCounts summarises one volunteer's registrations and certificates.
type TrainingCounts struct {
	Registered   int
	InProgress   int
	Completed    int
	Certificates int
}
