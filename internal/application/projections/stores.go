package projections

import (
	"context"

	certificateStore "frsm/internal/adapters/storage/certificate"
	registrationStore "frsm/internal/adapters/storage/registration"
	trainingStore "frsm/internal/adapters/storage/training"
	volunteerStore "frsm/internal/adapters/storage/volunteer"
	"frsm/internal/domain/notification"
	"frsm/internal/domain/training"
	"frsm/internal/domain/volunteer"
)

// TrainingReader is the training store surface used by queries.
type TrainingReader interface {
	GetByID(ctx context.Context, id string) (training.Training, error)
	List(ctx context.Context, filter trainingStore.ListFilter) ([]training.Training, error)
	ListSummaries(ctx context.Context, filter trainingStore.ListFilter) ([]trainingStore.Summary, error)
	CountByStatus(ctx context.Context) (map[string]int, error)
}

// RegistrationReader is the registration store surface used by queries.
type RegistrationReader interface {
	ListRecords(ctx context.Context, filter registrationStore.ListFilter) ([]registrationStore.Record, error)
	GetRecord(ctx context.Context, id string) (registrationStore.Record, error)
	Count(ctx context.Context, filter registrationStore.ListFilter) (int, error)
}

// CertificateReader is the certificate store surface used by queries.
type CertificateReader interface {
	ListRecords(ctx context.Context, filter certificateStore.ListFilter) ([]certificateStore.Record, error)
	GetRecord(ctx context.Context, id string) (certificateStore.Record, error)
	Count(ctx context.Context, filter certificateStore.ListFilter) (int, error)
}

// VolunteerReader is the volunteer store surface used by queries.
type VolunteerReader interface {
	GetByUserID(ctx context.Context, userID string) (volunteer.Volunteer, error)
	List(ctx context.Context, filter volunteerStore.ListFilter) ([]volunteer.Volunteer, error)
	TrainingCounts(ctx context.Context, volunteerID string) (volunteerStore.TrainingCounts, error)
}

// NotificationReader is the notification store surface used by queries.
type NotificationReader interface {
	ListByUser(ctx context.Context, userID string, limit int) ([]notification.Notification, error)
	CountUnread(ctx context.Context, userID string) (int, error)
}
