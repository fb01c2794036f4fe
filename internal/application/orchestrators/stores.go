package orchestrators

import (
	"context"
	"time"

	accountStore "frsm/internal/adapters/storage/account"
	registrationStore "frsm/internal/adapters/storage/registration"
	trainingStore "frsm/internal/adapters/storage/training"
	"frsm/internal/domain/account"
	"frsm/internal/domain/certificate"
	"frsm/internal/domain/notification"
	"frsm/internal/domain/outbox"
	"frsm/internal/domain/registration"
	"frsm/internal/domain/training"
	"frsm/internal/domain/volunteer"
)

// TrainingStoreForOrchestrator defines the training store surface used by commands.
type TrainingStoreForOrchestrator interface {
	GetByID(ctx context.Context, id string) (training.Training, error)
	GetByExternalID(ctx context.Context, externalID string) (training.Training, error)
	GetByTitleAndDate(ctx context.Context, title string, date time.Time) (training.Training, error)
	Save(ctx context.Context, t training.Training) error
	List(ctx context.Context, filter trainingStore.ListFilter) ([]training.Training, error)
}

// RegistrationStoreForOrchestrator defines the registration store surface used by commands.
type RegistrationStoreForOrchestrator interface {
	GetByID(ctx context.Context, id string) (registration.Registration, error)
	GetByTrainingAndVolunteer(ctx context.Context, trainingID, volunteerID string) (registration.Registration, error)
	Save(ctx context.Context, r registration.Registration) error
	List(ctx context.Context, filter registrationStore.ListFilter) ([]registration.Registration, error)
}

// CertificateStoreForOrchestrator defines the certificate store surface used by commands.
type CertificateStoreForOrchestrator interface {
	NumberExists(ctx context.Context, number string) (bool, error)
	Save(ctx context.Context, c certificate.Certificate) error
}

// VolunteerStoreForOrchestrator defines the volunteer store surface used by commands.
type VolunteerStoreForOrchestrator interface {
	GetByID(ctx context.Context, id string) (volunteer.Volunteer, error)
	GetByUserID(ctx context.Context, userID string) (volunteer.Volunteer, error)
	GetByEmail(ctx context.Context, email string) (volunteer.Volunteer, error)
	Save(ctx context.Context, v volunteer.Volunteer) error
}

// AccountStoreForOrchestrator defines the account store surface used by commands.
type AccountStoreForOrchestrator interface {
	GetByID(ctx context.Context, id string) (account.Account, error)
	GetByEmail(ctx context.Context, email string) (account.Account, error)
	List(ctx context.Context, filter accountStore.ListFilter) ([]account.Account, error)
	Save(ctx context.Context, a account.Account) error
	Count(ctx context.Context) (int, error)
}

// NotificationStoreForOrchestrator persists in-app notifications.
type NotificationStoreForOrchestrator interface {
	Save(ctx context.Context, n notification.Notification) error
}

// OutboxStoreForOrchestrator enqueues outbox entries.
type OutboxStoreForOrchestrator interface {
	Save(ctx context.Context, e outbox.Entry) error
}

// TxStores are the stores bound to one database transaction.
type TxStores struct {
	Trainings     TrainingStoreForOrchestrator
	Registrations RegistrationStoreForOrchestrator
	Certificates  CertificateStoreForOrchestrator
	Volunteers    VolunteerStoreForOrchestrator
	Accounts      AccountStoreForOrchestrator
	Notifications NotificationStoreForOrchestrator
	Outbox        OutboxStoreForOrchestrator
}

// TxRunner runs fn inside one transaction: every write made through the
// TxStores commits when fn returns nil and rolls back otherwise.
type TxRunner func(ctx context.Context, fn func(s TxStores) error) error
