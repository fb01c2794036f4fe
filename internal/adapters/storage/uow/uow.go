// Package uow binds the SQLite stores to a single transaction.
package uow

import (
	"context"

	"frsm/internal/adapters/storage"
	accountStore "frsm/internal/adapters/storage/account"
	certificateStore "frsm/internal/adapters/storage/certificate"
	notificationStore "frsm/internal/adapters/storage/notification"
	outboxStore "frsm/internal/adapters/storage/outbox"
	registrationStore "frsm/internal/adapters/storage/registration"
	trainingStore "frsm/internal/adapters/storage/training"
	volunteerStore "frsm/internal/adapters/storage/volunteer"
	"frsm/internal/application/orchestrators"
)

// Bind returns the stores operating on q.
func Bind(q storage.Querier) orchestrators.TxStores {
	return orchestrators.TxStores{
		Trainings:     trainingStore.NewSQLiteStore(q),
		Registrations: registrationStore.NewSQLiteStore(q),
		Certificates:  certificateStore.NewSQLiteStore(q),
		Volunteers:    volunteerStore.NewSQLiteStore(q),
		Accounts:      accountStore.NewSQLiteStore(q),
		Notifications: notificationStore.NewSQLiteStore(q),
		Outbox:        outboxStore.NewSQLiteStore(q),
	}
}

// Runner returns a TxRunner that opens one transaction on db per call.
// PRE: db is non-nil
// POST: Writes commit when fn returns nil and roll back otherwise
func Runner(db storage.SQLDB) orchestrators.TxRunner {
	return func(ctx context.Context, fn func(s orchestrators.TxStores) error) error {
		return storage.RunInTx(ctx, db, func(q storage.Querier) error {
			return fn(Bind(q))
		})
	}
}
