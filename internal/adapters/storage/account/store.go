// Package account stores login accounts.
package account

import (
	"context"

	domain "frsm/internal/domain/account"
)

// Store is the account repository used by sign-in, account creation and notification fan-out.
type Store interface {
	GetByID(ctx context.Context, id string) (domain.Account, error)
	GetByEmail(ctx context.Context, email string) (domain.Account, error)
	Save(ctx context.Context, a domain.Account) error
	List(ctx context.Context, filter ListFilter) ([]domain.Account, error)
	Count(ctx context.Context) (int, error)
}

// ListFilter narrows List. An empty Roles matches every role; Limit 0 is unbounded.
type ListFilter struct {
	Roles  []string
	Limit  int
	Offset int
}
