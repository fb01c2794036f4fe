package orchestrators

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"frsm/internal/domain/account"
)

// demoAccount is one login created by ExecuteSeedDemoAccounts.
type demoAccount struct {
	FirstName string
	LastName  string
	Email     string
	Role      string
}

// DemoPassword is shared by every demo login.
const DemoPassword = "Rescue+demo2026!"

func demoAccounts() []demoAccount {
	return []demoAccount{
		{FirstName: "Ada", LastName: "Lim", Email: "admin@frsm.local", Role: account.RoleAdmin},
		{FirstName: "Ellen", LastName: "Ramos", Email: "employee@frsm.local", Role: account.RoleEmployee},
		{FirstName: "Ana", LastName: "Reyes", Email: "volunteer@frsm.local", Role: account.RoleUser},
		{FirstName: "Ben", LastName: "Cruz", Email: "volunteer2@frsm.local", Role: account.RoleUser},
	}
}

// ExecuteSeedDemoAccounts creates one login per role, plus a second volunteer,
// skipping any whose e-mail already exists.
// PRE: Database is migrated
// POST: Every demo login exists; volunteers have approved profiles. Returns the number created.
func ExecuteSeedDemoAccounts(ctx context.Context, deps CreateAccountDeps) (int, error) {
	created := 0
	for _, def := range demoAccounts() {
		_, err := ExecuteCreateAccount(ctx, CreateAccountInput{
			FirstName: def.FirstName,
			LastName:  def.LastName,
			Email:     def.Email,
			Password:  DemoPassword,
			Role:      def.Role,
		}, deps)
		if errors.Is(err, ErrEmailAlreadyExists) {
			continue
		}
		if err != nil {
			return created, fmt.Errorf("seed demo account %s: %w", def.Email, err)
		}
		created++
	}
	if created > 0 {
		slog.Info("seed_event", "event", "demo_accounts_seeded", "created", created)
	}
	return created, nil
}
