package orchestrators

import (
	"context"
	"fmt"
	"html"
	"log/slog"
	"strings"
	"time"

	accountStore "frsm/internal/adapters/storage/account"
	"frsm/internal/domain/account"
	"frsm/internal/domain/notification"
	"frsm/internal/domain/outbox"
)

// notifier stores notifications and queues their e-mail copies within one transaction.
type notifier struct {
	stores     TxStores
	generateID func() string
	now        func() time.Time
}

// send stores n for the recipient and enqueues an e-mail when an address is known.
// PRE: n.UserID is set
// POST: Notification persisted; outbox entry persisted when email is non-empty
func (nt notifier) send(ctx context.Context, n notification.Notification, email string) error {
	n.ID = nt.generateID()
	n.CreatedAt = nt.now()
	if err := n.Validate(); err != nil {
		return err
	}
	if err := nt.stores.Notifications.Save(ctx, n); err != nil {
		return fmt.Errorf("save notification: %w", err)
	}
	if strings.TrimSpace(email) == "" {
		return nil
	}

	entry, err := outbox.NewEmailEntry(nt.generateID(), outbox.Email{
		To:      email,
		Subject: n.Title,
		HTML:    "<p>" + html.EscapeString(n.Message) + "</p>",
		Kind:    n.Type,
	}, n.CreatedAt)
	if err != nil {
		return err
	}
	if err := nt.stores.Outbox.Save(ctx, entry); err != nil {
		return fmt.Errorf("enqueue notification email: %w", err)
	}
	slog.Info("notification_event", "event", "notification_sent", "user_id", n.UserID, "type", n.Type)
	return nil
}

// staff returns the accounts with one of the given roles.
func (nt notifier) staff(ctx context.Context, roles ...string) ([]account.Account, error) {
	return nt.stores.Accounts.List(ctx, accountStore.ListFilter{Roles: roles})
}

// firstStaff returns the earliest account with one of the given roles, or false when none exists.
func (nt notifier) firstStaff(ctx context.Context, roles ...string) (account.Account, bool, error) {
	list, err := nt.stores.Accounts.List(ctx, accountStore.ListFilter{Roles: roles, Limit: 1})
	if err != nil || len(list) == 0 {
		return account.Account{}, false, err
	}
	return list[0], true, nil
}
