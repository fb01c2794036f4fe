package outbox

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	"frsm/internal/adapters/storage"
	domain "frsm/internal/domain/outbox"
)

func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, storage.MigrateDB(db, ""))
	return db
}

func emailEntry(t *testing.T, id, to string, at time.Time) domain.Entry {
	t.Helper()
	e, err := domain.NewEmailEntry(id, domain.Email{To: to, Subject: "Certificate Issued"}, at)
	require.NoError(t, err)
	return e
}

func ids(entries []domain.Entry) []string {
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.ID
	}
	return out
}

func TestSQLiteStore_Lifecycle(t *testing.T) {
	store := NewSQLiteStore(setupTestDB(t))
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	pending := emailEntry(t, "e1", "a@b.c", now)
	failed := emailEntry(t, "e2", "d@e.f", now.Add(time.Second))
	failed.MaxAttempts = 1
	failed.Begin(now)
	failed.Fail(errors.New("smtp down"), domain.Backoff{Base: time.Minute, Max: time.Hour})
	done := emailEntry(t, "e3", "g@h.i", now.Add(-48*time.Hour))
	done.Succeed("msg-1")

	for _, e := range []domain.Entry{pending, failed, done} {
		require.NoError(t, store.Save(ctx, e), e.ID)
	}

	got, err := store.ListPending(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, []string{"e1"}, ids(got))

	gotFailed, err := store.ListFailed(ctx, 10)
	require.NoError(t, err)
	require.Len(t, gotFailed, 1)
	assert.Equal(t, "smtp down", gotFailed[0].ErrorMessage)
	assert.True(t, gotFailed[0].NextAttemptAt.IsZero())

	counts, err := store.CountByStatus(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[string]int{domain.StatusPending: 1, domain.StatusFailed: 1, domain.StatusDone: 1}, counts)

	n, err := store.PurgeDone(ctx, now.Add(-24*time.Hour))
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
	_, err = store.GetByID(ctx, "e3")
	assert.ErrorIs(t, err, sql.ErrNoRows)
}

func TestSQLiteStore_ListDue(t *testing.T) {
	store := NewSQLiteStore(setupTestDB(t))
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	backoff := domain.Backoff{Base: 30 * time.Second, Max: time.Hour}

	fresh := emailEntry(t, "fresh", "a@b.c", now.Add(-time.Minute))
	waiting := emailEntry(t, "waiting", "d@e.f", now.Add(-2*time.Minute))
	waiting.Begin(now.Add(-10 * time.Second))
	waiting.Fail(errors.New("timeout"), backoff) // next try 50s from now
	retry := emailEntry(t, "retry", "g@h.i", now.Add(-time.Hour))
	retry.Begin(now.Add(-500 * time.Millisecond))
	retry.Fail(errors.New("timeout"), domain.Backoff{Base: time.Millisecond, Max: time.Millisecond})
	for _, e := range []domain.Entry{fresh, waiting, retry} {
		require.NoError(t, store.Save(ctx, e))
	}

	due, err := store.ListDue(ctx, now, 10)
	require.NoError(t, err)
	assert.Equal(t, []string{"fresh", "retry"}, ids(due))

	due, err = store.ListDue(ctx, now.Add(time.Minute), 10)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"fresh", "waiting", "retry"}, ids(due))

	got, err := store.GetByID(ctx, "waiting")
	require.NoError(t, err)
	assert.True(t, got.NextAttemptAt.Equal(now.Add(50*time.Second)), "NextAttemptAt = %v", got.NextAttemptAt)
}
