package storage

import (
	"context"
	"database/sql"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"frsm/internal/adapters/http/perf"
)

// DefaultSlowQuery is the threshold above which a statement is logged at warn level.
const DefaultSlowQuery = 50 * time.Millisecond

// statementKeyLen bounds the statement text used to group timings.
const statementKeyLen = 72

// TimedDB wraps a *sql.DB, logging slow statements and recording every
// statement's duration in a perf.Collector. Statements run inside a
// transaction opened through BeginTx are not timed individually.
type TimedDB struct {
	db        *sql.DB
	collector *perf.Collector
	slow      time.Duration
}

var _ SQLDB = (*TimedDB)(nil)

// NewTimedDB wraps db. collector may be nil; slow <= 0 means DefaultSlowQuery.
func NewTimedDB(db *sql.DB, collector *perf.Collector, slow time.Duration) *TimedDB {
	if slow <= 0 {
		slow = DefaultSlowQuery
	}
	return &TimedDB{db: db, collector: collector, slow: slow}
}

// RawDB returns the wrapped handle.
func (t *TimedDB) RawDB() *sql.DB { return t.db }

// Close closes the wrapped handle.
func (t *TimedDB) Close() error { return t.db.Close() }

func (t *TimedDB) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	start := time.Now()
	res, err := t.db.ExecContext(ctx, query, args...)
	t.observe("exec", query, start, err)
	return res, err
}

func (t *TimedDB) QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	start := time.Now()
	rows, err := t.db.QueryContext(ctx, query, args...)
	t.observe("query", query, start, err)
	return rows, err
}

// QueryRowContext defers its error to Scan, so failures are not counted here.
func (t *TimedDB) QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row {
	start := time.Now()
	row := t.db.QueryRowContext(ctx, query, args...)
	t.observe("query_row", query, start, nil)
	return row
}

func (t *TimedDB) BeginTx(ctx context.Context, opts *sql.TxOptions) (*sql.Tx, error) {
	start := time.Now()
	tx, err := t.db.BeginTx(ctx, opts)
	t.observe("begin", "BEGIN", start, err)
	return tx, err
}

func (t *TimedDB) observe(op, query string, start time.Time, err error) {
	elapsed := time.Since(start)
	key := statementKey(query)

	switch {
	case err != nil:
		slog.Warn("db_event", "event", "statement_failed", "op", op, "statement", key, "error", err)
	case elapsed >= t.slow:
		slog.Warn("db_event", "event", "slow_statement", "op", op, "statement", key, "duration_ms", elapsed.Milliseconds())
	default:
		slog.Debug("db_event", "event", "statement", "op", op, "duration_us", elapsed.Microseconds())
	}

	if t.collector == nil {
		return
	}
	entry := perf.Entry{Kind: perf.KindQuery, Name: op + " " + key, Duration: elapsed, At: start}
	if err != nil {
		entry.Status = http.StatusInternalServerError
	}
	t.collector.Record(entry)
}

// statementKey collapses whitespace and truncates, so one statement written
// over several lines always groups under the same name.
func statementKey(query string) string {
	key := strings.Join(strings.Fields(query), " ")
	if len(key) > statementKeyLen {
		key = key[:statementKeyLen]
	}
	return key
}
