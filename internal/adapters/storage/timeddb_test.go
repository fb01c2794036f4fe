package storage

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"testing"
	"time"

	_ "modernc.org/sqlite"

	"frsm/internal/adapters/http/perf"
)

func openTimedTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })
	if _, err := db.Exec("CREATE TABLE test (id TEXT PRIMARY KEY, val TEXT)"); err != nil {
		t.Fatalf("create table: %v", err)
	}
	return db
}

func TestTimedDB_RecordsStatements(t *testing.T) {
	collector := perf.NewCollector(100)
	tdb := NewTimedDB(openTimedTestDB(t), collector, 0)
	ctx := context.Background()

	if _, err := tdb.ExecContext(ctx, "INSERT INTO test (id, val) VALUES (?, ?)", "1", "hello"); err != nil {
		t.Fatalf("ExecContext: %v", err)
	}
	for range 2 {
		var val string
		err := tdb.QueryRowContext(ctx, `SELECT val
			FROM test
			WHERE id = ?`, "1").Scan(&val)
		if err != nil || val != "hello" {
			t.Fatalf("QueryRowContext = %q, %v", val, err)
		}
	}
	if _, err := tdb.ExecContext(ctx, "INSERT INTO missing_table VALUES (?)", 1); err == nil {
		t.Fatal("expected error from invalid SQL")
	}

	if got := collector.TotalRecorded(); got != 4 {
		t.Errorf("TotalRecorded = %d, want 4", got)
	}
	snap := collector.Snapshot(time.Now().Add(-time.Minute), 10)
	byName := map[string]perf.Stat{}
	for _, s := range snap.SlowestQueries {
		byName[s.Name] = s
	}
	if s := byName["query_row SELECT val FROM test WHERE id = ?"]; s.Count != 2 {
		t.Errorf("multi-line statement not grouped: %+v", snap.SlowestQueries)
	}
	if s := byName["exec INSERT INTO missing_table VALUES (?)"]; s.Errors != 1 {
		t.Errorf("failed statement not counted as error: %+v", s)
	}
}

func TestTimedDB_NilCollector(t *testing.T) {
	db := openTimedTestDB(t)
	tdb := NewTimedDB(db, nil, time.Second)

	if _, err := tdb.ExecContext(context.Background(), "INSERT INTO test (id, val) VALUES (?, ?)", "1", "x"); err != nil {
		t.Fatalf("ExecContext with nil collector: %v", err)
	}
	if tdb.RawDB() != db {
		t.Error("RawDB() should return the wrapped *sql.DB")
	}
	if tdb.slow != time.Second {
		t.Errorf("slow = %v", tdb.slow)
	}
	if NewTimedDB(db, nil, 0).slow != DefaultSlowQuery {
		t.Error("zero threshold should fall back to DefaultSlowQuery")
	}
}

func TestRunInTx_RollbackOnError(t *testing.T) {
	tdb := NewTimedDB(openTimedTestDB(t), nil, 0)
	ctx := context.Background()
	boom := errors.New("boom")

	err := RunInTx(ctx, tdb, func(q Querier) error {
		if _, err := q.ExecContext(ctx, "INSERT INTO test (id, val) VALUES ('a', 'x')"); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("RunInTx() = %v, want boom", err)
	}

	if err := RunInTx(ctx, tdb, func(q Querier) error {
		_, err := q.ExecContext(ctx, "INSERT INTO test (id, val) VALUES ('b', 'y')")
		return err
	}); err != nil {
		t.Fatalf("RunInTx() commit: %v", err)
	}

	var n int
	tdb.QueryRowContext(ctx, "SELECT COUNT(*) FROM test").Scan(&n)
	if n != 1 {
		t.Errorf("rows = %d, want 1", n)
	}
}

func TestStatementKey(t *testing.T) {
	long := "SELECT " + strings.Repeat("x, ", 40) + "y FROM t"
	if got := statementKey(long); len(got) != statementKeyLen {
		t.Errorf("len(statementKey(long)) = %d, want %d", len(got), statementKeyLen)
	}
	if got := statementKey("SELECT 1\n\t FROM  t"); got != "SELECT 1 FROM t" {
		t.Errorf("statementKey() = %q", got)
	}
}

func BenchmarkTimedDB_Overhead(b *testing.B) {
	db, _ := sql.Open("sqlite", ":memory:")
	defer db.Close()
	db.SetMaxOpenConns(1)
	db.Exec("CREATE TABLE bench (id INTEGER PRIMARY KEY, val TEXT)")
	db.Exec("INSERT INTO bench VALUES (1, 'x')")
	ctx := context.Background()

	b.Run("sql.DB", func(b *testing.B) {
		for b.Loop() {
			var v string
			db.QueryRowContext(ctx, "SELECT val FROM bench WHERE id = 1").Scan(&v)
		}
	})
	tdb := NewTimedDB(db, perf.NewCollector(perf.DefaultRingSize), 0)
	b.Run("TimedDB", func(b *testing.B) {
		for b.Loop() {
			var v string
			tdb.QueryRowContext(ctx, "SELECT val FROM bench WHERE id = 1").Scan(&v)
		}
	})
}
