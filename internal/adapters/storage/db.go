package storage

import (
	"database/sql"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"
)

// migration is one forward-only schema step.
type migration struct {
	Version int
	Name    string
	SQL     string
}

// migrations are applied in order. Never edit a released migration; append a new one.
var migrations = []migration{
	{Version: 1, Name: "core schema", SQL: schemaV1},
	{Version: 2, Name: "outbox", SQL: schemaV2},
	{Version: 3, Name: "listing indexes", SQL: schemaV3},
	{Version: 4, Name: "outbox schedule", SQL: schemaV4},
}

const schemaV1 = `
CREATE TABLE IF NOT EXISTS account (
	id TEXT PRIMARY KEY,
	first_name TEXT NOT NULL DEFAULT '',
	last_name TEXT NOT NULL DEFAULT '',
	email TEXT NOT NULL UNIQUE,
	password_hash TEXT NOT NULL DEFAULT '',
	role TEXT NOT NULL,
	created_at TEXT NOT NULL,
	failed_logins INTEGER NOT NULL DEFAULT 0,
	locked_until TEXT
);

CREATE TABLE IF NOT EXISTS volunteers (
	id TEXT PRIMARY KEY,
	user_id TEXT REFERENCES account(id) ON DELETE SET NULL,
	first_name TEXT NOT NULL,
	middle_name TEXT NOT NULL DEFAULT '',
	last_name TEXT NOT NULL,
	email TEXT NOT NULL,
	contact_number TEXT NOT NULL DEFAULT '',
	application_status TEXT NOT NULL DEFAULT 'pending',
	volunteer_status TEXT NOT NULL DEFAULT 'New Volunteer',
	training_completion_status TEXT NOT NULL DEFAULT 'none',
	first_training_completed_at TEXT,
	active_since TEXT,
	created_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS trainings (
	id TEXT PRIMARY KEY,
	external_id TEXT UNIQUE,
	title TEXT NOT NULL,
	description TEXT NOT NULL DEFAULT '',
	training_date TEXT NOT NULL,
	training_end_date TEXT,
	duration_hours REAL NOT NULL DEFAULT 0,
	instructor TEXT NOT NULL DEFAULT '',
	location TEXT NOT NULL DEFAULT '',
	max_participants INTEGER NOT NULL DEFAULT 0,
	current_participants INTEGER NOT NULL DEFAULT 0,
	status TEXT NOT NULL DEFAULT 'scheduled',
	last_sync_at TEXT,
	created_at TEXT NOT NULL,
	updated_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS training_registrations (
	id TEXT PRIMARY KEY,
	training_id TEXT NOT NULL REFERENCES trainings(id) ON DELETE CASCADE,
	volunteer_id TEXT NOT NULL REFERENCES volunteers(id) ON DELETE CASCADE,
	registration_date TEXT NOT NULL,
	status TEXT NOT NULL DEFAULT 'registered',
	completion_status TEXT NOT NULL DEFAULT 'not_started',
	completion_date TEXT,
	completion_notes TEXT NOT NULL DEFAULT '',
	completion_proof TEXT NOT NULL DEFAULT '',
	completion_verified INTEGER NOT NULL DEFAULT 0,
	completion_verified_by TEXT,
	completion_verified_at TEXT,
	employee_submitted INTEGER NOT NULL DEFAULT 0,
	employee_submitted_by TEXT,
	employee_submitted_at TEXT,
	admin_approved INTEGER NOT NULL DEFAULT 0,
	admin_approved_by TEXT,
	admin_approved_at TEXT,
	certificate_issued INTEGER NOT NULL DEFAULT 0,
	certificate_issued_at TEXT,
	UNIQUE (training_id, volunteer_id)
);

CREATE TABLE IF NOT EXISTS training_certificates (
	id TEXT PRIMARY KEY,
	registration_id TEXT NOT NULL UNIQUE REFERENCES training_registrations(id) ON DELETE CASCADE,
	volunteer_id TEXT NOT NULL REFERENCES volunteers(id) ON DELETE CASCADE,
	training_id TEXT NOT NULL REFERENCES trainings(id) ON DELETE CASCADE,
	certificate_number TEXT NOT NULL UNIQUE,
	issue_date TEXT NOT NULL,
	expiry_date TEXT,
	certificate_file TEXT NOT NULL DEFAULT '',
	issued_by TEXT,
	issued_at TEXT NOT NULL,
	verified INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS notifications (
	id TEXT PRIMARY KEY,
	user_id TEXT NOT NULL REFERENCES account(id) ON DELETE CASCADE,
	type TEXT NOT NULL,
	title TEXT NOT NULL,
	message TEXT NOT NULL,
	is_read INTEGER NOT NULL DEFAULT 0,
	created_at TEXT NOT NULL
);
`

const schemaV2 = `
CREATE TABLE IF NOT EXISTS outbox (
	id TEXT PRIMARY KEY,
	action_type TEXT NOT NULL,
	payload TEXT NOT NULL,
	status TEXT NOT NULL DEFAULT 'pending',
	attempts INTEGER NOT NULL DEFAULT 0,
	max_attempts INTEGER NOT NULL DEFAULT 5,
	last_attempted_at TEXT NOT NULL DEFAULT '',
	created_at TEXT NOT NULL,
	external_id TEXT NOT NULL DEFAULT '',
	error_message TEXT NOT NULL DEFAULT ''
);
`

const schemaV3 = `
CREATE INDEX IF NOT EXISTS idx_registrations_volunteer ON training_registrations(volunteer_id);
CREATE INDEX IF NOT EXISTS idx_registrations_completion ON training_registrations(completion_status, completion_verified, employee_submitted);
CREATE INDEX IF NOT EXISTS idx_trainings_status_date ON trainings(status, training_date);
CREATE INDEX IF NOT EXISTS idx_certificates_expiry ON training_certificates(expiry_date);
CREATE INDEX IF NOT EXISTS idx_notifications_user ON notifications(user_id, is_read);
CREATE INDEX IF NOT EXISTS idx_outbox_status ON outbox(status, created_at);
`

// schemaV4 stores when a queued e-mail may next be tried, so the worker can
// select due rows instead of filtering in memory. Existing rows are due now.
const schemaV4 = `
ALTER TABLE outbox ADD COLUMN next_attempt_at TEXT NOT NULL DEFAULT '';
UPDATE outbox SET next_attempt_at = created_at WHERE status IN ('pending', 'retrying');
CREATE INDEX IF NOT EXISTS idx_outbox_due ON outbox(status, next_attempt_at);
`

// Open opens the SQLite file at path with WAL journaling, a busy timeout and
// foreign keys enforced, and checks that it is reachable. Transactions take the
// write lock when they begin, so concurrent read-then-write transactions queue
// on the busy timeout instead of failing with SQLITE_BUSY on lock upgrade.
// PRE: the sqlite driver is registered by the caller
// POST: Returns a pooled handle ready for MigrateDB
func Open(path string) (*sql.DB, error) {
	dsn := path + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(ON)&_pragma=synchronous(NORMAL)&_txlock=immediate"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(25)
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("database unreachable: %w", err)
	}
	return db, nil
}

// LatestSchemaVersion returns the version the binary expects.
func LatestSchemaVersion() int {
	return migrations[len(migrations)-1].Version
}

// SchemaVersion returns the version recorded in the database, or 0 for a fresh file.
// PRE: db is a valid database connection
// POST: Returns the highest applied migration version
func SchemaVersion(db *sql.DB) (int, error) {
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS schema_version (
		version INTEGER PRIMARY KEY,
		name TEXT NOT NULL,
		applied_at TEXT NOT NULL
	)`); err != nil {
		return 0, fmt.Errorf("failed to create schema_version: %w", err)
	}
	var v sql.NullInt64
	if err := db.QueryRow("SELECT MAX(version) FROM schema_version").Scan(&v); err != nil {
		return 0, fmt.Errorf("failed to read schema version: %w", err)
	}
	return int(v.Int64), nil
}

// MigrateDB applies all pending migrations, each in its own transaction.
// When dbPath names an existing file and migrations are pending, a copy is taken
// at dbPath + ".bak" first.
// PRE: db is a valid database connection
// POST: SchemaVersion(db) == LatestSchemaVersion()
func MigrateDB(db *sql.DB, dbPath string) error {
	current, err := SchemaVersion(db)
	if err != nil {
		return err
	}
	if current >= LatestSchemaVersion() {
		return nil
	}

	if dbPath != "" && current > 0 {
		if err := backupFile(dbPath, dbPath+".bak"); err != nil {
			return fmt.Errorf("failed to back up database before migration: %w", err)
		}
	}

	for _, m := range migrations {
		if m.Version <= current {
			continue
		}
		tx, err := db.Begin()
		if err != nil {
			return err
		}
		if _, err := tx.Exec(m.SQL); err != nil {
			tx.Rollback()
			return fmt.Errorf("migration %d (%s) failed: %w", m.Version, m.Name, err)
		}
		if _, err := tx.Exec("INSERT INTO schema_version (version, name, applied_at) VALUES (?, ?, ?)",
			m.Version, m.Name, time.Now().UTC().Format(time.RFC3339)); err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to record migration %d: %w", m.Version, err)
		}
		if err := tx.Commit(); err != nil {
			return err
		}
		slog.Info("schema_migrated", "version", m.Version, "name", m.Name)
	}
	return nil
}

func backupFile(src, dst string) error {
	in, err := os.Open(src)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
