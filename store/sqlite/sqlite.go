/*
Package sqlite provides a SQLite-backed implementation of the storage interfaces.

PURPOSE:
  Implements every persistence collaborator of the timesheet service on a
  single SQLite database. The same schema ports to PostgreSQL with minor
  dialect changes.

INTERFACES IMPLEMENTED:
  timesheet.Gateway:          Entry persistence
  timesheet.AssignmentSource: Planned work
  timesheet.LockRunStore:     Payroll lockdown runs
  access.Directory:           Actors, roles, supervised sites
  payroll.VariableStore:      Pay variables
  payroll.FormulaStore:       Pay formulas

KEY TABLES:
  entries:        One row per (worker, site, day), UNIQUE on that triple
  pay_variables:  Typed amounts attached to entries (cascade on delete)
  pay_formulas:   Formula definitions, parameters as JSON
  actors:         Users with their role
  actor_sites:    Sites a supervisor is responsible for
  assignments:    Planned days of work
  lock_runs:      One row per month the lockdown job has processed

CONCURRENCY:
  Uses sync.RWMutex for thread-safety and a single connection, so that
  ":memory:" databases are shared by every call.

USAGE:
  store, err := sqlite.New("./data/timesheets.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

  svc := timesheet.NewService(store, store, policy)

MIGRATION:
  Schema is auto-migrated on New().

SEE ALSO:
  - timesheet/store.go: Interface definitions
  - timesheet/store/memory.go: In-memory implementation for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"sync"
	"time"

	"github.com/mattn/go-sqlite3"
	"github.com/pkg/errors"
)

// Store implements all storage interfaces using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, errors.Wrap(err, "open database")
	}
	db.SetMaxOpenConns(1)

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "migrate database")
	}
	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping checks the connection, for readiness probes.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS entries (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		worker_id INTEGER NOT NULL,
		site_id INTEGER NOT NULL,
		entry_date TEXT NOT NULL,
		normal_minutes INTEGER NOT NULL DEFAULT 0,
		overtime_minutes INTEGER NOT NULL DEFAULT 0,
		status TEXT NOT NULL,
		note TEXT NOT NULL DEFAULT '',
		signature TEXT,
		signed_at TEXT,
		validator_id INTEGER,
		validated_at TEXT,
		rejection_reason TEXT,
		assignment_id INTEGER,
		created_by INTEGER NOT NULL,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL,
		UNIQUE (worker_id, site_id, entry_date)
	);

	CREATE INDEX IF NOT EXISTS idx_entries_date ON entries(entry_date);
	CREATE INDEX IF NOT EXISTS idx_entries_worker_date ON entries(worker_id, entry_date);
	CREATE INDEX IF NOT EXISTS idx_entries_status ON entries(status);

	CREATE TABLE IF NOT EXISTS pay_variables (
		id TEXT PRIMARY KEY,
		entry_id INTEGER NOT NULL REFERENCES entries(id) ON DELETE CASCADE,
		var_type TEXT NOT NULL,
		value TEXT NOT NULL,
		var_date TEXT NOT NULL,
		note TEXT NOT NULL DEFAULT '',
		formula_id TEXT,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_pay_variables_entry ON pay_variables(entry_id, var_date);

	CREATE TABLE IF NOT EXISTS pay_formulas (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		category TEXT NOT NULL,
		variable_type TEXT NOT NULL,
		expression TEXT NOT NULL,
		parameters_json TEXT NOT NULL DEFAULT '{}',
		active INTEGER NOT NULL DEFAULT 1,
		created_by INTEGER NOT NULL,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS actors (
		id INTEGER PRIMARY KEY,
		name TEXT NOT NULL,
		role TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS actor_sites (
		actor_id INTEGER NOT NULL REFERENCES actors(id) ON DELETE CASCADE,
		site_id INTEGER NOT NULL,
		PRIMARY KEY (actor_id, site_id)
	);

	CREATE TABLE IF NOT EXISTS assignments (
		id INTEGER PRIMARY KEY,
		worker_id INTEGER NOT NULL,
		site_id INTEGER NOT NULL,
		work_date TEXT NOT NULL,
		planned_minutes INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS lock_runs (
		year INTEGER NOT NULL,
		month INTEGER NOT NULL,
		lockdown_date TEXT NOT NULL,
		pending INTEGER NOT NULL,
		ran_at TEXT NOT NULL,
		PRIMARY KEY (year, month)
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Reset clears all data (for testing).
func (s *Store) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, table := range []string{"pay_variables", "entries", "pay_formulas", "actor_sites", "actors", "assignments", "lock_runs"} {
		if _, err := s.db.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return errors.Wrapf(err, "reset %s", table)
		}
	}
	return nil
}

// =============================================================================
// HELPERS
// =============================================================================

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

type scanner interface {
	Scan(dest ...any) error
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) time.Time {
	t, _ := time.Parse(time.RFC3339Nano, s)
	return t
}

func nullTime(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: formatTime(*t), Valid: true}
}

func timePtr(ns sql.NullString) *time.Time {
	if !ns.Valid {
		return nil
	}
	t := parseTime(ns.String)
	return &t
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func stringPtr(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	v := ns.String
	return &v
}

func nullInt(i *int64) sql.NullInt64 {
	if i == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *i, Valid: true}
}

func intPtr(ni sql.NullInt64) *int64 {
	if !ni.Valid {
		return nil
	}
	v := ni.Int64
	return &v
}

func isUniqueConstraintError(err error) bool {
	var se sqlite3.Error
	return errors.As(err, &se) && se.ExtendedCode == sqlite3.ErrConstraintUnique
}

func isForeignKeyError(err error) bool {
	var se sqlite3.Error
	return errors.As(err, &se) && se.ExtendedCode == sqlite3.ErrConstraintForeignKey
}
