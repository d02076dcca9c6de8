/*
Package sqlite provides a SQLite-backed implementation of records.Store.

PURPOSE:
  Persists workers, employers, projects, income entries, shifts, events,
  assignments and standalone payments, and serves the joined assignment rows
  the aggregation and debt projection price in Go.

WRITES:
  Every write is one statement on one row. There is no multi-row transaction:
  bulk operations upstream issue independent writes and may stop half way.
  After a write commits the store publishes a records.Change on its hub, so
  live queries recompute.

KEY TABLES:
  workers:           reference_id -> workers(id) ON DELETE SET NULL
  employers:         owners of projects and events
  projects:          employer_id ON DELETE SET NULL
  income_entries:    project income, cascade with the project
  shifts:            cascade with the project
  events:            employer_id ON DELETE SET NULL
  shift_assignments: UNIQUE(shift_id, worker_id), cascade with shift/worker
  event_assignments: UNIQUE(event_id, worker_id), cascade with event/worker
  payments:          worker_id ON DELETE RESTRICT

MONEY:
  Decimals are stored as TEXT and scanned back into decimal.Decimal so no
  float ever touches an amount.

CONCURRENCY:
  Uses sync.RWMutex for thread-safety. SQLite itself serializes writers.

WAL MODE:
  SQLite is opened with WAL (Write-Ahead Logging) and foreign keys enabled.

USAGE:
  store, err := sqlite.New("./data/crew.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

SEE ALSO:
  - records/store.go: interface definitions
  - live/hub.go: change fan-out
*/
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"

	"github.com/warp/crew-ledger/live"
	"github.com/warp/crew-ledger/records"
)

// Store implements records.Store using SQLite.
type Store struct {
	db  *sql.DB
	mu  sync.RWMutex
	hub *live.Hub
}

var _ records.Store = (*Store)(nil)

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if dbPath == ":memory:" {
		// every connection to :memory: is a separate database
		db.SetMaxOpenConns(1)
	}

	store := &Store{db: db, hub: live.NewHub()}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Subscribe implements records.Notifier.
func (s *Store) Subscribe(tables ...records.Table) (<-chan records.Change, func()) {
	return s.hub.Subscribe(tables...)
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS workers (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		phone TEXT NOT NULL DEFAULT '',
		reference_id TEXT REFERENCES workers(id) ON DELETE SET NULL,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_workers_reference
		ON workers(reference_id) WHERE reference_id IS NOT NULL;

	CREATE TABLE IF NOT EXISTS employers (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		phone TEXT NOT NULL DEFAULT '',
		created_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS projects (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		location TEXT NOT NULL DEFAULT '',
		start_date TEXT NOT NULL,
		status TEXT NOT NULL DEFAULT 'active',
		end_date TEXT,
		employer_id TEXT REFERENCES employers(id) ON DELETE SET NULL,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_projects_employer
		ON projects(employer_id);

	CREATE TABLE IF NOT EXISTS income_entries (
		id TEXT PRIMARY KEY,
		project_id TEXT NOT NULL REFERENCES projects(id) ON DELETE CASCADE,
		description TEXT NOT NULL DEFAULT '',
		date TEXT NOT NULL,
		amount TEXT NOT NULL,
		units TEXT NOT NULL DEFAULT '1',
		is_fixed BOOLEAN NOT NULL DEFAULT FALSE
	);

	CREATE INDEX IF NOT EXISTS idx_income_entries_project
		ON income_entries(project_id);

	CREATE TABLE IF NOT EXISTS shifts (
		id TEXT PRIMARY KEY,
		project_id TEXT NOT NULL REFERENCES projects(id) ON DELETE CASCADE,
		name TEXT NOT NULL,
		date TEXT NOT NULL,
		start_time TEXT NOT NULL DEFAULT '',
		end_time TEXT NOT NULL DEFAULT '',
		hours TEXT NOT NULL DEFAULT '0'
	);

	CREATE INDEX IF NOT EXISTS idx_shifts_project
		ON shifts(project_id);

	CREATE TABLE IF NOT EXISTS events (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		location TEXT NOT NULL DEFAULT '',
		date TEXT NOT NULL,
		start_time TEXT NOT NULL DEFAULT '',
		end_time TEXT NOT NULL DEFAULT '',
		hours TEXT NOT NULL DEFAULT '0',
		income TEXT NOT NULL DEFAULT '0',
		employer_id TEXT REFERENCES employers(id) ON DELETE SET NULL
	);

	CREATE INDEX IF NOT EXISTS idx_events_employer
		ON events(employer_id);

	-- one row per (shift, worker); duplicate inserts surface as a typed error
	CREATE TABLE IF NOT EXISTS shift_assignments (
		id TEXT PRIMARY KEY,
		shift_id TEXT NOT NULL REFERENCES shifts(id) ON DELETE CASCADE,
		worker_id TEXT NOT NULL REFERENCES workers(id) ON DELETE CASCADE,
		is_hourly_rate BOOLEAN NOT NULL DEFAULT TRUE,
		pay_rate TEXT NOT NULL,
		reference_pay_rate TEXT,
		is_reference_hourly_rate BOOLEAN NOT NULL DEFAULT TRUE,
		is_paid BOOLEAN NOT NULL DEFAULT FALSE,
		amount_paid TEXT NOT NULL DEFAULT '0',
		tip_amount TEXT NOT NULL DEFAULT '0',
		reference_amount_paid TEXT NOT NULL DEFAULT '0',
		reference_tip_amount TEXT NOT NULL DEFAULT '0',
		UNIQUE(shift_id, worker_id)
	);

	CREATE INDEX IF NOT EXISTS idx_shift_assignments_worker
		ON shift_assignments(worker_id);

	CREATE TABLE IF NOT EXISTS event_assignments (
		id TEXT PRIMARY KEY,
		event_id TEXT NOT NULL REFERENCES events(id) ON DELETE CASCADE,
		worker_id TEXT NOT NULL REFERENCES workers(id) ON DELETE CASCADE,
		hours TEXT NOT NULL DEFAULT '0',
		is_hourly_rate BOOLEAN NOT NULL DEFAULT TRUE,
		pay_rate TEXT NOT NULL,
		reference_pay_rate TEXT,
		is_reference_hourly_rate BOOLEAN NOT NULL DEFAULT TRUE,
		is_paid BOOLEAN NOT NULL DEFAULT FALSE,
		amount_paid TEXT NOT NULL DEFAULT '0',
		tip_amount TEXT NOT NULL DEFAULT '0',
		reference_amount_paid TEXT NOT NULL DEFAULT '0',
		reference_tip_amount TEXT NOT NULL DEFAULT '0',
		UNIQUE(event_id, worker_id)
	);

	CREATE INDEX IF NOT EXISTS idx_event_assignments_worker
		ON event_assignments(worker_id);

	CREATE TABLE IF NOT EXISTS payments (
		id TEXT PRIMARY KEY,
		worker_id TEXT NOT NULL REFERENCES workers(id) ON DELETE RESTRICT,
		amount TEXT NOT NULL,
		date_paid TEXT NOT NULL,
		source_type TEXT NOT NULL DEFAULT 'other',
		source_id TEXT,
		note TEXT NOT NULL DEFAULT ''
	);

	CREATE INDEX IF NOT EXISTS idx_payments_worker
		ON payments(worker_id);
	`

	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// WRITE PATH
// =============================================================================

// write runs one statement and publishes c when it touched a row.
func (s *Store) write(ctx context.Context, c records.Change, query string, args ...any) (int64, error) {
	s.mu.Lock()
	res, err := s.db.ExecContext(ctx, query, args...)
	s.mu.Unlock()
	if err != nil {
		return 0, err
	}

	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	if n > 0 {
		s.hub.Publish(c)
	}
	return n, nil
}

// remove deletes one row by id. Deleting a missing row is not an error.
// A delete blocked by a RESTRICT foreign key returns records.ErrInUse.
func (s *Store) remove(ctx context.Context, table records.Table, id string) error {
	_, err := s.write(ctx, records.Change{Table: table, Op: records.OpDelete, ID: id},
		"DELETE FROM "+string(table)+" WHERE id = ?", id)
	if isForeignKeyError(err) {
		return fmt.Errorf("%w: %s %s", records.ErrInUse, table, id)
	}
	if err != nil {
		return fmt.Errorf("failed to delete from %s: %w", table, err)
	}
	return nil
}

// Reset clears all data (for testing/demo).
func (s *Store) Reset(ctx context.Context) error {
	s.mu.Lock()
	// children first so RESTRICT never fires
	for i := len(records.AllTables) - 1; i >= 0; i-- {
		if _, err := s.db.ExecContext(ctx, "DELETE FROM "+string(records.AllTables[i])); err != nil {
			s.mu.Unlock()
			return err
		}
	}
	s.mu.Unlock()

	s.hub.Publish(records.Change{Op: records.OpReset})
	return nil
}

// =============================================================================
// HELPERS
// =============================================================================

func nullString(s *string) sql.NullString {
	if s == nil || *s == "" {
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

func nullDecimal(d *decimal.Decimal) any {
	if d == nil {
		return nil
	}
	return d.String()
}

func decimalPtr(nd decimal.NullDecimal) *decimal.Decimal {
	if !nd.Valid {
		return nil
	}
	v := nd.Decimal
	return &v
}

func formatDate(t time.Time) string {
	return t.Format(records.DateLayout)
}

func parseDate(s string) time.Time {
	t, _ := time.Parse(records.DateLayout, s)
	return t
}

func nullDate(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: formatDate(*t), Valid: true}
}

func datePtr(ns sql.NullString) *time.Time {
	if !ns.Valid || ns.String == "" {
		return nil
	}
	t := parseDate(ns.String)
	return &t
}

func now() string {
	return time.Now().UTC().Format(time.RFC3339)
}

func createdAt(t time.Time) string {
	if t.IsZero() {
		return now()
	}
	return t.UTC().Format(time.RFC3339)
}

func parseTimestamp(s string) time.Time {
	t, _ := time.Parse(time.RFC3339, s)
	return t
}

func isUniqueConstraintError(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func isForeignKeyError(err error) bool {
	return err != nil && strings.Contains(err.Error(), "FOREIGN KEY constraint failed")
}
