package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/warp/crew-ledger/records"
)

// =============================================================================
// WORKERS
// =============================================================================

// SaveWorker inserts or replaces a worker. The reference must name an
// existing, different worker.
func (s *Store) SaveWorker(ctx context.Context, w records.Worker) error {
	if err := records.ValidateWorker(w); err != nil {
		return err
	}

	query := `
		INSERT INTO workers (id, name, phone, reference_id, created_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			phone = excluded.phone,
			reference_id = excluded.reference_id
	`

	_, err := s.write(ctx, records.Change{Table: records.TableWorkers, Op: records.OpUpdate, ID: w.ID}, query,
		w.ID, w.Name, w.Phone, nullString(w.ReferenceID), createdAt(w.CreatedAt),
	)
	if isForeignKeyError(err) {
		return fmt.Errorf("%w: %s", records.ErrReferenceNotFound, *w.ReferenceID)
	}
	if err != nil {
		return fmt.Errorf("failed to save worker: %w", err)
	}
	return nil
}

// GetWorker retrieves a worker by ID.
func (s *Store) GetWorker(ctx context.Context, id string) (*records.Worker, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx,
		"SELECT id, name, phone, reference_id, created_at FROM workers WHERE id = ?", id)

	w, err := scanWorker(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &w, nil
}

// ListWorkers returns all workers ordered by name.
func (s *Store) ListWorkers(ctx context.Context) ([]records.Worker, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		"SELECT id, name, phone, reference_id, created_at FROM workers ORDER BY name")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var workers []records.Worker
	for rows.Next() {
		w, err := scanWorker(rows)
		if err != nil {
			return nil, err
		}
		workers = append(workers, w)
	}
	return workers, rows.Err()
}

// DeleteWorker removes a worker and their assignments. Workers they referred
// lose the reference. A worker with standalone payments cannot be deleted.
func (s *Store) DeleteWorker(ctx context.Context, id string) error {
	return s.remove(ctx, records.TableWorkers, id)
}

type scanner interface {
	Scan(dest ...any) error
}

func scanWorker(row scanner) (records.Worker, error) {
	var (
		w         records.Worker
		refID     sql.NullString
		createdAt string
	)
	if err := row.Scan(&w.ID, &w.Name, &w.Phone, &refID, &createdAt); err != nil {
		return w, err
	}
	w.ReferenceID = stringPtr(refID)
	w.CreatedAt = parseTimestamp(createdAt)
	return w, nil
}

// =============================================================================
// EMPLOYERS
// =============================================================================

// SaveEmployer inserts or replaces an employer.
func (s *Store) SaveEmployer(ctx context.Context, e records.Employer) error {
	query := `
		INSERT INTO employers (id, name, phone, created_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			phone = excluded.phone
	`

	_, err := s.write(ctx, records.Change{Table: records.TableEmployers, Op: records.OpUpdate, ID: e.ID}, query,
		e.ID, e.Name, e.Phone, createdAt(e.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to save employer: %w", err)
	}
	return nil
}

// GetEmployer retrieves an employer by ID.
func (s *Store) GetEmployer(ctx context.Context, id string) (*records.Employer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var (
		e         records.Employer
		createdAt string
	)
	err := s.db.QueryRowContext(ctx,
		"SELECT id, name, phone, created_at FROM employers WHERE id = ?", id,
	).Scan(&e.ID, &e.Name, &e.Phone, &createdAt)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	e.CreatedAt = parseTimestamp(createdAt)
	return &e, nil
}

// ListEmployers returns all employers ordered by name.
func (s *Store) ListEmployers(ctx context.Context) ([]records.Employer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, "SELECT id, name, phone, created_at FROM employers ORDER BY name")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var employers []records.Employer
	for rows.Next() {
		var (
			e         records.Employer
			createdAt string
		)
		if err := rows.Scan(&e.ID, &e.Name, &e.Phone, &createdAt); err != nil {
			return nil, err
		}
		e.CreatedAt = parseTimestamp(createdAt)
		employers = append(employers, e)
	}
	return employers, rows.Err()
}

// DeleteEmployer removes an employer. Their projects and events stay, unowned.
func (s *Store) DeleteEmployer(ctx context.Context, id string) error {
	return s.remove(ctx, records.TableEmployers, id)
}
