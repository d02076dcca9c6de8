package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/warp/crew-ledger/records"
)

// =============================================================================
// PROJECTS
// =============================================================================

const projectColumns = "id, name, location, start_date, status, end_date, employer_id, created_at"

// SaveProject inserts or replaces a project.
func (s *Store) SaveProject(ctx context.Context, p records.Project) error {
	if p.Status == "" {
		p.Status = records.ProjectActive
	}

	query := `
		INSERT INTO projects (` + projectColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			location = excluded.location,
			start_date = excluded.start_date,
			status = excluded.status,
			end_date = excluded.end_date,
			employer_id = excluded.employer_id
	`

	_, err := s.write(ctx, records.Change{Table: records.TableProjects, Op: records.OpUpdate, ID: p.ID}, query,
		p.ID, p.Name, p.Location, formatDate(p.StartDate), string(p.Status),
		nullDate(p.EndDate), nullString(p.EmployerID), createdAt(p.CreatedAt),
	)
	if isForeignKeyError(err) {
		return fmt.Errorf("%w: employer %s", records.ErrParentNotFound, *p.EmployerID)
	}
	if err != nil {
		return fmt.Errorf("failed to save project: %w", err)
	}
	return nil
}

// GetProject retrieves a project by ID.
func (s *Store) GetProject(ctx context.Context, id string) (*records.Project, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx, "SELECT "+projectColumns+" FROM projects WHERE id = ?", id)
	p, err := scanProject(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// ListProjects returns projects, newest start date first.
func (s *Store) ListProjects(ctx context.Context, f records.ProjectFilter) ([]records.Project, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := "SELECT " + projectColumns + " FROM projects"
	var args []any
	if f.EmployerID != "" {
		query += " WHERE employer_id = ?"
		args = append(args, f.EmployerID)
	}
	query += " ORDER BY start_date DESC, name"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var projects []records.Project
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, err
		}
		projects = append(projects, p)
	}
	return projects, rows.Err()
}

// DeleteProject removes a project with its shifts, their assignments and its
// income entries.
func (s *Store) DeleteProject(ctx context.Context, id string) error {
	return s.remove(ctx, records.TableProjects, id)
}

func scanProject(row scanner) (records.Project, error) {
	var (
		p                   records.Project
		startDate, status   string
		endDate, employerID sql.NullString
		createdAt           string
	)
	if err := row.Scan(&p.ID, &p.Name, &p.Location, &startDate, &status, &endDate, &employerID, &createdAt); err != nil {
		return p, err
	}
	p.StartDate = parseDate(startDate)
	p.Status = records.ProjectStatus(status)
	p.EndDate = datePtr(endDate)
	p.EmployerID = stringPtr(employerID)
	p.CreatedAt = parseTimestamp(createdAt)
	return p, nil
}

// =============================================================================
// INCOME ENTRIES
// =============================================================================

// SaveIncomeEntry inserts or replaces an income entry.
func (s *Store) SaveIncomeEntry(ctx context.Context, e records.IncomeEntry) error {
	if e.Amount.IsNegative() || e.Units.IsNegative() {
		return fmt.Errorf("%w: income entry", records.ErrNegativeAmount)
	}

	query := `
		INSERT INTO income_entries (id, project_id, description, date, amount, units, is_fixed)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			project_id = excluded.project_id,
			description = excluded.description,
			date = excluded.date,
			amount = excluded.amount,
			units = excluded.units,
			is_fixed = excluded.is_fixed
	`

	_, err := s.write(ctx, records.Change{Table: records.TableIncomeEntries, Op: records.OpUpdate, ID: e.ID}, query,
		e.ID, e.ProjectID, e.Description, formatDate(e.Date),
		e.Amount.String(), e.Units.String(), e.IsFixed,
	)
	if isForeignKeyError(err) {
		return fmt.Errorf("%w: project %s", records.ErrParentNotFound, e.ProjectID)
	}
	if err != nil {
		return fmt.Errorf("failed to save income entry: %w", err)
	}
	return nil
}

// ListIncomeEntries returns income entries, filtered by project or by the
// owning employer of the project.
func (s *Store) ListIncomeEntries(ctx context.Context, f records.IncomeFilter) ([]records.IncomeEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `
		SELECT ie.id, ie.project_id, ie.description, ie.date, ie.amount, ie.units, ie.is_fixed
		FROM income_entries ie
		JOIN projects p ON p.id = ie.project_id
	`
	var (
		where []string
		args  []any
	)
	if f.ProjectID != "" {
		where = append(where, "ie.project_id = ?")
		args = append(args, f.ProjectID)
	}
	if f.EmployerID != "" {
		where = append(where, "p.employer_id = ?")
		args = append(args, f.EmployerID)
	}
	query += whereClause(where) + " ORDER BY ie.date, ie.id"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []records.IncomeEntry
	for rows.Next() {
		var (
			e    records.IncomeEntry
			date string
		)
		if err := rows.Scan(&e.ID, &e.ProjectID, &e.Description, &date, &e.Amount, &e.Units, &e.IsFixed); err != nil {
			return nil, err
		}
		e.Date = parseDate(date)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// DeleteIncomeEntry removes an income entry.
func (s *Store) DeleteIncomeEntry(ctx context.Context, id string) error {
	return s.remove(ctx, records.TableIncomeEntries, id)
}

// =============================================================================
// SHIFTS
// =============================================================================

const shiftColumns = "id, project_id, name, date, start_time, end_time, hours"

// SaveShift inserts or replaces a shift. Hours are stored as given; callers
// resolve them from the clock times first (records.ResolveHours).
func (s *Store) SaveShift(ctx context.Context, sh records.Shift) error {
	if sh.Hours.IsNegative() {
		return records.ErrNegativeHours
	}

	query := `
		INSERT INTO shifts (` + shiftColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			project_id = excluded.project_id,
			name = excluded.name,
			date = excluded.date,
			start_time = excluded.start_time,
			end_time = excluded.end_time,
			hours = excluded.hours
	`

	_, err := s.write(ctx, records.Change{Table: records.TableShifts, Op: records.OpUpdate, ID: sh.ID}, query,
		sh.ID, sh.ProjectID, sh.Name, formatDate(sh.Date), sh.StartTime, sh.EndTime, sh.Hours.String(),
	)
	if isForeignKeyError(err) {
		return fmt.Errorf("%w: project %s", records.ErrParentNotFound, sh.ProjectID)
	}
	if err != nil {
		return fmt.Errorf("failed to save shift: %w", err)
	}
	return nil
}

// GetShift retrieves a shift by ID.
func (s *Store) GetShift(ctx context.Context, id string) (*records.Shift, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx, "SELECT "+shiftColumns+" FROM shifts WHERE id = ?", id)
	sh, err := scanShift(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &sh, nil
}

// ListShifts returns shifts, newest first.
func (s *Store) ListShifts(ctx context.Context, f records.ShiftFilter) ([]records.Shift, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := "SELECT " + shiftColumns + " FROM shifts"
	var args []any
	if f.ProjectID != "" {
		query += " WHERE project_id = ?"
		args = append(args, f.ProjectID)
	}
	query += " ORDER BY date DESC, start_time"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var shifts []records.Shift
	for rows.Next() {
		sh, err := scanShift(rows)
		if err != nil {
			return nil, err
		}
		shifts = append(shifts, sh)
	}
	return shifts, rows.Err()
}

// DeleteShift removes a shift and its assignments.
func (s *Store) DeleteShift(ctx context.Context, id string) error {
	return s.remove(ctx, records.TableShifts, id)
}

func scanShift(row scanner) (records.Shift, error) {
	var (
		sh   records.Shift
		date string
	)
	if err := row.Scan(&sh.ID, &sh.ProjectID, &sh.Name, &date, &sh.StartTime, &sh.EndTime, &sh.Hours); err != nil {
		return sh, err
	}
	sh.Date = parseDate(date)
	return sh, nil
}

// =============================================================================
// EVENTS
// =============================================================================

const eventColumns = "id, name, location, date, start_time, end_time, hours, income, employer_id"

// SaveEvent inserts or replaces an event.
func (s *Store) SaveEvent(ctx context.Context, e records.Event) error {
	if e.Hours.IsNegative() {
		return records.ErrNegativeHours
	}
	if e.Income.IsNegative() {
		return fmt.Errorf("%w: event income", records.ErrNegativeAmount)
	}

	query := `
		INSERT INTO events (` + eventColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			location = excluded.location,
			date = excluded.date,
			start_time = excluded.start_time,
			end_time = excluded.end_time,
			hours = excluded.hours,
			income = excluded.income,
			employer_id = excluded.employer_id
	`

	_, err := s.write(ctx, records.Change{Table: records.TableEvents, Op: records.OpUpdate, ID: e.ID}, query,
		e.ID, e.Name, e.Location, formatDate(e.Date), e.StartTime, e.EndTime,
		e.Hours.String(), e.Income.String(), nullString(e.EmployerID),
	)
	if isForeignKeyError(err) {
		return fmt.Errorf("%w: employer %s", records.ErrParentNotFound, *e.EmployerID)
	}
	if err != nil {
		return fmt.Errorf("failed to save event: %w", err)
	}
	return nil
}

// GetEvent retrieves an event by ID.
func (s *Store) GetEvent(ctx context.Context, id string) (*records.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx, "SELECT "+eventColumns+" FROM events WHERE id = ?", id)
	e, err := scanEvent(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &e, nil
}

// ListEvents returns events, newest first.
func (s *Store) ListEvents(ctx context.Context, f records.EventFilter) ([]records.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := "SELECT " + eventColumns + " FROM events"
	var args []any
	if f.EmployerID != "" {
		query += " WHERE employer_id = ?"
		args = append(args, f.EmployerID)
	}
	query += " ORDER BY date DESC, start_time"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []records.Event
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

// DeleteEvent removes an event and its assignments.
func (s *Store) DeleteEvent(ctx context.Context, id string) error {
	return s.remove(ctx, records.TableEvents, id)
}

func scanEvent(row scanner) (records.Event, error) {
	var (
		e          records.Event
		date       string
		employerID sql.NullString
	)
	if err := row.Scan(&e.ID, &e.Name, &e.Location, &date, &e.StartTime, &e.EndTime,
		&e.Hours, &e.Income, &employerID); err != nil {
		return e, err
	}
	e.Date = parseDate(date)
	e.EmployerID = stringPtr(employerID)
	return e, nil
}

func whereClause(conds []string) string {
	if len(conds) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(conds, " AND ")
}
