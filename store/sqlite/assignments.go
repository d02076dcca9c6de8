package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/warp/crew-ledger/records"
)

// termsColumns and settlementColumns are shared by both assignment tables.
const (
	termsColumns      = "is_hourly_rate, pay_rate, reference_pay_rate, is_reference_hourly_rate"
	settlementColumns = "is_paid, amount_paid, tip_amount, reference_amount_paid, reference_tip_amount"
)

func termsArgs(t records.Terms) []any {
	return []any{t.IsHourlyRate, t.PayRate.String(), nullDecimal(t.ReferencePayRate), t.IsReferenceHourlyRate}
}

func settlementArgs(s records.Settlement) []any {
	return []any{
		s.IsPaid, s.AmountPaid.String(), s.TipAmount.String(),
		s.ReferenceAmountPaid.String(), s.ReferenceTipAmount.String(),
	}
}

// termsDest returns scan destinations for termsColumns + settlementColumns.
// finish must be called after Scan to copy the nullable rate.
func termsDest(t *records.Terms, s *records.Settlement) (dest []any, finish func()) {
	var refRate decimal.NullDecimal
	dest = []any{
		&t.IsHourlyRate, &t.PayRate, &refRate, &t.IsReferenceHourlyRate,
		&s.IsPaid, &s.AmountPaid, &s.TipAmount, &s.ReferenceAmountPaid, &s.ReferenceTipAmount,
	}
	return dest, func() { t.ReferencePayRate = decimalPtr(refRate) }
}

func insertError(err error, kind records.AssignmentKind, parentID, workerID string) error {
	if isUniqueConstraintError(err) {
		return &records.DuplicateAssignmentError{Kind: kind, ParentID: parentID, WorkerID: workerID}
	}
	if isForeignKeyError(err) {
		return fmt.Errorf("%w: %s %s or worker %s", records.ErrParentNotFound, kind, parentID, workerID)
	}
	return fmt.Errorf("failed to insert %s assignment: %w", kind, err)
}

// =============================================================================
// SHIFT ASSIGNMENTS
// =============================================================================

// InsertShiftAssignment adds a worker to a shift. A second row for the same
// (shift, worker) pair fails with *records.DuplicateAssignmentError.
func (s *Store) InsertShiftAssignment(ctx context.Context, a records.ShiftAssignment) error {
	query := `
		INSERT INTO shift_assignments (id, shift_id, worker_id, ` + termsColumns + `, ` + settlementColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	args := append([]any{a.ID, a.ShiftID, a.WorkerID}, termsArgs(a.Terms)...)
	args = append(args, settlementArgs(a.Settlement)...)

	_, err := s.write(ctx, records.Change{Table: records.TableShiftAssignments, Op: records.OpInsert, ID: a.ID}, query, args...)
	if err != nil {
		return insertError(err, records.KindShift, a.ShiftID, a.WorkerID)
	}
	return nil
}

// GetShiftAssignment retrieves a shift assignment by ID.
func (s *Store) GetShiftAssignment(ctx context.Context, id string) (*records.ShiftAssignment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var a records.ShiftAssignment
	dest, finish := termsDest(&a.Terms, &a.Settlement)
	err := s.db.QueryRowContext(ctx,
		"SELECT id, shift_id, worker_id, "+termsColumns+", "+settlementColumns+" FROM shift_assignments WHERE id = ?", id,
	).Scan(append([]any{&a.ID, &a.ShiftID, &a.WorkerID}, dest...)...)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	finish()
	return &a, nil
}

// UpdateShiftAssignment replaces terms and settlement. The shift and worker
// of an assignment never change.
func (s *Store) UpdateShiftAssignment(ctx context.Context, a records.ShiftAssignment) error {
	query := `
		UPDATE shift_assignments SET
			is_hourly_rate = ?, pay_rate = ?, reference_pay_rate = ?, is_reference_hourly_rate = ?,
			is_paid = ?, amount_paid = ?, tip_amount = ?, reference_amount_paid = ?, reference_tip_amount = ?
		WHERE id = ?
	`
	args := append(termsArgs(a.Terms), settlementArgs(a.Settlement)...)
	args = append(args, a.ID)

	n, err := s.write(ctx, records.Change{Table: records.TableShiftAssignments, Op: records.OpUpdate, ID: a.ID}, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update shift assignment: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: shift assignment %s", records.ErrNotFound, a.ID)
	}
	return nil
}

// DeleteShiftAssignment removes a worker from a shift.
func (s *Store) DeleteShiftAssignment(ctx context.Context, id string) error {
	return s.remove(ctx, records.TableShiftAssignments, id)
}

// ShiftAssignmentRows returns shift assignments joined with shift, project,
// worker and referrer name.
func (s *Store) ShiftAssignmentRows(ctx context.Context, f records.AssignmentFilter) ([]records.ShiftAssignmentRow, error) {
	if f.EventID != "" {
		return nil, nil
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `
		SELECT sa.id, sa.shift_id, sa.worker_id,
		       sa.is_hourly_rate, sa.pay_rate, sa.reference_pay_rate, sa.is_reference_hourly_rate,
		       sa.is_paid, sa.amount_paid, sa.tip_amount, sa.reference_amount_paid, sa.reference_tip_amount,
		       s.id, s.project_id, s.name, s.date, s.start_time, s.end_time, s.hours,
		       p.name, p.employer_id,
		       w.id, w.name, w.phone, w.reference_id, w.created_at,
		       COALESCE(r.name, '')
		FROM shift_assignments sa
		JOIN shifts s ON s.id = sa.shift_id
		JOIN projects p ON p.id = s.project_id
		JOIN workers w ON w.id = sa.worker_id
		LEFT JOIN workers r ON r.id = w.reference_id
	`
	var (
		where []string
		args  []any
	)
	if f.WorkerID != "" {
		where = append(where, "sa.worker_id = ?")
		args = append(args, f.WorkerID)
	}
	if f.ReferrerID != "" {
		where = append(where, "w.reference_id = ?")
		args = append(args, f.ReferrerID)
	}
	if f.ShiftID != "" {
		where = append(where, "sa.shift_id = ?")
		args = append(args, f.ShiftID)
	}
	if f.ProjectID != "" {
		where = append(where, "s.project_id = ?")
		args = append(args, f.ProjectID)
	}
	if f.EmployerID != "" {
		where = append(where, "p.employer_id = ?")
		args = append(args, f.EmployerID)
	}
	query += whereClause(where) + " ORDER BY s.date DESC, s.start_time, w.name"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query shift assignments: %w", err)
	}
	defer rows.Close()

	var result []records.ShiftAssignmentRow
	for rows.Next() {
		var (
			r          records.ShiftAssignmentRow
			shiftDate  string
			employerID sql.NullString
			refID      sql.NullString
			createdAt  string
		)
		a := &r.Assignment
		dest, finish := termsDest(&a.Terms, &a.Settlement)
		dest = append([]any{&a.ID, &a.ShiftID, &a.WorkerID}, dest...)
		dest = append(dest,
			&r.Shift.ID, &r.Shift.ProjectID, &r.Shift.Name, &shiftDate, &r.Shift.StartTime, &r.Shift.EndTime, &r.Shift.Hours,
			&r.ProjectName, &employerID,
			&r.Worker.ID, &r.Worker.Name, &r.Worker.Phone, &refID, &createdAt,
			&r.ReferrerName,
		)
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("failed to scan shift assignment: %w", err)
		}
		finish()
		r.Shift.Date = parseDate(shiftDate)
		r.EmployerID = stringPtr(employerID)
		r.Worker.ReferenceID = stringPtr(refID)
		r.Worker.CreatedAt = parseTimestamp(createdAt)
		result = append(result, r)
	}
	return result, rows.Err()
}

// =============================================================================
// EVENT ASSIGNMENTS
// =============================================================================

// InsertEventAssignment adds a worker to an event. A second row for the same
// (event, worker) pair fails with *records.DuplicateAssignmentError.
func (s *Store) InsertEventAssignment(ctx context.Context, a records.EventAssignment) error {
	if a.Hours.IsNegative() {
		return records.ErrNegativeHours
	}

	query := `
		INSERT INTO event_assignments (id, event_id, worker_id, hours, ` + termsColumns + `, ` + settlementColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	args := append([]any{a.ID, a.EventID, a.WorkerID, a.Hours.String()}, termsArgs(a.Terms)...)
	args = append(args, settlementArgs(a.Settlement)...)

	_, err := s.write(ctx, records.Change{Table: records.TableEventAssignments, Op: records.OpInsert, ID: a.ID}, query, args...)
	if err != nil {
		return insertError(err, records.KindEvent, a.EventID, a.WorkerID)
	}
	return nil
}

// GetEventAssignment retrieves an event assignment by ID.
func (s *Store) GetEventAssignment(ctx context.Context, id string) (*records.EventAssignment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var a records.EventAssignment
	dest, finish := termsDest(&a.Terms, &a.Settlement)
	err := s.db.QueryRowContext(ctx,
		"SELECT id, event_id, worker_id, hours, "+termsColumns+", "+settlementColumns+" FROM event_assignments WHERE id = ?", id,
	).Scan(append([]any{&a.ID, &a.EventID, &a.WorkerID, &a.Hours}, dest...)...)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	finish()
	return &a, nil
}

// UpdateEventAssignment replaces hours, terms and settlement.
func (s *Store) UpdateEventAssignment(ctx context.Context, a records.EventAssignment) error {
	if a.Hours.IsNegative() {
		return records.ErrNegativeHours
	}

	query := `
		UPDATE event_assignments SET
			hours = ?,
			is_hourly_rate = ?, pay_rate = ?, reference_pay_rate = ?, is_reference_hourly_rate = ?,
			is_paid = ?, amount_paid = ?, tip_amount = ?, reference_amount_paid = ?, reference_tip_amount = ?
		WHERE id = ?
	`
	args := append([]any{a.Hours.String()}, termsArgs(a.Terms)...)
	args = append(args, settlementArgs(a.Settlement)...)
	args = append(args, a.ID)

	n, err := s.write(ctx, records.Change{Table: records.TableEventAssignments, Op: records.OpUpdate, ID: a.ID}, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update event assignment: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: event assignment %s", records.ErrNotFound, a.ID)
	}
	return nil
}

// DeleteEventAssignment removes a worker from an event.
func (s *Store) DeleteEventAssignment(ctx context.Context, id string) error {
	return s.remove(ctx, records.TableEventAssignments, id)
}

// EventAssignmentRows returns event assignments joined with event, worker and
// referrer name.
func (s *Store) EventAssignmentRows(ctx context.Context, f records.AssignmentFilter) ([]records.EventAssignmentRow, error) {
	if f.ShiftID != "" || f.ProjectID != "" {
		return nil, nil
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `
		SELECT ea.id, ea.event_id, ea.worker_id, ea.hours,
		       ea.is_hourly_rate, ea.pay_rate, ea.reference_pay_rate, ea.is_reference_hourly_rate,
		       ea.is_paid, ea.amount_paid, ea.tip_amount, ea.reference_amount_paid, ea.reference_tip_amount,
		       e.id, e.name, e.location, e.date, e.start_time, e.end_time, e.hours, e.income, e.employer_id,
		       w.id, w.name, w.phone, w.reference_id, w.created_at,
		       COALESCE(r.name, '')
		FROM event_assignments ea
		JOIN events e ON e.id = ea.event_id
		JOIN workers w ON w.id = ea.worker_id
		LEFT JOIN workers r ON r.id = w.reference_id
	`
	var (
		where []string
		args  []any
	)
	if f.WorkerID != "" {
		where = append(where, "ea.worker_id = ?")
		args = append(args, f.WorkerID)
	}
	if f.ReferrerID != "" {
		where = append(where, "w.reference_id = ?")
		args = append(args, f.ReferrerID)
	}
	if f.EventID != "" {
		where = append(where, "ea.event_id = ?")
		args = append(args, f.EventID)
	}
	if f.EmployerID != "" {
		where = append(where, "e.employer_id = ?")
		args = append(args, f.EmployerID)
	}
	query += whereClause(where) + " ORDER BY e.date DESC, e.start_time, w.name"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query event assignments: %w", err)
	}
	defer rows.Close()

	var result []records.EventAssignmentRow
	for rows.Next() {
		var (
			r          records.EventAssignmentRow
			eventDate  string
			employerID sql.NullString
			refID      sql.NullString
			createdAt  string
		)
		a := &r.Assignment
		dest, finish := termsDest(&a.Terms, &a.Settlement)
		dest = append([]any{&a.ID, &a.EventID, &a.WorkerID, &a.Hours}, dest...)
		dest = append(dest,
			&r.Event.ID, &r.Event.Name, &r.Event.Location, &eventDate, &r.Event.StartTime, &r.Event.EndTime,
			&r.Event.Hours, &r.Event.Income, &employerID,
			&r.Worker.ID, &r.Worker.Name, &r.Worker.Phone, &refID, &createdAt,
			&r.ReferrerName,
		)
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("failed to scan event assignment: %w", err)
		}
		finish()
		r.Event.Date = parseDate(eventDate)
		r.Event.EmployerID = stringPtr(employerID)
		r.Worker.ReferenceID = stringPtr(refID)
		r.Worker.CreatedAt = parseTimestamp(createdAt)
		result = append(result, r)
	}
	return result, rows.Err()
}
