package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/warp/crew-ledger/records"
)

// =============================================================================
// STANDALONE PAYMENTS
// =============================================================================

// SavePayment inserts or replaces a payment row.
func (s *Store) SavePayment(ctx context.Context, p records.Payment) error {
	if !p.Amount.IsPositive() {
		return fmt.Errorf("%w: payment amount must be positive", records.ErrNegativeAmount)
	}
	if p.SourceType == "" {
		p.SourceType = records.SourceOther
	}

	query := `
		INSERT INTO payments (id, worker_id, amount, date_paid, source_type, source_id, note)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			worker_id = excluded.worker_id,
			amount = excluded.amount,
			date_paid = excluded.date_paid,
			source_type = excluded.source_type,
			source_id = excluded.source_id,
			note = excluded.note
	`

	_, err := s.write(ctx, records.Change{Table: records.TablePayments, Op: records.OpUpdate, ID: p.ID}, query,
		p.ID, p.WorkerID, p.Amount.String(), formatDate(p.DatePaid),
		string(p.SourceType), nullString(p.SourceID), p.Note,
	)
	if isForeignKeyError(err) {
		return fmt.Errorf("%w: worker %s", records.ErrParentNotFound, p.WorkerID)
	}
	if err != nil {
		return fmt.Errorf("failed to save payment: %w", err)
	}
	return nil
}

// ListPayments returns payment rows, newest first.
func (s *Store) ListPayments(ctx context.Context, f records.PaymentFilter) ([]records.Payment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := "SELECT id, worker_id, amount, date_paid, source_type, source_id, note FROM payments"
	var args []any
	if f.WorkerID != "" {
		query += " WHERE worker_id = ?"
		args = append(args, f.WorkerID)
	}
	query += " ORDER BY date_paid DESC, id"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var payments []records.Payment
	for rows.Next() {
		var (
			p          records.Payment
			datePaid   string
			sourceType string
			sourceID   sql.NullString
		)
		if err := rows.Scan(&p.ID, &p.WorkerID, &p.Amount, &datePaid, &sourceType, &sourceID, &p.Note); err != nil {
			return nil, err
		}
		p.DatePaid = parseDate(datePaid)
		p.SourceType = records.PaymentSource(sourceType)
		p.SourceID = stringPtr(sourceID)
		payments = append(payments, p)
	}
	return payments, rows.Err()
}

// DeletePayment removes a payment row.
func (s *Store) DeletePayment(ctx context.Context, id string) error {
	return s.remove(ctx, records.TablePayments, id)
}
