package debts

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/warp/crew-ledger/payment"
	"github.com/warp/crew-ledger/records"
)

// Leg selects which side of an assignment a payment settles.
type Leg string

const (
	LegWorker    Leg = "worker"
	LegReference Leg = "reference"
)

// PaymentInput is an explicit payment entered for one leg. A nil Tip keeps
// the stored tip.
type PaymentInput struct {
	Leg    Leg
	Amount decimal.Decimal
	Tip    *decimal.Decimal
}

// target is a loaded assignment ready to be priced and written back.
type target struct {
	hours      decimal.Decimal
	terms      records.Terms
	settlement *records.Settlement
	save       func(ctx context.Context) error
}

func (t *target) balance() records.Balance {
	return records.Price(t.terms, *t.settlement, t.hours)
}

func (s *Service) load(ctx context.Context, kind records.AssignmentKind, id string) (*target, error) {
	switch kind {
	case records.KindShift:
		a, err := s.store.GetShiftAssignment(ctx, id)
		if err != nil {
			return nil, err
		}
		if a == nil {
			return nil, fmt.Errorf("%w: shift assignment %s", records.ErrNotFound, id)
		}
		shift, err := s.store.GetShift(ctx, a.ShiftID)
		if err != nil {
			return nil, err
		}
		if shift == nil {
			return nil, fmt.Errorf("%w: shift %s", records.ErrNotFound, a.ShiftID)
		}
		return &target{
			hours:      shift.Hours,
			terms:      a.Terms,
			settlement: &a.Settlement,
			save:       func(ctx context.Context) error { return s.store.UpdateShiftAssignment(ctx, *a) },
		}, nil

	case records.KindEvent:
		a, err := s.store.GetEventAssignment(ctx, id)
		if err != nil {
			return nil, err
		}
		if a == nil {
			return nil, fmt.Errorf("%w: event assignment %s", records.ErrNotFound, id)
		}
		return &target{
			hours:      a.Hours,
			terms:      a.Terms,
			settlement: &a.Settlement,
			save:       func(ctx context.Context) error { return s.store.UpdateEventAssignment(ctx, *a) },
		}, nil

	default:
		return nil, fmt.Errorf("%w: %q", records.ErrInvalidKind, kind)
	}
}

func validateTip(field string, tip *decimal.Decimal) error {
	if tip != nil && tip.IsNegative() {
		return invalid(field, "negative", ErrNegativeTip, "tip cannot be negative")
	}
	return nil
}

// =============================================================================
// MARK PAID
// =============================================================================

// MarkPaid settles both legs in full: AmountPaid becomes the worker total,
// ReferenceAmountPaid the referral total, IsPaid true. The stored tip is kept
// unless tip is given. Marking twice leaves the same state.
func (s *Service) MarkPaid(ctx context.Context, kind records.AssignmentKind, id string, tip *decimal.Decimal) (records.Balance, error) {
	if err := validateTip("tip", tip); err != nil {
		return records.Balance{}, err
	}

	t, err := s.load(ctx, kind, id)
	if err != nil {
		return records.Balance{}, err
	}

	t.settlement.AmountPaid = t.terms.WorkerPayment(t.hours)
	t.settlement.ReferenceAmountPaid = t.terms.ReferencePayment(t.hours)
	t.settlement.IsPaid = true
	if tip != nil {
		t.settlement.TipAmount = *tip
	}

	if err := t.save(ctx); err != nil {
		s.logger.Error().Err(err).Str("kind", string(kind)).Str("assignment_id", id).Msg("mark paid failed")
		return records.Balance{}, err
	}

	s.logger.Info().
		Str("kind", string(kind)).
		Str("assignment_id", id).
		Str("amount", t.settlement.AmountPaid.String()).
		Msg("assignment marked paid")
	return t.balance(), nil
}

// =============================================================================
// RECORD PAYMENT
// =============================================================================

// RecordPayment sets the paid amount (and tip, when given) of one leg.
//
// The amount must be positive and at most the leg total (within
// payment.Tolerance); the tip is unbounded. After a worker-leg payment IsPaid
// is recomputed from the numbers alone: amount plus stored tip against the
// total, the same sum the state is classified on. Referral payments never
// change IsPaid.
// A rejected input writes nothing.
func (s *Service) RecordPayment(ctx context.Context, kind records.AssignmentKind, id string, in PaymentInput) (records.Balance, error) {
	if in.Leg == "" {
		in.Leg = LegWorker
	}
	if in.Leg != LegWorker && in.Leg != LegReference {
		return records.Balance{}, invalid("leg", "invalid", ErrInvalidLeg, "leg must be %q or %q", LegWorker, LegReference)
	}
	if !in.Amount.IsPositive() {
		return records.Balance{}, invalid("amount", "invalid", ErrInvalidAmount, "amount must be greater than zero")
	}
	if err := validateTip("tip", in.Tip); err != nil {
		return records.Balance{}, err
	}

	t, err := s.load(ctx, kind, id)
	if err != nil {
		return records.Balance{}, err
	}

	legTotal := t.terms.WorkerPayment(t.hours)
	if in.Leg == LegReference {
		legTotal = t.terms.ReferencePayment(t.hours)
	}
	if in.Amount.GreaterThan(legTotal.Add(payment.Tolerance)) {
		return records.Balance{}, invalid("amount", "exceeds_balance", ErrAmountExceedsBalance,
			"amount %s exceeds balance %s", in.Amount.String(), legTotal.String())
	}

	switch in.Leg {
	case LegWorker:
		t.settlement.AmountPaid = in.Amount
		if in.Tip != nil {
			t.settlement.TipAmount = *in.Tip
		}
		t.settlement.IsPaid = payment.CoversTotal(in.Amount.Add(t.settlement.TipAmount), legTotal)
	case LegReference:
		t.settlement.ReferenceAmountPaid = in.Amount
		if in.Tip != nil {
			t.settlement.ReferenceTipAmount = *in.Tip
		}
	}

	if err := t.save(ctx); err != nil {
		s.logger.Error().Err(err).Str("kind", string(kind)).Str("assignment_id", id).Msg("record payment failed")
		return records.Balance{}, err
	}

	b := t.balance()
	s.logger.Info().
		Str("kind", string(kind)).
		Str("assignment_id", id).
		Str("leg", string(in.Leg)).
		Str("amount", in.Amount.String()).
		Str("state", string(b.State)).
		Msg("payment recorded")
	return b, nil
}

// =============================================================================
// REVOKE
// =============================================================================

// Revoke zeroes both legs and clears IsPaid. An assignment with nothing
// recorded is left alone and nothing is written.
func (s *Service) Revoke(ctx context.Context, kind records.AssignmentKind, id string) (records.Balance, error) {
	t, err := s.load(ctx, kind, id)
	if err != nil {
		return records.Balance{}, err
	}
	if t.settlement.IsZero() {
		return t.balance(), nil
	}

	*t.settlement = records.Settlement{
		AmountPaid:          decimal.Zero,
		TipAmount:           decimal.Zero,
		ReferenceAmountPaid: decimal.Zero,
		ReferenceTipAmount:  decimal.Zero,
	}
	if err := t.save(ctx); err != nil {
		s.logger.Error().Err(err).Str("kind", string(kind)).Str("assignment_id", id).Msg("revoke failed")
		return records.Balance{}, err
	}

	s.logger.Info().Str("kind", string(kind)).Str("assignment_id", id).Msg("payment revoked")
	return t.balance(), nil
}

// =============================================================================
// BULK
// =============================================================================

// BulkResult reports how far a bulk operation got.
type BulkResult struct {
	Total  int // items selected
	Marked int // items committed before stopping
}

// MarkAllPaid marks every unpaid item matching f as paid, one write at a time.
// It is not atomic: on the first failure or when ctx is cancelled it stops,
// and items already marked stay marked.
func (s *Service) MarkAllPaid(ctx context.Context, f Filter) (BulkResult, error) {
	items, err := s.Unpaid(ctx, f)
	if err != nil {
		return BulkResult{}, err
	}

	res := BulkResult{Total: len(items)}
	for _, it := range items {
		if err := ctx.Err(); err != nil {
			s.logger.Warn().Int("marked", res.Marked).Int("total", res.Total).Msg("mark all paid cancelled")
			return res, err
		}
		if _, err := s.MarkPaid(ctx, it.Kind, it.AssignmentID, nil); err != nil {
			return res, fmt.Errorf("mark %s assignment %s paid: %w", it.Kind, it.AssignmentID, err)
		}
		res.Marked++
	}

	s.logger.Info().Int("marked", res.Marked).Msg("mark all paid finished")
	return res, nil
}
