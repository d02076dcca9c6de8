package records

import (
	"github.com/shopspring/decimal"

	"github.com/warp/crew-ledger/payment"
)

// Terms is how an assignment is paid. The referral leg has its own rate and
// its own hourly/fixed flag but always uses the assignment's hours.
type Terms struct {
	IsHourlyRate          bool
	PayRate               decimal.Decimal
	ReferencePayRate      *decimal.Decimal
	IsReferenceHourlyRate bool
}

func (t Terms) WorkerPayment(hours decimal.Decimal) decimal.Decimal {
	return payment.WorkerPayment(t.PayRate, hours, t.IsHourlyRate)
}

func (t Terms) ReferencePayment(hours decimal.Decimal) decimal.Decimal {
	return payment.ReferencePayment(t.ReferencePayRate, hours, t.IsReferenceHourlyRate)
}

func (t Terms) TotalPayment(hours decimal.Decimal) decimal.Decimal {
	return payment.TotalPayment(t.PayRate, hours, t.IsHourlyRate, t.ReferencePayRate, t.IsReferenceHourlyRate)
}

// Settlement is what has been paid so far on each leg.
// Only payment operations write these fields; rate and hours edits leave
// them alone even when that makes IsPaid stale.
type Settlement struct {
	IsPaid              bool
	AmountPaid          decimal.Decimal
	TipAmount           decimal.Decimal
	ReferenceAmountPaid decimal.Decimal
	ReferenceTipAmount  decimal.Decimal
}

// IsZero reports whether nothing at all is recorded as paid.
func (s Settlement) IsZero() bool {
	return !s.IsPaid &&
		s.AmountPaid.IsZero() && s.TipAmount.IsZero() &&
		s.ReferenceAmountPaid.IsZero() && s.ReferenceTipAmount.IsZero()
}

// Balance is an assignment priced at its hours against its settlement.
type Balance struct {
	WorkerPayment       decimal.Decimal
	ReferencePayment    decimal.Decimal
	NetPayment          decimal.Decimal
	NetReferencePayment decimal.Decimal
	TotalNet            decimal.Decimal
	State               payment.State
}

// Total is both legs.
func (b Balance) Total() decimal.Decimal {
	return b.WorkerPayment.Add(b.ReferencePayment)
}

// Price computes the balance of an assignment with the given terms and hours.
func Price(t Terms, s Settlement, hours decimal.Decimal) Balance {
	worker := t.WorkerPayment(hours)
	ref := t.ReferencePayment(hours)
	net := payment.NetPayment(worker, s.AmountPaid, s.TipAmount)
	refNet := payment.NetReferencePayment(ref, s.ReferenceAmountPaid, s.ReferenceTipAmount)
	return Balance{
		WorkerPayment:       worker,
		ReferencePayment:    ref,
		NetPayment:          net,
		NetReferencePayment: refNet,
		TotalNet:            payment.TotalNetPayment(net, refNet),
		State:               payment.Classify(worker, s.AmountPaid, s.TipAmount),
	}
}
