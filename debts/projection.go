/*
Package debts projects assignments into unpaid/paid lists and applies payment
mutations to them.

PURPOSE:
  The projection joins every assignment with its parent, worker and referrer,
  prices it, and splits the result in two:

    unpaid: worker-leg net payment > payment.Tolerance
    paid:   everything else

  The split is recomputed on every read. Nothing but the settlement fields on
  the assignment is stored.

KEY TYPES:
  DebtItem: one priced assignment with display fields
  Filter:   kind plus the store's AssignmentFilter
  Service:  projection reads and payment mutations (mutation.go)

TOTAL DEBT:
  Sum of TotalNet (worker and referral legs) over the unpaid partition of
  both kinds.

SEE ALSO:
  - mutation.go: MarkPaid, RecordPayment, Revoke, MarkAllPaid
  - records/terms.go: Price
*/
package debts

import (
	"context"
	"sort"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/warp/crew-ledger/payment"
	"github.com/warp/crew-ledger/records"
)

// Store is what the debt service reads and writes.
type Store interface {
	records.Reader
	records.AssignmentWriter
	GetShift(ctx context.Context, id string) (*records.Shift, error)
}

// Service serves the debt projection and its mutations.
type Service struct {
	store  Store
	logger zerolog.Logger
}

// NewService creates a debt service over store.
func NewService(store Store, logger zerolog.Logger) *Service {
	return &Service{
		store:  store,
		logger: logger.With().Str("component", "debts").Logger(),
	}
}

// =============================================================================
// READ MODEL
// =============================================================================

// DebtItem is one assignment, priced, with the fields a debt list shows.
type DebtItem struct {
	Kind         records.AssignmentKind
	AssignmentID string
	WorkerID     string
	WorkerName   string
	ReferrerID   *string
	ReferrerName string
	ParentID     string
	ParentName   string
	ProjectName  string // shifts only
	Date         time.Time
	Hours        decimal.Decimal
	Terms        records.Terms

	records.Settlement
	records.Balance
}

// IsUnpaid reports whether the worker leg still has money outstanding.
func (d DebtItem) IsUnpaid() bool {
	return !payment.IsSettled(d.NetPayment)
}

// Filter narrows the projection. An empty Kind means both kinds.
type Filter struct {
	Kind records.AssignmentKind
	records.AssignmentFilter
}

func (f Filter) wants(k records.AssignmentKind) bool {
	return f.Kind == "" || f.Kind == k
}

func shiftItem(r records.ShiftAssignmentRow) DebtItem {
	return DebtItem{
		Kind:         records.KindShift,
		AssignmentID: r.Assignment.ID,
		WorkerID:     r.Worker.ID,
		WorkerName:   r.Worker.Name,
		ReferrerID:   r.Worker.ReferenceID,
		ReferrerName: r.ReferrerName,
		ParentID:     r.Shift.ID,
		ParentName:   r.Shift.Name,
		ProjectName:  r.ProjectName,
		Date:         r.Shift.Date,
		Hours:        r.Hours(),
		Terms:        r.Assignment.Terms,
		Settlement:   r.Assignment.Settlement,
		Balance:      r.Balance(),
	}
}

func eventItem(r records.EventAssignmentRow) DebtItem {
	return DebtItem{
		Kind:         records.KindEvent,
		AssignmentID: r.Assignment.ID,
		WorkerID:     r.Worker.ID,
		WorkerName:   r.Worker.Name,
		ReferrerID:   r.Worker.ReferenceID,
		ReferrerName: r.ReferrerName,
		ParentID:     r.Event.ID,
		ParentName:   r.Event.Name,
		Date:         r.Event.Date,
		Hours:        r.Hours(),
		Terms:        r.Assignment.Terms,
		Settlement:   r.Assignment.Settlement,
		Balance:      r.Balance(),
	}
}

// Items returns every assignment matching f, newest first.
func (s *Service) Items(ctx context.Context, f Filter) ([]DebtItem, error) {
	var items []DebtItem

	if f.wants(records.KindShift) {
		rows, err := s.store.ShiftAssignmentRows(ctx, f.AssignmentFilter)
		if err != nil {
			return nil, err
		}
		for _, r := range rows {
			items = append(items, shiftItem(r))
		}
	}
	if f.wants(records.KindEvent) {
		rows, err := s.store.EventAssignmentRows(ctx, f.AssignmentFilter)
		if err != nil {
			return nil, err
		}
		for _, r := range rows {
			items = append(items, eventItem(r))
		}
	}

	sort.SliceStable(items, func(i, j int) bool {
		return items[i].Date.After(items[j].Date)
	})
	return items, nil
}

// Unpaid returns the items whose worker leg is still owed.
func (s *Service) Unpaid(ctx context.Context, f Filter) ([]DebtItem, error) {
	return s.partition(ctx, f, true)
}

// Paid returns the items whose worker leg is settled.
func (s *Service) Paid(ctx context.Context, f Filter) ([]DebtItem, error) {
	return s.partition(ctx, f, false)
}

func (s *Service) partition(ctx context.Context, f Filter, unpaid bool) ([]DebtItem, error) {
	items, err := s.Items(ctx, f)
	if err != nil {
		return nil, err
	}
	out := make([]DebtItem, 0, len(items))
	for _, it := range items {
		if it.IsUnpaid() == unpaid {
			out = append(out, it)
		}
	}
	return out, nil
}

// Summary is the headline of the unpaid partition.
type Summary struct {
	TotalDebt   decimal.Decimal
	UnpaidShift int
	UnpaidEvent int
}

// Summarize totals the unpaid partition.
func (s *Service) Summarize(ctx context.Context, f Filter) (Summary, error) {
	sum := Summary{TotalDebt: decimal.Zero}

	unpaid, err := s.Unpaid(ctx, f)
	if err != nil {
		return sum, err
	}
	for _, it := range unpaid {
		sum.TotalDebt = sum.TotalDebt.Add(it.TotalNet)
		switch it.Kind {
		case records.KindShift:
			sum.UnpaidShift++
		case records.KindEvent:
			sum.UnpaidEvent++
		}
	}
	return sum, nil
}

// TotalDebt is the sum of both legs' net over the unpaid partition.
func (s *Service) TotalDebt(ctx context.Context, f Filter) (decimal.Decimal, error) {
	sum, err := s.Summarize(ctx, f)
	if err != nil {
		return decimal.Zero, err
	}
	return sum.TotalDebt, nil
}
