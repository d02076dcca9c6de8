/*
Package aggregate computes money summaries over joined assignment rows.

PURPOSE:
  Per-worker totals, per-shift/event cost, project income and employer
  income/expense/profit. Nothing here is stored: every figure is summed from
  the rows the store returns at the time of the call.

FORMULAS:
  Assignment total   = worker leg + referral leg (payment.TotalPayment)
  Worker earned      = worker leg of the worker's own assignments
  Worker commission  = referral leg of assignments of workers they referred
  Worker net         = earned + commission - standalone payments
  Project income     = fixed entries + per-unit entries (amount x units)
  Employer income    = income of owned projects + income of owned events
  Employer expense   = assignment totals in owned projects and events

ZERO COALESCING:
  Every sum starts at decimal.Zero, so a scope with no rows is 0. An empty
  id never widens into "everything": it yields zero.

SEE ALSO:
  - records/store.go: Reader
  - payment/calculator.go: per-assignment formulas
*/
package aggregate

import (
	"context"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/warp/crew-ledger/records"
)

// Service answers aggregate queries.
type Service struct {
	reader records.Reader
	logger zerolog.Logger
}

// NewService creates a Service reading from reader.
func NewService(reader records.Reader, logger zerolog.Logger) *Service {
	return &Service{
		reader: reader,
		logger: logger.With().Str("component", "aggregate").Logger(),
	}
}

// WorkerTotals is what a worker has earned and been paid.
type WorkerTotals struct {
	Earned     decimal.Decimal
	Commission decimal.Decimal
	Paid       decimal.Decimal
	Net        decimal.Decimal
}

// ProjectIncome splits project income by entry kind.
type ProjectIncome struct {
	Fixed    decimal.Decimal
	NonFixed decimal.Decimal
	Total    decimal.Decimal
}

// Financials is income against expense.
type Financials struct {
	Income  decimal.Decimal
	Expense decimal.Decimal
	Profit  decimal.Decimal
}

func newFinancials(income, expense decimal.Decimal) Financials {
	return Financials{Income: income, Expense: expense, Profit: income.Sub(expense)}
}

func zeroTotals() WorkerTotals {
	return WorkerTotals{Earned: decimal.Zero, Commission: decimal.Zero, Paid: decimal.Zero, Net: decimal.Zero}
}

func zeroFinancials() Financials {
	return newFinancials(decimal.Zero, decimal.Zero)
}

// =============================================================================
// WORKERS
// =============================================================================

// WorkerTotals sums the worker's own pay, their referral commission and the
// standalone payments made to them.
func (s *Service) WorkerTotals(ctx context.Context, workerID string) (WorkerTotals, error) {
	if workerID == "" {
		return zeroTotals(), nil
	}

	own := records.AssignmentFilter{WorkerID: workerID}
	referred := records.AssignmentFilter{ReferrerID: workerID}

	earned, err := s.sumRows(ctx, own, func(b records.Balance) decimal.Decimal { return b.WorkerPayment })
	if err != nil {
		return zeroTotals(), err
	}
	commission, err := s.sumRows(ctx, referred, func(b records.Balance) decimal.Decimal { return b.ReferencePayment })
	if err != nil {
		return zeroTotals(), err
	}

	payments, err := s.reader.ListPayments(ctx, records.PaymentFilter{WorkerID: workerID})
	if err != nil {
		return zeroTotals(), err
	}
	paid := decimal.Zero
	for _, p := range payments {
		paid = paid.Add(p.Amount)
	}

	totals := WorkerTotals{
		Earned:     earned,
		Commission: commission,
		Paid:       paid,
		Net:        earned.Add(commission).Sub(paid),
	}
	s.logger.Debug().
		Str("worker_id", workerID).
		Str("net", totals.Net.String()).
		Msg("worker totals computed")
	return totals, nil
}

// =============================================================================
// SHIFTS, EVENTS, PROJECTS
// =============================================================================

// ShiftCost is the total of both legs over the shift's assignments.
func (s *Service) ShiftCost(ctx context.Context, shiftID string) (decimal.Decimal, error) {
	if shiftID == "" {
		return decimal.Zero, nil
	}
	return s.sumRows(ctx, records.AssignmentFilter{ShiftID: shiftID}, records.Balance.Total)
}

// EventCost is the total of both legs over the event's assignments.
func (s *Service) EventCost(ctx context.Context, eventID string) (decimal.Decimal, error) {
	if eventID == "" {
		return decimal.Zero, nil
	}
	return s.sumRows(ctx, records.AssignmentFilter{EventID: eventID}, records.Balance.Total)
}

// ProjectCost is the total of both legs over every shift in the project.
func (s *Service) ProjectCost(ctx context.Context, projectID string) (decimal.Decimal, error) {
	if projectID == "" {
		return decimal.Zero, nil
	}
	return s.sumRows(ctx, records.AssignmentFilter{ProjectID: projectID}, records.Balance.Total)
}

// ProjectIncome sums fixed and per-unit income entries separately and adds
// them for the total.
func (s *Service) ProjectIncome(ctx context.Context, projectID string) (ProjectIncome, error) {
	income := ProjectIncome{Fixed: decimal.Zero, NonFixed: decimal.Zero, Total: decimal.Zero}
	if projectID == "" {
		return income, nil
	}

	entries, err := s.reader.ListIncomeEntries(ctx, records.IncomeFilter{ProjectID: projectID})
	if err != nil {
		return income, err
	}
	for _, e := range entries {
		if e.IsFixed {
			income.Fixed = income.Fixed.Add(e.Value())
		} else {
			income.NonFixed = income.NonFixed.Add(e.Value())
		}
	}
	income.Total = income.Fixed.Add(income.NonFixed)
	return income, nil
}

// ProjectFinancials is project income against the cost of its shifts.
func (s *Service) ProjectFinancials(ctx context.Context, projectID string) (Financials, error) {
	income, err := s.ProjectIncome(ctx, projectID)
	if err != nil {
		return zeroFinancials(), err
	}
	cost, err := s.ProjectCost(ctx, projectID)
	if err != nil {
		return zeroFinancials(), err
	}
	return newFinancials(income.Total, cost), nil
}

// EventFinancials is the event's income against its assignment cost.
// A missing event yields zero.
func (s *Service) EventFinancials(ctx context.Context, eventID string) (Financials, error) {
	if eventID == "" {
		return zeroFinancials(), nil
	}
	event, err := s.reader.GetEvent(ctx, eventID)
	if err != nil {
		return zeroFinancials(), err
	}
	if event == nil {
		return zeroFinancials(), nil
	}
	cost, err := s.EventCost(ctx, eventID)
	if err != nil {
		return zeroFinancials(), err
	}
	return newFinancials(event.Income, cost), nil
}

// =============================================================================
// EMPLOYERS
// =============================================================================

// EmployerFinancials covers only projects and events owned by the employer.
func (s *Service) EmployerFinancials(ctx context.Context, employerID string) (Financials, error) {
	if employerID == "" {
		return zeroFinancials(), nil
	}

	var (
		projectIncome = decimal.Zero
		eventIncome   = decimal.Zero
		expense       = decimal.Zero
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		entries, err := s.reader.ListIncomeEntries(gctx, records.IncomeFilter{EmployerID: employerID})
		if err != nil {
			return err
		}
		for _, e := range entries {
			projectIncome = projectIncome.Add(e.Value())
		}
		return nil
	})
	g.Go(func() error {
		events, err := s.reader.ListEvents(gctx, records.EventFilter{EmployerID: employerID})
		if err != nil {
			return err
		}
		for _, e := range events {
			eventIncome = eventIncome.Add(e.Income)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		expense, err = s.sumRows(gctx, records.AssignmentFilter{EmployerID: employerID}, records.Balance.Total)
		return err
	})
	if err := g.Wait(); err != nil {
		return zeroFinancials(), err
	}

	return newFinancials(projectIncome.Add(eventIncome), expense), nil
}

// =============================================================================
// HELPERS
// =============================================================================

// sumRows prices every shift and event row matching f and sums pick(balance).
func (s *Service) sumRows(ctx context.Context, f records.AssignmentFilter, pick func(records.Balance) decimal.Decimal) (decimal.Decimal, error) {
	total := decimal.Zero

	shiftRows, err := s.reader.ShiftAssignmentRows(ctx, f)
	if err != nil {
		return decimal.Zero, err
	}
	for _, r := range shiftRows {
		total = total.Add(pick(r.Balance()))
	}

	eventRows, err := s.reader.EventAssignmentRows(ctx, f)
	if err != nil {
		return decimal.Zero, err
	}
	for _, r := range eventRows {
		total = total.Add(pick(r.Balance()))
	}

	return total, nil
}

// OrZero logs err and returns the zero value in its place, so a failed
// aggregate renders as 0 instead of failing the caller.
func OrZero[T any](logger zerolog.Logger, op string, value T, err error) T {
	if err != nil {
		logger.Error().Err(err).Str("op", op).Msg("aggregate failed, using zero")
		var zero T
		return zero
	}
	return value
}
