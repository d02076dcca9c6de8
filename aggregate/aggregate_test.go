package aggregate_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/crew-ledger/aggregate"
	"github.com/warp/crew-ledger/records"
	"github.com/warp/crew-ledger/store/sqlite"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func ptr(d decimal.Decimal) *decimal.Decimal { return &d }

func strPtr(s string) *string { return &s }

func day(s string) time.Time {
	t, _ := time.Parse(records.DateLayout, s)
	return t
}

func assertDec(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	assert.True(t, got.Equal(dec(want)), "want %s, got %s", want, got)
}

type fixture struct {
	store *sqlite.Store
	svc   *aggregate.Service
}

// newFixture builds:
//
//	Rosa (referrer) <- Ahmed (referred)
//	Acme owns project Warehouse (shift Morning, 8h) and event Gala (income 900)
//	project Side and event Pop-up have no employer
func newFixture(t *testing.T) fixture {
	t.Helper()
	ctx := context.Background()

	store, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	require.NoError(t, store.SaveWorker(ctx, records.Worker{ID: "rosa", Name: "Rosa"}))
	require.NoError(t, store.SaveWorker(ctx, records.Worker{ID: "ahmed", Name: "Ahmed", ReferenceID: strPtr("rosa")}))
	require.NoError(t, store.SaveEmployer(ctx, records.Employer{ID: "acme", Name: "Acme"}))

	require.NoError(t, store.SaveProject(ctx, records.Project{ID: "warehouse", Name: "Warehouse",
		StartDate: day("2026-03-01"), EmployerID: strPtr("acme")}))
	require.NoError(t, store.SaveProject(ctx, records.Project{ID: "side", Name: "Side", StartDate: day("2026-03-01")}))

	require.NoError(t, store.SaveShift(ctx, records.Shift{ID: "morning", ProjectID: "warehouse", Name: "Morning",
		Date: day("2026-03-02"), Hours: dec("8")}))
	require.NoError(t, store.SaveShift(ctx, records.Shift{ID: "side-shift", ProjectID: "side", Name: "Side",
		Date: day("2026-03-02"), Hours: dec("4")}))

	require.NoError(t, store.SaveEvent(ctx, records.Event{ID: "gala", Name: "Gala", Date: day("2026-03-05"),
		Hours: dec("6"), Income: dec("900"), EmployerID: strPtr("acme")}))
	require.NoError(t, store.SaveEvent(ctx, records.Event{ID: "popup", Name: "Pop-up", Date: day("2026-03-06"),
		Hours: dec("3"), Income: dec("200")}))

	return fixture{store: store, svc: aggregate.NewService(store, zerolog.Nop())}
}

func (f fixture) assignAhmedMorning(t *testing.T) {
	t.Helper()
	// 50/h x 8 = 400, referral 10/h x 8 = 80
	require.NoError(t, f.store.InsertShiftAssignment(context.Background(), records.ShiftAssignment{
		ID: "a-morning", ShiftID: "morning", WorkerID: "ahmed",
		Terms: records.Terms{IsHourlyRate: true, PayRate: dec("50"), ReferencePayRate: ptr(dec("10")), IsReferenceHourlyRate: true},
	}))
}

func (f fixture) assignAhmedGala(t *testing.T) {
	t.Helper()
	// fixed 300, referral fixed 25
	require.NoError(t, f.store.InsertEventAssignment(context.Background(), records.EventAssignment{
		ID: "a-gala", EventID: "gala", WorkerID: "ahmed", Hours: dec("6"),
		Terms: records.Terms{PayRate: dec("300"), ReferencePayRate: ptr(dec("25"))},
	}))
}

// =============================================================================
// ZERO COALESCING
// =============================================================================

func TestEmptyScopesAreZero(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	totals, err := f.svc.WorkerTotals(ctx, "rosa")
	require.NoError(t, err)
	assertDec(t, "0", totals.Net)

	cost, err := f.svc.ShiftCost(ctx, "morning")
	require.NoError(t, err)
	assertDec(t, "0", cost)

	income, err := f.svc.ProjectIncome(ctx, "warehouse")
	require.NoError(t, err)
	assertDec(t, "0", income.Total)

	fin, err := f.svc.EmployerFinancials(ctx, "nobody")
	require.NoError(t, err)
	assertDec(t, "0", fin.Income)
	assertDec(t, "0", fin.Expense)
	assertDec(t, "0", fin.Profit)
}

func TestEmptyIDNeverMeansEverything(t *testing.T) {
	f := newFixture(t)
	f.assignAhmedMorning(t)

	cost, err := f.svc.ShiftCost(context.Background(), "")
	require.NoError(t, err)
	assertDec(t, "0", cost)

	fin, err := f.svc.EmployerFinancials(context.Background(), "")
	require.NoError(t, err)
	assertDec(t, "0", fin.Expense)
}

// =============================================================================
// WORKERS
// =============================================================================

func TestWorkerTotals_EarnedCommissionAndPayments(t *testing.T) {
	// GIVEN: Ahmed works a shift and an event, Rosa referred him
	f := newFixture(t)
	f.assignAhmedMorning(t)
	f.assignAhmedGala(t)
	ctx := context.Background()

	require.NoError(t, f.store.SavePayment(ctx, records.Payment{
		ID: "pay-1", WorkerID: "ahmed", Amount: dec("150"), DatePaid: day("2026-03-10"),
	}))

	// WHEN
	ahmed, err := f.svc.WorkerTotals(ctx, "ahmed")
	require.NoError(t, err)
	rosa, err := f.svc.WorkerTotals(ctx, "rosa")
	require.NoError(t, err)

	// THEN: Ahmed earns only his own leg, Rosa only the commission
	assertDec(t, "700", ahmed.Earned)
	assertDec(t, "0", ahmed.Commission)
	assertDec(t, "150", ahmed.Paid)
	assertDec(t, "550", ahmed.Net)

	assertDec(t, "0", rosa.Earned)
	assertDec(t, "105", rosa.Commission)
	assertDec(t, "105", rosa.Net)
}

// =============================================================================
// SHIFTS, EVENTS, PROJECTS
// =============================================================================

func TestShiftAndEventCostIncludeReferral(t *testing.T) {
	f := newFixture(t)
	f.assignAhmedMorning(t)
	f.assignAhmedGala(t)
	ctx := context.Background()

	shiftCost, err := f.svc.ShiftCost(ctx, "morning")
	require.NoError(t, err)
	assertDec(t, "480", shiftCost)

	eventCost, err := f.svc.EventCost(ctx, "gala")
	require.NoError(t, err)
	assertDec(t, "325", eventCost)

	fin, err := f.svc.EventFinancials(ctx, "gala")
	require.NoError(t, err)
	assertDec(t, "900", fin.Income)
	assertDec(t, "575", fin.Profit)
}

func TestProjectIncome_FixedPlusNonFixed(t *testing.T) {
	f := newFixture(t)
	f.assignAhmedMorning(t)
	ctx := context.Background()

	require.NoError(t, f.store.SaveIncomeEntry(ctx, records.IncomeEntry{
		ID: "fee", ProjectID: "warehouse", Date: day("2026-03-01"), Amount: dec("1000"), Units: dec("5"), IsFixed: true,
	}))
	require.NoError(t, f.store.SaveIncomeEntry(ctx, records.IncomeEntry{
		ID: "pallets", ProjectID: "warehouse", Date: day("2026-03-02"), Amount: dec("12.5"), Units: dec("40"),
	}))

	income, err := f.svc.ProjectIncome(ctx, "warehouse")
	require.NoError(t, err)
	assertDec(t, "1000", income.Fixed)
	assertDec(t, "500", income.NonFixed)
	assertDec(t, "1500", income.Total)

	fin, err := f.svc.ProjectFinancials(ctx, "warehouse")
	require.NoError(t, err)
	assertDec(t, "480", fin.Expense)
	assertDec(t, "1020", fin.Profit)
}

// =============================================================================
// EMPLOYERS
// =============================================================================

func TestEmployerFinancials_ExcludesUnowned(t *testing.T) {
	// GIVEN: work and income on both owned and unowned projects/events
	f := newFixture(t)
	f.assignAhmedMorning(t)
	f.assignAhmedGala(t)
	ctx := context.Background()

	require.NoError(t, f.store.InsertShiftAssignment(ctx, records.ShiftAssignment{
		ID: "a-side", ShiftID: "side-shift", WorkerID: "rosa",
		Terms: records.Terms{IsHourlyRate: true, PayRate: dec("40")},
	}))
	require.NoError(t, f.store.SaveIncomeEntry(ctx, records.IncomeEntry{
		ID: "i-owned", ProjectID: "warehouse", Date: day("2026-03-01"), Amount: dec("2000"), Units: dec("1"), IsFixed: true,
	}))
	require.NoError(t, f.store.SaveIncomeEntry(ctx, records.IncomeEntry{
		ID: "i-side", ProjectID: "side", Date: day("2026-03-01"), Amount: dec("700"), Units: dec("1"), IsFixed: true,
	}))

	// WHEN
	fin, err := f.svc.EmployerFinancials(ctx, "acme")
	require.NoError(t, err)

	// THEN: income 2000 + 900 (gala), expense 480 + 325
	assertDec(t, "2900", fin.Income)
	assertDec(t, "805", fin.Expense)
	assertDec(t, "2095", fin.Profit)
}

// =============================================================================
// FAILURES
// =============================================================================

type failingReader struct{ records.Reader }

func (failingReader) ShiftAssignmentRows(context.Context, records.AssignmentFilter) ([]records.ShiftAssignmentRow, error) {
	return nil, errors.New("disk on fire")
}

func TestOrZero_ResolvesFailureToZero(t *testing.T) {
	svc := aggregate.NewService(failingReader{}, zerolog.Nop())

	cost, err := svc.ShiftCost(context.Background(), "morning")
	require.Error(t, err)

	got := aggregate.OrZero(zerolog.Nop(), "shift_cost", cost, err)
	assert.True(t, got.IsZero())

	kept := aggregate.OrZero(zerolog.Nop(), "shift_cost", dec("12.5"), nil)
	assertDec(t, "12.5", kept)
}
