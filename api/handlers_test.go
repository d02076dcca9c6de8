/*
handlers_test.go - HTTP tests for the API

Tests for:
- Entity CRUD and not-found/validation mapping
- Assignment creation with the referral rule and duplicate detection
- Payment mutations through HTTP (record, mark paid, revoke)
- Debt projection endpoints, mark-all-paid and the dashboard
- Scenario loading and the live debt stream
*/
package api

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/crew-ledger/store/sqlite"
	"github.com/warp/crew-ledger/worker"
)

func newTestAPI(t *testing.T) (*Handler, http.Handler) {
	t.Helper()
	store, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	queue := worker.NewQueue(zerolog.Nop())
	queue.Start()
	t.Cleanup(queue.Stop)

	h := NewHandler(store, queue, zerolog.Nop())
	return h, NewRouter(h, RouterOptions{AllowedOrigins: []string{"*"}})
}

func call(t *testing.T, router http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func decodeAs[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

// crewFixture creates a project with an 8h shift, an evening event and two
// workers, Ahmed referred by Rosa.
func crewFixture(t *testing.T, router http.Handler) {
	t.Helper()
	for _, req := range []struct {
		path string
		body any
	}{
		{"/api/employers", EmployerRequest{ID: "acme", Name: "Acme"}},
		{"/api/workers", WorkerRequest{ID: "rosa", Name: "Rosa"}},
		{"/api/workers", WorkerRequest{ID: "ahmed", Name: "Ahmed", ReferenceID: strPtr("rosa")}},
		{"/api/projects", ProjectRequest{ID: "warehouse", Name: "Warehouse", StartDate: "2026-03-01", EmployerID: strPtr("acme")}},
		{"/api/shifts", ShiftRequest{ID: "morning", ProjectID: "warehouse", Name: "Morning", Date: "2026-03-02", StartTime: "08:00", EndTime: "16:00"}},
		{"/api/events", EventRequest{ID: "gala", Name: "Gala", Date: "2026-03-05", StartTime: "18:00", EndTime: "23:00", Income: 1500, EmployerID: strPtr("acme")}},
	} {
		rec := call(t, router, http.MethodPost, req.path, req.body)
		require.Equal(t, http.StatusCreated, rec.Code, "%s: %s", req.path, rec.Body.String())
	}
}

func strPtr(s string) *string { return &s }

func f64(v float64) *float64 { return &v }

// =============================================================================
// ENTITIES
// =============================================================================

func TestWorkers_CRUD(t *testing.T) {
	_, router := newTestAPI(t)

	// GIVEN: A new worker
	rec := call(t, router, http.MethodPost, "/api/workers", WorkerRequest{Name: "Maria", Phone: "555-0101"})
	require.Equal(t, http.StatusCreated, rec.Code)
	created := decodeAs[WorkerDTO](t, rec)
	require.NotEmpty(t, created.ID)

	// WHEN: Reading and replacing it
	rec = call(t, router, http.MethodGet, "/api/workers/"+created.ID, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = call(t, router, http.MethodPut, "/api/workers/"+created.ID, WorkerRequest{Name: "Maria Lopez"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Maria Lopez", decodeAs[WorkerDTO](t, rec).Name)

	// THEN: Lookups of unknown ids are 404, and the list holds one worker
	assert.Equal(t, http.StatusNotFound, call(t, router, http.MethodGet, "/api/workers/nobody", nil).Code)
	assert.Equal(t, http.StatusNotFound, call(t, router, http.MethodPut, "/api/workers/nobody", WorkerRequest{Name: "x"}).Code)
	assert.Len(t, decodeAs[[]WorkerDTO](t, call(t, router, http.MethodGet, "/api/workers", nil)), 1)

	rec = call(t, router, http.MethodDelete, "/api/workers/"+created.ID, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestWorkers_ValidationAndReferenceRules(t *testing.T) {
	_, router := newTestAPI(t)

	rec := call(t, router, http.MethodPost, "/api/workers", WorkerRequest{})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	resp := decodeAs[ErrorResponse](t, rec)
	require.Len(t, resp.Fields, 1)
	assert.Equal(t, "name", resp.Fields[0].Field)

	rec = call(t, router, http.MethodPost, "/api/workers", WorkerRequest{ID: "solo", Name: "Solo", ReferenceID: strPtr("solo")})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = call(t, router, http.MethodPost, "/api/workers", WorkerRequest{Name: "Kofi", ReferenceID: strPtr("ghost")})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = call(t, router, http.MethodPost, "/api/workers", WorkerRequest{Name: "Kofi", ReferenceID: strPtr("")})
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Nil(t, decodeAs[WorkerDTO](t, rec).ReferenceID)
}

func TestCreate_TakenIDIsConflict(t *testing.T) {
	_, router := newTestAPI(t)
	crewFixture(t, router)

	// WHEN: Creating a worker under an id that is already in use
	rec := call(t, router, http.MethodPost, "/api/workers", WorkerRequest{ID: "rosa", Name: "Impostor"})

	// THEN: 409, and the stored worker is untouched
	assert.Equal(t, http.StatusConflict, rec.Code)
	rec = call(t, router, http.MethodGet, "/api/workers/rosa", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Rosa", decodeAs[WorkerDTO](t, rec).Name)

	// Same for the other entities
	assert.Equal(t, http.StatusConflict, call(t, router, http.MethodPost, "/api/employers", EmployerRequest{ID: "acme", Name: "Other"}).Code)
	assert.Equal(t, http.StatusConflict, call(t, router, http.MethodPost, "/api/events",
		EventRequest{ID: "gala", Name: "Other", Date: "2026-03-06", StartTime: "18:00", EndTime: "20:00"}).Code)
	assert.Equal(t, http.StatusConflict, call(t, router, http.MethodPost, "/api/shifts",
		ShiftRequest{ID: "morning", ProjectID: "warehouse", Name: "Other", Date: "2026-03-03", StartTime: "08:00", EndTime: "12:00"}).Code)
}

func TestShifts_HoursFromClock(t *testing.T) {
	_, router := newTestAPI(t)
	crewFixture(t, router)

	rec := call(t, router, http.MethodGet, "/api/shifts/morning", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 8.0, decodeAs[ShiftDTO](t, rec).Hours)

	// Overnight wraps past midnight
	rec = call(t, router, http.MethodPost, "/api/shifts", ShiftRequest{
		ProjectID: "warehouse", Name: "Night", Date: "2026-03-02", StartTime: "22:00", EndTime: "06:00",
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, 8.0, decodeAs[ShiftDTO](t, rec).Hours)

	rec = call(t, router, http.MethodPost, "/api/shifts", ShiftRequest{
		ProjectID: "nowhere", Name: "Lost", Date: "2026-03-02", Hours: f64(4),
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = call(t, router, http.MethodPost, "/api/shifts", ShiftRequest{
		ProjectID: "warehouse", Name: "Bad", Date: "2026-03-02", StartTime: "25:00", EndTime: "06:00",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

// =============================================================================
// ASSIGNMENTS AND PAYMENTS
// =============================================================================

func TestShiftAssignment_ReferralRateRequired(t *testing.T) {
	_, router := newTestAPI(t)
	crewFixture(t, router)

	// WHEN: Assigning a referred worker without a commission rate
	rec := call(t, router, http.MethodPost, "/api/shifts/morning/assignments", AssignmentRequest{WorkerID: "ahmed", PayRate: f64(20)})

	// THEN: 400 pointing at the rate
	require.Equal(t, http.StatusBadRequest, rec.Code)
	resp := decodeAs[ErrorResponse](t, rec)
	require.Len(t, resp.Fields, 1)
	assert.Equal(t, "reference_pay_rate", resp.Fields[0].Field)

	// Unknown worker or missing worker_id are rejected too
	assert.Equal(t, http.StatusBadRequest,
		call(t, router, http.MethodPost, "/api/shifts/morning/assignments", AssignmentRequest{WorkerID: "ghost", PayRate: f64(20)}).Code)
	assert.Equal(t, http.StatusBadRequest,
		call(t, router, http.MethodPost, "/api/shifts/morning/assignments", AssignmentRequest{PayRate: f64(20)}).Code)
	assert.Equal(t, http.StatusNotFound,
		call(t, router, http.MethodPost, "/api/shifts/nope/assignments", AssignmentRequest{WorkerID: "rosa", PayRate: f64(20)}).Code)
}

func TestShiftAssignment_DuplicateIsConflict(t *testing.T) {
	_, router := newTestAPI(t)
	crewFixture(t, router)

	req := AssignmentRequest{WorkerID: "rosa", PayRate: f64(22)}
	require.Equal(t, http.StatusCreated, call(t, router, http.MethodPost, "/api/shifts/morning/assignments", req).Code)

	rec := call(t, router, http.MethodPost, "/api/shifts/morning/assignments", req)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestAssignment_PayRateRequired(t *testing.T) {
	_, router := newTestAPI(t)
	crewFixture(t, router)

	// WHEN: Assigning a worker with no pay rate at all
	rec := call(t, router, http.MethodPost, "/api/shifts/morning/assignments", AssignmentRequest{WorkerID: "rosa"})

	// THEN: 400 pointing at pay_rate, and nothing was stored
	require.Equal(t, http.StatusBadRequest, rec.Code)
	resp := decodeAs[ErrorResponse](t, rec)
	require.Len(t, resp.Fields, 1)
	assert.Equal(t, "pay_rate", resp.Fields[0].Field)
	assert.Empty(t, decodeAs[[]AssignmentDTO](t, call(t, router, http.MethodGet, "/api/shifts/morning/assignments", nil)))

	// An explicit zero rate is allowed
	rec = call(t, router, http.MethodPost, "/api/shifts/morning/assignments", AssignmentRequest{WorkerID: "rosa", PayRate: f64(0)})
	require.Equal(t, http.StatusCreated, rec.Code)
	path := "/api/assignments/shift/" + decodeAs[AssignmentDTO](t, rec).ID

	// Replacing the terms without a rate is rejected the same way
	rec = call(t, router, http.MethodPut, path, AssignmentRequest{})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "pay_rate", decodeAs[ErrorResponse](t, rec).Fields[0].Field)
}

func TestAssignment_PaymentLifecycle(t *testing.T) {
	_, router := newTestAPI(t)
	crewFixture(t, router)

	// GIVEN: Ahmed on the 8h shift at 20/h plus 2/h to Rosa
	rec := call(t, router, http.MethodPost, "/api/shifts/morning/assignments",
		AssignmentRequest{WorkerID: "ahmed", PayRate: f64(20), ReferencePayRate: f64(2)})
	require.Equal(t, http.StatusCreated, rec.Code)
	a := decodeAs[AssignmentDTO](t, rec)
	assert.Equal(t, 160.0, a.WorkerPayment)
	assert.Equal(t, 16.0, a.ReferencePayment)
	assert.Equal(t, "unpaid", a.State)
	path := "/api/assignments/shift/" + a.ID

	total := decodeAs[DebtSummaryDTO](t, call(t, router, http.MethodGet, "/api/debts/total", nil))
	assert.Equal(t, 176.0, total.TotalDebt)
	assert.Equal(t, 1, total.UnpaidShift)

	// WHEN: Paying more than owed
	rec = call(t, router, http.MethodPost, path+"/payments", RecordPaymentRequest{Amount: 600})

	// THEN: Rejected with a field error, nothing stored
	require.Equal(t, http.StatusBadRequest, rec.Code)
	resp := decodeAs[ErrorResponse](t, rec)
	require.Len(t, resp.Fields, 1)
	assert.Equal(t, "exceeds_balance", resp.Fields[0].Code)
	assert.Equal(t, 0.0, decodeAs[AssignmentDTO](t, call(t, router, http.MethodGet, path, nil)).AmountPaid)

	// WHEN: Paying part of it
	rec = call(t, router, http.MethodPost, path+"/payments", RecordPaymentRequest{Amount: 100})
	require.Equal(t, http.StatusOK, rec.Code)
	a = decodeAs[AssignmentDTO](t, rec)
	assert.Equal(t, "partially_paid", a.State)
	assert.Equal(t, 76.0, a.TotalNet)

	// WHEN: Marking it paid
	rec = call(t, router, http.MethodPost, path+"/pay", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	a = decodeAs[AssignmentDTO](t, rec)
	assert.True(t, a.IsPaid)
	assert.Equal(t, 160.0, a.AmountPaid)
	assert.Equal(t, 16.0, a.ReferenceAmountPaid)
	assert.Empty(t, decodeAs[[]AssignmentDTO](t, call(t, router, http.MethodGet, "/api/debts/unpaid", nil)))
	assert.Len(t, decodeAs[[]AssignmentDTO](t, call(t, router, http.MethodGet, "/api/debts/paid", nil)), 1)

	// WHEN: Revoking
	rec = call(t, router, http.MethodPost, path+"/revoke", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	a = decodeAs[AssignmentDTO](t, rec)

	// THEN: Back to the unpaid state it started in
	assert.False(t, a.IsPaid)
	assert.Equal(t, 0.0, a.AmountPaid)
	assert.Equal(t, 176.0, a.TotalNet)
	unpaid := decodeAs[[]AssignmentDTO](t, call(t, router, http.MethodGet, "/api/debts/unpaid", nil))
	require.Len(t, unpaid, 1)
	assert.Equal(t, "Ahmed", unpaid[0].WorkerName)
	assert.Equal(t, "Rosa", unpaid[0].ReferrerName)
	assert.Equal(t, "Warehouse", unpaid[0].ProjectName)
}

func TestAssignment_UpdateKeepsSettlement(t *testing.T) {
	_, router := newTestAPI(t)
	crewFixture(t, router)

	rec := call(t, router, http.MethodPost, "/api/shifts/morning/assignments", AssignmentRequest{WorkerID: "rosa", PayRate: f64(20)})
	require.Equal(t, http.StatusCreated, rec.Code)
	path := "/api/assignments/shift/" + decodeAs[AssignmentDTO](t, rec).ID
	require.Equal(t, http.StatusOK, call(t, router, http.MethodPost, path+"/pay", nil).Code)

	// WHEN: Raising the rate after payment
	rec = call(t, router, http.MethodPut, path, AssignmentRequest{PayRate: f64(25)})
	require.Equal(t, http.StatusOK, rec.Code)
	a := decodeAs[AssignmentDTO](t, rec)

	// THEN: The paid amount stays and the difference shows as owed
	assert.Equal(t, 200.0, a.WorkerPayment)
	assert.Equal(t, 160.0, a.AmountPaid)
	assert.True(t, a.IsPaid)
	assert.Equal(t, 40.0, a.NetPayment)
	assert.Equal(t, "partially_paid", a.State)

	assert.Equal(t, http.StatusNotFound, call(t, router, http.MethodPut, "/api/assignments/shift/missing", AssignmentRequest{PayRate: f64(1)}).Code)
	assert.Equal(t, http.StatusBadRequest, call(t, router, http.MethodGet, "/api/assignments/crane/x", nil).Code)
}

func TestEventAssignment_HoursDefaultToEvent(t *testing.T) {
	_, router := newTestAPI(t)
	crewFixture(t, router)

	rec := call(t, router, http.MethodPost, "/api/events/gala/assignments", AssignmentRequest{WorkerID: "rosa", PayRate: f64(25)})
	require.Equal(t, http.StatusCreated, rec.Code)
	a := decodeAs[AssignmentDTO](t, rec)
	assert.Equal(t, 5.0, a.Hours)
	assert.Equal(t, 125.0, a.WorkerPayment)

	rec = call(t, router, http.MethodPost, "/api/events/gala/assignments",
		AssignmentRequest{WorkerID: "ahmed", PayRate: f64(25), ReferencePayRate: f64(15), IsReferenceHourlyRate: new(bool), Hours: f64(3)})
	require.Equal(t, http.StatusCreated, rec.Code)
	a = decodeAs[AssignmentDTO](t, rec)
	assert.Equal(t, 75.0, a.WorkerPayment)
	assert.Equal(t, 15.0, a.ReferencePayment)

	cost := decodeAs[CostDTO](t, call(t, router, http.MethodGet, "/api/events/gala/cost", nil))
	assert.Equal(t, 215.0, cost.Cost)
	fin := decodeAs[FinancialsDTO](t, call(t, router, http.MethodGet, "/api/events/gala/financials", nil))
	assert.Equal(t, 1285.0, fin.Profit)
}

// =============================================================================
// DEBTS, SCENARIOS, DASHBOARD
// =============================================================================

func TestScenario_ReferralCrewFigures(t *testing.T) {
	_, router := newTestAPI(t)

	rec := call(t, router, http.MethodPost, "/api/scenarios/load", LoadScenarioRequest{ScenarioID: "referral-crew"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "referral-crew", decodeAs[ScenarioDTO](t, call(t, router, http.MethodGet, "/api/scenarios/current", nil)).ID)

	total := decodeAs[DebtSummaryDTO](t, call(t, router, http.MethodGet, "/api/debts/total", nil))
	assert.Equal(t, 469.0, total.TotalDebt)
	assert.Equal(t, 3, total.UnpaidShift)
	assert.Equal(t, 1, total.UnpaidEvent)

	commissions := decodeAs[[]AssignmentDTO](t, call(t, router, http.MethodGet, "/api/debts/unpaid?referrer_id=w-rosa", nil))
	assert.Len(t, commissions, 4)
	shiftsOnly := decodeAs[[]AssignmentDTO](t, call(t, router, http.MethodGet, "/api/debts/unpaid?kind=shift", nil))
	assert.Len(t, shiftsOnly, 3)
	assert.Equal(t, http.StatusBadRequest, call(t, router, http.MethodGet, "/api/debts/unpaid?kind=crane", nil).Code)

	dash := decodeAs[DashboardDTO](t, call(t, router, http.MethodGet, "/api/dashboard", nil))
	assert.Equal(t, 469.0, dash.TotalDebt)
	require.Len(t, dash.Employers, 1)
	assert.Equal(t, 3400.0, dash.Employers[0].Income)
	assert.Equal(t, 895.0, dash.Employers[0].Expense)
	assert.Equal(t, 2505.0, dash.Employers[0].Profit)

	totals := decodeAs[WorkerTotalsDTO](t, call(t, router, http.MethodGet, "/api/workers/w-rosa/totals", nil))
	assert.Equal(t, 150.0, totals.Earned)
	assert.Equal(t, 50.0, totals.Commission)
	assert.Equal(t, 50.0, totals.Paid)
}

func TestScenario_Unknown(t *testing.T) {
	_, router := newTestAPI(t)
	rec := call(t, router, http.MethodPost, "/api/scenarios/load", LoadScenarioRequest{ScenarioID: "nope"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "null\n", call(t, router, http.MethodGet, "/api/scenarios/current", nil).Body.String())
}

func TestMarkAllPaid_SettlesFilteredDebts(t *testing.T) {
	_, router := newTestAPI(t)
	require.Equal(t, http.StatusOK,
		call(t, router, http.MethodPost, "/api/scenarios/load", LoadScenarioRequest{ScenarioID: "referral-crew"}).Code)

	// WHEN: Settling only events
	rec := call(t, router, http.MethodPost, "/api/debts/mark-all-paid?kind=event", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	res := decodeAs[BulkResultDTO](t, rec)
	assert.Equal(t, BulkResultDTO{Total: 1, Marked: 1}, res)

	// THEN: Shifts are still owed
	total := decodeAs[DebtSummaryDTO](t, call(t, router, http.MethodGet, "/api/debts/total", nil))
	assert.Equal(t, 329.0, total.TotalDebt)
	assert.Equal(t, 0, total.UnpaidEvent)

	// WHEN: Settling everything
	res = decodeAs[BulkResultDTO](t, call(t, router, http.MethodPost, "/api/debts/mark-all-paid", nil))
	assert.Equal(t, 3, res.Marked)
	total = decodeAs[DebtSummaryDTO](t, call(t, router, http.MethodGet, "/api/debts/total", nil))
	assert.Equal(t, 0.0, total.TotalDebt)
}

func TestReset_ClearsEverything(t *testing.T) {
	_, router := newTestAPI(t)
	require.Equal(t, http.StatusOK,
		call(t, router, http.MethodPost, "/api/scenarios/load", LoadScenarioRequest{ScenarioID: "single-shift"}).Code)

	require.Equal(t, http.StatusOK, call(t, router, http.MethodPost, "/api/reset", nil).Code)
	assert.Empty(t, decodeAs[[]WorkerDTO](t, call(t, router, http.MethodGet, "/api/workers", nil)))
}

func TestDigest_PerWorkerOutstanding(t *testing.T) {
	h, router := newTestAPI(t)
	require.Equal(t, http.StatusOK,
		call(t, router, http.MethodPost, "/api/scenarios/load", LoadScenarioRequest{ScenarioID: "referral-crew"}).Code)

	// Without a scheduler the endpoint builds a digest on the spot
	rec := call(t, router, http.MethodGet, "/api/debts/digest", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 469.0, decodeAs[DigestDTO](t, rec).TotalDebt)

	ds := NewDigestScheduler(h.Debts, "", zerolog.Nop())
	assert.Nil(t, ds.Last())
	d, err := ds.RunOnce(context.Background())
	require.NoError(t, err)

	require.Len(t, d.Workers, 3)
	assert.Equal(t, "w-ahmed", d.Workers[0].WorkerID)
	assert.Equal(t, "275", d.Workers[0].Outstanding.String())
	assert.Equal(t, "w-li", d.Workers[1].WorkerID)
	assert.Equal(t, "w-rosa", d.Workers[2].WorkerID)
	assert.Equal(t, "50", d.Workers[2].Outstanding.String())
	assert.Equal(t, "469", d.Summary.TotalDebt.String())
	assert.NotNil(t, ds.Last())

	// The endpoint serves the last run once the scheduler is attached
	h.Digest = ds
	rec = call(t, router, http.MethodGet, "/api/debts/digest", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	served := decodeAs[DigestDTO](t, rec)
	assert.Equal(t, d.At.Format(time.RFC3339), served.At)
	assert.Equal(t, 469.0, served.TotalDebt)
	require.Len(t, served.Workers, 3)
	assert.Equal(t, 275.0, served.Workers[0].Outstanding)

	// An empty schedule never starts a cron
	require.NoError(t, ds.Start())
	ds.Stop()
}

func TestStreamDebts_PushesOnWrite(t *testing.T) {
	_, router := newTestAPI(t)
	crewFixture(t, router)
	srv := httptest.NewServer(router)
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/api/stream/debts", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	lines := bufio.NewScanner(resp.Body)
	next := func() DebtSummaryDTO {
		for lines.Scan() {
			if data, ok := strings.CutPrefix(lines.Text(), "data: "); ok {
				var sum DebtSummaryDTO
				require.NoError(t, json.Unmarshal([]byte(data), &sum))
				return sum
			}
		}
		t.Fatalf("stream ended: %v", lines.Err())
		return DebtSummaryDTO{}
	}

	// GIVEN: Nothing owed on connect
	assert.Equal(t, 0.0, next().TotalDebt)

	// WHEN: Someone is assigned
	rec := call(t, router, http.MethodPost, "/api/shifts/morning/assignments", AssignmentRequest{WorkerID: "rosa", PayRate: f64(20)})
	require.Equal(t, http.StatusCreated, rec.Code)

	// THEN: The new total is pushed
	sum := next()
	assert.Equal(t, 160.0, sum.TotalDebt)
	assert.Equal(t, 1, sum.UnpaidShift)
}
