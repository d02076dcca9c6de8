/*
handlers.go - HTTP API handlers for the crew ledger

PURPOSE:
  Exposes the ledger via REST API. Handles HTTP request/response, JSON
  serialization, and delegates to the store and the domain services.

ENDPOINTS (this file):
  Workers:    CRUD, /{id}/totals, /{id}/debts, /{id}/payments
  Employers:  CRUD, /{id}/financials
  Projects:   CRUD, /{id}/income, /{id}/financials, /{id}/income-entries
  Shifts:     CRUD, /{id}/cost
  Events:     CRUD, /{id}/cost, /{id}/financials
  Payments:   list, create, delete

  Assignments and debts live in assignments.go, the live stream and the
  dashboard in stream.go, scenarios in scenarios.go.

ARCHITECTURE:
  Handler struct holds all dependencies:
  - Store: Database access
  - Aggregates: earned/cost/income/profit queries
  - Debts: unpaid/paid projection and payment mutations
  - Queue: every write goes through it, one at a time

REQUEST FLOW:
  1. Parse and validate the request (decode)
  2. Run the write on the queue, or read directly
  3. Serialize response
  4. Map errors (writeDomainError)

SECURITY NOTE:
  No authentication or authorization. All endpoints are public.

SEE ALSO:
  - dto.go: Request/response data structures
  - errors.go: Error mapping
  - server.go: Router setup and middleware
*/
package api

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/warp/crew-ledger/aggregate"
	"github.com/warp/crew-ledger/debts"
	"github.com/warp/crew-ledger/records"
	"github.com/warp/crew-ledger/store/sqlite"
	"github.com/warp/crew-ledger/worker"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Store      *sqlite.Store
	Aggregates *aggregate.Service
	Debts      *debts.Service
	Queue      *worker.Queue
	// Digest, when set, serves its last run on /api/debts/digest.
	Digest *DigestScheduler

	logger zerolog.Logger

	// Track currently loaded scenario
	mu              sync.RWMutex
	currentScenario string
}

// NewHandler creates a handler over store. The queue must be started by the
// caller.
func NewHandler(store *sqlite.Store, queue *worker.Queue, logger zerolog.Logger) *Handler {
	return &Handler{
		Store:      store,
		Aggregates: aggregate.NewService(store, logger),
		Debts:      debts.NewService(store, logger),
		Queue:      queue,
		logger:     logger.With().Str("component", "api").Logger(),
	}
}

// mutate runs fn on the write queue and waits for it. On failure the error
// response has been written and mutate returns false.
func (h *Handler) mutate(w http.ResponseWriter, r *http.Request, op string, fn func(context.Context) error) bool {
	if err := h.Queue.Do(r.Context(), fn); err != nil {
		writeDomainError(w, h.logger, op, err)
		return false
	}
	return true
}

// find loads the record named by the {id} URL parameter, answering 404 when
// it does not exist.
func find[T any](h *Handler, w http.ResponseWriter, r *http.Request, what string,
	get func(context.Context, string) (*T, error)) (*T, bool) {
	rec, err := get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, h.logger, "load "+what, err)
		return nil, false
	}
	if rec == nil {
		writeError(w, http.StatusNotFound, what+" not found", nil)
		return nil, false
	}
	return rec, true
}

// optionalID turns an empty id into no id.
func optionalID(id *string) *string {
	if id == nil || strings.TrimSpace(*id) == "" {
		return nil
	}
	return id
}

func idOrNew(id string) string {
	if id == "" {
		return records.NewID()
	}
	return id
}

// ensureNew rejects a create whose client-supplied id is already taken. It
// runs on the write queue so two creates cannot both pass it.
func ensureNew[T any](ctx context.Context, what, id string, get func(context.Context, string) (*T, error)) error {
	rec, err := get(ctx, id)
	if err != nil {
		return err
	}
	if rec != nil {
		return fmt.Errorf("%w: %s %s", records.ErrAlreadyExists, what, id)
	}
	return nil
}

// =============================================================================
// WORKER HANDLERS
// =============================================================================

func (h *Handler) ListWorkers(w http.ResponseWriter, r *http.Request) {
	workers, err := h.Store.ListWorkers(r.Context())
	if err != nil {
		writeDomainError(w, h.logger, "list workers", err)
		return
	}
	dtos := make([]WorkerDTO, len(workers))
	for i, wk := range workers {
		dtos[i] = toWorkerDTO(wk)
	}
	writeJSON(w, http.StatusOK, dtos)
}

func (h *Handler) GetWorker(w http.ResponseWriter, r *http.Request) {
	wk, ok := find(h, w, r, "Worker", h.Store.GetWorker)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, toWorkerDTO(*wk))
}

func (h *Handler) CreateWorker(w http.ResponseWriter, r *http.Request) {
	var req WorkerRequest
	if !decode(w, r, &req) {
		return
	}
	h.saveWorker(w, r, records.Worker{
		ID:          idOrNew(req.ID),
		Name:        req.Name,
		Phone:       req.Phone,
		ReferenceID: optionalID(req.ReferenceID),
	}, http.StatusCreated)
}

// UpdateWorker replaces a worker. Changing the reference does not touch
// existing assignments' commission rates.
func (h *Handler) UpdateWorker(w http.ResponseWriter, r *http.Request) {
	existing, ok := find(h, w, r, "Worker", h.Store.GetWorker)
	if !ok {
		return
	}
	var req WorkerRequest
	if !decode(w, r, &req) {
		return
	}
	h.saveWorker(w, r, records.Worker{
		ID:          existing.ID,
		Name:        req.Name,
		Phone:       req.Phone,
		ReferenceID: optionalID(req.ReferenceID),
		CreatedAt:   existing.CreatedAt,
	}, http.StatusOK)
}

func (h *Handler) saveWorker(w http.ResponseWriter, r *http.Request, wk records.Worker, status int) {
	if !h.mutate(w, r, "save worker", func(ctx context.Context) error {
		if status == http.StatusCreated {
			if err := ensureNew(ctx, "worker", wk.ID, h.Store.GetWorker); err != nil {
				return err
			}
		}
		return h.Store.SaveWorker(ctx, wk)
	}) {
		return
	}
	if saved, err := h.Store.GetWorker(r.Context(), wk.ID); err == nil && saved != nil {
		wk = *saved
	}
	writeJSON(w, status, toWorkerDTO(wk))
}

func (h *Handler) DeleteWorker(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if !h.mutate(w, r, "delete worker", func(ctx context.Context) error {
		return h.Store.DeleteWorker(ctx, id)
	}) {
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GetWorkerTotals returns earned, commission, paid and net for a worker.
func (h *Handler) GetWorkerTotals(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	t, err := h.Aggregates.WorkerTotals(r.Context(), id)
	t = aggregate.OrZero(h.logger, "worker totals", t, err)
	writeJSON(w, http.StatusOK, WorkerTotalsDTO{
		Earned:     money(t.Earned),
		Commission: money(t.Commission),
		Paid:       money(t.Paid),
		Net:        money(t.Net),
	})
}

// GetWorkerDebts lists a worker's unpaid assignments.
func (h *Handler) GetWorkerDebts(w http.ResponseWriter, r *http.Request) {
	f := debts.Filter{AssignmentFilter: records.AssignmentFilter{WorkerID: chi.URLParam(r, "id")}}
	items, err := h.Debts.Unpaid(r.Context(), f)
	if err != nil {
		writeDomainError(w, h.logger, "list worker debts", err)
		return
	}
	writeJSON(w, http.StatusOK, toDebtItemDTOs(items))
}

func (h *Handler) GetWorkerPayments(w http.ResponseWriter, r *http.Request) {
	h.listPayments(w, r, records.PaymentFilter{WorkerID: chi.URLParam(r, "id")})
}

// =============================================================================
// EMPLOYER HANDLERS
// =============================================================================

func (h *Handler) ListEmployers(w http.ResponseWriter, r *http.Request) {
	employers, err := h.Store.ListEmployers(r.Context())
	if err != nil {
		writeDomainError(w, h.logger, "list employers", err)
		return
	}
	dtos := make([]EmployerDTO, len(employers))
	for i, e := range employers {
		dtos[i] = toEmployerDTO(e)
	}
	writeJSON(w, http.StatusOK, dtos)
}

func (h *Handler) GetEmployer(w http.ResponseWriter, r *http.Request) {
	e, ok := find(h, w, r, "Employer", h.Store.GetEmployer)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, toEmployerDTO(*e))
}

func (h *Handler) CreateEmployer(w http.ResponseWriter, r *http.Request) {
	var req EmployerRequest
	if !decode(w, r, &req) {
		return
	}
	h.saveEmployer(w, r, records.Employer{ID: idOrNew(req.ID), Name: req.Name, Phone: req.Phone}, http.StatusCreated)
}

func (h *Handler) UpdateEmployer(w http.ResponseWriter, r *http.Request) {
	existing, ok := find(h, w, r, "Employer", h.Store.GetEmployer)
	if !ok {
		return
	}
	var req EmployerRequest
	if !decode(w, r, &req) {
		return
	}
	h.saveEmployer(w, r, records.Employer{
		ID:        existing.ID,
		Name:      req.Name,
		Phone:     req.Phone,
		CreatedAt: existing.CreatedAt,
	}, http.StatusOK)
}

func (h *Handler) saveEmployer(w http.ResponseWriter, r *http.Request, e records.Employer, status int) {
	if !h.mutate(w, r, "save employer", func(ctx context.Context) error {
		if status == http.StatusCreated {
			if err := ensureNew(ctx, "employer", e.ID, h.Store.GetEmployer); err != nil {
				return err
			}
		}
		return h.Store.SaveEmployer(ctx, e)
	}) {
		return
	}
	if saved, err := h.Store.GetEmployer(r.Context(), e.ID); err == nil && saved != nil {
		e = *saved
	}
	writeJSON(w, status, toEmployerDTO(e))
}

// DeleteEmployer removes an employer. Its projects and events stay, unowned.
func (h *Handler) DeleteEmployer(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if !h.mutate(w, r, "delete employer", func(ctx context.Context) error {
		return h.Store.DeleteEmployer(ctx, id)
	}) {
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) GetEmployerFinancials(w http.ResponseWriter, r *http.Request) {
	f, err := h.Aggregates.EmployerFinancials(r.Context(), chi.URLParam(r, "id"))
	f = aggregate.OrZero(h.logger, "employer financials", f, err)
	writeJSON(w, http.StatusOK, toFinancialsDTO(f))
}

// =============================================================================
// PROJECT HANDLERS
// =============================================================================

func (h *Handler) ListProjects(w http.ResponseWriter, r *http.Request) {
	f := records.ProjectFilter{EmployerID: r.URL.Query().Get("employer_id")}
	projects, err := h.Store.ListProjects(r.Context(), f)
	if err != nil {
		writeDomainError(w, h.logger, "list projects", err)
		return
	}
	dtos := make([]ProjectDTO, len(projects))
	for i, p := range projects {
		dtos[i] = toProjectDTO(p)
	}
	writeJSON(w, http.StatusOK, dtos)
}

func (h *Handler) GetProject(w http.ResponseWriter, r *http.Request) {
	p, ok := find(h, w, r, "Project", h.Store.GetProject)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, toProjectDTO(*p))
}

func (h *Handler) CreateProject(w http.ResponseWriter, r *http.Request) {
	var req ProjectRequest
	if !decode(w, r, &req) {
		return
	}
	h.saveProject(w, r, idOrNew(req.ID), req, http.StatusCreated)
}

func (h *Handler) UpdateProject(w http.ResponseWriter, r *http.Request) {
	existing, ok := find(h, w, r, "Project", h.Store.GetProject)
	if !ok {
		return
	}
	var req ProjectRequest
	if !decode(w, r, &req) {
		return
	}
	h.saveProject(w, r, existing.ID, req, http.StatusOK)
}

func (h *Handler) saveProject(w http.ResponseWriter, r *http.Request, id string, req ProjectRequest, status int) {
	start, err := parseDate(req.StartDate)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid start_date", err)
		return
	}
	p := records.Project{
		ID:         id,
		Name:       req.Name,
		Location:   req.Location,
		StartDate:  start,
		Status:     records.ProjectStatus(req.Status),
		EmployerID: optionalID(req.EmployerID),
	}
	if req.EndDate != nil && *req.EndDate != "" {
		end, err := parseDate(*req.EndDate)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid end_date", err)
			return
		}
		p.EndDate = &end
	}

	if !h.mutate(w, r, "save project", func(ctx context.Context) error {
		if status == http.StatusCreated {
			if err := ensureNew(ctx, "project", p.ID, h.Store.GetProject); err != nil {
				return err
			}
		}
		return h.Store.SaveProject(ctx, p)
	}) {
		return
	}
	if saved, err := h.Store.GetProject(r.Context(), p.ID); err == nil && saved != nil {
		p = *saved
	}
	writeJSON(w, status, toProjectDTO(p))
}

// DeleteProject removes a project with its shifts, their assignments and its
// income entries.
func (h *Handler) DeleteProject(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if !h.mutate(w, r, "delete project", func(ctx context.Context) error {
		return h.Store.DeleteProject(ctx, id)
	}) {
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) GetProjectIncome(w http.ResponseWriter, r *http.Request) {
	inc, err := h.Aggregates.ProjectIncome(r.Context(), chi.URLParam(r, "id"))
	inc = aggregate.OrZero(h.logger, "project income", inc, err)
	writeJSON(w, http.StatusOK, ProjectIncomeDTO{
		Fixed:    money(inc.Fixed),
		NonFixed: money(inc.NonFixed),
		Total:    money(inc.Total),
	})
}

func (h *Handler) GetProjectFinancials(w http.ResponseWriter, r *http.Request) {
	f, err := h.Aggregates.ProjectFinancials(r.Context(), chi.URLParam(r, "id"))
	f = aggregate.OrZero(h.logger, "project financials", f, err)
	writeJSON(w, http.StatusOK, toFinancialsDTO(f))
}

// =============================================================================
// INCOME ENTRY HANDLERS
// =============================================================================

func (h *Handler) ListIncomeEntries(w http.ResponseWriter, r *http.Request) {
	entries, err := h.Store.ListIncomeEntries(r.Context(), records.IncomeFilter{ProjectID: chi.URLParam(r, "id")})
	if err != nil {
		writeDomainError(w, h.logger, "list income entries", err)
		return
	}
	dtos := make([]IncomeEntryDTO, len(entries))
	for i, e := range entries {
		dtos[i] = toIncomeEntryDTO(e)
	}
	writeJSON(w, http.StatusOK, dtos)
}

func (h *Handler) CreateIncomeEntry(w http.ResponseWriter, r *http.Request) {
	project, ok := find(h, w, r, "Project", h.Store.GetProject)
	if !ok {
		return
	}
	var req IncomeEntryRequest
	if !decode(w, r, &req) {
		return
	}
	date, err := parseDate(req.Date)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid date", err)
		return
	}
	units := decimal.NewFromInt(1)
	if req.Units != nil {
		units = decimal.NewFromFloat(*req.Units)
	}

	entry := records.IncomeEntry{
		ID:          records.NewID(),
		ProjectID:   project.ID,
		Description: req.Description,
		Date:        date,
		Amount:      decimal.NewFromFloat(req.Amount),
		Units:       units,
		IsFixed:     req.IsFixed,
	}
	if !h.mutate(w, r, "save income entry", func(ctx context.Context) error {
		return h.Store.SaveIncomeEntry(ctx, entry)
	}) {
		return
	}
	writeJSON(w, http.StatusCreated, toIncomeEntryDTO(entry))
}

func (h *Handler) DeleteIncomeEntry(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if !h.mutate(w, r, "delete income entry", func(ctx context.Context) error {
		return h.Store.DeleteIncomeEntry(ctx, id)
	}) {
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// =============================================================================
// SHIFT HANDLERS
// =============================================================================

func (h *Handler) ListShifts(w http.ResponseWriter, r *http.Request) {
	projectID := chi.URLParam(r, "id")
	if projectID == "" {
		projectID = r.URL.Query().Get("project_id")
	}
	shifts, err := h.Store.ListShifts(r.Context(), records.ShiftFilter{ProjectID: projectID})
	if err != nil {
		writeDomainError(w, h.logger, "list shifts", err)
		return
	}
	dtos := make([]ShiftDTO, len(shifts))
	for i, s := range shifts {
		dtos[i] = toShiftDTO(s)
	}
	writeJSON(w, http.StatusOK, dtos)
}

func (h *Handler) GetShift(w http.ResponseWriter, r *http.Request) {
	s, ok := find(h, w, r, "Shift", h.Store.GetShift)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, toShiftDTO(*s))
}

func (h *Handler) CreateShift(w http.ResponseWriter, r *http.Request) {
	var req ShiftRequest
	if !decode(w, r, &req) {
		return
	}
	h.saveShift(w, r, idOrNew(req.ID), req, http.StatusCreated)
}

// UpdateShift replaces a shift. Its assignments are repriced at the new
// hours; what was already paid stays as recorded.
func (h *Handler) UpdateShift(w http.ResponseWriter, r *http.Request) {
	existing, ok := find(h, w, r, "Shift", h.Store.GetShift)
	if !ok {
		return
	}
	var req ShiftRequest
	if !decode(w, r, &req) {
		return
	}
	h.saveShift(w, r, existing.ID, req, http.StatusOK)
}

func (h *Handler) saveShift(w http.ResponseWriter, r *http.Request, id string, req ShiftRequest, status int) {
	date, err := parseDate(req.Date)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid date", err)
		return
	}
	hours, err := records.ResolveHours(decimalPtr(req.Hours), req.StartTime, req.EndTime)
	if err != nil {
		writeDomainError(w, h.logger, "save shift", err)
		return
	}

	s := records.Shift{
		ID:        id,
		ProjectID: req.ProjectID,
		Name:      req.Name,
		Date:      date,
		StartTime: req.StartTime,
		EndTime:   req.EndTime,
		Hours:     hours,
	}
	if !h.mutate(w, r, "save shift", func(ctx context.Context) error {
		if status == http.StatusCreated {
			if err := ensureNew(ctx, "shift", s.ID, h.Store.GetShift); err != nil {
				return err
			}
		}
		return h.Store.SaveShift(ctx, s)
	}) {
		return
	}
	writeJSON(w, status, toShiftDTO(s))
}

func (h *Handler) DeleteShift(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if !h.mutate(w, r, "delete shift", func(ctx context.Context) error {
		return h.Store.DeleteShift(ctx, id)
	}) {
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) GetShiftCost(w http.ResponseWriter, r *http.Request) {
	cost, err := h.Aggregates.ShiftCost(r.Context(), chi.URLParam(r, "id"))
	cost = aggregate.OrZero(h.logger, "shift cost", cost, err)
	writeJSON(w, http.StatusOK, CostDTO{Cost: money(cost)})
}

// =============================================================================
// EVENT HANDLERS
// =============================================================================

func (h *Handler) ListEvents(w http.ResponseWriter, r *http.Request) {
	f := records.EventFilter{EmployerID: r.URL.Query().Get("employer_id")}
	events, err := h.Store.ListEvents(r.Context(), f)
	if err != nil {
		writeDomainError(w, h.logger, "list events", err)
		return
	}
	dtos := make([]EventDTO, len(events))
	for i, e := range events {
		dtos[i] = toEventDTO(e)
	}
	writeJSON(w, http.StatusOK, dtos)
}

func (h *Handler) GetEvent(w http.ResponseWriter, r *http.Request) {
	e, ok := find(h, w, r, "Event", h.Store.GetEvent)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, toEventDTO(*e))
}

func (h *Handler) CreateEvent(w http.ResponseWriter, r *http.Request) {
	var req EventRequest
	if !decode(w, r, &req) {
		return
	}
	h.saveEvent(w, r, idOrNew(req.ID), req, http.StatusCreated)
}

// UpdateEvent replaces an event. Assignment hours were fixed when each worker
// was assigned and do not follow the event's hours.
func (h *Handler) UpdateEvent(w http.ResponseWriter, r *http.Request) {
	existing, ok := find(h, w, r, "Event", h.Store.GetEvent)
	if !ok {
		return
	}
	var req EventRequest
	if !decode(w, r, &req) {
		return
	}
	h.saveEvent(w, r, existing.ID, req, http.StatusOK)
}

func (h *Handler) saveEvent(w http.ResponseWriter, r *http.Request, id string, req EventRequest, status int) {
	date, err := parseDate(req.Date)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid date", err)
		return
	}
	hours, err := records.ResolveHours(decimalPtr(req.Hours), req.StartTime, req.EndTime)
	if err != nil {
		writeDomainError(w, h.logger, "save event", err)
		return
	}

	e := records.Event{
		ID:         id,
		Name:       req.Name,
		Location:   req.Location,
		Date:       date,
		StartTime:  req.StartTime,
		EndTime:    req.EndTime,
		Hours:      hours,
		Income:     decimal.NewFromFloat(req.Income),
		EmployerID: optionalID(req.EmployerID),
	}
	if !h.mutate(w, r, "save event", func(ctx context.Context) error {
		if status == http.StatusCreated {
			if err := ensureNew(ctx, "event", e.ID, h.Store.GetEvent); err != nil {
				return err
			}
		}
		return h.Store.SaveEvent(ctx, e)
	}) {
		return
	}
	writeJSON(w, status, toEventDTO(e))
}

func (h *Handler) DeleteEvent(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if !h.mutate(w, r, "delete event", func(ctx context.Context) error {
		return h.Store.DeleteEvent(ctx, id)
	}) {
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) GetEventCost(w http.ResponseWriter, r *http.Request) {
	cost, err := h.Aggregates.EventCost(r.Context(), chi.URLParam(r, "id"))
	cost = aggregate.OrZero(h.logger, "event cost", cost, err)
	writeJSON(w, http.StatusOK, CostDTO{Cost: money(cost)})
}

func (h *Handler) GetEventFinancials(w http.ResponseWriter, r *http.Request) {
	f, err := h.Aggregates.EventFinancials(r.Context(), chi.URLParam(r, "id"))
	f = aggregate.OrZero(h.logger, "event financials", f, err)
	writeJSON(w, http.StatusOK, toFinancialsDTO(f))
}

// =============================================================================
// PAYMENT HANDLERS
// =============================================================================

func (h *Handler) ListPayments(w http.ResponseWriter, r *http.Request) {
	h.listPayments(w, r, records.PaymentFilter{WorkerID: r.URL.Query().Get("worker_id")})
}

func (h *Handler) listPayments(w http.ResponseWriter, r *http.Request, f records.PaymentFilter) {
	payments, err := h.Store.ListPayments(r.Context(), f)
	if err != nil {
		writeDomainError(w, h.logger, "list payments", err)
		return
	}
	dtos := make([]PaymentDTO, len(payments))
	for i, p := range payments {
		dtos[i] = toPaymentDTO(p)
	}
	writeJSON(w, http.StatusOK, dtos)
}

func (h *Handler) CreatePayment(w http.ResponseWriter, r *http.Request) {
	var req PaymentRequest
	if !decode(w, r, &req) {
		return
	}
	date, err := parseDate(req.DatePaid)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid date_paid", err)
		return
	}

	p := records.Payment{
		ID:         records.NewID(),
		WorkerID:   req.WorkerID,
		Amount:     decimal.NewFromFloat(req.Amount),
		DatePaid:   date,
		SourceType: records.PaymentSource(req.SourceType),
		SourceID:   optionalID(req.SourceID),
		Note:       req.Note,
	}
	if p.SourceType == "" {
		p.SourceType = records.SourceOther
	}
	if !h.mutate(w, r, "save payment", func(ctx context.Context) error {
		return h.Store.SavePayment(ctx, p)
	}) {
		return
	}
	writeJSON(w, http.StatusCreated, toPaymentDTO(p))
}

func (h *Handler) DeletePayment(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if !h.mutate(w, r, "delete payment", func(ctx context.Context) error {
		return h.Store.DeletePayment(ctx, id)
	}) {
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
