package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/warp/crew-ledger/debts"
	"github.com/warp/crew-ledger/records"
)

// =============================================================================
// ASSIGNMENT HANDLERS
// =============================================================================

func boolOr(b *bool, fallback bool) bool {
	if b == nil {
		return fallback
	}
	return *b
}

func (req AssignmentRequest) terms() records.Terms {
	return records.Terms{
		IsHourlyRate:          boolOr(req.IsHourlyRate, true),
		PayRate:               decimal.NewFromFloat(*req.PayRate),
		ReferencePayRate:      decimalPtr(req.ReferencePayRate),
		IsReferenceHourlyRate: boolOr(req.IsReferenceHourlyRate, true),
	}
}

// termsFor applies the worker's referral rule to the requested terms.
func (h *Handler) termsFor(ctx context.Context, workerID string, req AssignmentRequest) (records.Terms, error) {
	wk, err := h.Store.GetWorker(ctx, workerID)
	if err != nil {
		return records.Terms{}, err
	}
	if wk == nil {
		return records.Terms{}, fmt.Errorf("%w: worker %s", records.ErrParentNotFound, workerID)
	}
	return records.PrepareTerms(*wk, req.terms())
}

func requireWorkerID(w http.ResponseWriter, req AssignmentRequest) bool {
	if req.WorkerID != "" {
		return true
	}
	writeJSON(w, http.StatusBadRequest, ErrorResponse{
		Error:  "Validation failed",
		Fields: []FieldError{{Field: "worker_id", Code: "required", Message: "worker_id is required"}},
	})
	return false
}

// loadAssignment prices the assignment of the given kind. It returns nil when
// the assignment does not exist.
func (h *Handler) loadAssignment(ctx context.Context, kind records.AssignmentKind, id string) (*AssignmentDTO, error) {
	switch kind {
	case records.KindShift:
		a, err := h.Store.GetShiftAssignment(ctx, id)
		if err != nil || a == nil {
			return nil, err
		}
		shift, err := h.Store.GetShift(ctx, a.ShiftID)
		if err != nil {
			return nil, err
		}
		hours := decimal.Zero
		if shift != nil {
			hours = shift.Hours
		}
		dto := toAssignmentDTO(kind, a.ID, a.ShiftID, a.WorkerID, hours, a.Terms, a.Settlement)
		return &dto, nil

	case records.KindEvent:
		a, err := h.Store.GetEventAssignment(ctx, id)
		if err != nil || a == nil {
			return nil, err
		}
		dto := toAssignmentDTO(kind, a.ID, a.EventID, a.WorkerID, a.Hours, a.Terms, a.Settlement)
		return &dto, nil

	default:
		return nil, fmt.Errorf("%w: %q", records.ErrInvalidKind, kind)
	}
}

// respondAssignment answers with the current state of an assignment.
func (h *Handler) respondAssignment(w http.ResponseWriter, r *http.Request, kind records.AssignmentKind, id string, status int) {
	dto, err := h.loadAssignment(r.Context(), kind, id)
	if err != nil {
		writeDomainError(w, h.logger, "load assignment", err)
		return
	}
	if dto == nil {
		writeError(w, http.StatusNotFound, "Assignment not found", nil)
		return
	}
	writeJSON(w, status, dto)
}

func assignmentKey(r *http.Request) (records.AssignmentKind, string) {
	return records.AssignmentKind(chi.URLParam(r, "kind")), chi.URLParam(r, "id")
}

func (h *Handler) ListShiftAssignments(w http.ResponseWriter, r *http.Request) {
	h.listAssignments(w, r, debts.Filter{
		Kind:             records.KindShift,
		AssignmentFilter: records.AssignmentFilter{ShiftID: chi.URLParam(r, "id")},
	})
}

func (h *Handler) ListEventAssignments(w http.ResponseWriter, r *http.Request) {
	h.listAssignments(w, r, debts.Filter{
		Kind:             records.KindEvent,
		AssignmentFilter: records.AssignmentFilter{EventID: chi.URLParam(r, "id")},
	})
}

func (h *Handler) listAssignments(w http.ResponseWriter, r *http.Request, f debts.Filter) {
	items, err := h.Debts.Items(r.Context(), f)
	if err != nil {
		writeDomainError(w, h.logger, "list assignments", err)
		return
	}
	writeJSON(w, http.StatusOK, toDebtItemDTOs(items))
}

// CreateShiftAssignment adds a worker to a shift. The assignment is priced at
// the shift's hours.
func (h *Handler) CreateShiftAssignment(w http.ResponseWriter, r *http.Request) {
	shift, ok := find(h, w, r, "Shift", h.Store.GetShift)
	if !ok {
		return
	}
	var req AssignmentRequest
	if !decode(w, r, &req) || !requireWorkerID(w, req) {
		return
	}

	var a records.ShiftAssignment
	if !h.mutate(w, r, "assign worker", func(ctx context.Context) error {
		terms, err := h.termsFor(ctx, req.WorkerID, req)
		if err != nil {
			return err
		}
		a = records.ShiftAssignment{ID: records.NewID(), ShiftID: shift.ID, WorkerID: req.WorkerID, Terms: terms}
		return h.Store.InsertShiftAssignment(ctx, a)
	}) {
		return
	}
	writeJSON(w, http.StatusCreated, toAssignmentDTO(records.KindShift, a.ID, a.ShiftID, a.WorkerID, shift.Hours, a.Terms, a.Settlement))
}

// CreateEventAssignment adds a worker to an event. Without explicit hours the
// worker gets the event's hours.
func (h *Handler) CreateEventAssignment(w http.ResponseWriter, r *http.Request) {
	event, ok := find(h, w, r, "Event", h.Store.GetEvent)
	if !ok {
		return
	}
	var req AssignmentRequest
	if !decode(w, r, &req) || !requireWorkerID(w, req) {
		return
	}
	hours := event.Hours
	if req.Hours != nil {
		hours = decimal.NewFromFloat(*req.Hours)
	}

	var a records.EventAssignment
	if !h.mutate(w, r, "assign worker", func(ctx context.Context) error {
		terms, err := h.termsFor(ctx, req.WorkerID, req)
		if err != nil {
			return err
		}
		a = records.EventAssignment{ID: records.NewID(), EventID: event.ID, WorkerID: req.WorkerID, Hours: hours, Terms: terms}
		return h.Store.InsertEventAssignment(ctx, a)
	}) {
		return
	}
	writeJSON(w, http.StatusCreated, toAssignmentDTO(records.KindEvent, a.ID, a.EventID, a.WorkerID, a.Hours, a.Terms, a.Settlement))
}

func (h *Handler) GetAssignment(w http.ResponseWriter, r *http.Request) {
	kind, id := assignmentKey(r)
	h.respondAssignment(w, r, kind, id, http.StatusOK)
}

// UpdateAssignment edits rates (and, for events, hours). The worker stays the
// same and the settlement is left as recorded.
func (h *Handler) UpdateAssignment(w http.ResponseWriter, r *http.Request) {
	kind, id := assignmentKey(r)
	var req AssignmentRequest
	if !decode(w, r, &req) {
		return
	}

	if !h.mutate(w, r, "update assignment", func(ctx context.Context) error {
		switch kind {
		case records.KindShift:
			a, err := h.Store.GetShiftAssignment(ctx, id)
			if err != nil {
				return err
			}
			if a == nil {
				return fmt.Errorf("%w: shift assignment %s", records.ErrNotFound, id)
			}
			if a.Terms, err = h.termsFor(ctx, a.WorkerID, req); err != nil {
				return err
			}
			return h.Store.UpdateShiftAssignment(ctx, *a)

		case records.KindEvent:
			a, err := h.Store.GetEventAssignment(ctx, id)
			if err != nil {
				return err
			}
			if a == nil {
				return fmt.Errorf("%w: event assignment %s", records.ErrNotFound, id)
			}
			if a.Terms, err = h.termsFor(ctx, a.WorkerID, req); err != nil {
				return err
			}
			if req.Hours != nil {
				a.Hours = decimal.NewFromFloat(*req.Hours)
			}
			return h.Store.UpdateEventAssignment(ctx, *a)

		default:
			return fmt.Errorf("%w: %q", records.ErrInvalidKind, kind)
		}
	}) {
		return
	}
	h.respondAssignment(w, r, kind, id, http.StatusOK)
}

func (h *Handler) DeleteAssignment(w http.ResponseWriter, r *http.Request) {
	kind, id := assignmentKey(r)
	if !h.mutate(w, r, "delete assignment", func(ctx context.Context) error {
		switch kind {
		case records.KindShift:
			return h.Store.DeleteShiftAssignment(ctx, id)
		case records.KindEvent:
			return h.Store.DeleteEventAssignment(ctx, id)
		default:
			return fmt.Errorf("%w: %q", records.ErrInvalidKind, kind)
		}
	}) {
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// =============================================================================
// PAYMENT MUTATIONS
// =============================================================================

// MarkPaid settles an assignment in full. The body is optional.
func (h *Handler) MarkPaid(w http.ResponseWriter, r *http.Request) {
	kind, id := assignmentKey(r)
	var req MarkPaidRequest
	if !decode(w, r, &req) {
		return
	}
	if !h.mutate(w, r, "mark paid", func(ctx context.Context) error {
		_, err := h.Debts.MarkPaid(ctx, kind, id, decimalPtr(req.Tip))
		return err
	}) {
		return
	}
	h.respondAssignment(w, r, kind, id, http.StatusOK)
}

// RecordPayment sets the paid amount of one leg.
func (h *Handler) RecordPayment(w http.ResponseWriter, r *http.Request) {
	kind, id := assignmentKey(r)
	var req RecordPaymentRequest
	if !decode(w, r, &req) {
		return
	}
	in := debts.PaymentInput{
		Leg:    debts.Leg(req.Leg),
		Amount: decimal.NewFromFloat(req.Amount),
		Tip:    decimalPtr(req.Tip),
	}
	if !h.mutate(w, r, "record payment", func(ctx context.Context) error {
		_, err := h.Debts.RecordPayment(ctx, kind, id, in)
		return err
	}) {
		return
	}
	h.respondAssignment(w, r, kind, id, http.StatusOK)
}

// Revoke clears every payment recorded on an assignment.
func (h *Handler) Revoke(w http.ResponseWriter, r *http.Request) {
	kind, id := assignmentKey(r)
	if !h.mutate(w, r, "revoke payment", func(ctx context.Context) error {
		_, err := h.Debts.Revoke(ctx, kind, id)
		return err
	}) {
		return
	}
	h.respondAssignment(w, r, kind, id, http.StatusOK)
}

// =============================================================================
// DEBT HANDLERS
// =============================================================================

// debtFilter reads the projection filter from the query string.
func debtFilter(r *http.Request) (debts.Filter, error) {
	q := r.URL.Query()
	f := debts.Filter{
		Kind: records.AssignmentKind(q.Get("kind")),
		AssignmentFilter: records.AssignmentFilter{
			WorkerID:   q.Get("worker_id"),
			ReferrerID: q.Get("referrer_id"),
			ShiftID:    q.Get("shift_id"),
			EventID:    q.Get("event_id"),
			ProjectID:  q.Get("project_id"),
			EmployerID: q.Get("employer_id"),
		},
	}
	if f.Kind != "" && !f.Kind.Valid() {
		return f, fmt.Errorf("%w: %q", records.ErrInvalidKind, f.Kind)
	}
	return f, nil
}

func (h *Handler) ListUnpaid(w http.ResponseWriter, r *http.Request) {
	h.listDebts(w, r, h.Debts.Unpaid)
}

func (h *Handler) ListPaid(w http.ResponseWriter, r *http.Request) {
	h.listDebts(w, r, h.Debts.Paid)
}

func (h *Handler) listDebts(w http.ResponseWriter, r *http.Request, list func(context.Context, debts.Filter) ([]debts.DebtItem, error)) {
	f, err := debtFilter(r)
	if err != nil {
		writeDomainError(w, h.logger, "list debts", err)
		return
	}
	items, err := list(r.Context(), f)
	if err != nil {
		writeDomainError(w, h.logger, "list debts", err)
		return
	}
	writeJSON(w, http.StatusOK, toDebtItemDTOs(items))
}

// GetTotalDebt returns the outstanding total and the unpaid counts.
func (h *Handler) GetTotalDebt(w http.ResponseWriter, r *http.Request) {
	f, err := debtFilter(r)
	if err != nil {
		writeDomainError(w, h.logger, "total debt", err)
		return
	}
	sum, err := h.Debts.Summarize(r.Context(), f)
	if err != nil {
		h.logger.Error().Err(err).Msg("total debt failed, reporting zero")
		sum = debts.Summary{TotalDebt: decimal.Zero}
	}
	writeJSON(w, http.StatusOK, toDebtSummaryDTO(sum))
}

// MarkAllPaid settles every unpaid assignment matching the query filter, one
// at a time. A failure or a disconnect stops the run; what was already marked
// stays marked and the counts say how far it got.
func (h *Handler) MarkAllPaid(w http.ResponseWriter, r *http.Request) {
	f, err := debtFilter(r)
	if err != nil {
		writeDomainError(w, h.logger, "mark all paid", err)
		return
	}

	var res debts.BulkResult
	err = h.Queue.Do(r.Context(), func(ctx context.Context) error {
		var runErr error
		res, runErr = h.Debts.MarkAllPaid(ctx, f)
		return runErr
	})

	dto := BulkResultDTO{Total: res.Total, Marked: res.Marked}
	if err == nil {
		writeJSON(w, http.StatusOK, dto)
		return
	}

	dto.Error = err.Error()
	status := http.StatusInternalServerError
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		status = http.StatusServiceUnavailable
	}
	h.logger.Error().Err(err).Int("marked", res.Marked).Int("total", res.Total).Msg("mark all paid stopped")
	writeJSON(w, status, dto)
}
