/*
scenarios.go - Demo scenario loaders for testing and demonstrations

PURPOSE:

	Provides pre-built scenarios that populate the database with realistic
	crew data: workers with and without a referrer, shifts and events, and
	assignments in every payment state.

AVAILABLE SCENARIOS:

	single-shift:   One project, one shift, three workers, nothing paid
	referral-crew:  A referrer with two referred workers across shifts and an
	                event; paid, partially paid and unpaid assignments
	month-end:      Two employers with a backlog of unpaid work, for trying
	                mark-all-paid and the dashboard

HOW SCENARIOS WORK:
 1. Reset database (clear all data)
 2. Create employers and workers
 3. Create projects, shifts and events
 4. Assign workers, some with a settlement already recorded

USAGE VIA API:

	POST /api/scenarios/load
	{"scenario_id": "referral-crew"}

ADDING NEW SCENARIOS:
 1. Add to 'scenarios' slice with ID, name, description
 2. Create loader function: loadXxxScenario(s *seeder)
 3. Add case to scenarioLoader

NOTE:

	Scenarios reset the database. Only use in development/demo environments.

SEE ALSO:
  - handlers.go: Handler, mutate
  - server.go: /api/scenarios routes
*/
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"github.com/warp/crew-ledger/records"
)

// =============================================================================
// SCENARIO DEFINITIONS
// =============================================================================

var scenarios = []ScenarioDTO{
	{
		ID:          "single-shift",
		Name:        "Single Shift",
		Description: "One warehouse shift with three workers, nothing paid yet",
	},
	{
		ID:          "referral-crew",
		Name:        "Referral Crew",
		Description: "Referred workers on shifts and an event, with partial and full payments",
	},
	{
		ID:          "month-end",
		Name:        "Month End",
		Description: "Two employers with a month of unpaid work",
	},
}

func scenarioLoader(id string) func(*seeder) {
	switch id {
	case "single-shift":
		return loadSingleShiftScenario
	case "referral-crew":
		return loadReferralCrewScenario
	case "month-end":
		return loadMonthEndScenario
	}
	return nil
}

// ListScenarios returns available scenarios.
func (h *Handler) ListScenarios(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, scenarios)
}

// GetCurrentScenario returns the currently loaded scenario, if any.
func (h *Handler) GetCurrentScenario(w http.ResponseWriter, r *http.Request) {
	h.mu.RLock()
	current := h.currentScenario
	h.mu.RUnlock()

	if current == "" {
		writeJSON(w, http.StatusOK, nil)
		return
	}
	for _, s := range scenarios {
		if s.ID == current {
			writeJSON(w, http.StatusOK, s)
			return
		}
	}
	writeJSON(w, http.StatusOK, ScenarioDTO{ID: current, Name: current, Description: "Currently loaded scenario"})
}

// LoadScenario resets the database and loads a predefined scenario.
func (h *Handler) LoadScenario(w http.ResponseWriter, r *http.Request) {
	var req LoadScenarioRequest
	if !decode(w, r, &req) {
		return
	}
	load := scenarioLoader(req.ScenarioID)
	if load == nil {
		writeError(w, http.StatusBadRequest, "Unknown scenario", nil)
		return
	}

	if !h.mutate(w, r, "load scenario", func(ctx context.Context) error {
		h.setCurrentScenario("")
		if err := h.Store.Reset(ctx); err != nil {
			return err
		}
		s := &seeder{ctx: ctx, store: h.Store, today: today()}
		load(s)
		return s.err
	}) {
		return
	}

	h.setCurrentScenario(req.ScenarioID)
	h.logger.Info().Str("scenario", req.ScenarioID).Msg("scenario loaded")
	writeJSON(w, http.StatusOK, map[string]string{"status": "loaded", "scenario": req.ScenarioID})
}

// ResetDatabase clears every table.
func (h *Handler) ResetDatabase(w http.ResponseWriter, r *http.Request) {
	if !h.mutate(w, r, "reset database", h.Store.Reset) {
		return
	}
	h.setCurrentScenario("")
	writeJSON(w, http.StatusOK, map[string]string{"status": "reset"})
}

func (h *Handler) setCurrentScenario(id string) {
	h.mu.Lock()
	h.currentScenario = id
	h.mu.Unlock()
}

// =============================================================================
// SEEDER
// =============================================================================

// seeder writes demo records and keeps the first error; later writes are
// skipped once one fails.
type seeder struct {
	ctx   context.Context
	store records.Store
	today time.Time
	err   error
}

func today() time.Time {
	return time.Now().UTC().Truncate(24 * time.Hour)
}

func (s *seeder) daysAgo(n int) time.Time {
	return s.today.AddDate(0, 0, -n)
}

func (s *seeder) run(fn func(context.Context) error) {
	if s.err == nil {
		s.err = fn(s.ctx)
	}
}

func (s *seeder) employer(id, name string) {
	s.run(func(ctx context.Context) error {
		return s.store.SaveEmployer(ctx, records.Employer{ID: id, Name: name})
	})
}

func (s *seeder) worker(id, name, phone, referenceID string) {
	w := records.Worker{ID: id, Name: name, Phone: phone}
	if referenceID != "" {
		w.ReferenceID = &referenceID
	}
	s.run(func(ctx context.Context) error { return s.store.SaveWorker(ctx, w) })
}

func (s *seeder) project(id, name, location, employerID string, started int) {
	p := records.Project{ID: id, Name: name, Location: location, StartDate: s.daysAgo(started), Status: records.ProjectActive}
	if employerID != "" {
		p.EmployerID = &employerID
	}
	s.run(func(ctx context.Context) error { return s.store.SaveProject(ctx, p) })
}

func (s *seeder) income(id, projectID, description string, amount, units string, fixed bool, daysAgo int) {
	s.run(func(ctx context.Context) error {
		return s.store.SaveIncomeEntry(ctx, records.IncomeEntry{
			ID:          id,
			ProjectID:   projectID,
			Description: description,
			Date:        s.daysAgo(daysAgo),
			Amount:      decimal.RequireFromString(amount),
			Units:       decimal.RequireFromString(units),
			IsFixed:     fixed,
		})
	})
}

func (s *seeder) shift(id, projectID, name, start, end string, daysAgo int) {
	s.run(func(ctx context.Context) error {
		hours, err := records.HoursBetween(start, end)
		if err != nil {
			return err
		}
		return s.store.SaveShift(ctx, records.Shift{
			ID: id, ProjectID: projectID, Name: name, Date: s.daysAgo(daysAgo),
			StartTime: start, EndTime: end, Hours: hours,
		})
	})
}

func (s *seeder) event(id, name, location, employerID, start, end, income string, daysAgo int) {
	s.run(func(ctx context.Context) error {
		hours, err := records.HoursBetween(start, end)
		if err != nil {
			return err
		}
		e := records.Event{
			ID: id, Name: name, Location: location, Date: s.daysAgo(daysAgo),
			StartTime: start, EndTime: end, Hours: hours, Income: decimal.RequireFromString(income),
		}
		if employerID != "" {
			e.EmployerID = &employerID
		}
		return s.store.SaveEvent(ctx, e)
	})
}

func (s *seeder) onShift(id, shiftID, workerID string, t records.Terms, st records.Settlement) {
	s.run(func(ctx context.Context) error {
		return s.store.InsertShiftAssignment(ctx, records.ShiftAssignment{
			ID: id, ShiftID: shiftID, WorkerID: workerID, Terms: t, Settlement: st,
		})
	})
}

func (s *seeder) atEvent(id, eventID, workerID, hours string, t records.Terms, st records.Settlement) {
	s.run(func(ctx context.Context) error {
		return s.store.InsertEventAssignment(ctx, records.EventAssignment{
			ID: id, EventID: eventID, WorkerID: workerID, Hours: decimal.RequireFromString(hours),
			Terms: t, Settlement: st,
		})
	})
}

func (s *seeder) payment(id, workerID, amount, note string, daysAgo int) {
	s.run(func(ctx context.Context) error {
		return s.store.SavePayment(ctx, records.Payment{
			ID: id, WorkerID: workerID, Amount: decimal.RequireFromString(amount),
			DatePaid: s.daysAgo(daysAgo), SourceType: records.SourceOther, Note: note,
		})
	})
}

// hourly and fixed build terms; a non-empty ref adds the referral leg.
func hourly(rate, ref string, refHourly bool) records.Terms {
	return terms(true, rate, ref, refHourly)
}

func fixed(rate, ref string, refHourly bool) records.Terms {
	return terms(false, rate, ref, refHourly)
}

func terms(isHourly bool, rate, ref string, refHourly bool) records.Terms {
	t := records.Terms{IsHourlyRate: isHourly, PayRate: decimal.RequireFromString(rate), IsReferenceHourlyRate: refHourly}
	if ref != "" {
		r := decimal.RequireFromString(ref)
		t.ReferencePayRate = &r
	}
	return t
}

func unpaid() records.Settlement {
	return records.Settlement{}
}

func paidInFull(worker, tip, ref string) records.Settlement {
	return records.Settlement{
		IsPaid:              true,
		AmountPaid:          decimal.RequireFromString(worker),
		TipAmount:           decimal.RequireFromString(tip),
		ReferenceAmountPaid: decimal.RequireFromString(ref),
	}
}

func partly(worker string) records.Settlement {
	return records.Settlement{AmountPaid: decimal.RequireFromString(worker)}
}

// =============================================================================
// SCENARIO LOADERS
// =============================================================================

func loadSingleShiftScenario(s *seeder) {
	s.employer("emp-northside", "Northside Storage")
	s.worker("w-maria", "Maria Lopez", "555-0101", "")
	s.worker("w-james", "James Carter", "555-0102", "")
	s.worker("w-kofi", "Kofi Mensah", "555-0103", "w-maria")

	s.project("p-depot", "Depot Restock", "Dock 4", "emp-northside", 3)
	s.income("inc-depot", "p-depot", "Restock contract", "900", "1", true, 3)
	s.shift("sh-depot-1", "p-depot", "Morning unload", "06:00", "14:00", 1)

	s.onShift("sa-maria", "sh-depot-1", "w-maria", hourly("22", "", true), unpaid())
	s.onShift("sa-james", "sh-depot-1", "w-james", fixed("150", "", true), unpaid())
	s.onShift("sa-kofi", "sh-depot-1", "w-kofi", hourly("18", "2", true), unpaid())
}

func loadReferralCrewScenario(s *seeder) {
	s.employer("emp-acme", "Acme Logistics")

	s.worker("w-rosa", "Rosa Martinez", "555-0201", "")
	s.worker("w-ahmed", "Ahmed Karim", "555-0202", "w-rosa")
	s.worker("w-li", "Li Wei", "555-0203", "w-rosa")
	s.worker("w-tom", "Tom Becker", "555-0204", "")

	s.project("p-warehouse", "Warehouse Move", "Harbor Rd 12", "emp-acme", 14)
	s.income("inc-wh-fixed", "p-warehouse", "Move contract", "1200", "1", true, 14)
	s.income("inc-wh-pallets", "p-warehouse", "Pallets moved", "35", "20", false, 7)

	s.shift("sh-mon", "p-warehouse", "Monday load", "07:00", "15:00", 6)
	s.shift("sh-tue", "p-warehouse", "Tuesday unload", "07:00", "11:30", 5)

	// Ahmed: 8h at 20 plus 2/h to Rosa; 100 of 160 paid.
	s.onShift("sa-ahmed-mon", "sh-mon", "w-ahmed", hourly("20", "2", true), partly("100"))
	s.onShift("sa-li-mon", "sh-mon", "w-li", hourly("18", "10", false), unpaid())
	s.onShift("sa-tom-mon", "sh-mon", "w-tom", hourly("22", "", true), paidInFull("176", "0", "0"))
	s.onShift("sa-ahmed-tue", "sh-tue", "w-ahmed", hourly("20", "2", true), unpaid())

	s.event("ev-gala", "Harbor Gala", "Pier 9", "emp-acme", "18:00", "23:00", "1500", 2)
	s.atEvent("ea-rosa-gala", "ev-gala", "w-rosa", "5", fixed("150", "", true), paidInFull("150", "20", "0"))
	s.atEvent("ea-ahmed-gala", "ev-gala", "w-ahmed", "5", hourly("25", "15", false), unpaid())

	s.payment("pay-rosa-advance", "w-rosa", "50", "advance", 3)
}

func loadMonthEndScenario(s *seeder) {
	s.employer("emp-acme", "Acme Logistics")
	s.employer("emp-bloom", "Bloom Events")

	s.worker("w-rosa", "Rosa Martinez", "555-0201", "")
	s.worker("w-ahmed", "Ahmed Karim", "555-0202", "w-rosa")
	s.worker("w-nadia", "Nadia Petrov", "555-0301", "")
	s.worker("w-sam", "Sam Okafor", "555-0302", "w-nadia")

	s.project("p-fitout", "Office Fit-out", "Elm St 40", "emp-acme", 30)
	s.income("inc-fitout", "p-fitout", "Fit-out contract", "4000", "1", true, 30)

	for i, day := range []int{25, 18, 11, 4} {
		id := "sh-fitout-" + string(rune('a'+i))
		s.shift(id, "p-fitout", "Fit-out day", "08:00", "16:00", day)
		s.onShift("sa-rosa-"+id, id, "w-rosa", hourly("22", "", true), unpaid())
		s.onShift("sa-ahmed-"+id, id, "w-ahmed", hourly("20", "2", true), unpaid())
	}

	s.event("ev-wedding", "Garden Wedding", "Rose Park", "emp-bloom", "14:00", "22:00", "2200", 9)
	s.atEvent("ea-nadia-wedding", "ev-wedding", "w-nadia", "8", hourly("24", "", true), unpaid())
	s.atEvent("ea-sam-wedding", "ev-wedding", "w-sam", "6", fixed("140", "20", false), partly("60"))

	s.event("ev-launch", "Product Launch", "Hall B", "emp-bloom", "17:00", "21:00", "900", 2)
	s.atEvent("ea-nadia-launch", "ev-launch", "w-nadia", "4", fixed("110", "", true), paidInFull("110", "10", "0"))
}
