/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
  1. RequestID:  Unique ID per request for tracing
  2. Logger:     httplog access log (ECS schema, JSON over slog)
  3. Recoverer:  Panic recovery (500 instead of crash)
  4. CORS:       Cross-origin requests for the frontend

ROUTE GROUPS:
  /api/workers, /api/employers, /api/projects, /api/shifts, /api/events
  /api/assignments/{kind}/{id}   Terms edits and payment mutations
  /api/payments                  Standalone payment rows
  /api/debts/*                   Unpaid/paid projection, mark-all-paid, digest
  /api/stream/debts              Server-sent debt totals
  /api/dashboard                 Headline figures
  /api/scenarios/*, /api/reset   Demo data (dev only)

SECURITY NOTE:
  No authentication middleware. All endpoints are public.

SEE ALSO:
  - handlers.go: Handler implementations
  - cmd/server/main.go: Server startup
*/
package api

import (
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httplog/v3"
)

// RouterOptions configures the middleware around the routes.
type RouterOptions struct {
	AllowedOrigins []string
	// AccessLog receives one JSON line per request. Nil disables access logs.
	AccessLog io.Writer
	Env       string
	// Production switches the access log to the full ECS record.
	Production bool
}

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler, opts RouterOptions) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	if opts.AccessLog != nil {
		logFormat := httplog.SchemaECS.Concise(!opts.Production)
		logger := slog.New(slog.NewJSONHandler(opts.AccessLog, &slog.HandlerOptions{
			ReplaceAttr: logFormat.ReplaceAttr,
		})).With(
			slog.String("app", "crew-ledger"),
			slog.String("env", opts.Env),
		)
		r.Use(httplog.RequestLogger(logger, &httplog.Options{
			Level:  slog.LevelInfo,
			Schema: httplog.SchemaECS,
		}))
	}
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   opts.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	// API routes
	r.Route("/api", func(r chi.Router) {
		r.Route("/workers", func(r chi.Router) {
			r.Get("/", h.ListWorkers)
			r.Post("/", h.CreateWorker)
			r.Get("/{id}", h.GetWorker)
			r.Put("/{id}", h.UpdateWorker)
			r.Delete("/{id}", h.DeleteWorker)
			r.Get("/{id}/totals", h.GetWorkerTotals)
			r.Get("/{id}/debts", h.GetWorkerDebts)
			r.Get("/{id}/payments", h.GetWorkerPayments)
		})

		r.Route("/employers", func(r chi.Router) {
			r.Get("/", h.ListEmployers)
			r.Post("/", h.CreateEmployer)
			r.Get("/{id}", h.GetEmployer)
			r.Put("/{id}", h.UpdateEmployer)
			r.Delete("/{id}", h.DeleteEmployer)
			r.Get("/{id}/financials", h.GetEmployerFinancials)
		})

		r.Route("/projects", func(r chi.Router) {
			r.Get("/", h.ListProjects)
			r.Post("/", h.CreateProject)
			r.Get("/{id}", h.GetProject)
			r.Put("/{id}", h.UpdateProject)
			r.Delete("/{id}", h.DeleteProject)
			r.Get("/{id}/income", h.GetProjectIncome)
			r.Get("/{id}/financials", h.GetProjectFinancials)
			r.Get("/{id}/income-entries", h.ListIncomeEntries)
			r.Post("/{id}/income-entries", h.CreateIncomeEntry)
			r.Get("/{id}/shifts", h.ListShifts)
		})
		r.Delete("/income-entries/{id}", h.DeleteIncomeEntry)

		r.Route("/shifts", func(r chi.Router) {
			r.Get("/", h.ListShifts)
			r.Post("/", h.CreateShift)
			r.Get("/{id}", h.GetShift)
			r.Put("/{id}", h.UpdateShift)
			r.Delete("/{id}", h.DeleteShift)
			r.Get("/{id}/cost", h.GetShiftCost)
			r.Get("/{id}/assignments", h.ListShiftAssignments)
			r.Post("/{id}/assignments", h.CreateShiftAssignment)
		})

		r.Route("/events", func(r chi.Router) {
			r.Get("/", h.ListEvents)
			r.Post("/", h.CreateEvent)
			r.Get("/{id}", h.GetEvent)
			r.Put("/{id}", h.UpdateEvent)
			r.Delete("/{id}", h.DeleteEvent)
			r.Get("/{id}/cost", h.GetEventCost)
			r.Get("/{id}/financials", h.GetEventFinancials)
			r.Get("/{id}/assignments", h.ListEventAssignments)
			r.Post("/{id}/assignments", h.CreateEventAssignment)
		})

		r.Route("/assignments/{kind}/{id}", func(r chi.Router) {
			r.Get("/", h.GetAssignment)
			r.Put("/", h.UpdateAssignment)
			r.Delete("/", h.DeleteAssignment)
			r.Post("/pay", h.MarkPaid)
			r.Post("/payments", h.RecordPayment)
			r.Post("/revoke", h.Revoke)
		})

		r.Route("/payments", func(r chi.Router) {
			r.Get("/", h.ListPayments)
			r.Post("/", h.CreatePayment)
			r.Delete("/{id}", h.DeletePayment)
		})

		r.Route("/debts", func(r chi.Router) {
			r.Get("/unpaid", h.ListUnpaid)
			r.Get("/paid", h.ListPaid)
			r.Get("/total", h.GetTotalDebt)
			r.Post("/mark-all-paid", h.MarkAllPaid)
			r.Get("/digest", h.GetDigest)
		})

		r.Get("/stream/debts", h.StreamDebts)
		r.Get("/dashboard", h.GetDashboard)

		r.Route("/scenarios", func(r chi.Router) {
			r.Get("/", h.ListScenarios)
			r.Get("/current", h.GetCurrentScenario)
			r.Post("/load", h.LoadScenario)
		})
		r.Post("/reset", h.ResetDatabase)
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "Route not found", nil)
	})

	return r
}
