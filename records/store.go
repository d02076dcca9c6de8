/*
store.go - Persistence contract for the crew ledger

PURPOSE:
  Defines the interface between the calculation core and the database.
  Every write is a single-row atomic operation; there is no transaction
  spanning rows (bulk operations issue independent writes).

KEY INTERFACES:
  Reader:           joined assignment rows plus the lists aggregates need
  AssignmentWriter: load and replace assignments (payment mutations)
  Notifier:         push-on-write change notifications
  Store:            everything, implemented by store/sqlite

JOINED ROWS:
  ShiftAssignmentRow and EventAssignmentRow carry an assignment together with
  its parent, its worker and the worker's referrer name, so aggregation and
  the debt projection can price and render it without further lookups.

NOT FOUND:
  GetX methods return (nil, nil) when the record does not exist.

SEE ALSO:
  - store/sqlite/sqlite.go: implementation
  - live/watch.go: turns Notifier into continuously updated queries
*/
package records

import (
	"context"

	"github.com/shopspring/decimal"
)

// =============================================================================
// JOINED ROWS
// =============================================================================

type ShiftAssignmentRow struct {
	Assignment   ShiftAssignment
	Shift        Shift
	ProjectName  string
	EmployerID   *string
	Worker       Worker
	ReferrerName string
}

// Hours the assignment is priced at.
func (r ShiftAssignmentRow) Hours() decimal.Decimal { return r.Shift.Hours }

func (r ShiftAssignmentRow) Balance() Balance {
	return Price(r.Assignment.Terms, r.Assignment.Settlement, r.Shift.Hours)
}

type EventAssignmentRow struct {
	Assignment   EventAssignment
	Event        Event
	Worker       Worker
	ReferrerName string
}

func (r EventAssignmentRow) Hours() decimal.Decimal { return r.Assignment.Hours }

func (r EventAssignmentRow) Balance() Balance {
	return Price(r.Assignment.Terms, r.Assignment.Settlement, r.Assignment.Hours)
}

// AssignmentFilter narrows joined rows. Empty fields do not filter.
// A filter on a parent of the other kind (ShiftID for events, EventID or
// ProjectID for events/shifts respectively) matches nothing.
type AssignmentFilter struct {
	WorkerID   string
	ReferrerID string // rows whose worker lists this worker as reference
	ShiftID    string
	EventID    string
	ProjectID  string
	EmployerID string
}

type ProjectFilter struct {
	EmployerID string
}

type ShiftFilter struct {
	ProjectID string
}

type EventFilter struct {
	EmployerID string
}

type IncomeFilter struct {
	ProjectID  string
	EmployerID string
}

type PaymentFilter struct {
	WorkerID string
}

// =============================================================================
// CHANGE NOTIFICATIONS
// =============================================================================

type Table string

const (
	TableWorkers          Table = "workers"
	TableEmployers        Table = "employers"
	TableProjects         Table = "projects"
	TableIncomeEntries    Table = "income_entries"
	TableShifts           Table = "shifts"
	TableEvents           Table = "events"
	TableShiftAssignments Table = "shift_assignments"
	TableEventAssignments Table = "event_assignments"
	TablePayments         Table = "payments"
)

// AllTables lists every table, in dependency order.
var AllTables = []Table{
	TableWorkers, TableEmployers, TableProjects, TableIncomeEntries, TableShifts,
	TableEvents, TableShiftAssignments, TableEventAssignments, TablePayments,
}

// AssignmentTables are the tables every payment figure depends on. Projects
// and employers are included because deleting a project cascades to its
// shifts and assignments, and employer writes move the employer filter.
var AssignmentTables = []Table{
	TableWorkers, TableEmployers, TableProjects, TableShifts, TableEvents,
	TableShiftAssignments, TableEventAssignments,
}

type Op string

const (
	OpInsert Op = "insert"
	OpUpdate Op = "update"
	OpDelete Op = "delete"
	OpReset  Op = "reset"
)

// Change is published after a write commits.
type Change struct {
	Table Table
	Op    Op
	ID    string
}

// Notifier delivers changes for the given tables (all tables when none are
// named). The returned func unsubscribes and closes the channel.
type Notifier interface {
	Subscribe(tables ...Table) (<-chan Change, func())
}

// =============================================================================
// STORE INTERFACES
// =============================================================================

// Reader is what aggregation and projection read.
type Reader interface {
	ShiftAssignmentRows(ctx context.Context, f AssignmentFilter) ([]ShiftAssignmentRow, error)
	EventAssignmentRows(ctx context.Context, f AssignmentFilter) ([]EventAssignmentRow, error)
	ListPayments(ctx context.Context, f PaymentFilter) ([]Payment, error)
	ListIncomeEntries(ctx context.Context, f IncomeFilter) ([]IncomeEntry, error)
	ListEvents(ctx context.Context, f EventFilter) ([]Event, error)
	GetEvent(ctx context.Context, id string) (*Event, error)
}

// AssignmentWriter loads and replaces whole assignment records.
type AssignmentWriter interface {
	GetShiftAssignment(ctx context.Context, id string) (*ShiftAssignment, error)
	GetEventAssignment(ctx context.Context, id string) (*EventAssignment, error)
	UpdateShiftAssignment(ctx context.Context, a ShiftAssignment) error
	UpdateEventAssignment(ctx context.Context, a EventAssignment) error
}

// Store is the full persistence surface.
type Store interface {
	Reader
	AssignmentWriter
	Notifier

	SaveWorker(ctx context.Context, w Worker) error
	GetWorker(ctx context.Context, id string) (*Worker, error)
	ListWorkers(ctx context.Context) ([]Worker, error)
	DeleteWorker(ctx context.Context, id string) error

	SaveEmployer(ctx context.Context, e Employer) error
	GetEmployer(ctx context.Context, id string) (*Employer, error)
	ListEmployers(ctx context.Context) ([]Employer, error)
	DeleteEmployer(ctx context.Context, id string) error

	SaveProject(ctx context.Context, p Project) error
	GetProject(ctx context.Context, id string) (*Project, error)
	ListProjects(ctx context.Context, f ProjectFilter) ([]Project, error)
	DeleteProject(ctx context.Context, id string) error

	SaveIncomeEntry(ctx context.Context, e IncomeEntry) error
	DeleteIncomeEntry(ctx context.Context, id string) error

	SaveShift(ctx context.Context, s Shift) error
	GetShift(ctx context.Context, id string) (*Shift, error)
	ListShifts(ctx context.Context, f ShiftFilter) ([]Shift, error)
	DeleteShift(ctx context.Context, id string) error

	SaveEvent(ctx context.Context, e Event) error
	DeleteEvent(ctx context.Context, id string) error

	InsertShiftAssignment(ctx context.Context, a ShiftAssignment) error
	DeleteShiftAssignment(ctx context.Context, id string) error
	InsertEventAssignment(ctx context.Context, a EventAssignment) error
	DeleteEventAssignment(ctx context.Context, id string) error

	SavePayment(ctx context.Context, p Payment) error
	DeletePayment(ctx context.Context, id string) error

	Reset(ctx context.Context) error
}
