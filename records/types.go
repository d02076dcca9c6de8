/*
Package records defines the crew ledger's entities and the persistence contract.

PURPOSE:
  Workers, employers, projects, shifts, events, their assignments and the
  standalone payment rows. Also the joined row shapes the aggregation and
  debt projection read, and the interfaces the store implements.

KEY CONCEPTS IN THIS FILE (types.go):
  - Worker: may point at a referrer via ReferenceID (one level only)
  - Shift / Event: parents of assignments, carry the hours
  - ShiftAssignment / EventAssignment: a worker in a shift/event, with
    payment Terms and a Settlement (see terms.go)
  - Payment: standalone ledger row used for worker-level totals
  - IncomeEntry: project income, fixed or per-unit

DESIGN PRINCIPLES:
  1. Derived money is never stored: totals are recomputed from Terms + hours
  2. Amounts are decimal.Decimal
  3. Optional values are pointers, "not found" is a nil record

SEE ALSO:
  - terms.go: Terms and Settlement
  - store.go: Store interface and change notifications
  - store/sqlite/sqlite.go: SQLite implementation
*/
package records

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// DateLayout is how calendar dates travel through the store and the API.
const DateLayout = "2006-01-02"

// NewID returns a fresh record id.
func NewID() string {
	return uuid.NewString()
}

// =============================================================================
// PEOPLE
// =============================================================================

type Worker struct {
	ID          string
	Name        string
	Phone       string
	ReferenceID *string // worker who earns a commission on this worker's assignments
	CreatedAt   time.Time
}

// HasReference reports whether the worker names a referrer.
func (w Worker) HasReference() bool {
	return w.ReferenceID != nil && *w.ReferenceID != ""
}

type Employer struct {
	ID        string
	Name      string
	Phone     string
	CreatedAt time.Time
}

// =============================================================================
// PROJECTS, SHIFTS, EVENTS
// =============================================================================

type ProjectStatus string

const (
	ProjectActive ProjectStatus = "active"
	ProjectClosed ProjectStatus = "closed"
)

type Project struct {
	ID         string
	Name       string
	Location   string
	StartDate  time.Time
	Status     ProjectStatus
	EndDate    *time.Time
	EmployerID *string
	CreatedAt  time.Time
}

// IncomeEntry is money a project earns. Fixed entries count Amount once;
// the others count Amount * Units.
type IncomeEntry struct {
	ID          string
	ProjectID   string
	Description string
	Date        time.Time
	Amount      decimal.Decimal
	Units       decimal.Decimal
	IsFixed     bool
}

// Value is what the entry contributes to project income.
func (e IncomeEntry) Value() decimal.Decimal {
	if e.IsFixed {
		return e.Amount
	}
	return e.Amount.Mul(e.Units)
}

type Shift struct {
	ID        string
	ProjectID string
	Name      string
	Date      time.Time
	StartTime string // HH:MM
	EndTime   string // HH:MM
	Hours     decimal.Decimal
}

type Event struct {
	ID         string
	Name       string
	Location   string
	Date       time.Time
	StartTime  string
	EndTime    string
	Hours      decimal.Decimal
	Income     decimal.Decimal
	EmployerID *string
}

// =============================================================================
// ASSIGNMENTS
// =============================================================================

// AssignmentKind tells the two assignment shapes apart.
type AssignmentKind string

const (
	KindShift AssignmentKind = "shift"
	KindEvent AssignmentKind = "event"
)

// Valid reports whether k is a known kind.
func (k AssignmentKind) Valid() bool {
	return k == KindShift || k == KindEvent
}

// ShiftAssignment is a worker in a shift. Hours come from the shift.
type ShiftAssignment struct {
	ID       string
	ShiftID  string
	WorkerID string
	Terms
	Settlement
}

// EventAssignment is a worker in an event. Each worker carries their own hours.
type EventAssignment struct {
	ID       string
	EventID  string
	WorkerID string
	Hours    decimal.Decimal
	Terms
	Settlement
}

// =============================================================================
// STANDALONE PAYMENTS
// =============================================================================

type PaymentSource string

const (
	SourceProject PaymentSource = "project"
	SourceEvent   PaymentSource = "event"
	SourceOther   PaymentSource = "other"
)

// Payment is money handed to a worker outside the per-assignment fields.
type Payment struct {
	ID         string
	WorkerID   string
	Amount     decimal.Decimal
	DatePaid   time.Time
	SourceType PaymentSource
	SourceID   *string
	Note       string
}
