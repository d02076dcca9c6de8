/*
errors.go - Error types for records and their persistence

ERROR CATEGORIES:
  1. Constraint errors - duplicate assignment or id, record still in use
  2. Reference errors  - self reference, unknown referrer or parent
  3. Input errors      - malformed clock times, negative hours, missing rates

USAGE:
  Store implementations translate driver errors into these so callers can
  tell "already exists" from a generic failure:

    if errors.Is(err, records.ErrDuplicateAssignment) {
        // worker already in this shift
    }
*/
package records

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrNotFound is returned when an operation needs a record that is gone.
	// Plain lookups return a nil record instead.
	ErrNotFound = errors.New("record not found")

	// ErrDuplicateAssignment is returned when a worker is already assigned to
	// the shift or event.
	ErrDuplicateAssignment = errors.New("worker already assigned")

	// ErrAlreadyExists is returned when a create names an id that is taken.
	ErrAlreadyExists = errors.New("record already exists")

	// ErrInUse is returned when a delete would orphan dependent rows.
	ErrInUse = errors.New("record is still referenced")

	// ErrSelfReference is returned when a worker names themself as reference.
	ErrSelfReference = errors.New("worker cannot reference themself")

	// ErrReferenceNotFound is returned when a worker's reference does not exist.
	ErrReferenceNotFound = errors.New("reference worker not found")

	// ErrParentNotFound is returned when an insert points at a missing
	// shift, event, project, employer or worker.
	ErrParentNotFound = errors.New("related record not found")

	// ErrMissingReferenceRate is returned when a referred worker is assigned
	// without a commission rate.
	ErrMissingReferenceRate = errors.New("reference pay rate is required for a referred worker")

	// ErrNegativeAmount is returned for negative rates, hours or amounts.
	ErrNegativeAmount = errors.New("amount cannot be negative")

	ErrNegativeHours = errors.New("hours cannot be negative")
	ErrInvalidClock  = errors.New("invalid time, use HH:MM")
	ErrInvalidKind   = errors.New("unknown assignment kind")
)

// =============================================================================
// STRUCTURED ERRORS
// =============================================================================

// DuplicateAssignmentError names the pair that already exists.
type DuplicateAssignmentError struct {
	Kind     AssignmentKind
	ParentID string
	WorkerID string
}

func (e *DuplicateAssignmentError) Error() string {
	return fmt.Sprintf("worker %s already assigned to %s %s", e.WorkerID, e.Kind, e.ParentID)
}

func (e *DuplicateAssignmentError) Unwrap() error {
	return ErrDuplicateAssignment
}

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsNotFound returns true if the error indicates a missing record.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsConflict returns true if the error is a constraint violation.
func IsConflict(err error) bool {
	return errors.Is(err, ErrDuplicateAssignment) ||
		errors.Is(err, ErrAlreadyExists) ||
		errors.Is(err, ErrInUse)
}

// IsClientError returns true if the error is due to invalid input.
func IsClientError(err error) bool {
	return errors.Is(err, ErrSelfReference) ||
		errors.Is(err, ErrReferenceNotFound) ||
		errors.Is(err, ErrParentNotFound) ||
		errors.Is(err, ErrMissingReferenceRate) ||
		errors.Is(err, ErrNegativeAmount) ||
		errors.Is(err, ErrNegativeHours) ||
		errors.Is(err, ErrInvalidClock) ||
		errors.Is(err, ErrInvalidKind)
}
