/*
errors.go - Validation errors for payment mutations

Every payment input is checked before anything is loaded for writing, so a
rejected payment leaves the stored assignment exactly as it was.

USAGE:
  if errors.Is(err, debts.ErrAmountExceedsBalance) {
      // show "amount exceeds balance"
  }

  var verr *debts.ValidationError
  if errors.As(err, &verr) {
      // verr.Field, verr.Code for a field-level message
  }
*/
package debts

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrInvalidAmount is returned for a payment amount that is zero or negative.
	ErrInvalidAmount = errors.New("amount must be greater than zero")

	// ErrAmountExceedsBalance is returned when a payment is larger than the
	// leg's total.
	ErrAmountExceedsBalance = errors.New("amount exceeds balance")

	// ErrNegativeTip is returned for a negative tip.
	ErrNegativeTip = errors.New("tip cannot be negative")

	// ErrInvalidLeg is returned for an unknown payment leg.
	ErrInvalidLeg = errors.New("unknown payment leg")
)

// =============================================================================
// STRUCTURED ERRORS
// =============================================================================

// ValidationError ties a rejected input to the field it came from.
type ValidationError struct {
	Field   string
	Code    string
	Message string
	Err     error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

func invalid(field, code string, err error, format string, args ...any) *ValidationError {
	return &ValidationError{
		Field:   field,
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Err:     err,
	}
}
