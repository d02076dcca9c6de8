package records

import "fmt"

// ValidateWorker checks the rules a worker row must satisfy before it is saved.
func ValidateWorker(w Worker) error {
	if w.HasReference() && *w.ReferenceID == w.ID {
		return ErrSelfReference
	}
	return nil
}

// PrepareTerms applies the referral rule for worker: a referred worker must
// carry a commission rate; anyone else has the rate dropped since nobody
// would receive it.
func PrepareTerms(worker Worker, t Terms) (Terms, error) {
	if t.PayRate.IsNegative() {
		return t, fmt.Errorf("%w: pay rate", ErrNegativeAmount)
	}
	if !worker.HasReference() {
		t.ReferencePayRate = nil
		return t, nil
	}
	if t.ReferencePayRate == nil {
		return t, ErrMissingReferenceRate
	}
	if t.ReferencePayRate.IsNegative() {
		return t, fmt.Errorf("%w: reference pay rate", ErrNegativeAmount)
	}
	return t, nil
}
