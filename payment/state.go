package payment

import "github.com/shopspring/decimal"

// Tolerance absorbs drift when a paid amount is compared against a computed
// total. Every "is this fully paid?" decision goes through it.
var Tolerance = decimal.RequireFromString("0.01")

// State is the payment state of one assignment leg.
type State string

const (
	StateUnpaid        State = "unpaid"
	StatePartiallyPaid State = "partially_paid"
	StatePaid          State = "paid"
)

// IsSettled reports whether a net balance is within Tolerance of zero (or
// below it).
func IsSettled(net decimal.Decimal) bool {
	return net.LessThanOrEqual(Tolerance)
}

// CoversTotal reports whether amount pays off total.
func CoversTotal(amount, total decimal.Decimal) bool {
	return amount.GreaterThanOrEqual(total.Sub(Tolerance))
}

// Classify derives the state from the numbers alone:
//
//	UNPAID          amountPaid+tip ≈ 0
//	PAID            amountPaid+tip ≈ total (or more)
//	PARTIALLY_PAID  anything in between
//
// A zero total with nothing paid is PAID: there is nothing to owe.
func Classify(total, amountPaid, tip decimal.Decimal) State {
	if IsSettled(NetPayment(total, amountPaid, tip)) {
		return StatePaid
	}
	if amountPaid.Add(tip).Abs().LessThanOrEqual(Tolerance) {
		return StateUnpaid
	}
	return StatePartiallyPaid
}
