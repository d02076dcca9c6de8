/*
Package payment computes what an assignment is worth and what is still owed on it.

PURPOSE:
  Pure arithmetic for the crew ledger. Every amount shown on a dashboard,
  summed by an aggregate or compared during a payment mutation comes from
  the functions in this package. Nothing here touches storage.

PAYMENT MODES:
  Hourly: rate is per hour, amount = rate * hours
  Fixed:  rate is the whole amount, hours are ignored

REFERRAL LEG:
  A worker may list another worker as their reference. The referrer earns a
  commission on the referred worker's assignment, computed with its own rate
  and its own hourly/fixed flag, against the SAME hours as the assignment.

  total = worker leg + referral leg

PRECISION:
  Amounts are decimal.Decimal and are never rounded here. Rounding to two
  places is a presentation concern (see Round2). Comparisons of a paid amount
  against a computed total go through Tolerance.

EXAMPLE:
  worker := payment.WorkerPayment(dec(50), dec(8), true)        // 400
  ref := payment.ReferencePayment(ptr(dec(10)), dec(8), true)   // 80
  net := payment.NetPayment(worker.Add(ref), dec(200), dec(0))  // 280

SEE ALSO:
  - state.go: UNPAID / PARTIALLY_PAID / PAID classification
  - debts/mutation.go: operations driven by these comparisons
*/
package payment

import "github.com/shopspring/decimal"

// WorkerPayment is payRate*hours for hourly rates and payRate otherwise.
func WorkerPayment(payRate, hours decimal.Decimal, isHourlyRate bool) decimal.Decimal {
	if isHourlyRate {
		return payRate.Mul(hours)
	}
	return payRate
}

// ReferencePayment is the referrer's commission. A nil rate means the
// assignment has no referral leg.
func ReferencePayment(referencePayRate *decimal.Decimal, hours decimal.Decimal, isReferenceHourlyRate bool) decimal.Decimal {
	if referencePayRate == nil {
		return decimal.Zero
	}
	return WorkerPayment(*referencePayRate, hours, isReferenceHourlyRate)
}

// TotalPayment is the full cost of one assignment, both legs.
func TotalPayment(payRate, hours decimal.Decimal, isHourlyRate bool, referencePayRate *decimal.Decimal, isReferenceHourlyRate bool) decimal.Decimal {
	return WorkerPayment(payRate, hours, isHourlyRate).
		Add(ReferencePayment(referencePayRate, hours, isReferenceHourlyRate))
}

// NetPayment is what remains after amountPaid and tip. Overpayment yields a
// negative result; callers must not assume it is clamped.
func NetPayment(total, amountPaid, tip decimal.Decimal) decimal.Decimal {
	return total.Sub(amountPaid).Sub(tip)
}

// NetReferencePayment is NetPayment for the referral leg.
func NetReferencePayment(referenceTotal, referenceAmountPaid, referenceTip decimal.Decimal) decimal.Decimal {
	return NetPayment(referenceTotal, referenceAmountPaid, referenceTip)
}

// TotalNetPayment combines the two legs' outstanding balances.
func TotalNetPayment(workerNet, referenceNet decimal.Decimal) decimal.Decimal {
	return workerNet.Add(referenceNet)
}

// Round2 rounds for display. Never store or compare its result.
func Round2(d decimal.Decimal) float64 {
	return d.Round(2).InexactFloat64()
}
