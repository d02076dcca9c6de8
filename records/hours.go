package records

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

const clockLayout = "15:04"

var minutesPerHour = decimal.NewFromInt(60)

// HoursBetween derives worked hours from two HH:MM clock times. An end time
// at or before the start wraps past midnight.
func HoursBetween(start, end string) (decimal.Decimal, error) {
	s, err := time.Parse(clockLayout, start)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: start time %q", ErrInvalidClock, start)
	}
	e, err := time.Parse(clockLayout, end)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: end time %q", ErrInvalidClock, end)
	}

	minutes := int64(e.Sub(s) / time.Minute)
	if minutes <= 0 {
		minutes += 24 * 60
	}
	return decimal.NewFromInt(minutes).Div(minutesPerHour), nil
}

// ResolveHours returns override when set, otherwise the hours between start
// and end. With neither, hours are zero.
func ResolveHours(override *decimal.Decimal, start, end string) (decimal.Decimal, error) {
	if override != nil {
		if override.IsNegative() {
			return decimal.Zero, ErrNegativeHours
		}
		return *override, nil
	}
	if start == "" || end == "" {
		return decimal.Zero, nil
	}
	return HoursBetween(start, end)
}
