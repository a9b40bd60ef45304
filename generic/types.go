/*
Package generic provides the primitives shared by every payroll component.

PURPOSE:
  Calendar dates, pay periods, holiday calendars, error kinds and the
  floor-only money arithmetic the calculators are built on. Nothing in
  here knows about employees or tax tables.

KEY CONCEPTS:
  - TimePoint: a calendar date (time.go)
  - Period / PayPeriodConfig: inclusive date ranges and pay-cycle resolution (period.go)
  - Money: int64 in the smallest currency unit, always truncated with floor
  - Hours: worked time kept as time.Duration, converted to decimal only for display

DESIGN PRINCIPLES:
  1. Precision: decimal.Decimal for every rate multiplication, no float64
  2. Floor only: statutory reporting depends on bit-exact truncation
  3. Durations stay exact: pay is computed from seconds, divided last

SEE ALSO:
  - attendance/: builds hour buckets from these primitives
  - wage/, deduction/: consume FloorPay / FloorRate
*/
package generic

import (
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// HOURS - time.Duration <-> decimal hours
// =============================================================================

var secondsPerHour = decimal.NewFromInt(3600)

// Hours converts a duration to decimal hours. Used for display and JSON;
// pay is computed from the duration directly so no precision is lost.
func Hours(d time.Duration) decimal.Decimal {
	return decimal.NewFromInt(int64(d / time.Second)).Div(secondsPerHour)
}

// HoursOf is the inverse of Hours for whole and fractional hour literals.
func HoursOf(h float64) time.Duration {
	return time.Duration(h * float64(time.Hour))
}

// =============================================================================
// MONEY - floor-only arithmetic in the smallest currency unit
// =============================================================================

// FloorPay returns floor(hours(d) * hourlyWage * multiplier).
// The division by 3600 happens last, so whole-hour inputs stay exact.
func FloorPay(d time.Duration, hourlyWage int64, multiplier decimal.Decimal) int64 {
	if d <= 0 || hourlyWage <= 0 {
		return 0
	}
	seconds := decimal.NewFromInt(int64(d / time.Second))
	return seconds.
		Mul(decimal.NewFromInt(hourlyWage)).
		Mul(multiplier).
		Div(secondsPerHour).
		Floor().
		IntPart()
}

// FloorRate returns floor(amount * rate).
func FloorRate(amount int64, rate decimal.Decimal) int64 {
	return decimal.NewFromInt(amount).Mul(rate).Floor().IntPart()
}

// Clamp bounds v to [lo, hi].
func Clamp(v, lo, hi int64) int64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// MustParseDecimal parses literal rates in defaults and tests.
func MustParseDecimal(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}
