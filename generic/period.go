package generic

import (
	"fmt"
	"time"
)

// =============================================================================
// PERIOD - Inclusive date range over which attendance is aggregated
// =============================================================================

// Period is an inclusive [Start, End] date range.
type Period struct {
	Start TimePoint `json:"start"`
	End   TimePoint `json:"end"`
}

// Contains returns true if the time point is within the period [Start, End]
func (p Period) Contains(t TimePoint) bool {
	return t.AfterOrEqual(p.Start) && t.BeforeOrEqual(p.End)
}

// IsEmpty reports whether the period holds no days (End before Start).
func (p Period) IsEmpty() bool {
	return p.End.Before(p.Start)
}

// DayCount returns the number of calendar days in the period, inclusive.
func (p Period) DayCount() int {
	if p.IsEmpty() {
		return 0
	}
	return DaysBetween(p.Start, p.End) + 1
}

// Days returns all days in the period as a slice of TimePoints.
func (p Period) Days() []TimePoint {
	var days []TimePoint
	current := p.Start
	for current.BeforeOrEqual(p.End) {
		days = append(days, current)
		current = current.AddDays(1)
	}
	return days
}

// Validate rejects periods whose end precedes their start.
func (p Period) Validate() error {
	if p.Start.IsZero() || p.End.IsZero() {
		return &ValidationError{Field: "period", Message: "start and end are required"}
	}
	if p.IsEmpty() {
		return ErrInvalidPeriod
	}
	return nil
}

// String returns a string representation of the period.
func (p Period) String() string {
	return "[" + p.Start.String() + ", " + p.End.String() + "]"
}

// ClipToTenure shortens the period to an employee's tenure. A join date
// strictly after Start and not after End raises Start; a resignation date
// not before Start and strictly before End lowers End. Dates outside the
// period leave it untouched. The bool reports whether either clip fired.
func (p Period) ClipToTenure(join TimePoint, resign *TimePoint) (Period, bool) {
	clipped := p
	fired := false
	if !join.IsZero() && join.After(p.Start) && join.BeforeOrEqual(p.End) {
		clipped.Start = join
		fired = true
	}
	if resign != nil && !resign.IsZero() && resign.AfterOrEqual(p.Start) && resign.Before(p.End) {
		clipped.End = *resign
		fired = true
	}
	return clipped, fired
}

// EmployedDuring reports whether a tenure [join, resign] overlaps the period.
func (p Period) EmployedDuring(join TimePoint, resign *TimePoint) bool {
	if !join.IsZero() && join.After(p.End) {
		return false
	}
	if resign != nil && !resign.IsZero() && resign.Before(p.Start) {
		return false
	}
	return true
}

// =============================================================================
// PAY PERIOD - Period tagged with the quick-select the UI used to pick it
// =============================================================================

// QuickPeriod is a UI convenience tag. It never affects the math.
type QuickPeriod string

const (
	QuickPrevious QuickPeriod = "previous"
	QuickCurrent  QuickPeriod = "current"
	QuickNext     QuickPeriod = "next"
	QuickCustom   QuickPeriod = "custom"
)

func ParseQuickPeriod(s string) (QuickPeriod, error) {
	switch QuickPeriod(s) {
	case QuickPrevious, QuickCurrent, QuickNext, QuickCustom:
		return QuickPeriod(s), nil
	case "":
		return QuickCurrent, nil
	default:
		return "", &ValidationError{Field: "quick", Message: fmt.Sprintf("unknown quick period %q", s)}
	}
}

type PayPeriod struct {
	Period
	Quick QuickPeriod `json:"quick"`
}

// =============================================================================
// PAY PERIOD CONFIG - Resolves pay cycles from a configured payment day
// =============================================================================

// PayPeriodConfig resolves pay periods that tile the calendar.
//
// With PaymentDay == 1 every period is a calendar month. Otherwise the
// boundary in month m is min(PaymentDay, days in m) and a period runs from
// one boundary to the day before the next. A reference date on or before the
// boundary day belongs to the period ending before that boundary; a date
// after it belongs to the period starting at it.
type PayPeriodConfig struct {
	PaymentDay int
}

func (c PayPeriodConfig) Validate() error {
	if c.PaymentDay < 1 || c.PaymentDay > 31 {
		return &ValidationError{Field: "payment_day", Message: fmt.Sprintf("must be in [1,31], got %d", c.PaymentDay)}
	}
	return nil
}

// Current returns the period for the reference date.
func (c PayPeriodConfig) Current(ref TimePoint) (PayPeriod, error) {
	return c.resolve(ref, 0, QuickCurrent)
}

// Previous returns the period immediately before Current.
func (c PayPeriodConfig) Previous(ref TimePoint) (PayPeriod, error) {
	return c.resolve(ref, -1, QuickPrevious)
}

// Next returns the period immediately after Current.
func (c PayPeriodConfig) Next(ref TimePoint) (PayPeriod, error) {
	return c.resolve(ref, 1, QuickNext)
}

// Resolve dispatches on a quick-period tag. Custom periods cannot be
// resolved from a reference date and are rejected.
func (c PayPeriodConfig) Resolve(quick QuickPeriod, ref TimePoint) (PayPeriod, error) {
	switch quick {
	case QuickPrevious:
		return c.Previous(ref)
	case QuickNext:
		return c.Next(ref)
	case QuickCurrent, "":
		return c.Current(ref)
	default:
		return PayPeriod{}, &ValidationError{Field: "quick", Message: "custom periods need explicit start and end"}
	}
}

// Custom wraps an explicit range.
func Custom(start, end TimePoint) (PayPeriod, error) {
	p := Period{Start: start, End: end}
	if err := p.Validate(); err != nil {
		return PayPeriod{}, err
	}
	return PayPeriod{Period: p, Quick: QuickCustom}, nil
}

func (c PayPeriodConfig) resolve(ref TimePoint, shift int, quick QuickPeriod) (PayPeriod, error) {
	if err := c.Validate(); err != nil {
		return PayPeriod{}, err
	}
	year, month := c.closingBoundaryMonth(ref)
	month += time.Month(shift)

	start := c.boundary(year, month-1)
	end := c.boundary(year, month).AddDays(-1)
	return PayPeriod{Period: Period{Start: start, End: end}, Quick: quick}, nil
}

// closingBoundaryMonth returns the month whose boundary closes the period
// containing ref.
func (c PayPeriodConfig) closingBoundaryMonth(ref TimePoint) (int, time.Month) {
	if c.PaymentDay == 1 || ref.Day() > c.PaymentDay {
		return ref.Year(), ref.Month() + 1
	}
	return ref.Year(), ref.Month()
}

// boundary returns the boundary date in the given month. Month values outside
// 1..12 are normalized the way time.Date does.
func (c PayPeriodConfig) boundary(year int, month time.Month) TimePoint {
	first := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	day := min(c.PaymentDay, DaysInMonth(first.Year(), first.Month()))
	return NewTimePoint(first.Year(), first.Month(), day)
}
