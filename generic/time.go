package generic

import (
	"encoding/json"
	"time"
)

// =============================================================================
// TIME POINT - Calendar date used for periods, tenure and attendance dates
// =============================================================================

type TimePoint struct {
	Time        time.Time
	Granularity Granularity
}

type Granularity int

const (
	GranularityDay Granularity = iota
	GranularityHour
	GranularityMinute
)

const DateLayout = "2006-01-02"

// Constructors
func NewTimePoint(year int, month time.Month, day int) TimePoint {
	return TimePoint{Time: time.Date(year, month, day, 0, 0, 0, 0, time.UTC), Granularity: GranularityDay}
}

// DateOf truncates t to its calendar date.
func DateOf(t time.Time) TimePoint {
	return NewTimePoint(t.Year(), t.Month(), t.Day())
}

// ParseDate parses a YYYY-MM-DD string.
func ParseDate(s string) (TimePoint, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return TimePoint{}, err
	}
	return DateOf(t), nil
}

// MustParseDate is ParseDate for tests and fixtures.
func MustParseDate(s string) TimePoint {
	tp, err := ParseDate(s)
	if err != nil {
		panic(err)
	}
	return tp
}

func Today() TimePoint {
	return DateOf(time.Now())
}

// Encoding: dates travel as "YYYY-MM-DD" in JSON and CSV. The zero value is
// an empty string.

func (tp TimePoint) MarshalJSON() ([]byte, error) {
	if tp.IsZero() {
		return []byte(`""`), nil
	}
	return json.Marshal(tp.String())
}

func (tp *TimePoint) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	return tp.UnmarshalCSV(s)
}

func (tp TimePoint) MarshalCSV() (string, error) {
	if tp.IsZero() {
		return "", nil
	}
	return tp.String(), nil
}

func (tp *TimePoint) UnmarshalCSV(s string) error {
	if s == "" {
		*tp = TimePoint{}
		return nil
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*tp = parsed
	return nil
}

// Comparison
func (tp TimePoint) Before(other TimePoint) bool        { return tp.normalize().Before(other.normalize()) }
func (tp TimePoint) Equal(other TimePoint) bool         { return tp.normalize().Equal(other.normalize()) }
func (tp TimePoint) After(other TimePoint) bool         { return tp.normalize().After(other.normalize()) }
func (tp TimePoint) BeforeOrEqual(other TimePoint) bool { return tp.Before(other) || tp.Equal(other) }
func (tp TimePoint) AfterOrEqual(other TimePoint) bool  { return tp.After(other) || tp.Equal(other) }

func (tp TimePoint) normalize() time.Time {
	switch tp.Granularity {
	case GranularityDay:
		return time.Date(tp.Time.Year(), tp.Time.Month(), tp.Time.Day(), 0, 0, 0, 0, time.UTC)
	case GranularityHour:
		return time.Date(tp.Time.Year(), tp.Time.Month(), tp.Time.Day(), tp.Time.Hour(), 0, 0, 0, time.UTC)
	default:
		return tp.Time
	}
}

// Arithmetic
func (tp TimePoint) AddDays(n int) TimePoint { return TimePoint{Time: tp.Time.AddDate(0, 0, n), Granularity: tp.Granularity} }

// AddMonthsClamped moves n months and clamps the day to the target month's
// last day, so Jan 31 + 1 month is Feb 28/29 and never rolls into March.
func (tp TimePoint) AddMonthsClamped(n int) TimePoint {
	first := time.Date(tp.Year(), tp.Month(), 1, 0, 0, 0, 0, time.UTC).AddDate(0, n, 0)
	day := min(tp.Day(), DaysInMonth(first.Year(), first.Month()))
	return NewTimePoint(first.Year(), first.Month(), day)
}

// At returns the wall-clock instant hour:minute on this date (UTC).
func (tp TimePoint) At(hour, minute int) time.Time {
	return time.Date(tp.Year(), tp.Month(), tp.Day(), hour, minute, 0, 0, time.UTC)
}

// Properties
func (tp TimePoint) Year() int             { return tp.Time.Year() }
func (tp TimePoint) Month() time.Month     { return tp.Time.Month() }
func (tp TimePoint) Day() int              { return tp.Time.Day() }
func (tp TimePoint) Weekday() time.Weekday { return tp.Time.Weekday() }
func (tp TimePoint) IsWeekend() bool       { wd := tp.Weekday(); return wd == time.Saturday || wd == time.Sunday }
func (tp TimePoint) IsWorkday() bool       { return !tp.IsWeekend() }
func (tp TimePoint) IsZero() bool          { return tp.Time.IsZero() }

func (tp TimePoint) String() string {
	switch tp.Granularity {
	case GranularityDay:
		return tp.Time.Format(DateLayout)
	case GranularityHour:
		return tp.Time.Format("2006-01-02 15:00")
	default:
		return tp.Time.Format(time.RFC3339)
	}
}

// =============================================================================
// HOLIDAY CALENDAR - Public and company holidays
// =============================================================================

// Holiday is a non-working day. Work on it is paid at holiday rates.
type Holiday struct {
	ID        string
	CompanyID string    // Empty string = global/default holidays
	Date      TimePoint // The holiday date
	Name      string
	Recurring bool // true = same month/day every year
}

// HolidayCalendar provides holiday lookup functionality.
type HolidayCalendar interface {
	// IsHoliday checks company-specific holidays first, then global holidays.
	IsHoliday(companyID string, date TimePoint) bool

	// GetHolidays returns company-specific and global holidays for a year.
	GetHolidays(companyID string, year int) []Holiday
}

// DefaultHolidayCalendar is a no-op calendar: only weekends count.
type DefaultHolidayCalendar struct{}

func (d *DefaultHolidayCalendar) IsHoliday(companyID string, date TimePoint) bool  { return false }
func (d *DefaultHolidayCalendar) GetHolidays(companyID string, year int) []Holiday { return nil }

// StaticHolidayCalendar is an in-memory calendar, used by tests and demo scenarios.
type StaticHolidayCalendar struct {
	Holidays []Holiday
}

func (s *StaticHolidayCalendar) IsHoliday(companyID string, date TimePoint) bool {
	for _, h := range s.Holidays {
		if h.CompanyID != "" && h.CompanyID != companyID {
			continue
		}
		if h.Recurring && h.Date.Month() == date.Month() && h.Date.Day() == date.Day() {
			return true
		}
		if h.Date.Equal(date) {
			return true
		}
	}
	return false
}

func (s *StaticHolidayCalendar) GetHolidays(companyID string, year int) []Holiday {
	var out []Holiday
	for _, h := range s.Holidays {
		if h.CompanyID != "" && h.CompanyID != companyID {
			continue
		}
		if h.Recurring {
			h.Date = NewTimePoint(year, h.Date.Month(), h.Date.Day())
			out = append(out, h)
		} else if h.Date.Year() == year {
			out = append(out, h)
		}
	}
	return out
}

// IsWorkdayWithHolidays checks if a date is a working day, considering holidays.
func (tp TimePoint) IsWorkdayWithHolidays(calendar HolidayCalendar, companyID string) bool {
	if tp.IsWeekend() {
		return false
	}
	if calendar != nil && calendar.IsHoliday(companyID, tp) {
		return false
	}
	return true
}

// =============================================================================
// TIME UTILITIES
// =============================================================================

func DaysBetween(from, to TimePoint) int { return int(to.normalize().Sub(from.normalize()).Hours() / 24) }

func StartOfMonth(year int, month time.Month) TimePoint { return NewTimePoint(year, month, 1) }
func EndOfMonth(year int, month time.Month) TimePoint {
	t := time.Date(year, month+1, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, -1)
	return TimePoint{Time: t, Granularity: GranularityDay}
}

func DaysInMonth(year int, month time.Month) int { return EndOfMonth(year, month).Day() }
