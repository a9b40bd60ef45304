/*
Package attendance turns raw check-in/check-out records into hour buckets.

PURPOSE:
  Upstream attendance sources hand us wall-clock strings. This package
  normalizes them, groups them per calendar day, applies break deductions
  and partitions each day into regular, overtime, night and holiday hours.

KEY CONCEPTS:
  Record:      One check-in/check-out pair for an employee on a date
  Type:        Attendance tag (normal, late, holiday_work, absence, leave, ...)
  HourBuckets: Per-employee totals for a period
  Rules:       Regular end, night window and break constants

DAY PROCESSING:
  All records of one date are accumulated together, in check-in order,
  before any cross-date aggregation. The break deduction is taken on the
  day's total raw duration, never per record.

SEE ALSO:
  - normalize.go: 24:00:00 handling and timestamp parsing
  - accumulator.go: the day partitioning rules
  - wage/: prices the buckets
*/
package attendance

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/warp/payroll-engine/generic"
)

// =============================================================================
// ATTENDANCE TYPE
// =============================================================================

type Type string

const (
	TypeNormal       Type = "normal"
	TypeLate         Type = "late"
	TypeEarlyLeave   Type = "early_leave"
	TypeBusinessTrip Type = "business_trip"
	TypeHolidayWork  Type = "holiday_work"
	TypeAbsence      Type = "absence"
	TypeLeave        Type = "leave"
)

// ParseType accepts canonical tags only. Legacy spellings are mapped by the
// ingest package before records reach the engine.
func ParseType(s string) (Type, error) {
	switch t := Type(s); t {
	case TypeNormal, TypeLate, TypeEarlyLeave, TypeBusinessTrip, TypeHolidayWork, TypeAbsence, TypeLeave:
		return t, nil
	case "":
		return TypeNormal, nil
	default:
		return "", &generic.ValidationError{Field: "attendance_type", Message: fmt.Sprintf("unknown type %q", s)}
	}
}

// Worked reports whether the tag contributes hours at all.
func (t Type) Worked() bool {
	return t != TypeAbsence && t != TypeLeave
}

// =============================================================================
// RECORD - Append-only input, never mutated by the engine
// =============================================================================

type Record struct {
	EmployeeID string
	Date       generic.TimePoint
	CheckIn    string // "YYYY-MM-DD HH:MM:SS", may use 24:00:00
	CheckOut   string
	Type       Type
}

// Validate checks required fields. Timestamp parsing is deferred to the
// calculation so one bad row fails only its employee.
func (r Record) Validate() error {
	if r.EmployeeID == "" {
		return &generic.ValidationError{Field: "employee_id", Message: "attendance record without employee"}
	}
	if r.Date.IsZero() {
		return &generic.ValidationError{Field: "date", EmployeeID: r.EmployeeID, Message: "attendance record without date"}
	}
	if _, err := ParseType(string(r.Type)); err != nil {
		return err
	}
	if r.Type.Worked() && (r.CheckIn == "" || r.CheckOut == "") {
		return &generic.ValidationError{
			Field:      "check_in/check_out",
			EmployeeID: r.EmployeeID,
			Message:    fmt.Sprintf("%s record on %s is missing a timestamp", r.Type, r.Date),
		}
	}
	return nil
}

// =============================================================================
// HOUR BUCKETS - Derived, ephemeral per-period totals
// =============================================================================

type HourBuckets struct {
	Regular         time.Duration
	Overtime        time.Duration
	Night           time.Duration
	RegularHoliday  time.Duration
	OvertimeHoliday time.Duration
	WorkedDays      int
}

func (b HourBuckets) Add(o HourBuckets) HourBuckets {
	return HourBuckets{
		Regular:         b.Regular + o.Regular,
		Overtime:        b.Overtime + o.Overtime,
		Night:           b.Night + o.Night,
		RegularHoliday:  b.RegularHoliday + o.RegularHoliday,
		OvertimeHoliday: b.OvertimeHoliday + o.OvertimeHoliday,
		WorkedDays:      b.WorkedDays + o.WorkedDays,
	}
}

func (b HourBuckets) IsZero() bool {
	return b == HourBuckets{}
}

// HoursView is the decimal-hours rendering used in API responses.
type HoursView struct {
	Regular         decimal.Decimal `json:"regular"`
	Overtime        decimal.Decimal `json:"overtime"`
	Night           decimal.Decimal `json:"night"`
	RegularHoliday  decimal.Decimal `json:"regular_holiday"`
	OvertimeHoliday decimal.Decimal `json:"overtime_holiday"`
	WorkedDays      int             `json:"worked_days"`
}

func (b HourBuckets) View() HoursView {
	return HoursView{
		Regular:         generic.Hours(b.Regular),
		Overtime:        generic.Hours(b.Overtime),
		Night:           generic.Hours(b.Night),
		RegularHoliday:  generic.Hours(b.RegularHoliday),
		OvertimeHoliday: generic.Hours(b.OvertimeHoliday),
		WorkedDays:      b.WorkedDays,
	}
}

// =============================================================================
// RULES - Work-time constants
// =============================================================================

// Rules holds the clock boundaries and break constants. Clock values are
// offsets from midnight of the record date.
type Rules struct {
	RegularEnd time.Duration // overtime starts here
	NightStart time.Duration
	NightEnd   time.Duration // on the following day

	LongShift       time.Duration // raw >= LongShift: LongBreak
	LongBreak       time.Duration
	ShortShift      time.Duration // raw in [ShortShift, LongShift): ShortBreak
	ShortBreak      time.Duration
	OvertimeBlock   time.Duration // OvertimeBreak per full block of continuous overtime
	OvertimeBreak   time.Duration
	HolidayBaseline time.Duration // first hours of a holiday are regular-holiday
}

func DefaultRules() Rules {
	return Rules{
		RegularEnd:      18 * time.Hour,
		NightStart:      22 * time.Hour,
		NightEnd:        6 * time.Hour,
		LongShift:       8 * time.Hour,
		LongBreak:       time.Hour,
		ShortShift:      4 * time.Hour,
		ShortBreak:      30 * time.Minute,
		OvertimeBlock:   4*time.Hour + 30*time.Minute,
		OvertimeBreak:   30 * time.Minute,
		HolidayBaseline: 8 * time.Hour,
	}
}
