/*
Package payroll assembles per-employee payslips and runs batches of them.

PURPOSE:
  Composes period resolution, hour accumulation, wage pricing and
  statutory deductions into one Result per employee, and runs a batch of
  employees concurrently while streaming progress events.

KEY CONCEPTS:
  Employee:   Immutable reference data for one calculation run
  Result:     One payslip, emitted with Status = unconfirmed
  Assembler:  Pure per-employee composition (assembler.go)
  Engine:     Concurrent batch runner with event stream (engine.go)
  Service:    Engine + directory + attendance source + result store (service.go)

STATUS LIFECYCLE:
  calculating -> unconfirmed -> confirmed -> paid

  The engine only ever produces unconfirmed results. Confirm and pay are
  external transitions enforced by the result stores. A confirmed or paid
  result is locked: recalculation never overwrites it.

BATCH ISOLATION:
  A CalculationError fails only its employee. Validation and configuration
  errors fail the whole batch before any employee is processed.

SEE ALSO:
  - generic/period.go: pay period resolution and tenure clipping
  - attendance/, wage/, deduction/: the calculators composed here
  - store/: result store implementations
*/
package payroll

import (
	"fmt"
	"time"

	"github.com/warp/payroll-engine/attendance"
	"github.com/warp/payroll-engine/deduction"
	"github.com/warp/payroll-engine/generic"
	"github.com/warp/payroll-engine/wage"
)

// =============================================================================
// EMPLOYEE
// =============================================================================

type Employee struct {
	ID         string             `json:"id"`
	Name       string             `json:"name"`
	BaseSalary int64              `json:"base_salary"`
	Dependents int                `json:"dependents"`
	Children   int                `json:"children"`
	JoinDate   generic.TimePoint  `json:"join_date"`
	ResignDate *generic.TimePoint `json:"resign_date,omitempty"`
	Department string             `json:"department,omitempty"`
	Position   string             `json:"position,omitempty"`
	CompanyID  string             `json:"company_id,omitempty"`
}

func (e Employee) Validate() error {
	switch {
	case e.ID == "":
		return &generic.ValidationError{Field: "employee_id", Message: "required"}
	case e.BaseSalary < 0:
		return &generic.ValidationError{Field: "base_salary", EmployeeID: e.ID, Message: "must not be negative"}
	case e.Dependents < 0:
		return &generic.ValidationError{Field: "dependents", EmployeeID: e.ID, Message: "must not be negative"}
	case e.Children < 0:
		return &generic.ValidationError{Field: "children", EmployeeID: e.ID, Message: "must not be negative"}
	case e.JoinDate.IsZero():
		return &generic.ValidationError{Field: "join_date", EmployeeID: e.ID, Message: "required"}
	case e.ResignDate != nil && !e.ResignDate.IsZero() && e.ResignDate.Before(e.JoinDate):
		return &generic.ValidationError{Field: "resign_date", EmployeeID: e.ID, Message: "before join date"}
	}
	return nil
}

// =============================================================================
// STATUS
// =============================================================================

type Status string

const (
	StatusCalculating Status = "calculating"
	StatusUnconfirmed Status = "unconfirmed"
	StatusConfirmed   Status = "confirmed"
	StatusPaid        Status = "paid"
)

var transitions = map[Status]Status{
	StatusCalculating: StatusUnconfirmed,
	StatusUnconfirmed: StatusConfirmed,
	StatusConfirmed:   StatusPaid,
}

func (s Status) CanTransitionTo(to Status) bool {
	return transitions[s] == to
}

// Locked reports whether a recalculation must leave the result alone.
func (s Status) Locked() bool {
	return s == StatusConfirmed || s == StatusPaid
}

func ParseStatus(s string) (Status, error) {
	switch st := Status(s); st {
	case StatusCalculating, StatusUnconfirmed, StatusConfirmed, StatusPaid:
		return st, nil
	default:
		return "", &generic.ValidationError{Field: "status", Message: fmt.Sprintf("unknown status %q", s)}
	}
}

// CheckTransition is shared by every result store.
func CheckTransition(from, to Status) error {
	if !from.CanTransitionTo(to) {
		return fmt.Errorf("%w: %s -> %s", generic.ErrInvalidStatusTransition, from, to)
	}
	return nil
}

// =============================================================================
// RESULT
// =============================================================================

// Result is one employee's payslip for one pay period.
//
// Invariants:
//   - GrossPay = BasePay + OvertimePay + NightPay + HolidayPay
//   - NetPay = GrossPay - Deductions.Total() and is never negative
type Result struct {
	EmployeeID string            `json:"employee_id"`
	Period     generic.PayPeriod `json:"period"`

	// Effective is Period clipped to the employee's tenure.
	Effective generic.Period `json:"effective"`
	Prorated  bool           `json:"prorated"`

	Hours attendance.HourBuckets `json:"hours"`
	wage.Pay
	Deductions deduction.Deductions `json:"deductions"`
	NetPay     int64                `json:"net_pay"`

	Status Status `json:"status"`

	// CalculatedAt is stamped when the result is persisted. The engine
	// leaves it zero so identical inputs give identical results.
	CalculatedAt time.Time `json:"calculated_at,omitempty"`
}

// Key identifies a result in the stores: employee plus nominal period start.
func (r Result) Key() (string, generic.TimePoint) {
	return r.EmployeeID, r.Period.Start
}

// =============================================================================
// PERIOD SPEC - How a batch picks its pay period
// =============================================================================

// PeriodSpec is the period configuration of a batch. Quick previous,
// current and next resolve from PaymentDay and Reference; custom uses Start
// and End as given.
type PeriodSpec struct {
	PaymentDay int
	Quick      generic.QuickPeriod
	Reference  generic.TimePoint
	Start      generic.TimePoint
	End        generic.TimePoint
}

func (s PeriodSpec) Resolve() (generic.PayPeriod, error) {
	if s.Quick == generic.QuickCustom {
		return generic.Custom(s.Start, s.End)
	}
	if s.Reference.IsZero() {
		return generic.PayPeriod{}, &generic.ValidationError{Field: "reference_date", Message: "required for quick periods"}
	}
	return generic.PayPeriodConfig{PaymentDay: s.PaymentDay}.Resolve(s.Quick, s.Reference)
}
