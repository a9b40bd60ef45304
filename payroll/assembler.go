package payroll

import (
	"errors"
	"fmt"

	"github.com/warp/payroll-engine/attendance"
	"github.com/warp/payroll-engine/deduction"
	"github.com/warp/payroll-engine/generic"
	"github.com/warp/payroll-engine/wage"
)

// Assembler composes the calculators for one employee. It holds no mutable
// state and is safe for concurrent use.
type Assembler struct {
	Hours      *attendance.Accumulator
	Wages      *wage.Calculator
	Deductions *deduction.Engine
}

func NewAssembler(calendar generic.HolidayCalendar, deductions *deduction.Engine) *Assembler {
	return &Assembler{
		Hours:      attendance.NewAccumulator(calendar, ""),
		Wages:      wage.NewCalculator(),
		Deductions: deductions,
	}
}

// Check reports a missing collaborator as a ConfigurationError.
func (a *Assembler) Check() error {
	if a == nil || a.Deductions == nil {
		return &generic.ConfigurationError{Source: "deductions", Err: errors.New("bracket tables are not loaded")}
	}
	if a.Hours == nil || a.Wages == nil {
		return &generic.ConfigurationError{Source: "assembler", Err: errors.New("calculators are not configured")}
	}
	return nil
}

// Assemble resolves the period and calculates one payslip.
func (a *Assembler) Assemble(emp Employee, records []attendance.Record, spec PeriodSpec) (Result, error) {
	period, err := spec.Resolve()
	if err != nil {
		return Result{}, err
	}
	return a.AssemblePeriod(emp, records, period)
}

// AssemblePeriod calculates one payslip for an already resolved period.
// Attendance outside the employee's tenure inside the period is ignored.
func (a *Assembler) AssemblePeriod(emp Employee, records []attendance.Record, period generic.PayPeriod) (Result, error) {
	if err := a.Check(); err != nil {
		return Result{}, err
	}
	if err := emp.Validate(); err != nil {
		return Result{}, err
	}

	effective, prorated := period.ClipToTenure(emp.JoinDate, emp.ResignDate)
	if !period.EmployedDuring(emp.JoinDate, emp.ResignDate) {
		// Empty on purpose: End before Start, zero days.
		effective = generic.Period{Start: period.Start, End: period.Start.AddDays(-1)}
		prorated = true
	}

	hours, err := a.Hours.ForCompany(emp.CompanyID).Accumulate(emp.ID, records, effective)
	if err != nil {
		return Result{}, tagEmployee(err, emp.ID)
	}

	pay, err := a.Wages.Calculate(wage.Input{
		EmployeeID:    emp.ID,
		MonthlySalary: emp.BaseSalary,
		Hours:         hours,
		Prorated:      prorated,
		Days:          effective.DayCount(),
	})
	if err != nil {
		return Result{}, err
	}

	ded, err := a.Deductions.Calculate(pay.GrossPay, emp.Dependents, emp.Children)
	if err != nil {
		return Result{}, tagEmployee(err, emp.ID)
	}

	net := pay.GrossPay - ded.Total()
	if net < 0 {
		return Result{}, &generic.CalculationError{
			EmployeeID: emp.ID,
			Code:       generic.CodeNegativeNetPay,
			Message:    fmt.Sprintf("deductions %d exceed gross pay %d", ded.Total(), pay.GrossPay),
		}
	}

	return Result{
		EmployeeID: emp.ID,
		Period:     period,
		Effective:  effective,
		Prorated:   prorated,
		Hours:      hours,
		Pay:        pay,
		Deductions: ded,
		NetPay:     net,
		Status:     StatusUnconfirmed,
	}, nil
}

func tagEmployee(err error, employeeID string) error {
	var calcErr *generic.CalculationError
	if errors.As(err, &calcErr) && calcErr.EmployeeID == "" {
		return calcErr.WithEmployee(employeeID)
	}
	return err
}
