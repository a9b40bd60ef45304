/*
Package wage prices hour buckets against a monthly base salary.

PURPOSE:
  Converts the attendance hour buckets and a base salary into the pay
  components of a payslip: base, overtime, night, holiday.

FORMULAS:
  hourlyWage   = floor(monthlySalary / 209)
  basePay      = monthlySalary, or floor(monthlySalary / 30) * days when prorated
  overtimePay  = floor(overtimeHours * hourlyWage * 1.5)
  nightPay     = floor(nightHours * hourlyWage * 0.5)     additive premium
  holidayPay   = floor(regularHoliday * hourlyWage * 1.5)
               + floor(overtimeHoliday * hourlyWage * 2.0)
  grossPay     = base + overtime + night + holiday

  Every component is floored on its own before summing.

SEE ALSO:
  - attendance/: produces HourBuckets
  - deduction/: consumes GrossPay
*/
package wage

import (
	"github.com/shopspring/decimal"
	"github.com/warp/payroll-engine/attendance"
	"github.com/warp/payroll-engine/generic"
)

const (
	// StandardMonthlyHours is the statutory monthly hour basis (40h week incl. paid rest day).
	StandardMonthlyHours = 209

	// ProrationDays is the fixed divisor for partial-month base pay.
	ProrationDays = 30
)

// Multipliers applied to the regular hourly wage.
type Multipliers struct {
	Overtime        decimal.Decimal
	NightPremium    decimal.Decimal
	Holiday         decimal.Decimal
	HolidayOvertime decimal.Decimal
}

func DefaultMultipliers() Multipliers {
	return Multipliers{
		Overtime:        decimal.NewFromFloat(1.5),
		NightPremium:    decimal.NewFromFloat(0.5),
		Holiday:         decimal.NewFromFloat(1.5),
		HolidayOvertime: decimal.NewFromInt(2),
	}
}

// Input is everything the calculator needs for one employee and period.
type Input struct {
	EmployeeID    string
	MonthlySalary int64
	Hours         attendance.HourBuckets

	// Prorated is set when the period was clipped to the employee's tenure.
	// Days is then the number of days in the clipped period.
	Prorated bool
	Days     int
}

// Pay holds the priced components. All amounts are floored integers.
type Pay struct {
	HourlyWage  int64 `json:"hourly_wage"`
	BasePay     int64 `json:"base_pay"`
	OvertimePay int64 `json:"overtime_pay"`
	NightPay    int64 `json:"night_pay"`
	HolidayPay  int64 `json:"holiday_pay"`
	GrossPay    int64 `json:"gross_pay"`
}

type Calculator struct {
	Multipliers Multipliers
}

func NewCalculator() *Calculator {
	return &Calculator{Multipliers: DefaultMultipliers()}
}

// HourlyWage returns floor(salary / 209).
func HourlyWage(monthlySalary int64) int64 {
	if monthlySalary <= 0 {
		return 0
	}
	return monthlySalary / StandardMonthlyHours
}

// BasePay returns the full salary, or the daily rate times the clipped day
// count when the period was prorated.
func BasePay(monthlySalary int64, prorated bool, days int) int64 {
	if !prorated {
		return monthlySalary
	}
	if days <= 0 {
		return 0
	}
	return (monthlySalary / ProrationDays) * int64(days)
}

func (c *Calculator) Calculate(in Input) (Pay, error) {
	if in.MonthlySalary < 0 {
		return Pay{}, &generic.ValidationError{Field: "base_salary", EmployeeID: in.EmployeeID, Message: "must not be negative"}
	}
	m := c.Multipliers
	hourly := HourlyWage(in.MonthlySalary)

	pay := Pay{
		HourlyWage:  hourly,
		BasePay:     BasePay(in.MonthlySalary, in.Prorated, in.Days),
		OvertimePay: generic.FloorPay(in.Hours.Overtime, hourly, m.Overtime),
		NightPay:    generic.FloorPay(in.Hours.Night, hourly, m.NightPremium),
		HolidayPay: generic.FloorPay(in.Hours.RegularHoliday, hourly, m.Holiday) +
			generic.FloorPay(in.Hours.OvertimeHoliday, hourly, m.HolidayOvertime),
	}
	pay.GrossPay = pay.BasePay + pay.OvertimePay + pay.NightPay + pay.HolidayPay
	return pay, nil
}
