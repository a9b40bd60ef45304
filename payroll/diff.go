package payroll

// Change is one money field that differs between two results.
type Change struct {
	Field  string `json:"field"`
	Before int64  `json:"before"`
	After  int64  `json:"after"`
}

func (c Change) Delta() int64 { return c.After - c.Before }

// Diff lists the money fields that differ, in payslip order. It is used to
// show what a recalculation would change on a confirmed result.
func Diff(before, after Result) []Change {
	fields := []struct {
		name string
		a, b int64
	}{
		{"hourly_wage", before.HourlyWage, after.HourlyWage},
		{"base_pay", before.BasePay, after.BasePay},
		{"overtime_pay", before.OvertimePay, after.OvertimePay},
		{"night_pay", before.NightPay, after.NightPay},
		{"holiday_pay", before.HolidayPay, after.HolidayPay},
		{"gross_pay", before.GrossPay, after.GrossPay},
		{"pension", before.Deductions.Pension, after.Deductions.Pension},
		{"health", before.Deductions.Health, after.Deductions.Health},
		{"long_term_care", before.Deductions.LongTermCare, after.Deductions.LongTermCare},
		{"employment_insurance", before.Deductions.EmploymentInsurance, after.Deductions.EmploymentInsurance},
		{"income_tax", before.Deductions.IncomeTax, after.Deductions.IncomeTax},
		{"local_income_tax", before.Deductions.LocalIncomeTax, after.Deductions.LocalIncomeTax},
		{"net_pay", before.NetPay, after.NetPay},
	}
	var changes []Change
	for _, f := range fields {
		if f.a != f.b {
			changes = append(changes, Change{Field: f.name, Before: f.a, After: f.b})
		}
	}
	return changes
}
