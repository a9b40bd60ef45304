package deduction

import (
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/warp/payroll-engine/generic"
)

var ltcShare = decimal.NewFromFloat(0.5)

// Deductions is the statutory part of a payslip.
type Deductions struct {
	Pension             int64 `json:"pension"`
	Health              int64 `json:"health"`
	LongTermCare        int64 `json:"long_term_care"`
	EmploymentInsurance int64 `json:"employment_insurance"`
	IncomeTax           int64 `json:"income_tax"`
	LocalIncomeTax      int64 `json:"local_income_tax"`

	// TaxableIncome and ChildCredit are reported for payslip transparency.
	TaxableIncome int64 `json:"taxable_income"`
	ChildCredit   int64 `json:"child_credit"`
}

func (d Deductions) Insurance() int64 {
	return d.Pension + d.Health + d.LongTermCare + d.EmploymentInsurance
}

func (d Deductions) Tax() int64 {
	return d.IncomeTax + d.LocalIncomeTax
}

func (d Deductions) Total() int64 {
	return d.Insurance() + d.Tax()
}

// Engine is immutable after construction and safe for concurrent use.
type Engine struct {
	rates  Rates
	tables Tables
}

// NewEngine validates both resources. An error here is a
// ConfigurationError and is fatal to any batch.
func NewEngine(rates Rates, tables Tables) (*Engine, error) {
	if err := rates.Validate(); err != nil {
		return nil, err
	}
	tables.Sort()
	if err := tables.Validate(); err != nil {
		return nil, err
	}
	return &Engine{rates: rates, tables: tables}, nil
}

func (e *Engine) Rates() Rates   { return e.rates }
func (e *Engine) Tables() Tables { return e.tables }

// Calculate returns the deductions for one payslip. A taxable income that
// falls into a gap of the withholding table, or above it without a
// high-income row, is a no_bracket_match CalculationError.
func (e *Engine) Calculate(gross int64, dependents, children int) (Deductions, error) {
	if gross < 0 {
		return Deductions{}, &generic.ValidationError{Field: "gross_pay", Message: "must not be negative"}
	}
	if dependents < 0 || children < 0 {
		return Deductions{}, &generic.ValidationError{Field: "dependents", Message: "counts must not be negative"}
	}
	if gross == 0 {
		return Deductions{}, nil
	}
	r := e.rates

	var d Deductions
	d.Pension = generic.FloorRate(generic.Clamp(gross, r.PensionMinBase, r.PensionMaxBase), r.PensionRate)
	d.Health = generic.FloorRate(gross, r.HealthRate)
	d.LongTermCare = decimal.NewFromInt(d.Health).Mul(r.LongTermCareRate).Mul(ltcShare).Floor().IntPart()
	d.EmploymentInsurance = generic.FloorRate(gross, r.EmploymentRate)

	d.TaxableIncome = max(0, gross-r.MealAllowance-(d.Pension+d.Health+d.EmploymentInsurance))

	tax, err := e.IncomeTax(d.TaxableIncome, dependents)
	if err != nil {
		return Deductions{}, err
	}
	if r.ApplyChildCredit {
		d.ChildCredit = r.ChildCredit.For(children)
	}
	d.IncomeTax = max(0, tax-d.ChildCredit)
	d.LocalIncomeTax = generic.FloorRate(d.IncomeTax, r.LocalTaxRate)
	return d, nil
}

// IncomeTax is the table tax before any child credit.
func (e *Engine) IncomeTax(taxable int64, dependents int) (int64, error) {
	if taxable >= e.rates.HighIncomeThreshold {
		return e.highIncomeTax(taxable, dependents)
	}

	row, below, ok := e.tables.lookup(taxable)
	if below {
		return 0, nil
	}
	if !ok {
		return 0, noBracket(fmt.Sprintf("taxable income %d is not covered by the withholding table", taxable))
	}
	tax, ok := column(row.Tax, dependents)
	if !ok {
		return 0, noBracket(fmt.Sprintf("bracket %d-%d has no column for %d dependents", row.Min, row.Max, dependents))
	}
	return tax, nil
}

func (e *Engine) highIncomeTax(taxable int64, dependents int) (int64, error) {
	row, ok := e.tables.lookupHighIncome(taxable)
	if !ok {
		return 0, noBracket(fmt.Sprintf("taxable income %d is not covered by the high-income table", taxable))
	}
	base, ok := column(row.BaseTax, dependents)
	if !ok {
		return 0, noBracket(fmt.Sprintf("high-income bracket %d-%d has no base tax for %d dependents", row.Min, row.Max, dependents))
	}
	excess := decimal.NewFromInt(taxable - e.rates.HighIncomeThreshold).
		Mul(e.rates.HighIncomeFactor).
		Mul(row.Rate).
		Floor().
		IntPart()
	return base + excess + row.Addition, nil
}

func noBracket(msg string) error {
	return &generic.CalculationError{Code: generic.CodeNoBracketMatch, Message: msg}
}
