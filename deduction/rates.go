/*
Package deduction computes the four statutory insurance premiums and the
withholding taxes for one payslip.

PURPOSE:
  Given gross pay, dependents and children, produce pension, health,
  long-term care and employment insurance premiums, then income tax from
  the simplified withholding table and local income tax on top.

KEY CONCEPTS:
  Rates:  premium rates, contribution bases, allowance, child credit schedule
  Tables: the withholding bracket table plus the high-income bracket table
  Engine: Rates + Tables, pure and safe for concurrent use

TAX FLOW:
  taxable     = max(0, gross - mealAllowance - (pension + health + employment))
  incomeTax   = table[taxable][dependents]                      taxable <  threshold
              = baseTax[dep] + floor((taxable - threshold) * factor * rate) + addition
  incomeTax   = max(0, incomeTax - childCredit(children))
  localTax    = floor(incomeTax * localRate)

SEE ALSO:
  - factory/: parses Tables from JSON and Rates from YAML
  - payroll/: wires the engine into the assembler
*/
package deduction

import (
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/warp/payroll-engine/generic"
)

// Rates holds every statutory constant the engine uses. Amounts are in the
// smallest currency unit.
type Rates struct {
	Version string

	PensionRate    decimal.Decimal
	PensionMinBase int64
	PensionMaxBase int64

	HealthRate decimal.Decimal
	// LongTermCareRate is applied to the health premium, then halved.
	LongTermCareRate decimal.Decimal

	EmploymentRate decimal.Decimal

	// MealAllowance is the non-taxable meal exemption.
	MealAllowance int64

	HighIncomeThreshold int64
	HighIncomeFactor    decimal.Decimal

	LocalTaxRate decimal.Decimal

	ApplyChildCredit bool
	ChildCredit      ChildCreditSchedule
}

// ChildCreditSchedule is the stepped child tax credit:
// 0 children -> 0, 1 -> One, 2 -> Two, n >= 3 -> Two + PerExtra*(n-2).
type ChildCreditSchedule struct {
	One      int64
	Two      int64
	PerExtra int64
}

func (s ChildCreditSchedule) For(children int) int64 {
	switch {
	case children <= 0:
		return 0
	case children == 1:
		return s.One
	case children == 2:
		return s.Two
	default:
		return s.Two + s.PerExtra*int64(children-2)
	}
}

// DefaultRates returns the 2024 statutory rates.
func DefaultRates() Rates {
	return Rates{
		Version:             "2024",
		PensionRate:         generic.MustParseDecimal("0.045"),
		PensionMinBase:      390000,
		PensionMaxBase:      6170000,
		HealthRate:          generic.MustParseDecimal("0.03545"),
		LongTermCareRate:    generic.MustParseDecimal("0.1295"),
		EmploymentRate:      generic.MustParseDecimal("0.009"),
		MealAllowance:       200000,
		HighIncomeThreshold: 10000000,
		HighIncomeFactor:    generic.MustParseDecimal("0.98"),
		LocalTaxRate:        generic.MustParseDecimal("0.1"),
		ApplyChildCredit:    true,
		ChildCredit: ChildCreditSchedule{
			One:      20830,
			Two:      45830,
			PerExtra: 33330,
		},
	}
}

func (r Rates) Validate() error {
	for name, rate := range map[string]decimal.Decimal{
		"pension_rate":        r.PensionRate,
		"health_rate":         r.HealthRate,
		"long_term_care_rate": r.LongTermCareRate,
		"employment_rate":     r.EmploymentRate,
		"high_income_factor":  r.HighIncomeFactor,
		"local_tax_rate":      r.LocalTaxRate,
	} {
		if rate.IsNegative() || rate.GreaterThan(decimal.NewFromInt(1)) {
			return &generic.ConfigurationError{Source: "rates", Err: fmt.Errorf("%s must be in [0,1], got %s", name, rate)}
		}
	}
	if r.PensionMinBase < 0 || r.PensionMaxBase < r.PensionMinBase {
		return &generic.ConfigurationError{Source: "rates", Err: fmt.Errorf("pension base range [%d,%d] is invalid", r.PensionMinBase, r.PensionMaxBase)}
	}
	if r.MealAllowance < 0 {
		return &generic.ConfigurationError{Source: "rates", Err: fmt.Errorf("meal_allowance must not be negative")}
	}
	if r.HighIncomeThreshold <= 0 {
		return &generic.ConfigurationError{Source: "rates", Err: fmt.Errorf("high_income_threshold must be positive")}
	}
	if r.ChildCredit.One < 0 || r.ChildCredit.Two < 0 || r.ChildCredit.PerExtra < 0 {
		return &generic.ConfigurationError{Source: "rates", Err: fmt.Errorf("child credit amounts must not be negative")}
	}
	return nil
}
