package factory

import (
	"errors"
	"fmt"
	"os"

	"github.com/shopspring/decimal"
	"github.com/warp/payroll-engine/deduction"
	"github.com/warp/payroll-engine/generic"
	"gopkg.in/yaml.v3"
)

// RatesYAML is the on-disk rate file. Omitted keys keep the built-in
// defaults, so a file only needs the values that changed:
//
//	version: "2025"
//	pension:
//	  rate: 0.045
//	  min_base: 400000
//	  max_base: 6370000
//	health_rate: 0.03545
//	long_term_care_rate: 0.1295
//	employment_rate: 0.009
//	meal_allowance: 200000
//	high_income:
//	  threshold: 10000000
//	  factor: 0.98
//	local_tax_rate: 0.1
//	child_credit:
//	  apply: true
//	  one: 20830
//	  two: 45830
//	  per_extra: 33330
type RatesYAML struct {
	Version string `yaml:"version"`
	Pension *struct {
		Rate    *float64 `yaml:"rate"`
		MinBase *int64   `yaml:"min_base"`
		MaxBase *int64   `yaml:"max_base"`
	} `yaml:"pension"`
	HealthRate       *float64 `yaml:"health_rate"`
	LongTermCareRate *float64 `yaml:"long_term_care_rate"`
	EmploymentRate   *float64 `yaml:"employment_rate"`
	MealAllowance    *int64   `yaml:"meal_allowance"`
	HighIncome       *struct {
		Threshold *int64   `yaml:"threshold"`
		Factor    *float64 `yaml:"factor"`
	} `yaml:"high_income"`
	LocalTaxRate *float64 `yaml:"local_tax_rate"`
	ChildCredit  *struct {
		Apply    *bool  `yaml:"apply"`
		One      *int64 `yaml:"one"`
		Two      *int64 `yaml:"two"`
		PerExtra *int64 `yaml:"per_extra"`
	} `yaml:"child_credit"`
}

// ParseRates overlays a YAML rate file on deduction.DefaultRates.
func ParseRates(data []byte) (deduction.Rates, error) {
	var file RatesYAML
	if err := yaml.Unmarshal(data, &file); err != nil {
		return deduction.Rates{}, &generic.ConfigurationError{Source: "rates", Err: fmt.Errorf("invalid YAML: %w", err)}
	}

	r := deduction.DefaultRates()
	if file.Version != "" {
		r.Version = file.Version
	}
	if p := file.Pension; p != nil {
		setRate(&r.PensionRate, p.Rate)
		setInt(&r.PensionMinBase, p.MinBase)
		setInt(&r.PensionMaxBase, p.MaxBase)
	}
	setRate(&r.HealthRate, file.HealthRate)
	setRate(&r.LongTermCareRate, file.LongTermCareRate)
	setRate(&r.EmploymentRate, file.EmploymentRate)
	setInt(&r.MealAllowance, file.MealAllowance)
	if h := file.HighIncome; h != nil {
		setInt(&r.HighIncomeThreshold, h.Threshold)
		setRate(&r.HighIncomeFactor, h.Factor)
	}
	setRate(&r.LocalTaxRate, file.LocalTaxRate)
	if c := file.ChildCredit; c != nil {
		if c.Apply != nil {
			r.ApplyChildCredit = *c.Apply
		}
		setInt(&r.ChildCredit.One, c.One)
		setInt(&r.ChildCredit.Two, c.Two)
		setInt(&r.ChildCredit.PerExtra, c.PerExtra)
	}

	if err := r.Validate(); err != nil {
		return deduction.Rates{}, err
	}
	return r, nil
}

// LoadRates reads a rate file. An empty path means built-in defaults.
func LoadRates(path string) (deduction.Rates, error) {
	if path == "" {
		return deduction.DefaultRates(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return deduction.Rates{}, &generic.ConfigurationError{Source: path, Err: err}
	}
	r, err := ParseRates(data)
	if err != nil {
		var cfgErr *generic.ConfigurationError
		if errors.As(err, &cfgErr) {
			cfgErr.Source = path
		}
		return deduction.Rates{}, err
	}
	return r, nil
}

// setRate goes through the float's shortest decimal form, so 0.03545 in
// YAML is exactly 0.03545.
func setRate(dst *decimal.Decimal, v *float64) {
	if v != nil {
		*dst = decimal.NewFromFloat(*v)
	}
}

func setInt(dst *int64, v *int64) {
	if v != nil {
		*dst = *v
	}
}
