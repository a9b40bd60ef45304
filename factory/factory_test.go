package factory_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/payroll-engine/deduction"
	"github.com/warp/payroll-engine/factory"
	"github.com/warp/payroll-engine/generic"
)

const bracketJSON = `{
  "version": "test",
  "tax_brackets": {
    "2500000-2600000": {"1": 50000, "2": 40000, "3": 20000},
    "1060000-2500000": {"1": 10000, "2": 5000},
    "2600000-10000000": {"1": 90000}
  },
  "high_income_brackets": {
    "10000000-14000000": {
      "base_tax": {"1": 1507400, "2": 1431570},
      "rate": 0.35,
      "addition": 25000
    }
  }
}`

// =============================================================================
// BRACKET TABLES
// =============================================================================

func TestParseBracketTables(t *testing.T) {
	tables, err := factory.ParseBracketTables([]byte(bracketJSON))
	require.NoError(t, err)

	assert.Equal(t, "test", tables.Version)
	require.Len(t, tables.Brackets, 3)
	assert.Equal(t, int64(1060000), tables.Brackets[0].Min, "sorted by lower bound")
	assert.Equal(t, int64(2500000), tables.Brackets[1].Min)
	assert.Equal(t, int64(40000), tables.Brackets[1].Tax[2])

	require.Len(t, tables.HighIncome, 1)
	hi := tables.HighIncome[0]
	assert.Equal(t, int64(1431570), hi.BaseTax[2])
	assert.Equal(t, "0.35", hi.Rate.String())
	assert.Equal(t, int64(25000), hi.Addition)
}

func TestParseBracketTables_FeedsEngine(t *testing.T) {
	tables, err := factory.ParseBracketTables([]byte(bracketJSON))
	require.NoError(t, err)
	engine, err := deduction.NewEngine(deduction.DefaultRates(), tables)
	require.NoError(t, err)

	d, err := engine.Calculate(3000000, 1, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(50000), d.IncomeTax)
	assert.Equal(t, int64(5000), d.LocalIncomeTax)
}

func TestParseBracketTables_Errors(t *testing.T) {
	tests := []struct {
		name string
		json string
	}{
		{"not json", `{`},
		{"missing tax_brackets", `{"high_income_brackets": {}}`},
		{"empty tax_brackets", `{"tax_brackets": {}}`},
		{"bad range key", `{"tax_brackets": {"1000000": {"1": 1}}}`},
		{"non-numeric bound", `{"tax_brackets": {"a-b": {"1": 1}}}`},
		{"inverted range", `{"tax_brackets": {"2000000-1000000": {"1": 1}}}`},
		{"bad dependent column", `{"tax_brackets": {"1000000-2000000": {"zero": 1}}}`},
		{"zero dependent column", `{"tax_brackets": {"1000000-2000000": {"0": 1}}}`},
		{"negative tax", `{"tax_brackets": {"1000000-2000000": {"1": -5}}}`},
		{"overlap", `{"tax_brackets": {"1000000-2000000": {"1": 1}, "1500000-3000000": {"1": 2}}}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := factory.ParseBracketTables([]byte(tt.json))
			require.Error(t, err)
			assert.True(t, generic.IsConfiguration(err), "got %v", err)
		})
	}
}

func TestLoadBracketTables_SampleFile(t *testing.T) {
	tables, err := factory.LoadBracketTables(filepath.Join("..", "configs", "brackets.json"))
	require.NoError(t, err)

	assert.NotEmpty(t, tables.Brackets)
	assert.NotEmpty(t, tables.HighIncome)
	_, err = deduction.NewEngine(deduction.DefaultRates(), tables)
	assert.NoError(t, err)
}

func TestLoadBracketTables_MissingFile(t *testing.T) {
	_, err := factory.LoadBracketTables(filepath.Join(t.TempDir(), "nope.json"))

	var cfgErr *generic.ConfigurationError
	require.True(t, errors.As(err, &cfgErr))
	assert.Contains(t, cfgErr.Source, "nope.json")
}

// =============================================================================
// RATES
// =============================================================================

func TestParseRates_OverlaysDefaults(t *testing.T) {
	rates, err := factory.ParseRates([]byte(`
version: "2025"
pension:
  max_base: 6370000
health_rate: 0.03545
child_credit:
  apply: false
`))
	require.NoError(t, err)

	defaults := deduction.DefaultRates()
	assert.Equal(t, "2025", rates.Version)
	assert.Equal(t, int64(6370000), rates.PensionMaxBase)
	assert.Equal(t, defaults.PensionMinBase, rates.PensionMinBase)
	assert.True(t, rates.PensionRate.Equal(defaults.PensionRate))
	assert.Equal(t, "0.03545", rates.HealthRate.String())
	assert.False(t, rates.ApplyChildCredit)
	assert.Equal(t, defaults.ChildCredit, rates.ChildCredit)
}

func TestParseRates_Invalid(t *testing.T) {
	_, err := factory.ParseRates([]byte("health_rate: [1, 2"))
	assert.True(t, generic.IsConfiguration(err))

	_, err = factory.ParseRates([]byte("health_rate: 1.5"))
	assert.True(t, generic.IsConfiguration(err))
}

func TestLoadRates(t *testing.T) {
	rates, err := factory.LoadRates("")
	require.NoError(t, err)
	assert.Equal(t, deduction.DefaultRates().Version, rates.Version)

	sample, err := factory.LoadRates(filepath.Join("..", "configs", "rates.yaml"))
	require.NoError(t, err)
	assert.Equal(t, int64(390000), sample.PensionMinBase)
	assert.Equal(t, int64(33330), sample.ChildCredit.PerExtra)

	path := filepath.Join(t.TempDir(), "rates.yaml")
	require.NoError(t, os.WriteFile(path, []byte("local_tax_rate: -1"), 0o600))
	_, err = factory.LoadRates(path)
	var cfgErr *generic.ConfigurationError
	require.True(t, errors.As(err, &cfgErr))
	assert.Equal(t, path, cfgErr.Source)
}
