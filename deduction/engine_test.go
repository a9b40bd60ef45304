package deduction_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/payroll-engine/deduction"
	"github.com/warp/payroll-engine/generic"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

// testTables has a deliberate gap at 2,600,000-2,700,000.
func testTables() deduction.Tables {
	return deduction.Tables{
		Version: "test",
		Brackets: []deduction.Bracket{
			{Min: 2700000, Max: 10000000, Tax: map[int]int64{1: 90000, 2: 70000, 3: 40000}},
			{Min: 1060000, Max: 2500000, Tax: map[int]int64{1: 10000, 2: 5000, 3: 0}},
			{Min: 2500000, Max: 2600000, Tax: map[int]int64{1: 50000, 2: 40000, 3: 20000}},
		},
		HighIncome: []deduction.HighIncomeBracket{
			{
				Min:      10000000,
				Max:      14000000,
				BaseTax:  map[int]int64{1: 1507400, 2: 1431570},
				Rate:     generic.MustParseDecimal("0.35"),
				Addition: 25000,
			},
		},
	}
}

func newEngine(t *testing.T) *deduction.Engine {
	t.Helper()
	e, err := deduction.NewEngine(deduction.DefaultRates(), testTables())
	require.NoError(t, err)
	return e
}

func requireNoBracket(t *testing.T, err error) {
	t.Helper()
	var calcErr *generic.CalculationError
	require.True(t, errors.As(err, &calcErr), "expected CalculationError, got %v", err)
	assert.Equal(t, generic.CodeNoBracketMatch, calcErr.Code)
}

// =============================================================================
// INSURANCE PREMIUMS
// =============================================================================

func TestCalculate_Insurances(t *testing.T) {
	d, err := newEngine(t).Calculate(3000000, 1, 0)
	require.NoError(t, err)

	assert.Equal(t, int64(135000), d.Pension)
	assert.Equal(t, int64(106350), d.Health)
	assert.Equal(t, int64(6886), d.LongTermCare) // floor(106350 * 0.1295 * 0.5)
	assert.Equal(t, int64(27000), d.EmploymentInsurance)
	assert.Equal(t, int64(2531650), d.TaxableIncome)
}

func TestCalculate_PensionBaseClamped(t *testing.T) {
	e := newEngine(t)

	low, err := e.Calculate(100000, 1, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(17550), low.Pension) // 390,000 * 4.5%

	high, err := e.Calculate(8000000, 1, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(277650), high.Pension) // 6,170,000 * 4.5%
}

// =============================================================================
// INCOME TAX
// =============================================================================

func TestCalculate_LocalTaxIsTenthOfIncomeTax(t *testing.T) {
	d, err := newEngine(t).Calculate(3000000, 1, 0)
	require.NoError(t, err)

	assert.Equal(t, int64(50000), d.IncomeTax)
	assert.Equal(t, int64(5000), d.LocalIncomeTax)
	assert.Equal(t, int64(135000+106350+6886+27000+50000+5000), d.Total())
}

func TestCalculate_ChildCredit(t *testing.T) {
	e := newEngine(t)

	tests := []struct {
		name       string
		dependents int
		children   int
		incomeTax  int64
		local      int64
	}{
		{"no children", 2, 0, 40000, 4000},
		{"one child", 2, 1, 40000 - 20830, 1917},
		{"credit larger than tax", 3, 3, 0, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, err := e.Calculate(3000000, tt.dependents, tt.children)
			require.NoError(t, err)
			assert.Equal(t, tt.incomeTax, d.IncomeTax)
			assert.Equal(t, tt.local, d.LocalIncomeTax)
		})
	}
}

func TestCalculate_ChildCreditDisabled(t *testing.T) {
	rates := deduction.DefaultRates()
	rates.ApplyChildCredit = false
	e, err := deduction.NewEngine(rates, testTables())
	require.NoError(t, err)

	d, err := e.Calculate(3000000, 2, 2)
	require.NoError(t, err)
	assert.Equal(t, int64(40000), d.IncomeTax)
	assert.Equal(t, int64(0), d.ChildCredit)
}

func TestChildCreditSchedule(t *testing.T) {
	s := deduction.DefaultRates().ChildCredit
	assert.Equal(t, int64(0), s.For(0))
	assert.Equal(t, int64(20830), s.For(1))
	assert.Equal(t, int64(45830), s.For(2))
	assert.Equal(t, int64(45830+33330*2), s.For(4))
}

func TestIncomeTax_DependentColumn(t *testing.T) {
	e := newEngine(t)

	zero, err := e.IncomeTax(2550000, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(50000), zero, "fewer than one dependent uses the first column")

	many, err := e.IncomeTax(2550000, 7)
	require.NoError(t, err)
	assert.Equal(t, int64(20000), many, "more dependents than columns uses the last column")
}

func TestIncomeTax_BracketBoundsAreHalfOpen(t *testing.T) {
	e := newEngine(t)

	tax, err := e.IncomeTax(2499999, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(10000), tax)

	tax, err = e.IncomeTax(2500000, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(50000), tax)
}

func TestIncomeTax_BelowTableIsZero(t *testing.T) {
	d, err := newEngine(t).Calculate(1000000, 1, 0)
	require.NoError(t, err)

	assert.Equal(t, int64(710550), d.TaxableIncome)
	assert.Equal(t, int64(0), d.IncomeTax)
	assert.Equal(t, int64(0), d.LocalIncomeTax)
}

func TestIncomeTax_GapIsNoBracketMatch(t *testing.T) {
	_, err := newEngine(t).IncomeTax(2650000, 1)
	requireNoBracket(t, err)

	// Through Calculate: gross 3,130,000 lands at taxable 2,650,022.
	_, err = newEngine(t).Calculate(3130000, 1, 0)
	requireNoBracket(t, err)
	assert.True(t, generic.IsCalculation(err))
}

func TestIncomeTax_HighIncomeFormula(t *testing.T) {
	d, err := newEngine(t).Calculate(12000000, 1, 0)
	require.NoError(t, err)

	// taxable = 12,000,000 - 200,000 - (277,650 + 425,400 + 108,000)
	assert.Equal(t, int64(10988950), d.TaxableIncome)
	// 1,507,400 + floor(988,950 * 0.98 * 0.35) + 25,000
	assert.Equal(t, int64(1507400+339209+25000), d.IncomeTax)
	assert.Equal(t, int64(187160), d.LocalIncomeTax)
}

func TestIncomeTax_AboveHighIncomeTable(t *testing.T) {
	_, err := newEngine(t).IncomeTax(20000000, 1)
	requireNoBracket(t, err)
}

func TestCalculate_ZeroGross(t *testing.T) {
	d, err := newEngine(t).Calculate(0, 1, 2)
	require.NoError(t, err)
	assert.Equal(t, deduction.Deductions{}, d)
}

func TestCalculate_NegativeInputs(t *testing.T) {
	e := newEngine(t)

	_, err := e.Calculate(-1, 1, 0)
	assert.True(t, generic.IsValidation(err))

	_, err = e.Calculate(3000000, -1, 0)
	assert.True(t, generic.IsValidation(err))
}

// =============================================================================
// CONFIGURATION
// =============================================================================

func TestNewEngine_EmptyTable(t *testing.T) {
	_, err := deduction.NewEngine(deduction.DefaultRates(), deduction.Tables{})
	assert.True(t, generic.IsConfiguration(err))
}

func TestNewEngine_OverlappingBrackets(t *testing.T) {
	tables := deduction.Tables{Brackets: []deduction.Bracket{
		{Min: 1000000, Max: 2000000, Tax: map[int]int64{1: 1}},
		{Min: 1500000, Max: 3000000, Tax: map[int]int64{1: 2}},
	}}
	_, err := deduction.NewEngine(deduction.DefaultRates(), tables)
	assert.True(t, generic.IsConfiguration(err))
}

func TestNewEngine_InvalidRates(t *testing.T) {
	rates := deduction.DefaultRates()
	rates.HealthRate = generic.MustParseDecimal("-0.1")
	_, err := deduction.NewEngine(rates, testTables())
	assert.True(t, generic.IsConfiguration(err))

	rates = deduction.DefaultRates()
	rates.PensionMaxBase = 1
	_, err = deduction.NewEngine(rates, testTables())
	assert.True(t, generic.IsConfiguration(err))
}
