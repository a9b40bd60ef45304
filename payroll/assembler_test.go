package payroll_test

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/payroll-engine/attendance"
	"github.com/warp/payroll-engine/deduction"
	"github.com/warp/payroll-engine/generic"
	"github.com/warp/payroll-engine/payroll"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

func testTables() deduction.Tables {
	return deduction.Tables{
		Brackets: []deduction.Bracket{
			{Min: 1060000, Max: 10000000, Tax: map[int]int64{1: 50000, 2: 40000}},
		},
		HighIncome: []deduction.HighIncomeBracket{
			{Min: 10000000, Max: 14000000, BaseTax: map[int]int64{1: 1507400}, Rate: generic.MustParseDecimal("0.35"), Addition: 25000},
		},
	}
}

func newAssembler(t *testing.T) *payroll.Assembler {
	t.Helper()
	engine, err := deduction.NewEngine(deduction.DefaultRates(), testTables())
	require.NoError(t, err)
	return payroll.NewAssembler(nil, engine)
}

func march() payroll.PeriodSpec {
	return payroll.PeriodSpec{PaymentDay: 1, Quick: generic.QuickCurrent, Reference: generic.MustParseDate("2024-03-15")}
}

func employee(id string, salary int64) payroll.Employee {
	return payroll.Employee{
		ID:         id,
		Name:       "Employee " + id,
		BaseSalary: salary,
		Dependents: 1,
		JoinDate:   generic.MustParseDate("2020-01-01"),
	}
}

func shift(employeeID, date, in, out string) attendance.Record {
	return attendance.Record{
		EmployeeID: employeeID,
		Date:       generic.MustParseDate(date),
		CheckIn:    date + " " + in,
		CheckOut:   out,
		Type:       attendance.TypeNormal,
	}
}

func midnightShift(employeeID string) attendance.Record {
	return shift(employeeID, "2024-03-04", "09:00:00", "2024-03-04 24:00:00")
}

func assertInvariants(t *testing.T, r payroll.Result) {
	t.Helper()
	assert.Equal(t, r.BasePay+r.OvertimePay+r.NightPay+r.HolidayPay, r.GrossPay, "gross")
	assert.Equal(t, r.GrossPay-r.Deductions.Total(), r.NetPay, "net")
	assert.GreaterOrEqual(t, r.NetPay, int64(0))
	assert.Equal(t, payroll.StatusUnconfirmed, r.Status)
}

// =============================================================================
// ASSEMBLE
// =============================================================================

func TestAssemble_FullMonthWithOvertime(t *testing.T) {
	// GIVEN: 3,000,000 salary and one 09:00-24:00 Monday shift
	a := newAssembler(t)

	// WHEN
	r, err := a.Assemble(employee("E1", 3000000), []attendance.Record{midnightShift("E1")}, march())
	require.NoError(t, err)

	// THEN
	assertInvariants(t, r)
	assert.Equal(t, "2024-03-01", r.Period.Start.String())
	assert.Equal(t, "2024-03-31", r.Period.End.String())
	assert.False(t, r.Prorated)
	assert.Equal(t, 6*time.Hour, r.Hours.Overtime)
	assert.Equal(t, 2*time.Hour, r.Hours.Night)

	assert.Equal(t, int64(14354), r.HourlyWage)
	assert.Equal(t, int64(3000000), r.BasePay)
	assert.Equal(t, int64(129186), r.OvertimePay)
	assert.Equal(t, int64(14354), r.NightPay)
	assert.Equal(t, int64(3143540), r.GrossPay)

	assert.Equal(t, int64(141459), r.Deductions.Pension)
	assert.Equal(t, int64(111438), r.Deductions.Health)
	assert.Equal(t, int64(7215), r.Deductions.LongTermCare)
	assert.Equal(t, int64(28291), r.Deductions.EmploymentInsurance)
	assert.Equal(t, int64(50000), r.Deductions.IncomeTax)
	assert.Equal(t, int64(5000), r.Deductions.LocalIncomeTax)
	assert.Equal(t, int64(2800137), r.NetPay)
}

func TestAssemble_NoAttendance_FullBaseZeroHours(t *testing.T) {
	r, err := newAssembler(t).Assemble(employee("E1", 3000000), nil, march())
	require.NoError(t, err)

	assertInvariants(t, r)
	assert.True(t, r.Hours.IsZero())
	assert.Equal(t, int64(3000000), r.BasePay)
	assert.Equal(t, int64(3000000), r.GrossPay)
}

func TestAssemble_MidMonthJoin_Prorated(t *testing.T) {
	emp := employee("E1", 3000000)
	emp.JoinDate = generic.MustParseDate("2024-03-11")
	records := []attendance.Record{
		shift("E1", "2024-03-05", "09:00:00", "2024-03-05 18:00:00"), // before joining
		shift("E1", "2024-03-12", "09:00:00", "2024-03-12 18:00:00"),
	}

	r, err := newAssembler(t).Assemble(emp, records, march())
	require.NoError(t, err)

	assertInvariants(t, r)
	assert.True(t, r.Prorated)
	assert.Equal(t, "2024-03-11", r.Effective.Start.String())
	assert.Equal(t, int64(100000*21), r.BasePay)
	assert.Equal(t, 8*time.Hour, r.Hours.Regular)
	assert.Equal(t, 1, r.Hours.WorkedDays)
}

func TestAssemble_ResignedMidMonth(t *testing.T) {
	emp := employee("E1", 3000000)
	resign := generic.MustParseDate("2024-03-15")
	emp.ResignDate = &resign

	r, err := newAssembler(t).Assemble(emp, nil, march())
	require.NoError(t, err)

	assert.True(t, r.Prorated)
	assert.Equal(t, "2024-03-15", r.Effective.End.String())
	assert.Equal(t, int64(100000*15), r.BasePay)
}

func TestAssemble_NotEmployedDuringPeriod(t *testing.T) {
	emp := employee("E1", 3000000)
	emp.JoinDate = generic.MustParseDate("2024-04-10")

	r, err := newAssembler(t).Assemble(emp, nil, march())
	require.NoError(t, err)

	assertInvariants(t, r)
	assert.True(t, r.Prorated)
	assert.Equal(t, int64(0), r.GrossPay)
	assert.Equal(t, deduction.Deductions{}, r.Deductions)
}

func TestAssemble_Idempotent(t *testing.T) {
	a := newAssembler(t)
	records := []attendance.Record{midnightShift("E1")}

	first, err := a.Assemble(employee("E1", 3000000), records, march())
	require.NoError(t, err)
	second, err := a.Assemble(employee("E1", 3000000), records, march())
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestAssemble_NoBracketMatchNamesEmployee(t *testing.T) {
	_, err := newAssembler(t).Assemble(employee("E9", 20000000), nil, march())

	var calcErr *generic.CalculationError
	require.True(t, errors.As(err, &calcErr))
	assert.Equal(t, generic.CodeNoBracketMatch, calcErr.Code)
	assert.Equal(t, "E9", calcErr.EmployeeID)
}

func TestAssemble_NegativeNetPay(t *testing.T) {
	// The pension floor alone exceeds a 1,000 salary.
	_, err := newAssembler(t).Assemble(employee("E1", 1000), nil, march())

	var calcErr *generic.CalculationError
	require.True(t, errors.As(err, &calcErr))
	assert.Equal(t, generic.CodeNegativeNetPay, calcErr.Code)
}

func TestAssemble_InvalidEmployee(t *testing.T) {
	emp := employee("E1", 3000000)
	emp.Dependents = -1

	_, err := newAssembler(t).Assemble(emp, nil, march())
	assert.True(t, generic.IsValidation(err))
}

func TestAssemble_CustomPeriod(t *testing.T) {
	spec := payroll.PeriodSpec{
		Quick: generic.QuickCustom,
		Start: generic.MustParseDate("2024-03-04"),
		End:   generic.MustParseDate("2024-03-04"),
	}

	r, err := newAssembler(t).Assemble(employee("E1", 3000000), []attendance.Record{midnightShift("E1")}, spec)
	require.NoError(t, err)
	assert.Equal(t, generic.QuickCustom, r.Period.Quick)
	assert.Equal(t, 8*time.Hour, r.Hours.Regular)
}

// =============================================================================
// DIFF & STATUS
// =============================================================================

func TestDiff(t *testing.T) {
	a := newAssembler(t)
	before, err := a.Assemble(employee("E1", 3000000), nil, march())
	require.NoError(t, err)
	after, err := a.Assemble(employee("E1", 3000000), []attendance.Record{midnightShift("E1")}, march())
	require.NoError(t, err)

	changes := payroll.Diff(before, after)

	fields := make(map[string]payroll.Change)
	for _, c := range changes {
		fields[c.Field] = c
	}
	assert.Contains(t, fields, "overtime_pay")
	assert.Contains(t, fields, "gross_pay")
	assert.NotContains(t, fields, "base_pay")
	assert.Equal(t, int64(129186), fields["overtime_pay"].Delta())
	assert.Empty(t, payroll.Diff(after, after))
}

func TestStatus_Lifecycle(t *testing.T) {
	assert.True(t, payroll.StatusUnconfirmed.CanTransitionTo(payroll.StatusConfirmed))
	assert.True(t, payroll.StatusConfirmed.CanTransitionTo(payroll.StatusPaid))
	assert.False(t, payroll.StatusUnconfirmed.CanTransitionTo(payroll.StatusPaid))
	assert.False(t, payroll.StatusPaid.CanTransitionTo(payroll.StatusUnconfirmed))

	assert.ErrorIs(t, payroll.CheckTransition(payroll.StatusPaid, payroll.StatusConfirmed), generic.ErrInvalidStatusTransition)
	assert.True(t, payroll.StatusConfirmed.Locked())
	assert.False(t, payroll.StatusUnconfirmed.Locked())
}
