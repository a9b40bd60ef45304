package attendance_test

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/payroll-engine/attendance"
	"github.com/warp/payroll-engine/generic"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

func march2024() generic.Period {
	return generic.Period{
		Start: generic.NewTimePoint(2024, time.March, 1),
		End:   generic.NewTimePoint(2024, time.March, 31),
	}
}

func record(date, in, out string) attendance.Record {
	return attendance.Record{
		EmployeeID: "E1",
		Date:       generic.MustParseDate(date),
		CheckIn:    date + " " + in,
		CheckOut:   out,
		Type:       attendance.TypeNormal,
	}
}

func sameDay(date, in, out string) attendance.Record {
	return record(date, in, date+" "+out)
}

func accumulate(t *testing.T, records ...attendance.Record) attendance.HourBuckets {
	t.Helper()
	acc := attendance.NewAccumulator(nil, "")
	b, err := acc.Accumulate("E1", records, march2024())
	require.NoError(t, err)
	return b
}

// =============================================================================
// REGULAR / OVERTIME / NIGHT
// =============================================================================

func TestAccumulate_MidnightCheckout(t *testing.T) {
	// GIVEN: Monday 09:00 until "24:00:00"
	r := record("2024-03-04", "09:00:00", "2024-03-04 24:00:00")

	// WHEN
	b := accumulate(t, r)

	// THEN: 15h raw, 1h break, 6h after 18:00, 2h in the night window
	assert.Equal(t, 8*time.Hour, b.Regular)
	assert.Equal(t, 6*time.Hour, b.Overtime)
	assert.Equal(t, 2*time.Hour, b.Night)
	assert.Equal(t, time.Duration(0), b.RegularHoliday)
	assert.Equal(t, 1, b.WorkedDays)
}

func TestAccumulate_BreakTiers(t *testing.T) {
	tests := []struct {
		name    string
		out     string
		regular time.Duration
	}{
		{"under four hours, no break", "12:00:00", 3 * time.Hour},
		{"four hours, half hour break", "13:00:00", 3*time.Hour + 30*time.Minute},
		{"just under eight hours", "16:59:00", 7*time.Hour + 29*time.Minute},
		{"eight hours, one hour break", "17:00:00", 7 * time.Hour},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := accumulate(t, sameDay("2024-03-05", "09:00:00", tt.out))
			assert.Equal(t, tt.regular, b.Regular)
			assert.Equal(t, time.Duration(0), b.Overtime)
		})
	}
}

func TestAccumulate_LongOvertimeBandsTakeBreaks(t *testing.T) {
	// 09:00 to 04:00 next day: 19h raw, 18h pool.
	// 18-22 is 4h (no block), 22-04 is 6h (one 4.5h block, minus 0.5h).
	b := accumulate(t, record("2024-03-05", "09:00:00", "2024-03-06 04:00:00"))

	assert.Equal(t, 9*time.Hour+30*time.Minute, b.Overtime)
	assert.Equal(t, 8*time.Hour+30*time.Minute, b.Regular)
	assert.Equal(t, 6*time.Hour, b.Night)
}

func TestAccumulate_SplitShiftsShareOneBreak(t *testing.T) {
	b := accumulate(t,
		sameDay("2024-03-05", "14:00:00", "19:00:00"),
		sameDay("2024-03-05", "09:00:00", "13:00:00"),
	)

	// 9h raw on the day -> 1h break, not 0.5h per record
	assert.Equal(t, 7*time.Hour, b.Regular)
	assert.Equal(t, time.Hour, b.Overtime)
	assert.Equal(t, 1, b.WorkedDays)
}

func TestAccumulate_EarlyMorningNightHours(t *testing.T) {
	b := accumulate(t, sameDay("2024-03-05", "04:00:00", "09:00:00"))

	assert.Equal(t, 2*time.Hour, b.Night)
	assert.Equal(t, 4*time.Hour+30*time.Minute, b.Regular)
	assert.Equal(t, time.Duration(0), b.Overtime)
}

func TestAccumulate_SumsAcrossDays(t *testing.T) {
	b := accumulate(t,
		sameDay("2024-03-04", "09:00:00", "18:00:00"),
		sameDay("2024-03-05", "09:00:00", "18:00:00"),
		sameDay("2024-03-06", "09:00:00", "20:00:00"),
	)

	assert.Equal(t, 8*time.Hour*3, b.Regular)
	assert.Equal(t, 2*time.Hour, b.Overtime)
	assert.Equal(t, 3, b.WorkedDays)
}

// =============================================================================
// HOLIDAYS
// =============================================================================

func TestAccumulate_WeekendIsHoliday(t *testing.T) {
	// 2024-03-09 is a Saturday. 11h raw, 10h pool.
	b := accumulate(t, sameDay("2024-03-09", "09:00:00", "20:00:00"))

	assert.Equal(t, 8*time.Hour, b.RegularHoliday)
	assert.Equal(t, 2*time.Hour, b.OvertimeHoliday)
	assert.Equal(t, time.Duration(0), b.Regular)
	assert.Equal(t, time.Duration(0), b.Overtime)
}

func TestAccumulate_HolidayWorkTagOnWeekday(t *testing.T) {
	r := sameDay("2024-03-05", "09:00:00", "14:00:00")
	r.Type = attendance.TypeHolidayWork

	b := accumulate(t, r)

	assert.Equal(t, 4*time.Hour+30*time.Minute, b.RegularHoliday)
	assert.Equal(t, time.Duration(0), b.Regular)
}

func TestAccumulate_CalendarHoliday(t *testing.T) {
	calendar := &generic.StaticHolidayCalendar{Holidays: []generic.Holiday{
		{Date: generic.NewTimePoint(2020, time.March, 1), Name: "Independence Movement Day", Recurring: true},
	}}
	acc := attendance.NewAccumulator(calendar, "acme")

	// 2024-03-01 is a Friday
	b, err := acc.Accumulate("E1", []attendance.Record{sameDay("2024-03-01", "09:00:00", "23:00:00")}, march2024())
	require.NoError(t, err)

	assert.Equal(t, 8*time.Hour, b.RegularHoliday)
	assert.Equal(t, 5*time.Hour, b.OvertimeHoliday)
	assert.Equal(t, time.Hour, b.Night)
}

// =============================================================================
// SKIPPED AND REJECTED RECORDS
// =============================================================================

func TestAccumulate_AbsenceAndLeaveCountZero(t *testing.T) {
	absence := attendance.Record{EmployeeID: "E1", Date: generic.MustParseDate("2024-03-05"), Type: attendance.TypeAbsence}
	leave := sameDay("2024-03-06", "09:00:00", "18:00:00")
	leave.Type = attendance.TypeLeave

	b := accumulate(t, absence, leave)

	assert.True(t, b.IsZero())
}

func TestAccumulate_SkipsOtherEmployeesAndOutOfPeriod(t *testing.T) {
	other := sameDay("2024-03-05", "09:00:00", "18:00:00")
	other.EmployeeID = "E2"
	april := sameDay("2024-04-01", "09:00:00", "18:00:00")

	b := accumulate(t, other, april)

	assert.True(t, b.IsZero())
}

func TestAccumulate_CheckoutBeforeCheckin(t *testing.T) {
	acc := attendance.NewAccumulator(nil, "")
	_, err := acc.Accumulate("E1", []attendance.Record{sameDay("2024-03-05", "18:00:00", "09:00:00")}, march2024())

	var calcErr *generic.CalculationError
	require.True(t, errors.As(err, &calcErr))
	assert.Equal(t, generic.CodeInvalidShift, calcErr.Code)
	assert.Equal(t, "E1", calcErr.EmployeeID)
}

func TestAccumulate_UnparseableTimestamp(t *testing.T) {
	acc := attendance.NewAccumulator(nil, "")
	r := sameDay("2024-03-05", "09:00:00", "18:00:00")
	r.CheckIn = "yesterday morning"

	_, err := acc.Accumulate("E1", []attendance.Record{r}, march2024())

	var calcErr *generic.CalculationError
	require.True(t, errors.As(err, &calcErr))
	assert.Equal(t, generic.CodeInvalidTimestamp, calcErr.Code)
	assert.Equal(t, "E1", calcErr.EmployeeID)
}

func TestRecord_Validate(t *testing.T) {
	ok := sameDay("2024-03-05", "09:00:00", "18:00:00")
	assert.NoError(t, ok.Validate())

	missing := ok
	missing.CheckOut = ""
	assert.True(t, generic.IsValidation(missing.Validate()))

	absence := missing
	absence.Type = attendance.TypeAbsence
	assert.NoError(t, absence.Validate())

	unknown := ok
	unknown.Type = "sabbatical"
	assert.True(t, generic.IsValidation(unknown.Validate()))
}
