package wage_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/payroll-engine/attendance"
	"github.com/warp/payroll-engine/generic"
	"github.com/warp/payroll-engine/wage"
)

func TestHourlyWage(t *testing.T) {
	assert.Equal(t, int64(14354), wage.HourlyWage(3000000))
	assert.Equal(t, int64(0), wage.HourlyWage(0))
	assert.Equal(t, int64(0), wage.HourlyWage(208))
}

func TestCalculate_OvertimePay(t *testing.T) {
	calc := wage.NewCalculator()

	pay, err := calc.Calculate(wage.Input{
		MonthlySalary: 3000000,
		Hours:         attendance.HourBuckets{Overtime: 6 * time.Hour},
	})
	require.NoError(t, err)

	assert.Equal(t, int64(14354), pay.HourlyWage)
	assert.Equal(t, int64(129186), pay.OvertimePay)
	assert.Equal(t, int64(3000000), pay.BasePay)
	assert.Equal(t, int64(3129186), pay.GrossPay)
}

func TestCalculate_AllComponents(t *testing.T) {
	calc := wage.NewCalculator()

	pay, err := calc.Calculate(wage.Input{
		MonthlySalary: 3000000,
		Hours: attendance.HourBuckets{
			Regular:         160 * time.Hour,
			Overtime:        6 * time.Hour,
			Night:           2 * time.Hour,
			RegularHoliday:  8 * time.Hour,
			OvertimeHoliday: 2 * time.Hour,
		},
	})
	require.NoError(t, err)

	assert.Equal(t, int64(14354), pay.NightPay)                  // 2 * 14354 * 0.5
	assert.Equal(t, int64(172248+57416), pay.HolidayPay)         // 8*1.5 + 2*2.0
	assert.Equal(t, int64(3000000+129186+14354+229664), pay.GrossPay)
}

func TestCalculate_FloorsEachComponent(t *testing.T) {
	calc := wage.NewCalculator()

	// hourly = floor(2500000/209) = 11961
	pay, err := calc.Calculate(wage.Input{
		MonthlySalary: 2500000,
		Hours: attendance.HourBuckets{
			Overtime: 10 * time.Minute, // 11961 * 1.5 / 6 = 2990.25
			Night:    10 * time.Minute, // 11961 * 0.5 / 6 = 996.75
		},
	})
	require.NoError(t, err)

	assert.Equal(t, int64(11961), pay.HourlyWage)
	assert.Equal(t, int64(2990), pay.OvertimePay)
	assert.Equal(t, int64(996), pay.NightPay)
}

func TestCalculate_Prorated(t *testing.T) {
	calc := wage.NewCalculator()

	pay, err := calc.Calculate(wage.Input{MonthlySalary: 3000000, Prorated: true, Days: 21})
	require.NoError(t, err)
	assert.Equal(t, int64(100000*21), pay.BasePay)

	pay, err = calc.Calculate(wage.Input{MonthlySalary: 3000000, Prorated: true, Days: 0})
	require.NoError(t, err)
	assert.Equal(t, int64(0), pay.BasePay)
	assert.Equal(t, int64(0), pay.GrossPay)
}

func TestCalculate_NegativeSalaryRejected(t *testing.T) {
	_, err := wage.NewCalculator().Calculate(wage.Input{EmployeeID: "E1", MonthlySalary: -1})
	assert.True(t, generic.IsValidation(err))
}
