/*
scenarios_test.go - Tests for demo scenarios and the recalculation scheduler

PURPOSE:
	Tests that each scenario sets up the expected state and that a batch
	over it shows the rule the scenario demonstrates:
	- Employees and attendance are created
	- The batch runs without failures
	- Proration, premiums, tax and locking behave as described

These tests double as integration tests of service, stores and engine.
*/
package api

import (
	"context"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/payroll-engine/generic"
	"github.com/warp/payroll-engine/payroll"
)

// runPeriod calculates a custom period for everyone and returns results by
// employee plus the raw events.
func runPeriod(t *testing.T, h *Handler, start, end string) (map[string]payroll.Result, []payroll.Event) {
	t.Helper()
	events, err := h.Service.Run(context.Background(), payroll.RunRequest{
		Period: payroll.PeriodSpec{
			Quick: generic.QuickCustom,
			Start: generic.MustParseDate(start),
			End:   generic.MustParseDate(end),
		},
		Trigger: "test",
	})
	require.NoError(t, err)

	var all []payroll.Event
	results := make(map[string]payroll.Result)
	for ev := range events {
		all = append(all, ev)
		require.NotEqual(t, payroll.EventEmployeeError, ev.Type, "unexpected failure for %s: %v", ev.EmployeeID, ev.Err)
		if ev.Type == payroll.EventEmployeeResult {
			results[ev.EmployeeID] = *ev.Result
		}
	}
	return results, all
}

func runMarch(t *testing.T, h *Handler) map[string]payroll.Result {
	t.Helper()
	results, _ := runPeriod(t, h, "2024-03-01", "2024-03-31")
	return results
}

func TestListScenarios(t *testing.T) {
	h, router := setupTestServer(t)

	rec := do(t, router, http.MethodGet, "/api/scenarios", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	list := decode[[]ScenarioDTO](t, rec)
	require.Len(t, list, len(scenarios))
	for _, s := range list {
		assert.Equal(t, 1, s.PaymentDay)
		assert.Equal(t, "2024-03-15", s.ReferenceDate)
	}

	// Every listed scenario loads.
	for _, s := range scenarios {
		require.NoError(t, h.loadScenario(context.Background(), s.ID), s.ID)
	}
}

func TestLoadScenario_API(t *testing.T) {
	// GIVEN
	_, router := setupTestServer(t)

	// WHEN
	rec := do(t, router, http.MethodPost, "/api/scenarios/load", "application/json", `{"scenario_id": "standard-month"}`)

	// THEN
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	rec = do(t, router, http.MethodGet, "/api/scenarios/current", "", "")
	assert.Equal(t, "standard-month", decode[ScenarioDTO](t, rec).ID)

	rec = do(t, router, http.MethodGet, "/api/employees", "", "")
	assert.Len(t, decode[[]EmployeeDTO](t, rec), 3)

	// Unknown scenarios are rejected and leave the data alone.
	rec = do(t, router, http.MethodPost, "/api/scenarios/load", "application/json", `{"scenario_id": "nope"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	rec = do(t, router, http.MethodGet, "/api/employees", "", "")
	assert.Len(t, decode[[]EmployeeDTO](t, rec), 3)

	// Reset clears everything.
	rec = do(t, router, http.MethodPost, "/api/scenarios/reset", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	rec = do(t, router, http.MethodGet, "/api/employees", "", "")
	assert.Empty(t, decode[[]EmployeeDTO](t, rec))
	rec = do(t, router, http.MethodGet, "/api/scenarios/current", "", "")
	assert.Equal(t, "null", strings.TrimSpace(rec.Body.String()))
}

// =============================================================================
// SCENARIO SEMANTICS
// =============================================================================

func TestScenario_StandardMonth(t *testing.T) {
	h := setupTestHandler(t)
	require.NoError(t, h.loadScenario(context.Background(), "standard-month"))

	results := runMarch(t, h)

	require.Len(t, results, 3)
	assert.Positive(t, results["EMP001"].OvertimePay)
	assert.Zero(t, results["EMP003"].OvertimePay)
	assert.Zero(t, results["EMP002"].HolidayPay, "삼일절 was not worked")
	for id, r := range results {
		assert.False(t, r.Prorated, id)
		assert.Equal(t, r.BasePay+r.OvertimePay+r.NightPay+r.HolidayPay, r.GrossPay, id)
		assert.Equal(t, r.GrossPay-r.Deductions.Total(), r.NetPay, id)
	}
}

func TestScenario_MidMonthJoin(t *testing.T) {
	h := setupTestHandler(t)
	require.NoError(t, h.loadScenario(context.Background(), "mid-month-join"))

	results := runMarch(t, h)

	joiner := results["EMP010"]
	assert.True(t, joiner.Prorated)
	assert.Equal(t, "2024-03-11", joiner.Effective.Start.String())
	assert.Less(t, joiner.BasePay, int64(3100000))

	leaver := results["EMP011"]
	assert.True(t, leaver.Prorated)
	assert.Equal(t, "2024-03-20", leaver.Effective.End.String())
	assert.Less(t, leaver.BasePay, int64(2800000))
}

func TestScenario_HolidayAndNight(t *testing.T) {
	h := setupTestHandler(t)
	require.NoError(t, h.loadScenario(context.Background(), "holiday-and-night"))

	results := runMarch(t, h)

	day := results["EMP020"]
	assert.Positive(t, day.HolidayPay)
	assert.Positive(t, day.Hours.RegularHoliday)
	assert.Positive(t, day.Hours.OvertimeHoliday, "12h Saturday shift")

	night := results["EMP021"]
	assert.Positive(t, night.NightPay)
	assert.Zero(t, night.HolidayPay)
}

func TestScenario_HighEarner(t *testing.T) {
	h := setupTestHandler(t)
	require.NoError(t, h.loadScenario(context.Background(), "high-earner"))

	results := runMarch(t, h)

	exec := results["EMP030"]
	assert.Greater(t, exec.Deductions.TaxableIncome, int64(10000000))
	assert.Positive(t, exec.Deductions.IncomeTax)
	assert.Equal(t, exec.Deductions.IncomeTax/10, exec.Deductions.LocalIncomeTax)

	intern := results["EMP031"]
	assert.Zero(t, intern.Deductions.IncomeTax, "below the first bracket")
}

func TestScenario_ConfirmedPeriod(t *testing.T) {
	// GIVEN: February is confirmed and a late correction was appended
	h := setupTestHandler(t)
	ctx := context.Background()
	require.NoError(t, h.loadScenario(ctx, "confirmed-period"))

	stored, err := h.Results.ListResults(ctx, generic.Period{
		Start: generic.MustParseDate("2024-02-01"), End: generic.MustParseDate("2024-02-29"),
	})
	require.NoError(t, err)
	require.Len(t, stored, 3)
	for _, r := range stored {
		assert.Equal(t, payroll.StatusConfirmed, r.Status)
	}

	// WHEN: February is recalculated
	_, events := runPeriod(t, h, "2024-02-01", "2024-02-29")

	// THEN: every result is locked, and only EMP001 would change
	byEmployee := map[string]payroll.Event{}
	for _, ev := range events {
		if ev.Type == payroll.EventEmployeeResult {
			byEmployee[ev.EmployeeID] = ev
		}
	}
	require.Len(t, byEmployee, 3)
	for id, ev := range byEmployee {
		assert.True(t, ev.Locked, id)
	}
	assert.Empty(t, byEmployee["EMP002"].Changes)

	fields := map[string]payroll.Change{}
	for _, c := range byEmployee["EMP001"].Changes {
		fields[c.Field] = c
	}
	require.Contains(t, fields, "overtime_pay")
	assert.Positive(t, fields["overtime_pay"].Delta())

	// AND: the stored result is untouched
	kept, err := h.Results.GetResult(ctx, "EMP001", generic.MustParseDate("2024-02-01"))
	require.NoError(t, err)
	assert.Equal(t, fields["overtime_pay"].Before, kept.OvertimePay)
}

func TestScenario_LegacyImport(t *testing.T) {
	h := setupTestHandler(t)
	ctx := context.Background()
	require.NoError(t, h.loadScenario(ctx, "legacy-import"))

	emp, err := h.Store.GetEmployee(ctx, "EMP040")
	require.NoError(t, err)
	assert.Equal(t, int64(2900000), emp.BaseSalary)
	assert.Equal(t, "2021-11-01", emp.JoinDate.String())

	results := runMarch(t, h)
	assert.Positive(t, results["EMP040"].OvertimePay, "late evening on the 5th")
	assert.Positive(t, results["EMP040"].HolidayPay, "특근 on a Saturday")
	assert.Equal(t, 1, results["EMP041"].Hours.WorkedDays)
}

// =============================================================================
// SCHEDULER
// =============================================================================

func TestScheduler_RunNowSkipsLockedResults(t *testing.T) {
	// GIVEN: the standard month, scheduler not started
	h := setupTestHandler(t)
	ctx := context.Background()
	require.NoError(t, h.loadScenario(ctx, "standard-month"))
	rs := NewRecalculationScheduler(h)

	// WHEN: a first pass runs
	report, err := rs.RunNow(ctx)

	// THEN: the current period (handler clock 2024-03-15) is calculated
	require.NoError(t, err)
	assert.Equal(t, "2024-03-01", report.Period.Start.String())
	assert.Equal(t, 3, report.Succeeded)
	assert.Zero(t, report.Locked)

	// WHEN: EMP003 is confirmed and the scheduler runs again
	_, err = h.Results.UpdateStatus(ctx, "EMP003", generic.MustParseDate("2024-03-01"), payroll.StatusConfirmed)
	require.NoError(t, err)
	report, err = rs.RunNow(ctx)

	// THEN
	require.NoError(t, err)
	assert.Equal(t, 2, report.Succeeded)
	assert.Equal(t, 1, report.Locked)

	runs, err := h.Results.ListRuns(ctx, 10)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "scheduler", runs[0].Trigger)
	assert.Equal(t, 1, runs[0].Locked)
}

func TestScheduler_StartStop(t *testing.T) {
	h := setupTestHandler(t)

	disabled := NewRecalculationScheduler(h)
	disabled.Enabled = false
	disabled.Start()
	assert.True(t, disabled.GetNextRunTime().IsZero())
	disabled.Stop()

	rs := NewRecalculationScheduler(h)
	rs.Start()
	rs.Stop()
	assert.True(t, rs.GetNextRunTime().IsZero(), "stopped scheduler has no next run")
}
