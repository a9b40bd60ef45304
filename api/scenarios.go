/*
scenarios.go - Demo scenario loaders for testing and demonstrations

PURPOSE:

	Provides pre-built scenarios that populate the database with a small
	company and a month of attendance. Each scenario demonstrates one part
	of the payroll rules. All scenarios are built around March 2024 with a
	payment day of 1, so "current" for reference date 2024-03-15 is
	2024-03-01..2024-03-31.

AVAILABLE SCENARIOS:

	standard-month:    Three salaried employees, a normal month with overtime
	mid-month-join:    Proration for a mid-month hire and a mid-month resignation
	holiday-and-night: Holiday work, a Saturday special shift and night shifts
	high-earner:       Salary above the regular withholding table
	confirmed-period:  February confirmed, then a late correction that cannot
	                   overwrite it
	legacy-import:     Attendance loaded from a Korean-header spreadsheet

HOW SCENARIOS WORK:
 1. Reset database (clear all data)
 2. Add the fixed-date public holidays
 3. Create employees
 4. Append attendance records
 5. Optionally run and confirm a payroll batch

USAGE VIA API:

	POST /api/scenarios/load
	{"scenario_id": "standard-month"}

ADDING NEW SCENARIOS:
 1. Add to 'scenarios' slice with ID, name, description
 2. Create loader function: loadXxxScenario(ctx)
 3. Add case to LoadScenario handler

NOTE:

	Scenarios reset the database. Only use in development/demo environments.

SEE ALSO:
  - handlers.go: LoadScenario, ListScenarios handlers
  - ingest/csv.go: spreadsheet import used by legacy-import
*/
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/warp/payroll-engine/attendance"
	"github.com/warp/payroll-engine/generic"
	"github.com/warp/payroll-engine/ingest"
	"github.com/warp/payroll-engine/payroll"
)

const (
	scenarioPaymentDay = 1
	scenarioReference  = "2024-03-15"
)

// =============================================================================
// SCENARIO DEFINITIONS
// =============================================================================

var scenarios = []ScenarioDTO{
	{
		ID:          "standard-month",
		Name:        "Standard Month",
		Description: "Three salaried employees, full month of 9-to-6 days with some overtime",
		Category:    "payroll",
	},
	{
		ID:          "mid-month-join",
		Name:        "Mid-Month Join & Leave",
		Description: "Prorated base pay for a hire on the 11th and a resignation on the 20th",
		Category:    "proration",
	},
	{
		ID:          "holiday-and-night",
		Name:        "Holiday & Night Work",
		Description: "Work on 삼일절, a Saturday special shift and overnight shifts",
		Category:    "premiums",
	},
	{
		ID:          "high-earner",
		Name:        "High Earner",
		Description: "Monthly salary above the regular withholding table",
		Category:    "tax",
	},
	{
		ID:          "confirmed-period",
		Name:        "Confirmed Period",
		Description: "February is confirmed; a late overtime correction cannot overwrite it",
		Category:    "lifecycle",
	},
	{
		ID:          "legacy-import",
		Name:        "Legacy Spreadsheet Import",
		Description: "Attendance imported from a spreadsheet with Korean headers and tags",
		Category:    "import",
	},
}

func init() {
	for i := range scenarios {
		scenarios[i].PaymentDay = scenarioPaymentDay
		scenarios[i].ReferenceDate = scenarioReference
	}
}

// =============================================================================
// SCENARIO HANDLERS
// =============================================================================

// ListScenarios returns available demo scenarios.
func (h *Handler) ListScenarios(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, scenarios)
}

// GetCurrentScenario returns the currently loaded scenario.
func (h *Handler) GetCurrentScenario(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	current := h.currentScenario
	h.mu.Unlock()

	if current == "" {
		writeJSON(w, http.StatusOK, nil)
		return
	}
	for _, s := range scenarios {
		if s.ID == current {
			writeJSON(w, http.StatusOK, s)
			return
		}
	}
	writeJSON(w, http.StatusOK, ScenarioDTO{ID: current, Name: current, Description: "Currently loaded scenario"})
}

// LoadScenario loads a predefined scenario.
func (h *Handler) LoadScenario(w http.ResponseWriter, r *http.Request) {
	var req LoadScenarioRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	if err := h.loadScenario(r.Context(), req.ScenarioID); err != nil {
		writeError(w, errorStatus(err), fmt.Sprintf("Failed to load scenario: %v", err), err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "loaded", "scenario": req.ScenarioID})
}

func (h *Handler) loadScenario(ctx context.Context, id string) error {
	var load func(context.Context) error
	switch id {
	case "standard-month":
		load = h.loadStandardMonthScenario
	case "mid-month-join":
		load = h.loadMidMonthJoinScenario
	case "holiday-and-night":
		load = h.loadHolidayAndNightScenario
	case "high-earner":
		load = h.loadHighEarnerScenario
	case "confirmed-period":
		load = h.loadConfirmedPeriodScenario
	case "legacy-import":
		load = h.loadLegacyImportScenario
	default:
		return &generic.ValidationError{Field: "scenario_id", Message: fmt.Sprintf("unknown scenario %q", id)}
	}

	// Reset first
	if err := h.reset(ctx); err != nil {
		return fmt.Errorf("reset: %w", err)
	}
	if _, err := h.addDefaultHolidays(ctx); err != nil {
		return fmt.Errorf("holidays: %w", err)
	}
	if err := load(ctx); err != nil {
		return err
	}

	// Track the loaded scenario
	h.mu.Lock()
	h.currentScenario = id
	h.mu.Unlock()
	return nil
}

// =============================================================================
// SCENARIO LOADERS
// =============================================================================

func (h *Handler) loadStandardMonthScenario(ctx context.Context) error {
	employees := []payroll.Employee{
		newEmployee("EMP001", "김민준", 3000000, 1, 0, "2020-03-02", "Engineering"),
		newEmployee("EMP002", "이서연", 2500000, 2, 1, "2021-07-01", "Design"),
		newEmployee("EMP003", "박지훈", 4200000, 4, 2, "2018-01-15", "Sales"),
	}
	if err := h.saveEmployees(ctx, employees); err != nil {
		return err
	}

	var records []attendance.Record
	march := scenarioMonth("2024-03-01", "2024-03-31")
	for _, d := range h.workdays(march) {
		records = append(records,
			dayShift("EMP002", d, "09:00", "18:00"),
			dayShift("EMP003", d, "09:00", "18:00"),
		)
		// EMP001 stays until 21:00 on Mondays and Thursdays.
		out := "18:00"
		if wd := d.Weekday(); wd == time.Monday || wd == time.Thursday {
			out = "21:00"
		}
		records = append(records, dayShift("EMP001", d, "09:00", out))
	}
	// One annual leave day and a late arrival for EMP002.
	records = replaceDay(records, "EMP002", "2024-03-12", attendance.Record{
		EmployeeID: "EMP002", Date: generic.MustParseDate("2024-03-12"), Type: attendance.TypeLeave,
	})
	late := dayShift("EMP002", generic.MustParseDate("2024-03-13"), "10:30", "18:00")
	late.Type = attendance.TypeLate
	records = replaceDay(records, "EMP002", "2024-03-13", late)

	return h.Store.AppendAttendance(ctx, records)
}

func (h *Handler) loadMidMonthJoinScenario(ctx context.Context) error {
	leaver := newEmployee("EMP011", "정하은", 2800000, 1, 0, "2019-05-01", "Support")
	resign := generic.MustParseDate("2024-03-20")
	leaver.ResignDate = &resign

	employees := []payroll.Employee{
		newEmployee("EMP010", "최도윤", 3100000, 1, 0, "2024-03-11", "Engineering"),
		leaver,
	}
	if err := h.saveEmployees(ctx, employees); err != nil {
		return err
	}

	var records []attendance.Record
	for _, d := range h.workdays(scenarioMonth("2024-03-11", "2024-03-31")) {
		records = append(records, dayShift("EMP010", d, "09:00", "18:00"))
	}
	for _, d := range h.workdays(scenarioMonth("2024-03-01", "2024-03-20")) {
		records = append(records, dayShift("EMP011", d, "09:00", "18:00"))
	}
	return h.Store.AppendAttendance(ctx, records)
}

func (h *Handler) loadHolidayAndNightScenario(ctx context.Context) error {
	employees := []payroll.Employee{
		newEmployee("EMP020", "윤서준", 3000000, 1, 0, "2022-02-01", "Operations"),
		newEmployee("EMP021", "한지민", 2700000, 2, 0, "2023-04-03", "Operations"),
	}
	if err := h.saveEmployees(ctx, employees); err != nil {
		return err
	}

	var records []attendance.Record
	for _, d := range h.workdays(scenarioMonth("2024-03-01", "2024-03-31")) {
		records = append(records, dayShift("EMP020", d, "09:00", "18:00"))
	}

	// 삼일절 is a Friday public holiday; a Saturday special shift is
	// tagged holiday work.
	records = append(records,
		dayShift("EMP020", generic.MustParseDate("2024-03-01"), "09:00", "18:00"),
		attendance.Record{
			EmployeeID: "EMP020",
			Date:       generic.MustParseDate("2024-03-09"),
			CheckIn:    "2024-03-09 10:00:00",
			CheckOut:   "2024-03-09 22:00:00",
			Type:       attendance.TypeHolidayWork,
		},
	)

	// EMP021 works overnight Monday to Thursday.
	for _, d := range h.workdays(scenarioMonth("2024-03-01", "2024-03-31")) {
		if wd := d.Weekday(); wd >= time.Monday && wd <= time.Thursday {
			records = append(records, nightShift("EMP021", d, "22:00", "06:00"))
		}
	}
	return h.Store.AppendAttendance(ctx, records)
}

func (h *Handler) loadHighEarnerScenario(ctx context.Context) error {
	employees := []payroll.Employee{
		newEmployee("EMP030", "서예준", 12000000, 3, 1, "2015-09-01", "Executive"),
		newEmployee("EMP031", "강수아", 1000000, 1, 0, "2024-01-02", "Intern"),
	}
	if err := h.saveEmployees(ctx, employees); err != nil {
		return err
	}

	var records []attendance.Record
	for _, d := range h.workdays(scenarioMonth("2024-03-01", "2024-03-31")) {
		records = append(records,
			dayShift("EMP030", d, "08:00", "20:00"),
			dayShift("EMP031", d, "10:00", "16:00"),
		)
	}
	return h.Store.AppendAttendance(ctx, records)
}

func (h *Handler) loadConfirmedPeriodScenario(ctx context.Context) error {
	if err := h.loadStandardMonthScenario(ctx); err != nil {
		return err
	}

	feb := scenarioMonth("2024-02-01", "2024-02-29")
	var records []attendance.Record
	for _, d := range h.workdays(feb) {
		for _, id := range []string{"EMP001", "EMP002", "EMP003"} {
			records = append(records, dayShift(id, d, "09:00", "18:00"))
		}
	}
	if err := h.Store.AppendAttendance(ctx, records); err != nil {
		return err
	}

	// Calculate and confirm February.
	events, err := h.Service.Run(ctx, payroll.RunRequest{
		Period:  payroll.PeriodSpec{Quick: generic.QuickCustom, Start: feb.Start, End: feb.End},
		Trigger: "scenario",
	})
	if err != nil {
		return fmt.Errorf("calculate february: %w", err)
	}
	summary := payroll.Collect(events)
	if len(summary.Failures) > 0 {
		f := summary.Failures[0]
		return fmt.Errorf("calculate february: %s: %s", f.EmployeeID, f.Message)
	}
	for _, res := range summary.Results {
		if _, err := h.Results.UpdateStatus(ctx, res.EmployeeID, feb.Start, payroll.StatusConfirmed); err != nil {
			return fmt.Errorf("confirm %s: %w", res.EmployeeID, err)
		}
	}
	h.invalidateResults()

	// A late correction: EMP001 also worked an evening in February.
	return h.Store.AppendAttendance(ctx, []attendance.Record{{
		EmployeeID: "EMP001",
		Date:       generic.MustParseDate("2024-02-29"),
		CheckIn:    "2024-02-29 19:00:00",
		CheckOut:   "2024-02-29 23:00:00",
		Type:       attendance.TypeNormal,
	}})
}

// legacySheet is what an older attendance system exports: Korean headers,
// bare clock times, Korean status tags and a BOM.
const legacySheet = "\ufeff사번,날짜,출근,퇴근,구분\n" +
	"EMP040,2024-03-04,09:00,18:00,정상\n" +
	"EMP040,2024-03-05,09:00,21:30,정상\n" +
	"EMP040,2024-03-06,10:15,18:00,지각\n" +
	"EMP040,2024-03-07,,,연차\n" +
	"EMP040,2024-03-08,09:00,15:00,조퇴\n" +
	"EMP040,2024-03-11,08:00,19:00,출장\n" +
	"EMP040,2024-03-16,10:00,16:00,특근\n" +
	"EMP041,2024-03-04,,,결근\n" +
	"EMP041,2024-03-05,09:00,18:00,정상\n"

func (h *Handler) loadLegacyImportScenario(ctx context.Context) error {
	employees, err := ingest.DecodeEmployeesJSON([]byte(`{"employees": [
		{"사번": "EMP040", "이름": "오현우", "기본급": "2,900,000", "입사일": "2021.11.01", "부양가족수": 2},
		{"employeeId": "EMP041", "name": "임나연", "basePay": 2600000, "hireDate": "2023/06/12"}
	]}`))
	if err != nil {
		return err
	}
	if err := h.saveEmployees(ctx, employees); err != nil {
		return err
	}

	records, err := ingest.ReadAttendanceCSV(strings.NewReader(legacySheet))
	if err != nil {
		return err
	}
	return h.Store.AppendAttendance(ctx, records)
}

// =============================================================================
// HELPERS
// =============================================================================

func newEmployee(id, name string, salary int64, dependents, children int, joined, dept string) payroll.Employee {
	return payroll.Employee{
		ID:         id,
		Name:       name,
		BaseSalary: salary,
		Dependents: dependents,
		Children:   children,
		JoinDate:   generic.MustParseDate(joined),
		Department: dept,
	}
}

func (h *Handler) saveEmployees(ctx context.Context, employees []payroll.Employee) error {
	for _, emp := range employees {
		if err := h.Store.SaveEmployee(ctx, emp); err != nil {
			return fmt.Errorf("save employee %s: %w", emp.ID, err)
		}
	}
	return nil
}

func scenarioMonth(start, end string) generic.Period {
	return generic.Period{Start: generic.MustParseDate(start), End: generic.MustParseDate(end)}
}

// workdays lists weekdays in p that are not global holidays.
func (h *Handler) workdays(p generic.Period) []generic.TimePoint {
	var days []generic.TimePoint
	for _, d := range p.Days() {
		if d.IsWorkdayWithHolidays(h.Store, "") {
			days = append(days, d)
		}
	}
	return days
}

func dayShift(employeeID string, d generic.TimePoint, in, out string) attendance.Record {
	return attendance.Record{
		EmployeeID: employeeID,
		Date:       d,
		CheckIn:    d.String() + " " + in + ":00",
		CheckOut:   d.String() + " " + out + ":00",
		Type:       attendance.TypeNormal,
	}
}

// nightShift checks out on the following calendar day.
func nightShift(employeeID string, d generic.TimePoint, in, out string) attendance.Record {
	return attendance.Record{
		EmployeeID: employeeID,
		Date:       d,
		CheckIn:    d.String() + " " + in + ":00",
		CheckOut:   d.AddDays(1).String() + " " + out + ":00",
		Type:       attendance.TypeNormal,
	}
}

// replaceDay swaps the employee's record on date for rec.
func replaceDay(records []attendance.Record, employeeID, date string, rec attendance.Record) []attendance.Record {
	for i, r := range records {
		if r.EmployeeID == employeeID && r.Date.String() == date {
			records[i] = rec
			return records
		}
	}
	return append(records, rec)
}
