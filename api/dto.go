/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the internal domain model from the external API contract:
  - Hours are rendered as decimal hours, not durations
  - Dates are plain YYYY-MM-DD strings
  - Errors inside the calculation stream carry a machine-readable code

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

TYPES:
  Employee:    EmployeeDTO
  Attendance:  AttendanceDTO, ImportResponse
  Periods:     PayPeriodDTO
  Payroll:     CalculateRequest, ResultDTO, EventDTO, SummaryDTO, RunDTO
  Holidays:    HolidayDTO, CreateHolidayRequest
  Scenarios:   ScenarioDTO, LoadScenarioRequest

VALIDATION:
  Validation is done in handlers and the domain packages, not in DTOs.
  DTOs are pure data carriers.

SEE ALSO:
  - handlers.go: Uses these types
  - payroll/types.go: Result, Employee
*/
package api

import (
	"errors"
	"time"

	"github.com/warp/payroll-engine/attendance"
	"github.com/warp/payroll-engine/deduction"
	"github.com/warp/payroll-engine/generic"
	"github.com/warp/payroll-engine/payroll"
)

// =============================================================================
// EMPLOYEES & ATTENDANCE
// =============================================================================

// EmployeeDTO represents an employee in API responses.
type EmployeeDTO struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	BaseSalary int64  `json:"base_salary"`
	Dependents int    `json:"dependents"`
	Children   int    `json:"children"`
	JoinDate   string `json:"join_date"`
	ResignDate string `json:"resign_date,omitempty"`
	Department string `json:"department,omitempty"`
	Position   string `json:"position,omitempty"`
	CompanyID  string `json:"company_id,omitempty"`
}

func toEmployeeDTO(e payroll.Employee) EmployeeDTO {
	dto := EmployeeDTO{
		ID:         e.ID,
		Name:       e.Name,
		BaseSalary: e.BaseSalary,
		Dependents: e.Dependents,
		Children:   e.Children,
		JoinDate:   e.JoinDate.String(),
		Department: e.Department,
		Position:   e.Position,
		CompanyID:  e.CompanyID,
	}
	if e.ResignDate != nil && !e.ResignDate.IsZero() {
		dto.ResignDate = e.ResignDate.String()
	}
	return dto
}

type AttendanceDTO struct {
	EmployeeID string `json:"employee_id"`
	Date       string `json:"date"`
	CheckIn    string `json:"check_in,omitempty"`
	CheckOut   string `json:"check_out,omitempty"`
	Type       string `json:"type"`
}

func toAttendanceDTO(r attendance.Record) AttendanceDTO {
	return AttendanceDTO{
		EmployeeID: r.EmployeeID,
		Date:       r.Date.String(),
		CheckIn:    r.CheckIn,
		CheckOut:   r.CheckOut,
		Type:       string(r.Type),
	}
}

// ImportResponse reports how many rows an import stored.
type ImportResponse struct {
	Status   string `json:"status"`
	Imported int    `json:"imported"`
	Format   string `json:"format"`
}

// =============================================================================
// PERIODS
// =============================================================================

type PayPeriodDTO struct {
	Start string `json:"start"`
	End   string `json:"end"`
	Quick string `json:"quick"`
	Days  int    `json:"days"`
}

func toPayPeriodDTO(p generic.PayPeriod) PayPeriodDTO {
	return PayPeriodDTO{
		Start: p.Start.String(),
		End:   p.End.String(),
		Quick: string(p.Quick),
		Days:  p.DayCount(),
	}
}

// =============================================================================
// PAYROLL
// =============================================================================

// CalculateRequest starts a batch. Quick defaults to "current" and
// ReferenceDate to today. Start and End are only read for "custom".
type CalculateRequest struct {
	EmployeeIDs   []string `json:"employee_ids"`
	PaymentDay    int      `json:"payment_day"`
	Quick         string   `json:"quick"`
	ReferenceDate string   `json:"reference_date"`
	Start         string   `json:"start"`
	End           string   `json:"end"`
}

// DeductionsDTO extends the statutory breakdown with its totals.
type DeductionsDTO struct {
	deduction.Deductions
	Insurance int64 `json:"insurance_total"`
	Tax       int64 `json:"tax_total"`
	Total     int64 `json:"total"`
}

// ResultDTO is one payslip.
type ResultDTO struct {
	EmployeeID     string               `json:"employee_id"`
	Period         PayPeriodDTO         `json:"period"`
	EffectiveStart string               `json:"effective_start"`
	EffectiveEnd   string               `json:"effective_end"`
	Prorated       bool                 `json:"prorated"`
	Hours          attendance.HoursView `json:"hours"`
	HourlyWage     int64                `json:"hourly_wage"`
	BasePay        int64                `json:"base_pay"`
	OvertimePay    int64                `json:"overtime_pay"`
	NightPay       int64                `json:"night_pay"`
	HolidayPay     int64                `json:"holiday_pay"`
	GrossPay       int64                `json:"gross_pay"`
	Deductions     DeductionsDTO        `json:"deductions"`
	NetPay         int64                `json:"net_pay"`
	Status         string               `json:"status"`
	CalculatedAt   string               `json:"calculated_at,omitempty"`
}

func toResultDTO(r payroll.Result) ResultDTO {
	dto := ResultDTO{
		EmployeeID:  r.EmployeeID,
		Period:      toPayPeriodDTO(r.Period),
		Prorated:    r.Prorated,
		Hours:       r.Hours.View(),
		HourlyWage:  r.HourlyWage,
		BasePay:     r.BasePay,
		OvertimePay: r.OvertimePay,
		NightPay:    r.NightPay,
		HolidayPay:  r.HolidayPay,
		GrossPay:    r.GrossPay,
		Deductions: DeductionsDTO{
			Deductions: r.Deductions,
			Insurance:  r.Deductions.Insurance(),
			Tax:        r.Deductions.Tax(),
			Total:      r.Deductions.Total(),
		},
		NetPay: r.NetPay,
		Status: string(r.Status),
	}
	if !r.Effective.Start.IsZero() {
		dto.EffectiveStart = r.Effective.Start.String()
		dto.EffectiveEnd = r.Effective.End.String()
	}
	if !r.CalculatedAt.IsZero() {
		dto.CalculatedAt = r.CalculatedAt.Format(time.RFC3339)
	}
	return dto
}

func toResultDTOs(results []payroll.Result) []ResultDTO {
	dtos := make([]ResultDTO, 0, len(results))
	for _, r := range results {
		dtos = append(dtos, toResultDTO(r))
	}
	return dtos
}

// ErrorDTO is a per-employee failure inside the event stream.
type ErrorDTO struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func toErrorDTO(err error) *ErrorDTO {
	if err == nil {
		return nil
	}
	dto := &ErrorDTO{Code: "internal", Message: err.Error()}
	var calcErr *generic.CalculationError
	switch {
	case errors.As(err, &calcErr):
		dto.Code = string(calcErr.Code)
	case generic.IsValidation(err):
		dto.Code = "validation"
	case generic.IsConfiguration(err):
		dto.Code = "configuration"
	}
	return dto
}

type FailureDTO struct {
	EmployeeID string `json:"employee_id"`
	Code       string `json:"code,omitempty"`
	Message    string `json:"message"`
}

type SummaryDTO struct {
	Period    PayPeriodDTO `json:"period"`
	Succeeded int          `json:"succeeded"`
	Failed    int          `json:"failed"`
	Failures  []FailureDTO `json:"failures"`
	Canceled  bool         `json:"canceled"`
}

// EventDTO is one NDJSON line of POST /api/payroll/calculate.
type EventDTO struct {
	Type       string           `json:"type"`
	EmployeeID string           `json:"employee_id,omitempty"`
	Completed  int              `json:"completed"`
	Total      int              `json:"total"`
	Result     *ResultDTO       `json:"result,omitempty"`
	Error      *ErrorDTO        `json:"error,omitempty"`
	Locked     bool             `json:"locked,omitempty"`
	Changes    []payroll.Change `json:"changes,omitempty"`
	Summary    *SummaryDTO      `json:"summary,omitempty"`
}

func toEventDTO(ev payroll.Event) EventDTO {
	dto := EventDTO{
		Type:       string(ev.Type),
		EmployeeID: ev.EmployeeID,
		Completed:  ev.Completed,
		Total:      ev.Total,
		Error:      toErrorDTO(ev.Err),
		Locked:     ev.Locked,
		Changes:    ev.Changes,
	}
	if ev.Result != nil {
		r := toResultDTO(*ev.Result)
		dto.Result = &r
	}
	if s := ev.Summary; s != nil {
		sum := &SummaryDTO{
			Period:    toPayPeriodDTO(s.Period),
			Succeeded: len(s.Results),
			Failed:    len(s.Failures),
			Failures:  make([]FailureDTO, 0, len(s.Failures)),
			Canceled:  s.Canceled,
		}
		for _, f := range s.Failures {
			sum.Failures = append(sum.Failures, FailureDTO{EmployeeID: f.EmployeeID, Code: string(f.Code), Message: f.Message})
		}
		dto.Summary = sum
	}
	return dto
}

// RunDTO represents a calculation run.
type RunDTO struct {
	ID          string       `json:"id"`
	Trigger     string       `json:"trigger"`
	Period      PayPeriodDTO `json:"period"`
	Status      string       `json:"status"`
	Total       int          `json:"total"`
	Succeeded   int          `json:"succeeded"`
	Failed      int          `json:"failed"`
	Locked      int          `json:"locked"`
	Error       string       `json:"error,omitempty"`
	StartedAt   string       `json:"started_at"`
	CompletedAt string       `json:"completed_at,omitempty"`
}

func toRunDTO(run payroll.Run) RunDTO {
	dto := RunDTO{
		ID:        run.ID,
		Trigger:   run.Trigger,
		Period:    toPayPeriodDTO(run.Period),
		Status:    string(run.Status),
		Total:     run.Total,
		Succeeded: run.Succeeded,
		Failed:    run.Failed,
		Locked:    run.Locked,
		Error:     run.Error,
		StartedAt: run.StartedAt.Format(time.RFC3339),
	}
	if run.CompletedAt != nil {
		dto.CompletedAt = run.CompletedAt.Format(time.RFC3339)
	}
	return dto
}

// =============================================================================
// HOLIDAYS
// =============================================================================

type HolidayDTO struct {
	ID        string `json:"id"`
	CompanyID string `json:"company_id"`
	Date      string `json:"date"`
	Name      string `json:"name"`
	Recurring bool   `json:"recurring"`
}

func toHolidayDTO(h generic.Holiday) HolidayDTO {
	return HolidayDTO{
		ID:        h.ID,
		CompanyID: h.CompanyID,
		Date:      h.Date.String(),
		Name:      h.Name,
		Recurring: h.Recurring,
	}
}

type CreateHolidayRequest struct {
	CompanyID string `json:"company_id"`
	Date      string `json:"date"`
	Name      string `json:"name"`
	Recurring bool   `json:"recurring"`
}

// =============================================================================
// SCENARIOS
// =============================================================================

// ScenarioDTO describes a demo scenario. PaymentDay and ReferenceDate are
// the batch parameters the scenario was built for.
type ScenarioDTO struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	Description   string `json:"description"`
	Category      string `json:"category"`
	PaymentDay    int    `json:"payment_day"`
	ReferenceDate string `json:"reference_date"`
}

type LoadScenarioRequest struct {
	ScenarioID string `json:"scenario_id"`
}

// ErrorResponse is the body of every non-2xx JSON response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}
