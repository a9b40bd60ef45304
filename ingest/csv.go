package ingest

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"github.com/gocarina/gocsv"
	"github.com/warp/payroll-engine/attendance"
	"github.com/warp/payroll-engine/generic"
	"github.com/warp/payroll-engine/payroll"
)

// =============================================================================
// CSV IMPORT
// =============================================================================

// AttendanceRow is the canonical attendance CSV layout.
type AttendanceRow struct {
	EmployeeID string `csv:"employee_id"`
	Date       string `csv:"date"`
	CheckIn    string `csv:"check_in"`
	CheckOut   string `csv:"check_out"`
	Type       string `csv:"type"`
}

// EmployeeRow is the canonical employee CSV layout.
type EmployeeRow struct {
	ID         string `csv:"id"`
	Name       string `csv:"name"`
	BaseSalary string `csv:"base_salary"`
	Dependents string `csv:"dependents"`
	Children   string `csv:"children"`
	JoinDate   string `csv:"join_date"`
	ResignDate string `csv:"resign_date"`
	Department string `csv:"department"`
	Position   string `csv:"position"`
	CompanyID  string `csv:"company_id"`
}

// ReadAttendanceCSV decodes an attendance sheet whose header may use any of
// the known aliases. Row numbers in errors are 1-based data rows.
func ReadAttendanceCSV(r io.Reader) ([]attendance.Record, error) {
	data, err := canonicalHeader(r, attendanceKeys, "employee_id", "date")
	if err != nil {
		return nil, err
	}
	var rows []*AttendanceRow
	if err := gocsv.UnmarshalBytes(data, &rows); err != nil {
		return nil, &generic.ValidationError{Field: "csv", Message: err.Error()}
	}

	out := make([]attendance.Record, 0, len(rows))
	for i, row := range rows {
		rec, err := buildAttendance(row.EmployeeID, row.Date, row.CheckIn, row.CheckOut, row.Type)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+1, err)
		}
		out = append(out, rec)
	}
	return out, nil
}

// ReadEmployeesCSV decodes an employee sheet.
func ReadEmployeesCSV(r io.Reader) ([]payroll.Employee, error) {
	data, err := canonicalHeader(r, employeeKeys, "id", "base_salary", "join_date")
	if err != nil {
		return nil, err
	}
	var rows []*EmployeeRow
	if err := gocsv.UnmarshalBytes(data, &rows); err != nil {
		return nil, &generic.ValidationError{Field: "csv", Message: err.Error()}
	}

	out := make([]payroll.Employee, 0, len(rows))
	for i, row := range rows {
		emp, err := buildEmployee(row.ID, row.Name, row.BaseSalary, row.Dependents, row.Children,
			row.JoinDate, row.ResignDate, row.Department, row.Position, row.CompanyID)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+1, err)
		}
		out = append(out, emp)
	}
	return out, nil
}

// canonicalHeader rewrites the header row to canonical column names and
// drops unknown columns, so gocsv only sees the tags it knows.
func canonicalHeader(r io.Reader, keys map[string]string, required ...string) ([]byte, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	records, err := reader.ReadAll()
	if err != nil {
		return nil, &generic.ValidationError{Field: "csv", Message: err.Error()}
	}
	if len(records) == 0 {
		return nil, &generic.ValidationError{Field: "csv", Message: "empty file"}
	}

	header := records[0]
	var keep []int
	var names []string
	seen := make(map[string]bool)
	for i, h := range header {
		h = strings.TrimPrefix(strings.TrimSpace(h), "\ufeff")
		c, ok := keys[h]
		if !ok {
			c, ok = keys[strings.ToLower(h)]
		}
		if !ok || seen[c] {
			continue
		}
		seen[c] = true
		keep = append(keep, i)
		names = append(names, c)
	}
	for _, req := range required {
		if !seen[req] {
			return nil, &generic.ValidationError{Field: "csv", Message: "missing column " + req}
		}
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(names); err != nil {
		return nil, err
	}
	for _, rec := range records[1:] {
		if blankRow(rec) {
			continue
		}
		row := make([]string, len(keep))
		for j, i := range keep {
			if i < len(rec) {
				row[j] = strings.TrimSpace(rec[i])
			}
		}
		if err := w.Write(row); err != nil {
			return nil, err
		}
	}
	w.Flush()
	return buf.Bytes(), w.Error()
}

func blankRow(rec []string) bool {
	for _, f := range rec {
		if strings.TrimSpace(f) != "" {
			return false
		}
	}
	return true
}

// =============================================================================
// PAYROLL REGISTER EXPORT
// =============================================================================

// RegisterRow is one line of the payroll register.
type RegisterRow struct {
	EmployeeID          string `csv:"employee_id"`
	PeriodStart         string `csv:"period_start"`
	PeriodEnd           string `csv:"period_end"`
	Status              string `csv:"status"`
	Prorated            bool   `csv:"prorated"`
	RegularHours        string `csv:"regular_hours"`
	OvertimeHours       string `csv:"overtime_hours"`
	NightHours          string `csv:"night_hours"`
	HolidayHours        string `csv:"holiday_hours"`
	HolidayOvertime     string `csv:"holiday_overtime_hours"`
	HourlyWage          int64  `csv:"hourly_wage"`
	BasePay             int64  `csv:"base_pay"`
	OvertimePay         int64  `csv:"overtime_pay"`
	NightPay            int64  `csv:"night_pay"`
	HolidayPay          int64  `csv:"holiday_pay"`
	GrossPay            int64  `csv:"gross_pay"`
	Pension             int64  `csv:"national_pension"`
	Health              int64  `csv:"health_insurance"`
	LongTermCare        int64  `csv:"long_term_care"`
	EmploymentInsurance int64  `csv:"employment_insurance"`
	IncomeTax           int64  `csv:"income_tax"`
	LocalIncomeTax      int64  `csv:"local_income_tax"`
	TotalDeductions     int64  `csv:"total_deductions"`
	NetPay              int64  `csv:"net_pay"`
}

func RegisterRowOf(r payroll.Result) RegisterRow {
	h := r.Hours.View()
	return RegisterRow{
		EmployeeID:          r.EmployeeID,
		PeriodStart:         r.Period.Start.String(),
		PeriodEnd:           r.Period.End.String(),
		Status:              string(r.Status),
		Prorated:            r.Prorated,
		RegularHours:        h.Regular.String(),
		OvertimeHours:       h.Overtime.String(),
		NightHours:          h.Night.String(),
		HolidayHours:        h.RegularHoliday.String(),
		HolidayOvertime:     h.OvertimeHoliday.String(),
		HourlyWage:          r.HourlyWage,
		BasePay:             r.BasePay,
		OvertimePay:         r.OvertimePay,
		NightPay:            r.NightPay,
		HolidayPay:          r.HolidayPay,
		GrossPay:            r.GrossPay,
		Pension:             r.Deductions.Pension,
		Health:              r.Deductions.Health,
		LongTermCare:        r.Deductions.LongTermCare,
		EmploymentInsurance: r.Deductions.EmploymentInsurance,
		IncomeTax:           r.Deductions.IncomeTax,
		LocalIncomeTax:      r.Deductions.LocalIncomeTax,
		TotalDeductions:     r.Deductions.Total(),
		NetPay:              r.NetPay,
	}
}

// WriteRegisterCSV writes a header and one row per result.
func WriteRegisterCSV(w io.Writer, results []payroll.Result) error {
	rows := make([]RegisterRow, 0, len(results))
	for _, r := range results {
		rows = append(rows, RegisterRowOf(r))
	}
	return gocsv.Marshal(rows, w)
}
