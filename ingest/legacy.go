/*
Package ingest converts loosely-shaped upstream data into canonical records.

PURPOSE:
  Attendance and employee feeds arrive with inconsistent field names
  (employeeId, emp_id, 사번), Korean attendance tags and bare clock times.
  Everything is mapped onto attendance.Record and payroll.Employee once,
  at the boundary, so the engine only ever sees canonical types.

SOURCES:
  JSON: FromLegacyAttendance / FromLegacyEmployee on decoded objects
  CSV:  ReadAttendanceCSV / ReadEmployeesCSV canonicalize the header row,
        then decode with gocsv
  Out:  WriteRegisterCSV renders results as a payroll register

SEE ALSO:
  - attendance/types.go: canonical record and tags
  - payroll/types.go: canonical employee
*/
package ingest

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/warp/payroll-engine/attendance"
	"github.com/warp/payroll-engine/generic"
	"github.com/warp/payroll-engine/payroll"
)

// =============================================================================
// FIELD ALIASES
// =============================================================================

var attendanceAliases = map[string][]string{
	"employee_id": {"employee_id", "employeeId", "employeeID", "emp_id", "empId", "사번", "직원ID"},
	"date":        {"date", "work_date", "workDate", "day", "날짜", "일자", "근무일"},
	"check_in":    {"check_in", "checkIn", "clock_in", "clockIn", "in", "start_time", "startTime", "출근", "출근시간"},
	"check_out":   {"check_out", "checkOut", "clock_out", "clockOut", "out", "end_time", "endTime", "퇴근", "퇴근시간"},
	"type":        {"type", "attendance_type", "attendanceType", "status", "구분", "근태", "근태구분"},
}

var employeeAliases = map[string][]string{
	"id":          {"id", "employee_id", "employeeId", "employeeID", "emp_id", "사번"},
	"name":        {"name", "employee_name", "employeeName", "full_name", "이름", "성명"},
	"base_salary": {"base_salary", "baseSalary", "base_pay", "basePay", "salary", "monthly_salary", "monthlySalary", "기본급", "월급"},
	"dependents":  {"dependents", "dependent_count", "dependentCount", "family", "family_count", "부양가족", "부양가족수"},
	"children":    {"children", "child_count", "childCount", "kids", "자녀", "자녀수"},
	"join_date":   {"join_date", "joinDate", "hire_date", "hireDate", "start_date", "startDate", "입사일"},
	"resign_date": {"resign_date", "resignDate", "leave_date", "leaveDate", "end_date", "endDate", "퇴사일"},
	"department":  {"department", "dept", "부서"},
	"position":    {"position", "title", "rank", "직급", "직위"},
	"company_id":  {"company_id", "companyId", "company", "회사"},
}

// typeAliases maps legacy and Korean attendance tags to canonical ones.
var typeAliases = map[string]attendance.Type{
	"정상":           attendance.TypeNormal,
	"출근":           attendance.TypeNormal,
	"지각":           attendance.TypeLate,
	"조퇴":           attendance.TypeEarlyLeave,
	"출장":           attendance.TypeBusinessTrip,
	"휴일근무":         attendance.TypeHolidayWork,
	"휴일출근":         attendance.TypeHolidayWork,
	"특근":           attendance.TypeHolidayWork,
	"결근":           attendance.TypeAbsence,
	"휴가":           attendance.TypeLeave,
	"연차":           attendance.TypeLeave,
	"반차":           attendance.TypeLeave,
	"present":      attendance.TypeNormal,
	"work":         attendance.TypeNormal,
	"earlyleave":   attendance.TypeEarlyLeave,
	"early":        attendance.TypeEarlyLeave,
	"businesstrip": attendance.TypeBusinessTrip,
	"trip":         attendance.TypeBusinessTrip,
	"holidaywork":  attendance.TypeHolidayWork,
	"holiday":      attendance.TypeHolidayWork,
	"absent":       attendance.TypeAbsence,
	"vacation":     attendance.TypeLeave,
	"annual_leave": attendance.TypeLeave,
	"annualleave":  attendance.TypeLeave,
	"pto":          attendance.TypeLeave,
	"sick":         attendance.TypeLeave,
	"sick_leave":   attendance.TypeLeave,
}

// canonicalKeys inverts an alias table.
func canonicalKeys(aliases map[string][]string) map[string]string {
	out := make(map[string]string)
	for canonical, names := range aliases {
		for _, n := range names {
			out[n] = canonical
			out[strings.ToLower(n)] = canonical
		}
	}
	return out
}

var (
	attendanceKeys = canonicalKeys(attendanceAliases)
	employeeKeys   = canonicalKeys(employeeAliases)
)

// canonicalize renames known keys. Unknown keys are dropped.
func canonicalize(m map[string]any, keys map[string]string) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		name := strings.TrimSpace(k)
		c, ok := keys[name]
		if !ok {
			c, ok = keys[strings.ToLower(name)]
		}
		if !ok {
			continue
		}
		if _, seen := out[c]; seen && isBlank(v) {
			continue
		}
		out[c] = v
	}
	return out
}

// =============================================================================
// ATTENDANCE
// =============================================================================

// NormalizeType maps a legacy tag to a canonical one. Unknown tags are
// rejected with a validation error.
func NormalizeType(s string) (attendance.Type, error) {
	s = strings.TrimSpace(s)
	if t, ok := typeAliases[s]; ok {
		return t, nil
	}
	lower := strings.ToLower(s)
	if t, ok := typeAliases[lower]; ok {
		return t, nil
	}
	return attendance.ParseType(strings.ReplaceAll(lower, "-", "_"))
}

// FromLegacyAttendance converts one decoded JSON object.
func FromLegacyAttendance(m map[string]any) (attendance.Record, error) {
	c := canonicalize(m, attendanceKeys)
	return buildAttendance(
		stringOf(c["employee_id"]),
		stringOf(c["date"]),
		stringOf(c["check_in"]),
		stringOf(c["check_out"]),
		stringOf(c["type"]),
	)
}

func buildAttendance(employeeID, date, checkIn, checkOut, typ string) (attendance.Record, error) {
	r := attendance.Record{EmployeeID: strings.TrimSpace(employeeID)}

	d, err := parseLooseDate(date)
	if err != nil {
		return attendance.Record{}, &generic.ValidationError{Field: "date", EmployeeID: r.EmployeeID, Message: err.Error()}
	}
	r.Date = d

	if r.Type, err = NormalizeType(typ); err != nil {
		return attendance.Record{}, err
	}
	r.CheckIn = withDate(d, checkIn)
	r.CheckOut = withDate(d, checkOut)

	if err := r.Validate(); err != nil {
		return attendance.Record{}, err
	}
	return r, nil
}

// withDate turns a bare clock time ("9:00", "18:30:00", "24:00") into a full
// timestamp on the record date. Full timestamps pass through.
func withDate(d generic.TimePoint, clock string) string {
	clock = strings.TrimSpace(clock)
	if clock == "" || strings.Contains(clock, "-") {
		return clock
	}
	parts := strings.Split(clock, ":")
	if len(parts) < 2 || len(parts) > 3 {
		return clock
	}
	for len(parts) < 3 {
		parts = append(parts, "00")
	}
	for i, p := range parts {
		if len(p) == 1 {
			parts[i] = "0" + p
		}
	}
	return d.String() + " " + strings.Join(parts, ":")
}

// DecodeAttendanceJSON accepts a bare array or an object wrapping it under
// "records" or "attendance". Every record is converted or the whole body is
// rejected.
func DecodeAttendanceJSON(data []byte) ([]attendance.Record, error) {
	items, err := decodeObjects(data, "records", "attendance")
	if err != nil {
		return nil, err
	}
	out := make([]attendance.Record, 0, len(items))
	for i, item := range items {
		r, err := FromLegacyAttendance(item)
		if err != nil {
			return nil, fmt.Errorf("record %d: %w", i, err)
		}
		out = append(out, r)
	}
	return out, nil
}

// =============================================================================
// EMPLOYEES
// =============================================================================

// FromLegacyEmployee converts one decoded JSON object. Dependents default to
// 1 (the employee) when absent.
func FromLegacyEmployee(m map[string]any) (payroll.Employee, error) {
	c := canonicalize(m, employeeKeys)
	return buildEmployee(
		stringOf(c["id"]), stringOf(c["name"]),
		stringOf(c["base_salary"]), stringOf(c["dependents"]), stringOf(c["children"]),
		stringOf(c["join_date"]), stringOf(c["resign_date"]),
		stringOf(c["department"]), stringOf(c["position"]), stringOf(c["company_id"]),
	)
}

func buildEmployee(id, name, salary, dependents, children, join, resign, dept, position, company string) (payroll.Employee, error) {
	emp := payroll.Employee{
		ID:         strings.TrimSpace(id),
		Name:       strings.TrimSpace(name),
		Department: strings.TrimSpace(dept),
		Position:   strings.TrimSpace(position),
		CompanyID:  strings.TrimSpace(company),
		Dependents: 1,
	}

	var err error
	if emp.BaseSalary, err = parseAmount(salary); err != nil {
		return payroll.Employee{}, &generic.ValidationError{Field: "base_salary", EmployeeID: emp.ID, Message: err.Error()}
	}
	if strings.TrimSpace(dependents) != "" {
		if emp.Dependents, err = strconv.Atoi(strings.TrimSpace(dependents)); err != nil {
			return payroll.Employee{}, &generic.ValidationError{Field: "dependents", EmployeeID: emp.ID, Message: err.Error()}
		}
	}
	if strings.TrimSpace(children) != "" {
		if emp.Children, err = strconv.Atoi(strings.TrimSpace(children)); err != nil {
			return payroll.Employee{}, &generic.ValidationError{Field: "children", EmployeeID: emp.ID, Message: err.Error()}
		}
	}
	if emp.JoinDate, err = parseLooseDate(join); err != nil {
		return payroll.Employee{}, &generic.ValidationError{Field: "join_date", EmployeeID: emp.ID, Message: err.Error()}
	}
	if strings.TrimSpace(resign) != "" {
		d, err := parseLooseDate(resign)
		if err != nil {
			return payroll.Employee{}, &generic.ValidationError{Field: "resign_date", EmployeeID: emp.ID, Message: err.Error()}
		}
		emp.ResignDate = &d
	}

	if err := emp.Validate(); err != nil {
		return payroll.Employee{}, err
	}
	return emp, nil
}

// DecodeEmployeesJSON accepts a bare array or {"employees": [...]}.
func DecodeEmployeesJSON(data []byte) ([]payroll.Employee, error) {
	items, err := decodeObjects(data, "employees")
	if err != nil {
		return nil, err
	}
	out := make([]payroll.Employee, 0, len(items))
	for i, item := range items {
		e, err := FromLegacyEmployee(item)
		if err != nil {
			return nil, fmt.Errorf("employee %d: %w", i, err)
		}
		out = append(out, e)
	}
	return out, nil
}

// =============================================================================
// VALUE COERCION
// =============================================================================

func decodeObjects(data []byte, wrappers ...string) ([]map[string]any, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var raw any
	if err := dec.Decode(&raw); err != nil {
		return nil, &generic.ValidationError{Field: "body", Message: "invalid JSON: " + err.Error()}
	}

	if obj, ok := raw.(map[string]any); ok {
		for _, w := range wrappers {
			if inner, ok := obj[w]; ok {
				raw = inner
				break
			}
		}
	}
	list, ok := raw.([]any)
	if !ok {
		return nil, &generic.ValidationError{Field: "body", Message: "expected an array of objects"}
	}

	out := make([]map[string]any, 0, len(list))
	for i, item := range list {
		m, ok := item.(map[string]any)
		if !ok {
			return nil, &generic.ValidationError{Field: "body", Message: fmt.Sprintf("item %d is not an object", i)}
		}
		out = append(out, m)
	}
	return out, nil
}

func stringOf(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case json.Number:
		return x.String()
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case int:
		return strconv.Itoa(x)
	case int64:
		return strconv.FormatInt(x, 10)
	case bool:
		return strconv.FormatBool(x)
	default:
		return fmt.Sprint(x)
	}
}

func isBlank(v any) bool {
	return strings.TrimSpace(stringOf(v)) == ""
}

// parseAmount accepts "3000000", "3,000,000", "3000000.0" and "₩3,000,000".
// Fractional won are rejected.
func parseAmount(s string) (int64, error) {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "₩")
	s = strings.TrimSuffix(s, "원")
	s = strings.ReplaceAll(s, ",", "")
	if s == "" {
		return 0, fmt.Errorf("amount required")
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, fmt.Errorf("invalid amount %q", s)
	}
	if !d.Equal(d.Truncate(0)) {
		return 0, fmt.Errorf("amount %q has a fractional part", s)
	}
	return d.IntPart(), nil
}

// parseLooseDate accepts YYYY-MM-DD, YYYY/MM/DD, YYYY.MM.DD and full
// timestamps, keeping the date part.
func parseLooseDate(s string) (generic.TimePoint, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return generic.TimePoint{}, fmt.Errorf("date required")
	}
	s = strings.NewReplacer("/", "-", ".", "-").Replace(s)
	if len(s) > len(generic.DateLayout) {
		s = s[:len(generic.DateLayout)]
	}
	return generic.ParseDate(s)
}
