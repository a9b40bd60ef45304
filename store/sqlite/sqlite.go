/*
Package sqlite provides a SQLite-backed implementation of the payroll ports.

PURPOSE:
  Implements every persistence port the payroll service needs
  (EmployeeDirectory, AttendanceSource, ResultStore, RunRecorder) plus the
  holiday calendar, using SQLite. The PostgreSQL result store in
  store/postgres follows the same table layout.

INTERFACES IMPLEMENTED:
  payroll.EmployeeDirectory: Employee reference data
  payroll.AttendanceSource:  Append-only attendance records
  payroll.ResultStore:       Payslips keyed by (employee, period start)
  payroll.RunRecorder:       Calculation run bookkeeping
  generic.HolidayCalendar:   Company and global holidays

LOCKED RESULTS:
  SaveResult reads the stored status and writes the new row in one
  transaction. A confirmed or paid row is never overwritten; the caller
  gets generic.ErrResultLocked instead.

KEY TABLES:
  employees:        Employee reference data
  attendance:       Attendance records (append-only)
  holidays:         Company-specific and global holidays
  payroll_results:  One row per employee per nominal period start
  calculation_runs: One row per batch

CONCURRENCY:
  Uses sync.RWMutex for thread-safety. In production with PostgreSQL,
  database-level concurrency control handles this instead.

WAL MODE:
  SQLite is opened with WAL (Write-Ahead Logging) for better concurrency:
  - Multiple readers don't block
  - Single writer at a time
  - Better crash recovery

USAGE:
  store, err := sqlite.New("./data/payroll.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

  svc := &payroll.Service{Employees: store, Attendance: store, Results: store, Runs: store}

MIGRATION:
  Schema is auto-migrated on New(). For production, use a proper
  migration tool (golang-migrate, goose) with versioned migrations.

SEE ALSO:
  - payroll/store.go: Port definitions
  - generic/store/memory.go: In-memory implementation for testing
  - store/postgres: PostgreSQL result store
*/
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/warp/payroll-engine/attendance"
	"github.com/warp/payroll-engine/generic"
	"github.com/warp/payroll-engine/payroll"
)

const dateLayout = "2006-01-02"

// Store implements all payroll ports using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if dbPath == ":memory:" {
		// Every connection to :memory: is a separate database.
		db.SetMaxOpenConns(1)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping reports whether the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	-- Employees (reference data)
	CREATE TABLE IF NOT EXISTS employees (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		base_salary INTEGER NOT NULL,
		dependents INTEGER NOT NULL DEFAULT 1,
		children INTEGER NOT NULL DEFAULT 0,
		join_date TEXT NOT NULL,
		resign_date TEXT,
		department TEXT NOT NULL DEFAULT '',
		position TEXT NOT NULL DEFAULT '',
		company_id TEXT NOT NULL DEFAULT '',
		created_at TEXT NOT NULL
	);

	-- Attendance (append-only)
	CREATE TABLE IF NOT EXISTS attendance (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		employee_id TEXT NOT NULL,
		date TEXT NOT NULL,
		check_in TEXT NOT NULL DEFAULT '',
		check_out TEXT NOT NULL DEFAULT '',
		type TEXT NOT NULL DEFAULT 'normal',
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_attendance_employee_date
		ON attendance(employee_id, date);

	-- Holidays (company-specific and global)
	CREATE TABLE IF NOT EXISTS holidays (
		id TEXT PRIMARY KEY,
		company_id TEXT NOT NULL DEFAULT '',
		date TEXT NOT NULL,
		name TEXT NOT NULL,
		recurring BOOLEAN DEFAULT FALSE,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_holidays_company_date
		ON holidays(company_id, date);
	CREATE UNIQUE INDEX IF NOT EXISTS idx_holidays_unique
		ON holidays(company_id, date, name);

	-- Payroll results (one payslip per employee per period)
	CREATE TABLE IF NOT EXISTS payroll_results (
		employee_id TEXT NOT NULL,
		period_start TEXT NOT NULL,
		period_end TEXT NOT NULL,
		status TEXT NOT NULL,
		gross_pay INTEGER NOT NULL,
		net_pay INTEGER NOT NULL,
		result_json TEXT NOT NULL,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL,
		UNIQUE(employee_id, period_start)
	);

	CREATE INDEX IF NOT EXISTS idx_payroll_results_period
		ON payroll_results(period_start);

	-- Calculation runs
	CREATE TABLE IF NOT EXISTS calculation_runs (
		id TEXT PRIMARY KEY,
		trigger_name TEXT NOT NULL DEFAULT '',
		period_start TEXT NOT NULL,
		period_end TEXT NOT NULL,
		quick TEXT NOT NULL DEFAULT '',
		status TEXT NOT NULL,
		total INTEGER NOT NULL DEFAULT 0,
		succeeded INTEGER NOT NULL DEFAULT 0,
		failed INTEGER NOT NULL DEFAULT 0,
		locked INTEGER NOT NULL DEFAULT 0,
		error TEXT NOT NULL DEFAULT '',
		started_at TEXT NOT NULL,
		completed_at TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_calculation_runs_started
		ON calculation_runs(started_at);
	`

	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// EMPLOYEE DIRECTORY
// =============================================================================

const employeeColumns = `id, name, base_salary, dependents, children, join_date, resign_date,
	department, position, company_id`

// SaveEmployee inserts or updates an employee.
func (s *Store) SaveEmployee(ctx context.Context, emp payroll.Employee) error {
	if err := emp.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO employees (id, name, base_salary, dependents, children, join_date, resign_date,
			department, position, company_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			base_salary = excluded.base_salary,
			dependents = excluded.dependents,
			children = excluded.children,
			join_date = excluded.join_date,
			resign_date = excluded.resign_date,
			department = excluded.department,
			position = excluded.position,
			company_id = excluded.company_id
	`

	var resign *string
	if emp.ResignDate != nil && !emp.ResignDate.IsZero() {
		r := emp.ResignDate.Time.Format(dateLayout)
		resign = &r
	}

	_, err := s.db.ExecContext(ctx, query,
		emp.ID, emp.Name, emp.BaseSalary, emp.Dependents, emp.Children,
		emp.JoinDate.Time.Format(dateLayout), resign,
		emp.Department, emp.Position, emp.CompanyID,
		time.Now().UTC().Format(time.RFC3339),
	)
	return err
}

// GetEmployee retrieves an employee by ID.
func (s *Store) GetEmployee(ctx context.Context, id string) (payroll.Employee, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	emp, err := scanEmployee(s.db.QueryRowContext(ctx,
		"SELECT "+employeeColumns+" FROM employees WHERE id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return payroll.Employee{}, fmt.Errorf("%w: %s", generic.ErrEmployeeNotFound, id)
	}
	return emp, err
}

// ListEmployees returns all employees ordered by ID.
func (s *Store) ListEmployees(ctx context.Context) ([]payroll.Employee, error) {
	return s.FetchEmployees(ctx, nil)
}

// FetchEmployees returns the requested employees ordered by ID. Empty ids
// means all employees; unknown IDs are skipped.
func (s *Store) FetchEmployees(ctx context.Context, ids []string) ([]payroll.Employee, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := "SELECT " + employeeColumns + " FROM employees"
	var args []any
	if len(ids) > 0 {
		query += " WHERE id IN (" + placeholders(len(ids)) + ")"
		for _, id := range ids {
			args = append(args, id)
		}
	}
	query += " ORDER BY id"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var employees []payroll.Employee
	for rows.Next() {
		emp, err := scanEmployee(rows)
		if err != nil {
			return nil, err
		}
		employees = append(employees, emp)
	}
	return employees, rows.Err()
}

// DeleteEmployee removes an employee. Results and attendance are kept.
func (s *Store) DeleteEmployee(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, "DELETE FROM employees WHERE id = ?", id)
	return err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEmployee(row rowScanner) (payroll.Employee, error) {
	var emp payroll.Employee
	var joinDate string
	var resignDate sql.NullString
	if err := row.Scan(
		&emp.ID, &emp.Name, &emp.BaseSalary, &emp.Dependents, &emp.Children,
		&joinDate, &resignDate, &emp.Department, &emp.Position, &emp.CompanyID,
	); err != nil {
		return payroll.Employee{}, err
	}

	var err error
	if emp.JoinDate, err = generic.ParseDate(joinDate); err != nil {
		return payroll.Employee{}, fmt.Errorf("employee %s join_date: %w", emp.ID, err)
	}
	if resignDate.Valid && resignDate.String != "" {
		d, err := generic.ParseDate(resignDate.String)
		if err != nil {
			return payroll.Employee{}, fmt.Errorf("employee %s resign_date: %w", emp.ID, err)
		}
		emp.ResignDate = &d
	}
	return emp, nil
}

// =============================================================================
// ATTENDANCE SOURCE - Append-only
// =============================================================================

// AppendAttendance validates and inserts records in one transaction.
func (s *Store) AppendAttendance(ctx context.Context, records []attendance.Record) error {
	for _, r := range records {
		if err := r.Validate(); err != nil {
			return err
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO attendance (employee_id, date, check_in, check_out, type, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	now := time.Now().UTC().Format(time.RFC3339)
	for _, r := range records {
		typ := r.Type
		if typ == "" {
			typ = attendance.TypeNormal
		}
		if _, err := stmt.ExecContext(ctx,
			r.EmployeeID, r.Date.Time.Format(dateLayout), r.CheckIn, r.CheckOut, string(typ), now,
		); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// FetchAttendance returns records dated in [start, end] in insertion order
// per date. Empty employeeIDs means every employee.
func (s *Store) FetchAttendance(ctx context.Context, employeeIDs []string, start, end generic.TimePoint) ([]attendance.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `
		SELECT employee_id, date, check_in, check_out, type
		FROM attendance
		WHERE date >= ? AND date <= ?
	`
	args := []any{start.Time.Format(dateLayout), end.Time.Format(dateLayout)}
	if len(employeeIDs) > 0 {
		query += " AND employee_id IN (" + placeholders(len(employeeIDs)) + ")"
		for _, id := range employeeIDs {
			args = append(args, id)
		}
	}
	query += " ORDER BY date ASC, id ASC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []attendance.Record
	for rows.Next() {
		var r attendance.Record
		var date, typ string
		if err := rows.Scan(&r.EmployeeID, &date, &r.CheckIn, &r.CheckOut, &typ); err != nil {
			return nil, err
		}
		if r.Date, err = generic.ParseDate(date); err != nil {
			return nil, err
		}
		r.Type = attendance.Type(typ)
		records = append(records, r)
	}
	return records, rows.Err()
}

// =============================================================================
// RESULT STORE
// =============================================================================

// SaveResult upserts a result unless the stored one is confirmed or paid.
func (s *Store) SaveResult(ctx context.Context, r payroll.Result) error {
	payload, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("failed to marshal result: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	employeeID, periodStart := r.Key()
	start := periodStart.Time.Format(dateLayout)

	var current string
	err = tx.QueryRowContext(ctx,
		"SELECT status FROM payroll_results WHERE employee_id = ? AND period_start = ?",
		employeeID, start,
	).Scan(&current)
	switch {
	case errors.Is(err, sql.ErrNoRows):
	case err != nil:
		return err
	case payroll.Status(current).Locked():
		return fmt.Errorf("%w: %s %s", generic.ErrResultLocked, employeeID, start)
	}

	now := time.Now().UTC().Format(time.RFC3339)
	_, err = tx.ExecContext(ctx, `
		INSERT INTO payroll_results (employee_id, period_start, period_end, status,
			gross_pay, net_pay, result_json, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(employee_id, period_start) DO UPDATE SET
			period_end = excluded.period_end,
			status = excluded.status,
			gross_pay = excluded.gross_pay,
			net_pay = excluded.net_pay,
			result_json = excluded.result_json,
			updated_at = excluded.updated_at
	`,
		employeeID, start, r.Period.End.Time.Format(dateLayout), string(r.Status),
		r.GrossPay, r.NetPay, string(payload), now, now,
	)
	if err != nil {
		return err
	}
	return tx.Commit()
}

// GetResult returns one stored result.
func (s *Store) GetResult(ctx context.Context, employeeID string, periodStart generic.TimePoint) (payroll.Result, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return getResult(ctx, s.db, employeeID, periodStart)
}

type querier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func getResult(ctx context.Context, q querier, employeeID string, periodStart generic.TimePoint) (payroll.Result, error) {
	var status, payload string
	err := q.QueryRowContext(ctx,
		"SELECT status, result_json FROM payroll_results WHERE employee_id = ? AND period_start = ?",
		employeeID, periodStart.Time.Format(dateLayout),
	).Scan(&status, &payload)
	if errors.Is(err, sql.ErrNoRows) {
		return payroll.Result{}, fmt.Errorf("%w: %s %s", generic.ErrResultNotFound, employeeID, periodStart)
	}
	if err != nil {
		return payroll.Result{}, err
	}
	return decodeResult(status, payload)
}

// decodeResult trusts the status column over the JSON copy, since
// UpdateStatus only touches the column.
func decodeResult(status, payload string) (payroll.Result, error) {
	var r payroll.Result
	if err := json.Unmarshal([]byte(payload), &r); err != nil {
		return payroll.Result{}, fmt.Errorf("failed to unmarshal result: %w", err)
	}
	r.Status = payroll.Status(status)
	return r, nil
}

// ListResults returns results whose nominal period starts inside the range,
// ordered by period then employee.
func (s *Store) ListResults(ctx context.Context, period generic.Period) ([]payroll.Result, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT status, result_json FROM payroll_results
		WHERE period_start >= ? AND period_start <= ?
		ORDER BY period_start ASC, employee_id ASC
	`, period.Start.Time.Format(dateLayout), period.End.Time.Format(dateLayout))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []payroll.Result
	for rows.Next() {
		var status, payload string
		if err := rows.Scan(&status, &payload); err != nil {
			return nil, err
		}
		r, err := decodeResult(status, payload)
		if err != nil {
			return nil, err
		}
		results = append(results, r)
	}
	return results, rows.Err()
}

// UpdateStatus moves a result one step along the lifecycle.
func (s *Store) UpdateStatus(ctx context.Context, employeeID string, periodStart generic.TimePoint, to payroll.Status) (payroll.Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return payroll.Result{}, err
	}
	defer tx.Rollback()

	r, err := getResult(ctx, tx, employeeID, periodStart)
	if err != nil {
		return payroll.Result{}, err
	}
	if err := payroll.CheckTransition(r.Status, to); err != nil {
		return payroll.Result{}, err
	}
	r.Status = to

	payload, err := json.Marshal(r)
	if err != nil {
		return payroll.Result{}, fmt.Errorf("failed to marshal result: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `
		UPDATE payroll_results SET status = ?, result_json = ?, updated_at = ?
		WHERE employee_id = ? AND period_start = ?
	`, string(to), string(payload), time.Now().UTC().Format(time.RFC3339),
		employeeID, periodStart.Time.Format(dateLayout),
	); err != nil {
		return payroll.Result{}, err
	}
	return r, tx.Commit()
}

// =============================================================================
// HOLIDAY CALENDAR IMPLEMENTATION
// =============================================================================

// SaveHoliday saves a holiday to the database.
func (s *Store) SaveHoliday(ctx context.Context, h generic.Holiday) error {
	if h.ID == "" || h.Date.IsZero() {
		return &generic.ValidationError{Field: "holiday", Message: "id and date are required"}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO holidays (id, company_id, date, name, recurring, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(company_id, date, name) DO UPDATE SET
			recurring = excluded.recurring
	`

	_, err := s.db.ExecContext(ctx, query,
		h.ID,
		h.CompanyID,
		h.Date.Time.Format(dateLayout),
		h.Name,
		h.Recurring,
		time.Now().UTC().Format(time.RFC3339),
	)
	return err
}

// DeleteHoliday deletes a holiday by ID.
func (s *Store) DeleteHoliday(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, "DELETE FROM holidays WHERE id = ?", id)
	return err
}

// GetHolidays returns all holidays for a company in a given year.
// Includes both company-specific and global holidays.
func (s *Store) GetHolidays(companyID string, year int) []generic.Holiday {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `
		SELECT id, company_id, date, name, recurring
		FROM holidays
		WHERE (company_id = ? OR company_id = '')
		  AND (recurring = TRUE OR strftime('%Y', date) = ?)
		ORDER BY strftime('%m-%d', date) ASC
	`

	rows, err := s.db.Query(query, companyID, fmt.Sprintf("%04d", year))
	if err != nil {
		return nil
	}
	defer rows.Close()

	var holidays []generic.Holiday
	for rows.Next() {
		h, err := scanHoliday(rows)
		if err != nil {
			continue
		}
		if h.Recurring {
			h.Date = generic.NewTimePoint(year, h.Date.Month(), h.Date.Day())
		}
		holidays = append(holidays, h)
	}

	return holidays
}

// IsHoliday checks if a date is a holiday for the given company.
func (s *Store) IsHoliday(companyID string, date generic.TimePoint) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `
		SELECT COUNT(*) FROM holidays
		WHERE (company_id = ? OR company_id = '')
		  AND (
			(recurring = FALSE AND date = ?)
			OR (recurring = TRUE AND strftime('%m-%d', date) = ?)
		  )
	`

	var count int
	err := s.db.QueryRow(query, companyID, date.Time.Format(dateLayout), date.Time.Format("01-02")).Scan(&count)
	if err != nil {
		return false
	}
	return count > 0
}

// ListHolidays returns all holidays visible to a company (for admin UI).
func (s *Store) ListHolidays(ctx context.Context, companyID string) ([]generic.Holiday, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, company_id, date, name, recurring
		FROM holidays
		WHERE company_id = ? OR company_id = ''
		ORDER BY date ASC
	`, companyID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var holidays []generic.Holiday
	for rows.Next() {
		h, err := scanHoliday(rows)
		if err != nil {
			return nil, err
		}
		holidays = append(holidays, h)
	}

	return holidays, rows.Err()
}

func scanHoliday(row rowScanner) (generic.Holiday, error) {
	var h generic.Holiday
	var date string
	if err := row.Scan(&h.ID, &h.CompanyID, &date, &h.Name, &h.Recurring); err != nil {
		return generic.Holiday{}, err
	}
	d, err := generic.ParseDate(date)
	if err != nil {
		return generic.Holiday{}, err
	}
	h.Date = d
	return h, nil
}

// =============================================================================
// CALCULATION RUNS
// =============================================================================

// SaveRun inserts or updates a run by ID.
func (s *Store) SaveRun(ctx context.Context, r payroll.Run) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO calculation_runs (id, trigger_name, period_start, period_end, quick, status,
			total, succeeded, failed, locked, error, started_at, completed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			status = excluded.status,
			total = excluded.total,
			succeeded = excluded.succeeded,
			failed = excluded.failed,
			locked = excluded.locked,
			error = excluded.error,
			completed_at = excluded.completed_at
	`

	var completedAt *string
	if r.CompletedAt != nil {
		c := r.CompletedAt.UTC().Format(time.RFC3339Nano)
		completedAt = &c
	}

	_, err := s.db.ExecContext(ctx, query,
		r.ID, r.Trigger,
		r.Period.Start.Time.Format(dateLayout), r.Period.End.Time.Format(dateLayout), string(r.Period.Quick),
		string(r.Status), r.Total, r.Succeeded, r.Failed, r.Locked, r.Error,
		r.StartedAt.UTC().Format(time.RFC3339Nano), completedAt,
	)
	return err
}

// ListRuns returns runs newest first. A non-positive limit returns all.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]payroll.Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 {
		limit = -1
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, trigger_name, period_start, period_end, quick, status,
			total, succeeded, failed, locked, error, started_at, completed_at
		FROM calculation_runs
		ORDER BY started_at DESC, rowid DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []payroll.Run
	for rows.Next() {
		var r payroll.Run
		var start, end, quick, status, startedAt string
		var completedAt sql.NullString
		if err := rows.Scan(
			&r.ID, &r.Trigger, &start, &end, &quick, &status,
			&r.Total, &r.Succeeded, &r.Failed, &r.Locked, &r.Error, &startedAt, &completedAt,
		); err != nil {
			return nil, err
		}

		r.Period.Start, _ = generic.ParseDate(start)
		r.Period.End, _ = generic.ParseDate(end)
		r.Period.Quick = generic.QuickPeriod(quick)
		r.Status = payroll.RunStatus(status)
		r.StartedAt, _ = time.Parse(time.RFC3339Nano, startedAt)
		if completedAt.Valid {
			t, _ := time.Parse(time.RFC3339Nano, completedAt.String)
			r.CompletedAt = &t
		}
		runs = append(runs, r)
	}

	return runs, rows.Err()
}

// =============================================================================
// UTILITIES
// =============================================================================

// Reset clears all data (for testing/demo).
func (s *Store) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tables := []string{"payroll_results", "calculation_runs", "attendance", "holidays", "employees"}
	for _, table := range tables {
		if _, err := s.db.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return err
		}
	}
	return nil
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}
