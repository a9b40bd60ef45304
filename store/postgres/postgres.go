/*
Package postgres provides a PostgreSQL implementation of the payroll ports.

PURPOSE:
  Same tables and semantics as store/sqlite, for deployments that share a
  database between several engine instances. Concurrency control is left
  to PostgreSQL: there is no process-level mutex.

LOCKED RESULTS:
  SaveResult is a single upsert whose UPDATE branch only fires while the
  stored status is calculating or unconfirmed. Zero affected rows means the
  row is confirmed or paid, reported as generic.ErrResultLocked.

USAGE:
  store, err := postgres.New(ctx, os.Getenv("DATABASE_URL"))
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

SEE ALSO:
  - store/sqlite: the embedded implementation
  - payroll/store.go: port definitions
*/
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/warp/payroll-engine/attendance"
	"github.com/warp/payroll-engine/generic"
	"github.com/warp/payroll-engine/payroll"
)

// Querier is satisfied by *pgxpool.Pool and pgx.Tx.
type Querier interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, arguments ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type Store struct {
	pool *pgxpool.Pool
}

// New connects, pings and migrates.
func New(ctx context.Context, dsn string) (*Store, error) {
	config, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, &generic.ConfigurationError{Source: "DATABASE_URL", Err: err}
	}

	// Connection pool settings
	config.MaxConns = 25
	config.MinConns = 2

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to open pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	s := &Store{pool: pool}
	if err := s.migrate(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return s, nil
}

func (s *Store) Close() { s.pool.Close() }

func (s *Store) Ping(ctx context.Context) error { return s.pool.Ping(ctx) }

func (s *Store) migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `
	CREATE TABLE IF NOT EXISTS employees (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		base_salary BIGINT NOT NULL,
		dependents INTEGER NOT NULL DEFAULT 1,
		children INTEGER NOT NULL DEFAULT 0,
		join_date DATE NOT NULL,
		resign_date DATE,
		department TEXT NOT NULL DEFAULT '',
		position TEXT NOT NULL DEFAULT '',
		company_id TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	);

	CREATE TABLE IF NOT EXISTS attendance (
		id BIGSERIAL PRIMARY KEY,
		employee_id TEXT NOT NULL,
		date DATE NOT NULL,
		check_in TEXT NOT NULL DEFAULT '',
		check_out TEXT NOT NULL DEFAULT '',
		type TEXT NOT NULL DEFAULT 'normal',
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	);
	CREATE INDEX IF NOT EXISTS idx_attendance_employee_date ON attendance(employee_id, date);

	CREATE TABLE IF NOT EXISTS payroll_results (
		employee_id TEXT NOT NULL,
		period_start DATE NOT NULL,
		period_end DATE NOT NULL,
		status TEXT NOT NULL,
		gross_pay BIGINT NOT NULL,
		net_pay BIGINT NOT NULL,
		result_json JSONB NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		PRIMARY KEY (employee_id, period_start)
	);
	CREATE INDEX IF NOT EXISTS idx_payroll_results_period ON payroll_results(period_start);

	CREATE TABLE IF NOT EXISTS calculation_runs (
		id TEXT PRIMARY KEY,
		trigger_name TEXT NOT NULL DEFAULT '',
		period_start DATE NOT NULL,
		period_end DATE NOT NULL,
		quick TEXT NOT NULL DEFAULT '',
		status TEXT NOT NULL,
		total INTEGER NOT NULL DEFAULT 0,
		succeeded INTEGER NOT NULL DEFAULT 0,
		failed INTEGER NOT NULL DEFAULT 0,
		locked INTEGER NOT NULL DEFAULT 0,
		error TEXT NOT NULL DEFAULT '',
		started_at TIMESTAMPTZ NOT NULL,
		completed_at TIMESTAMPTZ
	);
	`)
	return err
}

// =============================================================================
// EMPLOYEE DIRECTORY
// =============================================================================

func (s *Store) SaveEmployee(ctx context.Context, emp payroll.Employee) error {
	if err := emp.Validate(); err != nil {
		return err
	}
	var resign *time.Time
	if emp.ResignDate != nil && !emp.ResignDate.IsZero() {
		resign = &emp.ResignDate.Time
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO employees (id, name, base_salary, dependents, children, join_date, resign_date,
			department, position, company_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			base_salary = EXCLUDED.base_salary,
			dependents = EXCLUDED.dependents,
			children = EXCLUDED.children,
			join_date = EXCLUDED.join_date,
			resign_date = EXCLUDED.resign_date,
			department = EXCLUDED.department,
			position = EXCLUDED.position,
			company_id = EXCLUDED.company_id
	`, emp.ID, emp.Name, emp.BaseSalary, emp.Dependents, emp.Children, emp.JoinDate.Time, resign,
		emp.Department, emp.Position, emp.CompanyID)
	return err
}

// FetchEmployees returns the requested employees ordered by ID. Empty ids
// means all employees.
func (s *Store) FetchEmployees(ctx context.Context, ids []string) ([]payroll.Employee, error) {
	query := `
		SELECT id, name, base_salary, dependents, children, join_date, resign_date,
			department, position, company_id
		FROM employees
		WHERE cardinality($1::text[]) = 0 OR id = ANY($1)
		ORDER BY id
	`
	if ids == nil {
		ids = []string{}
	}
	rows, err := s.pool.Query(ctx, query, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []payroll.Employee
	for rows.Next() {
		var emp payroll.Employee
		var join time.Time
		var resign *time.Time
		if err := rows.Scan(&emp.ID, &emp.Name, &emp.BaseSalary, &emp.Dependents, &emp.Children,
			&join, &resign, &emp.Department, &emp.Position, &emp.CompanyID); err != nil {
			return nil, err
		}
		emp.JoinDate = generic.DateOf(join)
		if resign != nil {
			d := generic.DateOf(*resign)
			emp.ResignDate = &d
		}
		out = append(out, emp)
	}
	return out, rows.Err()
}

// =============================================================================
// ATTENDANCE SOURCE - Append-only
// =============================================================================

func (s *Store) AppendAttendance(ctx context.Context, records []attendance.Record) error {
	for _, r := range records {
		if err := r.Validate(); err != nil {
			return err
		}
	}

	batch := &pgx.Batch{}
	for _, r := range records {
		typ := r.Type
		if typ == "" {
			typ = attendance.TypeNormal
		}
		batch.Queue(`
			INSERT INTO attendance (employee_id, date, check_in, check_out, type)
			VALUES ($1, $2, $3, $4, $5)
		`, r.EmployeeID, r.Date.Time, r.CheckIn, r.CheckOut, string(typ))
	}

	return pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		return tx.SendBatch(ctx, batch).Close()
	})
}

func (s *Store) FetchAttendance(ctx context.Context, employeeIDs []string, start, end generic.TimePoint) ([]attendance.Record, error) {
	if employeeIDs == nil {
		employeeIDs = []string{}
	}
	rows, err := s.pool.Query(ctx, `
		SELECT employee_id, date, check_in, check_out, type
		FROM attendance
		WHERE date BETWEEN $1 AND $2
		  AND (cardinality($3::text[]) = 0 OR employee_id = ANY($3))
		ORDER BY date, id
	`, start.Time, end.Time, employeeIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []attendance.Record
	for rows.Next() {
		var r attendance.Record
		var date time.Time
		var typ string
		if err := rows.Scan(&r.EmployeeID, &date, &r.CheckIn, &r.CheckOut, &typ); err != nil {
			return nil, err
		}
		r.Date = generic.DateOf(date)
		r.Type = attendance.Type(typ)
		out = append(out, r)
	}
	return out, rows.Err()
}

// =============================================================================
// RESULT STORE
// =============================================================================

func (s *Store) SaveResult(ctx context.Context, r payroll.Result) error {
	payload, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("failed to marshal result: %w", err)
	}
	employeeID, start := r.Key()

	tag, err := s.pool.Exec(ctx, `
		INSERT INTO payroll_results (employee_id, period_start, period_end, status, gross_pay, net_pay, result_json)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (employee_id, period_start) DO UPDATE SET
			period_end = EXCLUDED.period_end,
			status = EXCLUDED.status,
			gross_pay = EXCLUDED.gross_pay,
			net_pay = EXCLUDED.net_pay,
			result_json = EXCLUDED.result_json,
			updated_at = now()
		WHERE payroll_results.status NOT IN ('confirmed', 'paid')
	`, employeeID, start.Time, r.Period.End.Time, string(r.Status), r.GrossPay, r.NetPay, payload)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s %s", generic.ErrResultLocked, employeeID, start)
	}
	return nil
}

func (s *Store) GetResult(ctx context.Context, employeeID string, periodStart generic.TimePoint) (payroll.Result, error) {
	return getResult(ctx, s.pool, employeeID, periodStart, "")
}

func getResult(ctx context.Context, q Querier, employeeID string, periodStart generic.TimePoint, suffix string) (payroll.Result, error) {
	var status string
	var payload []byte
	err := q.QueryRow(ctx, `
		SELECT status, result_json FROM payroll_results
		WHERE employee_id = $1 AND period_start = $2
	`+suffix, employeeID, periodStart.Time).Scan(&status, &payload)
	if errors.Is(err, pgx.ErrNoRows) {
		return payroll.Result{}, fmt.Errorf("%w: %s %s", generic.ErrResultNotFound, employeeID, periodStart)
	}
	if err != nil {
		return payroll.Result{}, err
	}
	return decodeResult(status, payload)
}

func decodeResult(status string, payload []byte) (payroll.Result, error) {
	var r payroll.Result
	if err := json.Unmarshal(payload, &r); err != nil {
		return payroll.Result{}, fmt.Errorf("failed to unmarshal result: %w", err)
	}
	r.Status = payroll.Status(status)
	return r, nil
}

func (s *Store) ListResults(ctx context.Context, period generic.Period) ([]payroll.Result, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT status, result_json FROM payroll_results
		WHERE period_start BETWEEN $1 AND $2
		ORDER BY period_start, employee_id
	`, period.Start.Time, period.End.Time)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []payroll.Result
	for rows.Next() {
		var status string
		var payload []byte
		if err := rows.Scan(&status, &payload); err != nil {
			return nil, err
		}
		r, err := decodeResult(status, payload)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// UpdateStatus locks the row for the duration of the transition check.
func (s *Store) UpdateStatus(ctx context.Context, employeeID string, periodStart generic.TimePoint, to payroll.Status) (payroll.Result, error) {
	var out payroll.Result
	err := pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		r, err := getResult(ctx, tx, employeeID, periodStart, " FOR UPDATE")
		if err != nil {
			return err
		}
		if err := payroll.CheckTransition(r.Status, to); err != nil {
			return err
		}
		r.Status = to
		payload, err := json.Marshal(r)
		if err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, `
			UPDATE payroll_results SET status = $1, result_json = $2, updated_at = now()
			WHERE employee_id = $3 AND period_start = $4
		`, string(to), payload, employeeID, periodStart.Time); err != nil {
			return err
		}
		out = r
		return nil
	})
	return out, err
}

// =============================================================================
// CALCULATION RUNS
// =============================================================================

func (s *Store) SaveRun(ctx context.Context, r payroll.Run) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO calculation_runs (id, trigger_name, period_start, period_end, quick, status,
			total, succeeded, failed, locked, error, started_at, completed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		ON CONFLICT (id) DO UPDATE SET
			status = EXCLUDED.status,
			total = EXCLUDED.total,
			succeeded = EXCLUDED.succeeded,
			failed = EXCLUDED.failed,
			locked = EXCLUDED.locked,
			error = EXCLUDED.error,
			completed_at = EXCLUDED.completed_at
	`, r.ID, r.Trigger, r.Period.Start.Time, r.Period.End.Time, string(r.Period.Quick), string(r.Status),
		r.Total, r.Succeeded, r.Failed, r.Locked, r.Error, r.StartedAt, r.CompletedAt)
	return err
}

// ListRuns returns runs newest first. A non-positive limit returns all.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]payroll.Run, error) {
	var lim *int
	if limit > 0 {
		lim = &limit
	}
	rows, err := s.pool.Query(ctx, `
		SELECT id, trigger_name, period_start, period_end, quick, status,
			total, succeeded, failed, locked, error, started_at, completed_at
		FROM calculation_runs
		ORDER BY started_at DESC
		LIMIT $1
	`, lim)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []payroll.Run
	for rows.Next() {
		var r payroll.Run
		var start, end time.Time
		var quick, status string
		if err := rows.Scan(&r.ID, &r.Trigger, &start, &end, &quick, &status,
			&r.Total, &r.Succeeded, &r.Failed, &r.Locked, &r.Error, &r.StartedAt, &r.CompletedAt); err != nil {
			return nil, err
		}
		r.Period = generic.PayPeriod{
			Period: generic.Period{Start: generic.DateOf(start), End: generic.DateOf(end)},
			Quick:  generic.QuickPeriod(quick),
		}
		r.Status = payroll.RunStatus(status)
		out = append(out, r)
	}
	return out, rows.Err()
}

// Reset clears all data (for tests).
func (s *Store) Reset(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, "TRUNCATE payroll_results, calculation_runs, attendance, employees")
	return err
}
