package payroll

import (
	"context"
	"time"

	"github.com/warp/payroll-engine/attendance"
	"github.com/warp/payroll-engine/generic"
)

// =============================================================================
// PORTS - What the service needs from the outside
// =============================================================================

// EmployeeDirectory provides employee reference data. Empty ids means all
// employees.
type EmployeeDirectory interface {
	FetchEmployees(ctx context.Context, ids []string) ([]Employee, error)
}

// AttendanceSource provides attendance records for [start, end].
type AttendanceSource interface {
	FetchAttendance(ctx context.Context, employeeIDs []string, start, end generic.TimePoint) ([]attendance.Record, error)
}

// ResultStore persists payslips keyed by employee and nominal period start.
//
// Implementations must:
//   - refuse SaveResult with generic.ErrResultLocked when a confirmed or
//     paid result exists for the key
//   - enforce the status lifecycle in UpdateStatus via CheckTransition
//   - return generic.ErrResultNotFound for missing keys
type ResultStore interface {
	SaveResult(ctx context.Context, r Result) error
	GetResult(ctx context.Context, employeeID string, periodStart generic.TimePoint) (Result, error)
	ListResults(ctx context.Context, period generic.Period) ([]Result, error)
	UpdateStatus(ctx context.Context, employeeID string, periodStart generic.TimePoint, to Status) (Result, error)
}

// =============================================================================
// CALCULATION RUNS
// =============================================================================

type RunStatus string

const (
	RunRunning   RunStatus = "running"
	RunCompleted RunStatus = "completed"
	RunCanceled  RunStatus = "canceled"
	RunFailed    RunStatus = "failed"
)

// Run records one batch: who triggered it, for which period, and how it went.
type Run struct {
	ID          string            `json:"id"`
	Trigger     string            `json:"trigger"`
	Period      generic.PayPeriod `json:"period"`
	Status      RunStatus         `json:"status"`
	Total       int               `json:"total"`
	Succeeded   int               `json:"succeeded"`
	Failed      int               `json:"failed"`
	Locked      int               `json:"locked"`
	Error       string            `json:"error,omitempty"`
	StartedAt   time.Time         `json:"started_at"`
	CompletedAt *time.Time        `json:"completed_at,omitempty"`
}

// RunRecorder is optional; a Service without one does not record runs.
type RunRecorder interface {
	SaveRun(ctx context.Context, run Run) error
}
