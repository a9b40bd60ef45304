// Package store provides the in-memory implementation of the payroll ports.
package store

import (
	"context"
	"sort"
	"sync"

	"github.com/warp/payroll-engine/attendance"
	"github.com/warp/payroll-engine/generic"
	"github.com/warp/payroll-engine/payroll"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

// Memory implements payroll.EmployeeDirectory, payroll.AttendanceSource,
// payroll.ResultStore and payroll.RunRecorder.
type Memory struct {
	mu         sync.RWMutex
	employees  map[string]payroll.Employee
	attendance []attendance.Record
	results    map[resultKey]payroll.Result
	runs       []payroll.Run
}

type resultKey struct {
	EmployeeID  string
	PeriodStart string
}

func keyOf(employeeID string, start generic.TimePoint) resultKey {
	return resultKey{EmployeeID: employeeID, PeriodStart: start.String()}
}

func NewMemory() *Memory {
	return &Memory{
		employees: make(map[string]payroll.Employee),
		results:   make(map[resultKey]payroll.Result),
	}
}

// =============================================================================
// EMPLOYEES
// =============================================================================

func (m *Memory) SaveEmployee(_ context.Context, e payroll.Employee) error {
	if err := e.Validate(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.employees[e.ID] = e
	return nil
}

// FetchEmployees returns the requested employees sorted by ID. Unknown IDs
// are skipped.
func (m *Memory) FetchEmployees(_ context.Context, ids []string) ([]payroll.Employee, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []payroll.Employee
	if len(ids) == 0 {
		for _, e := range m.employees {
			out = append(out, e)
		}
	} else {
		for _, id := range ids {
			if e, ok := m.employees[id]; ok {
				out = append(out, e)
			}
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// =============================================================================
// ATTENDANCE - Append-only
// =============================================================================

func (m *Memory) AppendAttendance(_ context.Context, records []attendance.Record) error {
	for _, r := range records {
		if err := r.Validate(); err != nil {
			return err
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.attendance = append(m.attendance, records...)
	return nil
}

func (m *Memory) FetchAttendance(_ context.Context, employeeIDs []string, start, end generic.TimePoint) ([]attendance.Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	wanted := make(map[string]bool, len(employeeIDs))
	for _, id := range employeeIDs {
		wanted[id] = true
	}
	period := generic.Period{Start: start, End: end}

	var out []attendance.Record
	for _, r := range m.attendance {
		if len(wanted) > 0 && !wanted[r.EmployeeID] {
			continue
		}
		if !period.Contains(r.Date) {
			continue
		}
		out = append(out, r)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out, nil
}

// =============================================================================
// RESULTS
// =============================================================================

func (m *Memory) SaveResult(_ context.Context, r payroll.Result) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	k := keyOf(r.Key())
	if existing, ok := m.results[k]; ok && existing.Status.Locked() {
		return generic.ErrResultLocked
	}
	m.results[k] = r
	return nil
}

func (m *Memory) GetResult(_ context.Context, employeeID string, periodStart generic.TimePoint) (payroll.Result, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	r, ok := m.results[keyOf(employeeID, periodStart)]
	if !ok {
		return payroll.Result{}, generic.ErrResultNotFound
	}
	return r, nil
}

// ListResults returns results whose nominal period starts inside the range,
// ordered by period then employee.
func (m *Memory) ListResults(_ context.Context, period generic.Period) ([]payroll.Result, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []payroll.Result
	for _, r := range m.results {
		if period.Contains(r.Period.Start) {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Period.Start.Equal(out[j].Period.Start) {
			return out[i].Period.Start.Before(out[j].Period.Start)
		}
		return out[i].EmployeeID < out[j].EmployeeID
	})
	return out, nil
}

func (m *Memory) UpdateStatus(_ context.Context, employeeID string, periodStart generic.TimePoint, to payroll.Status) (payroll.Result, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	k := keyOf(employeeID, periodStart)
	r, ok := m.results[k]
	if !ok {
		return payroll.Result{}, generic.ErrResultNotFound
	}
	if err := payroll.CheckTransition(r.Status, to); err != nil {
		return payroll.Result{}, err
	}
	r.Status = to
	m.results[k] = r
	return r, nil
}

// =============================================================================
// RUNS
// =============================================================================

// SaveRun inserts or replaces a run by ID.
func (m *Memory) SaveRun(_ context.Context, run payroll.Run) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i := range m.runs {
		if m.runs[i].ID == run.ID {
			m.runs[i] = run
			return nil
		}
	}
	m.runs = append(m.runs, run)
	return nil
}

// ListRuns returns runs newest first.
func (m *Memory) ListRuns(_ context.Context, limit int) ([]payroll.Run, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]payroll.Run, 0, len(m.runs))
	for i := len(m.runs) - 1; i >= 0; i-- {
		out = append(out, m.runs[i])
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}
