package payroll

import (
	"context"
	"errors"
	"sync"

	"github.com/warp/payroll-engine/attendance"
	"github.com/warp/payroll-engine/generic"
	"golang.org/x/sync/errgroup"
)

// =============================================================================
// EVENTS
// =============================================================================

type EventType string

const (
	EventProgress       EventType = "progress"
	EventEmployeeResult EventType = "employee_result"
	EventEmployeeError  EventType = "employee_error"
	EventComplete       EventType = "complete"
)

// Event is one entry of a batch stream. Exactly one of Result, Err or
// Summary is set, depending on Type.
type Event struct {
	Type       EventType
	EmployeeID string

	Completed int
	Total     int

	Result  *Result
	Err     error
	Summary *Summary

	// Set by Service when the result could not be persisted because a
	// confirmed result already exists. Changes compares the two.
	Locked  bool
	Changes []Change
}

// Failure is a per-employee error in a summary.
type Failure struct {
	EmployeeID string
	Code       generic.CalculationCode
	Message    string
}

// Summary is carried by the terminal Complete event.
type Summary struct {
	Period   generic.PayPeriod
	Results  []Result // input order
	Failures []Failure
	Canceled bool
}

func failureOf(employeeID string, err error) Failure {
	f := Failure{EmployeeID: employeeID, Message: err.Error()}
	var calcErr *generic.CalculationError
	if errors.As(err, &calcErr) {
		f.Code = calcErr.Code
	}
	return f
}

// =============================================================================
// ENGINE - Concurrent batch runner
// =============================================================================

type BatchInput struct {
	Employees  []Employee
	Attendance []attendance.Record
	Period     PeriodSpec
}

// Engine runs batches on a bounded worker pool.
type Engine struct {
	assembler *Assembler
	workers   int
}

func NewEngine(assembler *Assembler, workers int) *Engine {
	return &Engine{assembler: assembler, workers: max(workers, 1)}
}

func (e *Engine) Assembler() *Assembler { return e.assembler }

// Calculate validates the batch and starts it. Validation and configuration
// errors are returned here, before any employee runs. Afterwards every
// employee yields one EmployeeResult or EmployeeError event followed by a
// Progress event, and the stream ends with a single Complete event.
//
// Cancelling ctx stops scheduling new employees. Employees already started
// run to completion. The channel is buffered for the whole batch, so an
// abandoned stream never blocks the workers.
func (e *Engine) Calculate(ctx context.Context, in BatchInput) (<-chan Event, error) {
	if err := e.assembler.Check(); err != nil {
		return nil, err
	}
	period, err := in.Period.Resolve()
	if err != nil {
		return nil, err
	}
	if err := ValidateBatch(in); err != nil {
		return nil, err
	}

	byEmployee := make(map[string][]attendance.Record, len(in.Employees))
	for _, r := range in.Attendance {
		byEmployee[r.EmployeeID] = append(byEmployee[r.EmployeeID], r)
	}

	total := len(in.Employees)
	events := make(chan Event, 2*total+1)

	go func() {
		defer close(events)

		results := make([]*Result, total)
		failures := make([]*Failure, total)
		var (
			mu        sync.Mutex
			completed int
			canceled  bool
		)

		g := new(errgroup.Group)
		g.SetLimit(e.workers)
		for i, emp := range in.Employees {
			if ctx.Err() != nil {
				canceled = true
				break
			}
			g.Go(func() error {
				res, err := e.assembler.AssemblePeriod(emp, byEmployee[emp.ID], period)

				mu.Lock()
				defer mu.Unlock()
				completed++
				if err != nil {
					f := failureOf(emp.ID, err)
					failures[i] = &f
					events <- Event{Type: EventEmployeeError, EmployeeID: emp.ID, Err: err}
				} else {
					results[i] = &res
					events <- Event{Type: EventEmployeeResult, EmployeeID: emp.ID, Result: &res}
				}
				events <- Event{Type: EventProgress, EmployeeID: emp.ID, Completed: completed, Total: total}
				return nil
			})
		}
		_ = g.Wait()

		summary := &Summary{Period: period, Canceled: canceled}
		for i := range in.Employees {
			if results[i] != nil {
				summary.Results = append(summary.Results, *results[i])
			}
			if failures[i] != nil {
				summary.Failures = append(summary.Failures, *failures[i])
			}
		}
		events <- Event{Type: EventComplete, Completed: completed, Total: total, Summary: summary}
	}()

	return events, nil
}

// Collect drains a stream and returns its summary.
func Collect(events <-chan Event) *Summary {
	var summary *Summary
	for ev := range events {
		if ev.Type == EventComplete {
			summary = ev.Summary
		}
	}
	return summary
}

// ValidateBatch checks every employee and attendance record before the batch
// starts. Duplicate employee IDs are rejected.
func ValidateBatch(in BatchInput) error {
	seen := make(map[string]struct{}, len(in.Employees))
	for _, emp := range in.Employees {
		if err := emp.Validate(); err != nil {
			return err
		}
		if _, dup := seen[emp.ID]; dup {
			return &generic.ValidationError{Field: "employee_id", EmployeeID: emp.ID, Message: "duplicate employee in batch"}
		}
		seen[emp.ID] = struct{}{}
	}
	for _, r := range in.Attendance {
		if err := r.Validate(); err != nil {
			return err
		}
	}
	return nil
}
