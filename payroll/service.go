package payroll

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/warp/payroll-engine/generic"
)

// Service feeds the engine from the directory and attendance source and
// persists every successful result as it streams past.
type Service struct {
	Engine     *Engine
	Employees  EmployeeDirectory
	Attendance AttendanceSource
	Results    ResultStore
	Runs       RunRecorder
	Now        func() time.Time
}

// RunRequest selects employees (empty = all) and the period.
type RunRequest struct {
	EmployeeIDs []string
	Period      PeriodSpec
	Trigger     string
}

// Run starts a batch. Errors fetching inputs, or batch validation and
// configuration errors, are returned directly. The returned stream has the
// same shape as Engine.Calculate, with Locked and Changes filled in for
// results that would have overwritten a confirmed one.
func (s *Service) Run(ctx context.Context, req RunRequest) (<-chan Event, error) {
	period, err := req.Period.Resolve()
	if err != nil {
		return nil, err
	}
	employees, err := s.Employees.FetchEmployees(ctx, req.EmployeeIDs)
	if err != nil {
		return nil, fmt.Errorf("fetch employees: %w", err)
	}
	if len(req.EmployeeIDs) > 0 && len(employees) < len(req.EmployeeIDs) {
		return nil, fmt.Errorf("%w: requested %d, found %d", generic.ErrEmployeeNotFound, len(req.EmployeeIDs), len(employees))
	}
	ids := make([]string, len(employees))
	for i, e := range employees {
		ids[i] = e.ID
	}
	records, err := s.Attendance.FetchAttendance(ctx, ids, period.Start, period.End)
	if err != nil {
		return nil, fmt.Errorf("fetch attendance: %w", err)
	}

	// The batch always runs on the resolved period so a quick tag cannot
	// drift across midnight between here and the engine.
	spec := req.Period
	if spec.Quick != generic.QuickCustom {
		spec = PeriodSpec{Quick: generic.QuickCustom, Start: period.Start, End: period.End}
	}
	events, err := s.Engine.Calculate(ctx, BatchInput{Employees: employees, Attendance: records, Period: spec})
	if err != nil {
		return nil, err
	}

	run := Run{
		ID:        uuid.NewString(),
		Trigger:   req.Trigger,
		Period:    period,
		Status:    RunRunning,
		Total:     len(employees),
		StartedAt: s.now(),
	}
	s.saveRun(ctx, run)

	out := make(chan Event)
	go func() {
		defer close(out)
		for ev := range events {
			switch ev.Type {
			case EventEmployeeResult:
				ev = s.persist(ctx, ev, period)
				if ev.Locked {
					run.Locked++
				} else if ev.Err == nil {
					run.Succeeded++
				} else {
					run.Failed++
				}
			case EventEmployeeError:
				run.Failed++
			case EventComplete:
				// Results keep the original quick tag.
				ev.Summary.Period = period
				for i := range ev.Summary.Results {
					ev.Summary.Results[i].Period = period
				}
				done := s.now()
				run.CompletedAt = &done
				run.Status = RunCompleted
				if ev.Summary.Canceled {
					run.Status = RunCanceled
				}
				s.saveRun(context.WithoutCancel(ctx), run)
			}
			select {
			case out <- ev:
			case <-ctx.Done():
			}
		}
	}()
	return out, nil
}

// persist stamps and saves a result. A locked result turns the event into a
// report of what the recalculation would have changed.
func (s *Service) persist(ctx context.Context, ev Event, period generic.PayPeriod) Event {
	r := *ev.Result
	r.Period = period
	r.CalculatedAt = s.now()
	ev.Result = &r

	err := s.Results.SaveResult(ctx, r)
	switch {
	case err == nil:
		return ev
	case errors.Is(err, generic.ErrResultLocked):
		ev.Locked = true
		if confirmed, getErr := s.Results.GetResult(ctx, r.EmployeeID, r.Period.Start); getErr == nil {
			ev.Changes = Diff(confirmed, r)
		}
		return ev
	default:
		ev.Type = EventEmployeeError
		ev.Result = nil
		ev.Err = fmt.Errorf("save result for %s: %w", r.EmployeeID, err)
		return ev
	}
}

func (s *Service) saveRun(ctx context.Context, run Run) {
	if s.Runs == nil {
		return
	}
	// Run bookkeeping never fails a batch.
	_ = s.Runs.SaveRun(ctx, run)
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now().UTC()
}
