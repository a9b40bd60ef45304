package payroll_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/payroll-engine/attendance"
	"github.com/warp/payroll-engine/generic"
	"github.com/warp/payroll-engine/generic/store"
	"github.com/warp/payroll-engine/payroll"
)

func drain(events <-chan payroll.Event) []payroll.Event {
	var out []payroll.Event
	for ev := range events {
		out = append(out, ev)
	}
	return out
}

func batch() payroll.BatchInput {
	bad := shift("E2", "2024-03-05", "09:00:00", "garbage")
	return payroll.BatchInput{
		Employees: []payroll.Employee{
			employee("E1", 3000000),
			employee("E2", 2500000),
			employee("E3", 4000000),
		},
		Attendance: []attendance.Record{midnightShift("E1"), bad, midnightShift("E3")},
		Period:     march(),
	}
}

// =============================================================================
// BATCH STREAM
// =============================================================================

func TestEngine_IsolatesEmployeeFailures(t *testing.T) {
	// GIVEN: three employees, E2 has an unparseable check-out
	engine := payroll.NewEngine(newAssembler(t), 4)

	// WHEN
	events, err := engine.Calculate(context.Background(), batch())
	require.NoError(t, err)
	all := drain(events)

	// THEN: 3 outcome events, 3 progress events, 1 complete
	require.Len(t, all, 7)
	counts := map[payroll.EventType]int{}
	for _, ev := range all {
		counts[ev.Type]++
	}
	assert.Equal(t, 2, counts[payroll.EventEmployeeResult])
	assert.Equal(t, 1, counts[payroll.EventEmployeeError])
	assert.Equal(t, 3, counts[payroll.EventProgress])

	last := all[len(all)-1]
	require.Equal(t, payroll.EventComplete, last.Type)
	require.NotNil(t, last.Summary)
	assert.False(t, last.Summary.Canceled)
	require.Len(t, last.Summary.Results, 2)
	assert.Equal(t, "E1", last.Summary.Results[0].EmployeeID, "input order")
	assert.Equal(t, "E3", last.Summary.Results[1].EmployeeID)
	require.Len(t, last.Summary.Failures, 1)
	assert.Equal(t, "E2", last.Summary.Failures[0].EmployeeID)
	assert.Equal(t, generic.CodeInvalidTimestamp, last.Summary.Failures[0].Code)
}

func TestEngine_ProgressIsMonotonic(t *testing.T) {
	engine := payroll.NewEngine(newAssembler(t), 2)
	events, err := engine.Calculate(context.Background(), batch())
	require.NoError(t, err)

	var seen []int
	for _, ev := range drain(events) {
		if ev.Type == payroll.EventProgress {
			assert.Equal(t, 3, ev.Total)
			seen = append(seen, ev.Completed)
		}
	}
	assert.Equal(t, []int{1, 2, 3}, seen)
}

func TestEngine_MatchesSequentialAssembly(t *testing.T) {
	a := newAssembler(t)
	in := batch()

	summary := payroll.Collect(mustCalculate(t, payroll.NewEngine(a, 8), in))
	require.NotNil(t, summary)

	want, err := a.Assemble(in.Employees[0], in.Attendance, in.Period)
	require.NoError(t, err)
	assert.Equal(t, want, summary.Results[0])
}

func mustCalculate(t *testing.T, e *payroll.Engine, in payroll.BatchInput) <-chan payroll.Event {
	t.Helper()
	events, err := e.Calculate(context.Background(), in)
	require.NoError(t, err)
	return events
}

func TestEngine_CancelledBeforeStart(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	events, err := payroll.NewEngine(newAssembler(t), 1).Calculate(ctx, batch())
	require.NoError(t, err)
	all := drain(events)

	require.Len(t, all, 1)
	assert.Equal(t, payroll.EventComplete, all[0].Type)
	assert.True(t, all[0].Summary.Canceled)
	assert.Empty(t, all[0].Summary.Results)
}

func TestEngine_EmptyBatch(t *testing.T) {
	in := payroll.BatchInput{Period: march()}
	summary := payroll.Collect(mustCalculate(t, payroll.NewEngine(newAssembler(t), 1), in))

	require.NotNil(t, summary)
	assert.Empty(t, summary.Results)
	assert.Equal(t, "2024-03-01", summary.Period.Start.String())
}

// =============================================================================
// SYNCHRONOUS FAILURES
// =============================================================================

func TestEngine_ValidationFailsWholeBatch(t *testing.T) {
	engine := payroll.NewEngine(newAssembler(t), 1)

	dup := batch()
	dup.Employees = append(dup.Employees, employee("E1", 1))
	_, err := engine.Calculate(context.Background(), dup)
	assert.True(t, generic.IsValidation(err))

	badType := batch()
	badType.Attendance[0].Type = "vacation"
	_, err = engine.Calculate(context.Background(), badType)
	assert.True(t, generic.IsValidation(err))

	badPeriod := batch()
	badPeriod.Period.PaymentDay = 40
	_, err = engine.Calculate(context.Background(), badPeriod)
	assert.True(t, generic.IsValidation(err))
}

func TestEngine_MissingTablesIsConfigurationError(t *testing.T) {
	engine := payroll.NewEngine(&payroll.Assembler{}, 1)

	_, err := engine.Calculate(context.Background(), batch())
	assert.True(t, generic.IsConfiguration(err))
}

// =============================================================================
// SERVICE - engine + memory store
// =============================================================================

func newService(t *testing.T) (*payroll.Service, *store.Memory) {
	t.Helper()
	mem := store.NewMemory()
	ctx := context.Background()
	for _, e := range batch().Employees {
		require.NoError(t, mem.SaveEmployee(ctx, e))
	}
	require.NoError(t, mem.AppendAttendance(ctx, []attendance.Record{midnightShift("E1")}))

	fixed := time.Date(2024, time.April, 1, 9, 0, 0, 0, time.UTC)
	return &payroll.Service{
		Engine:     payroll.NewEngine(newAssembler(t), 2),
		Employees:  mem,
		Attendance: mem,
		Results:    mem,
		Runs:       mem,
		Now:        func() time.Time { return fixed },
	}, mem
}

func TestService_PersistsResultsAndRecordsRun(t *testing.T) {
	svc, mem := newService(t)
	ctx := context.Background()

	events, err := svc.Run(ctx, payroll.RunRequest{Period: march(), Trigger: "test"})
	require.NoError(t, err)
	summary := payroll.Collect(events)
	require.NotNil(t, summary)
	assert.Len(t, summary.Results, 3)
	assert.Equal(t, generic.QuickCurrent, summary.Results[0].Period.Quick)

	stored, err := mem.GetResult(ctx, "E1", generic.MustParseDate("2024-03-01"))
	require.NoError(t, err)
	assert.Equal(t, int64(129186), stored.OvertimePay)
	assert.Equal(t, generic.QuickCurrent, stored.Period.Quick)
	assert.False(t, stored.CalculatedAt.IsZero())

	runs, err := mem.ListRuns(ctx, 10)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, payroll.RunCompleted, runs[0].Status)
	assert.Equal(t, 3, runs[0].Succeeded)
	assert.Equal(t, "test", runs[0].Trigger)
}

func TestService_ConfirmedResultIsNotOverwritten(t *testing.T) {
	svc, mem := newService(t)
	ctx := context.Background()
	start := generic.MustParseDate("2024-03-01")

	payroll.Collect(mustRun(t, svc, payroll.RunRequest{EmployeeIDs: []string{"E1"}, Period: march()}))
	_, err := mem.UpdateStatus(ctx, "E1", start, payroll.StatusConfirmed)
	require.NoError(t, err)

	// More attendance arrives after confirmation.
	require.NoError(t, mem.AppendAttendance(ctx, []attendance.Record{
		shift("E1", "2024-03-06", "09:00:00", "2024-03-06 20:00:00"),
	}))

	var locked *payroll.Event
	for _, ev := range drain(mustRun(t, svc, payroll.RunRequest{EmployeeIDs: []string{"E1"}, Period: march()})) {
		if ev.Type == payroll.EventEmployeeResult {
			locked = &ev
		}
	}
	require.NotNil(t, locked)
	assert.True(t, locked.Locked)
	assert.NotEmpty(t, locked.Changes)

	stored, err := mem.GetResult(ctx, "E1", start)
	require.NoError(t, err)
	assert.Equal(t, payroll.StatusConfirmed, stored.Status)
	assert.Equal(t, int64(129186), stored.OvertimePay, "confirmed figures unchanged")

	runs, err := mem.ListRuns(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 1, runs[0].Locked)
}

func TestService_UnknownEmployee(t *testing.T) {
	svc, _ := newService(t)

	_, err := svc.Run(context.Background(), payroll.RunRequest{EmployeeIDs: []string{"nobody"}, Period: march()})
	assert.ErrorIs(t, err, generic.ErrEmployeeNotFound)
}

func mustRun(t *testing.T, svc *payroll.Service, req payroll.RunRequest) <-chan payroll.Event {
	t.Helper()
	events, err := svc.Run(context.Background(), req)
	require.NoError(t, err)
	return events
}
