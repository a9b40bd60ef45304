/*
scheduler.go - Automated payroll recalculation

PURPOSE:
  Periodically recalculates the current pay period for every employee so
  draft payslips follow late attendance corrections without anyone pressing
  a button.

DESIGN:
  - Runs a background goroutine with configurable check interval
  - Goes through payroll.Service like the API, so every run is recorded
    with trigger "scheduler"
  - Confirmed and paid results are never overwritten; the service reports
    them as locked and the scheduler only counts them

CONFIGURATION:
  - CheckInterval: How often to run (default: 1 hour)
  - Enabled: Whether scheduler is active (default: true)

USAGE:
  scheduler := NewRecalculationScheduler(handler)
  scheduler.Start()
  // ... later
  scheduler.Stop()

SEE ALSO:
  - handlers.go: CalculatePayroll endpoint (manual calculation)
  - payroll/service.go: Run
*/
package api

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/warp/payroll-engine/generic"
	"github.com/warp/payroll-engine/payroll"
)

// RecalculationScheduler recalculates the current pay period on a ticker.
type RecalculationScheduler struct {
	Handler       *Handler
	CheckInterval time.Duration
	Enabled       bool

	ticker *time.Ticker
	stop   chan struct{}
	wg     sync.WaitGroup
	mu     sync.Mutex

	// lastRun has its own lock: Stop holds mu while waiting for a pass.
	lastMu  sync.Mutex
	lastRun time.Time
}

// RecalculationReport summarizes one scheduled pass.
type RecalculationReport struct {
	Period    generic.PayPeriod
	Succeeded int
	Failed    int
	Locked    int
}

// NewRecalculationScheduler creates a new scheduler.
func NewRecalculationScheduler(handler *Handler) *RecalculationScheduler {
	return &RecalculationScheduler{
		Handler:       handler,
		CheckInterval: 1 * time.Hour,
		Enabled:       true,
		stop:          make(chan struct{}),
	}
}

// Start begins the scheduler.
func (rs *RecalculationScheduler) Start() {
	rs.mu.Lock()
	defer rs.mu.Unlock()

	logger := rs.Handler.Logger
	if !rs.Enabled {
		logger.Info("scheduler disabled, not starting")
		return
	}

	rs.ticker = time.NewTicker(rs.CheckInterval)
	rs.wg.Add(1)

	go rs.run()

	logger.Info("scheduler started", slog.Duration("interval", rs.CheckInterval))
}

// Stop stops the scheduler and waits for a pass in progress.
func (rs *RecalculationScheduler) Stop() {
	rs.mu.Lock()
	defer rs.mu.Unlock()

	if rs.ticker != nil {
		rs.ticker.Stop()
		close(rs.stop)
		rs.wg.Wait()
		rs.ticker = nil
		rs.Handler.Logger.Info("scheduler stopped")
	}
}

func (rs *RecalculationScheduler) run() {
	defer rs.wg.Done()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		<-rs.stop
		cancel()
	}()

	// Run immediately on start
	rs.checkAndProcess(ctx)

	for {
		select {
		case <-rs.ticker.C:
			rs.checkAndProcess(ctx)
		case <-rs.stop:
			return
		}
	}
}

func (rs *RecalculationScheduler) checkAndProcess(ctx context.Context) {
	logger := rs.Handler.Logger
	report, err := rs.RunNow(ctx)
	if err != nil {
		logger.Error("scheduled recalculation failed", slog.Any("error", err))
		return
	}
	logger.Info("scheduled recalculation completed",
		slog.String("period", report.Period.String()),
		slog.Int("succeeded", report.Succeeded),
		slog.Int("failed", report.Failed),
		slog.Int("locked", report.Locked),
	)
}

// RunNow recalculates the current period for all employees and waits for
// the batch to finish.
func (rs *RecalculationScheduler) RunNow(ctx context.Context) (RecalculationReport, error) {
	h := rs.Handler
	events, err := h.Service.Run(ctx, payroll.RunRequest{
		Period: payroll.PeriodSpec{
			PaymentDay: h.PaymentDay,
			Quick:      generic.QuickCurrent,
			Reference:  h.today(),
		},
		Trigger: "scheduler",
	})
	if err != nil {
		return RecalculationReport{}, err
	}
	defer h.invalidateResults()

	var report RecalculationReport
	for ev := range events {
		switch ev.Type {
		case payroll.EventEmployeeResult:
			if ev.Locked {
				report.Locked++
			} else {
				report.Succeeded++
			}
		case payroll.EventEmployeeError:
			report.Failed++
		case payroll.EventComplete:
			report.Period = ev.Summary.Period
		}
	}

	rs.lastMu.Lock()
	rs.lastRun = h.Now()
	rs.lastMu.Unlock()
	return report, nil
}

// GetNextRunTime returns when the next pass is due, or the zero time when
// the scheduler is not running.
func (rs *RecalculationScheduler) GetNextRunTime() time.Time {
	rs.mu.Lock()
	running := rs.ticker != nil
	rs.mu.Unlock()

	rs.lastMu.Lock()
	defer rs.lastMu.Unlock()
	if !running || rs.lastRun.IsZero() {
		return time.Time{}
	}
	return rs.lastRun.Add(rs.CheckInterval)
}
