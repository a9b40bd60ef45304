/*
handlers.go - HTTP API handlers for the payroll engine

PURPOSE:
  Exposes the payroll engine via REST API. Handles HTTP request/response,
  JSON and CSV serialization, and delegates to the payroll service and
  the stores.

ENDPOINTS:
  Employees:
    GET    /api/employees                      List all employees
    POST   /api/employees                      Create or update one employee
    POST   /api/employees/import               Bulk import (CSV or JSON)
    GET    /api/employees/{id}                 Get employee details
    GET    /api/employees/{id}/attendance      Records and hour buckets

  Attendance:
    POST   /api/attendance/import              Append records (CSV or JSON)

  Periods:
    GET    /api/pay-periods                    Resolve previous/current/next

  Payroll:
    POST   /api/payroll/calculate              Run a batch, NDJSON event stream
    GET    /api/payroll/results                Results of one period
    GET    /api/payroll/results/export         Payroll register as CSV
    GET    /api/payroll/results/{emp}/{start}  One payslip
    POST   /api/payroll/results/{emp}/{start}/confirm
    POST   /api/payroll/results/{emp}/{start}/pay
    GET    /api/payroll/runs                   Calculation run history

  Holidays:
    GET    /api/holidays                       List holidays
    POST   /api/holidays                       Create holiday
    POST   /api/holidays/defaults              Add Korean public holidays
    DELETE /api/holidays/{id}                  Delete holiday

  Scenarios:
    GET    /api/scenarios                      List demo scenarios
    POST   /api/scenarios/load                 Load a demo scenario

ARCHITECTURE:
  Handler struct holds all dependencies:
  - Store: employees, attendance and the holiday calendar (sqlite)
  - Results: payslips and runs (the same sqlite store, or postgres)
  - Service: the batch runner wired to both
  - Cached pay periods and result listings

REQUEST FLOW:
  1. Parse HTTP request
  2. Validate input (most validation lives in the domain packages)
  3. Call the service or store
  4. Serialize response
  5. Map error kinds to HTTP status

ERROR HANDLING:
  Errors are returned as JSON with a status derived from the error kind:
  - 400: Validation errors, invalid input
  - 404: Employee or result not found
  - 409: Result is locked, or the status transition is not allowed
  - 422: Calculation failed for the requested employee
  - 500: Configuration and internal errors

SECURITY NOTE:
  Currently NO authentication or authorization. All endpoints are public.

SEE ALSO:
  - dto.go: Request/response data structures
  - scenarios.go: Demo scenario loaders
  - server.go: Router setup and middleware
*/
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/warp/payroll-engine/attendance"
	"github.com/warp/payroll-engine/cache"
	"github.com/warp/payroll-engine/generic"
	"github.com/warp/payroll-engine/ingest"
	"github.com/warp/payroll-engine/payroll"
	"github.com/warp/payroll-engine/store/sqlite"
)

const maxImportBytes = 10 << 20

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// ResultBackend is where payslips and runs live. Both store/sqlite and
// store/postgres satisfy it.
type ResultBackend interface {
	payroll.ResultStore
	payroll.RunRecorder
	ListRuns(ctx context.Context, limit int) ([]payroll.Run, error)
	Reset(ctx context.Context) error
	Ping(ctx context.Context) error
}

// Options tune the handler. Zero values fall back to defaults.
type Options struct {
	PaymentDay int
	CacheTTL   time.Duration
}

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Store      *sqlite.Store
	Results    ResultBackend
	Service    *payroll.Service
	Logger     *slog.Logger
	PaymentDay int

	// Now is the clock used for default reference dates; tests replace it.
	Now func() time.Time

	periods *cache.Cache[string, generic.PayPeriod]
	results *cache.Cache[string, []payroll.Result]

	// Track currently loaded scenario
	mu              sync.Mutex
	currentScenario string
}

// NewHandler creates a handler. A nil results backend means results are
// kept in the sqlite store next to the reference data.
func NewHandler(store *sqlite.Store, results ResultBackend, engine *payroll.Engine, logger *slog.Logger, opts Options) *Handler {
	if results == nil {
		results = store
	}
	if logger == nil {
		logger = slog.Default()
	}
	if opts.PaymentDay == 0 {
		opts.PaymentDay = 1
	}
	if opts.CacheTTL == 0 {
		opts.CacheTTL = 5 * time.Minute
	}

	h := &Handler{
		Store:      store,
		Results:    results,
		Logger:     logger,
		PaymentDay: opts.PaymentDay,
		Now:        time.Now,
		periods:    cache.New[string, generic.PayPeriod](opts.CacheTTL),
		results:    cache.New[string, []payroll.Result](opts.CacheTTL),
	}
	h.Service = &payroll.Service{
		Engine:     engine,
		Employees:  store,
		Attendance: store,
		Results:    results,
		Runs:       results,
		Now:        func() time.Time { return h.Now().UTC() },
	}
	return h
}

func (h *Handler) today() generic.TimePoint {
	return generic.DateOf(h.Now())
}

// invalidateResults drops cached listings after results changed.
func (h *Handler) invalidateResults() {
	cache.InvalidatePrefix(h.results, "results:")
}

// =============================================================================
// HEALTH
// =============================================================================

// Health reports whether both stores answer.
// GET /health
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if err := h.Store.Ping(ctx); err != nil {
		writeError(w, http.StatusServiceUnavailable, "Store unavailable", err)
		return
	}
	if err := h.Results.Ping(ctx); err != nil {
		writeError(w, http.StatusServiceUnavailable, "Result store unavailable", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// =============================================================================
// EMPLOYEE HANDLERS
// =============================================================================

// ListEmployees returns all employees.
func (h *Handler) ListEmployees(w http.ResponseWriter, r *http.Request) {
	employees, err := h.Store.ListEmployees(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list employees", err)
		return
	}

	dtos := make([]EmployeeDTO, len(employees))
	for i, e := range employees {
		dtos[i] = toEmployeeDTO(e)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetEmployee returns a single employee.
func (h *Handler) GetEmployee(w http.ResponseWriter, r *http.Request) {
	emp, err := h.Store.GetEmployee(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, errorStatus(err), "Failed to get employee", err)
		return
	}
	writeJSON(w, http.StatusOK, toEmployeeDTO(emp))
}

// CreateEmployee creates or updates one employee. The body may use the
// legacy key aliases accepted by ingest.FromLegacyEmployee.
func (h *Handler) CreateEmployee(w http.ResponseWriter, r *http.Request) {
	var raw map[string]any
	dec := json.NewDecoder(r.Body)
	dec.UseNumber()
	if err := dec.Decode(&raw); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	emp, err := ingest.FromLegacyEmployee(raw)
	if err != nil {
		writeError(w, errorStatus(err), "Invalid employee", err)
		return
	}
	if err := h.Store.SaveEmployee(r.Context(), emp); err != nil {
		writeError(w, errorStatus(err), "Failed to create employee", err)
		return
	}

	writeJSON(w, http.StatusCreated, toEmployeeDTO(emp))
}

// ImportEmployees stores every employee in a CSV sheet or JSON array.
// POST /api/employees/import
func (h *Handler) ImportEmployees(w http.ResponseWriter, r *http.Request) {
	body, format, err := readImport(w, r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Failed to read body", err)
		return
	}

	var employees []payroll.Employee
	if format == "csv" {
		employees, err = ingest.ReadEmployeesCSV(bytes.NewReader(body))
	} else {
		employees, err = ingest.DecodeEmployeesJSON(body)
	}
	if err != nil {
		writeError(w, errorStatus(err), "Invalid employee import", err)
		return
	}

	ctx := r.Context()
	for _, emp := range employees {
		if err := h.Store.SaveEmployee(ctx, emp); err != nil {
			writeError(w, errorStatus(err), fmt.Sprintf("Failed to save employee %s", emp.ID), err)
			return
		}
	}

	h.Logger.InfoContext(ctx, "employees imported", slog.Int("count", len(employees)), slog.String("format", format))
	writeJSON(w, http.StatusCreated, ImportResponse{Status: "imported", Imported: len(employees), Format: format})
}

// GetAttendance returns an employee's records in a range together with the
// hour buckets they accumulate to. The range defaults to the current pay
// period.
// GET /api/employees/{id}/attendance?start=&end=
func (h *Handler) GetAttendance(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	emp, err := h.Store.GetEmployee(ctx, chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, errorStatus(err), "Failed to get employee", err)
		return
	}
	period, err := h.periodFromQuery(r)
	if err != nil {
		writeError(w, errorStatus(err), "Invalid period", err)
		return
	}

	records, err := h.Store.FetchAttendance(ctx, []string{emp.ID}, period.Start, period.End)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get attendance", err)
		return
	}

	dtos := make([]AttendanceDTO, len(records))
	for i, rec := range records {
		dtos[i] = toAttendanceDTO(rec)
	}
	resp := map[string]any{
		"employee_id": emp.ID,
		"period":      toPayPeriodDTO(period),
		"records":     dtos,
	}

	// A malformed record still lets the records be inspected.
	hours, err := attendance.NewAccumulator(h.Store, emp.CompanyID).Accumulate(emp.ID, records, period.Period)
	if err != nil {
		resp["hours_error"] = toErrorDTO(err)
	} else {
		resp["hours"] = hours.View()
	}

	writeJSON(w, http.StatusOK, resp)
}

// =============================================================================
// ATTENDANCE IMPORT
// =============================================================================

// ImportAttendance appends records from a CSV sheet or a legacy JSON body.
// The whole batch is rejected if any record is invalid.
// POST /api/attendance/import
func (h *Handler) ImportAttendance(w http.ResponseWriter, r *http.Request) {
	body, format, err := readImport(w, r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Failed to read body", err)
		return
	}

	var records []attendance.Record
	if format == "csv" {
		records, err = ingest.ReadAttendanceCSV(bytes.NewReader(body))
	} else {
		records, err = ingest.DecodeAttendanceJSON(body)
	}
	if err != nil {
		writeError(w, errorStatus(err), "Invalid attendance import", err)
		return
	}

	ctx := r.Context()
	if err := h.Store.AppendAttendance(ctx, records); err != nil {
		writeError(w, errorStatus(err), "Failed to store attendance", err)
		return
	}

	h.Logger.InfoContext(ctx, "attendance imported", slog.Int("count", len(records)), slog.String("format", format))
	writeJSON(w, http.StatusCreated, ImportResponse{Status: "imported", Imported: len(records), Format: format})
}

// readImport reads a bounded body and tells CSV from JSON by content type,
// or by ?format=csv for clients that cannot set it.
func readImport(w http.ResponseWriter, r *http.Request) ([]byte, string, error) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxImportBytes))
	if err != nil {
		return nil, "", err
	}
	format := "json"
	mt, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mt == "text/csv" || mt == "application/csv" || r.URL.Query().Get("format") == "csv" {
		format = "csv"
	}
	return body, format, nil
}

// =============================================================================
// PAY PERIODS
// =============================================================================

// GetPayPeriods resolves pay periods around a date. With ?quick= only that
// period is returned; otherwise previous, current and next.
// GET /api/pay-periods?payment_day=&date=&quick=
func (h *Handler) GetPayPeriods(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	paymentDay := h.PaymentDay
	if s := q.Get("payment_day"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid payment_day", err)
			return
		}
		paymentDay = n
	}
	ref, err := dateParam(q.Get("date"), "date", h.today())
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid date", err)
		return
	}

	quicks := []generic.QuickPeriod{generic.QuickPrevious, generic.QuickCurrent, generic.QuickNext}
	if s := q.Get("quick"); s != "" {
		quick, err := generic.ParseQuickPeriod(s)
		if err != nil || quick == generic.QuickCustom {
			writeError(w, http.StatusBadRequest, "quick must be previous, current or next", err)
			return
		}
		quicks = []generic.QuickPeriod{quick}
	}

	dtos := make([]PayPeriodDTO, 0, len(quicks))
	for _, quick := range quicks {
		p, err := h.payPeriod(paymentDay, quick, ref)
		if err != nil {
			writeError(w, errorStatus(err), "Failed to resolve pay period", err)
			return
		}
		dtos = append(dtos, toPayPeriodDTO(p))
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"payment_day":    paymentDay,
		"reference_date": ref.String(),
		"periods":        dtos,
	})
}

func (h *Handler) payPeriod(paymentDay int, quick generic.QuickPeriod, ref generic.TimePoint) (generic.PayPeriod, error) {
	key := fmt.Sprintf("%d:%s:%s", paymentDay, quick, ref)
	return h.periods.GetOrLoad(key, func() (generic.PayPeriod, error) {
		return generic.PayPeriodConfig{PaymentDay: paymentDay}.Resolve(quick, ref)
	})
}

// periodFromQuery reads ?start&end, falling back to the current pay period
// for the configured payment day.
func (h *Handler) periodFromQuery(r *http.Request) (generic.PayPeriod, error) {
	q := r.URL.Query()
	if q.Get("start") == "" && q.Get("end") == "" {
		return h.payPeriod(h.PaymentDay, generic.QuickCurrent, h.today())
	}
	start, err := dateParam(q.Get("start"), "start", generic.TimePoint{})
	if err != nil {
		return generic.PayPeriod{}, err
	}
	end, err := dateParam(q.Get("end"), "end", generic.TimePoint{})
	if err != nil {
		return generic.PayPeriod{}, err
	}
	return generic.Custom(start, end)
}

func dateParam(s, field string, fallback generic.TimePoint) (generic.TimePoint, error) {
	if s == "" {
		if fallback.IsZero() {
			return generic.TimePoint{}, &generic.ValidationError{Field: field, Message: "required"}
		}
		return fallback, nil
	}
	tp, err := generic.ParseDate(s)
	if err != nil {
		return generic.TimePoint{}, &generic.ValidationError{Field: field, Message: "use YYYY-MM-DD"}
	}
	return tp, nil
}

// =============================================================================
// PAYROLL CALCULATION
// =============================================================================

// CalculatePayroll runs a batch and streams its events as NDJSON, one
// EventDTO per line, flushed as they happen. Errors that prevent the batch
// from starting are returned as a normal JSON error.
// POST /api/payroll/calculate
func (h *Handler) CalculatePayroll(w http.ResponseWriter, r *http.Request) {
	var req CalculateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	spec, err := h.periodSpec(req)
	if err != nil {
		writeError(w, errorStatus(err), "Invalid period", err)
		return
	}

	ctx := r.Context()
	events, err := h.Service.Run(ctx, payroll.RunRequest{
		EmployeeIDs: req.EmployeeIDs,
		Period:      spec,
		Trigger:     "api",
	})
	if err != nil {
		writeError(w, errorStatus(err), "Failed to start calculation", err)
		return
	}
	defer h.invalidateResults()

	w.Header().Set("Content-Type", "application/x-ndjson")
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(http.StatusOK)

	rc := http.NewResponseController(w)
	enc := json.NewEncoder(w)
	writable := true
	for ev := range events {
		if ev.Type == payroll.EventComplete && ev.Summary != nil {
			h.Logger.InfoContext(ctx, "payroll batch finished",
				slog.String("period", ev.Summary.Period.String()),
				slog.Int("succeeded", len(ev.Summary.Results)),
				slog.Int("failed", len(ev.Summary.Failures)),
				slog.Bool("canceled", ev.Summary.Canceled),
			)
		}
		// Keep draining after a write error so the batch can finish.
		if !writable {
			continue
		}
		if err := enc.Encode(toEventDTO(ev)); err != nil {
			h.Logger.WarnContext(ctx, "event stream write failed", slog.Any("error", err))
			writable = false
			continue
		}
		_ = rc.Flush()
	}
}

func (h *Handler) periodSpec(req CalculateRequest) (payroll.PeriodSpec, error) {
	quick, err := generic.ParseQuickPeriod(req.Quick)
	if err != nil {
		return payroll.PeriodSpec{}, err
	}
	spec := payroll.PeriodSpec{PaymentDay: req.PaymentDay, Quick: quick}
	if spec.PaymentDay == 0 {
		spec.PaymentDay = h.PaymentDay
	}

	if quick == generic.QuickCustom {
		if spec.Start, err = dateParam(req.Start, "start", generic.TimePoint{}); err != nil {
			return payroll.PeriodSpec{}, err
		}
		if spec.End, err = dateParam(req.End, "end", generic.TimePoint{}); err != nil {
			return payroll.PeriodSpec{}, err
		}
		return spec, nil
	}

	spec.Reference, err = dateParam(req.ReferenceDate, "reference_date", h.today())
	return spec, err
}

// =============================================================================
// PAYROLL RESULTS
// =============================================================================

// ListResults returns all results of a period.
// GET /api/payroll/results?start=&end=
func (h *Handler) ListResults(w http.ResponseWriter, r *http.Request) {
	period, err := h.periodFromQuery(r)
	if err != nil {
		writeError(w, errorStatus(err), "Invalid period", err)
		return
	}
	results, err := h.listResults(r.Context(), period.Period)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list results", err)
		return
	}
	writeJSON(w, http.StatusOK, toResultDTOs(results))
}

// ExportResults writes the payroll register of a period as CSV.
// GET /api/payroll/results/export?start=&end=
func (h *Handler) ExportResults(w http.ResponseWriter, r *http.Request) {
	period, err := h.periodFromQuery(r)
	if err != nil {
		writeError(w, errorStatus(err), "Invalid period", err)
		return
	}
	results, err := h.listResults(r.Context(), period.Period)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list results", err)
		return
	}

	var buf bytes.Buffer
	if err := ingest.WriteRegisterCSV(&buf, results); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to write register", err)
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="payroll-%s.csv"`, period.Start))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

func (h *Handler) listResults(ctx context.Context, period generic.Period) ([]payroll.Result, error) {
	key := fmt.Sprintf("results:%s:%s", period.Start, period.End)
	return h.results.GetOrLoad(key, func() ([]payroll.Result, error) {
		return h.Results.ListResults(ctx, period)
	})
}

// GetResult returns one payslip.
// GET /api/payroll/results/{employeeID}/{start}
func (h *Handler) GetResult(w http.ResponseWriter, r *http.Request) {
	employeeID, start, err := resultKey(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid result key", err)
		return
	}
	res, err := h.Results.GetResult(r.Context(), employeeID, start)
	if err != nil {
		writeError(w, errorStatus(err), "Failed to get result", err)
		return
	}
	writeJSON(w, http.StatusOK, toResultDTO(res))
}

// ConfirmResult locks a payslip against recalculation.
// POST /api/payroll/results/{employeeID}/{start}/confirm
func (h *Handler) ConfirmResult(w http.ResponseWriter, r *http.Request) {
	h.updateStatus(w, r, payroll.StatusConfirmed)
}

// PayResult marks a confirmed payslip as paid.
// POST /api/payroll/results/{employeeID}/{start}/pay
func (h *Handler) PayResult(w http.ResponseWriter, r *http.Request) {
	h.updateStatus(w, r, payroll.StatusPaid)
}

func (h *Handler) updateStatus(w http.ResponseWriter, r *http.Request, to payroll.Status) {
	employeeID, start, err := resultKey(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid result key", err)
		return
	}

	ctx := r.Context()
	res, err := h.Results.UpdateStatus(ctx, employeeID, start, to)
	if err != nil {
		writeError(w, errorStatus(err), fmt.Sprintf("Failed to mark result %s", to), err)
		return
	}
	h.invalidateResults()

	h.Logger.InfoContext(ctx, "payroll result status changed",
		slog.String("employee_id", employeeID),
		slog.String("period_start", start.String()),
		slog.String("status", string(to)),
	)
	writeJSON(w, http.StatusOK, toResultDTO(res))
}

func resultKey(r *http.Request) (string, generic.TimePoint, error) {
	employeeID := chi.URLParam(r, "employeeID")
	start, err := dateParam(chi.URLParam(r, "start"), "start", generic.TimePoint{})
	return employeeID, start, err
}

// ListRuns returns recent calculation runs, newest first.
// GET /api/payroll/runs?limit=
func (h *Handler) ListRuns(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if s := r.URL.Query().Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer", err)
			return
		}
		limit = n
	}

	runs, err := h.Results.ListRuns(r.Context(), limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get calculation runs", err)
		return
	}

	dtos := make([]RunDTO, 0, len(runs))
	for _, run := range runs {
		dtos = append(dtos, toRunDTO(run))
	}
	writeJSON(w, http.StatusOK, map[string]any{"runs": dtos})
}

// =============================================================================
// HOLIDAY ENDPOINTS
// =============================================================================

// ListHolidays returns all holidays visible to a company.
// GET /api/holidays?company_id=
func (h *Handler) ListHolidays(w http.ResponseWriter, r *http.Request) {
	holidays, err := h.Store.ListHolidays(r.Context(), r.URL.Query().Get("company_id"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get holidays", err)
		return
	}

	dtos := make([]HolidayDTO, 0, len(holidays))
	for _, hol := range holidays {
		dtos = append(dtos, toHolidayDTO(hol))
	}
	writeJSON(w, http.StatusOK, map[string]any{"holidays": dtos})
}

// CreateHoliday creates a new holiday.
// POST /api/holidays
func (h *Handler) CreateHoliday(w http.ResponseWriter, r *http.Request) {
	var req CreateHolidayRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.Date == "" || req.Name == "" {
		writeError(w, http.StatusBadRequest, "Date and name are required", nil)
		return
	}
	date, err := generic.ParseDate(req.Date)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid date format (use YYYY-MM-DD)", err)
		return
	}

	holiday := generic.Holiday{
		ID:        uuid.NewString(),
		CompanyID: req.CompanyID,
		Date:      date,
		Name:      req.Name,
		Recurring: req.Recurring,
	}
	if err := h.Store.SaveHoliday(r.Context(), holiday); err != nil {
		writeError(w, errorStatus(err), "Failed to create holiday", err)
		return
	}

	writeJSON(w, http.StatusCreated, toHolidayDTO(holiday))
}

// DeleteHoliday deletes a holiday.
// DELETE /api/holidays/{id}
func (h *Handler) DeleteHoliday(w http.ResponseWriter, r *http.Request) {
	if err := h.Store.DeleteHoliday(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to delete holiday", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "deleted"})
}

// koreanPublicHolidays are the fixed-date statutory holidays. Lunar
// holidays move every year and are added per year through CreateHoliday.
var koreanPublicHolidays = []struct {
	month time.Month
	day   int
	name  string
}{
	{time.January, 1, "신정"},
	{time.March, 1, "삼일절"},
	{time.May, 5, "어린이날"},
	{time.June, 6, "현충일"},
	{time.August, 15, "광복절"},
	{time.October, 3, "개천절"},
	{time.October, 9, "한글날"},
	{time.December, 25, "성탄절"},
}

// AddDefaultHolidays adds the fixed-date Korean public holidays as
// recurring global holidays.
// POST /api/holidays/defaults
func (h *Handler) AddDefaultHolidays(w http.ResponseWriter, r *http.Request) {
	n, err := h.addDefaultHolidays(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to add holidays", err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"status": "created", "count": n})
}

func (h *Handler) addDefaultHolidays(ctx context.Context) (int, error) {
	for _, kh := range koreanPublicHolidays {
		err := h.Store.SaveHoliday(ctx, generic.Holiday{
			ID:        fmt.Sprintf("kr-%02d%02d", kh.month, kh.day),
			Date:      generic.NewTimePoint(2000, kh.month, kh.day),
			Name:      kh.name,
			Recurring: true,
		})
		if err != nil {
			return 0, err
		}
	}
	return len(koreanPublicHolidays), nil
}

// =============================================================================
// RESET
// =============================================================================

// ResetDatabase clears all data.
func (h *Handler) ResetDatabase(w http.ResponseWriter, r *http.Request) {
	if err := h.reset(r.Context()); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to reset database", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) reset(ctx context.Context) error {
	if err := h.Store.Reset(ctx); err != nil {
		return err
	}
	if h.Results != ResultBackend(h.Store) {
		if err := h.Results.Reset(ctx); err != nil {
			return err
		}
	}

	// Clear caches
	h.periods.Clear()
	h.results.Clear()
	h.mu.Lock()
	h.currentScenario = ""
	h.mu.Unlock()
	return nil
}

// =============================================================================
// HELPERS
// =============================================================================

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}

// errorStatus maps an error kind to its HTTP status.
func errorStatus(err error) int {
	switch {
	case generic.IsValidation(err):
		return http.StatusBadRequest
	case generic.IsNotFound(err):
		return http.StatusNotFound
	case errors.Is(err, generic.ErrResultLocked), errors.Is(err, generic.ErrInvalidStatusTransition):
		return http.StatusConflict
	case generic.IsCalculation(err):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}
