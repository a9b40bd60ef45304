package attendance

import (
	"fmt"
	"sort"
	"time"

	"github.com/warp/payroll-engine/generic"
)

// Accumulator partitions attendance into hour buckets for one company.
type Accumulator struct {
	Rules     Rules
	Calendar  generic.HolidayCalendar
	CompanyID string
}

func NewAccumulator(calendar generic.HolidayCalendar, companyID string) *Accumulator {
	if calendar == nil {
		calendar = &generic.DefaultHolidayCalendar{}
	}
	return &Accumulator{Rules: DefaultRules(), Calendar: calendar, CompanyID: companyID}
}

// ForCompany returns a copy that resolves holidays for another company.
func (a *Accumulator) ForCompany(companyID string) *Accumulator {
	c := *a
	c.CompanyID = companyID
	return &c
}

type shift struct {
	in  time.Time
	out time.Time
}

type day struct {
	date    generic.TimePoint
	holiday bool
	shifts  []shift
}

// Accumulate sums the buckets for one employee over the period. Records for
// other employees or outside the period are skipped. A record whose
// check-out precedes its check-in fails the whole employee.
func (a *Accumulator) Accumulate(employeeID string, records []Record, period generic.Period) (HourBuckets, error) {
	days, err := a.groupDays(employeeID, records, period)
	if err != nil {
		return HourBuckets{}, err
	}
	var total HourBuckets
	for _, d := range days {
		total = total.Add(a.accumulateDay(d))
	}
	return total, nil
}

// groupDays collects the working shifts of each date, ordered by check-in.
func (a *Accumulator) groupDays(employeeID string, records []Record, period generic.Period) ([]*day, error) {
	byDate := make(map[string]*day)
	for _, r := range records {
		if employeeID != "" && r.EmployeeID != employeeID {
			continue
		}
		if !period.Contains(r.Date) {
			continue
		}
		key := r.Date.String()
		d, ok := byDate[key]
		if !ok {
			d = &day{date: r.Date, holiday: a.isHoliday(r.Date)}
			byDate[key] = d
		}
		if r.Type == TypeHolidayWork {
			d.holiday = true
		}
		if !r.Type.Worked() {
			continue
		}

		in, err := ParseTimestamp(r.CheckIn)
		if err != nil {
			return nil, withEmployee(err, employeeID)
		}
		out, err := ParseTimestamp(r.CheckOut)
		if err != nil {
			return nil, withEmployee(err, employeeID)
		}
		if out.Before(in) {
			return nil, &generic.CalculationError{
				EmployeeID: employeeID,
				Code:       generic.CodeInvalidShift,
				Message:    fmt.Sprintf("check-out %s before check-in %s on %s", r.CheckOut, r.CheckIn, r.Date),
			}
		}
		if out.Equal(in) {
			continue
		}
		d.shifts = append(d.shifts, shift{in: in, out: out})
	}

	days := make([]*day, 0, len(byDate))
	for _, d := range byDate {
		sort.Slice(d.shifts, func(i, j int) bool { return d.shifts[i].in.Before(d.shifts[j].in) })
		days = append(days, d)
	}
	sort.Slice(days, func(i, j int) bool { return days[i].date.Before(days[j].date) })
	return days, nil
}

func (a *Accumulator) isHoliday(date generic.TimePoint) bool {
	return !date.IsWorkdayWithHolidays(a.Calendar, a.CompanyID)
}

// accumulateDay applies the break rule to the day's total raw duration and
// splits the remaining pool.
func (a *Accumulator) accumulateDay(d *day) HourBuckets {
	var raw, night, evening, late time.Duration

	midnight := d.date.At(0, 0)
	regularEnd := midnight.Add(a.Rules.RegularEnd)
	nightStart := midnight.Add(a.Rules.NightStart)
	for _, s := range d.shifts {
		raw += s.out.Sub(s.in)
		night += a.nightOverlap(s)
		if regularEnd.Before(nightStart) {
			evening += overlap(s.in, s.out, regularEnd, nightStart)
			late += overlap(s.in, s.out, nightStart, maxTime)
		} else {
			late += overlap(s.in, s.out, regularEnd, maxTime)
		}
	}

	pool := raw - a.dayBreak(raw)
	if pool <= 0 {
		return HourBuckets{Night: night}
	}

	if d.holiday {
		regular := min(pool, a.Rules.HolidayBaseline)
		return HourBuckets{
			RegularHoliday:  regular,
			OvertimeHoliday: pool - regular,
			Night:           night,
			WorkedDays:      1,
		}
	}

	overtime := min(a.overtimeNet(evening)+a.overtimeNet(late), pool)
	return HourBuckets{
		Regular:    pool - overtime,
		Overtime:   overtime,
		Night:      night,
		WorkedDays: 1,
	}
}

func (a *Accumulator) dayBreak(raw time.Duration) time.Duration {
	switch {
	case raw >= a.Rules.LongShift:
		return a.Rules.LongBreak
	case raw >= a.Rules.ShortShift:
		return a.Rules.ShortBreak
	default:
		return 0
	}
}

// overtimeNet takes OvertimeBreak off every full OvertimeBlock of a
// continuous overtime band.
func (a *Accumulator) overtimeNet(band time.Duration) time.Duration {
	if band <= 0 || a.Rules.OvertimeBlock <= 0 {
		return max(band, 0)
	}
	blocks := band / a.Rules.OvertimeBlock
	return band - time.Duration(blocks)*a.Rules.OvertimeBreak
}

// nightOverlap measures the shift against every night window that can touch
// it, starting with the one opened the evening before check-in.
func (a *Accumulator) nightOverlap(s shift) time.Duration {
	var total time.Duration
	first := generic.DateOf(s.in).AddDays(-1)
	last := generic.DateOf(s.out)
	for d := first; d.BeforeOrEqual(last); d = d.AddDays(1) {
		midnight := d.At(0, 0)
		start := midnight.Add(a.Rules.NightStart)
		end := midnight.AddDate(0, 0, 1).Add(a.Rules.NightEnd)
		total += overlap(s.in, s.out, start, end)
	}
	return total
}

var maxTime = time.Date(9999, 12, 31, 0, 0, 0, 0, time.UTC)

func overlap(aStart, aEnd, bStart, bEnd time.Time) time.Duration {
	start := aStart
	if bStart.After(start) {
		start = bStart
	}
	end := aEnd
	if bEnd.Before(end) {
		end = bEnd
	}
	if !end.After(start) {
		return 0
	}
	return end.Sub(start)
}

func withEmployee(err error, employeeID string) error {
	if ce, ok := err.(*generic.CalculationError); ok {
		return ce.WithEmployee(employeeID)
	}
	return err
}
