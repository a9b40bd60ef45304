package attendance

import (
	"strings"
	"time"

	"github.com/warp/payroll-engine/generic"
)

const TimestampLayout = "2006-01-02 15:04:05"

var parseLayouts = []string{
	TimestampLayout,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04",
	"2006-01-02T15:04",
	time.RFC3339,
}

// NormalizeCheckout rewrites "YYYY-MM-DD 24:00:00" as the next day at
// 00:00:00. Any other input is returned unchanged.
func NormalizeCheckout(s string) string {
	datePart, clock, ok := splitTimestamp(s)
	if !ok || (clock != "24:00:00" && clock != "24:00") {
		return s
	}
	d, err := time.Parse(generic.DateLayout, datePart)
	if err != nil {
		return s
	}
	return d.AddDate(0, 0, 1).Format(generic.DateLayout) + " 00:00:00"
}

// ParseTimestamp normalizes and parses an attendance timestamp as UTC wall
// clock time.
func ParseTimestamp(s string) (time.Time, error) {
	s = NormalizeCheckout(strings.TrimSpace(s))
	var firstErr error
	for _, layout := range parseLayouts {
		t, err := time.Parse(layout, s)
		if err == nil {
			return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), 0, time.UTC), nil
		}
		if firstErr == nil {
			firstErr = err
		}
	}
	return time.Time{}, &generic.CalculationError{
		Code:    generic.CodeInvalidTimestamp,
		Message: "cannot parse " + s,
		Err:     firstErr,
	}
}

func splitTimestamp(s string) (string, string, bool) {
	s = strings.TrimSpace(s)
	if i := strings.IndexAny(s, " T"); i == len(generic.DateLayout) {
		return s[:i], s[i+1:], true
	}
	return "", "", false
}
