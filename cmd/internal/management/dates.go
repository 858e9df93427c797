package management

import (
	"strings"
	"time"
)

const dateLayout = "2006-01-02"

// calendarDay returns the YYYY-MM-DD day s falls on in loc. Timestamps are
// converted to loc; bare dates are taken as written.
func calendarDay(s string, loc *time.Location) (string, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", false
	}
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t.In(loc).Format(dateLayout), true
	}
	if len(s) >= len(dateLayout) {
		if _, err := time.Parse(dateLayout, s[:len(dateLayout)]); err == nil {
			return s[:len(dateLayout)], true
		}
	}
	return "", false
}

// spans reports whether day lies in the inclusive range [start, end].
// A missing end is treated as a single-day range.
func spans(start, end, day string, loc *time.Location) bool {
	from, ok := calendarDay(start, loc)
	if !ok {
		return false
	}
	to, ok := calendarDay(end, loc)
	if !ok {
		to = from
	}
	return from <= day && day <= to
}

// PayrollDate is the 25th of the month, moved to the 24th when it falls on a
// Saturday and to the 26th when it falls on a Sunday.
func PayrollDate(year int, month time.Month, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	d := time.Date(year, month, 25, 0, 0, 0, 0, loc)
	switch d.Weekday() {
	case time.Saturday:
		return d.AddDate(0, 0, -1)
	case time.Sunday:
		return d.AddDate(0, 0, 1)
	}
	return d
}

// ParseMonth parses YYYY-MM.
func ParseMonth(s string) (int, time.Month, bool) {
	t, err := time.Parse("2006-01", strings.TrimSpace(s))
	if err != nil {
		return 0, 0, false
	}
	return t.Year(), t.Month(), true
}

func daysIn(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}
