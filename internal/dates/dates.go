package dates

import (
	"fmt"
	"time"
)

// Layout is the canonical date key layout (year-month-day, zero padded).
const Layout = "2006-01-02"

// Format returns the canonical key for the calendar day of t in t's own location.
// Time of day never affects the result.
func Format(t time.Time) string {
	y, m, d := t.Date()
	return fmt.Sprintf("%04d-%02d-%02d", y, int(m), d)
}

// Parse reads a canonical key back into midnight of that day in loc.
func Parse(key string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.Local
	}
	return time.ParseInLocation(Layout, key, loc)
}

// Valid reports whether key is a well-formed canonical date key.
func Valid(key string) bool {
	t, err := Parse(key, time.UTC)
	return err == nil && Format(t) == key
}

// MonthDays holds the grid metrics for one month.
type MonthDays struct {
	FirstDay    int // weekday of the 1st, Sunday = 0
	DaysInMonth int
}

// GetMonthDays returns the grid metrics for a zero-indexed month (January = 0).
func GetMonthDays(year, month int) MonthDays {
	first := time.Date(year, time.Month(month+1), 1, 0, 0, 0, 0, time.UTC)
	// day 0 of the next month is the last day of this one
	last := time.Date(year, time.Month(month+2), 0, 0, 0, 0, 0, time.UTC)
	return MonthDays{
		FirstDay:    int(first.Weekday()),
		DaysInMonth: last.Day(),
	}
}

// Today returns the canonical key for the current day according to now.
func Today(now func() time.Time) string {
	if now == nil {
		now = time.Now
	}
	return Format(now())
}
