package dbtime

import (
	"time"
)

// ISOLayout renders stored instants. Every instant in the API is UTC.
const ISOLayout = "2006-01-02T15:04:05Z"

// Clock is injected wherever "now" matters so callers can pin it in tests.
type Clock func() time.Time

// SystemClock returns the current UTC time at second precision.
func SystemClock() time.Time {
	return time.Now().UTC().Truncate(time.Second)
}

func FormatISO(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(ISOLayout)
}

func FormatISOPtr(t *time.Time) *string {
	if t == nil || t.IsZero() {
		return nil
	}
	s := FormatISO(*t)
	return &s
}

// StartOfDay returns UTC midnight of t's UTC calendar date.
func StartOfDay(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// DayWindow returns [start of the UTC day of t, next UTC midnight).
func DayWindow(t time.Time) (time.Time, time.Time) {
	start := StartOfDay(t)
	return start, start.AddDate(0, 0, 1)
}

// LastNDays returns the start of the window covering the last n UTC calendar
// days including today.
func LastNDays(now time.Time, n int) time.Time {
	if n < 1 {
		n = 1
	}
	return StartOfDay(now).AddDate(0, 0, -(n - 1))
}

// ParseDate reads a YYYY-MM-DD calendar date as UTC midnight.
func ParseDate(s string) (time.Time, error) {
	return time.ParseInLocation("2006-01-02", s, time.UTC)
}
