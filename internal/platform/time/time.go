// Package time contains calendar day helpers shared by the release pipeline.
// A day is represented as midnight UTC of its civil date.
package time

import (
	"strings"
	"time"
)

// DayLayout is the YYYY-MM-DD form days are written and parsed in
const DayLayout = time.DateOnly

// Day returns midnight UTC of t's calendar date, read in t's own location
func Day(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// EndOfDay returns the exclusive end of t's calendar day, i.e. the next midnight UTC
func EndOfDay(t time.Time) time.Time {
	return Day(t).AddDate(0, 0, 1)
}

// ParseDay parses a YYYY-MM-DD day
func ParseDay(s string) (time.Time, error) {
	return time.Parse(DayLayout, strings.TrimSpace(s))
}

// FormatDay renders t's calendar date as YYYY-MM-DD
func FormatDay(t time.Time) string { return t.Format(DayLayout) }

// Ptr returns a pointer to t or nil if t is zero
func Ptr(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
