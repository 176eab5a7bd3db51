package util

import (
	"sync"
	"time"
)

const (
	// DateFormat is the standard date format for menu dates.
	DateFormat = "2006-01-02"

	// DateTimeFormat is the display format for serving timestamps.
	DateTimeFormat = "2006-01-02 15:04:05"
)

// Clock supplies the current time. Services take one so tests can pin "now".
type Clock interface {
	Now() time.Time
}

// SystemClock reads the wall clock in UTC.
type SystemClock struct{}

// Now returns the current UTC time.
func (SystemClock) Now() time.Time {
	return time.Now().UTC()
}

// FixedClock returns a settable instant.
type FixedClock struct {
	mu  sync.Mutex
	now time.Time
}

// NewFixedClock creates a clock frozen at t.
func NewFixedClock(t time.Time) *FixedClock {
	return &FixedClock{now: t}
}

// Now returns the frozen instant.
func (c *FixedClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Advance moves the clock forward by d.
func (c *FixedClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// Set moves the clock to t.
func (c *FixedClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

// StartOfDay returns midnight UTC of t's calendar date.
func StartOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// DaysInMonth returns the number of days in t's month.
func DaysInMonth(t time.Time) int {
	return time.Date(t.Year(), t.Month()+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// DaysRemainingInMonth counts the days from t through the end of its month, t included.
func DaysRemainingInMonth(t time.Time) int {
	return DaysInMonth(t) - t.Day() + 1
}

// DateRange returns numDays consecutive calendar dates starting at start.
func DateRange(start time.Time, numDays int) []time.Time {
	if numDays <= 0 {
		return nil
	}
	day := StartOfDay(start)
	dates := make([]time.Time, numDays)
	for i := range dates {
		dates[i] = day.AddDate(0, 0, i)
	}
	return dates
}

// FormatDate formats a date using the standard format.
func FormatDate(t time.Time) string {
	return t.Format(DateFormat)
}

// FormatDateTime formats a datetime using the standard format.
func FormatDateTime(t time.Time) string {
	return t.Format(DateTimeFormat)
}
