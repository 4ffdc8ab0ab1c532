package core

import (
	"strings"
	"time"
)

// dateKeyLayout is the canonical calendar-date format used as a grouping
// key everywhere: transactions, daily balances, budget windows.
const dateKeyLayout = "2006-01-02"

// DateKey truncates a timestamp to its canonical YYYY-MM-DD key.
func DateKey(t time.Time) string {
	return t.Format(dateKeyLayout)
}

// DateOnly strips the time-of-day component, keeping year/month/day in UTC.
func DateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// NormalizeDateKey canonicalizes a persisted date value to YYYY-MM-DD.
// Inputs may arrive as bare date strings or as full timestamps; without
// canonicalization a single day would fragment into multiple buckets.
func NormalizeDateKey(s string) (string, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(dateKeyLayout, s); err == nil {
		return t.Format(dateKeyLayout), nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.Format(dateKeyLayout), nil
	}
	// SQLite DATETIME default format.
	if t, err := time.Parse("2006-01-02 15:04:05", s); err == nil {
		return t.Format(dateKeyLayout), nil
	}
	return "", ErrInvalidDate
}

// ParseDate parses a persisted or user-entered date into a date-only time.
func ParseDate(s string) (time.Time, error) {
	key, err := NormalizeDateKey(s)
	if err != nil {
		return time.Time{}, err
	}
	return time.Parse(dateKeyLayout, key)
}
