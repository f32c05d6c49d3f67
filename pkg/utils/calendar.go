package utils

import "time"

// FirstDayOfMonth returns midnight UTC on the first day of d's month.
func FirstDayOfMonth(d time.Time) time.Time {
	return time.Date(d.Year(), d.Month(), 1, 0, 0, 0, 0, time.UTC)
}

// LastDayOfMonth returns midnight UTC on the last day of d's month.
func LastDayOfMonth(d time.Time) time.Time {
	return FirstDayOfMonth(d).AddDate(0, 1, -1)
}

// AddMonths returns the first day of the month n months after d's month.
func AddMonths(d time.Time, n int) time.Time {
	return FirstDayOfMonth(d).AddDate(0, n, 0)
}

// ParseDate parses a YYYY-MM-DD calendar date as midnight UTC.
func ParseDate(s string) (time.Time, error) {
	return time.ParseInLocation(DATE_LAYOUT, s, time.UTC)
}

// FormatDate renders a calendar date as YYYY-MM-DD.
func FormatDate(d time.Time) string {
	return d.Format(DATE_LAYOUT)
}

// Today returns the current UTC calendar date.
func Today(now time.Time) time.Time {
	now = now.UTC()
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
}
