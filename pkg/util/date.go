package util

import (
	"strconv"
	"time"
)

// ParseDate tries "2006-01-02", RFC3339, and unix seconds. Returns the day
// truncated to UTC midnight and true if any worked.
func ParseDate(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return t, true
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return TruncateDay(t), true
	}
	if ts, err := strconv.ParseInt(s, 10, 64); err == nil && ts > 0 {
		return TruncateDay(time.Unix(ts, 0)), true
	}
	return time.Time{}, false
}

// ParseDateDefault parses a date or returns default if empty/invalid.
func ParseDateDefault(s string, def time.Time) time.Time {
	if t, ok := ParseDate(s); ok {
		return t
	}
	return def
}

// TruncateDay rounds a time down to UTC midnight.
func TruncateDay(t time.Time) time.Time {
	return t.UTC().Truncate(24 * time.Hour)
}

// FormatDate renders a day as "2006-01-02".
func FormatDate(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}

// IsTradingDay reports whether the date is a weekday. Exchange holidays are
// not modeled; a day without bars simply evaluates to an empty universe.
func IsTradingDay(t time.Time) bool {
	wd := t.UTC().Weekday()
	return wd != time.Saturday && wd != time.Sunday
}

// DaysBetween counts calendar days in [from, to] inclusive.
func DaysBetween(from, to time.Time) int {
	from, to = TruncateDay(from), TruncateDay(to)
	if to.Before(from) {
		return 0
	}
	return int(to.Sub(from).Hours()/24) + 1
}
