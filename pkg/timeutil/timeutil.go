// Package timeutil provides calendar utilities for the LearnHub progress engine.
// All streak, daily-log and weekly-goal logic operates on "day keys" - plain
// YYYY-MM-DD date strings derived from the device's local wall-clock time. The
// string form sorts lexicographically in chronological order, which the streak
// calculator relies on.
// No external dependencies - uses only standard library.
package timeutil

import (
	"time"
)

// Common date formats.
const (
	// FormatDayKey is the day key format (YYYY-MM-DD). Sortable.
	FormatDayKey = "2006-01-02"
	// FormatTimestamp is the timestamp format used in exported snapshots.
	FormatTimestamp = time.RFC3339Nano
)

// location is the calendar location used for all day-key derivation.
// Defaults to the local timezone of the device the tracker runs on.
var location = time.Local

// SetLocation overrides the calendar location. Intended for app bootstrap
// (config-driven timezone) and tests; not safe to call concurrently with
// day-key derivation.
func SetLocation(loc *time.Location) {
	if loc != nil {
		location = loc
	}
}

// Location returns the calendar location in use.
func Location() *time.Location {
	return location
}

// Now returns the current time in the configured calendar location.
func Now() time.Time {
	return time.Now().In(location)
}

// DayKey converts a timestamp to its calendar day key (YYYY-MM-DD).
func DayKey(t time.Time) string {
	return t.In(location).Format(FormatDayKey)
}

// ParseDayKey parses a day key back into a midnight timestamp in the
// configured location.
func ParseDayKey(key string) (time.Time, error) {
	return time.ParseInLocation(FormatDayKey, key, location)
}

// IsDayKey reports whether s is a well-formed day key.
func IsDayKey(s string) bool {
	_, err := ParseDayKey(s)
	return err == nil
}

// StartOfDay returns the start of the day (00:00:00) in the configured location.
func StartOfDay(t time.Time) time.Time {
	lt := t.In(location)
	return time.Date(lt.Year(), lt.Month(), lt.Day(), 0, 0, 0, 0, location)
}

// StartOfWeek returns the Monday 00:00:00 beginning the calendar week of t.
// Sunday belongs to the week that started six days earlier.
func StartOfWeek(t time.Time) time.Time {
	lt := t.In(location)
	weekday := int(lt.Weekday())
	if weekday == 0 {
		weekday = 7 // Sunday
	}
	daysToSubtract := weekday - 1 // Monday = 1
	return StartOfDay(lt.AddDate(0, 0, -daysToSubtract))
}

// WeekStartKey returns the day key of the Monday beginning the calendar week
// of t. This is the boundary used by weekly-goal tracking.
func WeekStartKey(t time.Time) string {
	return DayKey(StartOfWeek(t))
}

// DaysUntilNextMonday returns how many full calendar days remain until the
// upcoming Monday. Sunday yields 0, Monday yields 6, Saturday yields 1.
func DaysUntilNextMonday(t time.Time) int {
	weekday := int(t.In(location).Weekday())
	return (7 - weekday) % 7
}

// PrevDayKey returns the day key of the calendar day before key.
// Returns an empty string if key is malformed.
func PrevDayKey(key string) string {
	t, err := ParseDayKey(key)
	if err != nil {
		return ""
	}
	return DayKey(t.AddDate(0, 0, -1))
}

// NextDayKey returns the day key of the calendar day after key.
// Returns an empty string if key is malformed.
func NextDayKey(key string) string {
	t, err := ParseDayKey(key)
	if err != nil {
		return ""
	}
	return DayKey(t.AddDate(0, 0, 1))
}

// IsConsecutiveKey reports whether b is exactly one calendar day after a.
func IsConsecutiveKey(a, b string) bool {
	ta, err := ParseDayKey(a)
	if err != nil {
		return false
	}
	tb, err := ParseDayKey(b)
	if err != nil {
		return false
	}
	return DayKey(ta.AddDate(0, 0, 1)) == DayKey(tb)
}

// DaysBetweenKeys returns the number of calendar days from a to b.
// Positive when b is after a, negative when before, 0 for the same day or
// when either key is malformed.
func DaysBetweenKeys(a, b string) int {
	ta, err := ParseDayKey(a)
	if err != nil {
		return 0
	}
	tb, err := ParseDayKey(b)
	if err != nil {
		return 0
	}
	return int(tb.Sub(ta).Hours() / 24)
}

// IsSameDay checks if two times fall on the same calendar day.
func IsSameDay(t1, t2 time.Time) bool {
	return DayKey(t1) == DayKey(t2)
}
