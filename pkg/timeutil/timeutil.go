// Package timeutil provides timezone-aware calendar-day arithmetic.
// The progression engine keys streaks and daily activity buckets by the
// user's local calendar date, so every day-boundary computation here takes
// an explicit *time.Location. A UTC truncation would shift day boundaries
// for non-UTC users, which is exactly the bug class this package exists
// to prevent.
package timeutil

import (
	"time"
)

// FormatDate is the canonical date-key format (YYYY-MM-DD).
const FormatDate = "2006-01-02"

// DateKey formats a time as a local calendar date string (YYYY-MM-DD).
// This is the key format used for streaks and daily activity buckets.
func DateKey(t time.Time, loc *time.Location) string {
	if loc == nil {
		loc = time.Local
	}
	return t.In(loc).Format(FormatDate)
}

// ParseDateKey parses a YYYY-MM-DD date string in the given location.
func ParseDateKey(value string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.Local
	}
	return time.ParseInLocation(FormatDate, value, loc)
}

// StartOfDay returns local midnight of the day containing t.
func StartOfDay(t time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.Local
	}
	local := t.In(loc)
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
}

// NextMidnight returns local midnight of the day following t.
// Using AddDate rather than adding 24h keeps this correct across DST
// transitions where a local day is 23 or 25 hours long.
func NextMidnight(t time.Time, loc *time.Location) time.Time {
	return StartOfDay(t, loc).AddDate(0, 0, 1)
}

// IsSameDay checks whether two times fall on the same local calendar day.
func IsSameDay(t1, t2 time.Time, loc *time.Location) bool {
	if loc == nil {
		loc = time.Local
	}
	a, b := t1.In(loc), t2.In(loc)
	return a.Year() == b.Year() && a.YearDay() == b.YearDay()
}

// WholeDaysBetween returns the signed number of whole calendar days from
// the day containing "from" to the day containing "to". Time-of-day is
// discarded on both sides, so consecutive dates always differ by exactly 1
// regardless of the hours involved.
func WholeDaysBetween(from, to time.Time, loc *time.Location) int {
	a := StartOfDay(from, loc)
	b := StartOfDay(to, loc)
	// Round covers DST days that are not exactly 24 hours.
	return int(b.Sub(a).Round(24*time.Hour) / (24 * time.Hour))
}

// DaysBetweenKeys returns the signed whole-day difference between two
// YYYY-MM-DD date keys. An error from either parse yields 0; callers that
// need to distinguish malformed keys should parse them explicitly.
func DaysBetweenKeys(fromKey, toKey string, loc *time.Location) int {
	from, err := ParseDateKey(fromKey, loc)
	if err != nil {
		return 0
	}
	to, err := ParseDateKey(toKey, loc)
	if err != nil {
		return 0
	}
	return WholeDaysBetween(from, to, loc)
}

// SecondsUntil returns the whole seconds from now until the given moment,
// never negative. The countdown consumer recomputes this on every tick
// instead of decrementing a stored value, which avoids cumulative drift.
func SecondsUntil(target, now time.Time) int {
	d := target.Sub(now)
	if d <= 0 {
		return 0
	}
	return int(d / time.Second)
}
