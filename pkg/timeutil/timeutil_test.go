package timeutil

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDateKey_UsesLocalCalendarDate(t *testing.T) {
	almaty := time.FixedZone("Asia/Almaty", 5*60*60)

	// 22:00 UTC on Jan 1 is already Jan 2 in UTC+5.
	utc := time.Date(2024, 1, 1, 22, 0, 0, 0, time.UTC)

	assert.Equal(t, "2024-01-01", DateKey(utc, time.UTC))
	assert.Equal(t, "2024-01-02", DateKey(utc, almaty))
}

func TestWholeDaysBetween_IgnoresTimeOfDay(t *testing.T) {
	loc := time.UTC

	lateEvening := time.Date(2024, 1, 1, 23, 59, 0, 0, loc)
	earlyMorning := time.Date(2024, 1, 2, 0, 1, 0, 0, loc)

	// Two minutes apart on the wall clock, but different calendar days.
	assert.Equal(t, 1, WholeDaysBetween(lateEvening, earlyMorning, loc))
	assert.Equal(t, -1, WholeDaysBetween(earlyMorning, lateEvening, loc))
	assert.Equal(t, 0, WholeDaysBetween(lateEvening, lateEvening, loc))
}

func TestWholeDaysBetween_AcrossDST(t *testing.T) {
	ny, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)

	// US DST starts 2024-03-10: that local day is 23 hours long.
	before := time.Date(2024, 3, 9, 12, 0, 0, 0, ny)
	after := time.Date(2024, 3, 11, 12, 0, 0, 0, ny)

	assert.Equal(t, 2, WholeDaysBetween(before, after, ny))
}

func TestDaysBetweenKeys(t *testing.T) {
	assert.Equal(t, 1, DaysBetweenKeys("2024-01-01", "2024-01-02", time.UTC))
	assert.Equal(t, 4, DaysBetweenKeys("2024-01-01", "2024-01-05", time.UTC))
	assert.Equal(t, -3, DaysBetweenKeys("2024-01-05", "2024-01-02", time.UTC))
	assert.Equal(t, 0, DaysBetweenKeys("garbage", "2024-01-02", time.UTC))
}

func TestNextMidnight(t *testing.T) {
	loc := time.UTC
	now := time.Date(2024, 6, 15, 18, 30, 45, 0, loc)

	next := NextMidnight(now, loc)
	assert.Equal(t, time.Date(2024, 6, 16, 0, 0, 0, 0, loc), next)

	// Midnight itself rolls to the following day.
	assert.Equal(t,
		time.Date(2024, 6, 16, 0, 0, 0, 0, loc),
		NextMidnight(time.Date(2024, 6, 15, 0, 0, 0, 0, loc), loc),
	)
}

func TestSecondsUntil_NeverNegative(t *testing.T) {
	now := time.Date(2024, 6, 15, 23, 59, 30, 0, time.UTC)
	target := time.Date(2024, 6, 16, 0, 0, 0, 0, time.UTC)

	assert.Equal(t, 30, SecondsUntil(target, now))
	assert.Equal(t, 0, SecondsUntil(target, target))
	assert.Equal(t, 0, SecondsUntil(now, target))
}
