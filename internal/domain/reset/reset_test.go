package reset

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNextResetTime(t *testing.T) {
	loc := time.UTC
	now := time.Date(2024, 6, 15, 18, 30, 0, 0, loc)

	assert.Equal(t, time.Date(2024, 6, 16, 0, 0, 0, 0, loc), NextResetTime(now, loc))
}

func TestCountdown_RecomputedNeverNegative(t *testing.T) {
	loc := time.UTC
	next := time.Date(2024, 6, 16, 0, 0, 0, 0, loc)

	assert.Equal(t, 90, Countdown(next, next.Add(-90*time.Second)))
	assert.Equal(t, 0, Countdown(next, next))
	assert.Equal(t, 0, Countdown(next, next.Add(time.Hour)))
}

func TestCountdown_MonotonicWithinSameSecond(t *testing.T) {
	loc := time.UTC
	next := time.Date(2024, 6, 16, 0, 0, 0, 0, loc)
	now := next.Add(-45*time.Second - 200*time.Millisecond)

	first := Countdown(next, now)
	second := Countdown(next, now.Add(500*time.Millisecond))

	// Two computations within the same wall-clock second never increase.
	assert.LessOrEqual(t, second, first)
	assert.GreaterOrEqual(t, second, 0)
}

func TestTick_RecomputesCountdown(t *testing.T) {
	loc := time.UTC
	now := time.Date(2024, 6, 15, 23, 59, 0, 0, loc)
	state := NewState(now, loc)

	Tick(&state, now.Add(30*time.Second), loc)
	assert.Equal(t, 30, state.ResetCountdown)

	Tick(&state, now.Add(50*time.Second), loc)
	assert.Equal(t, 10, state.ResetCountdown)
}

func TestTick_RollsTargetPastMidnight(t *testing.T) {
	loc := time.UTC
	now := time.Date(2024, 6, 15, 23, 59, 50, 0, loc)
	state := NewState(now, loc)
	MarkReset(&state, now, loc)

	afterMidnight := time.Date(2024, 6, 16, 0, 0, 5, 0, loc)
	due := Tick(&state, afterMidnight, loc)

	assert.True(t, due)
	assert.Equal(t, time.Date(2024, 6, 17, 0, 0, 0, 0, loc), state.NextResetTime)
	assert.False(t, state.HasResetToday)
}

func TestMarkReset_FiresExactlyOncePerDate(t *testing.T) {
	loc := time.UTC
	now := time.Date(2024, 6, 16, 0, 0, 1, 0, loc)
	state := NewState(now, loc)

	require.True(t, ShouldReset(state, now, loc))
	assert.True(t, MarkReset(&state, now, loc))

	// A near-simultaneous second timer fire is a no-op.
	assert.False(t, MarkReset(&state, now.Add(200*time.Millisecond), loc))
	assert.False(t, ShouldReset(state, now.Add(time.Minute), loc))
	assert.True(t, state.HasResetToday)
	assert.Equal(t, "2024-06-16", state.LastResetDate)

	// The next day it fires again.
	nextDay := now.AddDate(0, 0, 1)
	assert.True(t, MarkReset(&state, nextDay, loc))
}

func TestCheckRollover(t *testing.T) {
	loc := time.UTC
	day1 := time.Date(2024, 6, 15, 10, 0, 0, 0, loc)
	state := NewState(day1, loc)

	// Same day: no crossing.
	res := CheckRollover(&state, day1.Add(time.Hour), loc)
	assert.False(t, res.Crossed)

	// Next day: crossing detected once, marker updated.
	day2 := day1.AddDate(0, 0, 1)
	res = CheckRollover(&state, day2, loc)
	assert.True(t, res.Crossed)
	assert.Equal(t, "2024-06-15", res.PreviousDate)
	assert.Equal(t, "2024-06-16", res.CurrentDate)

	res = CheckRollover(&state, day2.Add(time.Minute), loc)
	assert.False(t, res.Crossed)
}

func TestMarkReset_ConsumesRolloverMarker(t *testing.T) {
	loc := time.UTC
	day1 := time.Date(2024, 6, 15, 10, 0, 0, 0, loc)
	state := NewState(day1, loc)

	// The reset handles the date change; the 60-second detector that
	// follows it must not see the same crossing again.
	day2 := day1.AddDate(0, 0, 1)
	require.True(t, MarkReset(&state, day2, loc))
	assert.Equal(t, "2024-06-16", state.RolloverMarker)

	res := CheckRollover(&state, day2.Add(time.Minute), loc)
	assert.False(t, res.Crossed)
}

func TestCheckRollover_LocalTimezoneBoundary(t *testing.T) {
	almaty := time.FixedZone("Asia/Almaty", 5*60*60)

	// 20:00 UTC June 15 = 01:00 June 16 in UTC+5.
	beforeUTC := time.Date(2024, 6, 15, 18, 0, 0, 0, time.UTC)
	afterUTC := time.Date(2024, 6, 15, 20, 0, 0, 0, time.UTC)

	state := NewState(beforeUTC, almaty)
	res := CheckRollover(&state, afterUTC, almaty)

	// The UTC date has not changed, but the local one has.
	assert.True(t, res.Crossed)
	assert.Equal(t, "2024-06-16", res.CurrentDate)
}
