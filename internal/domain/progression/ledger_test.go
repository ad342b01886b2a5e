package progression

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestThresholdFor(t *testing.T) {
	assert.Equal(t, XP(1000), ThresholdFor(1))
	assert.Equal(t, XP(1100), ThresholdFor(2))
	assert.Equal(t, XP(1210), ThresholdFor(3))

	// Level is clamped into [1, 100].
	assert.Equal(t, ThresholdFor(1), ThresholdFor(0))
	assert.Equal(t, ThresholdFor(1), ThresholdFor(-5))
	assert.Equal(t, ThresholdFor(100), ThresholdFor(101))
}

func TestLevelFromXP_RoundTripAtExactThresholds(t *testing.T) {
	for l := Level(1); l <= MaxLevel; l++ {
		total := TotalXPForLevel(l)
		assert.Equal(t, l, LevelFromXP(total), "level %d at total %d", l, total)

		// One XP short of the threshold stays on the previous level.
		if l > 1 {
			assert.Equal(t, l-1, LevelFromXP(total-1), "level %d just below threshold", l)
		}
	}
}

func TestLevelFromXP_Bounds(t *testing.T) {
	assert.Equal(t, Level(1), LevelFromXP(0))
	assert.Equal(t, Level(1), LevelFromXP(-500))
	assert.Equal(t, Level(100), LevelFromXP(MaxXP))
	assert.Equal(t, Level(100), LevelFromXP(MaxXP+1))
}

func TestProgress_PctAlwaysWithinBounds(t *testing.T) {
	samples := []XP{0, 1, 999, 1000, 1050, 1100, 5000, 123456, 10_000_000, MaxXP}
	for _, xp := range samples {
		level := LevelFromXP(xp)
		info := Progress(xp, level)

		assert.GreaterOrEqual(t, info.ProgressPct, 0.0, "xp=%d", xp)
		assert.LessOrEqual(t, info.ProgressPct, 100.0, "xp=%d", xp)
		assert.GreaterOrEqual(t, int(info.XPToNext), 0, "xp=%d", xp)
	}
}

func TestAddXP_Monotonic(t *testing.T) {
	state := NewXPState()

	multipliers := []float64{1, 1.5, 2, 3}
	for _, m := range multipliers {
		before := state.CurrentXP
		AddXP(&state, 100, m)
		assert.GreaterOrEqual(t, int(state.CurrentXP), int(before), "multiplier %v", m)
	}
}

func TestAddXP_AppliesMultipliers(t *testing.T) {
	state := NewXPState()
	state.XPMultiplier = 2.0

	res := AddXP(&state, 100, 1.5)

	// floor(100 * 1.5 * 2.0) = 300
	assert.Equal(t, XP(300), res.FinalAmount)
	assert.Equal(t, XP(300), state.CurrentXP)
	assert.Equal(t, XP(300), state.TotalXPEarned)
}

func TestAddXP_NegativeAmountSkipsMultipliers(t *testing.T) {
	state := NewXPState()
	AddXP(&state, 500, 1)
	state.XPMultiplier = 3.0

	res := AddXP(&state, -200, 5)

	assert.Equal(t, XP(-200), res.FinalAmount)
	assert.Equal(t, XP(300), state.CurrentXP)
	// Spends never touch the earned total.
	assert.Equal(t, XP(500), state.TotalXPEarned)
}

func TestAddXP_OverdraftClampsToZero(t *testing.T) {
	state := NewXPState()
	AddXP(&state, 100, 1)

	AddXP(&state, -500, 1)

	assert.Equal(t, XP(0), state.CurrentXP)
	assert.Equal(t, Level(1), state.CurrentLevel)
}

func TestAddXP_InvalidMultiplierDefaultsToOne(t *testing.T) {
	state := NewXPState()

	AddXP(&state, 100, math.NaN())
	assert.Equal(t, XP(100), state.CurrentXP)

	AddXP(&state, 100, math.Inf(1))
	assert.Equal(t, XP(200), state.CurrentXP)

	AddXP(&state, 100, -2)
	assert.Equal(t, XP(300), state.CurrentXP)
}

func TestAddXP_RecomputesLevelInvariant(t *testing.T) {
	state := NewXPState()

	// Enough to cross several levels.
	AddXP(&state, 5000, 1)

	require.Equal(t, LevelFromXP(state.CurrentXP), state.CurrentLevel)
	assert.Equal(t, Progress(state.CurrentXP, state.CurrentLevel).XPToNext, state.XPToNextLevel)
}

func TestAddXP_LevelUpDetected(t *testing.T) {
	state := NewXPState()

	res := AddXP(&state, 1100, 1)

	assert.True(t, res.LeveledUp)
	assert.Equal(t, Level(1), res.OldLevel)
	assert.Equal(t, Level(2), res.NewLevel)
}

func TestAddXP_ClampsAtMaxXP(t *testing.T) {
	state := NewXPState()
	state.CurrentXP = MaxXP - 10
	state.CurrentLevel = LevelFromXP(state.CurrentXP)

	AddXP(&state, 100, 1)

	assert.Equal(t, XP(MaxXP), state.CurrentXP)
	assert.Equal(t, Level(100), state.CurrentLevel)
}

func TestSpendXP(t *testing.T) {
	state := NewXPState()
	AddXP(&state, 1000, 1)

	spent := SpendXP(&state, 300)
	assert.Equal(t, XP(300), spent)
	assert.Equal(t, XP(700), state.CurrentXP)

	// Overdraft spends only what is available.
	spent = SpendXP(&state, 10_000)
	assert.Equal(t, XP(700), spent)
	assert.Equal(t, XP(0), state.CurrentXP)

	assert.Equal(t, XP(0), SpendXP(&state, -5))
}

func TestConvertXPToGold(t *testing.T) {
	state := NewXPState()
	AddXP(&state, 255, 1)

	spent, earned := ConvertXPToGold(&state, 255)

	// 255 XP converts to 25 gold, costing exactly 250 XP.
	assert.Equal(t, XP(250), spent)
	assert.Equal(t, Gold(25), earned)
	assert.Equal(t, XP(5), state.CurrentXP)
	assert.Equal(t, Gold(25), state.Gold)

	// Less than one gold's worth converts nothing.
	spent, earned = ConvertXPToGold(&state, 5)
	assert.Equal(t, XP(0), spent)
	assert.Equal(t, Gold(0), earned)
	assert.Equal(t, XP(5), state.CurrentXP)
}

func TestXPStateClone_Independent(t *testing.T) {
	state := NewXPState()
	AddXP(&state, 1000, 1)

	clone := state.Clone()
	AddXP(&clone, 1000, 1)

	assert.Equal(t, XP(1000), state.CurrentXP)
	assert.Equal(t, XP(2000), clone.CurrentXP)
}
