package notification

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_Validation(t *testing.T) {
	n, err := New(TypeLevelUp, "Title", "Message", PriorityNormal)
	require.NoError(t, err)
	assert.True(t, n.ID.IsValid())
	assert.Equal(t, TypeLevelUp, n.Type)
	assert.False(t, n.CreatedAt.IsZero())

	_, err = New(Type("bogus"), "Title", "Message", PriorityNormal)
	assert.ErrorIs(t, err, ErrInvalidType)

	_, err = New(TypeLevelUp, "", "Message", PriorityNormal)
	assert.ErrorIs(t, err, ErrEmptyTitle)
}

func TestNew_InvalidPriorityFallsBackToNormal(t *testing.T) {
	n, err := New(TypeDailyReset, "Title", "", Priority("urgent"))
	require.NoError(t, err)
	assert.Equal(t, PriorityNormal, n.Priority)
}

func TestIsStreakMilestone(t *testing.T) {
	assert.True(t, IsStreakMilestone(7))
	assert.True(t, IsStreakMilestone(30))
	assert.True(t, IsStreakMilestone(100))
	assert.False(t, IsStreakMilestone(6))
	assert.False(t, IsStreakMilestone(8))
	assert.False(t, IsStreakMilestone(0))
}

func TestBuilders_Metadata(t *testing.T) {
	lvl, err := NewLevelUp(12)
	require.NoError(t, err)
	assert.Equal(t, 12, lvl.Metadata["level"])
	assert.Contains(t, lvl.Title, "12")

	pen, err := NewPenaltyApplied(500, 14, true)
	require.NoError(t, err)
	assert.Equal(t, PriorityHigh, pen.Priority)
	assert.Equal(t, 500, pen.Metadata["xp_penalty"])
	assert.Equal(t, true, pen.Metadata["streak_reset"])
	assert.Contains(t, pen.Message, "Серия сброшена")

	broken, err := NewStreakBroken(21, 4)
	require.NoError(t, err)
	assert.Equal(t, 21, broken.Metadata["previous_streak"])
	assert.Equal(t, 4, broken.Metadata["days_inactive"])
}

func TestNotificationIDsAreUnique(t *testing.T) {
	a, _ := NewDailyReset("2024-06-15")
	b, _ := NewDailyReset("2024-06-15")
	assert.NotEqual(t, a.ID, b.ID)
}
