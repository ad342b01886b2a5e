package service

import (
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/momentum-hub/progression-engine/internal/domain/notification"
	"github.com/momentum-hub/progression-engine/internal/domain/shared"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type captureChannel struct {
	delivered []*notification.Notification
	err       error
}

func (c *captureChannel) Deliver(n *notification.Notification) error {
	if c.err != nil {
		return c.err
	}
	c.delivered = append(c.delivered, n)
	return nil
}

func newService(t *testing.T, ch notification.Channel, clock shared.Clock, quiet QuietHours) *NotificationService {
	t.Helper()
	return NewNotificationService(NotificationServiceConfig{
		Channels:   []notification.Channel{ch},
		Clock:      clock,
		Location:   time.UTC,
		QuietHours: quiet,
		Logger:     discardLogger(),
	})
}

func TestNotificationService_DeliversThroughChannel(t *testing.T) {
	ch := &captureChannel{}
	clock := shared.NewFakeClock(time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC))
	svc := newService(t, ch, clock, QuietHours{})

	n, err := notification.NewLevelUp(5)
	require.NoError(t, err)
	require.NoError(t, svc.Notify(n))

	require.Len(t, ch.delivered, 1)
	assert.Equal(t, notification.TypeLevelUp, ch.delivered[0].Type)
	assert.Len(t, svc.Recent(), 1)
}

func TestNotificationService_QuietHoursSuppressNormalPriority(t *testing.T) {
	ch := &captureChannel{}
	clock := shared.NewFakeClock(time.Date(2024, 6, 15, 23, 30, 0, 0, time.UTC))
	svc := newService(t, ch, clock, QuietHours{Enabled: true, StartHour: 22, EndHour: 8})

	levelUp, err := notification.NewLevelUp(3)
	require.NoError(t, err)
	require.NoError(t, svc.Notify(levelUp))
	assert.Empty(t, ch.delivered, "normal priority suppressed at night")

	// High priority bypasses the window.
	penalty, err := notification.NewPenaltyApplied(500, 14, true)
	require.NoError(t, err)
	require.NoError(t, svc.Notify(penalty))
	require.Len(t, ch.delivered, 1)
	assert.Equal(t, notification.TypePenaltyApplied, ch.delivered[0].Type)
}

func TestNotificationService_QuietHoursWrapMidnight(t *testing.T) {
	quiet := QuietHours{Enabled: true, StartHour: 22, EndHour: 8}

	assert.True(t, quiet.Contains(time.Date(2024, 6, 15, 23, 0, 0, 0, time.UTC)))
	assert.True(t, quiet.Contains(time.Date(2024, 6, 16, 3, 0, 0, 0, time.UTC)))
	assert.False(t, quiet.Contains(time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)))
	assert.False(t, quiet.Contains(time.Date(2024, 6, 15, 8, 0, 0, 0, time.UTC)))
}

func TestNotificationService_FailingChannelReturnsChannelUnavailable(t *testing.T) {
	ch := &captureChannel{err: errors.New("socket closed")}
	clock := shared.NewFakeClock(time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC))
	svc := newService(t, ch, clock, QuietHours{})

	n, err := notification.NewWarning("disk almost full")
	require.NoError(t, err)

	err = svc.Notify(n)
	require.Error(t, err)
	assert.ErrorIs(t, err, notification.ErrChannelUnavailable)
}

type captureService struct {
	notified []*notification.Notification
}

func (s *captureService) Notify(n *notification.Notification) error {
	s.notified = append(s.notified, n)
	return nil
}

func TestNotificationEventHandler_BuildsFromPayloads(t *testing.T) {
	svc := &captureService{}
	h := NewNotificationEventHandler(svc, discardLogger())

	events := []shared.Event{
		shared.LevelUpEvent{
			BaseEvent: shared.NewBaseEvent(shared.EventLevelUp, "local"),
			OldLevel:  4,
			NewLevel:  5,
		},
		shared.StreakMilestoneEvent{
			BaseEvent: shared.NewBaseEvent(shared.EventStreakMilestone, "local"),
			Streak:    7,
			Milestone: 7,
		},
		shared.PenaltyAppliedEvent{
			BaseEvent:    shared.NewBaseEvent(shared.EventPenaltyApplied, "local"),
			DaysInactive: 14,
			XPPenalty:    500,
			StreakReset:  true,
		},
	}
	for _, e := range events {
		require.NoError(t, h.HandleEvent(e))
	}

	require.Len(t, svc.notified, 3)
	assert.Equal(t, notification.TypeLevelUp, svc.notified[0].Type)
	assert.Equal(t, notification.TypeStreakMilestone, svc.notified[1].Type)
	assert.Equal(t, notification.TypePenaltyApplied, svc.notified[2].Type)
	assert.Equal(t, notification.PriorityHigh, svc.notified[2].Priority)
}

func TestNotificationEventHandler_IgnoresUnmappedEvents(t *testing.T) {
	svc := &captureService{}
	h := NewNotificationEventHandler(svc, discardLogger())

	require.NoError(t, h.HandleEvent(shared.XPGainedEvent{
		BaseEvent: shared.NewBaseEvent(shared.EventXPGained, "local"),
		Amount:    100,
	}))
	assert.Empty(t, svc.notified)
}

func TestPayloadInt_HandlesJSONNumbers(t *testing.T) {
	payload := map[string]interface{}{
		"a": 5,
		"b": float64(7),
		"c": int64(9),
	}
	assert.Equal(t, 5, payloadInt(payload, "a"))
	assert.Equal(t, 7, payloadInt(payload, "b"))
	assert.Equal(t, 9, payloadInt(payload, "c"))
	assert.Equal(t, 0, payloadInt(payload, "missing"))
}
