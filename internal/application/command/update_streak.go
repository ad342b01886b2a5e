package command

import (
	"context"
	"fmt"
	"time"

	"github.com/momentum-hub/progression-engine/internal/domain/notification"
	"github.com/momentum-hub/progression-engine/internal/domain/powerup"
	"github.com/momentum-hub/progression-engine/internal/domain/shared"
	"github.com/momentum-hub/progression-engine/internal/domain/streak"
	"github.com/momentum-hub/progression-engine/internal/engine"
)

// ══════════════════════════════════════════════════════════════════════════════
// UPDATE TIME-BASED STREAK COMMAND
// Advances the calendar-day streak for "today" in the user's timezone.
// Idempotent within a day. An active streak_shield absorbs a break:
// the shield is consumed and the previous streak survives.
// ══════════════════════════════════════════════════════════════════════════════

// UpdateStreakCommand advances the streak to the current local date.
type UpdateStreakCommand struct {
	// UserID identifies the profile.
	UserID string

	// ActivityType labels the activity that triggered the update
	// (task, lesson, review). Optional; carried into the event payload.
	ActivityType string

	// CorrelationID for tracing.
	CorrelationID string
}

// Validate validates the command.
func (c UpdateStreakCommand) Validate() error {
	return nil
}

// UpdateStreakResult contains the streak transition.
type UpdateStreakResult struct {
	// NewStreak is the streak after the update.
	NewStreak int

	// LongestStreak is the monotonic maximum.
	LongestStreak int

	// Continued indicates the streak grew or stayed (same day).
	Continued bool

	// Broken indicates the streak was reset by a gap.
	Broken bool

	// ShieldConsumed indicates a streak_shield absorbed the break.
	ShieldConsumed bool

	// DaysInactive is the gap length when broken.
	DaysInactive int

	// ClockSkew indicates the local date moved backwards; the streak
	// was left untouched.
	ClockSkew bool

	// MilestoneReached is non-zero when the new streak hit a milestone.
	MilestoneReached int

	// Events contains domain events generated.
	Events []shared.Event
}

// UpdateStreakHandler handles the UpdateStreakCommand.
type UpdateStreakHandler struct {
	store     *engine.Store
	catalog   powerup.Catalog
	location  *time.Location
	publisher shared.EventPublisher
}

// NewUpdateStreakHandler creates a new UpdateStreakHandler.
func NewUpdateStreakHandler(store *engine.Store, catalog powerup.Catalog, location *time.Location, publisher shared.EventPublisher) *UpdateStreakHandler {
	return &UpdateStreakHandler{
		store:     store,
		catalog:   catalog,
		location:  location,
		publisher: publisher,
	}
}

// Handle executes the streak update command.
func (h *UpdateStreakHandler) Handle(ctx context.Context, cmd UpdateStreakCommand) (*UpdateStreakResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, fmt.Errorf("update_streak: validation failed: %w", err)
	}

	result := &UpdateStreakResult{Events: make([]shared.Event, 0)}

	err := h.store.Dispatch(ctx, "UPDATE_TIME_BASED_STREAK", func(st *engine.State, now time.Time) error {
		today := streak.Today(now, h.location)
		previousStreak := st.Streak.CurrentStreak
		res := streak.Advance(st.Streak.CurrentStreak, st.Streak.LastActivityDate, today, h.location)

		if res.ClockSkew {
			result.ClockSkew = true
			result.NewStreak = st.Streak.CurrentStreak
			result.LongestStreak = st.Streak.LongestStreak
			return nil
		}

		if res.Broken {
			if h.consumeShield(st, now) {
				// Shield absorbs the gap: streak continues from the
				// previous value plus today's activity.
				res.NewStreak = previousStreak + 1
				res.Broken = false
				res.Continued = true
				result.ShieldConsumed = true
			} else {
				event := shared.StreakBrokenEvent{
					BaseEvent:      shared.NewBaseEvent(shared.EventStreakBroken, aggregateID(cmd.UserID)).WithCorrelationID(cmd.CorrelationID),
					PreviousStreak: previousStreak,
					DaysInactive:   res.DaysInactive,
				}
				result.Events = append(result.Events, event)
			}
		}

		streak.Apply(&st.Streak, res, today)

		result.NewStreak = st.Streak.CurrentStreak
		result.LongestStreak = st.Streak.LongestStreak
		result.Continued = res.Continued
		result.Broken = res.Broken
		result.DaysInactive = res.DaysInactive

		if res.NewStreak != previousStreak {
			event := shared.StreakUpdatedEvent{
				BaseEvent:     shared.NewBaseEvent(shared.EventStreakUpdated, aggregateID(cmd.UserID)).WithCorrelationID(cmd.CorrelationID),
				NewStreak:     st.Streak.CurrentStreak,
				LongestStreak: st.Streak.LongestStreak,
				Continued:     res.Continued,
				ActivityType:  cmd.ActivityType,
			}
			result.Events = append(result.Events, event)
		}

		if res.Continued && res.NewStreak > previousStreak && notification.IsStreakMilestone(res.NewStreak) {
			result.MilestoneReached = res.NewStreak
			event := shared.StreakMilestoneEvent{
				BaseEvent: shared.NewBaseEvent(shared.EventStreakMilestone, aggregateID(cmd.UserID)).WithCorrelationID(cmd.CorrelationID),
				Streak:    res.NewStreak,
				Milestone: res.NewStreak,
			}
			result.Events = append(result.Events, event)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	for _, event := range result.Events {
		_ = h.publisher.Publish(event)
	}
	return result, nil
}

// consumeShield expires exactly one active streak_shield instance.
func (h *UpdateStreakHandler) consumeShield(st *engine.State, now time.Time) bool {
	for _, a := range st.Inventory.Active {
		if !a.ExpiresAt.After(now) {
			continue
		}
		def, ok := h.catalog.Lookup(a.ID)
		if !ok || def.Type != powerup.TypeStreakShield {
			continue
		}
		powerup.ExpireInstance(&st.Inventory, a.ActivationID)
		return true
	}
	return false
}
