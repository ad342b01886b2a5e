package command

import (
	"context"
	"fmt"
	"time"

	"github.com/momentum-hub/progression-engine/internal/domain/powerup"
	"github.com/momentum-hub/progression-engine/internal/domain/progression"
	"github.com/momentum-hub/progression-engine/internal/domain/session"
	"github.com/momentum-hub/progression-engine/internal/domain/shared"
	"github.com/momentum-hub/progression-engine/internal/domain/streak"
	"github.com/momentum-hub/progression-engine/internal/engine"
)

// ══════════════════════════════════════════════════════════════════════════════
// START SESSION COMMAND
// Starts the activity timer. Starting while a session is active is a
// no-op (Started=false), never an error.
// ══════════════════════════════════════════════════════════════════════════════

// StartSessionCommand starts an activity session.
type StartSessionCommand struct {
	// UserID identifies the profile.
	UserID string

	// CorrelationID for tracing.
	CorrelationID string
}

// Validate validates the command.
func (c StartSessionCommand) Validate() error {
	return nil
}

// StartSessionResult contains the start outcome.
type StartSessionResult struct {
	// Started is false when a session was already active.
	Started bool

	// StartedAt is the session start time.
	StartedAt time.Time

	// Events contains domain events generated.
	Events []shared.Event
}

// StartSessionHandler handles the StartSessionCommand.
type StartSessionHandler struct {
	store     *engine.Store
	publisher shared.EventPublisher
}

// NewStartSessionHandler creates a new StartSessionHandler.
func NewStartSessionHandler(store *engine.Store, publisher shared.EventPublisher) *StartSessionHandler {
	return &StartSessionHandler{store: store, publisher: publisher}
}

// Handle executes the start session command.
func (h *StartSessionHandler) Handle(ctx context.Context, cmd StartSessionCommand) (*StartSessionResult, error) {
	result := &StartSessionResult{Events: make([]shared.Event, 0)}

	err := h.store.Dispatch(ctx, "START_SESSION", func(st *engine.State, now time.Time) error {
		if !session.Start(&st.Session, now) {
			return nil
		}

		result.Started = true
		result.StartedAt = now

		event := shared.SessionStartedEvent{
			BaseEvent: shared.NewBaseEvent(shared.EventSessionStarted, aggregateID(cmd.UserID)).WithCorrelationID(cmd.CorrelationID),
			StartedAt: now,
		}
		result.Events = append(result.Events, event)
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

// ══════════════════════════════════════════════════════════════════════════════
// END SESSION COMMAND
// Stops the timer, accumulates the closed duration and awards the
// duration bonus through the ledger. The bonus is granted only here:
// an open session earns nothing until it closes.
// ══════════════════════════════════════════════════════════════════════════════

// EndSessionCommand stops the active session.
type EndSessionCommand struct {
	// UserID identifies the profile.
	UserID string

	// CorrelationID for tracing.
	CorrelationID string
}

// Validate validates the command.
func (c EndSessionCommand) Validate() error {
	return nil
}

// EndSessionResult contains the stop outcome.
type EndSessionResult struct {
	// Stopped is false when no session was active.
	Stopped bool

	// Duration is the closed session's length.
	Duration time.Duration

	// BonusXP is the awarded duration bonus (before multipliers).
	BonusXP int

	// FinalBonusXP is the bonus after xp_boost multipliers.
	FinalBonusXP int

	// TotalActiveMs is the accumulated active time after the stop.
	TotalActiveMs int64

	// LeveledUp indicates the bonus pushed the user to a new level.
	LeveledUp bool

	// Events contains domain events generated.
	Events []shared.Event
}

// EndSessionHandler handles the EndSessionCommand.
type EndSessionHandler struct {
	store     *engine.Store
	catalog   powerup.Catalog
	location  *time.Location
	publisher shared.EventPublisher
}

// NewEndSessionHandler creates a new EndSessionHandler.
func NewEndSessionHandler(store *engine.Store, catalog powerup.Catalog, location *time.Location, publisher shared.EventPublisher) *EndSessionHandler {
	return &EndSessionHandler{
		store:     store,
		catalog:   catalog,
		location:  location,
		publisher: publisher,
	}
}

// Handle executes the end session command.
func (h *EndSessionHandler) Handle(ctx context.Context, cmd EndSessionCommand) (*EndSessionResult, error) {
	result := &EndSessionResult{Events: make([]shared.Event, 0)}

	err := h.store.Dispatch(ctx, "END_SESSION", func(st *engine.State, now time.Time) error {
		duration, stopped := session.Stop(&st.Session, now)
		if !stopped {
			return nil
		}

		result.Stopped = true
		result.Duration = duration
		result.TotalActiveMs = st.Session.TotalActiveTime

		bonus := session.DurationBonus(duration)
		result.BonusXP = bonus

		if bonus > 0 {
			mult := powerup.EffectiveMultiplier(st.Inventory, h.catalog, powerup.TypeXPBoost, now)
			res := progression.AddXP(&st.XP, bonus, mult)
			result.FinalBonusXP = int(res.FinalAmount)
			result.LeveledUp = res.LeveledUp

			if res.LeveledUp {
				levelUp := shared.LevelUpEvent{
					BaseEvent: shared.NewBaseEvent(shared.EventLevelUp, aggregateID(cmd.UserID)).WithCorrelationID(cmd.CorrelationID),
					OldLevel:  int(res.OldLevel),
					NewLevel:  int(res.NewLevel),
				}
				result.Events = append(result.Events, levelUp)
			}
		}

		// Session minutes land in today's bucket for the heatmap.
		minutes := int(duration / time.Minute)
		if minutes > 0 {
			today := streak.Today(now, h.location)
			streak.RecordActivity(&st.Streak, today, streak.ActivityDelta{
				ActiveMinutes: minutes,
				XPEarned:      result.FinalBonusXP,
				Timestamp:     now,
			})
		}

		event := shared.SessionEndedEvent{
			BaseEvent:  shared.NewBaseEvent(shared.EventSessionEnded, aggregateID(cmd.UserID)).WithCorrelationID(cmd.CorrelationID),
			DurationMs: duration.Milliseconds(),
			BonusXP:    result.FinalBonusXP,
		}
		result.Events = append(result.Events, event)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("end_session: %w", err)
	}

	for _, event := range result.Events {
		_ = h.publisher.Publish(event)
	}
	return result, nil
}
