package command

import (
	"context"
	"fmt"
	"time"

	"github.com/momentum-hub/progression-engine/internal/domain/progression"
	"github.com/momentum-hub/progression-engine/internal/domain/reset"
	"github.com/momentum-hub/progression-engine/internal/domain/shared"
	"github.com/momentum-hub/progression-engine/internal/domain/streak"
	"github.com/momentum-hub/progression-engine/internal/engine"
	"github.com/momentum-hub/progression-engine/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// CHECK DAILY RESET COMMAND
// Recomputes the countdown to the next local midnight and reports
// whether the once-per-day reset is due. Issued by the 1-second
// countdown job; never mutates anything beyond the countdown fields.
// ══════════════════════════════════════════════════════════════════════════════

// CheckDailyResetCommand refreshes the reset countdown.
type CheckDailyResetCommand struct {
	// UserID identifies the profile.
	UserID string
}

// Validate validates the command.
func (c CheckDailyResetCommand) Validate() error {
	return nil
}

// CheckDailyResetResult contains the countdown state.
type CheckDailyResetResult struct {
	// Due indicates the reset has not run for the current local date.
	Due bool

	// CountdownSeconds is the recomputed countdown to next midnight.
	CountdownSeconds int

	// NextResetTime is the next local midnight.
	NextResetTime time.Time
}

// CheckDailyResetHandler handles the CheckDailyResetCommand.
type CheckDailyResetHandler struct {
	store    *engine.Store
	location *time.Location
}

// NewCheckDailyResetHandler creates a new CheckDailyResetHandler.
func NewCheckDailyResetHandler(store *engine.Store, location *time.Location) *CheckDailyResetHandler {
	return &CheckDailyResetHandler{store: store, location: location}
}

// Handle executes the check command.
func (h *CheckDailyResetHandler) Handle(ctx context.Context, cmd CheckDailyResetCommand) (*CheckDailyResetResult, error) {
	result := &CheckDailyResetResult{}

	err := h.store.Dispatch(ctx, "CHECK_DAILY_RESET", func(st *engine.State, now time.Time) error {
		result.Due = reset.Tick(&st.Reset, now, h.location)
		result.CountdownSeconds = st.Reset.ResetCountdown
		result.NextResetTime = st.Reset.NextResetTime
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// PERFORM DAILY RESET COMMAND
// Fires the once-per-day rollover: marks the date, evaluates the
// inactivity penalty for the gap since the last activity, and emits
// reset.performed. Near-simultaneous fires collapse into one thanks to
// the hasResetToday guard (Performed=false on the second call).
// ══════════════════════════════════════════════════════════════════════════════

// PerformDailyResetCommand fires the daily rollover.
type PerformDailyResetCommand struct {
	// UserID identifies the profile.
	UserID string

	// CorrelationID for tracing.
	CorrelationID string
}

// Validate validates the command.
func (c PerformDailyResetCommand) Validate() error {
	return nil
}

// PerformDailyResetResult contains the rollover outcome.
type PerformDailyResetResult struct {
	// Performed is false when the reset already ran today.
	Performed bool

	// ResetDate is the local date the reset covered.
	ResetDate string

	// Penalty holds the inactivity evaluation for the gap.
	Penalty streak.PenaltyResult

	// XPDeducted is the XP actually removed by the penalty.
	XPDeducted int

	// Events contains domain events generated.
	Events []shared.Event
}

// PerformDailyResetHandler handles the PerformDailyResetCommand.
type PerformDailyResetHandler struct {
	store     *engine.Store
	location  *time.Location
	publisher shared.EventPublisher
}

// NewPerformDailyResetHandler creates a new PerformDailyResetHandler.
func NewPerformDailyResetHandler(store *engine.Store, location *time.Location, publisher shared.EventPublisher) *PerformDailyResetHandler {
	return &PerformDailyResetHandler{
		store:     store,
		location:  location,
		publisher: publisher,
	}
}

// Handle executes the daily reset command.
func (h *PerformDailyResetHandler) Handle(ctx context.Context, cmd PerformDailyResetCommand) (*PerformDailyResetResult, error) {
	result := &PerformDailyResetResult{Events: make([]shared.Event, 0)}

	err := h.store.Dispatch(ctx, "PERFORM_DAILY_RESET", func(st *engine.State, now time.Time) error {
		// Consume the day-crossing marker before marking the reset.
		// When the rollover detector already handled this date change,
		// Crossed is false and the penalty was deducted there: the
		// reset still runs, but must not punish the same gap twice.
		crossing := reset.CheckRollover(&st.Reset, now, h.location)

		if !reset.MarkReset(&st.Reset, now, h.location) {
			return nil
		}

		today := streak.Today(now, h.location)
		result.Performed = true
		result.ResetDate = today

		if crossing.Crossed {
			// Penalty covers full missed days: the day after the last
			// activity up to (not including) today.
			daysInactive := inactivityGap(st.Streak.LastActivityDate, today, h.location)
			penalty := streak.InactivityPenalty(daysInactive, int(st.XP.CurrentXP))
			result.Penalty = penalty

			if penalty.ShouldPunish {
				deducted := progression.SpendXP(&st.XP, penalty.XPPenalty)
				result.XPDeducted = int(deducted)

				if penalty.StreakReset {
					st.Streak.CurrentStreak = 0
					st.Streak.StreakStartDate = ""
				}

				event := shared.PenaltyAppliedEvent{
					BaseEvent:    shared.NewBaseEvent(shared.EventPenaltyApplied, aggregateID(cmd.UserID)).WithCorrelationID(cmd.CorrelationID),
					DaysInactive: daysInactive,
					XPPenalty:    int(deducted),
					StreakReset:  penalty.StreakReset,
				}
				result.Events = append(result.Events, event)
			}
		}

		event := shared.DailyResetPerformedEvent{
			BaseEvent: shared.NewBaseEvent(shared.EventDailyResetPerformed, aggregateID(cmd.UserID)).WithCorrelationID(cmd.CorrelationID),
			ResetDate: today,
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
// CHECK ROLLOVER COMMAND
// Compares the stored date marker against the current local date. The
// 60-second rollover detector issues this to catch date changes the
// midnight reset missed (device asleep over midnight, timezone travel).
// ══════════════════════════════════════════════════════════════════════════════

// CheckRolloverCommand detects a local date change via the marker.
type CheckRolloverCommand struct {
	// UserID identifies the profile.
	UserID string
}

// Validate validates the command.
func (c CheckRolloverCommand) Validate() error {
	return nil
}

// CheckRolloverResult contains the detection outcome.
type CheckRolloverResult struct {
	// Crossed indicates the local date moved past the stored marker.
	Crossed bool

	// PreviousDate and CurrentDate bracket the crossing.
	PreviousDate string
	CurrentDate  string
}

// CheckRolloverHandler handles the CheckRolloverCommand.
type CheckRolloverHandler struct {
	store    *engine.Store
	location *time.Location
}

// NewCheckRolloverHandler creates a new CheckRolloverHandler.
func NewCheckRolloverHandler(store *engine.Store, location *time.Location) *CheckRolloverHandler {
	return &CheckRolloverHandler{store: store, location: location}
}

// Handle executes the rollover check.
func (h *CheckRolloverHandler) Handle(ctx context.Context, cmd CheckRolloverCommand) (*CheckRolloverResult, error) {
	result := &CheckRolloverResult{}

	err := h.store.Dispatch(ctx, "CHECK_ROLLOVER", func(st *engine.State, now time.Time) error {
		res := reset.CheckRollover(&st.Reset, now, h.location)
		result.Crossed = res.Crossed
		result.PreviousDate = res.PreviousDate
		result.CurrentDate = res.CurrentDate
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// APPLY INACTIVITY PENALTY COMMAND
// Standalone penalty evaluation used by the rollover detector when a
// date change is observed outside the midnight reset (device resume,
// timezone travel).
// ══════════════════════════════════════════════════════════════════════════════

// ApplyInactivityPenaltyCommand evaluates and applies the penalty tiers.
type ApplyInactivityPenaltyCommand struct {
	// UserID identifies the profile.
	UserID string

	// DaysInactive overrides the computed gap when positive.
	DaysInactive int

	// CorrelationID for tracing.
	CorrelationID string
}

// Validate validates the command.
func (c ApplyInactivityPenaltyCommand) Validate() error {
	if c.DaysInactive < 0 {
		return fmt.Errorf("apply_inactivity_penalty: days_inactive cannot be negative")
	}
	return nil
}

// ApplyInactivityPenaltyResult contains the penalty outcome.
type ApplyInactivityPenaltyResult struct {
	// Applied is false when no penalty tier matched.
	Applied bool

	// DaysInactive is the evaluated gap.
	DaysInactive int

	// XPDeducted is the XP actually removed.
	XPDeducted int

	// StreakReset indicates the streak was zeroed (14+ day tier).
	StreakReset bool

	// Events contains domain events generated.
	Events []shared.Event
}

// ApplyInactivityPenaltyHandler handles the ApplyInactivityPenaltyCommand.
type ApplyInactivityPenaltyHandler struct {
	store     *engine.Store
	location  *time.Location
	publisher shared.EventPublisher
}

// NewApplyInactivityPenaltyHandler creates a new ApplyInactivityPenaltyHandler.
func NewApplyInactivityPenaltyHandler(store *engine.Store, location *time.Location, publisher shared.EventPublisher) *ApplyInactivityPenaltyHandler {
	return &ApplyInactivityPenaltyHandler{
		store:     store,
		location:  location,
		publisher: publisher,
	}
}

// Handle executes the penalty command.
func (h *ApplyInactivityPenaltyHandler) Handle(ctx context.Context, cmd ApplyInactivityPenaltyCommand) (*ApplyInactivityPenaltyResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}

	result := &ApplyInactivityPenaltyResult{Events: make([]shared.Event, 0)}

	err := h.store.Dispatch(ctx, "APPLY_INACTIVITY_PENALTY", func(st *engine.State, now time.Time) error {
		daysInactive := cmd.DaysInactive
		if daysInactive == 0 {
			today := streak.Today(now, h.location)
			daysInactive = inactivityGap(st.Streak.LastActivityDate, today, h.location)
		}
		result.DaysInactive = daysInactive

		penalty := streak.InactivityPenalty(daysInactive, int(st.XP.CurrentXP))
		if !penalty.ShouldPunish {
			return nil
		}

		deducted := progression.SpendXP(&st.XP, penalty.XPPenalty)
		result.Applied = true
		result.XPDeducted = int(deducted)
		result.StreakReset = penalty.StreakReset

		if penalty.StreakReset {
			st.Streak.CurrentStreak = 0
			st.Streak.StreakStartDate = ""
		}

		event := shared.PenaltyAppliedEvent{
			BaseEvent:    shared.NewBaseEvent(shared.EventPenaltyApplied, aggregateID(cmd.UserID)).WithCorrelationID(cmd.CorrelationID),
			DaysInactive: daysInactive,
			XPPenalty:    int(deducted),
			StreakReset:  penalty.StreakReset,
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

// inactivityGap returns the day gap between the last activity date and
// today, matching the streak advance semantics: same day or the very
// next day is zero (continuation, not a gap), a larger difference is
// reported as-is.
func inactivityGap(lastActivityDate, today string, loc *time.Location) int {
	if lastActivityDate == "" {
		return 0
	}
	days := timeutil.DaysBetweenKeys(lastActivityDate, today, loc)
	if days <= 1 {
		return 0
	}
	return days
}
