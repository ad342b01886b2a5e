package command

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/momentum-hub/progression-engine/internal/domain/streak"
	"github.com/momentum-hub/progression-engine/internal/engine"
)

// ══════════════════════════════════════════════════════════════════════════════
// RECORD DAILY ACTIVITY COMMAND
// Upserts today's activity bucket with increments. Buckets are keyed by
// local date and are never deleted; the heatmap query reads them back.
// ══════════════════════════════════════════════════════════════════════════════

// RecordDailyActivityCommand contains activity increments for today.
type RecordDailyActivityCommand struct {
	// UserID identifies the profile.
	UserID string

	// ProblemsSolved increment.
	ProblemsSolved int

	// TasksCompleted increment.
	TasksCompleted int

	// XPEarned increment.
	XPEarned int

	// ActiveMinutes increment.
	ActiveMinutes int

	// CorrelationID for tracing.
	CorrelationID string
}

// Validate validates the command.
func (c RecordDailyActivityCommand) Validate() error {
	if c.ProblemsSolved == 0 && c.TasksCompleted == 0 && c.XPEarned == 0 && c.ActiveMinutes == 0 {
		return errors.New("record_daily_activity: at least one increment is required")
	}
	return nil
}

// RecordDailyActivityResult contains the updated bucket.
type RecordDailyActivityResult struct {
	// Date is the local date key of the bucket.
	Date string

	// Bucket is the bucket state after the increment.
	Bucket streak.DayBucket
}

// RecordDailyActivityHandler handles the RecordDailyActivityCommand.
type RecordDailyActivityHandler struct {
	store    *engine.Store
	location *time.Location
}

// NewRecordDailyActivityHandler creates a new RecordDailyActivityHandler.
func NewRecordDailyActivityHandler(store *engine.Store, location *time.Location) *RecordDailyActivityHandler {
	return &RecordDailyActivityHandler{store: store, location: location}
}

// Handle executes the record activity command.
func (h *RecordDailyActivityHandler) Handle(ctx context.Context, cmd RecordDailyActivityCommand) (*RecordDailyActivityResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, fmt.Errorf("record_daily_activity: validation failed: %w", err)
	}

	result := &RecordDailyActivityResult{}

	err := h.store.Dispatch(ctx, "RECORD_DAILY_ACTIVITY", func(st *engine.State, now time.Time) error {
		today := streak.Today(now, h.location)
		streak.RecordActivity(&st.Streak, today, streak.ActivityDelta{
			ProblemsSolved: cmd.ProblemsSolved,
			TasksCompleted: cmd.TasksCompleted,
			XPEarned:       cmd.XPEarned,
			ActiveMinutes:  cmd.ActiveMinutes,
			Timestamp:      now,
		})

		result.Date = today
		result.Bucket = st.Streak.DailyActivity[today]
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}
