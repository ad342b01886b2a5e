package jobs

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/momentum-hub/progression-engine/internal/application/command"
)

// ══════════════════════════════════════════════════════════════════════════════
// DAILY ROLLOVER JOB
// 60-second poll. Watches the stored date marker for a local date
// change. The midnight reset normally wins the race; this detector is
// the safety net for date changes the reset path never saw - a device
// waking from sleep past midnight or a timezone change mid-flight.
// On a crossing it evaluates the inactivity penalty tiers.
// ══════════════════════════════════════════════════════════════════════════════

// DailyRolloverJob detects date changes and applies inactivity penalties.
type DailyRolloverJob struct {
	check   *command.CheckRolloverHandler
	penalty *command.ApplyInactivityPenaltyHandler
	logger  *slog.Logger
}

// NewDailyRolloverJob creates a new DailyRolloverJob.
func NewDailyRolloverJob(
	check *command.CheckRolloverHandler,
	penalty *command.ApplyInactivityPenaltyHandler,
	logger *slog.Logger,
) *DailyRolloverJob {
	if logger == nil {
		logger = slog.Default()
	}
	return &DailyRolloverJob{
		check:   check,
		penalty: penalty,
		logger:  logger,
	}
}

// Name implements scheduler.Job.
func (j *DailyRolloverJob) Name() string {
	return "daily_rollover"
}

// Description implements scheduler.Job.
func (j *DailyRolloverJob) Description() string {
	return "Detects local date changes and applies inactivity penalties"
}

// Run implements scheduler.Job.
func (j *DailyRolloverJob) Run(ctx context.Context) error {
	res, err := j.check.Handle(ctx, command.CheckRolloverCommand{})
	if err != nil {
		return fmt.Errorf("daily_rollover: check failed: %w", err)
	}

	if !res.Crossed {
		return nil
	}

	j.logger.Info("date rollover detected",
		"previous_date", res.PreviousDate,
		"current_date", res.CurrentDate,
	)

	penaltyRes, err := j.penalty.Handle(ctx, command.ApplyInactivityPenaltyCommand{})
	if err != nil {
		return fmt.Errorf("daily_rollover: penalty failed: %w", err)
	}

	if penaltyRes.Applied {
		j.logger.Warn("inactivity penalty applied",
			"days_inactive", penaltyRes.DaysInactive,
			"xp_deducted", penaltyRes.XPDeducted,
			"streak_reset", penaltyRes.StreakReset,
		)
	}
	return nil
}
