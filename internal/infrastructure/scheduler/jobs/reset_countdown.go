// Package jobs contains the polling jobs that drive the engine's
// temporal behavior. Every job is a thin command producer: it observes
// the clock through the engine store and dispatches commands, never
// mutating state directly.
package jobs

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/momentum-hub/progression-engine/internal/application/command"
)

// ══════════════════════════════════════════════════════════════════════════════
// RESET COUNTDOWN JOB
// 1-second poll. Recomputes the countdown to local midnight and fires
// the once-per-day reset as soon as it is due. The recomputation is
// stateless against the clock: a missed tick never drifts the value.
// ══════════════════════════════════════════════════════════════════════════════

// ResetCountdownJob refreshes the countdown and triggers the daily reset.
type ResetCountdownJob struct {
	check   *command.CheckDailyResetHandler
	perform *command.PerformDailyResetHandler
	logger  *slog.Logger
}

// NewResetCountdownJob creates a new ResetCountdownJob.
func NewResetCountdownJob(
	check *command.CheckDailyResetHandler,
	perform *command.PerformDailyResetHandler,
	logger *slog.Logger,
) *ResetCountdownJob {
	if logger == nil {
		logger = slog.Default()
	}
	return &ResetCountdownJob{
		check:   check,
		perform: perform,
		logger:  logger,
	}
}

// Name implements scheduler.Job.
func (j *ResetCountdownJob) Name() string {
	return "reset_countdown"
}

// Description implements scheduler.Job.
func (j *ResetCountdownJob) Description() string {
	return "Refreshes the midnight countdown and fires the daily reset when due"
}

// Run implements scheduler.Job.
func (j *ResetCountdownJob) Run(ctx context.Context) error {
	checkRes, err := j.check.Handle(ctx, command.CheckDailyResetCommand{})
	if err != nil {
		return fmt.Errorf("reset_countdown: check failed: %w", err)
	}

	if !checkRes.Due {
		return nil
	}

	performRes, err := j.perform.Handle(ctx, command.PerformDailyResetCommand{})
	if err != nil {
		return fmt.Errorf("reset_countdown: perform failed: %w", err)
	}

	if performRes.Performed {
		j.logger.Info("daily reset performed",
			"date", performRes.ResetDate,
			"penalty_applied", performRes.Penalty.ShouldPunish,
			"xp_deducted", performRes.XPDeducted,
		)
	}
	return nil
}
