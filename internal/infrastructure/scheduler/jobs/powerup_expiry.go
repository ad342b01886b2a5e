package jobs

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/momentum-hub/progression-engine/internal/application/command"
)

// ══════════════════════════════════════════════════════════════════════════════
// POWER-UP EXPIRY JOB
// 30-second poll. Sweeps active power-ups whose ExpiresAt has passed.
// The sweep is idempotent, so an extra pass after a clock jump is
// harmless; effects silently end between polls because multipliers are
// recomputed from ExpiresAt at read time.
// ══════════════════════════════════════════════════════════════════════════════

// PowerUpExpiryJob removes due power-up activations.
type PowerUpExpiryJob struct {
	expire *command.ExpirePowerUpHandler
	logger *slog.Logger
}

// NewPowerUpExpiryJob creates a new PowerUpExpiryJob.
func NewPowerUpExpiryJob(expire *command.ExpirePowerUpHandler, logger *slog.Logger) *PowerUpExpiryJob {
	if logger == nil {
		logger = slog.Default()
	}
	return &PowerUpExpiryJob{expire: expire, logger: logger}
}

// Name implements scheduler.Job.
func (j *PowerUpExpiryJob) Name() string {
	return "powerup_expiry"
}

// Description implements scheduler.Job.
func (j *PowerUpExpiryJob) Description() string {
	return "Sweeps expired power-up activations"
}

// Run implements scheduler.Job.
func (j *PowerUpExpiryJob) Run(ctx context.Context) error {
	res, err := j.expire.Handle(ctx, command.ExpirePowerUpCommand{SweepDue: true})
	if err != nil {
		return fmt.Errorf("powerup_expiry: %w", err)
	}

	if res.RemovedEntries > 0 {
		j.logger.Info("power-ups expired", "removed", res.RemovedEntries)
	}
	return nil
}
