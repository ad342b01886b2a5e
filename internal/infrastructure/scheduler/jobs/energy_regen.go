package jobs

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/momentum-hub/progression-engine/internal/application/command"
)

// ══════════════════════════════════════════════════════════════════════════════
// ENERGY REGEN JOB
// 5-minute poll. Restores one unit of energy up to the cap. A full bar
// is a silent no-op.
// ══════════════════════════════════════════════════════════════════════════════

// EnergyRegenJob restores profile energy on a fixed cadence.
type EnergyRegenJob struct {
	regen  *command.RegenEnergyHandler
	logger *slog.Logger
}

// NewEnergyRegenJob creates a new EnergyRegenJob.
func NewEnergyRegenJob(regen *command.RegenEnergyHandler, logger *slog.Logger) *EnergyRegenJob {
	if logger == nil {
		logger = slog.Default()
	}
	return &EnergyRegenJob{regen: regen, logger: logger}
}

// Name implements scheduler.Job.
func (j *EnergyRegenJob) Name() string {
	return "energy_regen"
}

// Description implements scheduler.Job.
func (j *EnergyRegenJob) Description() string {
	return "Restores one unit of energy up to the cap"
}

// Run implements scheduler.Job.
func (j *EnergyRegenJob) Run(ctx context.Context) error {
	res, err := j.regen.Handle(ctx, command.RegenEnergyCommand{})
	if err != nil {
		return fmt.Errorf("energy_regen: %w", err)
	}

	if res.Regenerated > 0 {
		j.logger.Debug("energy regenerated", "energy", res.Energy)
	}
	return nil
}
