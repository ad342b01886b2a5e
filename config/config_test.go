package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSchedulerConfig_DefaultCadence(t *testing.T) {
	for _, key := range []string{
		"SCHEDULER_RESET_CHECK_INTERVAL",
		"SCHEDULER_ROLLOVER_CHECK_INTERVAL",
		"SCHEDULER_EXPIRY_SWEEP_INTERVAL",
		"SCHEDULER_ENERGY_REGEN_INTERVAL",
	} {
		t.Setenv(key, "")
	}

	cfg := loadSchedulerConfig()

	// Countdown every second, expiry sweep every 30s, date-change
	// detection every 60s, energy regen every 5 minutes.
	assert.Equal(t, 1*time.Second, cfg.ResetCheckInterval)
	assert.Equal(t, 30*time.Second, cfg.ExpirySweepInterval)
	assert.Equal(t, 60*time.Second, cfg.RolloverCheckInterval)
	assert.Equal(t, 5*time.Minute, cfg.EnergyRegenInterval)
}

func TestSchedulerConfig_EnvOverride(t *testing.T) {
	t.Setenv("SCHEDULER_ROLLOVER_CHECK_INTERVAL", "2m")
	t.Setenv("SCHEDULER_EXPIRY_SWEEP_INTERVAL", "not-a-duration")

	cfg := loadSchedulerConfig()

	assert.Equal(t, 2*time.Minute, cfg.RolloverCheckInterval)
	// Unparseable values fall back to the default.
	assert.Equal(t, 30*time.Second, cfg.ExpirySweepInterval)
}
