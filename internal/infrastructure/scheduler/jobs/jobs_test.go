package jobs

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/momentum-hub/progression-engine/internal/application/command"
	"github.com/momentum-hub/progression-engine/internal/application/query"
	"github.com/momentum-hub/progression-engine/internal/domain/powerup"
	"github.com/momentum-hub/progression-engine/internal/domain/shared"
	"github.com/momentum-hub/progression-engine/internal/engine"
)

type noopPublisher struct{}

func (noopPublisher) Publish(event shared.Event) error       { return nil }
func (noopPublisher) PublishAll(events []shared.Event) error { return nil }

type fixture struct {
	store   *engine.Store
	clock   *shared.FakeClock
	catalog *powerup.StaticCatalog
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	clock := shared.NewFakeClock(time.Date(2024, 6, 15, 10, 0, 0, 0, time.UTC))
	return &fixture{
		store:   engine.NewStore(engine.NewState(clock.Now(), time.UTC), clock, nil),
		clock:   clock,
		catalog: powerup.DefaultCatalog(),
	}
}

func TestResetCountdownJob_FiresOncePerMidnight(t *testing.T) {
	f := newFixture(t)
	pub := noopPublisher{}
	job := NewResetCountdownJob(
		command.NewCheckDailyResetHandler(f.store, time.UTC),
		command.NewPerformDailyResetHandler(f.store, time.UTC, pub),
		nil,
	)

	ctx := context.Background()

	// Fresh state: the reset has not run for today yet, the first tick
	// catches up and marks the date.
	require.NoError(t, job.Run(ctx))
	snap := f.store.Snapshot()
	assert.True(t, snap.Reset.HasResetToday)
	assert.Equal(t, "2024-06-15", snap.Reset.LastResetDate)

	// Repeated ticks within the same day are no-ops.
	f.clock.Advance(time.Hour)
	require.NoError(t, job.Run(ctx))
	snap = f.store.Snapshot()
	assert.Equal(t, "2024-06-15", snap.Reset.LastResetDate)

	// Crossing midnight fires exactly one more reset.
	f.clock.Advance(14 * time.Hour)
	require.NoError(t, job.Run(ctx))
	require.NoError(t, job.Run(ctx))
	snap = f.store.Snapshot()
	assert.Equal(t, "2024-06-16", snap.Reset.LastResetDate)
}

func TestResetCountdownJob_RefreshesCountdown(t *testing.T) {
	f := newFixture(t)
	pub := noopPublisher{}
	job := NewResetCountdownJob(
		command.NewCheckDailyResetHandler(f.store, time.UTC),
		command.NewPerformDailyResetHandler(f.store, time.UTC, pub),
		nil,
	)

	require.NoError(t, job.Run(context.Background()))
	first := f.store.Snapshot().Reset.ResetCountdown

	f.clock.Advance(10 * time.Second)
	require.NoError(t, job.Run(context.Background()))
	second := f.store.Snapshot().Reset.ResetCountdown

	assert.Equal(t, first-10, second)
}

func TestPowerUpExpiryJob_SweepsDueEntries(t *testing.T) {
	f := newFixture(t)
	pub := noopPublisher{}
	buy := command.NewBuyPowerUpHandler(f.store, f.catalog, pub)
	activate := command.NewActivatePowerUpHandler(f.store, f.catalog, pub)
	job := NewPowerUpExpiryJob(command.NewExpirePowerUpHandler(f.store, pub), nil)

	ctx := context.Background()
	_, err := buy.Handle(ctx, command.BuyPowerUpCommand{PowerUpID: "double_xp"})
	require.NoError(t, err)
	_, err = activate.Handle(ctx, command.ActivatePowerUpCommand{PowerUpID: "double_xp"})
	require.NoError(t, err)

	require.NoError(t, job.Run(ctx))
	assert.Equal(t, 1, f.store.Snapshot().Inventory.CountActiveByID("double_xp"))

	f.clock.Advance(31 * time.Minute)
	require.NoError(t, job.Run(ctx))
	assert.Zero(t, f.store.Snapshot().Inventory.CountActiveByID("double_xp"))

	// Idempotent second sweep.
	require.NoError(t, job.Run(ctx))
	assert.Zero(t, f.store.Snapshot().Inventory.CountActiveByID("double_xp"))
}

func TestDailyRolloverJob_AppliesPenaltyOnCrossing(t *testing.T) {
	f := newFixture(t)
	pub := noopPublisher{}
	addXP := command.NewAddXPHandler(f.store, f.catalog, pub)
	update := command.NewUpdateStreakHandler(f.store, f.catalog, time.UTC, pub)
	job := NewDailyRolloverJob(
		command.NewCheckRolloverHandler(f.store, time.UTC),
		command.NewApplyInactivityPenaltyHandler(f.store, time.UTC, pub),
		nil,
	)

	ctx := context.Background()
	_, err := addXP.Handle(ctx, command.AddXPCommand{Amount: 1000, Source: "task"})
	require.NoError(t, err)
	_, err = update.Handle(ctx, command.UpdateStreakCommand{})
	require.NoError(t, err)

	// Prime the marker for the current date.
	require.NoError(t, job.Run(ctx))
	xpBefore := int(f.store.Snapshot().XP.CurrentXP)

	// Device asleep for four days; the detector catches the crossing
	// and applies the 3-6 day tier (10%).
	f.clock.Advance(4 * 24 * time.Hour)
	require.NoError(t, job.Run(ctx))

	snap := f.store.Snapshot()
	assert.Equal(t, xpBefore-100, int(snap.XP.CurrentXP))

	// No further crossing, no further penalty.
	require.NoError(t, job.Run(ctx))
	assert.Equal(t, xpBefore-100, int(f.store.Snapshot().XP.CurrentXP))
}

func TestEnergyRegenJob_RefillsToCap(t *testing.T) {
	f := newFixture(t)
	pub := noopPublisher{}
	buy := command.NewBuyPowerUpHandler(f.store, f.catalog, pub)
	activate := command.NewActivatePowerUpHandler(f.store, f.catalog, pub)
	job := NewEnergyRegenJob(command.NewRegenEnergyHandler(f.store, pub), nil)

	ctx := context.Background()
	_, err := buy.Handle(ctx, command.BuyPowerUpCommand{PowerUpID: "gold_rush"})
	require.NoError(t, err)
	_, err = activate.Handle(ctx, command.ActivatePowerUpCommand{PowerUpID: "gold_rush"})
	require.NoError(t, err)
	require.Equal(t, engine.MaxEnergy-30, f.store.Snapshot().Energy)

	for i := 0; i < 30; i++ {
		f.clock.Advance(5 * time.Minute)
		require.NoError(t, job.Run(ctx))
	}
	assert.Equal(t, engine.MaxEnergy, f.store.Snapshot().Energy)

	// Full bar stays capped.
	require.NoError(t, job.Run(ctx))
	assert.Equal(t, engine.MaxEnergy, f.store.Snapshot().Energy)
}

func TestJobsExposeQueryableCountdown(t *testing.T) {
	f := newFixture(t)
	pub := noopPublisher{}
	job := NewResetCountdownJob(
		command.NewCheckDailyResetHandler(f.store, time.UTC),
		command.NewPerformDailyResetHandler(f.store, time.UTC, pub),
		nil,
	)
	require.NoError(t, job.Run(context.Background()))

	dto, err := query.NewGetResetCountdownHandler(f.store).Handle(context.Background(), query.GetResetCountdownQuery{})
	require.NoError(t, err)
	assert.Equal(t, 14*3600, dto.CountdownSeconds)
	assert.True(t, dto.HasResetToday)
}
