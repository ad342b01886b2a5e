package engine

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/momentum-hub/progression-engine/internal/domain/progression"
	"github.com/momentum-hub/progression-engine/internal/domain/session"
	"github.com/momentum-hub/progression-engine/internal/domain/shared"
)

func newTestStore(t *testing.T) (*Store, *shared.FakeClock) {
	t.Helper()
	clock := shared.NewFakeClock(time.Date(2024, 6, 15, 10, 0, 0, 0, time.UTC))
	st := NewState(clock.Now(), time.UTC)
	return NewStore(st, clock, nil), clock
}

func TestDispatch_AppliesMutationOnSuccess(t *testing.T) {
	store, _ := newTestStore(t)

	err := store.Dispatch(context.Background(), "ADD_XP", func(st *State, now time.Time) error {
		progression.AddXP(&st.XP, 100, 1.0)
		return nil
	})
	require.NoError(t, err)

	snap := store.Snapshot()
	assert.Equal(t, progression.XP(100), snap.XP.CurrentXP)
}

func TestDispatch_FailClosed(t *testing.T) {
	store, _ := newTestStore(t)
	boom := errors.New("boom")

	err := store.Dispatch(context.Background(), "ADD_XP", func(st *State, now time.Time) error {
		progression.AddXP(&st.XP, 500, 1.0)
		st.Energy = 0
		return boom
	})
	require.ErrorIs(t, err, boom)

	// Частичная мутация не должна просочиться в состояние.
	snap := store.Snapshot()
	assert.Equal(t, progression.XP(0), snap.XP.CurrentXP)
	assert.Equal(t, MaxEnergy, snap.Energy)
}

func TestDispatch_CancelledContext(t *testing.T) {
	store, _ := newTestStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := store.Dispatch(ctx, "ADD_XP", func(st *State, now time.Time) error {
		t.Fatal("mutator must not run with cancelled context")
		return nil
	})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestDispatch_SerializesConcurrentWriters(t *testing.T) {
	store, _ := newTestStore(t)

	const workers = 8
	const perWorker = 50

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < perWorker; j++ {
				_ = store.Dispatch(context.Background(), "ADD_XP", func(st *State, now time.Time) error {
					progression.AddXP(&st.XP, 1, 1.0)
					return nil
				})
			}
		}()
	}
	wg.Wait()

	snap := store.Snapshot()
	assert.Equal(t, progression.XP(workers*perWorker), snap.XP.TotalXPEarned)
}

func TestClose_ForceStopsOpenSession(t *testing.T) {
	store, clock := newTestStore(t)

	err := store.Dispatch(context.Background(), "START_SESSION", func(st *State, now time.Time) error {
		session.Start(&st.Session, now)
		return nil
	})
	require.NoError(t, err)

	clock.Advance(17 * time.Minute)
	final := store.Close()

	assert.False(t, final.Session.IsActive)
	assert.Equal(t, (17 * time.Minute).Milliseconds(), final.Session.TotalActiveTime)
}

func TestClose_RejectsFurtherMutations(t *testing.T) {
	store, _ := newTestStore(t)
	store.Close()

	err := store.Dispatch(context.Background(), "ADD_XP", func(st *State, now time.Time) error {
		return nil
	})
	assert.ErrorIs(t, err, shared.ErrStoreClosed)

	err = store.Restore(NewState(time.Now(), time.UTC))
	assert.ErrorIs(t, err, shared.ErrStoreClosed)
}

func TestSnapshot_IsDeepCopy(t *testing.T) {
	store, _ := newTestStore(t)

	_ = store.Dispatch(context.Background(), "RECORD", func(st *State, now time.Time) error {
		st.Inventory.Owned["double_xp"] = 2
		return nil
	})

	snap := store.Snapshot()
	snap.Inventory.Owned["double_xp"] = 99

	fresh := store.Snapshot()
	assert.Equal(t, 2, fresh.Inventory.Owned["double_xp"])
}

func TestEnergy_SpendAndRegen(t *testing.T) {
	st := NewState(time.Now(), time.UTC)

	assert.True(t, st.SpendEnergy(30))
	assert.Equal(t, 70, st.Energy)

	// Недостаточно энергии - без изменений.
	assert.False(t, st.SpendEnergy(80))
	assert.Equal(t, 70, st.Energy)

	assert.Equal(t, 30, st.RegenEnergy(50))
	assert.Equal(t, MaxEnergy, st.Energy)
	assert.Equal(t, 0, st.RegenEnergy(10))
}
