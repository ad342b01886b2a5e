package powerup

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

func TestBuy_IncrementsOwned(t *testing.T) {
	inv := NewInventory()

	assert.Equal(t, 1, Buy(&inv, "double_xp"))
	assert.Equal(t, 2, Buy(&inv, "double_xp"))
	assert.Equal(t, 2, inv.OwnedCount("double_xp"))
}

func TestActivate_ConsumesExactlyOne(t *testing.T) {
	inv := NewInventory()
	Buy(&inv, "double_xp")
	Buy(&inv, "double_xp")

	activation, ok := Activate(&inv, "double_xp", 30*time.Minute, testNow)

	require.True(t, ok)
	assert.Equal(t, 1, inv.OwnedCount("double_xp"))
	assert.NotEmpty(t, activation.ActivationID)
	assert.Equal(t, testNow.Add(30*time.Minute), activation.ExpiresAt)
	assert.True(t, activation.ExpiresAt.After(testNow))
	assert.Len(t, inv.Active, 1)
}

func TestActivate_ZeroInventoryIsNoOp(t *testing.T) {
	inv := NewInventory()

	_, ok := Activate(&inv, "double_xp", 30*time.Minute, testNow)

	assert.False(t, ok)
	assert.Empty(t, inv.Owned["double_xp"])
	assert.Nil(t, inv.Active)
}

func TestActivate_InstanceIDsAreUnique(t *testing.T) {
	inv := NewInventory()
	Buy(&inv, "double_xp")
	Buy(&inv, "double_xp")

	a1, _ := Activate(&inv, "double_xp", time.Hour, testNow)
	a2, _ := Activate(&inv, "double_xp", time.Hour, testNow)

	assert.NotEqual(t, a1.ActivationID, a2.ActivationID)
}

func TestActivate_NonPositiveDurationClamped(t *testing.T) {
	inv := NewInventory()
	Buy(&inv, "double_xp")

	activation, ok := Activate(&inv, "double_xp", 0, testNow)

	require.True(t, ok)
	assert.True(t, activation.ExpiresAt.After(testNow))
}

func TestExpireByID_RemovesAllMatchingInstances(t *testing.T) {
	inv := NewInventory()
	Buy(&inv, "double_xp")
	Buy(&inv, "double_xp")
	Buy(&inv, "focus_surge")

	Activate(&inv, "double_xp", time.Hour, testNow)
	Activate(&inv, "double_xp", 2*time.Hour, testNow)
	Activate(&inv, "focus_surge", time.Hour, testNow)

	removed := ExpireByID(&inv, "double_xp")

	// Both concurrent double_xp instances go at once; the unrelated
	// activation survives.
	assert.Equal(t, 2, removed)
	assert.Equal(t, 0, inv.CountActiveByID("double_xp"))
	assert.Equal(t, 1, inv.CountActiveByID("focus_surge"))
}

func TestExpireByID_UnknownIDIsNoOp(t *testing.T) {
	inv := NewInventory()
	Buy(&inv, "double_xp")
	Activate(&inv, "double_xp", time.Hour, testNow)

	removed := ExpireByID(&inv, "nonexistent")

	assert.Equal(t, 0, removed)
	assert.Len(t, inv.Active, 1)
}

func TestExpireInstance_RemovesExactlyOne(t *testing.T) {
	inv := NewInventory()
	Buy(&inv, "double_xp")
	Buy(&inv, "double_xp")

	a1, _ := Activate(&inv, "double_xp", time.Hour, testNow)
	Activate(&inv, "double_xp", time.Hour, testNow)

	removed := ExpireInstance(&inv, a1.ActivationID)

	assert.Equal(t, 1, removed)
	assert.Equal(t, 1, inv.CountActiveByID("double_xp"))
}

func TestExpireDue_Idempotent(t *testing.T) {
	inv := NewInventory()
	Buy(&inv, "double_xp")
	Buy(&inv, "focus_surge")

	Activate(&inv, "double_xp", 10*time.Minute, testNow)
	Activate(&inv, "focus_surge", time.Hour, testNow)

	later := testNow.Add(30 * time.Minute)

	expired := ExpireDue(&inv, later)
	require.Len(t, expired, 1)
	assert.Equal(t, "double_xp", expired[0].ID)
	assert.Len(t, inv.Active, 1)

	// Polling again with the same clock is a no-op.
	assert.Empty(t, ExpireDue(&inv, later))
	assert.Len(t, inv.Active, 1)
}

func TestExpireDue_BoundaryExactlyAtExpiry(t *testing.T) {
	inv := NewInventory()
	Buy(&inv, "double_xp")
	activation, _ := Activate(&inv, "double_xp", 10*time.Minute, testNow)

	// expiresAt <= now removes the entry.
	expired := ExpireDue(&inv, activation.ExpiresAt)
	assert.Len(t, expired, 1)
}

func TestEffectiveMultiplier_ProductOfActiveXPBoosts(t *testing.T) {
	catalog := DefaultCatalog()
	inv := NewInventory()
	Buy(&inv, "double_xp")
	Buy(&inv, "focus_surge")
	Buy(&inv, "gold_rush")

	Activate(&inv, "double_xp", time.Hour, testNow)   // 2.0 xp_boost
	Activate(&inv, "focus_surge", time.Hour, testNow) // 1.5 xp_boost
	Activate(&inv, "gold_rush", time.Hour, testNow)   // gold_boost, ignored

	mult := EffectiveMultiplier(inv, catalog, TypeXPBoost, testNow)
	assert.InDelta(t, 3.0, mult, 1e-9)

	goldMult := EffectiveMultiplier(inv, catalog, TypeGoldBoost, testNow)
	assert.InDelta(t, 2.0, goldMult, 1e-9)
}

func TestEffectiveMultiplier_IgnoresExpiredEntries(t *testing.T) {
	catalog := DefaultCatalog()
	inv := NewInventory()
	Buy(&inv, "double_xp")
	Activate(&inv, "double_xp", 10*time.Minute, testNow)

	mult := EffectiveMultiplier(inv, catalog, TypeXPBoost, testNow.Add(time.Hour))
	assert.InDelta(t, 1.0, mult, 1e-9)
}

func TestNextExpiry(t *testing.T) {
	inv := NewInventory()

	_, found := inv.NextExpiry()
	assert.False(t, found)

	Buy(&inv, "double_xp")
	Buy(&inv, "focus_surge")
	Activate(&inv, "double_xp", 2*time.Hour, testNow)
	a, _ := Activate(&inv, "focus_surge", time.Hour, testNow)

	next, found := inv.NextExpiry()
	require.True(t, found)
	assert.Equal(t, a.ExpiresAt, next)
}

func TestInventoryClone_Independent(t *testing.T) {
	inv := NewInventory()
	Buy(&inv, "double_xp")
	Activate(&inv, "double_xp", time.Hour, testNow)

	clone := inv.Clone()
	Buy(&clone, "double_xp")
	ExpireByID(&clone, "double_xp")

	assert.Equal(t, 0, inv.OwnedCount("double_xp"))
	assert.Len(t, inv.Active, 1)
	assert.Equal(t, 1, clone.OwnedCount("double_xp"))
	assert.Nil(t, clone.Active)
}
