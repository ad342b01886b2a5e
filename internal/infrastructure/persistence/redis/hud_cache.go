package redis

import (
	"context"
	"errors"
	"time"

	"github.com/momentum-hub/progression-engine/internal/application/query"
	"github.com/momentum-hub/progression-engine/internal/engine"
)

// Sections of the HUD read model.
const (
	hudSectionProgress = "progress"
	hudSectionPowerUps = "powerups"
	hudSectionReset    = "reset"
)

// HUDCache keeps the query-layer DTOs hot in Redis so clients polling
// the HUD do not hit the store for every refresh tick. The scheduler
// refreshes entries, the TTL only bounds staleness after a crash.
type HUDCache struct {
	cache *Cache
}

// NewHUDCache creates a HUDCache on top of the shared Cache client.
func NewHUDCache(cache *Cache) *HUDCache {
	return &HUDCache{cache: cache}
}

// SetProgress caches the progress HUD section.
func (h *HUDCache) SetProgress(ctx context.Context, userID string, dto *query.ProgressDTO) error {
	return h.cache.Set(ctx, HUDKey(userID, hudSectionProgress), dto, TTLHUDCache)
}

// GetProgress returns the cached progress section, or (nil, nil) on miss.
func (h *HUDCache) GetProgress(ctx context.Context, userID string) (*query.ProgressDTO, error) {
	var dto query.ProgressDTO
	if err := h.cache.Get(ctx, HUDKey(userID, hudSectionProgress), &dto); err != nil {
		if errors.Is(err, ErrCacheMiss) {
			return nil, nil
		}
		return nil, err
	}
	return &dto, nil
}

// SetPowerUps caches the active power-ups HUD section.
func (h *HUDCache) SetPowerUps(ctx context.Context, userID string, dto *query.PowerUpsDTO) error {
	return h.cache.Set(ctx, HUDKey(userID, hudSectionPowerUps), dto, TTLHUDCache)
}

// GetPowerUps returns the cached power-ups section, or (nil, nil) on miss.
func (h *HUDCache) GetPowerUps(ctx context.Context, userID string) (*query.PowerUpsDTO, error) {
	var dto query.PowerUpsDTO
	if err := h.cache.Get(ctx, HUDKey(userID, hudSectionPowerUps), &dto); err != nil {
		if errors.Is(err, ErrCacheMiss) {
			return nil, nil
		}
		return nil, err
	}
	return &dto, nil
}

// SetResetCountdown caches the reset countdown HUD section with a TTL
// capped at the countdown itself, so a stale countdown never survives
// past the midnight it was counting to.
func (h *HUDCache) SetResetCountdown(ctx context.Context, userID string, dto *query.ResetCountdownDTO) error {
	ttl := TTLHUDCache
	if remaining := time.Duration(dto.CountdownSeconds) * time.Second; remaining > 0 && remaining < ttl {
		ttl = remaining
	}
	return h.cache.Set(ctx, HUDKey(userID, hudSectionReset), dto, ttl)
}

// GetResetCountdown returns the cached countdown section, or (nil, nil) on miss.
func (h *HUDCache) GetResetCountdown(ctx context.Context, userID string) (*query.ResetCountdownDTO, error) {
	var dto query.ResetCountdownDTO
	if err := h.cache.Get(ctx, HUDKey(userID, hudSectionReset), &dto); err != nil {
		if errors.Is(err, ErrCacheMiss) {
			return nil, nil
		}
		return nil, err
	}
	return &dto, nil
}

// Invalidate drops every HUD section for a user. Called after mutating
// commands so the next poll rebuilds from the store.
func (h *HUDCache) Invalidate(ctx context.Context, userID string) error {
	return h.cache.Delete(ctx,
		HUDKey(userID, hudSectionProgress),
		HUDKey(userID, hudSectionPowerUps),
		HUDKey(userID, hudSectionReset),
	)
}

// SetSnapshot caches a full engine state snapshot.
func (h *HUDCache) SetSnapshot(ctx context.Context, userID string, st *engine.State) error {
	return h.cache.Set(ctx, SnapshotKey(userID), st, TTLSnapshotCache)
}

// GetSnapshot returns the cached state snapshot, or (nil, nil) on miss.
func (h *HUDCache) GetSnapshot(ctx context.Context, userID string) (*engine.State, error) {
	var st engine.State
	if err := h.cache.Get(ctx, SnapshotKey(userID), &st); err != nil {
		if errors.Is(err, ErrCacheMiss) {
			return nil, nil
		}
		return nil, err
	}
	return &st, nil
}
