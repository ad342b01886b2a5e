package command

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/momentum-hub/progression-engine/internal/domain/powerup"
	"github.com/momentum-hub/progression-engine/internal/domain/shared"
	"github.com/momentum-hub/progression-engine/internal/engine"
)

// ══════════════════════════════════════════════════════════════════════════════
// BUY POWER-UP COMMAND
// Adds one owned instance. The currency debit lives with the external
// economy collaborator; the engine only tracks the count.
// ══════════════════════════════════════════════════════════════════════════════

// BuyPowerUpCommand contains the data for a purchase.
type BuyPowerUpCommand struct {
	// UserID identifies the profile.
	UserID string

	// PowerUpID is the catalog id to buy.
	PowerUpID string

	// CorrelationID for tracing.
	CorrelationID string
}

// Validate validates the command.
func (c BuyPowerUpCommand) Validate() error {
	if c.PowerUpID == "" {
		return errors.New("buy_powerup: powerup_id is required")
	}
	return nil
}

// BuyPowerUpResult contains the purchase outcome.
type BuyPowerUpResult struct {
	// OwnedCount is the owned count after the purchase.
	OwnedCount int

	// Events contains domain events generated.
	Events []shared.Event
}

// BuyPowerUpHandler handles the BuyPowerUpCommand.
type BuyPowerUpHandler struct {
	store     *engine.Store
	catalog   powerup.Catalog
	publisher shared.EventPublisher
}

// NewBuyPowerUpHandler creates a new BuyPowerUpHandler.
func NewBuyPowerUpHandler(store *engine.Store, catalog powerup.Catalog, publisher shared.EventPublisher) *BuyPowerUpHandler {
	return &BuyPowerUpHandler{store: store, catalog: catalog, publisher: publisher}
}

// Handle executes the buy command.
func (h *BuyPowerUpHandler) Handle(ctx context.Context, cmd BuyPowerUpCommand) (*BuyPowerUpResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, fmt.Errorf("buy_powerup: validation failed: %w", err)
	}
	if _, ok := h.catalog.Lookup(cmd.PowerUpID); !ok {
		return nil, shared.NewDomainError("powerup", "buy", shared.ErrNotFound,
			fmt.Sprintf("unknown power-up: %s", cmd.PowerUpID))
	}

	result := &BuyPowerUpResult{Events: make([]shared.Event, 0)}

	err := h.store.Dispatch(ctx, "BUY_POWERUP", func(st *engine.State, now time.Time) error {
		count := powerup.Buy(&st.Inventory, cmd.PowerUpID)

		result.OwnedCount = count
		event := shared.PowerUpPurchasedEvent{
			BaseEvent:  shared.NewBaseEvent(shared.EventPowerUpPurchased, aggregateID(cmd.UserID)).WithCorrelationID(cmd.CorrelationID),
			PowerUpID:  cmd.PowerUpID,
			OwnedCount: count,
		}
		result.Events = append(result.Events, event)
		return nil
	})
	if err != nil {
		return nil, err
	}

	for _, event := range result.Events {
		_ = h.publisher.Publish(event)
	}
	return result, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// ACTIVATE POWER-UP COMMAND
// Consumes one owned instance and starts a time-boxed activation.
// Zero inventory is a logged no-op (Activated=false), not an error.
// ══════════════════════════════════════════════════════════════════════════════

// ActivatePowerUpCommand contains the data for an activation.
type ActivatePowerUpCommand struct {
	// UserID identifies the profile.
	UserID string

	// PowerUpID is the catalog id to activate.
	PowerUpID string

	// Duration overrides the catalog default when positive.
	Duration time.Duration

	// CorrelationID for tracing.
	CorrelationID string
}

// Validate validates the command.
func (c ActivatePowerUpCommand) Validate() error {
	if c.PowerUpID == "" {
		return errors.New("activate_powerup: powerup_id is required")
	}
	return nil
}

// ActivatePowerUpResult contains the activation outcome.
type ActivatePowerUpResult struct {
	// Activated is false when the precondition failed (nothing owned,
	// not enough energy); state is unchanged in that case.
	Activated bool

	// SkipReason explains a no-op activation.
	SkipReason string

	// ActivationID identifies the created activation instance.
	ActivationID string

	// ExpiresAt is when the effect ends.
	ExpiresAt time.Time

	// EnergySpent is the energy debited from the profile.
	EnergySpent int

	// Events contains domain events generated.
	Events []shared.Event
}

// ActivatePowerUpHandler handles the ActivatePowerUpCommand.
type ActivatePowerUpHandler struct {
	store     *engine.Store
	catalog   powerup.Catalog
	publisher shared.EventPublisher
}

// NewActivatePowerUpHandler creates a new ActivatePowerUpHandler.
func NewActivatePowerUpHandler(store *engine.Store, catalog powerup.Catalog, publisher shared.EventPublisher) *ActivatePowerUpHandler {
	return &ActivatePowerUpHandler{store: store, catalog: catalog, publisher: publisher}
}

// Handle executes the activation command.
func (h *ActivatePowerUpHandler) Handle(ctx context.Context, cmd ActivatePowerUpCommand) (*ActivatePowerUpResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, fmt.Errorf("activate_powerup: validation failed: %w", err)
	}

	def, ok := h.catalog.Lookup(cmd.PowerUpID)
	if !ok {
		return nil, shared.NewDomainError("powerup", "activate", shared.ErrNotFound,
			fmt.Sprintf("unknown power-up: %s", cmd.PowerUpID))
	}

	duration := cmd.Duration
	if duration <= 0 {
		duration = def.DefaultDuration
	}

	result := &ActivatePowerUpResult{Events: make([]shared.Event, 0)}

	err := h.store.Dispatch(ctx, "ACTIVATE_POWERUP", func(st *engine.State, now time.Time) error {
		if st.Inventory.OwnedCount(cmd.PowerUpID) <= 0 {
			result.SkipReason = "not owned"
			return nil
		}
		if !st.SpendEnergy(def.EnergyCost) {
			result.SkipReason = "not enough energy"
			return nil
		}

		activation, ok := powerup.Activate(&st.Inventory, cmd.PowerUpID, duration, now)
		if !ok {
			result.SkipReason = "not owned"
			return nil
		}

		if def.Type == powerup.TypeXPBoost {
			expiry := activation.ExpiresAt
			st.XP.BonusXPActive = true
			st.XP.BonusXPExpiry = &expiry
		}

		result.Activated = true
		result.ActivationID = activation.ActivationID
		result.ExpiresAt = activation.ExpiresAt
		result.EnergySpent = def.EnergyCost

		event := shared.PowerUpActivatedEvent{
			BaseEvent:    shared.NewBaseEvent(shared.EventPowerUpActivated, aggregateID(cmd.UserID)).WithCorrelationID(cmd.CorrelationID),
			PowerUpID:    cmd.PowerUpID,
			ActivationID: activation.ActivationID,
			ExpiresAt:    activation.ExpiresAt,
		}
		result.Events = append(result.Events, event)
		return nil
	})
	if err != nil {
		return nil, err
	}

	for _, event := range result.Events {
		_ = h.publisher.Publish(event)
	}
	return result, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// EXPIRE POWER-UP COMMAND
// Removes active entries. With PowerUpID set, removes ALL entries that
// share the catalog id; with ActivationID set, removes exactly one
// instance. The expiry poller uses neither and sweeps due entries.
// ══════════════════════════════════════════════════════════════════════════════

// ExpirePowerUpCommand contains the data for an expiry.
type ExpirePowerUpCommand struct {
	// UserID identifies the profile.
	UserID string

	// PowerUpID removes all active entries of this catalog id.
	PowerUpID string

	// ActivationID removes a single activation instance instead.
	ActivationID string

	// SweepDue removes every entry past its ExpiresAt.
	SweepDue bool

	// CorrelationID for tracing.
	CorrelationID string
}

// Validate validates the command.
func (c ExpirePowerUpCommand) Validate() error {
	if c.PowerUpID == "" && c.ActivationID == "" && !c.SweepDue {
		return errors.New("expire_powerup: powerup_id, activation_id or sweep_due is required")
	}
	return nil
}

// ExpirePowerUpResult contains the expiry outcome.
type ExpirePowerUpResult struct {
	// RemovedEntries is the number of active entries removed. Zero when
	// nothing matched (a no-op, not an error).
	RemovedEntries int

	// Expired lists the removed activations (sweep mode).
	Expired []powerup.Activation

	// Events contains domain events generated.
	Events []shared.Event
}

// ExpirePowerUpHandler handles the ExpirePowerUpCommand.
type ExpirePowerUpHandler struct {
	store     *engine.Store
	publisher shared.EventPublisher
}

// NewExpirePowerUpHandler creates a new ExpirePowerUpHandler.
func NewExpirePowerUpHandler(store *engine.Store, publisher shared.EventPublisher) *ExpirePowerUpHandler {
	return &ExpirePowerUpHandler{store: store, publisher: publisher}
}

// Handle executes the expiry command.
func (h *ExpirePowerUpHandler) Handle(ctx context.Context, cmd ExpirePowerUpCommand) (*ExpirePowerUpResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, fmt.Errorf("expire_powerup: validation failed: %w", err)
	}

	result := &ExpirePowerUpResult{Events: make([]shared.Event, 0)}

	err := h.store.Dispatch(ctx, "EXPIRE_POWERUP", func(st *engine.State, now time.Time) error {
		switch {
		case cmd.SweepDue:
			expired := powerup.ExpireDue(&st.Inventory, now)
			result.Expired = expired
			result.RemovedEntries = len(expired)
			for _, a := range expired {
				event := shared.PowerUpExpiredEvent{
					BaseEvent:      shared.NewBaseEvent(shared.EventPowerUpExpired, aggregateID(cmd.UserID)).WithCorrelationID(cmd.CorrelationID),
					PowerUpID:      a.ID,
					RemovedEntries: 1,
				}
				result.Events = append(result.Events, event)
			}
		case cmd.ActivationID != "":
			result.RemovedEntries = powerup.ExpireInstance(&st.Inventory, cmd.ActivationID)
		default:
			result.RemovedEntries = powerup.ExpireByID(&st.Inventory, cmd.PowerUpID)
			if result.RemovedEntries > 0 {
				event := shared.PowerUpExpiredEvent{
					BaseEvent:      shared.NewBaseEvent(shared.EventPowerUpExpired, aggregateID(cmd.UserID)).WithCorrelationID(cmd.CorrelationID),
					PowerUpID:      cmd.PowerUpID,
					RemovedEntries: result.RemovedEntries,
				}
				result.Events = append(result.Events, event)
			}
		}

		clearStaleBonus(st, now)
		return nil
	})
	if err != nil {
		return nil, err
	}

	for _, event := range result.Events {
		_ = h.publisher.Publish(event)
	}
	return result, nil
}

// clearStaleBonus drops the HUD bonus flag once no xp_boost remains.
func clearStaleBonus(st *engine.State, now time.Time) {
	if !st.XP.BonusXPActive {
		return
	}
	if st.XP.BonusXPExpiry != nil && st.XP.BonusXPExpiry.After(now) && len(st.Inventory.Active) > 0 {
		return
	}
	st.XP.BonusXPActive = false
	st.XP.BonusXPExpiry = nil
}
