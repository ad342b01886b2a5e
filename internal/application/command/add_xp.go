// Package command contains write operations (CQRS - Commands).
//
// Every handler routes its mutation through the engine store's Dispatch,
// so handlers never observe partially mutated state. Precondition
// failures inside the domain (empty inventory, overdraft) are logged
// no-ops per the engine error policy; validation failures are errors.
package command

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/momentum-hub/progression-engine/internal/domain/powerup"
	"github.com/momentum-hub/progression-engine/internal/domain/progression"
	"github.com/momentum-hub/progression-engine/internal/domain/shared"
	"github.com/momentum-hub/progression-engine/internal/engine"
)

// DefaultAggregateID is used when a command does not carry a user id.
// The engine store is per-profile; multi-profile deployments run one
// store per user and route by id upstream.
const DefaultAggregateID = "local"

func aggregateID(userID string) string {
	if userID == "" {
		return DefaultAggregateID
	}
	return userID
}

// ══════════════════════════════════════════════════════════════════════════════
// ADD XP COMMAND
// Applies an XP delta through the ledger. The effective multiplier is
// aggregated from active xp_boost power-ups at dispatch time; the ledger
// itself never reads the inventory.
// ══════════════════════════════════════════════════════════════════════════════

// AddXPCommand contains the data to award (or deduct) XP.
type AddXPCommand struct {
	// UserID identifies the profile (optional for single-profile mode).
	UserID string

	// Amount is the XP delta. Negative amounts are deductions and
	// bypass multipliers.
	Amount int

	// Source describes where the XP came from (task, session_bonus...).
	Source string

	// CorrelationID for tracing.
	CorrelationID string
}

// Validate validates the command.
func (c AddXPCommand) Validate() error {
	if c.Source == "" {
		return errors.New("add_xp: source is required")
	}
	return nil
}

// AddXPResult contains the outcome of the XP change.
type AddXPResult struct {
	// FinalAmount is the applied delta after multipliers.
	FinalAmount int

	// Multiplier is the effective xp_boost multiplier that was applied.
	Multiplier float64

	// OldLevel and NewLevel bracket the change.
	OldLevel int
	NewLevel int

	// LeveledUp indicates a level was gained.
	LeveledUp bool

	// CurrentXP is the balance after the change.
	CurrentXP int

	// Events contains domain events generated.
	Events []shared.Event
}

// AddXPHandler handles the AddXPCommand.
type AddXPHandler struct {
	store     *engine.Store
	catalog   powerup.Catalog
	publisher shared.EventPublisher
}

// NewAddXPHandler creates a new AddXPHandler.
func NewAddXPHandler(store *engine.Store, catalog powerup.Catalog, publisher shared.EventPublisher) *AddXPHandler {
	return &AddXPHandler{
		store:     store,
		catalog:   catalog,
		publisher: publisher,
	}
}

// Handle executes the add XP command.
func (h *AddXPHandler) Handle(ctx context.Context, cmd AddXPCommand) (*AddXPResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, fmt.Errorf("add_xp: validation failed: %w", err)
	}

	result := &AddXPResult{Events: make([]shared.Event, 0)}

	err := h.store.Dispatch(ctx, "ADD_XP", func(st *engine.State, now time.Time) error {
		mult := powerup.EffectiveMultiplier(st.Inventory, h.catalog, powerup.TypeXPBoost, now)
		res := progression.AddXP(&st.XP, cmd.Amount, mult)

		result.FinalAmount = int(res.FinalAmount)
		result.Multiplier = mult
		result.OldLevel = int(res.OldLevel)
		result.NewLevel = int(res.NewLevel)
		result.LeveledUp = res.LeveledUp
		result.CurrentXP = int(st.XP.CurrentXP)

		event := shared.XPGainedEvent{
			BaseEvent:   shared.NewBaseEvent(shared.EventXPGained, aggregateID(cmd.UserID)).WithCorrelationID(cmd.CorrelationID),
			Amount:      cmd.Amount,
			FinalAmount: int(res.FinalAmount),
			Source:      cmd.Source,
			Multiplier:  mult,
			NewTotalXP:  int(st.XP.TotalXPEarned),
		}
		result.Events = append(result.Events, event)

		if res.LeveledUp {
			levelUp := shared.LevelUpEvent{
				BaseEvent: shared.NewBaseEvent(shared.EventLevelUp, aggregateID(cmd.UserID)).WithCorrelationID(cmd.CorrelationID),
				OldLevel:  int(res.OldLevel),
				NewLevel:  int(res.NewLevel),
			}
			result.Events = append(result.Events, levelUp)
		}
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
// SPEND XP COMMAND
// Deducts XP for an in-app purchase or penalty. Overdraft clamps the
// balance at zero instead of failing.
// ══════════════════════════════════════════════════════════════════════════════

// SpendXPCommand contains the data to deduct XP.
type SpendXPCommand struct {
	// UserID identifies the profile.
	UserID string

	// Amount is the XP to deduct (must be positive).
	Amount int

	// Reason describes the deduction (shop purchase, penalty...).
	Reason string

	// CorrelationID for tracing.
	CorrelationID string
}

// Validate validates the command.
func (c SpendXPCommand) Validate() error {
	if c.Amount <= 0 {
		return errors.New("spend_xp: amount must be positive")
	}
	if c.Reason == "" {
		return errors.New("spend_xp: reason is required")
	}
	return nil
}

// SpendXPResult contains the outcome of the deduction.
type SpendXPResult struct {
	// SpentAmount is the XP actually deducted (clamped at the balance).
	SpentAmount int

	// RemainingXP is the balance after the deduction.
	RemainingXP int

	// Events contains domain events generated.
	Events []shared.Event
}

// SpendXPHandler handles the SpendXPCommand.
type SpendXPHandler struct {
	store     *engine.Store
	publisher shared.EventPublisher
}

// NewSpendXPHandler creates a new SpendXPHandler.
func NewSpendXPHandler(store *engine.Store, publisher shared.EventPublisher) *SpendXPHandler {
	return &SpendXPHandler{store: store, publisher: publisher}
}

// Handle executes the spend XP command.
func (h *SpendXPHandler) Handle(ctx context.Context, cmd SpendXPCommand) (*SpendXPResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, fmt.Errorf("spend_xp: validation failed: %w", err)
	}

	result := &SpendXPResult{Events: make([]shared.Event, 0)}

	err := h.store.Dispatch(ctx, "SPEND_XP", func(st *engine.State, now time.Time) error {
		spent := progression.SpendXP(&st.XP, cmd.Amount)

		result.SpentAmount = int(spent)
		result.RemainingXP = int(st.XP.CurrentXP)

		event := shared.XPSpentEvent{
			BaseEvent:   shared.NewBaseEvent(shared.EventXPSpent, aggregateID(cmd.UserID)).WithCorrelationID(cmd.CorrelationID),
			Amount:      int(spent),
			Reason:      cmd.Reason,
			RemainingXP: int(st.XP.CurrentXP),
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
// CONVERT XP TO GOLD COMMAND
// Converts XP into gold at the fixed rate. Active gold_boost power-ups
// multiply the earned gold, not the XP spent.
// ══════════════════════════════════════════════════════════════════════════════

// ConvertXPToGoldCommand contains the data for a conversion.
type ConvertXPToGoldCommand struct {
	// UserID identifies the profile.
	UserID string

	// XPAmount is the XP the user wants to convert.
	XPAmount int

	// CorrelationID for tracing.
	CorrelationID string
}

// Validate validates the command.
func (c ConvertXPToGoldCommand) Validate() error {
	if c.XPAmount <= 0 {
		return errors.New("convert_xp_to_gold: xp_amount must be positive")
	}
	return nil
}

// ConvertXPToGoldResult contains the conversion outcome.
type ConvertXPToGoldResult struct {
	// XPSpent is the XP actually converted (whole gold units only).
	XPSpent int

	// GoldEarned is the gold credited, after gold_boost multipliers.
	GoldEarned int

	// RemainingXP is the XP balance after conversion.
	RemainingXP int

	// Events contains domain events generated.
	Events []shared.Event
}

// ConvertXPToGoldHandler handles the ConvertXPToGoldCommand.
type ConvertXPToGoldHandler struct {
	store     *engine.Store
	catalog   powerup.Catalog
	publisher shared.EventPublisher
}

// NewConvertXPToGoldHandler creates a new ConvertXPToGoldHandler.
func NewConvertXPToGoldHandler(store *engine.Store, catalog powerup.Catalog, publisher shared.EventPublisher) *ConvertXPToGoldHandler {
	return &ConvertXPToGoldHandler{
		store:     store,
		catalog:   catalog,
		publisher: publisher,
	}
}

// Handle executes the conversion command.
func (h *ConvertXPToGoldHandler) Handle(ctx context.Context, cmd ConvertXPToGoldCommand) (*ConvertXPToGoldResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, fmt.Errorf("convert_xp_to_gold: validation failed: %w", err)
	}

	result := &ConvertXPToGoldResult{Events: make([]shared.Event, 0)}

	err := h.store.Dispatch(ctx, "CONVERT_XP_TO_GOLD", func(st *engine.State, now time.Time) error {
		spent, earned := progression.ConvertXPToGold(&st.XP, cmd.XPAmount)

		// gold_boost multiplies the credited gold after the base
		// conversion; the floor keeps gold integral.
		goldMult := powerup.EffectiveMultiplier(st.Inventory, h.catalog, powerup.TypeGoldBoost, now)
		if goldMult > 1.0 && earned > 0 {
			bonus := progression.Gold(float64(earned)*goldMult) - earned
			st.XP.Gold += bonus
			earned += bonus
		}

		result.XPSpent = int(spent)
		result.GoldEarned = int(earned)
		result.RemainingXP = int(st.XP.CurrentXP)

		if earned > 0 {
			event := shared.GoldConvertedEvent{
				BaseEvent:  shared.NewBaseEvent(shared.EventGoldConverted, aggregateID(cmd.UserID)).WithCorrelationID(cmd.CorrelationID),
				XPSpent:    int(spent),
				GoldEarned: int(earned),
			}
			result.Events = append(result.Events, event)
		}
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
