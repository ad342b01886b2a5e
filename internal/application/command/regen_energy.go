package command

import (
	"context"
	"time"

	"github.com/momentum-hub/progression-engine/internal/domain/shared"
	"github.com/momentum-hub/progression-engine/internal/engine"
)

// ══════════════════════════════════════════════════════════════════════════════
// REGEN ENERGY COMMAND
// Issued by the 5-minute regen job. Energy refills by a fixed amount
// with a hard cap; a full bar is a silent no-op.
// ══════════════════════════════════════════════════════════════════════════════

// RegenEnergyCommand restores energy by the regen amount.
type RegenEnergyCommand struct {
	// UserID identifies the profile.
	UserID string

	// Amount overrides the default regen amount when positive.
	Amount int
}

// Validate validates the command.
func (c RegenEnergyCommand) Validate() error {
	return nil
}

// RegenEnergyResult contains the regen outcome.
type RegenEnergyResult struct {
	// Regenerated is the energy actually added.
	Regenerated int

	// Energy is the level after the regen.
	Energy int

	// Events contains domain events generated.
	Events []shared.Event
}

// RegenEnergyHandler handles the RegenEnergyCommand.
type RegenEnergyHandler struct {
	store     *engine.Store
	publisher shared.EventPublisher
}

// NewRegenEnergyHandler creates a new RegenEnergyHandler.
func NewRegenEnergyHandler(store *engine.Store, publisher shared.EventPublisher) *RegenEnergyHandler {
	return &RegenEnergyHandler{store: store, publisher: publisher}
}

// Handle executes the regen command.
func (h *RegenEnergyHandler) Handle(ctx context.Context, cmd RegenEnergyCommand) (*RegenEnergyResult, error) {
	amount := cmd.Amount
	if amount <= 0 {
		amount = engine.EnergyRegenAmount
	}

	result := &RegenEnergyResult{Events: make([]shared.Event, 0)}

	err := h.store.Dispatch(ctx, "REGEN_ENERGY", func(st *engine.State, now time.Time) error {
		result.Regenerated = st.RegenEnergy(amount)
		result.Energy = st.Energy

		if result.Regenerated > 0 {
			event := shared.EnergyRegeneratedEvent{
				BaseEvent: shared.NewBaseEvent(shared.EventEnergyRegenerated, aggregateID(cmd.UserID)),
				NewEnergy: st.Energy,
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
