package query

import (
	"context"

	"github.com/momentum-hub/progression-engine/internal/domain/powerup"
	"github.com/momentum-hub/progression-engine/internal/engine"
)

// ══════════════════════════════════════════════════════════════════════════════
// GET ACTIVE POWER-UPS QUERY
// Инвентарь и активные усилители с оставшимся временем. HUD опрашивает
// этот запрос для бейджей активных эффектов; оставшееся время считается
// заново при каждом запросе, а не декрементируется.
// ══════════════════════════════════════════════════════════════════════════════

// GetActivePowerUpsQuery содержит параметры запроса.
type GetActivePowerUpsQuery struct {
	// UserID - идентификатор профиля.
	UserID string
}

// Validate проверяет корректность параметров.
func (q *GetActivePowerUpsQuery) Validate() error {
	return nil
}

// ActivePowerUpDTO - одна активная запись.
type ActivePowerUpDTO struct {
	// ActivationID - идентификатор активации.
	ActivationID string `json:"activation_id"`

	// PowerUpID - идентификатор усилителя из каталога.
	PowerUpID string `json:"powerup_id"`

	// Name - отображаемое имя.
	Name string `json:"name"`

	// Type - тип эффекта.
	Type string `json:"type"`

	// Multiplier - множитель эффекта.
	Multiplier float64 `json:"multiplier"`

	// RemainingSeconds - секунд до истечения.
	RemainingSeconds int `json:"remaining_seconds"`
}

// OwnedPowerUpDTO - запись инвентаря.
type OwnedPowerUpDTO struct {
	// PowerUpID - идентификатор усилителя.
	PowerUpID string `json:"powerup_id"`

	// Name - отображаемое имя.
	Name string `json:"name"`

	// Count - количество во владении.
	Count int `json:"count"`
}

// PowerUpsDTO - снимок инвентаря и активных эффектов.
type PowerUpsDTO struct {
	// Owned - инвентарь.
	Owned []OwnedPowerUpDTO `json:"owned"`

	// Active - активные усилители.
	Active []ActivePowerUpDTO `json:"active"`

	// XPMultiplier - действующий множитель XP (произведение активных
	// xp_boost эффектов; 1.0 = нет эффектов).
	XPMultiplier float64 `json:"xp_multiplier"`
}

// GetActivePowerUpsHandler обрабатывает GetActivePowerUpsQuery.
type GetActivePowerUpsHandler struct {
	store   *engine.Store
	catalog powerup.Catalog
}

// NewGetActivePowerUpsHandler создаёт новый GetActivePowerUpsHandler.
func NewGetActivePowerUpsHandler(store *engine.Store, catalog powerup.Catalog) *GetActivePowerUpsHandler {
	return &GetActivePowerUpsHandler{store: store, catalog: catalog}
}

// Handle выполняет запрос.
func (h *GetActivePowerUpsHandler) Handle(ctx context.Context, q GetActivePowerUpsQuery) (*PowerUpsDTO, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}

	dto := &PowerUpsDTO{
		Owned:  make([]OwnedPowerUpDTO, 0),
		Active: make([]ActivePowerUpDTO, 0),
	}
	now := h.store.Clock().Now()

	h.store.View(func(st *engine.State) {
		for id, count := range st.Inventory.Owned {
			if count <= 0 {
				continue
			}
			name := id
			if def, ok := h.catalog.Lookup(id); ok {
				name = def.Name
			}
			dto.Owned = append(dto.Owned, OwnedPowerUpDTO{
				PowerUpID: id,
				Name:      name,
				Count:     count,
			})
		}

		for _, a := range st.Inventory.Active {
			remaining := int(a.Remaining(now).Seconds())
			if remaining <= 0 {
				// Истёк, но поллер ещё не снял запись.
				continue
			}
			entry := ActivePowerUpDTO{
				ActivationID:     a.ActivationID,
				PowerUpID:        a.ID,
				Name:             a.ID,
				RemainingSeconds: remaining,
			}
			if def, ok := h.catalog.Lookup(a.ID); ok {
				entry.Name = def.Name
				entry.Type = string(def.Type)
				entry.Multiplier = def.Multiplier
			}
			dto.Active = append(dto.Active, entry)
		}

		dto.XPMultiplier = powerup.EffectiveMultiplier(st.Inventory, h.catalog, powerup.TypeXPBoost, now)
	})

	return dto, nil
}
