// Package query contains read operations (CQRS - Queries).
package query

import (
	"context"
	"time"

	"github.com/momentum-hub/progression-engine/internal/domain/progression"
	"github.com/momentum-hub/progression-engine/internal/engine"
)

// ══════════════════════════════════════════════════════════════════════════════
// GET PROGRESS QUERY
// Снимок прогрессии для HUD: уровень, XP, процент до следующего уровня,
// золото и энергия. Это то, что пользователь видит постоянно - запрос
// должен быть дешёвым и не трогать блокировку дольше необходимого.
// ══════════════════════════════════════════════════════════════════════════════

// GetProgressQuery содержит параметры запроса прогресса.
type GetProgressQuery struct {
	// UserID - идентификатор профиля (опционален в одиночном режиме).
	UserID string
}

// Validate проверяет корректность параметров.
func (q *GetProgressQuery) Validate() error {
	return nil
}

// ProgressDTO - снимок прогрессии для отображения.
type ProgressDTO struct {
	// ─────────────────────────────────────────────────────────────────────────
	// Уровень и XP
	// ─────────────────────────────────────────────────────────────────────────

	// Level - текущий уровень (1..100).
	Level int `json:"level"`

	// CurrentXP - текущий XP.
	CurrentXP int `json:"current_xp"`

	// TotalXPEarned - заработано XP за всё время.
	TotalXPEarned int `json:"total_xp_earned"`

	// XPToNextLevel - сколько XP осталось до следующего уровня.
	XPToNextLevel int `json:"xp_to_next_level"`

	// ProgressPct - процент прохождения уровня (0..100).
	ProgressPct float64 `json:"progress_pct"`

	// ─────────────────────────────────────────────────────────────────────────
	// Валюта и ресурсы
	// ─────────────────────────────────────────────────────────────────────────

	// Gold - баланс золота.
	Gold int `json:"gold"`

	// Energy - текущая энергия (0..100).
	Energy int `json:"energy"`

	// ─────────────────────────────────────────────────────────────────────────
	// Бонусы
	// ─────────────────────────────────────────────────────────────────────────

	// BonusXPActive - активен ли временный бонус XP.
	BonusXPActive bool `json:"bonus_xp_active"`

	// BonusXPExpiresIn - секунд до конца бонуса (0 = не активен).
	BonusXPExpiresIn int `json:"bonus_xp_expires_in"`

	// UpdatedAt - момент последней мутации состояния.
	UpdatedAt time.Time `json:"updated_at"`
}

// GetProgressHandler обрабатывает GetProgressQuery.
type GetProgressHandler struct {
	store *engine.Store
}

// NewGetProgressHandler создаёт новый GetProgressHandler.
func NewGetProgressHandler(store *engine.Store) *GetProgressHandler {
	return &GetProgressHandler{store: store}
}

// Handle выполняет запрос.
func (h *GetProgressHandler) Handle(ctx context.Context, q GetProgressQuery) (*ProgressDTO, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}

	dto := &ProgressDTO{}
	now := h.store.Clock().Now()

	h.store.View(func(st *engine.State) {
		info := progression.Progress(st.XP.CurrentXP, st.XP.CurrentLevel)

		dto.Level = int(st.XP.CurrentLevel)
		dto.CurrentXP = int(st.XP.CurrentXP)
		dto.TotalXPEarned = int(st.XP.TotalXPEarned)
		dto.XPToNextLevel = int(info.XPToNext)
		dto.ProgressPct = info.ProgressPct
		dto.Gold = int(st.XP.Gold)
		dto.Energy = st.Energy
		dto.BonusXPActive = st.XP.BonusXPActive
		if st.XP.BonusXPActive && st.XP.BonusXPExpiry != nil {
			remaining := int(st.XP.BonusXPExpiry.Sub(now).Seconds())
			if remaining > 0 {
				dto.BonusXPExpiresIn = remaining
			}
		}
		dto.UpdatedAt = st.UpdatedAt
	})

	return dto, nil
}
