package query

import (
	"context"
	"time"

	"github.com/momentum-hub/progression-engine/internal/domain/reset"
	"github.com/momentum-hub/progression-engine/internal/engine"
)

// ══════════════════════════════════════════════════════════════════════════════
// GET RESET COUNTDOWN QUERY
// Обратный отсчёт до локальной полуночи. Значение всегда пересчитывается
// от текущего времени - хранимое поле лишь кэш последнего тика.
// ══════════════════════════════════════════════════════════════════════════════

// GetResetCountdownQuery содержит параметры запроса.
type GetResetCountdownQuery struct {
	// UserID - идентификатор профиля.
	UserID string
}

// Validate проверяет корректность параметров.
func (q *GetResetCountdownQuery) Validate() error {
	return nil
}

// ResetCountdownDTO - снимок обратного отсчёта.
type ResetCountdownDTO struct {
	// CountdownSeconds - секунд до следующей полуночи.
	CountdownSeconds int `json:"countdown_seconds"`

	// NextResetTime - следующая локальная полночь.
	NextResetTime time.Time `json:"next_reset_time"`

	// LastResetDate - дата последнего выполненного сброса.
	LastResetDate string `json:"last_reset_date"`

	// HasResetToday - выполнялся ли сброс сегодня.
	HasResetToday bool `json:"has_reset_today"`
}

// GetResetCountdownHandler обрабатывает GetResetCountdownQuery.
type GetResetCountdownHandler struct {
	store *engine.Store
}

// NewGetResetCountdownHandler создаёт новый GetResetCountdownHandler.
func NewGetResetCountdownHandler(store *engine.Store) *GetResetCountdownHandler {
	return &GetResetCountdownHandler{store: store}
}

// Handle выполняет запрос.
func (h *GetResetCountdownHandler) Handle(ctx context.Context, q GetResetCountdownQuery) (*ResetCountdownDTO, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}

	dto := &ResetCountdownDTO{}
	now := h.store.Clock().Now()

	h.store.View(func(st *engine.State) {
		dto.CountdownSeconds = reset.Countdown(st.Reset.NextResetTime, now)
		dto.NextResetTime = st.Reset.NextResetTime
		dto.LastResetDate = st.Reset.LastResetDate
		dto.HasResetToday = st.Reset.HasResetToday
	})

	return dto, nil
}
