package query

import (
	"context"
	"errors"
	"time"

	"github.com/momentum-hub/progression-engine/internal/domain/streak"
	"github.com/momentum-hub/progression-engine/internal/engine"
	"github.com/momentum-hub/progression-engine/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// GET STREAK QUERY
// Состояние серии плюс тепловая карта активности за последние N дней.
// Корзины хранятся по датам и никогда не удаляются, поэтому карта
// строится простым проходом по окну дат.
// ══════════════════════════════════════════════════════════════════════════════

// GetStreakQuery содержит параметры запроса серии.
type GetStreakQuery struct {
	// UserID - идентификатор профиля.
	UserID string

	// IncludeHeatmap - включить тепловую карту активности.
	IncludeHeatmap bool

	// HeatmapDays - размер окна карты (по умолчанию 30, максимум 365).
	HeatmapDays int
}

// Validate проверяет и нормализует параметры.
func (q *GetStreakQuery) Validate() error {
	if q.HeatmapDays < 0 {
		return errors.New("heatmap_days cannot be negative")
	}
	if q.HeatmapDays == 0 {
		q.HeatmapDays = 30
	}
	if q.HeatmapDays > 365 {
		q.HeatmapDays = 365
	}
	return nil
}

// HeatmapCellDTO - одна ячейка тепловой карты.
type HeatmapCellDTO struct {
	// Date - локальная дата (YYYY-MM-DD).
	Date string `json:"date"`

	// ProblemsSolved - решено задач.
	ProblemsSolved int `json:"problems_solved"`

	// TasksCompleted - выполнено задач.
	TasksCompleted int `json:"tasks_completed"`

	// XPEarned - заработано XP.
	XPEarned int `json:"xp_earned"`

	// ActiveMinutes - минуты активности.
	ActiveMinutes int `json:"active_minutes"`
}

// StreakDTO - снимок серии для отображения.
type StreakDTO struct {
	// CurrentStreak - текущая серия.
	CurrentStreak int `json:"current_streak"`

	// LongestStreak - лучшая серия.
	LongestStreak int `json:"longest_streak"`

	// LastActivityDate - дата последней активности.
	LastActivityDate string `json:"last_activity_date"`

	// StreakStartDate - дата начала текущей серии.
	StreakStartDate string `json:"streak_start_date"`

	// ActiveToday - была ли активность сегодня.
	ActiveToday bool `json:"active_today"`

	// Heatmap - карта активности (от старых дат к новым).
	Heatmap []HeatmapCellDTO `json:"heatmap,omitempty"`
}

// GetStreakHandler обрабатывает GetStreakQuery.
type GetStreakHandler struct {
	store    *engine.Store
	location *time.Location
}

// NewGetStreakHandler создаёт новый GetStreakHandler.
func NewGetStreakHandler(store *engine.Store, location *time.Location) *GetStreakHandler {
	return &GetStreakHandler{store: store, location: location}
}

// Handle выполняет запрос.
func (h *GetStreakHandler) Handle(ctx context.Context, q GetStreakQuery) (*StreakDTO, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}

	dto := &StreakDTO{}
	now := h.store.Clock().Now()
	today := streak.Today(now, h.location)

	h.store.View(func(st *engine.State) {
		dto.CurrentStreak = st.Streak.CurrentStreak
		dto.LongestStreak = st.Streak.LongestStreak
		dto.LastActivityDate = st.Streak.LastActivityDate
		dto.StreakStartDate = st.Streak.StreakStartDate
		dto.ActiveToday = st.Streak.LastActivityDate == today

		if q.IncludeHeatmap {
			dto.Heatmap = buildHeatmap(st.Streak, now, h.location, q.HeatmapDays)
		}
	})

	return dto, nil
}

// buildHeatmap собирает окно из days ячеек, заканчивающееся сегодняшним
// днём. Дни без активности дают нулевые ячейки.
func buildHeatmap(st streak.State, now time.Time, loc *time.Location, days int) []HeatmapCellDTO {
	cells := make([]HeatmapCellDTO, 0, days)
	start := timeutil.StartOfDay(now, loc).AddDate(0, 0, -(days - 1))

	for i := 0; i < days; i++ {
		date := timeutil.DateKey(start.AddDate(0, 0, i), loc)
		bucket := st.DailyActivity[date]
		cells = append(cells, HeatmapCellDTO{
			Date:           date,
			ProblemsSolved: bucket.ProblemsSolved,
			TasksCompleted: bucket.TasksCompleted,
			XPEarned:       bucket.XPEarned,
			ActiveMinutes:  bucket.ActiveMinutes,
		})
	}
	return cells
}
