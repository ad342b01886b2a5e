// Package streak содержит доменную модель серий активности: определение
// продолжения и разрыва серии по границам календарных дней, штрафы за
// неактивность и дневные корзины активности.
//
// Все даты здесь - локальные календарные даты пользователя в формате
// YYYY-MM-DD. Сравнение идёт только по датам, без компоненты времени.
package streak

import (
	"math"
	"time"

	"github.com/momentum-hub/progression-engine/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// STREAK STATE
// ══════════════════════════════════════════════════════════════════════════════

// DayBucket - корзина активности за один календарный день.
// Корзина создаётся при первой активности дня и только инкрементируется;
// корзины никогда не удаляются (старые просто игнорируются вне окна
// отображения).
type DayBucket struct {
	// ProblemsSolved - решено задач за день.
	ProblemsSolved int `json:"problems_solved"`

	// TasksCompleted - выполнено задач за день.
	TasksCompleted int `json:"tasks_completed"`

	// XPEarned - заработано XP за день.
	XPEarned int `json:"xp_earned"`

	// ActiveMinutes - минуты активности за день.
	ActiveMinutes int `json:"active_minutes"`

	// LastActivityTime - время последней активности дня (перезаписывается).
	LastActivityTime time.Time `json:"last_activity_time"`
}

// ActivityDelta - приращение для дневной корзины.
type ActivityDelta struct {
	ProblemsSolved int
	TasksCompleted int
	XPEarned       int
	ActiveMinutes  int
	Timestamp      time.Time
}

// State - состояние трекера серий. Plain serializable документ.
type State struct {
	// CurrentStreak - текущая серия дней подряд (>= 0).
	CurrentStreak int `json:"current_streak"`

	// LongestStreak - лучшая серия за всю историю. Монотонный максимум,
	// всегда >= CurrentStreak.
	LongestStreak int `json:"longest_streak"`

	// LastActivityDate - локальная дата последней активности (YYYY-MM-DD).
	LastActivityDate string `json:"last_activity_date"`

	// StreakStartDate - дата начала текущей серии.
	StreakStartDate string `json:"streak_start_date"`

	// DailyActivity - корзины активности по датам.
	DailyActivity map[string]DayBucket `json:"daily_activity"`
}

// NewState создаёт пустое состояние трекера.
func NewState() State {
	return State{
		DailyActivity: make(map[string]DayBucket),
	}
}

// Clone создаёт глубокую копию состояния.
func (s State) Clone() State {
	clone := s
	clone.DailyActivity = make(map[string]DayBucket, len(s.DailyActivity))
	for k, v := range s.DailyActivity {
		clone.DailyActivity[k] = v
	}
	return clone
}

// ══════════════════════════════════════════════════════════════════════════════
// DAY-BOUNDARY LOGIC
// ══════════════════════════════════════════════════════════════════════════════

// Today возвращает локальную календарную дату "сегодня" как строку.
// Именно локальное форматирование, а не UTC-усечение: UTC сдвинуло бы
// границы дня для пользователей вне UTC.
func Today(now time.Time, loc *time.Location) string {
	return timeutil.DateKey(now, loc)
}

// AdvanceResult - результат продвижения серии.
type AdvanceResult struct {
	// NewStreak - новая длина серии.
	NewStreak int

	// Broken - серия была разорвана пропуском дней.
	Broken bool

	// Continued - активность продолжила (или не изменила) серию.
	Continued bool

	// DaysInactive - сколько дней пропущено (при разрыве).
	DaysInactive int

	// ClockSkew - дата последней активности в будущем (аномалия часов).
	// Серия не меняется; вызывающий обязан залогировать.
	ClockSkew bool
}

// Advance вычисляет новую длину серии по дате последней активности и
// сегодняшней дате. Сравнение только календарных дат:
//
//   - пустая lastActivityDate: первая активность вообще, серия = 1;
//   - тот же день: без изменений, continued;
//   - следующий день: серия + 1, continued;
//   - пропуск > 1 дня: сброс в 1, broken, daysInactive = разница;
//   - отрицательная разница (часы назад): аномалия, серия не меняется.
func Advance(currentStreak int, lastActivityDate, today string, loc *time.Location) AdvanceResult {
	if lastActivityDate == "" {
		return AdvanceResult{NewStreak: 1, Continued: false}
	}

	daysDiff := timeutil.DaysBetweenKeys(lastActivityDate, today, loc)

	switch {
	case daysDiff == 0:
		return AdvanceResult{NewStreak: currentStreak, Continued: true}
	case daysDiff == 1:
		return AdvanceResult{NewStreak: currentStreak + 1, Continued: true}
	case daysDiff > 1:
		return AdvanceResult{NewStreak: 1, Broken: true, DaysInactive: daysDiff}
	default:
		// daysDiff < 0: будущая дата последней активности.
		return AdvanceResult{NewStreak: currentStreak, Continued: true, ClockSkew: true}
	}
}

// Apply применяет результат Advance к состоянию: обновляет текущую и
// лучшую серии, даты начала и последней активности.
func Apply(state *State, res AdvanceResult, today string) {
	if res.ClockSkew {
		return
	}

	startedFresh := state.LastActivityDate == "" || res.Broken
	state.CurrentStreak = res.NewStreak
	if startedFresh {
		state.StreakStartDate = today
	}
	if state.CurrentStreak > state.LongestStreak {
		state.LongestStreak = state.CurrentStreak
	}
	state.LastActivityDate = today
}

// ══════════════════════════════════════════════════════════════════════════════
// INACTIVITY PENALTY
// ══════════════════════════════════════════════════════════════════════════════

// PenaltyResult - результат вычисления штрафа за неактивность.
type PenaltyResult struct {
	// ShouldPunish - нужно ли применять штраф.
	ShouldPunish bool

	// XPPenalty - сумма штрафа: floor(currentXP * rate).
	XPPenalty int

	// StreakReset - принудительный сброс серии (только на верхнем ярусе).
	StreakReset bool
}

// InactivityPenalty вычисляет ступенчатый штраф за пропущенные дни.
// Ярусы проверяются от верхнего порога вниз:
//
//	>= 14 дней: 50% текущего XP + принудительный сброс серии;
//	7-13 дней:  25%;
//	3-6 дней:   10%;
//	1-2 дня:    5%;
//	0 дней:     без штрафа.
func InactivityPenalty(daysInactive, currentXP int) PenaltyResult {
	if daysInactive <= 0 || currentXP <= 0 {
		return PenaltyResult{}
	}

	var rate float64
	reset := false

	switch {
	case daysInactive >= 14:
		rate = 0.50
		reset = true
	case daysInactive >= 7:
		rate = 0.25
	case daysInactive >= 3:
		rate = 0.10
	default:
		rate = 0.05
	}

	return PenaltyResult{
		ShouldPunish: true,
		XPPenalty:    int(math.Floor(float64(currentXP) * rate)),
		StreakReset:  reset,
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// DAILY ACTIVITY BUCKETS
// ══════════════════════════════════════════════════════════════════════════════

// RecordActivity добавляет приращение к корзине указанной даты.
// Корзина создаётся при первом обращении; счётчики только растут,
// LastActivityTime перезаписывается. Корзины никогда не удаляются.
func RecordActivity(state *State, date string, delta ActivityDelta) {
	if state.DailyActivity == nil {
		state.DailyActivity = make(map[string]DayBucket)
	}

	bucket := state.DailyActivity[date]
	bucket.ProblemsSolved += clampNonNegative(delta.ProblemsSolved)
	bucket.TasksCompleted += clampNonNegative(delta.TasksCompleted)
	bucket.XPEarned += clampNonNegative(delta.XPEarned)
	bucket.ActiveMinutes += clampNonNegative(delta.ActiveMinutes)
	if !delta.Timestamp.IsZero() {
		bucket.LastActivityTime = delta.Timestamp
	}
	state.DailyActivity[date] = bucket
}

// clampNonNegative зажимает отрицательные приращения в ноль:
// корзины только инкрементируются.
func clampNonNegative(v int) int {
	if v < 0 {
		return 0
	}
	return v
}
