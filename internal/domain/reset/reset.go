// Package reset содержит доменную модель ежедневного сброса: отсчёт
// до локальной полуночи и детектор перехода через границу дня.
//
// Отсчёт пересчитывается заново на каждом тике от wall-clock, а не
// декрементируется - так исключается накопительный дрейф таймера.
// Сброс для одной даты срабатывает ровно один раз: защита от двойного
// срабатывания при почти одновременных тиках - флаг HasResetToday.
package reset

import (
	"time"

	"github.com/momentum-hub/progression-engine/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// RESET STATE
// ══════════════════════════════════════════════════════════════════════════════

// State - состояние планировщика ежедневного сброса. Plain serializable
// документ.
type State struct {
	// LastResetDate - локальная дата последнего выполненного сброса.
	LastResetDate string `json:"last_reset_date"`

	// NextResetTime - следующая локальная полночь.
	NextResetTime time.Time `json:"next_reset_time"`

	// ResetCountdown - секунды до сброса. Пересчитывается,
	// не декрементируется.
	ResetCountdown int `json:"reset_countdown"`

	// HasResetToday - выполнен ли сброс за сегодняшнюю дату.
	HasResetToday bool `json:"has_reset_today"`

	// RolloverMarker - дата последней проверки перехода дня (маркер
	// 60-секундного поллера).
	RolloverMarker string `json:"rollover_marker"`
}

// NewState создаёт состояние с вычисленной следующей полуночью.
func NewState(now time.Time, loc *time.Location) State {
	next := timeutil.NextMidnight(now, loc)
	return State{
		NextResetTime:  next,
		ResetCountdown: timeutil.SecondsUntil(next, now),
		RolloverMarker: timeutil.DateKey(now, loc),
	}
}

// Clone создаёт копию состояния.
func (s State) Clone() State {
	return s
}

// ══════════════════════════════════════════════════════════════════════════════
// COUNTDOWN
// ══════════════════════════════════════════════════════════════════════════════

// NextResetTime возвращает локальную полночь дня, следующего за "сейчас".
func NextResetTime(now time.Time, loc *time.Location) time.Time {
	return timeutil.NextMidnight(now, loc)
}

// Countdown возвращает max(0, floor((nextReset - now) в секундах)).
// Вызывается заново на каждом тике.
func Countdown(nextReset, now time.Time) int {
	return timeutil.SecondsUntil(nextReset, now)
}

// Tick пересчитывает отсчёт в состоянии от текущего wall-clock и
// возвращает true, если сброс за сегодняшнюю дату ещё не выполнялся.
// Сам сброс выполняет обработчик команды, защищённый MarkReset.
func Tick(state *State, now time.Time, loc *time.Location) (due bool) {
	today := timeutil.DateKey(now, loc)

	// Новая дата: предыдущая полночь пройдена, снимаем флаг
	// "уже сброшено" и пересчитываем цель отсчёта.
	if state.LastResetDate != today {
		state.HasResetToday = false
	}
	if !state.NextResetTime.After(now) {
		state.NextResetTime = timeutil.NextMidnight(now, loc)
	}

	state.ResetCountdown = Countdown(state.NextResetTime, now)

	return !state.HasResetToday
}

// ══════════════════════════════════════════════════════════════════════════════
// ONCE-PER-DAY GUARD
// ══════════════════════════════════════════════════════════════════════════════

// ShouldReset возвращает true, если сброс за дату "сегодня" ещё не
// выполнялся. Идемпотентная проверка для почти одновременных таймеров.
func ShouldReset(state State, now time.Time, loc *time.Location) bool {
	today := timeutil.DateKey(now, loc)
	return state.LastResetDate != today
}

// MarkReset фиксирует выполненный сброс за сегодняшнюю дату и
// пересчитывает следующую полночь. Повторный вызов в тот же день -
// no-op (возвращает false): двойное срабатывание исключено.
// Маркер перехода дня тоже продвигается на сегодня: сброс уже
// обработал смену даты, и 60-секундный детектор не должен увидеть
// тот же переход второй раз.
func MarkReset(state *State, now time.Time, loc *time.Location) bool {
	today := timeutil.DateKey(now, loc)
	if state.LastResetDate == today {
		return false
	}

	state.LastResetDate = today
	state.HasResetToday = true
	state.NextResetTime = timeutil.NextMidnight(now, loc)
	state.ResetCountdown = Countdown(state.NextResetTime, now)
	state.RolloverMarker = today
	return true
}

// ══════════════════════════════════════════════════════════════════════════════
// ROLLOVER DETECTION
// ══════════════════════════════════════════════════════════════════════════════

// RolloverResult - результат проверки перехода через границу дня.
type RolloverResult struct {
	// Crossed - календарная дата сменилась с последней проверки.
	Crossed bool

	// PreviousDate - дата маркера до обновления.
	PreviousDate string

	// CurrentDate - текущая дата.
	CurrentDate string
}

// CheckRollover сравнивает дату сохранённого маркера с текущей датой.
// При смене даты маркер обновляется, а вызывающий запускает оценку
// штрафов за неактивность. Дневные корзины сбрасывать не нужно: они
// ключуются датой и начинаются заново с первой записью нового дня.
func CheckRollover(state *State, now time.Time, loc *time.Location) RolloverResult {
	today := timeutil.DateKey(now, loc)
	prev := state.RolloverMarker

	if prev == today {
		return RolloverResult{CurrentDate: today, PreviousDate: prev}
	}

	state.RolloverMarker = today
	return RolloverResult{Crossed: true, PreviousDate: prev, CurrentDate: today}
}
