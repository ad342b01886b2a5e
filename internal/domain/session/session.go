// Package session содержит доменную модель сессий активности:
// таймер начала/конца сессии и бонус за длительность. Сессия стартует
// по первому действию пользователя и закрывается при уходе; бонус
// начисляется один раз при закрытии, никогда инкрементально.
package session

import (
	"time"
)

// ══════════════════════════════════════════════════════════════════════════════
// CONSTANTS
// ══════════════════════════════════════════════════════════════════════════════

const (
	// BonusThreshold - минимальная длительность сессии для бонуса.
	BonusThreshold = 5 * time.Minute

	// BonusXPPerBlock - XP за каждый полный пятиминутный блок.
	BonusXPPerBlock = 5

	// BonusBlockMinutes - размер блока в минутах.
	BonusBlockMinutes = 5
)

// ══════════════════════════════════════════════════════════════════════════════
// TIMER STATE
// ══════════════════════════════════════════════════════════════════════════════

// Timer - состояние таймера сессий. Plain serializable документ,
// создаётся при старте процесса с нулевыми значениями.
type Timer struct {
	// SessionStartTime - начало открытой сессии (nil, если сессии нет).
	SessionStartTime *time.Time `json:"session_start_time,omitempty"`

	// TotalActiveTime - суммарное время закрытых сессий в миллисекундах.
	// Монотонно не убывает; пополняется только при закрытии сессии.
	TotalActiveTime int64 `json:"total_active_time_ms"`

	// CurrentSessionTime - длительность последней закрытой сессии в мс.
	CurrentSessionTime int64 `json:"current_session_time_ms"`

	// IsActive - открыта ли сессия сейчас.
	IsActive bool `json:"is_active"`

	// LastActivityTimestamp - время последнего действия пользователя.
	LastActivityTimestamp *time.Time `json:"last_activity_timestamp,omitempty"`
}

// NewTimer создаёт таймер с нулевым состоянием.
func NewTimer() Timer {
	return Timer{}
}

// Clone создаёт глубокую копию таймера.
func (t Timer) Clone() Timer {
	clone := t
	if t.SessionStartTime != nil {
		start := *t.SessionStartTime
		clone.SessionStartTime = &start
	}
	if t.LastActivityTimestamp != nil {
		last := *t.LastActivityTimestamp
		clone.LastActivityTimestamp = &last
	}
	return clone
}

// ══════════════════════════════════════════════════════════════════════════════
// SESSION OPERATIONS
// ══════════════════════════════════════════════════════════════════════════════

// Start открывает сессию. Если сессия уже открыта - no-op (ok == false).
func Start(t *Timer, now time.Time) bool {
	if t.IsActive {
		return false
	}
	start := now
	t.SessionStartTime = &start
	t.IsActive = true
	t.LastActivityTimestamp = &start
	return true
}

// Touch обновляет время последнего действия внутри открытой сессии.
func Touch(t *Timer, now time.Time) {
	if !t.IsActive {
		return
	}
	ts := now
	t.LastActivityTimestamp = &ts
}

// Stop закрывает сессию и возвращает её длительность. Если сессии нет -
// no-op с нулевой длительностью (ok == false). TotalActiveTime пополняется
// только здесь, ретроактивных начислений не бывает.
func Stop(t *Timer, now time.Time) (time.Duration, bool) {
	if !t.IsActive || t.SessionStartTime == nil {
		return 0, false
	}

	duration := now.Sub(*t.SessionStartTime)
	if duration < 0 {
		// Часы ушли назад: закрываем сессию без начислений.
		duration = 0
	}

	t.TotalActiveTime += duration.Milliseconds()
	t.CurrentSessionTime = duration.Milliseconds()
	t.SessionStartTime = nil
	t.IsActive = false

	return duration, true
}

// DurationBonus вычисляет бонус XP за длительность закрытой сессии:
// floor(minutes/5) * 5 XP при длительности от пяти минут, иначе ноль.
func DurationBonus(duration time.Duration) int {
	if duration < BonusThreshold {
		return 0
	}
	blocks := int(duration.Minutes()) / BonusBlockMinutes
	return blocks * BonusXPPerBlock
}
