// Package engine содержит ядро движка прогрессии: единое сериализуемое
// состояние пользователя и однопоточный store, через который проходят
// все мутации. Доменные пакеты чистые; только engine владеет данными.
package engine

import (
	"time"

	"github.com/momentum-hub/progression-engine/internal/domain/powerup"
	"github.com/momentum-hub/progression-engine/internal/domain/progression"
	"github.com/momentum-hub/progression-engine/internal/domain/reset"
	"github.com/momentum-hub/progression-engine/internal/domain/session"
	"github.com/momentum-hub/progression-engine/internal/domain/streak"
)

// ══════════════════════════════════════════════════════════════════════════════
// CONSTANTS
// ══════════════════════════════════════════════════════════════════════════════

const (
	// MaxEnergy - максимальный запас энергии.
	MaxEnergy = 100

	// EnergyRegenAmount - сколько энергии восстанавливается за тик.
	EnergyRegenAmount = 1
)

// ══════════════════════════════════════════════════════════════════════════════
// ENGINE STATE
// ══════════════════════════════════════════════════════════════════════════════

// State - полное состояние прогрессии одного пользователя. Все подсистемы
// живут в одном снапшоте и мутируют атомарно: команда либо применяется
// целиком, либо не меняет ничего.
type State struct {
	// XP - счёт опыта, уровень и золото.
	XP progression.XPState `json:"xp"`

	// Streak - серия активности и дневные корзины.
	Streak streak.State `json:"streak"`

	// Inventory - купленные и активные усилители.
	Inventory powerup.Inventory `json:"inventory"`

	// Reset - состояние ежедневного сброса.
	Reset reset.State `json:"reset"`

	// Session - таймер рабочей сессии.
	Session session.Timer `json:"session"`

	// Energy - текущий запас энергии (0..MaxEnergy). Тратится на
	// активацию усилителей, восстанавливается по расписанию.
	Energy int `json:"energy"`

	// UpdatedAt - момент последней успешной мутации.
	UpdatedAt time.Time `json:"updated_at"`
}

// NewState создаёт начальное состояние для нового пользователя.
func NewState(now time.Time, loc *time.Location) *State {
	return &State{
		XP:        progression.NewXPState(),
		Streak:    streak.NewState(),
		Inventory: powerup.NewInventory(),
		Reset:     reset.NewState(now, loc),
		Session:   session.Timer{},
		Energy:    MaxEnergy,
		UpdatedAt: now,
	}
}

// Clone возвращает глубокую копию состояния. Store мутирует копию и
// подменяет оригинал только при успехе команды.
func (s *State) Clone() *State {
	if s == nil {
		return nil
	}
	cp := *s
	cp.XP = s.XP.Clone()
	cp.Streak = s.Streak.Clone()
	cp.Inventory = s.Inventory.Clone()
	cp.Session = s.Session.Clone()
	return &cp
}

// RegenEnergy восстанавливает amount энергии с клампом к MaxEnergy.
// Возвращает фактически добавленное количество.
func (s *State) RegenEnergy(amount int) int {
	if amount <= 0 {
		return 0
	}
	before := s.Energy
	s.Energy += amount
	if s.Energy > MaxEnergy {
		s.Energy = MaxEnergy
	}
	return s.Energy - before
}

// SpendEnergy списывает cost энергии. Возвращает false без изменений,
// если запаса не хватает.
func (s *State) SpendEnergy(cost int) bool {
	if cost < 0 {
		return false
	}
	if s.Energy < cost {
		return false
	}
	s.Energy -= cost
	return true
}
