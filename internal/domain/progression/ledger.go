// Package progression содержит доменную модель прогрессии: очки опыта,
// уровни и кривую порогов. Это ядро бизнес-логики - здесь нет внешних
// зависимостей, все функции детерминированы.
package progression

import (
	"fmt"
	"math"
	"time"
)

// ══════════════════════════════════════════════════════════════════════════════
// CONSTANTS
// ══════════════════════════════════════════════════════════════════════════════

const (
	// BaseXP - базовая стоимость второго уровня.
	BaseXP = 1000

	// GrowthRate - экспоненциальный коэффициент роста порогов.
	GrowthRate = 1.1

	// MinLevel - минимальный уровень.
	MinLevel = 1

	// MaxLevel - максимальный уровень (кривая дальше не растёт).
	MaxLevel = 100

	// MaxXP - верхняя граница XP. Кумулятивный порог 100 уровня
	// около 137 миллионов, так что миллиард даёт запас для clamp-арифметики.
	MaxXP = 1_000_000_000

	// GoldConversionRate - курс обмена XP на золото (10 XP = 1 золото).
	GoldConversionRate = 10
)

// ══════════════════════════════════════════════════════════════════════════════
// VALUE OBJECTS
// ══════════════════════════════════════════════════════════════════════════════

// XP представляет очки опыта.
type XP int

// IsValid проверяет, что XP в допустимом диапазоне.
func (x XP) IsValid() bool {
	return x >= 0 && x <= MaxXP
}

// Level представляет уровень, детерминированно вычисляемый из XP.
type Level int

// IsValid проверяет, что уровень в диапазоне [1, 100].
func (l Level) IsValid() bool {
	return l >= MinLevel && l <= MaxLevel
}

// Gold представляет игровую валюту, получаемую конвертацией XP.
type Gold int

// ══════════════════════════════════════════════════════════════════════════════
// XP STATE
// ══════════════════════════════════════════════════════════════════════════════

// XPState - состояние леджера XP. Это plain serializable документ:
// никаких указателей на живые объекты, только данные.
type XPState struct {
	// CurrentXP - текущий XP (0..MaxXP).
	CurrentXP XP `json:"current_xp"`

	// CurrentLevel - текущий уровень. Инвариант:
	// CurrentLevel == LevelFromXP(CurrentXP) всегда.
	CurrentLevel Level `json:"current_level"`

	// XPToNextLevel - сколько XP осталось до следующего уровня.
	XPToNextLevel XP `json:"xp_to_next_level"`

	// TotalXPEarned - суммарно заработанный XP. Не убывает,
	// кроме явного сброса; траты и штрафы его не трогают.
	TotalXPEarned XP `json:"total_xp_earned"`

	// Gold - накопленное золото (конвертация из XP).
	Gold Gold `json:"gold"`

	// XPMultiplier - постоянный множитель состояния (>= 1).
	XPMultiplier float64 `json:"xp_multiplier"`

	// BonusXPActive - активен ли временный бонус XP.
	BonusXPActive bool `json:"bonus_xp_active"`

	// BonusXPExpiry - когда истекает временный бонус (опционально).
	BonusXPExpiry *time.Time `json:"bonus_xp_expiry,omitempty"`
}

// NewXPState создаёт начальное состояние леджера.
func NewXPState() XPState {
	return XPState{
		CurrentXP:     0,
		CurrentLevel:  MinLevel,
		XPToNextLevel: ThresholdFor(MinLevel + 1),
		TotalXPEarned: 0,
		Gold:          0,
		XPMultiplier:  1.0,
	}
}

// Clone создаёт глубокую копию состояния.
func (s XPState) Clone() XPState {
	clone := s
	if s.BonusXPExpiry != nil {
		expiry := *s.BonusXPExpiry
		clone.BonusXPExpiry = &expiry
	}
	return clone
}

// String возвращает строковое представление для логирования.
func (s XPState) String() string {
	return fmt.Sprintf("XPState{XP: %d, Level: %d, Total: %d, Gold: %d}",
		s.CurrentXP, s.CurrentLevel, s.TotalXPEarned, s.Gold)
}

// ══════════════════════════════════════════════════════════════════════════════
// LEVELING MATH (чистые функции)
// ══════════════════════════════════════════════════════════════════════════════

// ThresholdFor возвращает стоимость перехода на указанный уровень:
// floor(BaseXP * GrowthRate^(level-1)). Уровень зажимается в [1, 100].
func ThresholdFor(level Level) XP {
	if level < MinLevel {
		level = MinLevel
	}
	if level > MaxLevel {
		level = MaxLevel
	}
	return XP(math.Floor(BaseXP * math.Pow(GrowthRate, float64(level-1))))
}

// TotalXPForLevel возвращает кумулятивный XP, при котором достигается
// уровень L: сумма ThresholdFor(2..L). Для первого уровня это 0.
func TotalXPForLevel(level Level) XP {
	if level <= MinLevel {
		return 0
	}
	if level > MaxLevel {
		level = MaxLevel
	}
	var total XP
	for l := Level(2); l <= level; l++ {
		total += ThresholdFor(l)
	}
	return total
}

// LevelFromXP вычисляет уровень из суммарного XP. Значение зажимается
// в [0, MaxXP], итерация идёт от первого уровня вверх, накапливая
// пороги, пока следующий не превысит XP. Максимум - 100 уровень.
func LevelFromXP(totalXP XP) Level {
	totalXP = ClampXP(totalXP)

	level := Level(MinLevel)
	var accumulated XP

	for level < MaxLevel {
		next := accumulated + ThresholdFor(level+1)
		if totalXP < next {
			break
		}
		accumulated = next
		level++
	}

	return level
}

// ClampXP зажимает XP в допустимый диапазон [0, MaxXP].
func ClampXP(xp XP) XP {
	if xp < 0 {
		return 0
	}
	if xp > MaxXP {
		return MaxXP
	}
	return xp
}

// ProgressInfo - прогресс внутри текущего уровня.
type ProgressInfo struct {
	// LevelXP - XP, набранный внутри текущего уровня.
	LevelXP XP `json:"level_xp"`

	// NeededXP - ширина текущего уровня.
	NeededXP XP `json:"needed_xp"`

	// ProgressPct - процент прохождения уровня (0..100).
	ProgressPct float64 `json:"progress_pct"`

	// XPToNext - сколько XP осталось до следующего уровня.
	XPToNext XP `json:"xp_to_next"`
}

// Progress вычисляет прогресс внутри уровня по формулам леджера.
func Progress(currentXP XP, currentLevel Level) ProgressInfo {
	currentXP = ClampXP(currentXP)

	levelXP := currentXP - ThresholdFor(currentLevel)
	if levelXP < 0 {
		levelXP = 0
	}

	neededXP := ThresholdFor(currentLevel+1) - ThresholdFor(currentLevel)
	pct := 0.0
	if neededXP > 0 {
		pct = float64(levelXP) / float64(neededXP) * 100
	}
	if pct < 0 {
		pct = 0
	}
	if pct > 100 {
		pct = 100
	}

	xpToNext := ThresholdFor(currentLevel+1) - currentXP
	if xpToNext < 0 {
		xpToNext = 0
	}

	return ProgressInfo{
		LevelXP:     levelXP,
		NeededXP:    neededXP,
		ProgressPct: pct,
		XPToNext:    xpToNext,
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// LEDGER MUTATIONS
// ══════════════════════════════════════════════════════════════════════════════

// AddResult - результат изменения леджера.
type AddResult struct {
	// FinalAmount - фактически применённая дельта (после множителей).
	FinalAmount XP

	// OldLevel - уровень до изменения.
	OldLevel Level

	// NewLevel - уровень после изменения.
	NewLevel Level

	// LeveledUp - поднялся ли уровень.
	LeveledUp bool
}

// AddXP применяет дельту XP к состоянию. Политика отказов: числовые
// входы зажимаются, а не отклоняются - доступность важнее строгой
// валидации, функция никогда не возвращает ошибку.
//
//   - amount < 0 (трата/штраф): применяется как есть, без множителей;
//     TotalXPEarned не трогается; CurrentXP зажимается в 0 при овердрафте.
//   - amount >= 0: final = floor(amount * multiplier * state.XPMultiplier),
//     добавляется к CurrentXP (clamp до MaxXP) и к TotalXPEarned.
//
// CurrentLevel и XPToNextLevel пересчитываются из нового CurrentXP.
func AddXP(state *XPState, amount int, multiplier float64) AddResult {
	oldLevel := state.CurrentLevel

	// NaN/Inf и нулевые множители трактуем как отсутствие множителя.
	if math.IsNaN(multiplier) || math.IsInf(multiplier, 0) || multiplier <= 0 {
		multiplier = 1.0
	}
	stateMult := state.XPMultiplier
	if math.IsNaN(stateMult) || math.IsInf(stateMult, 0) || stateMult < 1 {
		stateMult = 1.0
	}

	var final XP
	if amount < 0 {
		final = XP(amount)
		state.CurrentXP = ClampXP(state.CurrentXP + final)
	} else {
		final = XP(math.Floor(float64(amount) * multiplier * stateMult))
		state.CurrentXP = ClampXP(state.CurrentXP + final)
		state.TotalXPEarned = ClampXP(state.TotalXPEarned + final)
	}

	state.CurrentLevel = LevelFromXP(state.CurrentXP)
	state.XPToNextLevel = Progress(state.CurrentXP, state.CurrentLevel).XPToNext

	return AddResult{
		FinalAmount: final,
		OldLevel:    oldLevel,
		NewLevel:    state.CurrentLevel,
		LeveledUp:   state.CurrentLevel > oldLevel,
	}
}

// SpendXP списывает XP (трата или штраф). Овердрафт зажимает баланс
// в 0; вызывающий, которому нужна жёсткая предпосылка, обязан проверить
// баланс заранее. Возвращает фактически списанную сумму.
func SpendXP(state *XPState, amount int) XP {
	if amount <= 0 {
		return 0
	}
	before := state.CurrentXP
	AddXP(state, -amount, 1)
	return before - state.CurrentXP
}

// ConvertXPToGold конвертирует XP в золото по курсу GoldConversionRate.
// Конвертируется максимум целое число золота, остаток XP не трогается.
// При нехватке XP конвертируется сколько есть.
func ConvertXPToGold(state *XPState, xpAmount int) (spent XP, earned Gold) {
	if xpAmount <= 0 {
		return 0, 0
	}
	if XP(xpAmount) > state.CurrentXP {
		xpAmount = int(state.CurrentXP)
	}

	earned = Gold(xpAmount / GoldConversionRate)
	if earned <= 0 {
		return 0, 0
	}
	spent = XP(int(earned) * GoldConversionRate)

	SpendXP(state, int(spent))
	state.Gold += earned
	return spent, earned
}

// SetBonus включает или выключает временный бонус XP для отображения.
// Сам множитель передаётся в AddXP вызывающей стороной.
func SetBonus(state *XPState, active bool, expiry *time.Time) {
	state.BonusXPActive = active
	if active {
		state.BonusXPExpiry = expiry
	} else {
		state.BonusXPExpiry = nil
	}
}
