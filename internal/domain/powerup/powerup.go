// Package powerup содержит доменную модель расходуемых усилителей:
// инвентарь, активацию с ограничением по времени и истечение эффектов.
//
// Истечение управляется внешним поллером (сравнение now >= ExpiresAt
// каждые 30 секунд) - у пакета нет собственных таймеров.
package powerup

import (
	"time"

	"github.com/google/uuid"
)

// ══════════════════════════════════════════════════════════════════════════════
// CATALOG (внешний read-only каталог контента)
// ══════════════════════════════════════════════════════════════════════════════

// Type определяет тип эффекта усилителя.
type Type string

const (
	// TypeXPBoost - множитель заработка XP.
	TypeXPBoost Type = "xp_boost"

	// TypeStreakShield - защита серии от одного пропущенного дня.
	TypeStreakShield Type = "streak_shield"

	// TypeGoldBoost - множитель конвертации золота.
	TypeGoldBoost Type = "gold_boost"
)

// Rarity определяет редкость усилителя.
type Rarity string

const (
	RarityCommon    Rarity = "common"
	RarityRare      Rarity = "rare"
	RarityEpic      Rarity = "epic"
	RarityLegendary Rarity = "legendary"
)

// Definition - описание усилителя из каталога контента.
type Definition struct {
	// ID - идентификатор усилителя.
	ID string

	// Name - отображаемое имя.
	Name string

	// Type - тип эффекта.
	Type Type

	// Rarity - редкость.
	Rarity Rarity

	// Multiplier - множитель эффекта (для xp_boost и gold_boost).
	Multiplier float64

	// DefaultDuration - длительность действия по умолчанию.
	DefaultDuration time.Duration

	// EnergyCost - стоимость активации в энергии (0 = бесплатно).
	EnergyCost int
}

// Catalog - внешний read-only справочник усилителей. Статический
// контент каталога вне зоны ответственности движка; движок только
// читает определения по идентификатору.
type Catalog interface {
	// Lookup возвращает определение усилителя и признак его наличия.
	Lookup(id string) (Definition, bool)
}

// ══════════════════════════════════════════════════════════════════════════════
// INVENTORY STATE
// ══════════════════════════════════════════════════════════════════════════════

// Activation - одна активация усилителя. Каждая активация получает
// собственный ActivationID: две одновременные активации одного id
// различимы, хотя ExpireByID по-прежнему снимает обе (задокументированное
// поведение текущего продукта).
type Activation struct {
	// ActivationID - уникальный идентификатор этой активации.
	ActivationID string `json:"activation_id"`

	// ID - идентификатор усилителя из каталога.
	ID string `json:"id"`

	// ActivatedAt - время активации.
	ActivatedAt time.Time `json:"activated_at"`

	// ExpiresAt - время истечения. Строго в будущем на момент создания.
	ExpiresAt time.Time `json:"expires_at"`
}

// Remaining возвращает оставшееся время действия (не меньше нуля).
func (a Activation) Remaining(now time.Time) time.Duration {
	d := a.ExpiresAt.Sub(now)
	if d < 0 {
		return 0
	}
	return d
}

// Inventory - состояние инвентаря усилителей. Plain serializable документ.
type Inventory struct {
	// Owned - количество во владении по идентификатору (>= 0).
	Owned map[string]int `json:"owned"`

	// Active - список активных усилителей.
	Active []Activation `json:"active"`
}

// NewInventory создаёт пустой инвентарь.
func NewInventory() Inventory {
	return Inventory{
		Owned:  make(map[string]int),
		Active: nil,
	}
}

// Clone создаёт глубокую копию инвентаря.
func (inv Inventory) Clone() Inventory {
	clone := Inventory{
		Owned: make(map[string]int, len(inv.Owned)),
	}
	for k, v := range inv.Owned {
		clone.Owned[k] = v
	}
	if inv.Active != nil {
		clone.Active = make([]Activation, len(inv.Active))
		copy(clone.Active, inv.Active)
	}
	return clone
}

// OwnedCount возвращает количество усилителя во владении.
func (inv Inventory) OwnedCount(id string) int {
	return inv.Owned[id]
}

// CountActiveByID возвращает число активных экземпляров усилителя.
func (inv Inventory) CountActiveByID(id string) int {
	n := 0
	for _, a := range inv.Active {
		if a.ID == id {
			n++
		}
	}
	return n
}

// CountActiveByType возвращает число активных усилителей данного типа.
// Используется UI для агрегации HUD.
func (inv Inventory) CountActiveByType(catalog Catalog, t Type) int {
	n := 0
	for _, a := range inv.Active {
		if def, ok := catalog.Lookup(a.ID); ok && def.Type == t {
			n++
		}
	}
	return n
}

// ══════════════════════════════════════════════════════════════════════════════
// LIFECYCLE OPERATIONS
// ══════════════════════════════════════════════════════════════════════════════

// Buy добавляет один экземпляр в инвентарь. Списание валюты - зона
// ответственности внешнего экономического коллаборатора, здесь его нет.
func Buy(inv *Inventory, id string) int {
	if inv.Owned == nil {
		inv.Owned = make(map[string]int)
	}
	inv.Owned[id]++
	return inv.Owned[id]
}

// Activate активирует один экземпляр усилителя на указанное время.
// Нулевой инвентарь - no-op без ошибки (ok == false): предпосылка не
// выполнена, но состояние не меняется и ничего не бросается.
// Неположительная длительность зажимается в одну минуту, чтобы
// ExpiresAt был строго в будущем.
func Activate(inv *Inventory, id string, duration time.Duration, now time.Time) (Activation, bool) {
	if inv.Owned[id] <= 0 {
		return Activation{}, false
	}
	if duration <= 0 {
		duration = time.Minute
	}

	inv.Owned[id]--

	activation := Activation{
		ActivationID: uuid.NewString(),
		ID:           id,
		ActivatedAt:  now,
		ExpiresAt:    now.Add(duration),
	}
	inv.Active = append(inv.Active, activation)
	return activation, true
}

// ExpireByID снимает ВСЕ активные записи с указанным идентификатором
// усилителя. Если активны два экземпляра одного id, снимаются оба -
// это задокументированное поведение продукта. Отсутствие совпадений -
// no-op, не ошибка. Возвращает число снятых записей.
func ExpireByID(inv *Inventory, id string) int {
	return removeMatching(inv, func(a Activation) bool {
		return a.ID == id
	})
}

// ExpireInstance снимает ровно одну активацию по её ActivationID.
func ExpireInstance(inv *Inventory, activationID string) int {
	return removeMatching(inv, func(a Activation) bool {
		return a.ActivationID == activationID
	})
}

// ExpireDue снимает все записи с истекшим сроком (ExpiresAt <= now).
// Идемпотентно: повторный вызов с тем же now ничего не меняет.
// Возвращает снятые записи для публикации событий.
func ExpireDue(inv *Inventory, now time.Time) []Activation {
	var expired []Activation
	removeMatching(inv, func(a Activation) bool {
		if !a.ExpiresAt.After(now) {
			expired = append(expired, a)
			return true
		}
		return false
	})
	return expired
}

// removeMatching убирает из Active все записи, подходящие под предикат.
func removeMatching(inv *Inventory, match func(Activation) bool) int {
	if len(inv.Active) == 0 {
		return 0
	}

	kept := inv.Active[:0]
	removed := 0
	for _, a := range inv.Active {
		if match(a) {
			removed++
			continue
		}
		kept = append(kept, a)
	}
	inv.Active = kept
	if len(inv.Active) == 0 {
		inv.Active = nil
	}
	return removed
}

// ══════════════════════════════════════════════════════════════════════════════
// MULTIPLIER AGGREGATION
// ══════════════════════════════════════════════════════════════════════════════

// EffectiveMultiplier возвращает произведение множителей всех активных
// усилителей данного типа. Агрегацию выполняет вызывающий слой и передаёт
// результат в леджер - сам инвентарь множители не применяет.
func EffectiveMultiplier(inv Inventory, catalog Catalog, t Type, now time.Time) float64 {
	mult := 1.0
	for _, a := range inv.Active {
		if !a.ExpiresAt.After(now) {
			continue
		}
		def, ok := catalog.Lookup(a.ID)
		if !ok || def.Type != t {
			continue
		}
		if def.Multiplier > 0 {
			mult *= def.Multiplier
		}
	}
	return mult
}

// NextExpiry возвращает ближайшее время истечения среди активных
// записей. Второе значение false, если активных записей нет.
func (inv Inventory) NextExpiry() (time.Time, bool) {
	var next time.Time
	found := false
	for _, a := range inv.Active {
		if !found || a.ExpiresAt.Before(next) {
			next = a.ExpiresAt
			found = true
		}
	}
	return next, found
}
