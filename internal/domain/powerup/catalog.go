package powerup

import (
	"time"
)

// StaticCatalog - простая in-memory реализация каталога. Продакшн
// подставляет сюда контент из внешней системы; движку важен только
// интерфейс Lookup.
type StaticCatalog struct {
	defs map[string]Definition
}

// NewStaticCatalog создаёт каталог из списка определений.
func NewStaticCatalog(defs []Definition) *StaticCatalog {
	c := &StaticCatalog{defs: make(map[string]Definition, len(defs))}
	for _, d := range defs {
		c.defs[d.ID] = d
	}
	return c
}

// Lookup реализует Catalog.
func (c *StaticCatalog) Lookup(id string) (Definition, bool) {
	def, ok := c.defs[id]
	return def, ok
}

// DefaultCatalog возвращает каталог по умолчанию. Используется как
// заглушка внешней системы контента в тестах и дефолтной конфигурации.
func DefaultCatalog() *StaticCatalog {
	return NewStaticCatalog([]Definition{
		{
			ID:              "double_xp",
			Name:            "Double XP",
			Type:            TypeXPBoost,
			Rarity:          RarityCommon,
			Multiplier:      2.0,
			DefaultDuration: 30 * time.Minute,
			EnergyCost:      10,
		},
		{
			ID:              "triple_xp",
			Name:            "Triple XP",
			Type:            TypeXPBoost,
			Rarity:          RarityEpic,
			Multiplier:      3.0,
			DefaultDuration: 15 * time.Minute,
			EnergyCost:      25,
		},
		{
			ID:              "focus_surge",
			Name:            "Focus Surge",
			Type:            TypeXPBoost,
			Rarity:          RarityRare,
			Multiplier:      1.5,
			DefaultDuration: time.Hour,
			EnergyCost:      15,
		},
		{
			ID:              "streak_shield",
			Name:            "Streak Shield",
			Type:            TypeStreakShield,
			Rarity:          RarityRare,
			Multiplier:      1.0,
			DefaultDuration: 24 * time.Hour,
			EnergyCost:      20,
		},
		{
			ID:              "gold_rush",
			Name:            "Gold Rush",
			Type:            TypeGoldBoost,
			Rarity:          RarityLegendary,
			Multiplier:      2.0,
			DefaultDuration: 20 * time.Minute,
			EnergyCost:      30,
		},
	})
}
