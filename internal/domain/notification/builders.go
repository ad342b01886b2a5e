package notification

import "fmt"

// ══════════════════════════════════════════════════════════════════════════════
// FACTORY METHODS - типовые уведомления прогрессии
// ══════════════════════════════════════════════════════════════════════════════

// Вехи серии, на которых отправляется поздравление.
var streakMilestones = []int{7, 30, 100, 365}

// IsStreakMilestone проверяет, является ли длина серии вехой.
func IsStreakMilestone(streak int) bool {
	for _, m := range streakMilestones {
		if streak == m {
			return true
		}
	}
	return false
}

// NewLevelUp создаёт уведомление о новом уровне.
func NewLevelUp(newLevel int) (*Notification, error) {
	n, err := New(
		TypeLevelUp,
		fmt.Sprintf("🎉 Уровень %d!", newLevel),
		fmt.Sprintf("Поздравляем! Ты достиг уровня %d. Так держать!", newLevel),
		PriorityNormal,
	)
	if err != nil {
		return nil, err
	}
	return n.WithMetadata("level", newLevel), nil
}

// NewStreakMilestone создаёт поздравление с вехой серии.
func NewStreakMilestone(streak int) (*Notification, error) {
	n, err := New(
		TypeStreakMilestone,
		fmt.Sprintf("🔥 Серия %d дней!", streak),
		fmt.Sprintf("Невероятно - %d дней активности подряд. Ты в ударе!", streak),
		PriorityHigh,
	)
	if err != nil {
		return nil, err
	}
	return n.WithMetadata("streak", streak), nil
}

// NewStreakBroken создаёт уведомление о разрыве серии.
func NewStreakBroken(previousStreak, daysInactive int) (*Notification, error) {
	n, err := New(
		TypeStreakBroken,
		"💔 Серия прервана",
		fmt.Sprintf("Серия из %d дней прервана после %d дней без активности. Начни новую сегодня!", previousStreak, daysInactive),
		PriorityNormal,
	)
	if err != nil {
		return nil, err
	}
	return n.
		WithMetadata("previous_streak", previousStreak).
		WithMetadata("days_inactive", daysInactive), nil
}

// NewPenaltyApplied создаёт уведомление о штрафе за неактивность.
func NewPenaltyApplied(xpPenalty, daysInactive int, streakReset bool) (*Notification, error) {
	msg := fmt.Sprintf("За %d дней без активности списано %d XP.", daysInactive, xpPenalty)
	if streakReset {
		msg += " Серия сброшена."
	}
	n, err := New(
		TypePenaltyApplied,
		"⚠️ Штраф за неактивность",
		msg,
		PriorityHigh,
	)
	if err != nil {
		return nil, err
	}
	return n.
		WithMetadata("xp_penalty", xpPenalty).
		WithMetadata("days_inactive", daysInactive).
		WithMetadata("streak_reset", streakReset), nil
}

// NewPowerUpExpired создаёт уведомление об истечении усилителя.
func NewPowerUpExpired(powerUpName string) (*Notification, error) {
	n, err := New(
		TypePowerUpExpired,
		"⏳ Усилитель закончился",
		fmt.Sprintf("Действие «%s» завершилось.", powerUpName),
		PriorityLow,
	)
	if err != nil {
		return nil, err
	}
	return n.WithMetadata("powerup", powerUpName), nil
}

// NewDailyReset создаёт уведомление о ежедневном сбросе.
func NewDailyReset(date string) (*Notification, error) {
	n, err := New(
		TypeDailyReset,
		"🌅 Новый день",
		"Ежедневные задачи обновлены. Время продолжить серию!",
		PriorityLow,
	)
	if err != nil {
		return nil, err
	}
	return n.WithMetadata("date", date), nil
}

// NewWarning создаёт видимое пользователю предупреждение об отказе
// операции. Доставляется тем же каналом, что и позитивные события.
func NewWarning(message string) (*Notification, error) {
	return New(TypeWarning, "⚠️ Внимание", message, PriorityNormal)
}
