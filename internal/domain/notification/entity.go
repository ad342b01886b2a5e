// Package notification содержит доменную модель уведомлений движка
// прогрессии. Уведомления - отдельный коллаборатор: движок формирует
// заголовок, текст и приоритет, а доставкой занимается внешний канал.
// Философия: уведомления должны мотивировать, а не раздражать.
package notification

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ══════════════════════════════════════════════════════════════════════════════
// VALUE OBJECTS
// ══════════════════════════════════════════════════════════════════════════════

// NotificationID представляет уникальный идентификатор уведомления.
type NotificationID string

// IsValid проверяет, что ID не пустой.
func (id NotificationID) IsValid() bool {
	return len(id) > 0
}

// String возвращает строковое представление ID.
func (id NotificationID) String() string {
	return string(id)
}

// NewNotificationID генерирует новый идентификатор.
func NewNotificationID() NotificationID {
	return NotificationID(uuid.NewString())
}

// ══════════════════════════════════════════════════════════════════════════════
// NOTIFICATION TYPE & PRIORITY
// ══════════════════════════════════════════════════════════════════════════════

// Type определяет тип уведомления.
type Type string

const (
	// TypeLevelUp - пользователь достиг нового уровня.
	// "🎉 Уровень 12! Так держать"
	TypeLevelUp Type = "level_up"

	// TypeStreakMilestone - серия достигла вехи (7, 30 дней).
	TypeStreakMilestone Type = "streak_milestone"

	// TypeStreakBroken - серия разорвана пропуском дней.
	TypeStreakBroken Type = "streak_broken"

	// TypePenaltyApplied - применён штраф за неактивность.
	TypePenaltyApplied Type = "penalty_applied"

	// TypePowerUpExpired - действие усилителя закончилось.
	TypePowerUpExpired Type = "powerup_expired"

	// TypeDailyReset - выполнен ежедневный сброс.
	TypeDailyReset Type = "daily_reset"

	// TypeWarning - пользовательская ошибка/предупреждение движка.
	// Видимые пользователю отказы идут тем же каналом, что и
	// позитивные события.
	TypeWarning Type = "warning"
)

// IsValid проверяет, что тип корректен.
func (t Type) IsValid() bool {
	switch t {
	case TypeLevelUp, TypeStreakMilestone, TypeStreakBroken,
		TypePenaltyApplied, TypePowerUpExpired, TypeDailyReset, TypeWarning:
		return true
	default:
		return false
	}
}

// Priority определяет приоритет доставки.
type Priority string

const (
	// PriorityLow - фоновые уведомления (сброс, истечение усилителя).
	PriorityLow Priority = "low"

	// PriorityNormal - обычные события прогрессии.
	PriorityNormal Priority = "normal"

	// PriorityHigh - вехи и штрафы: пользователь должен заметить.
	PriorityHigh Priority = "high"
)

// IsValid проверяет, что приоритет корректен.
func (p Priority) IsValid() bool {
	switch p {
	case PriorityLow, PriorityNormal, PriorityHigh:
		return true
	default:
		return false
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// NOTIFICATION ENTITY
// ══════════════════════════════════════════════════════════════════════════════

// Notification - уведомление, готовое к доставке внешним каналом.
type Notification struct {
	// ID - уникальный идентификатор.
	ID NotificationID

	// Type - тип уведомления.
	Type Type

	// Title - заголовок.
	Title string

	// Message - текст уведомления.
	Message string

	// Priority - приоритет доставки.
	Priority Priority

	// CreatedAt - время создания.
	CreatedAt time.Time

	// Metadata - дополнительные данные (например, streak, level).
	Metadata map[string]interface{}
}

// Доменные ошибки уведомлений.
var (
	// ErrInvalidType - невалидный тип уведомления.
	ErrInvalidType = errors.New("invalid notification type")

	// ErrEmptyTitle - пустой заголовок.
	ErrEmptyTitle = errors.New("notification title is required")

	// ErrChannelUnavailable - канал доставки недоступен.
	ErrChannelUnavailable = errors.New("notification channel unavailable")
)

// New создаёт уведомление с валидацией.
func New(t Type, title, message string, priority Priority) (*Notification, error) {
	if !t.IsValid() {
		return nil, fmt.Errorf("%w: %s", ErrInvalidType, t)
	}
	if title == "" {
		return nil, ErrEmptyTitle
	}
	if !priority.IsValid() {
		priority = PriorityNormal
	}

	return &Notification{
		ID:        NewNotificationID(),
		Type:      t,
		Title:     title,
		Message:   message,
		Priority:  priority,
		CreatedAt: time.Now(),
		Metadata:  make(map[string]interface{}),
	}, nil
}

// WithMetadata добавляет метаданные и возвращает то же уведомление.
func (n *Notification) WithMetadata(key string, value interface{}) *Notification {
	if n.Metadata == nil {
		n.Metadata = make(map[string]interface{})
	}
	n.Metadata[key] = value
	return n
}

// ══════════════════════════════════════════════════════════════════════════════
// COLLABORATOR INTERFACES
// ══════════════════════════════════════════════════════════════════════════════

// Channel - внешний канал доставки уведомлений. Реализации живут в
// инфраструктурном слое; домен знает только контракт.
type Channel interface {
	// Deliver доставляет уведомление получателю.
	Deliver(n *Notification) error
}

// Service - сервис уведомлений движка.
type Service interface {
	// Notify формирует и доставляет уведомление.
	Notify(n *Notification) error
}
