package shared

import (
	"time"
)

// EventType represents the type of domain event.
type EventType string

// Domain event types - these drive the event-driven architecture.
// Each event represents something significant that happened in the domain.
const (
	// Progression events
	EventXPGained      EventType = "progression.xp_gained"
	EventXPSpent       EventType = "progression.xp_spent"
	EventLevelUp       EventType = "progression.level_up"
	EventGoldConverted EventType = "progression.gold_converted"

	// Streak events
	EventStreakUpdated   EventType = "streak.updated"
	EventStreakBroken    EventType = "streak.broken"
	EventStreakMilestone EventType = "streak.milestone"
	EventPenaltyApplied  EventType = "streak.penalty_applied"

	// Power-up events
	EventPowerUpPurchased EventType = "powerup.purchased"
	EventPowerUpActivated EventType = "powerup.activated"
	EventPowerUpExpired   EventType = "powerup.expired"

	// Session events
	EventSessionStarted EventType = "session.started"
	EventSessionEnded   EventType = "session.ended"

	// Daily reset events
	EventDailyResetPerformed EventType = "reset.performed"
	EventEnergyRegenerated   EventType = "reset.energy_regenerated"

	// Notification events
	EventNotificationSent   EventType = "notification.sent"
	EventNotificationFailed EventType = "notification.failed"

	// System events
	EventSnapshotPersisted EventType = "system.snapshot_persisted"
)

// Event is the base interface for all domain events.
type Event interface {
	// EventType returns the type of the event.
	EventType() EventType

	// OccurredAt returns when the event occurred.
	OccurredAt() time.Time

	// AggregateID returns the ID of the aggregate that produced this event.
	AggregateID() string

	// Payload returns the event data as a map for serialization.
	Payload() map[string]interface{}
}

// BaseEvent provides common event functionality.
type BaseEvent struct {
	Type          EventType `json:"type"`
	Timestamp     time.Time `json:"timestamp"`
	AggregateId   string    `json:"aggregate_id"`
	Version       int       `json:"version"`
	CorrelationID string    `json:"correlation_id,omitempty"`
}

// EventType implements Event interface.
func (e BaseEvent) EventType() EventType {
	return e.Type
}

// OccurredAt implements Event interface.
func (e BaseEvent) OccurredAt() time.Time {
	return e.Timestamp
}

// AggregateID implements Event interface.
func (e BaseEvent) AggregateID() string {
	return e.AggregateId
}

// NewBaseEvent creates a new base event.
func NewBaseEvent(eventType EventType, aggregateID string) BaseEvent {
	return BaseEvent{
		Type:        eventType,
		Timestamp:   time.Now(),
		AggregateId: aggregateID,
		Version:     1,
	}
}

// WithCorrelationID sets the correlation ID for tracing.
func (e BaseEvent) WithCorrelationID(id string) BaseEvent {
	e.CorrelationID = id
	return e
}

// ═══════════════════════════════════════════════════════════════════════════
// Progression Events
// ═══════════════════════════════════════════════════════════════════════════

// XPGainedEvent is emitted when a user earns XP.
type XPGainedEvent struct {
	BaseEvent
	Amount      int     `json:"amount"`
	FinalAmount int     `json:"final_amount"`
	Source      string  `json:"source"`
	Multiplier  float64 `json:"multiplier"`
	NewTotalXP  int     `json:"new_total_xp"`
}

// Payload implements Event interface.
func (e XPGainedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"amount":       e.Amount,
		"final_amount": e.FinalAmount,
		"source":       e.Source,
		"multiplier":   e.Multiplier,
		"new_total_xp": e.NewTotalXP,
	}
}

// XPSpentEvent is emitted when XP is spent or deducted.
type XPSpentEvent struct {
	BaseEvent
	Amount      int    `json:"amount"`
	Reason      string `json:"reason"`
	RemainingXP int    `json:"remaining_xp"`
}

// Payload implements Event interface.
func (e XPSpentEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"amount":       e.Amount,
		"reason":       e.Reason,
		"remaining_xp": e.RemainingXP,
	}
}

// LevelUpEvent is emitted when a user reaches a new level.
type LevelUpEvent struct {
	BaseEvent
	OldLevel int `json:"old_level"`
	NewLevel int `json:"new_level"`
}

// Payload implements Event interface.
func (e LevelUpEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"old_level": e.OldLevel,
		"new_level": e.NewLevel,
	}
}

// GoldConvertedEvent is emitted when XP is converted to gold.
type GoldConvertedEvent struct {
	BaseEvent
	XPSpent    int `json:"xp_spent"`
	GoldEarned int `json:"gold_earned"`
}

// Payload implements Event interface.
func (e GoldConvertedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"xp_spent":    e.XPSpent,
		"gold_earned": e.GoldEarned,
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Streak Events
// ═══════════════════════════════════════════════════════════════════════════

// StreakUpdatedEvent is emitted when the daily streak changes.
type StreakUpdatedEvent struct {
	BaseEvent
	NewStreak     int    `json:"new_streak"`
	LongestStreak int    `json:"longest_streak"`
	Continued     bool   `json:"continued"`
	ActivityType  string `json:"activity_type,omitempty"`
}

// Payload implements Event interface.
func (e StreakUpdatedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"new_streak":     e.NewStreak,
		"longest_streak": e.LongestStreak,
		"continued":      e.Continued,
		"activity_type":  e.ActivityType,
	}
}

// StreakBrokenEvent is emitted when a streak is broken by inactivity.
type StreakBrokenEvent struct {
	BaseEvent
	PreviousStreak int `json:"previous_streak"`
	DaysInactive   int `json:"days_inactive"`
}

// Payload implements Event interface.
func (e StreakBrokenEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"previous_streak": e.PreviousStreak,
		"days_inactive":   e.DaysInactive,
	}
}

// StreakMilestoneEvent is emitted when a streak reaches a milestone (7, 30 days).
type StreakMilestoneEvent struct {
	BaseEvent
	Streak    int `json:"streak"`
	Milestone int `json:"milestone"`
}

// Payload implements Event interface.
func (e StreakMilestoneEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"streak":    e.Streak,
		"milestone": e.Milestone,
	}
}

// PenaltyAppliedEvent is emitted when an inactivity penalty is deducted.
type PenaltyAppliedEvent struct {
	BaseEvent
	DaysInactive int  `json:"days_inactive"`
	XPPenalty    int  `json:"xp_penalty"`
	StreakReset  bool `json:"streak_reset"`
}

// Payload implements Event interface.
func (e PenaltyAppliedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"days_inactive": e.DaysInactive,
		"xp_penalty":    e.XPPenalty,
		"streak_reset":  e.StreakReset,
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Power-up Events
// ═══════════════════════════════════════════════════════════════════════════

// PowerUpPurchasedEvent is emitted when a power-up is bought.
type PowerUpPurchasedEvent struct {
	BaseEvent
	PowerUpID  string `json:"powerup_id"`
	OwnedCount int    `json:"owned_count"`
}

// Payload implements Event interface.
func (e PowerUpPurchasedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"powerup_id":  e.PowerUpID,
		"owned_count": e.OwnedCount,
	}
}

// PowerUpActivatedEvent is emitted when a power-up becomes active.
type PowerUpActivatedEvent struct {
	BaseEvent
	PowerUpID    string    `json:"powerup_id"`
	ActivationID string    `json:"activation_id"`
	ExpiresAt    time.Time `json:"expires_at"`
}

// Payload implements Event interface.
func (e PowerUpActivatedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"powerup_id":    e.PowerUpID,
		"activation_id": e.ActivationID,
		"expires_at":    e.ExpiresAt,
	}
}

// PowerUpExpiredEvent is emitted when active power-up entries are removed.
type PowerUpExpiredEvent struct {
	BaseEvent
	PowerUpID      string `json:"powerup_id"`
	RemovedEntries int    `json:"removed_entries"`
}

// Payload implements Event interface.
func (e PowerUpExpiredEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"powerup_id":      e.PowerUpID,
		"removed_entries": e.RemovedEntries,
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Session & Reset Events
// ═══════════════════════════════════════════════════════════════════════════

// SessionStartedEvent is emitted when an activity session begins.
type SessionStartedEvent struct {
	BaseEvent
	StartedAt time.Time `json:"started_at"`
}

// Payload implements Event interface.
func (e SessionStartedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"started_at": e.StartedAt,
	}
}

// SessionEndedEvent is emitted when an activity session ends.
type SessionEndedEvent struct {
	BaseEvent
	DurationMs int64 `json:"duration_ms"`
	BonusXP    int   `json:"bonus_xp"`
}

// Payload implements Event interface.
func (e SessionEndedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"duration_ms": e.DurationMs,
		"bonus_xp":    e.BonusXP,
	}
}

// DailyResetPerformedEvent is emitted exactly once per local calendar day.
type DailyResetPerformedEvent struct {
	BaseEvent
	ResetDate string `json:"reset_date"`
}

// Payload implements Event interface.
func (e DailyResetPerformedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"reset_date": e.ResetDate,
	}
}

// EnergyRegeneratedEvent is emitted by the energy regen poller.
type EnergyRegeneratedEvent struct {
	BaseEvent
	NewEnergy int `json:"new_energy"`
}

// Payload implements Event interface.
func (e EnergyRegeneratedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"new_energy": e.NewEnergy,
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Event Bus Interfaces
// ═══════════════════════════════════════════════════════════════════════════

// EventHandler processes a single domain event.
type EventHandler func(event Event) error

// EventPublisher publishes domain events.
type EventPublisher interface {
	// Publish publishes an event to all subscribers.
	Publish(event Event) error

	// PublishAll publishes multiple events in order.
	PublishAll(events []Event) error
}

// EventSubscriber subscribes to domain events.
type EventSubscriber interface {
	// Subscribe registers a handler for a specific event type.
	Subscribe(eventType EventType, handler EventHandler) error

	// SubscribeAll registers a handler for all events.
	SubscribeAll(handler EventHandler) error
}

// EventBus combines publishing and subscribing.
type EventBus interface {
	EventPublisher
	EventSubscriber
}
