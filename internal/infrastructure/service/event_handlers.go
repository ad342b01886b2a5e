package service

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/momentum-hub/progression-engine/internal/domain/notification"
	"github.com/momentum-hub/progression-engine/internal/domain/shared"
	"github.com/momentum-hub/progression-engine/internal/engine"
	"github.com/momentum-hub/progression-engine/internal/infrastructure/messaging"
	"github.com/momentum-hub/progression-engine/internal/infrastructure/persistence/postgres"
)

// ══════════════════════════════════════════════════════════════════════════════
// NOTIFICATION EVENT HANDLER
// ══════════════════════════════════════════════════════════════════════════════

// NotificationEventHandler turns domain events into user notifications.
// It reads event payloads instead of type-asserting concrete structs so
// events relayed from other instances (map payloads) are handled the
// same way as local ones.
type NotificationEventHandler struct {
	service notification.Service
	logger  *slog.Logger
}

// NewNotificationEventHandler creates a NotificationEventHandler.
func NewNotificationEventHandler(service notification.Service, logger *slog.Logger) *NotificationEventHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &NotificationEventHandler{
		service: service,
		logger:  logger,
	}
}

// HandleEvent implements shared.EventHandler.
func (h *NotificationEventHandler) HandleEvent(event shared.Event) error {
	n, err := h.build(event)
	if err != nil {
		h.logger.Warn("failed to build notification",
			"event_type", event.EventType(),
			"error", err,
		)
		return nil
	}
	if n == nil {
		return nil
	}
	return h.service.Notify(n)
}

func (h *NotificationEventHandler) build(event shared.Event) (*notification.Notification, error) {
	payload := event.Payload()

	switch event.EventType() {
	case shared.EventLevelUp:
		return notification.NewLevelUp(payloadInt(payload, "new_level"))

	case shared.EventStreakMilestone:
		return notification.NewStreakMilestone(payloadInt(payload, "streak"))

	case shared.EventStreakBroken:
		return notification.NewStreakBroken(
			payloadInt(payload, "previous_streak"),
			payloadInt(payload, "days_inactive"),
		)

	case shared.EventPenaltyApplied:
		return notification.NewPenaltyApplied(
			payloadInt(payload, "xp_penalty"),
			payloadInt(payload, "days_inactive"),
			payloadBool(payload, "streak_reset"),
		)

	case shared.EventPowerUpExpired:
		return notification.NewPowerUpExpired(payloadString(payload, "powerup_id"))

	case shared.EventDailyResetPerformed:
		return notification.NewDailyReset(payloadString(payload, "reset_date"))

	default:
		return nil, nil
	}
}

// Register subscribes the handler to every event type it builds
// notifications for.
func (h *NotificationEventHandler) Register(d *messaging.Dispatcher) error {
	types := []shared.EventType{
		shared.EventLevelUp,
		shared.EventStreakMilestone,
		shared.EventStreakBroken,
		shared.EventPenaltyApplied,
		shared.EventPowerUpExpired,
		shared.EventDailyResetPerformed,
	}
	for _, t := range types {
		if err := d.Register(t, "notifications", h.HandleEvent); err != nil {
			return err
		}
	}
	return nil
}

// Payload values arrive as int from local events and float64 from
// decoded JSON envelopes.
func payloadInt(payload map[string]interface{}, key string) int {
	switch v := payload[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	default:
		return 0
	}
}

func payloadString(payload map[string]interface{}, key string) string {
	if v, ok := payload[key].(string); ok {
		return v
	}
	return ""
}

func payloadBool(payload map[string]interface{}, key string) bool {
	if v, ok := payload[key].(bool); ok {
		return v
	}
	return false
}

// ══════════════════════════════════════════════════════════════════════════════
// SNAPSHOT WRITE-BEHIND
// ══════════════════════════════════════════════════════════════════════════════

// SnapshotWriteBehind subscribes to all domain events, appends them to
// the audit log, and periodically persists a state snapshot. Writes
// happen on the event path after the store swap, so a failed write
// never affects the in-memory state.
type SnapshotWriteBehind struct {
	store     *engine.Store
	snapshots *postgres.SnapshotRepository
	events    *postgres.EventLogRepository
	userID    string
	interval  time.Duration
	logger    *slog.Logger

	mu        sync.Mutex
	lastWrite time.Time
}

// NewSnapshotWriteBehind creates a SnapshotWriteBehind. interval bounds
// how often full snapshots are written; events are always logged.
func NewSnapshotWriteBehind(
	store *engine.Store,
	snapshots *postgres.SnapshotRepository,
	events *postgres.EventLogRepository,
	userID string,
	interval time.Duration,
	logger *slog.Logger,
) *SnapshotWriteBehind {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &SnapshotWriteBehind{
		store:     store,
		snapshots: snapshots,
		events:    events,
		userID:    userID,
		interval:  interval,
		logger:    logger,
	}
}

// HandleEvent implements shared.EventHandler.
func (w *SnapshotWriteBehind) HandleEvent(event shared.Event) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if w.events != nil {
		if err := w.events.Append(ctx, event); err != nil {
			w.logger.Warn("event log append failed",
				"event_type", event.EventType(),
				"error", err,
			)
		}
	}

	if w.snapshots == nil || !w.shouldSnapshot(event) {
		return nil
	}

	if err := w.snapshots.Save(ctx, w.userID, w.store.Snapshot()); err != nil {
		w.logger.Warn("snapshot write failed", "error", err)
		return nil
	}
	w.logger.Debug("snapshot persisted", "user_id", w.userID)
	return nil
}

// Flush persists a snapshot immediately. Called on shutdown.
func (w *SnapshotWriteBehind) Flush(ctx context.Context) error {
	if w.snapshots == nil {
		return nil
	}
	return w.snapshots.Save(ctx, w.userID, w.store.Snapshot())
}

// shouldSnapshot rate-limits snapshot writes. Daily resets and session
// ends always snapshot: those are the states a recovery most wants.
func (w *SnapshotWriteBehind) shouldSnapshot(event shared.Event) bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	now := w.store.Clock().Now()
	force := event.EventType() == shared.EventDailyResetPerformed ||
		event.EventType() == shared.EventSessionEnded

	if !force && now.Sub(w.lastWrite) < w.interval {
		return false
	}
	w.lastWrite = now
	return true
}

// Register subscribes the write-behind as a wildcard handler.
func (w *SnapshotWriteBehind) Register(bus shared.EventSubscriber) error {
	return bus.SubscribeAll(w.HandleEvent)
}
