// Package service implements infrastructure services that sit between
// domain events and the outside world: notification delivery and the
// snapshot write-behind.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/momentum-hub/progression-engine/internal/domain/notification"
	"github.com/momentum-hub/progression-engine/internal/domain/shared"
	"github.com/momentum-hub/progression-engine/pkg/circuitbreaker"
	"github.com/momentum-hub/progression-engine/pkg/retry"
)

// ══════════════════════════════════════════════════════════════════════════════
// DELIVERY CHANNELS
// ══════════════════════════════════════════════════════════════════════════════

// LogChannel delivers notifications to the structured log. It is the
// default channel; UI-facing channels plug in through the same
// notification.Channel interface.
type LogChannel struct {
	logger *slog.Logger
}

// NewLogChannel creates a LogChannel.
func NewLogChannel(logger *slog.Logger) *LogChannel {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogChannel{logger: logger}
}

// Deliver implements notification.Channel.
func (c *LogChannel) Deliver(n *notification.Notification) error {
	c.logger.Info("notification",
		"type", n.Type,
		"priority", n.Priority,
		"title", n.Title,
		"message", n.Message,
	)
	return nil
}

// ══════════════════════════════════════════════════════════════════════════════
// NOTIFICATION SERVICE
// ══════════════════════════════════════════════════════════════════════════════

// QuietHours suppresses non-urgent notifications in a local-time window.
type QuietHours struct {
	// Enabled turns suppression on.
	Enabled bool

	// StartHour..EndHour is the suppression window in local hours.
	// A window may wrap midnight (e.g. 22..8).
	StartHour int
	EndHour   int
}

// Contains reports whether t falls inside the quiet window.
func (q QuietHours) Contains(t time.Time) bool {
	if !q.Enabled {
		return false
	}
	h := t.Hour()
	if q.StartHour <= q.EndHour {
		return h >= q.StartHour && h < q.EndHour
	}
	return h >= q.StartHour || h < q.EndHour
}

// NotificationService delivers notifications through registered
// channels. Each channel sits behind a shared circuit breaker so a
// dead channel cannot stall the event pipeline; failed deliveries are
// retried with backoff and finally dropped with a log line.
type NotificationService struct {
	channels   []notification.Channel
	breaker    *circuitbreaker.CircuitBreaker
	retrier    *retry.Retrier
	clock      shared.Clock
	location   *time.Location
	quietHours QuietHours
	logger     *slog.Logger

	mu      sync.Mutex
	history []*notification.Notification
	maxHist int
}

// NotificationServiceConfig configures the NotificationService.
type NotificationServiceConfig struct {
	Channels   []notification.Channel
	Clock      shared.Clock
	Location   *time.Location
	QuietHours QuietHours
	Logger     *slog.Logger

	// HistorySize bounds the in-memory delivery history. Default 100.
	HistorySize int
}

// NewNotificationService creates a NotificationService.
func NewNotificationService(cfg NotificationServiceConfig) *NotificationService {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Clock == nil {
		cfg.Clock = shared.SystemClock{}
	}
	if cfg.Location == nil {
		cfg.Location = time.Local
	}
	if cfg.HistorySize <= 0 {
		cfg.HistorySize = 100
	}
	if len(cfg.Channels) == 0 {
		cfg.Channels = []notification.Channel{NewLogChannel(cfg.Logger)}
	}

	s := &NotificationService{
		channels:   cfg.Channels,
		retrier:    retry.NotificationRetrier(),
		clock:      cfg.Clock,
		location:   cfg.Location,
		quietHours: cfg.QuietHours,
		logger:     cfg.Logger,
		maxHist:    cfg.HistorySize,
	}
	s.breaker = circuitbreaker.NotificationBreaker(func(name string, from, to circuitbreaker.State) {
		cfg.Logger.Warn("notification circuit state changed",
			"breaker", name,
			"from", from.String(),
			"to", to.String(),
		)
	})
	return s
}

// Notify implements notification.Service. High-priority notifications
// bypass quiet hours; everything else is suppressed inside the window.
func (s *NotificationService) Notify(n *notification.Notification) error {
	if n == nil {
		return nil
	}

	now := s.clock.Now().In(s.location)
	if n.Priority != notification.PriorityHigh && s.quietHours.Contains(now) {
		s.logger.Debug("notification suppressed by quiet hours",
			"type", n.Type,
			"title", n.Title,
		)
		return nil
	}

	s.record(n)

	var firstErr error
	for _, ch := range s.channels {
		if err := s.deliver(ch, n); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (s *NotificationService) deliver(ch notification.Channel, n *notification.Notification) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	err := s.breaker.Execute(ctx, func(ctx context.Context) error {
		return s.retrier.Do(ctx, func(ctx context.Context) error {
			if err := ch.Deliver(n); err != nil {
				return retry.Retryable(err)
			}
			return nil
		})
	})
	if err != nil {
		s.logger.Warn("notification delivery failed",
			"type", n.Type,
			"title", n.Title,
			"error", err,
		)
		return fmt.Errorf("%w: %v", notification.ErrChannelUnavailable, err)
	}
	return nil
}

func (s *NotificationService) record(n *notification.Notification) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.history) >= s.maxHist {
		s.history = s.history[1:]
	}
	s.history = append(s.history, n)
}

// Recent returns a copy of the delivery history, oldest first.
func (s *NotificationService) Recent() []*notification.Notification {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]*notification.Notification, len(s.history))
	copy(out, s.history)
	return out
}
