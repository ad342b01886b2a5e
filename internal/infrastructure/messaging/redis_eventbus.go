package messaging

import (
	"context"
	"log/slog"
	"sync"

	goredis "github.com/redis/go-redis/v9"

	"github.com/momentum-hub/progression-engine/internal/domain/shared"
	"github.com/momentum-hub/progression-engine/internal/infrastructure/persistence/redis"
)

// ══════════════════════════════════════════════════════════════════════════════
// REDIS EVENT BUS
// ══════════════════════════════════════════════════════════════════════════════

// RedisEventBus fans domain events out across engine instances through
// Redis pub/sub. Local subscribers are served by the wrapped in-memory
// bus; every published event is additionally broadcast as an
// EventEnvelope, and envelopes received from other instances are
// re-delivered locally. Messages carrying our own InstanceID are
// dropped so events never loop back.
type RedisEventBus struct {
	local      *InMemoryEventBus
	cache      *redis.Cache
	channel    string
	instanceID string
	logger     *slog.Logger

	mu      sync.Mutex
	pubsub  *goredis.PubSub
	started bool
	wg      sync.WaitGroup
	cancel  context.CancelFunc
}

// NewRedisEventBus wraps a local bus with Redis fan-out.
func NewRedisEventBus(local *InMemoryEventBus, cache *redis.Cache, instanceID string, logger *slog.Logger) *RedisEventBus {
	if logger == nil {
		logger = slog.Default()
	}
	return &RedisEventBus{
		local:      local,
		cache:      cache,
		channel:    redis.EventsChannel(),
		instanceID: instanceID,
		logger:     logger,
	}
}

// Start subscribes to the fan-out channel and begins relaying remote
// events into the local bus.
func (b *RedisEventBus) Start(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.started {
		return nil
	}

	runCtx, cancel := context.WithCancel(ctx)
	b.cancel = cancel
	b.pubsub = b.cache.Subscribe(runCtx, b.channel)

	// Wait for the subscription to be confirmed before returning so
	// callers do not publish into the void.
	if _, err := b.pubsub.Receive(runCtx); err != nil {
		cancel()
		_ = b.pubsub.Close()
		b.pubsub = nil
		return err
	}

	b.started = true
	b.wg.Add(1)
	go b.receiveLoop(runCtx, b.pubsub.Channel())

	b.logger.Info("redis event bus started",
		"channel", b.channel,
		"instance_id", b.instanceID,
	)
	return nil
}

// receiveLoop relays remote envelopes into the local bus.
func (b *RedisEventBus) receiveLoop(ctx context.Context, messages <-chan *goredis.Message) {
	defer b.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-messages:
			if !ok {
				return
			}
			b.handleMessage(msg)
		}
	}
}

func (b *RedisEventBus) handleMessage(msg *goredis.Message) {
	event, envelope, err := Decode([]byte(msg.Payload))
	if err != nil {
		b.logger.Warn("dropping malformed event envelope", "error", err)
		return
	}
	if envelope.InstanceID == b.instanceID {
		return
	}

	if err := b.local.Publish(event); err != nil {
		b.logger.Error("failed to deliver remote event",
			"event_type", envelope.Type,
			"error", err,
		)
	}
}

// Publish delivers the event locally and broadcasts it to other
// instances. Broadcast failures are logged, not returned: local
// delivery is the source of truth, fan-out is best effort.
func (b *RedisEventBus) Publish(event shared.Event) error {
	if err := b.local.Publish(event); err != nil {
		return err
	}
	b.broadcast(event)
	return nil
}

// PublishAll publishes multiple events.
func (b *RedisEventBus) PublishAll(events []shared.Event) error {
	for _, event := range events {
		if err := b.Publish(event); err != nil {
			return err
		}
	}
	return nil
}

func (b *RedisEventBus) broadcast(event shared.Event) {
	data, err := Encode(event, b.instanceID)
	if err != nil {
		b.logger.Warn("failed to encode event for fan-out",
			"event_type", event.EventType(),
			"error", err,
		)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), b.cache.Client().Options().WriteTimeout)
	defer cancel()

	if err := b.cache.Publish(ctx, b.channel, data); err != nil {
		b.logger.Warn("failed to broadcast event",
			"event_type", event.EventType(),
			"error", err,
		)
	}
}

// Subscribe registers a local handler for an event type.
func (b *RedisEventBus) Subscribe(eventType shared.EventType, handler shared.EventHandler) error {
	return b.local.Subscribe(eventType, handler)
}

// SubscribeAll registers a local handler for all events.
func (b *RedisEventBus) SubscribeAll(handler shared.EventHandler) error {
	return b.local.SubscribeAll(handler)
}

// Close stops the relay and closes the local bus.
func (b *RedisEventBus) Close() error {
	b.mu.Lock()
	if !b.started {
		b.mu.Unlock()
		return b.local.Close()
	}
	b.started = false
	b.cancel()
	pubsub := b.pubsub
	b.pubsub = nil
	b.mu.Unlock()

	_ = pubsub.Close()
	b.wg.Wait()
	return b.local.Close()
}
