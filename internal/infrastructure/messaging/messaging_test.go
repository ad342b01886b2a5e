package messaging

import (
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/momentum-hub/progression-engine/internal/domain/shared"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newSyncBus() *InMemoryEventBus {
	return NewInMemoryEventBus(InMemoryEventBusConfig{
		AsyncMode: false,
		Logger:    discardLogger(),
	})
}

func levelUpEvent() shared.LevelUpEvent {
	return shared.LevelUpEvent{
		BaseEvent: shared.NewBaseEvent(shared.EventLevelUp, "local"),
		OldLevel:  4,
		NewLevel:  5,
	}
}

func TestInMemoryEventBus_DeliversToTypedAndWildcardHandlers(t *testing.T) {
	bus := newSyncBus()
	defer bus.Close()

	var typed, wildcard []shared.EventType
	require.NoError(t, bus.Subscribe(shared.EventLevelUp, func(e shared.Event) error {
		typed = append(typed, e.EventType())
		return nil
	}))
	require.NoError(t, bus.SubscribeAll(func(e shared.Event) error {
		wildcard = append(wildcard, e.EventType())
		return nil
	}))

	require.NoError(t, bus.Publish(levelUpEvent()))
	require.NoError(t, bus.Publish(shared.SessionStartedEvent{
		BaseEvent: shared.NewBaseEvent(shared.EventSessionStarted, "local"),
		StartedAt: time.Now(),
	}))

	assert.Equal(t, []shared.EventType{shared.EventLevelUp}, typed)
	assert.Equal(t, []shared.EventType{shared.EventLevelUp, shared.EventSessionStarted}, wildcard)
}

func TestInMemoryEventBus_RejectsNilAndClosed(t *testing.T) {
	bus := newSyncBus()

	assert.ErrorIs(t, bus.Publish(nil), ErrNilEvent)
	assert.ErrorIs(t, bus.Subscribe(shared.EventLevelUp, nil), ErrNilHandler)

	require.NoError(t, bus.Close())
	assert.ErrorIs(t, bus.Publish(levelUpEvent()), ErrEventBusClosed)
	assert.ErrorIs(t, bus.Subscribe(shared.EventLevelUp, func(shared.Event) error { return nil }), ErrEventBusClosed)
}

func TestInMemoryEventBus_AsyncModeDeliversThroughWorkerPool(t *testing.T) {
	bus := NewInMemoryEventBus(InMemoryEventBusConfig{
		AsyncMode:      true,
		WorkerPoolSize: 4,
		Logger:         discardLogger(),
	})

	var mu sync.Mutex
	count := 0
	require.NoError(t, bus.Subscribe(shared.EventLevelUp, func(shared.Event) error {
		mu.Lock()
		count++
		mu.Unlock()
		return nil
	}))

	for i := 0; i < 20; i++ {
		require.NoError(t, bus.Publish(levelUpEvent()))
	}

	// Close waits for in-flight async handlers.
	require.NoError(t, bus.Close())

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 20, count)
}

func TestEnvelope_RoundTrip(t *testing.T) {
	original := levelUpEvent()
	data, err := Encode(original, "instance-a")
	require.NoError(t, err)

	event, envelope, err := Decode(data)
	require.NoError(t, err)

	assert.Equal(t, "instance-a", envelope.InstanceID)
	assert.NotEmpty(t, envelope.EnvelopeID)
	assert.Equal(t, shared.EventLevelUp, event.EventType())
	assert.Equal(t, "local", event.AggregateID())
	assert.EqualValues(t, 5, event.Payload()["new_level"])
}

func TestDecode_RejectsGarbage(t *testing.T) {
	_, _, err := Decode([]byte("{not json"))
	assert.Error(t, err)
}

func TestDispatcher_RoutesEventsToRegisteredHandlers(t *testing.T) {
	bus := newSyncBus()
	defer bus.Close()

	d := NewDispatcher(DispatcherConfig{
		EventBus: bus,
		Logger:   discardLogger(),
	})

	var got []string
	require.NoError(t, d.Register(shared.EventLevelUp, "notifier", func(e shared.Event) error {
		got = append(got, "notifier")
		return nil
	}))
	require.NoError(t, d.Register(shared.EventLevelUp, "audit", func(e shared.Event) error {
		got = append(got, "audit")
		return nil
	}))
	require.NoError(t, d.Start())

	require.NoError(t, bus.Publish(levelUpEvent()))
	assert.Equal(t, []string{"notifier", "audit"}, got)
}

func TestDispatcher_RetriesThenDeadLetters(t *testing.T) {
	bus := newSyncBus()
	defer bus.Close()

	d := NewDispatcher(DispatcherConfig{
		EventBus: bus,
		RetryConfig: RetryConfig{
			MaxRetries:        2,
			InitialBackoff:    time.Millisecond,
			MaxBackoff:        5 * time.Millisecond,
			BackoffMultiplier: 2.0,
		},
		DeadLetterQueueSize: 10,
		Logger:              discardLogger(),
	})

	attempts := 0
	require.NoError(t, d.Register(shared.EventLevelUp, "flaky", func(shared.Event) error {
		attempts++
		return errors.New("downstream unavailable")
	}))
	err := d.Dispatch(levelUpEvent())
	require.Error(t, err)

	assert.Equal(t, 3, attempts) // initial try + 2 retries
	require.Equal(t, 1, d.DeadLetters().Size())
	entry := d.DeadLetters().Entries()[0]
	assert.Equal(t, "flaky", entry.HandlerName)
	assert.Contains(t, entry.Error, "downstream unavailable")
}

func TestDispatcher_RecoveryMiddlewareConvertsPanics(t *testing.T) {
	bus := newSyncBus()
	defer bus.Close()

	logger := discardLogger()
	d := NewDispatcher(DispatcherConfig{
		EventBus: bus,
		RetryConfig: RetryConfig{
			MaxRetries:        0,
			InitialBackoff:    time.Millisecond,
			MaxBackoff:        time.Millisecond,
			BackoffMultiplier: 1.0,
		},
		Logger: logger,
	})
	d.Use(RecoveryMiddleware(logger))

	require.NoError(t, d.Register(shared.EventLevelUp, "panicky", func(shared.Event) error {
		panic("boom")
	}))

	err := d.Dispatch(levelUpEvent())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "handler panic")
}

func TestDeadLetterQueue_EvictsOldestWhenFull(t *testing.T) {
	q := NewDeadLetterQueue(2)
	for _, name := range []string{"a", "b", "c"} {
		q.Add(DeadLetterEntry{HandlerName: name, FailedAt: time.Now()})
	}

	entries := q.Entries()
	require.Len(t, entries, 2)
	assert.Equal(t, "b", entries[0].HandlerName)
	assert.Equal(t, "c", entries[1].HandlerName)
}
