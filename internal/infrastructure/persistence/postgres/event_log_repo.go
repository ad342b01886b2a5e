package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/momentum-hub/progression-engine/internal/domain/shared"
	"github.com/momentum-hub/progression-engine/pkg/retry"
)

// ══════════════════════════════════════════════════════════════════════════════
// EVENT LOG REPOSITORY
// ══════════════════════════════════════════════════════════════════════════════

// EventLogRepository appends domain events to the audit log. It is fed
// by an event-bus subscriber, so writes must never block the command
// path: failures are retried briefly and then dropped by the caller.
type EventLogRepository struct {
	conn    *Connection
	retrier *retry.Retrier
}

// EventRecord is a stored event row.
type EventRecord struct {
	ID          int64
	EnvelopeID  string
	EventType   shared.EventType
	AggregateID string
	OccurredAt  time.Time
	Payload     map[string]interface{}
	RecordedAt  time.Time
}

// NewEventLogRepository creates a new EventLogRepository.
func NewEventLogRepository(conn *Connection) *EventLogRepository {
	return &EventLogRepository{
		conn:    conn,
		retrier: retry.DatabaseRetrier(),
	}
}

// Append stores a domain event. Duplicate envelope ids are ignored so
// redelivered events stay idempotent.
func (r *EventLogRepository) Append(ctx context.Context, event shared.Event) error {
	payload, err := json.Marshal(event.Payload())
	if err != nil {
		return fmt.Errorf("event log: marshal payload: %w", err)
	}

	envelopeID := uuid.NewString()

	return r.retrier.Do(ctx, func(ctx context.Context) error {
		_, err := r.conn.Exec(ctx, `
			INSERT INTO event_log (envelope_id, event_type, aggregate_id, occurred_at, payload)
			VALUES ($1, $2, $3, $4, $5)
			ON CONFLICT (envelope_id) DO NOTHING
		`, envelopeID, string(event.EventType()), event.AggregateID(), event.OccurredAt(), payload)
		if err != nil {
			return retry.Retryable(fmt.Errorf("event log: insert: %w", err))
		}
		return nil
	})
}

// Recent returns up to limit most recent events for an aggregate,
// newest first.
func (r *EventLogRepository) Recent(ctx context.Context, aggregateID string, limit int) ([]EventRecord, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := r.conn.Query(ctx, `
		SELECT id, envelope_id, event_type, aggregate_id, occurred_at, payload, recorded_at
		FROM event_log
		WHERE aggregate_id = $1
		ORDER BY occurred_at DESC, id DESC
		LIMIT $2
	`, aggregateID, limit)
	if err != nil {
		return nil, fmt.Errorf("event log: query recent: %w", err)
	}
	defer rows.Close()

	var records []EventRecord
	for rows.Next() {
		var (
			rec       EventRecord
			eventType string
			payload   []byte
		)
		if err := rows.Scan(&rec.ID, &rec.EnvelopeID, &eventType, &rec.AggregateID, &rec.OccurredAt, &payload, &rec.RecordedAt); err != nil {
			return nil, fmt.Errorf("event log: scan: %w", err)
		}
		rec.EventType = shared.EventType(eventType)

		if err := json.Unmarshal(payload, &rec.Payload); err != nil {
			return nil, fmt.Errorf("event log: unmarshal payload: %w", err)
		}

		records = append(records, rec)
	}

	return records, rows.Err()
}

// CountByType returns event counts grouped by type for an aggregate.
func (r *EventLogRepository) CountByType(ctx context.Context, aggregateID string) (map[shared.EventType]int64, error) {
	rows, err := r.conn.Query(ctx, `
		SELECT event_type, count(*)
		FROM event_log
		WHERE aggregate_id = $1
		GROUP BY event_type
	`, aggregateID)
	if err != nil {
		return nil, fmt.Errorf("event log: count by type: %w", err)
	}
	defer rows.Close()

	counts := make(map[shared.EventType]int64)
	for rows.Next() {
		var (
			eventType string
			count     int64
		)
		if err := rows.Scan(&eventType, &count); err != nil {
			return nil, fmt.Errorf("event log: scan count: %w", err)
		}
		counts[shared.EventType(eventType)] = count
	}

	return counts, rows.Err()
}
