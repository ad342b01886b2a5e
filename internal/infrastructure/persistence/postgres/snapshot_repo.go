package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/momentum-hub/progression-engine/internal/engine"
	"github.com/momentum-hub/progression-engine/pkg/retry"
)

// ══════════════════════════════════════════════════════════════════════════════
// SNAPSHOT REPOSITORY
// ══════════════════════════════════════════════════════════════════════════════

// SnapshotRepository persists engine state snapshots. The engine boots
// from the latest snapshot and writes behind on mutations; history is
// kept for debugging and pruned periodically.
type SnapshotRepository struct {
	conn    *Connection
	retrier *retry.Retrier
}

// SnapshotRecord is a stored snapshot row.
type SnapshotRecord struct {
	ID        int64
	UserID    string
	State     *engine.State
	CreatedAt time.Time
}

// NewSnapshotRepository creates a new SnapshotRepository.
func NewSnapshotRepository(conn *Connection) *SnapshotRepository {
	return &SnapshotRepository{
		conn:    conn,
		retrier: retry.DatabaseRetrier(),
	}
}

// Save stores a new snapshot row. Transient failures are retried with
// backoff; the caller still holds the in-memory state, so a lost write
// only widens the recovery gap.
func (r *SnapshotRepository) Save(ctx context.Context, userID string, st *engine.State) error {
	data, err := json.Marshal(st)
	if err != nil {
		return fmt.Errorf("snapshot: marshal state: %w", err)
	}

	return r.retrier.Do(ctx, func(ctx context.Context) error {
		_, err := r.conn.Exec(ctx,
			`INSERT INTO state_snapshots (user_id, state) VALUES ($1, $2)`,
			userID, data,
		)
		if err != nil {
			return retry.Retryable(fmt.Errorf("snapshot: insert: %w", err))
		}
		return nil
	})
}

// LoadLatest returns the most recent snapshot for a user, or (nil, nil)
// when none exists yet.
func (r *SnapshotRepository) LoadLatest(ctx context.Context, userID string) (*SnapshotRecord, error) {
	row := r.conn.QueryRow(ctx, `
		SELECT id, user_id, state, created_at
		FROM state_snapshots
		WHERE user_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT 1
	`, userID)

	var (
		rec  SnapshotRecord
		data []byte
	)
	if err := row.Scan(&rec.ID, &rec.UserID, &data, &rec.CreatedAt); err != nil {
		if IsNoRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("snapshot: load latest: %w", err)
	}

	var st engine.State
	if err := json.Unmarshal(data, &st); err != nil {
		return nil, fmt.Errorf("snapshot: unmarshal state: %w", err)
	}
	rec.State = &st

	return &rec, nil
}

// Count returns the number of stored snapshots for a user.
func (r *SnapshotRepository) Count(ctx context.Context, userID string) (int64, error) {
	var count int64
	err := r.conn.QueryRow(ctx,
		`SELECT count(*) FROM state_snapshots WHERE user_id = $1`,
		userID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("snapshot: count: %w", err)
	}
	return count, nil
}

// Prune deletes all but the newest keep snapshots for a user and
// returns the number of rows removed.
func (r *SnapshotRepository) Prune(ctx context.Context, userID string, keep int) (int64, error) {
	if keep < 1 {
		keep = 1
	}

	tag, err := r.conn.Exec(ctx, `
		DELETE FROM state_snapshots
		WHERE user_id = $1 AND id NOT IN (
			SELECT id FROM state_snapshots
			WHERE user_id = $1
			ORDER BY created_at DESC, id DESC
			LIMIT $2
		)
	`, userID, keep)
	if err != nil {
		return 0, fmt.Errorf("snapshot: prune: %w", err)
	}

	return tag.RowsAffected(), nil
}
