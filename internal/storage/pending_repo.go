package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"mealquest/internal/syncer"
)

// PendingRepo persists the offline queue so pending updates survive process
// restarts. It implements syncer.Journal.
type PendingRepo struct {
	db *sql.DB
}

func NewPendingRepo(db *sql.DB) *PendingRepo {
	return &PendingRepo{db: db}
}

// SavePending replaces the persisted queue for a user with the given
// entries, atomically. The queue is a single unit: a partial write would
// leave restart state ambiguous.
func (r *PendingRepo) SavePending(userID string, entries []syncer.PendingUpdate) error {
	ctx := context.Background()
	return WithTx(ctx, r.db, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM pending_updates WHERE user_id = ?`, userID); err != nil {
			return fmt.Errorf("pending clear: %w", err)
		}
		for _, e := range entries {
			payload, err := json.Marshal(e)
			if err != nil {
				return fmt.Errorf("pending encode: %w", err)
			}
			_, err = tx.ExecContext(ctx, `
				INSERT INTO pending_updates (id, user_id, seq, kind, payload, enqueued_at)
				VALUES (?, ?, ?, ?, ?, ?)
			`, e.ID, e.UserID, e.Seq, string(e.Kind), string(payload), e.EnqueuedAt)
			if err != nil {
				return fmt.Errorf("pending insert: %w", err)
			}
		}
		return nil
	})
}

// Load returns a user's persisted queue in enqueue order.
func (r *PendingRepo) Load(ctx context.Context, userID string) ([]syncer.PendingUpdate, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT payload FROM pending_updates WHERE user_id = ? ORDER BY seq ASC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("pending load: %w", err)
	}
	defer rows.Close()

	var out []syncer.PendingUpdate
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("pending scan: %w", err)
		}
		var e syncer.PendingUpdate
		if err := json.Unmarshal([]byte(payload), &e); err != nil {
			return nil, fmt.Errorf("pending decode: %w", err)
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("pending rows: %w", err)
	}
	return out, nil
}
