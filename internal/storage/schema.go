package storage

import (
	"context"
	"database/sql"
	"fmt"
)

func Migrate(ctx context.Context, db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS user_progress (
			user_id TEXT PRIMARY KEY,
			score INTEGER DEFAULT 0,
			coins INTEGER DEFAULT 0,
			recipes_unlocked INTEGER DEFAULT 0,
			has_claimed_gift INTEGER DEFAULT 0,
			level INTEGER DEFAULT 1,
			current_xp INTEGER DEFAULT 0,

			user_name TEXT DEFAULT '',
			diet_type TEXT DEFAULT '',
			body_type TEXT DEFAULT '',

			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
		);`,
		// Offline queue persistence. payload carries the full update as JSON
		// so the queue round-trips exactly; seq keeps enqueue order stable.
		`CREATE TABLE IF NOT EXISTS pending_updates (
			id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL,
			seq INTEGER NOT NULL,
			kind TEXT NOT NULL,
			payload TEXT NOT NULL,
			enqueued_at DATETIME NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_pending_updates_user_seq ON pending_updates(user_id, seq);`,
	}

	for _, stmt := range stmts {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}
