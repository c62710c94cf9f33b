package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"mealquest/internal/engine"
	"mealquest/internal/remote"
)

type ProgressRepo struct {
	db *sql.DB
}

func NewProgressRepo(db *sql.DB) *ProgressRepo {
	return &ProgressRepo{db: db}
}

// Get returns the stored record, or nil if the user has none yet.
func (r *ProgressRepo) Get(ctx context.Context, userID string) (*remote.Record, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT score, coins, recipes_unlocked, has_claimed_gift, level, current_xp,
		       user_name, diet_type, body_type
		FROM user_progress WHERE user_id = ?
	`, userID)

	var rec remote.Record
	var gift int
	err := row.Scan(
		&rec.Progress.Score, &rec.Progress.Coins, &rec.Progress.RecipesUnlocked,
		&gift, &rec.Progress.Level, &rec.Progress.CurrentXP,
		&rec.Profile.UserName, &rec.Profile.DietType, &rec.Profile.BodyType,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("progress get: %w", err)
	}
	rec.Progress.HasClaimedGift = gift != 0
	return &rec, nil
}

// Merge applies a partial record on top of the stored one (first-session
// defaults when absent) inside a transaction, and returns the merged result.
// Applying the same patch twice yields the same stored record, which is the
// idempotency the offline queue relies on.
func (r *ProgressRepo) Merge(ctx context.Context, userID string, patch remote.Patch) (remote.Record, error) {
	var merged remote.Record
	err := WithTx(ctx, r.db, func(tx *sql.Tx) error {
		row := tx.QueryRowContext(ctx, `
			SELECT score, coins, recipes_unlocked, has_claimed_gift, level, current_xp,
			       user_name, diet_type, body_type
			FROM user_progress WHERE user_id = ?
		`, userID)

		var gift int
		err := row.Scan(
			&merged.Progress.Score, &merged.Progress.Coins, &merged.Progress.RecipesUnlocked,
			&gift, &merged.Progress.Level, &merged.Progress.CurrentXP,
			&merged.Profile.UserName, &merged.Profile.DietType, &merged.Profile.BodyType,
		)
		switch {
		case err == sql.ErrNoRows:
			merged.Progress = engine.NewUserProgress()
		case err != nil:
			return fmt.Errorf("progress read for merge: %w", err)
		default:
			merged.Progress.HasClaimedGift = gift != 0
		}

		if patch.Progress != nil {
			patch.Progress.ApplyTo(&merged.Progress)
		}
		if patch.Profile != nil {
			patch.Profile.ApplyTo(&merged.Profile)
		}

		giftInt := 0
		if merged.Progress.HasClaimedGift {
			giftInt = 1
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO user_progress
				(user_id, score, coins, recipes_unlocked, has_claimed_gift, level, current_xp,
				 user_name, diet_type, body_type, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(user_id) DO UPDATE SET
				score = excluded.score,
				coins = excluded.coins,
				recipes_unlocked = excluded.recipes_unlocked,
				has_claimed_gift = excluded.has_claimed_gift,
				level = excluded.level,
				current_xp = excluded.current_xp,
				user_name = excluded.user_name,
				diet_type = excluded.diet_type,
				body_type = excluded.body_type,
				updated_at = excluded.updated_at
		`, userID, merged.Progress.Score, merged.Progress.Coins, merged.Progress.RecipesUnlocked,
			giftInt, merged.Progress.Level, merged.Progress.CurrentXP,
			merged.Profile.UserName, merged.Profile.DietType, merged.Profile.BodyType,
			time.Now().UTC())
		if err != nil {
			return fmt.Errorf("progress upsert: %w", err)
		}
		return nil
	})
	if err != nil {
		return remote.Record{}, err
	}
	return merged, nil
}
