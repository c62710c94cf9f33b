// Package remote defines the contract the sync engine requires from a
// remote progress store. Everything behind these signatures is a black box;
// the only hard requirement is that WriteMerge is a merge/upsert, so a
// retried update is safe to deliver twice.
package remote

import (
	"context"

	"mealquest/internal/engine"
)

// Record is the server-side view of one user.
type Record struct {
	Progress engine.UserProgress `json:"progress"`
	Profile  engine.UserProfile  `json:"profile"`
}

// Patch is a partial Record for merge writes.
type Patch struct {
	Progress *engine.ProgressPatch `json:"progress,omitempty"`
	Profile  *engine.ProfilePatch  `json:"profile,omitempty"`
}

// Store is the remote persistence collaborator.
type Store interface {
	// Read returns the current record, or ErrNotFound.
	Read(ctx context.Context, userID string) (Record, error)

	// WriteMerge merges the set fields of patch into the stored record,
	// creating it if missing. Must be idempotent for identical patches.
	WriteMerge(ctx context.Context, userID string, patch Patch) error

	// Subscribe pushes server-side changes (e.g. from other devices) until
	// the returned unsubscribe function is called or ctx is cancelled.
	Subscribe(ctx context.Context, userID string, onChange func(Record), onError func(error)) (func(), error)
}
