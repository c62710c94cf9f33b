package syncer

import (
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"mealquest/internal/engine"
	"mealquest/internal/progress"
	"mealquest/internal/remote"
)

// PendingUpdate is one mutation awaiting remote confirmation. It is owned by
// the queue from enqueue until a confirmed flush of this exact ID removes it.
type PendingUpdate struct {
	ID         string                `json:"id"`
	Seq        uint64                `json:"seq"`
	UserID     string                `json:"userId"`
	Kind       progress.Kind         `json:"type"`
	Progress   *engine.ProgressPatch `json:"progress,omitempty"`
	Profile    *engine.ProfilePatch  `json:"profile,omitempty"`
	EnqueuedAt time.Time             `json:"enqueuedAt"`
}

// Patch converts the update to the remote merge shape. Merge semantics make
// duplicate delivery of the same update safe.
func (u PendingUpdate) Patch() remote.Patch {
	return remote.Patch{Progress: u.Progress, Profile: u.Profile}
}

func pendingFromChange(userID string, ch progress.Change) PendingUpdate {
	u := PendingUpdate{
		ID:         uuid.NewString(),
		Seq:        ch.Seq,
		UserID:     userID,
		Kind:       ch.Kind,
		EnqueuedAt: time.Now().UTC(),
	}
	switch ch.Kind {
	case progress.KindProfile:
		p := ch.Profile
		u.Profile = &p
	default:
		p := ch.Progress
		u.Progress = &p
	}
	return u
}

// Journal persists the queue contents after each mutation so pending updates
// survive process restarts.
type Journal interface {
	SavePending(userID string, entries []PendingUpdate) error
}

// Queue buffers mutations made while offline or after exhausted writes,
// FIFO by enqueue order. Entries leave only on confirmed flush.
type Queue struct {
	mu      sync.Mutex
	userID  string
	entries []PendingUpdate
	journal Journal
	logger  *slog.Logger
}

// NewQueue creates an empty queue. journal may be nil for memory-only use.
func NewQueue(userID string, journal Journal, logger *slog.Logger) *Queue {
	if logger == nil {
		logger = slog.Default()
	}
	return &Queue{userID: userID, journal: journal, logger: logger}
}

// Restore seeds the queue from persisted entries, oldest first.
func (q *Queue) Restore(entries []PendingUpdate) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.entries = append(q.entries[:0], entries...)
}

// Enqueue appends an update to the back of the queue.
func (q *Queue) Enqueue(u PendingUpdate) {
	q.mu.Lock()
	q.entries = append(q.entries, u)
	q.persistLocked()
	q.mu.Unlock()
}

// Batch returns up to n entries from the front without removing them.
// Removal happens per-entry after confirmed delivery.
func (q *Queue) Batch(n int) []PendingUpdate {
	q.mu.Lock()
	defer q.mu.Unlock()
	if n > len(q.entries) {
		n = len(q.entries)
	}
	out := make([]PendingUpdate, n)
	copy(out, q.entries[:n])
	return out
}

// Remove deletes confirmed entries by ID. Unknown IDs are ignored, which
// makes double-acknowledgment harmless.
func (q *Queue) Remove(ids ...string) {
	if len(ids) == 0 {
		return
	}
	confirmed := make(map[string]bool, len(ids))
	for _, id := range ids {
		confirmed[id] = true
	}

	q.mu.Lock()
	kept := q.entries[:0]
	for _, e := range q.entries {
		if !confirmed[e.ID] {
			kept = append(kept, e)
		}
	}
	q.entries = kept
	q.persistLocked()
	q.mu.Unlock()
}

// Len returns the number of pending updates.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.entries)
}

// Entries returns a copy of the whole queue, oldest first.
func (q *Queue) Entries() []PendingUpdate {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]PendingUpdate, len(q.entries))
	copy(out, q.entries)
	return out
}

func (q *Queue) persistLocked() {
	if q.journal == nil {
		return
	}
	entries := make([]PendingUpdate, len(q.entries))
	copy(entries, q.entries)
	if err := q.journal.SavePending(q.userID, entries); err != nil {
		q.logger.Warn("persist pending queue failed", "user", q.userID, "err", err)
	}
}
