// Package progress holds the session-authoritative copy of a user's
// progression state. Mutations are synchronous and never touch I/O; durable
// sync is someone else's job, fed by the change buffer.
package progress

import (
	"sync"

	"mealquest/internal/engine"
)

// Kind distinguishes what a change touched.
type Kind string

const (
	KindProgress Kind = "progress"
	KindProfile  Kind = "profile"
)

// Snapshot is a point-in-time copy of the store's values.
type Snapshot struct {
	Progress engine.UserProgress
	Profile  engine.UserProfile
}

// Change records one local mutation: the delta, the pre-mutation snapshot it
// can be rolled back to, and the sequence number it was applied at. Carrying
// the snapshot on the value keeps rollback independent of closure lifetimes.
type Change struct {
	Kind     Kind
	Progress engine.ProgressPatch
	Profile  engine.ProfilePatch
	Before   Snapshot
	Seq      uint64
}

// Store is the per-user local progress store. Mutations are O(1) and
// synchronous; subscribers are notified after each applied change.
//
// The store is safe for concurrent use, but the intended discipline is a
// single mutator (the UI/action path) with background readers.
type Store struct {
	mu       sync.Mutex
	userID   string
	progress engine.UserProgress
	profile  engine.UserProfile
	seq      uint64

	changes []Change
	signal  chan struct{} // coalesced change-availability signal

	subs    map[int]func(Snapshot)
	nextSub int
}

// New creates a store seeded with first-session defaults.
func New(userID string) *Store {
	return &Store{
		userID:   userID,
		progress: engine.NewUserProgress(),
		signal:   make(chan struct{}, 1),
		subs:     map[int]func(Snapshot){},
	}
}

func (s *Store) UserID() string { return s.userID }

// Progress returns the current, possibly-optimistic progress value.
func (s *Store) Progress() engine.UserProgress {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.progress
}

func (s *Store) Profile() engine.UserProfile {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.profile
}

// Seq returns the current mutation sequence number.
func (s *Store) Seq() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.seq
}

// MutateProgress applies a patch immediately and buffers an equivalent change
// descriptor for the sync path.
func (s *Store) MutateProgress(patch engine.ProgressPatch) Change {
	s.mu.Lock()
	before := Snapshot{Progress: s.progress, Profile: s.profile}
	patch.ApplyTo(&s.progress)
	s.seq++
	ch := Change{Kind: KindProgress, Progress: patch, Before: before, Seq: s.seq}
	s.changes = append(s.changes, ch)
	snap := Snapshot{Progress: s.progress, Profile: s.profile}
	subs := s.snapshotSubs()
	s.mu.Unlock()

	s.wake()
	notify(subs, snap)
	return ch
}

// MutateProfile is MutateProgress for profile fields.
func (s *Store) MutateProfile(patch engine.ProfilePatch) Change {
	s.mu.Lock()
	before := Snapshot{Progress: s.progress, Profile: s.profile}
	patch.ApplyTo(&s.profile)
	s.seq++
	ch := Change{Kind: KindProfile, Profile: patch, Before: before, Seq: s.seq}
	s.changes = append(s.changes, ch)
	snap := Snapshot{Progress: s.progress, Profile: s.profile}
	subs := s.snapshotSubs()
	s.mu.Unlock()

	s.wake()
	notify(subs, snap)
	return ch
}

// ReconcileProgress overwrites the local value with a server-confirmed one,
// but only if no local mutation landed after seq was observed. Reconciliation
// never re-enters the change buffer; server-confirmed state must not be
// re-queued.
func (s *Store) ReconcileProgress(p engine.UserProgress, ifSeq uint64) bool {
	s.mu.Lock()
	if s.seq != ifSeq {
		s.mu.Unlock()
		return false
	}
	s.progress = p
	s.seq++
	snap := Snapshot{Progress: s.progress, Profile: s.profile}
	subs := s.snapshotSubs()
	s.mu.Unlock()

	notify(subs, snap)
	return true
}

// ReconcileProfile is ReconcileProgress for profile fields.
func (s *Store) ReconcileProfile(p engine.UserProfile, ifSeq uint64) bool {
	s.mu.Lock()
	if s.seq != ifSeq {
		s.mu.Unlock()
		return false
	}
	s.profile = p
	s.seq++
	snap := Snapshot{Progress: s.progress, Profile: s.profile}
	subs := s.snapshotSubs()
	s.mu.Unlock()

	notify(subs, snap)
	return true
}

// Rollback restores the pre-mutation snapshot carried by ch, but only while
// ch is still the newest mutation. A failed older write must not clobber a
// newer optimistic value.
func (s *Store) Rollback(ch Change) bool {
	s.mu.Lock()
	if s.seq != ch.Seq {
		s.mu.Unlock()
		return false
	}
	s.progress = ch.Before.Progress
	s.profile = ch.Before.Profile
	s.seq++
	snap := Snapshot{Progress: s.progress, Profile: s.profile}
	subs := s.snapshotSubs()
	s.mu.Unlock()

	notify(subs, snap)
	return true
}

// BufferedChanges reports how many applied mutations are still waiting to be
// drained by the sync pump.
func (s *Store) BufferedChanges() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.changes)
}

// DrainChanges removes and returns all buffered change descriptors in the
// order they were applied.
func (s *Store) DrainChanges() []Change {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := s.changes
	s.changes = nil
	return out
}

// WaitChanges returns the coalesced signal channel. Use with select alongside
// context cancellation, then DrainChanges.
func (s *Store) WaitChanges() <-chan struct{} {
	return s.signal
}

// Subscribe registers a listener called after every applied change. The
// returned function unregisters it.
func (s *Store) Subscribe(fn func(Snapshot)) func() {
	s.mu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.subs, id)
		s.mu.Unlock()
	}
}

func (s *Store) wake() {
	select {
	case s.signal <- struct{}{}:
	default:
	}
}

// snapshotSubs copies the subscriber list so callbacks run without the lock.
func (s *Store) snapshotSubs() []func(Snapshot) {
	out := make([]func(Snapshot), 0, len(s.subs))
	for _, fn := range s.subs {
		out = append(out, fn)
	}
	return out
}

func notify(subs []func(Snapshot), snap Snapshot) {
	for _, fn := range subs {
		fn(snap)
	}
}
