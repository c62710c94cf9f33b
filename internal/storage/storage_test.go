package storage

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"mealquest/internal/engine"
	"mealquest/internal/progress"
	"mealquest/internal/remote"
	"mealquest/internal/syncer"
)

func newTestDB(t *testing.T) *sql.DB {
	t.Helper()
	ctx := context.Background()

	dir := t.TempDir()
	db, err := Open(ctx, filepath.Join(dir, "test.db"))
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestProgressGetMissing(t *testing.T) {
	repo := NewProgressRepo(newTestDB(t))
	rec, err := repo.Get(context.Background(), "nobody")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if rec != nil {
		t.Fatalf("expected nil for missing user, got %+v", rec)
	}
}

func TestProgressMergeCreatesWithDefaults(t *testing.T) {
	repo := NewProgressRepo(newTestDB(t))
	ctx := context.Background()

	score := 40
	merged, err := repo.Merge(ctx, "u1", remote.Patch{Progress: &engine.ProgressPatch{Score: &score}})
	if err != nil {
		t.Fatalf("merge: %v", err)
	}
	if merged.Progress.Score != 40 {
		t.Fatalf("score=%d, want 40", merged.Progress.Score)
	}
	if merged.Progress.Level != 1 {
		t.Fatalf("level=%d, want first-session default 1", merged.Progress.Level)
	}
}

func TestProgressMergeIsPartialAndIdempotent(t *testing.T) {
	repo := NewProgressRepo(newTestDB(t))
	ctx := context.Background()

	score, coins := 100, 55
	if _, err := repo.Merge(ctx, "u1", remote.Patch{Progress: &engine.ProgressPatch{Score: &score, Coins: &coins}}); err != nil {
		t.Fatalf("merge seed: %v", err)
	}

	// A patch touching only coins must not disturb score.
	coins2 := 80
	patch := remote.Patch{Progress: &engine.ProgressPatch{Coins: &coins2}}
	if _, err := repo.Merge(ctx, "u1", patch); err != nil {
		t.Fatalf("merge partial: %v", err)
	}
	once, err := repo.Get(ctx, "u1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}

	// Duplicate delivery of the same patch leaves the record identical.
	if _, err := repo.Merge(ctx, "u1", patch); err != nil {
		t.Fatalf("merge duplicate: %v", err)
	}
	twice, err := repo.Get(ctx, "u1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}

	if *once != *twice {
		t.Fatalf("duplicate merge changed record: %+v vs %+v", once, twice)
	}
	if twice.Progress.Score != 100 || twice.Progress.Coins != 80 {
		t.Fatalf("merged record wrong: %+v", twice.Progress)
	}
}

func TestPendingSaveLoadRoundTrip(t *testing.T) {
	db := newTestDB(t)
	repo := NewPendingRepo(db)
	ctx := context.Background()

	score1, score2 := 10, 20
	name := "ada"
	entries := []syncer.PendingUpdate{
		{
			ID: "a", Seq: 1, UserID: "u1", Kind: progress.KindProgress,
			Progress:   &engine.ProgressPatch{Score: &score1},
			EnqueuedAt: time.Date(2026, 8, 1, 9, 0, 0, 0, time.UTC),
		},
		{
			ID: "b", Seq: 2, UserID: "u1", Kind: progress.KindProfile,
			Profile:    &engine.ProfilePatch{UserName: &name},
			EnqueuedAt: time.Date(2026, 8, 1, 9, 0, 1, 0, time.UTC),
		},
		{
			ID: "c", Seq: 3, UserID: "u1", Kind: progress.KindProgress,
			Progress:   &engine.ProgressPatch{Score: &score2},
			EnqueuedAt: time.Date(2026, 8, 1, 9, 0, 2, 0, time.UTC),
		},
	}

	if err := repo.SavePending("u1", entries); err != nil {
		t.Fatalf("save: %v", err)
	}
	loaded, err := repo.Load(ctx, "u1")
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if len(loaded) != 3 {
		t.Fatalf("loaded %d entries, want 3", len(loaded))
	}
	for i := range entries {
		if loaded[i].ID != entries[i].ID || loaded[i].Seq != entries[i].Seq || loaded[i].Kind != entries[i].Kind {
			t.Fatalf("entry %d mismatch: %+v vs %+v", i, loaded[i], entries[i])
		}
	}
	if *loaded[0].Progress.Score != 10 || *loaded[2].Progress.Score != 20 {
		t.Fatalf("payload mismatch: %+v", loaded)
	}
	if loaded[1].Profile == nil || *loaded[1].Profile.UserName != "ada" {
		t.Fatalf("profile payload mismatch: %+v", loaded[1])
	}

	// Save replaces atomically: a shorter queue fully overwrites.
	if err := repo.SavePending("u1", entries[2:]); err != nil {
		t.Fatalf("save shorter: %v", err)
	}
	loaded, err = repo.Load(ctx, "u1")
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if len(loaded) != 1 || loaded[0].ID != "c" {
		t.Fatalf("replace failed: %+v", loaded)
	}
}

func TestPendingLoadEmpty(t *testing.T) {
	repo := NewPendingRepo(newTestDB(t))
	loaded, err := repo.Load(context.Background(), "u1")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(loaded) != 0 {
		t.Fatalf("expected empty queue, got %d", len(loaded))
	}
}
