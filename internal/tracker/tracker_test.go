package tracker

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mealquest/internal/engine"
	"mealquest/internal/remote"
	"mealquest/internal/syncer"
)

// fakeRemote is an in-memory remote.Store with merge-upsert semantics.
type fakeRemote struct {
	mu       sync.Mutex
	records  map[string]remote.Record
	writes   int
	writeErr error

	// blockWrite, when set, gates each write on receiving a token, so a test
	// can hold a write in flight and control settlement order.
	blockWrite   chan struct{}
	writeStarted chan struct{}

	onChange func(remote.Record)
}

func newFakeRemote() *fakeRemote {
	return &fakeRemote{records: map[string]remote.Record{}}
}

func (f *fakeRemote) Read(_ context.Context, userID string) (remote.Record, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	rec, ok := f.records[userID]
	if !ok {
		return remote.Record{}, remote.ErrNotFound
	}
	return rec, nil
}

func (f *fakeRemote) WriteMerge(_ context.Context, userID string, patch remote.Patch) error {
	f.mu.Lock()
	started := f.writeStarted
	block := f.blockWrite
	f.mu.Unlock()
	if started != nil {
		started <- struct{}{}
	}
	if block != nil {
		<-block
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.writes++
	if f.writeErr != nil {
		return f.writeErr
	}
	rec, ok := f.records[userID]
	if !ok {
		rec = remote.Record{Progress: engine.NewUserProgress()}
	}
	if patch.Progress != nil {
		patch.Progress.ApplyTo(&rec.Progress)
	}
	if patch.Profile != nil {
		patch.Profile.ApplyTo(&rec.Profile)
	}
	f.records[userID] = rec
	return nil
}

func (f *fakeRemote) Subscribe(_ context.Context, _ string, onChange func(remote.Record), _ func(error)) (func(), error) {
	f.mu.Lock()
	f.onChange = onChange
	f.mu.Unlock()
	return func() {}, nil
}

func (f *fakeRemote) record(userID string) (remote.Record, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	rec, ok := f.records[userID]
	return rec, ok
}

func (f *fakeRemote) setRecord(userID string, rec remote.Record) {
	f.mu.Lock()
	f.records[userID] = rec
	f.mu.Unlock()
}

func (f *fakeRemote) push(rec remote.Record) {
	f.mu.Lock()
	fn := f.onChange
	f.mu.Unlock()
	if fn != nil {
		fn(rec)
	}
}

func newTracker(t *testing.T, rem *fakeRemote, mutate func(*Config)) *Tracker {
	t.Helper()
	cfg := Config{
		Remote:        rem,
		Retry:         syncer.RetryPolicy{MaxAttempts: 1, Backoff: func(int) time.Duration { return 0 }},
		FlushInterval: 20 * time.Millisecond,
		BatchSize:     5,
	}
	if mutate != nil {
		mutate(&cfg)
	}
	tr, err := New("alex", cfg)
	require.NoError(t, err)
	t.Cleanup(tr.Close)
	return tr
}

func TestCompleteTaskAppliesImmediately(t *testing.T) {
	tr := newTracker(t, newFakeRemote(), func(cfg *Config) { cfg.StartOffline = true })

	res, err := tr.CompleteTask(engine.TaskRewardSpec{
		TaskID:      "meal-1",
		Type:        engine.TaskMeal,
		ScoreReward: 10,
		CoinReward:  5,
	}, 0)
	require.NoError(t, err)

	got := tr.Progress()
	assert.Equal(t, 10, got.Score)
	assert.Equal(t, 5, got.Coins)
	assert.Equal(t, 1, got.Level)
	assert.Equal(t, 15, got.CurrentXP) // MEAL base XP, no streak
	assert.Zero(t, res.LevelsGained)
}

func TestCompleteTaskCascadesLevels(t *testing.T) {
	tr := newTracker(t, newFakeRemote(), func(cfg *Config) { cfg.StartOffline = true })

	res, err := tr.CompleteTask(engine.TaskRewardSpec{
		TaskID:   "challenge-1",
		Type:     engine.TaskCooking,
		XPReward: 350,
	}, 0)
	require.NoError(t, err)

	assert.Equal(t, 2, res.LevelsGained)
	assert.Equal(t, 100, res.BonusCoins)

	got := tr.Progress()
	assert.Equal(t, 3, got.Level)
	assert.Equal(t, 50, got.CurrentXP)
	assert.Equal(t, 100, got.Coins)
}

func TestCompleteTaskStreakMultiplier(t *testing.T) {
	tr := newTracker(t, newFakeRemote(), func(cfg *Config) { cfg.StartOffline = true })

	_, err := tr.CompleteTask(engine.TaskRewardSpec{Type: engine.TaskMeal}, 7)
	require.NoError(t, err)
	assert.Equal(t, 23, tr.Progress().CurrentXP) // 15 * 1.5 rounded half-up
}

func TestCompleteTaskRejectsBadInput(t *testing.T) {
	tr := newTracker(t, newFakeRemote(), func(cfg *Config) { cfg.StartOffline = true })

	_, err := tr.CompleteTask(engine.TaskRewardSpec{Type: engine.TaskMeal}, -1)
	require.Error(t, err)

	_, err = tr.CompleteTask(engine.TaskRewardSpec{Type: engine.TaskMeal, ScoreReward: -5}, 0)
	require.Error(t, err)

	// Nothing was applied or queued.
	assert.Zero(t, tr.Progress().Score)
	assert.Zero(t, tr.PendingUpdateCount())
}

func TestOfflineCompletionsFlushOnReconnect(t *testing.T) {
	rem := newFakeRemote()
	tr := newTracker(t, rem, func(cfg *Config) {
		cfg.StartOffline = true
		// Strictly ordered delivery so the final record is deterministic.
		cfg.BatchSize = 1
	})

	for i := 0; i < 3; i++ {
		_, err := tr.CompleteTask(engine.TaskRewardSpec{Type: engine.TaskWater, ScoreReward: 10}, 0)
		require.NoError(t, err)
	}

	require.Eventually(t, func() bool { return tr.PendingUpdateCount() == 3 },
		time.Second, 5*time.Millisecond, "offline completions should queue")
	assert.Equal(t, 0, rem.writeCount(), "no remote traffic while offline")

	tr.SetOnline(true)

	require.Eventually(t, func() bool {
		rec, ok := rem.record("alex")
		return ok && rec.Progress.Score == 30 && tr.PendingUpdateCount() == 0
	}, time.Second, 5*time.Millisecond, "reconnect should drain the queue")
}

func TestRestoreSeedsPendingQueue(t *testing.T) {
	rem := newFakeRemote()
	ten := 10
	restored := []syncer.PendingUpdate{{
		ID:       "restored-1",
		UserID:   "alex",
		Progress: &engine.ProgressPatch{Score: &ten},
	}}
	tr := newTracker(t, rem, func(cfg *Config) {
		cfg.StartOffline = true
		cfg.Restore = restored
	})

	assert.Equal(t, 1, tr.PendingUpdateCount())

	tr.SetOnline(true)
	require.Eventually(t, func() bool {
		rec, ok := rem.record("alex")
		return ok && rec.Progress.Score == 10
	}, time.Second, 5*time.Millisecond)
}

func TestHydrateFromServer(t *testing.T) {
	rem := newFakeRemote()
	rem.setRecord("alex", remote.Record{
		Progress: engine.UserProgress{Score: 500, Coins: 40, Level: 3, CurrentXP: 120},
		Profile:  engine.UserProfile{UserName: "Alex"},
	})

	tr := newTracker(t, rem, nil)

	got := tr.Progress()
	assert.Equal(t, 500, got.Score)
	assert.Equal(t, 3, got.Level)
	assert.Equal(t, "Alex", tr.Profile().UserName)
}

func TestWatchReconcilesWhenIdle(t *testing.T) {
	rem := newFakeRemote()
	tr := newTracker(t, rem, func(cfg *Config) { cfg.Watch = true })

	rem.push(remote.Record{Progress: engine.UserProgress{Score: 77, Level: 2}})
	assert.Equal(t, 77, tr.Progress().Score)
}

func TestWatchSkippedWhilePending(t *testing.T) {
	rem := newFakeRemote()
	tr := newTracker(t, rem, func(cfg *Config) {
		cfg.Watch = true
		cfg.StartOffline = true
	})

	_, err := tr.CompleteTask(engine.TaskRewardSpec{Type: engine.TaskMeal, ScoreReward: 10}, 0)
	require.NoError(t, err)
	require.Eventually(t, func() bool { return tr.PendingUpdateCount() > 0 },
		time.Second, 5*time.Millisecond)

	rem.push(remote.Record{Progress: engine.UserProgress{Score: 999, Level: 9}})
	assert.Equal(t, 10, tr.Progress().Score, "remote change must not clobber pending local state")
}

func TestLateConfirmationDoesNotRevertNewerCompletion(t *testing.T) {
	rem := newFakeRemote()
	rem.blockWrite = make(chan struct{}, 2)
	rem.writeStarted = make(chan struct{}, 2)
	tr := newTracker(t, rem, nil)

	_, err := tr.CompleteTask(engine.TaskRewardSpec{Type: engine.TaskMeal, ScoreReward: 10}, 0)
	require.NoError(t, err)

	// Hold the first write in flight, then complete another task so a newer
	// optimistic value exists before the write settles.
	select {
	case <-rem.writeStarted:
	case <-time.After(time.Second):
		t.Fatal("first write never started")
	}
	_, err = tr.CompleteTask(engine.TaskRewardSpec{Type: engine.TaskMeal, ScoreReward: 10}, 0)
	require.NoError(t, err)
	require.Equal(t, 20, tr.Progress().Score)

	// Settle the writes in order. The first confirmation's refetch sees a
	// record that predates the second completion and must be discarded.
	rem.blockWrite <- struct{}{}
	require.Eventually(t, func() bool { return rem.writeCount() == 1 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, 20, tr.Progress().Score, "late confirmation must not revert the newer completion")

	select {
	case <-rem.writeStarted:
	case <-time.After(time.Second):
		t.Fatal("second write never started")
	}
	rem.blockWrite <- struct{}{}
	require.Eventually(t, func() bool {
		return tr.PendingUpdateCount() == 0 && rem.writeCount() == 2
	}, time.Second, 5*time.Millisecond)

	assert.Equal(t, 20, tr.Progress().Score)
}

func TestOnProgressChange(t *testing.T) {
	tr := newTracker(t, newFakeRemote(), func(cfg *Config) { cfg.StartOffline = true })

	var mu sync.Mutex
	var seen []int
	unsub := tr.OnProgressChange(func(p engine.UserProgress) {
		mu.Lock()
		seen = append(seen, p.Score)
		mu.Unlock()
	})

	_, err := tr.CompleteTask(engine.TaskRewardSpec{Type: engine.TaskMeal, ScoreReward: 10}, 0)
	require.NoError(t, err)

	mu.Lock()
	require.Equal(t, []int{10}, seen)
	mu.Unlock()

	unsub()
	_, err = tr.CompleteTask(engine.TaskRewardSpec{Type: engine.TaskMeal, ScoreReward: 10}, 0)
	require.NoError(t, err)

	mu.Lock()
	assert.Len(t, seen, 1, "unsubscribed listener must not fire")
	mu.Unlock()
}

func TestClaimGiftOnce(t *testing.T) {
	tr := newTracker(t, newFakeRemote(), func(cfg *Config) { cfg.StartOffline = true })

	require.NoError(t, tr.ClaimGift())
	assert.True(t, tr.Progress().HasClaimedGift)
	assert.ErrorIs(t, tr.ClaimGift(), ErrGiftAlreadyClaimed)
}

func TestUnlockRecipe(t *testing.T) {
	tr := newTracker(t, newFakeRemote(), func(cfg *Config) { cfg.StartOffline = true })

	tr.UnlockRecipe()
	tr.UnlockRecipe()
	assert.Equal(t, 2, tr.Progress().RecipesUnlocked)
}

func TestFlushPushesBufferedChanges(t *testing.T) {
	rem := newFakeRemote()
	tr := newTracker(t, rem, nil)

	_, err := tr.CompleteTask(engine.TaskRewardSpec{Type: engine.TaskShopping, ScoreReward: 25}, 0)
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		tr.Flush(context.Background())
		rec, ok := rem.record("alex")
		return ok && rec.Progress.Score == 25 && tr.PendingUpdateCount() == 0
	}, time.Second, 5*time.Millisecond)
}

func TestSetProfileSyncs(t *testing.T) {
	rem := newFakeRemote()
	tr := newTracker(t, rem, nil)

	name := "Alex"
	tr.SetProfile(engine.ProfilePatch{UserName: &name})

	require.Eventually(t, func() bool {
		tr.Flush(context.Background())
		rec, ok := rem.record("alex")
		return ok && rec.Profile.UserName == "Alex"
	}, time.Second, 5*time.Millisecond)
}

func TestNewValidatesConfig(t *testing.T) {
	_, err := New("", Config{Remote: newFakeRemote()})
	require.Error(t, err)

	_, err = New("alex", Config{})
	require.Error(t, err)
}

func (f *fakeRemote) writeCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.writes
}
