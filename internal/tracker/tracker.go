// Package tracker assembles the progression engine for one user: local
// store, optimistic coordinator, offline queue and flush scheduler, behind
// the surface the UI layer consumes. A Tracker is an explicit, constructed
// object with a lifecycle, so multiple users and tests can coexist.
package tracker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"mealquest/internal/engine"
	"mealquest/internal/progress"
	"mealquest/internal/remote"
	"mealquest/internal/syncer"
)

// ErrGiftAlreadyClaimed is returned by ClaimGift after the first claim.
var ErrGiftAlreadyClaimed = errors.New("gift already claimed")

// Config wires a Tracker. Remote is required; everything else has defaults.
type Config struct {
	Remote remote.Store

	// Journal persists the offline queue across restarts. Optional.
	Journal syncer.Journal

	// Restore seeds the queue with entries persisted by a prior session.
	Restore []syncer.PendingUpdate

	// Retry applies to direct writes and queued flushes alike.
	Retry syncer.RetryPolicy

	FlushInterval time.Duration
	BatchSize     int

	// StartOffline begins the session in offline mode; mutations queue
	// until SetOnline(true).
	StartOffline bool

	// Watch opens the remote change subscription so edits from other
	// devices reconcile into the local store.
	Watch bool

	// OnSyncError receives non-retryable remote failures.
	OnSyncError func(error)

	Logger *slog.Logger
}

// Tracker owns a single user's progression session.
type Tracker struct {
	userID string
	store  *progress.Store
	queue  *syncer.Queue
	conn   *syncer.Connectivity
	coord  *syncer.Coordinator
	sched  *syncer.Scheduler
	remote remote.Store
	logger *slog.Logger

	cancel  context.CancelFunc
	wg      sync.WaitGroup
	unwatch func()

	closeOnce sync.Once
}

// New builds and starts a tracker for userID.
func New(userID string, cfg Config) (*Tracker, error) {
	if userID == "" {
		return nil, engine.ValidationError{Field: "userID", Reason: "must not be empty"}
	}
	if cfg.Remote == nil {
		return nil, fmt.Errorf("tracker: remote store is required")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	retry := cfg.Retry
	if retry.MaxAttempts == 0 {
		retry = syncer.DefaultRetryPolicy()
	}

	store := progress.New(userID)
	queue := syncer.NewQueue(userID, cfg.Journal, logger)
	if len(cfg.Restore) > 0 {
		queue.Restore(cfg.Restore)
		logger.Info("restored pending updates", "user", userID, "count", len(cfg.Restore))
	}
	conn := syncer.NewConnectivity(!cfg.StartOffline)

	t := &Tracker{
		userID: userID,
		store:  store,
		queue:  queue,
		conn:   conn,
		remote: cfg.Remote,
		logger: logger,
	}
	t.coord = syncer.NewCoordinator(userID, store, cfg.Remote, queue, conn, retry, logger, cfg.OnSyncError)
	t.sched = syncer.NewScheduler(userID, queue, cfg.Remote, conn, retry,
		cfg.FlushInterval, cfg.BatchSize, logger, t.reconcileFromServer)

	ctx, cancel := context.WithCancel(context.Background())
	t.cancel = cancel

	t.wg.Add(2)
	go func() {
		defer t.wg.Done()
		t.coord.Run(ctx)
	}()
	go func() {
		defer t.wg.Done()
		t.sched.Run(ctx)
	}()

	t.hydrate(ctx)
	if cfg.Watch {
		t.watch(ctx)
	}
	return t, nil
}

// hydrate seeds the local store from the server record, best effort. A user
// with no record keeps first-session defaults.
func (t *Tracker) hydrate(ctx context.Context) {
	if !t.conn.IsOnline() {
		return
	}
	rec, err := t.remote.Read(ctx, t.userID)
	if errors.Is(err, remote.ErrNotFound) {
		return
	}
	if err != nil {
		t.logger.Warn("initial progress read failed", "user", t.userID, "err", err)
		return
	}
	t.store.ReconcileProgress(rec.Progress, t.store.Seq())
	t.store.ReconcileProfile(rec.Profile, t.store.Seq())
}

func (t *Tracker) watch(ctx context.Context) {
	unwatch, err := t.remote.Subscribe(ctx, t.userID,
		func(rec remote.Record) {
			// Only adopt other-device state when nothing local is pending:
			// not queued, not in flight, and not still in the change buffer.
			if t.hasLocalPending() {
				return
			}
			t.store.ReconcileProgress(rec.Progress, t.store.Seq())
		},
		func(err error) {
			t.logger.Warn("progress watch interrupted", "user", t.userID, "err", err)
		})
	if err != nil {
		t.logger.Warn("progress watch unavailable", "user", t.userID, "err", err)
		return
	}
	t.unwatch = unwatch
}

// CompleteTask converts a completed task into local progress, synchronously,
// and hands the durable write to the sync path. The local effect is visible
// before this returns.
func (t *Tracker) CompleteTask(spec engine.TaskRewardSpec, streakLength int) (engine.ApplyResult, error) {
	if err := engine.ValidateStreak(streakLength); err != nil {
		return engine.ApplyResult{}, err
	}
	if spec.ScoreReward < 0 || spec.CoinReward < 0 || spec.XPReward < 0 {
		return engine.ApplyResult{}, engine.ValidationError{Field: "taskSpec", Reason: "rewards must be non-negative"}
	}

	xp := engine.RewardForSpec(spec, streakLength)

	cur := t.store.Progress()
	cur.Score += spec.ScoreReward
	cur.Coins += spec.CoinReward
	res := engine.ApplyXP(cur, xp)

	t.store.MutateProgress(engine.PatchFromProgress(res.Updated))

	if res.LevelsGained > 0 {
		t.logger.Info("level up", "user", t.userID,
			"level", res.Updated.Level, "gained", res.LevelsGained, "bonus_coins", res.BonusCoins)
	}
	return res, nil
}

// ClaimGift marks the one-time gift as claimed.
func (t *Tracker) ClaimGift() error {
	if t.store.Progress().HasClaimedGift {
		return ErrGiftAlreadyClaimed
	}
	claimed := true
	t.store.MutateProgress(engine.ProgressPatch{HasClaimedGift: &claimed})
	return nil
}

// UnlockRecipe bumps the unlocked-recipe counter.
func (t *Tracker) UnlockRecipe() {
	n := t.store.Progress().RecipesUnlocked + 1
	t.store.MutateProgress(engine.ProgressPatch{RecipesUnlocked: &n})
}

// SetProfile merges profile fields.
func (t *Tracker) SetProfile(patch engine.ProfilePatch) {
	if patch.IsZero() {
		return
	}
	t.store.MutateProfile(patch)
}

// Progress returns the current, possibly-optimistic value.
func (t *Tracker) Progress() engine.UserProgress { return t.store.Progress() }

func (t *Tracker) Profile() engine.UserProfile { return t.store.Profile() }

// OnProgressChange registers a listener for local progress updates and
// returns its unsubscribe function.
func (t *Tracker) OnProgressChange(fn func(engine.UserProgress)) func() {
	return t.store.Subscribe(func(snap progress.Snapshot) { fn(snap.Progress) })
}

// PendingUpdateCount reports updates still awaiting remote confirmation,
// for a "syncing…" indicator.
func (t *Tracker) PendingUpdateCount() int {
	return t.queue.Len() + t.coord.InFlight()
}

// hasLocalPending also counts mutations the sync pump has not picked up yet,
// which PendingUpdateCount deliberately excludes from the UI counter.
func (t *Tracker) hasLocalPending() bool {
	return t.queue.Len() > 0 || t.coord.InFlight() > 0 || t.store.BufferedChanges() > 0
}

// PendingUpdates returns a copy of the queued updates.
func (t *Tracker) PendingUpdates() []syncer.PendingUpdate { return t.queue.Entries() }

// Online reports the current connectivity belief.
func (t *Tracker) Online() bool { return t.conn.IsOnline() }

// SetOnline feeds a connectivity transition. Going online with a non-empty
// queue triggers a flush.
func (t *Tracker) SetOnline(online bool) { t.conn.SetOnline(online) }

// Flush synchronously pushes buffered changes and drains the queue once.
// One-shot callers use it before exiting; long-lived sessions rely on the
// scheduler instead.
func (t *Tracker) Flush(ctx context.Context) {
	t.coord.Drain(ctx)
	t.coord.Wait()
	t.sched.Flush(ctx)
}

// reconcileFromServer adopts server truth after the queue fully drains. The
// sequence is captured before the read so a record fetched while a newer
// mutation lands is discarded instead of adopted.
func (t *Tracker) reconcileFromServer(ctx context.Context) {
	seq := t.store.Seq()
	rec, err := t.remote.Read(ctx, t.userID)
	if err != nil {
		return
	}
	t.store.ReconcileProgress(rec.Progress, seq)
}

// Close stops the background sync goroutines and the remote watch. Buffered
// changes are moved to the queue (and journal) on the way down.
func (t *Tracker) Close() {
	t.closeOnce.Do(func() {
		if t.unwatch != nil {
			t.unwatch()
		}
		t.cancel()
		t.wg.Wait()
	})
}
