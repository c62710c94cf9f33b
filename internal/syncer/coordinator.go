package syncer

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"

	"mealquest/internal/progress"
	"mealquest/internal/remote"
)

// Coordinator wraps remote writes with optimistic local application. The
// local store has already applied every change it sees; the coordinator's
// job is to confirm each change remotely, queue it when the network fails,
// and roll back only a change that is both permanently rejected and still
// the newest local mutation.
type Coordinator struct {
	userID string
	store  *progress.Store
	remote remote.Store
	queue  *Queue
	conn   *Connectivity
	retry  RetryPolicy
	logger *slog.Logger

	// onError receives non-retryable failures. Transient failures never
	// reach it; they degrade to the pending queue instead.
	onError func(error)

	inflight atomic.Int64
	wg       sync.WaitGroup
}

func NewCoordinator(userID string, store *progress.Store, rs remote.Store, queue *Queue, conn *Connectivity, retry RetryPolicy, logger *slog.Logger, onError func(error)) *Coordinator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Coordinator{
		userID:  userID,
		store:   store,
		remote:  rs,
		queue:   queue,
		conn:    conn,
		retry:   retry,
		logger:  logger,
		onError: onError,
	}
}

// Run pumps the store's change buffer until ctx ends. On shutdown any
// undispatched changes are moved to the queue so the journal keeps them.
func (c *Coordinator) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			for _, ch := range c.store.DrainChanges() {
				c.queue.Enqueue(pendingFromChange(c.userID, ch))
			}
			c.wg.Wait()
			return
		case <-c.store.WaitChanges():
			for _, ch := range c.store.DrainChanges() {
				c.dispatch(ctx, ch)
			}
		}
	}
}

// Drain synchronously moves buffered changes to dispatch. Used by one-shot
// callers that mutate and exit before the pump loop would wake.
func (c *Coordinator) Drain(ctx context.Context) {
	for _, ch := range c.store.DrainChanges() {
		c.dispatch(ctx, ch)
	}
}

// Wait blocks until all in-flight writes have settled.
func (c *Coordinator) Wait() {
	c.wg.Wait()
}

// InFlight returns the number of writes currently awaiting a verdict.
func (c *Coordinator) InFlight() int {
	return int(c.inflight.Load())
}

func (c *Coordinator) dispatch(ctx context.Context, ch progress.Change) {
	if !c.conn.IsOnline() {
		c.queue.Enqueue(pendingFromChange(c.userID, ch))
		c.logger.Debug("offline, queued change", "user", c.userID, "seq", ch.Seq)
		return
	}

	c.inflight.Add(1)
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		defer c.inflight.Add(-1)
		c.attempt(ctx, ch)
	}()
}

func (c *Coordinator) attempt(ctx context.Context, ch progress.Change) {
	pending := pendingFromChange(c.userID, ch)
	err := c.retry.Do(ctx, func(ctx context.Context) error {
		return c.remote.WriteMerge(ctx, c.userID, pending.Patch())
	})
	if err == nil {
		c.refetch(ctx, ch)
		return
	}
	if ctx.Err() != nil {
		// Shutdown mid-write: keep the change for the next session.
		c.queue.Enqueue(pending)
		return
	}

	if remote.Permanent(err) {
		rolledBack := c.store.Rollback(ch)
		c.logger.Error("remote rejected update",
			"user", c.userID, "seq", ch.Seq, "rolled_back", rolledBack, "err", err)
		if c.onError != nil {
			c.onError(err)
		}
		return
	}

	// Transient: the optimistic value stays; the change waits in the queue.
	c.queue.Enqueue(pending)
	c.logger.Warn("write failed, queued for retry", "user", c.userID, "seq", ch.Seq, "err", err)
}

// refetch pulls server truth after a confirmed write to pick up server-side
// derived fields. Reconciliation is guarded by the sequence the change was
// applied at: if any newer mutation landed while the write was in flight,
// the refetched record predates local state and must be discarded.
func (c *Coordinator) refetch(ctx context.Context, ch progress.Change) {
	if c.inflight.Load() > 1 {
		// Sibling writes are still reordering server state; their own
		// refetches (or the scheduler's post-drain reconcile) will catch up.
		return
	}
	rec, err := c.remote.Read(ctx, c.userID)
	if err != nil {
		c.logger.Debug("post-write refetch failed", "user", c.userID, "err", err)
		return
	}
	if !c.store.ReconcileProgress(rec.Progress, ch.Seq) {
		c.logger.Debug("refetch superseded by newer mutation", "user", c.userID, "seq", ch.Seq)
	}
}
