package syncer

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"mealquest/internal/remote"
)

const (
	// DefaultFlushInterval is the periodic retry cadence while online.
	DefaultFlushInterval = 30 * time.Second

	// DefaultBatchSize bounds concurrent remote calls per flush cycle.
	DefaultBatchSize = 5
)

// Scheduler drains the offline queue: on offline→online transitions and on
// a fixed interval while online. Entries flush in fixed-size batches whose
// members are dispatched concurrently; each entry succeeds or fails on its
// own, and failures simply stay queued for the next cycle.
type Scheduler struct {
	userID   string
	queue    *Queue
	remote   remote.Store
	conn     *Connectivity
	retry    RetryPolicy
	interval time.Duration
	batch    int
	logger   *slog.Logger

	// afterFlush runs once a cycle fully empties the queue, giving the
	// owner a hook to reconcile with server truth.
	afterFlush func(ctx context.Context)
}

func NewScheduler(userID string, queue *Queue, rs remote.Store, conn *Connectivity, retry RetryPolicy, interval time.Duration, batch int, logger *slog.Logger, afterFlush func(ctx context.Context)) *Scheduler {
	if interval <= 0 {
		interval = DefaultFlushInterval
	}
	if batch <= 0 {
		batch = DefaultBatchSize
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		userID:     userID,
		queue:      queue,
		remote:     rs,
		conn:       conn,
		retry:      retry,
		interval:   interval,
		batch:      batch,
		logger:     logger,
		afterFlush: afterFlush,
	}
}

// Run blocks until ctx ends. The ticker is the only long-lived resource and
// is released on return.
func (s *Scheduler) Run(ctx context.Context) {
	transitions, unwatch := s.conn.Watch()
	defer unwatch()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case online := <-transitions:
			if online && s.queue.Len() > 0 {
				s.logger.Info("back online, flushing pending updates", "user", s.userID, "pending", s.queue.Len())
				s.Flush(ctx)
			}
		case <-ticker.C:
			if s.conn.IsOnline() && s.queue.Len() > 0 {
				s.Flush(ctx)
			}
		}
	}
}

// Flush drains the queue batch by batch. A cycle stops early when a batch
// makes no headway, leaving its failed entries for the next trigger.
func (s *Scheduler) Flush(ctx context.Context) {
	if !s.conn.IsOnline() {
		return
	}

	for {
		batch := s.queue.Batch(s.batch)
		if len(batch) == 0 {
			if s.afterFlush != nil {
				s.afterFlush(ctx)
			}
			return
		}

		confirmed := s.flushBatch(ctx, batch)
		s.queue.Remove(confirmed...)

		if len(confirmed) < len(batch) {
			// Partial success: the failures stay enqueued for next cycle.
			s.logger.Warn("flush cycle incomplete",
				"user", s.userID, "confirmed", len(confirmed), "batch", len(batch), "pending", s.queue.Len())
			return
		}
	}
}

// flushBatch dispatches every entry concurrently and returns the IDs that
// were confirmed. A batch completes when each member has settled, in any
// order.
func (s *Scheduler) flushBatch(ctx context.Context, batch []PendingUpdate) []string {
	results := make([]bool, len(batch))
	var wg sync.WaitGroup
	for i, entry := range batch {
		wg.Add(1)
		go func(i int, entry PendingUpdate) {
			defer wg.Done()
			err := s.retry.Do(ctx, func(ctx context.Context) error {
				return s.remote.WriteMerge(ctx, entry.UserID, entry.Patch())
			})
			if err != nil {
				s.logger.Warn("pending update flush failed", "user", entry.UserID, "id", entry.ID, "err", err)
				return
			}
			results[i] = true
		}(i, entry)
	}
	wg.Wait()

	confirmed := make([]string, 0, len(batch))
	for i, ok := range results {
		if ok {
			confirmed = append(confirmed, batch[i].ID)
		}
	}
	return confirmed
}
