package root

import (
	"context"
	"database/sql"

	"mealquest/internal/config"
	"mealquest/internal/remote"
	"mealquest/internal/storage"
	"mealquest/internal/syncer"
	"mealquest/internal/tracker"
)

func loadConfig() (config.Config, error) {
	path := configPath
	if path == "" {
		var err error
		path, err = config.DefaultPath()
		if err != nil {
			return config.Config{}, err
		}
	}
	cfg, err := config.Load(path)
	if err != nil {
		return config.Config{}, err
	}
	cfg.ApplyRewardOverrides()
	return cfg, nil
}

func openDB(ctx context.Context, cfg config.Config) (*sql.DB, func(), error) {
	path := cfg.DBPath
	if path == "" {
		var err error
		path, err = storage.DefaultDBPath()
		if err != nil {
			return nil, nil, err
		}
	}
	db, err := storage.Open(ctx, path)
	if err != nil {
		return nil, nil, err
	}
	cleanup := func() {
		_ = db.Close()
	}
	return db, cleanup, nil
}

// openTracker wires a client session: sqlite-journaled queue, restored
// pending updates, and the HTTP remote from the configured server URL.
func openTracker(ctx context.Context, watch bool) (*tracker.Tracker, config.Config, func(), error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, cfg, nil, err
	}
	db, dbCleanup, err := openDB(ctx, cfg)
	if err != nil {
		return nil, cfg, nil, err
	}

	journal := storage.NewPendingRepo(db)
	restored, err := journal.Load(ctx, cfg.UserID)
	if err != nil {
		dbCleanup()
		return nil, cfg, nil, err
	}

	tr, err := tracker.New(cfg.UserID, tracker.Config{
		Remote:  remote.NewClient(cfg.ServerURL),
		Journal: journal,
		Restore: restored,
		Retry: syncer.RetryPolicy{
			MaxAttempts: cfg.Sync.MaxAttempts,
			Backoff:     syncer.ExponentialBackoff(cfg.Sync.BackoffBase.Std()),
		},
		FlushInterval: cfg.Sync.Interval.Std(),
		BatchSize:     cfg.Sync.BatchSize,
		Watch:         watch,
	})
	if err != nil {
		dbCleanup()
		return nil, cfg, nil, err
	}

	cleanup := func() {
		tr.Close()
		dbCleanup()
	}
	return tr, cfg, cleanup, nil
}
