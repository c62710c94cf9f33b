package syncer

import (
	"context"
	"sync"

	"mealquest/internal/engine"
	"mealquest/internal/remote"
)

// fakeRemote is an in-memory remote.Store with controllable failures.
type fakeRemote struct {
	mu      sync.Mutex
	records map[string]remote.Record

	writes     int
	reads      int
	failWrites int   // fail this many writes before succeeding
	writeErr   error // error returned while failing

	// blockWrite, when set, is received from before each write proceeds.
	blockWrite chan struct{}
}

func newFakeRemote() *fakeRemote {
	return &fakeRemote{records: map[string]remote.Record{}}
}

func (f *fakeRemote) Read(ctx context.Context, userID string) (remote.Record, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reads++
	rec, ok := f.records[userID]
	if !ok {
		return remote.Record{}, remote.ErrNotFound
	}
	return rec, nil
}

func (f *fakeRemote) WriteMerge(ctx context.Context, userID string, patch remote.Patch) error {
	f.mu.Lock()
	block := f.blockWrite
	f.mu.Unlock()
	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.writes++
	if f.failWrites > 0 {
		f.failWrites--
		return f.writeErr
	}

	rec := f.records[userID]
	if rec.Progress.Level == 0 {
		rec.Progress = engine.NewUserProgress()
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

func (f *fakeRemote) Subscribe(ctx context.Context, userID string, onChange func(remote.Record), onError func(error)) (func(), error) {
	return func() {}, nil
}

func (f *fakeRemote) record(userID string) remote.Record {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.records[userID]
}

func (f *fakeRemote) setRecord(userID string, rec remote.Record) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.records[userID] = rec
}

func (f *fakeRemote) writeCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.writes
}

func intp(v int) *int { return &v }
