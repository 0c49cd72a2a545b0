package metrics

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
)

// FileName is the per-job sqlite store inside a job's output directory.
const FileName = "metrics.db"

// Locator finds the store holding a job's heartbeats: either a sqlite file
// in the job directory or a single store shared by the whole campaign.
type Locator struct {
	driver string
	dsn    string

	mu     sync.Mutex
	shared *Store
}

// NewLocator returns a locator. An empty dsn selects per-job sqlite stores.
func NewLocator(driver, dsn string) *Locator {
	if driver == "" {
		driver = DefaultDriver
	}
	return &Locator{driver: driver, dsn: dsn}
}

// Shared reports whether all jobs write to one store.
func (l *Locator) Shared() bool { return l.dsn != "" }

// Target returns the store location an engine writing for outDir should use.
func (l *Locator) Target(outDir string) string {
	if l.Shared() {
		return l.dsn
	}
	return filepath.Join(outDir, FileName)
}

// Latest reads the newest heartbeat of job from target.
func (l *Locator) Latest(ctx context.Context, target, job string) (Snapshot, error) {
	if l.Shared() {
		store, err := l.sharedStore(ctx)
		if err != nil {
			return Snapshot{}, err
		}
		return store.Latest(ctx, job)
	}

	store, err := Open(ctx, Config{Driver: DefaultDriver, DSN: target})
	if err != nil {
		return Snapshot{}, err
	}
	snap, err := store.Latest(ctx, job)
	return snap, errors.Join(err, store.Close())
}

func (l *Locator) sharedStore(ctx context.Context) (*Store, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.shared != nil {
		return l.shared, nil
	}
	store, err := Open(ctx, Config{Driver: l.driver, DSN: l.dsn})
	if err != nil {
		return nil, err
	}
	l.shared = store
	return store, nil
}

// Close releases the shared store, if one was opened.
func (l *Locator) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.shared == nil {
		return nil
	}
	err := l.shared.Close()
	l.shared = nil
	return err
}
