// Package metrics reads the heartbeat rows fuzzing engines append while
// they run.
package metrics

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// ErrMetricsMissing means a job left no heartbeat behind, usually because
// it crashed before the first one. It is not a structural error.
var ErrMetricsMissing = errors.New("no heartbeat recorded")

const table = "heartbeat"

// Snapshot is one heartbeat row.
type Snapshot struct {
	Job        string
	Timestamp  time.Time
	Covered    int64
	TotalEdges int64
	Execs      int64
	ValidExecs int64
}

// Config selects a store.
type Config struct {
	Driver string
	DSN    string
	// Create allows a missing sqlite file to be created.
	Create bool
}

// Store is an append-only heartbeat table.
type Store struct {
	db     *sql.DB
	driver Driver
}

// Open connects to the store described by cfg.
func Open(ctx context.Context, cfg Config) (*Store, error) {
	driver, ok := GetDriver(cfg.Driver)
	if !ok {
		return nil, fmt.Errorf("unsupported metrics driver %q", cfg.Driver)
	}
	db, err := driver.Connect(ctx, cfg.DSN, cfg.Create)
	if err != nil {
		return nil, err
	}
	return &Store{db: db, driver: driver}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Init creates the heartbeat table if it does not exist.
func (s *Store) Init(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS heartbeat (
			timestamp BIGINT NOT NULL,
			job TEXT NOT NULL,
			coverage BIGINT NOT NULL,
			total_edges BIGINT NOT NULL,
			execs BIGINT NOT NULL,
			valid_execs BIGINT NOT NULL
		)`)
	if err != nil {
		return fmt.Errorf("failed to create heartbeat table: %w", err)
	}
	return nil
}

// Record appends a heartbeat row.
func (s *Store) Record(ctx context.Context, snap Snapshot) error {
	p := s.driver.Placeholder
	query := fmt.Sprintf(
		"INSERT INTO heartbeat (timestamp, job, coverage, total_edges, execs, valid_execs) VALUES (%s, %s, %s, %s, %s, %s)",
		p(1), p(2), p(3), p(4), p(5), p(6))
	_, err := s.db.ExecContext(ctx, query,
		snap.Timestamp.UnixMilli(), snap.Job, snap.Covered, snap.TotalEdges, snap.Execs, snap.ValidExecs)
	if err != nil {
		return fmt.Errorf("failed to record heartbeat for %s: %w", snap.Job, err)
	}
	return nil
}

// Latest returns the heartbeat with the greatest timestamp for job. Only
// the last durable row matters, so a job that crashed mid-run still
// reports its progress up to the crash.
func (s *Store) Latest(ctx context.Context, job string) (Snapshot, error) {
	exists, err := s.driver.TableExists(ctx, s.db, table)
	if err != nil {
		return Snapshot{}, fmt.Errorf("failed to inspect metrics store: %w", err)
	}
	if !exists {
		return Snapshot{}, fmt.Errorf("%w: no heartbeat table", ErrMetricsMissing)
	}

	query := fmt.Sprintf(`
		SELECT timestamp, coverage, total_edges, execs, valid_execs
		FROM heartbeat
		WHERE job = %s
		ORDER BY timestamp DESC
		LIMIT 1`, s.driver.Placeholder(1))

	var (
		snap = Snapshot{Job: job}
		ts   int64
	)
	err = s.db.QueryRowContext(ctx, query, job).Scan(&ts, &snap.Covered, &snap.TotalEdges, &snap.Execs, &snap.ValidExecs)
	if errors.Is(err, sql.ErrNoRows) {
		return Snapshot{}, fmt.Errorf("%w for %s", ErrMetricsMissing, job)
	}
	if err != nil {
		return Snapshot{}, fmt.Errorf("failed to read heartbeat for %s: %w", job, err)
	}
	snap.Timestamp = time.UnixMilli(ts)
	return snap, nil
}
