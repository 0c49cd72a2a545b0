package metrics

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"strconv"
	"strings"

	_ "github.com/jackc/pgx/v5/stdlib" // PostgreSQL driver
	_ "modernc.org/sqlite"            // SQLite driver
)

// Driver hides the differences between the supported databases.
type Driver interface {
	// Name returns the driver identifier used in configuration.
	Name() string

	// Connect opens the database. When create is false and the store does
	// not exist yet, it returns ErrMetricsMissing.
	Connect(ctx context.Context, dsn string, create bool) (*sql.DB, error)

	// Placeholder returns the n-th (1-based) bind parameter.
	Placeholder(n int) string

	// TableExists reports whether table exists.
	TableExists(ctx context.Context, db *sql.DB, table string) (bool, error)
}

// DefaultDriver is used for per-job stores.
const DefaultDriver = "sqlite"

var drivers = map[string]Driver{}

// RegisterDriver makes a driver available to Open.
func RegisterDriver(d Driver) {
	drivers[d.Name()] = d
}

// GetDriver returns the driver registered under name.
func GetDriver(name string) (Driver, bool) {
	d, ok := drivers[name]
	return d, ok
}

func init() {
	RegisterDriver(&SQLiteDriver{})
	RegisterDriver(&PostgresDriver{})
}

// SQLiteDriver stores heartbeats in a sqlite file, usually one per job.
type SQLiteDriver struct{}

func (d *SQLiteDriver) Name() string { return "sqlite" }

// sqliteBusyTimeout lets concurrent engines share one file.
const sqliteBusyTimeout = "_pragma=busy_timeout(5000)"

func (d *SQLiteDriver) Connect(ctx context.Context, dsn string, create bool) (*sql.DB, error) {
	path, _, _ := strings.Cut(strings.TrimPrefix(dsn, "file:"), "?")
	if !create {
		if _, err := os.Stat(path); os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s does not exist", ErrMetricsMissing, path)
		}
	}
	if !strings.Contains(dsn, "?") {
		dsn += "?" + sqliteBusyTimeout
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite store: %w", err)
	}
	// modernc connections are not safe to share across writers.
	db.SetMaxOpenConns(1)
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to connect to sqlite store %s: %w", path, err)
	}
	return db, nil
}

func (d *SQLiteDriver) Placeholder(int) string { return "?" }

func (d *SQLiteDriver) TableExists(ctx context.Context, db *sql.DB, table string) (bool, error) {
	var n int
	err := db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = ?", table).Scan(&n)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// PostgresDriver reads a store shared by all jobs of a campaign.
type PostgresDriver struct{}

func (d *PostgresDriver) Name() string { return "postgres" }

func (d *PostgresDriver) Connect(ctx context.Context, dsn string, _ bool) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres connection: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}
	return db, nil
}

func (d *PostgresDriver) Placeholder(n int) string { return "$" + strconv.Itoa(n) }

func (d *PostgresDriver) TableExists(ctx context.Context, db *sql.DB, table string) (bool, error) {
	var exists bool
	err := db.QueryRowContext(ctx,
		"SELECT EXISTS (SELECT 1 FROM information_schema.tables WHERE table_name = $1)", table).Scan(&exists)
	return exists, err
}
