package database

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3" // SQLite driver

	"github.com/nerrad567/gray-logic-doorsense/internal/infrastructure/config"
)

const (
	// historyDirMode keeps the history directory private to the service user.
	historyDirMode = 0750

	// historyFileMode keeps the history file private to the service user.
	historyFileMode = 0600

	// pingTimeout bounds the connectivity check in Open.
	pingTimeout = 5 * time.Second
)

// DB is the SQLite store behind the door transition history.
//
// A single connection is kept open: the service has one writer (the monitor's
// history recorder) plus occasional reads from the diagnostics API, and
// SQLite serialises writers anyway.
type DB struct {
	*sql.DB
	path string
}

// Open opens (or creates) the history database at cfg.Path.
//
// The parent directory is created if needed, busy timeout and journal mode
// come from cfg, and the connection is pinged before returning.
//
// Parameters:
//   - cfg: Database section of config.yaml
//
// Returns:
//   - *DB: Open database, to be closed on shutdown
//   - error: ErrNoPath, or the underlying filesystem or driver error
func Open(cfg config.DatabaseConfig) (*DB, error) {
	if cfg.Path == "" {
		return nil, ErrNoPath
	}

	if err := os.MkdirAll(filepath.Dir(cfg.Path), historyDirMode); err != nil {
		return nil, fmt.Errorf("creating history directory: %w", err)
	}

	sqlDB, err := sql.Open("sqlite3", dsn(cfg))
	if err != nil {
		return nil, fmt.Errorf("opening history database: %w", err)
	}
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetMaxIdleConns(1)
	sqlDB.SetConnMaxLifetime(0)

	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()
	if err := sqlDB.PingContext(ctx); err != nil {
		sqlDB.Close() //nolint:errcheck // already failing
		return nil, fmt.Errorf("connecting to history database %s: %w", cfg.Path, err)
	}

	// The file exists after the first ping; a failure here only leaves the
	// umask default in place.
	_ = os.Chmod(cfg.Path, historyFileMode) //nolint:errcheck // best effort

	return &DB{DB: sqlDB, path: cfg.Path}, nil
}

// dsn builds the go-sqlite3 connection string for cfg.
func dsn(cfg config.DatabaseConfig) string {
	q := url.Values{}
	q.Set("_busy_timeout", fmt.Sprint(cfg.BusyTimeout*int(time.Second/time.Millisecond)))
	q.Set("_foreign_keys", "on")
	if cfg.WALMode {
		q.Set("_journal_mode", "WAL")
		q.Set("_synchronous", "NORMAL")
	}
	return "file:" + cfg.Path + "?" + q.Encode()
}

// Close closes the database. Closing a nil or already closed DB is safe.
func (db *DB) Close() error {
	if db == nil || db.DB == nil {
		return nil
	}
	if err := db.DB.Close(); err != nil {
		return fmt.Errorf("closing history database: %w", err)
	}
	return nil
}

// Path returns the database file path.
func (db *DB) Path() string {
	return db.path
}

// HealthCheck confirms the history table is queryable.
//
// It runs after Migrate, so a missing table is reported as unhealthy rather
// than surfacing later as a failed history write.
func (db *DB) HealthCheck(ctx context.Context) error {
	var n int64
	if err := db.QueryRowContext(ctx, "SELECT COUNT(*) FROM door_history").Scan(&n); err != nil {
		return fmt.Errorf("history database health check: %w", err)
	}
	return nil
}
