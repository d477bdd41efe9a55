package database

import "errors"

var (
	// ErrNoPath is returned by Open when no database path is configured.
	ErrNoPath = errors.New("database: path is required")

	// ErrNoMigrations is returned by Migrate when no migration files are registered.
	ErrNoMigrations = errors.New("database: no migrations registered")

	// ErrBadMigrationName is returned for files not named YYYYMMDD_HHMMSS_name.sql.
	ErrBadMigrationName = errors.New("database: bad migration file name")
)
