package door

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

const (
	defaultHistoryLimit = 50
	maxHistoryLimit     = 200

	// historyTimeLayout is fixed-width so created_at sorts lexically.
	historyTimeLayout = "2006-01-02T15:04:05.000000Z"
)

// SQLiteHistoryRepository implements HistoryRepository using SQLite.
//
// It stores one row per transition in the door_history table.
type SQLiteHistoryRepository struct {
	db *sql.DB
}

// NewSQLiteHistoryRepository creates a new SQLite history repository.
//
// Parameters:
//   - db: Open SQLite connection with the door_history migration applied
//
// Returns:
//   - *SQLiteHistoryRepository: Repository instance ready for use
func NewSQLiteHistoryRepository(db *sql.DB) *SQLiteHistoryRepository {
	return &SQLiteHistoryRepository{db: db}
}

// RecordTransition inserts a transition row.
//
// Returns:
//   - error: ErrNoSensorID, or the underlying database error
func (r *SQLiteHistoryRepository) RecordTransition(ctx context.Context, t Transition) error {
	if t.SensorID == "" {
		return ErrNoSensorID
	}
	createdAt := t.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO door_history
		 (sensor_id, state, previous_state, roll, pitch, kickstarted, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		t.SensorID,
		t.State.String(),
		t.PreviousState.String(),
		t.Roll,
		t.Pitch,
		boolToInt(t.Kickstarted),
		createdAt.UTC().Format(historyTimeLayout),
	)
	if err != nil {
		return fmt.Errorf("inserting door history: %w", err)
	}

	return nil
}

// GetHistory returns recent transitions for a sensor, ordered newest first.
//
// Parameters:
//   - ctx: Context for cancellation and timeout
//   - sensorID: Door sensor identifier
//   - limit: Maximum entries to return (default 50, max 200)
//
// Returns:
//   - []Transition: Transitions ordered by created_at DESC
//   - error: nil on success, otherwise the underlying query error
func (r *SQLiteHistoryRepository) GetHistory(ctx context.Context, sensorID string, limit int) ([]Transition, error) {
	if sensorID == "" {
		return nil, ErrNoSensorID
	}
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	if limit > maxHistoryLimit {
		limit = maxHistoryLimit
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT id, sensor_id, state, previous_state, roll, pitch, kickstarted, created_at
		 FROM door_history
		 WHERE sensor_id = ?
		 ORDER BY created_at DESC, id DESC
		 LIMIT ?`,
		sensorID,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("querying door history: %w", err)
	}
	defer rows.Close()

	entries := make([]Transition, 0, limit)
	for rows.Next() {
		var (
			t           Transition
			state       string
			previous    string
			kickstarted int
			createdAt   string
		)

		if err := rows.Scan(&t.ID, &t.SensorID, &state, &previous, &t.Roll, &t.Pitch, &kickstarted, &createdAt); err != nil {
			return nil, fmt.Errorf("scanning door history: %w", err)
		}

		if t.State, err = ParseState(state); err != nil {
			return nil, err
		}
		if t.PreviousState, err = ParseState(previous); err != nil {
			return nil, err
		}
		t.Kickstarted = kickstarted != 0

		if t.CreatedAt, err = parseHistoryTimestamp(createdAt); err != nil {
			return nil, err
		}

		entries = append(entries, t)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating door history: %w", err)
	}

	return entries, nil
}

// PruneHistory deletes transitions older than the given duration.
//
// Parameters:
//   - ctx: Context for cancellation and timeout
//   - olderThan: Duration to retain (rows older than now-olderThan are deleted)
//
// Returns:
//   - int64: Number of rows deleted
//   - error: ErrInvalidRetention, or the underlying database error
func (r *SQLiteHistoryRepository) PruneHistory(ctx context.Context, olderThan time.Duration) (int64, error) {
	if olderThan <= 0 {
		return 0, ErrInvalidRetention
	}

	cutoff := time.Now().UTC().Add(-olderThan).Format(historyTimeLayout)
	result, err := r.db.ExecContext(ctx,
		"DELETE FROM door_history WHERE created_at < ?",
		cutoff,
	)
	if err != nil {
		return 0, fmt.Errorf("deleting door history: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("checking rows affected: %w", err)
	}

	return rowsAffected, nil
}

// parseHistoryTimestamp parses a timestamp stored in SQLite.
func parseHistoryTimestamp(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, fmt.Errorf("created_at is empty")
	}

	timestamp, err := time.Parse(historyTimeLayout, value)
	if err == nil {
		return timestamp, nil
	}

	fallback, fallbackErr := time.Parse(time.RFC3339Nano, value)
	if fallbackErr == nil {
		return fallback.UTC(), nil
	}

	return time.Time{}, fmt.Errorf("parsing created_at: %w", err)
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
