package door

import (
	"context"
	"time"
)

// Transition is one recorded change of door state.
type Transition struct {
	// ID is the auto-incremented primary key.
	ID int64 `json:"id"`

	SensorID      string  `json:"sensor_id"`
	State         State   `json:"state"`
	PreviousState State   `json:"previous_state"`
	Roll          float64 `json:"roll"`
	Pitch         float64 `json:"pitch"`
	Kickstarted   bool    `json:"kickstarted"`

	// CreatedAt is when the transition was observed (UTC).
	CreatedAt time.Time `json:"created_at"`
}

// HistoryRepository stores and retrieves door transitions.
//
// Implementations must be thread-safe and use UTC timestamps.
type HistoryRepository interface {
	// RecordTransition stores one transition.
	RecordTransition(ctx context.Context, t Transition) error

	// GetHistory returns recent transitions for the sensor, newest first.
	//
	// Parameters:
	//   - ctx: Context for cancellation and timeout
	//   - sensorID: Door sensor identifier
	//   - limit: Maximum entries to return (implementation may clamp bounds)
	GetHistory(ctx context.Context, sensorID string, limit int) ([]Transition, error)

	// PruneHistory deletes transitions older than olderThan and returns
	// the number removed.
	PruneHistory(ctx context.Context, olderThan time.Duration) (int64, error)
}
