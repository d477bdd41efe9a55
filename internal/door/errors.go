package door

import "errors"

// Domain-specific errors for door monitoring.
var (
	// ErrNoSensor is returned when a Monitor is built without an accelerometer.
	ErrNoSensor = errors.New("door: sensor is required")

	// ErrNoSensorID is returned when a Monitor or history query lacks a sensor ID.
	ErrNoSensorID = errors.New("door: sensor id is required")

	// ErrInvalidRetention is returned when pruning with a non-positive duration.
	ErrInvalidRetention = errors.New("door: retention must be positive")
)
