package sensor

import "context"

// Sample is one accelerometer reading in m/s² along each axis.
type Sample struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// Accelerometer is a three-axis acceleration source.
//
// Implementations must be safe for concurrent use; concurrent HTTP requests
// share a single device.
type Accelerometer interface {
	// Acceleration reads one sample.
	//
	// Returns an error wrapping ErrReadFailed when the bus transaction fails.
	Acceleration(ctx context.Context) (Sample, error)

	// Kickstart rewrites the power-management register to wake the device.
	Kickstart(ctx context.Context) error

	// Close releases the underlying bus resources.
	Close() error
}
