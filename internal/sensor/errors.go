package sensor

import "errors"

// Sentinel errors shared by accelerometer implementations.
var (
	// ErrReadFailed is returned when a sample cannot be read from the device.
	ErrReadFailed = errors.New("sensor: read failed")

	// ErrKickstartFailed is returned when the wake-up write is rejected.
	ErrKickstartFailed = errors.New("sensor: kickstart failed")

	// ErrShortRead is returned when the bus returns fewer bytes than requested.
	ErrShortRead = errors.New("sensor: short read")

	// ErrClosed is returned when a closed accelerometer is used.
	ErrClosed = errors.New("sensor: closed")
)
