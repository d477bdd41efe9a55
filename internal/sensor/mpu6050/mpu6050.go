package mpu6050

import (
	"context"
	"encoding/binary"
	"fmt"
	"sync"
	"time"

	"github.com/nerrad567/gray-logic-doorsense/internal/sensor"
	"github.com/nerrad567/gray-logic-doorsense/internal/sensor/i2cbus"
)

// I2C addresses.
const (
	DefaultAddress   byte = 0x68
	AlternateAddress byte = 0x69
)

// Registers used by the driver.
const (
	regAccelConfig byte = 0x1C
	regAccelXOutH  byte = 0x3B
	regPowerMgmt1  byte = 0x6B
	regWhoAmI      byte = 0x75
)

const (
	// standardGravity converts g to m/s².
	standardGravity = 9.80665

	// accelRangeMask selects AFS_SEL bits [4:3] of ACCEL_CONFIG.
	accelRangeMask byte = 0x18

	// sleepBit is bit 6 of PWR_MGMT_1.
	sleepBit byte = 1 << 6

	// whoAmIValue is the fixed WHO_AM_I response regardless of AD0.
	whoAmIValue byte = 0x68

	accelSampleBytes = 6

	closeTimeout = 2 * time.Second
)

// lsbPerG maps AFS_SEL to the accelerometer sensitivity.
var lsbPerG = map[byte]float64{
	0x00: 16384.0, // ±2g
	0x08: 8192.0,  // ±4g
	0x10: 4096.0,  // ±8g
	0x18: 2048.0,  // ±16g
}

// Logger defines the logging interface used by the driver.
type Logger interface {
	Debug(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Device is an MPU-6050 on a shared I2C bus.
//
// Thread Safety: all methods are safe for concurrent use. Each operation
// holds the bus for its full register sequence.
type Device struct {
	bus    i2cbus.Bus
	addr   byte
	logger Logger

	mu     sync.Mutex
	closed bool
}

// New wakes the chip at addr and returns a ready device.
//
// Parameters:
//   - ctx: Context for the wake-up transactions
//   - bus: Shared I2C bus
//   - addr: 7-bit device address (DefaultAddress or AlternateAddress)
//   - logger: Logger instance (may be nil)
//
// Returns:
//   - *Device: Awake device
//   - error: If the wake-up write fails (no device answering at addr)
func New(ctx context.Context, bus i2cbus.Bus, addr byte, logger Logger) (*Device, error) {
	if logger == nil {
		logger = noopLogger{}
	}
	d := &Device{bus: bus, addr: addr, logger: logger}

	h, err := bus.OpenHandle(addr)
	if err != nil {
		return nil, fmt.Errorf("opening handle at %#02x: %w", addr, err)
	}
	defer d.closeHandle(h)

	if err := h.WriteByteData(ctx, regPowerMgmt1, 0x00); err != nil {
		return nil, fmt.Errorf("waking mpu6050 at %#02x: %w", addr, err)
	}

	// Clones (MPU-6500, MPU-9250) report other IDs but share the accel registers.
	who, err := h.ReadByteData(ctx, regWhoAmI)
	switch {
	case err != nil:
		logger.Warn("could not read WHO_AM_I", "address", addr, "error", err)
	case who != whoAmIValue:
		logger.Warn("unexpected WHO_AM_I response", "address", addr, "who_am_i", who)
	}

	return d, nil
}

// Acceleration reads one sample in m/s².
func (d *Device) Acceleration(ctx context.Context) (sensor.Sample, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return sensor.Sample{}, sensor.ErrClosed
	}

	h, err := d.bus.OpenHandle(d.addr)
	if err != nil {
		return sensor.Sample{}, fmt.Errorf("%w: %w", sensor.ErrReadFailed, err)
	}
	defer d.closeHandle(h)

	cfg, err := h.ReadByteData(ctx, regAccelConfig)
	if err != nil {
		return sensor.Sample{}, fmt.Errorf("%w: accel config: %w", sensor.ErrReadFailed, err)
	}

	raw, err := h.ReadBlockData(ctx, regAccelXOutH, accelSampleBytes)
	if err != nil {
		return sensor.Sample{}, fmt.Errorf("%w: accel data: %w", sensor.ErrReadFailed, err)
	}
	if len(raw) < accelSampleBytes {
		return sensor.Sample{}, fmt.Errorf("%w: %w: got %d bytes", sensor.ErrReadFailed, sensor.ErrShortRead, len(raw))
	}

	return toSample(raw, scale(cfg)), nil
}

// Kickstart clears PWR_MGMT_1, taking the chip out of sleep.
func (d *Device) Kickstart(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return sensor.ErrClosed
	}

	if err := d.writeByte(ctx, regPowerMgmt1, 0x00); err != nil {
		return fmt.Errorf("%w: %w", sensor.ErrKickstartFailed, err)
	}
	return nil
}

// Close puts the chip to sleep. Errors writing the sleep bit are logged,
// not returned.
func (d *Device) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return nil
	}
	d.closed = true

	ctx, cancel := context.WithTimeout(context.Background(), closeTimeout)
	defer cancel()

	if err := d.writeByte(ctx, regPowerMgmt1, sleepBit); err != nil {
		d.logger.Error("failed to put mpu6050 to sleep", "address", d.addr, "error", err)
	}
	return nil
}

func (d *Device) writeByte(ctx context.Context, register, value byte) error {
	h, err := d.bus.OpenHandle(d.addr)
	if err != nil {
		return err
	}
	defer d.closeHandle(h)

	return h.WriteByteData(ctx, register, value)
}

func (d *Device) closeHandle(h i2cbus.Handle) {
	if err := h.Close(); err != nil {
		d.logger.Error("closing i2c handle", "address", d.addr, "error", err)
	}
}

// scale returns LSB/g for an ACCEL_CONFIG value. Self-test bits are ignored.
func scale(accelConfig byte) float64 {
	return lsbPerG[accelConfig&accelRangeMask]
}

// toSample converts six big-endian two's complement bytes to m/s².
func toSample(raw []byte, lsb float64) sensor.Sample {
	axis := func(b []byte) float64 {
		return float64(int16(binary.BigEndian.Uint16(b))) / lsb * standardGravity
	}
	return sensor.Sample{
		X: axis(raw[0:2]),
		Y: axis(raw[2:4]),
		Z: axis(raw[4:6]),
	}
}

var _ sensor.Accelerometer = (*Device)(nil)
