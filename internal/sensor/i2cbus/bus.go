package i2cbus

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/host/v3"
)

// ErrHandleClosed is returned when a closed handle is used.
var ErrHandleClosed = errors.New("i2cbus: handle closed")

// Bus is a shareable I2C bus.
type Bus interface {
	// OpenHandle locks the bus and returns a handle for addr.
	// The handle MUST be closed to release the bus.
	OpenHandle(addr byte) (Handle, error)
}

// Handle performs register transactions against one device address.
type Handle interface {
	ReadByteData(ctx context.Context, register byte) (byte, error)
	WriteByteData(ctx context.Context, register, data byte) error
	ReadBlockData(ctx context.Context, register byte, numBytes uint8) ([]byte, error)

	// Close releases the lock on the bus.
	Close() error
}

// PeriphBus adapts a periph.io I2C bus to the Bus interface.
type PeriphBus struct {
	mu  sync.Mutex
	bus i2c.BusCloser
}

// Open initialises the periph host drivers and opens the named bus.
//
// Parameters:
//   - name: periph bus name or number ("1", "/dev/i2c-1"); "" selects the first bus
//
// Returns:
//   - *PeriphBus: Open bus, to be closed on shutdown
//   - error: If host initialisation or bus lookup fails
func Open(name string) (*PeriphBus, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("initialising periph host: %w", err)
	}

	b, err := i2creg.Open(name)
	if err != nil {
		return nil, fmt.Errorf("opening i2c bus %q: %w", name, err)
	}

	return NewPeriphBus(b), nil
}

// NewPeriphBus wraps an already open periph bus.
func NewPeriphBus(b i2c.BusCloser) *PeriphBus {
	return &PeriphBus{bus: b}
}

// OpenHandle locks the bus and returns a handle for addr.
func (b *PeriphBus) OpenHandle(addr byte) (Handle, error) {
	b.mu.Lock()
	return &periphHandle{
		dev:     &i2c.Dev{Bus: b.bus, Addr: uint16(addr)},
		release: b.mu.Unlock,
	}, nil
}

// Close closes the underlying periph bus.
func (b *PeriphBus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.bus.Close()
}

// String returns the periph bus name.
func (b *PeriphBus) String() string {
	return b.bus.String()
}

type periphHandle struct {
	dev     *i2c.Dev
	release func()
	closed  atomic.Bool
}

func (h *periphHandle) ReadByteData(ctx context.Context, register byte) (byte, error) {
	r, err := h.ReadBlockData(ctx, register, 1)
	if err != nil {
		return 0, err
	}
	return r[0], nil
}

func (h *periphHandle) WriteByteData(ctx context.Context, register, data byte) error {
	if err := h.ready(ctx); err != nil {
		return err
	}
	if err := h.dev.Tx([]byte{register, data}, nil); err != nil {
		return fmt.Errorf("writing register %#02x at %#02x: %w", register, h.dev.Addr, err)
	}
	return nil
}

func (h *periphHandle) ReadBlockData(ctx context.Context, register byte, numBytes uint8) ([]byte, error) {
	if err := h.ready(ctx); err != nil {
		return nil, err
	}
	r := make([]byte, numBytes)
	if err := h.dev.Tx([]byte{register}, r); err != nil {
		return nil, fmt.Errorf("reading %d bytes from register %#02x at %#02x: %w", numBytes, register, h.dev.Addr, err)
	}
	return r, nil
}

// Close releases the bus lock. Closing twice is a no-op.
func (h *periphHandle) Close() error {
	if h.closed.CompareAndSwap(false, true) {
		h.release()
	}
	return nil
}

func (h *periphHandle) ready(ctx context.Context) error {
	if h.closed.Load() {
		return ErrHandleClosed
	}
	return ctx.Err()
}
