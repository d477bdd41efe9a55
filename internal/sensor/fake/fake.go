// Package fake provides an in-memory accelerometer.
//
// It backs the "fake" sensor driver for bench setups without hardware and is
// the accelerometer used throughout the door and API tests. Readings can be
// fixed, failed, or scripted as a queue consumed one per read.
package fake

import (
	"context"
	"sync"

	"github.com/nerrad567/gray-logic-doorsense/internal/sensor"
)

// Result is one scripted read outcome.
type Result struct {
	Sample sensor.Sample
	Err    error
}

// Accelerometer is a controllable sensor.Accelerometer.
type Accelerometer struct {
	mu           sync.Mutex
	sample       sensor.Sample
	err          error
	queue        []Result
	kickstartErr error
	reads        int
	kickstarts   int
	closed       bool
}

// New returns an accelerometer that reports sample on every read.
func New(sample sensor.Sample) *Accelerometer {
	return &Accelerometer{sample: sample}
}

// SetSample changes the steady-state sample and clears any steady-state error.
func (a *Accelerometer) SetSample(s sensor.Sample) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.sample = s
	a.err = nil
}

// SetError makes every unscripted read fail with err. Pass nil to clear.
func (a *Accelerometer) SetError(err error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.err = err
}

// SetKickstartError makes Kickstart fail with err. Pass nil to clear.
func (a *Accelerometer) SetKickstartError(err error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.kickstartErr = err
}

// Script queues results returned by the next reads, before falling back to
// the steady-state sample or error.
func (a *Accelerometer) Script(results ...Result) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.queue = append(a.queue, results...)
}

// Acceleration returns the next scripted result, or the steady-state one.
func (a *Accelerometer) Acceleration(ctx context.Context) (sensor.Sample, error) {
	if err := ctx.Err(); err != nil {
		return sensor.Sample{}, err
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return sensor.Sample{}, sensor.ErrClosed
	}
	a.reads++

	if len(a.queue) > 0 {
		r := a.queue[0]
		a.queue = a.queue[1:]
		return r.Sample, r.Err
	}
	if a.err != nil {
		return sensor.Sample{}, a.err
	}
	return a.sample, nil
}

// Kickstart records the call and returns the configured kickstart error.
func (a *Accelerometer) Kickstart(_ context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return sensor.ErrClosed
	}
	a.kickstarts++
	return a.kickstartErr
}

// Close marks the accelerometer closed.
func (a *Accelerometer) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.closed = true
	return nil
}

// Reads returns how many reads have been attempted.
func (a *Accelerometer) Reads() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.reads
}

// Kickstarts returns how many kickstarts have been attempted.
func (a *Accelerometer) Kickstarts() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.kickstarts
}

var _ sensor.Accelerometer = (*Accelerometer)(nil)
