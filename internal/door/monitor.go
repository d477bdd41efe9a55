package door

import (
	"context"
	"sync"
	"time"

	"github.com/nerrad567/gray-logic-doorsense/internal/sensor"
)

// Logger defines the logging interface used by the Monitor and recorders.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Reading is the outcome of one door check.
type Reading struct {
	SensorID      string        `json:"sensor_id"`
	Sample        sensor.Sample `json:"sample"`
	Orientation   Orientation   `json:"orientation"`
	State         State         `json:"state"`
	PreviousState State         `json:"previous_state"`
	Kickstarted   bool          `json:"kickstarted"`
	Changed       bool          `json:"changed"`
	Timestamp     time.Time     `json:"timestamp"`

	// Err is the last bus error, if the final read failed.
	Err error `json:"-"`

	// KickstartErr is set when a kickstart was attempted and failed.
	// Kickstarted is only true for a successful kickstart.
	KickstartErr error `json:"-"`
}

// Recorder receives every reading after classification.
//
// Implementations decide for themselves whether to act on every reading or
// only on transitions (Reading.Changed).
type Recorder interface {
	Record(ctx context.Context, r Reading) error
}

// RecorderFunc adapts a function to the Recorder interface.
type RecorderFunc func(ctx context.Context, r Reading) error

// Record calls f(ctx, r).
func (f RecorderFunc) Record(ctx context.Context, r Reading) error {
	return f(ctx, r)
}

// MonitorOptions configures a Monitor.
type MonitorOptions struct {
	// SensorID identifies the door in payloads and history.
	SensorID string

	// Sensor is the accelerometer to read.
	Sensor sensor.Accelerometer

	// Logger is optional.
	Logger Logger

	// Recorders receive every reading.
	Recorders []Recorder
}

// Monitor performs door checks against one accelerometer.
//
// Thread Safety: Check is safe for concurrent use. Each call performs its
// own bus reads; results are never cached for classification.
type Monitor struct {
	sensorID string
	sensor   sensor.Accelerometer
	logger   Logger
	now      func() time.Time

	recMu     sync.RWMutex
	recorders []Recorder

	// seqMu is held from track through record so recorders see readings in
	// the order they became latest.
	seqMu sync.Mutex

	mu      sync.Mutex
	latest  Reading
	hasLast bool
}

// NewMonitor creates a door monitor.
//
// Returns:
//   - *Monitor: Ready monitor
//   - error: ErrNoSensor or ErrNoSensorID when required options are missing
func NewMonitor(opts MonitorOptions) (*Monitor, error) {
	if opts.Sensor == nil {
		return nil, ErrNoSensor
	}
	if opts.SensorID == "" {
		return nil, ErrNoSensorID
	}
	logger := opts.Logger
	if logger == nil {
		logger = noopLogger{}
	}

	return &Monitor{
		sensorID:  opts.SensorID,
		sensor:    opts.Sensor,
		logger:    logger,
		now:       time.Now,
		recorders: append([]Recorder(nil), opts.Recorders...),
	}, nil
}

// SensorID returns the monitored door's identifier.
func (m *Monitor) SensorID() string {
	return m.sensorID
}

// AddRecorder registers an additional recorder.
func (m *Monitor) AddRecorder(r Recorder) {
	m.recMu.Lock()
	defer m.recMu.Unlock()
	m.recorders = append(m.recorders, r)
}

// Check reads the sensor and classifies the door.
//
// If the first read classifies as StateIOFailure (including a failed bus
// read) the sensor is kickstarted once and read again. A kickstart failure
// is logged and the second read still happens. The returned reading carries
// the final state; StateIOFailure after the retry is a normal result, not
// an error.
func (m *Monitor) Check(ctx context.Context) Reading {
	r := m.read(ctx)

	if r.State == StateIOFailure {
		m.logger.Warn("door status unreadable, kickstarting sensor",
			"sensor_id", m.sensorID,
			"roll", r.Orientation.Roll,
			"error", r.Err,
		)
		kickErr := m.sensor.Kickstart(ctx)
		if kickErr != nil {
			m.logger.Error("sensor kickstart failed", "sensor_id", m.sensorID, "error", kickErr)
		}
		r = m.read(ctx)
		r.Kickstarted = kickErr == nil
		r.KickstartErr = kickErr
	}

	r.SensorID = m.sensorID
	r.Timestamp = m.now().UTC()

	m.seqMu.Lock()
	defer m.seqMu.Unlock()
	m.track(&r)

	if r.Changed {
		m.logger.Info("door state changed",
			"sensor_id", m.sensorID,
			"state", r.State.String(),
			"previous_state", r.PreviousState.String(),
			"roll", r.Orientation.Roll,
		)
	}

	m.record(ctx, r)
	return r
}

// Latest returns the most recent reading, if any check has run.
func (m *Monitor) Latest() (Reading, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.latest, m.hasLast
}

// read performs one sample read and classification.
func (m *Monitor) read(ctx context.Context) Reading {
	sample, err := m.sensor.Acceleration(ctx)
	if err != nil {
		m.logger.Warn("accelerometer read failed", "sensor_id", m.sensorID, "error", err)
		return Reading{
			Orientation: SentinelOrientation,
			State:       StateIOFailure,
			Err:         err,
		}
	}

	o := CalculateOrientation(sample)
	m.logger.Info("roll computed", "sensor_id", m.sensorID, "roll", o.Roll, "pitch", o.Pitch)

	return Reading{
		Sample:      sample,
		Orientation: o,
		State:       Classify(o.Roll),
	}
}

// track compares r with the previous reading and stores it as latest.
func (m *Monitor) track(r *Reading) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.hasLast {
		r.PreviousState = m.latest.State
		r.Changed = m.latest.State != r.State
	} else {
		r.PreviousState = r.State
		r.Changed = true
	}
	m.latest = *r
	m.hasLast = true
}

// record hands r to every recorder. Failures are logged, never returned.
func (m *Monitor) record(ctx context.Context, r Reading) {
	m.recMu.RLock()
	recorders := m.recorders
	m.recMu.RUnlock()

	for _, rec := range recorders {
		if err := rec.Record(ctx, r); err != nil {
			m.logger.Warn("recording door reading failed", "sensor_id", m.sensorID, "error", err)
		}
	}
}
