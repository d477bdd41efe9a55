package influxdb

import (
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// MeasurementDoorTilt is the measurement name for door tilt samples.
const MeasurementDoorTilt = "door_tilt"

// TiltSample is one classified accelerometer reading destined for InfluxDB.
type TiltSample struct {
	SensorID    string
	State       string
	Roll        float64
	Pitch       float64
	StatusCode  int
	Kickstarted bool
	Time        time.Time
}

// WriteDoorTilt queues one sample. It never blocks on the network and is
// dropped silently once the client is closed.
func (c *Client) WriteDoorTilt(s TiltSample) {
	if c.IsConnected() {
		c.writer.WritePoint(newDoorTiltPoint(s))
	}
}

// newDoorTiltPoint builds the line-protocol point for a tilt sample.
func newDoorTiltPoint(s TiltSample) *write.Point {
	ts := s.Time
	if ts.IsZero() {
		ts = time.Now()
	}

	return write.NewPoint(
		MeasurementDoorTilt,
		map[string]string{
			"sensor_id": s.SensorID,
			"state":     s.State,
		},
		map[string]interface{}{
			"roll":        s.Roll,
			"pitch":       s.Pitch,
			"status_code": s.StatusCode,
			"kickstarted": s.Kickstarted,
		},
		ts,
	)
}
