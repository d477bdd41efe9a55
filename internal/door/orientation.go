package door

import (
	"math"

	"github.com/nerrad567/gray-logic-doorsense/internal/sensor"
)

// gravity is the nominal 1 g reference used to normalise the x axis.
const gravity = 9.81

// Orientation is the tilt of the sensor in absolute degrees.
type Orientation struct {
	Roll  float64 `json:"roll"`
	Pitch float64 `json:"pitch"`
}

// SentinelOrientation marks a sample whose angles could not be computed.
var SentinelOrientation = Orientation{Roll: -1.0, Pitch: -1.0}

// IsSentinel reports whether o is the sentinel orientation.
func (o Orientation) IsSentinel() bool {
	return o == SentinelOrientation
}

// CalculateOrientation derives roll and pitch from one sample.
//
//	roll  = |atan2(y, z)| in degrees, 0..180
//	pitch = |asin(x / 9.81)| in degrees, 0..90
//
// When x/9.81 falls outside [-1, 1] (or any axis is NaN) asin has no real
// answer and the sentinel orientation is returned.
func CalculateOrientation(s sensor.Sample) Orientation {
	if math.IsNaN(s.X) || math.IsNaN(s.Y) || math.IsNaN(s.Z) {
		return SentinelOrientation
	}

	ratio := s.X / gravity
	if ratio < -1 || ratio > 1 {
		return SentinelOrientation
	}

	return Orientation{
		Roll:  math.Abs(degrees(math.Atan2(s.Y, s.Z))),
		Pitch: math.Abs(degrees(math.Asin(ratio))),
	}
}

func degrees(rad float64) float64 {
	return rad * 180 / math.Pi
}
