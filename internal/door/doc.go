// Package door turns accelerometer samples into a door position.
//
// A door fitted with a tilt sensor reports roll ≈ 90° when shut and swings
// towards 0° as it opens. Each check reads one fresh sample, derives roll
// and pitch, and classifies roll into one of four states:
//
//	0   < roll < 10   OPEN
//	11  < roll < 85   MOVING
//	85  < roll < 105  CLOSED
//	105 < roll < 180  MOVING
//	anything else     IO_FAILURE
//
// The bucket edges (10, 11, 85, 105, 180 and roll ≤ 0) fall through to
// IO_FAILURE. Existing deployments rely on this mapping, so it must not
// be widened.
//
// When a check classifies as IO_FAILURE the Monitor kickstarts the sensor
// once and reads again. There is no further retry and no background polling.
//
// Readings are handed to Recorders after classification: MQTT state
// publishing, InfluxDB telemetry, SQLite transition history and WebSocket
// broadcast. Recorders never influence the classification.
package door
