package mqtt

// Topic roots. State topics follow graylogic/state/{protocol}/{id}.
const (
	topicRoot   = "graylogic"
	topicStatus = topicRoot + "/system/status"
)

// Topics builds the topic names the door service publishes to.
type Topics struct{}

// DeviceState is the retained state topic for one sensor,
// e.g. graylogic/state/mpu6050/door-tilt-01.
func (Topics) DeviceState(protocol, id string) string {
	return topicRoot + "/state/" + protocol + "/" + id
}

// SystemStatus carries the service's online/offline status and LWT.
func (Topics) SystemStatus() string {
	return topicStatus
}
