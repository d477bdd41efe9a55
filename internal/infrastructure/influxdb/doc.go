// Package influxdb writes door tilt telemetry to InfluxDB v2.
//
// Every door check becomes one door_tilt point, tagged by sensor and
// classified state, with roll, pitch, the /status HTTP code and whether a
// kickstart was needed as fields. Transitions live in the SQLite history;
// this is the high-rate series for dashboards.
//
//	client, err := influxdb.Connect(ctx, cfg.InfluxDB)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//	client.SetOnError(func(err error) { log.Error("influx write", "error", err) })
//
//	client.WriteDoorTilt(influxdb.TiltSample{SensorID: "door-tilt-01", State: "closed", Roll: 90})
package influxdb
