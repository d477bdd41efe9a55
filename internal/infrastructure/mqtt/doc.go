// Package mqtt publishes door state to an MQTT broker using paho.
//
// The service only publishes. Door state goes to a retained topic per sensor
// so late subscribers see the current position, and graylogic/system/status
// carries an online message on connect, an offline message on Close, and an
// offline will if the connection dies.
//
//	client, err := mqtt.Connect(cfg.MQTT)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	topic := mqtt.Topics{}.DeviceState("mpu6050", "door-tilt-01")
//	err = client.PublishRetained(topic, []byte(`{"state":"closed"}`))
//
// Use TLS (mqtt.broker.tls) for any broker beyond localhost.
package mqtt
