// Package sensor defines the accelerometer contract used by the door
// classifier.
//
// An Accelerometer yields one three-axis sample in m/s² per call and can be
// "kickstarted", which rewrites its power-management register to wake a
// chip that has dropped into sleep or lost its configuration after a bus
// glitch.
//
// Implementations:
//   - mpu6050: InvenSense MPU-6050 over I2C (periph.io host drivers)
//   - fake: in-memory accelerometer for tests and bench setups without hardware
package sensor
