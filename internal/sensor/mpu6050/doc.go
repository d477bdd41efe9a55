// Package mpu6050 drives an InvenSense MPU-6050 accelerometer over I2C.
//
// Register map: https://invensense.tdk.com/wp-content/uploads/2015/02/MPU-6000-Register-Map1.pdf
//
// Address selection:
//   - AD0 tied to ground: 0x68 (DefaultAddress)
//   - AD0 tied high: 0x69 (AlternateAddress)
//
// The chip powers up asleep. New clears PWR_MGMT_1 to start measurement,
// and Kickstart repeats that write when a read fails.
package mpu6050
