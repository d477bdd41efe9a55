// Package i2cbus provides a shareable I2C bus backed by periph.io host
// drivers.
//
// A Bus hands out Handles bound to one 7-bit device address. A Handle holds
// the bus lock from OpenHandle until Close, so a multi-register transaction
// (read scale, then read sample) cannot interleave with another caller.
//
//	bus, err := i2cbus.Open("")   // "" selects the first bus
//	if err != nil {
//	    return err
//	}
//	defer bus.Close()
//
//	h, err := bus.OpenHandle(0x68)
//	if err != nil {
//	    return err
//	}
//	defer h.Close()
//	who, err := h.ReadByteData(ctx, 0x75)
package i2cbus
