package sensorhub

import (
	"context"
	"errors"
)

// ErrUnsupported is returned by a hardware backend that has no implementation
// for the requested capability (e.g. analog reads on a board without ADC).
var ErrUnsupported = errors.New("capability not supported by hardware backend")

// DigitalReader reads the logic level of a GPIO pin (0 or 1).
type DigitalReader interface {
	ReadDigital(ctx context.Context, pin int) (int, error)
}

// AnalogReader reads the raw ADC value of a pin.
type AnalogReader interface {
	ReadAnalog(ctx context.Context, pin int) (int, error)
}

// OneWireReader reads the raw measurement of the device on the one-wire bus attached to pin.
type OneWireReader interface {
	ReadOneWire(ctx context.Context, pin int) (float64, error)
}

// SPIReader performs a read transaction with the device selected by csPin.
type SPIReader interface {
	ReadSPI(ctx context.Context, csPin int) (float64, error)
}

// I2CReader performs a read transaction with the device at the 7-bit address.
type I2CReader interface {
	ReadI2C(ctx context.Context, address byte) (float64, error)
}

// Hardware is the full capability set the dispatcher routes channel reads to.
// Values returned are raw measurements, no sensor-specific conversion is applied.
type Hardware interface {
	DigitalReader
	AnalogReader
	OneWireReader
	SPIReader
	I2CReader
}
