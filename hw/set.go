// Package hw implements the hardware capabilities the dispatcher reads through.
package hw

import (
	"context"
	"fmt"

	"github.com/mklimuk/sensorhub"
)

var _ sensorhub.Hardware = Set{}

// Set composes one implementation per capability. Reads through a nil
// capability fail with sensorhub.ErrUnsupported.
type Set struct {
	Digital sensorhub.DigitalReader
	Analog  sensorhub.AnalogReader
	OneWire sensorhub.OneWireReader
	SPI     sensorhub.SPIReader
	I2C     sensorhub.I2CReader
}

func (s Set) ReadDigital(ctx context.Context, pin int) (int, error) {
	if s.Digital == nil {
		return 0, fmt.Errorf("digital read on pin %d: %w", pin, sensorhub.ErrUnsupported)
	}
	return s.Digital.ReadDigital(ctx, pin)
}

func (s Set) ReadAnalog(ctx context.Context, pin int) (int, error) {
	if s.Analog == nil {
		return 0, fmt.Errorf("analog read on pin %d: %w", pin, sensorhub.ErrUnsupported)
	}
	return s.Analog.ReadAnalog(ctx, pin)
}

func (s Set) ReadOneWire(ctx context.Context, pin int) (float64, error) {
	if s.OneWire == nil {
		return 0, fmt.Errorf("one-wire read on pin %d: %w", pin, sensorhub.ErrUnsupported)
	}
	return s.OneWire.ReadOneWire(ctx, pin)
}

func (s Set) ReadSPI(ctx context.Context, csPin int) (float64, error) {
	if s.SPI == nil {
		return 0, fmt.Errorf("SPI read on cs pin %d: %w", csPin, sensorhub.ErrUnsupported)
	}
	return s.SPI.ReadSPI(ctx, csPin)
}

func (s Set) ReadI2C(ctx context.Context, address byte) (float64, error) {
	if s.I2C == nil {
		return 0, fmt.Errorf("I2C read at %#x: %w", address, sensorhub.ErrUnsupported)
	}
	return s.I2C.ReadI2C(ctx, address)
}
