package hw

import (
	"context"
	"sync"

	"github.com/mklimuk/sensorhub"
)

var _ sensorhub.Hardware = &Simulated{}

// Simulated hardware answers reads with the configured behaviour funcs. A nil
// func falls back to a deterministic signal derived from the pin or address.
type Simulated struct {
	DigitalFunc func(ctx context.Context, pin int) (int, error)
	AnalogFunc  func(ctx context.Context, pin int) (int, error)
	OneWireFunc func(ctx context.Context, pin int) (float64, error)
	SPIFunc     func(ctx context.Context, csPin int) (float64, error)
	I2CFunc     func(ctx context.Context, address byte) (float64, error)

	mx    sync.Mutex
	reads map[int]int
}

// tick counts reads per pin so repeated digital reads toggle.
func (s *Simulated) tick(pin int) int {
	s.mx.Lock()
	defer s.mx.Unlock()
	if s.reads == nil {
		s.reads = make(map[int]int)
	}
	n := s.reads[pin]
	s.reads[pin] = n + 1
	return n
}

func (s *Simulated) ReadDigital(ctx context.Context, pin int) (int, error) {
	if s.DigitalFunc != nil {
		return s.DigitalFunc(ctx, pin)
	}
	return (pin + s.tick(pin)) % 2, nil
}

// ReadAnalog defaults to a 10-bit mid-scale value offset by the pin.
func (s *Simulated) ReadAnalog(ctx context.Context, pin int) (int, error) {
	if s.AnalogFunc != nil {
		return s.AnalogFunc(ctx, pin)
	}
	return (512 + pin) % 1024, nil
}

// ReadOneWire defaults to 21.5 degrees in DS18B20 counts (1/16 degree).
func (s *Simulated) ReadOneWire(ctx context.Context, pin int) (float64, error) {
	if s.OneWireFunc != nil {
		return s.OneWireFunc(ctx, pin)
	}
	return 344, nil
}

func (s *Simulated) ReadSPI(ctx context.Context, csPin int) (float64, error) {
	if s.SPIFunc != nil {
		return s.SPIFunc(ctx, csPin)
	}
	return float64(1000 + csPin), nil
}

func (s *Simulated) ReadI2C(ctx context.Context, address byte) (float64, error) {
	if s.I2CFunc != nil {
		return s.I2CFunc(ctx, address)
	}
	return float64(address) * 10, nil
}
