package hw

import (
	"context"
	"errors"
	"fmt"

	"github.com/mklimuk/sensorhub"
)

var _ sensorhub.I2CReader = &RawI2C{}

// RawI2C reads size bytes from a device and returns them as a big endian
// unsigned value. A busy bus is released and the read retried once.
type RawI2C struct {
	bus  sensorhub.I2CBus
	size int
}

func NewRawI2C(bus sensorhub.I2CBus, size int) *RawI2C {
	if size < 1 || size > 4 {
		size = 2
	}
	return &RawI2C{bus: bus, size: size}
}

func (r *RawI2C) ReadI2C(ctx context.Context, address byte) (float64, error) {
	buf := make([]byte, r.size)
	err := r.bus.ReadFromAddr(ctx, address, buf)
	if errors.Is(err, sensorhub.ErrBusBusy) {
		_ = r.bus.Release(ctx)
		err = r.bus.ReadFromAddr(ctx, address, buf)
	}
	if err != nil {
		return 0, fmt.Errorf("could not read %d bytes from %#x: %w", r.size, address, err)
	}
	return float64(bigEndian(buf)), nil
}

func bigEndian(buf []byte) uint32 {
	var v uint32
	for _, b := range buf {
		v = v<<8 | uint32(b)
	}
	return v
}
