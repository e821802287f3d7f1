package eeprom

import (
	"fmt"

	"gobot.io/x/gobot/v2/drivers/spi"
)

// GobotBus adapts a gobot SPI driver to Transferer.
type GobotBus struct {
	*spi.Driver
}

// NewGobotBus starts a gobot SPI driver in mode 0 (CPOL=0, CPHA=0), the only
// mode the device supports, at a conservative 5 MHz unless overridden.
func NewGobotBus(adaptor spi.Connector, opts ...func(spi.Config)) (*GobotBus, error) {
	opts = append([]func(spi.Config){spi.WithMode(0), spi.WithSpeed(5_000_000)}, opts...)
	d := spi.NewDriver(adaptor, "25AA1024", opts...)
	if err := d.Start(); err != nil {
		return nil, fmt.Errorf("could not start spi driver: %w", err)
	}
	return &GobotBus{Driver: d}, nil
}

// spiOps is the subset of the gobot SPI connection the transfer needs.
type spiOps interface {
	ReadCommandData(command []byte, data []byte) error
	WriteBytes(data []byte) error
}

func (b *GobotBus) Transfer(tx []byte, rx []byte) error {
	if b == nil || b.Driver == nil {
		return fmt.Errorf("spi driver not initialized")
	}
	ops, ok := b.Driver.Connection().(spiOps)
	if !ok {
		return fmt.Errorf("spi connection does not support required operations")
	}
	if len(rx) == 0 {
		if len(tx) == 0 {
			return nil
		}
		return ops.WriteBytes(tx)
	}
	if len(tx) != len(rx) {
		return fmt.Errorf("tx/rx length mismatch: %d != %d", len(tx), len(rx))
	}
	// ReadCommandData needs the header split from the dummy bytes
	headerLen := 1
	if tx[0] == cmdRead {
		headerLen = 4
	}
	if headerLen > len(tx) {
		headerLen = len(tx)
	}
	data := make([]byte, len(tx)-headerLen)
	if err := ops.ReadCommandData(tx[:headerLen], data); err != nil {
		return err
	}
	clear(rx[:headerLen])
	copy(rx[headerLen:], data)
	return nil
}
