package hw

import (
	"context"
	"encoding/binary"
	"fmt"
	"time"

	"periph.io/x/conn/v3/onewire"
	"periph.io/x/conn/v3/onewire/onewirereg"

	"github.com/mklimuk/sensorhub"
)

// DS18B20 style function commands
const (
	owSkipROM        = 0xCC
	owMatchROM       = 0x55
	owConvert        = 0x44
	owReadScratchpad = 0xBE
)

const DefaultConversion = 750 * time.Millisecond

var _ sensorhub.OneWireReader = &OneWire{}

// OneWire triggers a conversion and returns the raw signed 16-bit reading
// from the scratchpad. Pins listed in devices are addressed by ROM; any
// other pin assumes a single device on the bus.
type OneWire struct {
	bus        onewire.Bus
	conversion time.Duration
	devices    map[int]onewire.Address
}

func NewOneWire(bus onewire.Bus, conversion time.Duration, devices map[int]onewire.Address) *OneWire {
	if conversion <= 0 {
		conversion = DefaultConversion
	}
	return &OneWire{bus: bus, conversion: conversion, devices: devices}
}

// OpenOneWire opens a registered one-wire bus by name; an empty name opens
// the first one. devices maps channel pins to ROM codes and may be nil.
func OpenOneWire(name string, conversion time.Duration, devices map[int]onewire.Address) (*OneWire, onewire.BusCloser, error) {
	if err := initHost(); err != nil {
		return nil, nil, err
	}
	bus, err := onewirereg.Open(name)
	if err != nil {
		return nil, nil, fmt.Errorf("could not open one-wire bus %q: %w", name, err)
	}
	return NewOneWire(bus, conversion, devices), bus, nil
}

func (o *OneWire) selectDevice(pin int, cmd byte) []byte {
	addr, ok := o.devices[pin]
	if !ok {
		return []byte{owSkipROM, cmd}
	}
	w := make([]byte, 10)
	w[0] = owMatchROM
	binary.LittleEndian.PutUint64(w[1:9], uint64(addr))
	w[9] = cmd
	return w
}

func (o *OneWire) ReadOneWire(ctx context.Context, pin int) (float64, error) {
	if err := o.bus.Tx(o.selectDevice(pin, owConvert), nil, onewire.StrongPullup); err != nil {
		return 0, fmt.Errorf("could not start conversion on pin %d: %w", pin, err)
	}
	select {
	case <-ctx.Done():
		return 0, ctx.Err()
	case <-time.After(o.conversion):
	}
	scratchpad := make([]byte, 9)
	if err := o.bus.Tx(o.selectDevice(pin, owReadScratchpad), scratchpad, onewire.WeakPullup); err != nil {
		return 0, fmt.Errorf("could not read scratchpad on pin %d: %w", pin, err)
	}
	if !onewire.CheckCRC(scratchpad) {
		return 0, fmt.Errorf("scratchpad crc mismatch on pin %d: % x", pin, scratchpad)
	}
	return float64(int16(binary.LittleEndian.Uint16(scratchpad[0:2]))), nil
}
