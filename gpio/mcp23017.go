// Package gpio reads digital channels wired to an I2C port expander.
package gpio

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/mklimuk/sensorhub"
)

type register int

const DefaultMCP23017Address = 0x21

const (
	IODIRA register = iota
	IODIRB
	GPPUA
	GPPUB
	GPIOA
	GPIOB
	IOCON
)

// bankAddr maps registers for IOCON.BANK=0 (paired) and IOCON.BANK=1 (split).
var bankAddr = [2]map[register]byte{
	{IODIRA: 0x00, IODIRB: 0x01, GPPUA: 0x0C, GPPUB: 0x0D, GPIOA: 0x12, GPIOB: 0x13, IOCON: 0x0A},
	{IODIRA: 0x00, IODIRB: 0x10, GPPUA: 0x06, GPPUB: 0x16, GPIOA: 0x09, GPIOB: 0x19, IOCON: 0x05},
}

var _ sensorhub.DigitalReader = &MCP23017{}

type MCP23017Opts struct {
	Address    byte
	Bank       int
	RetryLimit int
}

type MCP23017Opt func(*MCP23017Opts)

func WithAddress(address byte) MCP23017Opt {
	return func(o *MCP23017Opts) {
		o.Address = address
	}
}

// WithBank selects the register layout the chip was configured with.
func WithBank(bank int) MCP23017Opt {
	return func(o *MCP23017Opts) {
		o.Bank = bank
	}
}

// WithRetryLimit sets how many times a busy bus is released and retried.
func WithRetryLimit(limit int) MCP23017Opt {
	return func(o *MCP23017Opts) {
		o.RetryLimit = limit
	}
}

// MCP23017 exposes pins 0-7 (port A) and 8-15 (port B) as digital inputs.
type MCP23017 struct {
	mx         sync.Mutex
	transport  sensorhub.I2CBus
	bank       int
	address    byte
	retryLimit int
}

func NewMCP23017(bus sensorhub.I2CBus, opts ...MCP23017Opt) *MCP23017 {
	config := MCP23017Opts{
		Address:    DefaultMCP23017Address,
		RetryLimit: 2,
	}
	for _, opt := range opts {
		opt(&config)
	}
	if config.Bank != 1 {
		config.Bank = 0
	}
	if config.RetryLimit < 1 {
		config.RetryLimit = 1
	}
	return &MCP23017{
		transport:  bus,
		bank:       config.Bank,
		address:    config.Address,
		retryLimit: config.RetryLimit,
	}
}

// Init switches both ports to inputs with the given pull-up masks.
func (m *MCP23017) Init(ctx context.Context, pullUpA, pullUpB byte) error {
	steps := []struct {
		reg   register
		value byte
	}{
		{IODIRA, 0xFF},
		{IODIRB, 0xFF},
		{GPPUA, pullUpA},
		{GPPUB, pullUpB},
	}
	for _, s := range steps {
		if err := m.writeRegister(ctx, s.reg, s.value); err != nil {
			return fmt.Errorf("could not initialize expander at %#x: %w", m.address, err)
		}
	}
	return nil
}

// ReadPorts returns the raw values of port A and port B.
func (m *MCP23017) ReadPorts(ctx context.Context) ([2]byte, error) {
	var res [2]byte
	var err error
	if res[0], err = m.readRegister(ctx, GPIOA); err != nil {
		return res, fmt.Errorf("could not read port A: %w", err)
	}
	if res[1], err = m.readRegister(ctx, GPIOB); err != nil {
		return res, fmt.Errorf("could not read port B: %w", err)
	}
	return res, nil
}

func (m *MCP23017) ReadDigital(ctx context.Context, pin int) (int, error) {
	if pin < 0 || pin > 15 {
		return 0, fmt.Errorf("MCP23017 has no pin %d: %w", pin, sensorhub.ErrUnsupported)
	}
	reg := GPIOA
	if pin > 7 {
		reg = GPIOB
	}
	val, err := m.readRegister(ctx, reg)
	if err != nil {
		return 0, fmt.Errorf("could not read pin %d: %w", pin, err)
	}
	return int(val>>(pin%8)) & 1, nil
}

func (m *MCP23017) writeRegister(ctx context.Context, reg register, value byte) error {
	return m.retry(ctx, func() error {
		return m.transport.WriteToAddr(ctx, m.address, []byte{bankAddr[m.bank][reg], value})
	})
}

func (m *MCP23017) readRegister(ctx context.Context, reg register) (byte, error) {
	buf := make([]byte, 1)
	err := m.retry(ctx, func() error {
		if err := m.transport.WriteToAddr(ctx, m.address, []byte{bankAddr[m.bank][reg]}); err != nil {
			return fmt.Errorf("could not set register address: %w", err)
		}
		return m.transport.ReadFromAddr(ctx, m.address, buf)
	})
	return buf[0], err
}

// retry runs op under the device lock, releasing the bus between attempts
// that failed with sensorhub.ErrBusBusy.
func (m *MCP23017) retry(ctx context.Context, op func() error) error {
	m.mx.Lock()
	defer m.mx.Unlock()
	var err error
	for i := m.retryLimit; i > 0; i-- {
		err = op()
		if err == nil {
			return nil
		}
		if !errors.Is(err, sensorhub.ErrBusBusy) {
			return err
		}
		_ = m.transport.Release(ctx)
	}
	return fmt.Errorf("retry limit reached: %w", err)
}
