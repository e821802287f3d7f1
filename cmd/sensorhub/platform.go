package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"periph.io/x/conn/v3/onewire"

	"github.com/mklimuk/sensorhub"
	"github.com/mklimuk/sensorhub/adapter"
	"github.com/mklimuk/sensorhub/config"
	"github.com/mklimuk/sensorhub/gpio"
	"github.com/mklimuk/sensorhub/hw"
	"github.com/mklimuk/sensorhub/i2c"
)

// platform is the hardware a command reads through. bus is nil when the
// platform has no raw I2C access.
type platform struct {
	hw      sensorhub.Hardware
	bus     sensorhub.I2CBus
	closers []io.Closer
}

func (p *platform) Close() error {
	var errs []error
	for i := len(p.closers) - 1; i >= 0; i-- {
		errs = append(errs, p.closers[i].Close())
	}
	p.closers = nil
	return errors.Join(errs...)
}

// fail releases everything opened so far and returns err.
func (p *platform) fail(err error) error {
	if cerr := p.Close(); cerr != nil {
		slog.Warn("could not release hardware", "error", cerr)
	}
	return err
}

func openPlatform(ctx context.Context, cfg config.Hardware) (*platform, error) {
	p := &platform{}
	var set hw.Set
	switch cfg.Platform {
	case config.PlatformSimulated:
		p.hw = &hw.Simulated{}
		return p, nil
	case config.PlatformPeriph, config.PlatformCharDev:
		pins, err := hw.NewPeriphGPIO()
		if err != nil {
			return nil, err
		}
		set.Digital, set.Analog = pins, pins
		if cfg.Platform == config.PlatformCharDev {
			cdev := hw.NewCharDev(cfg.GPIOChip)
			set.Digital = cdev
			p.closers = append(p.closers, cdev)
		}
		if set.SPI, err = hw.NewPeriphSPI(cfg.SPIBus, cfg.SPIReadLen); err != nil {
			return nil, p.fail(err)
		}
		bus, err := i2c.NewGenericBus(cfg.I2CDevice)
		if err != nil {
			slog.Warn("I2C unavailable", "device", cfg.I2CDevice, "error", err)
		} else {
			p.bus = bus
			p.closers = append(p.closers, bus)
		}
	case config.PlatformNanoPi:
		npi, err := hw.NewNanoPi(cfg.SPIBus, cfg.SPIReadLen)
		if err != nil {
			return nil, err
		}
		set.Digital, set.SPI = npi, npi
		bus := hw.NewGobotI2C(npi.Adaptor(), cfg.I2CBus)
		p.bus = bus
		// halt drivers before the adaptor goes away
		p.closers = append(p.closers, npi, bus)
	case config.PlatformMCP2221:
		bridge := adapter.NewMCP2221(adapter.WithLogger(slog.Default()))
		set.Digital = bridge
		p.bus = bridge
	default:
		return nil, fmt.Errorf("%w: unknown platform %q", config.ErrInvalid, cfg.Platform)
	}
	if p.bus != nil {
		set.I2C = hw.NewRawI2C(p.bus, cfg.I2CReadLen)
	}
	if cfg.Platform != config.PlatformMCP2221 {
		devices, err := oneWireDevices(cfg)
		if err != nil {
			return nil, p.fail(err)
		}
		ow, owBus, err := hw.OpenOneWire(cfg.OneWireBus, cfg.OneWireConversion, devices)
		if err != nil {
			slog.Warn("one-wire unavailable", "bus", cfg.OneWireBus, "error", err)
		} else {
			set.OneWire = ow
			p.closers = append(p.closers, owBus)
		}
	}
	if e := cfg.Expander; e != nil {
		if p.bus == nil {
			return nil, p.fail(fmt.Errorf("expander at %#x needs an I2C bus: %w", e.Address, sensorhub.ErrUnsupported))
		}
		exp := gpio.NewMCP23017(p.bus, gpio.WithAddress(e.Address), gpio.WithBank(e.Bank))
		if err := exp.Init(ctx, e.PullUpA, e.PullUpB); err != nil {
			return nil, p.fail(err)
		}
		set.Digital = exp
	}
	p.hw = set
	return p, nil
}

// oneWireDevices maps configured ROM codes to one-wire addresses by pin.
func oneWireDevices(cfg config.Hardware) (map[int]onewire.Address, error) {
	roms, err := cfg.OneWireROMs()
	if err != nil || len(roms) == 0 {
		return nil, err
	}
	devices := make(map[int]onewire.Address, len(roms))
	for pin, rom := range roms {
		devices[pin] = onewire.Address(rom)
	}
	return devices, nil
}
