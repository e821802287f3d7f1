package hw

import (
	"context"
	"fmt"
	"sync"

	"periph.io/x/conn/v3/analog"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi"
	"periph.io/x/conn/v3/spi/spireg"
	"periph.io/x/host/v3"

	"github.com/mklimuk/sensorhub"
)

var hostOnce = sync.OnceValue(func() error {
	_, err := host.Init()
	return err
})

// initHost loads the periph host drivers once per process.
func initHost() error {
	if err := hostOnce(); err != nil {
		return fmt.Errorf("could not init host: %w", err)
	}
	return nil
}

var _ sensorhub.DigitalReader = &PeriphGPIO{}
var _ sensorhub.AnalogReader = &PeriphGPIO{}

// PeriphGPIO reads SoC pins registered as GPIO<n>.
type PeriphGPIO struct {
	lookup func(name string) gpio.PinIO
}

func NewPeriphGPIO() (*PeriphGPIO, error) {
	if err := initHost(); err != nil {
		return nil, err
	}
	return &PeriphGPIO{lookup: gpioreg.ByName}, nil
}

func (p *PeriphGPIO) pin(n int) (gpio.PinIO, error) {
	pin := p.lookup(fmt.Sprintf("GPIO%d", n))
	if pin == nil {
		return nil, fmt.Errorf("pin GPIO%d not found", n)
	}
	return pin, nil
}

func (p *PeriphGPIO) ReadDigital(ctx context.Context, n int) (int, error) {
	pin, err := p.pin(n)
	if err != nil {
		return 0, err
	}
	if err := pin.In(gpio.PullNoChange, gpio.NoEdge); err != nil {
		return 0, fmt.Errorf("could not set %s as input: %w", pin, err)
	}
	if pin.Read() == gpio.High {
		return 1, nil
	}
	return 0, nil
}

// ReadAnalog returns the raw ADC sample of pins that support it.
func (p *PeriphGPIO) ReadAnalog(ctx context.Context, n int) (int, error) {
	pin, err := p.pin(n)
	if err != nil {
		return 0, err
	}
	adc, ok := pin.(analog.PinADC)
	if !ok {
		return 0, fmt.Errorf("%s has no ADC: %w", pin, sensorhub.ErrUnsupported)
	}
	sample, err := adc.Read()
	if err != nil {
		return 0, fmt.Errorf("could not sample %s: %w", pin, err)
	}
	return int(sample.Raw), nil
}

var _ sensorhub.SPIReader = &PeriphSPI{}

// PeriphSPI reads size bytes from the device behind chip select csPin of
// the configured bus and returns them as a big endian value.
type PeriphSPI struct {
	bus  int
	size int
	freq physic.Frequency
	open func(name string) (spi.PortCloser, error)
}

func NewPeriphSPI(bus, size int) (*PeriphSPI, error) {
	if err := initHost(); err != nil {
		return nil, err
	}
	if size < 1 || size > 4 {
		size = 2
	}
	return &PeriphSPI{bus: bus, size: size, freq: physic.MegaHertz, open: spireg.Open}, nil
}

func (p *PeriphSPI) ReadSPI(ctx context.Context, csPin int) (float64, error) {
	name := fmt.Sprintf("SPI%d.%d", p.bus, csPin)
	port, err := p.open(name)
	if err != nil {
		return 0, fmt.Errorf("could not open %s: %w", name, err)
	}
	defer port.Close()
	conn, err := port.Connect(p.freq, spi.Mode0, 8)
	if err != nil {
		return 0, fmt.Errorf("could not connect to %s: %w", name, err)
	}
	rx := make([]byte, p.size)
	if err := conn.Tx(make([]byte, p.size), rx); err != nil {
		return 0, fmt.Errorf("%s transfer failed: %w", name, err)
	}
	return float64(bigEndian(rx)), nil
}
