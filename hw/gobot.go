package hw

import (
	"context"
	"fmt"
	"strconv"
	"sync"

	"gobot.io/x/gobot/v2/drivers/i2c"
	"gobot.io/x/gobot/v2/drivers/spi"
	"gobot.io/x/gobot/v2/platforms/friendlyelec/nanopi"

	"github.com/mklimuk/sensorhub"
)

// pinReader is the digital part of a gobot platform adaptor.
type pinReader interface {
	DigitalRead(id string) (int, error)
}

var _ sensorhub.DigitalReader = &NanoPi{}
var _ sensorhub.SPIReader = &NanoPi{}

// NanoPi reads header pins and SPI devices through the gobot NanoPi NEO
// adaptor. Digital pins are header pin numbers.
type NanoPi struct {
	mx      sync.Mutex
	adaptor *nanopi.Adaptor
	pins    pinReader
	spiBus  int
	size    int
	spi     map[int]*spi.Driver
}

func NewNanoPi(spiBus, size int) (*NanoPi, error) {
	adaptor := nanopi.NewNeoAdaptor()
	if err := adaptor.Connect(); err != nil {
		return nil, fmt.Errorf("adaptor connect error: %w", err)
	}
	if size < 1 || size > 4 {
		size = 2
	}
	return &NanoPi{
		adaptor: adaptor,
		pins:    adaptor,
		spiBus:  spiBus,
		size:    size,
		spi:     make(map[int]*spi.Driver),
	}, nil
}

// Adaptor gives access to the underlying gobot adaptor, e.g. to share it
// with an I2C or EEPROM driver.
func (n *NanoPi) Adaptor() *nanopi.Adaptor {
	return n.adaptor
}

func (n *NanoPi) ReadDigital(ctx context.Context, pin int) (int, error) {
	v, err := n.pins.DigitalRead(strconv.Itoa(pin))
	if err != nil {
		return 0, fmt.Errorf("could not read header pin %d: %w", pin, err)
	}
	return v, nil
}

// spiReader is the part of the gobot SPI connection used for raw reads.
type spiReader interface {
	ReadCommandData(command []byte, data []byte) error
}

func (n *NanoPi) spiDriver(cs int) (*spi.Driver, error) {
	n.mx.Lock()
	defer n.mx.Unlock()
	if d, ok := n.spi[cs]; ok {
		return d, nil
	}
	d := spi.NewDriver(n.adaptor, fmt.Sprintf("spi%d.%d", n.spiBus, cs),
		spi.WithBusNumber(n.spiBus), spi.WithChipNumber(cs), spi.WithMode(0), spi.WithSpeed(1_000_000))
	if err := d.Start(); err != nil {
		return nil, fmt.Errorf("SPI device start error: %w", err)
	}
	n.spi[cs] = d
	return d, nil
}

// ReadSPI clocks a zero command byte and returns the following bytes as a
// big endian value.
func (n *NanoPi) ReadSPI(ctx context.Context, csPin int) (float64, error) {
	d, err := n.spiDriver(csPin)
	if err != nil {
		return 0, err
	}
	conn, ok := d.Connection().(spiReader)
	if !ok {
		return 0, fmt.Errorf("spi connection does not support reads: %w", sensorhub.ErrUnsupported)
	}
	data := make([]byte, n.size)
	if err := conn.ReadCommandData([]byte{0x00}, data); err != nil {
		return 0, fmt.Errorf("SPI read on cs %d failed: %w", csPin, err)
	}
	return float64(bigEndian(data)), nil
}

func (n *NanoPi) Close() error {
	n.mx.Lock()
	defer n.mx.Unlock()
	for cs, d := range n.spi {
		_ = d.Halt()
		delete(n.spi, cs)
	}
	return n.adaptor.Finalize()
}

var _ sensorhub.I2CBus = &GobotI2C{}

// GobotI2C exposes a gobot I2C connector as a raw addressable bus. One
// generic driver is started per device address.
type GobotI2C struct {
	mx      sync.Mutex
	adaptor i2c.Connector
	bus     int
	drivers map[byte]*i2c.GenericDriver
}

func NewGobotI2C(adaptor i2c.Connector, bus int) *GobotI2C {
	return &GobotI2C{adaptor: adaptor, bus: bus, drivers: make(map[byte]*i2c.GenericDriver)}
}

func (g *GobotI2C) driver(address byte) (*i2c.GenericDriver, error) {
	if d, ok := g.drivers[address]; ok {
		return d, nil
	}
	d := i2c.NewGenericDriver(g.adaptor, fmt.Sprintf("i2c-%#x", address), int(address), func(c i2c.Config) {
		c.SetBus(g.bus)
	})
	if err := d.Start(); err != nil {
		return nil, fmt.Errorf("start error: %w", err)
	}
	g.drivers[address] = d
	return d, nil
}

func (g *GobotI2C) ReadFromAddr(ctx context.Context, address byte, buffer []byte) error {
	g.mx.Lock()
	defer g.mx.Unlock()
	d, err := g.driver(address)
	if err != nil {
		return err
	}
	if err := d.Read(buffer); err != nil {
		return fmt.Errorf("read error at %#x: %w", address, err)
	}
	return nil
}

func (g *GobotI2C) WriteToAddr(ctx context.Context, address byte, buffer []byte) error {
	g.mx.Lock()
	defer g.mx.Unlock()
	d, err := g.driver(address)
	if err != nil {
		return err
	}
	if err := d.Write(buffer); err != nil {
		return fmt.Errorf("write error at %#x: %w", address, err)
	}
	return nil
}

// Release is a no-op; the kernel driver owns bus arbitration.
func (g *GobotI2C) Release(ctx context.Context) error {
	return nil
}

func (g *GobotI2C) Close() error {
	g.mx.Lock()
	defer g.mx.Unlock()
	for addr, d := range g.drivers {
		_ = d.Halt()
		delete(g.drivers, addr)
	}
	return nil
}
