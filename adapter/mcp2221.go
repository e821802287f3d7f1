// Package adapter drives the Microchip MCP2221 USB to I2C/GPIO bridge over HID.
package adapter

import (
	"context"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/karalabe/hid"

	"github.com/mklimuk/sensorhub"
	"github.com/mklimuk/sensorhub/hubctx"
)

const VendorID = 0x04D8
const ProductID = 0x00DD

const reportSize = 64

// HID commands
const (
	cmdStatus    = 0x10
	cmdGetI2C    = 0x40
	cmdGetGPIO   = 0x51
	cmdWriteI2C  = 0x90
	cmdReadI2C   = 0x91
	cancelI2C    = 0x10
	i2cReadError = 0x41
)

var (
	ErrCommandFailed   = errors.New("command failed")
	ErrNoDevice        = errors.New("MCP2221 device not found")
	ErrAmbiguousDevice = errors.New("ambiguous device identification")
)

var _ sensorhub.I2CBus = &MCP2221{}
var _ sensorhub.DigitalReader = &MCP2221{}

// Opener connects to a single bridge for one command/response exchange.
type Opener func(ctx context.Context) (io.ReadWriteCloser, error)

type Opts struct {
	ResponseWait time.Duration
	Opener       Opener
	Logger       *slog.Logger
}

type Opt func(*Opts)

// WithResponseWait sets the delay between a request and reading its response.
func WithResponseWait(wait time.Duration) Opt {
	return func(o *Opts) {
		o.ResponseWait = wait
	}
}

func WithOpener(open Opener) Opt {
	return func(o *Opts) {
		o.Opener = open
	}
}

func WithLogger(logger *slog.Logger) Opt {
	return func(o *Opts) {
		o.Logger = logger
	}
}

type MCP2221 struct {
	mx           sync.Mutex
	request      []byte
	response     []byte
	responseWait time.Duration
	open         Opener
	log          *slog.Logger
}

type MCP2221Status struct {
	I2CDataBufferCounter   int    `yaml:"i2c_data_buffer_counter"`
	I2CSpeedDivider        int    `yaml:"i2c_speed_divider"`
	I2CTimeout             int    `yaml:"i2c_timeout"`
	CurrentAddress         string `yaml:"current_address"`
	LastWriteRequestedSize uint16 `yaml:"last_write_requested_size"`
	LastWriteSentSize      uint16 `yaml:"last_write_sent_size"`
	ReadPending            int    `yaml:"read_pending"`
}

type GPIOMode byte

const (
	GPIOModeOut         GPIOMode = 0b00000000
	GPIOModeIn          GPIOMode = 0b00001000
	GPIOModeNoOperation GPIOMode = 0xEF
)

func (m GPIOMode) String() string {
	switch m {
	case GPIOModeIn:
		return "INPUT"
	case GPIOModeOut:
		return "OUTPUT"
	default:
		return "NOOP"
	}
}

// GPIOPin is the state of one of the GP0-GP3 pins.
type GPIOPin struct {
	Mode  GPIOMode `yaml:"mode"`
	Value byte     `yaml:"value"`
}

type GPIOValues [4]GPIOPin

func NewMCP2221(opts ...Opt) *MCP2221 {
	config := Opts{
		ResponseWait: 50 * time.Millisecond,
		Opener:       openHID,
	}
	for _, opt := range opts {
		opt(&config)
	}
	if config.Logger == nil {
		config.Logger = slog.Default()
	}
	return &MCP2221{
		request:      make([]byte, reportSize),
		response:     make([]byte, reportSize),
		responseWait: config.ResponseWait,
		open:         config.Opener,
		log:          config.Logger,
	}
}

// Detect lists the bridges attached to the host.
func Detect() []hid.DeviceInfo {
	return hid.Enumerate(VendorID, ProductID)
}

// openHID opens the bridge selected with hubctx.SetDevice, or the only one attached.
func openHID(ctx context.Context) (io.ReadWriteCloser, error) {
	devs := Detect()
	if len(devs) == 0 {
		return nil, ErrNoDevice
	}
	idx, selected := hubctx.Device(ctx)
	if !selected {
		if len(devs) > 1 {
			return nil, fmt.Errorf("%d devices attached: %w", len(devs), ErrAmbiguousDevice)
		}
		idx = 0
	}
	if idx < 0 || idx >= len(devs) {
		return nil, fmt.Errorf("no device with index %d: %w", idx, ErrNoDevice)
	}
	dev, err := devs[idx].Open()
	if err != nil {
		return nil, fmt.Errorf("error opening device: %w", err)
	}
	return dev, nil
}

func (d *MCP2221) WriteToAddr(ctx context.Context, address byte, buffer []byte) error {
	d.mx.Lock()
	defer d.mx.Unlock()
	d.resetBuffers()
	d.request[0] = cmdWriteI2C
	binary.LittleEndian.PutUint16(d.request[1:3], uint16(len(buffer)))
	d.request[3] = address << 1
	copy(d.request[4:], buffer)
	if err := d.transact(ctx); err != nil {
		return fmt.Errorf("write to %#x failed: %w", address, err)
	}
	if d.response[1] == 0x01 {
		d.log.Debug("adapter busy", "address", address)
		return sensorhub.ErrBusBusy
	}
	return nil
}

func (d *MCP2221) ReadFromAddr(ctx context.Context, address byte, buffer []byte) error {
	d.mx.Lock()
	defer d.mx.Unlock()
	d.resetBuffers()
	d.request[0] = cmdReadI2C
	binary.LittleEndian.PutUint16(d.request[1:3], uint16(len(buffer)))
	d.request[3] = address<<1 + 1
	if err := d.transact(ctx); err != nil {
		return fmt.Errorf("bus read from %#x failed: %w", address, err)
	}
	if d.response[1] == 0x01 {
		return sensorhub.ErrBusBusy
	}
	d.resetBuffers()
	d.request[0] = cmdGetI2C
	if err := d.transact(ctx); err != nil {
		return fmt.Errorf("error getting read data from adapter: %w", err)
	}
	if d.response[1] == i2cReadError {
		return fmt.Errorf("error reading the I2C slave data from the I2C engine: %w", ErrCommandFailed)
	}
	if d.response[3] == 127 || int(d.response[3]) != len(buffer) {
		return fmt.Errorf("invalid data size byte; expected %d, got %d", len(buffer), d.response[3])
	}
	copy(buffer, d.response[4:])
	return nil
}

func (d *MCP2221) ReadGPIO(ctx context.Context) (GPIOValues, error) {
	d.mx.Lock()
	defer d.mx.Unlock()
	d.resetBuffers()
	d.request[0] = cmdGetGPIO
	var res GPIOValues
	if err := d.transact(ctx); err != nil {
		return res, fmt.Errorf("read GPIO values command failed: %w", err)
	}
	if d.response[1] == 0x01 {
		return res, ErrCommandFailed
	}
	for i := range res {
		res[i].Value = d.response[2+2*i]
		res[i].Mode = GPIOModeNoOperation
		if dir := d.response[3+2*i]; dir != byte(GPIOModeNoOperation) {
			res[i].Mode = GPIOMode(dir << 3)
		}
	}
	return res, nil
}

// ReadDigital reads one of the GP0-GP3 pins.
func (d *MCP2221) ReadDigital(ctx context.Context, pin int) (int, error) {
	if pin < 0 || pin > 3 {
		return 0, fmt.Errorf("MCP2221 has no GP%d: %w", pin, sensorhub.ErrUnsupported)
	}
	values, err := d.ReadGPIO(ctx)
	if err != nil {
		return 0, err
	}
	if values[pin].Mode == GPIOModeNoOperation {
		return 0, fmt.Errorf("GP%d is not configured as GPIO: %w", pin, ErrCommandFailed)
	}
	return int(values[pin].Value), nil
}

func (d *MCP2221) Status(ctx context.Context) (*MCP2221Status, error) {
	d.mx.Lock()
	defer d.mx.Unlock()
	d.resetBuffers()
	d.request[0] = cmdStatus
	if err := d.transact(ctx); err != nil {
		return nil, fmt.Errorf("status request failed: %w", err)
	}
	return bufferToStatus(d.response), nil
}

// bufferToStatus decodes the status/set parameters response:
// 9-10 requested transfer length, 11-12 transferred length, 13 data buffer
// counter, 14 speed divider, 15 timeout, 16-17 address, 25 read pending.
func bufferToStatus(buffer []byte) *MCP2221Status {
	return &MCP2221Status{
		I2CDataBufferCounter:   int(buffer[13]),
		I2CSpeedDivider:        int(buffer[14]),
		I2CTimeout:             int(buffer[15]),
		ReadPending:            int(buffer[25]),
		CurrentAddress:         hex.EncodeToString(buffer[16:18]),
		LastWriteRequestedSize: binary.LittleEndian.Uint16(buffer[9:11]),
		LastWriteSentSize:      binary.LittleEndian.Uint16(buffer[11:13]),
	}
}

// Release cancels the current I2C transfer so the bus is free again.
func (d *MCP2221) Release(ctx context.Context) error {
	_, err := d.ReleaseBus(ctx)
	return err
}

func (d *MCP2221) ReleaseBus(ctx context.Context) (*MCP2221Status, error) {
	d.mx.Lock()
	defer d.mx.Unlock()
	d.resetBuffers()
	d.request[0] = cmdStatus
	d.request[2] = cancelI2C
	if err := d.transact(ctx); err != nil {
		return nil, fmt.Errorf("release request failed: %w", err)
	}
	return bufferToStatus(d.response), nil
}

func (d *MCP2221) transact(ctx context.Context) error {
	dev, err := d.open(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if err := dev.Close(); err != nil {
			d.log.Warn("could not close adapter", "error", err)
		}
	}()
	verbose := hubctx.IsVerbose(ctx)
	if verbose {
		d.log.Debug("sending message to adapter", "dump", "\n"+hex.Dump(d.request))
	}
	n, err := dev.Write(d.request)
	if err != nil {
		return fmt.Errorf("could not write request: %w", err)
	}
	if n != reportSize {
		return fmt.Errorf("short write: %d", n)
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d.responseWait):
	}
	n, err = dev.Read(d.response)
	if err != nil {
		return fmt.Errorf("could not read response: %w", err)
	}
	if n != reportSize {
		return fmt.Errorf("short read: %d", n)
	}
	if verbose {
		d.log.Debug("read message from adapter", "dump", "\n"+hex.Dump(d.response))
	}
	return nil
}

func (d *MCP2221) resetBuffers() {
	clear(d.request)
	clear(d.response)
}
