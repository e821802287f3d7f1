// Package eeprom drives the Microchip 25AA1024 1-Mbit SPI EEPROM: paged writes
// with status polling and bounded reads.
//
// Datasheet reference: Microchip 25AA1024 Serial EEPROM (Table 3-1 Instruction
// Set, page size 256 bytes).
//
// Example usage with a gobot adaptor:
//
//	bus, err := eeprom.NewGobotBus(nanopi.NewNeoAdaptor(), spi.WithBusNumber(0), spi.WithChipNumber(0))
//	if err != nil { ... }
//	defer bus.Halt()
//	e := eeprom.New(bus)
//	data, err := e.Read(0x0000, 16)
package eeprom

import (
	"errors"
	"fmt"
	"sync"
	"time"
)

// --- device constants (datasheet Table 3-1) ---
const (
	cmdRead  = 0x03 // READ
	cmdWrite = 0x02 // WRITE
	cmdWREN  = 0x06 // WREN (Write-Enable Latch set)
	cmdRDSR  = 0x05 // Read STATUS Register

	statusWIP = 0x01 // STATUS bit 0 - Write-In-Progress

	PageSize = 256    // bytes per page
	Capacity = 131072 // 1 Mbit = 128 KiB total bytes
)

var (
	ErrOutOfRange   = errors.New("eeprom: access out of range")
	ErrWriteTimeout = errors.New("eeprom: timeout waiting for write completion")
)

// Transferer performs a full-duplex SPI transaction. If rx is not nil it has
// the length of tx and receives the clocked-in bytes.
type Transferer interface {
	Transfer(tx []byte, rx []byte) error
}

type Opts struct {
	WriteTimeout time.Duration
	PollInterval time.Duration
}

type Opt func(*Opts)

// WithWriteTimeout bounds the status polling after each page write.
func WithWriteTimeout(timeout time.Duration) Opt {
	return func(o *Opts) {
		o.WriteTimeout = timeout
	}
}

func WithPollInterval(interval time.Duration) Opt {
	return func(o *Opts) {
		o.PollInterval = interval
	}
}

type EEPROM struct {
	mx     sync.Mutex
	xfer   Transferer
	config Opts
}

func New(xfer Transferer, opts ...Opt) *EEPROM {
	config := Opts{
		// internal write cycle is 6 ms max
		WriteTimeout: 10 * time.Millisecond,
		PollInterval: 500 * time.Microsecond,
	}
	for _, opt := range opts {
		opt(&config)
	}
	return &EEPROM{xfer: xfer, config: config}
}

// Read returns length bytes starting at address.
func (e *EEPROM) Read(address uint32, length int) ([]byte, error) {
	if length < 0 || uint64(address)+uint64(length) > Capacity {
		return nil, fmt.Errorf("read %d bytes at %#x: %w", length, address, ErrOutOfRange)
	}
	if length == 0 {
		return []byte{}, nil
	}
	e.mx.Lock()
	defer e.mx.Unlock()
	// command + 24-bit address (only A16..A0 used)
	tx := make([]byte, 4+length)
	tx[0], tx[1], tx[2], tx[3] = cmdRead, byte(address>>16), byte(address>>8), byte(address)
	rx := make([]byte, len(tx))
	if err := e.xfer.Transfer(tx, rx); err != nil {
		return nil, fmt.Errorf("eeprom: read at %#x: %w", address, err)
	}
	return rx[4:], nil // skip echoed header
}

// Write stores data at address, splitting it on page boundaries and waiting
// for every internal write cycle to complete.
func (e *EEPROM) Write(address uint32, data []byte) error {
	if uint64(address)+uint64(len(data)) > Capacity {
		return fmt.Errorf("write %d bytes at %#x: %w", len(data), address, ErrOutOfRange)
	}
	e.mx.Lock()
	defer e.mx.Unlock()
	offset := 0
	for offset < len(data) {
		space := PageSize - int(address%PageSize)
		chunk := data[offset:]
		if len(chunk) > space {
			chunk = chunk[:space]
		}
		if err := e.pageWrite(address, chunk); err != nil {
			return fmt.Errorf("eeprom: page write at %#x: %w", address, err)
		}
		offset += len(chunk)
		address += uint32(len(chunk))
	}
	return nil
}

func (e *EEPROM) pageWrite(address uint32, data []byte) error {
	if err := e.xfer.Transfer([]byte{cmdWREN}, nil); err != nil {
		return fmt.Errorf("write enable: %w", err)
	}
	tx := append([]byte{cmdWrite, byte(address >> 16), byte(address >> 8), byte(address)}, data...)
	if err := e.xfer.Transfer(tx, nil); err != nil {
		return err
	}
	return e.waitUntilReady()
}

func (e *EEPROM) readStatus() (byte, error) {
	rx := make([]byte, 2)
	if err := e.xfer.Transfer([]byte{cmdRDSR, 0x00}, rx); err != nil {
		return 0, err
	}
	return rx[1], nil
}

func (e *EEPROM) waitUntilReady() error {
	deadline := time.Now().Add(e.config.WriteTimeout)
	for {
		st, err := e.readStatus()
		if err != nil {
			return fmt.Errorf("read status: %w", err)
		}
		if st&statusWIP == 0 {
			return nil
		}
		if !time.Now().Before(deadline) {
			return ErrWriteTimeout
		}
		time.Sleep(e.config.PollInterval)
	}
}
