package eeprom

import (
	"bytes"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeChip emulates the 25AA1024 instruction set on top of a byte array.
type fakeChip struct {
	mem       []byte
	latch     bool
	busyReads int
	writes    []uint32
	failAfter int
}

func newFakeChip() *fakeChip {
	return &fakeChip{mem: bytes.Repeat([]byte{0xFF}, Capacity), failAfter: -1}
}

func (c *fakeChip) Transfer(tx []byte, rx []byte) error {
	if c.failAfter == 0 {
		return errors.New("bus error")
	}
	if c.failAfter > 0 {
		c.failAfter--
	}
	switch tx[0] {
	case cmdWREN:
		c.latch = true
	case cmdRDSR:
		if c.busyReads > 0 {
			c.busyReads--
			rx[1] = statusWIP
		} else {
			rx[1] = 0
		}
	case cmdRead:
		addr := uint32(tx[1])<<16 | uint32(tx[2])<<8 | uint32(tx[3])
		copy(rx[4:], c.mem[addr:addr+uint32(len(tx)-4)])
	case cmdWrite:
		if !c.latch {
			return errors.New("write latch not set")
		}
		addr := uint32(tx[1])<<16 | uint32(tx[2])<<8 | uint32(tx[3])
		page := addr - addr%PageSize
		for i, b := range tx[4:] {
			// the device wraps within the page
			c.mem[page+(addr-page+uint32(i))%PageSize] = b
		}
		c.writes = append(c.writes, addr)
		c.latch = false
	}
	return nil
}

func TestEEPROM_WriteRead(t *testing.T) {
	chip := newFakeChip()
	e := New(chip)
	data := []byte("sensorhub channel registry")

	require.NoError(t, e.Write(0x1000, data))
	got, err := e.Read(0x1000, len(data))
	require.NoError(t, err)
	assert.Equal(t, data, got)
}

func TestEEPROM_WriteSplitsPages(t *testing.T) {
	chip := newFakeChip()
	e := New(chip)
	data := bytes.Repeat([]byte{0xA5}, 600)

	require.NoError(t, e.Write(0x00F0, data))
	assert.Equal(t, []uint32{0x00F0, 0x0100, 0x0200, 0x0300}, chip.writes)
	got, err := e.Read(0x00F0, len(data))
	require.NoError(t, err)
	assert.Equal(t, data, got)
}

func TestEEPROM_OutOfRange(t *testing.T) {
	e := New(newFakeChip())
	_, err := e.Read(Capacity-1, 2)
	assert.ErrorIs(t, err, ErrOutOfRange)
	assert.ErrorIs(t, e.Write(Capacity-1, []byte{1, 2}), ErrOutOfRange)
	_, err = e.Read(0, -1)
	assert.ErrorIs(t, err, ErrOutOfRange)
}

func TestEEPROM_WaitsForWriteCycle(t *testing.T) {
	chip := newFakeChip()
	chip.busyReads = 3
	e := New(chip, WithPollInterval(time.Microsecond), WithWriteTimeout(time.Second))
	require.NoError(t, e.Write(0, []byte{1}))
	assert.Equal(t, 0, chip.busyReads)
}

func TestEEPROM_WriteTimeout(t *testing.T) {
	chip := newFakeChip()
	chip.busyReads = 1 << 30
	e := New(chip, WithPollInterval(time.Microsecond), WithWriteTimeout(2*time.Millisecond))
	assert.ErrorIs(t, e.Write(0, []byte{1}), ErrWriteTimeout)
}

func TestEEPROM_TransferError(t *testing.T) {
	chip := newFakeChip()
	chip.failAfter = 0
	e := New(chip)
	_, err := e.Read(0, 4)
	assert.Error(t, err)
	assert.Error(t, e.Write(0, []byte{1}))
}
