package storage

import (
	"bytes"
	"context"
	"encoding/binary"
	"fmt"

	"github.com/sigurn/crc8"

	"github.com/mklimuk/sensorhub/memory/eeprom"
)

// Record header: magic, big endian payload length, CRC-8/MAXIM of the payload.
const (
	eepromMagic      = "SHUB"
	eepromHeaderSize = len(eepromMagic) + 2 + 1
)

var crcTable = crc8.MakeTable(crc8.CRC8_MAXIM)

// Memory is the part of eeprom.EEPROM used by EEPROMBlob.
type Memory interface {
	Read(address uint32, length int) ([]byte, error)
	Write(address uint32, data []byte) error
}

// EEPROMBlob keeps the record in an SPI EEPROM starting at Offset.
type EEPROMBlob struct {
	mem    Memory
	offset uint32
	size   int
}

// NewEEPROMBlob uses size bytes of mem starting at offset. A size of 0 uses
// the rest of the chip.
func NewEEPROMBlob(mem Memory, offset uint32, size int) *EEPROMBlob {
	if size <= 0 {
		size = eeprom.Capacity - int(offset)
	}
	return &EEPROMBlob{mem: mem, offset: offset, size: size}
}

func (e *EEPROMBlob) ReadBlob(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	header, err := e.mem.Read(e.offset, eepromHeaderSize)
	if err != nil {
		return nil, fmt.Errorf("could not read record header: %w", err)
	}
	if bytes.Equal(header, bytes.Repeat([]byte{0xFF}, eepromHeaderSize)) {
		return nil, fmt.Errorf("erased memory at %#x: %w", e.offset, ErrNotFound)
	}
	if string(header[:len(eepromMagic)]) != eepromMagic {
		return nil, fmt.Errorf("bad record magic % x: %w", header[:len(eepromMagic)], ErrCorrupt)
	}
	length := int(binary.BigEndian.Uint16(header[len(eepromMagic):]))
	if length == 0 || length > e.size-eepromHeaderSize {
		return nil, fmt.Errorf("bad record length %d: %w", length, ErrCorrupt)
	}
	payload, err := e.mem.Read(e.offset+uint32(eepromHeaderSize), length)
	if err != nil {
		return nil, fmt.Errorf("could not read record: %w", err)
	}
	if sum := crc8.Checksum(payload, crcTable); sum != header[eepromHeaderSize-1] {
		return nil, fmt.Errorf("checksum mismatch %#02x != %#02x: %w", sum, header[eepromHeaderSize-1], ErrCorrupt)
	}
	return payload, nil
}

func (e *EEPROMBlob) WriteBlob(ctx context.Context, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if len(data) == 0 || len(data) > 0xFFFF || len(data) > e.size-eepromHeaderSize {
		return fmt.Errorf("record of %d bytes does not fit in %d bytes", len(data), e.size-eepromHeaderSize)
	}
	buf := make([]byte, eepromHeaderSize+len(data))
	copy(buf, eepromMagic)
	binary.BigEndian.PutUint16(buf[len(eepromMagic):], uint16(len(data)))
	buf[eepromHeaderSize-1] = crc8.Checksum(data, crcTable)
	copy(buf[eepromHeaderSize:], data)
	return e.mem.Write(e.offset, buf)
}
