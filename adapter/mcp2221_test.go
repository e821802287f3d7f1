package adapter

import (
	"context"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mklimuk/sensorhub"
)

// fakeBridge answers every request report with the output of respond.
type fakeBridge struct {
	requests [][]byte
	respond  func(req []byte) []byte
	pending  []byte
}

func (f *fakeBridge) Write(p []byte) (int, error) {
	req := append([]byte(nil), p...)
	f.requests = append(f.requests, req)
	f.pending = f.respond(req)
	return len(p), nil
}

func (f *fakeBridge) Read(p []byte) (int, error) {
	clear(p)
	copy(p, f.pending)
	return reportSize, nil
}

func (f *fakeBridge) Close() error { return nil }

func newTestAdapter(f *fakeBridge) *MCP2221 {
	return NewMCP2221(WithResponseWait(0), WithOpener(func(context.Context) (io.ReadWriteCloser, error) {
		return f, nil
	}))
}

func TestMCP2221_ReadFromAddr(t *testing.T) {
	bridge := &fakeBridge{respond: func(req []byte) []byte {
		switch req[0] {
		case cmdReadI2C:
			return []byte{cmdReadI2C, 0x00}
		case cmdGetI2C:
			return []byte{cmdGetI2C, 0x00, 0x00, 2, 0x12, 0x34}
		}
		return nil
	}}
	a := newTestAdapter(bridge)
	buf := make([]byte, 2)
	require.NoError(t, a.ReadFromAddr(context.Background(), 0x48, buf))
	assert.Equal(t, []byte{0x12, 0x34}, buf)
	require.Len(t, bridge.requests, 2)
	assert.Equal(t, []byte{cmdReadI2C, 2, 0, 0x48<<1 + 1}, bridge.requests[0][:4])
}

func TestMCP2221_ReadFromAddrError(t *testing.T) {
	bridge := &fakeBridge{respond: func(req []byte) []byte {
		if req[0] == cmdGetI2C {
			return []byte{cmdGetI2C, i2cReadError}
		}
		return []byte{req[0], 0x00}
	}}
	err := newTestAdapter(bridge).ReadFromAddr(context.Background(), 0x48, make([]byte, 2))
	assert.ErrorIs(t, err, ErrCommandFailed)
}

func TestMCP2221_WriteBusy(t *testing.T) {
	bridge := &fakeBridge{respond: func(req []byte) []byte {
		return []byte{req[0], 0x01}
	}}
	err := newTestAdapter(bridge).WriteToAddr(context.Background(), 0x20, []byte{0x00, 0xFF})
	assert.ErrorIs(t, err, sensorhub.ErrBusBusy)
	assert.Equal(t, []byte{cmdWriteI2C, 2, 0, 0x40, 0x00, 0xFF}, bridge.requests[0][:6])
}

func TestMCP2221_ReadDigital(t *testing.T) {
	bridge := &fakeBridge{respond: func(req []byte) []byte {
		// GP0 input high, GP1 output low, GP2 alternate function, GP3 input low
		return []byte{cmdGetGPIO, 0x00, 1, 1, 0, 0, 0xEE, byte(GPIOModeNoOperation), 0, 1}
	}}
	a := newTestAdapter(bridge)
	ctx := context.Background()

	v, err := a.ReadDigital(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, v)
	v, err = a.ReadDigital(ctx, 3)
	require.NoError(t, err)
	assert.Equal(t, 0, v)

	_, err = a.ReadDigital(ctx, 2)
	assert.ErrorIs(t, err, ErrCommandFailed)
	_, err = a.ReadDigital(ctx, 4)
	assert.ErrorIs(t, err, sensorhub.ErrUnsupported)

	values, err := a.ReadGPIO(ctx)
	require.NoError(t, err)
	assert.Equal(t, GPIOModeIn, values[0].Mode)
	assert.Equal(t, GPIOModeOut, values[1].Mode)
}

func TestBufferToStatus(t *testing.T) {
	buf := make([]byte, reportSize)
	buf[9], buf[10] = 0x10, 0x00
	buf[11], buf[12] = 0x08, 0x00
	buf[13] = 3
	buf[14] = 0x76
	buf[15] = 5
	buf[16], buf[17] = 0x90, 0x00
	buf[25] = 1

	assert.Equal(t, &MCP2221Status{
		I2CDataBufferCounter:   3,
		I2CSpeedDivider:        0x76,
		I2CTimeout:             5,
		CurrentAddress:         "9000",
		LastWriteRequestedSize: 16,
		LastWriteSentSize:      8,
		ReadPending:            1,
	}, bufferToStatus(buf))
}

func TestMCP2221_ReleaseBus(t *testing.T) {
	bridge := &fakeBridge{respond: func(req []byte) []byte {
		return []byte{cmdStatus, 0x00, 0x10}
	}}
	_, err := newTestAdapter(bridge).ReleaseBus(context.Background())
	require.NoError(t, err)
	assert.Equal(t, byte(cancelI2C), bridge.requests[0][2])
}

func TestGPIOMode_String(t *testing.T) {
	assert.Equal(t, "INPUT", GPIOModeIn.String())
	assert.Equal(t, "OUTPUT", GPIOModeOut.String())
	assert.Equal(t, "NOOP", GPIOModeNoOperation.String())
}
