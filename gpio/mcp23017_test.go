package gpio

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/mklimuk/sensorhub"
)

type MockBus struct {
	mock.Mock
}

func (m *MockBus) ReadFromAddr(ctx context.Context, address byte, buffer []byte) error {
	args := m.Called(ctx, address, buffer)
	if v, ok := args.Get(0).([]byte); ok {
		copy(buffer, v)
	}
	return args.Error(1)
}

func (m *MockBus) WriteToAddr(ctx context.Context, address byte, buffer []byte) error {
	args := m.Called(ctx, address, buffer)
	return args.Error(0)
}

func (m *MockBus) Release(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func TestMCP23017_ReadDigital(t *testing.T) {
	tests := []struct {
		name  string
		pin   int
		reg   byte
		value byte
		want  int
	}{
		{name: "port A low", pin: 0, reg: 0x12, value: 0b11111110, want: 0},
		{name: "port A high", pin: 3, reg: 0x12, value: 0b00001000, want: 1},
		{name: "port B high", pin: 15, reg: 0x13, value: 0b10000000, want: 1},
		{name: "port B low", pin: 9, reg: 0x13, value: 0b11111101, want: 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bus := new(MockBus)
			bus.On("WriteToAddr", mock.Anything, byte(0x20), []byte{tt.reg}).Return(nil).Once()
			bus.On("ReadFromAddr", mock.Anything, byte(0x20), mock.Anything).Return([]byte{tt.value}, nil).Once()
			m := NewMCP23017(bus, WithAddress(0x20))

			got, err := m.ReadDigital(context.Background(), tt.pin)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			bus.AssertExpectations(t)
		})
	}
}

func TestMCP23017_RetriesBusyBus(t *testing.T) {
	bus := new(MockBus)
	bus.On("WriteToAddr", mock.Anything, byte(DefaultMCP23017Address), []byte{0x12}).Return(sensorhub.ErrBusBusy).Once()
	bus.On("WriteToAddr", mock.Anything, byte(DefaultMCP23017Address), []byte{0x12}).Return(nil).Once()
	bus.On("ReadFromAddr", mock.Anything, byte(DefaultMCP23017Address), mock.Anything).Return([]byte{0x01}, nil).Once()
	bus.On("Release", mock.Anything).Return(nil).Once()

	got, err := NewMCP23017(bus).ReadDigital(context.Background(), 0)
	require.NoError(t, err)
	assert.Equal(t, 1, got)
	bus.AssertExpectations(t)
}

func TestMCP23017_RetryLimit(t *testing.T) {
	bus := new(MockBus)
	bus.On("WriteToAddr", mock.Anything, mock.Anything, mock.Anything).Return(sensorhub.ErrBusBusy)
	bus.On("Release", mock.Anything).Return(nil)

	_, err := NewMCP23017(bus, WithRetryLimit(3)).ReadDigital(context.Background(), 1)
	assert.ErrorIs(t, err, sensorhub.ErrBusBusy)
	bus.AssertNumberOfCalls(t, "WriteToAddr", 3)
}

func TestMCP23017_BusError(t *testing.T) {
	bus := new(MockBus)
	bus.On("WriteToAddr", mock.Anything, mock.Anything, mock.Anything).Return(errors.New("nack"))

	_, err := NewMCP23017(bus).ReadDigital(context.Background(), 1)
	assert.Error(t, err)
	bus.AssertNotCalled(t, "Release", mock.Anything)
}

func TestMCP23017_Init(t *testing.T) {
	bus := new(MockBus)
	for _, w := range [][]byte{{0x00, 0xFF}, {0x10, 0xFF}, {0x06, 0x0F}, {0x16, 0xF0}} {
		bus.On("WriteToAddr", mock.Anything, byte(DefaultMCP23017Address), w).Return(nil).Once()
	}
	require.NoError(t, NewMCP23017(bus, WithBank(1)).Init(context.Background(), 0x0F, 0xF0))
	bus.AssertExpectations(t)
}

func TestMCP23017_InvalidPin(t *testing.T) {
	_, err := NewMCP23017(new(MockBus)).ReadDigital(context.Background(), 16)
	assert.ErrorIs(t, err, sensorhub.ErrUnsupported)
}
