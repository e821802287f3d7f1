package i2c

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

func (m *MockBus) WriteToAddr(ctx context.Context, address byte, buffer []byte) error {
	args := m.Called(ctx, address, buffer)
	return args.Error(0)
}

func (m *MockBus) Release(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

var errNack = errors.New("nack")

func TestScan(t *testing.T) {
	bus := new(MockBus)
	bus.On("WriteToAddr", mock.Anything, byte(0x3C), mock.Anything).Return(nil)
	bus.On("WriteToAddr", mock.Anything, byte(0x48), mock.Anything).Return(sensorhub.ErrBusBusy).Once()
	bus.On("WriteToAddr", mock.Anything, byte(0x48), mock.Anything).Return(nil).Once()
	bus.On("WriteToAddr", mock.Anything, mock.Anything, mock.Anything).Return(errNack)
	bus.On("Release", mock.Anything).Return(nil)

	found, err := Scan(context.Background(), bus, 0x32, 0xFF)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x3C, 0x48}, found)
	bus.AssertNumberOfCalls(t, "Release", 1)
	bus.AssertNumberOfCalls(t, "WriteToAddr", MaxAddress-0x32+2)
}

func TestScan_InvalidRange(t *testing.T) {
	_, err := Scan(context.Background(), new(MockBus), 0x50, 0x10)
	assert.Error(t, err)
}

func TestScan_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	found, err := Scan(ctx, new(MockBus), 0, 10)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, found)
}
