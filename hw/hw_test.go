package hw

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"periph.io/x/conn/v3/conntest"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpiotest"
	"periph.io/x/conn/v3/onewire"
	"periph.io/x/conn/v3/onewire/onewiretest"
	"periph.io/x/conn/v3/spi"
	"periph.io/x/conn/v3/spi/spitest"

	"github.com/mklimuk/sensorhub"
)

func TestSet_Unsupported(t *testing.T) {
	ctx := context.Background()
	var s Set
	_, err := s.ReadDigital(ctx, 1)
	assert.ErrorIs(t, err, sensorhub.ErrUnsupported)
	_, err = s.ReadAnalog(ctx, 1)
	assert.ErrorIs(t, err, sensorhub.ErrUnsupported)
	_, err = s.ReadOneWire(ctx, 1)
	assert.ErrorIs(t, err, sensorhub.ErrUnsupported)
	_, err = s.ReadSPI(ctx, 1)
	assert.ErrorIs(t, err, sensorhub.ErrUnsupported)
	_, err = s.ReadI2C(ctx, 0x10)
	assert.ErrorIs(t, err, sensorhub.ErrUnsupported)
}

func TestSet_Delegates(t *testing.T) {
	sim := &Simulated{}
	s := Set{Digital: sim, Analog: sim, OneWire: sim, SPI: sim, I2C: sim}
	ctx := context.Background()

	v, err := s.ReadAnalog(ctx, 4)
	require.NoError(t, err)
	assert.Equal(t, 516, v)
	f, err := s.ReadI2C(ctx, 0x3C)
	require.NoError(t, err)
	assert.Equal(t, float64(600), f)
	f, err = s.ReadSPI(ctx, 14)
	require.NoError(t, err)
	assert.Equal(t, float64(1014), f)
}

func TestSimulated(t *testing.T) {
	ctx := context.Background()
	sim := &Simulated{}

	first, _ := sim.ReadDigital(ctx, 2)
	second, _ := sim.ReadDigital(ctx, 2)
	assert.NotEqual(t, first, second, "digital reads toggle")
	ow, err := sim.ReadOneWire(ctx, 5)
	require.NoError(t, err)
	assert.Equal(t, float64(344), ow)

	boom := errors.New("boom")
	sim.I2CFunc = func(ctx context.Context, address byte) (float64, error) {
		return 0, boom
	}
	_, err = sim.ReadI2C(ctx, 0x10)
	assert.ErrorIs(t, err, boom)
}

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
	return m.Called(ctx, address, buffer).Error(0)
}

func (m *MockBus) Release(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func TestRawI2C(t *testing.T) {
	tests := []struct {
		name string
		size int
		data []byte
		want float64
	}{
		{name: "one byte", size: 1, data: []byte{0x7F}, want: 127},
		{name: "two bytes", size: 2, data: []byte{0x01, 0x02}, want: 258},
		{name: "invalid size defaults to two", size: 9, data: []byte{0xFF, 0xFF}, want: 65535},
		{name: "four bytes", size: 4, data: []byte{0x00, 0x01, 0x00, 0x00}, want: 65536},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bus := new(MockBus)
			bus.On("ReadFromAddr", mock.Anything, byte(0x48), mock.Anything).Return(tt.data, nil)
			got, err := NewRawI2C(bus, tt.size).ReadI2C(context.Background(), 0x48)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRawI2C_RetriesBusy(t *testing.T) {
	bus := new(MockBus)
	bus.On("ReadFromAddr", mock.Anything, byte(0x48), mock.Anything).Return(nil, sensorhub.ErrBusBusy).Once()
	bus.On("ReadFromAddr", mock.Anything, byte(0x48), mock.Anything).Return([]byte{0x00, 0x2A}, nil).Once()
	bus.On("Release", mock.Anything).Return(nil).Once()

	got, err := NewRawI2C(bus, 2).ReadI2C(context.Background(), 0x48)
	require.NoError(t, err)
	assert.Equal(t, float64(42), got)
	bus.AssertExpectations(t)
}

func TestRawI2C_Error(t *testing.T) {
	nack := errors.New("nack")
	bus := new(MockBus)
	bus.On("ReadFromAddr", mock.Anything, mock.Anything, mock.Anything).Return(nil, nack)
	_, err := NewRawI2C(bus, 2).ReadI2C(context.Background(), 0x48)
	assert.ErrorIs(t, err, nack)
}

func TestPeriphGPIO_ReadDigital(t *testing.T) {
	pins := map[string]gpio.PinIO{
		"GPIO2": &gpiotest.Pin{N: "GPIO2", Num: 2, L: gpio.High},
		"GPIO4": &gpiotest.Pin{N: "GPIO4", Num: 4, L: gpio.Low},
	}
	p := &PeriphGPIO{lookup: func(name string) gpio.PinIO { return pins[name] }}
	ctx := context.Background()

	v, err := p.ReadDigital(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, 1, v)
	v, err = p.ReadDigital(ctx, 4)
	require.NoError(t, err)
	assert.Equal(t, 0, v)
	_, err = p.ReadDigital(ctx, 7)
	assert.Error(t, err)
	_, err = p.ReadAnalog(ctx, 2)
	assert.ErrorIs(t, err, sensorhub.ErrUnsupported)
}

func TestPeriphSPI_ReadSPI(t *testing.T) {
	port := &spitest.Playback{Playback: conntest.Playback{
		Ops:       []conntest.IO{{W: []byte{0x00, 0x00}, R: []byte{0x03, 0xE8}}},
		DontPanic: true,
	}}
	var opened string
	p := &PeriphSPI{bus: 1, size: 2, open: func(name string) (spi.PortCloser, error) {
		opened = name
		return port, nil
	}}

	v, err := p.ReadSPI(context.Background(), 14)
	require.NoError(t, err)
	assert.Equal(t, float64(1000), v)
	assert.Equal(t, "SPI1.14", opened)
}

func scratchpad(raw int16) []byte {
	b := []byte{byte(raw), byte(uint16(raw) >> 8), 0x4B, 0x46, 0x7F, 0xFF, 0x0C, 0x10}
	return append(b, onewire.CalcCRC(b))
}

func TestOneWire_ReadSkipROM(t *testing.T) {
	bus := &onewiretest.Playback{
		Ops: []onewiretest.IO{
			{W: []byte{owSkipROM, owConvert}, Pull: onewire.StrongPullup},
			{W: []byte{owSkipROM, owReadScratchpad}, R: scratchpad(-160), Pull: onewire.WeakPullup},
		},
		DontPanic: true,
	}
	o := NewOneWire(bus, time.Millisecond, nil)

	v, err := o.ReadOneWire(context.Background(), 5)
	require.NoError(t, err)
	assert.Equal(t, float64(-160), v)
	assert.NoError(t, bus.Close())
}

func TestOneWire_ReadMatchROM(t *testing.T) {
	addr := onewire.Address(0x280000075A3B2C01)
	rom := []byte{owMatchROM, 0x01, 0x2C, 0x3B, 0x5A, 0x07, 0x00, 0x00, 0x28}
	bus := &onewiretest.Playback{
		Ops: []onewiretest.IO{
			{W: append(append([]byte{}, rom...), owConvert), Pull: onewire.StrongPullup},
			{W: append(append([]byte{}, rom...), owReadScratchpad), R: scratchpad(344), Pull: onewire.WeakPullup},
		},
		DontPanic: true,
	}
	o := NewOneWire(bus, time.Millisecond, map[int]onewire.Address{3: addr})

	v, err := o.ReadOneWire(context.Background(), 3)
	require.NoError(t, err)
	assert.Equal(t, float64(344), v)
}

func TestOneWire_BadCRC(t *testing.T) {
	data := scratchpad(344)
	data[8] ^= 0xFF
	bus := &onewiretest.Playback{
		Ops: []onewiretest.IO{
			{W: []byte{owSkipROM, owConvert}, Pull: onewire.StrongPullup},
			{W: []byte{owSkipROM, owReadScratchpad}, R: data, Pull: onewire.WeakPullup},
		},
		DontPanic: true,
	}
	_, err := NewOneWire(bus, time.Millisecond, nil).ReadOneWire(context.Background(), 5)
	assert.Error(t, err)
}

func TestOneWire_Cancelled(t *testing.T) {
	bus := &onewiretest.Playback{
		Ops:       []onewiretest.IO{{W: []byte{owSkipROM, owConvert}, Pull: onewire.StrongPullup}},
		DontPanic: true,
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewOneWire(bus, time.Hour, nil).ReadOneWire(ctx, 5)
	assert.ErrorIs(t, err, context.Canceled)
}

type fakePins map[string]int

func (f fakePins) DigitalRead(id string) (int, error) {
	v, ok := f[id]
	if !ok {
		return 0, errors.New("unknown pin")
	}
	return v, nil
}

func TestNanoPi_ReadDigital(t *testing.T) {
	n := &NanoPi{pins: fakePins{"7": 1, "11": 0}}
	v, err := n.ReadDigital(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, 1, v)
	_, err = n.ReadDigital(context.Background(), 13)
	assert.Error(t, err)
}
