package main

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"periph.io/x/conn/v3/onewire"

	"github.com/mklimuk/sensorhub/config"
	"github.com/mklimuk/sensorhub/hw"
)

func TestPlatform_FailReleasesInReverseOrder(t *testing.T) {
	var closed []string
	closer := func(name string) closerFunc {
		return func() error {
			closed = append(closed, name)
			return nil
		}
	}
	p := &platform{closers: []io.Closer{closer("cdev"), closer("spi")}}
	cause := errors.New("spi bus missing")

	err := p.fail(cause)
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, []string{"spi", "cdev"}, closed)
	assert.Empty(t, p.closers)
}

func TestOpenPlatform_Simulated(t *testing.T) {
	cfg := config.Default().Hardware
	cfg.Platform = config.PlatformSimulated
	p, err := openPlatform(context.Background(), cfg)
	require.NoError(t, err)
	defer p.Close()
	assert.IsType(t, &hw.Simulated{}, p.hw)
	assert.Nil(t, p.bus)
}

func TestOpenPlatform_UnknownPlatform(t *testing.T) {
	cfg := config.Default().Hardware
	cfg.Platform = "arduino"
	_, err := openPlatform(context.Background(), cfg)
	assert.ErrorIs(t, err, config.ErrInvalid)
}

func TestOneWireDevices(t *testing.T) {
	cfg := config.Default().Hardware
	devices, err := oneWireDevices(cfg)
	require.NoError(t, err)
	assert.Nil(t, devices)

	cfg.OneWireDevices = map[int]string{5: "0x5a0000000be3ac28"}
	devices, err = oneWireDevices(cfg)
	require.NoError(t, err)
	assert.Equal(t, map[int]onewire.Address{5: 0x5a0000000be3ac28}, devices)

	cfg.OneWireDevices = map[int]string{5: "not-a-rom"}
	_, err = oneWireDevices(cfg)
	assert.ErrorIs(t, err, config.ErrInvalid)
}
