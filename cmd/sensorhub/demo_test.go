package main

import (
	"bytes"
	"context"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	color.NoColor = true
}

func TestRunDemo(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, runDemo(context.Background(), &out, 2, 0))

	text := out.String()
	for _, want := range []string{
		">>> Creating new configuration",
		">>> Removing I2C channel 12",
		"=== Setup complete",
		"========== Round 2 ==========",
		// analog default is 512 + pin
		"channel 5 (ANALOG): 546",
		"channel 10 (I2C): 600",
		"channel 11 (I2C): 1040",
		"channel 20 (SPI): 1014",
		"channel 21 (SPI): 1027",
		"channel 3 (ONEWIRE): 344",
		"8 of 9 channels active",
	} {
		assert.Contains(t, text, want)
	}
	assert.NotContains(t, text, "channel 4 (")
	assert.NotContains(t, text, "channel 12 (")
}

func TestRunDemo_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	var out bytes.Buffer
	require.NoError(t, runDemo(ctx, &out, 0, 0))
	assert.Contains(t, out.String(), "Round 1")
	assert.NotContains(t, out.String(), "Round 2")
}
