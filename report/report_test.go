package report

import (
	"bytes"
	"errors"
	"testing"
	"time"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"gopkg.in/yaml.v3"

	"github.com/mklimuk/sensorhub/channel"
	"github.com/mklimuk/sensorhub/dispatch"
	"github.com/mklimuk/sensorhub/registry"
)

func init() {
	color.NoColor = true
}

func sampleRegistry(t *testing.T) *registry.Registry {
	t.Helper()
	r := registry.New()
	require.NoError(t, r.AddFixed(1, 2, channel.Digital, true))
	require.NoError(t, r.AddFixed(3, 5, channel.OneWire, false))
	_, err := r.AddI2C(10, 0x3C)
	require.NoError(t, err)
	_, err = r.AddSPI(11, 14)
	require.NoError(t, err)
	return r
}

func TestRows(t *testing.T) {
	rows := Rows(sampleRegistry(t))
	require.Len(t, rows, 4)
	assert.Equal(t, "fixed", rows[0].Kind)
	assert.Equal(t, 2, *rows[0].Pin)
	assert.Nil(t, rows[0].Address)
	assert.Equal(t, byte(0x3C), *rows[2].Address)
	assert.Nil(t, rows[2].Pin)
	assert.Equal(t, 14, *rows[3].Pin)
	assert.Equal(t, uint32(2), rows[3].ID)
}

func TestTable(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Table(&buf, sampleRegistry(t)))
	out := buf.String()
	assert.Contains(t, out, "CHANNEL")
	assert.Contains(t, out, "pin 5")
	assert.Contains(t, out, "addr 0x3c")
	assert.Contains(t, out, "cs 14")
	assert.Contains(t, out, "inactive")
	assert.Contains(t, out, "3 of 4 channels active")
}

func TestYAML(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, YAML(&buf, sampleRegistry(t)))
	var doc document
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &doc))
	assert.Equal(t, 3, doc.Active)
	require.Len(t, doc.Channels, 4)
	assert.Equal(t, "ONEWIRE", doc.Channels[1].Mode)
	assert.False(t, doc.Channels[1].Active)
	assert.Equal(t, byte(0x3C), *doc.Channels[2].Address)
}

func TestXLSX(t *testing.T) {
	var buf bytes.Buffer
	at := time.Date(2024, 6, 1, 8, 30, 0, 0, time.UTC)
	require.NoError(t, XLSX(&buf, sampleRegistry(t), at))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(channelsSheet)
	require.NoError(t, err)
	require.Len(t, rows, 5)
	assert.Equal(t, []string{"Channel", "Kind", "Mode", "Pin", "Address", "ID", "Active"}, rows[0])
	assert.Equal(t, "1", rows[1][0])
	assert.Equal(t, "DIGITAL", rows[1][2])
	assert.Equal(t, "2", rows[1][3])
	assert.Equal(t, "I2C", rows[3][2])
	assert.Equal(t, "0x3c", rows[3][4])
	assert.Equal(t, "1", rows[3][5])

	summary, err := f.GetRows(summarySheet)
	require.NoError(t, err)
	assert.Equal(t, []string{"Generated", "2024-06-01T08:30:00Z"}, summary[0])
	assert.Equal(t, []string{"Active", "3"}, summary[2])
}

func TestReadings(t *testing.T) {
	results := []dispatch.Result{
		{Reading: dispatch.Reading{Channel: 1, Mode: channel.Digital, Value: 1, At: time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)}},
		{Reading: dispatch.Reading{Channel: 10, Mode: channel.I2C, Value: dispatch.Sentinel}, Err: errors.New("nack")},
	}
	var buf bytes.Buffer
	require.NoError(t, Readings(&buf, results))
	assert.Contains(t, buf.String(), "10:00:00.000")
	assert.Contains(t, buf.String(), "nack")
}
