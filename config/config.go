// Package config loads the sensorhub YAML configuration.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/mklimuk/sensorhub/channel"
	"github.com/mklimuk/sensorhub/registry"
)

// Injected at build time.
var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

const DefaultPath = "/etc/sensorhub/config.yaml"

var ErrInvalid = errors.New("invalid configuration")

const (
	BackendFile   = "file"
	BackendEEPROM = "eeprom"
	BackendMemory = "memory"
)

const (
	PlatformPeriph    = "periph"
	PlatformCharDev   = "cdev"
	PlatformNanoPi    = "nanopi"
	PlatformMCP2221   = "mcp2221"
	PlatformSimulated = "simulated"
)

type Config struct {
	Storage  Storage  `yaml:"storage"`
	Registry Registry `yaml:"registry"`
	Hardware Hardware `yaml:"hardware"`
}

type Storage struct {
	Backend string `yaml:"backend"`
	Path    string `yaml:"path"`
	Format  string `yaml:"format"`
	EEPROM  EEPROM `yaml:"eeprom"`
}

// EEPROM locates the registry record on a 25AA1024 behind a gobot SPI bus.
type EEPROM struct {
	Bus    int    `yaml:"bus"`
	Chip   int    `yaml:"chip"`
	Offset uint32 `yaml:"offset"`
	Size   int    `yaml:"size"`
}

type Registry struct {
	MaxFixedChannel int              `yaml:"max_fixed_channel"`
	Defaults        []ChannelDefault `yaml:"defaults"`
}

// ChannelDefault is a wired channel created on first run.
type ChannelDefault struct {
	Channel int    `yaml:"channel"`
	Pin     int    `yaml:"pin"`
	Mode    string `yaml:"mode"`
	Active  *bool  `yaml:"active,omitempty"`
}

type Hardware struct {
	Platform          string        `yaml:"platform"`
	I2CDevice         string        `yaml:"i2c_device"`
	I2CBus            int           `yaml:"i2c_bus"`
	GPIOChip          string        `yaml:"gpio_chip"`
	SPIBus            int           `yaml:"spi_bus"`
	SPIReadLen        int           `yaml:"spi_read_len"`
	I2CReadLen        int           `yaml:"i2c_read_len"`
	OneWireBus        string        `yaml:"onewire_bus"`
	OneWireConversion time.Duration `yaml:"onewire_conversion"`
	// OneWireDevices maps a channel pin to the 64-bit ROM code of the device
	// it reads, e.g. 3: "0x5a0000000be3ac28". Unlisted pins use skip ROM.
	OneWireDevices map[int]string `yaml:"onewire_devices,omitempty"`
	Expander       *Expander      `yaml:"expander,omitempty"`
}

// Expander routes digital reads to an MCP23017 on the platform I2C bus.
type Expander struct {
	Address byte `yaml:"address"`
	Bank    int  `yaml:"bank"`
	PullUpA byte `yaml:"pull_up_a"`
	PullUpB byte `yaml:"pull_up_b"`
}

func Default() Config {
	return Config{
		Storage: Storage{
			Backend: BackendFile,
			Path:    "/var/lib/sensorhub/channels.yaml",
			Format:  "yaml",
		},
		Registry: Registry{
			MaxFixedChannel: registry.DefaultMaxFixedChannel,
			Defaults: []ChannelDefault{
				{Channel: 1, Pin: 2, Mode: "DIGITAL"},
				{Channel: 2, Pin: 4, Mode: "ANALOG"},
				{Channel: 3, Pin: 5, Mode: "ONEWIRE"},
				{Channel: 4, Pin: 15, Mode: "DIGITAL"},
				{Channel: 5, Pin: 34, Mode: "ANALOG"},
			},
		},
		Hardware: Hardware{
			Platform:          PlatformPeriph,
			I2CDevice:         "/dev/i2c-1",
			I2CBus:            1,
			GPIOChip:          "gpiochip0",
			SPIReadLen:        2,
			I2CReadLen:        2,
			OneWireConversion: 750 * time.Millisecond,
		},
	}
}

// Load reads path on top of the defaults. A missing file yields the defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return cfg, fmt.Errorf("could not read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	switch c.Storage.Backend {
	case BackendFile:
		if c.Storage.Path == "" {
			return fmt.Errorf("%w: file storage needs a path", ErrInvalid)
		}
	case BackendEEPROM, BackendMemory:
	default:
		return fmt.Errorf("%w: unknown storage backend %q", ErrInvalid, c.Storage.Backend)
	}
	switch c.Storage.Format {
	case "", "yaml", "yml", "cbor":
	default:
		return fmt.Errorf("%w: unknown storage format %q", ErrInvalid, c.Storage.Format)
	}
	switch c.Hardware.Platform {
	case PlatformPeriph, PlatformCharDev, PlatformNanoPi, PlatformMCP2221, PlatformSimulated:
	default:
		return fmt.Errorf("%w: unknown platform %q", ErrInvalid, c.Hardware.Platform)
	}
	if _, err := c.Hardware.OneWireROMs(); err != nil {
		return err
	}
	if e := c.Hardware.Expander; e != nil && e.Address > 0x7F {
		return fmt.Errorf("%w: expander address %#x", ErrInvalid, e.Address)
	}
	for _, d := range c.Registry.Defaults {
		mode, err := channel.ParseMode(d.Mode)
		if err != nil {
			return fmt.Errorf("%w: default channel %d: %w", ErrInvalid, d.Channel, err)
		}
		if !mode.IsFixed() {
			return fmt.Errorf("%w: default channel %d: mode %s is not a wired mode", ErrInvalid, d.Channel, mode)
		}
	}
	return nil
}

// OneWireROMs parses the onewire_devices section.
func (h Hardware) OneWireROMs() (map[int]uint64, error) {
	if len(h.OneWireDevices) == 0 {
		return nil, nil
	}
	roms := make(map[int]uint64, len(h.OneWireDevices))
	for pin, code := range h.OneWireDevices {
		rom, err := strconv.ParseUint(code, 0, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: one-wire device on pin %d: rom %q: %w", ErrInvalid, pin, code, err)
		}
		if rom == 0 {
			return nil, fmt.Errorf("%w: one-wire device on pin %d has an empty rom", ErrInvalid, pin)
		}
		roms[pin] = rom
	}
	return roms, nil
}

// RegistryOptions maps the registry section to registry options.
func (c Config) RegistryOptions() []registry.Option {
	return []registry.Option{registry.WithMaxFixedChannel(c.Registry.MaxFixedChannel)}
}

// Populate adds the default wired channels to reg.
func (r Registry) Populate(reg *registry.Registry) error {
	for _, d := range r.Defaults {
		mode, err := channel.ParseMode(d.Mode)
		if err != nil {
			return fmt.Errorf("default channel %d: %w", d.Channel, err)
		}
		active := d.Active == nil || *d.Active
		if err := reg.AddFixed(d.Channel, d.Pin, mode, active); err != nil {
			return err
		}
	}
	return nil
}
