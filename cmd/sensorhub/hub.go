package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/urfave/cli/v2"
	"gobot.io/x/gobot/v2/drivers/spi"
	"gobot.io/x/gobot/v2/platforms/friendlyelec/nanopi"

	"github.com/mklimuk/sensorhub/cmd/sensorhub/console"
	"github.com/mklimuk/sensorhub/config"
	"github.com/mklimuk/sensorhub/memory/eeprom"
	"github.com/mklimuk/sensorhub/registry"
	"github.com/mklimuk/sensorhub/storage"
)

// hub bundles what every command works on: configuration, the registry and
// the store it is persisted to.
type hub struct {
	cfg     config.Config
	reg     *registry.Registry
	store   *storage.Store
	closers []io.Closer
}

type closerFunc func() error

func (f closerFunc) Close() error { return f() }

func loadConfig(c *cli.Context) (config.Config, error) {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return cfg, fail("could not load config", err)
	}
	if path := c.String("store"); path != "" {
		cfg.Storage.Backend = config.BackendFile
		cfg.Storage.Path = path
	}
	if platform := c.String("platform"); platform != "" {
		cfg.Hardware.Platform = platform
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fail("invalid settings", err)
	}
	return cfg, nil
}

// openStore builds the configured persistence backend. EEPROM records are
// CBOR encoded unless a format is set explicitly.
func openStore(cfg config.Storage) (*storage.Store, io.Closer, error) {
	format := cfg.Format
	if format == "" && cfg.Backend == config.BackendEEPROM {
		format = storage.CBOR.Name()
	}
	codec, err := storage.CodecByName(format)
	if err != nil {
		return nil, nil, err
	}
	var blob storage.Blob
	var closer io.Closer = closerFunc(func() error { return nil })
	switch cfg.Backend {
	case config.BackendFile:
		blob = storage.NewFileBlob(cfg.Path)
	case config.BackendMemory:
		blob = &storage.MemoryBlob{}
	case config.BackendEEPROM:
		bus, err := eeprom.NewGobotBus(nanopi.NewNeoAdaptor(),
			spi.WithBusNumber(cfg.EEPROM.Bus), spi.WithChipNumber(cfg.EEPROM.Chip))
		if err != nil {
			return nil, nil, fmt.Errorf("%w: %w", storage.ErrUnavailable, err)
		}
		blob = storage.NewEEPROMBlob(eeprom.New(bus), cfg.EEPROM.Offset, cfg.EEPROM.Size)
		closer = closerFunc(bus.Halt)
	default:
		return nil, nil, fmt.Errorf("%w: unknown storage backend %q", config.ErrInvalid, cfg.Backend)
	}
	return storage.New(blob, storage.WithCodec(codec), storage.WithLogger(slog.Default())), closer, nil
}

// openHub loads the registry. On first run the configured default channels
// are created and saved.
func openHub(c *cli.Context) (*hub, error) {
	cfg, err := loadConfig(c)
	if err != nil {
		return nil, err
	}
	return newHub(c.Context, cfg, true)
}

func newHub(ctx context.Context, cfg config.Config, load bool) (*hub, error) {
	store, closer, err := openStore(cfg.Storage)
	if err != nil {
		return nil, fail("could not open storage", err)
	}
	h := &hub{
		cfg:     cfg,
		reg:     registry.New(append(cfg.RegistryOptions(), registry.WithLogger(slog.Default()))...),
		store:   store,
		closers: []io.Closer{closer},
	}
	if !load {
		return h, nil
	}
	err = store.LoadInto(ctx, h.reg)
	switch {
	case err == nil:
		slog.Debug("registry loaded", "revision", store.Revision(), "channels", len(h.reg.Channels()))
	case errors.Is(err, storage.ErrNotFound):
		console.Infof("creating new configuration")
		if err := h.reset(ctx); err != nil {
			_ = h.Close()
			return nil, err
		}
	default:
		_ = h.Close()
		return nil, fail("could not load channels (run 'channels reset' to start over)", err)
	}
	return h, nil
}

// reset replaces the registry content with the configured defaults and saves
// it. The bus id counter carries over from the current and the stored
// registry so ids handed out before stay unique.
func (h *hub) reset(ctx context.Context) error {
	lastID := h.reg.State().LastID
	if stored, err := h.store.Load(ctx); err == nil {
		lastID = max(lastID, stored.LastID)
		for _, b := range stored.Bus {
			lastID = max(lastID, b.ID)
		}
	}
	h.reg = registry.New(append(h.cfg.RegistryOptions(), registry.WithLogger(slog.Default()))...)
	if err := h.reg.Restore(registry.State{LastID: lastID}); err != nil {
		return fail("could not reset channels", err)
	}
	if err := h.cfg.Registry.Populate(h.reg); err != nil {
		return fail("could not create default channels", err)
	}
	return h.save(ctx)
}

func (h *hub) save(ctx context.Context) error {
	if err := h.store.SaveRegistry(ctx, h.reg); err != nil {
		return fail("could not save channels", err)
	}
	return nil
}

func (h *hub) Close() error {
	var errs []error
	for i := len(h.closers) - 1; i >= 0; i-- {
		errs = append(errs, h.closers[i].Close())
	}
	h.closers = nil
	return errors.Join(errs...)
}
