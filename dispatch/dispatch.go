// Package dispatch routes a channel number to the hardware capability
// matching the channel's mode.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/mklimuk/sensorhub"
	"github.com/mklimuk/sensorhub/channel"
	"github.com/mklimuk/sensorhub/registry"
)

// Sentinel is returned by Read for a missing channel, an inactive channel and
// a failed hardware transaction alike. Use Measure to tell them apart.
const Sentinel = -1

var (
	ErrInactive = errors.New("channel inactive")
	ErrHardware = errors.New("hardware read failed")
)

type Reading struct {
	Channel int
	Mode    channel.Mode
	Value   float64
	At      time.Time
}

// Result is one entry of a batch read.
type Result struct {
	Reading
	Err error
}

type Options struct {
	Metrics *Metrics
	Logger  *slog.Logger
	Now     func() time.Time
}

type Option func(*Options)

func WithMetrics(m *Metrics) Option {
	return func(o *Options) {
		o.Metrics = m
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(o *Options) {
		o.Logger = logger
	}
}

// WithClock overrides the time source used to stamp readings.
func WithClock(now func() time.Time) Option {
	return func(o *Options) {
		o.Now = now
	}
}

type Dispatcher struct {
	registry *registry.Registry
	hw       sensorhub.Hardware
	metrics  *Metrics
	log      *slog.Logger
	now      func() time.Time
}

func New(reg *registry.Registry, hw sensorhub.Hardware, opts ...Option) *Dispatcher {
	config := Options{
		Now: time.Now,
	}
	for _, opt := range opts {
		opt(&config)
	}
	if config.Logger == nil {
		config.Logger = slog.Default()
	}
	return &Dispatcher{
		registry: reg,
		hw:       hw,
		metrics:  config.Metrics,
		log:      config.Logger,
		now:      config.Now,
	}
}

// Read returns the raw value of the channel or Sentinel.
func (d *Dispatcher) Read(ctx context.Context, number int) float64 {
	r, err := d.Measure(ctx, number)
	if err != nil {
		return Sentinel
	}
	return r.Value
}

// Measure reads the channel. Inactive channels are rejected with ErrInactive
// without any hardware access, unknown ones with registry.ErrChannelNotFound.
// Capability failures are wrapped in ErrHardware.
func (d *Dispatcher) Measure(ctx context.Context, number int) (Reading, error) {
	target, err := d.registry.Resolve(number)
	if err != nil {
		d.metrics.observe(channel.None, outcomeNotFound, 0)
		return Reading{Channel: number}, err
	}
	reading := Reading{Channel: number, Mode: target.Mode}
	if !target.Active {
		d.metrics.observe(target.Mode, outcomeInactive, 0)
		return reading, fmt.Errorf("could not read channel %d: %w", number, ErrInactive)
	}
	start := d.now()
	value, err := d.invoke(ctx, target)
	took := d.now().Sub(start)
	if err != nil {
		d.metrics.observe(target.Mode, outcomeHardware, took)
		d.log.Warn("channel read failed", "channel", number, "mode", target.Mode, "error", err)
		return reading, fmt.Errorf("could not read channel %d (%s): %w: %w", number, target.Mode, ErrHardware, err)
	}
	d.metrics.observe(target.Mode, outcomeOK, took)
	reading.Value = value
	reading.At = start
	d.log.Debug("channel read", "channel", number, "mode", target.Mode, "value", value, "took", took)
	return reading, nil
}

func (d *Dispatcher) invoke(ctx context.Context, target channel.Target) (float64, error) {
	switch target.Mode {
	case channel.Digital:
		v, err := d.hw.ReadDigital(ctx, target.Pin)
		return float64(v), err
	case channel.Analog:
		v, err := d.hw.ReadAnalog(ctx, target.Pin)
		return float64(v), err
	case channel.OneWire:
		return d.hw.ReadOneWire(ctx, target.Pin)
	case channel.SPI:
		return d.hw.ReadSPI(ctx, target.Pin)
	case channel.I2C:
		return d.hw.ReadI2C(ctx, target.Address)
	default:
		return 0, fmt.Errorf("no read strategy for mode %s", target.Mode)
	}
}

// ReadActive reads every active channel in registry order.
func (d *Dispatcher) ReadActive(ctx context.Context) []Result {
	active := d.registry.ActiveList()
	res := make([]Result, 0, len(active))
	for _, number := range active {
		if err := ctx.Err(); err != nil {
			res = append(res, Result{Reading: Reading{Channel: number, Mode: d.registry.Mode(number)}, Err: err})
			continue
		}
		r, err := d.Measure(ctx, number)
		res = append(res, Result{Reading: r, Err: err})
	}
	return res
}
