// Package registry keeps the set of fixed and bus channels of a device and
// enforces channel number uniqueness across both.
//
// A Registry is safe for concurrent use. All accessors return copies so a
// channel removed after lookup never affects the caller's value.
package registry

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/mklimuk/sensorhub/channel"
)

// DefaultMaxFixedChannel is the highest channel number reserved for wired channels.
const DefaultMaxFixedChannel = 9

type Options struct {
	MaxFixedChannel int
	Logger          *slog.Logger
}

type Option func(*Options)

// WithMaxFixedChannel sets the threshold bus channel numbers must be above.
// A negative value disables the check.
func WithMaxFixedChannel(max int) Option {
	return func(o *Options) {
		o.MaxFixedChannel = max
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(o *Options) {
		o.Logger = logger
	}
}

type Registry struct {
	mx       sync.Mutex
	fixed    []channel.Fixed
	bus      busArena
	lastID   uint32
	maxFixed int
	log      *slog.Logger
}

func New(opts ...Option) *Registry {
	config := Options{
		MaxFixedChannel: DefaultMaxFixedChannel,
	}
	for _, opt := range opts {
		opt(&config)
	}
	if config.Logger == nil {
		config.Logger = slog.Default()
	}
	return &Registry{
		bus:      newBusArena(),
		maxFixed: config.MaxFixedChannel,
		log:      config.Logger,
	}
}

// MaxFixedChannel returns the configured wired channel threshold.
func (r *Registry) MaxFixedChannel() int {
	return r.maxFixed
}

func (r *Registry) findFixed(number int) int {
	for i := range r.fixed {
		if r.fixed[i].Channel == number {
			return i
		}
	}
	return -1
}

func (r *Registry) exists(number int) bool {
	return r.findFixed(number) >= 0 || r.bus.find(number) >= 0
}

// FindFixed looks up a wired channel.
func (r *Registry) FindFixed(number int) (channel.Fixed, bool) {
	r.mx.Lock()
	defer r.mx.Unlock()
	i := r.findFixed(number)
	if i < 0 {
		return channel.Fixed{}, false
	}
	return r.fixed[i], true
}

// FindBus looks up a bus channel by its channel number.
func (r *Registry) FindBus(number int) (channel.Bus, bool) {
	r.mx.Lock()
	defer r.mx.Unlock()
	i := r.bus.find(number)
	if i < 0 {
		return channel.Bus{}, false
	}
	return *r.bus.byIndex(i), true
}

// FindBusByID looks up a bus channel by the id assigned when it was added.
func (r *Registry) FindBusByID(id uint32) (channel.Bus, bool) {
	r.mx.Lock()
	defer r.mx.Unlock()
	return r.bus.lookupID(id)
}

func (r *Registry) Exists(number int) bool {
	r.mx.Lock()
	defer r.mx.Unlock()
	return r.exists(number)
}

// Channels enumerates all channels, fixed first, each group in registry order.
func (r *Registry) Channels() []channel.Info {
	r.mx.Lock()
	defer r.mx.Unlock()
	res := make([]channel.Info, 0, len(r.fixed)+r.bus.live)
	for _, f := range r.fixed {
		res = append(res, channel.Info{Channel: f.Channel, Mode: f.Mode, Active: f.Active})
	}
	r.bus.each(func(b *channel.Bus) {
		res = append(res, channel.Info{Channel: b.Channel, Mode: b.Kind, Active: b.Active})
	})
	return res
}

func (r *Registry) FixedChannels() []channel.Fixed {
	r.mx.Lock()
	defer r.mx.Unlock()
	res := make([]channel.Fixed, len(r.fixed))
	copy(res, r.fixed)
	return res
}

func (r *Registry) BusChannels() []channel.Bus {
	r.mx.Lock()
	defer r.mx.Unlock()
	return r.bus.list()
}

// AddFixed appends a wired channel. An existing number is reported as a
// duplicate whatever the other arguments are.
func (r *Registry) AddFixed(number, pin int, mode channel.Mode, active bool) error {
	r.mx.Lock()
	defer r.mx.Unlock()
	if r.exists(number) {
		return fmt.Errorf("could not add channel %d: %w", number, ErrDuplicateChannel)
	}
	if number < 0 {
		return fmt.Errorf("could not add channel %d: %w", number, ErrInvalidChannel)
	}
	if !mode.IsFixed() {
		return fmt.Errorf("could not add channel %d with mode %s: %w", number, mode, ErrInvalidMode)
	}
	r.fixed = append(r.fixed, channel.Fixed{Channel: number, Pin: pin, Mode: mode, Active: active})
	r.log.Debug("fixed channel added", "channel", number, "pin", pin, "mode", mode, "active", active)
	return nil
}

// AddBus attaches an I2C (addressOrCSPin is the 7-bit address) or SPI
// (addressOrCSPin is the chip-select pin) channel. The channel starts active.
// It returns the id assigned to this add event. Like AddFixed, an existing
// number is a duplicate before anything else is checked.
func (r *Registry) AddBus(number int, kind channel.Mode, addressOrCSPin int) (uint32, error) {
	r.mx.Lock()
	defer r.mx.Unlock()
	if r.exists(number) {
		return 0, fmt.Errorf("could not add bus channel %d: %w", number, ErrDuplicateChannel)
	}
	ch := channel.Bus{Channel: number, Kind: kind, Active: true}
	switch kind {
	case channel.I2C:
		if addressOrCSPin < 0 || addressOrCSPin > 0x7F {
			return 0, fmt.Errorf("could not add I2C channel %d at %#x: %w", number, addressOrCSPin, ErrInvalidAddress)
		}
		ch.Address = byte(addressOrCSPin)
	case channel.SPI:
		if addressOrCSPin < 0 {
			return 0, fmt.Errorf("could not add SPI channel %d on cs pin %d: %w", number, addressOrCSPin, ErrInvalidAddress)
		}
		ch.CSPin = addressOrCSPin
	default:
		return 0, fmt.Errorf("could not add bus channel %d of kind %s: %w", number, kind, ErrInvalidMode)
	}
	if number < 0 || (r.maxFixed >= 0 && number <= r.maxFixed) {
		return 0, fmt.Errorf("could not add bus channel %d (must be above %d): %w", number, r.maxFixed, ErrInvalidChannel)
	}
	r.lastID++
	ch.ID = r.lastID
	r.bus.insert(ch)
	r.log.Debug("bus channel added", "channel", number, "kind", kind, "id", ch.ID, "address", ch.Address, "cs", ch.CSPin)
	return ch.ID, nil
}

func (r *Registry) AddI2C(number int, address byte) (uint32, error) {
	return r.AddBus(number, channel.I2C, int(address))
}

func (r *Registry) AddSPI(number, csPin int) (uint32, error) {
	return r.AddBus(number, channel.SPI, csPin)
}

// Update replaces mode and active state of a wired channel.
func (r *Registry) Update(number int, mode channel.Mode, active bool) error {
	r.mx.Lock()
	defer r.mx.Unlock()
	i := r.findFixed(number)
	if i < 0 {
		if r.bus.find(number) >= 0 {
			return fmt.Errorf("could not update channel %d: %w", number, ErrWrongChannelKind)
		}
		return fmt.Errorf("could not update channel %d: %w", number, ErrChannelNotFound)
	}
	if !mode.IsFixed() {
		return fmt.Errorf("could not update channel %d to mode %s: %w", number, mode, ErrInvalidMode)
	}
	r.fixed[i].Mode = mode
	r.fixed[i].Active = active
	r.log.Debug("fixed channel updated", "channel", number, "mode", mode, "active", active)
	return nil
}

func (r *Registry) Enable(number int) error {
	return r.setActive(number, true)
}

func (r *Registry) Disable(number int) error {
	return r.setActive(number, false)
}

func (r *Registry) setActive(number int, active bool) error {
	r.mx.Lock()
	defer r.mx.Unlock()
	if i := r.findFixed(number); i >= 0 {
		r.fixed[i].Active = active
	} else if i = r.bus.find(number); i >= 0 {
		r.bus.byIndex(i).Active = active
	} else {
		return fmt.Errorf("could not set channel %d active=%t: %w", number, active, ErrChannelNotFound)
	}
	r.log.Debug("channel state changed", "channel", number, "active", active)
	return nil
}

// SetModeActive enables or disables every wired channel of the given mode and
// returns the channel numbers whose state actually changed.
func (r *Registry) SetModeActive(mode channel.Mode, active bool) []int {
	r.mx.Lock()
	defer r.mx.Unlock()
	var changed []int
	for i := range r.fixed {
		if r.fixed[i].Mode == mode && r.fixed[i].Active != active {
			r.fixed[i].Active = active
			changed = append(changed, r.fixed[i].Channel)
		}
	}
	if len(changed) > 0 {
		r.log.Debug("channels state changed", "mode", mode, "active", active, "channels", changed)
	}
	return changed
}

// RemoveBus detaches a bus channel. Wired channels cannot be removed.
func (r *Registry) RemoveBus(number int) error {
	r.mx.Lock()
	defer r.mx.Unlock()
	i := r.bus.find(number)
	if i < 0 {
		if r.findFixed(number) >= 0 {
			return fmt.Errorf("could not remove channel %d: %w", number, ErrWrongChannelKind)
		}
		return fmt.Errorf("could not remove channel %d: %w", number, ErrChannelNotFound)
	}
	id := r.bus.byIndex(i).ID
	r.bus.remove(i)
	r.log.Debug("bus channel removed", "channel", number, "id", id)
	return nil
}

func (r *Registry) ActiveCount() int {
	r.mx.Lock()
	defer r.mx.Unlock()
	count := 0
	for _, f := range r.fixed {
		if f.Active {
			count++
		}
	}
	r.bus.each(func(b *channel.Bus) {
		if b.Active {
			count++
		}
	})
	return count
}

// ActiveList returns active channel numbers: fixed channels first, then bus
// channels, each in registry order.
func (r *Registry) ActiveList() []int {
	r.mx.Lock()
	defer r.mx.Unlock()
	var res []int
	for _, f := range r.fixed {
		if f.Active {
			res = append(res, f.Channel)
		}
	}
	r.bus.each(func(b *channel.Bus) {
		if b.Active {
			res = append(res, b.Channel)
		}
	})
	return res
}

// Mode returns the mode of a channel or channel.None if it does not exist.
func (r *Registry) Mode(number int) channel.Mode {
	r.mx.Lock()
	defer r.mx.Unlock()
	if i := r.findFixed(number); i >= 0 {
		return r.fixed[i].Mode
	}
	if i := r.bus.find(number); i >= 0 {
		return r.bus.byIndex(i).Kind
	}
	return channel.None
}

// Pin returns the GPIO pin of a wired channel or the CS pin of an SPI channel.
func (r *Registry) Pin(number int) (int, bool) {
	r.mx.Lock()
	defer r.mx.Unlock()
	if i := r.findFixed(number); i >= 0 {
		return r.fixed[i].Pin, true
	}
	if i := r.bus.find(number); i >= 0 {
		return r.bus.byIndex(i).Pin()
	}
	return 0, false
}

func (r *Registry) I2CAddress(number int) (byte, bool) {
	r.mx.Lock()
	defer r.mx.Unlock()
	i := r.bus.find(number)
	if i < 0 {
		return 0, false
	}
	b := r.bus.byIndex(i)
	if b.Kind != channel.I2C {
		return 0, false
	}
	return b.Address, true
}

// Resolve returns a copy of what is needed to read the channel, looking at
// wired channels first.
func (r *Registry) Resolve(number int) (channel.Target, error) {
	r.mx.Lock()
	defer r.mx.Unlock()
	if i := r.findFixed(number); i >= 0 {
		return r.fixed[i].Target(), nil
	}
	if i := r.bus.find(number); i >= 0 {
		return r.bus.byIndex(i).Target(), nil
	}
	return channel.Target{}, fmt.Errorf("could not resolve channel %d: %w", number, ErrChannelNotFound)
}
