// Package channel holds the value types describing sensor channels: wired
// (fixed) channels with a static pin assignment and hot-pluggable bus channels.
package channel

// Fixed is a statically wired sensor. Several channels may share a pin
// (e.g. sensors on one multiplexed one-wire bus).
type Fixed struct {
	Channel int
	Pin     int
	Mode    Mode
	Active  bool
}

// Bus is a dynamically attached I2C or SPI device.
type Bus struct {
	Channel int
	// ID identifies the add event; it is never reused, even after removal.
	ID      uint32
	Kind    Mode
	Address byte
	CSPin   int
	Active  bool
}

// Pin returns the chip-select pin of an SPI channel.
func (b Bus) Pin() (int, bool) {
	if b.Kind != SPI {
		return 0, false
	}
	return b.CSPin, true
}

// Info is one entry of a full enumeration.
type Info struct {
	Channel int
	Mode    Mode
	Active  bool
}

// Target is a resolved copy of a channel carrying what a read needs.
type Target struct {
	Channel int
	Mode    Mode
	// Pin is the GPIO pin of a fixed channel or the CS pin of an SPI bus channel.
	Pin     int
	Address byte
	Active  bool
	Bus     bool
}

func (f Fixed) Target() Target {
	return Target{Channel: f.Channel, Mode: f.Mode, Pin: f.Pin, Active: f.Active}
}

func (b Bus) Target() Target {
	return Target{Channel: b.Channel, Mode: b.Kind, Pin: b.CSPin, Address: b.Address, Active: b.Active, Bus: true}
}
