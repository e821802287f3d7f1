package channel

import (
	"errors"
	"fmt"
	"strings"
)

var ErrUnknownMode = errors.New("unknown channel mode")

// Mode selects the read strategy of a channel.
type Mode uint8

const (
	// None means "no such channel". It is never stored in the registry.
	None Mode = iota
	Digital
	Analog
	OneWire
	SPI
	I2C
)

var modeNames = [...]string{
	None:    "NONE",
	Digital: "DIGITAL",
	Analog:  "ANALOG",
	OneWire: "ONEWIRE",
	SPI:     "SPI",
	I2C:     "I2C",
}

func (m Mode) String() string {
	if int(m) < len(modeNames) {
		return modeNames[m]
	}
	return fmt.Sprintf("MODE(%d)", uint8(m))
}

// IsFixed reports whether a wired channel may use the mode.
func (m Mode) IsFixed() bool {
	switch m {
	case Digital, Analog, OneWire, SPI:
		return true
	default:
		return false
	}
}

// IsBus reports whether a dynamically attached bus channel may be of this kind.
func (m Mode) IsBus() bool {
	return m == I2C || m == SPI
}

// ParseMode resolves a mode name, case-insensitively. "1-WIRE" and "1WIRE" are
// accepted as aliases of ONEWIRE.
func ParseMode(s string) (Mode, error) {
	name := strings.ToUpper(strings.TrimSpace(s))
	switch name {
	case "1-WIRE", "1WIRE", "ONE-WIRE":
		return OneWire, nil
	}
	for m, n := range modeNames {
		if n == name && Mode(m) != None {
			return Mode(m), nil
		}
	}
	return None, fmt.Errorf("%w: %q", ErrUnknownMode, s)
}
