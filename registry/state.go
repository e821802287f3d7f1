package registry

import (
	"fmt"

	"github.com/mklimuk/sensorhub/channel"
)

// State is a detached copy of the whole registry, used for persistence.
type State struct {
	Fixed []channel.Fixed
	Bus   []channel.Bus
	// LastID is the last bus id handed out.
	LastID uint32
}

func (r *Registry) State() State {
	r.mx.Lock()
	defer r.mx.Unlock()
	fixed := make([]channel.Fixed, len(r.fixed))
	copy(fixed, r.fixed)
	return State{
		Fixed:  fixed,
		Bus:    r.bus.list(),
		LastID: r.lastID,
	}
}

// Restore replaces the registry content with s. The id counter never moves
// backwards so ids handed out before stay unique.
func (r *Registry) Restore(s State) error {
	lastID, err := s.validate()
	if err != nil {
		return err
	}
	fixed := make([]channel.Fixed, len(s.Fixed))
	copy(fixed, s.Fixed)
	arena := newBusArena()
	for _, b := range s.Bus {
		arena.insert(b)
	}
	r.mx.Lock()
	defer r.mx.Unlock()
	r.fixed = fixed
	r.bus = arena
	if lastID > r.lastID {
		r.lastID = lastID
	}
	r.log.Debug("registry restored", "fixed", len(fixed), "bus", arena.live, "last_id", r.lastID)
	return nil
}

// Validate checks that s satisfies the registry invariants.
func (s State) Validate() error {
	_, err := s.validate()
	return err
}

// validate checks the registry invariants and returns the highest id in use.
func (s State) validate() (uint32, error) {
	seen := make(map[int]struct{}, len(s.Fixed)+len(s.Bus))
	for _, f := range s.Fixed {
		if _, dup := seen[f.Channel]; dup {
			return 0, fmt.Errorf("%w: channel %d: %w", ErrInvalidState, f.Channel, ErrDuplicateChannel)
		}
		seen[f.Channel] = struct{}{}
		if !f.Mode.IsFixed() {
			return 0, fmt.Errorf("%w: channel %d mode %s: %w", ErrInvalidState, f.Channel, f.Mode, ErrInvalidMode)
		}
	}
	lastID := s.LastID
	ids := make(map[uint32]struct{}, len(s.Bus))
	for _, b := range s.Bus {
		if _, dup := seen[b.Channel]; dup {
			return 0, fmt.Errorf("%w: channel %d: %w", ErrInvalidState, b.Channel, ErrDuplicateChannel)
		}
		seen[b.Channel] = struct{}{}
		if !b.Kind.IsBus() {
			return 0, fmt.Errorf("%w: channel %d kind %s: %w", ErrInvalidState, b.Channel, b.Kind, ErrInvalidMode)
		}
		if b.Kind == channel.I2C && b.Address > 0x7F {
			return 0, fmt.Errorf("%w: channel %d address %#x: %w", ErrInvalidState, b.Channel, b.Address, ErrInvalidAddress)
		}
		if b.ID == 0 {
			return 0, fmt.Errorf("%w: channel %d has no id", ErrInvalidState, b.Channel)
		}
		if _, dup := ids[b.ID]; dup {
			return 0, fmt.Errorf("%w: duplicate bus id %d", ErrInvalidState, b.ID)
		}
		ids[b.ID] = struct{}{}
		if b.ID > lastID {
			lastID = b.ID
		}
	}
	return lastID, nil
}
