package storage

import (
	"fmt"
	"time"

	"github.com/mklimuk/sensorhub/channel"
	"github.com/mklimuk/sensorhub/registry"
)

const documentVersion = 1

type document struct {
	Version  int           `yaml:"version" cbor:"1,keyasint"`
	Revision string        `yaml:"revision" cbor:"2,keyasint"`
	SavedAt  time.Time     `yaml:"saved_at" cbor:"3,keyasint"`
	LastID   uint32        `yaml:"last_id" cbor:"4,keyasint"`
	Fixed    []fixedRecord `yaml:"fixed" cbor:"5,keyasint"`
	Bus      []busRecord   `yaml:"bus" cbor:"6,keyasint"`
}

type fixedRecord struct {
	Channel int    `yaml:"channel" cbor:"1,keyasint"`
	Pin     int    `yaml:"pin" cbor:"2,keyasint"`
	Mode    string `yaml:"mode" cbor:"3,keyasint"`
	Active  bool   `yaml:"active" cbor:"4,keyasint"`
}

type busRecord struct {
	Channel int    `yaml:"channel" cbor:"1,keyasint"`
	ID      uint32 `yaml:"id" cbor:"2,keyasint"`
	Kind    string `yaml:"kind" cbor:"3,keyasint"`
	Address byte   `yaml:"address,omitempty" cbor:"4,keyasint,omitempty"`
	CSPin   int    `yaml:"cs_pin,omitempty" cbor:"5,keyasint,omitempty"`
	Active  bool   `yaml:"active" cbor:"6,keyasint"`
}

func newDocument(s registry.State) document {
	doc := document{
		Version: documentVersion,
		LastID:  s.LastID,
		Fixed:   make([]fixedRecord, 0, len(s.Fixed)),
		Bus:     make([]busRecord, 0, len(s.Bus)),
	}
	for _, f := range s.Fixed {
		doc.Fixed = append(doc.Fixed, fixedRecord{Channel: f.Channel, Pin: f.Pin, Mode: f.Mode.String(), Active: f.Active})
	}
	for _, b := range s.Bus {
		doc.Bus = append(doc.Bus, busRecord{Channel: b.Channel, ID: b.ID, Kind: b.Kind.String(), Address: b.Address, CSPin: b.CSPin, Active: b.Active})
	}
	return doc
}

func (doc document) state() (registry.State, error) {
	if doc.Version < 1 || doc.Version > documentVersion {
		return registry.State{}, fmt.Errorf("unsupported document version %d", doc.Version)
	}
	s := registry.State{LastID: doc.LastID}
	for _, f := range doc.Fixed {
		mode, err := channel.ParseMode(f.Mode)
		if err != nil {
			return registry.State{}, fmt.Errorf("fixed channel %d: %w", f.Channel, err)
		}
		s.Fixed = append(s.Fixed, channel.Fixed{Channel: f.Channel, Pin: f.Pin, Mode: mode, Active: f.Active})
	}
	for _, b := range doc.Bus {
		kind, err := channel.ParseMode(b.Kind)
		if err != nil {
			return registry.State{}, fmt.Errorf("bus channel %d: %w", b.Channel, err)
		}
		s.Bus = append(s.Bus, channel.Bus{Channel: b.Channel, ID: b.ID, Kind: kind, Address: b.Address, CSPin: b.CSPin, Active: b.Active})
	}
	if err := s.Validate(); err != nil {
		return registry.State{}, err
	}
	return s, nil
}
