// Package storage persists the channel registry between restarts.
//
// A Store pairs a Blob backend (file, EEPROM or memory) with a Codec. Load
// never returns a partially decoded registry: a blob is either restored in
// full or reported as corrupt.
package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/mklimuk/sensorhub/registry"
)

var (
	// ErrNotFound means nothing was saved yet.
	ErrNotFound = errors.New("no stored registry")
	// ErrCorrupt means the stored bytes cannot be turned into a valid registry.
	ErrCorrupt = errors.New("stored registry is corrupt")
	// ErrUnavailable means the backend itself failed.
	ErrUnavailable = errors.New("storage unavailable")
)

// Blob is a single opaque record. ReadBlob returns ErrNotFound when nothing
// was written yet.
type Blob interface {
	ReadBlob(ctx context.Context) ([]byte, error)
	WriteBlob(ctx context.Context, data []byte) error
}

type Options struct {
	Codec  Codec
	Logger *slog.Logger
	Now    func() time.Time
}

type Option func(*Options)

func WithCodec(codec Codec) Option {
	return func(o *Options) {
		o.Codec = codec
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(o *Options) {
		o.Logger = logger
	}
}

func WithClock(now func() time.Time) Option {
	return func(o *Options) {
		o.Now = now
	}
}

type Store struct {
	mx       sync.Mutex
	blob     Blob
	codec    Codec
	log      *slog.Logger
	now      func() time.Time
	revision string
}

// New creates a store on top of blob. YAML is used unless another codec is given.
func New(blob Blob, opts ...Option) *Store {
	config := Options{
		Codec: YAML,
		Now:   time.Now,
	}
	for _, opt := range opts {
		opt(&config)
	}
	if config.Logger == nil {
		config.Logger = slog.Default()
	}
	return &Store{
		blob:  blob,
		codec: config.Codec,
		log:   config.Logger,
		now:   config.Now,
	}
}

// Revision is the id written by the last Save or read by the last Load.
func (s *Store) Revision() string {
	s.mx.Lock()
	defer s.mx.Unlock()
	return s.revision
}

// Load reads and validates the stored registry state.
func (s *Store) Load(ctx context.Context) (registry.State, error) {
	s.mx.Lock()
	defer s.mx.Unlock()
	data, err := s.blob.ReadBlob(ctx)
	if err != nil {
		if errors.Is(err, ErrNotFound) || errors.Is(err, ErrCorrupt) {
			return registry.State{}, err
		}
		return registry.State{}, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	var doc document
	if err := s.codec.Unmarshal(data, &doc); err != nil {
		return registry.State{}, fmt.Errorf("%w: could not decode %s document: %w", ErrCorrupt, s.codec.Name(), err)
	}
	state, err := doc.state()
	if err != nil {
		return registry.State{}, fmt.Errorf("%w: %w", ErrCorrupt, err)
	}
	s.revision = doc.Revision
	s.log.Debug("registry loaded", "revision", doc.Revision, "saved_at", doc.SavedAt, "fixed", len(state.Fixed), "bus", len(state.Bus))
	return state, nil
}

// LoadInto restores the stored state into reg. reg is left untouched on error.
func (s *Store) LoadInto(ctx context.Context, reg *registry.Registry) error {
	state, err := s.Load(ctx)
	if err != nil {
		return err
	}
	if err := reg.Restore(state); err != nil {
		return fmt.Errorf("%w: %w", ErrCorrupt, err)
	}
	return nil
}

// Save writes state under a fresh revision id.
func (s *Store) Save(ctx context.Context, state registry.State) error {
	s.mx.Lock()
	defer s.mx.Unlock()
	doc := newDocument(state)
	doc.Revision = uuid.NewString()
	doc.SavedAt = s.now().UTC()
	data, err := s.codec.Marshal(doc)
	if err != nil {
		return fmt.Errorf("could not encode %s document: %w", s.codec.Name(), err)
	}
	if err := s.blob.WriteBlob(ctx, data); err != nil {
		if errors.Is(err, ErrUnavailable) {
			return err
		}
		return fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	s.revision = doc.Revision
	s.log.Debug("registry saved", "revision", doc.Revision, "bytes", len(data))
	return nil
}

// SaveRegistry is a shortcut for Save(ctx, reg.State()).
func (s *Store) SaveRegistry(ctx context.Context, reg *registry.Registry) error {
	return s.Save(ctx, reg.State())
}
