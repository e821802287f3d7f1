package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// FileBlob keeps the record in a single file. Writes go to a temporary file
// in the same directory which is then renamed over the target.
type FileBlob struct {
	Path string
}

func NewFileBlob(path string) *FileBlob {
	return &FileBlob{Path: path}
}

func (f *FileBlob) ReadBlob(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(f.Path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%s: %w", f.Path, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("%s is empty: %w", f.Path, ErrNotFound)
	}
	return data, nil
}

func (f *FileBlob) WriteBlob(ctx context.Context, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	dir := filepath.Dir(f.Path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("could not create %s: %w", dir, err)
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(f.Path)+".*")
	if err != nil {
		return fmt.Errorf("could not create temporary file: %w", err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("could not write %s: %w", tmp.Name(), err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("could not sync %s: %w", tmp.Name(), err)
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Rename(tmp.Name(), f.Path); err != nil {
		return fmt.Errorf("could not replace %s: %w", f.Path, err)
	}
	return nil
}

// MemoryBlob keeps the record in process memory.
type MemoryBlob struct {
	data []byte
}

func (m *MemoryBlob) ReadBlob(ctx context.Context) ([]byte, error) {
	if m.data == nil {
		return nil, ErrNotFound
	}
	return append([]byte(nil), m.data...), nil
}

func (m *MemoryBlob) WriteBlob(ctx context.Context, data []byte) error {
	m.data = append([]byte(nil), data...)
	return nil
}

// Bytes exposes the raw record.
func (m *MemoryBlob) Bytes() []byte {
	return m.data
}
