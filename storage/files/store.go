package files

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
)

// Store reads dossier files out of durable storage rooted at one directory.
type Store struct {
	fs   afero.Fs
	root string
}

// NewStore serves paths relative to root on the OS filesystem.
func NewStore(root string) *Store {
	return NewStoreFs(afero.NewOsFs(), root)
}

// NewStoreFs is NewStore over an arbitrary afero filesystem.
func NewStoreFs(fsys afero.Fs, root string) *Store {
	return &Store{fs: afero.NewBasePathFs(fsys, root), root: root}
}

// Fs exposes the rooted filesystem.
func (s *Store) Fs() afero.Fs {
	return s.fs
}

func clean(path string) (string, error) {
	p := strings.TrimSpace(path)
	if p == "" {
		return "", fmt.Errorf("empty path")
	}
	return filepath.Clean("/" + p), nil
}

// Exists reports whether path names a regular file.
func (s *Store) Exists(_ context.Context, path string) (bool, error) {
	p, err := clean(path)
	if err != nil {
		return false, nil
	}
	info, err := s.fs.Stat(p)
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return !info.IsDir(), nil
}

func (s *Store) ReadFile(_ context.Context, path string) ([]byte, error) {
	p, err := clean(path)
	if err != nil {
		return nil, err
	}
	return afero.ReadFile(s.fs, p)
}

// WriteFile stores data at path, creating parent directories.
func (s *Store) WriteFile(_ context.Context, path string, data []byte) error {
	p, err := clean(path)
	if err != nil {
		return err
	}
	if err := s.fs.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return err
	}
	return afero.WriteFile(s.fs, p, data, 0o644)
}
