package store

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// FS lays service data out under one root directory: one subdirectory per
// area ("session", "uploads").
type FS struct{ Root string }

func New(root string) (*FS, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, err
	}
	return &FS{Root: root}, nil
}

func (s *FS) Dir(area string) string { return filepath.Join(s.Root, area) }

func (s *FS) Mk(area string) (string, error) {
	d := s.Dir(area)
	return d, os.MkdirAll(d, 0o755)
}

func (s *FS) path(area, name string) (string, error) {
	if name == "" || name != filepath.Base(name) || strings.HasPrefix(name, ".") {
		return "", fmt.Errorf("store: invalid name %q", name)
	}
	return filepath.Join(s.Dir(area), name), nil
}

// Write stores r under area/name, replacing any existing file atomically.
func (s *FS) Write(area, name string, r io.Reader) (int64, error) {
	p, err := s.path(area, name)
	if err != nil {
		return 0, err
	}
	dir, err := s.Mk(area)
	if err != nil {
		return 0, err
	}
	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return 0, err
	}
	n, err := io.Copy(tmp, r)
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(tmp.Name())
		return 0, err
	}
	if err := os.Rename(tmp.Name(), p); err != nil {
		os.Remove(tmp.Name())
		return 0, err
	}
	return n, nil
}

// Read returns the contents of area/name; ok is false if it does not exist.
func (s *FS) Read(area, name string) ([]byte, bool, error) {
	p, err := s.path(area, name)
	if err != nil {
		return nil, false, err
	}
	b, err := os.ReadFile(p)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return b, true, nil
}

// Remove deletes area/name. Removing a missing file is not an error.
func (s *FS) Remove(area, name string) error {
	p, err := s.path(area, name)
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}
