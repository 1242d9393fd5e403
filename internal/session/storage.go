package session

import (
	"bytes"
	"sync"

	"github.com/MalithGihan/flownodes/internal/store"
)

// Storage is durable key/value storage for session snapshots.
type Storage interface {
	Get(key string) ([]byte, bool, error)
	Set(key string, value []byte) error
	Delete(key string) error
}

type MemStorage struct {
	mu sync.Mutex
	m  map[string][]byte
}

func NewMemStorage() *MemStorage { return &MemStorage{m: map[string][]byte{}} }

func (s *MemStorage) Get(key string) ([]byte, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.m[key]
	return bytes.Clone(b), ok, nil
}

func (s *MemStorage) Set(key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.m[key] = bytes.Clone(value)
	return nil
}

func (s *MemStorage) Delete(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.m, key)
	return nil
}

// FileStorage keeps one JSON file per key under DATA_ROOT/session.
type FileStorage struct {
	fs *store.FS
}

const area = "session"

func NewFileStorage(fs *store.FS) (*FileStorage, error) {
	if _, err := fs.Mk(area); err != nil {
		return nil, err
	}
	return &FileStorage{fs: fs}, nil
}

func (s *FileStorage) Get(key string) ([]byte, bool, error) {
	return s.fs.Read(area, key+".json")
}

func (s *FileStorage) Set(key string, value []byte) error {
	_, err := s.fs.Write(area, key+".json", bytes.NewReader(value))
	return err
}

func (s *FileStorage) Delete(key string) error {
	return s.fs.Remove(area, key+".json")
}
