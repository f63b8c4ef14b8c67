package objectstore

import (
	"context"
	"errors"
	"io"
	"sync"

	"github.com/trezcool/kazi/core"
)

var errStoreUnavailable = errors.New("object store unavailable")

// InMemStorage is a core.FileStorage for tests and local dev.
type InMemStorage struct {
	mutex   sync.RWMutex
	objects map[string][]byte

	// FailSaves makes Save fail; used to exercise the submit abort path.
	FailSaves bool
}

var _ core.FileStorage = (*InMemStorage)(nil)

func NewInMemStorage() *InMemStorage {
	return &InMemStorage{objects: make(map[string][]byte)}
}

func (s *InMemStorage) Save(ctx context.Context, path, contentType string, size int64, content io.Reader) (string, error) {
	if s.FailSaves {
		return "", errStoreUnavailable
	}
	data, err := io.ReadAll(content)
	if err != nil {
		return "", err
	}

	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.objects[path] = data
	return path, nil
}

func (s *InMemStorage) Remove(ctx context.Context, path string) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	delete(s.objects, path)
	return nil
}

// Has reports whether an object exists at path.
func (s *InMemStorage) Has(path string) bool {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	_, ok := s.objects[path]
	return ok
}

// Len returns the number of stored objects.
func (s *InMemStorage) Len() int {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return len(s.objects)
}
