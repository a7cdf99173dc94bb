package blob

import (
	"sync"

	"openedgar/pkg/core/edgar"
)

// MemoryStore is an in-memory Store used by tests and dry runs.
type MemoryStore struct {
	mu      sync.Mutex
	objects map[string][]byte

	// PutCount counts physical writes, not no-op repeats. Tests use it
	// to verify dedup.
	PutCount int
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{objects: make(map[string][]byte)}
}

// Put stores data under key unless the key already exists.
func (s *MemoryStore) Put(key string, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.objects[key]; ok {
		return nil
	}
	cp := make([]byte, len(data))
	copy(cp, data)
	s.objects[key] = cp
	s.PutCount++
	return nil
}

// Get reads the object at key.
func (s *MemoryStore) Get(key string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok := s.objects[key]
	if !ok {
		return nil, &edgar.NotFoundError{Key: key}
	}
	cp := make([]byte, len(data))
	copy(cp, data)
	return cp, nil
}

// Exists reports whether key is present.
func (s *MemoryStore) Exists(key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.objects[key]
	return ok, nil
}

// Len returns the number of stored objects.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.objects)
}
