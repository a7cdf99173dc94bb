package blob

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"openedgar/pkg/core/edgar"
)

// FSStore is a filesystem-backed Store rooted at a directory. Keys map
// directly to relative paths. Writes go through a temp file plus rename
// so a crash never leaves a partial object under a content hash.
type FSStore struct {
	root string
	mu   sync.Mutex
}

// NewFSStore creates a filesystem store rooted at dir.
func NewFSStore(dir string) (*FSStore, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create blob root %s: %w", dir, err)
	}
	return &FSStore{root: dir}, nil
}

// Put writes data under key unless the key already exists.
func (s *FSStore) Put(key string, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	path := filepath.Join(s.root, filepath.FromSlash(key))
	if _, err := os.Stat(path); err == nil {
		// Content-addressed: same key means same bytes.
		return nil
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create blob dir: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".put-*")
	if err != nil {
		return fmt.Errorf("failed to create temp blob: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to write blob %s: %w", key, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to close blob %s: %w", key, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to commit blob %s: %w", key, err)
	}
	return nil
}

// Get reads the object at key.
func (s *FSStore) Get(key string) ([]byte, error) {
	path := filepath.Join(s.root, filepath.FromSlash(key))
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, &edgar.NotFoundError{Key: key}
		}
		return nil, fmt.Errorf("failed to read blob %s: %w", key, err)
	}
	return data, nil
}

// Exists reports whether key is present.
func (s *FSStore) Exists(key string) (bool, error) {
	path := filepath.Join(s.root, filepath.FromSlash(key))
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to stat blob %s: %w", key, err)
	}
	return true, nil
}
