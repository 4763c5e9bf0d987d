// Package memory keeps record files in-memory for development and tests.
package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/JakeFAU/podcast-digest/internal/podcast"
)

// Store is a map-backed podcast.Store. List returns names sorted, mirroring a directory listing.
type Store struct {
	mu   sync.RWMutex
	data map[string][]byte
}

var _ podcast.Store = (*Store)(nil)

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{data: make(map[string][]byte)}
}

// List returns the stored .json names.
func (s *Store) List(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	names := make([]string, 0, len(s.data))
	for name := range s.data {
		if strings.HasSuffix(name, ".json") {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names, nil
}

// Read returns a copy of the stored bytes.
func (s *Store) Read(_ context.Context, name string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	data, ok := s.data[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", podcast.ErrNotFound, name)
	}
	return append([]byte(nil), data...), nil
}

// Write stores a copy of data under name.
func (s *Store) Write(_ context.Context, name string, data []byte) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("record name is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[name] = append([]byte(nil), data...)
	return nil
}

// Create stores data only when name is unused.
func (s *Store) Create(_ context.Context, name string, data []byte) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("record name is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.data[name]; ok {
		return fmt.Errorf("%w: %s", podcast.ErrExists, name)
	}
	s.data[name] = append([]byte(nil), data...)
	return nil
}
