// Package memory provides an in-process profile store.
package memory

import (
	"context"
	"encoding/json"
	"sync"
)

// Store keeps profile entries in a map.
type Store struct {
	mu      sync.RWMutex
	entries map[string]json.RawMessage
}

// New creates an empty store.
func New() *Store {
	return &Store{entries: make(map[string]json.RawMessage)}
}

// Get returns copies of the requested entries, or all entries when no keys
// are given.
func (s *Store) Get(_ context.Context, keys ...string) (map[string]json.RawMessage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string]json.RawMessage)
	if len(keys) == 0 {
		for k, v := range s.entries {
			out[k] = clone(v)
		}
		return out, nil
	}
	for _, k := range keys {
		if v, ok := s.entries[k]; ok {
			out[k] = clone(v)
		}
	}
	return out, nil
}

// Set merges entries into the store.
func (s *Store) Set(_ context.Context, entries map[string]json.RawMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for k, v := range entries {
		s.entries[k] = clone(v)
	}
	return nil
}

// Health always succeeds.
func (s *Store) Health(context.Context) error {
	return nil
}

func clone(v json.RawMessage) json.RawMessage {
	if v == nil {
		return nil
	}
	out := make(json.RawMessage, len(v))
	copy(out, v)
	return out
}
