package audit

import (
	"context"
	"encoding/json"
	"sort"

	"github.com/go-chi/chi/v5/middleware"
)

// KV is the profile store being recorded.
type KV interface {
	Get(ctx context.Context, keys ...string) (map[string]json.RawMessage, error)
	Set(ctx context.Context, entries map[string]json.RawMessage) error
}

// Recorder accepts audit entries.
type Recorder interface {
	Log(ctx context.Context, entry *Entry)
}

// Store records every successful write to the wrapped store.
type Store struct {
	next      KV
	recorder  Recorder
	profileID string
}

// NewStore wraps next so that writes are recorded against profileID.
func NewStore(next KV, recorder Recorder, profileID string) *Store {
	return &Store{next: next, recorder: recorder, profileID: profileID}
}

// Get implements KV.
func (s *Store) Get(ctx context.Context, keys ...string) (map[string]json.RawMessage, error) {
	return s.next.Get(ctx, keys...)
}

// Set implements KV.
func (s *Store) Set(ctx context.Context, entries map[string]json.RawMessage) error {
	if err := s.next.Set(ctx, entries); err != nil {
		return err
	}
	if len(entries) == 0 {
		return nil
	}

	keys := make([]string, 0, len(entries))
	for k := range entries {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	entry := &Entry{
		ProfileID: s.profileID,
		Action:    ActionProfileSet,
		Keys:      keys,
	}
	if id := middleware.GetReqID(ctx); id != "" {
		entry.RequestID = &id
	}
	s.recorder.Log(ctx, entry)
	return nil
}
