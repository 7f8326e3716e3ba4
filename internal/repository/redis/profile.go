package redis

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// ProfileStore keeps one profile in a Redis hash: one field per profile key,
// JSON-encoded values.
type ProfileStore struct {
	client *redis.Client
	key    string
}

// Get returns the requested fields, or the whole hash when no keys are given
func (s *ProfileStore) Get(ctx context.Context, keys ...string) (map[string]json.RawMessage, error) {
	out := make(map[string]json.RawMessage)

	if len(keys) == 0 {
		all, err := s.client.HGetAll(ctx, s.key).Result()
		if err != nil {
			return nil, fmt.Errorf("reading profile: %w", err)
		}
		for k, v := range all {
			out[k] = json.RawMessage(v)
		}
		return out, nil
	}

	vals, err := s.client.HMGet(ctx, s.key, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("reading profile fields: %w", err)
	}
	for i, v := range vals {
		str, ok := v.(string)
		if !ok {
			continue
		}
		out[keys[i]] = json.RawMessage(str)
	}
	return out, nil
}

// Set writes entries into the hash in one round trip
func (s *ProfileStore) Set(ctx context.Context, entries map[string]json.RawMessage) error {
	if len(entries) == 0 {
		return nil
	}

	values := make(map[string]any, len(entries))
	for k, v := range entries {
		values[k] = string(v)
	}
	if err := s.client.HSet(ctx, s.key, values).Err(); err != nil {
		return fmt.Errorf("writing profile: %w", err)
	}
	return nil
}

// Key returns the hash key backing this store
func (s *ProfileStore) Key() string {
	return s.key
}
