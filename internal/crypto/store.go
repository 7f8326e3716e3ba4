package crypto

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
)

// sealedPrefix marks an encrypted entry. Entries without it are returned as
// stored, so a store can be switched to encryption without a migration.
const sealedPrefix = "enc:v1:"

// KV is the profile store being wrapped.
type KV interface {
	Get(ctx context.Context, keys ...string) (map[string]json.RawMessage, error)
	Set(ctx context.Context, entries map[string]json.RawMessage) error
}

// SealedStore encrypts the values of selected keys before they reach the
// wrapped store and decrypts them on the way out.
type SealedStore struct {
	next   KV
	key    []byte
	sealed map[string]bool
}

// NewSealedStore wraps next. Only the listed keys are encrypted.
func NewSealedStore(next KV, key []byte, keys ...string) (*SealedStore, error) {
	if len(key) != 32 {
		return nil, ErrInvalidKey
	}
	sealed := make(map[string]bool, len(keys))
	for _, k := range keys {
		sealed[k] = true
	}
	return &SealedStore{next: next, key: key, sealed: sealed}, nil
}

// Get implements KV.
func (s *SealedStore) Get(ctx context.Context, keys ...string) (map[string]json.RawMessage, error) {
	entries, err := s.next.Get(ctx, keys...)
	if err != nil {
		return nil, err
	}

	for k, v := range entries {
		if !s.sealed[k] {
			continue
		}
		plain, err := s.open(v)
		if err != nil {
			return nil, fmt.Errorf("decrypting %s: %w", k, err)
		}
		entries[k] = plain
	}
	return entries, nil
}

// Set implements KV.
func (s *SealedStore) Set(ctx context.Context, entries map[string]json.RawMessage) error {
	out := make(map[string]json.RawMessage, len(entries))
	for k, v := range entries {
		if !s.sealed[k] {
			out[k] = v
			continue
		}
		sealed, err := s.seal(v)
		if err != nil {
			return fmt.Errorf("encrypting %s: %w", k, err)
		}
		out[k] = sealed
	}
	return s.next.Set(ctx, out)
}

func (s *SealedStore) seal(v json.RawMessage) (json.RawMessage, error) {
	ciphertext, err := Encrypt(string(v), s.key)
	if err != nil {
		return nil, err
	}
	return json.Marshal(sealedPrefix + ciphertext)
}

func (s *SealedStore) open(v json.RawMessage) (json.RawMessage, error) {
	var str string
	if err := json.Unmarshal(v, &str); err != nil || !strings.HasPrefix(str, sealedPrefix) {
		return v, nil
	}
	plain, err := Decrypt(strings.TrimPrefix(str, sealedPrefix), s.key)
	if err != nil {
		return nil, err
	}
	return json.RawMessage(plain), nil
}
