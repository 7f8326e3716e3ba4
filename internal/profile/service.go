// Package profile reads and writes the user's profile through a generic
// key-value store.
package profile

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/smartfill/smartfill/internal/domain"
	"github.com/smartfill/smartfill/internal/observability"
)

// KV is the profile store. Get with no keys returns every entry; missing
// keys are simply absent from the result. Set merges the given entries.
type KV interface {
	Get(ctx context.Context, keys ...string) (map[string]json.RawMessage, error)
	Set(ctx context.Context, entries map[string]json.RawMessage) error
}

// Service performs profile reads and read-modify-write updates.
type Service struct {
	kv      KV
	metrics *observability.Metrics
	logger  *zap.Logger

	// serializes read-modify-write cycles within this process
	mu sync.Mutex
}

// NewService creates a profile service over kv.
func NewService(kv KV, metrics *observability.Metrics, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		kv:      kv,
		metrics: metrics,
		logger:  logger,
	}
}

// Load reads the whole profile.
func (s *Service) Load(ctx context.Context) (*domain.Profile, error) {
	entries, err := s.kv.Get(ctx)
	s.metrics.RecordStoreOp("get", err)
	if err != nil {
		return nil, domain.ErrStore(err)
	}
	return domain.ProfileFromEntries(entries)
}

// SaveDetails normalizes, validates and stores the editable canonical fields.
// A blank Aadhaar keeps the stored one. Nothing is written when validation
// fails.
func (s *Service) SaveDetails(ctx context.Context, details domain.ProfileDetails) (*domain.Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, err := s.Load(ctx)
	if err != nil {
		return nil, err
	}

	details = details.Normalize(current.Aadhaar)
	if err := details.Validate(); err != nil {
		return nil, err
	}
	details.Apply(current)

	entries := make(map[string]json.RawMessage, len(domain.CanonicalKeys))
	for _, key := range domain.CanonicalKeys {
		raw, err := json.Marshal(current.Get(key))
		if err != nil {
			return nil, fmt.Errorf("encoding %s: %w", key, err)
		}
		entries[key] = raw
	}

	if err := s.set(ctx, entries); err != nil {
		return nil, err
	}
	return current, nil
}

// Learn stores one learned value. Canonical keys overwrite their slot; other
// keys are merged into customFields.
func (s *Service) Learn(ctx context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encoding value: %w", err)
	}

	if domain.IsCanonicalKey(key) {
		return s.set(ctx, map[string]json.RawMessage{key: raw})
	}

	entries, err := s.kv.Get(ctx, domain.KeyCustomFields)
	s.metrics.RecordStoreOp("get", err)
	if err != nil {
		return domain.ErrStore(err)
	}

	custom := make(map[string]string)
	if existing, ok := entries[domain.KeyCustomFields]; ok && len(existing) > 0 && string(existing) != "null" {
		if err := json.Unmarshal(existing, &custom); err != nil {
			return fmt.Errorf("decoding custom fields: %w", err)
		}
	}
	custom[key] = value

	encoded, err := json.Marshal(custom)
	if err != nil {
		return fmt.Errorf("encoding custom fields: %w", err)
	}
	return s.set(ctx, map[string]json.RawMessage{domain.KeyCustomFields: encoded})
}

// DemoProfile returns the stored demo financial profile document.
func (s *Service) DemoProfile(ctx context.Context) (json.RawMessage, error) {
	entries, err := s.kv.Get(ctx, domain.KeyDemoProfile)
	s.metrics.RecordStoreOp("get", err)
	if err != nil {
		return nil, domain.ErrStore(err)
	}

	doc, ok := entries[domain.KeyDemoProfile]
	if !ok || len(doc) == 0 || string(doc) == "null" {
		return nil, domain.NotFoundError("demo profile", domain.KeyDemoProfile)
	}
	return doc, nil
}

// LoadDemoProfile fetches the demo profile from src and stores it,
// replacing any existing copy.
func (s *Service) LoadDemoProfile(ctx context.Context, src Source) (json.RawMessage, error) {
	doc, err := fetchDocument(ctx, src)
	if err != nil {
		return nil, domain.ErrResourceLoad("profile.json", err)
	}
	if err := s.set(ctx, map[string]json.RawMessage{domain.KeyDemoProfile: doc}); err != nil {
		return nil, err
	}
	return doc, nil
}

// EnsureDemoProfile stores the demo profile from src unless one is present.
func (s *Service) EnsureDemoProfile(ctx context.Context, src Source) error {
	_, err := s.DemoProfile(ctx)
	if err == nil {
		return nil
	}
	if !errors.Is(err, domain.ErrNotFoundVal) {
		return err
	}

	s.logger.Info("Demo profile absent, loading bundled copy")
	_, err = s.LoadDemoProfile(ctx, src)
	return err
}

// Bootstrap prepares the profile at startup. A bundled-resource failure is
// logged and setup continues. A store failure is retried once after
// retryDelay; if that fails too an empty profile is returned.
func (s *Service) Bootstrap(ctx context.Context, src Source, retryDelay time.Duration) *domain.Profile {
	p, err := s.bootstrap(ctx, src)
	if err == nil {
		return p
	}

	s.logger.Warn("Profile store unavailable, retrying",
		zap.Duration("delay", retryDelay),
		zap.Error(err),
	)

	timer := time.NewTimer(retryDelay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return domain.NewProfile()
	case <-timer.C:
	}

	p, err = s.bootstrap(ctx, src)
	if err != nil {
		s.logger.Error("Profile store still unavailable, continuing with empty profile", zap.Error(err))
		return domain.NewProfile()
	}
	return p
}

func (s *Service) bootstrap(ctx context.Context, src Source) (*domain.Profile, error) {
	if src != nil {
		if err := s.EnsureDemoProfile(ctx, src); err != nil {
			if !errors.Is(err, &domain.AppError{Code: domain.ErrCodeResourceLoad}) {
				return nil, err
			}
			s.logger.Error("Failed to load demo profile", zap.Error(err))
		}
	}
	return s.Load(ctx)
}

func (s *Service) set(ctx context.Context, entries map[string]json.RawMessage) error {
	err := s.kv.Set(ctx, entries)
	s.metrics.RecordStoreOp("set", err)
	if err != nil {
		return domain.ErrStore(err)
	}
	return nil
}
