// Package store keeps the named collections of the service on a flat
// key-value substrate. Loads never fail: a missing or corrupt value is
// replaced by the collection's seed, and an unreachable substrate yields the
// seed without overwriting anything. Writes, including an Update whose read
// failed, report apperr.ErrStorageUnavailable.
package store

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/goccy/go-json"
	"go.uber.org/zap"

	"smartsender/internal/apperr"
	"smartsender/internal/metrics"
	"smartsender/internal/storage"
)

const KeyPrefix = "smartsender_"

// Fixed persistence keys, one per collection.
const (
	KeyToken         = KeyPrefix + "token"
	KeyStaff         = KeyPrefix + "staff"
	KeyFiles         = KeyPrefix + "files"
	KeyActivity      = KeyPrefix + "activity"
	KeyConversations = KeyPrefix + "conversations"
	KeyMessages      = KeyPrefix + "messages"
	KeyDepartments   = KeyPrefix + "departments"
	KeyCredentials   = KeyPrefix + "credentials"
)

type Store struct {
	kv      storage.KV
	log     *zap.Logger
	metrics *metrics.Metrics

	// locks holds one mutex per key; Update and seeding hold it.
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func New(kv storage.KV, log *zap.Logger, m *metrics.Metrics) *Store {
	if log == nil {
		log = zap.NewNop()
	}
	return &Store{kv: kv, log: log.Named("store"), metrics: m, locks: make(map[string]*sync.Mutex)}
}

// ErrCorrupt marks a stored value that cannot be decoded.
var ErrCorrupt = errors.New("store: value cannot be decoded")

// Read decodes the value under key into v. It returns storage.ErrNotFound
// for an absent key, ErrCorrupt for an undecodable value and
// apperr.ErrStorageUnavailable when the substrate fails.
func (s *Store) Read(ctx context.Context, key string, v any) error {
	raw, err := s.kv.Get(ctx, key)
	if errors.Is(err, storage.ErrNotFound) {
		return err
	}
	if err != nil {
		return fmt.Errorf("%w: %w", apperr.ErrStorageUnavailable, err)
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("%w: %w", ErrCorrupt, err)
	}
	return nil
}

// Get decodes the value under key into v. It reports false, after logging,
// when the key is absent or the value cannot be read.
func (s *Store) Get(ctx context.Context, key string, v any) bool {
	err := s.Read(ctx, key, v)
	switch {
	case err == nil:
		return true
	case errors.Is(err, storage.ErrNotFound):
	case errors.Is(err, ErrCorrupt):
		s.softFail(key, "decode", err)
	default:
		s.softFail(key, "read", err)
	}
	return false
}

func (s *Store) Set(ctx context.Context, key string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	if err := s.kv.Set(ctx, key, raw); err != nil {
		return fmt.Errorf("%w: %w", apperr.ErrStorageUnavailable, err)
	}
	return nil
}

func (s *Store) Remove(ctx context.Context, key string) error {
	if err := s.kv.Delete(ctx, key); err != nil {
		return fmt.Errorf("%w: %w", apperr.ErrStorageUnavailable, err)
	}
	return nil
}

// lock returns the mutex serialising writers of key.
func (s *Store) lock(key string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.locks[key]
	if !ok {
		m = &sync.Mutex{}
		s.locks[key] = m
	}
	return m
}

// Clear removes every key owned by the service and leaves foreign keys
// alone. It is not ordered against running Updates.
func (s *Store) Clear(ctx context.Context) error {
	if err := s.kv.DeletePrefix(ctx, KeyPrefix); err != nil {
		return fmt.Errorf("%w: %w", apperr.ErrStorageUnavailable, err)
	}
	return nil
}

func (s *Store) softFail(key, reason string, err error) {
	s.log.Warn("collection unreadable",
		zap.String("key", key),
		zap.String("reason", reason),
		zap.Error(err),
	)
	s.metrics.StoreSoftFailure(key, reason)
}
