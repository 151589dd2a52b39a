package memory

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/leafsii/leafsii-cms/pkg/kv"
)

// Store is an in-memory implementation of the kv.Store interface
type Store struct {
	mu          sync.RWMutex
	values      map[string][]byte
	expirations map[string]time.Time

	janitorInterval time.Duration
	janitorStop     chan struct{}
	janitorDone     chan struct{}
	closeOnce       sync.Once
}

// New creates a new in-memory store with optional janitor for TTL cleanup
func New(janitorInterval time.Duration) *Store {
	s := &Store{
		values:          make(map[string][]byte),
		expirations:     make(map[string]time.Time),
		janitorInterval: janitorInterval,
		janitorStop:     make(chan struct{}),
		janitorDone:     make(chan struct{}),
	}

	if janitorInterval > 0 {
		go s.janitor()
	} else {
		close(s.janitorDone)
	}

	return s
}

// janitor runs background expiration cleanup
func (s *Store) janitor() {
	defer close(s.janitorDone)
	ticker := time.NewTicker(s.janitorInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.evictExpired()
		case <-s.janitorStop:
			return
		}
	}
}

// evictExpired removes all expired keys
func (s *Store) evictExpired() {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	for key, expiry := range s.expirations {
		if now.After(expiry) {
			s.deleteKeyUnsafe(key)
		}
	}
}

// liveUnsafe reports whether key holds an unexpired value (must hold a lock)
func (s *Store) liveUnsafe(key string) bool {
	if _, exists := s.values[key]; !exists {
		return false
	}
	if expiry, ok := s.expirations[key]; ok && time.Now().After(expiry) {
		return false
	}
	return true
}

// setExpirationUnsafe sets TTL for a key (must hold write lock)
func (s *Store) setExpirationUnsafe(key string, ttl time.Duration) {
	if ttl > 0 {
		s.expirations[key] = time.Now().Add(ttl)
	} else {
		delete(s.expirations, key)
	}
}

// deleteKeyUnsafe removes a key and its TTL (must hold write lock)
func (s *Store) deleteKeyUnsafe(key string) {
	delete(s.values, key)
	delete(s.expirations, key)
}

// String operations

func (s *Store) Set(ctx context.Context, key string, value []byte, ttl ...time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored := make([]byte, len(value))
	copy(stored, value)
	s.values[key] = stored

	if len(ttl) > 0 && ttl[0] > 0 {
		s.setExpirationUnsafe(key, ttl[0])
	} else {
		delete(s.expirations, key)
	}

	return nil
}

func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.liveUnsafe(key) {
		return nil, kv.ErrNotFound
	}

	value := s.values[key]
	out := make([]byte, len(value))
	copy(out, value)
	return out, nil
}

func (s *Store) SetString(ctx context.Context, key string, value string, ttl ...time.Duration) error {
	return s.Set(ctx, key, []byte(value), ttl...)
}

func (s *Store) GetString(ctx context.Context, key string) (string, error) {
	data, err := s.Get(ctx, key)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// Key operations

func (s *Store) Del(ctx context.Context, keys ...string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var deleted int64
	for _, key := range keys {
		if s.liveUnsafe(key) {
			deleted++
		}
		s.deleteKeyUnsafe(key)
	}

	return deleted, nil
}

func (s *Store) Exists(ctx context.Context, keys ...string) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var exists int64
	for _, key := range keys {
		if s.liveUnsafe(key) {
			exists++
		}
	}

	return exists, nil
}

func (s *Store) Expire(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.liveUnsafe(key) {
		s.deleteKeyUnsafe(key)
		return false, nil
	}

	if ttl <= 0 {
		// Redis deletes a key given a non-positive TTL
		s.deleteKeyUnsafe(key)
		return true, nil
	}

	s.setExpirationUnsafe(key, ttl)
	return true, nil
}

func (s *Store) TTL(ctx context.Context, key string) (time.Duration, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.liveUnsafe(key) {
		return 0, kv.ErrNotFound
	}

	expiry, hasExpiry := s.expirations[key]
	if !hasExpiry {
		return -1, nil // Key exists but has no expiration
	}

	return time.Until(expiry), nil
}

// Counter operations

func (s *Store) IncrBy(ctx context.Context, key string, n int64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.liveUnsafe(key) {
		s.deleteKeyUnsafe(key)
	}

	var current int64
	if value, exists := s.values[key]; exists {
		parsed, err := strconv.ParseInt(string(value), 10, 64)
		if err != nil {
			return 0, err
		}
		current = parsed
	}

	newValue := current + n
	s.values[key] = []byte(strconv.FormatInt(newValue, 10))

	return newValue, nil
}

// Ping always succeeds for the in-memory store
func (s *Store) Ping(ctx context.Context) error {
	return nil
}

// Close stops the background janitor and drops all data
func (s *Store) Close() error {
	s.closeOnce.Do(func() {
		if s.janitorInterval > 0 {
			close(s.janitorStop)
			<-s.janitorDone
		}

		s.mu.Lock()
		defer s.mu.Unlock()
		s.values = make(map[string][]byte)
		s.expirations = make(map[string]time.Time)
	})
	return nil
}
