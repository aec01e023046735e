package memory

import (
	"context"
	"sync"
	"time"
)

type entry struct {
	value     []byte
	expiresAt time.Time
}

// Store is an in-process TTL key/value store for development and tests.
// Expired entries are dropped on read.
type Store struct {
	mu      sync.RWMutex
	entries map[string]entry
	now     func() time.Time
}

func New() *Store {
	return &Store{
		entries: make(map[string]entry),
		now:     time.Now,
	}
}

// NewWithClock injects a time source for expiry tests.
func NewWithClock(now func() time.Time) *Store {
	s := New()
	s.now = now
	return s
}

func (s *Store) Get(_ context.Context, key string) ([]byte, bool, error) {
	s.mu.RLock()
	e, ok := s.entries[key]
	s.mu.RUnlock()
	if !ok {
		return nil, false, nil
	}
	if s.now().After(e.expiresAt) {
		s.expire(key)
		return nil, false, nil
	}
	return e.value, true, nil
}

// expire drops a key only if it is still expired. A SetWithTTL racing the
// read lock release may have refreshed the entry; that entry stays.
func (s *Store) expire(key string) {
	s.mu.Lock()
	if cur, ok := s.entries[key]; ok && s.now().After(cur.expiresAt) {
		delete(s.entries, key)
	}
	s.mu.Unlock()
}

func (s *Store) SetWithTTL(_ context.Context, key string, value []byte, ttl time.Duration) error {
	s.mu.Lock()
	s.entries[key] = entry{value: value, expiresAt: s.now().Add(ttl)}
	s.mu.Unlock()
	return nil
}
