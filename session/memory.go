package session

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

type memoryEntry struct {
	identity  string
	expiresAt time.Time
}

// MemoryStore is a mutex-guarded in-process store, suitable for tests and
// single-instance deployments without Redis.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	ttl     time.Duration
	now     func() time.Time
}

// NewMemoryStore creates an in-memory store. A non-positive ttl falls back
// to the default.
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	if ttl <= 0 {
		ttl = defaultTTL
	}
	return &MemoryStore{
		entries: map[string]memoryEntry{},
		ttl:     ttl,
		now:     time.Now,
	}
}

func (s *MemoryStore) Establish(_ context.Context, identity string) (string, error) {
	token := uuid.NewString()
	s.mu.Lock()
	s.entries[token] = memoryEntry{identity: identity, expiresAt: s.now().Add(s.ttl)}
	s.mu.Unlock()
	return token, nil
}

func (s *MemoryStore) Identity(_ context.Context, token string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.entries[token]
	if !ok {
		return "", ErrNotAuthenticated
	}
	if s.now().After(entry.expiresAt) {
		delete(s.entries, token)
		return "", ErrNotAuthenticated
	}
	return entry.identity, nil
}

func (s *MemoryStore) Terminate(_ context.Context, token string) error {
	s.mu.Lock()
	delete(s.entries, token)
	s.mu.Unlock()
	return nil
}
