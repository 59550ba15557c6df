package db

import (
	"context"
	"time"

	cache "github.com/patrickmn/go-cache"

	"prescription-chatbot/pkg"
)

// MemoryStore keeps sessions in process memory.  Each save restarts the
// session's TTL; idle sessions expire on their own.
type MemoryStore struct {
	cache *cache.Cache
}

// NewMemoryStore creates a store whose sessions expire after ttl without
// updates.  A ttl <= 0 keeps sessions until the process exits.
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	cleanup := ttl / 2
	if ttl <= 0 {
		ttl = cache.NoExpiration
		cleanup = 0
	}
	return &MemoryStore{cache: cache.New(ttl, cleanup)}
}

// Get returns a copy of the stored session.
func (m *MemoryStore) Get(_ context.Context, id string) (*pkg.Session, error) {
	v, ok := m.cache.Get(id)
	if !ok {
		return nil, pkg.ErrSessionNotFound
	}
	s := v.(pkg.Session)
	return &s, nil
}

// Save stores a copy of s, replacing any previous snapshot.
func (m *MemoryStore) Save(_ context.Context, s *pkg.Session) error {
	m.cache.Set(s.ID, *s, cache.DefaultExpiration)
	return nil
}

// Len returns the number of live sessions.
func (m *MemoryStore) Len() int { return m.cache.ItemCount() }
