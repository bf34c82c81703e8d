// Package revocation remembers access tokens revoked by logout until they
// would have expired anyway.
package revocation

import (
	"context"
	"sync"
	"time"
)

// Store records revoked token ids (JWT jti).
type Store interface {
	Revoke(ctx context.Context, tokenID string, until time.Time) error
	IsRevoked(ctx context.Context, tokenID string) (bool, error)
}

// MemoryStore keeps revocations in process memory. Expired entries are
// dropped lazily.
type MemoryStore struct {
	mu      sync.Mutex
	revoked map[string]time.Time
	now     func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{revoked: map[string]time.Time{}, now: time.Now}
}

func (m *MemoryStore) Revoke(_ context.Context, tokenID string, until time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.revoked[tokenID] = until
	m.sweep()
	return nil
}

func (m *MemoryStore) IsRevoked(_ context.Context, tokenID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	until, ok := m.revoked[tokenID]
	if !ok {
		return false, nil
	}
	if !m.now().Before(until) {
		delete(m.revoked, tokenID)
		return false, nil
	}
	return true, nil
}

func (m *MemoryStore) sweep() {
	now := m.now()
	for id, until := range m.revoked {
		if !now.Before(until) {
			delete(m.revoked, id)
		}
	}
}
