package session

import (
	"context"
	"sort"
	"sync"
	"time"
)

// Store persists session records. Lookup misses return (nil, nil) rather than
// an error; only storage failures propagate.
type Store interface {
	Insert(ctx context.Context, s Session) error
	Update(ctx context.Context, s Session) error
	FindActiveByHash(ctx context.Context, hash string) (*Session, error)
	// ActiveByUser returns a user's active sessions, most recent activity first.
	ActiveByUser(ctx context.Context, userID string) ([]Session, error)
	// ExpiredActive returns still-active sessions whose expiry has passed.
	ExpiredActive(ctx context.Context, cutoff time.Time) ([]Session, error)
}

type memoryStore struct {
	mu       sync.RWMutex
	sessions map[string]Session
}

// NewInMemoryStore is used by tests and offline tooling.
func NewInMemoryStore() Store {
	return &memoryStore{sessions: map[string]Session{}}
}

func (m *memoryStore) Insert(_ context.Context, s Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[s.ID] = s
	return nil
}

func (m *memoryStore) Update(_ context.Context, s Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[s.ID] = s
	return nil
}

func (m *memoryStore) FindActiveByHash(_ context.Context, hash string) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, s := range m.sessions {
		if s.IsActive && s.RefreshTokenHash == hash {
			cp := s
			return &cp, nil
		}
	}
	return nil, nil
}

func (m *memoryStore) ActiveByUser(_ context.Context, userID string) ([]Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []Session
	for _, s := range m.sessions {
		if s.IsActive && s.UserID == userID {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].LastActivity.After(out[j].LastActivity) })
	return out, nil
}

func (m *memoryStore) ExpiredActive(_ context.Context, cutoff time.Time) ([]Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []Session
	for _, s := range m.sessions {
		if s.IsActive && s.ExpiresAt.Before(cutoff) {
			out = append(out, s)
		}
	}
	return out, nil
}
