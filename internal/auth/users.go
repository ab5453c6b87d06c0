package auth

import (
	"context"
	"sync"
	"time"
)

type User struct {
	ID           string     `json:"id"`
	Name         string     `json:"name"`
	Email        string     `json:"email"`
	PasswordHash string     `json:"-"`
	IsActive     bool       `json:"is_active"`
	LoginOTP     string     `json:"-"`
	LoginOTPExp  *time.Time `json:"-"`
	LastLogin    *time.Time `json:"last_login,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
}

// UserStore persists accounts. Lookup misses return (nil, nil).
type UserStore interface {
	Insert(ctx context.Context, u User) error
	Update(ctx context.Context, u User) error
	FindByEmail(ctx context.Context, email string) (*User, error)
}

type memoryUserStore struct {
	mu    sync.RWMutex
	users map[string]User // keyed by email
}

func NewInMemoryUserStore() UserStore {
	return &memoryUserStore{users: map[string]User{}}
}

func (m *memoryUserStore) Insert(_ context.Context, u User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users[u.Email] = u
	return nil
}

func (m *memoryUserStore) Update(_ context.Context, u User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users[u.Email] = u
	return nil
}

func (m *memoryUserStore) FindByEmail(_ context.Context, email string) (*User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	u, ok := m.users[email]
	if !ok {
		return nil, nil
	}
	cp := u
	return &cp, nil
}
