// Package securestore holds the session credential pair. It is read by every
// outgoing request and written only on login, signup, refresh and logout;
// writers always replace both slots together.
package securestore

import (
	"context"
	"sync"
)

type Store interface {
	// Tokens returns the current credential pair. Empty strings mean no
	// session is stored; that is not an error.
	Tokens(ctx context.Context) (access, refresh string, err error)
	SetTokens(ctx context.Context, access, refresh string) error
	Clear(ctx context.Context) error
}

// MemoryStore keeps credentials in process memory only.
type MemoryStore struct {
	mu      sync.RWMutex
	access  string
	refresh string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (m *MemoryStore) Tokens(context.Context) (string, string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.access, m.refresh, nil
}

func (m *MemoryStore) SetTokens(_ context.Context, access, refresh string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.access = access
	m.refresh = refresh
	return nil
}

func (m *MemoryStore) Clear(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.access = ""
	m.refresh = ""
	return nil
}
