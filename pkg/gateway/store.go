package gateway

import (
	"context"
	"sync"
)

// TokenStore is the persistent slot for the session token pair plus the
// pending-verification email hint. It models browser-local storage: one
// mutable session slot, one hint key, nothing else. No other subsystem may
// write these keys.
type TokenStore interface {
	// SetSession replaces the current session. Writing always supersedes
	// any prior session.
	SetSession(ctx context.Context, session *Session) error
	// GetSession returns the stored session or ErrNoSession.
	GetSession(ctx context.Context) (*Session, error)
	// ClearSession removes the stored session. Clearing an empty slot is
	// not an error.
	ClearSession(ctx context.Context) error

	// SetPendingVerification stores the email address awaiting
	// confirmation, so a later one-time-code step that carries only the
	// code can still resolve the address.
	SetPendingVerification(ctx context.Context, email string) error
	// PendingVerification returns the stored hint, or "" when none.
	PendingVerification(ctx context.Context) (string, error)
	// ClearPendingVerification removes the hint.
	ClearPendingVerification(ctx context.Context) error
}

// MemoryStore is the default in-process TokenStore.
type MemoryStore struct {
	mu      sync.RWMutex
	session *Session
	pending string
}

// NewMemoryStore creates an empty in-memory token store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (m *MemoryStore) SetSession(ctx context.Context, session *Session) error {
	if session == nil {
		return ErrNoSession
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	copied := *session
	m.session = &copied
	return nil
}

func (m *MemoryStore) GetSession(ctx context.Context) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.session == nil {
		return nil, ErrNoSession
	}

	copied := *m.session
	return &copied, nil
}

func (m *MemoryStore) ClearSession(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.session = nil
	return nil
}

func (m *MemoryStore) SetPendingVerification(ctx context.Context, email string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pending = email
	return nil
}

func (m *MemoryStore) PendingVerification(ctx context.Context) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.pending, nil
}

func (m *MemoryStore) ClearPendingVerification(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pending = ""
	return nil
}

// Compile-time interface assertion
var _ TokenStore = (*MemoryStore)(nil)
