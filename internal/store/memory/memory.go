package memory

import (
	"context"
	"sync"
	"time"

	"github.com/vovakirdan/rapidchat-server/internal/store"
)

// Store is an in-process implementation of store.Store.
// Records live for the lifetime of the process.
type Store struct {
	mu          sync.RWMutex
	credentials map[string]store.Credential
	revoked     map[string]time.Time
	now         func() time.Time
}

var _ store.Store = (*Store)(nil)

// New creates an empty in-memory store.
func New() *Store {
	return &Store{
		credentials: make(map[string]store.Credential),
		revoked:     make(map[string]time.Time),
		now:         time.Now,
	}
}

// Close is a no-op.
func (s *Store) Close() error {
	return nil
}

// ==== CredentialStore implementation ====

// CreateCredential inserts a new credential keyed by contact.
func (s *Store) CreateCredential(_ context.Context, cred *store.Credential) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.credentials[cred.Contact]; exists {
		return store.ErrDuplicateContact
	}
	if cred.CreatedAt.IsZero() {
		cred.CreatedAt = s.now()
	}
	s.credentials[cred.Contact] = *cred
	return nil
}

// GetCredentialByContact returns a copy of the stored credential.
func (s *Store) GetCredentialByContact(_ context.Context, contact string) (*store.Credential, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	cred, ok := s.credentials[contact]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &cred, nil
}

// UpdateDisplayName changes the stored display name for a contact.
func (s *Store) UpdateDisplayName(_ context.Context, contact, displayName string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cred, ok := s.credentials[contact]
	if !ok {
		return store.ErrNotFound
	}
	cred.DisplayName = displayName
	s.credentials[contact] = cred
	return nil
}

// ==== RevocationStore implementation ====

// RevokeToken records a token id until its expiry and drops expired rows.
func (s *Store) RevokeToken(_ context.Context, tokenID string, expiresAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	for id, exp := range s.revoked {
		if !exp.After(now) {
			delete(s.revoked, id)
		}
	}
	if expiresAt.After(now) {
		s.revoked[tokenID] = expiresAt
	}
	return nil
}

// IsTokenRevoked reports whether the token id is revoked and unexpired.
func (s *Store) IsTokenRevoked(_ context.Context, tokenID string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	exp, ok := s.revoked[tokenID]
	if !ok {
		return false, nil
	}
	return exp.After(s.now()), nil
}
