package store

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrNotFound is returned when a lookup has no matching record.
	ErrNotFound = errors.New("not found")
	// ErrDuplicateContact is returned when a contact is already registered.
	ErrDuplicateContact = errors.New("contact already registered")
)

// Credential is a registered identity keyed by its unique contact (email).
type Credential struct {
	ID          string    `json:"id"`
	Contact     string    `json:"contact"`
	DisplayName string    `json:"display_name"`
	SecretHash  string    `json:"secret_hash"`
	CreatedAt   time.Time `json:"created_at"`
}

// CredentialStore handles registered identity persistence.
type CredentialStore interface {
	// CreateCredential inserts a new credential.
	// Returns ErrDuplicateContact if the contact is taken.
	CreateCredential(ctx context.Context, cred *Credential) error

	// GetCredentialByContact retrieves a credential by contact.
	// Returns ErrNotFound on miss.
	GetCredentialByContact(ctx context.Context, contact string) (*Credential, error)

	// UpdateDisplayName changes the stored display name for a contact.
	// Returns ErrNotFound if the contact is not registered.
	UpdateDisplayName(ctx context.Context, contact, displayName string) error
}

// RevocationStore tracks session tokens invalidated by logout.
type RevocationStore interface {
	// RevokeToken marks a token id as revoked until expiresAt.
	RevokeToken(ctx context.Context, tokenID string, expiresAt time.Time) error

	// IsTokenRevoked reports whether a token id has been revoked and not yet expired.
	IsTokenRevoked(ctx context.Context, tokenID string) (bool, error)
}

// Store aggregates all storage interfaces.
type Store interface {
	CredentialStore
	RevocationStore

	// Close releases the underlying connection.
	Close() error
}
