package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/vovakirdan/rapidchat-server/internal/core"
	"github.com/vovakirdan/rapidchat-server/internal/metrics"
	"github.com/vovakirdan/rapidchat-server/internal/store"
)

var (
	// ErrInvalidCredentials is returned when contact/secret don't match.
	// Unknown contacts and wrong secrets are reported identically.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrMissingFields is returned when a registration field is empty.
	ErrMissingFields = errors.New("email, password, and name are required")
	// ErrInvalidToken is returned for malformed, forged, expired, or revoked tokens.
	ErrInvalidToken = core.ErrInvalidToken
)

// Service provides registration, login, and session token operations.
type Service struct {
	store     store.Store
	jwtConfig *JWTConfig
	now       func() time.Time
}

var (
	_ core.TokenResolver  = (*Service)(nil)
	_ core.ProfileUpdater = (*Service)(nil)
)

// NewService creates a new authentication service.
func NewService(st store.Store, jwtConfig *JWTConfig) *Service {
	return &Service{
		store:     st,
		jwtConfig: jwtConfig,
		now:       time.Now,
	}
}

// Register creates a credential with a hashed secret.
func (s *Service) Register(ctx context.Context, contact, secret, displayName string) (*store.Credential, error) {
	contact = strings.TrimSpace(contact)
	displayName = strings.TrimSpace(displayName)
	if contact == "" || secret == "" || displayName == "" {
		return nil, ErrMissingFields
	}

	hash, err := HashSecret(secret)
	if err != nil {
		return nil, fmt.Errorf("register %s: %w", contact, err)
	}

	cred := &store.Credential{
		ID:          uuid.NewString(),
		Contact:     contact,
		DisplayName: displayName,
		SecretHash:  hash,
		CreatedAt:   s.now(),
	}
	if err := s.store.CreateCredential(ctx, cred); err != nil {
		return nil, fmt.Errorf("create credential: %w", err)
	}
	return cred, nil
}

// Login validates credentials and returns a fresh session token with the
// credential it was issued for.
func (s *Service) Login(ctx context.Context, contact, secret string) (string, *store.Credential, error) {
	contact = strings.TrimSpace(contact)

	cred, err := s.store.GetCredentialByContact(ctx, contact)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			return "", nil, fmt.Errorf("get credential: %w", err)
		}
		burnCompare(secret)
		metrics.AuthAttemptsTotal.WithLabelValues("rest", metrics.ResultFailure).Inc()
		return "", nil, ErrInvalidCredentials
	}

	if errCmp := CompareSecret(cred.SecretHash, secret); errCmp != nil {
		metrics.AuthAttemptsTotal.WithLabelValues("rest", metrics.ResultFailure).Inc()
		return "", nil, ErrInvalidCredentials
	}

	token, err := GenerateToken(s.jwtConfig, cred.ID, cred.DisplayName, cred.Contact, s.now())
	if err != nil {
		return "", nil, fmt.Errorf("generate token: %w", err)
	}
	metrics.AuthAttemptsTotal.WithLabelValues("rest", metrics.ResultSuccess).Inc()
	return token, cred, nil
}

// Resolve maps a session token to the identity it was issued for.
// The display name is refreshed from the store when the credential still exists.
func (s *Service) Resolve(ctx context.Context, token string) (core.Identity, error) {
	claims, err := s.claims(ctx, token)
	if err != nil {
		return core.Identity{}, err
	}

	identity := core.Identity{
		ID:          claims.IdentityID,
		DisplayName: claims.DisplayName,
		Contact:     claims.Contact,
	}
	if cred, err := s.store.GetCredentialByContact(ctx, claims.Contact); err == nil && cred.ID == claims.IdentityID {
		identity.DisplayName = cred.DisplayName
	}
	return identity, nil
}

// Profile returns the current display name for a valid token.
func (s *Service) Profile(ctx context.Context, token string) (string, error) {
	identity, err := s.Resolve(ctx, token)
	if err != nil {
		return "", err
	}
	return identity.DisplayName, nil
}

// Logout revokes the token until it would have expired.
// Tokens that are already invalid are ignored.
func (s *Service) Logout(ctx context.Context, token string) error {
	claims, err := ValidateToken(s.jwtConfig, token)
	if err != nil {
		return nil
	}

	expiresAt := s.now().Add(s.jwtConfig.TTL)
	if claims.ExpiresAt != nil {
		expiresAt = claims.ExpiresAt.Time
	}
	if err := s.store.RevokeToken(ctx, claims.ID, expiresAt); err != nil {
		return fmt.Errorf("revoke token: %w", err)
	}
	return nil
}

// UpdateDisplayName persists a new display name for a registered contact.
func (s *Service) UpdateDisplayName(ctx context.Context, contact, name string) error {
	if err := s.store.UpdateDisplayName(ctx, contact, name); err != nil {
		return fmt.Errorf("update display name: %w", err)
	}
	return nil
}

func (s *Service) claims(ctx context.Context, token string) (*Claims, error) {
	claims, err := ValidateToken(s.jwtConfig, token)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	revoked, err := s.store.IsTokenRevoked(ctx, claims.ID)
	if err != nil {
		return nil, fmt.Errorf("check revocation: %w", err)
	}
	if revoked {
		return nil, fmt.Errorf("%w: revoked", ErrInvalidToken)
	}
	return claims, nil
}
