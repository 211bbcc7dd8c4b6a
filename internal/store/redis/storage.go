package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/vovakirdan/rapidchat-server/internal/store"
)

// Storage is a Redis-backed implementation of store.Store.
// Credentials are JSON values without TTL; revocations expire with their token.
type Storage struct {
	client *redis.Client
}

// Ensure Storage implements the interface
var _ store.Store = (*Storage)(nil)

// New connects to Redis and verifies the connection.
func New(cfg Config) (*Storage, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	if cfg.PoolSize > 0 {
		opts.PoolSize = cfg.PoolSize
	}
	opts.MinIdleConns = cfg.MinIdleConns

	client := redis.NewClient(opts)

	timeout := cfg.DialTimeout
	if timeout <= 0 {
		timeout = DefaultConfig().DialTimeout
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	return &Storage{client: client}, nil
}

// NewWithClient creates a Redis storage with an existing client (for testing)
func NewWithClient(client *redis.Client) *Storage {
	return &Storage{client: client}
}

// Close closes the Redis connection
func (s *Storage) Close() error {
	return s.client.Close()
}

// Credential operations

func (s *Storage) CreateCredential(ctx context.Context, cred *store.Credential) error {
	if cred.CreatedAt.IsZero() {
		cred.CreatedAt = time.Now().UTC()
	}

	data, err := json.Marshal(cred)
	if err != nil {
		return err
	}

	created, err := s.client.SetNX(ctx, credentialKey(cred.Contact), data, 0).Result()
	if err != nil {
		return fmt.Errorf("save credential: %w", err)
	}
	if !created {
		return store.ErrDuplicateContact
	}
	return nil
}

func (s *Storage) GetCredentialByContact(ctx context.Context, contact string) (*store.Credential, error) {
	data, err := s.client.Get(ctx, credentialKey(contact)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}

	var cred store.Credential
	if err := json.Unmarshal(data, &cred); err != nil {
		return nil, err
	}
	return &cred, nil
}

// UpdateDisplayName rewrites the credential under WATCH so a concurrent rename cannot be lost.
func (s *Storage) UpdateDisplayName(ctx context.Context, contact, displayName string) error {
	key := credentialKey(contact)

	txf := func(tx *redis.Tx) error {
		data, err := tx.Get(ctx, key).Bytes()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				return store.ErrNotFound
			}
			return err
		}

		var cred store.Credential
		if err := json.Unmarshal(data, &cred); err != nil {
			return err
		}
		cred.DisplayName = displayName

		updated, err := json.Marshal(&cred)
		if err != nil {
			return err
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, updated, 0)
			return nil
		})
		return err
	}

	const maxRetries = 3
	for i := 0; i < maxRetries; i++ {
		err := s.client.Watch(ctx, txf, key)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		return err
	}
	return fmt.Errorf("update display name: %w", redis.TxFailedErr)
}

// Revocation operations

func (s *Storage) RevokeToken(ctx context.Context, tokenID string, expiresAt time.Time) error {
	ttl := time.Until(expiresAt)
	if ttl <= 0 {
		return nil
	}
	return s.client.Set(ctx, revokedTokenKey(tokenID), "1", ttl).Err()
}

func (s *Storage) IsTokenRevoked(ctx context.Context, tokenID string) (bool, error) {
	n, err := s.client.Exists(ctx, revokedTokenKey(tokenID)).Result()
	if err != nil {
		return false, fmt.Errorf("revocation check: %w", err)
	}
	return n > 0, nil
}
