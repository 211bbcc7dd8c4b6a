package auth

import (
	"errors"
	"fmt"
	"sync"

	"golang.org/x/crypto/bcrypt"
)

// bcryptCost is the work factor for stored secrets.
const bcryptCost = 10

// MaxSecretBytes is the longest secret bcrypt accepts.
const MaxSecretBytes = 72

// ErrSecretTooLong is returned for secrets over MaxSecretBytes.
var ErrSecretTooLong = errors.New("password must be at most 72 bytes")

var (
	dummyOnce sync.Once
	dummyHash []byte
)

// HashSecret generates a bcrypt hash of the secret.
func HashSecret(secret string) (string, error) {
	if len(secret) > MaxSecretBytes {
		return "", ErrSecretTooLong
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(secret), bcryptCost)
	if errors.Is(err, bcrypt.ErrPasswordTooLong) {
		return "", ErrSecretTooLong
	}
	if err != nil {
		return "", fmt.Errorf("hash secret: %w", err)
	}
	return string(hash), nil
}

// CompareSecret compares a bcrypt hash with its plaintext version.
func CompareSecret(hash, secret string) error {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(secret))
}

// burnCompare runs a compare against a fixed hash so a login for an unknown
// contact costs the same as one with a wrong secret.
func burnCompare(secret string) {
	dummyOnce.Do(func() {
		dummyHash, _ = bcrypt.GenerateFromPassword([]byte("rapidchat-dummy-secret"), bcryptCost)
	})
	_ = bcrypt.CompareHashAndPassword(dummyHash, []byte(secret))
}
