package redis

import "fmt"

// Key prefix for all chat relay data
const keyPrefix = "rapidchat"

// credentialKey returns the Redis key for the credential registered under contact
func credentialKey(contact string) string {
	return fmt.Sprintf("%s:credential:%s", keyPrefix, contact)
}

// revokedTokenKey returns the Redis key marking a revoked token id
func revokedTokenKey(tokenID string) string {
	return fmt.Sprintf("%s:revoked:%s", keyPrefix, tokenID)
}
