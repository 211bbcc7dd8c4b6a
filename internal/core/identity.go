package core

import "github.com/google/uuid"

// AnonymousName is the display name given to connections that have not authenticated.
const AnonymousName = "anonymous"

// Identity is a chat participant as seen by other participants.
// Contact is empty for anonymous identities.
type Identity struct {
	ID          string
	DisplayName string
	Contact     string
}

// NewAnonymousIdentity returns a placeholder identity with a fresh unique id.
func NewAnonymousIdentity() Identity {
	return Identity{
		ID:          uuid.NewString(),
		DisplayName: AnonymousName,
	}
}

// Registered reports whether the identity belongs to a registered credential.
func (i Identity) Registered() bool {
	return i.Contact != ""
}
