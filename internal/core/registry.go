package core

import "sync"

// ConnState is the lifecycle state of a connection.
type ConnState int

const (
	// StateAnonymous is the initial state of every connection.
	StateAnonymous ConnState = iota
	// StateAuthenticated means a session token was accepted.
	StateAuthenticated
	// StateClosed is terminal; a closed connection has no registry row.
	StateClosed
)

func (s ConnState) String() string {
	switch s {
	case StateAnonymous:
		return "anonymous"
	case StateAuthenticated:
		return "authenticated"
	default:
		return "closed"
	}
}

type connection struct {
	client   *Client
	identity Identity
	state    ConnState
}

// Registry maps each live connection to its current identity.
// It is the single source of truth for who a connection is right now.
type Registry struct {
	mu    sync.RWMutex
	conns map[string]*connection
}

// NewRegistry constructs an empty registry.
func NewRegistry() *Registry {
	return &Registry{conns: make(map[string]*connection)}
}

// Connect registers c under a fresh anonymous identity and returns it.
// Connecting an already registered client returns its current identity.
func (r *Registry) Connect(c *Client) Identity {
	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.conns[c.ID]; ok {
		return existing.identity
	}
	identity := NewAnonymousIdentity()
	r.conns[c.ID] = &connection{client: c, identity: identity, state: StateAnonymous}
	return identity
}

// Authenticate replaces the connection's identity with a resolved one.
// A second authentication replaces again; identities are never merged.
func (r *Registry) Authenticate(connID string, identity Identity) (Identity, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	conn, ok := r.conns[connID]
	if !ok {
		return Identity{}, ErrUnknownSender
	}
	conn.identity = identity
	conn.state = StateAuthenticated
	return identity, nil
}

// Rename sets a new display name, keeping the identity id.
// The name is expected to be validated already.
func (r *Registry) Rename(connID, name string) (Identity, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	conn, ok := r.conns[connID]
	if !ok {
		return Identity{}, ErrUnknownSender
	}
	conn.identity.DisplayName = name
	return conn.identity, nil
}

// Disconnect removes the connection. Returns false if it was already gone.
func (r *Registry) Disconnect(connID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.conns[connID]; !ok {
		return false
	}
	delete(r.conns, connID)
	return true
}

// Get returns the current identity of a connection.
func (r *Registry) Get(connID string) (Identity, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	conn, ok := r.conns[connID]
	if !ok {
		return Identity{}, false
	}
	return conn.identity, true
}

// State returns the lifecycle state of a connection; unknown ids are closed.
func (r *Registry) State(connID string) ConnState {
	r.mu.RLock()
	defer r.mu.RUnlock()

	conn, ok := r.conns[connID]
	if !ok {
		return StateClosed
	}
	return conn.state
}

// Clients returns a snapshot of all registered clients.
func (r *Registry) Clients() []*Client {
	r.mu.RLock()
	defer r.mu.RUnlock()

	clients := make([]*Client, 0, len(r.conns))
	for _, conn := range r.conns {
		clients = append(clients, conn.client)
	}
	return clients
}

// Len returns the number of registered connections.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.conns)
}
