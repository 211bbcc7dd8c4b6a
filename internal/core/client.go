package core

import (
	"sync"
	"sync/atomic"
)

const clientBuffer = 32

// Client is one live connection as seen by the core layer.
// The transport writes Commands and drains Events; the hub owns the rest.
type Client struct {
	ID       string
	Commands chan *Command
	Events   chan *Event

	quit     chan struct{}
	quitOnce sync.Once
	evicted  atomic.Bool
}

// NewClient constructs a client with initialized channels.
func NewClient(id string) *Client {
	return &Client{
		ID:       id,
		Commands: make(chan *Command, clientBuffer),
		Events:   make(chan *Event, clientBuffer),
		quit:     make(chan struct{}),
	}
}

// Done is closed once the hub has unregistered the client.
func (c *Client) Done() <-chan struct{} {
	return c.quit
}

func (c *Client) stop() {
	c.quitOnce.Do(func() { close(c.quit) })
}

// Evicted reports whether the hub dropped the client for a policy reason,
// such as a rejected token. Meaningful once Done is closed.
func (c *Client) Evicted() bool {
	return c.evicted.Load()
}

func (c *Client) evict() {
	c.evicted.Store(true)
	c.stop()
}
