package core

import (
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/vovakirdan/rapidchat-server/internal/metrics"
	"github.com/vovakirdan/rapidchat-server/internal/validate"
)

// Chat is the shared chat state: who is connected, what was said, and how
// events reach everyone. Every operation is atomic with respect to the others.
type Chat struct {
	registry   *Registry
	history    *MessageLog
	dispatcher *Dispatcher
	now        func() time.Time
}

// NewChat builds an empty chat with a replay window of historySize messages.
func NewChat(historySize int) *Chat {
	registry := NewRegistry()
	return &Chat{
		registry:   registry,
		history:    NewMessageLog(historySize),
		dispatcher: NewDispatcher(registry),
		now:        time.Now,
	}
}

// Registry exposes the connection registry.
func (c *Chat) Registry() *Registry {
	return c.registry
}

// History returns the replay window in arrival order.
func (c *Chat) History() []Message {
	return c.history.Snapshot()
}

// Join registers client anonymously and sends it the history snapshot.
func (c *Chat) Join(client *Client) Identity {
	identity := c.registry.Connect(client)
	metrics.ConnectionsActive.Set(float64(c.registry.Len()))

	c.dispatcher.Unicast(client, &Event{
		Kind:     EventHistory,
		Identity: identity,
		Messages: c.history.Snapshot(),
	})
	return identity
}

// Leave removes a connection. Safe to call more than once.
func (c *Chat) Leave(connID string) bool {
	removed := c.registry.Disconnect(connID)
	metrics.ConnectionsActive.Set(float64(c.registry.Len()))
	return removed
}

// Authenticate attaches a resolved identity to the connection and confirms it to the client.
func (c *Chat) Authenticate(client *Client, identity Identity) (Identity, error) {
	identity, err := c.registry.Authenticate(client.ID, identity)
	if err != nil {
		return Identity{}, err
	}
	c.dispatcher.Unicast(client, &Event{Kind: EventAuthSucceeded, Identity: identity})
	return identity, nil
}

// SendMessage validates raw, appends it under the sender's current identity,
// and broadcasts it. On error nothing is appended or broadcast.
func (c *Chat) SendMessage(connID, raw string) (Message, error) {
	body, err := validate.Message(raw)
	if err != nil {
		countValidation(err)
		return Message{}, err
	}

	author, ok := c.registry.Get(connID)
	if !ok {
		return Message{}, ErrUnknownSender
	}

	msg := c.append(author, body)
	c.dispatcher.BroadcastAll(&Event{Kind: EventMessageAdded, Message: msg})
	return msg, nil
}

// Seed appends a message without validation or broadcast. Used for the welcome message.
func (c *Chat) Seed(author Identity, body string) Message {
	return c.append(author, body)
}

func (c *Chat) append(author Identity, body string) Message {
	msg := Message{
		ID:        uuid.NewString(),
		Body:      body,
		Author:    author,
		CreatedAt: c.now(),
	}
	c.history.Append(msg)
	metrics.MessagesTotal.Inc()
	metrics.HistorySize.Set(float64(c.history.Len()))
	return msg
}

// Rename validates raw and sets it as the connection's display name,
// then broadcasts the change. Logged messages keep their old author name.
func (c *Chat) Rename(connID, raw string) (Identity, error) {
	name, err := validate.DisplayName(raw)
	if err != nil {
		countValidation(err)
		return Identity{}, err
	}

	identity, err := c.registry.Rename(connID, name)
	if err != nil {
		return Identity{}, err
	}

	c.dispatcher.BroadcastAll(&Event{Kind: EventDisplayNameChanged, Identity: identity})
	return identity, nil
}

// Typing broadcasts a typing indicator for the connection.
func (c *Chat) Typing(connID string, started bool) error {
	identity, ok := c.registry.Get(connID)
	if !ok {
		return ErrUnknownSender
	}

	kind := EventTypingStopped
	if started {
		kind = EventTypingStarted
	}
	c.dispatcher.BroadcastAll(&Event{Kind: kind, Identity: identity})
	return nil
}

// Unicast delivers an event to one client.
func (c *Chat) Unicast(client *Client, event *Event) bool {
	return c.dispatcher.Unicast(client, event)
}

func countValidation(err error) {
	var ve *validate.Error
	if errors.As(err, &ve) {
		metrics.ValidationErrorsTotal.WithLabelValues(ve.Field).Inc()
	}
}
