package core

import "github.com/vovakirdan/rapidchat-server/internal/metrics"

// Dispatcher delivers events to registered connections.
// Delivery is best-effort: a full client buffer drops the event for that client.
type Dispatcher struct {
	registry *Registry
}

// NewDispatcher builds a dispatcher over the given registry.
func NewDispatcher(registry *Registry) *Dispatcher {
	return &Dispatcher{registry: registry}
}

// BroadcastAll sends event to every connection currently in the registry,
// regardless of authentication state. Returns the number of clients reached.
func (d *Dispatcher) BroadcastAll(event *Event) int {
	delivered := 0
	for _, client := range d.registry.Clients() {
		if d.Unicast(client, event) {
			delivered++
		}
	}
	return delivered
}

// Unicast sends event to a single client without blocking.
func (d *Dispatcher) Unicast(client *Client, event *Event) bool {
	select {
	case <-client.Done():
		return false
	default:
	}

	select {
	case client.Events <- event:
		return true
	default:
		// Drop if slow consumer.
		metrics.BroadcastDroppedTotal.Inc()
		return false
	}
}
