package core

import (
	"context"
	"sync"
	"testing"
	"time"
)

func mustEvent(t *testing.T, ch <-chan *Event, kind EventKind) *Event {
	t.Helper()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		select {
		case ev := <-ch:
			if ev == nil {
				continue
			}
			if ev.Kind == kind {
				return ev
			}
		default:
			time.Sleep(10 * time.Millisecond)
		}
	}
	t.Fatalf("expected event kind %v not received", kind)
	return nil
}

// drain returns every event currently buffered on ch without waiting.
func drain(ch <-chan *Event) []*Event {
	var out []*Event
	for {
		select {
		case ev := <-ch:
			out = append(out, ev)
		default:
			return out
		}
	}
}

func startHub(t *testing.T, resolver TokenResolver, profiles ProfileUpdater, opts Options) *Hub {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	hub := NewHub(resolver, profiles, opts, nil)
	go hub.Run(ctx)
	t.Cleanup(cancel)
	return hub
}

// stubResolver maps tokens to identities. delay is applied before answering.
type stubResolver struct {
	identities map[string]Identity
	delay      time.Duration
	gate       chan struct{}
}

func (r *stubResolver) Resolve(ctx context.Context, token string) (Identity, error) {
	if r.gate != nil {
		select {
		case <-r.gate:
		case <-ctx.Done():
			return Identity{}, ctx.Err()
		}
	}
	if r.delay > 0 {
		time.Sleep(r.delay)
	}
	identity, ok := r.identities[token]
	if !ok {
		return Identity{}, ErrInvalidToken
	}
	return identity, nil
}

type profileUpdate struct {
	contact string
	name    string
}

type recordingProfiles struct {
	mu      sync.Mutex
	updates []profileUpdate
}

func (p *recordingProfiles) UpdateDisplayName(_ context.Context, contact, name string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.updates = append(p.updates, profileUpdate{contact: contact, name: name})
	return nil
}

func (p *recordingProfiles) snapshot() []profileUpdate {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]profileUpdate, len(p.updates))
	copy(out, p.updates)
	return out
}
