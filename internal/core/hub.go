package core

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/vovakirdan/rapidchat-server/internal/metrics"
	"github.com/vovakirdan/rapidchat-server/internal/validate"
)

// TokenResolver turns a session token into the identity it was issued for.
type TokenResolver interface {
	Resolve(ctx context.Context, token string) (Identity, error)
}

// ProfileUpdater persists display-name changes of registered identities.
type ProfileUpdater interface {
	UpdateDisplayName(ctx context.Context, contact, name string) error
}

// SystemIdentity authors the welcome message.
var SystemIdentity = Identity{ID: "rapidchat", DisplayName: "RapidChat"}

const (
	defaultCallTimeout = 5 * time.Second
	profileQueueSize   = 256
)

// Options tunes hub behavior.
type Options struct {
	HistorySize        int
	WelcomeMessage     string
	CloseOnAuthFailure bool
	// CallTimeout bounds token resolution and profile updates.
	CallTimeout time.Duration
}

type authResult struct {
	identity Identity
	err      error
}

type envelope struct {
	client *Client
	cmd    *Command
	auth   *authResult
}

// Hub owns the chat state and processes every client command on one goroutine.
// Token resolution and profile persistence run off the loop and report back
// through the inbox, so a slow store never stalls other connections.
type Hub struct {
	chat     *Chat
	resolver TokenResolver
	profiles ProfileUpdater
	opts     Options
	log      *zerolog.Logger

	register     chan *Client
	unregister   chan *Client
	inbox        chan envelope
	profileQueue chan Identity
	done         chan struct{}

	// pending holds commands queued behind an in-flight authentication,
	// keyed by client id. Only touched by the Run goroutine.
	pending map[string][]*Command
	// closing holds clients told to disconnect; their further commands are ignored.
	closing map[string]struct{}
	wg      sync.WaitGroup
}

// NewHub creates a hub. resolver and profiles may be nil; without a resolver every
// authentication fails.
func NewHub(resolver TokenResolver, profiles ProfileUpdater, opts Options, logger *zerolog.Logger) *Hub {
	if opts.CallTimeout <= 0 {
		opts.CallTimeout = defaultCallTimeout
	}
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}

	chat := NewChat(opts.HistorySize)
	if opts.WelcomeMessage != "" {
		chat.Seed(SystemIdentity, opts.WelcomeMessage)
	}

	return &Hub{
		chat:         chat,
		resolver:     resolver,
		profiles:     profiles,
		opts:         opts,
		log:          logger,
		register:     make(chan *Client),
		unregister:   make(chan *Client),
		inbox:        make(chan envelope, 64),
		profileQueue: make(chan Identity, profileQueueSize),
		done:         make(chan struct{}),
		pending:      make(map[string][]*Command),
		closing:      make(map[string]struct{}),
	}
}

// Chat exposes the shared chat state.
func (h *Hub) Chat() *Chat {
	return h.chat
}

// RegisterClient adds a client to the hub. It returns once the hub accepted it
// or the hub has stopped.
func (h *Hub) RegisterClient(c *Client) {
	select {
	case h.register <- c:
	case <-h.done:
	}
}

// UnregisterClient removes a client from the hub. Safe to call more than once.
func (h *Hub) UnregisterClient(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.done:
		c.stop()
	}
}

// Run processes hub traffic until ctx is cancelled.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)

	h.wg.Add(1)
	go h.persistProfiles(ctx)

	for {
		select {
		case <-ctx.Done():
			for _, c := range h.chat.Registry().Clients() {
				c.stop()
			}
			h.wg.Wait()
			return
		case c := <-h.register:
			h.handleRegister(ctx, c)
		case c := <-h.unregister:
			h.handleUnregister(c)
		case env := <-h.inbox:
			h.dispatch(ctx, env)
		}
	}
}

func (h *Hub) handleRegister(ctx context.Context, c *Client) {
	identity := h.chat.Join(c)
	h.log.Info().
		Str("client_id", c.ID).
		Str("identity_id", identity.ID).
		Int("clients", h.chat.Registry().Len()).
		Msg("client connected")

	h.wg.Add(1)
	go h.forward(ctx, c)
}

func (h *Hub) handleUnregister(c *Client) {
	delete(h.pending, c.ID)
	delete(h.closing, c.ID)
	removed := h.chat.Leave(c.ID)
	c.stop()
	if removed {
		h.log.Info().
			Str("client_id", c.ID).
			Int("clients", h.chat.Registry().Len()).
			Msg("client disconnected")
	}
}

// evict removes a client the transport must close with a policy violation.
func (h *Hub) evict(c *Client) {
	delete(h.pending, c.ID)
	delete(h.closing, c.ID)
	h.chat.Leave(c.ID)
	c.evict()
}

// forward moves one client's commands into the shared inbox in order.
func (h *Hub) forward(ctx context.Context, c *Client) {
	defer h.wg.Done()
	for {
		select {
		case cmd := <-c.Commands:
			if cmd == nil {
				continue
			}
			select {
			case h.inbox <- envelope{client: c, cmd: cmd}:
			case <-c.Done():
				return
			case <-ctx.Done():
				return
			}
		case <-c.Done():
			return
		case <-ctx.Done():
			return
		}
	}
}

func (h *Hub) dispatch(ctx context.Context, env envelope) {
	if env.auth != nil {
		h.finishAuth(ctx, env.client, *env.auth)
		return
	}
	if _, closing := h.closing[env.client.ID]; closing {
		return
	}
	if queue, waiting := h.pending[env.client.ID]; waiting {
		h.pending[env.client.ID] = append(queue, env.cmd)
		return
	}
	h.handle(ctx, env.client, env.cmd)
}

func (h *Hub) handle(ctx context.Context, c *Client, cmd *Command) {
	defer func() {
		if r := recover(); r != nil {
			h.log.Error().
				Interface("panic", r).
				Str("client_id", c.ID).
				Str("command", cmd.Kind.String()).
				Msg("recovered from panic in command handler")
		}
	}()

	switch cmd.Kind {
	case CommandAuthenticate:
		h.startAuth(ctx, c, cmd.Token)
	case CommandSendMessage:
		msg, err := h.chat.SendMessage(c.ID, cmd.Text)
		if err != nil {
			h.reject(c, cmd, err)
			return
		}
		h.log.Info().
			Str("client_id", c.ID).
			Str("author", msg.Author.DisplayName).
			Str("message_id", msg.ID).
			Msg("message sent")
	case CommandSetDisplayName:
		identity, err := h.chat.Rename(c.ID, cmd.Text)
		if err != nil {
			h.reject(c, cmd, err)
			return
		}
		h.log.Info().
			Str("client_id", c.ID).
			Str("identity_id", identity.ID).
			Str("name", identity.DisplayName).
			Msg("display name changed")
		if h.chat.Registry().State(c.ID) == StateAuthenticated {
			h.syncProfile(identity)
		}
	case CommandTypingStarted, CommandTypingStopped:
		if err := h.chat.Typing(c.ID, cmd.Kind == CommandTypingStarted); err != nil {
			h.log.Debug().Err(err).Str("client_id", c.ID).Msg("typing from unknown client ignored")
		}
	default:
		h.chat.Unicast(c, &Event{Kind: EventError, Error: coreError(ErrCodeBadRequest, "unknown command")})
	}
}

// reject reports a failed command to its sender only.
func (h *Hub) reject(c *Client, cmd *Command, err error) {
	var ve *validate.Error
	switch {
	case errors.As(err, &ve):
		h.log.Debug().Str("client_id", c.ID).Str("command", cmd.Kind.String()).Str("reason", ve.Reason).Msg("command rejected")
		h.chat.Unicast(c, &Event{Kind: EventError, Error: coreError(ErrCodeValidation, ve.Reason)})
	case errors.Is(err, ErrUnknownSender):
		h.log.Warn().Str("client_id", c.ID).Str("command", cmd.Kind.String()).Msg("command from unregistered client")
		h.chat.Unicast(c, &Event{Kind: EventError, Error: errNotFound})
	default:
		h.log.Error().Err(err).Str("client_id", c.ID).Str("command", cmd.Kind.String()).Msg("command failed")
		h.chat.Unicast(c, &Event{Kind: EventError, Error: coreError(ErrCodeBadRequest, "request failed")})
	}
}

// startAuth resolves the token off the loop. Commands the client sends in the
// meantime are queued so they are applied after the new identity.
func (h *Hub) startAuth(ctx context.Context, c *Client, token string) {
	if _, ok := h.chat.Registry().Get(c.ID); !ok {
		h.log.Debug().Str("client_id", c.ID).Msg("authenticate from unregistered client ignored")
		return
	}

	h.pending[c.ID] = nil

	h.wg.Add(1)
	go func() {
		defer h.wg.Done()
		res := h.resolve(ctx, token)
		select {
		case h.inbox <- envelope{client: c, auth: &res}:
		case <-ctx.Done():
		}
	}()
}

func (h *Hub) resolve(ctx context.Context, token string) authResult {
	if h.resolver == nil {
		return authResult{err: ErrInvalidToken}
	}
	rctx, cancel := context.WithTimeout(ctx, h.opts.CallTimeout)
	defer cancel()

	identity, err := h.resolver.Resolve(rctx, token)
	return authResult{identity: identity, err: err}
}

func (h *Hub) finishAuth(ctx context.Context, c *Client, res authResult) {
	queued, waiting := h.pending[c.ID]
	if !waiting {
		// Client left while the token was being resolved.
		return
	}
	delete(h.pending, c.ID)

	if res.err != nil {
		metrics.AuthAttemptsTotal.WithLabelValues("ws", metrics.ResultFailure).Inc()
		h.log.Info().Err(res.err).Str("client_id", c.ID).Msg("authentication failed")
		delivered := h.chat.Unicast(c, &Event{Kind: EventError, Error: errAuthFailed, Close: h.opts.CloseOnAuthFailure})
		if h.opts.CloseOnAuthFailure {
			if !delivered {
				// The close request was dropped; tear the connection down from here.
				h.log.Warn().Str("client_id", c.ID).Msg("auth failure not delivered, evicting client")
				h.evict(c)
				return
			}
			h.closing[c.ID] = struct{}{}
			return
		}
	} else {
		identity, err := h.chat.Authenticate(c, res.identity)
		if err != nil {
			h.log.Debug().Err(err).Str("client_id", c.ID).Msg("client left before authentication completed")
			return
		}
		metrics.AuthAttemptsTotal.WithLabelValues("ws", metrics.ResultSuccess).Inc()
		h.log.Info().
			Str("client_id", c.ID).
			Str("identity_id", identity.ID).
			Str("name", identity.DisplayName).
			Msg("client authenticated")
	}

	for i, cmd := range queued {
		if _, again := h.pending[c.ID]; again {
			h.pending[c.ID] = append(h.pending[c.ID], queued[i:]...)
			return
		}
		h.handle(ctx, c, cmd)
	}
}

// syncProfile queues a display-name write for the registered identity.
// The store is eventually consistent with the registry: a login racing the
// write may still see the old name, and a full queue drops the write.
func (h *Hub) syncProfile(identity Identity) {
	if h.profiles == nil || !identity.Registered() {
		return
	}
	select {
	case h.profileQueue <- identity:
	default:
		h.log.Warn().Str("contact", identity.Contact).Msg("profile queue full, display name not persisted")
	}
}

// persistProfiles applies queued display-name writes in order.
func (h *Hub) persistProfiles(ctx context.Context) {
	defer h.wg.Done()
	for {
		select {
		case identity := <-h.profileQueue:
			if h.profiles == nil {
				continue
			}
			uctx, cancel := context.WithTimeout(ctx, h.opts.CallTimeout)
			err := h.profiles.UpdateDisplayName(uctx, identity.Contact, identity.DisplayName)
			cancel()
			if err != nil {
				h.log.Warn().Err(err).Str("contact", identity.Contact).Msg("failed to persist display name")
			}
		case <-ctx.Done():
			return
		}
	}
}
