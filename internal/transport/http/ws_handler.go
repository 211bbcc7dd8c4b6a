package http

import (
	"context"
	"errors"
	"fmt"
	"io"
	stdhttp "net/http"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/rapidchat-server/internal/config"
	"github.com/vovakirdan/rapidchat-server/internal/core"
	"github.com/vovakirdan/rapidchat-server/internal/proto"
)

// errAuthClose ends a connection whose token was rejected.
var errAuthClose = errors.New("authentication failed")

// WSHandler upgrades HTTP connections and bridges them to core.Client.
type WSHandler struct {
	hub       *core.Hub
	log       *zerolog.Logger
	origins   []string
	readLimit int64
	rateLimit int
}

// NewWSHandler builds a new WebSocket handler.
func NewWSHandler(hub *core.Hub, cfg *config.Config, logger *zerolog.Logger) stdhttp.Handler {
	return &WSHandler{
		hub:       hub,
		log:       logger,
		origins:   cfg.AllowedOrigins,
		readLimit: cfg.MaxMessageBytes,
		rateLimit: cfg.RateLimitPerMinute,
	}
}

func (h *WSHandler) acceptOptions() *websocket.AcceptOptions {
	if allowsAnyOrigin(h.origins) {
		return &websocket.AcceptOptions{InsecureSkipVerify: true}
	}
	return &websocket.AcceptOptions{OriginPatterns: h.origins}
}

func (h *WSHandler) ServeHTTP(w stdhttp.ResponseWriter, r *stdhttp.Request) {
	ctx := r.Context()

	conn, err := websocket.Accept(w, r, h.acceptOptions())
	if err != nil {
		h.log.Error().Err(err).Msg("ws accept error")
		return
	}
	defer conn.Close(websocket.StatusInternalError, "internal error")
	if h.readLimit > 0 {
		conn.SetReadLimit(h.readLimit)
	}

	client := core.NewClient(uuid.NewString())
	h.hub.RegisterClient(client)
	defer h.hub.UnregisterClient(client)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	limiter := newRateLimiter(h.rateLimit)

	errCh := make(chan error, 2)
	go func() {
		errCh <- h.guard(client, func() error { return h.readLoop(ctx, conn, client, limiter) })
	}()
	go func() {
		errCh <- h.guard(client, func() error { return h.writeLoop(ctx, conn, client) })
	}()

	err = <-errCh
	cancel() // stop the other goroutine
	if other := <-errCh; errors.Is(other, errAuthClose) {
		err = other
	}

	status := websocket.StatusNormalClosure
	reason := "closing"
	switch {
	case errors.Is(err, errAuthClose):
		// writeLoop already sent the close frame.
		return
	case err != nil && !errors.Is(err, context.Canceled):
		if errors.Is(err, io.EOF) {
			err = nil
		}
		if s := websocket.CloseStatus(err); s != -1 {
			status = s
		}
		if status == websocket.StatusNormalClosure || status == websocket.StatusGoingAway {
			err = nil
		}
		if err != nil {
			if status == websocket.StatusNormalClosure {
				status = websocket.StatusInternalError
			}
			reason = "internal error"
			h.log.Warn().Err(err).Str("client_id", client.ID).Msg("ws connection closed with error")
		}
	}

	conn.Close(status, reason)
}

// guard converts a panic in a connection loop into an error.
func (h *WSHandler) guard(client *core.Client, loop func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			h.log.Error().Interface("panic", r).Str("client_id", client.ID).Msg("recovered from panic in ws loop")
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return loop()
}

func (h *WSHandler) readLoop(ctx context.Context, conn *websocket.Conn, client *core.Client, limiter *rateLimiter) error {
	for {
		var inbound proto.Inbound
		if err := wsjson.Read(ctx, conn, &inbound); err != nil {
			h.log.Debug().Err(err).Str("client_id", client.ID).Msg("read ws inbound")
			return err
		}

		if !limiter.allow() {
			if err := wsjson.Write(ctx, conn, proto.Outbound{
				Type:  proto.OutboundTypeError,
				Error: &proto.Error{Code: core.ErrCodeRateLimited, Msg: "rate limit exceeded"},
			}); err != nil {
				return err
			}
			continue
		}

		cmd, protoErr := inboundToCommand(inbound)
		if protoErr != nil {
			if err := wsjson.Write(ctx, conn, proto.Outbound{
				Type:  proto.OutboundTypeError,
				Error: protoErr,
			}); err != nil {
				return err
			}
			continue
		}

		select {
		case client.Commands <- cmd:
		case <-client.Done():
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (h *WSHandler) writeLoop(ctx context.Context, conn *websocket.Conn, client *core.Client) error {
	for {
		select {
		case event, ok := <-client.Events:
			if !ok {
				return nil
			}
			if err := wsjson.Write(ctx, conn, outboundFromEvent(event)); err != nil {
				h.log.Error().Err(err).Str("client_id", client.ID).Msg("write ws event")
				return err
			}
			if event.Close {
				_ = conn.Close(websocket.StatusPolicyViolation, errAuthClose.Error())
				return errAuthClose
			}
		case <-client.Done():
			if client.Evicted() {
				_ = conn.Close(websocket.StatusPolicyViolation, errAuthClose.Error())
				return errAuthClose
			}
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
