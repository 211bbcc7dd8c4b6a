package http

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/rapidchat-server/internal/auth"
	"github.com/vovakirdan/rapidchat-server/internal/config"
	"github.com/vovakirdan/rapidchat-server/internal/core"
	"github.com/vovakirdan/rapidchat-server/internal/proto"
	"github.com/vovakirdan/rapidchat-server/internal/store/memory"
)

type testEnv struct {
	server *httptest.Server
	auth   *auth.Service
	hub    *core.Hub
}

func startTestServer(t *testing.T, mutate func(*config.Config)) *testEnv {
	t.Helper()

	cfg := config.Default()
	cfg.Addr = ":0"
	cfg.JWTSecret = "test-secret"
	if mutate != nil {
		mutate(&cfg)
	}

	st := memory.New()
	authService := auth.NewService(st, &auth.JWTConfig{
		Secret:   []byte(cfg.JWTSecret),
		Issuer:   cfg.JWTIssuer,
		Audience: cfg.JWTAudience,
		TTL:      cfg.TokenTTL,
	})

	disabledLogger := zerolog.Nop()
	hub := core.NewHub(authService, authService, core.Options{
		HistorySize:        cfg.HistorySize,
		WelcomeMessage:     cfg.WelcomeMessage,
		CloseOnAuthFailure: cfg.CloseOnAuthFailure,
	}, &disabledLogger)
	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)

	server := NewServer(hub, authService, &cfg, &disabledLogger)
	ts := httptest.NewServer(server.Handler)
	t.Cleanup(func() {
		ts.Close()
		cancel()
	})

	return &testEnv{server: ts, auth: authService, hub: hub}
}

func (e *testEnv) login(t *testing.T, contact, secret, name string) string {
	t.Helper()

	ctx := context.Background()
	if _, err := e.auth.Register(ctx, contact, secret, name); err != nil {
		t.Fatalf("register %s: %v", contact, err)
	}
	token, _, err := e.auth.Login(ctx, contact, secret)
	if err != nil {
		t.Fatalf("login %s: %v", contact, err)
	}
	return token
}

func (e *testEnv) dial(t *testing.T, ctx context.Context) *websocket.Conn {
	t.Helper()

	wsURL := strings.Replace(e.server.URL, "http", "ws", 1) + "/ws"
	conn, _, err := websocket.Dial(ctx, wsURL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close(websocket.StatusNormalClosure, "done") })
	return conn
}

// wireOutbound mirrors proto.Outbound with a raw payload for typed decoding.
type wireOutbound struct {
	Type  string          `json:"type"`
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
	Error *proto.Error    `json:"error"`
}

func send(t *testing.T, ctx context.Context, conn *websocket.Conn, typ string, data any) {
	t.Helper()

	inbound := proto.Inbound{Type: typ}
	if data != nil {
		payload, err := json.Marshal(data)
		if err != nil {
			t.Fatalf("marshal %s: %v", typ, err)
		}
		inbound.Data = payload
	}
	if err := wsjson.Write(ctx, conn, inbound); err != nil {
		t.Fatalf("write %s: %v", typ, err)
	}
}

// readUntil reads frames until one matches, skipping the rest.
func readUntil(t *testing.T, ctx context.Context, conn *websocket.Conn, match func(wireOutbound) bool) wireOutbound {
	t.Helper()

	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	for {
		var out wireOutbound
		if err := wsjson.Read(ctx, conn, &out); err != nil {
			t.Fatalf("read: %v", err)
		}
		if match(out) {
			return out
		}
	}
}

func readEvent(t *testing.T, ctx context.Context, conn *websocket.Conn, event string, v any) {
	t.Helper()

	out := readUntil(t, ctx, conn, func(o wireOutbound) bool {
		return o.Type == proto.OutboundTypeEvent && o.Event == event
	})
	if v == nil {
		return
	}
	if err := json.Unmarshal(out.Data, v); err != nil {
		t.Fatalf("decode %s: %v", event, err)
	}
}

func readError(t *testing.T, ctx context.Context, conn *websocket.Conn) *proto.Error {
	t.Helper()

	out := readUntil(t, ctx, conn, func(o wireOutbound) bool {
		return o.Type == proto.OutboundTypeError
	})
	if out.Error == nil {
		t.Fatalf("error frame without error body")
	}
	return out.Error
}
