package http

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/vovakirdan/rapidchat-server/internal/config"
	"github.com/vovakirdan/rapidchat-server/internal/core"
	"github.com/vovakirdan/rapidchat-server/internal/proto"
)

func TestWebSocketHistoryAndBroadcast(t *testing.T) {
	env := startTestServer(t, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	connA := env.dial(t, ctx)
	connB := env.dial(t, ctx)

	var snapA, snapB proto.EventHistorySnapshot
	readEvent(t, ctx, connA, proto.EventNameHistorySnapshot, &snapA)
	readEvent(t, ctx, connB, proto.EventNameHistorySnapshot, &snapB)

	if len(snapA.Messages) != 1 || snapA.Messages[0].Text != "Welcome to RapidChat" {
		t.Fatalf("expected welcome message in snapshot, got %+v", snapA.Messages)
	}
	if snapA.Messages[0].Author.Name != core.SystemIdentity.DisplayName {
		t.Fatalf("unexpected welcome author: %+v", snapA.Messages[0].Author)
	}
	if snapA.Identity.ID == snapB.Identity.ID {
		t.Fatalf("anonymous connections share identity %q", snapA.Identity.ID)
	}
	if snapA.Identity.Name != core.AnonymousName {
		t.Fatalf("expected anonymous name, got %q", snapA.Identity.Name)
	}

	send(t, ctx, connA, proto.InboundTypeSendMessage, proto.SendMessageData{Text: "hi"})

	var added proto.EventMessageAdded
	readEvent(t, ctx, connB, proto.EventNameMessageAdded, &added)
	if added.Message.Text != "hi" || added.Message.Author.ID != snapA.Identity.ID {
		t.Fatalf("unexpected message: %+v", added.Message)
	}

	// The sender sees its own message too.
	readEvent(t, ctx, connA, proto.EventNameMessageAdded, nil)
}

func TestWebSocketAuthenticateAndRename(t *testing.T) {
	env := startTestServer(t, nil)
	token := env.login(t, "ann@example.com", "s3cret", "Ann")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	ann := env.dial(t, ctx)
	bob := env.dial(t, ctx)
	readEvent(t, ctx, ann, proto.EventNameHistorySnapshot, nil)
	readEvent(t, ctx, bob, proto.EventNameHistorySnapshot, nil)

	send(t, ctx, ann, proto.InboundTypeAuthenticate, proto.AuthenticateData{Token: token})
	send(t, ctx, ann, proto.InboundTypeSendMessage, proto.SendMessageData{Text: "hello"})
	send(t, ctx, ann, proto.InboundTypeSetDisplayName, proto.SetDisplayNameData{Name: "Annie"})

	var authed proto.EventIdentity
	readEvent(t, ctx, ann, proto.EventNameAuthSucceeded, &authed)
	if authed.Identity.Name != "Ann" {
		t.Fatalf("unexpected authenticated identity: %+v", authed.Identity)
	}

	var added proto.EventMessageAdded
	readEvent(t, ctx, bob, proto.EventNameMessageAdded, &added)
	if added.Message.Author.Name != "Ann" {
		t.Fatalf("expected author Ann, got %q", added.Message.Author.Name)
	}

	var renamed proto.EventDisplayNameChanged
	readEvent(t, ctx, bob, proto.EventNameDisplayNameChanged, &renamed)
	if renamed.Name != "Annie" || renamed.Identity.ID != authed.Identity.ID {
		t.Fatalf("unexpected rename event: %+v", renamed)
	}

	late := env.dial(t, ctx)
	var snap proto.EventHistorySnapshot
	readEvent(t, ctx, late, proto.EventNameHistorySnapshot, &snap)
	last := snap.Messages[len(snap.Messages)-1]
	if last.Text != "hello" || last.Author.Name != "Ann" {
		t.Fatalf("history rewritten after rename: %+v", last)
	}
}

func TestWebSocketAuthFailureClosesConnection(t *testing.T) {
	env := startTestServer(t, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn := env.dial(t, ctx)
	readEvent(t, ctx, conn, proto.EventNameHistorySnapshot, nil)

	send(t, ctx, conn, proto.InboundTypeAuthenticate, proto.AuthenticateData{Token: "forged"})

	if protoErr := readError(t, ctx, conn); protoErr.Code != core.ErrCodeAuthFailed {
		t.Fatalf("expected auth_failed, got %+v", protoErr)
	}

	var out wireOutbound
	err := wsjson.Read(ctx, conn, &out)
	if status := websocket.CloseStatus(err); status != websocket.StatusPolicyViolation {
		t.Fatalf("expected policy violation close, got %v (%v)", status, err)
	}
}

func TestWebSocketAuthFailureKeepsConnectionWhenConfigured(t *testing.T) {
	env := startTestServer(t, func(cfg *config.Config) {
		cfg.CloseOnAuthFailure = false
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn := env.dial(t, ctx)
	readEvent(t, ctx, conn, proto.EventNameHistorySnapshot, nil)

	send(t, ctx, conn, proto.InboundTypeAuthenticate, proto.AuthenticateData{Token: "forged"})
	if protoErr := readError(t, ctx, conn); protoErr.Code != core.ErrCodeAuthFailed {
		t.Fatalf("expected auth_failed, got %+v", protoErr)
	}

	send(t, ctx, conn, proto.InboundTypeSendMessage, proto.SendMessageData{Text: "still here"})
	var added proto.EventMessageAdded
	readEvent(t, ctx, conn, proto.EventNameMessageAdded, &added)
	if added.Message.Author.Name != core.AnonymousName {
		t.Fatalf("expected anonymous author, got %q", added.Message.Author.Name)
	}
}

func TestWebSocketRejectsInvalidInput(t *testing.T) {
	env := startTestServer(t, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn := env.dial(t, ctx)
	readEvent(t, ctx, conn, proto.EventNameHistorySnapshot, nil)

	send(t, ctx, conn, proto.InboundTypeSendMessage, proto.SendMessageData{Text: "   "})
	protoErr := readError(t, ctx, conn)
	if protoErr.Code != core.ErrCodeValidation || protoErr.Msg != "Invalid message. Message cannot be empty." {
		t.Fatalf("unexpected error: %+v", protoErr)
	}

	send(t, ctx, conn, proto.InboundTypeSetDisplayName, proto.SetDisplayNameData{Name: "Bartholomew"})
	protoErr = readError(t, ctx, conn)
	if protoErr.Code != core.ErrCodeValidation || protoErr.Msg != "Invalid name. Name cannot be longer than 10 characters." {
		t.Fatalf("unexpected error: %+v", protoErr)
	}

	send(t, ctx, conn, "shout", nil)
	if protoErr = readError(t, ctx, conn); protoErr.Code != core.ErrCodeBadRequest {
		t.Fatalf("expected bad_request, got %+v", protoErr)
	}
}

func TestWebSocketRateLimit(t *testing.T) {
	env := startTestServer(t, func(cfg *config.Config) {
		cfg.RateLimitPerMinute = 2
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn := env.dial(t, ctx)
	readEvent(t, ctx, conn, proto.EventNameHistorySnapshot, nil)

	for i := 0; i < 3; i++ {
		send(t, ctx, conn, proto.InboundTypeTypingStarted, nil)
	}

	if protoErr := readError(t, ctx, conn); protoErr.Code != core.ErrCodeRateLimited {
		t.Fatalf("expected rate_limited, got %+v", protoErr)
	}
}

func TestWebSocketDisconnectRemovesConnection(t *testing.T) {
	env := startTestServer(t, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn := env.dial(t, ctx)
	readEvent(t, ctx, conn, proto.EventNameHistorySnapshot, nil)
	if n := env.hub.Chat().Registry().Len(); n != 1 {
		t.Fatalf("expected one connection, got %d", n)
	}

	if err := conn.Close(websocket.StatusNormalClosure, "bye"); err != nil && !errors.Is(err, context.Canceled) {
		t.Logf("close: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if env.hub.Chat().Registry().Len() == 0 {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("connection still registered after close")
}
