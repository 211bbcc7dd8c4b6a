package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/vovakirdan/rapidchat-server/internal/proto"
)

func main() {
	if err := run(); err != nil {
		log.Printf("ws_smoke: %v", err)
		os.Exit(1)
	}
}

type outbound struct {
	Type  string          `json:"type"`
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
	Error *proto.Error    `json:"error"`
}

func run() error {
	base := flag.String("base", "http://localhost:3010", "server base URL")
	email := flag.String("email", "smoke@example.com", "account email")
	password := flag.String("password", "smoke-secret", "account password")
	name := flag.String("name", "smoke", "display name for registration")
	text := flag.String("text", "hello from smoke test", "message text to send")
	timeout := flag.Duration("timeout", 5*time.Second, "total timeout for the run")
	flag.Parse()

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	// An existing account answers 400 here; login below decides.
	_, _ = postJSON(ctx, *base+"/register", map[string]string{"email": *email, "password": *password, "name": *name})

	var session struct {
		Token string `json:"token"`
		Name  string `json:"name"`
	}
	body, err := postJSON(ctx, *base+"/login", map[string]string{"email": *email, "password": *password})
	if err != nil {
		return fmt.Errorf("login: %w", err)
	}
	if err := json.Unmarshal(body, &session); err != nil {
		return fmt.Errorf("decode login: %w", err)
	}
	fmt.Printf("Logged in as %s\n", session.Name)

	wsURL := strings.Replace(*base, "http", "ws", 1) + "/ws"
	conn, _, err := websocket.Dial(ctx, wsURL, nil)
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}
	defer conn.Close(websocket.StatusNormalClosure, "bye")

	mustSend := func(typ string, v any) error {
		payload, err := json.Marshal(v)
		if err != nil {
			return fmt.Errorf("marshal %s: %w", typ, err)
		}
		if err := wsjson.Write(ctx, conn, proto.Inbound{Type: typ, Data: payload}); err != nil {
			return fmt.Errorf("send %s: %w", typ, err)
		}
		return nil
	}

	if err := mustSend(proto.InboundTypeAuthenticate, proto.AuthenticateData{Token: session.Token}); err != nil {
		return err
	}
	if err := mustSend(proto.InboundTypeSendMessage, proto.SendMessageData{Text: *text}); err != nil {
		return err
	}

	for {
		var out outbound
		if err := wsjson.Read(ctx, conn, &out); err != nil {
			return fmt.Errorf("read: %w", err)
		}

		fmt.Printf("Received outbound: type=%s", out.Type)
		if out.Event != "" {
			fmt.Printf(" event=%s", out.Event)
		}
		fmt.Println()

		if out.Error != nil {
			return fmt.Errorf("server error %s: %s", out.Error.Code, out.Error.Msg)
		}

		switch out.Event {
		case proto.EventNameHistorySnapshot:
			var evt proto.EventHistorySnapshot
			if err := json.Unmarshal(out.Data, &evt); err == nil {
				fmt.Printf("History: %d messages\n", len(evt.Messages))
			}
		case proto.EventNameAuthSucceeded:
			var evt proto.EventIdentity
			if err := json.Unmarshal(out.Data, &evt); err == nil {
				fmt.Printf("Authenticated: id=%s name=%s\n", evt.Identity.ID, evt.Identity.Name)
			}
		case proto.EventNameMessageAdded:
			var evt proto.EventMessageAdded
			if err := json.Unmarshal(out.Data, &evt); err != nil {
				fmt.Printf("Raw data: %s\n", string(out.Data))
				return fmt.Errorf("unmarshal message: %w", err)
			}
			fmt.Printf("Message: author=%s text=%q ts=%d\n", evt.Message.Author.Name, evt.Message.Text, evt.Message.TS)
			if evt.Message.Text == *text {
				return nil
			}
		default:
			// keep looping for our message
		}
	}
}

func postJSON(ctx context.Context, url string, body any) ([]byte, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var buf bytes.Buffer
	if _, err := buf.ReadFrom(resp.Body); err != nil {
		return nil, err
	}
	if resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%s: status %d: %s", url, resp.StatusCode, strings.TrimSpace(buf.String()))
	}
	return buf.Bytes(), nil
}
