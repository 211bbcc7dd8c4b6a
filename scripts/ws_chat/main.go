package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/vovakirdan/rapidchat-server/internal/proto"
)

func main() {
	if err := run(); err != nil {
		log.Printf("ws_chat: %v", err)
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
	addr := flag.String("addr", "ws://localhost:3010/ws", "WebSocket address")
	token := flag.String("token", "", "session token from /login (empty stays anonymous)")
	flag.Parse()

	baseCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithCancel(baseCtx)
	defer cancel()

	conn, _, err := websocket.Dial(ctx, *addr, nil)
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}
	defer conn.Close(websocket.StatusNormalClosure, "bye")

	if *token != "" {
		if err := send(ctx, conn, proto.InboundTypeAuthenticate, proto.AuthenticateData{Token: *token}); err != nil {
			return err
		}
	}

	fmt.Printf("Connected to %s\n", *addr)
	fmt.Println("Type messages and press Enter to send. /name <new> renames. Ctrl+C to exit.")

	go func() {
		defer cancel()
		readLoop(ctx, conn)
	}()

	writeLoop(ctx, conn)

	stop()
	cancel()
	_ = conn.Close(websocket.StatusNormalClosure, "bye")
	return nil
}

func send(ctx context.Context, conn *websocket.Conn, typ string, data any) error {
	inbound := proto.Inbound{Type: typ}
	if data != nil {
		payload, err := json.Marshal(data)
		if err != nil {
			return fmt.Errorf("marshal %s: %w", typ, err)
		}
		inbound.Data = payload
	}
	if err := wsjson.Write(ctx, conn, inbound); err != nil {
		return fmt.Errorf("send %s: %w", typ, err)
	}
	return nil
}

func readLoop(ctx context.Context, conn *websocket.Conn) {
	for {
		var out outbound
		if err := wsjson.Read(ctx, conn, &out); err != nil {
			// Treat expected shutdowns quietly.
			if errors.Is(err, context.Canceled) {
				return
			}
			switch websocket.CloseStatus(err) {
			case websocket.StatusNormalClosure, websocket.StatusGoingAway:
				return
			case websocket.StatusPolicyViolation:
				log.Printf("server closed connection: authentication failed")
				return
			}
			log.Printf("read error: %v", err)
			return
		}

		if out.Error != nil {
			fmt.Printf("! %s: %s\n", out.Error.Code, out.Error.Msg)
			continue
		}

		switch out.Event {
		case proto.EventNameHistorySnapshot:
			var evt proto.EventHistorySnapshot
			if err := json.Unmarshal(out.Data, &evt); err != nil {
				log.Printf("unmarshal history: %v", err)
				continue
			}
			for _, msg := range evt.Messages {
				fmt.Printf("%s: %s\n", msg.Author.Name, msg.Text)
			}
			fmt.Printf("-- you are %s --\n", evt.Identity.Name)
		case proto.EventNameMessageAdded:
			var evt proto.EventMessageAdded
			if err := json.Unmarshal(out.Data, &evt); err != nil {
				log.Printf("unmarshal message: %v", err)
				continue
			}
			fmt.Printf("%s: %s\n", evt.Message.Author.Name, evt.Message.Text)
		case proto.EventNameDisplayNameChanged:
			var evt proto.EventDisplayNameChanged
			if err := json.Unmarshal(out.Data, &evt); err != nil {
				log.Printf("unmarshal display_name_changed: %v", err)
				continue
			}
			fmt.Printf("* %s is now known as %s\n", evt.Identity.ID, evt.Name)
		case proto.EventNameAuthSucceeded:
			var evt proto.EventIdentity
			if err := json.Unmarshal(out.Data, &evt); err == nil {
				fmt.Printf("-- authenticated as %s --\n", evt.Identity.Name)
			}
		case proto.EventNameTypingStarted, proto.EventNameTypingStopped:
			// not rendered
		default:
			fmt.Printf("event=%s data=%s\n", out.Event, string(out.Data))
		}
	}
}

func writeLoop(ctx context.Context, conn *websocket.Conn) {
	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case line, ok := <-lines:
			if !ok {
				return
			}
			text := strings.TrimSpace(line)
			if text == "" {
				continue
			}

			var err error
			if name, ok := strings.CutPrefix(text, "/name "); ok {
				err = send(ctx, conn, proto.InboundTypeSetDisplayName, proto.SetDisplayNameData{Name: name})
			} else {
				err = send(ctx, conn, proto.InboundTypeSendMessage, proto.SendMessageData{Text: text})
			}
			if err != nil {
				log.Printf("send error: %v", err)
				return
			}
		}
	}
}
