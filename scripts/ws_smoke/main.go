package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/url"
	"os"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/vovakirdan/signal-relay/internal/proto"
)

func main() {
	if err := run(); err != nil {
		log.Printf("ws_smoke: %v", err)
		os.Exit(1)
	}
}

func run() error {
	addr := flag.String("addr", "ws://localhost:8080/", "relay WebSocket address")
	room := flag.String("room", "smoke", "room id")
	timeout := flag.Duration("timeout", 5*time.Second, "total timeout for the run")
	flag.Parse()

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	caller, err := join(ctx, *addr, "smoke-caller", *room)
	if err != nil {
		return err
	}
	defer caller.Close(websocket.StatusNormalClosure, "bye")

	callee, err := join(ctx, *addr, "smoke-callee", *room)
	if err != nil {
		return err
	}
	defer callee.Close(websocket.StatusNormalClosure, "bye")

	offer := map[string]any{"type": proto.TypeOffer, "sdp": "v=0 smoke"}
	if err := wsjson.Write(ctx, caller, offer); err != nil {
		return fmt.Errorf("send offer: %w", err)
	}

	for {
		var msg map[string]any
		if err := wsjson.Read(ctx, callee, &msg); err != nil {
			return fmt.Errorf("read: %w", err)
		}
		fmt.Printf("callee received: %v\n", msg)

		if msg["type"] == proto.TypeOffer {
			if msg["senderClientId"] != "smoke-caller" {
				return fmt.Errorf("unexpected sender %v", msg["senderClientId"])
			}
			fmt.Println("offer relayed")
			return nil
		}
	}
}

func join(ctx context.Context, addr, clientID, roomID string) (*websocket.Conn, error) {
	u, err := url.Parse(addr)
	if err != nil {
		return nil, fmt.Errorf("parse addr: %w", err)
	}
	q := u.Query()
	q.Set("clientId", clientID)
	q.Set("roomId", roomID)
	u.RawQuery = q.Encode()

	conn, _, err := websocket.Dial(ctx, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", clientID, err)
	}

	var welcome proto.Welcome
	if err := wsjson.Read(ctx, conn, &welcome); err != nil {
		conn.CloseNow()
		return nil, fmt.Errorf("read welcome: %w", err)
	}
	fmt.Printf("%s joined %s\n", welcome.ClientID, welcome.RoomID)
	return conn, nil
}
