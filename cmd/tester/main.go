// Command tester is a terminal smoke client: it joins the server under a
// throwaway name, sends a message to itself and prints everything the
// server pushes back. Useful to eyeball the protocol without a browser.
package main

import (
	"encoding/json"
	"fmt"
	"log"
	"net/url"
	"os"
	"os/signal"
	"time"

	"github.com/gookit/color"
	"github.com/gorilla/websocket"
	"github.com/kelseyhightower/envconfig"
)

type config struct {
	ServerURL string `envconfig:"TESTER_SERVER_URL" default:"ws://localhost:8080/ws"`
	Username  string `envconfig:"TESTER_USERNAME" default:"smoketester"`
	Token     string `envconfig:"TESTER_TOKEN"`
}

type envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

func main() {
	var cfg config
	if err := envconfig.Process("", &cfg); err != nil {
		log.Fatalf("Config error: %v", err)
	}

	u, err := url.Parse(cfg.ServerURL)
	if err != nil {
		log.Fatalf("Bad server url: %v", err)
	}

	color.Cyan.Printf("Dialing %s as %q...\n", u, cfg.Username)
	conn, _, err := websocket.DefaultDialer.Dial(u.String(), nil)
	if err != nil {
		log.Fatalf("Dial failed: %v", err)
	}
	defer conn.Close()

	send(conn, "join", map[string]any{"username": cfg.Username, "token": cfg.Token})
	send(conn, "send_message", map[string]any{
		"receiver": cfg.Username,
		"type":     "text",
		"content":  fmt.Sprintf("smoke test at %s", time.Now().Format(time.RFC3339)),
	})

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt)

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			_, raw, err := conn.ReadMessage()
			if err != nil {
				color.Red.Printf("Read error: %v\n", err)
				return
			}
			var env envelope
			if err := json.Unmarshal(raw, &env); err != nil {
				color.Red.Printf("Malformed frame: %s\n", raw)
				continue
			}
			switch env.Event {
			case "error":
				color.Red.Printf("<- %s %s\n", env.Event, env.Data)
			case "receive_message":
				color.Green.Printf("<- %s %s\n", env.Event, env.Data)
			default:
				color.Yellow.Printf("<- %s %s\n", env.Event, env.Data)
			}
		}
	}()

	select {
	case <-done:
	case <-interrupt:
		color.Cyan.Println("Closing...")
		_ = conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		select {
		case <-done:
		case <-time.After(time.Second):
		}
	}
}

func send(conn *websocket.Conn, event string, data any) {
	payload, err := json.Marshal(data)
	if err != nil {
		log.Fatalf("Marshal failed: %v", err)
	}
	frame, _ := json.Marshal(envelope{Event: event, Data: payload})
	if err := conn.WriteMessage(websocket.TextMessage, frame); err != nil {
		log.Fatalf("Write failed: %v", err)
	}
	color.Blue.Printf("-> %s\n", frame)
}
