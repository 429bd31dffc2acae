package gateway

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/jasurbek-jolanboyev/safechat.uz/domain/event"
	"github.com/jasurbek-jolanboyev/safechat.uz/errors"
)

const (
	writeWait    = 10 * time.Second
	pongWait     = 60 * time.Second
	pingPeriod   = (pongWait * 9) / 10
	maxFrameSize = 64 * 1024
)

// Client is one live WebSocket connection. Its send channel is the event
// sink registered with the presence registry: fan-out enqueues, the write
// pump drains. A full channel means the consumer is too slow and the event
// is dropped for this connection only.
type Client struct {
	log      *slog.Logger
	conn     *websocket.Conn
	connID   uuid.UUID
	identity string
	send     chan event.Event
}

func newClient(log *slog.Logger, conn *websocket.Conn, identity string, bufferSize int) *Client {
	return &Client{
		log:      log,
		conn:     conn,
		connID:   uuid.New(),
		identity: identity,
		send:     make(chan event.Event, bufferSize),
	}
}

// Consume enqueues an event for delivery. Never blocks: a slow consumer
// gets ErrSlowConsumer and the event is dropped for this connection.
func (c *Client) Consume(_ context.Context, e event.Event) error {
	select {
	case c.send <- e:
		return nil
	default:
		return errors.ErrSlowConsumer
	}
}

// respond delivers a direct response frame to this connection, bypassing
// room fan-out.
func (c *Client) respond(e event.Event) {
	if err := c.Consume(context.Background(), e); err != nil {
		c.log.Debug("Direct response dropped", "identity", c.identity, "type", e.Type)
	}
}

// respondError sends an error frame to this connection only. Peers never
// learn about another sender's failures.
func (c *Client) respondError(message string) {
	c.respond(event.Event{Type: "error", Payload: errorPayload{Message: message}})
}

// writePump serializes queued events onto the wire and keeps the connection
// alive with pings. It owns all writes; exits close the connection.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case e, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			frame, err := encodeEvent(e)
			if err != nil {
				c.log.Warn("Failed to encode outbound event", "type", e.Type, "err", err)
				continue
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
