package gateway

import (
	"context"
	stderrors "errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/jasurbek-jolanboyev/safechat.uz/auth"
	"github.com/jasurbek-jolanboyev/safechat.uz/domain"
	"github.com/jasurbek-jolanboyev/safechat.uz/domain/event"
	"github.com/jasurbek-jolanboyev/safechat.uz/errors"
	"github.com/jasurbek-jolanboyev/safechat.uz/services"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Server accepts WebSocket connections and drives the envelope protocol.
// The first frame of every connection must be a join; everything after
// that is dispatched synchronously from the read loop, which is what keeps
// one sender's sends, edits and deletes applied in order.
type Server struct {
	log         *slog.Logger
	chat        services.IChatService
	requireAuth bool
	bufferSize  int
}

func NewServer(log *slog.Logger, chat services.IChatService, requireAuth bool, bufferSize int) *Server {
	return &Server{log: log, chat: chat, requireAuth: requireAuth, bufferSize: bufferSize}
}

// ServeWS upgrades the HTTP connection and runs it until disconnect.
func (s *Server) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn("Upgrade failed", "err", err)
		return
	}

	conn.SetReadLimit(maxFrameSize)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	identity, err := s.handshake(conn)
	if err != nil {
		s.log.Debug("Handshake rejected", "err", err)
		_ = conn.Close()
		return
	}

	client := newClient(s.log, conn, identity, s.bufferSize)
	if err := s.chat.Join(identity, client.connID, client); err != nil {
		s.log.Error("Join failed", "identity", identity, "err", err)
		_ = conn.Close()
		return
	}
	go client.writePump()
	client.respond(event.Event{Type: event.TypeJoined, Payload: event.Joined{Username: identity}})

	s.readLoop(client)
}

// handshake reads the first frame and authenticates it. When auth is
// required, the token's subject must match the claimed username.
func (s *Server) handshake(conn *websocket.Conn) (string, error) {
	_, raw, err := conn.ReadMessage()
	if err != nil {
		return "", err
	}

	var env Envelope
	if err := decodeEnvelope(raw, &env); err != nil {
		return "", err
	}
	if env.Event != evJoin {
		return "", errors.ErrJoinRequired
	}

	var payload joinPayload
	if err := decode(env.Data, &payload); err != nil {
		return "", err
	}

	if s.requireAuth {
		claims, err := auth.ValidateToken(payload.Token)
		if err != nil {
			return "", err
		}
		if claims.Username != payload.Username {
			return "", errors.ErrInvalidCredentials
		}
	}
	return payload.Username, nil
}

// readLoop pulls frames until the connection dies, dispatching each one
// before reading the next.
func (s *Server) readLoop(c *Client) {
	defer func() {
		s.chat.Leave(c.connID, c.identity)
		_ = c.conn.Close()
	}()

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.log.Debug("Read error", "identity", c.identity, "err", err)
			}
			return
		}

		var env Envelope
		if err := decodeEnvelope(raw, &env); err != nil {
			c.respondError("invalid_json")
			continue
		}
		s.dispatch(c, env)
	}
}

func (s *Server) dispatch(c *Client, env Envelope) {
	ctx := context.Background()

	switch env.Event {
	case evSendMessage:
		var p sendMessagePayload
		if err := decode(env.Data, &p); err != nil {
			c.respondError("invalid_payload")
			return
		}
		msgType := domain.MessageType(p.Type)
		if msgType == "" {
			msgType = domain.TypeText
		}
		_, err := s.chat.SendMessage(ctx, domain.SendMessageCommand{
			Sender:  c.identity,
			Target:  p.Receiver,
			Type:    msgType,
			Content: p.Content,
			ReplyTo: p.ReplyTo,
		})
		s.report(c, env.Event, err)

	case evEditMessage:
		var p editMessagePayload
		if err := decode(env.Data, &p); err != nil {
			c.respondError("invalid_payload")
			return
		}
		err := s.chat.EditMessage(ctx, domain.EditMessageCommand{
			ID:      p.ID,
			Sender:  c.identity,
			Content: p.Content,
		})
		s.report(c, env.Event, err)

	case evDeleteMsg:
		var p deleteMessagePayload
		if err := decode(env.Data, &p); err != nil {
			c.respondError("invalid_payload")
			return
		}
		err := s.chat.DeleteMessage(ctx, domain.DeleteMessageCommand{
			ID:        p.ID,
			Requester: c.identity,
		})
		s.report(c, env.Event, err)

	case evTypingStart, evTypingStop:
		var p typingPayload
		if err := decode(env.Data, &p); err != nil {
			c.respondError("invalid_payload")
			return
		}
		err := s.chat.Typing(ctx, domain.TypingCommand{
			Sender: c.identity,
			Target: p.Receiver,
			Typing: env.Event == evTypingStart,
		})
		s.report(c, env.Event, err)

	case evCallSignal:
		var p callSignalPayload
		if err := decode(env.Data, &p); err != nil {
			c.respondError("invalid_payload")
			return
		}
		err := s.chat.CallSignal(ctx, domain.CallSignalCommand{
			From:    c.identity,
			To:      p.To,
			Payload: p.Payload,
		})
		s.report(c, env.Event, err)

	case evCreateEntity:
		var p createEntityPayload
		if err := decode(env.Data, &p); err != nil {
			c.respondError("invalid_payload")
			return
		}
		_, err := s.chat.CreateEntity(ctx, domain.CreateEntityCommand{
			Name:    p.Name,
			Kind:    domain.Kind(p.Kind),
			Creator: c.identity,
		})
		if stderrors.Is(err, errors.ErrNameTaken) {
			// Name conflicts answer the requester only, on a dedicated frame.
			c.respond(event.Event{
				Type:    event.TypeEntityError,
				Payload: event.EntityError{Name: p.Name, Message: err.Error()},
			})
			return
		}
		s.report(c, env.Event, err)

	case evAddMember:
		var p membershipPayload
		if err := decode(env.Data, &p); err != nil {
			c.respondError("invalid_payload")
			return
		}
		err := s.chat.AddMember(ctx, domain.MembershipCommand{
			Entity:   p.Entity,
			Username: p.Username,
		})
		s.report(c, env.Event, err)

	case evLeaveEntity:
		var p leaveEntityPayload
		if err := decode(env.Data, &p); err != nil {
			c.respondError("invalid_payload")
			return
		}
		err := s.chat.LeaveEntity(ctx, domain.MembershipCommand{
			Entity:   p.Entity,
			Username: c.identity,
		})
		s.report(c, env.Event, err)

	case evHistory:
		var p historyPayload
		if err := decode(env.Data, &p); err != nil {
			c.respondError("invalid_payload")
			return
		}
		messages, cursor, err := s.chat.History(domain.HistoryCommand{
			Room:   domain.Room(p.Room),
			Cursor: p.Cursor,
		})
		if err != nil {
			s.report(c, env.Event, err)
			return
		}
		c.respond(event.Event{
			Type: event.TypeHistoryPage,
			Payload: event.HistoryPage{
				Room:     domain.Room(p.Room),
				Messages: messages,
				Cursor:   cursor,
			},
		})

	case evBlockUser:
		var p blockPayload
		if err := decode(env.Data, &p); err != nil {
			c.respondError("invalid_payload")
			return
		}
		s.report(c, env.Event, s.chat.Block(c.identity, p.Username))

	case evUnblockUser:
		var p blockPayload
		if err := decode(env.Data, &p); err != nil {
			c.respondError("invalid_payload")
			return
		}
		s.report(c, env.Event, s.chat.Unblock(c.identity, p.Username))

	default:
		c.respondError("unsupported_event")
	}
}

// report handles an operation's outcome towards the originating connection.
// Silent outcomes are logged and swallowed; surfaced failures become an
// error frame for this connection only.
func (s *Server) report(c *Client, op string, err error) {
	if err == nil {
		return
	}
	if isSilent(err) {
		s.log.Debug("Operation dropped silently", "op", op, "identity", c.identity, "reason", err)
		return
	}
	s.log.Warn("Operation failed", "op", op, "identity", c.identity, "err", err)
	c.respondError(err.Error())
}

// isSilent reports whether an outcome must not be visible to anyone but the
// logs. A blocked sender learning they are blocked would defeat the block.
func isSilent(err error) bool {
	return stderrors.Is(err, errors.ErrDeliveryBlocked) ||
		stderrors.Is(err, errors.ErrNotSender) ||
		stderrors.Is(err, errors.ErrMessageNotFound) ||
		stderrors.Is(err, errors.ErrEntityNotFound) ||
		stderrors.Is(err, errors.ErrUnknownReceiver)
}
