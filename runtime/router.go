// Package runtime is the real-time routing core: it decides, for every
// inbound event, which live connections must receive it, enforces ordering
// and blocking invariants, and keeps room subscriptions consistent across
// reconnects and multiple devices. It contains no transport logic; the
// gateway feeds it validated commands.
package runtime

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/abadojack/whatlanggo"

	"github.com/jasurbek-jolanboyev/safechat.uz/contract"
	"github.com/jasurbek-jolanboyev/safechat.uz/domain"
	"github.com/jasurbek-jolanboyev/safechat.uz/domain/event"
	"github.com/jasurbek-jolanboyev/safechat.uz/errors"
	"github.com/jasurbek-jolanboyev/safechat.uz/moderation"
	"github.com/jasurbek-jolanboyev/safechat.uz/observability"
	"github.com/jasurbek-jolanboyev/safechat.uz/repositories"
)

type targetKind int

const (
	targetUnknown targetKind = iota
	targetUser
	targetEntity
)

// Router is the per-event state machine of the core. Every operation
// follows persist-then-broadcast: the directory store commit completes
// before the first sink sees the event, and a failed commit means no
// fan-out at all. Fan-out itself is best-effort and non-blocking; a slow
// or dead connection is skipped and counted, never waited for.
type Router struct {
	log              *slog.Logger
	users            repositories.IUserRepository
	entities         repositories.IEntityRepository
	messages         repositories.IMessageRepository
	presence         contract.IPresence
	blocks           *BlockFilter
	moderator        *moderation.Moderator
	monitoring       *observability.Monitoring
	relay            contract.IRelay
	nodeName         string
	maxContentLength int
}

func NewRouter(
	log *slog.Logger,
	users repositories.IUserRepository,
	entities repositories.IEntityRepository,
	messages repositories.IMessageRepository,
	presence contract.IPresence,
	blocks *BlockFilter,
	moderator *moderation.Moderator,
	monitoring *observability.Monitoring,
	relay contract.IRelay,
	nodeName string,
	maxContentLength int,
) *Router {
	return &Router{
		log:              log,
		users:            users,
		entities:         entities,
		messages:         messages,
		presence:         presence,
		blocks:           blocks,
		moderator:        moderator,
		monitoring:       monitoring,
		relay:            relay,
		nodeName:         nodeName,
		maxContentLength: maxContentLength,
	}
}

// Send validates, persists and fans out a new message.
//
// The target resolves to exactly one of {Entity, User}; names share a
// single enforced namespace so entity-first resolution is unambiguous.
// A personal message whose target has blocked the sender is silently
// dropped: no persistence, no fan-out, and the sender is not told. The
// enriched message (store-assigned id and timestamp) reaches every
// connection subscribed to the target room, plus the sender's other
// devices, exactly once each.
func (r *Router) Send(ctx context.Context, cmd domain.SendMessageCommand) (domain.Message, error) {
	if r.maxContentLength > 0 && len(cmd.Content) > r.maxContentLength {
		return domain.Message{}, fmt.Errorf("content exceeds %d bytes", r.maxContentLength)
	}

	kind, err := r.resolveTarget(cmd.Target)
	if err != nil {
		return domain.Message{}, err
	}
	if kind == targetUnknown {
		r.log.Debug("Dropping message for unknown receiver", "receiver", cmd.Target)
		return domain.Message{}, errors.ErrUnknownReceiver
	}

	if kind == targetUser {
		blocked, err := r.blocks.IsBlocked(cmd.Sender, cmd.Target)
		if err != nil {
			return domain.Message{}, fmt.Errorf("%w: %v", errors.ErrPersistence, err)
		}
		if blocked {
			r.monitoring.IncrBlocked()
			r.log.Debug("Delivery suppressed by block list", "sender", cmd.Sender)
			return domain.Message{}, errors.ErrDeliveryBlocked
		}
	}

	content := cmd.Content
	if cmd.Type == domain.TypeText {
		content = r.moderate(content)
	}

	message, err := r.messages.Insert(domain.Message{
		Sender:  cmd.Sender,
		Target:  cmd.Target,
		Type:    cmd.Type,
		Content: content,
		ReplyTo: cmd.ReplyTo,
	})
	if err != nil {
		// No fan-out on a failed commit; the caller reports the failure to
		// the originating connection only.
		return domain.Message{}, err
	}

	r.monitoring.IncrRouted()
	r.Fanout(ctx, event.Event{
		Type:      event.TypeReceiveMessage,
		Rooms:     messageRooms(message),
		Origin:    r.nodeName,
		CreatedAt: message.CreatedAt,
		Payload:   event.MessageReceived{Message: message},
	})
	return message, nil
}

// Edit mutates a message's content. Only the original sender may edit;
// any other requester is a silent no-op. The updated fields fan out to the
// message's target room and the sender's room.
func (r *Router) Edit(ctx context.Context, cmd domain.EditMessageCommand) error {
	message, err := r.messages.Find(cmd.ID)
	if err != nil {
		r.log.Debug("Edit of unknown message ignored", "id", cmd.ID)
		return err
	}
	if message.Sender != cmd.Sender {
		r.log.Debug("Edit by non-sender ignored", "id", cmd.ID, "requester", cmd.Sender)
		return errors.ErrNotSender
	}

	content := cmd.Content
	if message.Type == domain.TypeText {
		content = r.moderate(content)
	}
	updated, err := r.messages.UpdateContent(cmd.ID, content)
	if err != nil {
		return err
	}

	r.Fanout(ctx, event.Event{
		Type:      event.TypeMessageEdited,
		Rooms:     messageRooms(updated),
		Origin:    r.nodeName,
		CreatedAt: updated.CreatedAt,
		Payload:   event.MessageEdited{ID: updated.ID, Content: updated.Content},
	})
	return nil
}

// Delete hard-removes a message and fans out the bare identifier to its
// target and sender rooms. Deletion requires the requester to be the
// original sender; a mismatch is a silent no-op.
func (r *Router) Delete(ctx context.Context, cmd domain.DeleteMessageCommand) error {
	message, err := r.messages.Find(cmd.ID)
	if err != nil {
		r.log.Debug("Delete of unknown message ignored", "id", cmd.ID)
		return err
	}
	if message.Sender != cmd.Requester {
		r.log.Debug("Delete by non-sender ignored", "id", cmd.ID, "requester", cmd.Requester)
		return errors.ErrNotSender
	}

	removed, err := r.messages.Delete(cmd.ID)
	if err != nil {
		return err
	}

	r.Fanout(ctx, event.Event{
		Type:    event.TypeMessageDeleted,
		Rooms:   messageRooms(removed),
		Origin:  r.nodeName,
		Payload: event.MessageDeleted{ID: removed.ID},
	})
	return nil
}

// Typing relays a typing indicator to the target room without persistence.
// The sender's own connections never see it.
func (r *Router) Typing(ctx context.Context, cmd domain.TypingCommand) error {
	kind, err := r.resolveTarget(cmd.Target)
	if err != nil {
		return err
	}
	if kind == targetUnknown {
		return errors.ErrUnknownReceiver
	}

	r.Fanout(ctx, event.Event{
		Type:          event.TypeUserTyping,
		Rooms:         []domain.Room{domain.Room(cmd.Target)},
		ExcludeSender: cmd.Sender,
		Origin:        r.nodeName,
		Payload:       event.UserTyping{Sender: cmd.Sender, IsTyping: cmd.Typing},
	})
	return nil
}

// CallSignal is a pure relay: no persistence, fan-out to the callee's room only.
func (r *Router) CallSignal(ctx context.Context, cmd domain.CallSignalCommand) error {
	r.Fanout(ctx, event.Event{
		Type:    event.TypeIncomingCall,
		Rooms:   []domain.Room{domain.PersonalRoom(cmd.To)},
		Origin:  r.nodeName,
		Payload: event.IncomingCall{From: cmd.From, Payload: cmd.Payload},
	})
	return nil
}

// History reads the room-scoped message log, newest first, cursor-paged.
func (r *Router) History(cmd domain.HistoryCommand) ([]domain.Message, *string, error) {
	return r.messages.History(string(cmd.Room), cmd.Cursor)
}

// Fanout delivers one event to every subscribed connection, exactly once
// per connection. Locally-originated events are mirrored to the relay so
// other nodes can reach their own subscribers. An empty room list means
// broadcast to every live connection.
func (r *Router) Fanout(ctx context.Context, e event.Event) {
	var sinks []contract.EventSink
	if len(e.Rooms) == 0 {
		sinks = r.presence.Broadcast()
	} else {
		sinks = r.presence.SinksFor(e.Rooms, e.ExcludeSender)
	}

	for _, sink := range sinks {
		if err := sink.Consume(ctx, e); err != nil {
			// Slow or gone; skipping must not stall the other subscribers.
			r.monitoring.IncrDropped()
			r.log.Debug("Sink skipped during fan-out", "type", e.Type, "err", err)
			continue
		}
		r.monitoring.IncrDelivered()
	}

	if r.relay != nil && e.Origin == r.nodeName {
		if err := r.relay.Publish(ctx, e); err != nil {
			r.log.Warn("Relay publish failed", "type", e.Type, "err", err)
			return
		}
		r.monitoring.IncrRelayed()
	}
}

// InjectRemote re-delivers an event received from another node to local
// subscribers. Events this node originated are ignored to break the loop.
func (r *Router) InjectRemote(ctx context.Context, e event.Event) {
	if e.Origin == r.nodeName {
		return
	}
	r.Fanout(ctx, e)
}

// resolveTarget decides which namespace owns a receiver name. Entity first,
// then user; creation-time uniqueness guarantees at most one matches.
func (r *Router) resolveTarget(target string) (targetKind, error) {
	if _, err := r.entities.Find(target); err == nil {
		return targetEntity, nil
	} else if err != errors.ErrEntityNotFound {
		return targetUnknown, err
	}
	if _, err := r.users.FindUser(target); err == nil {
		return targetUser, nil
	} else if err != errors.ErrUserNotFound {
		return targetUnknown, err
	}
	return targetUnknown, nil
}

func (r *Router) moderate(content string) string {
	if r.moderator == nil {
		return content
	}
	masked, hits := r.moderator.Censor(content)
	if hits > 0 {
		info := whatlanggo.Detect(content)
		r.monitoring.IncrCensored()
		r.log.Debug("Censored message content", "hits", hits, "lang", info.Lang.Iso6391())
	}
	return masked
}

// messageRooms lists the rooms a message event must reach: the target room,
// and the sender's personal room so the sender's other devices see the
// outgoing message. SinksFor dedupes connections subscribed to both.
func messageRooms(message domain.Message) []domain.Room {
	rooms := []domain.Room{domain.Room(message.Target)}
	if message.Target != message.Sender {
		rooms = append(rooms, domain.PersonalRoom(message.Sender))
	}
	return rooms
}
