// Package event defines the fan-out payloads the router emits towards
// subscribed connections. Event names follow the socket protocol of the
// outer system; payload shapes are what the gateway serializes verbatim.
package event

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/jasurbek-jolanboyev/safechat.uz/domain"
)

type Type string

const (
	TypeReceiveMessage Type = "receive_message"
	TypeMessageEdited  Type = "message_edited"
	TypeMessageDeleted Type = "message_deleted"
	TypeUserTyping     Type = "user_typing"
	TypeIncomingCall   Type = "incoming_call"
	TypeEntityCreated  Type = "entity_created"
	TypeMemberAdded    Type = "member_added"
	TypeMemberLeft     Type = "member_left"

	// Direct responses, sent to the requesting connection only.
	TypeJoined      Type = "joined"
	TypeHistoryPage Type = "history_page"
	TypeEntityError Type = "entity_error"
)

// Event is one logical delivery unit. Rooms lists every room the payload
// must reach; a connection subscribed to several of them still receives the
// event exactly once. ExcludeSender suppresses echo to the named identity's
// own connections (typing indicators). Origin identifies the emitting node
// so a cross-node relay never re-publishes what it received.
type Event struct {
	Type          Type          `json:"type"`
	Rooms         []domain.Room `json:"rooms"`
	ExcludeSender string        `json:"exclude_sender,omitempty"`
	Origin        string        `json:"origin,omitempty"`
	CreatedAt     time.Time     `json:"created_at"`
	Payload       any           `json:"payload"`
}

type MessageReceived struct {
	Message domain.Message `json:"message"`
}

type MessageEdited struct {
	ID      uuid.UUID `json:"id"`
	Content string    `json:"content"`
}

type MessageDeleted struct {
	ID uuid.UUID `json:"id"`
}

type UserTyping struct {
	Sender   string `json:"sender"`
	IsTyping bool   `json:"is_typing"`
}

type IncomingCall struct {
	From    string          `json:"from"`
	Payload json.RawMessage `json:"payload"`
}

type EntityCreated struct {
	Name    string      `json:"name"`
	Kind    domain.Kind `json:"type"`
	Creator string      `json:"creator"`
}

type MemberAdded struct {
	Entity   string `json:"group"`
	Username string `json:"username"`
}

type MemberLeft struct {
	Entity   string `json:"group"`
	Username string `json:"username"`
}

type Joined struct {
	Username string `json:"username"`
}

type EntityError struct {
	Name    string `json:"name"`
	Message string `json:"message"`
}

type HistoryPage struct {
	Room     domain.Room      `json:"room"`
	Messages []domain.Message `json:"messages"`
	Cursor   *string          `json:"cursor,omitempty"`
}
