// Package gateway is the WebSocket edge: it upgrades connections, decodes
// the JSON envelope protocol, validates payloads and hands commands to the
// chat service. Per-connection inbound frames are dispatched synchronously
// from the read loop, so one sender's operations are applied in the order
// they were sent.
package gateway

import (
	"encoding/json"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/jasurbek-jolanboyev/safechat.uz/domain/event"
)

var validate = validator.New()

// Envelope is the wire frame in both directions: an event name plus its
// payload, kept raw until the event name tells us which struct to decode.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// Inbound event names.
const (
	evJoin         = "join"
	evSendMessage  = "send_message"
	evEditMessage  = "edit_message"
	evDeleteMsg    = "delete_message"
	evTypingStart  = "typing_start"
	evTypingStop   = "typing_stop"
	evCallSignal   = "call_signal"
	evCreateEntity = "create_entity"
	evAddMember    = "add_member"
	evLeaveEntity  = "leave_entity"
	evHistory      = "history"
	evBlockUser    = "block_user"
	evUnblockUser  = "unblock_user"
)

type joinPayload struct {
	Username string `json:"username" validate:"required,min=2,max=32"`
	Token    string `json:"token"`
}

type sendMessagePayload struct {
	Receiver string     `json:"receiver" validate:"required"`
	Type     string     `json:"type" validate:"omitempty,oneof=text image video file location"`
	Content  string     `json:"content" validate:"required"`
	ReplyTo  *uuid.UUID `json:"reply_to"`
}

type editMessagePayload struct {
	ID      uuid.UUID `json:"id" validate:"required"`
	Content string    `json:"content" validate:"required"`
}

type deleteMessagePayload struct {
	ID uuid.UUID `json:"id" validate:"required"`
}

type typingPayload struct {
	Receiver string `json:"receiver" validate:"required"`
}

type callSignalPayload struct {
	To      string          `json:"to" validate:"required"`
	Payload json.RawMessage `json:"payload" validate:"required"`
}

type createEntityPayload struct {
	Name string `json:"name" validate:"required,min=2,max=64"`
	Kind string `json:"type" validate:"required,oneof=group channel"`
}

// The wire protocol calls the entity field "group" for groups and channels
// alike, matching the member_added and member_left payloads.
type membershipPayload struct {
	Entity   string `json:"group" validate:"required"`
	Username string `json:"username" validate:"required"`
}

type leaveEntityPayload struct {
	Entity string `json:"group" validate:"required"`
}

type historyPayload struct {
	Room   string  `json:"room" validate:"required"`
	Cursor *string `json:"cursor"`
}

type blockPayload struct {
	Username string `json:"username" validate:"required"`
}

type errorPayload struct {
	Message string `json:"message"`
}

// decodeEnvelope parses a raw frame into the outer envelope.
func decodeEnvelope(raw []byte, env *Envelope) error {
	if err := json.Unmarshal(raw, env); err != nil {
		return err
	}
	if env.Event == "" {
		return fmt.Errorf("missing event name")
	}
	return nil
}

// decode unmarshals an envelope payload and applies its validation tags.
func decode[T any](data json.RawMessage, out *T) error {
	if err := json.Unmarshal(data, out); err != nil {
		return err
	}
	return validate.Struct(out)
}

// encodeEvent renders a routed event as an outbound frame.
func encodeEvent(e event.Event) ([]byte, error) {
	data, err := json.Marshal(e.Payload)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Envelope{Event: string(e.Type), Data: data})
}

// encodeError renders a per-connection error frame. Only the originating
// connection ever sees these.
func encodeError(message string) []byte {
	data, _ := json.Marshal(errorPayload{Message: message})
	frame, _ := json.Marshal(Envelope{Event: "error", Data: data})
	return frame
}
