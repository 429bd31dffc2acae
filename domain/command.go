package domain

import "github.com/google/uuid"

// Commands are the validated inputs the router accepts from the gateway.
// They carry client intent only; identifiers and timestamps are assigned
// during persistence.

type SendMessageCommand struct {
	Sender  string
	Target  string
	Type    MessageType
	Content string
	ReplyTo *uuid.UUID
}

type EditMessageCommand struct {
	ID      uuid.UUID
	Sender  string
	Content string
}

type DeleteMessageCommand struct {
	ID        uuid.UUID
	Requester string
}

type TypingCommand struct {
	Sender string
	Target string
	Typing bool
}

type CallSignalCommand struct {
	From    string
	To      string
	Payload []byte
}

type CreateEntityCommand struct {
	Name    string
	Kind    Kind
	Creator string
}

type MembershipCommand struct {
	Entity   string
	Username string
}

type HistoryCommand struct {
	Room   Room
	Cursor *string
}
