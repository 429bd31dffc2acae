// Package domain contains core concepts of the chat system.
// This file defines Message records and related rules.
// No runtime, network, or UI logic should be added here.
package domain

import (
	"time"

	"github.com/google/uuid"
)

// MessageType tags the content payload. The tag is declared by the sender;
// the router never sniffs content.
type MessageType string

const (
	TypeText     MessageType = "text"
	TypeImage    MessageType = "image"
	TypeVideo    MessageType = "video"
	TypeFile     MessageType = "file"
	TypeLocation MessageType = "location"
)

// Message is a persisted chat event. The identifier and creation timestamp
// are assigned by the directory store on insert, never by the client.
// Editing mutates Content and sets Edited; it never changes ID or Sender.
// Deletion is terminal and leaves no tombstone.
type Message struct {
	ID        uuid.UUID   `json:"id"`
	Sender    string      `json:"sender"`
	Target    string      `json:"receiver"`
	Type      MessageType `json:"type"`
	Content   string      `json:"content"`
	ReplyTo   *uuid.UUID  `json:"reply_to,omitempty"`
	Edited    bool        `json:"edited"`
	CreatedAt time.Time   `json:"timestamp"`
}
