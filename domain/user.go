// Package domain contains core concepts of the chat system.
// This file defines User records and blocking invariants.
package domain

import "time"

// User is the durable identity record. The block list is directional and
// owned by the blocking party: Blocked lists the identities this user
// refuses personal messages from. It is stored as per-pair keys in the
// directory store, not embedded here; this struct only carries the fields
// the router reads.
type User struct {
	Name         string    `json:"username"`
	PasswordHash string    `json:"-"`
	Online       bool      `json:"is_online"`
	CreatedAt    time.Time `json:"created_at"`
}
