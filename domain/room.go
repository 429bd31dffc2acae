package domain

// Room is a logical fan-out channel, not a stored record. Its name equals a
// User identity (personal room) or an Entity name (group/channel room).
// Connections subscribe to rooms; subscriptions are ephemeral and rebuilt
// on every connect.
type Room string

// PersonalRoom is the room every identity implicitly owns.
func PersonalRoom(identity string) Room { return Room(identity) }

// EntityRoom is the room backing a group or channel.
func EntityRoom(name string) Room { return Room(name) }
