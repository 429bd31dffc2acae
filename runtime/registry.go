package runtime

import (
	"sync"

	"github.com/google/uuid"

	"github.com/jasurbek-jolanboyev/safechat.uz/contract"
	"github.com/jasurbek-jolanboyev/safechat.uz/domain"
)

type connSet map[uuid.UUID]struct{}

// Registry is the process-local presence table: which connections are open,
// which identity owns each one, and which rooms each one listens to. An
// identity may own several concurrent connections (multi-device); fan-out
// reaches all of them. Nothing here is persisted; the state's lifetime is
// the process's.
type Registry struct {
	mu            sync.RWMutex
	sinks         map[uuid.UUID]contract.EventSink
	connIdentity  map[uuid.UUID]string
	identityConns map[string]connSet
	roomConns     map[domain.Room]connSet
	connRooms     map[uuid.UUID]map[domain.Room]struct{}
}

func NewRegistry() *Registry {
	return &Registry{
		sinks:         make(map[uuid.UUID]contract.EventSink),
		connIdentity:  make(map[uuid.UUID]string),
		identityConns: make(map[string]connSet),
		roomConns:     make(map[domain.Room]connSet),
		connRooms:     make(map[uuid.UUID]map[domain.Room]struct{}),
	}
}

// Register records a new live connection for an identity. The connection
// starts with no room subscriptions; the membership resolver adds them.
func (r *Registry) Register(identity string, connID uuid.UUID, sink contract.EventSink) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.sinks[connID] = sink
	r.connIdentity[connID] = identity
	if _, ok := r.identityConns[identity]; !ok {
		r.identityConns[identity] = make(connSet)
	}
	r.identityConns[identity][connID] = struct{}{}
	r.connRooms[connID] = make(map[domain.Room]struct{})
}

// Unregister removes a connection and every subscription it held, in one
// step. No other component needs to clean up after a disconnect, and no
// empty sets are left behind to leak over time.
func (r *Registry) Unregister(connID uuid.UUID) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for room := range r.connRooms[connID] {
		if members, ok := r.roomConns[room]; ok {
			delete(members, connID)
			if len(members) == 0 {
				delete(r.roomConns, room)
			}
		}
	}
	delete(r.connRooms, connID)

	if identity, ok := r.connIdentity[connID]; ok {
		if conns, ok := r.identityConns[identity]; ok {
			delete(conns, connID)
			if len(conns) == 0 {
				delete(r.identityConns, identity)
			}
		}
	}
	delete(r.connIdentity, connID)
	delete(r.sinks, connID)
}

// ConnectionsOf lists the live connections owned by an identity.
func (r *Registry) ConnectionsOf(identity string) []uuid.UUID {
	r.mu.RLock()
	defer r.mu.RUnlock()

	conns := make([]uuid.UUID, 0, len(r.identityConns[identity]))
	for connID := range r.identityConns[identity] {
		conns = append(conns, connID)
	}
	return conns
}

// Subscribe adds one connection to a room. Subscribing an unknown
// connection is ignored: the connection dropped while the caller was
// resolving membership, and its subscriptions must not be resurrected.
func (r *Registry) Subscribe(connID uuid.UUID, room domain.Room) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.subscribeLocked(connID, room)
}

func (r *Registry) subscribeLocked(connID uuid.UUID, room domain.Room) {
	rooms, ok := r.connRooms[connID]
	if !ok {
		return
	}
	rooms[room] = struct{}{}
	if _, ok := r.roomConns[room]; !ok {
		r.roomConns[room] = make(connSet)
	}
	r.roomConns[room][connID] = struct{}{}
}

// Unsubscribe removes one connection from a room.
func (r *Registry) Unsubscribe(connID uuid.UUID, room domain.Room) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.unsubscribeLocked(connID, room)
}

func (r *Registry) unsubscribeLocked(connID uuid.UUID, room domain.Room) {
	if rooms, ok := r.connRooms[connID]; ok {
		delete(rooms, room)
	}
	if members, ok := r.roomConns[room]; ok {
		delete(members, connID)
		if len(members) == 0 {
			delete(r.roomConns, room)
		}
	}
}

// SubscribeIdentity subscribes every live connection of an identity to a
// room. Used on membership changes so already-connected devices start
// receiving the room without reconnecting.
func (r *Registry) SubscribeIdentity(identity string, room domain.Room) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for connID := range r.identityConns[identity] {
		r.subscribeLocked(connID, room)
	}
}

// UnsubscribeIdentity removes every live connection of an identity from a room.
func (r *Registry) UnsubscribeIdentity(identity string, room domain.Room) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for connID := range r.identityConns[identity] {
		r.unsubscribeLocked(connID, room)
	}
}

// MembersOf retrieves all active sinks subscribed to a room.
// Returns nil if the room has no live subscribers.
func (r *Registry) MembersOf(room domain.Room) []contract.EventSink {
	r.mu.RLock()
	defer r.mu.RUnlock()

	members, ok := r.roomConns[room]
	if !ok {
		return nil
	}
	sinks := make([]contract.EventSink, 0, len(members))
	for connID := range members {
		if sink, exists := r.sinks[connID]; exists {
			sinks = append(sinks, sink)
		}
	}
	return sinks
}

// SinksFor resolves the delivery set for an event spanning several rooms.
// A connection subscribed to more than one of the rooms appears exactly
// once, so no subscriber ever receives a duplicate. Connections owned by
// excludeIdentity are skipped (typing indicators are not echoed).
func (r *Registry) SinksFor(rooms []domain.Room, excludeIdentity string) []contract.EventSink {
	r.mu.RLock()
	defer r.mu.RUnlock()

	seen := make(connSet)
	var sinks []contract.EventSink
	for _, room := range rooms {
		for connID := range r.roomConns[room] {
			if _, dup := seen[connID]; dup {
				continue
			}
			if excludeIdentity != "" && r.connIdentity[connID] == excludeIdentity {
				continue
			}
			seen[connID] = struct{}{}
			if sink, ok := r.sinks[connID]; ok {
				sinks = append(sinks, sink)
			}
		}
	}
	return sinks
}

// Broadcast returns every live sink, one per connection.
func (r *Registry) Broadcast() []contract.EventSink {
	r.mu.RLock()
	defer r.mu.RUnlock()

	sinks := make([]contract.EventSink, 0, len(r.sinks))
	for _, sink := range r.sinks {
		sinks = append(sinks, sink)
	}
	return sinks
}
