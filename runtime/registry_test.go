package runtime

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/jasurbek-jolanboyev/safechat.uz/domain"
	"github.com/jasurbek-jolanboyev/safechat.uz/domain/event"
)

// captureSink records every consumed event, for assertions on fan-out.
type captureSink struct {
	mu     sync.Mutex
	events []event.Event
	fail   error
}

func (s *captureSink) Consume(_ context.Context, e event.Event) error {
	if s.fail != nil {
		return s.fail
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, e)
	return nil
}

func (s *captureSink) received() []event.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]event.Event(nil), s.events...)
}

func Test_Registry_Register_And_Subscribe(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	connID := uuid.New()
	sink := &captureSink{}

	// Given a registered connection
	registry.Register("alice", connID, sink)

	// When it subscribes a room
	registry.Subscribe(connID, domain.Room("team"))

	// Then it is the room's only member
	sinks := registry.MembersOf(domain.Room("team"))
	req.Len(sinks, 1)
	req.Same(sink, sinks[0].(*captureSink))
}

func Test_Registry_Multi_Device_Same_Identity(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	phone, laptop := uuid.New(), uuid.New()

	// Given alice connected twice
	registry.Register("alice", phone, &captureSink{})
	registry.Register("alice", laptop, &captureSink{})
	registry.Subscribe(phone, domain.Room("team"))
	registry.Subscribe(laptop, domain.Room("team"))

	// Then both devices are tracked and both receive the room
	req.Len(registry.ConnectionsOf("alice"), 2)
	req.Len(registry.MembersOf(domain.Room("team")), 2)
}

func Test_Registry_SinksFor_Deduplicates_Across_Rooms(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	connID := uuid.New()

	// Given one connection subscribed to both rooms of a message event
	registry.Register("alice", connID, &captureSink{})
	registry.Subscribe(connID, domain.Room("team"))
	registry.Subscribe(connID, domain.Room("alice"))

	// When the delivery set spans both rooms
	sinks := registry.SinksFor([]domain.Room{domain.Room("team"), domain.Room("alice")}, "")

	// Then the connection appears exactly once
	req.Len(sinks, 1)
}

func Test_Registry_SinksFor_Excludes_Identity(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	aliceConn, bobConn := uuid.New(), uuid.New()
	bobSink := &captureSink{}

	registry.Register("alice", aliceConn, &captureSink{})
	registry.Register("bob", bobConn, bobSink)
	registry.Subscribe(aliceConn, domain.Room("team"))
	registry.Subscribe(bobConn, domain.Room("team"))

	// When alice is excluded (typing indicator semantics)
	sinks := registry.SinksFor([]domain.Room{domain.Room("team")}, "alice")

	// Then only bob's connection remains
	req.Len(sinks, 1)
	req.Same(bobSink, sinks[0].(*captureSink))
}

func Test_Registry_Unregister_Cleans_Everything(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	connID := uuid.New()

	registry.Register("alice", connID, &captureSink{})
	registry.Subscribe(connID, domain.Room("team"))
	registry.Subscribe(connID, domain.Room("alice"))

	// When the connection drops
	registry.Unregister(connID)

	// Then no trace remains anywhere
	req.Empty(registry.ConnectionsOf("alice"))
	req.Nil(registry.MembersOf(domain.Room("team")))
	req.Nil(registry.MembersOf(domain.Room("alice")))
	req.Empty(registry.Broadcast())
}

func Test_Registry_Subscribe_Unknown_Connection_Ignored(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	connID := uuid.New()

	registry.Register("alice", connID, &captureSink{})
	registry.Unregister(connID)

	// When a stale caller subscribes the dropped connection
	registry.Subscribe(connID, domain.Room("team"))

	// Then nothing is resurrected
	req.Nil(registry.MembersOf(domain.Room("team")))
}

func Test_Registry_SubscribeIdentity_Hits_All_Devices(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	phone, laptop := uuid.New(), uuid.New()

	registry.Register("alice", phone, &captureSink{})
	registry.Register("alice", laptop, &captureSink{})

	// When alice is added to a group while connected
	registry.SubscribeIdentity("alice", domain.Room("devs"))

	// Then both live devices start receiving the room
	req.Len(registry.MembersOf(domain.Room("devs")), 2)

	// And leaving removes both
	registry.UnsubscribeIdentity("alice", domain.Room("devs"))
	req.Nil(registry.MembersOf(domain.Room("devs")))
}
