package runtime

import (
	"context"
	"fmt"
	"log/slog"
	"testing"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/jasurbek-jolanboyev/safechat.uz/domain"
	"github.com/jasurbek-jolanboyev/safechat.uz/domain/event"
	"github.com/jasurbek-jolanboyev/safechat.uz/errors"
	"github.com/jasurbek-jolanboyev/safechat.uz/mocks"
	"github.com/jasurbek-jolanboyev/safechat.uz/observability"
	"github.com/jasurbek-jolanboyev/safechat.uz/repositories"
)

type routerFixture struct {
	router     *Router
	registry   *Registry
	users      repositories.IUserRepository
	entities   repositories.IEntityRepository
	messages   repositories.IMessageRepository
	monitoring *observability.Monitoring
}

func newRouterFixture(t *testing.T) *routerFixture {
	t.Helper()
	db, err := badger.Open(badger.DefaultOptions(t.TempDir()).WithLoggingLevel(badger.ERROR))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	users := repositories.NewUserRepository(db)
	entities := repositories.NewEntityRepository(db)
	messages := repositories.NewMessageRepository(db, slog.Default(), nil)
	registry := NewRegistry()
	monitoring := observability.NewMonitoring()

	router := NewRouter(
		slog.Default(), users, entities, messages,
		registry, NewBlockFilter(users),
		nil, monitoring, nil, "node-a", 0,
	)
	return &routerFixture{
		router:     router,
		registry:   registry,
		users:      users,
		entities:   entities,
		messages:   messages,
		monitoring: monitoring,
	}
}

// connect registers a connection and subscribes it to the given rooms.
func (f *routerFixture) connect(identity string, rooms ...domain.Room) *captureSink {
	sink := &captureSink{}
	connID := uuid.New()
	f.registry.Register(identity, connID, sink)
	for _, room := range rooms {
		f.registry.Subscribe(connID, room)
	}
	return sink
}

func Test_Send_Persists_Then_Delivers_To_All_Devices(t *testing.T) {
	req := require.New(t)
	f := newRouterFixture(t)
	_, err := f.users.CreateUser("alice", "hash")
	req.NoError(err)
	_, err = f.users.CreateUser("bob", "hash")
	req.NoError(err)

	// Given bob on two devices and alice's own device
	bobPhone := f.connect("bob", domain.PersonalRoom("bob"))
	bobLaptop := f.connect("bob", domain.PersonalRoom("bob"))
	aliceDevice := f.connect("alice", domain.PersonalRoom("alice"))

	// When alice messages bob
	message, err := f.router.Send(context.Background(), domain.SendMessageCommand{
		Sender: "alice", Target: "bob", Type: domain.TypeText, Content: "hello",
	})
	req.NoError(err)

	// Then every connection received exactly one enriched copy
	for _, sink := range []*captureSink{bobPhone, bobLaptop, aliceDevice} {
		events := sink.received()
		req.Len(events, 1)
		req.Equal(event.TypeReceiveMessage, events[0].Type)
		payload := events[0].Payload.(event.MessageReceived)
		req.Equal(message.ID, payload.Message.ID)
		req.Equal(message.CreatedAt, payload.Message.CreatedAt)
		req.Equal("hello", payload.Message.Content)
	}

	// And the message survived the fan-out
	fetched, err := f.messages.Find(message.ID)
	req.NoError(err)
	req.Equal(message, fetched)
}

func Test_Send_Blocked_Is_Silent_And_Unpersisted(t *testing.T) {
	req := require.New(t)
	f := newRouterFixture(t)
	_, err := f.users.CreateUser("alice", "hash")
	req.NoError(err)
	_, err = f.users.CreateUser("bob", "hash")
	req.NoError(err)
	req.NoError(f.users.Block("bob", "alice"))

	bobDevice := f.connect("bob", domain.PersonalRoom("bob"))
	aliceDevice := f.connect("alice", domain.PersonalRoom("alice"))

	// When the blocked sender writes
	_, err = f.router.Send(context.Background(), domain.SendMessageCommand{
		Sender: "alice", Target: "bob", Type: domain.TypeText, Content: "let me in",
	})

	// Then the outcome is the silent sentinel, nobody saw anything and
	// nothing was stored
	req.ErrorIs(err, errors.ErrDeliveryBlocked)
	req.Empty(bobDevice.received())
	req.Empty(aliceDevice.received())

	messages, _, err := f.messages.History("bob", nil)
	req.NoError(err)
	req.Empty(messages)
	req.Equal(uint64(1), f.monitoring.GetLatest().MessagesBlocked)
}

func Test_Send_Reverse_Block_Still_Delivers(t *testing.T) {
	req := require.New(t)
	f := newRouterFixture(t)
	_, err := f.users.CreateUser("alice", "hash")
	req.NoError(err)
	_, err = f.users.CreateUser("bob", "hash")
	req.NoError(err)

	// Given alice blocked bob, not the other way round
	req.NoError(f.users.Block("alice", "bob"))
	bobDevice := f.connect("bob", domain.PersonalRoom("bob"))

	_, err = f.router.Send(context.Background(), domain.SendMessageCommand{
		Sender: "alice", Target: "bob", Type: domain.TypeText, Content: "hi",
	})

	req.NoError(err)
	req.Len(bobDevice.received(), 1)
}

func Test_Send_Unknown_Receiver(t *testing.T) {
	req := require.New(t)
	f := newRouterFixture(t)
	_, err := f.users.CreateUser("alice", "hash")
	req.NoError(err)

	_, err = f.router.Send(context.Background(), domain.SendMessageCommand{
		Sender: "alice", Target: "nobody", Type: domain.TypeText, Content: "hello?",
	})

	req.ErrorIs(err, errors.ErrUnknownReceiver)
}

func Test_Send_To_Entity_Delivers_Once_Per_Connection(t *testing.T) {
	req := require.New(t)
	f := newRouterFixture(t)
	_, err := f.users.CreateUser("alice", "hash")
	req.NoError(err)
	_, err = f.entities.Create("devs", domain.KindGroup, "alice")
	req.NoError(err)

	// Given alice's device subscribed to both the entity room and her own
	aliceDevice := f.connect("alice", domain.EntityRoom("devs"), domain.PersonalRoom("alice"))

	// When she posts to the group
	_, err = f.router.Send(context.Background(), domain.SendMessageCommand{
		Sender: "alice", Target: "devs", Type: domain.TypeText, Content: "standup?",
	})
	req.NoError(err)

	// Then the overlap of target room and sender room yields one delivery
	req.Len(aliceDevice.received(), 1)
}

func Test_Edit_By_Sender_FansOut(t *testing.T) {
	req := require.New(t)
	f := newRouterFixture(t)
	_, err := f.users.CreateUser("alice", "hash")
	req.NoError(err)
	_, err = f.users.CreateUser("bob", "hash")
	req.NoError(err)
	bobDevice := f.connect("bob", domain.PersonalRoom("bob"))

	message, err := f.router.Send(context.Background(), domain.SendMessageCommand{
		Sender: "alice", Target: "bob", Type: domain.TypeText, Content: "helo",
	})
	req.NoError(err)

	// When the sender edits
	err = f.router.Edit(context.Background(), domain.EditMessageCommand{
		ID: message.ID, Sender: "alice", Content: "hello",
	})
	req.NoError(err)

	// Then bob sees the original then the edit
	events := bobDevice.received()
	req.Len(events, 2)
	req.Equal(event.TypeMessageEdited, events[1].Type)
	payload := events[1].Payload.(event.MessageEdited)
	req.Equal(message.ID, payload.ID)
	req.Equal("hello", payload.Content)

	// And the store carries the edited flag
	fetched, err := f.messages.Find(message.ID)
	req.NoError(err)
	req.True(fetched.Edited)
}

func Test_Edit_By_Non_Sender_Is_Silent_Noop(t *testing.T) {
	req := require.New(t)
	f := newRouterFixture(t)
	_, err := f.users.CreateUser("alice", "hash")
	req.NoError(err)
	_, err = f.users.CreateUser("bob", "hash")
	req.NoError(err)
	bobDevice := f.connect("bob", domain.PersonalRoom("bob"))

	message, err := f.router.Send(context.Background(), domain.SendMessageCommand{
		Sender: "alice", Target: "bob", Type: domain.TypeText, Content: "original",
	})
	req.NoError(err)

	// When someone else tries to edit
	err = f.router.Edit(context.Background(), domain.EditMessageCommand{
		ID: message.ID, Sender: "mallory", Content: "tampered",
	})

	// Then the sentinel comes back and the record is untouched
	req.ErrorIs(err, errors.ErrNotSender)
	fetched, err := f.messages.Find(message.ID)
	req.NoError(err)
	req.Equal("original", fetched.Content)
	req.Len(bobDevice.received(), 1)
}

func Test_Delete_Requires_Original_Sender(t *testing.T) {
	req := require.New(t)
	f := newRouterFixture(t)
	_, err := f.users.CreateUser("alice", "hash")
	req.NoError(err)
	_, err = f.users.CreateUser("bob", "hash")
	req.NoError(err)
	bobDevice := f.connect("bob", domain.PersonalRoom("bob"))

	message, err := f.router.Send(context.Background(), domain.SendMessageCommand{
		Sender: "alice", Target: "bob", Type: domain.TypeText, Content: "oops",
	})
	req.NoError(err)

	// Even the receiver cannot delete it
	err = f.router.Delete(context.Background(), domain.DeleteMessageCommand{
		ID: message.ID, Requester: "bob",
	})
	req.ErrorIs(err, errors.ErrNotSender)

	// The sender can
	err = f.router.Delete(context.Background(), domain.DeleteMessageCommand{
		ID: message.ID, Requester: "alice",
	})
	req.NoError(err)

	events := bobDevice.received()
	req.Len(events, 2)
	req.Equal(event.TypeMessageDeleted, events[1].Type)
	req.Equal(message.ID, events[1].Payload.(event.MessageDeleted).ID)

	_, err = f.messages.Find(message.ID)
	req.ErrorIs(err, errors.ErrMessageNotFound)
}

func Test_Delete_Unknown_Message_Is_Silent(t *testing.T) {
	req := require.New(t)
	f := newRouterFixture(t)

	err := f.router.Delete(context.Background(), domain.DeleteMessageCommand{
		ID: uuid.New(), Requester: "alice",
	})

	req.ErrorIs(err, errors.ErrMessageNotFound)
}

func Test_Typing_Not_Echoed_To_Sender(t *testing.T) {
	req := require.New(t)
	f := newRouterFixture(t)
	_, err := f.entities.Create("devs", domain.KindGroup, "alice")
	req.NoError(err)

	aliceDevice := f.connect("alice", domain.EntityRoom("devs"))
	bobDevice := f.connect("bob", domain.EntityRoom("devs"))

	// When alice starts typing in the group
	err = f.router.Typing(context.Background(), domain.TypingCommand{
		Sender: "alice", Target: "devs", Typing: true,
	})
	req.NoError(err)

	// Then bob sees the indicator, alice's own devices do not
	req.Empty(aliceDevice.received())
	events := bobDevice.received()
	req.Len(events, 1)
	req.Equal(event.TypeUserTyping, events[0].Type)
	payload := events[0].Payload.(event.UserTyping)
	req.Equal("alice", payload.Sender)
	req.True(payload.IsTyping)

	// And nothing was persisted
	messages, _, err := f.messages.History("devs", nil)
	req.NoError(err)
	req.Empty(messages)
}

func Test_CallSignal_Reaches_Callee_Only(t *testing.T) {
	req := require.New(t)
	f := newRouterFixture(t)

	aliceDevice := f.connect("alice", domain.PersonalRoom("alice"))
	bobDevice := f.connect("bob", domain.PersonalRoom("bob"))

	err := f.router.CallSignal(context.Background(), domain.CallSignalCommand{
		From: "alice", To: "bob", Payload: []byte(`{"sdp":"offer"}`),
	})
	req.NoError(err)

	req.Empty(aliceDevice.received())
	events := bobDevice.received()
	req.Len(events, 1)
	req.Equal(event.TypeIncomingCall, events[0].Type)
	req.Equal("alice", events[0].Payload.(event.IncomingCall).From)
}

func Test_Send_Persistence_Failure_Means_No_Fanout(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	users := mocks.NewMockIUserRepository(ctrl)
	entities := mocks.NewMockIEntityRepository(ctrl)
	messages := mocks.NewMockIMessageRepository(ctrl)
	presence := mocks.NewMockIPresence(ctrl)

	entities.EXPECT().Find("bob").Return(domain.Entity{}, errors.ErrEntityNotFound)
	users.EXPECT().FindUser("bob").Return(domain.User{Name: "bob"}, nil)
	users.EXPECT().IsBlocked("bob", "alice").Return(false, nil)
	messages.EXPECT().Insert(gomock.Any()).Return(domain.Message{}, errors.ErrPersistence)
	// The presence registry must never be consulted
	presence.EXPECT().SinksFor(gomock.Any(), gomock.Any()).Times(0)
	presence.EXPECT().Broadcast().Times(0)

	router := NewRouter(
		slog.Default(), users, entities, messages,
		presence, NewBlockFilter(users),
		nil, observability.NewMonitoring(), nil, "node-a", 0,
	)

	_, err := router.Send(context.Background(), domain.SendMessageCommand{
		Sender: "alice", Target: "bob", Type: domain.TypeText, Content: "hello",
	})

	req.ErrorIs(err, errors.ErrPersistence)
}

func Test_Send_Rejects_Oversized_Content(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	users := mocks.NewMockIUserRepository(ctrl)
	entities := mocks.NewMockIEntityRepository(ctrl)
	messages := mocks.NewMockIMessageRepository(ctrl)
	presence := mocks.NewMockIPresence(ctrl)

	router := NewRouter(
		slog.Default(), users, entities, messages,
		presence, NewBlockFilter(users),
		nil, observability.NewMonitoring(), nil, "node-a", 8,
	)

	_, err := router.Send(context.Background(), domain.SendMessageCommand{
		Sender: "alice", Target: "bob", Type: domain.TypeText, Content: "way too long for the limit",
	})

	req.Error(err)
}

func Test_Fanout_Skips_Slow_Sink_And_Counts_Drop(t *testing.T) {
	req := require.New(t)
	f := newRouterFixture(t)

	slow := &captureSink{fail: errors.ErrSlowConsumer}
	healthy := &captureSink{}
	f.registry.Register("alice", uuid.New(), slow)
	f.registry.Register("bob", uuid.New(), healthy)
	for _, connID := range f.registry.ConnectionsOf("alice") {
		f.registry.Subscribe(connID, domain.Room("team"))
	}
	for _, connID := range f.registry.ConnectionsOf("bob") {
		f.registry.Subscribe(connID, domain.Room("team"))
	}

	f.router.Fanout(context.Background(), event.Event{
		Type:  event.TypeUserTyping,
		Rooms: []domain.Room{domain.Room("team")},
	})

	// Then the healthy sink got the event despite the slow one failing
	req.Len(healthy.received(), 1)
	snapshot := f.monitoring.GetLatest()
	req.Equal(uint64(1), snapshot.EventsDropped)
	req.Equal(uint64(1), snapshot.EventsDelivered)
}

func Test_Relay_Mirrors_Local_Events_Only(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	relayMock := mocks.NewMockIRelay(ctrl)
	registry := NewRegistry()

	router := NewRouter(
		slog.Default(), nil, nil, nil,
		registry, nil,
		nil, observability.NewMonitoring(), relayMock, "node-a", 0,
	)

	// A locally-originated event is published once
	relayMock.EXPECT().Publish(gomock.Any(), gomock.Any()).Return(nil).Times(1)
	router.Fanout(context.Background(), event.Event{
		Type: event.TypeUserTyping, Rooms: []domain.Room{domain.Room("team")}, Origin: "node-a",
	})

	// A relayed event from another node is delivered but never re-published
	sink := &captureSink{}
	connID := uuid.New()
	registry.Register("bob", connID, sink)
	registry.Subscribe(connID, domain.Room("team"))

	router.InjectRemote(context.Background(), event.Event{
		Type: event.TypeUserTyping, Rooms: []domain.Room{domain.Room("team")}, Origin: "node-b",
	})
	req.Len(sink.received(), 1)

	// And an event that bounced back with our own origin is ignored
	router.InjectRemote(context.Background(), event.Event{
		Type: event.TypeUserTyping, Rooms: []domain.Room{domain.Room("team")}, Origin: "node-a",
	})
	req.Len(sink.received(), 1)
}

func Test_History_Delegates_To_Store(t *testing.T) {
	req := require.New(t)
	f := newRouterFixture(t)
	_, err := f.users.CreateUser("alice", "hash")
	req.NoError(err)
	_, err = f.users.CreateUser("bob", "hash")
	req.NoError(err)

	for i := 0; i < 3; i++ {
		_, err := f.router.Send(context.Background(), domain.SendMessageCommand{
			Sender: "alice", Target: "bob", Type: domain.TypeText, Content: fmt.Sprintf("msg %d", i),
		})
		req.NoError(err)
	}

	messages, _, err := f.router.History(domain.HistoryCommand{Room: domain.Room("bob")})
	req.NoError(err)
	req.Len(messages, 3)
	req.Equal("msg 2", messages[0].Content)
}
