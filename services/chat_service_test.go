package services

import (
	"context"
	"log/slog"
	"testing"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/jasurbek-jolanboyev/safechat.uz/domain"
	"github.com/jasurbek-jolanboyev/safechat.uz/domain/event"
	"github.com/jasurbek-jolanboyev/safechat.uz/observability"
	"github.com/jasurbek-jolanboyev/safechat.uz/repositories"
	"github.com/jasurbek-jolanboyev/safechat.uz/runtime"
)

type chatFixture struct {
	service  *ChatService
	registry *runtime.Registry
	users    repositories.IUserRepository
	entities repositories.IEntityRepository
}

func newChatFixture(t *testing.T) *chatFixture {
	t.Helper()
	db, err := badger.Open(badger.DefaultOptions(t.TempDir()).WithLoggingLevel(badger.ERROR))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	log := slog.Default()
	users := repositories.NewUserRepository(db)
	entities := repositories.NewEntityRepository(db)
	messages := repositories.NewMessageRepository(db, log, nil)
	registry := runtime.NewRegistry()

	router := runtime.NewRouter(
		log, users, entities, messages,
		registry, runtime.NewBlockFilter(users),
		nil, observability.NewMonitoring(), nil, "node-a", 0,
	)
	resolver := runtime.NewResolver(log, entities, registry)
	manager := runtime.NewEntityManager(log, entities, registry, router, runtime.NotifyCreatorOnly)

	return &chatFixture{
		service:  NewChatService(log, users, registry, resolver, router, manager),
		registry: registry,
		users:    users,
		entities: entities,
	}
}

type noopSink struct{}

func (noopSink) Consume(_ context.Context, _ event.Event) error { return nil }

func Test_Join_Subscribes_And_Sets_Online(t *testing.T) {
	req := require.New(t)
	f := newChatFixture(t)
	_, err := f.users.CreateUser("alice", "hash")
	req.NoError(err)
	_, err = f.entities.Create("devs", domain.KindGroup, "alice")
	req.NoError(err)

	// When alice connects
	connID := uuid.New()
	req.NoError(f.service.Join("alice", connID, noopSink{}))

	// Then her connection listens to her personal room and memberships
	req.Len(f.registry.MembersOf(domain.PersonalRoom("alice")), 1)
	req.Len(f.registry.MembersOf(domain.EntityRoom("devs")), 1)

	// And her stored record is flagged online
	user, err := f.users.FindUser("alice")
	req.NoError(err)
	req.True(user.Online)
}

func Test_Join_Without_User_Record(t *testing.T) {
	req := require.New(t)
	f := newChatFixture(t)

	// A guest identity can join; only the online flag is skipped
	connID := uuid.New()
	req.NoError(f.service.Join("guest", connID, noopSink{}))
	req.Len(f.registry.MembersOf(domain.PersonalRoom("guest")), 1)
}

func Test_Leave_Last_Device_Clears_Online(t *testing.T) {
	req := require.New(t)
	f := newChatFixture(t)
	_, err := f.users.CreateUser("alice", "hash")
	req.NoError(err)

	phone, laptop := uuid.New(), uuid.New()
	req.NoError(f.service.Join("alice", phone, noopSink{}))
	req.NoError(f.service.Join("alice", laptop, noopSink{}))

	// When only one device disconnects she stays online
	f.service.Leave(phone, "alice")
	user, err := f.users.FindUser("alice")
	req.NoError(err)
	req.True(user.Online)

	// When the last device disconnects she goes offline
	f.service.Leave(laptop, "alice")
	user, err = f.users.FindUser("alice")
	req.NoError(err)
	req.False(user.Online)
	req.Empty(f.registry.ConnectionsOf("alice"))
}
