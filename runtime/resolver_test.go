package runtime

import (
	"log/slog"
	"testing"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/jasurbek-jolanboyev/safechat.uz/domain"
	"github.com/jasurbek-jolanboyev/safechat.uz/repositories"
)

func newResolverFixture(t *testing.T) (*Resolver, *Registry, repositories.IEntityRepository) {
	t.Helper()
	db, err := badger.Open(badger.DefaultOptions(t.TempDir()).WithLoggingLevel(badger.ERROR))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	entities := repositories.NewEntityRepository(db)
	registry := NewRegistry()
	return NewResolver(slog.Default(), entities, registry), registry, entities
}

func Test_RoomsFor_Personal_Room_Only(t *testing.T) {
	req := require.New(t)
	resolver, _, _ := newResolverFixture(t)

	// A member of nothing still owns their personal room
	rooms, err := resolver.RoomsFor("alice")

	req.NoError(err)
	req.Equal([]domain.Room{domain.PersonalRoom("alice")}, rooms)
}

func Test_RoomsFor_Includes_Memberships(t *testing.T) {
	req := require.New(t)
	resolver, _, entities := newResolverFixture(t)

	_, err := entities.Create("devs", domain.KindGroup, "alice")
	req.NoError(err)
	_, err = entities.Create("news", domain.KindChannel, "alice")
	req.NoError(err)

	rooms, err := resolver.RoomsFor("alice")

	req.NoError(err)
	req.Len(rooms, 3)
	req.Contains(rooms, domain.PersonalRoom("alice"))
	req.Contains(rooms, domain.EntityRoom("devs"))
	req.Contains(rooms, domain.EntityRoom("news"))
}

func Test_SubscribeConnection_On_Connect(t *testing.T) {
	req := require.New(t)
	resolver, registry, entities := newResolverFixture(t)

	_, err := entities.Create("devs", domain.KindGroup, "alice")
	req.NoError(err)

	// Given a freshly registered connection
	connID := uuid.New()
	registry.Register("alice", connID, &captureSink{})

	// When the resolver subscribes it
	req.NoError(resolver.SubscribeConnection("alice", connID))

	// Then the connection listens to both its rooms
	req.Len(registry.MembersOf(domain.PersonalRoom("alice")), 1)
	req.Len(registry.MembersOf(domain.EntityRoom("devs")), 1)
}
