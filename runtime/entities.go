package runtime

import (
	"context"
	"log/slog"

	"github.com/jasurbek-jolanboyev/safechat.uz/contract"
	"github.com/jasurbek-jolanboyev/safechat.uz/domain"
	"github.com/jasurbek-jolanboyev/safechat.uz/domain/event"
	"github.com/jasurbek-jolanboyev/safechat.uz/repositories"
)

// NotifyPolicy selects who learns about a freshly created entity.
type NotifyPolicy string

const (
	// NotifyCreatorOnly confines the creation event to the creator's room.
	NotifyCreatorOnly NotifyPolicy = "creator_only"
	// NotifyAllConnected broadcasts the creation event to every live connection.
	NotifyAllConnected NotifyPolicy = "all_connected"
)

// EntityManager owns the lifecycle of groups and channels: creation,
// membership changes, and the live-subscription updates that keep already
// connected devices in sync without a reconnect.
type EntityManager struct {
	log      *slog.Logger
	entities repositories.IEntityRepository
	presence contract.IPresence
	router   *Router
	policy   NotifyPolicy
}

func NewEntityManager(
	log *slog.Logger,
	entities repositories.IEntityRepository,
	presence contract.IPresence,
	router *Router,
	policy NotifyPolicy,
) *EntityManager {
	if policy == "" {
		policy = NotifyCreatorOnly
	}
	return &EntityManager{
		log:      log,
		entities: entities,
		presence: presence,
		router:   router,
		policy:   policy,
	}
}

// Create registers a new group or channel with the creator as sole admin
// member. The name must be free in the shared user/entity namespace;
// ErrNameTaken is surfaced to the caller, it is not a silent outcome.
// The creator's live connections are subscribed to the new room at once.
func (m *EntityManager) Create(ctx context.Context, cmd domain.CreateEntityCommand) (domain.Entity, error) {
	entity, err := m.entities.Create(cmd.Name, cmd.Kind, cmd.Creator)
	if err != nil {
		return domain.Entity{}, err
	}

	m.presence.SubscribeIdentity(cmd.Creator, domain.EntityRoom(entity.Name))
	m.log.Info("Entity created", "name", entity.Name, "kind", entity.Kind, "creator", entity.Creator)

	e := event.Event{
		Type:      event.TypeEntityCreated,
		Origin:    m.router.nodeName,
		CreatedAt: entity.CreatedAt,
		Payload:   event.EntityCreated{Name: entity.Name, Kind: entity.Kind, Creator: entity.Creator},
	}
	if m.policy == NotifyCreatorOnly {
		e.Rooms = []domain.Room{domain.PersonalRoom(cmd.Creator)}
	}
	m.router.Fanout(ctx, e)
	return entity, nil
}

// AddMember adds a user to an entity as a plain member. Adding someone who
// already belongs is a no-op with no event, so retries and duplicate client
// requests never produce duplicate member_added notifications. An unknown
// entity is a silent drop for the caller's peers; the error still reaches
// the originating connection.
func (m *EntityManager) AddMember(ctx context.Context, cmd domain.MembershipCommand) error {
	added, err := m.entities.AppendMember(cmd.Entity, cmd.Username)
	if err != nil {
		return err
	}
	if !added {
		m.log.Debug("Member already present", "entity", cmd.Entity, "username", cmd.Username)
		return nil
	}

	// If the user is online right now, their devices start receiving the
	// room immediately; offline devices catch up via the resolver on
	// reconnect.
	m.presence.SubscribeIdentity(cmd.Username, domain.EntityRoom(cmd.Entity))
	m.log.Info("Member added", "entity", cmd.Entity, "username", cmd.Username)

	m.router.Fanout(ctx, event.Event{
		Type:    event.TypeMemberAdded,
		Rooms:   []domain.Room{domain.EntityRoom(cmd.Entity)},
		Origin:  m.router.nodeName,
		Payload: event.MemberAdded{Entity: cmd.Entity, Username: cmd.Username},
	})
	return nil
}

// Leave removes a user from an entity and unsubscribes their live
// connections before the departure event fans out, so the leaver does not
// receive their own member_left notification through the entity room.
func (m *EntityManager) Leave(ctx context.Context, cmd domain.MembershipCommand) error {
	if err := m.entities.RemoveMember(cmd.Entity, cmd.Username); err != nil {
		return err
	}

	m.presence.UnsubscribeIdentity(cmd.Username, domain.EntityRoom(cmd.Entity))
	m.log.Info("Member left", "entity", cmd.Entity, "username", cmd.Username)

	m.router.Fanout(ctx, event.Event{
		Type:    event.TypeMemberLeft,
		Rooms:   []domain.Room{domain.EntityRoom(cmd.Entity)},
		Origin:  m.router.nodeName,
		Payload: event.MemberLeft{Entity: cmd.Entity, Username: cmd.Username},
	})
	return nil
}
