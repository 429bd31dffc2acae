package runtime

import (
	"log/slog"

	"github.com/google/uuid"
	"github.com/samber/lo"

	"github.com/jasurbek-jolanboyev/safechat.uz/contract"
	"github.com/jasurbek-jolanboyev/safechat.uz/domain"
	"github.com/jasurbek-jolanboyev/safechat.uz/repositories"
)

// Resolver computes the room set an identity must be subscribed to: its own
// personal room plus one room per entity it belongs to. It is consulted on
// every connect; membership changes while connected are pushed directly to
// the registry by the entity manager, so stale subscriptions only ever last
// until the next reconnect of an offline device.
type Resolver struct {
	log      *slog.Logger
	entities repositories.IEntityRepository
	presence contract.IPresence
}

func NewResolver(log *slog.Logger, entities repositories.IEntityRepository, presence contract.IPresence) *Resolver {
	return &Resolver{log: log, entities: entities, presence: presence}
}

// RoomsFor returns {identity} ∪ {entity.name : identity ∈ entity.members}.
func (r *Resolver) RoomsFor(identity string) ([]domain.Room, error) {
	names, err := r.entities.EntitiesContaining(identity)
	if err != nil {
		return nil, err
	}
	rooms := append([]domain.Room{domain.PersonalRoom(identity)},
		lo.Map(names, func(name string, _ int) domain.Room {
			return domain.EntityRoom(name)
		})...)
	return rooms, nil
}

// SubscribeConnection subscribes a freshly registered connection to every
// room its identity resolves to.
func (r *Resolver) SubscribeConnection(identity string, connID uuid.UUID) error {
	rooms, err := r.RoomsFor(identity)
	if err != nil {
		return err
	}
	for _, room := range rooms {
		r.presence.Subscribe(connID, room)
	}
	r.log.Debug("Connection subscribed", "identity", identity, "rooms", len(rooms))
	return nil
}
