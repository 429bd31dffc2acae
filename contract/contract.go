//go:generate go run go.uber.org/mock/mockgen -source=contract.go -destination=../mocks/mock_contract.go -package=mocks
package contract

import (
	"context"
	"reflect"

	"github.com/google/uuid"

	"github.com/jasurbek-jolanboyev/safechat.uz/domain"
	"github.com/jasurbek-jolanboyev/safechat.uz/domain/event"
)

type ISupervisor interface {
	Add(worker ...Worker) ISupervisor
	Run(ctx context.Context)
	Start(ctx context.Context, worker Worker)
	Stop()
}

type WorkerName string

// Worker doesn't protect itself
// Can be silly, focused
type Worker interface {
	Run(ctx context.Context) error
}

// GetWorkerName uses reflection to retrieve the type name of the worker.
// This is used for logging and supervision purposes during worker
// lifecycle events, avoiding the need for manual naming in the Worker interface.
func GetWorkerName(w Worker) string {
	if w == nil {
		return "NilWorker"
	}
	t := reflect.TypeOf(w)
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t.Name()
}

// EventSink is one live connection's outbound half. Consume must never
// block: a slow or dead connection returns an error and is skipped, it is
// never allowed to stall fan-out to other subscribers.
type EventSink interface {
	Consume(ctx context.Context, e event.Event) error
}

// IPresence is the process-local registry of live connections and their
// room subscriptions. Subscriptions are connection-scoped and vanish with
// Unregister; no other component performs cleanup.
type IPresence interface {
	Register(identity string, connID uuid.UUID, sink EventSink)
	Unregister(connID uuid.UUID)
	ConnectionsOf(identity string) []uuid.UUID
	Subscribe(connID uuid.UUID, room domain.Room)
	Unsubscribe(connID uuid.UUID, room domain.Room)
	SubscribeIdentity(identity string, room domain.Room)
	UnsubscribeIdentity(identity string, room domain.Room)
	MembersOf(room domain.Room) []EventSink
	SinksFor(rooms []domain.Room, excludeIdentity string) []EventSink
	Broadcast() []EventSink
}

// IRelay mirrors locally-originated fan-out to other nodes. Implementations
// are external collaborators (pub/sub); a nil relay means single-node.
type IRelay interface {
	Publish(ctx context.Context, e event.Event) error
}
