// Package relay bridges fan-out across server nodes over redis pub/sub.
// Each node publishes its locally-originated events and injects everything
// it hears from peers; the Origin field breaks the echo loop.
package relay

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/jasurbek-jolanboyev/safechat.uz/domain/event"
	"github.com/jasurbek-jolanboyev/safechat.uz/runtime"
)

const fanoutChannel = "safechat:fanout"

// Publisher mirrors locally-originated events to the shared channel.
type Publisher struct {
	rdb *redis.Client
}

func NewPublisher(rdb *redis.Client) *Publisher {
	return &Publisher{rdb: rdb}
}

func (p *Publisher) Publish(ctx context.Context, e event.Event) error {
	payload, err := json.Marshal(e)
	if err != nil {
		return err
	}
	return p.rdb.Publish(ctx, fanoutChannel, payload).Err()
}

// Worker subscribes to the shared channel and re-injects peer events into
// the local router. Malformed frames are logged and skipped; the
// subscription itself is kept alive by the supervisor restarting us.
type Worker struct {
	log    *slog.Logger
	rdb    *redis.Client
	router *runtime.Router
}

func NewWorker(log *slog.Logger, rdb *redis.Client, router *runtime.Router) *Worker {
	return &Worker{log: log, rdb: rdb, router: router}
}

func (w *Worker) Run(ctx context.Context) error {
	pubsub := w.rdb.Subscribe(ctx, fanoutChannel)
	defer pubsub.Close()

	// Fail fast if redis is unreachable instead of silently idling.
	if _, err := pubsub.Receive(ctx); err != nil {
		return err
	}
	w.log.Info("Relay subscribed", "channel", fanoutChannel)

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-ch:
			if !ok {
				return redis.ErrClosed
			}
			var e event.Event
			if err := json.Unmarshal([]byte(msg.Payload), &e); err != nil {
				w.log.Warn("Discarding malformed relay frame", "err", err)
				continue
			}
			w.router.InjectRemote(ctx, e)
		}
	}
}
