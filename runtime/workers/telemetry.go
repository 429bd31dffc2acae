package workers

import (
	"context"
	"log/slog"
	"runtime"
	"time"

	"github.com/jasurbek-jolanboyev/safechat.uz/observability"
)

// TelemetryWorker periodically logs the routing counters together with Go
// runtime memory figures. Purely observational.
type TelemetryWorker struct {
	log            *slog.Logger
	metricInterval time.Duration
	monitoring     *observability.Monitoring
}

func NewTelemetryWorker(log *slog.Logger, metricInterval time.Duration, monitoring *observability.Monitoring) *TelemetryWorker {
	return &TelemetryWorker{
		log:            log,
		metricInterval: metricInterval,
		monitoring:     monitoring,
	}
}

func (w *TelemetryWorker) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.metricInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			snapshot := w.monitoring.GetLatest()

			var mem runtime.MemStats
			runtime.ReadMemStats(&mem)

			w.log.Info("Routing telemetry",
				"routed", snapshot.MessagesRouted,
				"delivered", snapshot.EventsDelivered,
				"dropped", snapshot.EventsDropped,
				"blocked", snapshot.MessagesBlocked,
				"relayed", snapshot.EventsRelayed,
				"censored", snapshot.CensoredMessages,
				"heap_bytes", mem.HeapAlloc,
				"goroutines", runtime.NumGoroutine(),
			)
		}
	}
}
