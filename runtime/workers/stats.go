package workers

import (
	"context"
	"log/slog"
	"time"

	"mingle-chat/observability"
)

// StatsWorker periodically logs a snapshot of the server's counters.
type StatsWorker struct {
	monitor  *observability.Monitor
	counts   observability.CountsProvider
	interval time.Duration
	log      *slog.Logger
}

func NewStatsWorker(monitor *observability.Monitor, counts observability.CountsProvider,
	interval time.Duration, log *slog.Logger) *StatsWorker {
	return &StatsWorker{monitor: monitor, counts: counts, interval: interval, log: log}
}

func (w *StatsWorker) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.Debug("Stopping worker")
			return nil
		case <-ticker.C:
			stats := w.monitor.Snapshot(w.counts)
			w.log.Info("server stats",
				"connections", stats.Connections,
				"rooms", stats.Rooms,
				"messages_sent", stats.MessagesSent,
				"deliveries", stats.Deliveries,
				"send_failures", stats.SendFailures,
				"alloc_mb", stats.AllocMemMb,
				"cpu_percent", stats.CPUPercent)
		}
	}
}
