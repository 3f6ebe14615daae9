package workers

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/dgraph-io/badger/v4"
)

// StoreGCWorker runs Badger's value-log garbage collection on a timer.
// Badger never reclaims value-log space on its own, the embedding
// process has to drive it.
type StoreGCWorker struct {
	db       *badger.DB
	interval time.Duration
	log      *slog.Logger
}

func NewStoreGCWorker(db *badger.DB, interval time.Duration, log *slog.Logger) *StoreGCWorker {
	return &StoreGCWorker{db: db, interval: interval, log: log}
}

func (w *StoreGCWorker) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.Debug("Stopping worker")
			return nil
		case <-ticker.C:
			// Rerun until a pass reclaims nothing, then wait again.
			for {
				err := w.db.RunValueLogGC(0.5)
				if errors.Is(err, badger.ErrNoRewrite) {
					break
				}
				if err != nil {
					w.log.Warn("value log GC failed", "error", err)
					break
				}
				w.log.Debug("value log GC reclaimed a file")
			}
		}
	}
}
