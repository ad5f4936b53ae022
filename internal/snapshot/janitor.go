package snapshot

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Janitor periodically evicts expired snapshots.
type Janitor struct {
	store    *Store
	interval time.Duration
	log      *slog.Logger

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewJanitor(store *Store, interval time.Duration, log *slog.Logger) *Janitor {
	if interval <= 0 {
		interval = time.Minute
	}
	return &Janitor{store: store, interval: interval, log: log}
}

// Start launches the cleanup loop.
func (j *Janitor) Start(ctx context.Context) {
	loopCtx, cancel := context.WithCancel(ctx)
	j.cancel = cancel

	j.wg.Add(1)
	go func() {
		defer j.wg.Done()
		ticker := time.NewTicker(j.interval)
		defer ticker.Stop()
		for {
			select {
			case <-loopCtx.Done():
				return
			case <-ticker.C:
				if n := j.store.Cleanup(); n > 0 {
					j.log.Info("evicted expired snapshots", "count", n, "remaining", j.store.Len())
				}
			}
		}
	}()
}

// Stop ends the cleanup loop and waits for it to exit.
func (j *Janitor) Stop() {
	if j.cancel != nil {
		j.cancel()
	}
	j.wg.Wait()
}
