package sweeper

import (
	"context"
	"log/slog"
	"time"
)

// DefaultInterval is used when Run gets a non-positive interval.
const DefaultInterval = 5 * time.Minute

// Task removes expired entries and reports how many it dropped.
type Task struct {
	Name    string
	Cleanup func() int
}

// Run calls every task's Cleanup once per interval until ctx is done.
func Run(ctx context.Context, log *slog.Logger, interval time.Duration, tasks ...Task) {
	const op = "sweeper.Run"

	log = log.With(slog.String("op", op))

	if interval <= 0 {
		log.Warn("non-positive sweep interval, using default", slog.Duration("interval", interval))
		interval = DefaultInterval
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info("sweeper stopped")
			return
		case <-ticker.C:
			for _, t := range tasks {
				if n := t.Cleanup(); n > 0 {
					log.Debug("expired entries removed", slog.String("task", t.Name), slog.Int("removed", n))
				}
			}
		}
	}
}
