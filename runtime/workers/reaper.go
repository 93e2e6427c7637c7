package workers

import (
	"chat-relay/contract"
	"context"
	"log/slog"
	"time"
)

// RoomReaper periodically drops rooms nobody is in anymore.
type RoomReaper struct {
	log      *slog.Logger
	registry contract.IRegistry
	interval time.Duration
}

func NewRoomReaper(log *slog.Logger, registry contract.IRegistry, interval time.Duration) *RoomReaper {
	return &RoomReaper{log: log, registry: registry, interval: interval}
}

func (w *RoomReaper) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if n := w.registry.Reap(); n > 0 {
				w.log.Info("Empty rooms reaped", "count", n)
			}
		}
	}
}
