// Package reaper retires rooms that are empty or have gone idle.
package reaper

import (
	"context"
	"time"

	"go.uber.org/zap"

	"ultimatecode/internal/hub"
)

// Sweeper removes stale rooms and reports their ids.
type Sweeper interface {
	Sweep(idle time.Duration) []string
}

// Notifier is the part of the hub the reaper publishes through.
type Notifier interface {
	CloseRoom(roomID string)
	PublishLobby(event hub.Event)
}

// Reaper periodically sweeps the room registry.
type Reaper struct {
	store    Sweeper
	notifier Notifier
	interval time.Duration
	idle     time.Duration
	logger   *zap.Logger
}

// New creates a reaper that sweeps every interval and removes rooms idle for
// longer than idle.
func New(store Sweeper, notifier Notifier, interval, idle time.Duration, logger *zap.Logger) *Reaper {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Reaper{
		store:    store,
		notifier: notifier,
		interval: interval,
		idle:     idle,
		logger:   logger.Named("reaper"),
	}
}

// Run sweeps on every tick until ctx is cancelled.
func (r *Reaper) Run(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	r.logger.Info("reaper started",
		zap.Duration("interval", r.interval),
		zap.Duration("idle_timeout", r.idle))

	for {
		select {
		case <-ctx.Done():
			r.logger.Info("reaper stopped")
			return
		case <-ticker.C:
			r.Sweep()
		}
	}
}

// Sweep runs one pass. A panic inside the pass is logged and swallowed so the
// loop keeps running.
func (r *Reaper) Sweep() (deleted []string) {
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error("sweep panicked", zap.Any("panic", rec))
		}
	}()

	deleted = r.store.Sweep(r.idle)
	for _, roomID := range deleted {
		r.notifier.CloseRoom(roomID)
		r.notifier.PublishLobby(hub.Event{Type: hub.TypeRefresh, RoomID: roomID})
	}

	if len(deleted) > 0 {
		r.logger.Info("reaped rooms",
			zap.Int("count", len(deleted)),
			zap.Strings("room_ids", deleted))
	}
	return deleted
}
