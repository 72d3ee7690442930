package sync

import (
	"context"
	"errors"
	"time"

	"golang.org/x/exp/slog"

	"pinvault/internal/remote"
)

// DebounceInterval is how long the listener waits after the last
// foreign change before scheduling a sync, so write bursts coalesce
// into one cycle.
const DebounceInterval = time.Second

// Listener reacts to remote collection writes. Self-originated echoes
// are dropped to prevent sync storms, and nothing is scheduled while a
// sync is already in flight.
type Listener struct {
	engine   *Engine
	deviceID string
	debounce time.Duration
	log      *slog.Logger
}

func NewListener(engine *Engine, deviceID string, log *slog.Logger) *Listener {
	return &Listener{
		engine:   engine,
		deviceID: deviceID,
		debounce: DebounceInterval,
		log:      log.With("component", "sync_listener"),
	}
}

// Run consumes the event feed until the context ends or the feed
// closes. It blocks; callers run it in a goroutine.
func (l *Listener) Run(ctx context.Context, events <-chan remote.Event) {
	var timer *time.Timer
	var fire <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return

		case event, ok := <-events:
			if !ok {
				if timer != nil {
					timer.Stop()
				}
				return
			}
			if event.DeviceID == l.deviceID {
				continue
			}
			l.log.Debug("foreign change observed", "record_id", event.RecordID, "device_id", event.DeviceID)

			// Every foreign change restarts the debounce window.
			if timer == nil {
				timer = time.NewTimer(l.debounce)
				fire = timer.C
			} else {
				if !timer.Stop() {
					select {
					case <-timer.C:
					default:
					}
				}
				timer.Reset(l.debounce)
			}

		case <-fire:
			timer = nil
			fire = nil

			if l.engine.InFlight() {
				l.log.Debug("sync already in flight, skipping scheduled sync")
				continue
			}
			if _, err := l.engine.SyncToCloud(ctx); err != nil {
				if errors.Is(err, ErrSyncInProgress) || errors.Is(err, ErrSyncUnavailable) {
					continue
				}
				l.log.Warn("scheduled sync failed", "error", err)
			}
		}
	}
}
