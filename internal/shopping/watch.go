package shopping

import (
	"context"
	"log/slog"
	"reflect"
	"strings"
	"time"
)

const defaultRefreshInterval = 3 * time.Second

// Watcher keeps a client's grouped view of one household's list current. It
// reloads on every shopping list notification and, as a fallback for dropped
// notifications, on a fixed interval.
type Watcher struct {
	service  *Service
	events   Subscriber
	interval time.Duration
	logger   *slog.Logger
}

func NewWatcher(service *Service, events Subscriber, interval time.Duration, logger *slog.Logger) *Watcher {
	if interval <= 0 {
		interval = defaultRefreshInterval
	}
	return &Watcher{service: service, events: events, interval: interval, logger: logger}
}

// Run sends the current view to sink, then a fresh view whenever it changes,
// until ctx is done or sink fails. memberNames labels dish groups.
func (w *Watcher) Run(ctx context.Context, householdID int64, mode Mode, memberNames map[int64]string, sink func(View) error) error {
	events, cancel := w.events.Subscribe(householdID)
	defer cancel()

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	var last *View
	push := func() error {
		v, err := w.service.View(ctx, householdID, mode, memberNames)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			// keep the stream alive; the next tick retries
			w.logger.Warn("refresh shopping list view", "household_id", householdID, "error", err)
			return nil
		}
		if last != nil && reflect.DeepEqual(*last, v) {
			return nil
		}
		if err := sink(v); err != nil {
			return err
		}
		last = &v
		return nil
	}

	if err := push(); err != nil {
		return err
	}
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-events:
			if !ok {
				return nil
			}
			if !strings.HasPrefix(msg.Entity, "shopping_list") {
				continue
			}
			if err := push(); err != nil {
				return err
			}
		case <-ticker.C:
			if err := push(); err != nil {
				return err
			}
		}
	}
}
