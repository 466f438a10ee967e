// Package notify polls the notifications endpoint for the headless watcher.
package notify

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/sawa-platform/sawa/internal/fetch"
	"github.com/sawa-platform/sawa/pkg/domain"
)

// DefaultInterval is how often notifications are polled.
const DefaultInterval = 30 * time.Second

// ListFunc fetches the current notification list.
type ListFunc func(ctx context.Context) (domain.List[domain.Notification], error)

// Tracker remembers which unread notifications were already reported.
type Tracker struct {
	mu   sync.Mutex
	seen map[int64]struct{}
}

// NewTracker returns an empty Tracker.
func NewTracker() *Tracker {
	return &Tracker{seen: make(map[int64]struct{})}
}

// Fresh returns the unread notifications in ns not returned by an earlier
// call, oldest first as listed. ns is taken as the full current list: IDs
// that are no longer unread in it are forgotten.
func (t *Tracker) Fresh(ns []domain.Notification) []domain.Notification {
	t.mu.Lock()
	defer t.mu.Unlock()
	var out []domain.Notification
	current := make(map[int64]struct{}, len(ns))
	for _, n := range ns {
		if !n.Unread() {
			continue
		}
		current[n.ID] = struct{}{}
		if _, ok := t.seen[n.ID]; ok {
			continue
		}
		out = append(out, n)
	}
	t.seen = current
	return out
}

// Len returns the number of unread IDs being remembered.
func (t *Tracker) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.seen)
}

// Watcher polls on a cron schedule and hands newly seen unread notifications
// to OnNew.
type Watcher struct {
	session  fetch.Session
	list     ListFunc
	interval time.Duration
	tracker  *Tracker
	logger   *slog.Logger

	// OnNew receives each batch of new notifications. It is called from the
	// scheduler goroutine, one poll at a time.
	OnNew func([]domain.Notification)
}

// NewWatcher returns a Watcher. A non-positive interval means DefaultInterval.
func NewWatcher(s fetch.Session, list ListFunc, interval time.Duration, logger *slog.Logger) *Watcher {
	if interval <= 0 {
		interval = DefaultInterval
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Watcher{
		session:  s,
		list:     list,
		interval: interval,
		tracker:  NewTracker(),
		logger:   logger,
		OnNew:    func([]domain.Notification) {},
	}
}

// Poll fetches once and returns the notifications not seen before.
func (w *Watcher) Poll(ctx context.Context) ([]domain.Notification, error) {
	list, err := fetch.Do(ctx, w.session, w.list)
	if err != nil {
		return nil, err
	}
	return w.tracker.Fresh(list.Items), nil
}

// Run polls immediately and then every interval until ctx is cancelled or
// the session ends. It returns fetch.ErrLoginRequired in the latter case and
// nil on cancellation. Page errors are logged and polling continues.
func (w *Watcher) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	fatal := make(chan error, 1)
	tick := func() {
		fresh, err := w.Poll(ctx)
		switch {
		case fetch.IsLoginRequired(err):
			select {
			case fatal <- err:
			default:
			}
			cancel()
		case err != nil:
			if ctx.Err() == nil {
				w.logger.Warn("notification poll failed", "error", err)
			}
		case len(fresh) > 0:
			w.logger.Debug("new notifications", "count", len(fresh))
			w.OnNew(fresh)
		}
	}

	c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))
	if _, err := c.AddFunc(fmt.Sprintf("@every %s", w.interval), tick); err != nil {
		return fmt.Errorf("notify.Run: schedule: %w", err)
	}

	tick()
	c.Start()
	w.logger.Info("watching notifications", "interval", w.interval.String())

	<-ctx.Done()
	stopped := c.Stop()
	<-stopped.Done()

	select {
	case err := <-fatal:
		return err
	default:
		return nil
	}
}
