// Package expiry runs the background loop that prunes aged-out messages and
// keeps the on-disk snapshots fresh.
package expiry

import (
	"context"
	"log"
	"time"

	"github.com/parley/chatd/internal/chat"
	"github.com/parley/chatd/internal/directory"
	"github.com/parley/chatd/internal/metrics"
	"github.com/parley/chatd/internal/store"
)

// Config holds the worker's tunables.
type Config struct {
	Interval        time.Duration // tick period
	MessageLifetime time.Duration // max age for common-chat messages
	// PrivateLifetime bounds the age of queued private messages. Zero keeps
	// the historical behaviour: private unread never expires.
	PrivateLifetime time.Duration
}

// Worker prunes expired messages on a fixed interval and triggers a
// persistence write after each tick.
type Worker struct {
	cfg     Config
	history *chat.History
	dir     *directory.Directory
	saver   *store.Saver

	now func() time.Time
}

// New creates a Worker. The saver may be nil in tests.
func New(cfg Config, history *chat.History, dir *directory.Directory, saver *store.Saver) *Worker {
	return &Worker{cfg: cfg, history: history, dir: dir, saver: saver, now: time.Now}
}

// SetClock replaces the worker's clock. Tests only.
func (w *Worker) SetClock(now func() time.Time) { w.now = now }

// Run ticks until ctx is cancelled. Nothing in a tick is fatal: pruning is
// pure in-memory work and save failures are handled by the saver.
func (w *Worker) Run(ctx context.Context) {
	ticker := time.NewTicker(w.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("expiry: worker stopped")
			return
		case <-ticker.C:
			w.Tick()
		}
	}
}

// Tick performs one pruning pass.
func (w *Worker) Tick() {
	now := w.now()

	if removed := w.history.PruneExpired(w.cfg.MessageLifetime, now); removed > 0 {
		log.Printf("expiry: removed %d expired common messages", removed)
		metrics.MessagesExpired.Add(float64(removed))
	}

	if w.cfg.PrivateLifetime > 0 {
		if removed := w.dir.PruneUnread(directory.CategoryPrivate, w.cfg.PrivateLifetime, now); removed > 0 {
			log.Printf("expiry: removed %d expired private unread messages", removed)
			metrics.MessagesExpired.Add(float64(removed))
		}
	}

	metrics.HistorySize.Set(float64(w.history.Len()))

	if w.saver != nil {
		w.saver.Trigger()
	}
}
