package store

import (
	"context"
	"log"
	"time"

	"github.com/parley/chatd/internal/chat"
	"github.com/parley/chatd/internal/directory"
	"github.com/parley/chatd/internal/metrics"
)

// Snapshot captures the full persistable state in one call. The server wires
// it to the history and directory export methods.
type Snapshot func() ([]chat.Message, []directory.UserState)

// Saver decouples persistence from request handling: handlers call Trigger
// after every state change, and a single background goroutine coalesces the
// triggers into debounced writes. Flush writes synchronously for shutdown.
type Saver struct {
	store    *Store
	snapshot Snapshot
	debounce time.Duration
	kick     chan struct{}
}

// NewSaver creates a Saver writing through the given store.
func NewSaver(store *Store, snapshot Snapshot, debounce time.Duration) *Saver {
	return &Saver{
		store:    store,
		snapshot: snapshot,
		debounce: debounce,
		// Buffer of one: a pending trigger absorbs all further triggers
		// until the next write, so a burst of requests costs one save.
		kick: make(chan struct{}, 1),
	}
}

// Trigger requests a save. It never blocks; triggers arriving while a save is
// already pending are coalesced into it.
func (s *Saver) Trigger() {
	select {
	case s.kick <- struct{}{}:
	default:
	}
}

// Run services triggers until ctx is cancelled. Save failures are logged and
// retried on the next trigger; persistence trouble must never stop the
// serving loop.
func (s *Saver) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-s.kick:
			if s.debounce > 0 {
				// Let the burst finish before snapshotting.
				timer := time.NewTimer(s.debounce)
				select {
				case <-ctx.Done():
					timer.Stop()
					return
				case <-timer.C:
				}
			}
			if err := s.Flush(); err != nil {
				log.Printf("store: save failed: %v", err)
			}
		}
	}
}

// Flush snapshots and writes both blobs synchronously.
func (s *Saver) Flush() error {
	msgs, users := s.snapshot()
	start := time.Now()
	err := s.store.Save(msgs, users)
	metrics.SaveDuration.Observe(time.Since(start).Seconds())
	return err
}
