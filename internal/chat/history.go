package chat

import (
	"sync"
	"time"
)

// History is the append-only log of common-chat messages. It is
// goroutine-safe; messages keep append order, which is also timestamp order
// because timestamps are assigned at append time.
type History struct {
	mu   sync.Mutex
	msgs []Message

	now func() time.Time // injectable clock for tests
}

// NewHistory creates an empty History using the wall clock.
func NewHistory() *History {
	return &History{now: time.Now}
}

// SetClock replaces the history's clock. Tests only.
func (h *History) SetClock(now func() time.Time) { h.now = now }

// Append stores a new message stamped at call time and returns it.
func (h *History) Append(author, body string) Message {
	h.mu.Lock()
	defer h.mu.Unlock()

	msg := Message{Ts: h.now(), Author: author, Body: body}
	h.msgs = append(h.msgs, msg)
	return msg
}

// LastN returns the most recent n messages, oldest first. Fewer are returned
// if the history is shorter.
func (h *History) LastN(n int) []Message {
	h.mu.Lock()
	defer h.mu.Unlock()

	start := len(h.msgs) - n
	if start < 0 {
		start = 0
	}
	out := make([]Message, len(h.msgs)-start)
	copy(out, h.msgs[start:])
	return out
}

// Len returns the number of retained messages.
func (h *History) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.msgs)
}

// PruneExpired removes every message older than maxAge at time now, whether or
// not it was ever delivered. It returns the number of removed messages.
func (h *History) PruneExpired(maxAge time.Duration, now time.Time) int {
	h.mu.Lock()
	defer h.mu.Unlock()

	kept := h.msgs[:0]
	for _, m := range h.msgs {
		if now.Sub(m.Ts) <= maxAge {
			kept = append(kept, m)
		}
	}
	removed := len(h.msgs) - len(kept)
	h.msgs = kept
	return removed
}

// Export returns a copy of the full message list for persistence.
func (h *History) Export() []Message {
	h.mu.Lock()
	defer h.mu.Unlock()

	out := make([]Message, len(h.msgs))
	copy(out, h.msgs)
	return out
}

// Restore replaces the history contents with a loaded snapshot.
func (h *History) Restore(msgs []Message) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.msgs = make([]Message, len(msgs))
	copy(h.msgs, msgs)
}
