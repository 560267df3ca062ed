// Package directory is the authoritative in-memory registry of users: their
// live connections, unread queues, strike counts and ban state. A single
// mutex guards every mutation, so all user-state operations are linearizable
// and iteration (fan-out, pruning, export) never races with writers.
package directory

import (
	"fmt"
	"sync"
	"time"

	"github.com/parley/chatd/internal/ban"
	"github.com/parley/chatd/internal/chat"
)

// Unread-queue categories.
const (
	CategoryCommon  = "common"
	CategoryPrivate = "private"
)

// ErrUnknownUser is returned when an operation addresses a name that was
// never registered. Handlers answer it with a "no such user" response instead
// of creating a phantom record.
var ErrUnknownUser = fmt.Errorf("directory: unknown user")

// Writer is the outbound half of a client connection. The server's connection
// type implements it; the directory only ever writes, never reads or closes.
type Writer interface {
	WriteLine(s string) error
}

// user is one registered user. Users are created on first /connect and never
// deleted.
type user struct {
	conns         map[string]Writer // connID -> live connection
	commonUnread  []chat.Message
	privateUnread []chat.Message
	strikes       int
	banStartedAt  time.Time // zero = not banned
}

// Directory is the shared user registry.
type Directory struct {
	mu     sync.Mutex
	users  map[string]*user
	order  []string // registration order, for stable /status listings
	policy ban.Policy

	now func() time.Time // injectable clock for tests
}

// New creates an empty Directory enforcing the given ban policy.
func New(policy ban.Policy) *Directory {
	return &Directory{
		users:  make(map[string]*user),
		policy: policy,
		now:    time.Now,
	}
}

// SetClock replaces the directory's clock. Tests only.
func (d *Directory) SetClock(now func() time.Time) { d.now = now }

// getOrCreate returns the record for name, creating a fresh one (zero
// strikes, empty queues, no ban) on first sight. Callers hold d.mu.
func (d *Directory) getOrCreate(name string) *user {
	u, ok := d.users[name]
	if !ok {
		u = &user{conns: make(map[string]Writer)}
		d.users[name] = u
		d.order = append(d.order, name)
	}
	return u
}

// Attach registers a connection under name, creating the user if needed.
// It reports whether this was a fresh attach; re-attaching the same connection
// is a no-op duplicate.
func (d *Directory) Attach(name, connID string, w Writer) (fresh bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	u := d.getOrCreate(name)
	if _, dup := u.conns[connID]; dup {
		return false
	}
	u.conns[connID] = w
	return true
}

// Detach removes a connection from its user's connection set. Unknown names
// or connections are ignored; teardown must never fail.
func (d *Directory) Detach(name, connID string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if u, ok := d.users[name]; ok {
		delete(u.conns, connID)
	}
}

// Known reports whether name has ever connected.
func (d *Directory) Known(name string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	_, ok := d.users[name]
	return ok
}

// Writers returns a snapshot of the user's live connections. Responses to an
// authenticated user go to every one of them (multi-device delivery).
func (d *Directory) Writers(name string) []Writer {
	d.mu.Lock()
	defer d.mu.Unlock()

	u, ok := d.users[name]
	if !ok {
		return nil
	}
	out := make([]Writer, 0, len(u.conns))
	for _, w := range u.conns {
		out = append(out, w)
	}
	return out
}

// Names returns all known user names in registration order.
func (d *Directory) Names() []string {
	d.mu.Lock()
	defer d.mu.Unlock()

	out := make([]string, len(d.order))
	copy(out, d.order)
	return out
}

// Enqueue appends a message to the user's unread queue for the category.
func (d *Directory) Enqueue(name, category string, msg chat.Message) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	u, ok := d.users[name]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownUser, name)
	}
	switch category {
	case CategoryCommon:
		u.commonUnread = append(u.commonUnread, msg)
	case CategoryPrivate:
		u.privateUnread = append(u.privateUnread, msg)
	default:
		return fmt.Errorf("directory: unknown category %q", category)
	}
	return nil
}

// Drain returns the user's unread messages for the category and clears the
// queue. A second drain always finds it empty (exactly-once delivery).
func (d *Directory) Drain(name, category string) ([]chat.Message, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	u, ok := d.users[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownUser, name)
	}
	switch category {
	case CategoryCommon:
		msgs := u.commonUnread
		u.commonUnread = nil
		return msgs, nil
	case CategoryPrivate:
		msgs := u.privateUnread
		u.privateUnread = nil
		return msgs, nil
	}
	return nil, fmt.Errorf("directory: unknown category %q", category)
}

// PushStrike adds one strike to name. When the count exceeds the policy limit
// the user is banned from now, the count resets to zero, and banned is true.
func (d *Directory) PushStrike(name string) (banned bool, err error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	u, ok := d.users[name]
	if !ok {
		return false, fmt.Errorf("%w: %s", ErrUnknownUser, name)
	}
	u.strikes, banned = d.policy.Strike(u.strikes)
	if banned {
		u.banStartedAt = d.now()
	}
	return banned, nil
}

// IsBanned reports whether name is currently inside a ban window. An elapsed
// ban is cleared here, lazily, as a side effect of the check.
func (d *Directory) IsBanned(name string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.isBannedLocked(name)
}

func (d *Directory) isBannedLocked(name string) bool {
	u, ok := d.users[name]
	if !ok || u.banStartedAt.IsZero() {
		return false
	}
	if d.policy.Expired(u.banStartedAt, d.now()) {
		u.banStartedAt = time.Time{}
		return false
	}
	return true
}

// Status describes a user for the /status response.
type Status struct {
	Banned        bool
	UnreadCommon  int
	UnreadPrivate int
}

// UserStatus returns the caller-facing status of name. The ban flag uses the
// same lazy window check as IsBanned.
func (d *Directory) UserStatus(name string) (Status, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	u, ok := d.users[name]
	if !ok {
		return Status{}, fmt.Errorf("%w: %s", ErrUnknownUser, name)
	}
	return Status{
		Banned:        d.isBannedLocked(name),
		UnreadCommon:  len(u.commonUnread),
		UnreadPrivate: len(u.privateUnread),
	}, nil
}

// FanOut decides delivery for one common-chat message across every known
// user under a single consistent snapshot: users with at least one live
// connection get their writers returned for immediate delivery, everyone
// else has the message queued as common-unread. The actual socket writes
// happen outside the lock.
func (d *Directory) FanOut(msg chat.Message) []Writer {
	d.mu.Lock()
	defer d.mu.Unlock()

	var live []Writer
	for _, name := range d.order {
		u := d.users[name]
		if len(u.conns) > 0 {
			for _, w := range u.conns {
				live = append(live, w)
			}
		} else {
			u.commonUnread = append(u.commonUnread, msg)
		}
	}
	return live
}

// PruneUnread removes messages older than maxAge from every user's unread
// queue of the given category. It backs the configurable expiry policy for
// queued messages and returns the number removed.
func (d *Directory) PruneUnread(category string, maxAge time.Duration, now time.Time) int {
	d.mu.Lock()
	defer d.mu.Unlock()

	removed := 0
	for _, u := range d.users {
		var q *[]chat.Message
		switch category {
		case CategoryCommon:
			q = &u.commonUnread
		case CategoryPrivate:
			q = &u.privateUnread
		default:
			return 0
		}
		kept := (*q)[:0]
		for _, m := range *q {
			if now.Sub(m.Ts) <= maxAge {
				kept = append(kept, m)
			}
		}
		removed += len(*q) - len(kept)
		*q = kept
	}
	return removed
}
