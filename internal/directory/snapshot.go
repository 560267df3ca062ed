package directory

import (
	"time"

	"github.com/parley/chatd/internal/chat"
)

// UserState is the persisted form of one user record. Connection handles are
// transient and never persisted.
type UserState struct {
	Name          string         `json:"name"`
	CommonUnread  []chat.Message `json:"common_unread,omitempty"`
	PrivateUnread []chat.Message `json:"private_unread,omitempty"`
	Strikes       int            `json:"strikes"`
	BanStartedAt  *time.Time     `json:"ban_started_at,omitempty"`
}

// Export returns a snapshot of every user in registration order.
func (d *Directory) Export() []UserState {
	d.mu.Lock()
	defer d.mu.Unlock()

	out := make([]UserState, 0, len(d.order))
	for _, name := range d.order {
		u := d.users[name]
		st := UserState{
			Name:          name,
			CommonUnread:  append([]chat.Message(nil), u.commonUnread...),
			PrivateUnread: append([]chat.Message(nil), u.privateUnread...),
			Strikes:       u.strikes,
		}
		if !u.banStartedAt.IsZero() {
			ts := u.banStartedAt
			st.BanStartedAt = &ts
		}
		out = append(out, st)
	}
	return out
}

// Restore replaces the directory contents with a loaded snapshot. All users
// come back with no live connections.
func (d *Directory) Restore(states []UserState) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.users = make(map[string]*user, len(states))
	d.order = d.order[:0]
	for _, st := range states {
		u := &user{
			conns:         make(map[string]Writer),
			commonUnread:  append([]chat.Message(nil), st.CommonUnread...),
			privateUnread: append([]chat.Message(nil), st.PrivateUnread...),
			strikes:       st.Strikes,
		}
		if st.BanStartedAt != nil {
			u.banStartedAt = *st.BanStartedAt
		}
		d.users[st.Name] = u
		d.order = append(d.order, st.Name)
	}
}
