package expiry

import (
	"testing"
	"time"

	"github.com/parley/chatd/internal/ban"
	"github.com/parley/chatd/internal/chat"
	"github.com/parley/chatd/internal/directory"
)

func TestTick_PrunesExpiredCommonMessages(t *testing.T) {
	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	clock := base

	history := chat.NewHistory()
	history.SetClock(func() time.Time { return clock })
	dir := directory.New(ban.Policy{Limit: 2, Window: time.Hour})

	history.Append("A", "old")
	clock = base.Add(50 * time.Minute)
	history.Append("A", "new")

	w := New(Config{
		Interval:        time.Minute,
		MessageLifetime: time.Hour,
	}, history, dir, nil)
	clock = base.Add(70 * time.Minute)
	w.SetClock(func() time.Time { return clock })

	w.Tick()

	msgs := history.LastN(10)
	if len(msgs) != 1 || msgs[0].Body != "new" {
		t.Errorf("after tick: %+v, want only the new message", msgs)
	}
}

func TestTick_PrivateLifetimeZeroNeverExpires(t *testing.T) {
	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	history := chat.NewHistory()
	dir := directory.New(ban.Policy{Limit: 2, Window: time.Hour})
	dir.Attach("A", "c1", nil)
	dir.Detach("A", "c1")
	dir.Enqueue("A", directory.CategoryPrivate, chat.Message{Ts: base, Author: "B", Body: "ancient"})

	w := New(Config{
		Interval:        time.Minute,
		MessageLifetime: time.Hour,
		PrivateLifetime: 0,
	}, history, dir, nil)
	w.SetClock(func() time.Time { return base.Add(1000 * time.Hour) })

	w.Tick()

	msgs, _ := dir.Drain("A", directory.CategoryPrivate)
	if len(msgs) != 1 {
		t.Errorf("private unread pruned despite zero lifetime: %+v", msgs)
	}
}

func TestTick_PrivateLifetimeSetExpires(t *testing.T) {
	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	history := chat.NewHistory()
	dir := directory.New(ban.Policy{Limit: 2, Window: time.Hour})
	dir.Attach("A", "c1", nil)
	dir.Detach("A", "c1")
	dir.Enqueue("A", directory.CategoryPrivate, chat.Message{Ts: base, Author: "B", Body: "old"})
	dir.Enqueue("A", directory.CategoryPrivate, chat.Message{Ts: base.Add(20 * time.Minute), Author: "B", Body: "new"})

	w := New(Config{
		Interval:        time.Minute,
		MessageLifetime: time.Hour,
		PrivateLifetime: 30 * time.Minute,
	}, history, dir, nil)
	w.SetClock(func() time.Time { return base.Add(40 * time.Minute) })

	w.Tick()

	msgs, _ := dir.Drain("A", directory.CategoryPrivate)
	if len(msgs) != 1 || msgs[0].Body != "new" {
		t.Errorf("after tick: %+v, want only the new private message", msgs)
	}
}
