package store

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/parley/chatd/internal/chat"
	"github.com/parley/chatd/internal/directory"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	dir := t.TempDir()
	return New(filepath.Join(dir, "chat.json"), filepath.Join(dir, "users.json"))
}

func TestLoad_MissingFilesMeansEmptyState(t *testing.T) {
	s := newTestStore(t)
	msgs, users, err := s.Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if len(msgs) != 0 || len(users) != 0 {
		t.Errorf("expected empty state, got %d messages and %d users", len(msgs), len(users))
	}
}

func TestSaveLoad_RoundTrip(t *testing.T) {
	s := newTestStore(t)
	banStart := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	msgs := []chat.Message{
		{Ts: banStart, Author: "A", Body: "one"},
		{Ts: banStart.Add(time.Minute), Author: "B", Body: "two"},
	}
	users := []directory.UserState{
		{Name: "A", Strikes: 1},
		{
			Name:         "B",
			Strikes:      0,
			BanStartedAt: &banStart,
			CommonUnread: []chat.Message{{Ts: banStart, Author: "A", Body: "queued"}},
		},
	}

	if err := s.Save(msgs, users); err != nil {
		t.Fatalf("Save() error: %v", err)
	}

	gotMsgs, gotUsers, err := s.Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if len(gotMsgs) != 2 || gotMsgs[0].Body != "one" || gotMsgs[1].Body != "two" {
		t.Errorf("messages = %+v, want order-preserving round trip", gotMsgs)
	}
	if len(gotUsers) != 2 {
		t.Fatalf("users = %d, want 2", len(gotUsers))
	}
	if gotUsers[0].Name != "A" || gotUsers[0].Strikes != 1 {
		t.Errorf("user A = %+v, want strikes preserved", gotUsers[0])
	}
	b := gotUsers[1]
	if b.BanStartedAt == nil || !b.BanStartedAt.Equal(banStart) {
		t.Errorf("user B ban start = %v, want %v", b.BanStartedAt, banStart)
	}
	if len(b.CommonUnread) != 1 || b.CommonUnread[0].Body != "queued" {
		t.Errorf("user B unread = %+v, want the queued message", b.CommonUnread)
	}
}

func TestSave_OverwritesWholesale(t *testing.T) {
	s := newTestStore(t)
	s.Save([]chat.Message{{Author: "A", Body: "old"}}, nil)
	s.Save(nil, nil)

	msgs, _, err := s.Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if len(msgs) != 0 {
		t.Errorf("expected empty history after wholesale overwrite, got %+v", msgs)
	}
}

func TestSave_WritesValidJSON(t *testing.T) {
	dir := t.TempDir()
	chatPath := filepath.Join(dir, "chat.json")
	s := New(chatPath, filepath.Join(dir, "users.json"))
	if err := s.Save([]chat.Message{{Author: "A", Body: "x"}}, nil); err != nil {
		t.Fatalf("Save() error: %v", err)
	}

	data, err := os.ReadFile(chatPath)
	if err != nil {
		t.Fatalf("read snapshot: %v", err)
	}
	var raw []map[string]interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Fatalf("snapshot is not valid JSON: %v", err)
	}
	// No leftover temp files after a clean save.
	entries, _ := os.ReadDir(dir)
	for _, e := range entries {
		if e.Name() != "chat.json" && e.Name() != "users.json" {
			t.Errorf("unexpected leftover file %q", e.Name())
		}
	}
}

func TestSaver_CoalescesTriggers(t *testing.T) {
	s := newTestStore(t)

	var snapshots atomic.Int32
	saver := NewSaver(s, func() ([]chat.Message, []directory.UserState) {
		snapshots.Add(1)
		return nil, nil
	}, 50*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go saver.Run(ctx)

	// A burst of triggers within one debounce window.
	for i := 0; i < 20; i++ {
		saver.Trigger()
	}

	deadline := time.After(2 * time.Second)
	for snapshots.Load() == 0 {
		select {
		case <-deadline:
			t.Fatal("saver never wrote")
		case <-time.After(10 * time.Millisecond):
		}
	}
	// Allow any trailing pending write to land, then verify coalescing.
	time.Sleep(150 * time.Millisecond)
	if n := snapshots.Load(); n > 2 {
		t.Errorf("burst of 20 triggers produced %d saves, want at most 2", n)
	}
}

func TestSaver_FlushWritesSynchronously(t *testing.T) {
	s := newTestStore(t)
	saver := NewSaver(s, func() ([]chat.Message, []directory.UserState) {
		return []chat.Message{{Author: "A", Body: "flushed"}}, nil
	}, time.Second)

	if err := saver.Flush(); err != nil {
		t.Fatalf("Flush() error: %v", err)
	}
	msgs, _, err := s.Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if len(msgs) != 1 || msgs[0].Body != "flushed" {
		t.Errorf("flushed state = %+v", msgs)
	}
}
