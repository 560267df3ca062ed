// Package store persists the chat state as two JSON blobs on disk: the common
// chat history and the user directory. Each save overwrites the blob
// wholesale; writes go to a temp file first and are renamed into place so a
// crash mid-save never leaves a partial file behind.
package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/parley/chatd/internal/chat"
	"github.com/parley/chatd/internal/directory"
)

// Store reads and writes the two snapshot files.
type Store struct {
	chatPath  string
	usersPath string
	mu        sync.Mutex // serializes saves; concurrent writers would interleave renames
}

// New creates a Store for the given snapshot paths.
func New(chatPath, usersPath string) *Store {
	return &Store{chatPath: chatPath, usersPath: usersPath}
}

// Load reads both snapshots. A missing file is a normal empty-state startup,
// not an error.
func (s *Store) Load() ([]chat.Message, []directory.UserState, error) {
	var msgs []chat.Message
	if err := readJSON(s.chatPath, &msgs); err != nil {
		return nil, nil, fmt.Errorf("store: load chat history: %w", err)
	}

	var users []directory.UserState
	if err := readJSON(s.usersPath, &users); err != nil {
		return nil, nil, fmt.Errorf("store: load user directory: %w", err)
	}

	return msgs, users, nil
}

// Save serializes and overwrites both snapshots. Saves are serialized against
// each other; the last writer wins, which is safe because every save carries
// the full state.
func (s *Store) Save(msgs []chat.Message, users []directory.UserState) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := writeJSON(s.chatPath, msgs); err != nil {
		return fmt.Errorf("store: save chat history: %w", err)
	}
	if err := writeJSON(s.usersPath, users); err != nil {
		return fmt.Errorf("store: save user directory: %w", err)
	}
	return nil
}

func readJSON(path string, v interface{}) error {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}
	return json.Unmarshal(data, v)
}

// writeJSON writes v to a temp file in the target directory and renames it
// over path. Rename within one filesystem is atomic, so readers see either
// the old blob or the new one, never a torn write.
func writeJSON(path string, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp*")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), path)
}
