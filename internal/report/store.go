// Package report provides PostgreSQL-backed storage for the moderation audit
// trail: strikes, bans and flagged messages recorded by the moderator daemon
// for later review.
package report

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// Event kinds accepted by the store, matching the CHECK constraint on the
// moderation_events table.
const (
	KindStrike  = "strike"
	KindBan     = "ban"
	KindFlagged = "flagged"
)

var validKinds = map[string]bool{
	KindStrike:  true,
	KindBan:     true,
	KindFlagged: true,
}

// Event is one row of the audit trail.
type Event struct {
	Kind     string // strike | ban | flagged
	Username string // acting user ("" for system-issued bans)
	Target   string // affected user
	Detail   string // free-form context (filter reason, message excerpt)
}

// Store manages moderation events in PostgreSQL.
type Store struct {
	db *sql.DB
}

// NewStore creates a store backed by the given database handle.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// Record inserts one moderation event.
func (s *Store) Record(ctx context.Context, ev Event) error {
	if !validKinds[ev.Kind] {
		return fmt.Errorf("report: invalid event kind %q", ev.Kind)
	}

	const query = `
		INSERT INTO moderation_events (kind, username, target, detail)
		VALUES ($1, $2, $3, $4)`

	if _, err := s.db.ExecContext(ctx, query, ev.Kind, ev.Username, ev.Target, ev.Detail); err != nil {
		return fmt.Errorf("report: insert: %w", err)
	}
	return nil
}

// CountRecentStrikes returns the number of strike events recorded against
// target within the given window. Useful for offline review of repeat
// offenders beyond the server's in-memory counters.
func (s *Store) CountRecentStrikes(ctx context.Context, target string, window time.Duration) (int, error) {
	const query = `
		SELECT COUNT(*)
		FROM moderation_events
		WHERE kind = 'strike'
		  AND target = $1
		  AND created_at >= NOW() - $2::interval`

	var count int
	err := s.db.QueryRowContext(ctx, query, target, window.String()).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("report: count recent strikes: %w", err)
	}
	return count, nil
}
