// Package store persists conversation snapshots between runs. Two
// backends share one interface: a plain JSON file per session, and a
// single SQLite database holding every session.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/rahulgovind/neo/conversation"
)

// ErrNotFound is returned by Load and Delete when no session with the
// given ID exists.
var ErrNotFound = errors.New("session not found")

// SessionInfo describes a stored session without loading its snapshot.
type SessionInfo struct {
	ID        string
	Version   int
	UpdatedAt time.Time
}

// SnapshotStore saves and restores conversation snapshots keyed by
// session ID. Save overwrites any existing snapshot for the ID.
type SnapshotStore interface {
	Save(ctx context.Context, id string, snap conversation.Snapshot) error
	Load(ctx context.Context, id string) (conversation.Snapshot, error)
	List(ctx context.Context) ([]SessionInfo, error)
	Delete(ctx context.Context, id string) error
	Close() error
}
