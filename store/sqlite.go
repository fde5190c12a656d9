package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/rahulgovind/neo/conversation"
)

const sessionSchema = `
CREATE TABLE IF NOT EXISTS sessions (
	id         TEXT PRIMARY KEY,
	version    INTEGER NOT NULL,
	snapshot   TEXT NOT NULL,
	updated_at TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_sessions_updated_at ON sessions(updated_at);
`

// SQLiteStore keeps every session in one SQLite database. The snapshot
// column holds the same JSON the file store writes, so sessions can be
// moved between backends.
type SQLiteStore struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewSQLiteStore opens (or creates) the database at path and ensures
// the sessions table exists.
func NewSQLiteStore(path string, logger *zap.Logger) (*SQLiteStore, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open session database %s: %w", path, err)
	}
	if _, err := db.Exec(sessionSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("initialize session schema: %w", err)
	}
	return &SQLiteStore{db: db, logger: logger}, nil
}

// Save upserts the snapshot under the session ID.
func (ss *SQLiteStore) Save(ctx context.Context, id string, snap conversation.Snapshot) error {
	if err := validateID(id); err != nil {
		return err
	}
	data, err := conversation.MarshalSnapshot(snap)
	if err != nil {
		return err
	}

	_, err = ss.db.ExecContext(ctx, `
		INSERT INTO sessions (id, version, snapshot, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			version = excluded.version,
			snapshot = excluded.snapshot,
			updated_at = excluded.updated_at`,
		id, snap.Version, string(data), time.Now().UTC())
	if err != nil {
		return fmt.Errorf("save session %s: %w", id, err)
	}

	ss.logger.Debug("session saved",
		zap.String("session_id", id),
		zap.Int("turns", len(snap.Turns)))
	return nil
}

// Load fetches and parses the session's snapshot.
func (ss *SQLiteStore) Load(ctx context.Context, id string) (conversation.Snapshot, error) {
	if err := validateID(id); err != nil {
		return conversation.Snapshot{}, err
	}
	var data string
	err := ss.db.QueryRowContext(ctx,
		`SELECT snapshot FROM sessions WHERE id = ?`, id).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return conversation.Snapshot{}, fmt.Errorf("session %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return conversation.Snapshot{}, fmt.Errorf("load session %s: %w", id, err)
	}
	return conversation.UnmarshalSnapshot([]byte(data))
}

// List returns the stored sessions, most recently updated first.
func (ss *SQLiteStore) List(ctx context.Context) ([]SessionInfo, error) {
	rows, err := ss.db.QueryContext(ctx,
		`SELECT id, version, updated_at FROM sessions ORDER BY updated_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	var infos []SessionInfo
	for rows.Next() {
		var info SessionInfo
		if err := rows.Scan(&info.ID, &info.Version, &info.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan session row: %w", err)
		}
		infos = append(infos, info)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	return infos, nil
}

// Delete removes the session row. Deleting an unknown ID returns
// ErrNotFound.
func (ss *SQLiteStore) Delete(ctx context.Context, id string) error {
	if err := validateID(id); err != nil {
		return err
	}
	res, err := ss.db.ExecContext(ctx, `DELETE FROM sessions WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete session %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete session %s: %w", id, err)
	}
	if n == 0 {
		return fmt.Errorf("session %s: %w", id, ErrNotFound)
	}
	ss.logger.Debug("session deleted", zap.String("session_id", id))
	return nil
}

// Close releases the database handle.
func (ss *SQLiteStore) Close() error {
	return ss.db.Close()
}
