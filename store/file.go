package store

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/rahulgovind/neo/conversation"
)

// FileStore keeps one JSON file per session under a directory, named
// <id>.json. It is the default backend for local use.
type FileStore struct {
	dir    string
	logger *zap.Logger
}

// NewFileStore creates the directory if needed and returns a store
// rooted there.
func NewFileStore(dir string, logger *zap.Logger) (*FileStore, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create session directory %s: %w", dir, err)
	}
	return &FileStore{dir: dir, logger: logger}, nil
}

func (fs *FileStore) path(id string) (string, error) {
	if err := validateID(id); err != nil {
		return "", err
	}
	return filepath.Join(fs.dir, id+".json"), nil
}

// Save writes the snapshot to a temp file and renames it into place so
// a crash mid-write never corrupts an existing session.
func (fs *FileStore) Save(ctx context.Context, id string, snap conversation.Snapshot) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	path, err := fs.path(id)
	if err != nil {
		return err
	}
	data, err := conversation.MarshalSnapshot(snap)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(fs.dir, id+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp session file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write session file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close session file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replace session file %s: %w", path, err)
	}

	fs.logger.Debug("session saved",
		zap.String("session_id", id),
		zap.Int("turns", len(snap.Turns)),
		zap.String("path", path))
	return nil
}

// Load reads and parses the session's snapshot. A missing file maps to
// ErrNotFound.
func (fs *FileStore) Load(ctx context.Context, id string) (conversation.Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return conversation.Snapshot{}, err
	}
	path, err := fs.path(id)
	if err != nil {
		return conversation.Snapshot{}, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return conversation.Snapshot{}, fmt.Errorf("session %s: %w", id, ErrNotFound)
		}
		return conversation.Snapshot{}, fmt.Errorf("read session file %s: %w", path, err)
	}
	return conversation.UnmarshalSnapshot(data)
}

// List returns the stored sessions, most recently updated first.
func (fs *FileStore) List(ctx context.Context) ([]SessionInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(fs.dir)
	if err != nil {
		return nil, fmt.Errorf("read session directory %s: %w", fs.dir, err)
	}

	var infos []SessionInfo
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".json") {
			continue
		}
		fi, err := entry.Info()
		if err != nil {
			continue
		}
		infos = append(infos, SessionInfo{
			ID:        strings.TrimSuffix(name, ".json"),
			Version:   fs.snapshotVersion(filepath.Join(fs.dir, name)),
			UpdatedAt: fi.ModTime(),
		})
	}
	sort.Slice(infos, func(i, j int) bool {
		return infos[i].UpdatedAt.After(infos[j].UpdatedAt)
	})
	return infos, nil
}

// Delete removes the session file. Deleting an unknown ID returns
// ErrNotFound.
func (fs *FileStore) Delete(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	path, err := fs.path(id)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("session %s: %w", id, ErrNotFound)
		}
		return fmt.Errorf("delete session file %s: %w", path, err)
	}
	fs.logger.Debug("session deleted", zap.String("session_id", id))
	return nil
}

// snapshotVersion reads just the version header of a session file, so
// List reports the same metadata as the SQLite backend. Unreadable or
// corrupt files report version 0; Load surfaces the real error.
func (fs *FileStore) snapshotVersion(path string) int {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0
	}
	var header struct {
		Version int `json:"version"`
	}
	if err := json.Unmarshal(data, &header); err != nil {
		return 0
	}
	return header.Version
}

// Close is a no-op; the file store holds no open handles.
func (fs *FileStore) Close() error { return nil }

// validateID rejects IDs that would escape the session directory or
// collide with temp files.
func validateID(id string) error {
	if id == "" {
		return fmt.Errorf("session ID must not be empty")
	}
	if strings.ContainsAny(id, "/\\") || strings.Contains(id, "..") {
		return fmt.Errorf("invalid session ID %q", id)
	}
	return nil
}
