// Package prefix implements prefix hygiene scans and snapshots: walking
// a prefix root and producing the {id, created_at, prefix_root,
// entries[]} snapshot JSON.
package prefix

import (
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
)

// Entry is one file observed under the prefix root.
type Entry struct {
	Path       string     `json:"path"`
	Size       int64      `json:"size"`
	ModifiedAt *time.Time `json:"modified_at,omitempty"`
}

// Snapshot is the persisted artifact of a `prefix snapshot` run.
type Snapshot struct {
	ID         string    `json:"id"`
	CreatedAt  time.Time `json:"created_at"`
	PrefixRoot string    `json:"prefix_root"`
	Entries    []Entry   `json:"entries"`
}

// Scan walks prefixRoot and returns one Entry per regular file found.
// Unreadable entries are skipped rather than aborting the walk, since a
// hygiene scan should report as much as it can.
func Scan(prefixRoot string) ([]Entry, error) {
	var entries []Entry
	err := filepath.WalkDir(prefixRoot, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return nil
		}
		modTime := info.ModTime()
		entries = append(entries, Entry{
			Path:       path,
			Size:       info.Size(),
			ModifiedAt: &modTime,
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan prefix %s: %w", prefixRoot, err)
	}
	return entries, nil
}

// NewSnapshot scans prefixRoot and wraps the result with a fresh uuid v4
// identity and createdAt timestamp, supplied by the caller rather than
// computed here.
func NewSnapshot(prefixRoot string, createdAt time.Time) (Snapshot, error) {
	entries, err := Scan(prefixRoot)
	if err != nil {
		return Snapshot{}, err
	}
	return Snapshot{
		ID:         uuid.NewString(),
		CreatedAt:  createdAt,
		PrefixRoot: prefixRoot,
		Entries:    entries,
	}, nil
}

// Save persists snap to <dir>/<snapshot_id>.json.
func Save(dir string, snap Snapshot) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create snapshot dir: %w", err)
	}
	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}
	path := filepath.Join(dir, snap.ID+".json")
	return os.WriteFile(path, data, 0o644)
}
