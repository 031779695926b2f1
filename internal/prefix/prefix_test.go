package prefix

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestScan_FindsRegularFiles(t *testing.T) {
	dir := t.TempDir()
	os.MkdirAll(filepath.Join(dir, "sub"), 0o755)
	os.WriteFile(filepath.Join(dir, "a.txt"), []byte("hello"), 0o644)
	os.WriteFile(filepath.Join(dir, "sub", "b.txt"), []byte("world!"), 0o644)

	entries, err := Scan(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 2 {
		t.Fatalf("got %d entries, want 2", len(entries))
	}

	sizes := map[string]int64{}
	for _, e := range entries {
		sizes[filepath.Base(e.Path)] = e.Size
	}
	if sizes["a.txt"] != 5 || sizes["b.txt"] != 6 {
		t.Errorf("sizes = %+v", sizes)
	}
}

func TestNewSnapshot_AssignsIDAndTimestamp(t *testing.T) {
	dir := t.TempDir()
	os.WriteFile(filepath.Join(dir, "a.txt"), []byte("x"), 0o644)

	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	snap, err := NewSnapshot(dir, now)
	if err != nil {
		t.Fatal(err)
	}
	if len(snap.ID) != 36 {
		t.Errorf("ID = %q, want a uuid", snap.ID)
	}
	if !snap.CreatedAt.Equal(now) {
		t.Errorf("CreatedAt = %v, want %v", snap.CreatedAt, now)
	}
	if snap.PrefixRoot != dir {
		t.Errorf("PrefixRoot = %q, want %q", snap.PrefixRoot, dir)
	}
	if len(snap.Entries) != 1 {
		t.Errorf("Entries = %+v", snap.Entries)
	}
}

func TestSave_WritesNamedFile(t *testing.T) {
	dir := t.TempDir()
	snap := Snapshot{ID: "abc-123", PrefixRoot: dir}
	outDir := t.TempDir()
	if err := Save(outDir, snap); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(filepath.Join(outDir, "abc-123.json")); err != nil {
		t.Errorf("expected snapshot file: %v", err)
	}
}
