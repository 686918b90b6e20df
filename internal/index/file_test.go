package index

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"lvc-go/internal/lvc"
)

func TestFileStore_LoadMissing(t *testing.T) {
	s := NewFileStore(filepath.Join(t.TempDir(), "index.json"))

	idx, err := s.Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if idx.Len() != 0 {
		t.Errorf("Load() of missing file has %d entries", idx.Len())
	}
}

func TestFileStore_SaveLoad(t *testing.T) {
	s := NewFileStore(filepath.Join(t.TempDir(), "index.json"))
	mtime := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	idx := lvc.NewIndex()
	idx.Files["a.txt"] = lvc.FileEntry{Path: "a.txt", ContentHash: lvc.ContentHash([]byte("a")), Size: 1, ModifiedTime: mtime}
	idx.Files["dir/b.txt"] = lvc.FileEntry{Path: "dir/b.txt", ContentHash: lvc.ContentHash([]byte("b")), Size: 1, ModifiedTime: mtime}

	if err := s.Save(idx); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	got, err := s.Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if got.Len() != 2 {
		t.Fatalf("Load() has %d entries, want 2", got.Len())
	}
	if got.Files["dir/b.txt"] != idx.Files["dir/b.txt"] {
		t.Errorf("entry = %+v, want %+v", got.Files["dir/b.txt"], idx.Files["dir/b.txt"])
	}
}

func TestFileStore_LoadCorrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "index.json")
	if err := os.WriteFile(path, []byte("{not json"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := NewFileStore(path).Load(); err == nil {
		t.Error("Load() expected error for corrupt index")
	}
}
