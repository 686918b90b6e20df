package snapshot

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"lvc-go/internal/lvc"
)

func newTestStore(t *testing.T) *FileStore {
	t.Helper()
	s, err := NewFileStore(filepath.Join(t.TempDir(), "snapshots"))
	if err != nil {
		t.Fatalf("NewFileStore() error = %v", err)
	}
	return s
}

func TestFileStore_SaveLoad(t *testing.T) {
	s := newTestStore(t)
	snap := &lvc.SnapshotMetadata{
		ID:             "0a1b2c3d",
		SequenceNumber: 3,
		Timestamp:      time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC),
		Message:        "third",
		Added:          1,
		Files: map[string]lvc.FileEntry{
			"a.txt": {Path: "a.txt", ContentHash: lvc.ContentHash([]byte("a")), Size: 1},
		},
	}

	if err := s.Save(snap); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if !s.Exists("0a1b2c3d") {
		t.Fatal("Exists() = false after Save()")
	}

	got, err := s.Load("0a1b2c3d")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if got.Message != "third" || got.SequenceNumber != 3 || len(got.Files) != 1 {
		t.Errorf("Load() = %+v", got)
	}
	if !got.Timestamp.Equal(snap.Timestamp) {
		t.Errorf("Timestamp = %v, want %v", got.Timestamp, snap.Timestamp)
	}
}

func TestFileStore_Missing(t *testing.T) {
	s := newTestStore(t)

	if _, err := s.Load("deadbeef"); !errors.Is(err, lvc.ErrSnapshotNotFound) {
		t.Errorf("Load() error = %v, want ErrSnapshotNotFound", err)
	}
	if err := s.Delete("deadbeef"); !errors.Is(err, lvc.ErrSnapshotNotFound) {
		t.Errorf("Delete() error = %v, want ErrSnapshotNotFound", err)
	}
	if _, err := s.Load("../escape"); !errors.Is(err, lvc.ErrSnapshotNotFound) {
		t.Errorf("Load() of path-like id error = %v, want ErrSnapshotNotFound", err)
	}
}

func TestFileStore_ListDelete(t *testing.T) {
	s := newTestStore(t)
	for _, id := range []string{"bbbbbbbb", "aaaaaaaa"} {
		if err := s.Save(&lvc.SnapshotMetadata{ID: id}); err != nil {
			t.Fatalf("Save(%s) error = %v", id, err)
		}
	}
	if err := os.WriteFile(filepath.Join(s.dir, "notes.txt"), []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}

	ids, err := s.List()
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(ids) != 2 || ids[0] != "aaaaaaaa" || ids[1] != "bbbbbbbb" {
		t.Errorf("List() = %v", ids)
	}

	if err := s.Delete("aaaaaaaa"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if s.Exists("aaaaaaaa") {
		t.Error("Exists() = true after Delete()")
	}
}
