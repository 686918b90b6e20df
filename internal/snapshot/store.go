package snapshot

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	lvcfs "lvc-go/internal/fs"
	"lvc-go/internal/lvc"
)

// FileStore keeps one JSON document per snapshot in dir, named <id>.json.
type FileStore struct {
	dir string
}

// NewFileStore creates a snapshot store in dir, creating it if needed.
func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create snapshots directory: %w", err)
	}
	return &FileStore{dir: dir}, nil
}

func (s *FileStore) path(id string) string {
	return filepath.Join(s.dir, id+".json")
}

func validID(id string) bool {
	return id != "" && !strings.ContainsAny(id, `/\.`)
}

// Save writes the snapshot metadata. Existing metadata for the same id is replaced.
func (s *FileStore) Save(snap *lvc.SnapshotMetadata) error {
	if !validID(snap.ID) {
		return fmt.Errorf("invalid snapshot id %q", snap.ID)
	}
	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding snapshot %s: %w", snap.ID, err)
	}
	if err := lvcfs.WriteFileAtomic(s.path(snap.ID), data, 0644); err != nil {
		return fmt.Errorf("writing snapshot %s: %w", snap.ID, err)
	}
	return nil
}

// Load reads the metadata for id.
func (s *FileStore) Load(id string) (*lvc.SnapshotMetadata, error) {
	if !validID(id) {
		return nil, lvc.ErrSnapshotNotFound
	}
	data, err := os.ReadFile(s.path(id))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, lvc.ErrSnapshotNotFound
		}
		return nil, fmt.Errorf("reading snapshot: %w", err)
	}
	var snap lvc.SnapshotMetadata
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("parsing snapshot: %w", err)
	}
	if snap.Files == nil {
		snap.Files = make(map[string]lvc.FileEntry)
	}
	return &snap, nil
}

// Exists reports whether metadata is stored for id.
func (s *FileStore) Exists(id string) bool {
	if !validID(id) {
		return false
	}
	_, err := os.Stat(s.path(id))
	return err == nil
}

// List returns the ids of all stored snapshots, sorted.
func (s *FileStore) List() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("listing snapshots: %w", err)
	}
	var ids []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		id, ok := strings.CutSuffix(e.Name(), ".json")
		if !ok || !validID(id) {
			continue
		}
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

// Delete removes the metadata for id.
func (s *FileStore) Delete(id string) error {
	if !validID(id) {
		return lvc.ErrSnapshotNotFound
	}
	if err := os.Remove(s.path(id)); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return lvc.ErrSnapshotNotFound
		}
		return fmt.Errorf("removing snapshot: %w", err)
	}
	return nil
}

var _ lvc.SnapshotStore = (*FileStore)(nil)
