package index

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"

	lvcfs "lvc-go/internal/fs"
	"lvc-go/internal/lvc"
)

// FileStore persists the index as a JSON document.
type FileStore struct {
	path string
}

// NewFileStore creates an index store backed by the file at path.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Load reads the index. A missing file yields an empty index.
func (s *FileStore) Load() (*lvc.Index, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return lvc.NewIndex(), nil
		}
		return nil, fmt.Errorf("reading index: %w", err)
	}

	idx := lvc.NewIndex()
	if err := json.Unmarshal(data, idx); err != nil {
		return nil, fmt.Errorf("parsing index %s: %w", s.path, err)
	}
	if idx.Files == nil {
		idx.Files = make(map[string]lvc.FileEntry)
	}
	return idx, nil
}

// Save replaces the index file atomically.
func (s *FileStore) Save(idx *lvc.Index) error {
	data, err := json.MarshalIndent(idx, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding index: %w", err)
	}
	if err := lvcfs.WriteFileAtomic(s.path, data, 0644); err != nil {
		return fmt.Errorf("writing index: %w", err)
	}
	return nil
}

var _ lvc.IndexStore = (*FileStore)(nil)
