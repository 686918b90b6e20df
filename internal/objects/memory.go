package objects

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"lvc-go/internal/lvc"
)

// MemoryObjectStore is an in-memory implementation of lvc.ObjectStore.
// Content is kept uncompressed, so sizes equal content length.
// This implementation is safe for concurrent use.
type MemoryObjectStore struct {
	mu      sync.RWMutex
	objects map[string][]byte // hash -> content
}

// NewMemoryObjectStore creates an empty in-memory object store.
func NewMemoryObjectStore() *MemoryObjectStore {
	return &MemoryObjectStore{objects: make(map[string][]byte)}
}

func (m *MemoryObjectStore) Store(data []byte) (string, error) {
	hash := lvc.ContentHash(data)

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.objects[hash]; !ok {
		m.objects[hash] = append([]byte(nil), data...)
	}
	return hash, nil
}

func (m *MemoryObjectStore) Load(hash string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	data, ok := m.objects[hash]
	if !ok {
		return nil, fmt.Errorf("%s: %w", hash, lvc.ErrObjectNotFound)
	}
	return append([]byte(nil), data...), nil
}

func (m *MemoryObjectStore) Restore(hash, targetPath string) error {
	data, err := m.Load(hash)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(targetPath), 0755); err != nil {
		return fmt.Errorf("creating parent directory: %w", err)
	}
	return os.WriteFile(targetPath, data, 0644)
}

func (m *MemoryObjectStore) Exists(hash string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.objects[hash]
	return ok
}

func (m *MemoryObjectStore) SizeOf(hash string) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	data, ok := m.objects[hash]
	if !ok {
		return 0, fmt.Errorf("%s: %w", hash, lvc.ErrObjectNotFound)
	}
	return int64(len(data)), nil
}

func (m *MemoryObjectStore) ListAll() ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	hashes := make([]string, 0, len(m.objects))
	for h := range m.objects {
		hashes = append(hashes, h)
	}
	sort.Strings(hashes)
	return hashes, nil
}

func (m *MemoryObjectStore) Remove(hash string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	data, ok := m.objects[hash]
	if !ok {
		return 0, nil
	}
	delete(m.objects, hash)
	return int64(len(data)), nil
}

// Recompress is a no-op for uncompressed content.
func (m *MemoryObjectStore) Recompress(hash string) (int64, int64, error) {
	size, err := m.SizeOf(hash)
	return size, size, err
}

// CleanFragments has nothing to clean in memory.
func (m *MemoryObjectStore) CleanFragments(bool) (*lvc.FragmentReport, error) {
	return &lvc.FragmentReport{}, nil
}

var _ lvc.ObjectStore = (*MemoryObjectStore)(nil)
