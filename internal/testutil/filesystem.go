package testutil

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"lvc-go/internal/lvc"
)

// MockFile represents a file in the mock working tree.
type MockFile struct {
	Content []byte
	ModTime time.Time
}

// MockFilesystemManager is an in-memory working tree for testing.
// Paths are slash-separated and relative to whatever root is passed in.
type MockFilesystemManager struct {
	mu      sync.Mutex
	files   map[string]*MockFile
	clock   *StubClock
	ReadErr map[string]error
}

// NewMockFilesystemManager creates an empty mock working tree.
func NewMockFilesystemManager() *MockFilesystemManager {
	return &MockFilesystemManager{
		files:   make(map[string]*MockFile),
		clock:   FixedClock(),
		ReadErr: make(map[string]error),
	}
}

// AddFile adds or replaces a file.
func (m *MockFilesystemManager) AddFile(path string, content []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.clock.Advance(time.Second)
	m.files[path] = &MockFile{Content: append([]byte(nil), content...), ModTime: m.clock.Now()}
}

// RemoveFile deletes a file.
func (m *MockFilesystemManager) RemoveFile(path string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.files, path)
}

// Touch changes a file's modification time without changing its content.
func (m *MockFilesystemManager) Touch(path string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if f, ok := m.files[path]; ok {
		m.clock.Advance(time.Second)
		f.ModTime = m.clock.Now()
	}
}

// Paths returns the current file paths, sorted.
func (m *MockFilesystemManager) Paths() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	paths := make([]string, 0, len(m.files))
	for p := range m.files {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}

func (m *MockFilesystemManager) Scan(string) (*lvc.Index, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	idx := lvc.NewIndex()
	for p, f := range m.files {
		if strings.HasPrefix(p, lvc.MetadataDirName+"/") || strings.HasPrefix(p, lvc.RollbackDirName+"/") {
			continue
		}
		idx.Files[p] = lvc.FileEntry{
			Path:         p,
			ContentHash:  lvc.ContentHash(f.Content),
			Size:         int64(len(f.Content)),
			ModifiedTime: f.ModTime,
		}
	}
	return idx, nil
}

func (m *MockFilesystemManager) ReadFile(_ string, relativePath string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.ReadErr[relativePath]; err != nil {
		return nil, err
	}
	f, ok := m.files[relativePath]
	if !ok {
		return nil, fmt.Errorf("file not found: %s", relativePath)
	}
	return append([]byte(nil), f.Content...), nil
}

// Compile-time check
var _ lvc.FilesystemManager = (*MockFilesystemManager)(nil)
