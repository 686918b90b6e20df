package fs

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"lvc-go/internal/lvc"
)

// OSFilesystemManager is the real filesystem implementation of lvc.FilesystemManager.
// Symlinks, devices, pipes and sockets are never followed or recorded.
type OSFilesystemManager struct {
	ignore *IgnoreMatcher
}

// NewOSFilesystemManager creates a filesystem manager that skips paths matching ignorePatterns.
func NewOSFilesystemManager(ignorePatterns []string) *OSFilesystemManager {
	return &OSFilesystemManager{ignore: NewIgnoreMatcher(ignorePatterns)}
}

// Scan walks root and hashes every tracked regular file.
// The metadata and rollback directories at the root are always skipped.
func (m *OSFilesystemManager) Scan(root string) (*lvc.Index, error) {
	idx := lvc.NewIndex()

	err := filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if p == root {
			return nil
		}
		rel, err := filepath.Rel(root, p)
		if err != nil {
			return fmt.Errorf("relative path for %s: %w", p, err)
		}

		if d.IsDir() {
			if rel == lvc.MetadataDirName || rel == lvc.RollbackDirName || m.ignore.Match(rel, true) {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}
		if m.ignore.Match(rel, false) {
			return nil
		}

		entry, err := hashFile(p)
		if err != nil {
			return err
		}
		entry.Path = filepath.ToSlash(rel)
		idx.Files[entry.Path] = *entry
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walking directory: %w", err)
	}
	return idx, nil
}

func hashFile(p string) (*lvc.FileEntry, error) {
	f, err := os.Open(p)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", p, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", p, err)
	}
	hash, n, err := lvc.HashReader(f)
	if err != nil {
		return nil, fmt.Errorf("hashing %s: %w", p, err)
	}
	return &lvc.FileEntry{
		ContentHash:  hash,
		Size:         n,
		ModifiedTime: info.ModTime().UTC(),
	}, nil
}

// ReadFile returns the bytes of a file given by its slash-separated path relative to root.
func (m *OSFilesystemManager) ReadFile(root, relativePath string) ([]byte, error) {
	return os.ReadFile(filepath.Join(root, filepath.FromSlash(relativePath)))
}

// Compile-time check that OSFilesystemManager implements lvc.FilesystemManager interface
var _ lvc.FilesystemManager = (*OSFilesystemManager)(nil)
