package objects

import (
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

// MinObjectSize is the smallest payload a codec can produce for any input.
// Smaller files under the objects directory are fragments.
const MinObjectSize = 18

// FileSystemObjectStore keeps compressed objects on disk, fanned out by the
// first two hex characters of their hash:
//
//	<dir>/
//	  ab/
//	    cdef0123...   (compressed content, named by the remaining 38 chars)
type FileSystemObjectStore struct {
	dir   string
	codec Codec
}

// NewFileSystemObjectStore creates an object store rooted at dir.
func NewFileSystemObjectStore(dir string, codec Codec) (*FileSystemObjectStore, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create objects directory: %w", err)
	}
	if codec == nil {
		codec = GzipCodec{}
	}
	return &FileSystemObjectStore{dir: dir, codec: codec}, nil
}

func (s *FileSystemObjectStore) path(hash string) string {
	return filepath.Join(s.dir, hash[:2], hash[2:])
}

func (s *FileSystemObjectStore) checkHash(hash string) error {
	if !lvc.IsContentHash(hash) {
		return fmt.Errorf("invalid object hash %q", hash)
	}
	return nil
}

// Store compresses data and writes it under its content hash.
// Storing content that already exists is a no-op.
func (s *FileSystemObjectStore) Store(data []byte) (string, error) {
	hash := lvc.ContentHash(data)
	dest := s.path(hash)

	if _, err := os.Stat(dest); err == nil {
		return hash, nil
	}

	payload, err := s.codec.Encode(data, false)
	if err != nil {
		return "", fmt.Errorf("compressing object %s: %w", hash, err)
	}
	if err := os.MkdirAll(filepath.Dir(dest), 0755); err != nil {
		return "", fmt.Errorf("creating object directory: %w", err)
	}
	if err := lvcfs.WriteFileAtomic(dest, payload, 0644); err != nil {
		return "", fmt.Errorf("writing object %s: %w", hash, err)
	}
	return hash, nil
}

// Load returns the decompressed content for hash.
func (s *FileSystemObjectStore) Load(hash string) ([]byte, error) {
	if err := s.checkHash(hash); err != nil {
		return nil, err
	}
	payload, err := os.ReadFile(s.path(hash))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%s: %w", hash, lvc.ErrObjectNotFound)
		}
		return nil, fmt.Errorf("reading object %s: %w", hash, err)
	}
	data, err := Decode(payload)
	if err != nil {
		return nil, fmt.Errorf("decompressing object %s: %w", hash, err)
	}
	return data, nil
}

// Restore writes the content for hash to targetPath, creating parent directories.
func (s *FileSystemObjectStore) Restore(hash, targetPath string) error {
	data, err := s.Load(hash)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(targetPath), 0755); err != nil {
		return fmt.Errorf("creating parent directory: %w", err)
	}
	if err := lvcfs.WriteFileAtomic(targetPath, data, 0644); err != nil {
		return fmt.Errorf("writing %s: %w", targetPath, err)
	}
	return nil
}

// Exists reports whether an object is stored for hash.
func (s *FileSystemObjectStore) Exists(hash string) bool {
	if s.checkHash(hash) != nil {
		return false
	}
	_, err := os.Stat(s.path(hash))
	return err == nil
}

// SizeOf returns the on-disk (compressed) size of the object.
func (s *FileSystemObjectStore) SizeOf(hash string) (int64, error) {
	if err := s.checkHash(hash); err != nil {
		return 0, err
	}
	info, err := os.Stat(s.path(hash))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return 0, fmt.Errorf("%s: %w", hash, lvc.ErrObjectNotFound)
		}
		return 0, fmt.Errorf("stat object %s: %w", hash, err)
	}
	return info.Size(), nil
}

// ListAll returns the hashes of every well-formed object, sorted.
func (s *FileSystemObjectStore) ListAll() ([]string, error) {
	var hashes []string
	err := s.walkObjects(func(hash, _ string, _ fs.FileInfo) error {
		hashes = append(hashes, hash)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("listing objects: %w", err)
	}
	sort.Strings(hashes)
	return hashes, nil
}

// walkObjects calls fn for each file that sits at the right depth and whose
// reconstructed name is a valid hash.
func (s *FileSystemObjectStore) walkObjects(fn func(hash, path string, info fs.FileInfo) error) error {
	prefixes, err := os.ReadDir(s.dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return err
	}
	for _, p := range prefixes {
		if !p.IsDir() || len(p.Name()) != 2 {
			continue
		}
		entries, err := os.ReadDir(filepath.Join(s.dir, p.Name()))
		if err != nil {
			return err
		}
		for _, e := range entries {
			if e.IsDir() {
				continue
			}
			hash := p.Name() + e.Name()
			if !lvc.IsContentHash(hash) {
				continue
			}
			info, err := e.Info()
			if err != nil {
				return err
			}
			if err := fn(hash, filepath.Join(s.dir, p.Name(), e.Name()), info); err != nil {
				return err
			}
		}
	}
	return nil
}

// Remove deletes the object for hash and returns the bytes freed.
// A missing object frees nothing.
func (s *FileSystemObjectStore) Remove(hash string) (int64, error) {
	size, err := s.SizeOf(hash)
	if errors.Is(err, lvc.ErrObjectNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	if err := os.Remove(s.path(hash)); err != nil {
		return 0, fmt.Errorf("removing object %s: %w", hash, err)
	}
	return size, nil
}

// Recompress re-encodes an object at the codec's best setting and keeps the
// result only when it is strictly smaller.
func (s *FileSystemObjectStore) Recompress(hash string) (int64, int64, error) {
	before, err := s.SizeOf(hash)
	if err != nil {
		return 0, 0, err
	}
	data, err := s.Load(hash)
	if err != nil {
		return before, before, err
	}
	payload, err := s.codec.Encode(data, true)
	if err != nil {
		return before, before, fmt.Errorf("recompressing object %s: %w", hash, err)
	}
	if int64(len(payload)) >= before {
		return before, before, nil
	}
	if err := lvcfs.WriteFileAtomic(s.path(hash), payload, 0644); err != nil {
		return before, before, fmt.Errorf("replacing object %s: %w", hash, err)
	}
	return before, int64(len(payload)), nil
}

// CleanFragments removes leftovers that are not valid objects: temp and lock
// files, files at the wrong depth and files too small to hold an object.
// Empty directories are removed afterwards. With dryRun nothing is deleted.
func (s *FileSystemObjectStore) CleanFragments(dryRun bool) (*lvc.FragmentReport, error) {
	report := &lvc.FragmentReport{}

	err := filepath.WalkDir(s.dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(s.dir, path)
		if err != nil {
			return err
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		if !isFragment(filepath.ToSlash(rel), info.Size()) {
			return nil
		}
		report.Fragments = append(report.Fragments, filepath.ToSlash(rel))
		report.FreedBytes += info.Size()
		if dryRun {
			return nil
		}
		return os.Remove(path)
	})
	if err != nil {
		return report, fmt.Errorf("cleaning fragments: %w", err)
	}

	if !dryRun {
		removed, err := removeEmptyDirs(s.dir)
		if err != nil {
			return report, fmt.Errorf("removing empty directories: %w", err)
		}
		report.EmptyDirsRemoved = removed
	}
	return report, nil
}

func isFragment(rel string, size int64) bool {
	name := filepath.Base(rel)
	switch {
	case strings.HasPrefix(name, ".tmp-"),
		strings.HasSuffix(name, ".tmp"),
		strings.HasSuffix(name, ".lock"),
		strings.HasSuffix(name, ".partial"):
		return true
	}
	parts := strings.Split(rel, "/")
	if len(parts) != 2 || !lvc.IsContentHash(parts[0]+parts[1]) {
		return true
	}
	return size < MinObjectSize
}

// removeEmptyDirs deletes empty directories below root, deepest first.
func removeEmptyDirs(root string) (int, error) {
	var dirs []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() && path != root {
			dirs = append(dirs, path)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	removed := 0
	for i := len(dirs) - 1; i >= 0; i-- {
		entries, err := os.ReadDir(dirs[i])
		if err != nil {
			return removed, err
		}
		if len(entries) > 0 {
			continue
		}
		if err := os.Remove(dirs[i]); err != nil {
			return removed, err
		}
		removed++
	}
	return removed, nil
}

var _ lvc.ObjectStore = (*FileSystemObjectStore)(nil)
