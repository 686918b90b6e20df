package lvc

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
)

const (
	// MetadataDirName is the directory at the repository root holding all lvc state.
	MetadataDirName = ".lvc"

	// RollbackDirName is the directory at the repository root that receives rollback exports.
	RollbackDirName = "lvc-rollback"

	// AutoGCInterval is the number of commits between automatic collections.
	AutoGCInterval = 10

	maxIDAttempts = 16
)

// Policy holds the commit and retention knobs the repository enforces.
// A zero value disables the corresponding limit.
type Policy struct {
	MaxFileSize   int64
	AutoGC        bool
	KeepDays      int
	KeepSnapshots int
}

// Repository is the orchestration layer over one working tree and its metadata directory.
type Repository struct {
	root      string
	objects   ObjectStore
	fsmgr     FilesystemManager
	index     IndexStore
	snapshots SnapshotStore
	history   HistoryLog
	policy    Policy
	logger    Logger
	clock     Clock
	idgen     IDGenerator
}

// NewRepository creates a Repository rooted at root with the provided dependencies.
func NewRepository(root string, objects ObjectStore, fsmgr FilesystemManager, index IndexStore, snapshots SnapshotStore, history HistoryLog, policy Policy, logger Logger, clock Clock, idgen IDGenerator) *Repository {
	return &Repository{
		root:      root,
		objects:   objects,
		fsmgr:     fsmgr,
		index:     index,
		snapshots: snapshots,
		history:   history,
		policy:    policy,
		logger:    logger,
		clock:     clock,
		idgen:     idgen,
	}
}

// Root returns the working tree root.
func (r *Repository) Root() string {
	return r.root
}

// Policy returns the active commit and retention policy.
func (r *Repository) Policy() Policy {
	return r.policy
}

// Objects exposes the object store for read paths such as patch rendering and export.
func (r *Repository) Objects() ObjectStore {
	return r.objects
}

// FindRoot walks up from start until it finds a directory containing the
// metadata directory.
func FindRoot(start string) (string, error) {
	dir, err := filepath.Abs(start)
	if err != nil {
		return "", fmt.Errorf("resolving path: %w", err)
	}
	for {
		info, err := os.Stat(filepath.Join(dir, MetadataDirName))
		if err == nil && info.IsDir() {
			return dir, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", ErrNotARepository
		}
		dir = parent
	}
}

// CreateSnapshot scans the working tree, stores new content and records a snapshot.
// It always creates a snapshot, even when nothing changed.
//
// Files over the size limit are not stored. They stay in the index, are left
// out of the snapshot's file map and do not count as added or modified.
func (r *Repository) CreateSnapshot(message string) (*CommitResult, error) {
	current, err := r.fsmgr.Scan(r.root)
	if err != nil {
		return nil, fmt.Errorf("scanning working tree: %w", err)
	}

	previous, err := r.index.Load()
	if err != nil {
		return nil, fmt.Errorf("loading index: %w", err)
	}

	changes := DiffIndexes(previous, current)
	changed := make(map[string]bool, len(changes.Added)+len(changes.Modified))
	for _, p := range changes.Added {
		changed[p] = true
	}
	for _, p := range changes.Modified {
		changed[p] = true
	}

	result := &CommitResult{Message: message, Changes: *changes}
	stored := make(map[string]bool)

	paths := make([]string, 0, len(current.Files))
	for p := range current.Files {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	for _, p := range paths {
		entry := current.Files[p]
		if !changed[p] && r.objects.Exists(entry.ContentHash) {
			continue
		}

		if r.policy.MaxFileSize > 0 && entry.Size > r.policy.MaxFileSize {
			r.logger.Warn("skipping oversized file", "path", p, "size", entry.Size, "limit", r.policy.MaxFileSize)
			result.Skipped = append(result.Skipped, SkippedFile{Path: p, Size: entry.Size, Reason: ErrOversizedFile.Error()})
			continue
		}

		content, err := r.fsmgr.ReadFile(r.root, p)
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", p, err)
		}
		hash, err := r.objects.Store(content)
		if err != nil {
			return nil, fmt.Errorf("storing %s: %w", p, err)
		}
		if hash != entry.ContentHash {
			// The file changed between scan and read; record what was stored.
			r.logger.Warn("file changed during commit", "path", p)
			entry.ContentHash = hash
			entry.Size = int64(len(content))
			current.Files[p] = entry
		}
		if changed[p] {
			stored[p] = true
		} else {
			r.logger.Debug("restored missing object", "path", p, "hash", hash)
		}
	}

	for _, p := range changes.Added {
		if stored[p] {
			result.Added++
		}
	}
	for _, p := range changes.Modified {
		if stored[p] {
			result.Modified++
		}
	}
	result.Deleted = len(changes.Deleted)

	count, err := r.history.Len()
	if err != nil {
		return nil, fmt.Errorf("reading history: %w", err)
	}
	result.SequenceNumber = count + 1
	result.Timestamp = r.clock.Now().UTC()

	id, err := r.newSnapshotID(result)
	if err != nil {
		return nil, err
	}
	result.SnapshotID = id

	files := make(map[string]FileEntry, len(current.Files))
	for p, entry := range current.Files {
		files[p] = entry
	}
	for _, sk := range result.Skipped {
		delete(files, sk.Path)
	}

	snap := &SnapshotMetadata{
		ID:             id,
		SequenceNumber: result.SequenceNumber,
		Timestamp:      result.Timestamp,
		Message:        message,
		Added:          result.Added,
		Modified:       result.Modified,
		Deleted:        result.Deleted,
		Files:          files,
	}
	if err := r.snapshots.Save(snap); err != nil {
		return nil, fmt.Errorf("saving snapshot: %w", err)
	}
	if err := r.index.Save(current); err != nil {
		return nil, fmt.Errorf("saving index: %w", err)
	}
	if err := r.history.Append(&HistoryEntry{
		SnapshotID:     id,
		SequenceNumber: result.SequenceNumber,
		Timestamp:      result.Timestamp,
		Added:          result.Added,
		Modified:       result.Modified,
		Deleted:        result.Deleted,
		Message:        message,
	}); err != nil {
		return nil, fmt.Errorf("appending history: %w", err)
	}

	r.logger.Info("snapshot created", "id", id, "seq", result.SequenceNumber,
		"added", result.Added, "modified", result.Modified, "deleted", result.Deleted)

	if r.policy.AutoGC {
		r.maybeAutoGC(result)
	}

	return result, nil
}

// maybeAutoGC runs a plain collection when the live history length reaches a
// multiple of AutoGCInterval. Failures are logged, never returned.
func (r *Repository) maybeAutoGC(result *CommitResult) {
	live, err := r.LiveHistory()
	if err != nil {
		r.logger.Warn("automatic gc skipped", "error", err)
		return
	}
	if len(live) == 0 || len(live)%AutoGCInterval != 0 {
		return
	}
	report, err := r.RunGC(GCOptions{})
	if err != nil {
		r.logger.Warn("automatic gc failed", "error", err)
		return
	}
	result.AutoGC = report
}

func (r *Repository) newSnapshotID(result *CommitResult) (string, error) {
	for attempt := 0; attempt < maxIDAttempts; attempt++ {
		id := r.idgen.New(result.Timestamp, result.Message, attempt)
		if !r.snapshots.Exists(id) {
			return id, nil
		}
		r.logger.Debug("snapshot id collision", "id", id, "attempt", attempt)
	}
	return "", fmt.Errorf("generating snapshot id: %d attempts collided", maxIDAttempts)
}

// ScanAndDiff compares the working tree against the index without writing anything.
func (r *Repository) ScanAndDiff() (*Changes, error) {
	current, err := r.fsmgr.Scan(r.root)
	if err != nil {
		return nil, fmt.Errorf("scanning working tree: %w", err)
	}
	previous, err := r.index.Load()
	if err != nil {
		return nil, fmt.Errorf("loading index: %w", err)
	}
	return DiffIndexes(previous, current), nil
}

// LoadSnapshot returns the metadata for id.
func (r *Repository) LoadSnapshot(id string) (*SnapshotMetadata, error) {
	snap, err := r.snapshots.Load(id)
	if err != nil {
		return nil, fmt.Errorf("loading snapshot %s: %w", id, err)
	}
	return snap, nil
}

// ListHistory returns history entries newest first.
// Entries whose snapshot metadata has been pruned are marked Pruned.
func (r *Repository) ListHistory() ([]*HistoryEntry, error) {
	entries, err := r.history.List()
	if err != nil {
		return nil, fmt.Errorf("reading history: %w", err)
	}
	for _, e := range entries {
		e.Pruned = !r.snapshots.Exists(e.SnapshotID)
	}
	return entries, nil
}

// LiveHistory returns only history entries whose snapshot still exists, newest first.
func (r *Repository) LiveHistory() ([]*HistoryEntry, error) {
	entries, err := r.ListHistory()
	if err != nil {
		return nil, err
	}
	live := entries[:0]
	for _, e := range entries {
		if !e.Pruned {
			live = append(live, e)
		}
	}
	return live, nil
}

// Latest returns the newest live history entry, or nil when none exist.
func (r *Repository) Latest() (*HistoryEntry, error) {
	live, err := r.LiveHistory()
	if err != nil {
		return nil, err
	}
	if len(live) == 0 {
		return nil, nil
	}
	return live[0], nil
}

// RestoreSnapshot writes every file of snapshot id beneath target.
// Returns the number of files written.
func (r *Repository) RestoreSnapshot(id, target string) (int, error) {
	snap, err := r.LoadSnapshot(id)
	if err != nil {
		return 0, err
	}
	if err := os.MkdirAll(target, 0o755); err != nil {
		return 0, fmt.Errorf("creating target directory: %w", err)
	}

	paths := make([]string, 0, len(snap.Files))
	for p := range snap.Files {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	count := 0
	for _, p := range paths {
		entry := snap.Files[p]
		dest, err := safeJoin(target, p)
		if err != nil {
			return count, err
		}
		if err := r.objects.Restore(entry.ContentHash, dest); err != nil {
			return count, fmt.Errorf("restoring %s: %w", p, err)
		}
		if !entry.ModifiedTime.IsZero() {
			if err := os.Chtimes(dest, entry.ModifiedTime, entry.ModifiedTime); err != nil {
				r.logger.Warn("could not restore modification time", "path", p, "error", err)
			}
		}
		count++
	}

	r.logger.Info("snapshot restored", "id", id, "target", target, "files", count)
	return count, nil
}

// safeJoin joins a slash-separated relative path onto base, refusing paths
// that would escape it.
func safeJoin(base, rel string) (string, error) {
	clean := filepath.Clean(filepath.FromSlash(rel))
	if filepath.IsAbs(clean) || clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("refusing path outside target: %s", rel)
	}
	return filepath.Join(base, clean), nil
}

// DeleteSnapshot removes the metadata for id. Objects are left for GC.
func (r *Repository) DeleteSnapshot(id string) error {
	if err := r.snapshots.Delete(id); err != nil {
		return fmt.Errorf("deleting snapshot %s: %w", id, err)
	}
	r.logger.Info("snapshot deleted", "id", id)
	return nil
}

// ResolveRef turns a snapshot id, tag name or sequence number into a snapshot id.
func (r *Repository) ResolveRef(ref string, tags map[string]string) (string, error) {
	if ref == "" {
		return "", fmt.Errorf("empty reference: %w", ErrSnapshotNotFound)
	}
	if r.snapshots.Exists(ref) {
		return ref, nil
	}
	if id, ok := tags[ref]; ok {
		if !r.snapshots.Exists(id) {
			return "", fmt.Errorf("tag %s points at %s: %w", ref, id, ErrSnapshotNotFound)
		}
		return id, nil
	}
	if seq, err := strconv.Atoi(ref); err == nil {
		entries, err := r.ListHistory()
		if err != nil {
			return "", err
		}
		for _, e := range entries {
			if e.SequenceNumber != seq {
				continue
			}
			if e.Pruned {
				return "", fmt.Errorf("snapshot #%d was pruned: %w", seq, ErrSnapshotNotFound)
			}
			return e.SnapshotID, nil
		}
	}
	return "", fmt.Errorf("%s: %w", ref, ErrSnapshotNotFound)
}

// isNotExist reports whether err means a missing object or snapshot.
func isNotExist(err error) bool {
	return errors.Is(err, ErrObjectNotFound) || errors.Is(err, ErrSnapshotNotFound) || errors.Is(err, os.ErrNotExist)
}
