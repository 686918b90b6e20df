package lvc

import "time"

// FileEntry is one file's recorded state within an Index or a snapshot.
// Path is relative to the repository root and always uses forward slashes.
type FileEntry struct {
	Path         string    `json:"path"`
	ContentHash  string    `json:"content_hash"`
	Size         int64     `json:"size"`
	ModifiedTime time.Time `json:"modified_time"`
}

// Index is the working-tree state as of the last commit, keyed by relative path.
type Index struct {
	Files map[string]FileEntry `json:"files"`
}

// NewIndex returns an empty Index.
func NewIndex() *Index {
	return &Index{Files: make(map[string]FileEntry)}
}

// Len returns the number of files in the index.
func (i *Index) Len() int {
	if i == nil {
		return 0
	}
	return len(i.Files)
}

// SnapshotMetadata is the immutable record written once per commit.
// Files holds the complete tree at that point, not a delta.
type SnapshotMetadata struct {
	ID             string               `json:"id"`
	SequenceNumber int                  `json:"sequence_number"`
	Timestamp      time.Time            `json:"timestamp"`
	Message        string               `json:"message"`
	Added          int                  `json:"added"`
	Modified       int                  `json:"modified"`
	Deleted        int                  `json:"deleted"`
	Files          map[string]FileEntry `json:"files"`
}

// HistoryEntry is one line of the append-only history log.
type HistoryEntry struct {
	SnapshotID     string    `json:"snapshot_id"`
	SequenceNumber int       `json:"sequence_number"`
	Timestamp      time.Time `json:"timestamp"`
	Added          int       `json:"added"`
	Modified       int       `json:"modified"`
	Deleted        int       `json:"deleted"`
	Message        string    `json:"message"`

	// Pruned is set by Repository.ListHistory when the snapshot metadata
	// for this entry no longer exists. It is never written to the log.
	Pruned bool `json:"pruned,omitempty"`
}

// Changes partitions paths into added, modified and deleted sets.
// Each slice is sorted.
type Changes struct {
	Added    []string `json:"added"`
	Modified []string `json:"modified"`
	Deleted  []string `json:"deleted"`
}

// Empty reports whether there are no changes at all.
func (c *Changes) Empty() bool {
	return len(c.Added) == 0 && len(c.Modified) == 0 && len(c.Deleted) == 0
}

// SkippedFile records a file that was not stored during a commit.
type SkippedFile struct {
	Path   string `json:"path"`
	Size   int64  `json:"size"`
	Reason string `json:"reason"`
}

// CommitResult is returned by Repository.CreateSnapshot.
type CommitResult struct {
	SnapshotID     string        `json:"snapshot_id"`
	SequenceNumber int           `json:"sequence_number"`
	Timestamp      time.Time     `json:"timestamp"`
	Message        string        `json:"message"`
	Added          int           `json:"added"`
	Modified       int           `json:"modified"`
	Deleted        int           `json:"deleted"`
	Changes        Changes       `json:"changes"`
	Skipped        []SkippedFile `json:"skipped,omitempty"`
	AutoGC         *GCReport     `json:"auto_gc,omitempty"`
}
