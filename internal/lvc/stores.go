package lvc

// IndexStore persists the single current Index of a repository.
type IndexStore interface {
	// Load returns the saved index, or an empty index if none has been saved yet.
	Load() (*Index, error)

	// Save replaces the saved index.
	Save(index *Index) error
}

// SnapshotStore persists immutable snapshot metadata, one record per snapshot.
type SnapshotStore interface {
	// Save writes a snapshot record.
	Save(snapshot *SnapshotMetadata) error

	// Load returns the snapshot record for id.
	// Returns an error wrapping ErrSnapshotNotFound if there is none.
	Load(id string) (*SnapshotMetadata, error)

	// Exists reports whether a record exists for id.
	Exists(id string) bool

	// List returns the ids of all stored snapshots in no particular order.
	List() ([]string, error)

	// Delete removes the record for id. Objects are not touched.
	Delete(id string) error
}

// HistoryLog is the append-only log of commit summaries.
type HistoryLog interface {
	// Append writes one entry to the end of the log.
	Append(entry *HistoryEntry) error

	// List returns all well-formed entries, newest first.
	// Malformed lines are skipped.
	List() ([]*HistoryEntry, error)

	// Len returns the number of non-empty lines, which is also the sequence
	// number of the most recent entry.
	Len() (int, error)
}
