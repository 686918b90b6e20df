package lvc

// ObjectStore is content-addressed blob storage keyed by the SHA-1 hash of
// the uncompressed content. Objects are written once and only removed by GC.
type ObjectStore interface {
	// Store hashes data and writes it if no object with that hash exists.
	// Storing the same content again is a no-op that returns the same hash.
	Store(data []byte) (string, error)

	// Load returns the uncompressed content for hash.
	// Returns an error wrapping ErrObjectNotFound if there is no such object.
	Load(hash string) ([]byte, error)

	// Restore writes the content for hash to targetPath, creating parent directories.
	Restore(hash string, targetPath string) error

	// Exists reports whether an object is stored under hash.
	Exists(hash string) bool

	// SizeOf returns the stored (compressed) size of an object.
	SizeOf(hash string) (int64, error)

	// ListAll returns the hash of every stored object exactly once.
	ListAll() ([]string, error)

	// Remove deletes an object and returns the number of stored bytes freed.
	// Removing a missing object frees zero bytes and is not an error.
	Remove(hash string) (int64, error)

	// Recompress re-encodes an object at the highest compression setting and
	// replaces it only if the result is strictly smaller.
	// Returns the stored size before and after.
	Recompress(hash string) (before int64, after int64, err error)

	// CleanFragments removes temporary, lock and implausibly small files and
	// empty directories from the object tree. In dry-run mode it only reports.
	CleanFragments(dryRun bool) (*FragmentReport, error)
}

// FragmentReport describes what CleanFragments found or removed.
type FragmentReport struct {
	Fragments        []string `json:"fragments"`
	FreedBytes       int64    `json:"freed_bytes"`
	EmptyDirsRemoved int      `json:"empty_dirs_removed"`
}
