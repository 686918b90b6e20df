package lvc

// FilesystemManager abstracts the working tree so the snapshot logic can be
// tested without touching the real filesystem.
type FilesystemManager interface {
	// Scan walks root and returns the current state of every tracked file.
	// Symlinks are not followed and the metadata and rollback directories are skipped,
	// as is anything matched by the ignore rules.
	Scan(root string) (*Index, error)

	// ReadFile returns the contents of a file given its path relative to root.
	ReadFile(root string, relativePath string) ([]byte, error)
}
