package lvc

import "errors"

var (
	// ErrNotARepository is returned when no metadata directory exists at or above a path.
	ErrNotARepository = errors.New("not an lvc repository (or any parent up to root)")

	// ErrObjectNotFound is returned when a hash has no backing blob.
	ErrObjectNotFound = errors.New("object not found")

	// ErrSnapshotNotFound is returned when a snapshot id has no metadata file.
	ErrSnapshotNotFound = errors.New("snapshot not found")

	// ErrInvalidHistoryRecord is returned by the history parser for a malformed line.
	ErrInvalidHistoryRecord = errors.New("invalid history record")

	// ErrOversizedFile marks a file skipped during commit because it exceeds the size limit.
	ErrOversizedFile = errors.New("file exceeds maximum size")

	// ErrLocked is returned when another process holds the repository writer lock.
	ErrLocked = errors.New("repository is locked by another process")
)
