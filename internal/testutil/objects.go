package testutil

import (
	"lvc-go/internal/objects"
)

// NewTestObjectStore creates a new in-memory object store for testing.
func NewTestObjectStore() *objects.MemoryObjectStore {
	return objects.NewMemoryObjectStore()
}
