package testutil

import "lvc-go/internal/lvc"

// SHA1Hex returns the content hash of data as a lowercase hex string.
// Matches the hash format used by the scanner and object store.
func SHA1Hex(data []byte) string {
	return lvc.ContentHash(data)
}
