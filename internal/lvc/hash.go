package lvc

import (
	"crypto/sha1"
	"encoding/hex"
	"io"
)

// HashLength is the length of a hex-encoded content hash.
const HashLength = sha1.Size * 2

// ContentHash returns the lowercase hex SHA-1 of data.
func ContentHash(data []byte) string {
	sum := sha1.Sum(data)
	return hex.EncodeToString(sum[:])
}

// IsContentHash reports whether s looks like a hash produced by ContentHash.
func IsContentHash(s string) bool {
	if len(s) != HashLength {
		return false
	}
	for _, c := range s {
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
			return false
		}
	}
	return true
}

// HashReader returns the content hash of everything read from r and the number of bytes read.
func HashReader(r io.Reader) (string, int64, error) {
	h := sha1.New()
	n, err := io.Copy(h, r)
	if err != nil {
		return "", n, err
	}
	return hex.EncodeToString(h.Sum(nil)), n, nil
}
