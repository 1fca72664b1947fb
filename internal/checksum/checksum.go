// Package checksum fingerprints file contents for change detection and
// compare-and-swap writes.
package checksum

import (
	"crypto/sha256"
	"encoding/hex"
)

// Sum returns the hex-encoded SHA-256 digest of data.
func Sum(data []byte) string {
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}

// Empty is the checksum recorded for a file that does not exist yet.
const Empty = ""
