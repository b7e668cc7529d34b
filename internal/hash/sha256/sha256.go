// Package sha256 fingerprints block-list contents.
package sha256

import (
	"crypto/sha256"
	"encoding/hex"
)

// Fingerprint returns the hex SHA-256 digest of lists. Entries are
// newline-terminated and lists NUL-separated, so moving an entry from one
// list to another changes the digest.
func Fingerprint(lists ...[]string) string {
	h := sha256.New()
	for _, list := range lists {
		for _, entry := range list {
			h.Write([]byte(entry))
			h.Write([]byte{'\n'})
		}
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}
