package domain

import (
	"crypto/sha256"
	"encoding/hex"
)

// HashKey returns the hex sha256 digest of a raw API key. Lookups go
// through the hash so the raw secret never touches storage.
func HashKey(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}
