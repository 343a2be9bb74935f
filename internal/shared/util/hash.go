package util

import (
	"crypto/sha256"
	"encoding/hex"
)

// HashContent returns a content-addressed identifier for a byte payload.
// Identical payloads always map to the same identifier.
func HashContent(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
