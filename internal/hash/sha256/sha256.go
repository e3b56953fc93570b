// Package sha256 derives stable content digests for cache keys and artifacts.
package sha256

import (
	"crypto/sha256"
	"encoding/hex"
)

// Hex returns the lowercase hex SHA-256 digest of data.
func Hex(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// String is Hex for string input.
func String(s string) string {
	return Hex([]byte(s))
}
