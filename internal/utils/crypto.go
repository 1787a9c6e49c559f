// internal/utils/crypto.go
package utils

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

func HashString(input string) string {
	hasher := sha256.New()
	hasher.Write([]byte(input))
	return hex.EncodeToString(hasher.Sum(nil))
}

// ShortHash hashes the parts joined by "|" and keeps the first n hex characters.
func ShortHash(n int, parts ...string) string {
	sum := HashString(strings.Join(parts, "|"))
	if n <= 0 || n > len(sum) {
		return sum
	}
	return sum[:n]
}
