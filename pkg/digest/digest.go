// Package digest provides the content hash used throughout the custody ledger.
//
// Every digest is the lowercase hex encoding of a SHA-256 sum, so all values
// are exactly Size characters wide.
package digest

import (
	"crypto/sha256"
	"encoding/hex"
)

// Size is the width of a hex-encoded digest.
const Size = sha256.Size * 2

// Zero is the all-zero digest. The ledger uses it as the previous hash of the
// first block.
const Zero = "0000000000000000000000000000000000000000000000000000000000000000"

// Sum returns the hex-encoded SHA-256 digest of b.
func Sum(b []byte) string {
	h := sha256.Sum256(b)
	return hex.EncodeToString(h[:])
}

// String is Sum for string input.
func String(s string) string {
	return Sum([]byte(s))
}

// Valid reports whether s has the shape of a digest: Size lowercase hex characters.
func Valid(s string) bool {
	if len(s) != Size {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
			return false
		}
	}
	return true
}
