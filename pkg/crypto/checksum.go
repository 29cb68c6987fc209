package crypto

import (
	"crypto/sha256"
	"encoding/hex"
)

// Checksum returns the lowercase hex-encoded SHA-256 digest of data.
func Checksum(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// ChecksumString is a convenience wrapper around Checksum for string input.
func ChecksumString(s string) string {
	return Checksum([]byte(s))
}

// ChecksumConcat hashes the concatenation of the supplied parts in order,
// used for version checksums (path||content pairs) and signatures
// (id||checksum||signer||timestamp).
func ChecksumConcat(parts ...string) string {
	h := sha256.New()
	for _, p := range parts {
		h.Write([]byte(p))
	}
	return hex.EncodeToString(h.Sum(nil))
}
