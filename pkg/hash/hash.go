package hash

import (
	"crypto/sha256"
	"encoding/hex"
)

// SHA256Hex returns the hex-encoded SHA256 hash of the input string.
func SHA256Hex(input string) string {
	h := sha256.Sum256([]byte(input))
	return hex.EncodeToString(h[:])
}

// IteratedSHA256 applies SHA256 iteratively n times to produce a derived hash.
// Operates on raw digest bytes between iterations, not hex strings.
func IteratedSHA256(input string, iterations int) string {
	data := []byte(input)
	for range iterations {
		h := sha256.Sum256(data)
		data = h[:]
	}
	return hex.EncodeToString(data)
}

// HashIP hashes an IP address with a salt using 5000 iterations of SHA256.
// The output is the opaque identity token used for rate limiting and
// anonymous vote deduplication; it is never decoded back to an address.
func HashIP(ip, salt string) string {
	return IteratedSHA256(salt+ip, 5000)
}
