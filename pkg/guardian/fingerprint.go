package guardian

import (
	"encoding/hex"

	"golang.org/x/crypto/sha3"
)

// Fingerprint returns the 0x-prefixed Keccak-256 digest of body.
func Fingerprint(body string) string {
	h := sha3.NewLegacyKeccak256()
	h.Write([]byte(body))
	return "0x" + hex.EncodeToString(h.Sum(nil))
}
