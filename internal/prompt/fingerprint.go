package prompt

import (
	"crypto/sha256"
	"encoding/hex"
	"io"
)

// Fingerprint derives the stable cache key for a canonical context.
// The contract version is hashed in so that changing the instruction
// text or decoding configuration never serves a stale cached review.
func Fingerprint(canonical string) string {
	h := sha256.New()
	io.WriteString(h, ContractVersion)
	io.WriteString(h, "\n")
	io.WriteString(h, canonical)
	return hex.EncodeToString(h.Sum(nil))
}
