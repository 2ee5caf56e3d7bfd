// Package identity derives storage-safe actor keys from raw user
// identities (email addresses, usernames, free-form strings). Both
// backing stores constrain key characters, so every identity passes
// through Normalize before it is used as a storage key.
package identity

import (
	"encoding/hex"
	"strings"

	"golang.org/x/crypto/blake2b"
)

const (
	// SentinelKey is returned for identities that normalize to nothing.
	// Callers treat its appearance as a data-quality event worth logging.
	SentinelKey = "anon"

	// maxKeyLen is the shorter of the two backing stores' key limits.
	maxKeyLen = 64

	// truncPrefixLen is how much of the sanitized key survives when the
	// key exceeds maxKeyLen; the rest is replaced by a digest suffix so
	// distinct long identities stay distinct.
	truncPrefixLen = 48
)

// Normalize maps an arbitrary identity string to a key matching
// [a-z0-9][a-z0-9_-]*[a-z0-9] (or a single [a-z0-9], or SentinelKey),
// at most maxKeyLen characters. It is pure, total, and deterministic:
// the same input always yields the same key. Keys over the length limit
// keep a prefix plus a short blake2b digest of the full lowered input.
// The result is a storage key, never a display name.
func Normalize(raw string) string {
	lowered := strings.ToLower(raw)

	var b strings.Builder
	b.Grow(len(lowered))

	prevPlaceholder := false
	for _, r := range lowered {
		switch {
		case r >= 'a' && r <= 'z' || r >= '0' && r <= '9' || r == '-':
			b.WriteRune(r)
			prevPlaceholder = false
		default:
			// Collapse runs of disallowed characters into one placeholder.
			if !prevPlaceholder {
				b.WriteByte('_')
				prevPlaceholder = true
			}
		}
	}

	key := strings.Trim(b.String(), "_-")
	if key == "" {
		return SentinelKey
	}

	if len(key) > maxKeyLen {
		sum := blake2b.Sum256([]byte(lowered))
		key = strings.TrimRight(key[:truncPrefixLen], "_-") + "-" + hex.EncodeToString(sum[:4])
	}

	return key
}
