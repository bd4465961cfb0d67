package textutil

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"unicode"
)

// HasLetters reports whether s contains any letter, in any script.
func HasLetters(s string) bool {
	return strings.IndexFunc(s, unicode.IsLetter) >= 0
}

// Hash computes a SHA-256 hex hash over the given parts, separated by NUL.
func Hash(parts ...string) string {
	h := sha256.Sum256([]byte(strings.Join(parts, "\x00")))
	return hex.EncodeToString(h[:])
}

// Truncate shortens a string to maxLen runes, appending "..." if truncated.
func Truncate(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	return string(r[:maxLen]) + "..."
}
