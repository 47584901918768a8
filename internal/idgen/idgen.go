// Package idgen generates an 8-hex-char session id and a 32-hex-char
// listener token. Neither a UUID (36 chars, dashed) nor a ULID (26 chars,
// base32) matches that alphabet, so this draws straight from crypto/rand
// rather than reaching for a library built for a different id shape.
package idgen

import (
	"crypto/rand"
	"encoding/hex"
)

// SessionID returns a fresh 8-hex-char session identifier.
func SessionID() (string, error) {
	return randomHex(4)
}

// Token returns a fresh 32-hex-char listener secret.
func Token() (string, error) {
	return randomHex(16)
}

func randomHex(nBytes int) (string, error) {
	buf := make([]byte, nBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
