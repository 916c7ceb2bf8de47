package board

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"strings"
)

// keyTypePrefix marks an ed25519 key in the host's hex key notation.
const keyTypePrefix = "ed"

// Key is a raw author public key.
type Key [KeySize]byte

// ParseKey decodes a hex key. The hex may carry the "ed" key type prefix.
func ParseKey(s string) (Key, error) {
	var k Key

	if len(s) == hex.EncodedLen(KeySize)+len(keyTypePrefix) && strings.EqualFold(s[:2], keyTypePrefix) {
		s = s[len(keyTypePrefix):]
	}

	if len(s) != hex.EncodedLen(KeySize) {
		return k, fmt.Errorf("key must be %d hex characters, got %d", hex.EncodedLen(KeySize), len(s))
	}

	if _, err := hex.Decode(k[:], []byte(s)); err != nil {
		return k, fmt.Errorf("decode key: %w", err)
	}

	return k, nil
}

// String returns the lowercase hex form of the key.
func (k Key) String() string {
	return hex.EncodeToString(k[:])
}

// Short returns the first 8 bytes of the key in hex, for display.
func (k Key) Short() string {
	return hex.EncodeToString(k[:8])
}

// Compare orders keys by raw byte value.
func (k Key) Compare(other Key) int {
	return bytes.Compare(k[:], other[:])
}
