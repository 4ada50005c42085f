// Package ids generates and validates the 24-character hexadecimal object
// identifiers used as primary keys across all collections.
package ids

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
)

// Len is the canonical identifier length in characters.
const Len = 24

// ErrInvalidIdentifier indicates a malformed object identifier.
var ErrInvalidIdentifier = errors.New("invalid identifier")

// New returns a fresh 24-character lowercase hex identifier.
func New() string {
	var b [Len / 2]byte
	if _, err := rand.Read(b[:]); err != nil {
		// crypto/rand never fails on supported platforms; treat as fatal.
		panic(fmt.Sprintf("ids: entropy source unavailable: %v", err))
	}
	return hex.EncodeToString(b[:])
}

// Validate reports whether id is a well-formed identifier. Malformed input
// yields ErrInvalidIdentifier so callers can map it without string matching.
func Validate(id string) error {
	if len(id) != Len {
		return fmt.Errorf("%w: %q", ErrInvalidIdentifier, id)
	}
	if _, err := hex.DecodeString(id); err != nil {
		return fmt.Errorf("%w: %q", ErrInvalidIdentifier, id)
	}
	return nil
}

// Valid is a convenience wrapper around Validate.
func Valid(id string) bool {
	return Validate(id) == nil
}
