package refs

import (
	"encoding/hex"
	"fmt"

	"github.com/go-git/go-git/v5/plumbing"
)

const (
	HashLen    = 20
	HashHexLen = HashLen * 2
)

type Hash = plumbing.Hash

// ParseHash accepts only the canonical 40 hex digit form.
func ParseHash(s string) (Hash, error) {
	var hash Hash
	if len(s) != HashHexLen {
		return hash, fmt.Errorf("invalid hash length %d: %q", len(s), s)
	}
	if _, err := hex.Decode(hash[:], []byte(s)); err != nil {
		return hash, fmt.Errorf("invalid hash %q: %w", s, err)
	}
	return hash, nil
}
