// Copyright 2026 Jeremy Hahn
// SPDX-License-Identifier: MIT

package keypin

import (
	"bytes"
	"fmt"
	"slices"
)

// P256PublicKeySize is the length of an uncompressed P-256 point
// (0x04 || X || Y), the default pinned key size.
const P256PublicKeySize = 65

// KeySet is an immutable set of raw public keys of one fixed length.
// It is safe for concurrent use.
type KeySet struct {
	size int
	keys map[string]struct{}
}

// NewKeySet builds a set from keys, each of which must be exactly size
// bytes long. Duplicates are collapsed. An empty list yields a valid set
// that contains nothing.
func NewKeySet(size int, keys [][]byte) (*KeySet, error) {
	if size <= 0 {
		return nil, fmt.Errorf("%w: key size must be positive, got %d", ErrInvalidKeySize, size)
	}

	set := &KeySet{
		size: size,
		keys: make(map[string]struct{}, len(keys)),
	}
	for i, key := range keys {
		if len(key) != size {
			return nil, fmt.Errorf("%w: key %d is %d bytes, want %d", ErrInvalidKeySize, i, len(key), size)
		}
		set.keys[string(key)] = struct{}{}
	}
	return set, nil
}

// Contains reports whether key is in the set.
func (s *KeySet) Contains(key []byte) bool {
	if len(key) != s.size {
		return false
	}
	_, ok := s.keys[string(key)]
	return ok
}

// Len returns the number of distinct keys.
func (s *KeySet) Len() int { return len(s.keys) }

// Size returns the required key length in bytes.
func (s *KeySet) Size() int { return s.size }

// Keys returns copies of the keys in ascending byte order.
func (s *KeySet) Keys() [][]byte {
	out := make([][]byte, 0, len(s.keys))
	for k := range s.keys {
		out = append(out, []byte(k))
	}
	slices.SortFunc(out, bytes.Compare)
	return out
}
