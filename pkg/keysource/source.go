// Copyright 2026 Jeremy Hahn
// SPDX-License-Identifier: MIT

package keysource

import (
	"bytes"
	"context"
)

// Source supplies raw public keys.
type Source interface {
	// Name identifies the source in logs and errors.
	Name() string

	// Keys returns the keys the source currently holds. Implementations
	// must honor ctx cancellation for any network or disk access.
	Keys(ctx context.Context) ([][]byte, error)
}

// Static is a fixed list of keys.
type Static struct {
	// Label is returned by Name. Defaults to "static".
	Label string

	// List holds the raw keys.
	List [][]byte
}

// Name implements Source.
func (s *Static) Name() string {
	if s.Label == "" {
		return "static"
	}
	return s.Label
}

// Keys returns copies of the configured keys.
func (s *Static) Keys(_ context.Context) ([][]byte, error) {
	out := make([][]byte, 0, len(s.List))
	for _, k := range s.List {
		out = append(out, bytes.Clone(k))
	}
	return out, nil
}
