// Copyright 2026 Jeremy Hahn
// SPDX-License-Identifier: MIT

package keysource

import (
	"context"
	"fmt"

	"github.com/jeremyhahn/go-keypin/pkg/keydist"
)

// Noise fetches keys from a keydist server.
type Noise struct {
	// Config is copied for every fetch and never modified.
	Config keydist.ClientConfig
}

// Name implements Source.
func (n *Noise) Name() string { return "noise:" + n.Config.ServerAddr }

// Keys opens a fresh session, fetches the key set and closes the session.
func (n *Noise) Keys(ctx context.Context) ([][]byte, error) {
	if n.Config.ServerAddr == "" {
		return nil, fmt.Errorf("%w: noise server address required", ErrInvalidConfig)
	}
	cfg := n.Config
	return keydist.FetchPinnedKeys(ctx, &cfg)
}
