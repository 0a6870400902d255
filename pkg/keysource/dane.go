// Copyright 2026 Jeremy Hahn
// SPDX-License-Identifier: MIT

package keysource

import (
	"context"
	"fmt"
	"strconv"
)

// TLSAResolver resolves the raw keys published in TLSA records.
// *dane.Resolver satisfies it.
type TLSAResolver interface {
	LookupPinnedKeys(ctx context.Context, hostname string, port uint16) ([][]byte, error)
}

// DANE reads keys from the DANE-EE SPKI records of Host:Port.
type DANE struct {
	Resolver TLSAResolver
	Host     string
	Port     uint16
}

// Name implements Source.
func (d *DANE) Name() string {
	return "dane:" + d.Host + ":" + strconv.Itoa(int(d.Port))
}

// Keys implements Source.
func (d *DANE) Keys(ctx context.Context) ([][]byte, error) {
	if d.Resolver == nil {
		return nil, fmt.Errorf("%w: dane resolver required", ErrInvalidConfig)
	}
	if d.Host == "" {
		return nil, fmt.Errorf("%w: dane host required", ErrInvalidConfig)
	}
	return d.Resolver.LookupPinnedKeys(ctx, d.Host, d.Port)
}
