// Copyright 2026 Jeremy Hahn
// SPDX-License-Identifier: MIT

// Package x509der is a strict DER decoder for X.509 certificates and
// SubjectPublicKeyInfo structures. It checks structure only: signatures,
// validity periods, names and extensions are decoded far enough to prove
// they are well formed, never interpreted. Every decode must consume its
// entire input.
package x509der

import (
	"errors"
	"fmt"
)

var (
	// ErrMalformed is returned for any input that is not a well-formed DER
	// encoding of the expected structure.
	ErrMalformed = errors.New("x509der: malformed DER")

	// ErrTrailingData is returned when a structurally complete value is
	// followed by unconsumed bytes. It wraps ErrMalformed.
	ErrTrailingData = fmt.Errorf("%w: trailing data", ErrMalformed)
)

// malformed wraps ErrMalformed with the name of the field that failed.
func malformed(field string) error {
	return fmt.Errorf("%w: invalid %s", ErrMalformed, field)
}

// trailing wraps ErrTrailingData with the name of the enclosing structure.
func trailing(structure string, n int) error {
	return fmt.Errorf("%w: %d bytes after %s", ErrTrailingData, n, structure)
}
