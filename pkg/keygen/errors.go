// Copyright 2026 Jeremy Hahn
// SPDX-License-Identifier: MIT

// Package keygen creates the self-signed identities used with pinned-key
// TLS: a P-256 key pair, a certificate wrapping its public key, and the
// raw public key bytes that peers pin.
package keygen

import "errors"

var (
	// ErrUnsupportedKey is returned for public key types with no raw
	// encoding.
	ErrUnsupportedKey = errors.New("keygen: unsupported key type")

	// ErrKeyMismatch is returned when a certificate does not carry the
	// public half of the loaded private key.
	ErrKeyMismatch = errors.New("keygen: certificate does not match private key")

	// ErrInvalidPEM is returned when a file holds no PEM block of the
	// expected type.
	ErrInvalidPEM = errors.New("keygen: invalid PEM")
)
